package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/faizdevx/CrashNet/internal/config"
	"github.com/faizdevx/CrashNet/internal/hub"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found. Falling back to OS environment variables.")
	}
	cfg := config.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync()

	h := hub.New(cfg.HubWriteTimeout, cfg.HubSendBuffer, logger.Named("hub"))

	r := gin.Default()
	hub.NewServer(h, logger.Named("hub-server")).Register(r)

	srv := &http.Server{
		Addr:    ":" + cfg.HubPort,
		Handler: r,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("broadcast hub listening", zap.String("port", cfg.HubPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()

	h.Shutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("server shutdown failed", zap.Error(err))
	}
	logger.Info("broadcast hub stopped")
}
