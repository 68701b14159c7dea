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
	"github.com/faizdevx/CrashNet/internal/inference"
	"github.com/faizdevx/CrashNet/internal/model"
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

	store, err := model.NewStore(cfg.SnapshotPath, cfg.SnapshotInterval, logger.Named("model"))
	if err != nil {
		logger.Fatal("failed to init model store", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go store.Run(ctx)

	r := gin.Default()
	inference.NewHandler(store, logger.Named("inference")).Register(r)

	srv := &http.Server{
		Addr:    ":" + cfg.InferencePort,
		Handler: r,
	}

	go func() {
		logger.Info("inference service listening", zap.String("port", cfg.InferencePort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("server shutdown failed", zap.Error(err))
	}
	logger.Info("inference service stopped")
}
