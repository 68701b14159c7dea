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
	"github.com/faizdevx/CrashNet/internal/gateway"
	"github.com/faizdevx/CrashNet/internal/mlclient"
	"github.com/faizdevx/CrashNet/internal/store"
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ml := mlclient.New(cfg.MLURL, cfg.InferTimeout)
	sink := gateway.NewHubClient(cfg.HubURL, cfg.HubPostTimeout)
	dispatcher := gateway.NewDispatcher(cfg.DispatchChannelSize, cfg.StateChannelSize, cfg.AlertChannelSize)

	// Optional backing stores: enabled by config, absent stores cost
	// nothing but dashboard freshness and alert history.
	var stateStore gateway.StateStore
	var alertPublisher gateway.AlertPublisher
	if cfg.RedisAddr != "" {
		redisStore, err := store.NewRedisStore(ctx, cfg)
		if err != nil {
			logger.Fatal("failed to init redis store", zap.Error(err))
		}
		defer redisStore.Close()
		stateStore = redisStore
		alertPublisher = redisStore
	}

	var alertArchive gateway.AlertArchive
	if cfg.DBHost != "" {
		alertStore, err := store.NewAlertStore(ctx, cfg)
		if err != nil {
			logger.Fatal("failed to init alert store", zap.Error(err))
		}
		defer alertStore.Close()
		alertArchive = alertStore
	}

	forwarder := gateway.NewHubForwarder(
		dispatcher.HubTelemetryChan,
		dispatcher.HubAlertChan,
		sink,
		logger.Named("forwarder"),
	)
	stateWriter := gateway.NewStateWriter(dispatcher.StateChan, stateStore, logger.Named("state-writer"))
	alertRecorder := gateway.NewAlertRecorder(dispatcher.RecordChan, alertArchive, alertPublisher, logger.Named("alert-recorder"))

	go forwarder.Run(ctx)
	go stateWriter.Run(ctx)
	go alertRecorder.Run(ctx)

	r := gin.Default()
	gateway.NewHandler(ml, dispatcher, cfg.InferTimeout, logger.Named("gateway")).Register(r)

	srv := &http.Server{
		Addr:    ":" + cfg.GatewayPort,
		Handler: r,
	}

	go func() {
		logger.Info("ingestion gateway listening", zap.String("port", cfg.GatewayPort))
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
	logger.Info("ingestion gateway stopped")
}
