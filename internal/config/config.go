package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	// HTTP
	GatewayPort   string
	InferencePort string
	HubPort       string

	// Downstream services (gateway side)
	MLURL  string
	HubURL string

	// Timeouts
	InferTimeout    time.Duration
	HubPostTimeout  time.Duration
	HubWriteTimeout time.Duration

	// Hub tuning
	HubSendBuffer int

	// Model snapshots
	SnapshotPath     string
	SnapshotInterval time.Duration

	// Gateway side channels
	DispatchChannelSize int
	StateChannelSize    int
	AlertChannelSize    int

	// Redis live-state store (optional; disabled when addr is empty)
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Postgres alert archive (optional; disabled when host is empty)
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBMaxConns int32
}

func Load() *Config {
	return &Config{
		GatewayPort:         getEnv("GATEWAY_PORT", "8000"),
		InferencePort:       getEnv("INFERENCE_PORT", "8001"),
		HubPort:             getEnv("HUB_PORT", "8002"),
		MLURL:               getEnv("ML_URL", "http://localhost:8001"),
		HubURL:              getEnv("WS_URL", "http://localhost:8002"),
		InferTimeout:        getEnvDurationMS("INFER_TIMEOUT_MS", 3000),
		HubPostTimeout:      getEnvDurationMS("HUB_POST_TIMEOUT_MS", 1000),
		HubWriteTimeout:     getEnvDurationMS("HUB_WRITE_TIMEOUT_MS", 1000),
		HubSendBuffer:       getEnvInt("HUB_SEND_BUFFER", 32),
		SnapshotPath:        getEnv("SNAPSHOT_PATH", "models/model.json"),
		SnapshotInterval:    getEnvDurationMS("SNAPSHOT_INTERVAL_MS", 10000),
		DispatchChannelSize: getEnvInt("DISPATCH_CHANNEL_SIZE", 1024),
		StateChannelSize:    getEnvInt("STATE_CHANNEL_SIZE", 4096),
		AlertChannelSize:    getEnvInt("ALERT_CHANNEL_SIZE", 1024),
		RedisAddr:           getEnv("REDIS_ADDR", ""),
		RedisPassword:       getEnv("REDIS_PASSWORD", ""),
		RedisDB:             getEnvInt("REDIS_DB", 0),
		DBHost:              getEnv("DB_HOST", ""),
		DBPort:              getEnv("DB_PORT", "5432"),
		DBUser:              getEnv("DB_USER", "crashnet"),
		DBPassword:          getEnv("DB_PASSWORD", "crashnet"),
		DBName:              getEnv("DB_NAME", "crashnet"),
		DBMaxConns:          int32(getEnvInt("DB_MAX_CONNS", 10)),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDurationMS(key string, fallbackMS int) time.Duration {
	return time.Duration(getEnvInt(key, fallbackMS)) * time.Millisecond
}
