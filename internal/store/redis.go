package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/faizdevx/CrashNet/internal/config"
	"github.com/faizdevx/CrashNet/internal/domain"
)

// RedisStore keeps the latest classified state per device (hash +
// geo index) and mirrors accident alerts onto a pub/sub channel.
type RedisStore struct {
	client *redis.Client
}

const alertChannel = "crashnet:alerts"

func NewRedisStore(ctx context.Context, cfg *config.Config) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr,
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		PoolSize:     20,
		MinIdleConns: 5,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisStore{client: client}, nil
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}

func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisStore) UpdateDeviceState(ctx context.Context, reading *domain.TelemetryReading, result domain.Classification, ts float64) error {
	var lat, lon, speed float64
	if reading.Lat != nil {
		lat = *reading.Lat
	}
	if reading.Lon != nil {
		lon = *reading.Lon
	}
	if reading.SpeedKmh != nil {
		speed = *reading.SpeedKmh
	}

	stateData := map[string]interface{}{
		"device_id": reading.DeviceID,
		"lat":       lat,
		"lng":       lon,
		"speed":     speed,
		"accel":     reading.Accel,
		"gyro":      reading.Gyro,
		"accident":  result.Accident,
		"score":     result.Score,
		"ts":        ts,
	}
	if reading.Distance != nil {
		stateData["distance"] = *reading.Distance
	}

	stateKey := fmt.Sprintf("device:%s:state", reading.DeviceID)

	pipe := r.client.Pipeline()
	pipe.HSet(ctx, stateKey, stateData)
	pipe.Expire(ctx, stateKey, 30*time.Second)
	pipe.GeoAdd(ctx, "devices:geo", &redis.GeoLocation{
		Name:      reading.DeviceID,
		Longitude: lon,
		Latitude:  lat,
	})

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis pipeline failed: %w", err)
	}
	return nil
}

func (r *RedisStore) PublishAlert(ctx context.Context, deviceID string, payload []byte) error {
	if err := r.client.Publish(ctx, alertChannel, payload).Err(); err != nil {
		return fmt.Errorf("alert publish for %s failed: %w", deviceID, err)
	}
	return nil
}
