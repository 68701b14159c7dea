package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/faizdevx/CrashNet/internal/config"
	"github.com/faizdevx/CrashNet/internal/domain"
)

// AlertStore archives accident verdicts in Postgres.
type AlertStore struct {
	pool *pgxpool.Pool
}

func NewAlertStore(ctx context.Context, cfg *config.Config) (*AlertStore, error) {
	connStr := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?pool_max_conns=%d",
		cfg.DBUser,
		cfg.DBPassword,
		cfg.DBHost,
		cfg.DBPort,
		cfg.DBName,
		cfg.DBMaxConns,
	)

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to create db pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping db: %w", err)
	}

	return &AlertStore{pool: pool}, nil
}

func (s *AlertStore) Close() {
	s.pool.Close()
}

func (s *AlertStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *AlertStore) InsertAccident(ctx context.Context, deviceID string, result domain.Classification, ts float64) error {
	query := `
		INSERT INTO accident_alerts
			(device_id, score, reading_ts, created_at)
		VALUES
			($1, $2, to_timestamp($3), NOW())
		ON CONFLICT DO NOTHING
	`
	_, err := s.pool.Exec(ctx, query, deviceID, result.Score, ts)
	if err != nil {
		return fmt.Errorf("accident insert for %s failed: %w", deviceID, err)
	}
	return nil
}
