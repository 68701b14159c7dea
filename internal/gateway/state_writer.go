package gateway

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/faizdevx/CrashNet/internal/domain"
)

// StateStore holds the latest known state per device for dashboards
// that query instead of subscribing.
type StateStore interface {
	UpdateDeviceState(ctx context.Context, reading *domain.TelemetryReading, result domain.Classification, ts float64) error
}

// StateWriter mirrors each classified reading into the state store.
// Writes are batched on a short tick; a store failure costs only that
// device's freshness until its next reading.
type StateWriter struct {
	ch    <-chan *Enriched
	store StateStore
	log   *zap.Logger
}

func NewStateWriter(ch <-chan *Enriched, store StateStore, log *zap.Logger) *StateWriter {
	return &StateWriter{ch: ch, store: store, log: log}
}

func (w *StateWriter) Run(ctx context.Context) {
	batch := make([]*Enriched, 0, 100)
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case e, ok := <-w.ch:
			if !ok {
				w.flush(ctx, batch)
				return
			}
			batch = append(batch, e)
			if len(batch) >= 100 {
				w.flush(ctx, batch)
				batch = batch[:0]
			}

		case <-ticker.C:
			if len(batch) > 0 {
				w.flush(ctx, batch)
				batch = batch[:0]
			}

		case <-ctx.Done():
			w.flush(context.Background(), batch)
			return
		}
	}
}

func (w *StateWriter) flush(ctx context.Context, batch []*Enriched) {
	if w.store == nil {
		return
	}
	for _, e := range batch {
		if err := w.store.UpdateDeviceState(ctx, &e.Reading, e.Result, e.Event.Ts); err != nil {
			w.log.Warn("device state update failed",
				zap.String("device_id", e.Reading.DeviceID),
				zap.Error(err))
		}
	}
}
