package gateway

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/faizdevx/CrashNet/internal/domain"
)

// AlertArchive persists accident verdicts for later review.
type AlertArchive interface {
	InsertAccident(ctx context.Context, deviceID string, result domain.Classification, ts float64) error
}

// AlertPublisher mirrors accident alerts onto a pub/sub channel for
// consumers that are not websocket subscribers.
type AlertPublisher interface {
	PublishAlert(ctx context.Context, deviceID string, payload []byte) error
}

// AlertRecorder archives every accident verdict. The archive write
// gets one bounded retry; the pub/sub mirror is fire-and-forget.
// Either may be nil when the backing store is not configured.
type AlertRecorder struct {
	ch        <-chan *Enriched
	archive   AlertArchive
	publisher AlertPublisher
	log       *zap.Logger
}

func NewAlertRecorder(
	ch <-chan *Enriched,
	archive AlertArchive,
	publisher AlertPublisher,
	log *zap.Logger,
) *AlertRecorder {
	return &AlertRecorder{
		ch:        ch,
		archive:   archive,
		publisher: publisher,
		log:       log,
	}
}

func (r *AlertRecorder) Run(ctx context.Context) {
	for {
		select {
		case e, ok := <-r.ch:
			if !ok {
				return
			}
			r.record(ctx, e)

		case <-ctx.Done():
			return
		}
	}
}

func (r *AlertRecorder) record(ctx context.Context, e *Enriched) {
	if r.archive != nil {
		if err := r.archive.InsertAccident(ctx, e.Reading.DeviceID, e.Result, e.Event.Ts); err != nil {
			time.Sleep(500 * time.Millisecond)
			if err = r.archive.InsertAccident(ctx, e.Reading.DeviceID, e.Result, e.Event.Ts); err != nil {
				r.log.Error("accident archive write failed",
					zap.String("device_id", e.Reading.DeviceID),
					zap.Error(err))
			}
		}
	}

	if r.publisher != nil {
		payload, err := json.Marshal(map[string]interface{}{
			"device_id":    e.Reading.DeviceID,
			"score":        e.Result.Score,
			"ts":           e.Event.Ts,
			"triggered_at": time.Now().Unix(),
		})
		if err != nil {
			r.log.Warn("alert payload encode failed",
				zap.String("device_id", e.Reading.DeviceID),
				zap.Error(err))
			return
		}
		if err := r.publisher.PublishAlert(ctx, e.Reading.DeviceID, payload); err != nil {
			r.log.Warn("alert publish failed",
				zap.String("device_id", e.Reading.DeviceID),
				zap.Error(err))
		}
	}
}
