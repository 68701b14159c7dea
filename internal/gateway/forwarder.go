package gateway

import (
	"context"

	"go.uber.org/zap"

	"github.com/faizdevx/CrashNet/internal/domain"
)

// HubForwarder drains the hub-bound channels and posts each event
// once. Delivery is best-effort: a failed post is logged and
// dropped, never retried, and never surfaced to the device path.
type HubForwarder struct {
	telemetryCh <-chan domain.TelemetryEvent
	alertCh     <-chan domain.AlertEvent
	sink        EventSink
	log         *zap.Logger
}

func NewHubForwarder(
	telemetryCh <-chan domain.TelemetryEvent,
	alertCh <-chan domain.AlertEvent,
	sink EventSink,
	log *zap.Logger,
) *HubForwarder {
	return &HubForwarder{
		telemetryCh: telemetryCh,
		alertCh:     alertCh,
		sink:        sink,
		log:         log,
	}
}

func (f *HubForwarder) Run(ctx context.Context) {
	for {
		select {
		case ev, ok := <-f.telemetryCh:
			if !ok {
				return
			}
			if err := f.sink.PostTelemetry(ctx, ev); err != nil {
				f.log.Warn("telemetry broadcast dropped",
					zap.String("device_id", ev.ID),
					zap.Error(err))
			}

		case ev, ok := <-f.alertCh:
			if !ok {
				return
			}
			if err := f.sink.PostAlert(ctx, ev); err != nil {
				f.log.Warn("alert broadcast dropped",
					zap.String("device_id", ev.DeviceID),
					zap.Error(err))
			}

		case <-ctx.Done():
			return
		}
	}
}
