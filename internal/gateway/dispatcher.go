package gateway

import (
	"github.com/faizdevx/CrashNet/internal/domain"
	"github.com/faizdevx/CrashNet/internal/metrics"
)

// Enriched pairs a validated reading with its verdict and the
// broadcast event built from both.
type Enriched struct {
	Reading domain.TelemetryReading
	Result  domain.Classification
	Event   domain.TelemetryEvent
}

// Dispatcher decouples the device-facing response from every side
// channel. Sends are non-blocking: when a consumer falls behind its
// channel drops the event and a counter records the loss. Nothing
// here can delay or fail the caller.
type Dispatcher struct {
	HubTelemetryChan chan domain.TelemetryEvent
	HubAlertChan     chan domain.AlertEvent
	StateChan        chan *Enriched
	RecordChan       chan *Enriched
}

func NewDispatcher(dispatchSize, stateSize, alertSize int) *Dispatcher {
	return &Dispatcher{
		HubTelemetryChan: make(chan domain.TelemetryEvent, dispatchSize),
		HubAlertChan:     make(chan domain.AlertEvent, dispatchSize),
		StateChan:        make(chan *Enriched, stateSize),
		RecordChan:       make(chan *Enriched, alertSize),
	}
}

// Dispatch schedules the telemetry-event broadcast for every reading,
// and independently the alert-event broadcast plus the archive write
// when the verdict is positive.
func (d *Dispatcher) Dispatch(e *Enriched) {
	select {
	case d.HubTelemetryChan <- e.Event:
	default:
		metrics.DispatchDrops.Add(1)
	}

	select {
	case d.StateChan <- e:
	default:
		metrics.StateChannelDrops.Add(1)
	}

	if !e.Result.Accident {
		return
	}

	select {
	case d.HubAlertChan <- domain.NewAlertEvent(e.Reading.DeviceID, e.Result):
	default:
		metrics.DispatchDrops.Add(1)
	}

	select {
	case d.RecordChan <- e:
	default:
		metrics.AlertChannelDrops.Add(1)
	}
}
