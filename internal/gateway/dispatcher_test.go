package gateway

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/faizdevx/CrashNet/internal/domain"
	"github.com/faizdevx/CrashNet/internal/metrics"
)

func f64(v float64) *float64 { return &v }

func enrichedAccident(deviceID string) *Enriched {
	reading := domain.TelemetryReading{DeviceID: deviceID, SpeedKmh: f64(40), Accel: -6.5, Gyro: 0.1}
	result := domain.Classification{Accident: true, Score: 2.0}
	return &Enriched{
		Reading: reading,
		Result:  result,
		Event:   domain.NewTelemetryEvent(&reading, result, time.Now()),
	}
}

// TestDispatchNeverBlocksOnFullChannels fills every channel and
// dispatches again; the call must return and count the drops.
func TestDispatchNeverBlocksOnFullChannels(t *testing.T) {
	d := NewDispatcher(1, 1, 1)
	dropsBefore := metrics.DispatchDrops.Load()

	done := make(chan struct{})
	go func() {
		d.Dispatch(enrichedAccident("d1"))
		d.Dispatch(enrichedAccident("d1"))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Dispatch blocked on full channels")
	}

	// Second dispatch dropped on both hub channels.
	if got := metrics.DispatchDrops.Load() - dropsBefore; got != 2 {
		t.Errorf("dispatch drops = %d, want 2", got)
	}
	if len(d.HubTelemetryChan) != 1 || len(d.HubAlertChan) != 1 {
		t.Error("first dispatch should occupy each hub channel exactly once")
	}
}

type recordingSink struct {
	mu        sync.Mutex
	telemetry []domain.TelemetryEvent
	alerts    []domain.AlertEvent
}

func (s *recordingSink) PostTelemetry(ctx context.Context, ev domain.TelemetryEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.telemetry = append(s.telemetry, ev)
	return nil
}

func (s *recordingSink) PostAlert(ctx context.Context, ev domain.AlertEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alerts = append(s.alerts, ev)
	return nil
}

func (s *recordingSink) counts() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.telemetry), len(s.alerts)
}

// TestForwarderDeliversBothEventKinds drains the dispatcher channels
// through the forwarder into a recording sink.
func TestForwarderDeliversBothEventKinds(t *testing.T) {
	d := NewDispatcher(16, 16, 16)
	sink := &recordingSink{}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go NewHubForwarder(d.HubTelemetryChan, d.HubAlertChan, sink, zap.NewNop()).Run(ctx)

	d.Dispatch(enrichedAccident("d1"))

	deadline := time.Now().Add(2 * time.Second)
	for {
		tn, an := sink.counts()
		if tn == 1 && an == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("forwarder delivered telemetry=%d alerts=%d, want 1/1", tn, an)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

type fakeArchive struct {
	mu       sync.Mutex
	failures int
	inserted []string
}

func (a *fakeArchive) InsertAccident(ctx context.Context, deviceID string, result domain.Classification, ts float64) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.failures > 0 {
		a.failures--
		return context.DeadlineExceeded
	}
	a.inserted = append(a.inserted, deviceID)
	return nil
}

func (a *fakeArchive) insertedDevices() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.inserted...)
}

// TestAlertRecorderRetriesOnce verifies the single bounded retry on
// archive failures.
func TestAlertRecorderRetriesOnce(t *testing.T) {
	d := NewDispatcher(16, 16, 16)
	archive := &fakeArchive{failures: 1}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go NewAlertRecorder(d.RecordChan, archive, nil, zap.NewNop()).Run(ctx)

	d.Dispatch(enrichedAccident("d9"))

	deadline := time.Now().Add(3 * time.Second)
	for len(archive.insertedDevices()) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("archive write never succeeded despite retry")
		}
		time.Sleep(20 * time.Millisecond)
	}

	if got := archive.insertedDevices(); len(got) != 1 || got[0] != "d9" {
		t.Errorf("archived devices = %v, want [d9]", got)
	}
}

type fakePublisher struct {
	mu       sync.Mutex
	payloads map[string][]byte
}

func (p *fakePublisher) PublishAlert(ctx context.Context, deviceID string, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.payloads == nil {
		p.payloads = make(map[string][]byte)
	}
	p.payloads[deviceID] = append([]byte(nil), payload...)
	return nil
}

func (p *fakePublisher) get(deviceID string) ([]byte, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	b, ok := p.payloads[deviceID]
	return b, ok
}

// TestAlertRecorderPublishesAlert verifies the pub/sub mirror carries a
// well-formed payload alongside the archive write.
func TestAlertRecorderPublishesAlert(t *testing.T) {
	d := NewDispatcher(16, 16, 16)
	archive := &fakeArchive{}
	pub := &fakePublisher{}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go NewAlertRecorder(d.RecordChan, archive, pub, zap.NewNop()).Run(ctx)

	d.Dispatch(enrichedAccident("d7"))

	deadline := time.Now().Add(2 * time.Second)
	var payload []byte
	for {
		if b, ok := pub.get("d7"); ok {
			payload = b
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("publisher never saw the alert")
		}
		time.Sleep(10 * time.Millisecond)
	}

	var decoded struct {
		DeviceID    string  `json:"device_id"`
		Score       float64 `json:"score"`
		Ts          float64 `json:"ts"`
		TriggeredAt int64   `json:"triggered_at"`
	}
	if err := json.Unmarshal(payload, &decoded); err != nil {
		t.Fatalf("published payload is not valid JSON: %v", err)
	}
	if decoded.DeviceID != "d7" || decoded.Score != 2.0 {
		t.Errorf("payload = %+v, want device d7 with score 2", decoded)
	}
	if decoded.TriggeredAt == 0 {
		t.Error("payload missing triggered_at")
	}
}

type fakeStateStore struct {
	mu      sync.Mutex
	updates map[string]domain.Classification
}

func (s *fakeStateStore) UpdateDeviceState(ctx context.Context, reading *domain.TelemetryReading, result domain.Classification, ts float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.updates == nil {
		s.updates = make(map[string]domain.Classification)
	}
	s.updates[reading.DeviceID] = result
	return nil
}

func (s *fakeStateStore) get(deviceID string) (domain.Classification, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.updates[deviceID]
	return c, ok
}

// TestStateWriterFlushesLatestState verifies each reading reaches the
// state store with its verdict attached.
func TestStateWriterFlushesLatestState(t *testing.T) {
	d := NewDispatcher(16, 16, 16)
	state := &fakeStateStore{}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go NewStateWriter(d.StateChan, state, zap.NewNop()).Run(ctx)

	d.Dispatch(enrichedAccident("d3"))

	deadline := time.Now().Add(2 * time.Second)
	for {
		if c, ok := state.get("d3"); ok {
			if !c.Accident {
				t.Errorf("stored state lost the verdict: %+v", c)
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("state store never saw the reading")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
