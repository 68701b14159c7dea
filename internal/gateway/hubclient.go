package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/faizdevx/CrashNet/internal/domain"
)

// EventSink receives broadcast events bound for the hub.
type EventSink interface {
	PostTelemetry(ctx context.Context, ev domain.TelemetryEvent) error
	PostAlert(ctx context.Context, ev domain.AlertEvent) error
}

// HubClient posts events to the broadcast hub's ingress endpoints.
// The timeout is deliberately much shorter than the inference
// timeout: these calls are off the critical path and a slow hub must
// not back up the forwarder.
type HubClient struct {
	baseURL string
	client  *http.Client
}

func NewHubClient(baseURL string, timeout time.Duration) *HubClient {
	return &HubClient{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *HubClient) PostTelemetry(ctx context.Context, ev domain.TelemetryEvent) error {
	return c.post(ctx, "/telemetry", ev)
}

func (c *HubClient) PostAlert(ctx context.Context, ev domain.AlertEvent) error {
	return c.post(ctx, "/alert", ev)
}

func (c *HubClient) post(ctx context.Context, path string, ev interface{}) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("failed to create hub request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("hub post %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("hub post %s returned status %d", path, resp.StatusCode)
	}
	return nil
}
