// Package mlclient is the gateway-side HTTP client for the inference
// service. Its calls sit on the device-facing critical path, so every
// failure maps to domain.ErrUpstreamUnavailable for the caller to
// surface.
package mlclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/faizdevx/CrashNet/internal/domain"
)

type Client struct {
	baseURL string
	client  *http.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// Infer obtains a verdict for one reading. The context bounds the
// call; a timeout or transport failure is reported as
// ErrUpstreamUnavailable, never retried here.
func (c *Client) Infer(ctx context.Context, reading *domain.TelemetryReading) (domain.Classification, error) {
	x := reading.Features()
	body, err := json.Marshal(map[string]interface{}{
		"device_id": reading.DeviceID,
		"speed":     x[0],
		"accel":     x[1],
		"gyro":      x[2],
		"distance":  x[3],
	})
	if err != nil {
		return domain.Classification{}, fmt.Errorf("failed to marshal infer request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/infer", bytes.NewBuffer(body))
	if err != nil {
		return domain.Classification{}, fmt.Errorf("failed to create infer request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return domain.Classification{}, fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.Classification{}, fmt.Errorf("%w: inference returned status %d", domain.ErrUpstreamUnavailable, resp.StatusCode)
	}

	var result domain.Classification
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return domain.Classification{}, fmt.Errorf("%w: bad inference response: %v", domain.ErrUpstreamUnavailable, err)
	}
	return result, nil
}

// Healthy reports whether the inference service answers its health
// endpoint.
func (c *Client) Healthy(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
