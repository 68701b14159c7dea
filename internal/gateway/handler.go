// Package gateway implements the device-facing ingestion endpoint.
// A reading is validated, classified synchronously (the device needs
// the verdict), and only then handed to the dispatcher; everything
// downstream of the verdict is best-effort and off the response path.
package gateway

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/faizdevx/CrashNet/internal/domain"
	"github.com/faizdevx/CrashNet/internal/metrics"
)

type InferenceClient interface {
	Infer(ctx context.Context, reading *domain.TelemetryReading) (domain.Classification, error)
	Healthy(ctx context.Context) bool
}

type Handler struct {
	ml           InferenceClient
	dispatcher   *Dispatcher
	inferTimeout time.Duration
	log          *zap.Logger

	// now is swappable for tests.
	now func() time.Time
}

func NewHandler(ml InferenceClient, d *Dispatcher, inferTimeout time.Duration, log *zap.Logger) *Handler {
	return &Handler{
		ml:           ml,
		dispatcher:   d,
		inferTimeout: inferTimeout,
		log:          log,
		now:          time.Now,
	}
}

func (h *Handler) Register(r *gin.Engine) {
	r.POST("/telemetry", h.HandleTelemetry)
	r.GET("/health", h.Health)
	r.GET("/metrics", gin.WrapF(metrics.HandleMetrics))
}

func (h *Handler) HandleTelemetry(c *gin.Context) {
	metrics.ReadingsReceived.Add(1)

	var reading domain.TelemetryReading
	if err := c.ShouldBindJSON(&reading); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := reading.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.inferTimeout)
	defer cancel()

	result, err := h.ml.Infer(ctx, &reading)
	if err != nil {
		metrics.InferenceFailures.Add(1)
		h.log.Warn("inference call failed",
			zap.String("device_id", reading.DeviceID),
			zap.Error(err))
		if errors.Is(err, domain.ErrUpstreamUnavailable) {
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		} else {
			c.JSON(http.StatusBadGateway, gin.H{"error": domain.ErrUpstreamUnavailable.Error()})
		}
		return
	}

	h.dispatcher.Dispatch(&Enriched{
		Reading: reading,
		Result:  result,
		Event:   domain.NewTelemetryEvent(&reading, result, h.now()),
	})

	c.JSON(http.StatusOK, gin.H{"status": "ok", "ml": result})
}

func (h *Handler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	c.JSON(http.StatusOK, gin.H{
		"status":              "ok",
		"inference_reachable": h.ml.Healthy(ctx),
	})
}
