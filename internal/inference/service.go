// Package inference exposes the model store over HTTP: a synchronous
// infer endpoint for the gateway, plus train/reset for the online
// trainer. The service itself is stateless; all state lives in the
// store.
package inference

import (
	"fmt"
	"math"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/faizdevx/CrashNet/internal/domain"
	"github.com/faizdevx/CrashNet/internal/metrics"
)

type ModelStore interface {
	Infer(x domain.FeatureVector) domain.Classification
	Train(e *domain.TrainingExample) error
	Reset()
	Loaded() bool
}

type Handler struct {
	store ModelStore
	log   *zap.Logger
}

func NewHandler(store ModelStore, log *zap.Logger) *Handler {
	return &Handler{store: store, log: log}
}

func (h *Handler) Register(r *gin.Engine) {
	r.POST("/infer", h.Infer)
	r.POST("/train", h.Train)
	r.POST("/reset", h.Reset)
	r.GET("/health", h.Health)
	r.GET("/metrics", gin.WrapF(metrics.HandleMetrics))
}

// All four features are required on the wire; pointers distinguish
// an absent field from a legitimate zero.
type inferRequest struct {
	DeviceID string   `json:"device_id,omitempty"`
	SpeedKmh *float64 `json:"speed"`
	Accel    *float64 `json:"accel"`
	Gyro     *float64 `json:"gyro"`
	Distance *float64 `json:"distance"`
}

func (req *inferRequest) features() (domain.FeatureVector, error) {
	fields := []struct {
		name  string
		value *float64
	}{
		{"speed", req.SpeedKmh},
		{"accel", req.Accel},
		{"gyro", req.Gyro},
		{"distance", req.Distance},
	}

	var x domain.FeatureVector
	for i, f := range fields {
		if f.value == nil {
			return x, fmt.Errorf("field %q is required", f.name)
		}
		if math.IsNaN(*f.value) || math.IsInf(*f.value, 0) {
			return x, fmt.Errorf("field %q must be finite", f.name)
		}
		x[i] = *f.value
	}
	return x, nil
}

func (h *Handler) Infer(c *gin.Context) {
	var req inferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	x, err := req.features()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, h.store.Infer(x))
}

func (h *Handler) Train(c *gin.Context) {
	var example domain.TrainingExample
	if err := c.ShouldBindJSON(&example); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.store.Train(&example); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "trained"})
}

func (h *Handler) Reset(c *gin.Context) {
	h.store.Reset()
	h.log.Info("model reset to seeded state")
	c.JSON(http.StatusOK, gin.H{"status": "reset"})
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":       "ok",
		"model_loaded": h.store.Loaded(),
	})
}
