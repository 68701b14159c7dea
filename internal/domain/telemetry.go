package domain

import (
	"math"
	"time"
)

// FeatureCount is the width of the model's feature vector:
// speed, accel, gyro, distance, in that order.
const FeatureCount = 4

type FeatureVector [FeatureCount]float64

// TelemetryReading is one sensor sample as posted by a device.
// Speed is a pointer to distinguish "absent" from a genuine zero:
// a reading without it is rejected, not classified as stationary.
// Lat, Lon, Distance and Ts are optional on the wire; absent values
// are resolved at ingest time (coords default to 0.0, Ts to now).
type TelemetryReading struct {
	DeviceID string   `json:"device_id"`
	Lat      *float64 `json:"lat,omitempty"`
	Lon      *float64 `json:"lon,omitempty"`
	SpeedKmh *float64 `json:"speed"`
	Accel    float64  `json:"accel"`
	Gyro     float64  `json:"gyro"`
	Distance *float64 `json:"distance,omitempty"`
	Ts       float64  `json:"ts,omitempty"`
}

func (r *TelemetryReading) Validate() error {
	if r.DeviceID == "" {
		return &ValidationError{Field: "device_id", Reason: "required"}
	}
	if r.SpeedKmh == nil {
		return &ValidationError{Field: "speed", Reason: "required"}
	}
	for _, f := range []struct {
		name  string
		value float64
	}{
		{"speed", *r.SpeedKmh},
		{"accel", r.Accel},
		{"gyro", r.Gyro},
	} {
		if !isFinite(f.value) {
			return &ValidationError{Field: f.name, Reason: "must be finite"}
		}
	}
	if r.Distance != nil && !isFinite(*r.Distance) {
		return &ValidationError{Field: "distance", Reason: "must be finite"}
	}
	return nil
}

// Features builds the model input vector, with optional fields
// defaulted to zero.
func (r *TelemetryReading) Features() FeatureVector {
	var speed, distance float64
	if r.SpeedKmh != nil {
		speed = *r.SpeedKmh
	}
	if r.Distance != nil {
		distance = *r.Distance
	}
	return FeatureVector{speed, r.Accel, r.Gyro, distance}
}

// Classification is the verdict for one reading. Score is the raw
// decision-function value; its sign carries the verdict and its
// magnitude is model-dependent, not bounded to [0,1].
type Classification struct {
	Accident bool    `json:"accident"`
	Score    float64 `json:"score"`
}

// TrainingExample is one labelled feature vector for an incremental
// model update. Label must be 0 (normal) or 1 (accident).
type TrainingExample struct {
	SpeedKmh float64 `json:"speed"`
	Accel    float64 `json:"accel"`
	Gyro     float64 `json:"gyro"`
	Distance float64 `json:"distance"`
	Label    int     `json:"label"`
}

func (e *TrainingExample) Validate() error {
	if e.Label != 0 && e.Label != 1 {
		return ErrInvalidExample
	}
	for _, v := range e.Features() {
		if !isFinite(v) {
			return ErrInvalidExample
		}
	}
	return nil
}

func (e *TrainingExample) Features() FeatureVector {
	return FeatureVector{e.SpeedKmh, e.Accel, e.Gyro, e.Distance}
}

// TelemetryEvent is the live-map payload broadcast for every reading.
type TelemetryEvent struct {
	ID       string     `json:"id"`
	Coords   [2]float64 `json:"coords"`
	Accident bool       `json:"accident"`
	Score    float64    `json:"score"`
	Ts       float64    `json:"ts"`
}

const EventTypeAccident = "accident"

// AlertEvent is broadcast in addition to the TelemetryEvent when a
// reading is classified as an accident.
type AlertEvent struct {
	DeviceID string         `json:"device_id"`
	Type     string         `json:"type"`
	Details  Classification `json:"details"`
}

// NewTelemetryEvent enriches a reading with its verdict, resolving
// the optional fields.
func NewTelemetryEvent(r *TelemetryReading, c Classification, now time.Time) TelemetryEvent {
	ev := TelemetryEvent{
		ID:       r.DeviceID,
		Accident: c.Accident,
		Score:    c.Score,
		Ts:       r.Ts,
	}
	if r.Lat != nil {
		ev.Coords[0] = *r.Lat
	}
	if r.Lon != nil {
		ev.Coords[1] = *r.Lon
	}
	if ev.Ts == 0 {
		ev.Ts = float64(now.UnixNano()) / float64(time.Second)
	}
	return ev
}

func NewAlertEvent(deviceID string, c Classification) AlertEvent {
	return AlertEvent{DeviceID: deviceID, Type: EventTypeAccident, Details: c}
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
