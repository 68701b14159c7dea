package domain

import (
	"errors"
	"fmt"
)

// Failure kinds surfaced on the device-facing path. Side-channel
// failures (broadcast delivery, snapshot persistence) are absorbed
// where they occur and never reach these.
var (
	// ErrValidation marks a malformed reading, rejected before any
	// downstream call.
	ErrValidation = errors.New("validation failed")

	// ErrUpstreamUnavailable marks a failed or timed-out inference
	// call. The verdict is required, so this is a hard failure.
	ErrUpstreamUnavailable = errors.New("upstream inference unavailable")

	// ErrInvalidExample marks a training example with a label outside
	// {0,1} or a non-finite feature. The model is left untouched.
	ErrInvalidExample = errors.New("invalid training example")
)

type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid field %q: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }
