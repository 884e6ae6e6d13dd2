package config

import (
	"errors"
	"fmt"
)

// Configuration validation errors returned by Config.Validate.
var (
	// ErrInvalidThreshold is returned when the threshold is outside [0,1].
	ErrInvalidThreshold = errors.New("invalid threshold: must be between 0 and 1")

	// ErrNoDetectors is returned when no default detector is configured.
	ErrNoDetectors = errors.New("no detectors configured")

	// ErrInvalidGranularity is returned for a granularity other than
	// sentence, line or chunk.
	ErrInvalidGranularity = errors.New("invalid granularity: must be sentence, line or chunk")

	// ErrInvalidSegmentation is returned for a negative minimum segment
	// length or a chunk size below 1.
	ErrInvalidSegmentation = errors.New("invalid segmentation: min length must be non-negative and chunk size positive")

	// ErrInvalidTimeout is returned when a model timeout is not positive or
	// another timeout is negative.
	ErrInvalidTimeout = errors.New("invalid timeout: model timeouts must be positive")

	// ErrInvalidLengthLimits is returned when a minimum input length is
	// below 1 or above its maximum.
	ErrInvalidLengthLimits = errors.New("invalid input length limits")

	// ErrInvalidLogFormat is returned for a log format other than text or
	// json.
	ErrInvalidLogFormat = errors.New("invalid log format: must be text or json")

	// ErrConflictingReportFormats is returned when both --json and --markdown
	// are specified.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")

	// ErrInvalidWeight is matched by WeightError.
	ErrInvalidWeight = errors.New("invalid ensemble weight: must be positive")
)

// WeightError names the detector with an invalid weight.
type WeightError struct {
	ModelID string
	Weight  float64
}

func (e *WeightError) Error() string {
	return fmt.Sprintf("%v: %s has weight %v", ErrInvalidWeight, e.ModelID, e.Weight)
}

// Unwrap returns ErrInvalidWeight.
func (e *WeightError) Unwrap() error {
	return ErrInvalidWeight
}
