package model

import (
	"errors"
	"fmt"
	"strings"
)

// Failure kinds. Every error produced by the orchestration layer matches
// exactly one of these with errors.Is.
var (
	// ErrInvalidInput is a caller-fixable problem detected before any model
	// is invoked (empty text, bad threshold, unknown granularity...).
	ErrInvalidInput = errors.New("invalid input")

	// ErrModelNotFound is returned when a model id is not in the registry.
	ErrModelNotFound = errors.New("model not found")

	// ErrLoad is returned when swapping the resident generator fails.
	// It is fatal to the current request and never retried.
	ErrLoad = errors.New("model load failed")

	// ErrInference marks a single failed or timed out model call.
	// Ensembles and pipelines record it and continue.
	ErrInference = errors.New("inference failed")

	// ErrEmptyEnsemble is returned when no verdict is available to aggregate,
	// either because none was supplied or because every model failed.
	ErrEmptyEnsemble = errors.New("empty ensemble")
)

// Error carries enough context to retry a request narrowly: which model and,
// for pipelines, which step failed.
type Error struct {
	// Kind is one of the sentinel errors above.
	Kind error

	// ModelID is the model involved, if any.
	ModelID string

	// Step is the 1-based pipeline step, or 0 when not step specific.
	Step int

	// Err is the underlying cause. May be nil.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.Error())
	if e.Step > 0 {
		fmt.Fprintf(&b, " at step %d", e.Step)
	}
	if e.ModelID != "" {
		fmt.Fprintf(&b, " (model %s)", e.ModelID)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// KindName returns the snake_case name used on the wire for the kind.
func (e *Error) KindName() string {
	return KindName(e.Kind)
}

// KindName maps an error to the wire name of its kind.
// Errors outside the taxonomy map to "internal".
func KindName(err error) string {
	switch {
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrModelNotFound):
		return "model_not_found"
	case errors.Is(err, ErrLoad):
		return "load_error"
	case errors.Is(err, ErrEmptyEnsemble):
		return "empty_ensemble"
	case errors.Is(err, ErrInference):
		return "inference_error"
	default:
		return "internal"
	}
}

// InvalidInput builds an ErrInvalidInput error with a formatted message.
func InvalidInput(format string, args ...any) error {
	return &Error{Kind: ErrInvalidInput, Err: fmt.Errorf(format, args...)}
}

// NotFound builds an ErrModelNotFound error for id.
func NotFound(id string) error {
	return &Error{Kind: ErrModelNotFound, ModelID: id}
}
