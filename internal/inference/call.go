package inference

import (
	"context"
	"errors"
	"time"

	"github.com/nao1215/humanizer/internal/model"
)

// ErrTimeout is the cause recorded when a model call exceeds its deadline.
var ErrTimeout = errors.New("model call timed out")

// Call runs fn for modelID with a per-call timeout. A timeout <= 0 means no
// deadline beyond the one already on ctx.
//
// fn receives a context that is cancelled when the deadline passes, but Call
// does not wait for fn to notice: the overrun is reported right away as an
// ErrInference error whose cause is ErrTimeout. Any other failure of fn is
// wrapped the same way.
func Call[T any](ctx context.Context, modelID string, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	v, _, err := Start(ctx, modelID, timeout, fn)
	return v, err
}

// Start is Call that also returns a channel closed once fn has returned.
// After a timeout the channel stays open while the abandoned fn keeps
// running, so a caller that owns the model can hold it until then.
func Start[T any](ctx context.Context, modelID string, timeout time.Duration, fn func(context.Context) (T, error)) (T, <-chan struct{}, error) {
	var zero T

	cancel := context.CancelFunc(func() {})
	if timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, timeout)
	}

	type result struct {
		value T
		err   error
	}
	done := make(chan result, 1)
	idle := make(chan struct{})
	go func() {
		defer close(idle)
		defer cancel()
		v, err := fn(ctx)
		done <- result{value: v, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			if errors.Is(r.err, context.DeadlineExceeded) {
				return zero, idle, timeoutError(modelID)
			}
			return zero, idle, &model.Error{Kind: model.ErrInference, ModelID: modelID, Err: r.err}
		}
		return r.value, idle, nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return zero, idle, timeoutError(modelID)
		}
		return zero, idle, &model.Error{Kind: model.ErrInference, ModelID: modelID, Err: ctx.Err()}
	}
}

func timeoutError(modelID string) error {
	return &model.Error{Kind: model.ErrInference, ModelID: modelID, Err: ErrTimeout}
}

// IsTimeout reports whether err came from a call that exceeded its deadline.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

// Failure converts a call error into the record kept by ensembles and
// pipelines.
func Failure(modelID string, err error) model.ModelFailure {
	return model.ModelFailure{
		ModelID:  modelID,
		Error:    err.Error(),
		TimedOut: IsTimeout(err),
	}
}
