package pipeline

import (
	"errors"

	"github.com/nao1215/humanizer/internal/model"
)

// errEmptyOutput is recorded when a generator returns only whitespace.
var errEmptyOutput = errors.New("generator returned empty output")

func isLoadError(err error) bool {
	return errors.Is(err, model.ErrLoad)
}

// withStep returns a copy of a *model.Error annotated with the step index.
func withStep(err error, step int) error {
	var merr *model.Error
	if !errors.As(err, &merr) || merr.Step != 0 {
		return err
	}
	annotated := *merr
	annotated.Step = step
	return &annotated
}
