package service

import (
	"errors"

	"github.com/nao1215/humanizer/internal/model"
)

// ErrHistoryDisabled is returned by history queries when no store is
// attached.
var ErrHistoryDisabled = errors.New("history is disabled: configure a history directory")

func errNotLoadable(desc model.ModelDescriptor) error {
	if desc.IsDetector() {
		return errors.New("detectors are loaded on first use")
	}
	return errors.New("built-in generators need no load")
}
