package service

import (
	"strings"

	"github.com/nao1215/humanizer/internal/model"
	"github.com/nao1215/humanizer/internal/stats"
)

// Limits bounds input lengths in runes.
type Limits struct {
	MinDetect   int
	MaxDetect   int
	MinHumanize int
	MaxHumanize int
}

// DefaultLimits returns the default length limits.
func DefaultLimits() Limits {
	return Limits{
		MinDetect:   50,
		MaxDetect:   10000,
		MinHumanize: 10,
		MaxHumanize: 5000,
	}
}

func (l Limits) checkDetect(text string) error {
	return checkLength(text, l.MinDetect, l.MaxDetect)
}

func (l Limits) checkHumanize(text string) error {
	return checkLength(text, l.MinHumanize, l.MaxHumanize)
}

func checkLength(text string, minLen, maxLen int) error {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return model.InvalidInput("text is empty")
	}
	n := stats.CharCount(trimmed)
	if n < minLen {
		return model.InvalidInput("text must be at least %d characters long, got %d", minLen, n)
	}
	if maxLen > 0 && n > maxLen {
		return model.InvalidInput("text must be at most %d characters long, got %d", maxLen, n)
	}
	return nil
}
