package rewrite

import (
	"context"
	"math"
	"regexp"
	"strings"

	"github.com/nao1215/humanizer/internal/model"
	"github.com/nao1215/humanizer/internal/segment"
	"github.com/nao1215/humanizer/internal/stats"
)

var (
	wordPattern        = regexp.MustCompile(`[\p{L}\p{N}'’]+`)
	contractionPattern = regexp.MustCompile(`(?i)\b\p{L}+['’](t|s|re|ve|ll|d|m)\b`)
)

// Feature weights of the stylometric score. They sum to 1.
const (
	uniformityWeight  = 0.4
	formalityWeight   = 0.3
	contractionWeight = 0.3
)

// StylometricScorer estimates how machine-like a text reads from surface
// features: how uniform its sentence lengths are, how often it uses formal
// connectives, and how rarely it uses contractions. It needs no model and
// serves as a cheap fallback detector.
type StylometricScorer struct{}

// NewStylometricScorer returns the scorer.
func NewStylometricScorer() *StylometricScorer {
	return &StylometricScorer{}
}

// Score implements inference.Scorer.
func (s *StylometricScorer) Score(ctx context.Context, text string) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if strings.TrimSpace(text) == "" {
		return 0, ErrEmptyText
	}
	f := Features(text)
	p := uniformityWeight*f.Uniformity +
		formalityWeight*f.Formality +
		contractionWeight*(1-f.Informality)
	return model.Clamp01(p), nil
}

// StyleFeatures are the normalized inputs of the stylometric score. Each is
// in [0,1].
type StyleFeatures struct {
	// Uniformity is high when sentences have similar lengths.
	Uniformity float64
	// Formality is high when formal connectives are frequent.
	Formality float64
	// Informality is high when contractions are frequent.
	Informality float64
}

// Features extracts StyleFeatures from text.
func Features(text string) StyleFeatures {
	segs, _ := segment.Split(text, segment.Options{Granularity: model.GranularitySentence}) //nolint:errcheck // options are constant
	lengths := make([]float64, 0, len(segs))
	for _, seg := range segs {
		lengths = append(lengths, float64(len(wordPattern.FindAllString(seg.Text, -1))))
	}

	var f StyleFeatures

	// Coefficient of variation of sentence length; 0.6 and above reads as
	// human burstiness.
	if len(lengths) < 2 {
		f.Uniformity = 0.5
	} else if m := stats.Mean(lengths); m > 0 {
		cv := stats.StdDev(lengths) / m
		f.Uniformity = 1 - math.Min(cv/0.6, 1)
	}

	words := wordPattern.FindAllString(text, -1)
	if len(words) == 0 {
		return f
	}

	formal := 0
	for _, w := range words {
		if _, ok := formalMarkers[strings.ToLower(w)]; ok {
			formal++
		}
	}
	sentences := math.Max(float64(len(lengths)), 1)
	f.Formality = math.Min(float64(formal)/sentences/0.5, 1)

	perHundred := float64(len(contractionPattern.FindAllString(text, -1))) / float64(len(words)) * 100
	f.Informality = math.Min(perHundred/2, 1)

	return f
}
