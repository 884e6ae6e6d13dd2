package ensemble

import (
	"cmp"
	"log/slog"
	"math"
	"slices"
	"strings"

	"github.com/nao1215/humanizer/internal/model"
)

// DefaultThreshold is the AI probability at or above which text is labelled
// AI generated.
const DefaultThreshold = 0.7

// RankSource provides performance ranks. *registry.Registry implements it.
type RankSource interface {
	PerformanceRank(id string) (int, bool)
}

// Aggregator combines verdicts. It holds no per-request state and is safe
// for concurrent use.
type Aggregator struct {
	ranks   RankSource
	weights map[string]float64
	logger  *slog.Logger
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithWeights sets explicit per-model weights. They take precedence over
// rank derived weights. Non-positive weights are ignored.
func WithWeights(weights map[string]float64) Option {
	return func(a *Aggregator) {
		for id, w := range weights {
			if w > 0 && !math.IsInf(w, 0) {
				a.weights[id] = w
			}
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Aggregator) {
		a.logger = logger
	}
}

// New creates an Aggregator. ranks may be nil, in which case only explicit
// weights are used.
func New(ranks RankSource, opts ...Option) *Aggregator {
	a := &Aggregator{
		ranks:   ranks,
		weights: make(map[string]float64),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = slog.Default()
	}
	return a
}

// ValidateThreshold checks that threshold is a probability.
func ValidateThreshold(threshold float64) error {
	if math.IsNaN(threshold) || threshold < 0 || threshold > 1 {
		return model.InvalidInput("threshold must be within [0,1], got %v", threshold)
	}
	return nil
}

// Aggregate combines verdicts under threshold.
func (a *Aggregator) Aggregate(verdicts []model.DetectionVerdict, threshold float64) (model.EnsembleResult, error) {
	if err := ValidateThreshold(threshold); err != nil {
		return model.EnsembleResult{}, err
	}
	if len(verdicts) == 0 {
		return model.EnsembleResult{}, &model.Error{Kind: model.ErrEmptyEnsemble}
	}

	sorted := slices.Clone(verdicts)
	slices.SortFunc(sorted, func(x, y model.DetectionVerdict) int {
		if c := strings.Compare(x.ModelID, y.ModelID); c != 0 {
			return c
		}
		return cmp.Compare(x.AIProbability, y.AIProbability)
	})

	var p float64
	if weights, ok := a.weightsFor(sorted); ok {
		p = weightedMean(sorted, weights)
	} else {
		p = mean(sorted)
	}
	p = model.Clamp01(p)

	result := model.EnsembleResult{
		AIProbability:    p,
		HumanProbability: 1 - p,
		IsAIGenerated:    p >= threshold,
		Confidence:       math.Max(p, 1-p),
		Prediction:       model.PredictionHuman,
		Threshold:        threshold,
		Contributing:     sorted,
	}
	if result.IsAIGenerated {
		result.Prediction = model.PredictionAI
	}

	a.logger.Debug("ensemble aggregated",
		"models", len(sorted),
		"ai_probability", p,
		"prediction", result.Prediction,
	)

	return result, nil
}

// weightsFor returns one weight per verdict. ok is false when some model has
// no weight or all weights are equal, meaning the plain mean applies.
func (a *Aggregator) weightsFor(verdicts []model.DetectionVerdict) ([]float64, bool) {
	weights := make([]float64, len(verdicts))
	allEqual := true
	for i, v := range verdicts {
		w, ok := a.weight(v.ModelID)
		if !ok {
			return nil, false
		}
		weights[i] = w
		if w != weights[0] {
			allEqual = false
		}
	}
	if allEqual {
		return nil, false
	}
	return weights, true
}

// weight returns the weight of id.
func (a *Aggregator) weight(id string) (float64, bool) {
	if w, ok := a.weights[id]; ok {
		return w, true
	}
	if a.ranks == nil {
		return 0, false
	}
	rank, ok := a.ranks.PerformanceRank(id)
	if !ok || rank < 1 {
		return 0, false
	}
	return 1 / float64(rank), true
}

func mean(verdicts []model.DetectionVerdict) float64 {
	var sum float64
	for _, v := range verdicts {
		sum += model.Clamp01(v.AIProbability)
	}
	return sum / float64(len(verdicts))
}

func weightedMean(verdicts []model.DetectionVerdict, weights []float64) float64 {
	var sum, total float64
	for i, v := range verdicts {
		sum += weights[i] * model.Clamp01(v.AIProbability)
		total += weights[i]
	}
	return sum / total
}
