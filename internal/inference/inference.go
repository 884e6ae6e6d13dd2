package inference

import (
	"context"

	"github.com/nao1215/humanizer/internal/model"
)

// Scorer returns the probability in [0,1] that text is AI generated.
type Scorer interface {
	Score(ctx context.Context, text string) (float64, error)
}

// Generator produces a paraphrase or rewrite of text.
type Generator interface {
	Generate(ctx context.Context, text string, opts model.GenerationOptions) (string, error)
}

// Loader makes a model resident so that it can serve inference.
type Loader interface {
	Load(ctx context.Context, modelID string) error
}

// Provider resolves model ids to implementations.
type Provider interface {
	// Scorer returns the detector for id.
	Scorer(id string) (Scorer, error)

	// Generator returns the generator for id.
	Generator(id string) (Generator, error)

	// Loader returns the loader used for resident models.
	Loader() Loader
}

// ScorerFunc adapts a function to Scorer.
type ScorerFunc func(ctx context.Context, text string) (float64, error)

// Score implements Scorer.
func (f ScorerFunc) Score(ctx context.Context, text string) (float64, error) {
	return f(ctx, text)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, text string, opts model.GenerationOptions) (string, error)

// Generate implements Generator.
func (f GeneratorFunc) Generate(ctx context.Context, text string, opts model.GenerationOptions) (string, error) {
	return f(ctx, text, opts)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context, modelID string) error

// Load implements Loader.
func (f LoaderFunc) Load(ctx context.Context, modelID string) error {
	return f(ctx, modelID)
}

// NopLoader accepts every load.
var NopLoader Loader = LoaderFunc(func(context.Context, string) error { return nil })
