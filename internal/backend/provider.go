package backend

import (
	"context"
	"errors"
	"fmt"

	"github.com/nao1215/humanizer/internal/inference"
	"github.com/nao1215/humanizer/internal/model"
	"github.com/nao1215/humanizer/internal/registry"
	"github.com/nao1215/humanizer/internal/rewrite"
)

// Catalog looks up model descriptors. *registry.Registry implements it.
type Catalog interface {
	Get(id string) (model.ModelDescriptor, error)
}

// Provider implements inference.Provider. Built-in models run in process;
// all other models are served by the Client, which may be nil when no
// server is configured.
type Provider struct {
	catalog     Catalog
	client      *Client
	stylometric *rewrite.StylometricScorer
	rewriter    *rewrite.Rewriter
	enhanced    *rewrite.Rewriter
}

// NewProvider creates a Provider.
func NewProvider(catalog Catalog, client *Client) *Provider {
	return &Provider{
		catalog:     catalog,
		client:      client,
		stylometric: rewrite.NewStylometricScorer(),
		rewriter:    rewrite.New(false),
		enhanced:    rewrite.New(true),
	}
}

// Client returns the remote client, or nil.
func (p *Provider) Client() *Client {
	return p.client
}

// Scorer implements inference.Provider.
func (p *Provider) Scorer(id string) (inference.Scorer, error) {
	desc, err := p.lookup(id, model.RoleDetector)
	if err != nil {
		return nil, err
	}
	if desc.Local {
		if id == registry.LocalStylometricID {
			return p.stylometric, nil
		}
		return nil, unknownLocal(id)
	}
	if p.client == nil {
		return nil, &model.Error{Kind: model.ErrInference, ModelID: id, Err: ErrNoBackend}
	}
	return inference.ScorerFunc(func(ctx context.Context, text string) (float64, error) {
		return p.client.Score(ctx, id, text)
	}), nil
}

// Generator implements inference.Provider.
func (p *Provider) Generator(id string) (inference.Generator, error) {
	desc, err := p.lookup(id, model.RoleGenerator)
	if err != nil {
		return nil, err
	}
	if desc.Local {
		switch id {
		case registry.LocalRewriterID:
			return p.rewriter, nil
		case registry.LocalRewriterEnhancedID:
			return p.enhanced, nil
		default:
			return nil, unknownLocal(id)
		}
	}
	if p.client == nil {
		return nil, &model.Error{Kind: model.ErrInference, ModelID: id, Err: ErrNoBackend}
	}
	return inference.GeneratorFunc(func(ctx context.Context, text string, opts model.GenerationOptions) (string, error) {
		return p.client.Generate(ctx, id, text, opts)
	}), nil
}

// Loader implements inference.Provider. Built-in models need no load.
func (p *Provider) Loader() inference.Loader {
	return inference.LoaderFunc(func(ctx context.Context, id string) error {
		desc, err := p.catalog.Get(id)
		if err != nil {
			return err
		}
		if desc.Local {
			return nil
		}
		if p.client == nil {
			return ErrNoBackend
		}
		return p.client.Load(ctx, id)
	})
}

func (p *Provider) lookup(id string, role model.Role) (model.ModelDescriptor, error) {
	desc, err := p.catalog.Get(id)
	if err != nil {
		return model.ModelDescriptor{}, err
	}
	if desc.Role != role {
		return model.ModelDescriptor{}, &model.Error{
			Kind:    model.ErrInvalidInput,
			ModelID: id,
			Err:     fmt.Errorf("model is a %s, not a %s", desc.Role, role),
		}
	}
	return desc, nil
}

func unknownLocal(id string) error {
	return &model.Error{
		Kind:    model.ErrModelNotFound,
		ModelID: id,
		Err:     errors.New("no built-in implementation"),
	}
}
