package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/nao1215/humanizer/internal/detect"
	"github.com/nao1215/humanizer/internal/ensemble"
	"github.com/nao1215/humanizer/internal/inference"
	"github.com/nao1215/humanizer/internal/model"
	"github.com/nao1215/humanizer/internal/pipeline"
	"github.com/nao1215/humanizer/internal/registry"
	"github.com/nao1215/humanizer/internal/resident"
	"github.com/nao1215/humanizer/internal/segment"
)

// DefaultThreshold is used when neither the request nor the options set one.
const DefaultThreshold = 0.7

// Pinger checks that the inference backend is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Service runs the humanizer operations. It is safe for concurrent use.
type Service struct {
	registry     *registry.Registry
	provider     inference.Provider
	state        *resident.State
	session      *detect.Session
	orchestrator *pipeline.Orchestrator

	limits          Limits
	threshold       float64
	detectors       []string
	segmentOpts     segment.Options
	weights         map[string]float64
	detectTimeout   time.Duration
	generateTimeout time.Duration
	history         History
	pinger          Pinger
	logger          *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithLimits sets the input length limits.
func WithLimits(l Limits) Option {
	return func(s *Service) {
		s.limits = l
	}
}

// WithThreshold sets the default decision threshold.
func WithThreshold(t float64) Option {
	return func(s *Service) {
		s.threshold = t
	}
}

// WithDetectors sets the detectors used when a request selects none.
func WithDetectors(ids []string) Option {
	return func(s *Service) {
		s.detectors = ids
	}
}

// WithSegmentOptions sets the default segmentation.
func WithSegmentOptions(opts segment.Options) Option {
	return func(s *Service) {
		s.segmentOpts = opts
	}
}

// WithWeights overrides ensemble weights per detector.
func WithWeights(w map[string]float64) Option {
	return func(s *Service) {
		s.weights = w
	}
}

// WithDetectTimeout bounds one detector call.
func WithDetectTimeout(d time.Duration) Option {
	return func(s *Service) {
		s.detectTimeout = d
	}
}

// WithGenerateTimeout bounds one generator call.
func WithGenerateTimeout(d time.Duration) Option {
	return func(s *Service) {
		s.generateTimeout = d
	}
}

// WithHistory records results to h.
func WithHistory(h History) Option {
	return func(s *Service) {
		s.history = h
	}
}

// WithPinger sets the backend health check used by Health.
func WithPinger(p Pinger) Option {
	return func(s *Service) {
		s.pinger = p
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// New creates a Service over reg, with models served by provider and the
// resident generator tracked by state.
func New(reg *registry.Registry, provider inference.Provider, state *resident.State, opts ...Option) *Service {
	s := &Service{
		registry:        reg,
		provider:        provider,
		state:           state,
		limits:          DefaultLimits(),
		threshold:       DefaultThreshold,
		segmentOpts:     segment.DefaultOptions(),
		detectTimeout:   detect.DefaultTimeout,
		generateTimeout: pipeline.DefaultTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}

	aggregator := ensemble.New(reg, ensemble.WithWeights(s.weights), ensemble.WithLogger(s.logger))
	s.session = detect.New(provider, state, aggregator,
		detect.WithTimeout(s.detectTimeout),
		detect.WithLogger(s.logger),
	)
	s.orchestrator = pipeline.New(reg, provider, state,
		pipeline.WithTimeout(s.generateTimeout),
		pipeline.WithLogger(s.logger),
	)
	return s
}

// Registry returns the model catalog.
func (s *Service) Registry() *registry.Registry {
	return s.registry
}

// ModelListing is the catalog together with the resident model state.
type ModelListing struct {
	Models            []model.ModelDescriptor `json:"models"`
	CurrentModel      string                  `json:"current_model"`
	ResidentDetectors []string                `json:"resident_detectors"`
}

// ListModels lists the models of role, or every model when role is empty.
func (s *Service) ListModels(ctx context.Context, role string) (*ModelListing, error) {
	var models []model.ModelDescriptor
	switch r := model.Role(strings.ToLower(strings.TrimSpace(role))); {
	case r == "" || r.Valid():
		models = s.registry.List(r)
	default:
		return nil, model.InvalidInput("unknown role %q", role)
	}
	return s.listing(ctx, models)
}

// TopModels lists the n best models of role under criterion.
func (s *Service) TopModels(ctx context.Context, role string, n int, criterion string) (*ModelListing, error) {
	r := model.Role(strings.ToLower(strings.TrimSpace(role)))
	if !r.Valid() {
		return nil, model.InvalidInput("unknown role %q", role)
	}
	c, err := registry.ParseCriterion(criterion)
	if err != nil {
		return nil, err
	}
	models, err := s.registry.TopN(r, n, c)
	if err != nil {
		return nil, err
	}
	return s.listing(ctx, models)
}

// Recommend returns the generator recommended for goal.
func (s *Service) Recommend(goal string) (model.ModelDescriptor, error) {
	return s.registry.Recommended(goal)
}

func (s *Service) listing(ctx context.Context, models []model.ModelDescriptor) (*ModelListing, error) {
	current, err := s.state.Current(ctx)
	if err != nil {
		return nil, err
	}
	detectors, err := s.state.ResidentDetectors(ctx)
	if err != nil {
		return nil, err
	}
	return &ModelListing{Models: models, CurrentModel: current, ResidentDetectors: detectors}, nil
}

// LoadModel makes the generator id resident and returns the resident id.
func (s *Service) LoadModel(ctx context.Context, id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", model.InvalidInput("model id is empty")
	}
	desc, err := s.registry.Get(id)
	if err != nil {
		return "", err
	}
	if !desc.NeedsResidentSlot() {
		return "", &model.Error{
			Kind:    model.ErrInvalidInput,
			ModelID: id,
			Err:     errNotLoadable(desc),
		}
	}
	if err := s.state.LoadGenerator(ctx, id); err != nil {
		return "", err
	}
	s.logger.Info("model loaded", "model_id", id)
	return s.state.Current(ctx)
}

// Health describes the service state.
type Health struct {
	Status            string   `json:"status"`
	CurrentModel      string   `json:"current_model"`
	ResidentDetectors []string `json:"resident_detectors"`
	Detectors         []string `json:"available_detectors"`
	Generators        []string `json:"available_generators"`
	Backend           string   `json:"backend"`
	BackendError      string   `json:"backend_error,omitempty"`
}

// Health reports the resident models, the available models and whether
// the backend answers. An unreachable backend degrades the status; it is
// not an error.
func (s *Service) Health(ctx context.Context) (*Health, error) {
	current, err := s.state.Current(ctx)
	if err != nil {
		return nil, err
	}
	detectors, err := s.state.ResidentDetectors(ctx)
	if err != nil {
		return nil, err
	}
	h := &Health{
		Status:            "ok",
		CurrentModel:      current,
		ResidentDetectors: detectors,
		Detectors:         s.registry.IDs(model.RoleDetector),
		Generators:        s.registry.IDs(model.RoleGenerator),
		Backend:           "none",
	}
	if s.pinger != nil {
		h.Backend = "ok"
		if err := s.pinger.Ping(ctx); err != nil {
			h.Status = "degraded"
			h.Backend = "unreachable"
			h.BackendError = err.Error()
		}
	}
	return h, nil
}
