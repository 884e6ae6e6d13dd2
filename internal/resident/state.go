package resident

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"github.com/nao1215/humanizer/internal/inference"
	"github.com/nao1215/humanizer/internal/model"
)

// State is the single mutable model state shared by all requests.
type State struct {
	// sem is a one slot semaphore used as a mutex that can be abandoned
	// when the waiting request's context ends.
	sem chan struct{}

	loader  inference.Loader
	current string
	logger  *slog.Logger

	// mu guards detectors only. Loaded detectors are looked up without
	// waiting for a generator call to release sem.
	mu        sync.RWMutex
	detectors map[string]struct{}
}

// Option configures a State.
type Option func(*State)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *State) {
		s.logger = logger
	}
}

// WithInitialGenerator records id as already resident, for a backend that
// preloads a model at startup.
func WithInitialGenerator(id string) Option {
	return func(s *State) {
		s.current = id
	}
}

// New creates a State that loads models through loader.
func New(loader inference.Loader, opts ...Option) *State {
	if loader == nil {
		loader = inference.NopLoader
	}
	s := &State{
		sem:       make(chan struct{}, 1),
		loader:    loader,
		detectors: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

func (s *State) lock(ctx context.Context) error {
	select {
	case s.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *State) unlock() {
	<-s.sem
}

// Current returns the resident generator id, or "" when none is loaded.
// It waits for any swap in progress.
func (s *State) Current(ctx context.Context) (string, error) {
	if err := s.lock(ctx); err != nil {
		return "", err
	}
	defer s.unlock()
	return s.current, nil
}

// ResidentDetectors returns the loaded detector ids, sorted.
func (s *State) ResidentDetectors(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.detectors))
	for id := range s.detectors {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}

// LoadGenerator makes id the resident generator. Loading the model that is
// already resident is a no-op.
func (s *State) LoadGenerator(ctx context.Context, id string) error {
	if err := s.lock(ctx); err != nil {
		return err
	}
	defer s.unlock()
	return s.swapLocked(ctx, id)
}

// WithGenerator makes id resident and runs fn while holding the lock, so no
// swap can happen during the call. A failed load is returned as an
// model.ErrLoad error and fn is not run.
func (s *State) WithGenerator(ctx context.Context, id string, fn func(context.Context) error) error {
	return s.WithGeneratorCall(ctx, id, func(ctx context.Context) (<-chan struct{}, error) {
		return nil, fn(ctx)
	})
}

// WithGeneratorCall is WithGenerator for a call that may outlive fn, such
// as one abandoned after a timeout. fn returns a channel that is closed
// once the model is idle again, or nil when it already is. The error is
// returned at once, but the lock is held until the channel is closed, so
// the next swap cannot start while the model is still generating.
func (s *State) WithGeneratorCall(ctx context.Context, id string, fn func(context.Context) (<-chan struct{}, error)) error {
	if err := s.lock(ctx); err != nil {
		return err
	}

	if err := s.swapLocked(ctx, id); err != nil {
		s.unlock()
		return err
	}

	idle, err := fn(ctx)
	if idle == nil {
		s.unlock()
		return err
	}
	select {
	case <-idle:
		s.unlock()
	default:
		s.logger.Warn("generator still busy, holding resident slot until it returns", "model", id)
		go func() {
			<-idle
			s.unlock()
			s.logger.Debug("abandoned generator call returned", "model", id)
		}()
	}
	return err
}

// swapLocked loads id unless it is already resident. On failure nothing is
// resident any more, because the previous model was evicted first.
func (s *State) swapLocked(ctx context.Context, id string) error {
	if s.current == id {
		return nil
	}

	previous := s.current
	s.logger.Info("swapping resident generator", "from", previous, "to", id)

	if err := s.loader.Load(ctx, id); err != nil {
		s.current = ""
		s.logger.Error("failed to load generator", "model", id, "error", err)
		return &model.Error{Kind: model.ErrLoad, ModelID: id, Err: err}
	}
	s.current = id
	return nil
}

// EnsureDetector loads detector id once. Later calls return immediately
// without taking the swap lock.
func (s *State) EnsureDetector(ctx context.Context, id string) error {
	if s.hasDetector(id) {
		return nil
	}

	if err := s.lock(ctx); err != nil {
		return err
	}
	defer s.unlock()

	if s.hasDetector(id) {
		return nil
	}
	if err := s.loader.Load(ctx, id); err != nil {
		s.logger.Warn("failed to load detector", "model", id, "error", err)
		return &model.Error{Kind: model.ErrLoad, ModelID: id, Err: err}
	}
	s.addDetector(id)
	s.logger.Debug("detector resident", "model", id)
	return nil
}

// MarkDetector records id as resident without loading it. Used for
// in-process detectors.
func (s *State) MarkDetector(_ context.Context, id string) error {
	s.addDetector(id)
	return nil
}

func (s *State) hasDetector(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.detectors[id]
	return ok
}

func (s *State) addDetector(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.detectors[id] = struct{}{}
}
