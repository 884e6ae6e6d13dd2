package registry

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/nao1215/humanizer/internal/model"
	"golang.org/x/text/cases"
)

// Criterion names a rank field used to order models.
type Criterion string

const (
	// ByPerformance orders by PerformanceRank.
	ByPerformance Criterion = "performance"
	// BySpeed orders by SpeedRank.
	BySpeed Criterion = "speed"
	// ByAccuracy orders by AccuracyRank.
	ByAccuracy Criterion = "accuracy"
)

// ParseCriterion converts s into a Criterion. The empty string selects
// ByPerformance.
func ParseCriterion(s string) (Criterion, error) {
	switch Criterion(strings.ToLower(strings.TrimSpace(s))) {
	case "", ByPerformance:
		return ByPerformance, nil
	case BySpeed:
		return BySpeed, nil
	case ByAccuracy:
		return ByAccuracy, nil
	default:
		return "", model.InvalidInput("unknown ranking criterion %q", s)
	}
}

// rank returns the rank of d for criterion c.
func (c Criterion) rank(d model.ModelDescriptor) int {
	switch c {
	case BySpeed:
		return d.SpeedRank
	case ByAccuracy:
		return d.AccuracyRank
	default:
		return d.PerformanceRank
	}
}

// Goal names a use case for which a generator is recommended.
type Goal string

const (
	GoalQuality  Goal = "quality"
	GoalSpeed    Goal = "speed"
	GoalBalanced Goal = "balanced"
	GoalCreative Goal = "creative"
	GoalAccuracy Goal = "accuracy"
)

// DefaultGoal is used when a requested goal is not recognized.
const DefaultGoal = GoalBalanced

// Registry is an immutable catalog of model descriptors.
// It is safe for concurrent use.
type Registry struct {
	models []model.ModelDescriptor
	index  map[string]int
	goals  map[Goal]string
}

// Option configures a Registry.
type Option func(*Registry)

// WithGoals overrides or extends the goal to model id mapping.
// Every id must exist in the catalog and be a generator, which New checks.
func WithGoals(goals map[string]string) Option {
	return func(r *Registry) {
		for g, id := range goals {
			r.goals[foldGoal(g)] = id
		}
	}
}

// New builds a Registry from models, preserving their order.
func New(models []model.ModelDescriptor, opts ...Option) (*Registry, error) {
	r := &Registry{
		models: make([]model.ModelDescriptor, 0, len(models)),
		index:  make(map[string]int, len(models)),
		goals:  make(map[Goal]string),
	}

	for _, d := range models {
		if err := validateDescriptor(d); err != nil {
			return nil, err
		}
		if _, exists := r.index[d.ID]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateID, d.ID)
		}
		r.index[d.ID] = len(r.models)
		r.models = append(r.models, d)
	}

	for _, opt := range opts {
		opt(r)
	}

	for g, id := range r.goals {
		d, err := r.Get(id)
		if err != nil {
			return nil, fmt.Errorf("goal %q: %w", g, err)
		}
		if !d.IsGenerator() {
			return nil, fmt.Errorf("%w: goal %q maps to non-generator %s", ErrInvalidDescriptor, g, id)
		}
	}

	return r, nil
}

func validateDescriptor(d model.ModelDescriptor) error {
	if strings.TrimSpace(d.ID) == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidDescriptor)
	}
	if !d.Role.Valid() {
		return fmt.Errorf("%w: %s has unknown role %q", ErrInvalidDescriptor, d.ID, d.Role)
	}
	if d.PerformanceRank < 1 || d.SpeedRank < 1 || d.AccuracyRank < 1 {
		return fmt.Errorf("%w: %s has a non-positive rank", ErrInvalidDescriptor, d.ID)
	}
	return nil
}

// List returns the models of the given role in catalog order.
// An empty role returns every model.
func (r *Registry) List(role model.Role) []model.ModelDescriptor {
	out := make([]model.ModelDescriptor, 0, len(r.models))
	for _, d := range r.models {
		if role == "" || d.Role == role {
			out = append(out, d)
		}
	}
	return out
}

// IDs returns the ids of the models of the given role in catalog order.
func (r *Registry) IDs(role model.Role) []string {
	list := r.List(role)
	ids := make([]string, len(list))
	for i, d := range list {
		ids[i] = d.ID
	}
	return ids
}

// Transformers returns the remote generators in catalog order. These are the
// models chained by a pipeline run when no model is named.
func (r *Registry) Transformers() []model.ModelDescriptor {
	out := make([]model.ModelDescriptor, 0, len(r.models))
	for _, d := range r.models {
		if d.NeedsResidentSlot() {
			out = append(out, d)
		}
	}
	return out
}

// Get returns the descriptor for id.
func (r *Registry) Get(id string) (model.ModelDescriptor, error) {
	i, ok := r.index[id]
	if !ok {
		return model.ModelDescriptor{}, model.NotFound(id)
	}
	return r.models[i], nil
}

// Has reports whether id is in the catalog.
func (r *Registry) Has(id string) bool {
	_, ok := r.index[id]
	return ok
}

// PerformanceRank returns the performance rank of id.
func (r *Registry) PerformanceRank(id string) (int, bool) {
	i, ok := r.index[id]
	if !ok {
		return 0, false
	}
	return r.models[i].PerformanceRank, true
}

// TopN returns the n best models of role under criterion, ascending by rank
// with ties broken by id. n <= 0 or n larger than the catalog returns every
// model of the role.
func (r *Registry) TopN(role model.Role, n int, criterion Criterion) ([]model.ModelDescriptor, error) {
	switch criterion {
	case ByPerformance, BySpeed, ByAccuracy:
	default:
		return nil, model.InvalidInput("unknown ranking criterion %q", criterion)
	}

	list := r.List(role)
	slices.SortStableFunc(list, func(a, b model.ModelDescriptor) int {
		if c := cmp.Compare(criterion.rank(a), criterion.rank(b)); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})

	if n > 0 && n < len(list) {
		list = list[:n]
	}
	return list, nil
}

// Recommended returns the generator mapped to goal. Goal names are compared
// case-insensitively; an unknown goal falls back to DefaultGoal.
func (r *Registry) Recommended(goal string) (model.ModelDescriptor, error) {
	g := foldGoal(goal)
	id, ok := r.goals[g]
	if !ok {
		id, ok = r.goals[DefaultGoal]
		if !ok {
			return model.ModelDescriptor{}, model.InvalidInput("no model recommended for goal %q", goal)
		}
	}
	return r.Get(id)
}

// Goals returns the known goal names in sorted order.
func (r *Registry) Goals() []Goal {
	goals := make([]Goal, 0, len(r.goals))
	for g := range r.goals {
		goals = append(goals, g)
	}
	slices.Sort(goals)
	return goals
}

// foldGoal normalizes a goal name. A Caser keeps state, so a fresh one is
// built per call.
func foldGoal(s string) Goal {
	return Goal(cases.Fold().String(strings.TrimSpace(s)))
}
