package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nao1215/humanizer/internal/inference"
	"github.com/nao1215/humanizer/internal/model"
	"github.com/nao1215/humanizer/internal/observability"
	"github.com/nao1215/humanizer/internal/resident"
	"github.com/nao1215/humanizer/internal/stats"
	"go.opentelemetry.io/otel/attribute"
)

// DefaultTimeout bounds a single generator call.
const DefaultTimeout = 2 * time.Minute

// Catalog looks up model descriptors. *registry.Registry implements it.
type Catalog interface {
	Get(id string) (model.ModelDescriptor, error)
}

// Policy decides which generator stays resident after a run.
type Policy int

const (
	// PolicyKeepLast leaves the last swapped-in model resident.
	PolicyKeepLast Policy = iota

	// PolicyRestore reloads the model that was resident before the run.
	PolicyRestore
)

// String returns the policy name.
func (p Policy) String() string {
	switch p {
	case PolicyKeepLast:
		return "keep-last"
	case PolicyRestore:
		return "restore"
	default:
		return fmt.Sprintf("Policy(%d)", int(p))
	}
}

// ParsePolicy parses a policy name. The empty string is PolicyKeepLast.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "keep-last", "keep_last":
		return PolicyKeepLast, nil
	case "restore":
		return PolicyRestore, nil
	default:
		return PolicyKeepLast, model.InvalidInput("unknown resident model policy %q", s)
	}
}

// Orchestrator runs generator chains. It is safe for concurrent use; runs
// that need different resident models interleave at step granularity.
type Orchestrator struct {
	catalog  Catalog
	provider inference.Provider
	state    *resident.State
	timeout  time.Duration
	logger   *slog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithTimeout sets the per-call timeout. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		o.timeout = d
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// New creates an Orchestrator.
func New(catalog Catalog, provider inference.Provider, state *resident.State, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		catalog:  catalog,
		provider: provider,
		state:    state,
		timeout:  DefaultTimeout,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return o
}

// Run passes text through the generators named by modelIDs, in order.
// The same id may appear more than once.
//
// Every id is validated before anything runs. A failed model load aborts
// the run: the partial run is returned together with a model.ErrLoad error
// naming the model and the step.
func (o *Orchestrator) Run(ctx context.Context, text string, modelIDs []string, policy Policy) (*model.PipelineRun, error) {
	if strings.TrimSpace(text) == "" {
		return nil, model.InvalidInput("text is empty")
	}
	models, err := o.Validate(modelIDs)
	if err != nil {
		return nil, err
	}

	run := &model.PipelineRun{
		ID:           uuid.NewString(),
		State:        model.RunPending,
		OriginalText: text,
		FinalText:    text,
		Steps:        make([]model.PipelineStep, 0, len(models)),
		StartedAt:    time.Now(),
	}

	ctx, span := observability.StartSpan(ctx, "pipeline.run",
		attribute.String("humanizer.pipeline.id", run.ID),
		attribute.Int("humanizer.pipeline.steps", len(models)),
		observability.AttrTextRunes.Int(stats.CharCount(text)),
	)
	defer span.End()

	previous := ""
	if policy == PolicyRestore {
		if previous, err = o.state.Current(ctx); err != nil {
			return nil, err
		}
	}
	if policy == PolicyRestore && previous != "" {
		defer o.restore(context.WithoutCancel(ctx), previous)
	}

	o.logger.Info("pipeline started", "run", run.ID, "models", modelIDs)
	run.State = model.RunRunning

	current := text
	for i, desc := range models {
		select {
		case <-ctx.Done():
			o.logger.Warn("pipeline cancelled", "run", run.ID, "step", i+1, "reason", ctx.Err())
			o.finish(run, model.RunAborted, current)
			observability.RecordError(span, ctx.Err())
			return run, ctx.Err()
		default:
		}

		step, err := o.step(ctx, i+1, desc, current)
		run.Steps = append(run.Steps, step)
		if err != nil {
			o.finish(run, model.RunAborted, current)
			observability.RecordError(span, err)
			return run, err
		}
		if step.Success {
			current = step.OutputText
		}
	}

	o.finish(run, model.RunComplete, current)
	o.logger.Info("pipeline finished",
		"run", run.ID,
		"successful", run.Statistics.SuccessfulSteps,
		"failed", run.Statistics.FailedSteps,
		"elapsed", run.Statistics.TotalProcessingTime.Std(),
	)
	return run, nil
}

// Generate invokes a single generator once. Unlike a pipeline step, a
// failed or empty generation is returned as an error.
func (o *Orchestrator) Generate(ctx context.Context, modelID, text string) (*model.Generation, error) {
	if strings.TrimSpace(text) == "" {
		return nil, model.InvalidInput("text is empty")
	}
	models, err := o.Validate([]string{modelID})
	if err != nil {
		return nil, err
	}
	desc := models[0]

	start := time.Now()
	out, err := o.invoke(ctx, 0, desc, text)
	if err != nil {
		return nil, err
	}
	if out == "" {
		return nil, &model.Error{Kind: model.ErrInference, ModelID: desc.ID, Err: errEmptyOutput}
	}
	return &model.Generation{
		ModelID:      desc.ID,
		OriginalText: text,
		Text:         out,
		Statistics:   stats.Generation(text, out, time.Since(start)),
	}, nil
}

// Validate resolves every id to a generator descriptor, keeping order and
// duplicates. It calls no model.
func (o *Orchestrator) Validate(ids []string) ([]model.ModelDescriptor, error) {
	if len(ids) == 0 {
		return nil, model.InvalidInput("no generator selected")
	}
	models := make([]model.ModelDescriptor, len(ids))
	for i, id := range ids {
		desc, err := o.catalog.Get(id)
		if err != nil {
			return nil, err
		}
		if !desc.IsGenerator() {
			return nil, &model.Error{
				Kind:    model.ErrInvalidInput,
				ModelID: id,
				Err:     fmt.Errorf("model is a %s, not a generator", desc.Role),
			}
		}
		models[i] = desc
	}
	return models, nil
}

// step runs one generator. Only a load failure is returned as an error;
// everything else is recorded on the step.
func (o *Orchestrator) step(ctx context.Context, index int, desc model.ModelDescriptor, input string) (model.PipelineStep, error) {
	step := model.PipelineStep{
		StepIndex:  index,
		ModelID:    desc.ID,
		InputText:  input,
		OutputText: input,
		Status:     model.StepFailed,
	}

	start := time.Now()
	out, err := o.invoke(ctx, index, desc, input)
	step.Duration = model.Duration(time.Since(start))

	switch {
	case err != nil && isLoadError(err):
		step.Error = err.Error()
		o.logger.Error("pipeline aborted", "step", index, "model", desc.ID, "error", err)
		return step, err
	case err != nil:
		step.Error = err.Error()
		step.TimedOut = inference.IsTimeout(err)
		o.logger.Warn("pipeline step failed",
			"step", index,
			"model", desc.ID,
			"timed_out", step.TimedOut,
			"error", err,
		)
	case out == "":
		step.Error = errEmptyOutput.Error()
		o.logger.Warn("pipeline step produced no output", "step", index, "model", desc.ID)
	default:
		step.OutputText = out
		step.Success = true
		step.Status = model.StepSuccess
		o.logger.Debug("pipeline step completed",
			"step", index,
			"model", desc.ID,
			"elapsed", step.Duration.Std(),
		)
	}
	return step, nil
}

// invoke calls the generator for desc, swapping it in first when it needs
// the resident slot. The returned text is cleaned and may be empty.
func (o *Orchestrator) invoke(ctx context.Context, index int, desc model.ModelDescriptor, input string) (string, error) {
	ctx, span := observability.StartSpan(ctx, "pipeline.step",
		observability.AttrModelID.String(desc.ID),
		observability.AttrModelRole.String(desc.Role.String()),
		observability.AttrStep.Int(index),
	)
	defer span.End()

	gen, err := o.provider.Generator(desc.ID)
	if err != nil {
		observability.RecordError(span, err)
		return "", err
	}

	var out string
	call := func(ctx context.Context) (<-chan struct{}, error) {
		var (
			idle <-chan struct{}
			err  error
		)
		out, idle, err = inference.Start(ctx, desc.ID, o.timeout, func(ctx context.Context) (string, error) {
			return gen.Generate(ctx, input, desc.Generation)
		})
		return idle, err
	}

	if desc.NeedsResidentSlot() {
		err = o.state.WithGeneratorCall(ctx, desc.ID, call)
	} else {
		_, err = call(ctx)
	}
	if err != nil {
		if isLoadError(err) && index > 0 {
			err = withStep(err, index)
		}
		span.SetAttributes(observability.AttrTimedOut.Bool(inference.IsTimeout(err)))
		observability.RecordError(span, err)
		return "", err
	}
	return cleanOutput(out, desc.Generation.Prefix), nil
}

// finish moves run to its terminal state and fills in the statistics.
func (o *Orchestrator) finish(run *model.PipelineRun, state model.RunState, final string) {
	run.State = state
	run.FinalText = final
	run.Statistics = stats.Pipeline(run.OriginalText, final, run.Steps)
}

// restore reloads the generator that was resident before a run. Failing to
// restore does not fail the run.
func (o *Orchestrator) restore(ctx context.Context, id string) {
	if err := o.state.LoadGenerator(ctx, id); err != nil {
		o.logger.Warn("failed to restore resident generator", "model", id, "error", err)
	}
}

// cleanOutput strips an echoed prompt prefix and a stray leading ": " that
// seq2seq models tend to emit. Whitespace-only output becomes "".
func cleanOutput(out, prefix string) string {
	out = strings.TrimSpace(out)
	if p := strings.TrimSpace(prefix); p != "" {
		out = strings.TrimSpace(strings.TrimPrefix(out, p))
	}
	out = strings.TrimPrefix(out, ": ")
	return strings.TrimSpace(out)
}
