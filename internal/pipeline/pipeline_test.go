package pipeline

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nao1215/humanizer/internal/inference"
	"github.com/nao1215/humanizer/internal/model"
	"github.com/nao1215/humanizer/internal/registry"
	"github.com/nao1215/humanizer/internal/resident"
)

// fakeProvider serves generators from a map and records model loads.
type fakeProvider struct {
	generators map[string]inference.Generator

	mu       sync.Mutex
	loads    []string
	failLoad map[string]bool
}

func (p *fakeProvider) Scorer(id string) (inference.Scorer, error) {
	return nil, model.NotFound(id)
}

func (p *fakeProvider) Generator(id string) (inference.Generator, error) {
	g, ok := p.generators[id]
	if !ok {
		return nil, model.NotFound(id)
	}
	return g, nil
}

func (p *fakeProvider) Loader() inference.Loader {
	return inference.LoaderFunc(func(_ context.Context, id string) error {
		p.mu.Lock()
		defer p.mu.Unlock()
		p.loads = append(p.loads, id)
		if p.failLoad[id] {
			return errors.New("not enough memory")
		}
		return nil
	})
}

func (p *fakeProvider) loaded() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.loads)
}

func suffix(s string) inference.Generator {
	return inference.GeneratorFunc(func(_ context.Context, text string, _ model.GenerationOptions) (string, error) {
		return text + s, nil
	})
}

func newOrchestrator(t *testing.T, p *fakeProvider, stateOpts []resident.Option, opts ...Option) (*Orchestrator, *resident.State) {
	t.Helper()
	state := resident.New(p.Loader(), stateOpts...)
	return New(registry.Default(), p, state, opts...), state
}

func TestRunChainsSteps(t *testing.T) {
	t.Parallel()

	p := &fakeProvider{generators: map[string]inference.Generator{
		"t5-small":           suffix(" one"),
		"t5-base":            suffix(" two"),
		"facebook/bart-base": suffix(" three"),
	}}
	o, state := newOrchestrator(t, p, nil)

	run, err := o.Run(context.Background(), "start", []string{"t5-small", "t5-base", "facebook/bart-base"}, PolicyKeepLast)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if run.State != model.RunComplete {
		t.Errorf("got state %s, expected %s", run.State, model.RunComplete)
	}
	if run.FinalText != "start one two three" {
		t.Errorf("got final text %q", run.FinalText)
	}
	if run.ID == "" {
		t.Error("expected a run id")
	}
	for i, step := range run.Steps {
		if step.StepIndex != i+1 {
			t.Errorf("step %d has index %d", i, step.StepIndex)
		}
		if !step.Success || step.Status != model.StepSuccess {
			t.Errorf("step %d should succeed: %+v", i+1, step)
		}
	}
	if run.Steps[1].InputText != "start one" {
		t.Errorf("step 2 input: got %q, expected %q", run.Steps[1].InputText, "start one")
	}

	st := run.Statistics
	if st.PipelineSteps != 3 || st.SuccessfulSteps != 3 || st.FailedSteps != 0 {
		t.Errorf("unexpected statistics: %+v", st)
	}
	if st.TotalLengthChange != len(" one two three") {
		t.Errorf("got length change %d", st.TotalLengthChange)
	}

	if current, _ := state.Current(context.Background()); current != "facebook/bart-base" {
		t.Errorf("keep-last should leave the last model resident, got %q", current)
	}
}

func TestRunCarriesInputPastFailedStep(t *testing.T) {
	t.Parallel()

	p := &fakeProvider{generators: map[string]inference.Generator{
		"t5-small": suffix(" one"),
		"t5-base": inference.GeneratorFunc(func(context.Context, string, model.GenerationOptions) (string, error) {
			return "", errors.New("model crashed")
		}),
		"facebook/bart-base": suffix(" three"),
	}}
	o, _ := newOrchestrator(t, p, nil)

	run, err := o.Run(context.Background(), "start", []string{"t5-small", "t5-base", "facebook/bart-base"}, PolicyKeepLast)
	if err != nil {
		t.Fatalf("a failed step must not fail the run: %v", err)
	}

	failed := run.Steps[1]
	if failed.Success || failed.Status != model.StepFailed {
		t.Errorf("step 2 should fail: %+v", failed)
	}
	if failed.OutputText != failed.InputText || failed.InputText != "start one" {
		t.Errorf("failed step must carry its input forward: %+v", failed)
	}
	if !strings.Contains(failed.Error, "model crashed") {
		t.Errorf("step error should keep the cause, got %q", failed.Error)
	}
	if run.Steps[2].InputText != "start one" {
		t.Errorf("step 3 input: got %q, expected %q", run.Steps[2].InputText, "start one")
	}
	if run.FinalText != "start one three" {
		t.Errorf("got final text %q", run.FinalText)
	}
	if run.Statistics.SuccessfulSteps != 2 || run.Statistics.FailedSteps != 1 {
		t.Errorf("unexpected statistics: %+v", run.Statistics)
	}
}

func TestRunStepFailures(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	t.Cleanup(func() { close(release) })

	testCases := []struct {
		name     string
		gen      inference.Generator
		timedOut bool
	}{
		{
			name: "empty output",
			gen: inference.GeneratorFunc(func(context.Context, string, model.GenerationOptions) (string, error) {
				return "   \n", nil
			}),
		},
		{
			name: "only the echoed prefix",
			gen: inference.GeneratorFunc(func(context.Context, string, model.GenerationOptions) (string, error) {
				return "paraphrase: ", nil
			}),
		},
		{
			name: "timeout",
			gen: inference.GeneratorFunc(func(context.Context, string, model.GenerationOptions) (string, error) {
				<-release
				return "late", nil
			}),
			timedOut: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			p := &fakeProvider{generators: map[string]inference.Generator{"t5-small": tc.gen}}
			o, _ := newOrchestrator(t, p, nil, WithTimeout(20*time.Millisecond))

			run, err := o.Run(context.Background(), "keep me", []string{"t5-small"}, PolicyKeepLast)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if run.FinalText != "keep me" {
				t.Errorf("every step failed, final text should be the original, got %q", run.FinalText)
			}
			if run.Steps[0].Success {
				t.Error("step should fail")
			}
			if run.Steps[0].TimedOut != tc.timedOut {
				t.Errorf("got timed out %v, expected %v", run.Steps[0].TimedOut, tc.timedOut)
			}
		})
	}
}

func TestRunHoldsResidentSlotUntilTimedOutCallReturns(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	var finished atomic.Bool
	p := &fakeProvider{generators: map[string]inference.Generator{
		"t5-small": inference.GeneratorFunc(func(context.Context, string, model.GenerationOptions) (string, error) {
			<-release
			finished.Store(true)
			return "late", nil
		}),
	}}
	o, state := newOrchestrator(t, p, nil, WithTimeout(20*time.Millisecond))

	run, err := o.Run(context.Background(), "some text", []string{"t5-small"}, PolicyKeepLast)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !run.Steps[0].TimedOut {
		t.Fatal("expected the step to time out")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	if err := state.LoadGenerator(ctx, "t5-base"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected the swap to wait for the running generation, got %v", err)
	}

	close(release)
	if err := state.LoadGenerator(context.Background(), "t5-base"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !finished.Load() {
		t.Error("swap happened before the timed out generation returned")
	}

	expected := []string{"t5-small", "t5-base"}
	if got := p.loaded(); !slices.Equal(got, expected) {
		t.Errorf("got loads %v, expected %v", got, expected)
	}
}

func TestRunAbortsOnLoadFailure(t *testing.T) {
	t.Parallel()

	thirdCalled := false
	p := &fakeProvider{
		generators: map[string]inference.Generator{
			"t5-small": suffix(" one"),
			"t5-base":  suffix(" two"),
			"facebook/bart-base": inference.GeneratorFunc(func(_ context.Context, text string, _ model.GenerationOptions) (string, error) {
				thirdCalled = true
				return text, nil
			}),
		},
		failLoad: map[string]bool{"t5-base": true},
	}
	o, _ := newOrchestrator(t, p, nil)

	run, err := o.Run(context.Background(), "start", []string{"t5-small", "t5-base", "facebook/bart-base"}, PolicyKeepLast)
	if !errors.Is(err, model.ErrLoad) {
		t.Fatalf("expected ErrLoad, got %v", err)
	}
	var merr *model.Error
	if !errors.As(err, &merr) || merr.ModelID != "t5-base" || merr.Step != 2 {
		t.Errorf("error should name model t5-base at step 2, got %v", err)
	}
	if run == nil {
		t.Fatal("the partial run must be returned")
	}
	if run.State != model.RunAborted {
		t.Errorf("got state %s, expected %s", run.State, model.RunAborted)
	}
	if len(run.Steps) != 2 || run.FinalText != "start one" {
		t.Errorf("unexpected partial run: %d steps, final %q", len(run.Steps), run.FinalText)
	}
	if thirdCalled {
		t.Error("no step may run after a load failure")
	}
}

func TestRunValidatesBeforeInvoking(t *testing.T) {
	t.Parallel()

	called := false
	gen := inference.GeneratorFunc(func(_ context.Context, text string, _ model.GenerationOptions) (string, error) {
		called = true
		return text, nil
	})
	p := &fakeProvider{generators: map[string]inference.Generator{"t5-small": gen}}
	o, _ := newOrchestrator(t, p, nil)

	testCases := []struct {
		name     string
		text     string
		ids      []string
		expected error
	}{
		{name: "unknown model", text: "text", ids: []string{"t5-small", "no-such-model"}, expected: model.ErrModelNotFound},
		{name: "detector in chain", text: "text", ids: []string{"t5-small", "chatgpt-detector"}, expected: model.ErrInvalidInput},
		{name: "no models", text: "text", ids: nil, expected: model.ErrInvalidInput},
		{name: "blank text", text: " \n", ids: []string{"t5-small"}, expected: model.ErrInvalidInput},
	}

	for _, tc := range testCases {
		_, err := o.Run(context.Background(), tc.text, tc.ids, PolicyKeepLast)
		if !errors.Is(err, tc.expected) {
			t.Errorf("%s: got %v, expected %v", tc.name, err, tc.expected)
		}
	}
	if called {
		t.Error("no generator may run when validation fails")
	}
	if len(p.loaded()) != 0 {
		t.Errorf("no model may load when validation fails, got %v", p.loaded())
	}
}

func TestRunResidentPolicy(t *testing.T) {
	t.Parallel()

	p := &fakeProvider{generators: map[string]inference.Generator{
		"t5-small": suffix("!"),
		"t5-base":  suffix("?"),
	}}
	o, state := newOrchestrator(t, p, []resident.Option{resident.WithInitialGenerator("t5-small")})

	if _, err := o.Run(context.Background(), "x", []string{"t5-base"}, PolicyRestore); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	current, _ := state.Current(context.Background())
	if current != "t5-small" {
		t.Errorf("restore policy should reload t5-small, got %q", current)
	}
	expected := []string{"t5-base", "t5-small"}
	if !slices.Equal(p.loaded(), expected) {
		t.Errorf("got loads %v, expected %v", p.loaded(), expected)
	}
}

func TestRunLocalGeneratorsSkipResidentSlot(t *testing.T) {
	t.Parallel()

	p := &fakeProvider{generators: map[string]inference.Generator{
		registry.LocalRewriterID: suffix(" local"),
	}}
	o, state := newOrchestrator(t, p, []resident.Option{resident.WithInitialGenerator("t5-small")})

	run, err := o.Run(context.Background(), "text", []string{registry.LocalRewriterID}, PolicyKeepLast)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if run.FinalText != "text local" {
		t.Errorf("got %q", run.FinalText)
	}
	if len(p.loaded()) != 0 {
		t.Errorf("local generator must not load anything, got %v", p.loaded())
	}
	if current, _ := state.Current(context.Background()); current != "t5-small" {
		t.Errorf("resident generator changed to %q", current)
	}
}

func TestGenerate(t *testing.T) {
	t.Parallel()

	p := &fakeProvider{generators: map[string]inference.Generator{
		"t5-small": inference.GeneratorFunc(func(_ context.Context, text string, opts model.GenerationOptions) (string, error) {
			return opts.Prefix + "rephrased " + text, nil
		}),
		"t5-base": inference.GeneratorFunc(func(context.Context, string, model.GenerationOptions) (string, error) {
			return "", nil
		}),
	}}
	o, _ := newOrchestrator(t, p, nil)

	gen, err := o.Generate(context.Background(), "t5-small", "hello there")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gen.Text != "rephrased hello there" {
		t.Errorf("prefix should be stripped, got %q", gen.Text)
	}
	if gen.Statistics.OriginalWords != 2 || gen.Statistics.OutputWords != 3 {
		t.Errorf("unexpected statistics: %+v", gen.Statistics)
	}

	if _, err := o.Generate(context.Background(), "t5-base", "hello"); !errors.Is(err, model.ErrInference) {
		t.Errorf("empty output should be an inference error, got %v", err)
	}
}

func TestCleanOutput(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		out      string
		prefix   string
		expected string
	}{
		{name: "plain", out: "Hello.", expected: "Hello."},
		{name: "leading colon", out: ": Hello.", expected: "Hello."},
		{name: "echoed prefix", out: "paraphrase: Hello.", prefix: "paraphrase: ", expected: "Hello."},
		{name: "surrounding space", out: "  Hello.\n", expected: "Hello."},
		{name: "whitespace only", out: " \t", expected: ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := cleanOutput(tc.out, tc.prefix); got != tc.expected {
				t.Errorf("got %q, expected %q", got, tc.expected)
			}
		})
	}
}

func TestParsePolicy(t *testing.T) {
	t.Parallel()

	for in, expected := range map[string]Policy{"": PolicyKeepLast, "keep-last": PolicyKeepLast, "Restore": PolicyRestore} {
		got, err := ParsePolicy(in)
		if err != nil || got != expected {
			t.Errorf("ParsePolicy(%q) = %v, %v; expected %v", in, got, err, expected)
		}
	}
	if _, err := ParsePolicy("forever"); !errors.Is(err, model.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}
