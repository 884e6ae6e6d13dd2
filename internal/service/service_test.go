package service

import (
	"context"
	"errors"
	"math"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/nao1215/humanizer/internal/backend"
	"github.com/nao1215/humanizer/internal/database"
	"github.com/nao1215/humanizer/internal/highlight"
	"github.com/nao1215/humanizer/internal/inference"
	"github.com/nao1215/humanizer/internal/model"
	"github.com/nao1215/humanizer/internal/pipeline"
	"github.com/nao1215/humanizer/internal/registry"
	"github.com/nao1215/humanizer/internal/resident"
	"github.com/nao1215/humanizer/internal/rewrite"
	"github.com/nao1215/humanizer/internal/segment"
)

const (
	aiText    = "We delve into the intricate tapestry of modern ideas today."
	humanText = "I went to the shop this morning and bought some milk and bread."
)

// testProvider serves fakes for remote ids and the built-in models for
// local ids.
type testProvider struct {
	local      *backend.Provider
	scorers    map[string]inference.Scorer
	generators map[string]inference.Generator
	fallback   inference.Generator
	failLoad   map[string]bool

	mu    sync.Mutex
	loads []string
}

func newTestProvider() *testProvider {
	return &testProvider{
		local:      backend.NewProvider(registry.Default(), nil),
		scorers:    make(map[string]inference.Scorer),
		generators: make(map[string]inference.Generator),
		failLoad:   make(map[string]bool),
	}
}

func (p *testProvider) Scorer(id string) (inference.Scorer, error) {
	if sc, ok := p.scorers[id]; ok {
		return sc, nil
	}
	return p.local.Scorer(id)
}

func (p *testProvider) Generator(id string) (inference.Generator, error) {
	if g, ok := p.generators[id]; ok {
		return g, nil
	}
	if id != registry.LocalRewriterID && id != registry.LocalRewriterEnhancedID && p.fallback != nil {
		return p.fallback, nil
	}
	return p.local.Generator(id)
}

func (p *testProvider) Loader() inference.Loader {
	return inference.LoaderFunc(func(_ context.Context, id string) error {
		p.mu.Lock()
		defer p.mu.Unlock()
		p.loads = append(p.loads, id)
		if p.failLoad[id] {
			return errors.New("out of memory")
		}
		return nil
	})
}

func (p *testProvider) loaded() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.loads)
}

// delveScorer flags texts containing "delve".
func delveScorer(calls *atomic.Int32) inference.Scorer {
	return inference.ScorerFunc(func(_ context.Context, text string) (float64, error) {
		if calls != nil {
			calls.Add(1)
		}
		if strings.Contains(text, "delve") {
			return 0.9, nil
		}
		return 0.2, nil
	})
}

func replacer(old, repl string) inference.Generator {
	return inference.GeneratorFunc(func(_ context.Context, text string, _ model.GenerationOptions) (string, error) {
		return strings.ReplaceAll(text, old, repl), nil
	})
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func newService(t *testing.T, p *testProvider, opts ...Option) *Service {
	t.Helper()
	if len(p.scorers) == 0 {
		p.scorers["chatgpt-detector"] = delveScorer(nil)
		p.scorers["mixed-detector"] = delveScorer(nil)
	}
	state := resident.New(p.Loader())
	opts = append([]Option{WithDetectors([]string{"chatgpt-detector", "mixed-detector"})}, opts...)
	return New(registry.Default(), p, state, opts...)
}

func TestValidation(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	p := newTestProvider()
	p.scorers["chatgpt-detector"] = delveScorer(&calls)
	p.scorers["mixed-detector"] = delveScorer(&calls)
	svc := newService(t, p)
	ctx := context.Background()

	testCases := []struct {
		name string
		call func() error
	}{
		{"detect blank", func() error { _, err := svc.Detect(ctx, DetectRequest{Text: "   \n"}); return err }},
		{"detect too short", func() error { _, err := svc.Detect(ctx, DetectRequest{Text: "short text"}); return err }},
		{"detect too long", func() error {
			_, err := svc.Detect(ctx, DetectRequest{Text: strings.Repeat("a", 10001)})
			return err
		}},
		{"segments too short", func() error {
			_, err := svc.DetectSegments(ctx, SegmentRequest{Text: "tiny"})
			return err
		}},
		{"paraphrase too short", func() error { _, err := svc.Paraphrase(ctx, "hi", ""); return err }},
		{"rewrite too long", func() error { _, err := svc.Rewrite(ctx, strings.Repeat("b", 5001), false); return err }},
		{"pipeline blank", func() error { _, err := svc.RunPipeline(ctx, " ", nil, pipeline.PolicyKeepLast); return err }},
		{"verify shorter than detection minimum", func() error {
			_, err := svc.HumanizeAndVerify(ctx, VerifyRequest{Text: "twenty characters ok"})
			return err
		}},
		{"bad threshold", func() error {
			th := 1.5
			_, err := svc.Detect(ctx, DetectRequest{Text: aiText + " " + humanText, Threshold: &th})
			return err
		}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.call(); !errors.Is(err, model.ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
	if n := calls.Load(); n != 0 {
		t.Errorf("no model should be invoked on invalid input, got %d calls", n)
	}
}

func TestDetect(t *testing.T) {
	t.Parallel()

	svc := newService(t, newTestProvider())
	ctx := context.Background()
	text := aiText + " " + humanText

	det, err := svc.Detect(ctx, DetectRequest{Text: text})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !slices.Equal(det.Models, []string{"chatgpt-detector", "mixed-detector"}) {
		t.Errorf("got models %v", det.Models)
	}
	if !approx(det.Result.AIProbability, 0.9) || !det.Result.IsAIGenerated {
		t.Errorf("got %+v", det.Result)
	}

	sel := registry.Selected(registry.LocalStylometricID)
	zero := 0.0
	det, err = svc.Detect(ctx, DetectRequest{Text: text, Selection: &sel, Threshold: &zero})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !slices.Equal(det.Models, []string{registry.LocalStylometricID}) || !det.Result.IsAIGenerated {
		t.Errorf("threshold 0 must flag every text: %+v", det)
	}

	gen := registry.Single("t5-small")
	if _, err := svc.Detect(ctx, DetectRequest{Text: text, Selection: &gen}); !errors.Is(err, model.ErrInvalidInput) {
		t.Errorf("generator as detector: expected ErrInvalidInput, got %v", err)
	}
}

func TestDetectEmptyEnsemble(t *testing.T) {
	t.Parallel()

	p := newTestProvider()
	failing := inference.ScorerFunc(func(context.Context, string) (float64, error) {
		return 0, errors.New("CUDA error")
	})
	p.scorers["chatgpt-detector"] = failing
	p.scorers["mixed-detector"] = failing
	svc := newService(t, p)

	det, err := svc.Detect(context.Background(), DetectRequest{Text: aiText + " " + humanText})
	if !errors.Is(err, model.ErrEmptyEnsemble) {
		t.Fatalf("expected ErrEmptyEnsemble, got %v", err)
	}
	if det == nil || len(det.Failures) != 2 {
		t.Errorf("failures should be reported: %+v", det)
	}
}

func TestHighlight(t *testing.T) {
	t.Parallel()

	svc := newService(t, newTestProvider(), WithSegmentOptions(segment.Options{
		Granularity: model.GranularitySentence,
		MinLength:   0,
		ChunkSize:   200,
	}))
	ctx := context.Background()

	res, err := svc.Highlight(ctx, HighlightRequest{SegmentRequest: SegmentRequest{Text: aiText + " " + humanText}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expected := "**" + aiText + "** " + humanText
	if res.Text != expected {
		t.Errorf("got %q, expected %q", res.Text, expected)
	}
	if res.Flagged != 1 || res.Total != 2 || res.NoAIContent || res.Format != highlight.FormatMarkdown {
		t.Errorf("unexpected result: %+v", res)
	}

	res, err = svc.Highlight(ctx, HighlightRequest{
		SegmentRequest: SegmentRequest{Text: humanText + " " + humanText},
		Format:         highlight.FormatHTML,
	})
	if err != nil {
		t.Fatalf("no AI content is not an error, got %v", err)
	}
	if !res.NoAIContent || res.Flagged != 0 || res.Text != humanText+" "+humanText {
		t.Errorf("unexpected result: %+v", res)
	}

	if _, err := svc.Highlight(ctx, HighlightRequest{Format: "pdf"}); !errors.Is(err, model.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for unknown format, got %v", err)
	}
}

func TestParaphrase(t *testing.T) {
	t.Parallel()

	p := newTestProvider()
	p.fallback = replacer("delve", "dig")
	svc := newService(t, p)
	ctx := context.Background()

	gen, err := svc.Paraphrase(ctx, aiText, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	recommended, _ := svc.Recommend("")
	if gen.ModelID != recommended.ID || !strings.Contains(gen.Text, "dig") {
		t.Errorf("got %+v, expected recommended model %s", gen, recommended.ID)
	}

	if _, err := svc.LoadModel(ctx, "t5-small"); err != nil {
		t.Fatalf("LoadModel: %v", err)
	}
	gen, err = svc.Paraphrase(ctx, aiText, "")
	if err != nil {
		t.Fatal(err)
	}
	if gen.ModelID != "t5-small" {
		t.Errorf("empty id should use the resident model, got %s", gen.ModelID)
	}

	if _, err := svc.Paraphrase(ctx, aiText, "gpt-5"); !errors.Is(err, model.ErrModelNotFound) {
		t.Errorf("expected ErrModelNotFound, got %v", err)
	}
}

func TestRewrite(t *testing.T) {
	t.Parallel()

	svc := newService(t, newTestProvider())
	for _, enhanced := range []bool{false, true} {
		gen, err := svc.Rewrite(context.Background(), "It's a test. We can't stop now, it's fine.", enhanced)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if gen.ModelID != rewriterID(enhanced) || gen.Text == "" {
			t.Errorf("got %+v", gen)
		}
	}
}

func TestRefine(t *testing.T) {
	t.Parallel()

	svc := newService(t, newTestProvider())
	r, err := svc.Refine(context.Background(), "so   we tried it . it worked")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.OriginalText != "so   we tried it . it worked" {
		t.Errorf("got original %q", r.OriginalText)
	}
	if !strings.HasSuffix(r.RefinedText, " we tried it. It worked") {
		t.Errorf("got %q", r.RefinedText)
	}

	if _, err := svc.Refine(context.Background(), "hi"); !errors.Is(err, model.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestSynonym(t *testing.T) {
	t.Parallel()

	svc := newService(t, newTestProvider())
	r, err := svc.Synonym(" Important ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Word != "Important" || r.Synonym != "essential" {
		t.Errorf("got %+v", r)
	}

	testCases := []struct {
		word  string
		cause error
	}{
		{word: "", cause: model.ErrInvalidInput},
		{word: "no", cause: rewrite.ErrWordTooShort},
		{word: "zebra", cause: rewrite.ErrNoSynonym},
		{word: "two words", cause: model.ErrInvalidInput},
	}
	for _, tc := range testCases {
		_, err := svc.Synonym(tc.word)
		if !errors.Is(err, model.ErrInvalidInput) || !errors.Is(err, tc.cause) {
			t.Errorf("%q: got %v, expected invalid input caused by %v", tc.word, err, tc.cause)
		}
	}
}

func TestRunPipeline(t *testing.T) {
	t.Parallel()

	p := newTestProvider()
	p.fallback = inference.GeneratorFunc(func(_ context.Context, text string, _ model.GenerationOptions) (string, error) {
		return text + ".", nil
	})
	hdb, err := database.Open(t.TempDir(), database.DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = hdb.Close() })
	svc := newService(t, p, WithHistory(hdb))
	ctx := context.Background()

	run, err := svc.RunPipeline(ctx, "Some input text", nil, pipeline.PolicyKeepLast)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	transformers := svc.Registry().Transformers()
	if len(run.Steps) != len(transformers) || run.State != model.RunComplete {
		t.Fatalf("got %d steps in state %s, expected %d", len(run.Steps), run.State, len(transformers))
	}
	if run.FinalText != "Some input text"+strings.Repeat(".", len(transformers)) {
		t.Errorf("got final text %q", run.FinalText)
	}

	runs, err := svc.RunHistory(ctx, 10)
	if err != nil {
		t.Fatalf("RunHistory: %v", err)
	}
	if len(runs) != 1 || runs[0].ID != run.ID {
		t.Errorf("run not recorded: %+v", runs)
	}

	p.failLoad["t5-base"] = true
	run, err = svc.RunPipeline(ctx, "Some input text", []string{"t5-small", "t5-base"}, pipeline.PolicyKeepLast)
	if !errors.Is(err, model.ErrLoad) || run == nil || run.State != model.RunAborted {
		t.Errorf("expected aborted run with ErrLoad, got %v / %+v", err, run)
	}
	if runs, _ := svc.RunHistory(ctx, 10); len(runs) != 2 {
		t.Errorf("aborted run should be recorded too, got %d runs", len(runs))
	}
}

func TestHumanize(t *testing.T) {
	t.Parallel()

	p := newTestProvider()
	p.generators["t5-small"] = inference.GeneratorFunc(func(context.Context, string, model.GenerationOptions) (string, error) {
		return "", errors.New("backend crashed")
	})
	p.generators["t5-base"] = replacer("delve", "dig")
	svc := newService(t, p)
	ctx := context.Background()

	h, err := svc.Humanize(ctx, HumanizeRequest{Text: aiText, Paraphrase: true, ModelID: "t5-small"})
	if err != nil {
		t.Fatalf("a failed paraphrase must not fail the request: %v", err)
	}
	if len(h.Failures) != 1 || h.Failures[0].ModelID != "t5-small" {
		t.Errorf("expected one recorded failure, got %+v", h.Failures)
	}
	if len(h.Stages) != 1 || h.Stages[0].ModelID != registry.LocalRewriterID || h.Stages[0].OriginalText != aiText {
		t.Errorf("rewrite should run on the original text: %+v", h.Stages)
	}

	h, err = svc.Humanize(ctx, HumanizeRequest{Text: aiText, Paraphrase: true, Enhanced: true, ModelID: "t5-base"})
	if err != nil {
		t.Fatal(err)
	}
	if len(h.Stages) != 2 || h.Stages[1].OriginalText != h.Stages[0].Text || h.Text != h.Stages[1].Text {
		t.Errorf("stages should chain: %+v", h.Stages)
	}

	p.failLoad["tuner007/pegasus_paraphrase"] = true
	_, err = svc.Humanize(ctx, HumanizeRequest{Text: aiText, Paraphrase: true, ModelID: "tuner007/pegasus_paraphrase"})
	if !errors.Is(err, model.ErrLoad) {
		t.Errorf("expected ErrLoad, got %v", err)
	}
}

func TestHumanizeAndVerify(t *testing.T) {
	t.Parallel()

	p := newTestProvider()
	p.generators["t5-small"] = replacer("delve", "dig")
	svc := newService(t, p)

	text := aiText + " " + humanText
	v, err := svc.HumanizeAndVerify(context.Background(), VerifyRequest{Text: text, ModelIDs: []string{"t5-small"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !approx(v.Before.Result.AIProbability, 0.9) || !approx(v.After.Result.AIProbability, 0.2) {
		t.Errorf("got before %v after %v", v.Before.Result.AIProbability, v.After.Result.AIProbability)
	}
	if !approx(v.Improvement, 0.7) {
		t.Errorf("got improvement %v, expected 0.7", v.Improvement)
	}
	if v.Run.FinalText != strings.ReplaceAll(text, "delve", "dig") {
		t.Errorf("got final text %q", v.Run.FinalText)
	}
}

func TestHumanizeAndVerifyRejectsGeneratorsBeforeDetecting(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		ids      []string
		expected error
	}{
		{name: "unknown model", ids: []string{"t5-small", "no-such-model"}, expected: model.ErrModelNotFound},
		{name: "detector as generator", ids: []string{"chatgpt-detector"}, expected: model.ErrInvalidInput},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			var calls atomic.Int32
			p := newTestProvider()
			p.scorers["chatgpt-detector"] = delveScorer(&calls)
			p.scorers["mixed-detector"] = delveScorer(&calls)
			svc := newService(t, p)

			_, err := svc.HumanizeAndVerify(context.Background(), VerifyRequest{
				Text:     aiText + " " + humanText,
				ModelIDs: tc.ids,
			})
			if !errors.Is(err, tc.expected) {
				t.Fatalf("got %v, expected %v", err, tc.expected)
			}
			if n := calls.Load(); n != 0 {
				t.Errorf("got %d detector calls, expected none", n)
			}
			if loads := p.loaded(); len(loads) != 0 {
				t.Errorf("got loads %v, expected none", loads)
			}
		})
	}
}

func TestModels(t *testing.T) {
	t.Parallel()

	p := newTestProvider()
	svc := newService(t, p)
	ctx := context.Background()

	all, err := svc.ListModels(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	detectors, err := svc.ListModels(ctx, "Detector")
	if err != nil {
		t.Fatal(err)
	}
	if len(detectors.Models) == 0 || len(detectors.Models) >= len(all.Models) {
		t.Errorf("role filter: %d of %d", len(detectors.Models), len(all.Models))
	}
	if _, err := svc.ListModels(ctx, "oracle"); !errors.Is(err, model.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}

	top, err := svc.TopModels(ctx, "generator", 2, "speed")
	if err != nil || len(top.Models) != 2 {
		t.Fatalf("TopModels: %v %+v", err, top)
	}

	testCases := []struct {
		id       string
		expected error
	}{
		{"", model.ErrInvalidInput},
		{"unknown", model.ErrModelNotFound},
		{registry.LocalRewriterID, model.ErrInvalidInput},
		{"chatgpt-detector", model.ErrInvalidInput},
	}
	for _, tc := range testCases {
		if _, err := svc.LoadModel(ctx, tc.id); !errors.Is(err, tc.expected) {
			t.Errorf("LoadModel(%q): expected %v, got %v", tc.id, tc.expected, err)
		}
	}

	current, err := svc.LoadModel(ctx, "facebook/bart-base")
	if err != nil || current != "facebook/bart-base" {
		t.Fatalf("got %q, %v", current, err)
	}
	listing, _ := svc.ListModels(ctx, "generator")
	if listing.CurrentModel != "facebook/bart-base" {
		t.Errorf("got current %q", listing.CurrentModel)
	}

	p.failLoad["t5-base"] = true
	if _, err := svc.LoadModel(ctx, "t5-base"); !errors.Is(err, model.ErrLoad) {
		t.Errorf("expected ErrLoad, got %v", err)
	}
}

type pingFunc func(context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealth(t *testing.T) {
	t.Parallel()

	svc := newService(t, newTestProvider())
	h, err := svc.Health(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if h.Status != "ok" || h.Backend != "none" || len(h.Generators) == 0 {
		t.Errorf("unexpected health: %+v", h)
	}

	svc = newService(t, newTestProvider(), WithPinger(pingFunc(func(context.Context) error {
		return errors.New("connection refused")
	})))
	h, err = svc.Health(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if h.Status != "degraded" || h.Backend != "unreachable" {
		t.Errorf("unexpected health: %+v", h)
	}
}

func TestHistoryDisabled(t *testing.T) {
	t.Parallel()

	svc := newService(t, newTestProvider())
	if svc.HistoryEnabled() {
		t.Error("history should be disabled")
	}
	if _, err := svc.RunHistory(context.Background(), 5); !errors.Is(err, ErrHistoryDisabled) {
		t.Errorf("expected ErrHistoryDisabled, got %v", err)
	}
	if _, err := svc.DetectionHistory(context.Background(), "", 5); !errors.Is(err, ErrHistoryDisabled) {
		t.Errorf("expected ErrHistoryDisabled, got %v", err)
	}
}
