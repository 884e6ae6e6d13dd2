package service

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode"

	"github.com/nao1215/humanizer/internal/inference"
	"github.com/nao1215/humanizer/internal/model"
	"github.com/nao1215/humanizer/internal/pipeline"
	"github.com/nao1215/humanizer/internal/registry"
	"github.com/nao1215/humanizer/internal/rewrite"
)

// Paraphrase generates text with modelID. An empty modelID uses the
// resident generator, or the recommended one when none is resident.
func (s *Service) Paraphrase(ctx context.Context, text, modelID string) (*model.Generation, error) {
	if err := s.limits.checkHumanize(text); err != nil {
		return nil, err
	}
	id, err := s.paraphraser(ctx, modelID)
	if err != nil {
		return nil, err
	}
	return s.orchestrator.Generate(ctx, id, text)
}

// Rewrite runs the built-in rewriter, in its enhanced variant when asked.
func (s *Service) Rewrite(ctx context.Context, text string, enhanced bool) (*model.Generation, error) {
	if err := s.limits.checkHumanize(text); err != nil {
		return nil, err
	}
	return s.orchestrator.Generate(ctx, rewriterID(enhanced), text)
}

// Refinement is the result of Refine.
type Refinement struct {
	OriginalText string `json:"original_text"`
	RefinedText  string `json:"refined_text"`
}

// Refine runs only the clean up pass of the built-in rewriter: spacing,
// capitalization and sentence openers. No model is involved.
func (s *Service) Refine(ctx context.Context, text string) (*Refinement, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.limits.checkHumanize(text); err != nil {
		return nil, err
	}
	return &Refinement{OriginalText: text, RefinedText: rewrite.Refine(text)}, nil
}

// SynonymResult is the result of Synonym.
type SynonymResult struct {
	Word    string `json:"original_word"`
	Synonym string `json:"synonym"`
}

// Synonym looks word up in the built-in thesaurus used by the enhanced
// rewriter. A word that is too short or has no entry is invalid input.
func (s *Service) Synonym(word string) (*SynonymResult, error) {
	word = strings.TrimSpace(word)
	if word == "" {
		return nil, model.InvalidInput("word is empty")
	}
	if strings.ContainsFunc(word, unicode.IsSpace) {
		return nil, model.InvalidInput("expected a single word, got %q", word)
	}
	syn, err := rewrite.Synonym(word)
	if err != nil {
		return nil, &model.Error{Kind: model.ErrInvalidInput, Err: err}
	}
	return &SynonymResult{Word: word, Synonym: syn}, nil
}

// RunPipeline chains the generators in modelIDs. An empty list chains every
// transformer generator in catalog order.
func (s *Service) RunPipeline(ctx context.Context, text string, modelIDs []string, policy pipeline.Policy) (*model.PipelineRun, error) {
	if err := s.limits.checkHumanize(text); err != nil {
		return nil, err
	}
	ids := cleanIDs(modelIDs)
	if len(ids) == 0 {
		for _, d := range s.registry.Transformers() {
			ids = append(ids, d.ID)
		}
	}

	run, err := s.orchestrator.Run(ctx, text, ids, policy)
	if run != nil && run.State.Terminal() {
		s.recordRun(ctx, run)
	}
	return run, err
}

// HumanizeRequest configures the paraphrase-then-rewrite flow.
type HumanizeRequest struct {
	Text string
	// Paraphrase enables the paraphrasing stage.
	Paraphrase bool
	// Enhanced selects the enhanced rewriter.
	Enhanced bool
	// ModelID is the paraphraser; empty means resident or recommended.
	ModelID string
}

// Humanize paraphrases the text (when asked) and then rewrites it. A
// failed stage is recorded and its input carried forward; only invalid
// input and model load failures abort.
func (s *Service) Humanize(ctx context.Context, req HumanizeRequest) (*model.Humanization, error) {
	if err := s.limits.checkHumanize(req.Text); err != nil {
		return nil, err
	}

	start := time.Now()
	h := &model.Humanization{OriginalText: req.Text, Text: req.Text}

	ids := []string{rewriterID(req.Enhanced)}
	if req.Paraphrase {
		id, err := s.paraphraser(ctx, req.ModelID)
		if err != nil {
			return nil, err
		}
		ids = append([]string{id}, ids...)
	}

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		gen, err := s.orchestrator.Generate(ctx, id, h.Text)
		if err != nil {
			if !isRecoverable(err) {
				return nil, err
			}
			s.logger.Warn("humanize stage failed", "model_id", id, "error", err)
			h.Failures = append(h.Failures, inference.Failure(id, err))
			continue
		}
		h.Stages = append(h.Stages, *gen)
		h.Text = gen.Text
	}
	h.Duration = model.Duration(time.Since(start))
	return h, nil
}

// VerifyRequest configures humanize and verify.
type VerifyRequest struct {
	Text string
	// ModelIDs are the pipeline generators. Empty means the recommended
	// paraphraser followed by the enhanced rewriter.
	ModelIDs  []string
	Policy    pipeline.Policy
	Threshold *float64
	Selection *registry.Selection
}

// HumanizeAndVerify detects the text, runs the pipeline, and detects the
// result with the same detectors and threshold. Improvement is the drop in
// AI probability.
func (s *Service) HumanizeAndVerify(ctx context.Context, req VerifyRequest) (*model.Verification, error) {
	if err := s.limits.checkHumanize(req.Text); err != nil {
		return nil, err
	}
	if err := s.limits.checkDetect(req.Text); err != nil {
		return nil, err
	}
	detectors, err := s.detectorsFor(req.Selection)
	if err != nil {
		return nil, err
	}
	threshold := s.thresholdOf(req.Threshold)

	ids := cleanIDs(req.ModelIDs)
	if len(ids) == 0 {
		rec, err := s.registry.Recommended(string(registry.DefaultGoal))
		if err != nil {
			return nil, err
		}
		ids = []string{rec.ID, registry.LocalRewriterEnhancedID}
	}
	if _, err := s.orchestrator.Validate(ids); err != nil {
		return nil, err
	}

	before, err := s.session.Detect(ctx, req.Text, detectors, threshold)
	if err != nil {
		return nil, err
	}
	s.recordDetection(ctx, req.Text, before)

	run, err := s.orchestrator.Run(ctx, req.Text, ids, req.Policy)
	if run != nil && run.State.Terminal() {
		s.recordRun(ctx, run)
	}
	if err != nil {
		return nil, err
	}

	after, err := s.session.Detect(ctx, run.FinalText, detectors, threshold)
	if err != nil {
		return nil, err
	}
	s.recordDetection(ctx, run.FinalText, after)

	v := &model.Verification{
		Before:      *before,
		After:       *after,
		Run:         *run,
		Improvement: before.Result.AIProbability - after.Result.AIProbability,
	}
	s.logger.Info("humanize and verify complete",
		"before", before.Result.AIProbability,
		"after", after.Result.AIProbability,
		"improvement", v.Improvement,
	)
	return v, nil
}

// paraphraser picks the generator for a paraphrase request.
func (s *Service) paraphraser(ctx context.Context, modelID string) (string, error) {
	if id := strings.TrimSpace(modelID); id != "" {
		return id, nil
	}
	current, err := s.state.Current(ctx)
	if err != nil {
		return "", err
	}
	if current != "" {
		return current, nil
	}
	rec, err := s.registry.Recommended(string(registry.DefaultGoal))
	if err != nil {
		return "", err
	}
	return rec.ID, nil
}

func rewriterID(enhanced bool) string {
	if enhanced {
		return registry.LocalRewriterEnhancedID
	}
	return registry.LocalRewriterID
}

func cleanIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			out = append(out, id)
		}
	}
	return out
}

// isRecoverable reports whether a generation error leaves the request
// intact: a failed or timed out model call, but not a bad request or a
// failed load.
func isRecoverable(err error) bool {
	return errors.Is(err, model.ErrInference) && !errors.Is(err, model.ErrLoad)
}
