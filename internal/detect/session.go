package detect

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/nao1215/humanizer/internal/ensemble"
	"github.com/nao1215/humanizer/internal/inference"
	"github.com/nao1215/humanizer/internal/model"
	"github.com/nao1215/humanizer/internal/observability"
	"github.com/nao1215/humanizer/internal/resident"
	"github.com/nao1215/humanizer/internal/stats"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

// DefaultTimeout bounds a single detector call.
const DefaultTimeout = 30 * time.Second

// Session runs detectors and aggregates their verdicts.
// It is safe for concurrent use.
type Session struct {
	provider   inference.Provider
	state      *resident.State
	aggregator *ensemble.Aggregator
	timeout    time.Duration
	logger     *slog.Logger
}

// Option configures a Session.
type Option func(*Session)

// WithTimeout sets the per-call timeout. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(s *Session) {
		s.timeout = d
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		s.logger = logger
	}
}

// New creates a Session.
func New(provider inference.Provider, state *resident.State, aggregator *ensemble.Aggregator, opts ...Option) *Session {
	s := &Session{
		provider:   provider,
		state:      state,
		aggregator: aggregator,
		timeout:    DefaultTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// outcome is the slot filled by one detector call.
type outcome struct {
	verdict model.DetectionVerdict
	failure *model.ModelFailure
}

// Detect scores text with every model and aggregates the verdicts.
// models must be detectors; the caller resolves them from the registry.
func (s *Session) Detect(ctx context.Context, text string, models []model.ModelDescriptor, threshold float64) (*model.Detection, error) {
	if err := ensemble.ValidateThreshold(threshold); err != nil {
		return nil, err
	}
	if len(models) == 0 {
		return nil, model.InvalidInput("no detector selected")
	}

	ctx, span := observability.StartSpan(ctx, "detect.Detect",
		attribute.Int("humanizer.detectors", len(models)),
		observability.AttrTextRunes.Int(stats.CharCount(text)),
	)
	defer span.End()

	start := time.Now()
	outcomes := s.fanOut(ctx, []string{text}, models)[0]
	verdicts, failures := split(outcomes)

	det := &model.Detection{
		Verdicts:   verdicts,
		Failures:   failures,
		Models:     ids(models),
		TextLength: stats.CharCount(text),
	}

	result, err := s.aggregator.Aggregate(verdicts, threshold)
	det.Duration = model.Duration(time.Since(start))
	if err != nil {
		err = emptyEnsembleError(err, failures)
		observability.RecordError(span, err)
		return det, err
	}
	det.Result = result

	s.logger.Info("detection complete",
		"models", len(models),
		"failures", len(failures),
		"ai_probability", result.AIProbability,
		"prediction", result.Prediction,
		"elapsed", det.Duration.Std(),
	)
	return det, nil
}

// DetectSegments scores every segment with every model. A segment on which
// all detectors failed is kept in the result with its error. The analysis
// fails only when every segment failed.
func (s *Session) DetectSegments(ctx context.Context, segments []model.Segment, models []model.ModelDescriptor, threshold float64, granularity model.Granularity) (*model.SegmentAnalysis, error) {
	if err := ensemble.ValidateThreshold(threshold); err != nil {
		return nil, err
	}
	if len(models) == 0 {
		return nil, model.InvalidInput("no detector selected")
	}

	ctx, span := observability.StartSpan(ctx, "detect.DetectSegments",
		attribute.Int("humanizer.detectors", len(models)),
		attribute.Int("humanizer.segments", len(segments)),
	)
	defer span.End()

	start := time.Now()
	texts := make([]string, len(segments))
	for i, seg := range segments {
		texts[i] = seg.Text
	}
	grid := s.fanOut(ctx, texts, models)

	results := make([]model.SegmentDetection, len(segments))
	analyzed := 0
	for i, seg := range segments {
		verdicts, failures := split(grid[i])
		sd := model.SegmentDetection{
			Segment:  seg,
			Verdicts: verdicts,
			Failures: failures,
		}
		result, err := s.aggregator.Aggregate(verdicts, threshold)
		if err != nil {
			sd.Error = emptyEnsembleError(err, failures).Error()
		} else {
			sd.Result = &result
			analyzed++
		}
		results[i] = sd
	}

	analysis := &model.SegmentAnalysis{
		Granularity: granularity,
		Threshold:   threshold,
		Segments:    results,
		Summary:     stats.Segments(results, threshold),
		Models:      ids(models),
		Duration:    model.Duration(time.Since(start)),
	}

	if len(segments) > 0 && analyzed == 0 {
		err := &model.Error{Kind: model.ErrEmptyEnsemble, Err: errors.New("every detector failed on every segment")}
		observability.RecordError(span, err)
		return analysis, err
	}

	s.logger.Info("segment detection complete",
		"segments", len(segments),
		"analyzed", analyzed,
		"flagged", analysis.Summary.FlaggedSegments,
		"elapsed", analysis.Duration.Std(),
	)
	return analysis, nil
}

// fanOut calls every model on every text. The result is indexed
// [text][model] so that the call order never shows in the output.
// Concurrency is limited to the number of models.
func (s *Session) fanOut(ctx context.Context, texts []string, models []model.ModelDescriptor) [][]outcome {
	grid := make([][]outcome, len(texts))
	for i := range grid {
		grid[i] = make([]outcome, len(models))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(len(models))

	for ti, text := range texts {
		for mi, desc := range models {
			g.Go(func() error {
				p, err := s.score(gctx, desc, text)
				if err != nil {
					f := inference.Failure(desc.ID, err)
					grid[ti][mi] = outcome{failure: &f}
					s.logger.Warn("detector failed",
						"model", desc.ID,
						"timed_out", f.TimedOut,
						"error", err,
					)
					// Never fail the group: other detectors keep running.
					return nil
				}
				grid[ti][mi] = outcome{verdict: model.NewVerdict(desc.ID, p)}
				return nil
			})
		}
	}
	_ = g.Wait() //nolint:errcheck // goroutines never return errors

	return grid
}

// score makes sure the detector is resident and calls it once.
func (s *Session) score(ctx context.Context, desc model.ModelDescriptor, text string) (float64, error) {
	ctx, span := observability.StartSpan(ctx, "detect.score",
		observability.AttrModelID.String(desc.ID),
		observability.AttrModelRole.String(desc.Role.String()),
	)
	defer span.End()

	var err error
	if desc.Local {
		err = s.state.MarkDetector(ctx, desc.ID)
	} else {
		err = s.state.EnsureDetector(ctx, desc.ID)
	}
	if err != nil {
		observability.RecordError(span, err)
		return 0, err
	}

	scorer, err := s.provider.Scorer(desc.ID)
	if err != nil {
		observability.RecordError(span, err)
		return 0, err
	}

	p, err := inference.Call(ctx, desc.ID, s.timeout, func(ctx context.Context) (float64, error) {
		return scorer.Score(ctx, text)
	})
	if err != nil {
		span.SetAttributes(observability.AttrTimedOut.Bool(inference.IsTimeout(err)))
		observability.RecordError(span, err)
		return 0, err
	}
	return p, nil
}

func split(outcomes []outcome) ([]model.DetectionVerdict, []model.ModelFailure) {
	verdicts := make([]model.DetectionVerdict, 0, len(outcomes))
	var failures []model.ModelFailure
	for _, o := range outcomes {
		if o.failure != nil {
			failures = append(failures, *o.failure)
			continue
		}
		verdicts = append(verdicts, o.verdict)
	}
	return verdicts, failures
}

func ids(models []model.ModelDescriptor) []string {
	out := make([]string, len(models))
	for i, d := range models {
		out[i] = d.ID
	}
	return out
}

// emptyEnsembleError enriches an ErrEmptyEnsemble with the failures that
// caused it. Other errors pass through.
func emptyEnsembleError(err error, failures []model.ModelFailure) error {
	if !errors.Is(err, model.ErrEmptyEnsemble) || len(failures) == 0 {
		return err
	}
	msgs := make([]string, len(failures))
	for i, f := range failures {
		msgs[i] = f.String()
	}
	return &model.Error{
		Kind: model.ErrEmptyEnsemble,
		Err:  errors.New("all detectors failed: " + strings.Join(msgs, "; ")),
	}
}
