package service

import (
	"context"
	"errors"

	"github.com/nao1215/humanizer/internal/highlight"
	"github.com/nao1215/humanizer/internal/model"
	"github.com/nao1215/humanizer/internal/registry"
	"github.com/nao1215/humanizer/internal/segment"
)

// DetectRequest asks for a whole-text detection.
type DetectRequest struct {
	Text string
	// Threshold overrides the default threshold when set.
	Threshold *float64
	// Selection picks the detectors. Nil means the configured defaults.
	Selection *registry.Selection
}

// SegmentRequest asks for a granular detection.
type SegmentRequest struct {
	Text        string
	Threshold   *float64
	Selection   *registry.Selection
	Granularity model.Granularity
	// MinLength overrides the default minimum segment length when set.
	MinLength *int
	// ChunkSize overrides the default chunk window when positive.
	ChunkSize int
}

// HighlightRequest asks for a rendered highlight of the AI segments.
type HighlightRequest struct {
	SegmentRequest
	Format highlight.Format
}

// HighlightResult is the rendered text together with the analysis that
// produced it. NoAIContent is set when no segment reached the threshold.
type HighlightResult struct {
	Text           string                 `json:"highlighted_text"`
	Format         highlight.Format       `json:"format"`
	Flagged        int                    `json:"ai_segments_count"`
	Total          int                    `json:"total_segments"`
	FlaggedIndexes []int                  `json:"flagged_segments"`
	NoAIContent    bool                   `json:"no_ai_content"`
	Analysis       *model.SegmentAnalysis `json:"analysis"`
}

// Detect scores the whole text with the selected detectors.
func (s *Service) Detect(ctx context.Context, req DetectRequest) (*model.Detection, error) {
	if err := s.limits.checkDetect(req.Text); err != nil {
		return nil, err
	}
	models, err := s.detectorsFor(req.Selection)
	if err != nil {
		return nil, err
	}

	det, err := s.session.Detect(ctx, req.Text, models, s.thresholdOf(req.Threshold))
	if err != nil {
		return det, err
	}
	s.recordDetection(ctx, req.Text, det)
	return det, nil
}

// DetectSegments splits the text and scores every segment.
func (s *Service) DetectSegments(ctx context.Context, req SegmentRequest) (*model.SegmentAnalysis, error) {
	if err := s.limits.checkDetect(req.Text); err != nil {
		return nil, err
	}
	models, err := s.detectorsFor(req.Selection)
	if err != nil {
		return nil, err
	}
	opts := s.segmentOptions(req)
	segments, err := segment.Split(req.Text, opts)
	if err != nil {
		return nil, err
	}

	analysis, err := s.session.DetectSegments(ctx, segments, models, s.thresholdOf(req.Threshold), opts.Granularity)
	if err != nil {
		return analysis, err
	}
	s.recordSegments(ctx, req.Text, analysis)
	return analysis, nil
}

// Highlight runs a granular detection and renders the flagged segments.
// Finding no AI segment is reported through NoAIContent, not as an error.
func (s *Service) Highlight(ctx context.Context, req HighlightRequest) (*HighlightResult, error) {
	format, err := highlight.ParseFormat(string(req.Format))
	if err != nil {
		return nil, err
	}

	analysis, err := s.DetectSegments(ctx, req.SegmentRequest)
	if err != nil {
		return nil, err
	}

	rendered, err := highlight.Highlight(req.Text, highlight.FromSegments(analysis.Segments), analysis.Threshold, format)
	if err != nil && !errors.Is(err, highlight.ErrNoAIContent) {
		return nil, err
	}
	return &HighlightResult{
		Text:           rendered.Text,
		Format:         rendered.Format,
		Flagged:        rendered.Flagged,
		Total:          rendered.Total,
		FlaggedIndexes: rendered.FlaggedIndexes,
		NoAIContent:    errors.Is(err, highlight.ErrNoAIContent),
		Analysis:       analysis,
	}, nil
}

func (s *Service) detectorsFor(sel *registry.Selection) ([]model.ModelDescriptor, error) {
	switch {
	case sel != nil:
		return s.registry.Resolve(model.RoleDetector, *sel)
	case len(s.detectors) > 0:
		return s.registry.Resolve(model.RoleDetector, registry.Selected(s.detectors...))
	default:
		return s.registry.Resolve(model.RoleDetector, registry.All())
	}
}

func (s *Service) thresholdOf(t *float64) float64 {
	if t != nil {
		return *t
	}
	return s.threshold
}

func (s *Service) segmentOptions(req SegmentRequest) segment.Options {
	opts := s.segmentOpts
	if req.Granularity != "" {
		opts.Granularity = req.Granularity
	}
	if req.MinLength != nil {
		opts.MinLength = *req.MinLength
	}
	if req.ChunkSize > 0 {
		opts.ChunkSize = req.ChunkSize
	}
	if opts.Granularity == "" {
		opts.Granularity = model.GranularitySentence
	}
	return opts
}
