package service

import (
	"context"

	"github.com/nao1215/humanizer/internal/database"
	"github.com/nao1215/humanizer/internal/model"
)

// History stores and lists results. *database.HistoryDB implements it.
type History interface {
	SaveDetection(ctx context.Context, text string, d *model.Detection) (int64, error)
	SaveSegmentAnalysis(ctx context.Context, text string, a *model.SegmentAnalysis) (int64, error)
	SaveRun(ctx context.Context, run *model.PipelineRun) error
	ListDetections(ctx context.Context, digest string, limit int) ([]database.DetectionRecord, error)
	ListRuns(ctx context.Context, limit int) ([]database.RunRecord, error)
	GetRun(ctx context.Context, id string) (*database.RunRecord, error)
}

var _ History = (*database.HistoryDB)(nil)

// HistoryEnabled reports whether results are recorded.
func (s *Service) HistoryEnabled() bool {
	return s.history != nil
}

// DetectionHistory lists recorded detections, newest first. A non-empty
// text restricts the list to detections of that exact text.
func (s *Service) DetectionHistory(ctx context.Context, text string, limit int) ([]database.DetectionRecord, error) {
	if s.history == nil {
		return nil, ErrHistoryDisabled
	}
	digest := ""
	if text != "" {
		digest = database.Digest(text)
	}
	return s.history.ListDetections(ctx, digest, limit)
}

// RunHistory lists recorded pipeline runs, newest first.
func (s *Service) RunHistory(ctx context.Context, limit int) ([]database.RunRecord, error) {
	if s.history == nil {
		return nil, ErrHistoryDisabled
	}
	return s.history.ListRuns(ctx, limit)
}

// Run returns one recorded pipeline run.
func (s *Service) Run(ctx context.Context, id string) (*database.RunRecord, error) {
	if s.history == nil {
		return nil, ErrHistoryDisabled
	}
	return s.history.GetRun(ctx, id)
}

func (s *Service) recordDetection(ctx context.Context, text string, d *model.Detection) {
	if s.history == nil {
		return
	}
	if _, err := s.history.SaveDetection(context.WithoutCancel(ctx), text, d); err != nil {
		s.logger.Warn("failed to record detection", "error", err)
	}
}

func (s *Service) recordSegments(ctx context.Context, text string, a *model.SegmentAnalysis) {
	if s.history == nil {
		return
	}
	if _, err := s.history.SaveSegmentAnalysis(context.WithoutCancel(ctx), text, a); err != nil {
		s.logger.Warn("failed to record segment analysis", "error", err)
	}
}

func (s *Service) recordRun(ctx context.Context, run *model.PipelineRun) {
	if s.history == nil {
		return
	}
	if err := s.history.SaveRun(context.WithoutCancel(ctx), run); err != nil {
		s.logger.Warn("failed to record pipeline run", "run_id", run.ID, "error", err)
	}
}
