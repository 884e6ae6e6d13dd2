package httpserver

import (
	"github.com/nao1215/humanizer/internal/highlight"
	"github.com/nao1215/humanizer/internal/model"
	"github.com/nao1215/humanizer/internal/pipeline"
	"github.com/nao1215/humanizer/internal/registry"
	"github.com/nao1215/humanizer/internal/service"
)

// detectorSelection is embedded by every request that runs detectors.
// With no models and no top_n the configured default detectors run.
type detectorSelection struct {
	Models    []string `json:"models" validate:"omitempty,dive,notblank"`
	TopN      int      `json:"top_n" validate:"gte=0"`
	Criterion string   `json:"criterion" validate:"omitempty,oneof=performance speed accuracy"`
}

func (d detectorSelection) selection() (*registry.Selection, error) {
	if len(d.Models) == 0 && d.TopN == 0 {
		return nil, nil
	}
	sel, err := registry.ParseSelection(d.Models, d.TopN, d.Criterion)
	if err != nil {
		return nil, err
	}
	return &sel, nil
}

type detectRequest struct {
	Text      string   `json:"text" validate:"notblank"`
	Threshold *float64 `json:"threshold" validate:"omitempty,gte=0,lte=1"`
	detectorSelection
}

func (r detectRequest) toService() (service.DetectRequest, error) {
	sel, err := r.selection()
	if err != nil {
		return service.DetectRequest{}, err
	}
	return service.DetectRequest{Text: r.Text, Threshold: r.Threshold, Selection: sel}, nil
}

type segmentRequest struct {
	detectRequest
	Granularity string `json:"granularity" validate:"omitempty,granularity"`
	MinLength   *int   `json:"min_length" validate:"omitempty,gte=0"`
	ChunkSize   int    `json:"chunk_size" validate:"gte=0"`
}

func (r segmentRequest) toService() (service.SegmentRequest, error) {
	sel, err := r.selection()
	if err != nil {
		return service.SegmentRequest{}, err
	}
	g, err := model.ParseGranularity(r.Granularity)
	if err != nil {
		return service.SegmentRequest{}, err
	}
	return service.SegmentRequest{
		Text:        r.Text,
		Threshold:   r.Threshold,
		Selection:   sel,
		Granularity: g,
		MinLength:   r.MinLength,
		ChunkSize:   r.ChunkSize,
	}, nil
}

type highlightRequest struct {
	segmentRequest
	Format string `json:"format" validate:"omitempty,oneof=markdown html plain"`
}

func (r highlightRequest) toService() (service.HighlightRequest, error) {
	seg, err := r.segmentRequest.toService()
	if err != nil {
		return service.HighlightRequest{}, err
	}
	f, err := highlight.ParseFormat(r.Format)
	if err != nil {
		return service.HighlightRequest{}, err
	}
	return service.HighlightRequest{SegmentRequest: seg, Format: f}, nil
}

type loadModelRequest struct {
	Model string `json:"model" validate:"notblank"`
}

type paraphraseRequest struct {
	Text  string `json:"text" validate:"notblank"`
	Model string `json:"model"`
}

type rewriteRequest struct {
	Text     string `json:"text" validate:"notblank"`
	Enhanced bool   `json:"enhanced"`
}

type refineRequest struct {
	Text string `json:"text" validate:"notblank"`
}

type synonymRequest struct {
	Word string `json:"word" validate:"notblank"`
}

type pipelineRequest struct {
	Text   string   `json:"text" validate:"notblank"`
	Models []string `json:"models" validate:"omitempty,dive,notblank"`
	Policy string   `json:"policy" validate:"omitempty,policy"`
}

// humanizeRequest mirrors service.HumanizeRequest. Paraphrasing is on
// unless use_paraphrasing is false.
type humanizeRequest struct {
	Text       string `json:"text" validate:"notblank"`
	Paraphrase *bool  `json:"use_paraphrasing"`
	Enhanced   bool   `json:"use_enhanced_rewriting"`
	Model      string `json:"paraphrase_model"`
}

func (r humanizeRequest) toService() service.HumanizeRequest {
	paraphrase := true
	if r.Paraphrase != nil {
		paraphrase = *r.Paraphrase
	}
	return service.HumanizeRequest{
		Text:       r.Text,
		Paraphrase: paraphrase,
		Enhanced:   r.Enhanced,
		ModelID:    r.Model,
	}
}

type verifyRequest struct {
	Text           string            `json:"text" validate:"notblank"`
	PipelineModels []string          `json:"pipeline_models" validate:"omitempty,dive,notblank"`
	Policy         string            `json:"policy" validate:"omitempty,policy"`
	Threshold      *float64          `json:"threshold" validate:"omitempty,gte=0,lte=1"`
	Detectors      detectorSelection `json:"detectors"`
}

func (r verifyRequest) toService() (service.VerifyRequest, error) {
	sel, err := r.Detectors.selection()
	if err != nil {
		return service.VerifyRequest{}, err
	}
	policy, err := pipeline.ParsePolicy(r.Policy)
	if err != nil {
		return service.VerifyRequest{}, err
	}
	return service.VerifyRequest{
		Text:      r.Text,
		ModelIDs:  r.PipelineModels,
		Policy:    policy,
		Threshold: r.Threshold,
		Selection: sel,
	}, nil
}
