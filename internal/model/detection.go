package model

import (
	"fmt"
	"math"
	"strings"
)

// Granularity selects how text is split into segments.
type Granularity string

const (
	// GranularitySentence splits on sentence boundaries.
	GranularitySentence Granularity = "sentence"
	// GranularityLine splits on line breaks.
	GranularityLine Granularity = "line"
	// GranularityChunk splits into fixed-size windows cut at whitespace.
	GranularityChunk Granularity = "chunk"
)

// ParseGranularity converts s into a Granularity.
// The empty string selects GranularitySentence.
func ParseGranularity(s string) (Granularity, error) {
	switch Granularity(strings.ToLower(strings.TrimSpace(s))) {
	case "", GranularitySentence:
		return GranularitySentence, nil
	case GranularityLine:
		return GranularityLine, nil
	case GranularityChunk:
		return GranularityChunk, nil
	default:
		return "", InvalidInput("unknown granularity %q", s)
	}
}

// Segment is a contiguous span of the input text.
// Start and End are byte offsets; Text equals input[Start:End].
type Segment struct {
	Index int    `json:"index"`
	Start int    `json:"start"`
	End   int    `json:"end"`
	Text  string `json:"text"`
}

// Len returns the segment length in bytes.
func (s Segment) Len() int {
	return s.End - s.Start
}

// DetectionVerdict is the answer of one detector for one text.
type DetectionVerdict struct {
	ModelID          string  `json:"model_id"`
	AIProbability    float64 `json:"ai_probability"`
	HumanProbability float64 `json:"human_probability"`
}

// NewVerdict builds a verdict, clamping p to [0,1].
func NewVerdict(modelID string, p float64) DetectionVerdict {
	p = Clamp01(p)
	return DetectionVerdict{
		ModelID:          modelID,
		AIProbability:    p,
		HumanProbability: 1 - p,
	}
}

// ModelFailure records a model call that did not produce a verdict.
type ModelFailure struct {
	ModelID  string `json:"model_id"`
	Error    string `json:"error"`
	TimedOut bool   `json:"timed_out,omitempty"`
}

// String implements fmt.Stringer.
func (f ModelFailure) String() string {
	if f.TimedOut {
		return fmt.Sprintf("%s: timed out", f.ModelID)
	}
	return fmt.Sprintf("%s: %s", f.ModelID, f.Error)
}

// Prediction is the categorical label of an ensemble result.
type Prediction string

const (
	// PredictionAI means the combined probability reached the threshold.
	PredictionAI Prediction = "AI"
	// PredictionHuman means the combined probability stayed below the threshold.
	PredictionHuman Prediction = "HUMAN"
)

// EnsembleResult is the combined verdict of several detectors.
// It is built once by the ensemble aggregator and never mutated.
// Contributing holds the aggregated verdicts sorted by model id.
type EnsembleResult struct {
	AIProbability    float64            `json:"ai_probability"`
	HumanProbability float64            `json:"human_probability"`
	IsAIGenerated    bool               `json:"is_ai_generated"`
	Confidence       float64            `json:"confidence"`
	Prediction       Prediction         `json:"prediction"`
	Threshold        float64            `json:"threshold"`
	Contributing     []DetectionVerdict `json:"contributing"`
}

// Detection is the outcome of a whole-text detection session.
type Detection struct {
	Result     EnsembleResult     `json:"result"`
	Verdicts   []DetectionVerdict `json:"individual_results"`
	Failures   []ModelFailure     `json:"failures,omitempty"`
	Models     []string           `json:"models_used"`
	TextLength int                `json:"text_length"`
	Duration   Duration           `json:"processing_time"`
}

// SegmentDetection is the detection outcome for one segment. Result is nil
// when every detector failed on the segment; Error then explains why.
type SegmentDetection struct {
	Segment  Segment            `json:"segment"`
	Result   *EnsembleResult    `json:"result,omitempty"`
	Verdicts []DetectionVerdict `json:"individual_results,omitempty"`
	Failures []ModelFailure     `json:"failures,omitempty"`
	Error    string             `json:"error,omitempty"`
}

// Failed reports whether no verdict exists for the segment.
func (s SegmentDetection) Failed() bool {
	return s.Result == nil
}

// SegmentSummary aggregates the per-segment results of one analysis.
type SegmentSummary struct {
	TotalSegments      int     `json:"total_segments"`
	AnalyzedSegments   int     `json:"analyzed_segments"`
	FlaggedSegments    int     `json:"ai_segments"`
	FlaggedPercentage  float64 `json:"ai_percentage"`
	OverallProbability float64 `json:"overall_ai_probability"`
	MeanConfidence     float64 `json:"mean_confidence"`
	Consistency        float64 `json:"consistency"`
}

// SegmentAnalysis is the outcome of a granular detection session.
type SegmentAnalysis struct {
	Granularity Granularity        `json:"granularity"`
	Threshold   float64            `json:"threshold"`
	Segments    []SegmentDetection `json:"segments"`
	Summary     SegmentSummary     `json:"summary"`
	Models      []string           `json:"models_used"`
	Duration    Duration           `json:"processing_time"`
}

// Clamp01 limits p to the closed interval [0,1]. NaN maps to 0.
func Clamp01(p float64) float64 {
	switch {
	case math.IsNaN(p):
		return 0
	case p < 0:
		return 0
	case p > 1:
		return 1
	default:
		return p
	}
}
