package stats

import (
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/nao1215/humanizer/internal/model"
)

// CharCount returns the number of runes in s.
func CharCount(s string) int {
	return utf8.RuneCountInString(s)
}

// WordCount returns the number of whitespace separated words in s.
func WordCount(s string) int {
	return len(strings.Fields(s))
}

// Percentage returns flagged/total in percent. It returns 0 when total is 0.
func Percentage(flagged, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(flagged) / float64(total) * 100
}

// LengthChange returns the rune count of after minus that of before.
func LengthChange(before, after string) int {
	return CharCount(after) - CharCount(before)
}

// Mean returns the arithmetic mean of xs, or 0 for an empty slice.
func Mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// StdDev returns the population standard deviation of xs.
func StdDev(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	m := Mean(xs)
	var sq float64
	for _, x := range xs {
		sq += (x - m) * (x - m)
	}
	return math.Sqrt(sq / float64(len(xs)))
}

// Generation summarizes one generator call.
func Generation(original, output string, d time.Duration) model.GenerationStatistics {
	return model.GenerationStatistics{
		OriginalLength: CharCount(original),
		OutputLength:   CharCount(output),
		LengthChange:   LengthChange(original, output),
		OriginalWords:  WordCount(original),
		OutputWords:    WordCount(output),
		Duration:       model.Duration(d),
	}
}

// Pipeline summarizes a pipeline run.
func Pipeline(original, final string, steps []model.PipelineStep) model.PipelineStatistics {
	st := model.PipelineStatistics{
		PipelineSteps:     len(steps),
		OriginalLength:    CharCount(original),
		FinalLength:       CharCount(final),
		TotalLengthChange: LengthChange(original, final),
	}

	var total time.Duration
	for _, s := range steps {
		if s.Success {
			st.SuccessfulSteps++
		} else {
			st.FailedSteps++
		}
		total += s.Duration.Std()
	}
	st.TotalProcessingTime = model.Duration(total)
	if len(steps) > 0 {
		st.AverageProcessingTime = model.Duration(total / time.Duration(len(steps)))
	}
	return st
}

// Segments summarizes a granular analysis. Failed segments count towards the
// total but not towards the probability statistics. Consistency is 1 minus
// the standard deviation of the segment probabilities: 1 for a single
// analyzed segment, 0 when none was analyzed.
func Segments(results []model.SegmentDetection, threshold float64) model.SegmentSummary {
	sum := model.SegmentSummary{TotalSegments: len(results)}

	probs := make([]float64, 0, len(results))
	confidences := make([]float64, 0, len(results))
	for _, r := range results {
		if r.Result == nil {
			continue
		}
		probs = append(probs, r.Result.AIProbability)
		confidences = append(confidences, r.Result.Confidence)
		if r.Result.AIProbability >= threshold {
			sum.FlaggedSegments++
		}
	}

	sum.AnalyzedSegments = len(probs)
	sum.FlaggedPercentage = Percentage(sum.FlaggedSegments, sum.TotalSegments)
	sum.OverallProbability = Mean(probs)
	sum.MeanConfidence = Mean(confidences)

	switch len(probs) {
	case 0:
		sum.Consistency = 0
	case 1:
		sum.Consistency = 1
	default:
		sum.Consistency = math.Max(0, 1-StdDev(probs))
	}
	return sum
}
