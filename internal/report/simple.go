package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/humanizer/internal/database"
	"github.com/nao1215/humanizer/internal/model"
	"github.com/nao1215/humanizer/internal/service"
)

// ruleWidth is the width of the "=" banners.
const ruleWidth = 70

// snippetLength is how many runes of a segment or step text are shown
// without WithVerbose.
const snippetLength = 60

// SimpleWriter outputs plain text for terminal display.
type SimpleWriter struct {
	baseWriter

	// verbose prints full segment and step texts instead of snippets.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose prints full texts instead of truncated snippets.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// WriteDetection implements Writer.
func (w *SimpleWriter) WriteDetection(d *model.Detection) (int, error) {
	var sb strings.Builder
	writeBanner(&sb, "AI TEXT DETECTION")
	writeEnsemble(&sb, d.Result)
	fmt.Fprintf(&sb, "Text Length:    %d\n", d.TextLength)
	fmt.Fprintf(&sb, "Time:           %s\n\n", d.Duration)

	sb.WriteString("Detectors:\n")
	for _, v := range d.Verdicts {
		fmt.Fprintf(&sb, "  %-40s %s\n", v.ModelID, percent(v.AIProbability))
	}
	writeFailures(&sb, d.Failures)
	return w.writeString(sb.String())
}

// WriteSegments implements Writer.
func (w *SimpleWriter) WriteSegments(a *model.SegmentAnalysis) (int, error) {
	var sb strings.Builder
	writeBanner(&sb, "SEGMENT ANALYSIS")
	s := a.Summary
	fmt.Fprintf(&sb, "Granularity:    %s\n", a.Granularity)
	fmt.Fprintf(&sb, "Threshold:      %s\n", percent(a.Threshold))
	fmt.Fprintf(&sb, "Segments:       %d (%d analyzed)\n", s.TotalSegments, s.AnalyzedSegments)
	fmt.Fprintf(&sb, "AI Segments:    %d (%.1f%%)\n", s.FlaggedSegments, s.FlaggedPercentage)
	fmt.Fprintf(&sb, "Overall AI:     %s\n", percent(s.OverallProbability))
	fmt.Fprintf(&sb, "Confidence:     %s\n", percent(s.MeanConfidence))
	fmt.Fprintf(&sb, "Consistency:    %s\n", percent(s.Consistency))
	fmt.Fprintf(&sb, "Time:           %s\n\n", a.Duration)

	for _, seg := range a.Segments {
		fmt.Fprintf(&sb, "[%3d] %s  %s\n", seg.Segment.Index, segmentLabel(seg), w.snippet(seg.Segment.Text))
	}
	return w.writeString(sb.String())
}

// WriteHighlight implements Writer. Only the highlighted text and a one
// line summary are printed.
func (w *SimpleWriter) WriteHighlight(h *service.HighlightResult) (int, error) {
	var sb strings.Builder
	sb.WriteString(h.Text)
	if !strings.HasSuffix(h.Text, "\n") {
		sb.WriteString("\n")
	}
	sb.WriteString("\n")
	if h.NoAIContent {
		fmt.Fprintf(&sb, "No AI generated content detected in %d segments.\n", h.Total)
	} else {
		fmt.Fprintf(&sb, "%d of %d segments flagged as AI generated.\n", h.Flagged, h.Total)
	}
	return w.writeString(sb.String())
}

// WriteGeneration implements Writer.
func (w *SimpleWriter) WriteGeneration(g *model.Generation) (int, error) {
	var sb strings.Builder
	writeBanner(&sb, "GENERATION")
	fmt.Fprintf(&sb, "Model:          %s\n", g.ModelID)
	st := g.Statistics
	fmt.Fprintf(&sb, "Length:         %d -> %d (%+d)\n", st.OriginalLength, st.OutputLength, st.LengthChange)
	fmt.Fprintf(&sb, "Words:          %d -> %d\n", st.OriginalWords, st.OutputWords)
	fmt.Fprintf(&sb, "Time:           %s\n\n", st.Duration)
	sb.WriteString(g.Text)
	sb.WriteString("\n")
	return w.writeString(sb.String())
}

// WriteHumanization implements Writer.
func (w *SimpleWriter) WriteHumanization(h *model.Humanization) (int, error) {
	var sb strings.Builder
	writeBanner(&sb, "HUMANIZED TEXT")
	for i, st := range h.Stages {
		fmt.Fprintf(&sb, "Stage %d:        %s (%s)\n", i+1, st.ModelID, st.Statistics.Duration)
	}
	fmt.Fprintf(&sb, "Time:           %s\n", h.Duration)
	writeFailures(&sb, h.Failures)
	sb.WriteString("\n")
	sb.WriteString(h.Text)
	sb.WriteString("\n")
	return w.writeString(sb.String())
}

// WriteRun implements Writer.
func (w *SimpleWriter) WriteRun(r *model.PipelineRun) (int, error) {
	var sb strings.Builder
	writeBanner(&sb, "HUMANIZATION PIPELINE")
	w.writeRunBody(&sb, r)
	return w.writeString(sb.String())
}

// WriteVerification implements Writer.
func (w *SimpleWriter) WriteVerification(v *model.Verification) (int, error) {
	var sb strings.Builder
	writeBanner(&sb, "HUMANIZE AND VERIFY")
	fmt.Fprintf(&sb, "Before:         %s (%s)\n", percent(v.Before.Result.AIProbability), v.Before.Result.Prediction)
	fmt.Fprintf(&sb, "After:          %s (%s)\n", percent(v.After.Result.AIProbability), v.After.Result.Prediction)
	fmt.Fprintf(&sb, "Improvement:    %+.1f points\n\n", v.Improvement*100)
	w.writeRunBody(&sb, &v.Run)
	return w.writeString(sb.String())
}

// WriteModels implements Writer.
func (w *SimpleWriter) WriteModels(l *service.ModelListing) (int, error) {
	var sb strings.Builder
	writeBanner(&sb, "MODELS")
	fmt.Fprintf(&sb, "Resident generator: %s\n", orNone(l.CurrentModel))
	fmt.Fprintf(&sb, "Resident detectors: %s\n\n", orNone(strings.Join(l.ResidentDetectors, ", ")))
	fmt.Fprintf(&sb, "%-42s %-9s %4s %5s %4s %s\n", "ID", "ROLE", "PERF", "SPEED", "ACC", "LOCAL")
	for _, m := range l.Models {
		local := ""
		if m.Local {
			local = "yes"
		}
		fmt.Fprintf(&sb, "%-42s %-9s %4d %5d %4d %s\n",
			m.ID, m.Role, m.PerformanceRank, m.SpeedRank, m.AccuracyRank, local)
	}
	return w.writeString(sb.String())
}

// WriteRunHistory implements Writer.
func (w *SimpleWriter) WriteRunHistory(runs []database.RunRecord) (int, error) {
	var sb strings.Builder
	writeBanner(&sb, "PIPELINE HISTORY")
	if len(runs) == 0 {
		sb.WriteString("No pipeline runs recorded.\n")
		return w.writeString(sb.String())
	}
	for _, r := range runs {
		fmt.Fprintf(&sb, "%s  %s  %-8s %d/%d steps  %s\n",
			r.Timestamp.Format("2006-01-02 15:04:05"), r.ID, r.State,
			r.SuccessfulSteps, len(r.Steps), strings.Join(r.Models, " -> "))
	}
	return w.writeString(sb.String())
}

// WriteDetectionHistory implements Writer.
func (w *SimpleWriter) WriteDetectionHistory(records []database.DetectionRecord) (int, error) {
	var sb strings.Builder
	writeBanner(&sb, "DETECTION HISTORY")
	if len(records) == 0 {
		sb.WriteString("No detections recorded.\n")
		return w.writeString(sb.String())
	}
	for _, r := range records {
		fmt.Fprintf(&sb, "%s  %-8s %7s  %-5s %s\n",
			r.Timestamp.Format("2006-01-02 15:04:05"), r.Kind, percent(r.AIProbability),
			verdictLabel(r.IsAIGenerated), r.TextDigest[:min(12, len(r.TextDigest))])
	}
	return w.writeString(sb.String())
}

func (w *SimpleWriter) writeRunBody(sb *strings.Builder, r *model.PipelineRun) {
	st := r.Statistics
	fmt.Fprintf(sb, "Run:            %s\n", r.ID)
	fmt.Fprintf(sb, "State:          %s\n", r.State)
	fmt.Fprintf(sb, "Steps:          %d succeeded, %d failed\n", st.SuccessfulSteps, st.FailedSteps)
	fmt.Fprintf(sb, "Length:         %d -> %d (%+d)\n", st.OriginalLength, st.FinalLength, st.TotalLengthChange)
	fmt.Fprintf(sb, "Time:           %s\n\n", st.TotalProcessingTime)

	for _, s := range r.Steps {
		if s.Success {
			fmt.Fprintf(sb, "  %d. [OK]   %s (%s)\n", s.StepIndex, s.ModelID, s.Duration)
			if w.verbose {
				fmt.Fprintf(sb, "       %s\n", s.OutputText)
			}
			continue
		}
		reason := s.Error
		if s.TimedOut {
			reason = "timed out"
		}
		fmt.Fprintf(sb, "  %d. [FAIL] %s: %s\n", s.StepIndex, s.ModelID, reason)
	}

	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", ruleWidth))
	sb.WriteString("\n")
	sb.WriteString(r.FinalText)
	sb.WriteString("\n")
}

func (w *SimpleWriter) snippet(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if w.verbose {
		return s
	}
	return truncateString(s, snippetLength)
}

func writeBanner(sb *strings.Builder, title string) {
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")
	pad := max(0, (ruleWidth-len(title))/2)
	sb.WriteString(strings.Repeat(" ", pad))
	sb.WriteString(title)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n\n")
}

func writeEnsemble(sb *strings.Builder, r model.EnsembleResult) {
	fmt.Fprintf(sb, "Prediction:     %s\n", r.Prediction)
	fmt.Fprintf(sb, "AI Probability: %s\n", percent(r.AIProbability))
	fmt.Fprintf(sb, "Confidence:     %s\n", percent(r.Confidence))
	fmt.Fprintf(sb, "Threshold:      %s\n", percent(r.Threshold))
}

func writeFailures(sb *strings.Builder, failures []model.ModelFailure) {
	if len(failures) == 0 {
		return
	}
	sb.WriteString("\nFailed models:\n")
	for _, f := range failures {
		fmt.Fprintf(sb, "  %s\n", f)
	}
}

func segmentLabel(seg model.SegmentDetection) string {
	if seg.Failed() {
		return "  ERROR"
	}
	mark := " "
	if seg.Result.IsAIGenerated {
		mark = "*"
	}
	return fmt.Sprintf("%s%6s", mark, percent(seg.Result.AIProbability))
}

func verdictLabel(ai bool) string {
	if ai {
		return string(model.PredictionAI)
	}
	return string(model.PredictionHuman)
}

func percent(p float64) string {
	return fmt.Sprintf("%.1f%%", p*100)
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}

// truncateString shortens s to maxLen runes, ending it with "...".
func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
