package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/humanizer/internal/database"
	"github.com/nao1215/humanizer/internal/highlight"
	"github.com/nao1215/humanizer/internal/model"
	"github.com/nao1215/humanizer/internal/service"
)

// MarkdownWriter outputs GitHub flavored markdown.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{baseWriter: newBaseWriter(output)}
}

// render builds a document with fn and writes it out.
func (w *MarkdownWriter) render(fn func(md *markdown.Markdown)) (int, error) {
	md := markdown.NewMarkdown(w.output)
	fn(md)
	writeFooter(md)
	return len(md.String()), md.Build()
}

// WriteDetection implements Writer.
func (w *MarkdownWriter) WriteDetection(d *model.Detection) (int, error) {
	return w.render(func(md *markdown.Markdown) {
		md.H1("AI Text Detection")
		md.PlainText("")
		writeVerdictAlert(md, d.Result)
		md.Table(markdown.TableSet{
			Header: []string{"Item", "Value"},
			Rows: [][]string{
				{"Prediction", string(d.Result.Prediction)},
				{"AI Probability", percent(d.Result.AIProbability)},
				{"Confidence", percent(d.Result.Confidence)},
				{"Threshold", percent(d.Result.Threshold)},
				{"Text Length", strconv.Itoa(d.TextLength)},
				{"Processing Time", d.Duration.String()},
			},
		})
		md.PlainText("")

		md.H2("Detectors")
		md.PlainText("")
		rows := make([][]string, 0, len(d.Verdicts))
		for _, v := range d.Verdicts {
			rows = append(rows, []string{v.ModelID, percent(v.AIProbability), percent(v.HumanProbability)})
		}
		md.Table(markdown.TableSet{
			Header: []string{"Model", "AI", "Human"},
			Rows:   rows,
		})
		md.PlainText("")
		writeFailureSection(md, d.Failures)
	})
}

// WriteSegments implements Writer.
func (w *MarkdownWriter) WriteSegments(a *model.SegmentAnalysis) (int, error) {
	return w.render(func(md *markdown.Markdown) {
		md.H1("Segment Analysis")
		md.PlainText("")
		writeSegmentSummary(md, a)
		writeSegmentTable(md, a)
	})
}

// WriteHighlight implements Writer. The highlighted text is emitted as is,
// so markdown emphasis renders and HTML marks survive in a code block.
func (w *MarkdownWriter) WriteHighlight(h *service.HighlightResult) (int, error) {
	return w.render(func(md *markdown.Markdown) {
		md.H1("Highlighted Text")
		md.PlainText("")
		if h.NoAIContent {
			md.Tip(fmt.Sprintf("No AI generated content detected in %d segments.", h.Total))
		} else {
			md.Warningf("%d of %d segments flagged as AI generated.", h.Flagged, h.Total)
		}
		md.PlainText("")
		switch h.Format {
		case highlight.FormatHTML:
			md.CodeBlocks(markdown.SyntaxHighlight("html"), h.Text)
		case highlight.FormatPlain:
			md.CodeBlocks(markdown.SyntaxHighlight("text"), h.Text)
		default:
			md.PlainText(h.Text)
		}
		md.PlainText("")
		if h.Analysis != nil {
			writeSegmentSummary(md, h.Analysis)
		}
	})
}

// WriteGeneration implements Writer.
func (w *MarkdownWriter) WriteGeneration(g *model.Generation) (int, error) {
	return w.render(func(md *markdown.Markdown) {
		md.H1("Generation")
		md.PlainText("")
		writeGenerationTable(md, g)
		md.H2("Output")
		md.PlainText("")
		md.PlainText(g.Text)
		md.PlainText("")
		md.Details("Original text", g.OriginalText)
		md.PlainText("")
	})
}

// WriteHumanization implements Writer.
func (w *MarkdownWriter) WriteHumanization(h *model.Humanization) (int, error) {
	return w.render(func(md *markdown.Markdown) {
		md.H1("Humanized Text")
		md.PlainText("")
		if len(h.Failures) > 0 {
			md.Importantf("%d stage(s) failed; their input was kept.", len(h.Failures))
			md.PlainText("")
		}
		rows := make([][]string, 0, len(h.Stages))
		for i, st := range h.Stages {
			rows = append(rows, []string{
				strconv.Itoa(i + 1),
				st.ModelID,
				fmt.Sprintf("%+d", st.Statistics.LengthChange),
				st.Statistics.Duration.String(),
			})
		}
		md.Table(markdown.TableSet{
			Header: []string{"Stage", "Model", "Length Change", "Time"},
			Rows:   rows,
		})
		md.PlainText("")
		md.H2("Output")
		md.PlainText("")
		md.PlainText(h.Text)
		md.PlainText("")
		writeFailureSection(md, h.Failures)
	})
}

// WriteRun implements Writer.
func (w *MarkdownWriter) WriteRun(r *model.PipelineRun) (int, error) {
	return w.render(func(md *markdown.Markdown) {
		md.H1("Humanization Pipeline")
		md.PlainText("")
		writeRunSection(md, r)
	})
}

// WriteVerification implements Writer.
func (w *MarkdownWriter) WriteVerification(v *model.Verification) (int, error) {
	return w.render(func(md *markdown.Markdown) {
		md.H1("Humanize and Verify")
		md.PlainText("")
		switch {
		case v.After.Result.IsAIGenerated:
			md.Warningf("The output is still detected as AI generated (%s).", percent(v.After.Result.AIProbability))
		case v.Improvement > 0:
			md.Tip(fmt.Sprintf("AI probability dropped by %.1f points.", v.Improvement*100))
		default:
			md.Note("The output is not detected as AI generated.")
		}
		md.PlainText("")
		md.Table(markdown.TableSet{
			Header: []string{"", "AI Probability", "Prediction"},
			Rows: [][]string{
				{"Before", percent(v.Before.Result.AIProbability), string(v.Before.Result.Prediction)},
				{"After", percent(v.After.Result.AIProbability), string(v.After.Result.Prediction)},
			},
		})
		md.PlainText("")
		writeRunSection(md, &v.Run)
	})
}

// WriteModels implements Writer.
func (w *MarkdownWriter) WriteModels(l *service.ModelListing) (int, error) {
	return w.render(func(md *markdown.Markdown) {
		md.H1("Models")
		md.PlainText("")
		md.BulletList(
			"Resident generator: "+orNone(l.CurrentModel),
			"Resident detectors: "+orNone(strings.Join(l.ResidentDetectors, ", ")),
		)
		md.PlainText("")
		rows := make([][]string, 0, len(l.Models))
		for _, m := range l.Models {
			local := "-"
			if m.Local {
				local = "yes"
			}
			rows = append(rows, []string{
				m.ID, m.DisplayName, string(m.Role),
				strconv.Itoa(m.PerformanceRank), strconv.Itoa(m.SpeedRank), strconv.Itoa(m.AccuracyRank),
				local,
			})
		}
		md.Table(markdown.TableSet{
			Header: []string{"ID", "Name", "Role", "Performance", "Speed", "Accuracy", "Local"},
			Rows:   rows,
		})
		md.PlainText("")
	})
}

// WriteRunHistory implements Writer.
func (w *MarkdownWriter) WriteRunHistory(runs []database.RunRecord) (int, error) {
	return w.render(func(md *markdown.Markdown) {
		md.H1("Pipeline History")
		md.PlainText("")
		if len(runs) == 0 {
			md.PlainText("No pipeline runs recorded.")
			md.PlainText("")
			return
		}
		rows := make([][]string, 0, len(runs))
		for _, r := range runs {
			rows = append(rows, []string{
				r.Timestamp.Format("2006-01-02 15:04:05"), r.ID, r.State,
				fmt.Sprintf("%d/%d", r.SuccessfulSteps, len(r.Steps)),
				cell(strings.Join(r.Models, " → ")),
			})
		}
		md.Table(markdown.TableSet{
			Header: []string{"Time", "Run", "State", "Steps", "Models"},
			Rows:   rows,
		})
		md.PlainText("")
	})
}

// WriteDetectionHistory implements Writer.
func (w *MarkdownWriter) WriteDetectionHistory(records []database.DetectionRecord) (int, error) {
	return w.render(func(md *markdown.Markdown) {
		md.H1("Detection History")
		md.PlainText("")
		if len(records) == 0 {
			md.PlainText("No detections recorded.")
			md.PlainText("")
			return
		}
		rows := make([][]string, 0, len(records))
		for _, r := range records {
			rows = append(rows, []string{
				r.Timestamp.Format("2006-01-02 15:04:05"), r.Kind,
				percent(r.AIProbability), verdictLabel(r.IsAIGenerated),
				strconv.Itoa(r.TextLength), cell(strings.Join(r.Models, ", ")),
			})
		}
		md.Table(markdown.TableSet{
			Header: []string{"Time", "Kind", "AI", "Prediction", "Length", "Models"},
			Rows:   rows,
		})
		md.PlainText("")
	})
}

func writeVerdictAlert(md *markdown.Markdown, r model.EnsembleResult) {
	if r.IsAIGenerated {
		md.Cautionf("Likely AI generated: %s AI probability.", percent(r.AIProbability))
	} else {
		md.Note(fmt.Sprintf("Likely human written: %s AI probability.", percent(r.AIProbability)))
	}
	md.PlainText("")
}

func writeSegmentSummary(md *markdown.Markdown, a *model.SegmentAnalysis) {
	s := a.Summary
	md.H2("Summary")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Item", "Value"},
		Rows: [][]string{
			{"Granularity", string(a.Granularity)},
			{"Segments", fmt.Sprintf("%d (%d analyzed)", s.TotalSegments, s.AnalyzedSegments)},
			{"AI Segments", fmt.Sprintf("%d (%.1f%%)", s.FlaggedSegments, s.FlaggedPercentage)},
			{"Overall AI Probability", percent(s.OverallProbability)},
			{"Mean Confidence", percent(s.MeanConfidence)},
			{"Consistency", percent(s.Consistency)},
			{"Threshold", percent(a.Threshold)},
		},
	})
	md.PlainText("")
	writeSegmentPieChart(md, s)
}

// writeSegmentPieChart writes a mermaid pie chart of AI versus human
// segments. Nothing is written when no segment was analyzed.
func writeSegmentPieChart(md *markdown.Markdown, s model.SegmentSummary) {
	if s.AnalyzedSegments == 0 {
		return
	}
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Segment Classification"),
		piechart.WithShowData(true),
	)
	if s.FlaggedSegments > 0 {
		chart.LabelAndIntValue("AI", uint64(s.FlaggedSegments)) //nolint:gosec // counts are non-negative
	}
	if human := s.AnalyzedSegments - s.FlaggedSegments; human > 0 {
		chart.LabelAndIntValue("Human", uint64(human)) //nolint:gosec // counts are non-negative
	}
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

func writeSegmentTable(md *markdown.Markdown, a *model.SegmentAnalysis) {
	md.H2("Segments")
	md.PlainText("")
	rows := make([][]string, 0, len(a.Segments))
	for _, seg := range a.Segments {
		prob, pred := "-", "ERROR"
		if !seg.Failed() {
			prob = percent(seg.Result.AIProbability)
			pred = string(seg.Result.Prediction)
		}
		rows = append(rows, []string{
			strconv.Itoa(seg.Segment.Index), pred, prob,
			cell(truncateString(seg.Segment.Text, snippetLength)),
		})
	}
	md.Table(markdown.TableSet{
		Header: []string{"#", "Prediction", "AI", "Text"},
		Rows:   rows,
	})
	md.PlainText("")
}

func writeGenerationTable(md *markdown.Markdown, g *model.Generation) {
	st := g.Statistics
	md.Table(markdown.TableSet{
		Header: []string{"Item", "Value"},
		Rows: [][]string{
			{"Model", g.ModelID},
			{"Length", fmt.Sprintf("%d → %d (%+d)", st.OriginalLength, st.OutputLength, st.LengthChange)},
			{"Words", fmt.Sprintf("%d → %d", st.OriginalWords, st.OutputWords)},
			{"Processing Time", st.Duration.String()},
		},
	})
	md.PlainText("")
}

func writeRunSection(md *markdown.Markdown, r *model.PipelineRun) {
	st := r.Statistics
	if r.State == model.RunAborted {
		md.Cautionf("Run aborted after %d step(s): a model could not be loaded.", len(r.Steps))
		md.PlainText("")
	}
	md.Table(markdown.TableSet{
		Header: []string{"Item", "Value"},
		Rows: [][]string{
			{"Run", r.ID},
			{"State", string(r.State)},
			{"Steps", fmt.Sprintf("%d succeeded, %d failed", st.SuccessfulSteps, st.FailedSteps)},
			{"Length", fmt.Sprintf("%d → %d (%+d)", st.OriginalLength, st.FinalLength, st.TotalLengthChange)},
			{"Processing Time", st.TotalProcessingTime.String()},
		},
	})
	md.PlainText("")

	md.H2("Steps")
	md.PlainText("")
	rows := make([][]string, 0, len(r.Steps))
	for _, s := range r.Steps {
		detail := s.Error
		if s.TimedOut {
			detail = "timed out"
		}
		if detail == "" {
			detail = "-"
		}
		rows = append(rows, []string{
			strconv.Itoa(s.StepIndex), s.ModelID, string(s.Status), s.Duration.String(), cell(detail),
		})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Step", "Model", "Status", "Time", "Error"},
		Rows:   rows,
	})
	md.PlainText("")

	md.H2("Output")
	md.PlainText("")
	md.PlainText(r.FinalText)
	md.PlainText("")
}

func writeFailureSection(md *markdown.Markdown, failures []model.ModelFailure) {
	if len(failures) == 0 {
		return
	}
	md.H2("Failed Models")
	md.PlainText("")
	items := make([]string, 0, len(failures))
	for _, f := range failures {
		items = append(items, f.String())
	}
	md.BulletList(items...)
	md.PlainText("")
}

func writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [humanizer](https://github.com/nao1215/humanizer)*")
}

// cell makes s safe inside a table cell.
func cell(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	return strings.ReplaceAll(s, "|", `\|`)
}
