package report

import (
	"io"

	"github.com/nao1215/humanizer/internal/database"
	"github.com/nao1215/humanizer/internal/model"
	"github.com/nao1215/humanizer/internal/service"
)

// Writer renders humanizer results.
// Every method returns the number of bytes written.
type Writer interface {
	// WriteDetection renders a whole-text detection.
	WriteDetection(d *model.Detection) (int, error)

	// WriteSegments renders a granular detection.
	WriteSegments(a *model.SegmentAnalysis) (int, error)

	// WriteHighlight renders a highlighted text.
	WriteHighlight(h *service.HighlightResult) (int, error)

	// WriteGeneration renders a single paraphrase or rewrite.
	WriteGeneration(g *model.Generation) (int, error)

	// WriteHumanization renders the paraphrase-then-rewrite flow.
	WriteHumanization(h *model.Humanization) (int, error)

	// WriteRun renders a pipeline run.
	WriteRun(r *model.PipelineRun) (int, error)

	// WriteVerification renders a humanize-and-verify result.
	WriteVerification(v *model.Verification) (int, error)

	// WriteModels renders a model listing.
	WriteModels(l *service.ModelListing) (int, error)

	// WriteRunHistory renders stored pipeline runs.
	WriteRunHistory(runs []database.RunRecord) (int, error)

	// WriteDetectionHistory renders stored detections.
	WriteDetectionHistory(records []database.DetectionRecord) (int, error)
}

// Format names an output format.
type Format string

const (
	// FormatText is the plain text terminal format.
	FormatText Format = "text"
	// FormatJSON is indented JSON.
	FormatJSON Format = "json"
	// FormatMarkdown is GitHub flavored markdown.
	FormatMarkdown Format = "markdown"
)

// FormatFor maps the CLI report flags to a Format.
func FormatFor(jsonReport, markdownReport bool) Format {
	switch {
	case jsonReport:
		return FormatJSON
	case markdownReport:
		return FormatMarkdown
	default:
		return FormatText
	}
}

// New returns the writer for format. Unknown formats fall back to text.
func New(output io.Writer, format Format) Writer {
	switch format {
	case FormatJSON:
		return NewJSONWriter(output, WithPrettyPrint())
	case FormatMarkdown:
		return NewMarkdownWriter(output)
	default:
		return NewSimpleWriter(output)
	}
}

// baseWriter holds the destination shared by every writer.
type baseWriter struct {
	output io.Writer
}

func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

func (b baseWriter) writeString(s string) (int, error) {
	return io.WriteString(b.output, s)
}
