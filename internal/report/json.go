package report

import (
	"encoding/json"
	"io"

	"github.com/nao1215/humanizer/internal/database"
	"github.com/nao1215/humanizer/internal/model"
	"github.com/nao1215/humanizer/internal/service"
)

// JSONWriter outputs results as JSON, using the same field names as the
// HTTP API.
type JSONWriter struct {
	baseWriter

	// indent enables pretty-printed output.
	indent       bool
	indentPrefix string
	indentString string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON output.
// The prefix is prepended to each line, and indent is used for each level.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint is WithIndent("", "  ").
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
// Output is compact unless an indent option is given.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// WriteDetection implements Writer.
func (w *JSONWriter) WriteDetection(d *model.Detection) (int, error) {
	return w.writeJSON(d)
}

// WriteSegments implements Writer.
func (w *JSONWriter) WriteSegments(a *model.SegmentAnalysis) (int, error) {
	return w.writeJSON(a)
}

// WriteHighlight implements Writer.
func (w *JSONWriter) WriteHighlight(h *service.HighlightResult) (int, error) {
	return w.writeJSON(h)
}

// WriteGeneration implements Writer.
func (w *JSONWriter) WriteGeneration(g *model.Generation) (int, error) {
	return w.writeJSON(g)
}

// WriteHumanization implements Writer.
func (w *JSONWriter) WriteHumanization(h *model.Humanization) (int, error) {
	return w.writeJSON(h)
}

// WriteRun implements Writer.
func (w *JSONWriter) WriteRun(r *model.PipelineRun) (int, error) {
	return w.writeJSON(r)
}

// WriteVerification implements Writer.
func (w *JSONWriter) WriteVerification(v *model.Verification) (int, error) {
	return w.writeJSON(v)
}

// WriteModels implements Writer.
func (w *JSONWriter) WriteModels(l *service.ModelListing) (int, error) {
	return w.writeJSON(l)
}

// WriteRunHistory implements Writer. An empty history is written as [].
func (w *JSONWriter) WriteRunHistory(runs []database.RunRecord) (int, error) {
	if runs == nil {
		runs = []database.RunRecord{}
	}
	return w.writeJSON(runs)
}

// WriteDetectionHistory implements Writer. An empty history is written as [].
func (w *JSONWriter) WriteDetectionHistory(records []database.DetectionRecord) (int, error) {
	if records == nil {
		records = []database.DetectionRecord{}
	}
	return w.writeJSON(records)
}

// writeJSON encodes v followed by a newline.
func (w *JSONWriter) writeJSON(v any) (int, error) {
	var (
		data []byte
		err  error
	)
	if w.indent {
		data, err = json.MarshalIndent(v, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return 0, err
	}
	data = append(data, '\n')
	return w.output.Write(data)
}
