package highlight

import (
	"errors"
	"strings"

	"github.com/nao1215/humanizer/internal/ensemble"
	"github.com/nao1215/humanizer/internal/model"
	"golang.org/x/net/html"
)

// ErrNoAIContent is returned with a complete Result when no segment reaches
// the threshold. It is an outcome, not a failure.
var ErrNoAIContent = errors.New("no AI-generated content found")

// Format selects the markers used for flagged segments.
type Format string

const (
	// FormatMarkdown wraps flagged segments in **...**.
	FormatMarkdown Format = "markdown"
	// FormatHTML wraps flagged segments in <mark>...</mark>.
	FormatHTML Format = "html"
	// FormatPlain wraps flagged segments in [...].
	FormatPlain Format = "plain"
)

// ParseFormat parses a format name. The empty string is FormatMarkdown.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatMarkdown, nil
	case FormatMarkdown, FormatHTML, FormatPlain:
		return f, nil
	case "md":
		return FormatMarkdown, nil
	case "text", "txt":
		return FormatPlain, nil
	default:
		return "", model.InvalidInput("unknown highlight format %q", s)
	}
}

type markers struct {
	open, close string
}

func (f Format) markers() markers {
	switch f {
	case FormatHTML:
		return markers{open: "<mark>", close: "</mark>"}
	case FormatPlain:
		return markers{open: "[", close: "]"}
	default:
		return markers{open: "**", close: "**"}
	}
}

// Item is a segment together with its AI probability. Items that were not
// analyzed are never flagged.
type Item struct {
	Segment     model.Segment
	Probability float64
	Analyzed    bool
}

// FromSegments builds items from a granular detection. Failed segments
// become unanalyzed items.
func FromSegments(results []model.SegmentDetection) []Item {
	items := make([]Item, len(results))
	for i, r := range results {
		items[i] = Item{Segment: r.Segment}
		if !r.Failed() {
			items[i].Probability = r.Result.AIProbability
			items[i].Analyzed = true
		}
	}
	return items
}

// FromVerdict builds an item from a single model verdict.
func FromVerdict(seg model.Segment, v model.DetectionVerdict) Item {
	return Item{Segment: seg, Probability: v.AIProbability, Analyzed: true}
}

// Result is a rendered text and its counts.
type Result struct {
	Text    string `json:"highlighted_text"`
	Format  Format `json:"format"`
	Flagged int    `json:"ai_segments_count"`
	Total   int    `json:"total_segments"`
	// FlaggedIndexes lists the Index of every flagged segment.
	FlaggedIndexes []int `json:"flagged_segments"`
}

// Highlight renders source with every item whose probability is at least
// threshold wrapped in the format's markers. Items must be ordered, non
// overlapping spans of source.
//
// When nothing is flagged the result is returned together with
// ErrNoAIContent.
func Highlight(source string, items []Item, threshold float64, format Format) (*Result, error) {
	if err := ensemble.ValidateThreshold(threshold); err != nil {
		return nil, err
	}
	if format == "" {
		format = FormatMarkdown
	}
	if _, err := ParseFormat(string(format)); err != nil {
		return nil, err
	}

	m := format.markers()
	res := &Result{Format: format, Total: len(items), FlaggedIndexes: []int{}}

	var b strings.Builder
	b.Grow(len(source) + len(items)*(len(m.open)+len(m.close)))

	prev := 0
	for i, it := range items {
		s := it.Segment
		if s.Start < prev || s.End < s.Start || s.End > len(source) {
			return nil, model.InvalidInput("segment %d has invalid offsets [%d,%d)", i, s.Start, s.End)
		}
		b.WriteString(escape(source[prev:s.Start], format))

		text := escape(source[s.Start:s.End], format)
		if it.Analyzed && it.Probability >= threshold {
			b.WriteString(m.open)
			b.WriteString(text)
			b.WriteString(m.close)
			res.Flagged++
			res.FlaggedIndexes = append(res.FlaggedIndexes, s.Index)
		} else {
			b.WriteString(text)
		}
		prev = s.End
	}
	b.WriteString(escape(source[prev:], format))

	res.Text = b.String()
	if res.Flagged == 0 {
		return res, ErrNoAIContent
	}
	return res, nil
}

// escape makes s safe to embed in a rendering of format.
func escape(s string, format Format) string {
	switch format {
	case FormatHTML:
		return html.EscapeString(s)
	case FormatPlain:
		return backslashEscape(s, "[]")
	default:
		return backslashEscape(s, "*")
	}
}

// backslashEscape prefixes every backslash and every byte of specials with
// a backslash.
func backslashEscape(s, specials string) string {
	if !strings.ContainsAny(s, `\`+specials) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + 8)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '\\' || strings.IndexByte(specials, c) >= 0 {
			b.WriteByte('\\')
		}
		b.WriteByte(c)
	}
	return b.String()
}

// Strip removes the markers from a rendering and undoes the escaping, so
// that Strip(Highlight(src, ...).Text) == src.
func Strip(rendered string, format Format) (string, error) {
	switch format {
	case FormatHTML:
		s := strings.ReplaceAll(rendered, "<mark>", "")
		s = strings.ReplaceAll(s, "</mark>", "")
		return html.UnescapeString(s), nil
	case FormatPlain:
		return unescape(rendered, "[]")
	case FormatMarkdown, "":
		return unescape(rendered, "*")
	default:
		return "", model.InvalidInput("unknown highlight format %q", format)
	}
}

// unescape drops unescaped marker bytes and resolves backslash escapes.
func unescape(s, markerBytes string) (string, error) {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '\\':
			if i+1 == len(s) {
				return "", model.InvalidInput("dangling escape at end of rendering")
			}
			i++
			b.WriteByte(s[i])
		case strings.IndexByte(markerBytes, c) >= 0:
			// marker
		default:
			b.WriteByte(c)
		}
	}
	return b.String(), nil
}
