package segment

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/nao1215/humanizer/internal/model"
)

const (
	// DefaultMinLength is the minimum segment length in runes.
	DefaultMinLength = 10

	// DefaultChunkSize is the chunk window in runes.
	DefaultChunkSize = 200
)

// Options controls how text is split.
type Options struct {
	// Granularity is the split unit. Empty means sentence.
	Granularity model.Granularity

	// MinLength is the minimum length of a segment in runes. Shorter spans
	// are merged into a neighbour. Zero disables merging.
	MinLength int

	// ChunkSize is the maximum window in runes for chunk granularity.
	ChunkSize int
}

// DefaultOptions returns sentence granularity with the default lengths.
func DefaultOptions() Options {
	return Options{
		Granularity: model.GranularitySentence,
		MinLength:   DefaultMinLength,
		ChunkSize:   DefaultChunkSize,
	}
}

// span is a half-open byte range.
type span struct {
	start, end int
}

// Split divides text into ordered segments. Segments never include leading
// or trailing whitespace; the whitespace between them stays recoverable from
// the offsets, so Reconstruct(text, segments) == text for every input.
// Text made only of whitespace yields no segments.
func Split(text string, opts Options) ([]model.Segment, error) {
	if opts.Granularity == "" {
		opts.Granularity = model.GranularitySentence
	}
	if opts.MinLength < 0 {
		return nil, model.InvalidInput("min length must not be negative, got %d", opts.MinLength)
	}

	var spans []span
	switch opts.Granularity {
	case model.GranularityLine:
		spans = splitLines(text)
	case model.GranularitySentence:
		spans = splitSentences(text)
	case model.GranularityChunk:
		if opts.ChunkSize < 1 {
			return nil, model.InvalidInput("chunk size must be at least 1, got %d", opts.ChunkSize)
		}
		spans = splitChunks(text, opts.ChunkSize)
	default:
		return nil, model.InvalidInput("unknown granularity %q", opts.Granularity)
	}

	spans = mergeShort(text, spans, opts.MinLength)

	segments := make([]model.Segment, len(spans))
	for i, s := range spans {
		segments[i] = model.Segment{
			Index: i,
			Start: s.start,
			End:   s.end,
			Text:  text[s.start:s.end],
		}
	}
	return segments, nil
}

// Reconstruct rebuilds the input from its segments, taking the separators
// from text. It fails when the segments are out of order, overlap, fall
// outside text, or do not match the text at their offsets.
func Reconstruct(text string, segments []model.Segment) (string, error) {
	var b strings.Builder
	b.Grow(len(text))

	prev := 0
	for i, s := range segments {
		if s.Start < prev || s.End < s.Start || s.End > len(text) {
			return "", model.InvalidInput("segment %d has invalid offsets [%d,%d)", i, s.Start, s.End)
		}
		if text[s.Start:s.End] != s.Text {
			return "", model.InvalidInput("segment %d text does not match offsets", i)
		}
		b.WriteString(text[prev:s.Start])
		b.WriteString(s.Text)
		prev = s.End
	}
	b.WriteString(text[prev:])
	return b.String(), nil
}

// trim narrows [start,end) so it excludes surrounding whitespace.
// ok is false when nothing but whitespace remains.
func trim(text string, start, end int) (span, bool) {
	piece := text[start:end]
	left := len(piece) - len(strings.TrimLeftFunc(piece, unicode.IsSpace))
	right := len(strings.TrimRightFunc(piece, unicode.IsSpace))
	if left >= right {
		return span{}, false
	}
	return span{start: start + left, end: start + right}, true
}

// cutAt turns cut positions into trimmed, non-empty spans.
func cutAt(text string, cuts []int) []span {
	var spans []span
	prev := 0
	for _, c := range append(cuts, len(text)) {
		if s, ok := trim(text, prev, c); ok {
			spans = append(spans, s)
		}
		prev = c
	}
	return spans
}

func splitLines(text string) []span {
	var cuts []int
	for i := range len(text) {
		if text[i] == '\n' {
			cuts = append(cuts, i)
		}
	}
	return cutAt(text, cuts)
}

func splitChunks(text string, size int) []span {
	var spans []span
	pos := skipSpace(text, 0)
	for pos < len(text) {
		windowEnd, full := advanceRunes(text, pos, size)
		if !full {
			if s, ok := trim(text, pos, len(text)); ok {
				spans = append(spans, s)
			}
			break
		}

		cut := windowEnd
		if r, _ := utf8.DecodeRuneInString(text[windowEnd:]); !unicode.IsSpace(r) {
			if ws := lastSpace(text[pos:windowEnd]); ws > 0 {
				cut = pos + ws
			}
		}

		if s, ok := trim(text, pos, cut); ok {
			spans = append(spans, s)
		}
		pos = skipSpace(text, cut)
	}
	return spans
}

// advanceRunes returns the byte offset n runes after pos. full is false when
// the text ends first.
func advanceRunes(text string, pos, n int) (int, bool) {
	for range n {
		if pos >= len(text) {
			return len(text), false
		}
		_, size := utf8.DecodeRuneInString(text[pos:])
		pos += size
	}
	return pos, pos < len(text)
}

func skipSpace(text string, pos int) int {
	for pos < len(text) {
		r, size := utf8.DecodeRuneInString(text[pos:])
		if !unicode.IsSpace(r) {
			break
		}
		pos += size
	}
	return pos
}

// lastSpace returns the byte index of the last whitespace rune in s, or -1.
func lastSpace(s string) int {
	return strings.LastIndexFunc(s, unicode.IsSpace)
}

// mergeShort applies the minimum length policy: a run of short spans merges
// forward into the next span that is long enough; a trailing short run
// merges backward into the last emitted span. When no span is long enough
// everything becomes a single span.
func mergeShort(text string, spans []span, minLength int) []span {
	if minLength <= 0 || len(spans) == 0 {
		return spans
	}

	out := make([]span, 0, len(spans))
	runStart := -1
	for _, s := range spans {
		if utf8.RuneCountInString(text[s.start:s.end]) < minLength {
			if runStart < 0 {
				runStart = s.start
			}
			continue
		}
		if runStart >= 0 {
			s.start = runStart
			runStart = -1
		}
		out = append(out, s)
	}

	if runStart >= 0 {
		last := spans[len(spans)-1].end
		if len(out) == 0 {
			return []span{{start: runStart, end: last}}
		}
		out[len(out)-1].end = last
	}
	return out
}
