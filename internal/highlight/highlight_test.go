package highlight

import (
	"errors"
	"slices"
	"testing"

	"github.com/nao1215/humanizer/internal/model"
	"github.com/nao1215/humanizer/internal/segment"
)

// items splits src into sentences and assigns probabilities in order.
func items(t *testing.T, src string, probs ...float64) []Item {
	t.Helper()
	segs, err := segment.Split(src, segment.Options{Granularity: model.GranularitySentence, MinLength: 1})
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if len(segs) != len(probs) {
		t.Fatalf("got %d segments, expected %d", len(segs), len(probs))
	}
	out := make([]Item, len(segs))
	for i, s := range segs {
		out[i] = Item{Segment: s, Probability: probs[i], Analyzed: true}
	}
	return out
}

func TestHighlightFormats(t *testing.T) {
	t.Parallel()

	src := "I wrote this. The model wrote this. Me again."

	testCases := []struct {
		format   Format
		expected string
	}{
		{format: FormatMarkdown, expected: "I wrote this. **The model wrote this.** Me again."},
		{format: FormatHTML, expected: "I wrote this. <mark>The model wrote this.</mark> Me again."},
		{format: FormatPlain, expected: "I wrote this. [The model wrote this.] Me again."},
	}

	for _, tc := range testCases {
		t.Run(string(tc.format), func(t *testing.T) {
			t.Parallel()

			res, err := Highlight(src, items(t, src, 0.2, 0.9, 0.5), 0.7, tc.format)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if res.Text != tc.expected {
				t.Errorf("got %q, expected %q", res.Text, tc.expected)
			}
			if res.Flagged != 1 || res.Total != 3 {
				t.Errorf("got %d of %d flagged, expected 1 of 3", res.Flagged, res.Total)
			}
			if !slices.Equal(res.FlaggedIndexes, []int{1}) {
				t.Errorf("got flagged indexes %v", res.FlaggedIndexes)
			}
		})
	}
}

func TestHighlightEscapesOnlyMarkerCharacters(t *testing.T) {
	t.Parallel()

	src := `Prices rose 5* [sic]. The model wrote this. A\B & <c>.`

	testCases := []struct {
		format   Format
		expected string
	}{
		{format: FormatMarkdown, expected: `Prices rose 5\* [sic]. **The model wrote this.** A\\B & <c>.`},
		{format: FormatPlain, expected: `Prices rose 5* \[sic\]. [The model wrote this.] A\\B & <c>.`},
		{format: FormatHTML, expected: `Prices rose 5* [sic]. <mark>The model wrote this.</mark> A\B &amp; &lt;c&gt;.`},
	}

	for _, tc := range testCases {
		t.Run(string(tc.format), func(t *testing.T) {
			t.Parallel()

			res, err := Highlight(src, items(t, src, 0.1, 0.9, 0.1), 0.7, tc.format)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if res.Text != tc.expected {
				t.Errorf("got %q, expected %q", res.Text, tc.expected)
			}
			stripped, err := Strip(res.Text, tc.format)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if stripped != src {
				t.Errorf("got %q after strip, expected %q", stripped, src)
			}
		})
	}
}

func TestHighlightThresholdIsInclusive(t *testing.T) {
	t.Parallel()

	src := "Exactly at the line."
	res, err := Highlight(src, items(t, src, 0.7), 0.7, FormatPlain)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Text != "[Exactly at the line.]" {
		t.Errorf("got %q", res.Text)
	}
}

func TestHighlightNoAIContent(t *testing.T) {
	t.Parallel()

	src := "Nothing here. Nothing there."
	res, err := Highlight(src, items(t, src, 0.1, 0.2), 0.5, FormatMarkdown)
	if !errors.Is(err, ErrNoAIContent) {
		t.Fatalf("expected ErrNoAIContent, got %v", err)
	}
	if res == nil || res.Total != 2 || res.Flagged != 0 || res.Text != src {
		t.Errorf("result must still be reported, got %+v", res)
	}
}

func TestHighlightSkipsFailedSegments(t *testing.T) {
	t.Parallel()

	src := "First one here. Second one here."
	segs, err := segment.Split(src, segment.Options{Granularity: model.GranularitySentence})
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	results := []model.SegmentDetection{
		{Segment: segs[0], Error: "all detectors failed"},
		{Segment: segs[1], Result: &model.EnsembleResult{AIProbability: 0.95}},
	}

	res, err := Highlight(src, FromSegments(results), 0.0, FormatPlain)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Text != "First one here. [Second one here.]" {
		t.Errorf("failed segment must not be flagged even at threshold 0, got %q", res.Text)
	}
}

func TestStripRoundTrip(t *testing.T) {
	t.Parallel()

	sources := []string{
		"Plain text. Another sentence.",
		"Stars *everywhere* here. And **bold** claims!",
		"Brackets [like this] and a \\ backslash. Then [more].",
		"HTML <mark>fake</mark> & \"quotes\" 'single'. Then <b>tags</b>.",
		"Trailing backslash \\. Escaped \\* star.",
		"  Leading space.\n\nNew paragraph \\\\ double.  ",
		"Unicode “quotes” — dashes … ellipsis. 日本語の文。",
	}

	for _, src := range sources {
		segs, err := segment.Split(src, segment.Options{Granularity: model.GranularitySentence, MinLength: 1})
		if err != nil {
			t.Fatalf("split %q: %v", src, err)
		}
		its := make([]Item, len(segs))
		for i, s := range segs {
			// Flag every other segment.
			its[i] = Item{Segment: s, Probability: float64(i % 2), Analyzed: true}
		}

		for _, format := range []Format{FormatMarkdown, FormatHTML, FormatPlain} {
			res, err := Highlight(src, its, 0.5, format)
			if err != nil && !errors.Is(err, ErrNoAIContent) {
				t.Fatalf("%s %q: unexpected error: %v", format, src, err)
			}
			back, err := Strip(res.Text, format)
			if err != nil {
				t.Fatalf("%s %q: strip: %v", format, src, err)
			}
			if back != src {
				t.Errorf("%s round trip:\n got %q\nwant %q", format, back, src)
			}
		}
	}
}

func TestHighlightValidation(t *testing.T) {
	t.Parallel()

	src := "Some text."
	good := items(t, src, 0.9)

	if _, err := Highlight(src, good, 2, FormatPlain); !errors.Is(err, model.ErrInvalidInput) {
		t.Errorf("bad threshold: expected ErrInvalidInput, got %v", err)
	}
	if _, err := Highlight(src, good, 0.5, Format("pdf")); !errors.Is(err, model.ErrInvalidInput) {
		t.Errorf("bad format: expected ErrInvalidInput, got %v", err)
	}
	outOfRange := []Item{{Segment: model.Segment{Start: 0, End: 100}, Analyzed: true}}
	if _, err := Highlight(src, outOfRange, 0.5, FormatPlain); !errors.Is(err, model.ErrInvalidInput) {
		t.Errorf("bad offsets: expected ErrInvalidInput, got %v", err)
	}
	if _, err := Strip(`dangling\`, FormatPlain); !errors.Is(err, model.ErrInvalidInput) {
		t.Errorf("dangling escape: expected ErrInvalidInput, got %v", err)
	}
}

func TestParseFormat(t *testing.T) {
	t.Parallel()

	testCases := map[string]Format{
		"":         FormatMarkdown,
		"Markdown": FormatMarkdown,
		"md":       FormatMarkdown,
		"html":     FormatHTML,
		"plain":    FormatPlain,
		"text":     FormatPlain,
	}
	for in, expected := range testCases {
		got, err := ParseFormat(in)
		if err != nil || got != expected {
			t.Errorf("ParseFormat(%q) = %q, %v; expected %q", in, got, err, expected)
		}
	}
}
