package segment

import (
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/nao1215/humanizer/internal/model"
)

func texts(segs []model.Segment) []string {
	out := make([]string, len(segs))
	for i, s := range segs {
		out[i] = s.Text
	}
	return out
}

// corpus covers the shapes that break naive splitters: leading and trailing
// whitespace, CRLF, multibyte runes, abbreviations, and whitespace-only input.
var corpus = []string{
	"",
	"   ",
	"\n\n\t\n",
	"Hello.",
	"One sentence here. Another one follows! And a question? Yes.",
	"  Leading and trailing space.  \n",
	"Line one is long enough\r\nLine two is also long enough\r\n\r\nshort\r\n",
	"Dr. Smith met Mrs. Jones at 5 p.m. They talked, e.g. about rain. Fine.",
	"Unicode — 日本語のテキストです。Émile arrived… Then he left.\n\nNew paragraph here.",
	"He said \"Stop.\" Then he left. (Really.) Yes!",
	"a\nb\nc\nd\n",
	strings.Repeat("word ", 120),
	strings.Repeat("x", 450),
	"tab\tseparated\twords\tin\tone\tline",
}

func TestRoundTrip(t *testing.T) {
	t.Parallel()

	grans := []model.Granularity{model.GranularityLine, model.GranularitySentence, model.GranularityChunk}
	minLengths := []int{0, 1, 10, 1000}
	chunkSizes := []int{1, 7, 50, 200}

	for _, g := range grans {
		for _, minLen := range minLengths {
			for _, size := range chunkSizes {
				for i, text := range corpus {
					segs, err := Split(text, Options{Granularity: g, MinLength: minLen, ChunkSize: size})
					if err != nil {
						t.Fatalf("%s/%d/%d corpus[%d]: unexpected error: %v", g, minLen, size, i, err)
					}
					got, err := Reconstruct(text, segs)
					if err != nil {
						t.Fatalf("%s/%d/%d corpus[%d]: reconstruct: %v", g, minLen, size, i, err)
					}
					if got != text {
						t.Errorf("%s/%d/%d corpus[%d]: round trip mismatch", g, minLen, size, i)
					}
					for j, s := range segs {
						if s.Index != j {
							t.Errorf("%s corpus[%d]: segment %d has index %d", g, i, j, s.Index)
						}
						if strings.TrimSpace(s.Text) != s.Text || s.Text == "" {
							t.Errorf("%s corpus[%d]: segment %d is not trimmed: %q", g, i, j, s.Text)
						}
					}
				}
			}
		}
	}
}

func TestSplitLines(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		text     string
		minLen   int
		expected []string
	}{
		{
			name:     "simple",
			text:     "first line\nsecond line\n",
			expected: []string{"first line", "second line"},
		},
		{
			name:     "crlf and blank lines",
			text:     "alpha\r\n\r\nbeta\r\n",
			expected: []string{"alpha", "beta"},
		},
		{
			name:     "short run merges forward",
			text:     "Title\nBy me\nThis line is long enough to stand alone.\nAnother long enough line here.",
			minLen:   15,
			expected: []string{"Title\nBy me\nThis line is long enough to stand alone.", "Another long enough line here."},
		},
		{
			name:     "trailing short run merges backward",
			text:     "This line is long enough to stand alone.\nok\nbye",
			minLen:   15,
			expected: []string{"This line is long enough to stand alone.\nok\nbye"},
		},
		{
			name:     "nothing qualifies",
			text:     "  a\nb\nc  ",
			minLen:   15,
			expected: []string{"a\nb\nc"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			segs, err := Split(tc.text, Options{Granularity: model.GranularityLine, MinLength: tc.minLen})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := texts(segs); !slices.Equal(got, tc.expected) {
				t.Errorf("got %q, expected %q", got, tc.expected)
			}
		})
	}
}

func TestSplitSentences(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		text     string
		expected []string
	}{
		{
			name:     "basic punctuation",
			text:     "It rains. Does it? Yes! 3 people agree.",
			expected: []string{"It rains.", "Does it?", "Yes!", "3 people agree."},
		},
		{
			name:     "lowercase continuation is not a boundary",
			text:     "Version 1.2 is out. it works fine.",
			expected: []string{"Version 1.2 is out. it works fine."},
		},
		{
			name:     "abbreviations",
			text:     "Dr. Smith arrived. Mr. Jones left, e.g. Tuesday.",
			expected: []string{"Dr. Smith arrived.", "Mr. Jones left, e.g. Tuesday."},
		},
		{
			name:     "closing quotes stay with the sentence",
			text:     "He said \"Stop.\" Then he left.",
			expected: []string{"He said \"Stop.\"", "Then he left."},
		},
		{
			name:     "blank line is always a boundary",
			text:     "no terminal punctuation\n\nnext paragraph",
			expected: []string{"no terminal punctuation", "next paragraph"},
		},
		{
			name:     "ellipsis",
			text:     "Wait… What happened?",
			expected: []string{"Wait…", "What happened?"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			segs, err := Split(tc.text, Options{Granularity: model.GranularitySentence})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := texts(segs); !slices.Equal(got, tc.expected) {
				t.Errorf("got %q, expected %q", got, tc.expected)
			}
		})
	}
}

func TestSplitChunks(t *testing.T) {
	t.Parallel()

	t.Run("cuts at whitespace", func(t *testing.T) {
		t.Parallel()
		segs, err := Split("aaa bbb ccc ddd", Options{Granularity: model.GranularityChunk, ChunkSize: 9})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		expected := []string{"aaa bbb", "ccc ddd"}
		if got := texts(segs); !slices.Equal(got, expected) {
			t.Errorf("got %q, expected %q", got, expected)
		}
	})

	t.Run("hard cut without whitespace", func(t *testing.T) {
		t.Parallel()
		segs, err := Split("abcdefghij", Options{Granularity: model.GranularityChunk, ChunkSize: 4})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		expected := []string{"abcd", "efgh", "ij"}
		if got := texts(segs); !slices.Equal(got, expected) {
			t.Errorf("got %q, expected %q", got, expected)
		}
	})

	t.Run("windows count runes", func(t *testing.T) {
		t.Parallel()
		segs, err := Split("日本語日本語", Options{Granularity: model.GranularityChunk, ChunkSize: 3})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		expected := []string{"日本語", "日本語"}
		if got := texts(segs); !slices.Equal(got, expected) {
			t.Errorf("got %q, expected %q", got, expected)
		}
	})
}

func TestSplitInvalidOptions(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		opts Options
	}{
		{"unknown granularity", Options{Granularity: "paragraph"}},
		{"negative min length", Options{Granularity: model.GranularityLine, MinLength: -1}},
		{"zero chunk size", Options{Granularity: model.GranularityChunk}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if _, err := Split("some text", tc.opts); !errors.Is(err, model.ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestReconstructRejectsBadOffsets(t *testing.T) {
	t.Parallel()

	text := "abc def"
	testCases := []struct {
		name string
		segs []model.Segment
	}{
		{"out of range", []model.Segment{{Start: 4, End: 20, Text: "def"}}},
		{"overlap", []model.Segment{{Start: 0, End: 5, Text: "abc d"}, {Start: 4, End: 7, Text: "def"}}},
		{"text mismatch", []model.Segment{{Start: 0, End: 3, Text: "xyz"}}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if _, err := Reconstruct(text, tc.segs); !errors.Is(err, model.ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}
