package textsource

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const page = `<!DOCTYPE html>
<html>
<head><title> Sample post </title><style>p { color: red; }</style></head>
<body>
  <h1>Heading</h1>
  <p>First   paragraph
     spans lines.</p>
  <script>var secret = 1;</script>
  <ul><li>one</li><li>two &amp; three</li></ul>
  <div>Inline <b>bold</b> text<br>after break</div>
</body>
</html>`

func TestExtractHTML(t *testing.T) {
	t.Parallel()

	text, title, err := ExtractHTML(strings.NewReader(page))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := strings.Join([]string{
		"Heading",
		"First paragraph spans lines.",
		"one",
		"two & three",
		"Inline bold text",
		"after break",
	}, "\n")
	if text != expected {
		t.Errorf("got %q, expected %q", text, expected)
	}
	if title != "Sample post" {
		t.Errorf("got title %q, expected %q", title, "Sample post")
	}
}

func TestRead(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	htmlFile := filepath.Join(dir, "post.html")
	if err := os.WriteFile(htmlFile, []byte("<p>Hello <i>there</i></p>"), 0o600); err != nil {
		t.Fatal(err)
	}
	plainFile := filepath.Join(dir, "post.txt")
	if err := os.WriteFile(plainFile, []byte("  plain <b>not html</b> text\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	blankFile := filepath.Join(dir, "blank.txt")
	if err := os.WriteFile(blankFile, []byte(" \n\t"), 0o600); err != nil {
		t.Fatal(err)
	}

	testCases := []struct {
		name     string
		args     []string
		file     string
		stdin    string
		expected string
		kind     Kind
		err      error
	}{
		{name: "args joined", args: []string{"hello", "world"}, expected: "hello world", kind: KindPlain},
		{name: "blank args", args: []string{" "}, err: ErrNoInput},
		{name: "args and file", args: []string{"x"}, file: plainFile, err: ErrConflictingInput},
		{name: "html file", file: htmlFile, expected: "Hello there", kind: KindHTML},
		{name: "plain file kept verbatim", file: plainFile, expected: "  plain <b>not html</b> text\n", kind: KindPlain},
		{name: "blank file", file: blankFile, err: ErrNoInput},
		{name: "stdin", stdin: "piped text", expected: "piped text", kind: KindPlain},
		{name: "dash reads stdin", file: "-", stdin: "<html><body><p>doc</p></body></html>", expected: "doc", kind: KindHTML},
		{name: "empty stdin", stdin: "", err: ErrNoInput},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			src, err := Read(tc.args, tc.file, strings.NewReader(tc.stdin))
			if tc.err != nil {
				if !errors.Is(err, tc.err) {
					t.Fatalf("expected %v, got %v", tc.err, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if src.Text != tc.expected || src.Kind != tc.kind {
				t.Errorf("got %q (%s), expected %q (%s)", src.Text, src.Kind, tc.expected, tc.kind)
			}
		})
	}
}

func TestReadMissingFile(t *testing.T) {
	t.Parallel()

	if _, err := Read(nil, filepath.Join(t.TempDir(), "missing.txt"), nil); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestFromReaderLimits(t *testing.T) {
	t.Parallel()

	if _, err := FromReader(strings.NewReader(strings.Repeat("a", MaxBytes+1)), "big", false); !errors.Is(err, ErrTooLarge) {
		t.Errorf("expected ErrTooLarge, got %v", err)
	}
	if _, err := FromReader(strings.NewReader("bad \xff byte"), "bin", false); !errors.Is(err, ErrNotUTF8) {
		t.Errorf("expected ErrNotUTF8, got %v", err)
	}
}

func TestLooksLikeHTML(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		in       string
		expected bool
	}{
		{"<!DOCTYPE html><html></html>", true},
		{"  \n<HTML><body>x</body></HTML>", true},
		{"<p>fragment</p>", false},
		{"a < b and b > c", false},
	}
	for _, tc := range testCases {
		if got := LooksLikeHTML([]byte(tc.in)); got != tc.expected {
			t.Errorf("LooksLikeHTML(%q): got %v, expected %v", tc.in, got, tc.expected)
		}
	}
}
