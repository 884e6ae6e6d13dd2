package textsource

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// MaxBytes bounds the size of text read from a file or standard input.
const MaxBytes = 4 << 20

var (
	// ErrNoInput is returned when no text was given.
	ErrNoInput = errors.New("no input text: pass text as arguments, --file, or pipe it on stdin")

	// ErrTooLarge is returned when the input exceeds MaxBytes.
	ErrTooLarge = fmt.Errorf("input larger than %d bytes", MaxBytes)

	// ErrNotUTF8 is returned for input that is not valid UTF-8 text.
	ErrNotUTF8 = errors.New("input is not valid UTF-8 text")

	// ErrConflictingInput is returned when both arguments and a file are given.
	ErrConflictingInput = errors.New("text arguments and --file cannot be used together")
)

// Kind tells how the text was obtained.
type Kind string

const (
	// KindPlain is text used as given.
	KindPlain Kind = "plain"
	// KindHTML is text extracted from an HTML document.
	KindHTML Kind = "html"
)

// Source is text ready for detection or humanization.
type Source struct {
	// Text is the extracted text.
	Text string
	// Origin names where the text came from: "args", "stdin" or a path.
	Origin string
	// Kind tells whether Text was extracted from HTML.
	Kind Kind
	// Title is the HTML document title, if any.
	Title string
}

// Read resolves the input of a command. Arguments win when present and are
// joined by spaces. Otherwise file is read, with "-" meaning stdin. With
// neither, stdin is read.
func Read(args []string, file string, stdin io.Reader) (*Source, error) {
	if len(args) > 0 && file != "" {
		return nil, ErrConflictingInput
	}
	if len(args) > 0 {
		text := strings.Join(args, " ")
		if strings.TrimSpace(text) == "" {
			return nil, ErrNoInput
		}
		return &Source{Text: text, Origin: "args", Kind: KindPlain}, nil
	}

	if file != "" && file != "-" {
		f, err := os.Open(filepath.Clean(file))
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", file, err)
		}
		defer f.Close() //nolint:errcheck // read-only file
		return FromReader(f, file, isHTMLPath(file))
	}

	if stdin == nil {
		return nil, ErrNoInput
	}
	return FromReader(stdin, "stdin", false)
}

// FromReader reads up to MaxBytes from r. HTML is extracted when forceHTML
// is set or the content looks like an HTML document.
func FromReader(r io.Reader, origin string, forceHTML bool) (*Source, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", origin, err)
	}
	if len(data) > MaxBytes {
		return nil, fmt.Errorf("%s: %w", origin, ErrTooLarge)
	}
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("%s: %w", origin, ErrNotUTF8)
	}

	src := &Source{Origin: origin, Kind: KindPlain, Text: string(data)}
	if forceHTML || LooksLikeHTML(data) {
		text, title, err := ExtractHTML(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("failed to parse HTML from %s: %w", origin, err)
		}
		src.Text, src.Title, src.Kind = text, title, KindHTML
	}

	if strings.TrimSpace(src.Text) == "" {
		return nil, fmt.Errorf("%s: %w", origin, ErrNoInput)
	}
	return src, nil
}

func isHTMLPath(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm", ".xhtml":
		return true
	default:
		return false
	}
}

// LooksLikeHTML reports whether data starts like an HTML document.
func LooksLikeHTML(data []byte) bool {
	head := bytes.ToLower(bytes.TrimSpace(data))
	if len(head) > 512 {
		head = head[:512]
	}
	for _, prefix := range []string{"<!doctype html", "<html", "<head", "<body"} {
		if bytes.HasPrefix(head, []byte(prefix)) {
			return true
		}
	}
	return false
}

// skipped elements never contribute text.
var skipped = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
	atom.Template: true,
	atom.Iframe:   true,
	atom.Svg:      true,
	atom.Head:     true,
}

// blocks end the current line of text.
var blocks = map[atom.Atom]bool{
	atom.P: true, atom.Div: true, atom.Br: true, atom.Li: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.Blockquote: true, atom.Pre: true, atom.Tr: true, atom.Section: true,
	atom.Article: true, atom.Header: true, atom.Footer: true, atom.Dd: true, atom.Dt: true,
	atom.Table: true, atom.Ul: true, atom.Ol: true, atom.Hr: true,
}

// ExtractHTML returns the readable text and the title of an HTML document.
func ExtractHTML(r io.Reader) (string, string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", "", err
	}

	var lines []string
	var current strings.Builder
	flush := func() {
		if line := strings.Join(strings.Fields(current.String()), " "); line != "" {
			lines = append(lines, line)
		}
		current.Reset()
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if skipped[n.DataAtom] {
				return
			}
			if blocks[n.DataAtom] {
				flush()
				defer flush()
			}
		}
		if n.Type == html.TextNode {
			current.WriteString(n.Data)
			current.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	flush()

	return strings.Join(lines, "\n"), findTitle(doc), nil
}

func findTitle(n *html.Node) string {
	if n.Type == html.ElementNode && n.DataAtom == atom.Title {
		if n.FirstChild != nil {
			return strings.TrimSpace(n.FirstChild.Data)
		}
		return ""
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if t := findTitle(c); t != "" {
			return t
		}
	}
	return ""
}
