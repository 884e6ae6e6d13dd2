package segment

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// abbreviations never end a sentence. Entries are lower case and include
// the final period.
var abbreviations = map[string]struct{}{
	"mr.": {}, "mrs.": {}, "ms.": {}, "dr.": {}, "prof.": {},
	"sr.": {}, "jr.": {}, "st.": {}, "vs.": {}, "etc.": {},
	"e.g.": {}, "i.e.": {}, "no.": {}, "fig.": {},
}

func isTerminal(r rune) bool {
	switch r {
	case '.', '!', '?', '…':
		return true
	}
	return false
}

func isClosing(r rune) bool {
	switch r {
	case '"', '\'', '”', '’', ')', ']', '»':
		return true
	}
	return false
}

func isOpening(r rune) bool {
	switch r {
	case '"', '\'', '“', '‘', '(', '[', '«':
		return true
	}
	return false
}

// splitSentences finds sentence cut positions and returns trimmed spans.
// A cut is placed after terminal punctuation (and any closing quotes) when
// the next non-space rune starts a new sentence, and before every blank line.
func splitSentences(text string) []span {
	var cuts []int

	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])

		if r == '\n' {
			if next, ok := blankLineEnd(text, i+size); ok {
				cuts = append(cuts, i)
				i = next
				continue
			}
		}

		if !isTerminal(r) {
			i += size
			continue
		}

		end := i + size
		for end < len(text) {
			nr, ns := utf8.DecodeRuneInString(text[end:])
			if !isTerminal(nr) && !isClosing(nr) {
				break
			}
			end += ns
		}

		if startsNewSentence(text, end) && !isAbbreviation(text, i, r) {
			cuts = append(cuts, end)
		}
		i = end
	}

	return cutAt(text, cuts)
}

// blankLineEnd reports whether the text after a newline at pos-1 is
// horizontal whitespace followed by another newline, returning the offset
// just past that second newline.
func blankLineEnd(text string, pos int) (int, bool) {
	for pos < len(text) {
		switch text[pos] {
		case ' ', '\t', '\r':
			pos++
		case '\n':
			return pos + 1, true
		default:
			return 0, false
		}
	}
	return 0, false
}

// startsNewSentence reports whether position end, right after terminal
// punctuation, is followed by whitespace and then an uppercase letter, a
// digit, an opening quote, or the end of the text.
func startsNewSentence(text string, end int) bool {
	if end >= len(text) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(text[end:])
	if !unicode.IsSpace(r) {
		return false
	}
	next := skipSpace(text, end)
	if next >= len(text) {
		return true
	}
	r, _ = utf8.DecodeRuneInString(text[next:])
	return unicode.IsUpper(r) || unicode.IsDigit(r) || isOpening(r)
}

// isAbbreviation reports whether the period at dot closes a known
// abbreviation or a single letter initial.
func isAbbreviation(text string, dot int, punct rune) bool {
	if punct != '.' {
		return false
	}
	wordStart := 0
	if ws := strings.LastIndexFunc(text[:dot], unicode.IsSpace); ws >= 0 {
		_, size := utf8.DecodeRuneInString(text[ws:])
		wordStart = ws + size
	}
	word := strings.TrimLeftFunc(text[wordStart:dot+1], isOpening)
	if _, ok := abbreviations[strings.ToLower(word)]; ok {
		return true
	}
	// "J. R. R. Tolkien"
	if utf8.RuneCountInString(word) == 2 {
		r, _ := utf8.DecodeRuneInString(word)
		return unicode.IsUpper(r)
	}
	return false
}
