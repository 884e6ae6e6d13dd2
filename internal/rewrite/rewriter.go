package rewrite

import (
	"context"
	"errors"
	"hash/fnv"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/nao1215/humanizer/internal/model"
	"github.com/nao1215/humanizer/internal/segment"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	// ErrEmptyText is returned when there is nothing to rewrite.
	ErrEmptyText = errors.New("rewrite: empty text")

	// ErrWordTooShort is returned by Synonym for words under three letters.
	ErrWordTooShort = errors.New("rewrite: word too short for synonym replacement")

	// ErrNoSynonym is returned by Synonym for words it has no synonym for.
	ErrNoSynonym = errors.New("rewrite: no synonym found for the word")
)

// minSynonymWord is the shortest word Synonym replaces.
const minSynonymWord = 3

var (
	spaceBeforePunct = regexp.MustCompile(`[ \t]+([,.!?;:])`)
	lonelyI          = regexp.MustCompile(`(^|\s)i(['’]|\s|[,!?;:]|$)`)
	missingSpace     = regexp.MustCompile(`([a-z][!?]|[a-z]{2}\.)([A-Z])`)
	sentenceStart    = regexp.MustCompile(`([.!?]["')\]]*\s+)(\p{Ll})`)
	paragraphBreak   = regexp.MustCompile(`\n[ \t]*\n\s*`)
)

// keepLower lists words after which a lower case letter is not a new
// sentence.
var keepLower = map[string]struct{}{
	"e.g.": {}, "i.e.": {}, "etc.": {}, "vs.": {}, "mr.": {}, "mrs.": {}, "dr.": {},
}

type contractionRule struct {
	re *regexp.Regexp
	to string
}

type phraseRule struct {
	re           *regexp.Regexp
	alternatives []string
}

var (
	contractionRules = compileContractions()
	phraseRules      = compilePhrases()
)

func compileContractions() []contractionRule {
	rules := make([]contractionRule, len(contractions))
	for i, c := range contractions {
		pattern := strings.ReplaceAll(regexp.QuoteMeta(c.from), "'", "['’]")
		rules[i] = contractionRule{re: regexp.MustCompile(`(?i)\b` + pattern + `\b`), to: c.to}
	}
	return rules
}

func compilePhrases() []phraseRule {
	rules := make([]phraseRule, len(phrases))
	for i, p := range phrases {
		rules[i] = phraseRule{
			re:           regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(p.from) + `\b`),
			alternatives: p.alternatives,
		}
	}
	return rules
}

// Rewriter is the rule based generator. The basic variant cleans up
// formatting and varies sentence openers; the enhanced variant also expands
// contractions, swaps plain words for formal ones and adds connectives.
type Rewriter struct {
	enhanced bool
}

// New returns a Rewriter.
func New(enhanced bool) *Rewriter {
	return &Rewriter{enhanced: enhanced}
}

// Generate implements inference.Generator. Generation options are ignored.
func (r *Rewriter) Generate(ctx context.Context, text string, _ model.GenerationOptions) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyText
	}
	return r.Rewrite(text), nil
}

// Rewrite transforms text. Paragraph breaks are kept.
func (r *Rewriter) Rewrite(text string) string {
	paragraphs := paragraphBreak.Split(strings.TrimSpace(text), -1)
	out := make([]string, 0, len(paragraphs))
	for _, p := range paragraphs {
		p = refine(p)
		if r.enhanced {
			p = enhance(p)
		}
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, "\n\n")
}

// Refine applies only the clean up pass of the basic rewriter to every
// paragraph: spacing, capitalization and sentence openers.
func Refine(text string) string {
	paragraphs := paragraphBreak.Split(strings.TrimSpace(text), -1)
	out := make([]string, 0, len(paragraphs))
	for _, p := range paragraphs {
		if p = refine(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, "\n\n")
}

// Synonym returns a synonym of word, preferring one of similar length. The
// choice is stable for a given word.
func Synonym(word string) (string, error) {
	clean := strings.ToLower(strings.TrimSpace(word))
	if utf8.RuneCountInString(clean) < minSynonymWord {
		return "", ErrWordTooShort
	}
	alternatives, ok := synonyms[clean]
	if !ok {
		return "", ErrNoSynonym
	}

	similar := make([]string, 0, len(alternatives))
	for _, a := range alternatives {
		if diff := len(a) - len(clean); diff >= -3 && diff <= 3 {
			similar = append(similar, a)
		}
	}
	if len(similar) == 0 {
		similar = alternatives
	}
	return pick(clean, similar), nil
}

// refine normalizes spacing and capitalization and varies openers.
func refine(p string) string {
	p = strings.Join(strings.Fields(p), " ")
	p = spaceBeforePunct.ReplaceAllString(p, "$1")
	p = lonelyI.ReplaceAllString(p, "${1}I${2}")
	p = missingSpace.ReplaceAllString(p, "$1 $2")
	p = capitalizeSentences(p)
	return mapSentences(p, func(_ int, s string) string {
		return varyOpener(s)
	})
}

// enhance applies the sentence level transformations.
func enhance(p string) string {
	return mapSentences(p, func(i int, s string) string {
		s = expandContractions(s)
		s = swapPhrases(s)
		s = replaceSynonyms(s)
		if i%3 == 1 {
			s = addOpener(s)
		}
		return s
	})
}

// mapSentences applies fn to every sentence of p, keeping separators.
func mapSentences(p string, fn func(i int, s string) string) string {
	segs, err := segment.Split(p, segment.Options{Granularity: model.GranularitySentence})
	if err != nil || len(segs) == 0 {
		return p
	}
	var b strings.Builder
	prev := 0
	for _, s := range segs {
		b.WriteString(p[prev:s.Start])
		b.WriteString(fn(s.Index, s.Text))
		prev = s.End
	}
	b.WriteString(p[prev:])
	return b.String()
}

func capitalizeSentences(p string) string {
	p = upperFirst(p)
	matches := sentenceStart.FindAllStringSubmatchIndex(p, -1)
	if len(matches) == 0 {
		return p
	}
	var b strings.Builder
	prev := 0
	for _, m := range matches {
		letterStart, letterEnd := m[4], m[5]
		if lastWordIsAbbreviation(p[:m[2]+1]) {
			continue
		}
		b.WriteString(p[prev:letterStart])
		b.WriteString(strings.ToUpper(p[letterStart:letterEnd]))
		prev = letterEnd
	}
	b.WriteString(p[prev:])
	return b.String()
}

func lastWordIsAbbreviation(s string) bool {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return false
	}
	_, ok := keepLower[strings.ToLower(fields[len(fields)-1])]
	return ok
}

func varyOpener(s string) string {
	for _, t := range leadingTransitions {
		rest, ok := strings.CutPrefix(s, t.word+" ")
		if !ok {
			continue
		}
		return pick(s, t.alternatives) + " " + rest
	}
	return s
}

func expandContractions(s string) string {
	for _, c := range contractionRules {
		s = c.re.ReplaceAllStringFunc(s, func(match string) string {
			return matchCase(match, c.to)
		})
	}
	return s
}

func swapPhrases(s string) string {
	swaps := 0
	for _, p := range phraseRules {
		if swaps == maxPhraseSwaps {
			break
		}
		loc := p.re.FindStringIndex(s)
		if loc == nil {
			continue
		}
		match := s[loc[0]:loc[1]]
		replacement := matchCase(match, pick(s+match, p.alternatives))
		s = s[:loc[0]] + replacement + s[loc[1]:]
		swaps++
	}
	return s
}

// replaceSynonyms swaps up to a quarter of the words of s for synonyms,
// keeping surrounding punctuation and capitalization. About two in five
// candidate words are chosen, by hash.
func replaceSynonyms(s string) string {
	words := strings.Split(s, " ")
	limit := max(1, len(words)/maxSynonymShare)
	swaps := 0
	for i, w := range words {
		if swaps == limit {
			break
		}
		start, end := wordCore(w)
		core := strings.ToLower(w[start:end])
		if _, skip := commonWords[core]; skip {
			continue
		}
		if h := fnvHash(s + core); h%5 >= 2 {
			continue
		}
		syn, err := Synonym(core)
		if err != nil {
			continue
		}
		words[i] = w[:start] + matchCase(w[start:end], syn) + w[end:]
		swaps++
	}
	return strings.Join(words, " ")
}

// wordCore returns the bounds of w without leading and trailing
// punctuation.
func wordCore(w string) (int, int) {
	isPunct := func(r rune) bool { return !unicode.IsLetter(r) }
	trimmed := strings.TrimLeftFunc(w, isPunct)
	start := len(w) - len(trimmed)
	end := start + len(strings.TrimRightFunc(trimmed, isPunct))
	return start, end
}

func addOpener(s string) string {
	if len(strings.Fields(s)) < 4 {
		return s
	}
	first, _, _ := strings.Cut(s, " ")
	first = strings.TrimRight(first, ",")
	r, _ := utf8.DecodeRuneInString(s)
	if !unicode.IsUpper(r) || isConnective(first) {
		return s
	}
	return pick(s, openers) + ", " + lowerFirst(s)
}

func isConnective(word string) bool {
	for _, o := range openers {
		if strings.EqualFold(o, word) {
			return true
		}
	}
	for _, t := range leadingTransitions {
		for _, a := range t.alternatives {
			if strings.EqualFold(strings.TrimRight(a, ","), word) {
				return true
			}
		}
	}
	return false
}

// pick chooses one of options from a hash of key.
func pick(key string, options []string) string {
	return options[int(fnvHash(key)%uint32(len(options)))]
}

func fnvHash(key string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return h.Sum32()
}

// matchCase capitalizes replacement when original starts with an upper case
// letter.
func matchCase(original, replacement string) string {
	r, _ := utf8.DecodeRuneInString(original)
	if unicode.IsUpper(r) {
		return upperFirst(replacement)
	}
	return replacement
}

// upperFirst title cases the first word of s and leaves the rest alone.
func upperFirst(s string) string {
	word, rest, found := strings.Cut(s, " ")
	word = cases.Title(language.English, cases.NoLower).String(word)
	if !found {
		return word
	}
	return word + " " + rest
}

// lowerFirst lower cases the first rune unless the first word is "I" or an
// acronym.
func lowerFirst(s string) string {
	word, _, _ := strings.Cut(s, " ")
	if word == "I" || strings.HasPrefix(word, "I'") || strings.HasPrefix(word, "I’") {
		return s
	}
	if utf8.RuneCountInString(word) > 1 {
		_, size := utf8.DecodeRuneInString(word)
		second, _ := utf8.DecodeRuneInString(word[size:])
		if unicode.IsUpper(second) {
			return s
		}
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToLower(r)) + s[size:]
}
