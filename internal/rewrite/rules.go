package rewrite

// contractions are expanded for a more formal register.
var contractions = []struct {
	from, to string
}{
	{"don't", "do not"},
	{"won't", "will not"},
	{"can't", "cannot"},
	{"isn't", "is not"},
	{"aren't", "are not"},
	{"wasn't", "was not"},
	{"weren't", "were not"},
	{"hasn't", "has not"},
	{"haven't", "have not"},
	{"wouldn't", "would not"},
	{"couldn't", "could not"},
	{"shouldn't", "should not"},
	{"it's", "it is"},
	{"that's", "that is"},
	{"there's", "there is"},
	{"what's", "what is"},
	{"you're", "you are"},
	{"we're", "we are"},
	{"they're", "they are"},
}

// leadingTransitions replaces a sentence opening word.
var leadingTransitions = []struct {
	word         string
	alternatives []string
}{
	{"Also", []string{"Furthermore,", "Additionally,", "Moreover,", "In addition,"}},
	{"But", []string{"However,", "Nevertheless,", "Nonetheless,", "Conversely,"}},
	{"So", []string{"Therefore,", "Consequently,", "Thus,", "Hence,"}},
	{"And", []string{"Furthermore,", "Additionally,", "Moreover,"}},
	{"First", []string{"Initially,", "Primarily,", "To begin with,"}},
	{"Finally", []string{"In conclusion,", "Ultimately,", "Lastly,"}},
}

// openers are prepended to sentences by the enhanced rewriter.
var openers = []string{
	"Furthermore", "Additionally", "Moreover", "Notably",
	"Significantly", "Importantly", "Specifically", "Indeed",
	"Particularly", "Evidently", "Consequently", "Subsequently",
	"Interestingly", "Remarkably", "Essentially", "Ultimately",
	"Clearly", "Undoubtedly", "Certainly",
}

// phrases are word level substitutions of the enhanced rewriter. Keys are
// matched as whole lower case words.
var phrases = []struct {
	from         string
	alternatives []string
}{
	{"because", []string{"due to the fact that", "given that", "since", "as"}},
	{"use", []string{"utilize", "employ", "apply"}},
	{"show", []string{"demonstrate", "illustrate", "reveal"}},
	{"help", []string{"facilitate", "assist", "support"}},
	{"get", []string{"obtain", "acquire", "secure"}},
	{"make", []string{"create", "establish", "produce"}},
	{"find", []string{"discover", "identify", "determine"}},
	{"think", []string{"consider", "believe", "suggest"}},
	{"very", []string{"significantly", "considerably", "substantially"}},
	{"big", []string{"substantial", "significant", "considerable"}},
	{"small", []string{"minimal", "limited", "modest"}},
	{"good", []string{"excellent", "effective", "beneficial"}},
	{"bad", []string{"detrimental", "problematic", "unfavorable"}},
	{"new", []string{"novel", "innovative", "recent"}},
	{"old", []string{"traditional", "established", "conventional"}},
	{"many", []string{"numerous", "multiple", "various"}},
	{"few", []string{"limited", "sparse", "scarce"}},
}

// synonyms is the single word thesaurus behind Synonym and the enhanced
// rewriter. Keys are lower case and none of them is a phrase rule key.
var synonyms = map[string][]string{
	"important": {"key", "vital", "major", "essential"},
	"quickly":   {"rapidly", "swiftly", "promptly"},
	"start":     {"begin", "launch", "open"},
	"begin":     {"start", "commence", "open"},
	"end":       {"finish", "close", "conclude"},
	"large":     {"huge", "sizable", "vast"},
	"difficult": {"hard", "tough", "tricky", "demanding"},
	"easy":      {"simple", "effortless", "painless"},
	"problem":   {"issue", "trouble", "difficulty"},
	"answer":    {"reply", "response", "solution"},
	"idea":      {"notion", "concept", "thought"},
	"choose":    {"pick", "select", "opt"},
	"need":      {"require", "want", "lack"},
	"try":       {"attempt", "test", "seek"},
	"buy":       {"purchase", "acquire", "obtain"},
	"happy":     {"glad", "cheerful", "content"},
	"sad":       {"unhappy", "gloomy", "glum"},
	"fast":      {"quick", "rapid", "speedy"},
	"often":     {"frequently", "regularly", "commonly"},
	"maybe":     {"perhaps", "possibly"},
	"enough":    {"sufficient", "adequate", "ample"},
	"explain":   {"clarify", "describe", "illustrate"},
	"improve":   {"enhance", "refine", "upgrade"},
	"increase":  {"raise", "boost", "expand"},
	"decrease":  {"reduce", "lower", "cut"},
	"method":    {"approach", "technique", "way"},
	"result":    {"outcome", "effect", "consequence"},
	"change":    {"alter", "modify", "adjust"},
	"build":     {"construct", "assemble", "create"},
	"keep":      {"retain", "maintain", "hold"},
	"give":      {"provide", "offer", "supply"},
	"tell":      {"inform", "notify", "advise"},
	"allow":     {"permit", "let", "enable"},
	"seem":      {"appear", "look"},
	"clear":     {"plain", "obvious", "evident"},
	"simple":    {"basic", "plain", "easy"},
	"common":    {"usual", "typical", "ordinary"},
	"rare":      {"uncommon", "scarce", "unusual"},
	"main":      {"primary", "chief", "principal"},
	"whole":     {"entire", "complete", "total"},
	"strange":   {"odd", "unusual", "peculiar"},
	"smart":     {"clever", "bright", "sharp"},
	"angry":     {"annoyed", "irate", "cross"},
	"tired":     {"weary", "exhausted", "drained"},
	"hard":      {"tough", "difficult", "demanding"},
	"worry":     {"concern", "fret", "unease"},
	"mistake":   {"error", "slip", "blunder"},
	"chance":    {"opportunity", "prospect", "possibility"},
	"goal":      {"aim", "target", "objective"},
	"job":       {"task", "role", "position"},
}

// commonWords are never replaced by a synonym.
var commonWords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "are": {}, "but": {}, "not": {}, "you": {},
	"all": {}, "can": {}, "had": {}, "her": {}, "was": {}, "one": {}, "our": {},
	"out": {}, "has": {}, "his": {}, "how": {}, "its": {}, "may": {}, "who": {},
	"did": {}, "yes": {}, "she": {}, "they": {}, "this": {}, "that": {},
	"with": {}, "have": {}, "from": {}, "will": {}, "what": {}, "when": {},
	"there": {}, "their": {}, "would": {}, "could": {}, "should": {},
}

// maxSynonymShare is the fraction of a sentence's words, as a divisor,
// the enhanced rewriter may replace with synonyms.
const maxSynonymShare = 4

// maxPhraseSwaps caps the substitutions per sentence.
const maxPhraseSwaps = 3

// formalMarkers are words the stylometric scorer counts as formal
// connectives, which machine generated prose overuses.
var formalMarkers = map[string]struct{}{
	"furthermore": {}, "additionally": {}, "moreover": {}, "consequently": {},
	"therefore": {}, "thus": {}, "hence": {}, "nevertheless": {},
	"nonetheless": {}, "notably": {}, "significantly": {}, "importantly": {},
	"ultimately": {}, "overall": {}, "delve": {}, "crucial": {},
	"comprehensive": {}, "facilitate": {}, "utilize": {}, "leverage": {},
}
