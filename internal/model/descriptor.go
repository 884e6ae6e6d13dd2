package model

// Role tells whether a model scores text or generates text.
type Role string

const (
	// RoleDetector models return the probability that a text is AI-authored.
	RoleDetector Role = "detector"

	// RoleGenerator models paraphrase or rewrite text.
	RoleGenerator Role = "generator"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleDetector || r == RoleGenerator
}

// String returns the role name.
func (r Role) String() string {
	return string(r)
}

// GenerationOptions are the decoding parameters handed to a generator.
// Zero values mean "use the backend default".
type GenerationOptions struct {
	// Prefix is prepended to the input text (T5 models expect "paraphrase: ").
	// Generators echoing the prefix back have it stripped from their output.
	Prefix string `json:"prefix,omitempty" yaml:"prefix,omitempty"`

	// MaxLength caps the generated sequence length in tokens.
	MaxLength int `json:"max_length,omitempty" yaml:"maxLength,omitempty"`

	// NumBeams is the beam search width.
	NumBeams int `json:"num_beams,omitempty" yaml:"numBeams,omitempty"`

	// DoSample enables sampling instead of greedy decoding.
	DoSample bool `json:"do_sample,omitempty" yaml:"doSample,omitempty"`

	// Temperature is the sampling temperature.
	Temperature float64 `json:"temperature,omitempty" yaml:"temperature,omitempty"`

	// TopK restricts sampling to the k most likely tokens.
	TopK int `json:"top_k,omitempty" yaml:"topK,omitempty"`
}

// ModelDescriptor is an immutable catalog entry.
// Ranks are 1-based; rank 1 is the best model for that criterion.
type ModelDescriptor struct {
	// ID is the unique key of the model (usually the upstream model name).
	ID string `json:"id" yaml:"id"`

	// Role is either detector or generator.
	Role Role `json:"role" yaml:"role"`

	// DisplayName is the human readable name.
	DisplayName string `json:"display_name" yaml:"displayName"`

	// PerformanceRank orders models by overall quality.
	PerformanceRank int `json:"performance_rank" yaml:"performanceRank"`

	// SpeedRank orders models by inference speed.
	SpeedRank int `json:"speed_rank" yaml:"speedRank"`

	// AccuracyRank orders models by output accuracy.
	AccuracyRank int `json:"accuracy_rank" yaml:"accuracyRank"`

	// RequiresSpecialTokenizer is set for models that need a sentencepiece
	// tokenizer on the inference side.
	RequiresSpecialTokenizer bool `json:"requires_special_tokenizer" yaml:"requiresSpecialTokenizer"`

	// Local marks models implemented in-process. Local generators never
	// occupy the resident generator slot and need no load.
	Local bool `json:"local" yaml:"local"`

	// Generation holds the default decoding options for generators.
	Generation GenerationOptions `json:"generation,omitempty" yaml:"generation,omitempty"`
}

// IsDetector reports whether the model scores text.
func (d ModelDescriptor) IsDetector() bool {
	return d.Role == RoleDetector
}

// IsGenerator reports whether the model generates text.
func (d ModelDescriptor) IsGenerator() bool {
	return d.Role == RoleGenerator
}

// NeedsResidentSlot reports whether invoking the model requires it to be the
// single resident generator.
func (d ModelDescriptor) NeedsResidentSlot() bool {
	return d.IsGenerator() && !d.Local
}
