package registry

import "github.com/nao1215/humanizer/internal/model"

// Built-in model ids that other packages refer to.
const (
	// LocalStylometricID is the in-process stylometric detector.
	LocalStylometricID = "local-stylometric"
	// LocalRewriterID is the in-process rule based rewriter.
	LocalRewriterID = "local-rewriter"
	// LocalRewriterEnhancedID is the rewriter with sentence level variation.
	LocalRewriterEnhancedID = "local-rewriter-enhanced"
)

// t5Options are the decoding options shared by the T5 family, which expects
// a task prefix.
var t5Options = model.GenerationOptions{
	Prefix:      "paraphrase: ",
	MaxLength:   512,
	NumBeams:    4,
	DoSample:    true,
	Temperature: 0.7,
	TopK:        50,
}

var bartOptions = model.GenerationOptions{
	MaxLength:   512,
	NumBeams:    4,
	DoSample:    true,
	Temperature: 0.7,
	TopK:        50,
}

var pegasusOptions = model.GenerationOptions{
	MaxLength:   256,
	NumBeams:    10,
	DoSample:    true,
	Temperature: 0.8,
	TopK:        40,
}

// DefaultCatalog returns the built-in descriptors in catalog order.
func DefaultCatalog() []model.ModelDescriptor {
	return []model.ModelDescriptor{
		// Detectors.
		{
			ID:              "chatgpt-detector",
			Role:            model.RoleDetector,
			DisplayName:     "ChatGPT Detector (hello-simpleai/chatgpt-detector-roberta)",
			PerformanceRank: 1,
			SpeedRank:       2,
			AccuracyRank:    1,
		},
		{
			ID:              "roberta-large-openai-detector",
			Role:            model.RoleDetector,
			DisplayName:     "RoBERTa Large OpenAI Detector",
			PerformanceRank: 2,
			SpeedRank:       4,
			AccuracyRank:    2,
		},
		{
			ID:              "mixed-detector",
			Role:            model.RoleDetector,
			DisplayName:     "Mixed Detector (andreas122001/roberta-mixed-detector)",
			PerformanceRank: 3,
			SpeedRank:       3,
			AccuracyRank:    3,
		},
		{
			ID:              "roberta-base-openai-detector",
			Role:            model.RoleDetector,
			DisplayName:     "RoBERTa Base OpenAI Detector",
			PerformanceRank: 4,
			SpeedRank:       1,
			AccuracyRank:    4,
		},
		{
			ID:              LocalStylometricID,
			Role:            model.RoleDetector,
			DisplayName:     "Local Stylometric Scorer",
			PerformanceRank: 5,
			SpeedRank:       5,
			AccuracyRank:    5,
			Local:           true,
		},

		// Transformer generators.
		{
			ID:                       "humarin/chatgpt_paraphraser_on_T5_base",
			Role:                     model.RoleGenerator,
			DisplayName:              "ChatGPT Paraphraser on T5 Base",
			PerformanceRank:          1,
			SpeedRank:                5,
			AccuracyRank:             1,
			RequiresSpecialTokenizer: true,
			Generation:               t5Options,
		},
		{
			ID:                       "Vamsi/T5_Paraphrase_Paws",
			Role:                     model.RoleGenerator,
			DisplayName:              "T5 Paraphrase PAWS",
			PerformanceRank:          2,
			SpeedRank:                4,
			AccuracyRank:             2,
			RequiresSpecialTokenizer: true,
			Generation:               t5Options,
		},
		{
			ID:              "tuner007/pegasus_paraphrase",
			Role:            model.RoleGenerator,
			DisplayName:     "Pegasus Paraphrase",
			PerformanceRank: 3,
			SpeedRank:       7,
			AccuracyRank:    3,
			Generation:      pegasusOptions,
		},
		{
			ID:                       "t5-base",
			Role:                     model.RoleGenerator,
			DisplayName:              "T5 Base",
			PerformanceRank:          4,
			SpeedRank:                3,
			AccuracyRank:             5,
			RequiresSpecialTokenizer: true,
			Generation:               t5Options,
		},
		{
			ID:              "facebook/bart-large",
			Role:            model.RoleGenerator,
			DisplayName:     "BART Large",
			PerformanceRank: 5,
			SpeedRank:       6,
			AccuracyRank:    4,
			Generation:      bartOptions,
		},
		{
			ID:                       "t5-small",
			Role:                     model.RoleGenerator,
			DisplayName:              "T5 Small",
			PerformanceRank:          6,
			SpeedRank:                1,
			AccuracyRank:             7,
			RequiresSpecialTokenizer: true,
			Generation:               t5Options,
		},
		{
			ID:              "facebook/bart-base",
			Role:            model.RoleGenerator,
			DisplayName:     "BART Base",
			PerformanceRank: 7,
			SpeedRank:       2,
			AccuracyRank:    6,
			Generation:      bartOptions,
		},

		// Local generators.
		{
			ID:              LocalRewriterID,
			Role:            model.RoleGenerator,
			DisplayName:     "Local Rewriter",
			PerformanceRank: 8,
			SpeedRank:       1,
			AccuracyRank:    8,
			Local:           true,
		},
		{
			ID:              LocalRewriterEnhancedID,
			Role:            model.RoleGenerator,
			DisplayName:     "Local Rewriter (enhanced)",
			PerformanceRank: 9,
			SpeedRank:       1,
			AccuracyRank:    9,
			Local:           true,
		},
	}
}

// DefaultGoals maps goals to the built-in generators.
func DefaultGoals() map[string]string {
	return map[string]string{
		string(GoalQuality):  "humarin/chatgpt_paraphraser_on_T5_base",
		string(GoalSpeed):    "t5-small",
		string(GoalBalanced): "Vamsi/T5_Paraphrase_Paws",
		string(GoalCreative): "tuner007/pegasus_paraphrase",
		string(GoalAccuracy): "humarin/chatgpt_paraphraser_on_T5_base",
	}
}

// Default returns the built-in registry.
func Default() *Registry {
	r, err := New(DefaultCatalog(), WithGoals(DefaultGoals()))
	if err != nil {
		panic("registry: invalid built-in catalog: " + err.Error())
	}
	return r
}
