package model

import "time"

// RunState is the lifecycle state of a pipeline run.
type RunState string

const (
	// RunPending is the state before the first step starts.
	RunPending RunState = "PENDING"
	// RunRunning is the state while steps execute.
	RunRunning RunState = "RUNNING"
	// RunComplete is the terminal state after every step was attempted.
	RunComplete RunState = "COMPLETE"
	// RunAborted is the terminal state after a model load failure.
	RunAborted RunState = "ABORTED"
)

// Terminal reports whether no further transition can happen.
func (s RunState) Terminal() bool {
	return s == RunComplete || s == RunAborted
}

// StepStatus is the outcome of one pipeline step.
type StepStatus string

const (
	// StepSuccess means the generator produced non-empty output.
	StepSuccess StepStatus = "SUCCESS"
	// StepFailed means the generator errored, timed out, or produced nothing.
	StepFailed StepStatus = "FAILED"
)

// PipelineStep records one generator invocation inside a run.
// On failure OutputText equals InputText.
type PipelineStep struct {
	StepIndex  int        `json:"step"`
	ModelID    string     `json:"model"`
	InputText  string     `json:"input_text"`
	OutputText string     `json:"output_text"`
	Success    bool       `json:"success"`
	Status     StepStatus `json:"status"`
	Error      string     `json:"error,omitempty"`
	TimedOut   bool       `json:"timed_out,omitempty"`
	Duration   Duration   `json:"processing_time"`
}

// PipelineStatistics summarizes a run.
type PipelineStatistics struct {
	PipelineSteps         int      `json:"pipeline_steps"`
	SuccessfulSteps       int      `json:"successful_steps"`
	FailedSteps           int      `json:"failed_steps"`
	OriginalLength        int      `json:"original_length"`
	FinalLength           int      `json:"final_length"`
	TotalLengthChange     int      `json:"total_length_change"`
	TotalProcessingTime   Duration `json:"total_processing_time"`
	AverageProcessingTime Duration `json:"average_processing_time"`
}

// PipelineRun is the full record of one humanization pipeline.
type PipelineRun struct {
	ID           string             `json:"id"`
	State        RunState           `json:"state"`
	OriginalText string             `json:"original_text"`
	FinalText    string             `json:"final_text"`
	Steps        []PipelineStep     `json:"pipeline_results"`
	Statistics   PipelineStatistics `json:"statistics"`
	StartedAt    time.Time          `json:"started_at"`
}

// Models returns the model ids of the run steps in order.
func (r *PipelineRun) Models() []string {
	ids := make([]string, 0, len(r.Steps))
	for _, s := range r.Steps {
		ids = append(ids, s.ModelID)
	}
	return ids
}

// GenerationStatistics describes a single generator call.
type GenerationStatistics struct {
	OriginalLength int      `json:"original_length"`
	OutputLength   int      `json:"output_length"`
	LengthChange   int      `json:"length_change"`
	OriginalWords  int      `json:"original_words"`
	OutputWords    int      `json:"output_words"`
	Duration       Duration `json:"processing_time"`
}

// Generation is the result of a single paraphrase or rewrite.
type Generation struct {
	ModelID      string               `json:"model_used"`
	OriginalText string               `json:"original_text"`
	Text         string               `json:"text"`
	Statistics   GenerationStatistics `json:"statistics"`
}

// Humanization is the result of the composite paraphrase-then-rewrite flow.
type Humanization struct {
	OriginalText string         `json:"original_text"`
	Text         string         `json:"humanized_text"`
	Stages       []Generation   `json:"stages"`
	Failures     []ModelFailure `json:"failures,omitempty"`
	Duration     Duration       `json:"processing_time"`
}

// Verification is the closed loop result: detection before, pipeline, and
// detection after.
type Verification struct {
	Before Detection   `json:"before"`
	After  Detection   `json:"after"`
	Run    PipelineRun `json:"pipeline"`
	// Improvement is Before minus After AI probability. Positive is better.
	Improvement float64 `json:"improvement"`
}
