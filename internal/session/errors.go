package session

import "fmt"

// Pipeline stage identifiers used in errors, metrics and log records
const (
	StageTranscription = "transcription"
	StageNormalization = "normalization"
	StageGeneration    = "generation"
	StageSynthesis     = "synthesis"
)

// StageError identifies which pipeline stage a remote call failed in.
// The orchestrator decides user visibility; adapters never swallow
// failures into empty values.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// newStageError wraps err with its originating stage
func newStageError(stage string, err error) *StageError {
	return &StageError{Stage: stage, Err: err}
}
