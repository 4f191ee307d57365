package render

import "fmt"

// Stage tags the phase of an export. It rides on errors and progress
// events so callers can tell where an export was when it failed.
type Stage string

const (
	StageInit     Stage = "init"
	StageInput    Stage = "stage-input"
	StageImages   Stage = "stage-images"
	StageExecute  Stage = "execute"
	StageFinalize Stage = "read-output"
	StageCleanup  Stage = "cleanup"
)

// ExportError is the single terminal error of a failed export: the first
// fatal error encountered, annotated with the stage it happened in.
// Cleanup has always run by the time one is returned.
type ExportError struct {
	Stage Stage
	Err   error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("export failed at %s: %v", e.Stage, e.Err)
}

func (e *ExportError) Unwrap() error { return e.Err }

func failAt(stage Stage, err error) *ExportError {
	return &ExportError{Stage: stage, Err: err}
}
