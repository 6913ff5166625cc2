package uptimer

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by repositories when the requested record does not
// exist.
var ErrNotFound = errors.New("not found")

// UnknownStageError reports a pipeline stage spec whose type has no registry
// entry.
type UnknownStageError struct {
	Type string
}

func (e *UnknownStageError) Error() string {
	return fmt.Sprintf("unknown stage: %q", e.Type)
}

// BadStageConfigError reports a stage spec whose options failed validation.
type BadStageConfigError struct {
	Type   string
	Index  int
	Reason string
}

func (e *BadStageConfigError) Error() string {
	return fmt.Sprintf("stage %d (%s): %s", e.Index, e.Type, e.Reason)
}

// BadPipelineError reports a structurally invalid pipeline (empty, or without
// a network stage).
type BadPipelineError struct {
	Reason string
}

func (e *BadPipelineError) Error() string {
	return "invalid pipeline: " + e.Reason
}

// ValidationError reports an invalid monitor field on create or update.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Reason
}

// IsBadRequest reports whether err is a configuration-time error that the API
// should surface as 400 rather than 500.
func IsBadRequest(err error) bool {
	var unknown *UnknownStageError
	var badStage *BadStageConfigError
	var badPipe *BadPipelineError
	var invalid *ValidationError
	return errors.As(err, &unknown) ||
		errors.As(err, &badStage) ||
		errors.As(err, &badPipe) ||
		errors.As(err, &invalid)
}
