// Package automlerrors defines the error taxonomy shared by the pipeline
// stages and the job manager. The job manager is the only component that
// translates these into a terminal job state.
package automlerrors

import "fmt"

// ValidationError reports a malformed run configuration. Jobs failing
// validation are rejected before they start.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid configuration: %s", e.Reason)
	}
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}

// NewValidationError creates a validation error for a config field.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// UnsupportedDataTypeError reports a data-type override that matches no
// preprocessing path. Raised before any split is computed.
type UnsupportedDataTypeError struct {
	DataType string
}

func (e *UnsupportedDataTypeError) Error() string {
	return fmt.Sprintf("unsupported data type %q", e.DataType)
}

// CandidateTrainingError reports a single estimator failing to fit. It is
// recovered at the trainer boundary; the candidate is excluded and the run
// continues.
type CandidateTrainingError struct {
	Model string
	Cause error
}

func (e *CandidateTrainingError) Error() string {
	return fmt.Sprintf("training candidate %s failed: %v", e.Model, e.Cause)
}

func (e *CandidateTrainingError) Unwrap() error { return e.Cause }

// PipelineExecutionError reports a stage-level failure that cannot be
// recovered locally. Fatal for the run.
type PipelineExecutionError struct {
	Stage string
	Cause error
}

func (e *PipelineExecutionError) Error() string {
	return fmt.Sprintf("pipeline stage %s failed: %v", e.Stage, e.Cause)
}

func (e *PipelineExecutionError) Unwrap() error { return e.Cause }

// NewPipelineError wraps a stage failure.
func NewPipelineError(stage string, cause error) *PipelineExecutionError {
	return &PipelineExecutionError{Stage: stage, Cause: cause}
}

// ArtifactPersistenceError reports a failure writing or reading the run
// artifact bundle. A run that hits this is never reported as completed.
type ArtifactPersistenceError struct {
	RunID string
	Op    string
	Cause error
}

func (e *ArtifactPersistenceError) Error() string {
	return fmt.Sprintf("artifact %s failed for run %s: %v", e.Op, e.RunID, e.Cause)
}

func (e *ArtifactPersistenceError) Unwrap() error { return e.Cause }
