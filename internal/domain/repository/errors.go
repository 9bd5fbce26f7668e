package repository

import (
	"errors"
	"fmt"

	"github.com/tsubakihara/ringi/internal/domain/model"
	"github.com/tsubakihara/ringi/internal/domain/model/workflow"
)

// ErrNotFound is returned when a workflow ID is unknown to the store
var ErrNotFound = errors.New("workflow not found")

// ConflictError is returned when a terminal step record already exists
// for the tuple and the retried record does not match it. An identical
// retry is not a conflict; it returns the stored record instead.
type ConflictError struct {
	WorkflowID model.WorkflowID
	Step       model.StepRef
	Existing   workflow.StepRecord
}

// Error returns the conflict description
func (e *ConflictError) Error() string {
	return fmt.Sprintf("workflow %s: step %s already recorded with outcome %s",
		e.WorkflowID, e.Step, e.Existing.Outcome)
}

// StaleWriteError is returned when a compare-and-set pointer update lost
// to a concurrent writer. The caller's view of the instance is behind the
// persisted state and must be reloaded.
type StaleWriteError struct {
	WorkflowID model.WorkflowID
	Expected   workflow.Pointer
	Actual     workflow.Pointer
}

// Error returns the stale-write description
func (e *StaleWriteError) Error() string {
	return fmt.Sprintf("workflow %s: stale pointer write, expected %s but store holds %s",
		e.WorkflowID, e.Expected, e.Actual)
}

// StoreError wraps an underlying persistence failure with the operation
// name and workflow ID so callers always know which mutation failed.
type StoreError struct {
	Op         string
	WorkflowID string
	Err        error
}

// Error returns the wrapped description
func (e *StoreError) Error() string {
	if e.WorkflowID == "" {
		return fmt.Sprintf("store %s failed: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("store %s failed for workflow %s: %v", e.Op, e.WorkflowID, e.Err)
}

// Unwrap exposes the underlying error
func (e *StoreError) Unwrap() error {
	return e.Err
}
