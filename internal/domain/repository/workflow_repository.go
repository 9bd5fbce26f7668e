package repository

import (
	"context"

	"github.com/tsubakihara/ringi/internal/domain/model"
	"github.com/tsubakihara/ringi/internal/domain/model/workflow"
)

// WorkflowRepository is the single source of truth for workflow state.
// It is the only component permitted to mutate persisted state; the
// state machine holds nothing it cannot reconstruct from here.
type WorkflowRepository interface {
	// Create persists a freshly initialized workflow instance
	Create(ctx context.Context, wf *workflow.Workflow) error

	// Find loads an instance by ID, reconstructing the profile and
	// sequence snapshots from the stored row. Returns ErrNotFound if
	// the ID is unknown.
	Find(ctx context.Context, id model.WorkflowID) (*workflow.Workflow, error)

	// List returns all instances, newest first
	List(ctx context.Context) ([]*workflow.Workflow, error)

	// UpdatePointer atomically compare-and-sets the progress pointer.
	// The update applies only if the stored pointer still equals
	// `expected`; otherwise a StaleWriteError carrying the actual
	// stored pointer is returned.
	UpdatePointer(ctx context.Context, id model.WorkflowID, expected, next workflow.Pointer) error

	// AppendStep writes a terminal step record at most once per
	// (workflow, step) tuple. Retrying with an identical record returns
	// the stored original and no error; a differing record returns a
	// ConflictError.
	AppendStep(ctx context.Context, rec workflow.StepRecord) (*workflow.StepRecord, error)

	// FindSteps returns the step log for an instance in recording order
	FindSteps(ctx context.Context, id model.WorkflowID) ([]workflow.StepRecord, error)

	// RecordMetric appends one measurement sample. Duplicates are valid
	// distinct samples and never fail.
	RecordMetric(ctx context.Context, sample workflow.MetricSample) error

	// FindMetrics returns all samples for an instance in recording order
	FindMetrics(ctx context.Context, id model.WorkflowID) ([]workflow.MetricSample, error)
}
