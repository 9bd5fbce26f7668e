package workflow

import (
	"fmt"
	"time"

	"github.com/tsubakihara/ringi/internal/domain/model"
	"github.com/tsubakihara/ringi/internal/domain/profile"
	"github.com/tsubakihara/ringi/internal/domain/sequence"
)

// Pointer is the persisted progress marker of a workflow instance.
// Gate and phase only ever move forward; status follows the lifecycle
// transition table in the model package.
type Pointer struct {
	Gate   model.Gate
	Phase  model.Phase
	Status model.Status
}

// String returns a compact representation, e.g. "(G1, P0, RUNNING)"
func (p Pointer) String() string {
	return fmt.Sprintf("(%s, %s, %s)", p.Gate, p.Phase, p.Status)
}

// Equals checks if two pointers are identical
func (p Pointer) Equals(other Pointer) bool {
	return p.Gate == other.Gate && p.Phase == other.Phase && p.Status == other.Status
}

// Workflow is the aggregate root of a governed approval pipeline.
// The enforcement profile and the sequence table are snapshotted at
// creation and immutable for the lifetime of the instance.
type Workflow struct {
	id        model.WorkflowID
	pointer   Pointer
	profile   profile.Profile
	table     sequence.Table
	createdAt time.Time
	updatedAt time.Time
}

// NewWorkflow creates a new workflow instance at (G0, P0, INITIALIZED)
func NewWorkflow(prof profile.Profile, table sequence.Table) *Workflow {
	now := time.Now().UTC()
	return &Workflow{
		id: model.NewWorkflowID(),
		pointer: Pointer{
			Gate:   model.G0,
			Phase:  model.Phase0,
			Status: model.StatusInitialized,
		},
		profile:   prof,
		table:     table,
		createdAt: now,
		updatedAt: now,
	}
}

// ReconstructWorkflow rebuilds a workflow from stored data
func ReconstructWorkflow(
	id model.WorkflowID,
	pointer Pointer,
	prof profile.Profile,
	table sequence.Table,
	createdAt time.Time,
	updatedAt time.Time,
) *Workflow {
	return &Workflow{
		id:        id,
		pointer:   pointer,
		profile:   prof,
		table:     table,
		createdAt: createdAt,
		updatedAt: updatedAt,
	}
}

// ID returns the workflow identifier
func (w *Workflow) ID() model.WorkflowID {
	return w.id
}

// Pointer returns the current progress marker
func (w *Workflow) Pointer() Pointer {
	return w.pointer
}

// Gate returns the current gate
func (w *Workflow) Gate() model.Gate {
	return w.pointer.Gate
}

// Phase returns the current phase
func (w *Workflow) Phase() model.Phase {
	return w.pointer.Phase
}

// Status returns the lifecycle status
func (w *Workflow) Status() model.Status {
	return w.pointer.Status
}

// Profile returns the enforcement profile snapshot
func (w *Workflow) Profile() profile.Profile {
	return w.profile
}

// Table returns the sequence table snapshot
func (w *Workflow) Table() sequence.Table {
	return w.table
}

// CreatedAt returns the creation timestamp
func (w *Workflow) CreatedAt() time.Time {
	return w.createdAt
}

// UpdatedAt returns the last update timestamp
func (w *Workflow) UpdatedAt() time.Time {
	return w.updatedAt
}

// IsTerminal reports whether the workflow accepts no further transitions
func (w *Workflow) IsTerminal() bool {
	return w.pointer.Status.IsTerminal()
}

// Start transitions INITIALIZED -> RUNNING without moving the pointer
func (w *Workflow) Start() error {
	if w.pointer.Status != model.StatusInitialized {
		return fmt.Errorf("cannot start workflow %s in status %s", w.id, w.pointer.Status)
	}
	w.pointer.Status = model.StatusRunning
	w.touch()
	return nil
}

// MoveTo applies a committed pointer transition. Gate and phase must not
// decrease and the status transition must be valid per the lifecycle table.
func (w *Workflow) MoveTo(next Pointer) error {
	if w.pointer.Status.IsTerminal() {
		return fmt.Errorf("workflow %s is terminal (%s)", w.id, w.pointer.Status)
	}
	if next.Gate < w.pointer.Gate || next.Phase < w.pointer.Phase {
		return fmt.Errorf("workflow %s: pointer cannot move backwards from %s to %s",
			w.id, w.pointer, next)
	}
	if next.Status != w.pointer.Status && !w.pointer.Status.CanTransitionTo(next.Status) {
		return fmt.Errorf("workflow %s: invalid status transition %s -> %s",
			w.id, w.pointer.Status, next.Status)
	}
	w.pointer = next
	w.touch()
	return nil
}

// Abort moves any non-terminal workflow to ABORTED. Aborting an already
// terminal workflow is a no-op so caller retries stay harmless.
func (w *Workflow) Abort() bool {
	if w.pointer.Status.IsTerminal() {
		return false
	}
	w.pointer.Status = model.StatusAborted
	w.touch()
	return true
}

func (w *Workflow) touch() {
	w.updatedAt = time.Now().UTC()
}
