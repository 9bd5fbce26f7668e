package workflow

import (
	"time"

	"github.com/tsubakihara/ringi/internal/domain/model"
)

// Evidence carries the material submitted with an approval request:
// opaque artifact references plus measured metric values. Raw report
// contents are never embedded, only references.
type Evidence struct {
	Refs         []string
	Measurements map[string]float64
}

// StepRecord is the persisted outcome of a single gate or phase.
// A (workflow, step) tuple is written at most once with a terminal outcome.
type StepRecord struct {
	WorkflowID   model.WorkflowID
	Step         model.StepRef
	Outcome      model.Outcome
	EvidenceRefs []string
	Violations   []string
	ApprovedBy   string
	ApprovedAt   *time.Time
	RecordedAt   time.Time
}

// Matches reports whether a retried request is identical to the stored
// record: same step, same outcome, same evidence references. Identical
// retries are idempotent; anything else is a conflict.
func (r StepRecord) Matches(other StepRecord) bool {
	if !r.Step.Equals(other.Step) || r.Outcome != other.Outcome {
		return false
	}
	if len(r.EvidenceRefs) != len(other.EvidenceRefs) {
		return false
	}
	for i := range r.EvidenceRefs {
		if r.EvidenceRefs[i] != other.EvidenceRefs[i] {
			return false
		}
	}
	return true
}

// MetricSample is one append-only measurement attached to a workflow step.
// Duplicate samples are valid distinct observations, never deduplicated.
type MetricSample struct {
	WorkflowID model.WorkflowID
	Step       model.StepRef
	Name       string
	Value      float64
	RecordedAt time.Time
}
