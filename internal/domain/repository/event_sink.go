package repository

import "context"

// Event kinds published on committed transitions.
const (
	EventWorkflowCreated   = "workflow.created"
	EventWorkflowStarted   = "workflow.started"
	EventStepRecorded      = "step.recorded"
	EventPointerAdvanced   = "pointer.advanced"
	EventWorkflowCompleted = "workflow.completed"
	EventWorkflowFailed    = "workflow.failed"
	EventWorkflowAborted   = "workflow.aborted"
)

// TransitionEvent describes one durably committed state transition.
// Events are published strictly after the commit, so observers never see
// a transition that did not persist.
type TransitionEvent struct {
	EventID    string `json:"event_id"`
	Kind       string `json:"kind"`
	WorkflowID string `json:"workflow_id"`
	PrevGate   string `json:"prev_gate"`
	PrevPhase  string `json:"prev_phase"`
	PrevStatus string `json:"prev_status"`
	NewGate    string `json:"new_gate"`
	NewPhase   string `json:"new_phase"`
	NewStatus  string `json:"new_status"`
	Step       string `json:"step,omitempty"`
	Outcome    string `json:"outcome,omitempty"`
	Reason     string `json:"reason,omitempty"`
	Timestamp  string `json:"timestamp"`
}

// EventSink receives fire-and-forget transition notifications for
// downstream observers (dashboards, memory stores, observability glue).
// Publish failures are logged by the caller and never propagated as
// workflow failures.
type EventSink interface {
	Publish(ctx context.Context, event TransitionEvent) error
}
