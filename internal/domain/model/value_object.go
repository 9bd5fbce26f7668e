package model

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/oklog/ulid/v2"
)

// WorkflowID represents a unique identifier for a workflow instance
type WorkflowID struct {
	value string
}

// NewWorkflowID creates a new WorkflowID backed by a ULID
// ULIDs sort lexicographically by creation time, which keeps listings stable
func NewWorkflowID() WorkflowID {
	return WorkflowID{value: ulid.Make().String()}
}

// NewWorkflowIDFromString creates a WorkflowID from an existing string
func NewWorkflowIDFromString(id string) (WorkflowID, error) {
	if id == "" {
		return WorkflowID{}, errors.New("workflow ID cannot be empty")
	}
	return WorkflowID{value: id}, nil
}

// String returns the string representation
func (w WorkflowID) String() string {
	return w.value
}

// Equals checks if two WorkflowIDs are equal
func (w WorkflowID) Equals(other WorkflowID) bool {
	return w.value == other.value
}

// Gate represents a mandatory approval checkpoint (G0..G7)
type Gate int

const (
	G0 Gate = iota
	G1
	G2
	G3
	G4
	G5
	G6
	G7
)

// GateCount is the number of gates in a pipeline
const GateCount = 8

// String returns the string representation, e.g. "G3"
func (g Gate) String() string {
	return fmt.Sprintf("G%d", int(g))
}

// IsValid validates the gate value
func (g Gate) IsValid() bool {
	return g >= G0 && g <= G7
}

// ParseGate parses a gate token such as "G3"
func ParseGate(s string) (Gate, error) {
	if !strings.HasPrefix(s, "G") {
		return 0, fmt.Errorf("invalid gate: %s", s)
	}
	n, err := strconv.Atoi(s[1:])
	if err != nil || !Gate(n).IsValid() {
		return 0, fmt.Errorf("invalid gate: %s", s)
	}
	return Gate(n), nil
}

// Phase represents a broader execution stage (Phase0..Phase5)
type Phase int

const (
	Phase0 Phase = iota
	Phase1
	Phase2
	Phase3
	Phase4
	Phase5
)

// PhaseCount is the number of phases in a pipeline
const PhaseCount = 6

// String returns the string representation, e.g. "P2"
func (p Phase) String() string {
	return fmt.Sprintf("P%d", int(p))
}

// IsValid validates the phase value
func (p Phase) IsValid() bool {
	return p >= Phase0 && p <= Phase5
}

// ParsePhase parses a phase token such as "P2"
func ParsePhase(s string) (Phase, error) {
	if !strings.HasPrefix(s, "P") {
		return 0, fmt.Errorf("invalid phase: %s", s)
	}
	n, err := strconv.Atoi(s[1:])
	if err != nil || !Phase(n).IsValid() {
		return 0, fmt.Errorf("invalid phase: %s", s)
	}
	return Phase(n), nil
}

// StepKind distinguishes gate steps from phase steps
type StepKind string

const (
	StepKindGate  StepKind = "GATE"
	StepKindPhase StepKind = "PHASE"
)

// String returns the string representation
func (k StepKind) String() string {
	return string(k)
}

// IsValid validates the step kind
func (k StepKind) IsValid() bool {
	return k == StepKindGate || k == StepKindPhase
}

// StepRef identifies a single step of the pipeline: one gate or one phase
type StepRef struct {
	Kind  StepKind
	Gate  Gate
	Phase Phase
}

// GateRef creates a StepRef for a gate
func GateRef(g Gate) StepRef {
	return StepRef{Kind: StepKindGate, Gate: g}
}

// PhaseRef creates a StepRef for a phase
func PhaseRef(p Phase) StepRef {
	return StepRef{Kind: StepKindPhase, Phase: p}
}

// String returns the step token, e.g. "G3" or "P2"
func (r StepRef) String() string {
	if r.Kind == StepKindPhase {
		return r.Phase.String()
	}
	return r.Gate.String()
}

// Ord returns the ordinal of the step within its kind
func (r StepRef) Ord() int {
	if r.Kind == StepKindPhase {
		return int(r.Phase)
	}
	return int(r.Gate)
}

// Equals checks if two StepRefs identify the same step
func (r StepRef) Equals(other StepRef) bool {
	return r.Kind == other.Kind && r.Ord() == other.Ord()
}

// IsValid validates the step reference
func (r StepRef) IsValid() bool {
	switch r.Kind {
	case StepKindGate:
		return r.Gate.IsValid()
	case StepKindPhase:
		return r.Phase.IsValid()
	default:
		return false
	}
}

// ParseStepRef parses a step token such as "G3" or "P2"
func ParseStepRef(s string) (StepRef, error) {
	if g, err := ParseGate(s); err == nil {
		return GateRef(g), nil
	}
	if p, err := ParsePhase(s); err == nil {
		return PhaseRef(p), nil
	}
	return StepRef{}, fmt.Errorf("invalid step token: %q (expected G0..G7 or P0..P5)", s)
}

// Status represents the lifecycle status of a workflow instance
type Status string

const (
	StatusInitialized      Status = "INITIALIZED"
	StatusRunning          Status = "RUNNING"
	StatusAwaitingApproval Status = "AWAITING_APPROVAL"
	StatusCompleted        Status = "COMPLETED"
	StatusFailed           Status = "FAILED"
	StatusAborted          Status = "ABORTED"
)

// String returns the string representation
func (s Status) String() string {
	return string(s)
}

// IsValid validates the status
func (s Status) IsValid() bool {
	switch s {
	case StatusInitialized, StatusRunning, StatusAwaitingApproval,
		StatusCompleted, StatusFailed, StatusAborted:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether no further transitions are permitted
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusAborted:
		return true
	default:
		return false
	}
}

// CanTransitionTo checks if a status transition is valid
func (s Status) CanTransitionTo(next Status) bool {
	validTransitions := map[Status][]Status{
		StatusInitialized:      {StatusRunning, StatusFailed, StatusAborted},
		StatusRunning:          {StatusAwaitingApproval, StatusCompleted, StatusFailed, StatusAborted},
		StatusAwaitingApproval: {StatusRunning, StatusCompleted, StatusFailed, StatusAborted},
		StatusCompleted:        {},
		StatusFailed:           {},
		StatusAborted:          {},
	}

	allowed, exists := validTransitions[s]
	if !exists {
		return false
	}

	for _, allowedStatus := range allowed {
		if allowedStatus == next {
			return true
		}
	}
	return false
}

// Outcome represents the recorded outcome of a step
type Outcome string

const (
	OutcomePending  Outcome = "PENDING"
	OutcomeApproved Outcome = "APPROVED"
	OutcomeRejected Outcome = "REJECTED"
	OutcomeSkipped  Outcome = "SKIPPED"
)

// String returns the string representation
func (o Outcome) String() string {
	return string(o)
}

// IsValid validates the outcome
func (o Outcome) IsValid() bool {
	switch o {
	case OutcomePending, OutcomeApproved, OutcomeRejected, OutcomeSkipped:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether the outcome is final for its step
func (o Outcome) IsTerminal() bool {
	switch o {
	case OutcomeApproved, OutcomeRejected, OutcomeSkipped:
		return true
	default:
		return false
	}
}

// Passed reports whether the outcome allows the pipeline past the step
func (o Outcome) Passed() bool {
	return o == OutcomeApproved || o == OutcomeSkipped
}
