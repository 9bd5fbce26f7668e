// Package sequence defines the interleaving table between gates and
// phases. The ordering is deployment configuration, not hardcoded logic:
// a table lists every gate and every phase exactly once, each kind in
// ascending order, and is snapshotted into the workflow instance at
// creation so resume stays deterministic.
package sequence

import (
	"fmt"

	"github.com/tsubakihara/ringi/internal/domain/model"
)

// Table is an immutable ordered list of pipeline steps
type Table struct {
	entries []model.StepRef
}

// Default returns the standard interleave: each phase nested after its
// gate, with G6 and G7 as trailing release gates.
//
//	G0 P0 G1 P1 G2 P2 G3 P3 G4 P4 G5 P5 G6 G7
func Default() Table {
	t, err := Parse([]string{
		"G0", "P0", "G1", "P1", "G2", "P2", "G3", "P3",
		"G4", "P4", "G5", "P5", "G6", "G7",
	})
	if err != nil {
		// The default table is a compile-time constant in all but syntax
		panic(err)
	}
	return t
}

// New creates a validated table from step references
func New(entries []model.StepRef) (Table, error) {
	t := Table{entries: append([]model.StepRef(nil), entries...)}
	if err := t.validate(); err != nil {
		return Table{}, err
	}
	return t, nil
}

// Parse creates a validated table from step tokens such as "G0", "P2"
func Parse(tokens []string) (Table, error) {
	entries := make([]model.StepRef, 0, len(tokens))
	for _, tok := range tokens {
		ref, err := model.ParseStepRef(tok)
		if err != nil {
			return Table{}, err
		}
		entries = append(entries, ref)
	}
	return New(entries)
}

// Len returns the number of steps in the table
func (t Table) Len() int {
	return len(t.entries)
}

// At returns the step at position i
func (t Table) At(i int) model.StepRef {
	return t.entries[i]
}

// Entries returns a copy of the step list
func (t Table) Entries() []model.StepRef {
	return append([]model.StepRef(nil), t.entries...)
}

// Tokens returns the step tokens in order, e.g. ["G0", "P0", ...]
func (t Table) Tokens() []string {
	tokens := make([]string, len(t.entries))
	for i, e := range t.entries {
		tokens[i] = e.String()
	}
	return tokens
}

// IndexOf returns the position of a step in the table
func (t Table) IndexOf(ref model.StepRef) (int, bool) {
	for i, e := range t.entries {
		if e.Equals(ref) {
			return i, true
		}
	}
	return 0, false
}

// PointerAt projects the (gate, phase) pointer after the first `completed`
// steps have terminally passed. Each component is the next pending entry
// of its kind, or the final value once that kind is exhausted. Because the
// table is per-kind ascending, both components are monotone in `completed`.
func (t Table) PointerAt(completed int) (model.Gate, model.Phase) {
	if completed < 0 {
		completed = 0
	}
	if completed > len(t.entries) {
		completed = len(t.entries)
	}

	gate := model.Gate(model.GateCount - 1)
	phase := model.Phase(model.PhaseCount - 1)
	gateFound, phaseFound := false, false
	for i := completed; i < len(t.entries); i++ {
		e := t.entries[i]
		if e.Kind == model.StepKindGate && !gateFound {
			gate = e.Gate
			gateFound = true
		}
		if e.Kind == model.StepKindPhase && !phaseFound {
			phase = e.Phase
			phaseFound = true
		}
		if gateFound && phaseFound {
			break
		}
	}
	return gate, phase
}

// validate enforces the table shape: non-empty, every gate and phase
// present exactly once, each kind strictly ascending.
func (t Table) validate() error {
	if len(t.entries) == 0 {
		return fmt.Errorf("sequence table is empty")
	}

	seenGates := make(map[model.Gate]bool)
	seenPhases := make(map[model.Phase]bool)
	lastGate, lastPhase := -1, -1

	for i, e := range t.entries {
		if !e.IsValid() {
			return fmt.Errorf("sequence table entry %d is invalid", i)
		}
		switch e.Kind {
		case model.StepKindGate:
			if seenGates[e.Gate] {
				return fmt.Errorf("sequence table repeats gate %s", e.Gate)
			}
			if int(e.Gate) <= lastGate {
				return fmt.Errorf("sequence table gates must ascend: %s after G%d", e.Gate, lastGate)
			}
			seenGates[e.Gate] = true
			lastGate = int(e.Gate)
		case model.StepKindPhase:
			if seenPhases[e.Phase] {
				return fmt.Errorf("sequence table repeats phase %s", e.Phase)
			}
			if int(e.Phase) <= lastPhase {
				return fmt.Errorf("sequence table phases must ascend: %s after P%d", e.Phase, lastPhase)
			}
			seenPhases[e.Phase] = true
			lastPhase = int(e.Phase)
		}
	}

	if len(seenGates) != model.GateCount {
		return fmt.Errorf("sequence table must contain all %d gates, found %d", model.GateCount, len(seenGates))
	}
	if len(seenPhases) != model.PhaseCount {
		return fmt.Errorf("sequence table must contain all %d phases, found %d", model.PhaseCount, len(seenPhases))
	}
	return nil
}
