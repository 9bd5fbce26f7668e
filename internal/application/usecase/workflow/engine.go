// Package workflow implements the governed workflow state machine: the
// engine that drives a pipeline of gates and phases through evidence
// validation, approval, pointer advancement and idempotent resume.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tsubakihara/ringi/internal/domain/model"
	workflowmodel "github.com/tsubakihara/ringi/internal/domain/model/workflow"
	"github.com/tsubakihara/ringi/internal/domain/profile"
	"github.com/tsubakihara/ringi/internal/domain/repository"
	"github.com/tsubakihara/ringi/internal/domain/sequence"
)

// ErrStepOutOfOrder is returned when an approval is requested for a step
// that is not the next expected entry of the instance's sequence table.
var ErrStepOutOfOrder = errors.New("step is not the next expected step")

// Logger receives engine diagnostics. Event sink failures are reported
// here and nowhere else; they never fail a workflow mutation.
type Logger interface {
	Info(format string, args ...interface{})
	Warn(format string, args ...interface{})
}

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{}) {}
func (nopLogger) Warn(string, ...interface{}) {}

// TransactionManager runs a function with all store calls in one commit
type TransactionManager interface {
	InTransaction(ctx context.Context, fn func(txCtx context.Context) error) error
}

// Engine is the workflow state machine. It owns every transition rule;
// the store it is handed is the single source of truth, and the engine
// keeps no state it cannot reconstruct from there.
type Engine struct {
	workflows repository.WorkflowRepository
	txManager TransactionManager
	sink      repository.EventSink
	logger    Logger
}

// NewEngine creates a workflow engine. The sink may be nil for callers
// that do not observe transitions; the logger may be nil.
func NewEngine(
	workflows repository.WorkflowRepository,
	txManager TransactionManager,
	sink repository.EventSink,
	logger Logger,
) *Engine {
	if logger == nil {
		logger = nopLogger{}
	}
	return &Engine{
		workflows: workflows,
		txManager: txManager,
		sink:      sink,
		logger:    logger,
	}
}

// Init validates a raw enforcement profile and creates a new workflow
// instance at (G0, P0, INITIALIZED) with the profile and sequence table
// snapshotted into it.
func (e *Engine) Init(ctx context.Context, raw profile.Raw, table sequence.Table) (*workflowmodel.Workflow, error) {
	prof, err := profile.Validate(raw)
	if err != nil {
		return nil, err
	}

	wf := workflowmodel.NewWorkflow(prof, table)
	if err := e.workflows.Create(ctx, wf); err != nil {
		return nil, err
	}

	e.publish(ctx, e.eventFor(repository.EventWorkflowCreated, wf.ID(), wf.Pointer(), wf.Pointer()))
	return wf, nil
}

// Start transitions INITIALIZED -> RUNNING without moving the pointer
func (e *Engine) Start(ctx context.Context, id model.WorkflowID) (*workflowmodel.Workflow, error) {
	wf, err := e.workflows.Find(ctx, id)
	if err != nil {
		return nil, err
	}

	expected := wf.Pointer()
	if err := wf.Start(); err != nil {
		return nil, err
	}
	if err := e.workflows.UpdatePointer(ctx, id, expected, wf.Pointer()); err != nil {
		return nil, err
	}

	e.publish(ctx, e.eventFor(repository.EventWorkflowStarted, id, expected, wf.Pointer()))
	return wf, nil
}

// RequestApproval records the terminal outcome of the next expected step.
// Gate evidence is evaluated against the instance's enforcement profile:
// any violation records the step REJECTED with the failing metrics
// attached and moves the workflow to FAILED. Retrying an identical,
// already-recorded request returns the original record unchanged.
func (e *Engine) RequestApproval(
	ctx context.Context,
	id model.WorkflowID,
	step model.StepRef,
	evidence workflowmodel.Evidence,
	approver string,
) (*workflowmodel.StepRecord, error) {
	wf, err := e.workflows.Find(ctx, id)
	if err != nil {
		return nil, err
	}

	steps, err := e.workflows.FindSteps(ctx, id)
	if err != nil {
		return nil, err
	}
	existing := recordFor(steps, step)

	if wf.IsTerminal() && existing == nil {
		return nil, fmt.Errorf("workflow %s is %s, no further approvals accepted", id, wf.Status())
	}

	if existing == nil {
		// Fresh request: it must target the next pending table entry
		p := passedPrefix(wf.Table(), steps)
		if p >= wf.Table().Len() {
			return nil, fmt.Errorf("workflow %s: all steps complete: %w", id, ErrStepOutOfOrder)
		}
		if want := wf.Table().At(p); !step.Equals(want) {
			return nil, fmt.Errorf("workflow %s: requested %s, expected %s: %w",
				id, step, want, ErrStepOutOfOrder)
		}
	}

	// Compute the outcome. Only gates are admission checkpoints; phases
	// approve without threshold evaluation.
	outcome := model.OutcomeApproved
	var violations []string
	if step.Kind == model.StepKindGate {
		for _, v := range wf.Profile().Evaluate(evidence.Measurements) {
			violations = append(violations, v.String())
		}
		if len(violations) > 0 {
			outcome = model.OutcomeRejected
		}
	}

	now := time.Now().UTC()
	rec := workflowmodel.StepRecord{
		WorkflowID:   id,
		Step:         step,
		Outcome:      outcome,
		EvidenceRefs: evidence.Refs,
		Violations:   violations,
		RecordedAt:   now,
	}
	if outcome == model.OutcomeApproved {
		rec.ApprovedBy = approver
		rec.ApprovedAt = &now
	}

	// Step record and its metric samples commit as one unit
	var stored *workflowmodel.StepRecord
	err = e.txManager.InTransaction(ctx, func(txCtx context.Context) error {
		var txErr error
		stored, txErr = e.workflows.AppendStep(txCtx, rec)
		if txErr != nil {
			return txErr
		}
		if existing != nil {
			// Idempotent retry: nothing new to sample
			return nil
		}
		for name, value := range evidence.Measurements {
			sample := workflowmodel.MetricSample{
				WorkflowID: id,
				Step:       step,
				Name:       name,
				Value:      value,
				RecordedAt: now,
			}
			if txErr := e.workflows.RecordMetric(txCtx, sample); txErr != nil {
				return txErr
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if existing != nil {
		return stored, nil
	}

	event := e.eventFor(repository.EventStepRecorded, id, wf.Pointer(), wf.Pointer())
	event.Step = step.String()
	event.Outcome = string(stored.Outcome)
	e.publish(ctx, event)

	if stored.Outcome == model.OutcomeRejected {
		// A rejected tuple is terminal for that step, so the pipeline
		// can never pass this gate again: the instance fails here.
		if err := e.failWorkflow(ctx, wf); err != nil {
			return nil, err
		}
	}

	return stored, nil
}

// failWorkflow CAS-commits a transition to FAILED, retrying once on a
// stale pointer before surfacing the error.
func (e *Engine) failWorkflow(ctx context.Context, wf *workflowmodel.Workflow) error {
	for attempt := 0; ; attempt++ {
		if wf.IsTerminal() {
			return nil
		}
		expected := wf.Pointer()
		next := expected
		next.Status = model.StatusFailed
		err := e.workflows.UpdatePointer(ctx, wf.ID(), expected, next)
		if err == nil {
			e.publish(ctx, e.eventFor(repository.EventWorkflowFailed, wf.ID(), expected, next))
			return nil
		}

		var stale *repository.StaleWriteError
		if !errors.As(err, &stale) || attempt > 0 {
			return err
		}
		e.logger.Info("workflow %s: stale write while failing, reloading for one retry", wf.ID())
		wf, err = e.workflows.Find(ctx, wf.ID())
		if err != nil {
			return err
		}
	}
}

// Advance recomputes the pointer from the persisted step log and
// CAS-commits it. A concurrent writer causes a single reload-and-retry;
// a second stale write surfaces to the caller. Advancing a terminal
// workflow is a no-op returning the current snapshot.
func (e *Engine) Advance(ctx context.Context, id model.WorkflowID) (*workflowmodel.Workflow, error) {
	wf, err := e.reconcile(ctx, id)
	var stale *repository.StaleWriteError
	if errors.As(err, &stale) {
		e.logger.Info("workflow %s: lost pointer race, reloading and retrying once", id)
		return e.reconcile(ctx, id)
	}
	return wf, err
}

// Resume deterministically reconstructs (gate, phase, status) from
// persisted state. It repairs a pointer left behind by a crash between
// the step append and the pointer update, never re-executes an approved
// step, and yields identical snapshots on repeated calls.
func (e *Engine) Resume(ctx context.Context, id model.WorkflowID) (*workflowmodel.Workflow, error) {
	return e.Advance(ctx, id)
}

// reconcile derives the pointer the step log implies and commits it if
// the stored pointer is behind.
func (e *Engine) reconcile(ctx context.Context, id model.WorkflowID) (*workflowmodel.Workflow, error) {
	wf, err := e.workflows.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if wf.IsTerminal() {
		return wf, nil
	}

	steps, err := e.workflows.FindSteps(ctx, id)
	if err != nil {
		return nil, err
	}

	p := passedPrefix(wf.Table(), steps)
	gate, phase := wf.Table().PointerAt(p)
	derived := workflowmodel.Pointer{
		Gate:   gate,
		Phase:  phase,
		Status: derivedStatus(wf.Status(), wf.Table(), p),
	}
	if p < wf.Table().Len() {
		// A crash after a rejection but before the status commit leaves
		// the rejected record as the blocking entry; repair to FAILED.
		if rec := recordFor(steps, wf.Table().At(p)); rec != nil && rec.Outcome == model.OutcomeRejected {
			derived.Status = model.StatusFailed
		}
	}

	expected := wf.Pointer()
	if derived.Equals(expected) {
		return wf, nil
	}

	if err := wf.MoveTo(derived); err != nil {
		return nil, err
	}
	if err := e.workflows.UpdatePointer(ctx, id, expected, derived); err != nil {
		return nil, err
	}

	e.publish(ctx, e.eventFor(repository.EventPointerAdvanced, id, expected, derived))
	if derived.Status == model.StatusCompleted {
		e.publish(ctx, e.eventFor(repository.EventWorkflowCompleted, id, expected, derived))
	}
	return wf, nil
}

// Abort halts a non-terminal workflow. Already-approved steps are not
// rolled back; only further progress stops. Aborting a terminal workflow
// is a no-op, not an error, so caller retries stay harmless.
func (e *Engine) Abort(ctx context.Context, id model.WorkflowID, reason string) (*workflowmodel.Workflow, error) {
	for attempt := 0; ; attempt++ {
		wf, err := e.workflows.Find(ctx, id)
		if err != nil {
			return nil, err
		}
		if wf.IsTerminal() {
			return wf, nil
		}

		expected := wf.Pointer()
		wf.Abort()
		err = e.workflows.UpdatePointer(ctx, id, expected, wf.Pointer())
		if err == nil {
			event := e.eventFor(repository.EventWorkflowAborted, id, expected, wf.Pointer())
			event.Reason = reason
			e.publish(ctx, event)
			return wf, nil
		}

		var stale *repository.StaleWriteError
		if !errors.As(err, &stale) || attempt > 0 {
			return nil, err
		}
		e.logger.Info("workflow %s: stale write while aborting, retrying once", id)
	}
}

// Run starts the workflow if needed and drives the advance loop,
// auto-approving phase steps. It stops at the first unapproved gate,
// leaving the instance AWAITING_APPROVAL: gates wait indefinitely for an
// operator signal.
func (e *Engine) Run(ctx context.Context, id model.WorkflowID, approver string) (*workflowmodel.Workflow, error) {
	wf, err := e.workflows.Find(ctx, id)
	if err != nil {
		return nil, err
	}

	if wf.Status() == model.StatusInitialized {
		if wf, err = e.Start(ctx, id); err != nil {
			return nil, err
		}
	}

	// Bounded by table length: every iteration either terminates a
	// phase step or stops at a gate.
	for i := 0; i <= wf.Table().Len(); i++ {
		wf, err = e.Advance(ctx, id)
		if err != nil {
			return nil, err
		}
		if wf.IsTerminal() {
			return wf, nil
		}

		steps, err := e.workflows.FindSteps(ctx, id)
		if err != nil {
			return nil, err
		}
		p := passedPrefix(wf.Table(), steps)
		if p >= wf.Table().Len() {
			continue
		}
		next := wf.Table().At(p)
		if next.Kind == model.StepKindGate {
			return wf, nil
		}

		if _, err := e.RequestApproval(ctx, id, next, workflowmodel.Evidence{}, approver); err != nil {
			return nil, err
		}
	}
	return wf, nil
}

// Snapshot is a read-only view of one workflow instance
type Snapshot struct {
	ID         string                     `json:"id"`
	Gate       string                     `json:"gate"`
	Phase      string                     `json:"phase"`
	Status     string                     `json:"status"`
	NextStep   string                     `json:"next_step,omitempty"`
	Passed     int                        `json:"passed_steps"`
	TotalSteps int                        `json:"total_steps"`
	CreatedAt  time.Time                  `json:"created_at"`
	UpdatedAt  time.Time                  `json:"updated_at"`
	Steps      []workflowmodel.StepRecord `json:"-"`
}

// Status returns a read-only snapshot without mutating stored state
func (e *Engine) Status(ctx context.Context, id model.WorkflowID) (*Snapshot, error) {
	wf, err := e.workflows.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	steps, err := e.workflows.FindSteps(ctx, id)
	if err != nil {
		return nil, err
	}

	p := passedPrefix(wf.Table(), steps)
	snap := &Snapshot{
		ID:         wf.ID().String(),
		Gate:       wf.Gate().String(),
		Phase:      wf.Phase().String(),
		Status:     wf.Status().String(),
		Passed:     p,
		TotalSteps: wf.Table().Len(),
		CreatedAt:  wf.CreatedAt(),
		UpdatedAt:  wf.UpdatedAt(),
		Steps:      steps,
	}
	if p < wf.Table().Len() && !wf.IsTerminal() {
		snap.NextStep = wf.Table().At(p).String()
	}
	return snap, nil
}

// passedPrefix counts the contiguous leading table entries holding a
// passed (APPROVED or SKIPPED) record. A missing or rejected entry stops
// the count: the pipeline cannot progress past it.
func passedPrefix(table sequence.Table, steps []workflowmodel.StepRecord) int {
	byRef := make(map[model.StepRef]workflowmodel.StepRecord, len(steps))
	for _, s := range steps {
		byRef[s.Step] = s
	}

	p := 0
	for p < table.Len() {
		rec, ok := byRef[table.At(p)]
		if !ok || !rec.Outcome.Passed() {
			break
		}
		p++
	}
	return p
}

// derivedStatus maps log progress to a lifecycle status. Start is the
// only way out of INITIALIZED; otherwise the status follows the kind of
// the next pending entry.
func derivedStatus(stored model.Status, table sequence.Table, passed int) model.Status {
	if stored.IsTerminal() {
		return stored
	}
	if passed == table.Len() {
		return model.StatusCompleted
	}
	if stored == model.StatusInitialized {
		return model.StatusInitialized
	}
	if table.At(passed).Kind == model.StepKindGate {
		return model.StatusAwaitingApproval
	}
	return model.StatusRunning
}

// recordFor returns the stored record for one step, or nil
func recordFor(steps []workflowmodel.StepRecord, step model.StepRef) *workflowmodel.StepRecord {
	for i := range steps {
		if steps[i].Step.Equals(step) {
			return &steps[i]
		}
	}
	return nil
}

func (e *Engine) eventFor(kind string, id model.WorkflowID, prev, next workflowmodel.Pointer) repository.TransitionEvent {
	return repository.TransitionEvent{
		Kind:       kind,
		WorkflowID: id.String(),
		PrevGate:   prev.Gate.String(),
		PrevPhase:  prev.Phase.String(),
		PrevStatus: string(prev.Status),
		NewGate:    next.Gate.String(),
		NewPhase:   next.Phase.String(),
		NewStatus:  string(next.Status),
		Timestamp:  time.Now().UTC().Format(time.RFC3339Nano),
	}
}

// publish forwards an event to the sink after the transition committed.
// Sink failures degrade silently: logged, never propagated.
func (e *Engine) publish(ctx context.Context, event repository.TransitionEvent) {
	if e.sink == nil {
		return
	}
	if err := e.sink.Publish(ctx, event); err != nil {
		e.logger.Warn("publish %s event for workflow %s failed: %v", event.Kind, event.WorkflowID, err)
	}
}
