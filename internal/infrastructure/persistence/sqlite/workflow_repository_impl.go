package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/tsubakihara/ringi/internal/domain/model"
	"github.com/tsubakihara/ringi/internal/domain/model/workflow"
	"github.com/tsubakihara/ringi/internal/domain/profile"
	"github.com/tsubakihara/ringi/internal/domain/repository"
	"github.com/tsubakihara/ringi/internal/domain/sequence"
	"github.com/tsubakihara/ringi/internal/infrastructure/transaction"
)

// dbExecutor abstracts *sql.DB and *sql.Tx so repository methods run
// inside an ambient transaction when one is present in the context
type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// WorkflowRepositoryImpl implements repository.WorkflowRepository with SQLite
type WorkflowRepositoryImpl struct {
	db *sql.DB
}

// NewWorkflowRepository creates a new SQLite-based workflow repository
func NewWorkflowRepository(db *sql.DB) repository.WorkflowRepository {
	return &WorkflowRepositoryImpl{db: db}
}

// getDB returns the appropriate database executor from context
func (r *WorkflowRepositoryImpl) getDB(ctx context.Context) dbExecutor {
	if tx, ok := transaction.GetTxFromContext(ctx); ok {
		return tx
	}
	return r.db
}

// Create persists a freshly initialized workflow instance
func (r *WorkflowRepositoryImpl) Create(ctx context.Context, wf *workflow.Workflow) error {
	profileJSON, err := json.Marshal(wf.Profile())
	if err != nil {
		return &repository.StoreError{Op: "create", WorkflowID: wf.ID().String(),
			Err: fmt.Errorf("marshal profile: %w", err)}
	}
	sequenceJSON, err := json.Marshal(wf.Table().Tokens())
	if err != nil {
		return &repository.StoreError{Op: "create", WorkflowID: wf.ID().String(),
			Err: fmt.Errorf("marshal sequence: %w", err)}
	}

	query := `
		INSERT INTO workflow_instances (id, current_gate, current_phase, status,
		                                profile_json, sequence_json, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	db := r.getDB(ctx)
	ptr := wf.Pointer()
	_, err = db.ExecContext(ctx, query,
		wf.ID().String(), int(ptr.Gate), int(ptr.Phase), string(ptr.Status),
		string(profileJSON), string(sequenceJSON), wf.CreatedAt(), wf.UpdatedAt(),
	)
	if err != nil {
		return &repository.StoreError{Op: "create", WorkflowID: wf.ID().String(), Err: err}
	}
	return nil
}

// Find loads an instance by ID, reconstructing profile and sequence snapshots
func (r *WorkflowRepositoryImpl) Find(ctx context.Context, id model.WorkflowID) (*workflow.Workflow, error) {
	query := `
		SELECT id, current_gate, current_phase, status, profile_json, sequence_json,
		       created_at, updated_at
		FROM workflow_instances
		WHERE id = ?
	`
	db := r.getDB(ctx)
	wf, err := scanWorkflow(db.QueryRowContext(ctx, query, id.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("find workflow %s: %w", id, repository.ErrNotFound)
		}
		return nil, &repository.StoreError{Op: "find", WorkflowID: id.String(), Err: err}
	}
	return wf, nil
}

// List returns all instances, newest first
func (r *WorkflowRepositoryImpl) List(ctx context.Context) ([]*workflow.Workflow, error) {
	query := `
		SELECT id, current_gate, current_phase, status, profile_json, sequence_json,
		       created_at, updated_at
		FROM workflow_instances
		ORDER BY created_at DESC
	`
	db := r.getDB(ctx)
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, &repository.StoreError{Op: "list", Err: err}
	}
	defer rows.Close()

	var workflows []*workflow.Workflow
	for rows.Next() {
		wf, err := scanWorkflow(rows)
		if err != nil {
			return nil, &repository.StoreError{Op: "list", Err: err}
		}
		workflows = append(workflows, wf)
	}
	if err := rows.Err(); err != nil {
		return nil, &repository.StoreError{Op: "list", Err: err}
	}
	return workflows, nil
}

// UpdatePointer atomically compare-and-sets the progress pointer
func (r *WorkflowRepositoryImpl) UpdatePointer(ctx context.Context, id model.WorkflowID, expected, next workflow.Pointer) error {
	query := `
		UPDATE workflow_instances
		SET current_gate = ?, current_phase = ?, status = ?, updated_at = ?
		WHERE id = ? AND current_gate = ? AND current_phase = ? AND status = ?
	`
	db := r.getDB(ctx)
	result, err := db.ExecContext(ctx, query,
		int(next.Gate), int(next.Phase), string(next.Status), time.Now().UTC(),
		id.String(), int(expected.Gate), int(expected.Phase), string(expected.Status),
	)
	if err != nil {
		return &repository.StoreError{Op: "update_pointer", WorkflowID: id.String(), Err: err}
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return &repository.StoreError{Op: "update_pointer", WorkflowID: id.String(), Err: err}
	}
	if rowsAffected > 0 {
		return nil
	}

	// CAS missed: distinguish unknown instance from a stale caller view
	stored, err := r.Find(ctx, id)
	if err != nil {
		return err
	}
	return &repository.StaleWriteError{
		WorkflowID: id,
		Expected:   expected,
		Actual:     stored.Pointer(),
	}
}

// AppendStep writes a terminal step record at most once per tuple
func (r *WorkflowRepositoryImpl) AppendStep(ctx context.Context, rec workflow.StepRecord) (*workflow.StepRecord, error) {
	if !rec.Outcome.IsTerminal() {
		return nil, &repository.StoreError{Op: "append_step", WorkflowID: rec.WorkflowID.String(),
			Err: fmt.Errorf("outcome %s is not terminal", rec.Outcome)}
	}

	existing, err := r.findStep(ctx, rec.WorkflowID, rec.Step)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		inserted, err := r.insertStep(ctx, rec)
		if err == nil {
			return inserted, nil
		}
		// Lost an insert race; re-read and fall through to the
		// idempotence check against whatever won.
		existing, err = r.findStep(ctx, rec.WorkflowID, rec.Step)
		if err != nil {
			return nil, err
		}
		if existing == nil {
			return nil, &repository.StoreError{Op: "append_step", WorkflowID: rec.WorkflowID.String(),
				Err: fmt.Errorf("insert failed and no row present for step %s", rec.Step)}
		}
	}

	if existing.Matches(rec) {
		// Already applied: retrying is a no-op success
		return existing, nil
	}
	return nil, &repository.ConflictError{
		WorkflowID: rec.WorkflowID,
		Step:       rec.Step,
		Existing:   *existing,
	}
}

func (r *WorkflowRepositoryImpl) insertStep(ctx context.Context, rec workflow.StepRecord) (*workflow.StepRecord, error) {
	evidenceJSON, err := json.Marshal(emptyIfNil(rec.EvidenceRefs))
	if err != nil {
		return nil, &repository.StoreError{Op: "append_step", WorkflowID: rec.WorkflowID.String(),
			Err: fmt.Errorf("marshal evidence refs: %w", err)}
	}
	violationsJSON, err := json.Marshal(emptyIfNil(rec.Violations))
	if err != nil {
		return nil, &repository.StoreError{Op: "append_step", WorkflowID: rec.WorkflowID.String(),
			Err: fmt.Errorf("marshal violations: %w", err)}
	}

	var approvedAt interface{}
	if rec.ApprovedAt != nil {
		approvedAt = *rec.ApprovedAt
	}

	query := `
		INSERT INTO step_records (workflow_id, step_kind, step_ord, outcome,
		                          evidence_refs, violations, approved_by, approved_at, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	db := r.getDB(ctx)
	_, err = db.ExecContext(ctx, query,
		rec.WorkflowID.String(), string(rec.Step.Kind), rec.Step.Ord(), string(rec.Outcome),
		string(evidenceJSON), string(violationsJSON), rec.ApprovedBy, approvedAt, rec.RecordedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// findStep returns the stored record for one tuple, or nil when absent
func (r *WorkflowRepositoryImpl) findStep(ctx context.Context, id model.WorkflowID, step model.StepRef) (*workflow.StepRecord, error) {
	query := `
		SELECT workflow_id, step_kind, step_ord, outcome, evidence_refs, violations,
		       approved_by, approved_at, recorded_at
		FROM step_records
		WHERE workflow_id = ? AND step_kind = ? AND step_ord = ?
	`
	db := r.getDB(ctx)
	rec, err := scanStep(db.QueryRowContext(ctx, query, id.String(), string(step.Kind), step.Ord()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, &repository.StoreError{Op: "find_step", WorkflowID: id.String(), Err: err}
	}
	return rec, nil
}

// FindSteps returns the step log for an instance in recording order
func (r *WorkflowRepositoryImpl) FindSteps(ctx context.Context, id model.WorkflowID) ([]workflow.StepRecord, error) {
	query := `
		SELECT workflow_id, step_kind, step_ord, outcome, evidence_refs, violations,
		       approved_by, approved_at, recorded_at
		FROM step_records
		WHERE workflow_id = ?
		ORDER BY recorded_at ASC, step_kind ASC, step_ord ASC
	`
	db := r.getDB(ctx)
	rows, err := db.QueryContext(ctx, query, id.String())
	if err != nil {
		return nil, &repository.StoreError{Op: "find_steps", WorkflowID: id.String(), Err: err}
	}
	defer rows.Close()

	var records []workflow.StepRecord
	for rows.Next() {
		rec, err := scanStep(rows)
		if err != nil {
			return nil, &repository.StoreError{Op: "find_steps", WorkflowID: id.String(), Err: err}
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, &repository.StoreError{Op: "find_steps", WorkflowID: id.String(), Err: err}
	}
	return records, nil
}

// RecordMetric appends one measurement sample
func (r *WorkflowRepositoryImpl) RecordMetric(ctx context.Context, sample workflow.MetricSample) error {
	query := `
		INSERT INTO metrics (workflow_id, step_kind, step_ord, metric_name, value, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	db := r.getDB(ctx)
	_, err := db.ExecContext(ctx, query,
		sample.WorkflowID.String(), string(sample.Step.Kind), sample.Step.Ord(),
		sample.Name, sample.Value, sample.RecordedAt,
	)
	if err != nil {
		return &repository.StoreError{Op: "record_metric", WorkflowID: sample.WorkflowID.String(), Err: err}
	}
	return nil
}

// FindMetrics returns all samples for an instance in recording order
func (r *WorkflowRepositoryImpl) FindMetrics(ctx context.Context, id model.WorkflowID) ([]workflow.MetricSample, error) {
	query := `
		SELECT workflow_id, step_kind, step_ord, metric_name, value, recorded_at
		FROM metrics
		WHERE workflow_id = ?
		ORDER BY id ASC
	`
	db := r.getDB(ctx)
	rows, err := db.QueryContext(ctx, query, id.String())
	if err != nil {
		return nil, &repository.StoreError{Op: "find_metrics", WorkflowID: id.String(), Err: err}
	}
	defer rows.Close()

	var samples []workflow.MetricSample
	for rows.Next() {
		var (
			rawID      string
			kind       string
			ord        int
			name       string
			value      float64
			recordedAt time.Time
		)
		if err := rows.Scan(&rawID, &kind, &ord, &name, &value, &recordedAt); err != nil {
			return nil, &repository.StoreError{Op: "find_metrics", WorkflowID: id.String(), Err: err}
		}
		wfID, err := model.NewWorkflowIDFromString(rawID)
		if err != nil {
			return nil, &repository.StoreError{Op: "find_metrics", WorkflowID: id.String(), Err: err}
		}
		step, err := stepRefFrom(kind, ord)
		if err != nil {
			return nil, &repository.StoreError{Op: "find_metrics", WorkflowID: id.String(), Err: err}
		}
		samples = append(samples, workflow.MetricSample{
			WorkflowID: wfID,
			Step:       step,
			Name:       name,
			Value:      value,
			RecordedAt: recordedAt,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, &repository.StoreError{Op: "find_metrics", WorkflowID: id.String(), Err: err}
	}
	return samples, nil
}

// rowScanner abstracts *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanWorkflow(row rowScanner) (*workflow.Workflow, error) {
	var (
		rawID        string
		gate         int
		phase        int
		status       string
		profileJSON  string
		sequenceJSON string
		createdAt    time.Time
		updatedAt    time.Time
	)
	if err := row.Scan(&rawID, &gate, &phase, &status, &profileJSON, &sequenceJSON, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	id, err := model.NewWorkflowIDFromString(rawID)
	if err != nil {
		return nil, err
	}

	var prof profile.Profile
	if err := json.Unmarshal([]byte(profileJSON), &prof); err != nil {
		return nil, fmt.Errorf("unmarshal profile: %w", err)
	}

	var tokens []string
	if err := json.Unmarshal([]byte(sequenceJSON), &tokens); err != nil {
		return nil, fmt.Errorf("unmarshal sequence: %w", err)
	}
	table, err := sequence.Parse(tokens)
	if err != nil {
		return nil, fmt.Errorf("parse sequence snapshot: %w", err)
	}

	pointer := workflow.Pointer{
		Gate:   model.Gate(gate),
		Phase:  model.Phase(phase),
		Status: model.Status(status),
	}
	if !pointer.Gate.IsValid() || !pointer.Phase.IsValid() || !pointer.Status.IsValid() {
		return nil, fmt.Errorf("stored pointer %s is invalid", pointer)
	}

	return workflow.ReconstructWorkflow(id, pointer, prof, table, createdAt, updatedAt), nil
}

func scanStep(row rowScanner) (*workflow.StepRecord, error) {
	var (
		rawID         string
		kind          string
		ord           int
		outcome       string
		evidenceJSON  string
		violationJSON string
		approvedBy    string
		approvedAt    sql.NullTime
		recordedAt    time.Time
	)
	if err := row.Scan(&rawID, &kind, &ord, &outcome, &evidenceJSON, &violationJSON,
		&approvedBy, &approvedAt, &recordedAt); err != nil {
		return nil, err
	}

	id, err := model.NewWorkflowIDFromString(rawID)
	if err != nil {
		return nil, err
	}
	step, err := stepRefFrom(kind, ord)
	if err != nil {
		return nil, err
	}

	var evidenceRefs []string
	if err := json.Unmarshal([]byte(evidenceJSON), &evidenceRefs); err != nil {
		return nil, fmt.Errorf("unmarshal evidence refs: %w", err)
	}
	var violations []string
	if err := json.Unmarshal([]byte(violationJSON), &violations); err != nil {
		return nil, fmt.Errorf("unmarshal violations: %w", err)
	}

	rec := &workflow.StepRecord{
		WorkflowID:   id,
		Step:         step,
		Outcome:      model.Outcome(outcome),
		EvidenceRefs: evidenceRefs,
		Violations:   violations,
		ApprovedBy:   approvedBy,
		RecordedAt:   recordedAt,
	}
	if approvedAt.Valid {
		t := approvedAt.Time
		rec.ApprovedAt = &t
	}
	return rec, nil
}

func stepRefFrom(kind string, ord int) (model.StepRef, error) {
	switch model.StepKind(kind) {
	case model.StepKindGate:
		ref := model.GateRef(model.Gate(ord))
		if !ref.IsValid() {
			return model.StepRef{}, fmt.Errorf("invalid gate ordinal %d", ord)
		}
		return ref, nil
	case model.StepKindPhase:
		ref := model.PhaseRef(model.Phase(ord))
		if !ref.IsValid() {
			return model.StepRef{}, fmt.Errorf("invalid phase ordinal %d", ord)
		}
		return ref, nil
	default:
		return model.StepRef{}, fmt.Errorf("invalid step kind %q", kind)
	}
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
