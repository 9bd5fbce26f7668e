package sqlite

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsubakihara/ringi/internal/domain/model"
	"github.com/tsubakihara/ringi/internal/domain/model/workflow"
	"github.com/tsubakihara/ringi/internal/domain/profile"
	"github.com/tsubakihara/ringi/internal/domain/repository"
	"github.com/tsubakihara/ringi/internal/domain/sequence"
)

func setupTestRepo(t *testing.T) repository.WorkflowRepository {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_busy_timeout=5000")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, NewMigrator(db).Migrate())
	return NewWorkflowRepository(db)
}

func createTestWorkflow(t *testing.T, repo repository.WorkflowRepository) *workflow.Workflow {
	t.Helper()
	wf := workflow.NewWorkflow(profile.Default(), sequence.Default())
	require.NoError(t, repo.Create(context.Background(), wf))
	return wf
}

func TestCreateAndFind(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()
	wf := createTestWorkflow(t, repo)

	found, err := repo.Find(ctx, wf.ID())
	require.NoError(t, err)

	assert.True(t, found.ID().Equals(wf.ID()))
	assert.Equal(t, wf.Pointer(), found.Pointer())
	assert.Equal(t, wf.Profile(), found.Profile())
	assert.Equal(t, wf.Table().Tokens(), found.Table().Tokens())
}

func TestFindUnknownWorkflow(t *testing.T) {
	repo := setupTestRepo(t)

	id, err := model.NewWorkflowIDFromString("missing")
	require.NoError(t, err)

	_, err = repo.Find(context.Background(), id)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestList(t *testing.T) {
	repo := setupTestRepo(t)
	a := createTestWorkflow(t, repo)
	b := createTestWorkflow(t, repo)

	workflows, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, workflows, 2)

	ids := []string{workflows[0].ID().String(), workflows[1].ID().String()}
	assert.Contains(t, ids, a.ID().String())
	assert.Contains(t, ids, b.ID().String())
}

func TestUpdatePointer(t *testing.T) {
	t.Run("matching expectation commits", func(t *testing.T) {
		repo := setupTestRepo(t)
		ctx := context.Background()
		wf := createTestWorkflow(t, repo)

		next := workflow.Pointer{Gate: model.G0, Phase: model.Phase0, Status: model.StatusRunning}
		require.NoError(t, repo.UpdatePointer(ctx, wf.ID(), wf.Pointer(), next))

		found, err := repo.Find(ctx, wf.ID())
		require.NoError(t, err)
		assert.Equal(t, next, found.Pointer())
	})

	t.Run("stale expectation reports the actual pointer", func(t *testing.T) {
		repo := setupTestRepo(t)
		ctx := context.Background()
		wf := createTestWorkflow(t, repo)

		initial := wf.Pointer()
		committed := workflow.Pointer{Gate: model.G0, Phase: model.Phase0, Status: model.StatusRunning}
		require.NoError(t, repo.UpdatePointer(ctx, wf.ID(), initial, committed))

		// A second writer still holding the initial pointer loses the CAS
		err := repo.UpdatePointer(ctx, wf.ID(), initial,
			workflow.Pointer{Gate: model.G0, Phase: model.Phase0, Status: model.StatusAborted})
		require.Error(t, err)

		var stale *repository.StaleWriteError
		require.ErrorAs(t, err, &stale)
		assert.Equal(t, initial, stale.Expected)
		assert.Equal(t, committed, stale.Actual)

		found, err := repo.Find(ctx, wf.ID())
		require.NoError(t, err)
		assert.Equal(t, committed, found.Pointer())
	})

	t.Run("unknown workflow reports not found", func(t *testing.T) {
		repo := setupTestRepo(t)
		id, err := model.NewWorkflowIDFromString("missing")
		require.NoError(t, err)

		err = repo.UpdatePointer(context.Background(), id,
			workflow.Pointer{Status: model.StatusInitialized},
			workflow.Pointer{Status: model.StatusRunning})
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})
}

func TestAppendStep(t *testing.T) {
	newRecord := func(wf *workflow.Workflow) workflow.StepRecord {
		now := time.Now().UTC()
		return workflow.StepRecord{
			WorkflowID:   wf.ID(),
			Step:         model.GateRef(model.G0),
			Outcome:      model.OutcomeApproved,
			EvidenceRefs: []string{"reports/coverage.html"},
			ApprovedBy:   "alice",
			ApprovedAt:   &now,
			RecordedAt:   now,
		}
	}

	t.Run("first write persists the record", func(t *testing.T) {
		repo := setupTestRepo(t)
		ctx := context.Background()
		wf := createTestWorkflow(t, repo)

		rec := newRecord(wf)
		stored, err := repo.AppendStep(ctx, rec)
		require.NoError(t, err)
		assert.Equal(t, rec.Outcome, stored.Outcome)

		steps, err := repo.FindSteps(ctx, wf.ID())
		require.NoError(t, err)
		require.Len(t, steps, 1)
		assert.Equal(t, model.GateRef(model.G0), steps[0].Step)
		assert.Equal(t, []string{"reports/coverage.html"}, steps[0].EvidenceRefs)
		assert.Equal(t, "alice", steps[0].ApprovedBy)
		require.NotNil(t, steps[0].ApprovedAt)
	})

	t.Run("identical retry returns the stored record", func(t *testing.T) {
		repo := setupTestRepo(t)
		ctx := context.Background()
		wf := createTestWorkflow(t, repo)

		rec := newRecord(wf)
		_, err := repo.AppendStep(ctx, rec)
		require.NoError(t, err)

		retry := rec
		retry.ApprovedBy = "bob" // identity does not participate in matching
		stored, err := repo.AppendStep(ctx, retry)
		require.NoError(t, err)
		assert.Equal(t, "alice", stored.ApprovedBy)

		steps, err := repo.FindSteps(ctx, wf.ID())
		require.NoError(t, err)
		assert.Len(t, steps, 1)
	})

	t.Run("differing retry is a conflict", func(t *testing.T) {
		repo := setupTestRepo(t)
		ctx := context.Background()
		wf := createTestWorkflow(t, repo)

		rec := newRecord(wf)
		_, err := repo.AppendStep(ctx, rec)
		require.NoError(t, err)

		conflicting := rec
		conflicting.EvidenceRefs = []string{"reports/other.html"}
		_, err = repo.AppendStep(ctx, conflicting)
		require.Error(t, err)

		var conflict *repository.ConflictError
		require.ErrorAs(t, err, &conflict)
		assert.Equal(t, model.OutcomeApproved, conflict.Existing.Outcome)
	})

	t.Run("non-terminal outcome is rejected", func(t *testing.T) {
		repo := setupTestRepo(t)
		wf := createTestWorkflow(t, repo)

		rec := newRecord(wf)
		rec.Outcome = model.OutcomePending
		_, err := repo.AppendStep(context.Background(), rec)
		assert.ErrorContains(t, err, "not terminal")
	})

	t.Run("rejected record persists violations", func(t *testing.T) {
		repo := setupTestRepo(t)
		ctx := context.Background()
		wf := createTestWorkflow(t, repo)

		rec := newRecord(wf)
		rec.Outcome = model.OutcomeRejected
		rec.Violations = []string{"coverage.lines=0.8 violates limit 0.95"}
		rec.ApprovedBy = ""
		rec.ApprovedAt = nil

		_, err := repo.AppendStep(ctx, rec)
		require.NoError(t, err)

		steps, err := repo.FindSteps(ctx, wf.ID())
		require.NoError(t, err)
		require.Len(t, steps, 1)
		assert.Equal(t, model.OutcomeRejected, steps[0].Outcome)
		assert.Equal(t, rec.Violations, steps[0].Violations)
		assert.Nil(t, steps[0].ApprovedAt)
	})

	t.Run("gate and phase with the same ordinal are distinct tuples", func(t *testing.T) {
		repo := setupTestRepo(t)
		ctx := context.Background()
		wf := createTestWorkflow(t, repo)

		now := time.Now().UTC()
		for _, step := range []model.StepRef{model.GateRef(model.G0), model.PhaseRef(model.Phase0)} {
			_, err := repo.AppendStep(ctx, workflow.StepRecord{
				WorkflowID: wf.ID(),
				Step:       step,
				Outcome:    model.OutcomeApproved,
				RecordedAt: now,
			})
			require.NoError(t, err)
		}

		steps, err := repo.FindSteps(ctx, wf.ID())
		require.NoError(t, err)
		assert.Len(t, steps, 2)
	})
}

func TestMetrics(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()
	wf := createTestWorkflow(t, repo)

	now := time.Now().UTC()
	sample := workflow.MetricSample{
		WorkflowID: wf.ID(),
		Step:       model.GateRef(model.G1),
		Name:       "coverage.lines",
		Value:      0.97,
		RecordedAt: now,
	}
	require.NoError(t, repo.RecordMetric(ctx, sample))

	// Metrics are append-only observations; a duplicate is a new sample
	require.NoError(t, repo.RecordMetric(ctx, sample))

	samples, err := repo.FindMetrics(ctx, wf.ID())
	require.NoError(t, err)
	require.Len(t, samples, 2)
	assert.Equal(t, "coverage.lines", samples[0].Name)
	assert.Equal(t, 0.97, samples[0].Value)
	assert.Equal(t, model.GateRef(model.G1), samples[0].Step)
}

func TestMigratorIsIdempotent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := sql.Open("sqlite3", dbPath)
	require.NoError(t, err)
	defer db.Close()

	m := NewMigrator(db)
	require.NoError(t, m.Migrate())
	require.NoError(t, m.Migrate())

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count))
	assert.Equal(t, 1, count)
}
