package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsubakihara/ringi/internal/domain/model"
	"github.com/tsubakihara/ringi/internal/domain/profile"
	"github.com/tsubakihara/ringi/internal/domain/sequence"
)

func newTestWorkflow() *Workflow {
	return NewWorkflow(profile.Default(), sequence.Default())
}

func TestNewWorkflow(t *testing.T) {
	wf := newTestWorkflow()

	assert.NotEmpty(t, wf.ID().String())
	assert.Equal(t, model.G0, wf.Gate())
	assert.Equal(t, model.Phase0, wf.Phase())
	assert.Equal(t, model.StatusInitialized, wf.Status())
	assert.False(t, wf.IsTerminal())
	assert.Equal(t, wf.CreatedAt(), wf.UpdatedAt())
	assert.Equal(t, sequence.Default().Tokens(), wf.Table().Tokens())
}

func TestWorkflowStart(t *testing.T) {
	t.Run("initialized workflow starts", func(t *testing.T) {
		wf := newTestWorkflow()
		require.NoError(t, wf.Start())
		assert.Equal(t, model.StatusRunning, wf.Status())
		// Starting moves the status only, never the pointer position
		assert.Equal(t, model.G0, wf.Gate())
		assert.Equal(t, model.Phase0, wf.Phase())
	})

	t.Run("starting twice fails", func(t *testing.T) {
		wf := newTestWorkflow()
		require.NoError(t, wf.Start())
		assert.Error(t, wf.Start())
	})
}

func TestWorkflowMoveTo(t *testing.T) {
	t.Run("forward move with valid status transition", func(t *testing.T) {
		wf := newTestWorkflow()
		require.NoError(t, wf.Start())

		next := Pointer{Gate: model.G1, Phase: model.Phase0, Status: model.StatusAwaitingApproval}
		require.NoError(t, wf.MoveTo(next))
		assert.Equal(t, next, wf.Pointer())
	})

	t.Run("gate cannot move backwards", func(t *testing.T) {
		wf := newTestWorkflow()
		require.NoError(t, wf.Start())
		require.NoError(t, wf.MoveTo(Pointer{Gate: model.G2, Phase: model.Phase1, Status: model.StatusRunning}))

		err := wf.MoveTo(Pointer{Gate: model.G1, Phase: model.Phase1, Status: model.StatusRunning})
		assert.ErrorContains(t, err, "backwards")
	})

	t.Run("phase cannot move backwards", func(t *testing.T) {
		wf := newTestWorkflow()
		require.NoError(t, wf.Start())
		require.NoError(t, wf.MoveTo(Pointer{Gate: model.G2, Phase: model.Phase2, Status: model.StatusRunning}))

		err := wf.MoveTo(Pointer{Gate: model.G2, Phase: model.Phase1, Status: model.StatusRunning})
		assert.ErrorContains(t, err, "backwards")
	})

	t.Run("invalid status transition is rejected", func(t *testing.T) {
		wf := newTestWorkflow()
		// INITIALIZED cannot jump straight to COMPLETED
		err := wf.MoveTo(Pointer{Gate: model.G0, Phase: model.Phase0, Status: model.StatusCompleted})
		assert.ErrorContains(t, err, "invalid status transition")
	})

	t.Run("terminal workflow refuses moves", func(t *testing.T) {
		wf := newTestWorkflow()
		wf.Abort()

		err := wf.MoveTo(Pointer{Gate: model.G1, Phase: model.Phase0, Status: model.StatusRunning})
		assert.ErrorContains(t, err, "terminal")
	})
}

func TestWorkflowAbort(t *testing.T) {
	t.Run("non-terminal workflow aborts", func(t *testing.T) {
		wf := newTestWorkflow()
		assert.True(t, wf.Abort())
		assert.Equal(t, model.StatusAborted, wf.Status())
		assert.True(t, wf.IsTerminal())
	})

	t.Run("aborting twice is a no-op", func(t *testing.T) {
		wf := newTestWorkflow()
		require.True(t, wf.Abort())
		assert.False(t, wf.Abort())
		assert.Equal(t, model.StatusAborted, wf.Status())
	})
}

func TestPointerString(t *testing.T) {
	p := Pointer{Gate: model.G1, Phase: model.Phase0, Status: model.StatusRunning}
	assert.Equal(t, "(G1, P0, RUNNING)", p.String())
}
