package importing

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brandinglab/backend/internal/domain/shared"
	csvimport "github.com/brandinglab/backend/internal/infrastructure/import"
)

func newTestJob(t *testing.T) *ImportJob {
	t.Helper()
	mapping := csvimport.ColumnMapping{csvimport.FieldEmail: "Email"}
	return NewImportJob(PlatformHotmart, "", mapping, "vendas.csv", "stage-1", 100)
}

func TestNewImportJob(t *testing.T) {
	job := newTestJob(t)

	assert.Equal(t, JobStatusQueued, job.Status)
	assert.Equal(t, "Aprovado", job.PaidStatus)
	assert.Equal(t, 100, job.TotalRows)
	assert.Equal(t, 0, job.LastOffset)
	assert.True(t, job.Active())

	events := job.GetDomainEvents()
	require.Len(t, events, 1)
	assert.Equal(t, EventImportJobQueued, events[0].EventType())
}

func TestNewImportJob_CustomPaidStatus(t *testing.T) {
	mapping := csvimport.ColumnMapping{csvimport.FieldEmail: "Email"}
	job := NewImportJob(PlatformCustom, "pago", mapping, "vendas.csv", "", 10)
	assert.Equal(t, "pago", job.PaidStatus)
}

func TestImportJob_Lifecycle(t *testing.T) {
	job := newTestJob(t)

	require.NoError(t, job.Start())
	assert.Equal(t, JobStatusRunning, job.Status)
	require.NotNil(t, job.StartedAt)

	require.NoError(t, job.RecordRow(0, OutcomeCreated, ""))
	require.NoError(t, job.RecordRow(1, OutcomeExisting, ""))
	require.NoError(t, job.RecordRow(2, OutcomeSkipped, ""))
	require.NoError(t, job.RecordRow(3, OutcomeError, "line 5: boom"))

	assert.Equal(t, 4, job.Counters.Processed)
	assert.Equal(t, 1, job.Counters.Created)
	assert.Equal(t, 1, job.Counters.Existing)
	assert.Equal(t, 1, job.Counters.Skipped)
	assert.Equal(t, 1, job.Counters.Errors)
	assert.Equal(t, 4, job.LastOffset)
	assert.Equal(t, []string{"line 5: boom"}, job.RecentErrors)
	assert.Equal(t, 4, job.Progress())

	require.NoError(t, job.Complete())
	assert.Equal(t, JobStatusCompleted, job.Status)
	require.NotNil(t, job.FinishedAt)
	assert.False(t, job.Active())
}

func TestImportJob_RecentErrorsCapped(t *testing.T) {
	job := newTestJob(t)
	require.NoError(t, job.Start())

	for i := 0; i < MaxRecentErrors+20; i++ {
		require.NoError(t, job.RecordRow(i, OutcomeError, fmt.Sprintf("err %d", i)))
	}

	assert.Len(t, job.RecentErrors, MaxRecentErrors)
	assert.Equal(t, MaxRecentErrors+20, job.Counters.Errors)

	// The window holds the newest errors, oldest dropped first.
	assert.Equal(t, "err 20", job.RecentErrors[0])
	assert.Equal(t, fmt.Sprintf("err %d", MaxRecentErrors+19), job.RecentErrors[MaxRecentErrors-1])
	assert.NotContains(t, job.RecentErrors, "err 0")
}

func TestImportJob_Cancel(t *testing.T) {
	t.Run("queued job", func(t *testing.T) {
		job := newTestJob(t)
		require.NoError(t, job.Cancel())
		assert.Equal(t, JobStatusCancelled, job.Status)
	})

	t.Run("running job", func(t *testing.T) {
		job := newTestJob(t)
		require.NoError(t, job.Start())
		require.NoError(t, job.Cancel())
		assert.Equal(t, JobStatusCancelled, job.Status)
	})

	t.Run("completed job rejects cancel", func(t *testing.T) {
		job := newTestJob(t)
		require.NoError(t, job.Start())
		require.NoError(t, job.Complete())
		assert.ErrorIs(t, job.Cancel(), shared.ErrInvalidState)
	})
}

func TestImportJob_Fail(t *testing.T) {
	job := newTestJob(t)
	require.NoError(t, job.Start())
	require.NoError(t, job.Fail("crm unreachable"))

	assert.Equal(t, JobStatusError, job.Status)
	assert.Equal(t, "crm unreachable", job.FailureCause)
	assert.ErrorIs(t, job.Fail("again"), shared.ErrInvalidState)
}

func TestImportJob_RecordRowRequiresRunning(t *testing.T) {
	job := newTestJob(t)
	assert.ErrorIs(t, job.RecordRow(0, OutcomeCreated, ""), shared.ErrInvalidState)
}

func TestImportJob_StartIdempotentWhileRunning(t *testing.T) {
	job := newTestJob(t)
	require.NoError(t, job.Start())
	started := job.StartedAt
	require.NoError(t, job.Start())
	assert.Equal(t, started, job.StartedAt)
}

func TestImportJob_ProgressZeroTotal(t *testing.T) {
	mapping := csvimport.ColumnMapping{csvimport.FieldEmail: "Email"}
	job := NewImportJob(PlatformHotmart, "", mapping, "vendas.csv", "", 0)
	assert.Equal(t, 0, job.Progress())
}
