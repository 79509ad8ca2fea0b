package jobdb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobDb_UpsertAndGet(t *testing.T) {
	db, err := NewJobDb()
	require.NoError(t, err)

	job := &Job{Id: "1234", State: Running, Substate: SubstateRunning, ExecVnode: "(nodeA:ncpus=2)"}
	require.NoError(t, db.Upsert([]*Job{job}))

	got, err := db.GetById("1234")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, job, got)

	missing, err := db.GetById("9999")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestJobDb_UpsertReplaces(t *testing.T) {
	db, err := NewJobDb()
	require.NoError(t, err)

	require.NoError(t, db.Upsert([]*Job{{Id: "1234", Substate: SubstateRunning}}))
	require.NoError(t, db.Upsert([]*Job{{Id: "1234", Substate: SubstateSuspend, Flags: FlagSuspend}}))

	got, err := db.GetById("1234")
	require.NoError(t, err)
	assert.Equal(t, SubstateSuspend, got.Substate)
	assert.True(t, got.Suspended())
}

func TestArrayTracking_Offset(t *testing.T) {
	tracking := NewArrayTracking([]int{2, 4, 6, 8, 10})

	offset, ok := tracking.Offset(6)
	require.True(t, ok)
	assert.Equal(t, 2, offset)
	assert.Equal(t, 6, tracking.IndexAt(offset))

	_, ok = tracking.Offset(5)
	assert.False(t, ok)
	_, ok = tracking.Offset(12)
	assert.False(t, ok)

	offset, ok = tracking.Offset(2)
	require.True(t, ok)
	assert.Equal(t, 0, offset)

	offset, ok = tracking.Offset(10)
	require.True(t, ok)
	assert.Equal(t, 4, offset)
}

func TestArrayTracking_States(t *testing.T) {
	tracking := NewArrayTracking([]int{0, 1, 2})
	assert.Equal(t, Queued, tracking.StateAt(0))

	tracking.SetStateAt(1, Running)
	assert.Equal(t, Running, tracking.StateAt(1))
	assert.Equal(t, Queued, tracking.StateAt(0))
	assert.Equal(t, 3, tracking.Count())
}

func TestJob_DeepCopy(t *testing.T) {
	job := &Job{
		Id:    "1234[]",
		State: Begun,
		Array: NewArrayTracking([]int{0, 1}),
	}
	copied := job.DeepCopy()
	copied.Array.SetStateAt(0, Running)
	copied.Flags |= FlagSuspend

	assert.Equal(t, Queued, job.Array.StateAt(0))
	assert.False(t, job.Suspended())
	assert.True(t, copied.Suspended())
}
