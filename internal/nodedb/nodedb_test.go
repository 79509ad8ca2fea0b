package nodedb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNodeDb_UpsertAndGet(t *testing.T) {
	db, err := NewNodeDb()
	require.NoError(t, err)

	node := &Node{Name: "nodeA", CpuTotal: 8, MemoryTotal: 16 << 30}
	require.NoError(t, db.Upsert([]*Node{node}))

	got, err := db.GetByName("nodeA")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, node, got)

	missing, err := db.GetByName("nodeB")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestNode_MaintenanceSet(t *testing.T) {
	node := &Node{Name: "nodeA"}
	assert.False(t, node.InMaintenance())

	node.AddMaintenanceJob("1234")
	assert.True(t, node.InMaintenance())

	node.AddMaintenanceJob("5678")
	assert.True(t, node.InMaintenance())
	assert.Equal(t, []string{"1234", "5678"}, node.MaintenanceJobIds())

	// The bit stays set until the set is empty.
	node.RemoveMaintenanceJob("1234")
	assert.True(t, node.InMaintenance())

	node.RemoveMaintenanceJob("5678")
	assert.False(t, node.InMaintenance())
	assert.Empty(t, node.MaintenanceJobIds())
}

func TestNode_RemoveMaintenanceJobIdempotent(t *testing.T) {
	node := &Node{Name: "nodeA"}
	node.RemoveMaintenanceJob("1234")
	assert.False(t, node.InMaintenance())
}

func TestNode_DeepCopy(t *testing.T) {
	node := &Node{Name: "nodeA"}
	node.AddMaintenanceJob("1234")

	copied := node.DeepCopy()
	copied.RemoveMaintenanceJob("1234")

	assert.True(t, node.InMaintenance())
	assert.False(t, copied.InMaintenance())
}
