package resources

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openbatch/openbatch/internal/common/batcherrors"
	"github.com/openbatch/openbatch/internal/nodedb"
)

func TestParseExecVnode(t *testing.T) {
	chunks, err := ParseExecVnode("(nodeA:ncpus=2:mem=4gb)+(nodeB:ncpus=1)")
	require.NoError(t, err)
	assert.Equal(t, []Chunk{
		{Node: "nodeA", Cpus: 2, Memory: 4 << 30},
		{Node: "nodeB", Cpus: 1},
	}, chunks)
}

func TestParseExecVnode_NoParens(t *testing.T) {
	chunks, err := ParseExecVnode("nodeA:ncpus=2+nodeA:mem=512mb")
	require.NoError(t, err)
	assert.Equal(t, []Chunk{
		{Node: "nodeA", Cpus: 2},
		{Node: "nodeA", Memory: 512 << 20},
	}, chunks)
	assert.Equal(t, []string{"nodeA"}, NodeNames(chunks))
}

func TestParseExecVnode_Malformed(t *testing.T) {
	for _, spec := range []string{"", "  ", "(:ncpus=2)", "(nodeA:ncpus)", "(nodeA:ncpus=x)", "(nodeA:mem=4xb)"} {
		_, err := ParseExecVnode(spec)
		assert.Error(t, err, spec)
	}
}

func TestParseExecVnode_IgnoresUnknownResources(t *testing.T) {
	chunks, err := ParseExecVnode("(nodeA:ncpus=2:ngpus=1)")
	require.NoError(t, err)
	assert.Equal(t, []Chunk{{Node: "nodeA", Cpus: 2}}, chunks)
}

func withAllocator(t *testing.T, action func(a *Allocator, nodes *nodedb.NodeDb)) {
	nodes, err := nodedb.NewNodeDb()
	require.NoError(t, err)
	require.NoError(t, nodes.Upsert([]*nodedb.Node{
		{Name: "nodeA", CpuTotal: 4, MemoryTotal: 8 << 30},
		{Name: "nodeB", CpuTotal: 2, MemoryTotal: 4 << 30},
	}))
	action(NewAllocator(nodes), nodes)
}

func TestAllocator_AssignAndRelease(t *testing.T) {
	withAllocator(t, func(a *Allocator, nodes *nodedb.NodeDb) {
		err := a.Assign("1234", "(nodeA:ncpus=2:mem=4gb)+(nodeB:ncpus=1)")
		require.NoError(t, err)
		assert.True(t, a.Assigned("1234"))

		nodeA, err := nodes.GetByName("nodeA")
		require.NoError(t, err)
		assert.Equal(t, int64(2), nodeA.CpuAllocated)
		assert.Equal(t, int64(4<<30), nodeA.MemoryAllocated)

		a.Release("1234")
		assert.False(t, a.Assigned("1234"))

		nodeA, err = nodes.GetByName("nodeA")
		require.NoError(t, err)
		assert.Equal(t, int64(0), nodeA.CpuAllocated)
		nodeB, err := nodes.GetByName("nodeB")
		require.NoError(t, err)
		assert.Equal(t, int64(0), nodeB.CpuAllocated)
	})
}

func TestAllocator_ReleaseIdempotent(t *testing.T) {
	withAllocator(t, func(a *Allocator, nodes *nodedb.NodeDb) {
		require.NoError(t, a.Assign("1234", "(nodeA:ncpus=2)"))
		a.Release("1234")
		a.Release("1234")

		nodeA, err := nodes.GetByName("nodeA")
		require.NoError(t, err)
		assert.Equal(t, int64(0), nodeA.CpuAllocated)
	})
}

func TestAllocator_InsufficientResources(t *testing.T) {
	withAllocator(t, func(a *Allocator, nodes *nodedb.NodeDb) {
		err := a.Assign("1234", "(nodeA:ncpus=2)+(nodeB:ncpus=8)")
		require.Error(t, err)
		var assignmentErr *batcherrors.ErrResourceAssignment
		assert.ErrorAs(t, err, &assignmentErr)
		assert.False(t, a.Assigned("1234"))

		// All-or-nothing: the satisfiable chunk must not have been charged.
		nodeA, err := nodes.GetByName("nodeA")
		require.NoError(t, err)
		assert.Equal(t, int64(0), nodeA.CpuAllocated)
	})
}

func TestAllocator_UnknownNode(t *testing.T) {
	withAllocator(t, func(a *Allocator, nodes *nodedb.NodeDb) {
		err := a.Assign("1234", "(nodeX:ncpus=1)")
		require.Error(t, err)
		var assignmentErr *batcherrors.ErrResourceAssignment
		assert.ErrorAs(t, err, &assignmentErr)
	})
}

func TestAllocator_DoubleAssign(t *testing.T) {
	withAllocator(t, func(a *Allocator, nodes *nodedb.NodeDb) {
		require.NoError(t, a.Assign("1234", "(nodeA:ncpus=1)"))
		assert.Error(t, a.Assign("1234", "(nodeA:ncpus=1)"))
	})
}
