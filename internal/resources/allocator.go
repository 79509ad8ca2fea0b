package resources

import (
	log "github.com/sirupsen/logrus"

	"github.com/openbatch/openbatch/internal/common/batcherrors"
	"github.com/openbatch/openbatch/internal/nodedb"
)

// Allocator assigns and releases node resources for jobs. Assignment is
// all-or-nothing: if any chunk cannot be satisfied the whole assignment is
// aborted with no partial effect. Release is idempotent.
//
// The allocator is owned by the control thread and is not safe for
// concurrent use.
type Allocator struct {
	nodes *nodedb.NodeDb
	// assigned maps job id to the chunks currently charged against nodes.
	// This is the back-reference from job to nodes; nodes are looked up by
	// name and never owned by a job.
	assigned map[string][]Chunk
}

func NewAllocator(nodes *nodedb.NodeDb) *Allocator {
	return &Allocator{
		nodes:    nodes,
		assigned: map[string][]Chunk{},
	}
}

// Assign charges the resources described by execVnode against the named
// nodes. A job holds at most one assignment at a time; assigning an already
// assigned job is an error in the caller.
func (a *Allocator) Assign(jobId string, execVnode string) error {
	if _, ok := a.assigned[jobId]; ok {
		return &batcherrors.ErrInternal{Message: "job " + jobId + " already holds a resource assignment"}
	}
	chunks, err := ParseExecVnode(execVnode)
	if err != nil {
		return &batcherrors.ErrResourceAssignment{JobId: jobId, Message: err.Error()}
	}

	txn := a.nodes.Txn(true)
	defer txn.Abort()
	for _, chunk := range chunks {
		node, err := a.nodes.GetByNameWithTxn(txn, chunk.Node)
		if err != nil {
			return err
		}
		if node == nil {
			return &batcherrors.ErrResourceAssignment{JobId: jobId, Message: "node " + chunk.Node + " does not exist"}
		}
		if node.CpuAllocated+chunk.Cpus > node.CpuTotal ||
			node.MemoryAllocated+chunk.Memory > node.MemoryTotal {
			return &batcherrors.ErrResourceAssignment{JobId: jobId, Message: "insufficient resources on node " + chunk.Node}
		}
		node = node.DeepCopy()
		node.CpuAllocated += chunk.Cpus
		node.MemoryAllocated += chunk.Memory
		if err := a.nodes.UpsertWithTxn(txn, []*nodedb.Node{node}); err != nil {
			return err
		}
	}
	txn.Commit()
	a.assigned[jobId] = chunks
	return nil
}

// Release returns the job's assigned resources to its nodes. Releasing a job
// that holds no assignment is a no-op.
func (a *Allocator) Release(jobId string) {
	chunks, ok := a.assigned[jobId]
	if !ok {
		return
	}
	delete(a.assigned, jobId)

	txn := a.nodes.Txn(true)
	defer txn.Abort()
	for _, chunk := range chunks {
		node, err := a.nodes.GetByNameWithTxn(txn, chunk.Node)
		if err != nil || node == nil {
			log.WithField("node", chunk.Node).WithField("jobId", jobId).
				Warn("node disappeared while holding an assignment")
			continue
		}
		node = node.DeepCopy()
		node.CpuAllocated -= chunk.Cpus
		node.MemoryAllocated -= chunk.Memory
		if err := a.nodes.UpsertWithTxn(txn, []*nodedb.Node{node}); err != nil {
			log.WithError(err).WithField("node", chunk.Node).Error("failed to release node resources")
		}
	}
	txn.Commit()
}

// Assigned reports whether the job currently holds a resource assignment.
func (a *Allocator) Assigned(jobId string) bool {
	_, ok := a.assigned[jobId]
	return ok
}
