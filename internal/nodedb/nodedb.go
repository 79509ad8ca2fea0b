// Package nodedb maintains the server's in-memory node table, including
// per-node resource accounting and the maintenance-state bookkeeping driven
// by admin-suspend. Records are treated as immutable once inserted; mutate
// via DeepCopy and Upsert.
package nodedb

import (
	"sort"

	"github.com/hashicorp/go-memdb"
	"github.com/pkg/errors"
)

// NodeState is the node state bitmask.
type NodeState uint32

const (
	// InUseMaintenance is set iff the node's maintenance-job set is
	// non-empty.
	InUseMaintenance NodeState = 1 << iota
)

// Node is one record in the node table.
type Node struct {
	Name  string
	State NodeState

	// Capacity.
	CpuTotal    int64
	MemoryTotal int64

	// Currently assigned to running jobs.
	CpuAllocated    int64
	MemoryAllocated int64

	// MaintenanceJobs is the set of job ids currently holding this node in
	// maintenance via admin-suspend.
	MaintenanceJobs map[string]bool
}

func (node *Node) InMaintenance() bool {
	return node.State&InUseMaintenance != 0
}

// AddMaintenanceJob records jobId as holding the node in maintenance and
// sets the maintenance bit.
func (node *Node) AddMaintenanceJob(jobId string) {
	if node.MaintenanceJobs == nil {
		node.MaintenanceJobs = map[string]bool{}
	}
	node.MaintenanceJobs[jobId] = true
	node.State |= InUseMaintenance
}

// RemoveMaintenanceJob removes jobId from the maintenance set, clearing the
// maintenance bit once the set becomes empty.
func (node *Node) RemoveMaintenanceJob(jobId string) {
	delete(node.MaintenanceJobs, jobId)
	if len(node.MaintenanceJobs) == 0 {
		node.State &^= InUseMaintenance
	}
}

// MaintenanceJobIds returns the maintenance set as a sorted slice, for
// persistence and logging.
func (node *Node) MaintenanceJobIds() []string {
	ids := make([]string, 0, len(node.MaintenanceJobs))
	for id := range node.MaintenanceJobs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (node *Node) DeepCopy() *Node {
	copied := *node
	copied.MaintenanceJobs = make(map[string]bool, len(node.MaintenanceJobs))
	for id := range node.MaintenanceJobs {
		copied.MaintenanceJobs[id] = true
	}
	return &copied
}

const nodesTable = "nodes"

type NodeDb struct {
	db *memdb.MemDB
}

func NewNodeDb() (*NodeDb, error) {
	db, err := memdb.NewMemDB(nodeDbSchema())
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return &NodeDb{db: db}, nil
}

// Txn opens a transaction. Writers must call Commit or Abort.
func (nodeDb *NodeDb) Txn(write bool) *memdb.Txn {
	return nodeDb.db.Txn(write)
}

// GetByNameWithTxn returns the node with the given name, or nil if there is
// none.
func (nodeDb *NodeDb) GetByNameWithTxn(txn *memdb.Txn, name string) (*Node, error) {
	it, err := txn.First(nodesTable, "id", name)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if it == nil {
		return nil, nil
	}
	return it.(*Node), nil
}

// GetByName returns the node with the given name, or nil if there is none.
func (nodeDb *NodeDb) GetByName(name string) (*Node, error) {
	txn := nodeDb.Txn(false)
	defer txn.Abort()
	return nodeDb.GetByNameWithTxn(txn, name)
}

// UpsertWithTxn inserts or replaces nodes.
func (nodeDb *NodeDb) UpsertWithTxn(txn *memdb.Txn, nodes []*Node) error {
	for _, node := range nodes {
		if err := txn.Insert(nodesTable, node); err != nil {
			return errors.WithStack(err)
		}
	}
	return nil
}

// Upsert inserts or replaces nodes in a single transaction.
func (nodeDb *NodeDb) Upsert(nodes []*Node) error {
	txn := nodeDb.Txn(true)
	defer txn.Abort()
	if err := nodeDb.UpsertWithTxn(txn, nodes); err != nil {
		return err
	}
	txn.Commit()
	return nil
}

func nodeDbSchema() *memdb.DBSchema {
	return &memdb.DBSchema{
		Tables: map[string]*memdb.TableSchema{
			nodesTable: {
				Name: nodesTable,
				Indexes: map[string]*memdb.IndexSchema{
					"id": {
						Name:    "id",
						Unique:  true,
						Indexer: &memdb.StringFieldIndex{Field: "Name"},
					},
				},
			},
		},
	}
}
