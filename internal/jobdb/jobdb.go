// Package jobdb maintains the server's in-memory job table. All access goes
// through memdb transactions; records are treated as immutable once
// inserted, so mutations copy, modify and re-insert.
package jobdb

import (
	"github.com/hashicorp/go-memdb"
	"github.com/pkg/errors"
)

const jobsTable = "jobs"

type JobDb struct {
	db *memdb.MemDB
}

func NewJobDb() (*JobDb, error) {
	db, err := memdb.NewMemDB(jobDbSchema())
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return &JobDb{db: db}, nil
}

// Txn opens a transaction. Writers must call Commit or Abort.
func (jobDb *JobDb) Txn(write bool) *memdb.Txn {
	return jobDb.db.Txn(write)
}

// GetByIdWithTxn returns the job with the given id, or nil if there is none.
func (jobDb *JobDb) GetByIdWithTxn(txn *memdb.Txn, id string) (*Job, error) {
	it, err := txn.First(jobsTable, "id", id)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if it == nil {
		return nil, nil
	}
	return it.(*Job), nil
}

// GetById returns the job with the given id, or nil if there is none.
func (jobDb *JobDb) GetById(id string) (*Job, error) {
	txn := jobDb.Txn(false)
	defer txn.Abort()
	return jobDb.GetByIdWithTxn(txn, id)
}

// UpsertWithTxn inserts or replaces jobs.
func (jobDb *JobDb) UpsertWithTxn(txn *memdb.Txn, jobs []*Job) error {
	for _, job := range jobs {
		if err := txn.Insert(jobsTable, job); err != nil {
			return errors.WithStack(err)
		}
	}
	return nil
}

// Upsert inserts or replaces jobs in a single transaction.
func (jobDb *JobDb) Upsert(jobs []*Job) error {
	txn := jobDb.Txn(true)
	defer txn.Abort()
	if err := jobDb.UpsertWithTxn(txn, jobs); err != nil {
		return err
	}
	txn.Commit()
	return nil
}

func jobDbSchema() *memdb.DBSchema {
	return &memdb.DBSchema{
		Tables: map[string]*memdb.TableSchema{
			jobsTable: {
				Name: jobsTable,
				Indexes: map[string]*memdb.IndexSchema{
					"id": {
						Name:    "id",
						Unique:  true,
						Indexer: &memdb.StringFieldIndex{Field: "Id"},
					},
				},
			},
		},
	}
}
