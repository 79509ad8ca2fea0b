// Package repository persists job and node records to Redis. The server
// treats the store as a collaborator: saves happen after state transitions
// and failures surface as internal errors with no local retry.
package repository

import (
	"encoding/json"

	"github.com/go-redis/redis"
	"github.com/pkg/errors"

	"github.com/openbatch/openbatch/internal/jobdb"
	"github.com/openbatch/openbatch/internal/nodedb"
)

const (
	jobObjectPrefix  = "Job:"
	nodeObjectPrefix = "Node:"
)

type ObjectStore interface {
	SaveJob(job *jobdb.Job) error
	LoadJob(id string) (*jobdb.Job, error)
	SaveNode(node *nodedb.Node) error
	LoadNode(name string) (*nodedb.Node, error)
}

type RedisObjectStore struct {
	db redis.UniversalClient
}

func NewRedisObjectStore(db redis.UniversalClient) *RedisObjectStore {
	return &RedisObjectStore{db: db}
}

func (r *RedisObjectStore) SaveJob(job *jobdb.Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return errors.WithStack(err)
	}
	return errors.WithStack(r.db.Set(jobObjectPrefix+job.Id, data, 0).Err())
}

// LoadJob returns the stored job, or nil if there is none.
func (r *RedisObjectStore) LoadJob(id string) (*jobdb.Job, error) {
	data, err := r.db.Get(jobObjectPrefix + id).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, errors.WithStack(err)
	}
	job := &jobdb.Job{}
	if err := json.Unmarshal(data, job); err != nil {
		return nil, errors.WithStack(err)
	}
	return job, nil
}

func (r *RedisObjectStore) SaveNode(node *nodedb.Node) error {
	data, err := json.Marshal(node)
	if err != nil {
		return errors.WithStack(err)
	}
	return errors.WithStack(r.db.Set(nodeObjectPrefix+node.Name, data, 0).Err())
}

// LoadNode returns the stored node, or nil if there is none.
func (r *RedisObjectStore) LoadNode(name string) (*nodedb.Node, error) {
	data, err := r.db.Get(nodeObjectPrefix + name).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, errors.WithStack(err)
	}
	node := &nodedb.Node{}
	if err := json.Unmarshal(data, node); err != nil {
		return nil, errors.WithStack(err)
	}
	return node, nil
}
