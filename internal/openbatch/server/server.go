// Package server implements the job-control core: signal/suspend/resume
// orchestration over jobs, subjobs, subjob ranges and whole job arrays.
//
// All job, node and request mutation happens on a single control goroutine,
// the Run loop. Frontend requests and relay completions arrive on channels
// drained by that loop; "asynchronous" means deferred continuation, not
// preemptive concurrency. The only value shared across logically-concurrent
// completions is the fan-out reference count, which is mutated atomically.
package server

import (
	"context"

	"github.com/google/uuid"

	"github.com/openbatch/openbatch/internal/jobdb"
	"github.com/openbatch/openbatch/internal/nodedb"
	"github.com/openbatch/openbatch/internal/openbatch/relay"
	"github.com/openbatch/openbatch/internal/openbatch/repository"
	"github.com/openbatch/openbatch/internal/openbatch/scheduling"
	"github.com/openbatch/openbatch/internal/resources"
	"github.com/openbatch/openbatch/pkg/api"
)

type Server struct {
	jobs  *jobdb.JobDb
	nodes *nodedb.NodeDb
	store repository.ObjectStore
	alloc *resources.Allocator
	relay relay.Relay
	sched *scheduling.Notifier

	requests    chan *incomingRequest
	completions chan func()
}

type incomingRequest struct {
	req   *api.SignalJobRequest
	id    string
	reply chan *api.SignalJobResponse
}

// NewServer wires the job-control core. The completions channel must be the
// same channel the relay posts to; the Run loop drains it.
func NewServer(
	jobs *jobdb.JobDb,
	nodes *nodedb.NodeDb,
	store repository.ObjectStore,
	alloc *resources.Allocator,
	rly relay.Relay,
	sched *scheduling.Notifier,
	completions chan func(),
) *Server {
	return &Server{
		jobs:        jobs,
		nodes:       nodes,
		store:       store,
		alloc:       alloc,
		relay:       rly,
		sched:       sched,
		requests:    make(chan *incomingRequest, 64),
		completions: completions,
	}
}

// Run drains requests and relay completions until the context is cancelled.
// It is the only goroutine that touches job and node state.
func (s *Server) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case r := <-s.requests:
			s.handleSignalJob(r)
		case f := <-s.completions:
			f()
		}
	}
}

// SubmitRequest hands a request to the control loop and returns the channel
// the single aggregated reply will be delivered on. If the caller goes away
// the reply is dropped; state transitions still complete.
func (s *Server) SubmitRequest(req *api.SignalJobRequest) <-chan *api.SignalJobResponse {
	reply := make(chan *api.SignalJobResponse, 1)
	s.requests <- &incomingRequest{
		req:   req,
		id:    uuid.NewString(),
		reply: reply,
	}
	return reply
}

// Handle submits the request and waits for the aggregated reply.
func (s *Server) Handle(ctx context.Context, req *api.SignalJobRequest) (*api.SignalJobResponse, error) {
	reply := s.SubmitRequest(req)
	select {
	case resp := <-reply:
		return resp, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
