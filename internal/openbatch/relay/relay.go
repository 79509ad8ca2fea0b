// Package relay delivers signals to the remote execution agent. Submission
// is non-blocking: a worker pool performs the agent call off the control
// thread and the completion callback is marshalled back onto the server's
// completion channel, so all job and node mutation stays on one thread.
package relay

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/openbatch/openbatch/internal/common/batcherrors"
)

// ErrUnknownJob is reported by an agent that does not know the job. The
// completion handler remaps it to an internal error, since the job is known
// to exist locally.
var ErrUnknownJob = errors.New("execution agent does not know the job")

// CompletionFunc is invoked on the control thread once the agent has acted
// on a submitted signal, successfully or not.
type CompletionFunc func(jobId string, signal string, err error)

// Relay submits signals asynchronously. Submit returns an error only when
// the signal could not be queued at all; the outcome of a queued signal is
// reported through the completion callback.
type Relay interface {
	Submit(jobId string, signal string, done CompletionFunc) error
}

// AgentClient performs the actual call to the execution agent. A nil return
// means the agent acted on the signal.
type AgentClient interface {
	SignalJob(ctx context.Context, jobId string, signal string) error
}

type submission struct {
	jobId  string
	signal string
	done   CompletionFunc
}

// AgentRelay is the production Relay: a bounded queue drained by a fixed
// worker pool.
type AgentRelay struct {
	client      AgentClient
	completions chan<- func()
	pending     chan submission
	stop        chan struct{}
	stopOnce    sync.Once
	wg          sync.WaitGroup
}

func NewAgentRelay(client AgentClient, workers int, queueSize int, completions chan<- func()) *AgentRelay {
	if workers <= 0 {
		workers = 1
	}
	r := &AgentRelay{
		client:      client,
		completions: completions,
		pending:     make(chan submission, queueSize),
		stop:        make(chan struct{}),
	}
	for i := 0; i < workers; i++ {
		r.wg.Add(1)
		go r.worker()
	}
	return r
}

// Submit queues a signal for delivery. It fails synchronously with
// ErrAgentUnreachable if the queue is full or the relay has been stopped.
func (r *AgentRelay) Submit(jobId string, signal string, done CompletionFunc) error {
	select {
	case <-r.stop:
		return &batcherrors.ErrAgentUnreachable{JobId: jobId, Message: "relay stopped"}
	default:
	}
	select {
	case r.pending <- submission{jobId: jobId, signal: signal, done: done}:
		return nil
	default:
		return &batcherrors.ErrAgentUnreachable{JobId: jobId, Message: "relay queue full"}
	}
}

// Stop prevents further submissions and waits for in-flight agent calls to
// post their completions.
func (r *AgentRelay) Stop() {
	r.stopOnce.Do(func() {
		close(r.stop)
		close(r.pending)
	})
	r.wg.Wait()
}

func (r *AgentRelay) worker() {
	defer r.wg.Done()
	for s := range r.pending {
		err := r.client.SignalJob(context.Background(), s.jobId, s.signal)
		if err != nil {
			log.WithError(err).WithField("jobId", s.jobId).WithField("signal", s.signal).
				Debug("agent call failed")
		}
		s := s
		r.completions <- func() { s.done(s.jobId, s.signal, err) }
	}
}
