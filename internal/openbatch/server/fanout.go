package server

import (
	"sync/atomic"

	"github.com/openbatch/openbatch/internal/common/batcherrors"
	"github.com/openbatch/openbatch/internal/openbatch/metrics"
	"github.com/openbatch/openbatch/pkg/api"
	"google.golang.org/grpc/codes"
)

// fanoutTracker is the shared completion handle of one incoming request. It
// starts with one protective reference held while targets are still being
// dispatched; every dispatched target holds one more. The aggregated reply
// is sent exactly once, when the count reaches zero.
//
// Outcomes are only appended from the control thread; the counter is the
// only field touched by logically-concurrent completions and is mutated
// atomically.
type fanoutTracker struct {
	refs      int32
	requestId string
	jobId     string
	signal    string
	outcomes  []api.TargetOutcome
	reply     chan<- *api.SignalJobResponse
}

func newFanoutTracker(r *incomingRequest) *fanoutTracker {
	return &fanoutTracker{
		refs:      1,
		requestId: r.id,
		jobId:     r.req.JobId,
		signal:    r.req.Signal,
		reply:     r.reply,
	}
}

// add takes a reference on behalf of a dispatched target.
func (t *fanoutTracker) add() {
	atomic.AddInt32(&t.refs, 1)
}

// complete records one target's outcome and drops its reference.
func (t *fanoutTracker) complete(jobId string, err error) {
	t.outcomes = append(t.outcomes, api.TargetOutcome{JobId: jobId, Err: err})
	metrics.RecordSignal(t.signal, outcomeLabel(err))
	t.release()
}

// failParent records a request-level rejection without touching the count;
// the protective reference carries the reply out.
func (t *fanoutTracker) failParent(err error) {
	t.outcomes = append(t.outcomes, api.TargetOutcome{JobId: t.jobId, Err: err})
	metrics.RecordSignal(t.signal, outcomeLabel(err))
}

// release drops one reference and sends the aggregated reply if it was the
// last. The reply channel is buffered, so an abandoned caller never blocks
// the control loop.
func (t *fanoutTracker) release() {
	if atomic.AddInt32(&t.refs, -1) != 0 {
		return
	}
	resp := &api.SignalJobResponse{
		RequestId: t.requestId,
		JobId:     t.jobId,
		Outcomes:  t.outcomes,
	}
	select {
	case t.reply <- resp:
	default:
	}
}

func outcomeLabel(err error) string {
	if err == nil {
		return "success"
	}
	if code := batcherrors.CodeFromError(err); code != codes.Unknown {
		return code.String()
	}
	return "error"
}
