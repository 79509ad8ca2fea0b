package relay

import (
	"context"
	"sync"
)

// FakeAgent is an AgentClient that answers immediately, failing calls for
// job ids that have a scripted error.
type FakeAgent struct {
	mu       sync.Mutex
	calls    []SignalCall
	failures map[string]error
}

type SignalCall struct {
	JobId  string
	Signal string
}

func NewFakeAgent() *FakeAgent {
	return &FakeAgent{failures: map[string]error{}}
}

// FailJob scripts the error returned for future calls addressing jobId.
func (a *FakeAgent) FailJob(jobId string, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.failures[jobId] = err
}

func (a *FakeAgent) SignalJob(_ context.Context, jobId string, signal string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls = append(a.calls, SignalCall{JobId: jobId, Signal: signal})
	return a.failures[jobId]
}

func (a *FakeAgent) Calls() []SignalCall {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]SignalCall{}, a.calls...)
}

// ManualAgent is an AgentClient whose calls block until the test answers
// them, allowing completions to be released in an arbitrary order.
type ManualAgent struct {
	Requests chan *PendingSignal
}

type PendingSignal struct {
	JobId   string
	Signal  string
	respond chan error
}

func NewManualAgent() *ManualAgent {
	return &ManualAgent{Requests: make(chan *PendingSignal, 64)}
}

func (a *ManualAgent) SignalJob(ctx context.Context, jobId string, signal string) error {
	p := &PendingSignal{JobId: jobId, Signal: signal, respond: make(chan error)}
	a.Requests <- p
	select {
	case err := <-p.respond:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Respond completes the pending call with the given error.
func (p *PendingSignal) Respond(err error) {
	p.respond <- err
}
