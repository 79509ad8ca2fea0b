// Package scheduling holds the pump used to wake the scheduler's run loop.
package scheduling

// Notifier signals the scheduler that new scheduling work is pending, e.g.
// a job whose resume has been deferred to the scheduler. Signals coalesce:
// any number of SignalNew calls between reads collapse into one wakeup.
type Notifier struct {
	ch chan struct{}
}

func NewNotifier() *Notifier {
	return &Notifier{ch: make(chan struct{}, 1)}
}

// SignalNew requests a scheduler wakeup. Never blocks.
func (n *Notifier) SignalNew() {
	select {
	case n.ch <- struct{}{}:
	default:
	}
}

// C is the channel the scheduler run loop waits on.
func (n *Notifier) C() <-chan struct{} {
	return n.ch
}
