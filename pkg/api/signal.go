// Package api defines the request/reply contract between the job-control
// core and its frontends. The types here are transport-agnostic; frontends
// are responsible for (de)serialising them.
package api

import (
	"github.com/hashicorp/go-multierror"
)

// Pseudo-signals understood by the server. Any other signal name is passed
// through to the execution agent verbatim (e.g. "SIGTERM").
const (
	SignalSuspend      = "suspend"
	SignalResume       = "resume"
	SignalAdminSuspend = "admin-suspend"
	SignalAdminResume  = "admin-resume"
)

// IsSuspend returns true for the two suspend pseudo-signals.
func IsSuspend(signal string) bool {
	return signal == SignalSuspend || signal == SignalAdminSuspend
}

// IsResume returns true for the two resume pseudo-signals.
func IsResume(signal string) bool {
	return signal == SignalResume || signal == SignalAdminResume
}

// IsAdmin returns true for the admin variants, which additionally toggle
// node maintenance state.
func IsAdmin(signal string) bool {
	return signal == SignalAdminSuspend || signal == SignalAdminResume
}

// Perm is the set of privilege bits carried on a request.
type Perm uint32

const (
	PermOperatorRead Perm = 1 << iota
	PermOperatorWrite
	PermManagerRead
	PermManagerWrite
)

// SignalJobRequest asks the server to deliver a signal to a job, a single
// subjob, a range of subjobs or a whole job array, depending on the form of
// JobId (e.g. "1234", "1234[7]", "1234[2-8:2]", "1234[]").
type SignalJobRequest struct {
	JobId     string
	Signal    string
	Principal string
	Perm      Perm
	// FromScheduler marks requests issued by the scheduler itself; it selects
	// the immediate resume path and the scheduler-suspend substate.
	FromScheduler bool
	// ConnectionId identifies the originating connection, for logging only.
	ConnectionId string
}

// TargetOutcome is the result for one addressed job or subjob.
type TargetOutcome struct {
	JobId string
	Err   error
}

// SignalJobResponse aggregates the per-target outcomes of one request. It is
// sent exactly once, after the last outstanding target has completed.
type SignalJobResponse struct {
	RequestId string
	JobId     string
	Outcomes  []TargetOutcome
}

// Err returns nil if every target succeeded, the single error if exactly one
// target failed, and a multierror otherwise.
func (r *SignalJobResponse) Err() error {
	var result *multierror.Error
	for _, outcome := range r.Outcomes {
		if outcome.Err != nil {
			result = multierror.Append(result, outcome.Err)
		}
	}
	return result.ErrorOrNil()
}
