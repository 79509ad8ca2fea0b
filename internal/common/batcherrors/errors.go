// Package batcherrors contains the typed errors returned by the job-control
// core. Frontends map these onto their own status space; CodeFromError
// provides the mapping onto gRPC codes.
//
// If multiple targets of a fanned-out request fail, the aggregated reply
// carries an error of type multierror.Error from package
// github.com/hashicorp/go-multierror wrapping the individual errors.
package batcherrors

import (
	"fmt"

	"github.com/pkg/errors"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ErrInvalidRequest indicates a malformed target expression, e.g. a subjob
// range that does not parse.
type ErrInvalidRequest struct {
	Target  string
	Message string
}

func (err *ErrInvalidRequest) Error() string {
	if err.Message == "" {
		return fmt.Sprintf("invalid request for target %q", err.Target)
	}
	return fmt.Sprintf("invalid request for target %q; %s", err.Target, err.Message)
}

// ErrUnknownTarget indicates that the addressed job or subjob does not exist.
type ErrUnknownTarget struct {
	JobId string
}

func (err *ErrUnknownTarget) Error() string {
	return fmt.Sprintf("job %q does not exist", err.JobId)
}

// ErrBadState indicates that the target is in a state that does not permit
// the requested operation, e.g. signalling a job that is not running or
// resuming a job that is not suspended.
type ErrBadState struct {
	JobId   string
	Message string
}

func (err *ErrBadState) Error() string {
	if err.Message == "" {
		return fmt.Sprintf("job %q is in the wrong state for this request", err.JobId)
	}
	return fmt.Sprintf("job %q is in the wrong state for this request; %s", err.JobId, err.Message)
}

// ErrNoPermission indicates that the caller lacks the privilege required for
// a suspend/resume pseudo-signal.
type ErrNoPermission struct {
	Principal string
	Action    string
}

func (err *ErrNoPermission) Error() string {
	return fmt.Sprintf("%s lacks operator or manager privilege required for action %s", err.Principal, err.Action)
}

// ErrWrongResumeType indicates an admin/ordinary resume mismatch: admin-resume
// on a job that is not admin-suspended, or ordinary resume on one that is.
type ErrWrongResumeType struct {
	JobId  string
	Signal string
}

func (err *ErrWrongResumeType) Error() string {
	return fmt.Sprintf("signal %q is the wrong resume type for job %q", err.Signal, err.JobId)
}

// ErrResourceAssignment indicates that resources described by the job's
// exec_vnode could not be re-acquired on resume.
type ErrResourceAssignment struct {
	JobId   string
	Message string
}

func (err *ErrResourceAssignment) Error() string {
	return fmt.Sprintf("could not assign resources to job %q; %s", err.JobId, err.Message)
}

// ErrAgentUnreachable indicates that the signal could not be submitted to the
// execution agent at all.
type ErrAgentUnreachable struct {
	JobId   string
	Message string
}

func (err *ErrAgentUnreachable) Error() string {
	if err.Message == "" {
		return fmt.Sprintf("execution agent for job %q is unreachable", err.JobId)
	}
	return fmt.Sprintf("execution agent for job %q is unreachable; %s", err.JobId, err.Message)
}

// ErrAgentRejected indicates that the execution agent accepted the submission
// but reported failure on completion.
type ErrAgentRejected struct {
	JobId   string
	Message string
}

func (err *ErrAgentRejected) Error() string {
	return fmt.Sprintf("execution agent rejected signal for job %q; %s", err.JobId, err.Message)
}

// ErrInternal is a generic internal error, e.g. a persistence failure or an
// agent failure that cannot be anything but a server-side inconsistency.
type ErrInternal struct {
	Message string
}

func (err *ErrInternal) Error() string {
	return fmt.Sprintf("internal error; %s", err.Message)
}

// CodeFromError maps error types to gRPC return codes.
// Uses errors.As to look through the chain of errors, as opposed to just
// considering the topmost error in the chain.
func CodeFromError(err error) codes.Code {
	if err == nil {
		return codes.OK
	}

	// Check if the error is a gRPC status and, if so, return the embedded code.
	if s, ok := status.FromError(err); ok {
		return s.Code()
	}

	// Otherwise, we check for known error types.
	// Using {} scopes just to re-use the "e" variable name for each case.
	{
		var e *ErrInvalidRequest
		if errors.As(err, &e) {
			return codes.InvalidArgument
		}
	}
	{
		var e *ErrUnknownTarget
		if errors.As(err, &e) {
			return codes.NotFound
		}
	}
	{
		var e *ErrBadState
		if errors.As(err, &e) {
			return codes.FailedPrecondition
		}
	}
	{
		var e *ErrNoPermission
		if errors.As(err, &e) {
			return codes.PermissionDenied
		}
	}
	{
		var e *ErrWrongResumeType
		if errors.As(err, &e) {
			return codes.FailedPrecondition
		}
	}
	{
		var e *ErrResourceAssignment
		if errors.As(err, &e) {
			return codes.ResourceExhausted
		}
	}
	{
		var e *ErrAgentUnreachable
		if errors.As(err, &e) {
			return codes.Unavailable
		}
	}
	{
		var e *ErrAgentRejected
		if errors.As(err, &e) {
			return codes.Unavailable
		}
	}
	{
		var e *ErrInternal
		if errors.As(err, &e) {
			return codes.Internal
		}
	}

	return codes.Unknown
}
