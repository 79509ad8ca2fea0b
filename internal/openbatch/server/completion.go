package server

import (
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc/codes"

	"github.com/openbatch/openbatch/internal/common/batcherrors"
	"github.com/openbatch/openbatch/internal/jobdb"
	"github.com/openbatch/openbatch/internal/openbatch/relay"
	"github.com/openbatch/openbatch/pkg/api"
)

// postSignal is the completion handler: it runs on the control loop once the
// execution agent has acted on one target's signal, in arbitrary order
// across fanned-out targets. It applies the final state transition for the
// target and drops the target's reference on the shared tracker.
//
// All AdminSuspend side effects (the job flag and node maintenance marking)
// are applied here, only on confirmed agent success, never speculatively at
// request setup.
func (s *Server) postSignal(d *delivery, agentErr error) {
	req := d.req
	suspend := api.IsSuspend(req.Signal)
	resume := api.IsResume(req.Signal)

	// Re-fetch the record; the snapshot taken at dispatch may be stale by
	// the time the completion arrives.
	job, err := s.jobs.GetById(d.job.Id)
	if err != nil || job == nil {
		log.WithField("jobId", d.job.Id).Error("job disappeared while a signal was in flight")
		if resume {
			s.alloc.Release(d.job.Id)
		}
		d.tracker.complete(d.job.Id, &batcherrors.ErrInternal{Message: "job disappeared while signal was in flight"})
		return
	}

	if agentErr != nil {
		log.WithError(agentErr).WithFields(log.Fields{
			"jobId":  job.Id,
			"signal": req.Signal,
		}).Info("execution agent rejected signal")

		// The job exists here, so an unknown-job answer from the agent can
		// only be an internal inconsistency.
		if errors.Is(agentErr, relay.ErrUnknownJob) {
			agentErr = &batcherrors.ErrInternal{Message: "execution agent does not know job " + job.Id}
		} else if batcherrors.CodeFromError(agentErr) == codes.Unknown {
			agentErr = &batcherrors.ErrAgentRejected{JobId: job.Id, Message: agentErr.Error()}
		}
		if resume {
			// Resume failed: give back the resources assigned before relay.
			s.alloc.Release(job.Id)
		}
		d.tracker.complete(job.Id, agentErr)
		return
	}

	switch {
	case suspend && job.State == jobdb.Running:
		// First confirmation only; repeated suspends are no-ops.
		if !job.Suspended() {
			substate := jobdb.SubstateSuspend
			if req.FromScheduler {
				substate = jobdb.SubstateSchSusp
			}
			s.alloc.Release(job.Id)
			s.updateJob(job, func(j *jobdb.Job) {
				j.Flags |= jobdb.FlagSuspend
				j.Substate = substate
				if req.Signal == api.SignalAdminSuspend {
					s.setAdminSuspend(j, true)
				}
			})
		}

	case resume && job.State == jobdb.Running:
		// Resources were already re-assigned synchronously before relay.
		s.updateJob(job, func(j *jobdb.Job) {
			j.Flags &^= jobdb.FlagSuspend
			j.Substate = jobdb.SubstateRunning
			if req.Signal == api.SignalAdminResume {
				s.setAdminSuspend(j, false)
			}
		})
	}

	d.tracker.complete(job.Id, nil)
}
