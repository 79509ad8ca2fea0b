package server

import (
	log "github.com/sirupsen/logrus"

	"github.com/openbatch/openbatch/internal/common/batcherrors"
	"github.com/openbatch/openbatch/internal/jobdb"
	"github.com/openbatch/openbatch/internal/jobid"
	"github.com/openbatch/openbatch/internal/openbatch/metrics"
	"github.com/openbatch/openbatch/internal/openbatch/permissions"
	"github.com/openbatch/openbatch/pkg/api"
)

// delivery is the per-target slice of a request: the shared tracker, the
// originating request and the addressed job.
type delivery struct {
	tracker *fanoutTracker
	req     *api.SignalJobRequest
	job     *jobdb.Job
}

// handleSignalJob services one signal request: admission, target resolution
// and dispatch. Runs on the control loop.
func (s *Server) handleSignalJob(r *incomingRequest) {
	t := newFanoutTracker(r)
	if err := s.dispatchSignalJob(t, r.req); err != nil {
		// Request-level rejection: no side effects have occurred.
		t.failParent(err)
	}
	// Drop the protective reference; if no target is outstanding this sends
	// the reply, otherwise the last completion does.
	t.release()
}

// dispatchSignalJob resolves the target expression and dispatches the
// per-target path for every addressed, running target. A returned error
// means the whole request was rejected before any side effect.
func (s *Server) dispatchSignalJob(t *fanoutTracker, req *api.SignalJobRequest) error {
	kind, err := jobid.Classify(req.JobId)
	if err != nil {
		return &batcherrors.ErrInvalidRequest{Target: req.JobId, Message: err.Error()}
	}

	parentId := req.JobId
	if kind != jobid.KindPlain {
		parentId = jobid.ArrayId(req.JobId)
	}
	parent, err := s.jobs.GetById(parentId)
	if err != nil {
		return &batcherrors.ErrInternal{Message: err.Error()}
	}
	if parent == nil {
		return &batcherrors.ErrUnknownTarget{JobId: req.JobId}
	}

	// Suspend/resume pseudo-signals require operator or manager privilege.
	if permissions.IsRestrictedSignal(req.Signal) && !permissions.CanAdministerJobs(req.Perm) {
		return &batcherrors.ErrNoPermission{Principal: req.Principal, Action: req.Signal}
	}

	switch kind {
	case jobid.KindPlain:
		t.add()
		s.signalJobTarget(&delivery{tracker: t, req: req, job: parent})
		return nil

	case jobid.KindSingle:
		return s.dispatchSingleSubjob(t, req, parent)

	case jobid.KindArray:
		if parent.State != jobdb.Begun {
			return &batcherrors.ErrBadState{JobId: req.JobId, Message: "array job has not begun"}
		}
		if parent.Array == nil {
			return &batcherrors.ErrUnknownTarget{JobId: req.JobId}
		}
		indices := parent.Array.Indices
		return s.dispatchSubjobs(t, req, parent, indices)

	case jobid.KindRange:
		if parent.Array == nil {
			return &batcherrors.ErrUnknownTarget{JobId: req.JobId}
		}
		ranges, err := jobid.ParseRange(jobid.Subscript(req.JobId))
		if err != nil {
			return &batcherrors.ErrInvalidRequest{Target: req.JobId, Message: err.Error()}
		}
		return s.dispatchSubjobs(t, req, parent, jobid.Indices(ranges))
	}
	return &batcherrors.ErrInvalidRequest{Target: req.JobId}
}

func (s *Server) dispatchSingleSubjob(t *fanoutTracker, req *api.SignalJobRequest, parent *jobdb.Job) error {
	if parent.Array == nil {
		return &batcherrors.ErrUnknownTarget{JobId: req.JobId}
	}
	index, err := jobid.Index(req.JobId)
	if err != nil {
		return &batcherrors.ErrInvalidRequest{Target: req.JobId, Message: err.Error()}
	}
	offset, ok := parent.Array.Offset(index)
	if !ok {
		return &batcherrors.ErrUnknownTarget{JobId: req.JobId}
	}
	if parent.Array.StateAt(offset) != jobdb.Running {
		return &batcherrors.ErrBadState{JobId: req.JobId, Message: "subjob is not running"}
	}
	subjob, err := s.jobs.GetById(req.JobId)
	if err != nil {
		return &batcherrors.ErrInternal{Message: err.Error()}
	}
	if subjob == nil {
		// Tracked as running but never materialized; cannot be signalled.
		return &batcherrors.ErrBadState{JobId: req.JobId, Message: "subjob is not running"}
	}
	t.add()
	s.signalJobTarget(&delivery{tracker: t, req: req, job: subjob})
	return nil
}

// dispatchSubjobs fans the request out over the running subjobs at the given
// array indices. Subjobs for which a suspend is redundant (already
// suspended) or a resume inapplicable (not suspended) are skipped without
// error. If no subjob in the set is running, the request is rejected with
// BadState before any dispatch.
func (s *Server) dispatchSubjobs(t *fanoutTracker, req *api.SignalJobRequest, parent *jobdb.Job, indices []int) error {
	running := 0
	for _, index := range indices {
		offset, ok := parent.Array.Offset(index)
		if !ok {
			continue
		}
		if parent.Array.StateAt(offset) == jobdb.Running {
			running++
		}
	}
	if running == 0 {
		return &batcherrors.ErrBadState{JobId: req.JobId, Message: "no running subjobs in the addressed set"}
	}

	suspend := api.IsSuspend(req.Signal)
	resume := api.IsResume(req.Signal)
	dispatched := 0
	for _, index := range indices {
		offset, ok := parent.Array.Offset(index)
		if !ok || parent.Array.StateAt(offset) != jobdb.Running {
			continue
		}
		subjob, err := s.jobs.GetById(jobid.SubjobId(parent.Id, index))
		if err != nil {
			log.WithError(err).WithField("jobId", parent.Id).Error("failed to look up subjob")
			continue
		}
		if subjob == nil {
			continue
		}
		if suspend && subjob.Suspended() {
			continue
		}
		if resume && !subjob.Suspended() {
			continue
		}
		t.add()
		dispatched++
		s.signalJobTarget(&delivery{tracker: t, req: req, job: subjob})
	}
	metrics.RecordFanout(dispatched)
	return nil
}
