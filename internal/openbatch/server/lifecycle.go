package server

import (
	log "github.com/sirupsen/logrus"

	"github.com/openbatch/openbatch/internal/common/batcherrors"
	"github.com/openbatch/openbatch/internal/jobdb"
	"github.com/openbatch/openbatch/internal/nodedb"
	"github.com/openbatch/openbatch/internal/openbatch/metrics"
	"github.com/openbatch/openbatch/internal/resources"
	"github.com/openbatch/openbatch/pkg/api"
)

// signalJobTarget runs the per-target path: state checks, the resume state
// machine, and the relay to the execution agent. Resume re-assigns resources
// synchronously before the relay; suspend changes no local state until the
// agent confirms.
func (s *Server) signalJobTarget(d *delivery) {
	job, req := d.job, d.req

	if job.State != jobdb.Running || job.Substate == jobdb.SubstateProvision {
		d.tracker.complete(job.Id, &batcherrors.ErrBadState{JobId: job.Id, Message: "job is not running"})
		return
	}
	// An admin-suspended job may only be resumed by admin-resume, and
	// vice versa.
	if (req.Signal == api.SignalAdminResume && !job.AdminSuspended()) ||
		(req.Signal == api.SignalResume && job.AdminSuspended()) {
		d.tracker.complete(job.Id, &batcherrors.ErrWrongResumeType{JobId: job.Id, Signal: req.Signal})
		return
	}

	resume := api.IsResume(req.Signal)
	if api.IsSuspend(req.Signal) || resume {
		log.WithFields(log.Fields{
			"jobId":     job.Id,
			"signal":    req.Signal,
			"principal": req.Principal,
		}).Info("suspend/resume requested")

		if resume {
			if !job.Suspended() {
				d.tracker.complete(job.Id, &batcherrors.ErrBadState{JobId: job.Id, Message: "job is not suspended"})
				return
			}
			if req.FromScheduler || req.Signal == api.SignalAdminResume {
				// Immediate resume: re-acquire the job's resources before
				// asking the agent to continue it.
				if err := s.alloc.Assign(job.Id, job.ExecVnode); err != nil {
					d.tracker.complete(job.Id, err)
					return
				}
			} else {
				// Not from the scheduler: mark the job for scheduler-directed
				// resume and wake the scheduler. No relay on this path.
				s.updateJob(job, func(j *jobdb.Job) {
					j.Substate = jobdb.SubstateSchSusp
				})
				s.sched.SignalNew()
				d.tracker.complete(job.Id, nil)
				return
			}
		}
	}

	log.WithFields(log.Fields{
		"jobId":  job.Id,
		"signal": req.Signal,
	}).Info("relaying signal to execution agent")
	err := s.relay.Submit(job.Id, req.Signal, func(_ string, _ string, err error) {
		s.postSignal(d, err)
	})
	if err != nil {
		// Could not even reach the agent; unwind the resume assignment.
		if resume {
			s.alloc.Release(job.Id)
		}
		metrics.RecordRelayFailure()
		d.tracker.complete(job.Id, err)
	}
}

// updateJob applies a mutation via copy-and-replace and persists the result.
// Persistence failures are logged, not propagated; the in-memory record is
// authoritative.
func (s *Server) updateJob(job *jobdb.Job, mutate func(*jobdb.Job)) *jobdb.Job {
	copied := job.DeepCopy()
	mutate(copied)
	if err := s.jobs.Upsert([]*jobdb.Job{copied}); err != nil {
		log.WithError(err).WithField("jobId", job.Id).Error("failed to update job record")
		return job
	}
	if err := s.store.SaveJob(copied); err != nil {
		log.WithError(err).WithField("jobId", job.Id).Error("failed to persist job record")
	}
	return copied
}

// setAdminSuspend toggles the job's AdminSuspend flag and, for every node in
// its exec_vnode, adds or removes the job from the node's maintenance set,
// maintaining the maintenance state bit. Modified nodes are persisted.
//
// The caller passes the working copy of the job and persists it afterwards.
func (s *Server) setAdminSuspend(job *jobdb.Job, set bool) {
	if set {
		job.Flags |= jobdb.FlagAdminSuspend
	} else {
		job.Flags &^= jobdb.FlagAdminSuspend
	}

	chunks, err := resources.ParseExecVnode(job.ExecVnode)
	if err != nil {
		log.WithError(err).WithField("jobId", job.Id).Warn("cannot parse exec_vnode for maintenance marking")
		return
	}

	var modified []*nodedb.Node
	txn := s.nodes.Txn(true)
	defer txn.Abort()
	for _, name := range resources.NodeNames(chunks) {
		node, err := s.nodes.GetByNameWithTxn(txn, name)
		if err != nil {
			log.WithError(err).WithField("node", name).Error("failed to look up node")
			continue
		}
		if node == nil {
			continue
		}
		node = node.DeepCopy()
		if set {
			node.AddMaintenanceJob(job.Id)
		} else {
			node.RemoveMaintenanceJob(job.Id)
		}
		if err := s.nodes.UpsertWithTxn(txn, []*nodedb.Node{node}); err != nil {
			log.WithError(err).WithField("node", name).Error("failed to update node record")
			continue
		}
		modified = append(modified, node)
	}
	txn.Commit()

	for _, node := range modified {
		if err := s.store.SaveNode(node); err != nil {
			log.WithError(err).WithField("node", node.Name).Error("failed to persist node record")
		}
	}
}
