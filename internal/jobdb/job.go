package jobdb

// State is the primary job state.
type State int32

const (
	Queued State = iota
	Running
	// Begun is the state of an array job of which at least one subjob has
	// started running. Subjobs themselves are Running.
	Begun
	Exiting
	Finished
)

func (s State) String() string {
	switch s {
	case Queued:
		return "QUEUED"
	case Running:
		return "RUNNING"
	case Begun:
		return "BEGUN"
	case Exiting:
		return "EXITING"
	case Finished:
		return "FINISHED"
	}
	return "UNKNOWN"
}

// Substate distinguishes reasons within a primary state, e.g. why a Running
// job is not actually executing.
type Substate int32

const (
	SubstateRunning Substate = iota
	// SubstateProvision marks a job whose nodes are still being provisioned;
	// the execution agent has not yet taken ownership and the job cannot be
	// signalled.
	SubstateProvision
	// SubstateSuspend marks a user- or admin-suspended job.
	SubstateSuspend
	// SubstateSchSusp marks a job suspended pending a scheduler-directed
	// resume.
	SubstateSchSusp
)

func (s Substate) String() string {
	switch s {
	case SubstateRunning:
		return "RUNNING"
	case SubstateProvision:
		return "PROVISION"
	case SubstateSuspend:
		return "SUSPEND"
	case SubstateSchSusp:
		return "SCHSUSP"
	}
	return "UNKNOWN"
}

// Flags is the set of server flags on a job.
type Flags uint32

const (
	// FlagSuspend is set iff the job substate is SubstateSuspend or
	// SubstateSchSusp.
	FlagSuspend Flags = 1 << iota
	// FlagAdminSuspend marks a job suspended via admin-suspend; such a job
	// may only be resumed via admin-resume, and its nodes are held in
	// maintenance while the flag is set.
	FlagAdminSuspend
)

// Job is one record in the job table. Array jobs additionally carry the
// array-tracking structure; subjobs are materialized as ordinary records
// when they begin running.
type Job struct {
	Id       string
	State    State
	Substate Substate
	Flags    Flags
	// ExecVnode describes the nodes and resources allocated to a running
	// job, e.g. "(nodeA:ncpus=2:mem=4gb)+(nodeB:ncpus=1)".
	ExecVnode string
	Array     *ArrayTracking
}

func (job *Job) IsArray() bool {
	return job.Array != nil
}

func (job *Job) Suspended() bool {
	return job.Flags&FlagSuspend != 0
}

func (job *Job) AdminSuspended() bool {
	return job.Flags&FlagAdminSuspend != 0
}

// DeepCopy returns a copy safe to mutate and re-insert into a JobDb.
func (job *Job) DeepCopy() *Job {
	copied := *job
	if job.Array != nil {
		copied.Array = job.Array.DeepCopy()
	}
	return &copied
}

// ArrayTracking maps array indices onto subjob offsets and records the state
// of every subjob, materialized or not. Indices is ascending.
type ArrayTracking struct {
	Indices []int
	States  []State
}

// NewArrayTracking creates tracking for the given ascending indices, with
// every subjob initially Queued.
func NewArrayTracking(indices []int) *ArrayTracking {
	return &ArrayTracking{
		Indices: append([]int{}, indices...),
		States:  make([]State, len(indices)),
	}
}

// Count returns the number of subjobs in the array.
func (t *ArrayTracking) Count() int {
	return len(t.Indices)
}

// Offset returns the subjob offset for an array index, or false if the index
// is not part of the array.
func (t *ArrayTracking) Offset(index int) (int, bool) {
	lo, hi := 0, len(t.Indices)
	for lo < hi {
		mid := (lo + hi) / 2
		if t.Indices[mid] < index {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo < len(t.Indices) && t.Indices[lo] == index {
		return lo, true
	}
	return 0, false
}

// IndexAt returns the array index at the given offset.
func (t *ArrayTracking) IndexAt(offset int) int {
	return t.Indices[offset]
}

// StateAt returns the subjob state at the given offset.
func (t *ArrayTracking) StateAt(offset int) State {
	return t.States[offset]
}

// SetStateAt records a subjob state transition.
func (t *ArrayTracking) SetStateAt(offset int, state State) {
	t.States[offset] = state
}

func (t *ArrayTracking) DeepCopy() *ArrayTracking {
	return &ArrayTracking{
		Indices: append([]int{}, t.Indices...),
		States:  append([]State{}, t.States...),
	}
}
