package jobrunner

import (
	"sync"

	"github.com/google/uuid"

	"github.com/fluxorio/jobrunner/pkg/failfast"
)

// JobState is a bitset over a job's lifecycle. READY, RUNNING and FINISHED
// are mutually exclusive at rest; CANCEL is orthogonal and may combine with
// either RUNNING or FINISHED.
type JobState uint32

const (
	JobReady JobState = 1 << iota
	JobRunning
	JobCancel
	JobFinished

	jobStateAll = JobReady | JobRunning | JobCancel | JobFinished

	// jobPhaseBits are the mutually exclusive lifecycle phases.
	jobPhaseBits = JobReady | JobRunning | JobFinished
)

// jobTransitionOrder is the fixed precedence in which rising-edge
// notifications fire for a single setState call.
var jobTransitionOrder = [...]JobState{JobReady, JobRunning, JobCancel, JobFinished}

// JobCallback observes a Job's lifecycle. Implementations must not block
// indefinitely and must tolerate being invoked from any worker goroutine.
// Every hook is optional in spirit; embed JobCallbackFuncs to implement only
// the hooks you need.
type JobCallback interface {
	OnReady(j *Job)
	OnStarted(j *Job)
	OnCanceled(j *Job)
	OnFinished(j *Job)
	OnPercentComplete(j *Job, percent float64)
	OnNameChanged(j *Job, name string)
	OnIDChanged(j *Job, id string)
	OnDescriptionChanged(j *Job, description string)
}

// JobCallbackFuncs is a JobCallback adapter built from individual optional
// function fields, so callers need not implement every hook.
type JobCallbackFuncs struct {
	ReadyFunc              func(j *Job)
	StartedFunc            func(j *Job)
	CanceledFunc           func(j *Job)
	FinishedFunc           func(j *Job)
	PercentCompleteFunc    func(j *Job, percent float64)
	NameChangedFunc        func(j *Job, name string)
	IDChangedFunc          func(j *Job, id string)
	DescriptionChangedFunc func(j *Job, description string)
}

func (f *JobCallbackFuncs) OnReady(j *Job) {
	if f.ReadyFunc != nil {
		f.ReadyFunc(j)
	}
}

func (f *JobCallbackFuncs) OnStarted(j *Job) {
	if f.StartedFunc != nil {
		f.StartedFunc(j)
	}
}

func (f *JobCallbackFuncs) OnCanceled(j *Job) {
	if f.CanceledFunc != nil {
		f.CanceledFunc(j)
	}
}

func (f *JobCallbackFuncs) OnFinished(j *Job) {
	if f.FinishedFunc != nil {
		f.FinishedFunc(j)
	}
}

func (f *JobCallbackFuncs) OnPercentComplete(j *Job, percent float64) {
	if f.PercentCompleteFunc != nil {
		f.PercentCompleteFunc(j, percent)
	}
}

func (f *JobCallbackFuncs) OnNameChanged(j *Job, name string) {
	if f.NameChangedFunc != nil {
		f.NameChangedFunc(j, name)
	}
}

func (f *JobCallbackFuncs) OnIDChanged(j *Job, id string) {
	if f.IDChangedFunc != nil {
		f.IDChangedFunc(j, id)
	}
}

func (f *JobCallbackFuncs) OnDescriptionChanged(j *Job, description string) {
	if f.DescriptionChangedFunc != nil {
		f.DescriptionChangedFunc(j, description)
	}
}

// RunFunc is the user-supplied job body. A non-nil error is treated as a
// user body failure: the worker logs it and no FINISHED transition fires.
type RunFunc func(j *Job) error

// Job owns a user work body plus lifecycle metadata. A zero-value Job is not
// usable; construct with NewJob.
type Job struct {
	mu          sync.Mutex
	name        string
	id          string
	description string
	priority    int
	state       JobState
	percent     float64
	callbacks   []JobCallback
	run         RunFunc
}

// NewJob wraps run as a job in the READY state. If id is empty a UUID is
// generated.
func NewJob(id, name string, run RunFunc) *Job {
	failfast.NotNil(run, "job run body")
	if id == "" {
		id = uuid.NewString()
	}
	return &Job{
		id:    id,
		name:  name,
		state: JobReady,
		run:   run,
	}
}

// AddCallback registers an observer. Order of registration is the order in
// which observers are invoked.
func (j *Job) AddCallback(cb JobCallback) {
	failfast.NotNil(cb, "job callback")
	j.mu.Lock()
	j.callbacks = append(j.callbacks, cb)
	j.mu.Unlock()
}

func (j *Job) snapshotCallbacksLocked() []JobCallback {
	if len(j.callbacks) == 0 {
		return nil
	}
	out := make([]JobCallback, len(j.callbacks))
	copy(out, j.callbacks)
	return out
}

// Name returns the job's current display name.
func (j *Job) Name() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.name
}

// SetName updates the display name, firing OnNameChanged only if it differs
// from the current value.
func (j *Job) SetName(name string) {
	j.mu.Lock()
	changed := j.name != name
	if changed {
		j.name = name
	}
	cbs := j.snapshotCallbacksLocked()
	j.mu.Unlock()

	if changed {
		for _, cb := range cbs {
			invokeCallback(func() { cb.OnNameChanged(j, name) })
		}
	}
}

// ID returns the job's identity.
func (j *Job) ID() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.id
}

// SetID updates the identity, firing OnIDChanged only if it differs.
func (j *Job) SetID(id string) {
	j.mu.Lock()
	changed := j.id != id
	if changed {
		j.id = id
	}
	cbs := j.snapshotCallbacksLocked()
	j.mu.Unlock()

	if changed {
		for _, cb := range cbs {
			invokeCallback(func() { cb.OnIDChanged(j, id) })
		}
	}
}

// Description returns the job's free-form description.
func (j *Job) Description() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.description
}

// SetDescription updates the description, firing OnDescriptionChanged only
// if it differs.
func (j *Job) SetDescription(description string) {
	j.mu.Lock()
	changed := j.description != description
	if changed {
		j.description = description
	}
	cbs := j.snapshotCallbacksLocked()
	j.mu.Unlock()

	if changed {
		for _, cb := range cbs {
			invokeCallback(func() { cb.OnDescriptionChanged(j, description) })
		}
	}
}

// Priority returns the advisory scheduling priority. Not enforced by the
// queue or pool.
func (j *Job) Priority() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.priority
}

// SetPriority sets the advisory scheduling priority.
func (j *Job) SetPriority(priority int) {
	j.mu.Lock()
	j.priority = priority
	j.mu.Unlock()
}

// PercentComplete returns the last reported progress value.
func (j *Job) PercentComplete() float64 {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.percent
}

// SetPercentComplete reports progress. Unlike state transitions this fires
// on every call, since it is a progress event rather than a state change.
// The callback snapshot is captured under the lock and dispatched after
// releasing it, per the invariant that user code never runs under an
// internal mutex.
func (j *Job) SetPercentComplete(percent float64) {
	j.mu.Lock()
	j.percent = percent
	cbs := j.snapshotCallbacksLocked()
	j.mu.Unlock()

	for _, cb := range cbs {
		invokeCallback(func() { cb.OnPercentComplete(j, percent) })
	}
}

// State returns the current lifecycle bitset.
func (j *Job) State() JobState {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.state
}

// IsReady reports whether the READY bit is set.
func (j *Job) IsReady() bool { return j.State()&JobReady != 0 }

// IsRunning reports whether the RUNNING bit is set.
func (j *Job) IsRunning() bool { return j.State()&JobRunning != 0 }

// IsCanceled reports whether the CANCEL bit is set.
func (j *Job) IsCanceled() bool { return j.State()&JobCancel != 0 }

// IsFinished reports whether the FINISHED bit is set.
func (j *Job) IsFinished() bool { return j.State()&JobFinished != 0 }

// Cancel asserts the CANCEL bit. Sticky until the next ResetState. The job
// body must poll IsCanceled itself; this call never preempts a running body.
func (j *Job) Cancel() {
	j.setState(JobCancel, true)
}

// setState computes the new state from value/on (setting a phase bit clears
// the other phase bits; CANCEL is left as it was), and if it actually
// changed, fires one rising-edge notification per newly-set bit, in fixed
// precedence, strictly outside the job's lock.
func (j *Job) setState(value JobState, on bool) {
	j.mu.Lock()
	old := j.state
	var newState JobState
	if on {
		base := old
		if value&jobPhaseBits != 0 {
			base &^= jobPhaseBits
		}
		newState = (base | value) & jobStateAll
	} else {
		newState = (old &^ value) & jobStateAll
	}
	if newState == old {
		j.mu.Unlock()
		return
	}
	j.state = newState
	cbs := j.snapshotCallbacksLocked()
	j.mu.Unlock()

	j.dispatchTransitions(cbs, old, newState)
}

func (j *Job) dispatchTransitions(cbs []JobCallback, old, newState JobState) {
	for _, bit := range jobTransitionOrder {
		if newState&bit != 0 && old&bit == 0 {
			j.fireRisingEdge(cbs, bit)
		}
	}
}

func (j *Job) fireRisingEdge(cbs []JobCallback, bit JobState) {
	for _, cb := range cbs {
		cb := cb
		switch bit {
		case JobReady:
			invokeCallback(func() { cb.OnReady(j) })
		case JobRunning:
			invokeCallback(func() { cb.OnStarted(j) })
		case JobCancel:
			invokeCallback(func() { cb.OnCanceled(j) })
		case JobFinished:
			invokeCallback(func() { cb.OnFinished(j) })
		}
	}
}

// ResetState clears the state to NONE and re-derives value's rising-edge
// notifications from scratch, even when value already equals the prior
// state: a caller that wants "re-enter READY" is trusted to mean it, and a
// silently-suppressed re-notification is a worse surprise to an observer
// than a duplicate one.
func (j *Job) ResetState(value JobState) {
	j.mu.Lock()
	j.state = 0
	j.mu.Unlock()
	j.setState(value, true)
}

// Start runs the job body: transitions to RUNNING, invokes run(), and on
// success transitions to FINISHED regardless of any CANCEL bit observed
// during execution (CANCEL is orthogonal, not a suppressor). A non-nil
// error from run() is a user body failure: it is returned to the caller and
// no FINISHED transition fires, so observers can detect the failure by the
// absence of a finished event.
func (j *Job) Start() error {
	j.setState(JobRunning, true)
	err := j.run(j)
	if err != nil {
		return err
	}
	j.setState(JobFinished, true)
	return nil
}

// invokeCallback runs fn with its own recovered call frame so one panicking
// or misbehaving observer cannot prevent the others in the fan-out from
// running.
func invokeCallback(fn func()) {
	defer func() { recover() }() //nolint:errcheck
	fn()
}
