package jobrunner

import "sync"

// QueueCallback observes add/remove activity on a JobQueue.
type QueueCallback interface {
	OnAdding(q *JobQueue, j *Job)
	OnAdded(q *JobQueue, j *Job)
	OnRemoved(q *JobQueue, j *Job)
}

// QueueCallbackFuncs is a QueueCallback adapter built from optional function
// fields.
type QueueCallbackFuncs struct {
	AddingFunc  func(q *JobQueue, j *Job)
	AddedFunc   func(q *JobQueue, j *Job)
	RemovedFunc func(q *JobQueue, j *Job)
}

func (f *QueueCallbackFuncs) OnAdding(q *JobQueue, j *Job) {
	if f.AddingFunc != nil {
		f.AddingFunc(q, j)
	}
}

func (f *QueueCallbackFuncs) OnAdded(q *JobQueue, j *Job) {
	if f.AddedFunc != nil {
		f.AddedFunc(q, j)
	}
}

func (f *QueueCallbackFuncs) OnRemoved(q *JobQueue, j *Job) {
	if f.RemovedFunc != nil {
		f.RemovedFunc(q, j)
	}
}

// JobQueue is a thread-safe FIFO of jobs with a blocking dequeue. Consumers
// parked on an empty queue via NextJob wake as soon as a job is added or the
// queue is force-released during shutdown.
type JobQueue struct {
	mu        sync.Mutex
	jobs      []*Job
	block     *ReleaseBlock
	callbacks []QueueCallback
}

// NewJobQueue creates an empty queue.
func NewJobQueue() *JobQueue {
	return &JobQueue{block: NewReleaseBlock(false)}
}

// AddCallback registers a queue-level observer.
func (q *JobQueue) AddCallback(cb QueueCallback) {
	q.mu.Lock()
	q.callbacks = append(q.callbacks, cb)
	q.mu.Unlock()
}

func (q *JobQueue) snapshotCallbacksLocked() []QueueCallback {
	if len(q.callbacks) == 0 {
		return nil
	}
	out := make([]QueueCallback, len(q.callbacks))
	copy(out, q.callbacks)
	return out
}

func (q *JobQueue) containsLocked(j *Job) bool {
	for _, existing := range q.jobs {
		if existing == j {
			return true
		}
	}
	return false
}

// Add appends job to the tail of the queue. If unique is true and job is
// already present by identity, Add is a no-op except for waking any blocked
// consumer (mirrors the source's behavior of releasing the block regardless,
// since some consumer may be waiting on unrelated queue activity).
func (q *JobQueue) Add(job *Job, unique bool) {
	if unique {
		q.mu.Lock()
		present := q.containsLocked(job)
		q.mu.Unlock()
		if present {
			q.block.Release()
			return
		}
	}

	q.mu.Lock()
	cbs := q.snapshotCallbacksLocked()
	q.mu.Unlock()

	for _, cb := range cbs {
		cb := cb
		invokeCallback(func() { cb.OnAdding(q, job) })
	}

	job.setState(JobReady, true)

	q.mu.Lock()
	q.jobs = append(q.jobs, job)
	q.mu.Unlock()

	for _, cb := range cbs {
		cb := cb
		invokeCallback(func() { cb.OnAdded(q, job) })
	}

	q.block.Release()
}

func (q *JobQueue) removeMatch(pred func(*Job) bool) *Job {
	q.mu.Lock()
	idx := -1
	for i, j := range q.jobs {
		if pred(j) {
			idx = i
			break
		}
	}
	var removed *Job
	if idx >= 0 {
		removed = q.jobs[idx]
		q.jobs = append(q.jobs[:idx], q.jobs[idx+1:]...)
	}
	cbs := q.snapshotCallbacksLocked()
	stillNonEmpty := len(q.jobs) > 0
	q.mu.Unlock()

	if removed != nil {
		for _, cb := range cbs {
			cb := cb
			invokeCallback(func() { cb.OnRemoved(q, removed) })
		}
	}
	q.block.Set(stillNonEmpty)
	return removed
}

// RemoveByName removes and returns the first job with the given name, or
// nil if none matches.
func (q *JobQueue) RemoveByName(name string) *Job {
	return q.removeMatch(func(j *Job) bool { return j.Name() == name })
}

// RemoveByID removes and returns the first job with the given id, or nil if
// none matches.
func (q *JobQueue) RemoveByID(id string) *Job {
	return q.removeMatch(func(j *Job) bool { return j.ID() == id })
}

// Remove removes job by pointer identity. Returns true if it was present.
func (q *JobQueue) Remove(job *Job) bool {
	removed := q.removeMatch(func(j *Job) bool { return j == job })
	return removed != nil
}

// RemoveStoppedJobs erases every job whose state includes FINISHED and
// returns them.
func (q *JobQueue) RemoveStoppedJobs() []*Job {
	q.mu.Lock()
	kept := q.jobs[:0:0]
	var removed []*Job
	for _, j := range q.jobs {
		if j.IsFinished() {
			removed = append(removed, j)
		} else {
			kept = append(kept, j)
		}
	}
	q.jobs = kept
	cbs := q.snapshotCallbacksLocked()
	stillNonEmpty := len(q.jobs) > 0
	q.mu.Unlock()

	for _, j := range removed {
		j := j
		for _, cb := range cbs {
			cb := cb
			invokeCallback(func() { cb.OnRemoved(q, j) })
		}
	}
	q.block.Set(stillNonEmpty)
	return removed
}

// Clear empties the queue, firing OnRemoved for every prior member.
func (q *JobQueue) Clear() []*Job {
	q.mu.Lock()
	removed := q.jobs
	q.jobs = nil
	cbs := q.snapshotCallbacksLocked()
	q.mu.Unlock()

	for _, j := range removed {
		j := j
		for _, cb := range cbs {
			cb := cb
			invokeCallback(func() { cb.OnRemoved(q, j) })
		}
	}
	q.block.Set(false)
	return removed
}

// NextJob returns the head of the queue. If the queue is empty and
// blockIfEmpty is true, the caller parks until a job is added or the queue
// is force-released. On wake, any canceled jobs at the head are discarded
// (transitioned to FINISHED so their own completion hook fires) before the
// first surviving job is popped and returned.
func (q *JobQueue) NextJob(blockIfEmpty bool) *Job {
	q.mu.Lock()
	empty := len(q.jobs) == 0
	q.mu.Unlock()

	if empty && blockIfEmpty {
		q.block.Block()
	}

	q.mu.Lock()
	var discarded []*Job
	for len(q.jobs) > 0 && q.jobs[0].IsCanceled() {
		discarded = append(discarded, q.jobs[0])
		q.jobs = q.jobs[1:]
	}
	var job *Job
	if len(q.jobs) > 0 {
		job = q.jobs[0]
		q.jobs = q.jobs[1:]
	}
	stillNonEmpty := len(q.jobs) > 0
	q.mu.Unlock()

	for _, d := range discarded {
		d.setState(JobFinished, true)
	}
	q.block.Set(stillNonEmpty)
	return job
}

// ReleaseBlock force-wakes any consumer parked on an empty queue. Used
// during shutdown and queue reassignment.
func (q *JobQueue) ReleaseBlock() {
	q.block.Release()
}

// Size returns the number of jobs currently queued.
func (q *JobQueue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs)
}

// IsEmpty reports whether the queue currently has no jobs.
func (q *JobQueue) IsEmpty() bool {
	return q.Size() == 0
}
