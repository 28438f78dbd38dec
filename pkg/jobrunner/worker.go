package jobrunner

import (
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/fluxorio/jobrunner/pkg/logging"
)

// RunBody is the polymorphic body a Worker executes on its goroutine. It
// should poll w.Checkpoint() at safe points and return promptly once
// Checkpoint reports true.
type RunBody func(w *Worker) error

// Worker is an interruptible, pausable long-lived goroutine carrying a
// user-supplied body. Cancellation is cooperative: only Checkpoint calls
// placed by the body observe it, matching Go's lack of a throw-based unwind
// across arbitrary call depth.
type Worker struct {
	mu           sync.Mutex
	running      int32 // atomic
	interrupt    int32 // atomic
	pauseBarrier *Barrier
	completion   chan struct{}
	body         RunBody
	logger       logging.Logger
}

// NewWorker wraps body as a startable worker. A nil logger falls back to
// logging.NewDefaultLogger().
func NewWorker(body RunBody, logger logging.Logger) *Worker {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &Worker{
		pauseBarrier: NewBarrier(1), // capacity 1: checkpoints pass straight through
		body:         body,
		logger:       logger,
	}
}

// Start spawns the body on a new goroutine. No-op if already running. If a
// prior run's completion has not been drained yet, it is drained first.
func (w *Worker) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if atomic.LoadInt32(&w.running) == 1 {
		return
	}
	if w.completion != nil {
		<-w.completion
	}

	atomic.StoreInt32(&w.running, 1)
	atomic.StoreInt32(&w.interrupt, 0)
	completion := make(chan struct{})
	w.completion = completion

	go w.runInternal(completion)
}

func (w *Worker) runInternal(completion chan struct{}) {
	defer func() {
		atomic.StoreInt32(&w.running, 0)
		close(completion)
	}()

	if err := w.body(w); err != nil {
		w.logger.Errorf("jobrunner: worker body exited with error: %v", err)
	}
}

// Checkpoint is the cancellation/pause poll point the body calls at safe
// points. It returns true if the caller should stop and return from its
// body immediately. Otherwise it parks on the pause barrier when paused
// (capacity 2), or passes straight through when running normally (capacity
// 1).
func (w *Worker) Checkpoint() bool {
	if atomic.LoadInt32(&w.interrupt) == 1 {
		return true
	}
	w.pauseBarrier.Block()
	return atomic.LoadInt32(&w.interrupt) == 1
}

// Pause arranges for the next Checkpoint call to park until Resume.
func (w *Worker) Pause() {
	w.pauseBarrier.ResetMax(2)
}

// Resume releases any parked Checkpoint call and restores pass-through
// behavior for subsequent checkpoints.
func (w *Worker) Resume() {
	w.pauseBarrier.ResetMax(1)
}

// Cancel sets the interrupt flag and resumes the worker so a paused
// checkpoint observes it promptly.
func (w *Worker) Cancel() {
	atomic.StoreInt32(&w.interrupt, 1)
	w.Resume()
}

// IsRunning reports whether the body's goroutine is currently executing.
func (w *Worker) IsRunning() bool {
	return atomic.LoadInt32(&w.running) == 1
}

// WaitForCompletion blocks until the body's goroutine has returned.
func (w *Worker) WaitForCompletion() {
	w.mu.Lock()
	completion := w.completion
	w.mu.Unlock()
	if completion == nil {
		return
	}
	<-completion
}

// Close waits for completion. Safe to call more than once.
func (w *Worker) Close() {
	w.WaitForCompletion()
}

// WorkerOnQueue is a concrete Worker whose body repeatedly pulls the next
// job off a shared JobQueue and runs it.
type WorkerOnQueue struct {
	*Worker

	mu             sync.Mutex
	queue          *JobQueue
	currentJob     *Job
	done           int32 // atomic
	firstIteration bool
	onJobFailure   func(job *Job, err error)
}

// SetFailureObserver registers a hook invoked whenever a job body returns a
// non-nil error. The core Job type deliberately never surfaces this as a
// callback (a failed body simply never fires FINISHED); this hook is how a
// pool-level observer such as a metrics collector learns about it anyway.
func (wq *WorkerOnQueue) SetFailureObserver(fn func(job *Job, err error)) {
	wq.mu.Lock()
	wq.onJobFailure = fn
	wq.mu.Unlock()
}

// NewWorkerOnQueue creates a worker bound to queue (which may be nil; the
// worker then idles until SetJobQueue assigns one).
func NewWorkerOnQueue(queue *JobQueue, logger logging.Logger) *WorkerOnQueue {
	wq := &WorkerOnQueue{queue: queue, firstIteration: true}
	wq.Worker = NewWorker(wq.run, logger)
	return wq
}

func (wq *WorkerOnQueue) run(w *Worker) error {
	var leftover *Job
	for {
		if w.Checkpoint() {
			break
		}

		wq.mu.Lock()
		q := wq.queue
		done := atomic.LoadInt32(&wq.done) == 1
		wq.mu.Unlock()

		valid := q != nil && !done
		var job *Job
		if valid {
			job = q.NextJob(true)
		}

		if job != nil && atomic.LoadInt32(&wq.done) == 0 {
			wq.mu.Lock()
			wq.currentJob = job
			wq.mu.Unlock()

			if job.IsReady() {
				if err := job.Start(); err != nil {
					wq.Worker.logger.Errorf("jobrunner: job %q failed: %v", job.Name(), err)
					wq.mu.Lock()
					onFailure := wq.onJobFailure
					wq.mu.Unlock()
					if onFailure != nil {
						onFailure(job, err)
					}
				}
			}

			wq.mu.Lock()
			wq.currentJob = nil
			wq.mu.Unlock()
		} else if job != nil {
			leftover = job
		}

		if wq.firstIteration {
			runtime.Gosched()
			wq.firstIteration = false
		}

		if atomic.LoadInt32(&wq.done) == 1 || !valid {
			break
		}
	}

	// If shutdown raced in while we held a still-ready job, cancel it so its
	// completion hook doesn't hang forever waiting for a worker that will
	// never resume it.
	if leftover != nil && leftover.IsReady() {
		leftover.Cancel()
	}

	return nil
}

// CurrentJob returns the job currently being processed, or nil.
func (wq *WorkerOnQueue) CurrentJob() *Job {
	wq.mu.Lock()
	defer wq.mu.Unlock()
	return wq.currentJob
}

// IsProcessingJob reports whether a job is currently in flight.
func (wq *WorkerOnQueue) IsProcessingJob() bool {
	return wq.CurrentJob() != nil
}

// HasJobsToProcess reports whether the bound queue has anything queued or a
// job is currently in flight.
func (wq *WorkerOnQueue) HasJobsToProcess() bool {
	wq.mu.Lock()
	q := wq.queue
	inFlight := wq.currentJob != nil
	wq.mu.Unlock()
	if inFlight {
		return true
	}
	return q != nil && !q.IsEmpty()
}

// SetJobQueue atomically rebinds the worker to a new queue: it pauses the
// worker, releases the old queue's block until the worker is observed
// parked at the checkpoint, swaps the queue handle, resumes, and — if a
// non-nil queue was assigned and the worker is not already running —
// starts it.
func (wq *WorkerOnQueue) SetJobQueue(q *JobQueue) {
	wq.Pause()

	wq.mu.Lock()
	old := wq.queue
	wq.mu.Unlock()

	if old != nil {
		for wq.pauseBarrier.WaitCount() == 0 && wq.IsRunning() {
			old.ReleaseBlock()
			runtime.Gosched()
		}
	}

	wq.mu.Lock()
	wq.queue = q
	wq.mu.Unlock()

	wq.Resume()

	if q != nil && !wq.IsRunning() {
		wq.Start()
	}
}

// Cancel stops the worker: marks it done, cancels any in-flight job,
// releases the queue's block, then spins yielding (re-releasing the queue
// block on each pass, since the worker may reach NextJob between checks)
// until the worker's goroutine has actually exited.
func (wq *WorkerOnQueue) Cancel() {
	atomic.StoreInt32(&wq.done, 1)

	wq.mu.Lock()
	job := wq.currentJob
	q := wq.queue
	wq.mu.Unlock()

	if job != nil {
		job.Cancel()
	}
	if q != nil {
		q.ReleaseBlock()
	}

	wq.Worker.Cancel()

	for wq.IsRunning() {
		if q != nil {
			q.ReleaseBlock()
		}
		runtime.Gosched()
	}
}
