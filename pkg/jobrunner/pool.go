package jobrunner

import (
	"sync"

	"github.com/fluxorio/jobrunner/pkg/failfast"
	"github.com/fluxorio/jobrunner/pkg/logging"
)

// Pool is a fixed-but-resizable set of WorkerOnQueue instances bound to one
// shared JobQueue at any instant.
type Pool struct {
	mu              sync.Mutex
	queue           *JobQueue
	workers         []*WorkerOnQueue
	logger          logging.Logger
	failureObserver func(job *Job, err error)
}

// NewPool constructs a pool of nThreads workers bound to queue. If queue is
// nil, the pool allocates its own. nThreads may be zero: the pool is then
// valid but inert until SetNumberOfThreads raises it — jobs may still be
// submitted to the queue, they simply sit there until a worker exists.
func NewPool(queue *JobQueue, nThreads int, logger logging.Logger) *Pool {
	failfast.NonNegative(nThreads, "pool: nThreads")
	if queue == nil {
		queue = NewJobQueue()
	}
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}

	p := &Pool{queue: queue, logger: logger}
	for i := 0; i < nThreads; i++ {
		p.spawnWorkerLocked()
	}
	return p
}

func (p *Pool) spawnWorkerLocked() {
	w := NewWorkerOnQueue(p.queue, p.logger)
	if p.failureObserver != nil {
		w.SetFailureObserver(p.failureObserver)
	}
	w.Start()
	p.workers = append(p.workers, w)
}

// SetFailureObserver registers a hook invoked whenever any worker's job
// body returns an error, applied to every current and future worker.
func (p *Pool) SetFailureObserver(fn func(job *Job, err error)) {
	p.mu.Lock()
	p.failureObserver = fn
	workers := make([]*WorkerOnQueue, len(p.workers))
	copy(workers, p.workers)
	p.mu.Unlock()

	for _, w := range workers {
		w.SetFailureObserver(fn)
	}
}

// Queue returns the pool's currently bound queue.
func (p *Pool) Queue() *JobQueue {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.queue
}

// NumberOfThreads returns the current worker count.
func (p *Pool) NumberOfThreads() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.workers)
}

// SetNumberOfThreads resizes the pool. Growing spawns new workers on the
// shared queue; shrinking cancels and drops the tail workers without
// disturbing the ones that survive. Calling with the current size is a
// no-op.
func (p *Pool) SetNumberOfThreads(n int) {
	failfast.NonNegative(n, "pool: nThreads")

	p.mu.Lock()
	current := len(p.workers)
	if n == current {
		p.mu.Unlock()
		return
	}

	if n > current {
		for i := current; i < n; i++ {
			p.spawnWorkerLocked()
		}
		p.mu.Unlock()
		return
	}

	toCancel := p.workers[n:]
	p.workers = p.workers[:n]
	p.mu.Unlock()

	for _, w := range toCancel {
		w.Cancel()
	}
}

// SetJobQueue rebinds every worker to q.
func (p *Pool) SetJobQueue(q *JobQueue) {
	p.mu.Lock()
	p.queue = q
	workers := make([]*WorkerOnQueue, len(p.workers))
	copy(workers, p.workers)
	p.mu.Unlock()

	for _, w := range workers {
		w.SetJobQueue(q)
	}
}

// Cancel cancels every worker. Does not preemptively terminate user code
// inside a job body; each worker still finishes its current checkpoint
// interval cooperatively.
func (p *Pool) Cancel() {
	p.mu.Lock()
	workers := make([]*WorkerOnQueue, len(p.workers))
	copy(workers, p.workers)
	p.mu.Unlock()

	for _, w := range workers {
		w.Cancel()
	}
}

// WaitForCompletion blocks until every worker's goroutine has exited.
func (p *Pool) WaitForCompletion() {
	p.mu.Lock()
	workers := make([]*WorkerOnQueue, len(p.workers))
	copy(workers, p.workers)
	p.mu.Unlock()

	for _, w := range workers {
		w.WaitForCompletion()
	}
}

// HasJobsToProcess reports whether any worker still has work queued or in
// flight.
func (p *Pool) HasJobsToProcess() bool {
	p.mu.Lock()
	workers := make([]*WorkerOnQueue, len(p.workers))
	copy(workers, p.workers)
	p.mu.Unlock()

	for _, w := range workers {
		if w.HasJobsToProcess() {
			return true
		}
	}
	return false
}

// NumberOfBusyThreads returns how many workers currently have a job in
// flight.
func (p *Pool) NumberOfBusyThreads() int {
	p.mu.Lock()
	workers := make([]*WorkerOnQueue, len(p.workers))
	copy(workers, p.workers)
	p.mu.Unlock()

	busy := 0
	for _, w := range workers {
		if w.IsProcessingJob() {
			busy++
		}
	}
	return busy
}

// AreAllThreadsBusy reports whether every worker currently has a job in
// flight. A pool with zero workers is vacuously not "all busy".
func (p *Pool) AreAllThreadsBusy() bool {
	p.mu.Lock()
	n := len(p.workers)
	p.mu.Unlock()
	if n == 0 {
		return false
	}
	return p.NumberOfBusyThreads() == n
}

// Close cancels every worker, waits for completion, then clears the worker
// list, in that order.
func (p *Pool) Close() {
	p.Cancel()
	p.WaitForCompletion()

	p.mu.Lock()
	p.workers = nil
	p.mu.Unlock()
}
