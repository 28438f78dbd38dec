package concurrency

import (
	"context"
	"time"
)

// ExecutorStats provides statistics about executor performance. The admin
// server's /stats handler reports these alongside the pool's own queue
// depth so an operator can tell a stalled maintenance loop from a stalled
// job queue.
type ExecutorStats struct {
	QueuedTasks      int64   // Current number of queued tasks
	ActiveWorkers    int     // Number of active worker goroutines
	CompletedTasks   int64   // Total completed tasks
	RejectedTasks    int64   // Total rejected tasks (backpressure)
	QueueCapacity    int     // Maximum queue capacity
	QueueUtilization float64 // Queue utilization percentage
}

// Executor abstracts goroutine pool management and task execution.
// Hides channel operations and goroutine creation from application code.
// The admin server uses it for periodic housekeeping (pruning stopped jobs,
// refreshing pool gauges) kept off the request path and off the job
// substrate's own Pool: Pool runs long-lived, cancelable, observable jobs,
// Executor runs short, fire-and-forget maintenance tasks.
type Executor interface {
	// Submit queues a task for execution
	// Returns error if queue is full (backpressure) or executor is closed
	Submit(task Task) error

	// SubmitWithTimeout queues a task with a timeout
	// Returns error if task cannot be queued within timeout
	SubmitWithTimeout(task Task, timeout time.Duration) error

	// Shutdown gracefully shuts down the executor
	// Waits for queued tasks to complete (up to ctx timeout)
	// Returns error if shutdown times out
	Shutdown(ctx context.Context) error

	// Stats returns current executor statistics
	Stats() ExecutorStats
}
