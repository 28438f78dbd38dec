// Package metrics wires the job substrate's lifecycle events into
// Prometheus counters and gauges.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/fluxorio/jobrunner/pkg/jobrunner"
)

var (
	// DefaultRegistry is the registry used when no registerer is injected.
	DefaultRegistry = prometheus.NewRegistry()

	// DefaultRegisterer wraps DefaultRegistry with a service label so
	// multiple jobrunner deployments can share one Prometheus instance.
	DefaultRegisterer = prometheus.WrapRegistererWith(prometheus.Labels{"service": "jobrunner"}, DefaultRegistry)
)

// Metrics is a queue/pool observer that reports job lifecycle counters and
// pool gauges. Each Metrics instance is built against its own registerer so
// tests and multiple in-process pools never collide on the default
// registry.
type Metrics struct {
	JobsSubmitted prometheus.Counter
	JobsStarted   prometheus.Counter
	JobsFinished  prometheus.Counter
	JobsCanceled  prometheus.Counter
	JobsFailed    prometheus.Counter

	QueueDepth   prometheus.Gauge
	BusyWorkers  prometheus.Gauge
	WorkerCount  prometheus.Gauge

	mu sync.Mutex
}

// NewMetrics constructs a Metrics collector registered against registerer.
// A nil registerer falls back to DefaultRegisterer.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = DefaultRegisterer
	}
	f := promauto.With(registerer)

	return &Metrics{
		JobsSubmitted: f.NewCounter(prometheus.CounterOpts{
			Name: "jobrunner_jobs_submitted_total",
			Help: "Total number of jobs added to a job queue.",
		}),
		JobsStarted: f.NewCounter(prometheus.CounterOpts{
			Name: "jobrunner_jobs_started_total",
			Help: "Total number of jobs that transitioned to RUNNING.",
		}),
		JobsFinished: f.NewCounter(prometheus.CounterOpts{
			Name: "jobrunner_jobs_finished_total",
			Help: "Total number of jobs that transitioned to FINISHED.",
		}),
		JobsCanceled: f.NewCounter(prometheus.CounterOpts{
			Name: "jobrunner_jobs_canceled_total",
			Help: "Total number of jobs that had CANCEL asserted.",
		}),
		JobsFailed: f.NewCounter(prometheus.CounterOpts{
			Name: "jobrunner_jobs_failed_total",
			Help: "Total number of job bodies that returned a non-nil error.",
		}),
		QueueDepth: f.NewGauge(prometheus.GaugeOpts{
			Name: "jobrunner_queue_depth",
			Help: "Current number of jobs waiting in the queue.",
		}),
		BusyWorkers: f.NewGauge(prometheus.GaugeOpts{
			Name: "jobrunner_busy_workers",
			Help: "Current number of workers with a job in flight.",
		}),
		WorkerCount: f.NewGauge(prometheus.GaugeOpts{
			Name: "jobrunner_worker_count",
			Help: "Current number of workers bound to the pool.",
		}),
	}
}

// OnAdding implements jobrunner.QueueCallback.
func (m *Metrics) OnAdding(q *jobrunner.JobQueue, j *jobrunner.Job) {}

// OnAdded implements jobrunner.QueueCallback.
func (m *Metrics) OnAdded(q *jobrunner.JobQueue, j *jobrunner.Job) {
	m.JobsSubmitted.Inc()
	m.QueueDepth.Set(float64(q.Size()))
}

// OnRemoved implements jobrunner.QueueCallback.
func (m *Metrics) OnRemoved(q *jobrunner.JobQueue, j *jobrunner.Job) {
	m.QueueDepth.Set(float64(q.Size()))
}

// JobCallback returns a jobrunner.JobCallback that feeds per-job lifecycle
// transitions into the started/finished/canceled/failed counters. Register
// it on every job submitted through the pool (e.g. from a queue-level
// OnAdding hook) to track it automatically.
func (m *Metrics) JobCallback() jobrunner.JobCallback {
	return &jobrunner.JobCallbackFuncs{
		StartedFunc:  func(j *jobrunner.Job) { m.JobsStarted.Inc() },
		FinishedFunc: func(j *jobrunner.Job) { m.JobsFinished.Inc() },
		CanceledFunc: func(j *jobrunner.Job) { m.JobsCanceled.Inc() },
	}
}

// ObserveFailure increments the failed-jobs counter. Call this from the
// point that observes a job body's error (the pool's worker loop), since
// the core Job type never surfaces failures as a callback itself.
func (m *Metrics) ObserveFailure() {
	m.JobsFailed.Inc()
}

// ObservePool snapshots a pool's worker/busy counts into the gauges. Call
// periodically (e.g. from the admin server's maintenance loop) since the pool
// does not push these proactively.
func (m *Metrics) ObservePool(p *jobrunner.Pool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.WorkerCount.Set(float64(p.NumberOfThreads()))
	m.BusyWorkers.Set(float64(p.NumberOfBusyThreads()))
}
