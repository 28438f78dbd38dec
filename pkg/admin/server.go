// Package admin implements the optional HTTP/WebSocket surface used to
// inspect and drive a jobrunner.Pool from outside the process: pool
// statistics, Prometheus scraping, demo job submission, and a live event
// stream. None of it participates in job execution correctness.
package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/valyala/fasthttp"

	"github.com/fluxorio/jobrunner/pkg/concurrency"
	"github.com/fluxorio/jobrunner/pkg/events"
	"github.com/fluxorio/jobrunner/pkg/jobrunner"
	"github.com/fluxorio/jobrunner/pkg/logging"
	"github.com/fluxorio/jobrunner/pkg/metrics"
	"github.com/fluxorio/jobrunner/pkg/worker"
)

// Server hosts the admin HTTP surface described in the module's design: a
// fasthttp server for /stats, /metrics and /jobs, plus (when enabled) a
// second, small net/http server carrying the /events WebSocket upgrade.
// fasthttp has no first-class hijack path compatible with gorilla/websocket,
// so the two protocols are kept on separate listeners rather than forcing an
// awkward bridge between them.
type Server struct {
	pool        *jobrunner.Pool
	metrics     *metrics.Metrics
	gatherer    prometheus.Gatherer
	broadcaster *events.Broadcaster
	logger      logging.Logger
	cfg         jobrunner.PoolConfig

	// dispatch bounds concurrent admin requests that need background work
	// (demo job construction and enqueue) with real backpressure, kept
	// deliberately separate from the job substrate's own Pool.
	dispatch *worker.Pool
	// maintenance runs periodic housekeeping (pruning stopped jobs,
	// refreshing pool gauges) off the request path.
	maintenance concurrency.Executor

	routes []route

	fastServer *fasthttp.Server
	wsServer   *http.Server
	upgrader   websocket.Upgrader

	stopMaintenance chan struct{}
}

type route struct {
	method  string
	path    string
	handler fasthttp.RequestHandler
}

// NewServer wires an admin Server around an already-constructed pool. m,
// gatherer and broadcaster may be nil to disable the corresponding features.
func NewServer(cfg jobrunner.PoolConfig, pool *jobrunner.Pool, m *metrics.Metrics, gatherer prometheus.Gatherer, broadcaster *events.Broadcaster, logger logging.Logger) *Server {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	s := &Server{
		pool:            pool,
		metrics:         m,
		gatherer:        gatherer,
		broadcaster:     broadcaster,
		logger:          logger,
		cfg:             cfg,
		dispatch:        worker.NewPool(8, 64),
		maintenance:     concurrency.NewExecutor(context.Background(), concurrency.ExecutorConfig{Workers: 1, QueueSize: 16}, logger),
		stopMaintenance: make(chan struct{}),
	}

	s.routes = []route{
		{method: "GET", path: "/stats", handler: s.handleStats},
		{method: "GET", path: "/metrics", handler: s.handleMetrics},
		{method: "POST", path: "/jobs", handler: s.handleSubmitJob},
	}

	s.fastServer = &fasthttp.Server{
		Handler:               s.serveFastHTTP,
		NoDefaultServerHeader: true,
		ReduceMemoryUsage:     true,
	}

	if broadcaster != nil && cfg.Admin.EnableWebsocket {
		mux := http.NewServeMux()
		mux.HandleFunc("/events", s.handleEvents)
		s.wsServer = &http.Server{Addr: wsAddr(cfg.Admin.ListenAddr), Handler: mux}
	}

	return s
}

// Start begins serving. It returns immediately; server goroutines log fatal
// listen errors rather than propagating them, matching a long-running daemon
// rather than a short-lived request/response call.
func (s *Server) Start() {
	go func() {
		if err := s.fastServer.ListenAndServe(s.cfg.Admin.ListenAddr); err != nil {
			s.logger.Errorf("admin: fasthttp server stopped: %v", err)
		}
	}()

	if s.wsServer != nil {
		go func() {
			if err := s.wsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				s.logger.Errorf("admin: websocket server stopped: %v", err)
			}
		}()
	}

	go s.runMaintenance(10 * time.Second)
}

// Stop ends the maintenance ticker, shuts down both listeners, then stops the
// dispatch pool and the maintenance executor, in that order.
func (s *Server) Stop(ctx context.Context) error {
	close(s.stopMaintenance)

	if err := s.fastServer.ShutdownWithContext(ctx); err != nil {
		return fmt.Errorf("admin: fasthttp shutdown: %w", err)
	}
	if s.wsServer != nil {
		if err := s.wsServer.Shutdown(ctx); err != nil {
			return fmt.Errorf("admin: websocket shutdown: %w", err)
		}
	}
	s.dispatch.Stop()
	return s.maintenance.Shutdown(ctx)
}

func (s *Server) serveFastHTTP(ctx *fasthttp.RequestCtx) {
	method := string(ctx.Method())
	path := string(ctx.Path())

	for _, r := range s.routes {
		if r.method == method && r.path == path {
			r.handler(ctx)
			return
		}
	}
	ctx.Error("not found", fasthttp.StatusNotFound)
}

type statsResponse struct {
	Threads            int     `json:"threads"`
	BusyThreads        int     `json:"busy_threads"`
	QueueDepth         int     `json:"queue_depth"`
	HasWork            bool    `json:"has_jobs_to_process"`
	MaintenanceQueued  int64   `json:"maintenance_queued"`
	MaintenanceRunning int     `json:"maintenance_active_workers"`
	MaintenanceDropped int64   `json:"maintenance_rejected"`
	MaintenanceUtil    float64 `json:"maintenance_queue_utilization"`
}

func (s *Server) handleStats(ctx *fasthttp.RequestCtx) {
	mstats := s.maintenance.Stats()
	stats := statsResponse{
		Threads:            s.pool.NumberOfThreads(),
		BusyThreads:        s.pool.NumberOfBusyThreads(),
		QueueDepth:         s.pool.Queue().Size(),
		HasWork:            s.pool.HasJobsToProcess(),
		MaintenanceQueued:  mstats.QueuedTasks,
		MaintenanceRunning: mstats.ActiveWorkers,
		MaintenanceDropped: mstats.RejectedTasks,
		MaintenanceUtil:    mstats.QueueUtilization,
	}
	writeJSON(ctx, fasthttp.StatusOK, stats)
}

func (s *Server) handleMetrics(ctx *fasthttp.RequestCtx) {
	if s.gatherer == nil {
		ctx.Error("metrics not configured", fasthttp.StatusNotFound)
		return
	}

	families, err := s.gatherer.Gather()
	if err != nil {
		s.logger.Errorf("admin: gather metrics: %v", err)
		ctx.Error("failed to gather metrics", fasthttp.StatusInternalServerError)
		return
	}

	format := expfmt.NewFormat(expfmt.TypeTextPlain)
	ctx.SetContentType(string(format))
	enc := expfmt.NewEncoder(ctx, format)
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			s.logger.Errorf("admin: encode metric family: %v", err)
			return
		}
	}
}

type submitJobRequest struct {
	Name       string `json:"name"`
	DurationMS int    `json:"duration_ms"`
}

type submitJobResponse struct {
	JobID string `json:"job_id"`
}

// handleSubmitJob enqueues a demo job that reports percent-complete while
// sleeping for the requested duration, exercising the pool end to end. The
// enqueue itself is dispatched through the bounded admin worker pool so a
// burst of submissions gets real backpressure instead of piling up behind
// the HTTP handler.
func (s *Server) handleSubmitJob(ctx *fasthttp.RequestCtx) {
	var req submitJobRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		ctx.Error("invalid request body", fasthttp.StatusBadRequest)
		return
	}
	if req.Name == "" {
		req.Name = "demo-job"
	}
	if req.DurationMS <= 0 {
		req.DurationMS = 500
	}

	broadcaster := s.broadcaster
	m := s.metrics
	pool := s.pool

	result, err := s.dispatch.Submit(ctx, func(context.Context) (any, error) {
		job := jobrunner.NewJob("", req.Name, demoJobBody(req.DurationMS))
		if broadcaster != nil {
			job.AddCallback(broadcaster.JobCallback())
		}
		if m != nil {
			job.AddCallback(m.JobCallback())
		}
		pool.Queue().Add(job, false)
		return job.ID(), nil
	})
	if err == worker.ErrBackpressure {
		ctx.Error("admin dispatch queue is full", fasthttp.StatusTooManyRequests)
		return
	}
	if err != nil {
		s.logger.Errorf("admin: submit job: %v", err)
		ctx.Error("failed to submit job", fasthttp.StatusInternalServerError)
		return
	}

	writeJSON(ctx, fasthttp.StatusAccepted, submitJobResponse{JobID: result.(string)})
}

// demoJobBody sleeps in 50ms increments, reporting progress and checking for
// cancellation between increments, standing in for arbitrary user work.
func demoJobBody(durationMS int) jobrunner.RunFunc {
	const tick = 50 * time.Millisecond
	ticks := durationMS / int(tick/time.Millisecond)
	if ticks < 1 {
		ticks = 1
	}
	return func(j *jobrunner.Job) error {
		for i := 0; i < ticks; i++ {
			if j.IsCanceled() {
				return nil
			}
			time.Sleep(tick)
			j.SetPercentComplete(float64(i+1) / float64(ticks) * 100)
		}
		return nil
	}
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warnf("admin: websocket upgrade failed: %v", err)
		return
	}
	s.broadcaster.Register(conn)
}

// runMaintenance periodically prunes FINISHED jobs left in the
// queue by callers that never removed them and refreshes the pool gauges,
// dispatched through the executor abstraction rather than a bare goroutine.
func (s *Server) runMaintenance(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopMaintenance:
			return
		case <-ticker.C:
			task := concurrency.NewNamedTask("prune-and-observe", func(context.Context) error {
				s.pool.Queue().RemoveStoppedJobs()
				if s.metrics != nil {
					s.metrics.ObservePool(s.pool)
				}
				return nil
			})
			if err := s.maintenance.Submit(task); err != nil {
				s.logger.Warnf("admin: maintenance task dropped: %v", err)
			}
		}
	}
}

func writeJSON(ctx *fasthttp.RequestCtx, status int, v interface{}) {
	payload, err := json.Marshal(v)
	if err != nil {
		ctx.Error("failed to encode response", fasthttp.StatusInternalServerError)
		return
	}
	ctx.SetStatusCode(status)
	ctx.SetContentType("application/json")
	ctx.SetBody(payload)
}

// wsAddr derives the websocket listener address from the fasthttp admin
// address by incrementing its port. fasthttp offers no hijack path
// compatible with gorilla/websocket, so the upgrade is served from a
// dedicated net/http listener alongside the main admin port.
func wsAddr(addr string) string {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return addr
	}
	return net.JoinHostPort(host, strconv.Itoa(port+1))
}
