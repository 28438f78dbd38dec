package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fluxorio/jobrunner/pkg/admin"
	"github.com/fluxorio/jobrunner/pkg/events"
	"github.com/fluxorio/jobrunner/pkg/jobrunner"
	"github.com/fluxorio/jobrunner/pkg/logging"
	"github.com/fluxorio/jobrunner/pkg/metrics"
)

func main() {
	configPath := flag.String("config", "", "path to a PoolConfig YAML file (optional; defaults are used when omitted)")
	dumpConfigPath := flag.String("dump-config", "", "write the effective PoolConfig as YAML to this path and exit, instead of starting the daemon")
	flag.Parse()

	logger := logging.NewDefaultLogger()

	cfg := jobrunner.DefaultPoolConfig()
	if *configPath != "" {
		loaded, err := jobrunner.LoadPoolConfig(*configPath)
		if err != nil {
			logger.Errorf("jobrunnerd: %v", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	if *dumpConfigPath != "" {
		if err := jobrunner.WritePoolConfig(*dumpConfigPath, cfg); err != nil {
			logger.Errorf("jobrunnerd: dump config: %v", err)
			os.Exit(1)
		}
		return
	}

	queue := jobrunner.NewJobQueue()
	pool := jobrunner.NewPool(queue, cfg.Threads, logger)

	m := metrics.NewMetrics(metrics.DefaultRegisterer)
	queue.AddCallback(m)
	pool.SetFailureObserver(func(job *jobrunner.Job, err error) {
		m.ObserveFailure()
		logger.Warnf("jobrunnerd: job %q (%s) failed: %v", job.Name(), job.ID(), err)
	})

	broadcaster := events.NewBroadcaster(logger, func() int64 { return time.Now().Unix() })

	srv := admin.NewServer(cfg, pool, m, metrics.DefaultRegistry, broadcaster, logger)
	srv.Start()
	logger.Infof("jobrunnerd: admin surface listening on %s (%d threads)", cfg.Admin.ListenAddr, cfg.Threads)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Infof("jobrunnerd: shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Stop(ctx); err != nil {
		logger.Errorf("jobrunnerd: admin server shutdown: %v", err)
	}
	pool.Close()
}
