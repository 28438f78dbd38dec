package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/fluxorio/jobrunner/pkg/jobrunner"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("Write: %v", err)
	}
	return m.GetCounter().GetValue()
}

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	var m dto.Metric
	if err := g.Write(&m); err != nil {
		t.Fatalf("Write: %v", err)
	}
	return m.GetGauge().GetValue()
}

func TestMetrics_TracksJobLifecycle(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	q := jobrunner.NewJobQueue()
	q.AddCallback(m)

	j := jobrunner.NewJob("", "job", func(j *jobrunner.Job) error { return nil })
	j.AddCallback(m.JobCallback())

	q.Add(j, true)
	if got := counterValue(t, m.JobsSubmitted); got != 1 {
		t.Fatalf("JobsSubmitted = %v, want 1", got)
	}
	if got := gaugeValue(t, m.QueueDepth); got != 1 {
		t.Fatalf("QueueDepth = %v, want 1", got)
	}

	got := q.NextJob(false)
	if got != j {
		t.Fatalf("expected to dequeue j")
	}
	if err := got.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	if v := counterValue(t, m.JobsStarted); v != 1 {
		t.Fatalf("JobsStarted = %v, want 1", v)
	}
	if v := counterValue(t, m.JobsFinished); v != 1 {
		t.Fatalf("JobsFinished = %v, want 1", v)
	}
}

func TestMetrics_ObservePoolSnapshotsGauges(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	p := jobrunner.NewPool(nil, 3, nil)
	defer p.Close()

	time.Sleep(20 * time.Millisecond)
	m.ObservePool(p)

	if v := gaugeValue(t, m.WorkerCount); v != 3 {
		t.Fatalf("WorkerCount = %v, want 3", v)
	}
}
