package config_test

import (
	"os"
	"testing"

	"github.com/fluxorio/jobrunner/pkg/jobrunner"
)

// TestPoolConfigWithEnvOverrides exercises the config package from outside,
// through jobrunner.LoadPoolConfig, the only production caller of
// config.LoadWithEnv in this repo.
func TestPoolConfigWithEnvOverrides(t *testing.T) {
	yamlContent := `
threads: 4
queue_size_hint: 500
admin:
  listen_addr: ":8085"
  metrics_path: "/metrics"
  enable_websocket: true
`
	tmpFile := "test_pool_config.yaml"
	if err := os.WriteFile(tmpFile, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("Failed to create temp file: %v", err)
	}
	defer os.Remove(tmpFile)

	os.Setenv("JOBRUNNER_THREADS", "16")
	os.Setenv("JOBRUNNER_ADMIN_LISTEN_ADDR", ":9999")
	defer os.Unsetenv("JOBRUNNER_THREADS")
	defer os.Unsetenv("JOBRUNNER_ADMIN_LISTEN_ADDR")

	cfg, err := jobrunner.LoadPoolConfig(tmpFile)
	if err != nil {
		t.Fatalf("LoadPoolConfig failed: %v", err)
	}

	// Environment variables should override file values
	if cfg.Threads != 16 {
		t.Errorf("Threads = %v, want 16", cfg.Threads)
	}
	if cfg.Admin.ListenAddr != ":9999" {
		t.Errorf("Admin.ListenAddr = %v, want :9999", cfg.Admin.ListenAddr)
	}
	// QueueSizeHint and MetricsPath should remain from file (no env override)
	if cfg.QueueSizeHint != 500 {
		t.Errorf("QueueSizeHint = %v, want 500", cfg.QueueSizeHint)
	}
	if cfg.Admin.MetricsPath != "/metrics" {
		t.Errorf("Admin.MetricsPath = %v, want /metrics", cfg.Admin.MetricsPath)
	}
}

func TestPoolConfigWithEnvOverrides_RejectsMalformedOverride(t *testing.T) {
	yamlContent := `
threads: 4
admin:
  listen_addr: ":8085"
`
	tmpFile := "test_pool_config_bad.yaml"
	if err := os.WriteFile(tmpFile, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("Failed to create temp file: %v", err)
	}
	defer os.Remove(tmpFile)

	os.Setenv("JOBRUNNER_ADMIN_LISTEN_ADDR", "not-a-host-port")
	defer os.Unsetenv("JOBRUNNER_ADMIN_LISTEN_ADDR")

	if _, err := jobrunner.LoadPoolConfig(tmpFile); err == nil {
		t.Fatal("expected LoadPoolConfig to reject a malformed listen address coming from an env override")
	}
}
