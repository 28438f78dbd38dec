package jobrunner

import (
	"fmt"

	"github.com/fluxorio/jobrunner/pkg/config"
)

// AdminConfig configures the optional HTTP/WebSocket admin surface.
type AdminConfig struct {
	ListenAddr      string `yaml:"listen_addr"`
	MetricsPath     string `yaml:"metrics_path"`
	EnableWebsocket bool   `yaml:"enable_websocket"`
}

// PoolConfig is the YAML/env-loadable bootstrap configuration for a Pool and
// its admin surface. DefaultPoolConfig supplies sensible defaults; the zero
// value has an empty listen address and fails ValidatePoolConfig.
type PoolConfig struct {
	Threads       int         `yaml:"threads"`
	QueueSizeHint int         `yaml:"queue_size_hint"`
	Admin         AdminConfig `yaml:"admin"`
}

// DefaultPoolConfig returns the configuration a freshly bootstrapped admin
// command should start from before applying file/env overrides.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		Threads:       4,
		QueueSizeHint: 1000,
		Admin: AdminConfig{
			ListenAddr:      ":8085",
			MetricsPath:     "/metrics",
			EnableWebsocket: true,
		},
	}
}

// LoadPoolConfig loads a PoolConfig from path (YAML), applies JOBRUNNER_*
// environment overrides, and validates the result.
func LoadPoolConfig(path string) (PoolConfig, error) {
	cfg := DefaultPoolConfig()
	if err := config.LoadWithEnv(path, "JOBRUNNER", &cfg); err != nil {
		return PoolConfig{}, fmt.Errorf("jobrunner: load pool config: %w", err)
	}
	if err := ValidatePoolConfig(&cfg); err != nil {
		return PoolConfig{}, err
	}
	return cfg, nil
}

// WritePoolConfig writes cfg to path as YAML, so an operator can run
// jobrunnerd with -dump-config to see the effective configuration (defaults
// plus file and environment overrides already applied) without re-deriving
// it by hand.
func WritePoolConfig(path string, cfg PoolConfig) error {
	return config.SaveYAML(path, cfg)
}

// ValidatePoolConfig enforces the config invariants: non-negative thread
// count, and a present, well-formed listen address for the admin server
// (admin.listen_addr is always required since /stats and /metrics are
// unconditional; only the websocket upgrade is individually toggleable).
func ValidatePoolConfig(cfg *PoolConfig) error {
	validators := []config.Validator{
		config.RangeValidator("Threads", 0, 1<<20),
		config.RequiredFields("Admin.ListenAddr"),
		config.ListenAddrValidator("Admin.ListenAddr"),
	}
	return config.Validate(cfg, validators...)
}
