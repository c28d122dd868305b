package testsupport

import (
	"path/filepath"
	"testing"

	"clipforge/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.MediaDir = filepath.Join(base, "media")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.APIBind = "127.0.0.1:0"
	cfg.Moderation.AnalysisDelay = 0

	for _, opt := range opts {
		opt(&cfg)
	}

	return &cfg
}

// WithToken adds a bearer token entry to the test config.
func WithToken(token, tenant, role string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Auth.Tokens = append(cfg.Auth.Tokens, config.Token{Token: token, Tenant: tenant, Role: role})
	}
}

// WithWorkers overrides the transcode worker bound.
func WithWorkers(n int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Transcode.Workers = n
	}
}
