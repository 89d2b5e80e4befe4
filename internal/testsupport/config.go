package testsupport

import (
	"path/filepath"
	"testing"

	"cdrecon/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Server.Bind = "127.0.0.1:0"
	cfg.Server.PollInterval = 1

	for _, opt := range opts {
		opt(&cfg)
	}

	return &cfg
}

// WithFormats overrides the enabled report formats on the test config.
func WithFormats(formats ...string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Reports.Formats = formats
	}
}

// WithTolerances overrides the matching tolerances on the test config.
func WithTolerances(timeTolerance, durationTolerance int64) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Matching.TimeTolerance = timeTolerance
		cfg.Matching.DurationTolerance = durationTolerance
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
