package testsupport

import (
	"path/filepath"
	"testing"

	"github.com/wwcc-dale/zaphod/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t   testing.TB
	cfg *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.OutputDir = filepath.Join(base, "courses")
	cfgVal.Paths.ScratchDir = filepath.Join(base, "scratch")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")

	builder := &configBuilder{t: t, cfg: &cfgVal}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithClean enables removal of generated trees before writing.
func WithClean() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Import.Clean = true
	}
}

// WithoutAssetTracking disables asset registry updates during import.
func WithoutAssetTracking() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Import.TrackAssets = false
	}
}
