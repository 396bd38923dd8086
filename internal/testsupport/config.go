package testsupport

import (
	"path/filepath"
	"testing"

	"ledaps/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// The ancillary root, download, log and bin directories all live under one
// temp base; only the ancillary root is created.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.AncillaryDir = filepath.Join(base, "anc")
	cfgVal.Paths.DownloadDir = filepath.Join(base, "ncep")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.BinDir = filepath.Join(base, "bin")
	cfgVal.NCEP.BaseURL = "http://127.0.0.1:1"
	cfgVal.NCEP.RetryDelaySeconds = 0
	mkdir(t, cfgVal.Paths.AncillaryDir)

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithoutAncillaryRoot clears paths.ancillary_dir.
func WithoutAncillaryRoot() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Paths.AncillaryDir = ""
	}
}

// WithArchive points the NCEP base URL at url.
func WithArchive(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.NCEP.BaseURL = url
	}
}

// WithStubTools writes a succeeding stub script for each name into the bin
// directory and enables use_bin.
func WithStubTools(names ...string) ConfigOption {
	return func(b *configBuilder) {
		for _, name := range names {
			WriteScript(b.t, b.cfg.Paths.BinDir, name, "exit 0\n")
		}
		b.cfg.Pipeline.UseBin = true
	}
}
