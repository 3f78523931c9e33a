package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"audioserver/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.FilesDir = filepath.Join(base, "data", "files")
	cfgVal.Paths.DatabasePath = filepath.Join(base, "data", "audioserver.db")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.ArchiveCacheDir = filepath.Join(base, "data", "archives")
	cfgVal.Server.Bind = "127.0.0.1:0"

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

// WithArchiveCache enables the on-disk archive cache.
func WithArchiveCache() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Archive.CacheEnabled = true
	}
}

// WithSampling overrides the sampling resolution and failure threshold.
func WithSampling(resolution float64, threshold int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Sampling.Resolution = resolution
		b.cfg.Sampling.FailureThreshold = threshold
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, ffmpeg and ffprobe are stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"ffmpeg", "ffprobe"}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		script := []byte("#!/bin/sh\nexit 0\n")
		for _, name := range names {
			target := filepath.Join(binDir, name)
			if err := os.WriteFile(target, script, 0o755); err != nil {
				b.t.Fatalf("write stub %s: %v", name, err)
			}
		}

		oldPath := os.Getenv("PATH")
		if err := os.Setenv("PATH", binDir+string(os.PathListSeparator)+oldPath); err != nil {
			b.t.Fatalf("set PATH: %v", err)
		}
		b.t.Cleanup(func() {
			_ = os.Setenv("PATH", oldPath)
		})
	}
}

// WithoutExternalTools clears the ffmpeg and ffprobe binaries so only the
// in-process decoders run.
func WithoutExternalTools() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Transcode.FFmpegBinary = ""
		b.cfg.Transcode.FFprobeBinary = ""
	}
}

// WithMaxUploadMiB overrides the upload size limit.
func WithMaxUploadMiB(mib int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Server.MaxUploadMiB = mib
	}
}
