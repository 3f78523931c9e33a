// Package daemonrun owns the foreground lifecycle of "audioserver serve".
package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"audioserver/internal/clipset"
	"audioserver/internal/config"
	"audioserver/internal/daemon"
	"audioserver/internal/deps"
	"audioserver/internal/logging"
	"audioserver/internal/preflight"
	"audioserver/internal/store"
	"audioserver/internal/textutil"
)

// Options configures server process runtime behavior.
type Options struct {
	// Bind overrides the configured listen address.
	Bind   string
	Logger *slog.Logger
	// LogPath is the current run's log file; retention never removes it.
	LogPath string
}

// Run serves the API until the context ends or the process receives SIGINT
// or SIGTERM.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}

	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("prepare directories: %w", err)
	}
	logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays, logging.RetentionTarget{
		Dir:     cfg.Paths.LogDir,
		Pattern: "audioserver-*.log",
		Exclude: []string{opts.LogPath},
	})
	if failed := preflight.Failed(preflight.RunAll(signalCtx, cfg)); len(failed) > 0 {
		details := make([]string, 0, len(failed))
		for _, r := range failed {
			details = append(details, r.Name+": "+r.Detail)
		}
		return fmt.Errorf("preflight failed: %s", strings.Join(details, "; "))
	}
	logDependencySnapshot(signalCtx, logger, cfg)

	pidPath := filepath.Join(cfg.Paths.DataDir, "audioserver.pid")
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	st, err := store.Open(cfg)
	if err != nil {
		logger.Error("open catalog store", logging.Error(err))
		return err
	}
	defer st.Close()

	svc, err := clipset.New(cfg, st, logger)
	if err != nil {
		return fmt.Errorf("create clip-set service: %w", err)
	}
	d, err := daemon.New(cfg, svc, logger, opts.Bind)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(signalCtx); err != nil {
		return err
	}

	<-signalCtx.Done()
	logger.Info("audioserver shutting down")
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

func logDependencySnapshot(ctx context.Context, logger *slog.Logger, cfg *config.Config) {
	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "dependency_snapshot"),
		logging.Bool("archive_cache", cfg.Archive.CacheEnabled),
		logging.Float64("sampling_resolution", cfg.Sampling.Resolution),
		logging.Int("failure_threshold", cfg.Sampling.FailureThreshold),
	}
	for _, status := range deps.Check(ctx, cfg) {
		key := textutil.SanitizeToken(status.Name)
		attrs = append(attrs,
			logging.Bool(key+"_available", status.Available),
			logging.String(key+"_binary", status.Command))
		if !status.Available && status.Command != "" {
			logging.WarnWithContext(logger, status.Name+" unavailable", "dependency_missing",
				logging.String("detail", status.Detail),
				logging.String(logging.FieldErrorHint, "install "+strings.ToLower(status.Name)+" or clear transcode."+key+"_binary"),
				logging.String(logging.FieldImpact, "only WAV and MP3 sources can be processed"))
		}
	}
	logger.Info("dependency snapshot", logging.Args(attrs...)...)
}
