package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"audioserver/internal/api"
	"audioserver/internal/clipset"
	"audioserver/internal/config"
	"audioserver/internal/deps"
	"audioserver/internal/logging"
	"audioserver/internal/preflight"
)

// Daemon serves the HTTP API and enforces single-instance execution.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger
	svc    *clipset.Service
	api    *apiServer

	lockPath string
	lock     *flock.Flock

	mu        sync.Mutex
	running   atomic.Bool
	startedAt atomic.Pointer[time.Time]
	cancel    context.CancelFunc
}

// New constructs a daemon. bind overrides cfg.Server.Bind when non-empty.
func New(cfg *config.Config, svc *clipset.Service, logger *slog.Logger, bind string) (*Daemon, error) {
	if cfg == nil || svc == nil {
		return nil, errors.New("daemon requires config and clip-set service")
	}
	if strings.TrimSpace(bind) == "" {
		bind = cfg.Server.Bind
	}
	logger = logging.NewComponentLogger(logger, "daemon")
	d := &Daemon{
		cfg:      cfg,
		logger:   logger,
		svc:      svc,
		lockPath: cfg.LockPath(),
		lock:     flock.New(cfg.LockPath()),
	}
	d.api = newAPIServer(cfg, d, svc, bind, logger)
	return d, nil
}

// Start acquires the instance lock and begins serving.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("another audioserver instance holds %s", d.lockPath)
	}

	runCtx, cancel := context.WithCancel(ctx)
	if err := d.api.start(runCtx); err != nil {
		cancel()
		_ = d.lock.Unlock()
		return err
	}
	d.cancel = cancel
	now := time.Now()
	d.startedAt.Store(&now)
	d.running.Store(true)
	d.logger.Info("audioserver started",
		logging.String("address", d.api.addr()),
		logging.String("lock", d.lockPath))
	return nil
}

// Stop shuts the API server down and releases the instance lock.
func (d *Daemon) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.running.Load() {
		return
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.api.stop()
	if err := d.lock.Unlock(); err != nil {
		logging.WarnWithContext(d.logger, "failed to release instance lock", "lock_release_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "remove "+d.lockPath+" if no server is running"),
			logging.String(logging.FieldImpact, "the next start may report another running instance"))
	}
	d.running.Store(false)
	d.logger.Info("audioserver stopped")
}

// Close stops the daemon. The service's store is owned by the caller.
func (d *Daemon) Close() error {
	d.Stop()
	return nil
}

// Addr returns the listening address, or "" before Start.
func (d *Daemon) Addr() string {
	return d.api.addr()
}

// Running reports whether the daemon is serving.
func (d *Daemon) Running() bool {
	return d.running.Load()
}

// Status returns the current server status.
func (d *Daemon) Status(ctx context.Context) (api.Status, error) {
	catalogStatus, err := d.svc.Status(ctx)
	if err != nil {
		return api.Status{}, err
	}
	status := api.Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		Address:      d.api.addr(),
		DatabasePath: catalogStatus.DatabasePath,
		FilesDir:     catalogStatus.FilesDir,
		LockFilePath: d.lockPath,
		Catalog: api.CatalogStats{
			Files:          catalogStatus.Files,
			Clips:          catalogStatus.Clips,
			Sets:           catalogStatus.Sets,
			ArchiveCache:   catalogStatus.ArchiveCache,
			CachedArchives: catalogStatus.CachedArchives,
		},
		Dependencies: api.FromDependencies(deps.Check(ctx, d.cfg)),
		Checks:       api.FromChecks(preflight.RunAll(ctx, d.cfg)),
	}
	if started := d.startedAt.Load(); started != nil && status.Running {
		status.StartedAt = started.UTC().Format(time.RFC3339)
	}
	return status, nil
}
