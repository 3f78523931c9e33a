package clipset

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"audioserver/internal/archive"
	"audioserver/internal/archivecache"
	"audioserver/internal/catalog"
	"audioserver/internal/clipstore"
	"audioserver/internal/config"
	"audioserver/internal/logging"
	"audioserver/internal/rawstore"
	"audioserver/internal/sampler"
	"audioserver/internal/services"
	"audioserver/internal/setcache"
	"audioserver/internal/store"
	"audioserver/internal/transcode"
)

const component = "clipset"

// SetSampler draws the clips for a new set.
type SetSampler interface {
	Sample(ctx context.Context, targetCount int, clipLength float64) ([]catalog.Clip, error)
}

// Option customizes a Service.
type Option func(*Service)

// WithSampler replaces the corpus sampler.
func WithSampler(s SetSampler) Option {
	return func(svc *Service) {
		if s != nil {
			svc.sampler = s
		}
	}
}

// Service exposes clip-set generation, lookup and packaging.
type Service struct {
	cfg        *config.Config
	store      *store.Store
	raw        *rawstore.Local
	clips      *clipstore.Store
	transcoder *transcode.Transcoder
	sampler    SetSampler
	sets       *setcache.Cache
	builder    *archive.Builder
	archives   *archivecache.Cache
	logger     *slog.Logger
	now        func() time.Time
}

// New wires a Service over an open store. The service does not own st.
func New(cfg *config.Config, st *store.Store, logger *slog.Logger, opts ...Option) (*Service, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, component, "new", "config is nil", nil)
	}
	if st == nil {
		return nil, services.Wrap(services.ErrConfiguration, component, "new", "store is nil", nil)
	}
	raw, err := rawstore.NewLocal(cfg.Paths.FilesDir, logger)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, component, "new", "raw store", err)
	}

	clips := clipstore.New(st, logger)
	transcoder := transcode.NewFromConfig(cfg, st, raw, logger)
	svc := &Service{
		cfg:        cfg,
		store:      st,
		raw:        raw,
		clips:      clips,
		transcoder: transcoder,
		sampler:    sampler.NewFromConfig(cfg, st, clips, logger),
		sets:       setcache.New(st, logger),
		builder:    archive.NewBuilder(st, transcoder, logger),
		archives:   archivecache.NewFromConfig(cfg, logger),
		logger:     logging.NewComponentLogger(logger, component),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// RequestNewSet samples up to targetCount clips of clipLength seconds and
// returns the set with exactly that membership. A corpus too small to supply
// targetCount distinct clips yields a smaller set rather than an error.
func (s *Service) RequestNewSet(ctx context.Context, targetCount int, clipLength float64) (catalog.ClipSet, error) {
	if targetCount <= 0 || targetCount > s.cfg.Sampling.MaxClips {
		return catalog.ClipSet{}, services.Wrap(services.ErrInvalidRange, component, "request new set",
			fmt.Sprintf("count must be between 1 and %d, got %d", s.cfg.Sampling.MaxClips, targetCount), nil)
	}
	if catalog.Millis(clipLength) <= 0 {
		return catalog.ClipSet{}, services.Wrap(services.ErrInvalidRange, component, "request new set",
			fmt.Sprintf("clip length must be positive, got %v", clipLength), nil)
	}

	clips, err := s.sampler.Sample(ctx, targetCount, clipLength)
	if err != nil {
		return catalog.ClipSet{}, err
	}
	ids := make([]string, 0, len(clips))
	for _, clip := range clips {
		ids = append(ids, clip.ID)
	}
	set, created, err := s.sets.GetOrCreate(ctx, ids)
	if err != nil {
		return catalog.ClipSet{}, err
	}
	logging.WithContext(ctx, s.logger).Info("clip set ready",
		logging.String(logging.FieldSetID, set.ID),
		logging.Int("requested", targetCount),
		logging.Int("clip_count", set.Len()),
		logging.Float64("clip_length", clipLength),
		logging.Bool("created", created))
	return set, nil
}

// RequestExistingSet returns a stored set. It never samples.
func (s *Service) RequestExistingSet(ctx context.Context, setID string) (catalog.ClipSet, error) {
	return s.sets.Lookup(ctx, setID)
}

// SetClips returns the clip records of set in member order.
func (s *Service) SetClips(ctx context.Context, set catalog.ClipSet) ([]catalog.Clip, error) {
	clips, err := s.store.GetClips(ctx, set.ClipIDs)
	if errors.Is(err, store.ErrUnknownReference) {
		return nil, services.Wrap(services.ErrNotFound, component, "set clips", "set "+set.ID, err)
	}
	if err != nil {
		return nil, services.Wrap(nil, component, "set clips", "load clips", err)
	}
	return clips, nil
}

// ListSets returns every stored set, oldest first.
func (s *Service) ListSets(ctx context.Context) ([]catalog.ClipSet, error) {
	sets, err := s.store.ListSets(ctx)
	if err != nil {
		return nil, services.Wrap(nil, component, "list sets", "query", err)
	}
	return sets, nil
}

// BuildArchive writes the tar archive for set to w. With the archive cache
// enabled the archive is built once and later requests are served from disk.
func (s *Service) BuildArchive(ctx context.Context, w io.Writer, set catalog.ClipSet) error {
	ctx = services.WithSetID(ctx, set.ID)
	if !s.archives.Enabled() {
		return s.builder.Build(ctx, w, set)
	}

	served, err := s.copyCached(w, set.ID)
	if err != nil || served {
		return err
	}
	if _, err := s.archives.Fill(set.ID, func(tmp io.Writer) error {
		return s.builder.Build(ctx, tmp, set)
	}); err != nil {
		return err
	}
	served, err = s.copyCached(w, set.ID)
	if err != nil {
		return err
	}
	if !served {
		return services.Wrap(nil, component, "build archive", "cached archive vanished for set "+set.ID, nil)
	}
	return nil
}

func (s *Service) copyCached(w io.Writer, setID string) (bool, error) {
	rc, _, ok, err := s.archives.Open(setID)
	if err != nil {
		return false, services.Wrap(nil, component, "build archive", "open cached archive", err)
	}
	if !ok {
		return false, nil
	}
	defer rc.Close()
	if _, err := io.Copy(w, rc); err != nil {
		return true, fmt.Errorf("copy cached archive %s: %w", setID, err)
	}
	return true, nil
}

// Status summarizes the catalog.
type Status struct {
	store.Stats
	CachedArchives int    `json:"cached_archives"`
	ArchiveCache   bool   `json:"archive_cache"`
	DatabasePath   string `json:"database_path"`
	FilesDir       string `json:"files_dir"`
}

// Status reports catalog counts and storage locations.
func (s *Service) Status(ctx context.Context) (Status, error) {
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return Status{}, services.Wrap(nil, component, "status", "catalog stats", err)
	}
	status := Status{
		Stats:        stats,
		ArchiveCache: s.archives.Enabled(),
		DatabasePath: s.store.Path(),
		FilesDir:     s.raw.Root(),
	}
	if status.ArchiveCache {
		entries, err := s.archives.List()
		if err != nil {
			return Status{}, services.Wrap(nil, component, "status", "archive cache", err)
		}
		status.CachedArchives = len(entries)
	}
	return status, nil
}
