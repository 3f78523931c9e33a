package archivecache

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"audioserver/internal/config"
	"audioserver/internal/fileutil"
	"audioserver/internal/logging"
)

const archiveExt = ".tar"

// Entry describes one cached archive.
type Entry struct {
	SetID      string    `json:"set_id"`
	SizeBytes  int64     `json:"size_bytes"`
	ModifiedAt time.Time `json:"modified_at"`
}

// Cache stores archives under a directory. A Cache with an empty directory is
// disabled and every operation is a no-op.
type Cache struct {
	dir    string
	logger *slog.Logger
}

// NewCache creates a cache rooted at dir. The directory is created lazily on
// the first Fill.
func NewCache(dir string, logger *slog.Logger) *Cache {
	return &Cache{
		dir:    strings.TrimSpace(dir),
		logger: logging.NewComponentLogger(logger, "archivecache"),
	}
}

// NewFromConfig returns a cache when archive caching is enabled, or a
// disabled cache otherwise.
func NewFromConfig(cfg *config.Config, logger *slog.Logger) *Cache {
	if cfg == nil || !cfg.Archive.CacheEnabled {
		return NewCache("", logger)
	}
	return NewCache(cfg.Paths.ArchiveCacheDir, logger)
}

// Enabled reports whether the cache stores anything.
func (c *Cache) Enabled() bool {
	return c != nil && c.dir != ""
}

func (c *Cache) path(setID string) (string, error) {
	parsed, err := uuid.Parse(strings.TrimSpace(setID))
	if err != nil {
		return "", fmt.Errorf("archive cache: set id %q: %w", setID, err)
	}
	return filepath.Join(c.dir, parsed.String()+archiveExt), nil
}

// Open returns the cached archive for setID. The bool is false on a miss.
func (c *Cache) Open(setID string) (io.ReadCloser, int64, bool, error) {
	if !c.Enabled() {
		return nil, 0, false, nil
	}
	path, err := c.path(setID)
	if err != nil {
		return nil, 0, false, err
	}
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, 0, false, nil
	}
	if err != nil {
		return nil, 0, false, fmt.Errorf("archive cache: open %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, 0, false, fmt.Errorf("archive cache: stat %s: %w", path, err)
	}
	c.logger.Debug("archive cache hit",
		logging.String(logging.FieldSetID, setID),
		logging.Int64("size_bytes", info.Size()))
	return f, info.Size(), true, nil
}

// Fill runs build against a temp file and publishes it as setID's archive
// once build succeeds.
func (c *Cache) Fill(setID string, build func(io.Writer) error) (int64, error) {
	if !c.Enabled() {
		return 0, errors.New("archive cache: disabled")
	}
	path, err := c.path(setID)
	if err != nil {
		return 0, err
	}
	written, err := fileutil.WriteAtomicFunc(path, 0o644, build)
	if err != nil {
		return 0, fmt.Errorf("archive cache: store %s: %w", setID, err)
	}
	c.logger.Debug("archive cached",
		logging.String(logging.FieldSetID, setID),
		logging.Int64("size_bytes", written))
	return written, nil
}

// Remove deletes setID's cached archive if present.
func (c *Cache) Remove(setID string) error {
	if !c.Enabled() {
		return nil
	}
	path, err := c.path(setID)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("archive cache: remove %s: %w", path, err)
	}
	return nil
}

// List returns cached archives sorted by modification time, newest first.
func (c *Cache) List() ([]Entry, error) {
	if !c.Enabled() {
		return nil, nil
	}
	dirEntries, err := os.ReadDir(c.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("archive cache: list: %w", err)
	}
	var entries []Entry
	for _, de := range dirEntries {
		name := de.Name()
		if de.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, archiveExt) {
			continue
		}
		info, err := de.Info()
		if err != nil {
			continue
		}
		entries = append(entries, Entry{
			SetID:      strings.TrimSuffix(name, archiveExt),
			SizeBytes:  info.Size(),
			ModifiedAt: info.ModTime(),
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].ModifiedAt.After(entries[j].ModifiedAt)
	})
	return entries, nil
}

// Clear removes every cached archive.
func (c *Cache) Clear() error {
	entries, err := c.List()
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if err := c.Remove(entry.SetID); err != nil {
			return err
		}
	}
	c.logger.Debug("cleared archive cache", logging.Int("entry_count", len(entries)))
	return nil
}
