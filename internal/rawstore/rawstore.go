// Package rawstore keeps uploaded audio bytes on the local filesystem, keyed
// by file identifier. It supports exactly two operations beyond housekeeping:
// get bytes by identifier and put bytes under a fresh identifier.
package rawstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"audioserver/internal/fileutil"
	"audioserver/internal/logging"
	"audioserver/internal/services"
)

const component = "rawstore"

// Local stores raw bytes under root/<first two id chars>/<id>.
type Local struct {
	root   string
	logger *slog.Logger
}

// NewLocal returns a store rooted at dir, creating it when absent.
func NewLocal(dir string, logger *slog.Logger) (*Local, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, services.Wrap(services.ErrConfiguration, component, "open", "files directory is empty", nil)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create files directory: %w", err)
	}
	return &Local{root: dir, logger: logging.NewComponentLogger(logger, component)}, nil
}

// Root returns the storage directory.
func (l *Local) Root() string { return l.root }

func (l *Local) path(id string) (string, error) {
	parsed, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return "", services.Wrap(services.ErrValidation, component, "path", fmt.Sprintf("identifier %q", id), err)
	}
	canonical := parsed.String()
	return filepath.Join(l.root, canonical[:2], canonical), nil
}

// Fetch returns the bytes stored under id. A missing identifier is reported
// as services.ErrNotFound.
func (l *Local) Fetch(ctx context.Context, id string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := l.path(id)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, services.Wrap(services.ErrNotFound, component, "fetch", "raw file "+id, nil)
	}
	if err != nil {
		return nil, services.Wrap(nil, component, "fetch", "read raw file "+id, err)
	}
	return data, nil
}

// Open returns a reader for the bytes stored under id along with their size.
func (l *Local) Open(ctx context.Context, id string) (io.ReadCloser, int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	path, err := l.path(id)
	if err != nil {
		return nil, 0, err
	}
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, 0, services.Wrap(services.ErrNotFound, component, "open", "raw file "+id, nil)
	}
	if err != nil {
		return nil, 0, services.Wrap(nil, component, "open", "open raw file "+id, err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, 0, services.Wrap(nil, component, "open", "stat raw file "+id, err)
	}
	return f, info.Size(), nil
}

// Store writes r under id and returns the byte count. Writing an identifier
// that already holds bytes fails with services.ErrAlreadyExists and leaves the
// existing bytes untouched.
func (l *Local) Store(ctx context.Context, id string, r io.Reader) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	path, err := l.path(id)
	if err != nil {
		return 0, err
	}
	written, err := fileutil.WriteExclusive(path, r, 0o644)
	if errors.Is(err, fileutil.ErrExists) {
		return 0, services.Wrap(services.ErrAlreadyExists, component, "store", "raw file "+id, nil)
	}
	if err != nil {
		return 0, services.Wrap(nil, component, "store", "write raw file "+id, err)
	}
	l.logger.Debug("raw file stored",
		logging.String(logging.FieldFileID, id),
		logging.Int64("size_bytes", written))
	return written, nil
}

// Delete removes the bytes stored under id. Missing identifiers are ignored.
func (l *Local) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := l.path(id)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return services.Wrap(nil, component, "delete", "remove raw file "+id, err)
	}
	return nil
}
