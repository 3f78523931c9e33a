// Package clipstore maps (file, start, stop) triples to stable clip records.
//
// Resolution is an atomic get-or-insert: the same triple always yields the
// same clip, no matter how many goroutines or connections ask at once.
package clipstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"audioserver/internal/catalog"
	"audioserver/internal/keylock"
	"audioserver/internal/logging"
	"audioserver/internal/services"
	"audioserver/internal/store"
)

const component = "clipstore"

// Persistence is the record storage the identity store builds on.
type Persistence interface {
	GetFile(ctx context.Context, id string) (*catalog.SourceFile, error)
	FindClip(ctx context.Context, fileID string, rng catalog.Range) (*catalog.Clip, error)
	InsertClip(ctx context.Context, clip catalog.Clip) (catalog.Clip, bool, error)
}

// Store resolves clip identities.
type Store struct {
	persist Persistence
	logger  *slog.Logger
	locks   keylock.Map
	now     func() time.Time
}

// New constructs a Store over the given persistence.
func New(persist Persistence, logger *slog.Logger) *Store {
	return &Store{
		persist: persist,
		logger:  logging.NewComponentLogger(logger, component),
		now:     time.Now,
	}
}

// Resolve returns the clip for the given file and second offsets, creating it
// on first use. Offsets are rounded to whole milliseconds before comparison.
func (s *Store) Resolve(ctx context.Context, fileID string, start, stop float64) (catalog.Clip, error) {
	fileID = strings.TrimSpace(fileID)
	if fileID == "" {
		return catalog.Clip{}, services.Wrap(services.ErrValidation, component, "resolve", "file id is empty", nil)
	}
	file, err := s.persist.GetFile(ctx, fileID)
	if err != nil {
		return catalog.Clip{}, services.Wrap(nil, component, "resolve", "lookup file", err)
	}
	if file == nil {
		return catalog.Clip{}, services.Wrap(services.ErrNotFound, component, "resolve", "file "+fileID, nil)
	}
	if err := validateSeconds(*file, start, stop); err != nil {
		return catalog.Clip{}, err
	}
	return s.ResolveRange(ctx, *file, catalog.Range{StartMs: catalog.Millis(start), StopMs: catalog.Millis(stop)})
}

// validateSeconds applies the range rules to the offsets as given, so values
// that only fall inside the file after rounding are still rejected.
func validateSeconds(file catalog.SourceFile, start, stop float64) error {
	switch {
	case math.IsNaN(start) || math.IsInf(start, 0) || start < 0:
		return services.Wrap(services.ErrInvalidRange, component, "validate",
			fmt.Sprintf("start %v is negative or not a number", start), nil)
	case math.IsNaN(stop) || math.IsInf(stop, 0) || stop < 0:
		return services.Wrap(services.ErrInvalidRange, component, "validate",
			fmt.Sprintf("stop %v is negative or not a number", stop), nil)
	case start >= stop:
		return services.Wrap(services.ErrInvalidRange, component, "validate",
			fmt.Sprintf("start %v must be before stop %v", start, stop), nil)
	case stop > file.Duration:
		return services.Wrap(services.ErrInvalidRange, component, "validate",
			fmt.Sprintf("stop %v exceeds duration %v of file %s", stop, file.Duration, file.ID), nil)
	}
	return nil
}

// ResolveRange is Resolve for a file record already in hand and a range
// already expressed in milliseconds.
func (s *Store) ResolveRange(ctx context.Context, file catalog.SourceFile, rng catalog.Range) (catalog.Clip, error) {
	if err := ValidateRange(file, rng); err != nil {
		return catalog.Clip{}, err
	}

	if clip, err := s.persist.FindClip(ctx, file.ID, rng); err != nil {
		return catalog.Clip{}, services.Wrap(nil, component, "resolve", "find clip", err)
	} else if clip != nil {
		return *clip, nil
	}

	key := catalog.ClipKey{FileID: file.ID, Range: rng}
	unlock := s.locks.Lock(key.String())
	defer unlock()

	if err := ctx.Err(); err != nil {
		return catalog.Clip{}, err
	}

	clip, created, err := s.persist.InsertClip(ctx, catalog.Clip{
		ID:        uuid.NewString(),
		FileID:    file.ID,
		Range:     rng,
		CreatedAt: s.now().UTC(),
	})
	if err != nil {
		if errors.Is(err, store.ErrUnknownReference) {
			return catalog.Clip{}, services.Wrap(services.ErrNotFound, component, "resolve", "file "+file.ID, err)
		}
		return catalog.Clip{}, services.Wrap(nil, component, "resolve", "insert clip", err)
	}
	if created {
		s.logger.Debug("clip registered",
			logging.String(logging.FieldClipID, clip.ID),
			logging.String(logging.FieldFileID, clip.FileID),
			logging.String("range", clip.Range.String()))
	}
	return clip, nil
}

// ValidateRange checks 0 <= start < stop <= duration in whole milliseconds.
func ValidateRange(file catalog.SourceFile, rng catalog.Range) error {
	switch {
	case rng.StartMs < 0:
		return services.Wrap(services.ErrInvalidRange, component, "validate",
			fmt.Sprintf("start %d ms is negative or not a number", rng.StartMs), nil)
	case rng.StopMs < 0:
		return services.Wrap(services.ErrInvalidRange, component, "validate",
			fmt.Sprintf("stop %d ms is negative or not a number", rng.StopMs), nil)
	case rng.StartMs >= rng.StopMs:
		return services.Wrap(services.ErrInvalidRange, component, "validate",
			fmt.Sprintf("start %s must be before stop %s", catalog.FormatOffset(rng.StartMs), catalog.FormatOffset(rng.StopMs)), nil)
	case rng.StopMs > file.DurationMs():
		return services.Wrap(services.ErrInvalidRange, component, "validate",
			fmt.Sprintf("stop %s exceeds duration %s of file %s",
				catalog.FormatOffset(rng.StopMs), catalog.FormatOffset(file.DurationMs()), file.ID), nil)
	}
	return nil
}
