package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"audioserver/internal/catalog"
)

// FindClip returns the clip registered for the triple, if any.
func (s *Store) FindClip(ctx context.Context, fileID string, rng catalog.Range) (*catalog.Clip, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx,
		`SELECT `+clipColumns+` FROM clips WHERE file_id = ? AND start_ms = ? AND stop_ms = ?`,
		fileID, rng.StartMs, rng.StopMs,
	)
	clip, err := scanClip(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find clip: %w", err)
	}
	return clip, nil
}

// InsertClip registers clip unless its triple already exists. It returns the
// stored clip for the triple and whether this call created it.
func (s *Store) InsertClip(ctx context.Context, clip catalog.Clip) (catalog.Clip, bool, error) {
	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO clips (id, file_id, start_ms, stop_ms, created_at)
         VALUES (?, ?, ?, ?, ?)
         ON CONFLICT (file_id, start_ms, stop_ms) DO NOTHING`,
		clip.ID,
		clip.FileID,
		clip.Range.StartMs,
		clip.Range.StopMs,
		formatTime(clip.CreatedAt),
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return catalog.Clip{}, false, fmt.Errorf("%w: file %s", ErrUnknownReference, clip.FileID)
		}
		return catalog.Clip{}, false, fmt.Errorf("insert clip: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return catalog.Clip{}, false, fmt.Errorf("insert clip rows affected: %w", err)
	}

	stored, err := s.FindClip(ctx, clip.FileID, clip.Range)
	if err != nil {
		return catalog.Clip{}, false, err
	}
	if stored == nil {
		return catalog.Clip{}, false, fmt.Errorf("clip %s vanished after insert", clip.Key())
	}
	return *stored, affected > 0, nil
}

// GetClip fetches a clip by identifier.
func (s *Store) GetClip(ctx context.Context, id string) (*catalog.Clip, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx, `SELECT `+clipColumns+` FROM clips WHERE id = ?`, id)
	clip, err := scanClip(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get clip: %w", err)
	}
	return clip, nil
}

// GetClips fetches the clips with the given identifiers in the order given.
// Unknown identifiers are reported through ErrUnknownReference.
func (s *Store) GetClips(ctx context.Context, ids []string) ([]catalog.Clip, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	ctx = ensureContext(ctx)
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+clipColumns+` FROM clips WHERE id IN (`+makePlaceholders(len(ids))+`)`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("get clips: %w", err)
	}
	defer rows.Close()

	byID := make(map[string]catalog.Clip, len(ids))
	for rows.Next() {
		clip, err := scanClip(rows)
		if err != nil {
			return nil, err
		}
		byID[clip.ID] = *clip
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	clips := make([]catalog.Clip, 0, len(ids))
	for _, id := range ids {
		clip, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("%w: clip %s", ErrUnknownReference, id)
		}
		clips = append(clips, clip)
	}
	return clips, nil
}
