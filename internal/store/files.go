package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"audioserver/internal/catalog"
)

// CreateFile records a newly ingested audio file.
func (s *Store) CreateFile(ctx context.Context, file catalog.SourceFile) error {
	if strings.TrimSpace(file.ID) == "" {
		return errors.New("file id is empty")
	}
	_, err := s.execWithRetry(
		ctx,
		`INSERT INTO audio_files (id, name, duration, mime_type, size_bytes, created_at)
         VALUES (?, ?, ?, ?, ?, ?)`,
		file.ID,
		file.Name,
		file.Duration,
		nullableString(file.MimeType),
		file.SizeBytes,
		formatTime(file.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert audio file: %w", err)
	}
	return nil
}

// GetFile fetches a file record by identifier.
func (s *Store) GetFile(ctx context.Context, id string) (*catalog.SourceFile, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx, `SELECT `+fileColumns+` FROM audio_files WHERE id = ?`, id)
	file, err := scanFile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get audio file: %w", err)
	}
	return file, nil
}

// ListFiles returns file records matching the filter ordered by creation time.
// An empty name and a non-positive max duration match everything.
func (s *Store) ListFiles(ctx context.Context, filter catalog.FileFilter) ([]catalog.SourceFile, error) {
	var (
		clauses []string
		args    []any
	)
	if name := strings.TrimSpace(filter.Name); name != "" {
		clauses = append(clauses, "name = ?")
		args = append(args, name)
	}
	if filter.MaxDuration > 0 {
		clauses = append(clauses, "duration <= ?")
		args = append(args, filter.MaxDuration)
	}
	query := `SELECT ` + fileColumns + ` FROM audio_files`
	if len(clauses) > 0 {
		query += ` WHERE ` + strings.Join(clauses, " AND ")
	}
	query += ` ORDER BY created_at, id`
	return s.queryFiles(ctx, query, args...)
}

// ListEligible returns every file long enough to host a clip of minDuration
// seconds. Length is compared in whole milliseconds.
func (s *Store) ListEligible(ctx context.Context, minDuration float64) ([]catalog.SourceFile, error) {
	minMs := catalog.Millis(minDuration)
	// Coarse SQL prefilter; the millisecond comparison below is authoritative.
	candidates, err := s.queryFiles(ctx,
		`SELECT `+fileColumns+` FROM audio_files WHERE duration >= ? ORDER BY created_at, id`,
		float64(minMs)/1000-0.001,
	)
	if err != nil {
		return nil, err
	}
	eligible := candidates[:0]
	for _, file := range candidates {
		if file.DurationMs() >= minMs {
			eligible = append(eligible, file)
		}
	}
	return eligible, nil
}

func (s *Store) queryFiles(ctx context.Context, query string, args ...any) ([]catalog.SourceFile, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list audio files: %w", err)
	}
	defer rows.Close()

	var files []catalog.SourceFile
	for rows.Next() {
		file, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		files = append(files, *file)
	}
	return files, rows.Err()
}
