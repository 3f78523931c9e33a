package store

import (
	"database/sql"
	"errors"
	"strings"
	"time"

	"audioserver/internal/catalog"
)

// ErrUnknownReference reports an insert that named a file or clip the
// database does not hold.
var ErrUnknownReference = errors.New("unknown reference")

type rowScanner interface {
	Scan(dest ...any) error
}

const fileColumns = "id, name, duration, mime_type, size_bytes, created_at"

func scanFile(scanner rowScanner) (*catalog.SourceFile, error) {
	var (
		file       catalog.SourceFile
		mimeType   sql.NullString
		createdRaw sql.NullString
	)
	if err := scanner.Scan(&file.ID, &file.Name, &file.Duration, &mimeType, &file.SizeBytes, &createdRaw); err != nil {
		return nil, err
	}
	file.MimeType = mimeType.String
	if created, err := parseTimeString(createdRaw.String); err == nil {
		file.CreatedAt = created
	}
	return &file, nil
}

const clipColumns = "id, file_id, start_ms, stop_ms, created_at"

func scanClip(scanner rowScanner) (*catalog.Clip, error) {
	var (
		clip       catalog.Clip
		createdRaw sql.NullString
	)
	if err := scanner.Scan(&clip.ID, &clip.FileID, &clip.Range.StartMs, &clip.Range.StopMs, &createdRaw); err != nil {
		return nil, err
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		clip.CreatedAt = created
	}
	return &clip, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func formatTime(value time.Time) string {
	if value.IsZero() {
		value = time.Now()
	}
	return value.UTC().Format(time.RFC3339Nano)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func isForeignKeyViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", count), ",")
}
