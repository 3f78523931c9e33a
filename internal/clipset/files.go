package clipset

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"audioserver/internal/catalog"
	"audioserver/internal/logging"
	"audioserver/internal/services"
	"audioserver/internal/textutil"
)

const defaultMimeType = "application/octet-stream"

// AddFile ingests an upload: it reads at most the configured upload limit,
// probes the duration, stores the bytes under a new identifier and records the
// file. Nothing is kept when any step fails.
func (s *Service) AddFile(ctx context.Context, name, mimeType string, r io.Reader) (catalog.SourceFile, error) {
	name = textutil.NormalizeName(name)
	if name == "" {
		return catalog.SourceFile{}, services.Wrap(services.ErrValidation, component, "add file", "name is empty", nil)
	}
	if r == nil {
		return catalog.SourceFile{}, services.Wrap(services.ErrValidation, component, "add file", "no content", nil)
	}

	limit := s.cfg.MaxUploadBytes()
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return catalog.SourceFile{}, services.Wrap(services.ErrValidation, component, "add file", "read upload", err)
	}
	if int64(len(data)) > limit {
		return catalog.SourceFile{}, services.Wrap(services.ErrValidation, component, "add file",
			fmt.Sprintf("upload exceeds %d MiB", s.cfg.Server.MaxUploadMiB), nil)
	}

	duration, err := s.transcoder.Probe(ctx, name, data)
	if err != nil {
		return catalog.SourceFile{}, err
	}

	file := catalog.SourceFile{
		ID:        uuid.NewString(),
		Name:      name,
		Duration:  duration,
		MimeType:  resolveMimeType(name, mimeType),
		SizeBytes: int64(len(data)),
		CreatedAt: s.now().UTC(),
	}
	if _, err := s.raw.Store(ctx, file.ID, bytes.NewReader(data)); err != nil {
		return catalog.SourceFile{}, err
	}
	if err := s.store.CreateFile(ctx, file); err != nil {
		if delErr := s.raw.Delete(context.WithoutCancel(ctx), file.ID); delErr != nil {
			logging.WarnWithContext(s.logger, "raw bytes left behind after failed ingestion", "ingest_rollback_failed",
				logging.String(logging.FieldFileID, file.ID),
				logging.Error(delErr),
				logging.String(logging.FieldErrorHint, "remove the orphaned file from files_dir"),
				logging.String(logging.FieldImpact, "disk space is held by an unreferenced file"))
		}
		return catalog.SourceFile{}, services.Wrap(nil, component, "add file", "record file", err)
	}

	logging.WithContext(ctx, s.logger).Info("file ingested",
		logging.String(logging.FieldFileID, file.ID),
		logging.String("name", file.Name),
		logging.Float64("duration", file.Duration),
		logging.Int64("size_bytes", file.SizeBytes))
	return file, nil
}

func resolveMimeType(name, declared string) string {
	declared = strings.TrimSpace(declared)
	if declared != "" {
		if mediaType, _, err := mime.ParseMediaType(declared); err == nil {
			return mediaType
		}
	}
	if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(name))); byExt != "" {
		if mediaType, _, err := mime.ParseMediaType(byExt); err == nil {
			return mediaType
		}
	}
	return defaultMimeType
}

// ListFiles returns file records matching filter, oldest first.
func (s *Service) ListFiles(ctx context.Context, filter catalog.FileFilter) ([]catalog.SourceFile, error) {
	filter.Name = textutil.NormalizeName(filter.Name)
	files, err := s.store.ListFiles(ctx, filter)
	if err != nil {
		return nil, services.Wrap(nil, component, "list files", "query", err)
	}
	return files, nil
}

// FileInfo returns the record for id.
func (s *Service) FileInfo(ctx context.Context, id string) (catalog.SourceFile, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return catalog.SourceFile{}, services.Wrap(services.ErrValidation, component, "file info", "file id is empty", nil)
	}
	file, err := s.store.GetFile(ctx, id)
	if err != nil {
		return catalog.SourceFile{}, services.Wrap(nil, component, "file info", "lookup file", err)
	}
	if file == nil {
		return catalog.SourceFile{}, services.Wrap(services.ErrNotFound, component, "file info", "file "+id, nil)
	}
	return *file, nil
}

// Download returns the record for id and a reader over its stored bytes. The
// caller closes the reader.
func (s *Service) Download(ctx context.Context, id string) (catalog.SourceFile, io.ReadCloser, error) {
	file, err := s.FileInfo(ctx, id)
	if err != nil {
		return catalog.SourceFile{}, nil, err
	}
	rc, _, err := s.raw.Open(ctx, file.ID)
	if err != nil {
		return catalog.SourceFile{}, nil, services.Wrap(services.ErrSourceUnavailable, component, "download", "file "+file.ID, err)
	}
	return file, rc, nil
}

// ClipFiles returns the source file records the given clips refer to, keyed by
// file ID.
func (s *Service) ClipFiles(ctx context.Context, clips []catalog.Clip) (map[string]catalog.SourceFile, error) {
	files := make(map[string]catalog.SourceFile)
	for _, clip := range clips {
		if _, ok := files[clip.FileID]; ok {
			continue
		}
		file, err := s.FileInfo(ctx, clip.FileID)
		if err != nil {
			return nil, err
		}
		files[file.ID] = file
	}
	return files, nil
}
