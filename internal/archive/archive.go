// Package archive packages a clip set as an uncompressed tar stream.
//
// Entries follow the set's stored member order. Headers carry only the entry
// name, exact size, mode 0644, zero owner IDs and the Unix epoch as the
// modification time, so building the same set twice yields identical bytes.
package archive

import (
	"archive/tar"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"audioserver/internal/catalog"
	"audioserver/internal/logging"
	"audioserver/internal/services"
	"audioserver/internal/store"
	"audioserver/internal/transcode"
)

const (
	component = "archive"
	// ContentType is the media type of a built archive.
	ContentType = "application/tar"

	entryMode     = 0o644
	ustarNameSize = 100
)

// FileName returns the download file name for a set's archive.
func FileName(setID string) string {
	return setID + ".tar"
}

// ClipSource loads clip records in the order requested.
type ClipSource interface {
	GetClips(ctx context.Context, ids []string) ([]catalog.Clip, error)
}

// Materializer renders one clip as a fragment.
type Materializer interface {
	Materialize(ctx context.Context, clip catalog.Clip) (transcode.Fragment, error)
}

// Builder streams clip-set archives.
type Builder struct {
	clips  ClipSource
	frags  Materializer
	logger *slog.Logger
}

// NewBuilder constructs a Builder.
func NewBuilder(clips ClipSource, frags Materializer, logger *slog.Logger) *Builder {
	return &Builder{
		clips:  clips,
		frags:  frags,
		logger: logging.NewComponentLogger(logger, component),
	}
}

// Build writes the archive for set to w. Only one fragment is held in memory
// at a time. The first fragment that fails aborts the build with its error;
// bytes already written to w are not retracted.
func (b *Builder) Build(ctx context.Context, w io.Writer, set catalog.ClipSet) error {
	clips, err := b.clips.GetClips(ctx, set.ClipIDs)
	if err != nil {
		if errors.Is(err, store.ErrUnknownReference) {
			return services.Wrap(services.ErrNotFound, component, "build", "set "+set.ID+" references an unknown clip", err)
		}
		return services.Wrap(nil, component, "build", "load clips", err)
	}

	logger := logging.WithContext(ctx, b.logger).With(logging.String(logging.FieldSetID, set.ID))
	started := time.Now()
	tw := tar.NewWriter(w)
	var total int64
	for i, clip := range clips {
		if err := ctx.Err(); err != nil {
			return err
		}
		frag, err := b.frags.Materialize(ctx, clip)
		if err != nil {
			logger.Warn("archive build aborted",
				logging.String(logging.FieldEventType, "archive_member_failed"),
				logging.String(logging.FieldClipID, clip.ID),
				logging.Int("position", i),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check that the source file bytes are present and decodable"),
				logging.String(logging.FieldImpact, "the archive response is incomplete"))
			return err
		}
		if err := tw.WriteHeader(entryHeader(frag.Name, int64(len(frag.Data)))); err != nil {
			return fmt.Errorf("archive: write header %s: %w", frag.Name, err)
		}
		if _, err := tw.Write(frag.Data); err != nil {
			return fmt.Errorf("archive: write entry %s: %w", frag.Name, err)
		}
		total += int64(len(frag.Data))
	}
	if err := tw.Close(); err != nil {
		return fmt.Errorf("archive: finish: %w", err)
	}
	logger.Info("archive built",
		logging.Int("entries", len(clips)),
		logging.Int64("payload_bytes", total),
		logging.Duration("elapsed", time.Since(started)))
	return nil
}

func entryHeader(name string, size int64) *tar.Header {
	format := tar.FormatUSTAR
	if len(name) > ustarNameSize || !isASCII(name) {
		format = tar.FormatPAX
	}
	return &tar.Header{
		Typeflag: tar.TypeReg,
		Name:     name,
		Size:     size,
		Mode:     entryMode,
		ModTime:  time.Unix(0, 0),
		Format:   format,
	}
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}
