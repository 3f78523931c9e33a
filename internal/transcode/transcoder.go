package transcode

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"audioserver/internal/catalog"
	"audioserver/internal/config"
	"audioserver/internal/logging"
	"audioserver/internal/services"
)

const (
	component      = "transcode"
	defaultTimeout = 60 * time.Second
)

// Fetcher returns the raw bytes stored for a file identifier.
type Fetcher interface {
	Fetch(ctx context.Context, id string) ([]byte, error)
}

// FileLookup resolves file records. A nil record with a nil error means the
// file is unknown.
type FileLookup interface {
	GetFile(ctx context.Context, id string) (*catalog.SourceFile, error)
}

// Fragment is one materialized clip.
type Fragment struct {
	Name string
	Data []byte
}

// Options configures a Transcoder. Empty binaries disable the ffmpeg path.
type Options struct {
	FFmpegBinary  string
	FFprobeBinary string
	Timeout       time.Duration
	Logger        *slog.Logger
}

// Transcoder materializes clips as WAV fragments.
type Transcoder struct {
	files   FileLookup
	fetcher Fetcher
	ffmpeg  string
	ffprobe string
	timeout time.Duration
	logger  *slog.Logger
}

// New constructs a Transcoder.
func New(files FileLookup, fetcher Fetcher, opts Options) *Transcoder {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Transcoder{
		files:   files,
		fetcher: fetcher,
		ffmpeg:  strings.TrimSpace(opts.FFmpegBinary),
		ffprobe: strings.TrimSpace(opts.FFprobeBinary),
		timeout: timeout,
		logger:  logging.NewComponentLogger(opts.Logger, component),
	}
}

// NewFromConfig wires a Transcoder with the configured binaries and timeout.
func NewFromConfig(cfg *config.Config, files FileLookup, fetcher Fetcher, logger *slog.Logger) *Transcoder {
	return New(files, fetcher, Options{
		FFmpegBinary:  cfg.Transcode.FFmpegBinary,
		FFprobeBinary: cfg.Transcode.FFprobeBinary,
		Timeout:       cfg.TranscodeTimeout(),
		Logger:        logger,
	})
}

// Materialize fetches the clip's source and renders the fragment. A missing
// file record or raw bytes surface as services.ErrSourceUnavailable; bytes
// that cannot be decoded as services.ErrDecode.
func (t *Transcoder) Materialize(ctx context.Context, clip catalog.Clip) (Fragment, error) {
	file, err := t.files.GetFile(ctx, clip.FileID)
	if err != nil {
		return Fragment{}, services.Wrap(services.ErrSourceUnavailable, component, "materialize", "lookup file "+clip.FileID, err)
	}
	if file == nil {
		return Fragment{}, services.Wrap(services.ErrSourceUnavailable, component, "materialize", "file "+clip.FileID+" is not registered", nil)
	}

	data, err := t.fetcher.Fetch(ctx, file.ID)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Fragment{}, ctxErr
		}
		return Fragment{}, services.Wrap(services.ErrSourceUnavailable, component, "materialize", "fetch raw bytes for "+file.ID, err)
	}

	started := time.Now()
	out, err := t.Render(ctx, *file, data, clip.Range)
	if err != nil {
		return Fragment{}, err
	}
	name := catalog.FragmentName(file.Name, clip.Range)
	t.logger.Debug("clip materialized",
		logging.String(logging.FieldClipID, clip.ID),
		logging.String(logging.FieldFileID, file.ID),
		logging.String("fragment", name),
		logging.Int("size_bytes", len(out)),
		logging.Duration("elapsed", time.Since(started)))
	return Fragment{Name: name, Data: out}, nil
}

// Render decodes data, cuts rng and returns the WAV bytes. The frame window
// is clamped to the decoded length when the recorded duration overstates it.
func (t *Transcoder) Render(ctx context.Context, file catalog.SourceFile, data []byte, rng catalog.Range) ([]byte, error) {
	pcm, err := t.decode(ctx, data, rng)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, services.Wrap(services.ErrDecode, component, "render", "decode "+file.ID, err)
	}
	return EncodeWAV(pcm), nil
}

func (t *Transcoder) decode(ctx context.Context, data []byte, rng catalog.Range) (PCM, error) {
	format := sniff(data)
	var (
		pcm PCM
		err error
	)
	switch format {
	case formatWAV:
		pcm, err = decodeWAV(data, rng)
	case formatMP3:
		pcm, err = decodeMP3(data, rng)
	default:
		return t.decodeExternal(ctx, data, rng)
	}
	if err == nil || t.ffmpeg == "" {
		return pcm, err
	}
	t.logger.Debug("in-process decoder rejected source, trying ffmpeg",
		logging.String("format", format.String()),
		logging.Error(err))
	external, extErr := t.decodeExternal(ctx, data, rng)
	if extErr != nil {
		return PCM{}, errors.Join(err, extErr)
	}
	return external, nil
}

// Probe reports the playable duration of data in seconds.
func (t *Transcoder) Probe(ctx context.Context, name string, data []byte) (float64, error) {
	format := sniff(data)
	var (
		seconds float64
		err     error
	)
	switch format {
	case formatWAV:
		seconds, err = probeWAV(data)
	case formatMP3:
		seconds, err = probeMP3(data)
	default:
		err = errNoExternalDecoder
	}
	if err != nil && t.ffprobe != "" {
		var extErr error
		seconds, extErr = t.probeExternal(ctx, data)
		if extErr != nil {
			err = errors.Join(err, extErr)
		} else {
			err = nil
		}
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return 0, ctxErr
		}
		return 0, services.Wrap(services.ErrDecode, component, "probe", fmt.Sprintf("%q is not readable audio", name), err)
	}
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || catalog.Millis(seconds) <= 0 {
		return 0, services.Wrap(services.ErrDecode, component, "probe", fmt.Sprintf("%q has no playable duration", name), nil)
	}
	return seconds, nil
}
