package transcode

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"audioserver/internal/catalog"
	"audioserver/internal/media/ffprobe"
)

var errNoExternalDecoder = errors.New("no ffmpeg binary configured")

// decodeExternal pipes the source through ffmpeg. The sample rate and channel
// count come from ffprobe so that ffmpeg neither resamples nor remixes, and
// atrim cuts the exact frame window.
func (t *Transcoder) decodeExternal(ctx context.Context, data []byte, rng catalog.Range) (PCM, error) {
	if t.ffmpeg == "" {
		return PCM{}, errNoExternalDecoder
	}
	stream, err := t.inspectExternal(ctx, data)
	if err != nil {
		return PCM{}, err
	}
	out := PCM{SampleRate: stream.SampleRateHz(), Channels: stream.Channels}
	if out.SampleRate <= 0 || out.Channels <= 0 {
		return PCM{}, fmt.Errorf("ffprobe: audio stream lacks sample rate or channel count")
	}
	startFrame, stopFrame := frameWindow(rng, out.SampleRate)

	args := []string{
		"-hide_banner", "-v", "error",
		"-i", "pipe:0",
		"-map", "0:a:0",
		"-af", fmt.Sprintf("atrim=start_sample=%d:end_sample=%d", startFrame, stopFrame),
		"-f", "s16le", "-acodec", "pcm_s16le",
		"-ac", strconv.Itoa(out.Channels),
		"-ar", strconv.Itoa(out.SampleRate),
		"-bitexact",
		"pipe:1",
	}
	pcm, err := t.runFFmpeg(ctx, data, args)
	if err != nil {
		return PCM{}, err
	}
	out.Data = pcm[:len(pcm)-len(pcm)%out.FrameSize()]
	if limit := (stopFrame - startFrame) * int64(out.FrameSize()); int64(len(out.Data)) > limit {
		out.Data = out.Data[:limit]
	}
	return out, nil
}

func (t *Transcoder) runFFmpeg(ctx context.Context, stdin []byte, args []string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, t.ffmpeg, args...)
	cmd.Stdin = bytes.NewReader(stdin)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("ffmpeg: %w", ctxErr)
		}
		return nil, fmt.Errorf("ffmpeg: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}

func (t *Transcoder) inspectExternal(ctx context.Context, data []byte) (ffprobe.Stream, error) {
	result, err := t.runFFprobe(ctx, data)
	if err != nil {
		return ffprobe.Stream{}, err
	}
	stream, ok := result.AudioStream()
	if !ok {
		return ffprobe.Stream{}, errors.New("ffprobe: no audio stream")
	}
	return stream, nil
}

func (t *Transcoder) runFFprobe(ctx context.Context, data []byte) (ffprobe.Result, error) {
	if t.ffprobe == "" {
		return ffprobe.Result{}, errors.New("no ffprobe binary configured")
	}
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return ffprobe.InspectReader(ctx, t.ffprobe, bytes.NewReader(data))
}

func (t *Transcoder) probeExternal(ctx context.Context, data []byte) (float64, error) {
	result, err := t.runFFprobe(ctx, data)
	if err != nil {
		return 0, err
	}
	if result.AudioStreamCount() == 0 {
		return 0, errors.New("ffprobe: no audio stream")
	}
	return result.DurationSeconds(), nil
}
