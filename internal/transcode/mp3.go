package transcode

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/hajimehoshi/go-mp3"

	"audioserver/internal/catalog"
)

// go-mp3 always emits 16-bit little-endian stereo.
const mp3Channels = 2

func decodeMP3(data []byte, rng catalog.Range) (PCM, error) {
	d, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return PCM{}, fmt.Errorf("mp3 stream: %w", err)
	}
	out := PCM{SampleRate: d.SampleRate(), Channels: mp3Channels}
	if out.SampleRate <= 0 {
		return PCM{}, errors.New("mp3 stream: zero sample rate")
	}
	frameSize := int64(out.FrameSize())

	total := int64(-1)
	if length := d.Length(); length >= 0 {
		total = length / frameSize
	}
	startFrame, stopFrame := frameWindow(rng, out.SampleRate)
	startFrame, stopFrame = clampWindow(startFrame, stopFrame, total)
	if stopFrame == startFrame {
		return out, nil
	}

	if _, err := d.Seek(startFrame*frameSize, io.SeekStart); err != nil {
		return PCM{}, fmt.Errorf("mp3 seek: %w", err)
	}
	buf := make([]byte, (stopFrame-startFrame)*frameSize)
	n, err := io.ReadFull(d, buf)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return PCM{}, fmt.Errorf("mp3 samples: %w", err)
	}
	out.Data = buf[:int64(n)-int64(n)%frameSize]
	return out, nil
}

func probeMP3(data []byte) (float64, error) {
	d, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return 0, fmt.Errorf("mp3 stream: %w", err)
	}
	rate := d.SampleRate()
	length := d.Length()
	if rate <= 0 || length < 0 {
		return 0, errors.New("mp3 stream: length unknown")
	}
	return float64(length/(mp3Channels*bytesPerSample)) / float64(rate), nil
}
