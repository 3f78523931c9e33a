package transcode

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"audioserver/internal/catalog"
)

const (
	wavFormatPCM        = 1
	wavFormatExtensible = 0xFFFE
	wavChunkFrames      = 4096
)

var errUnsupportedEncoding = errors.New("unsupported sample encoding")

func openWAV(data []byte) (*wav.Decoder, error) {
	d := wav.NewDecoder(bytes.NewReader(data))
	if !d.IsValidFile() {
		return nil, errors.New("wav header: not a valid wav file")
	}
	if d.WavAudioFormat != wavFormatPCM && d.WavAudioFormat != wavFormatExtensible {
		return nil, fmt.Errorf("wav format tag %#x: %w", d.WavAudioFormat, errUnsupportedEncoding)
	}
	switch d.BitDepth {
	case 8, 16, 24, 32:
	default:
		return nil, fmt.Errorf("wav bit depth %d: %w", d.BitDepth, errUnsupportedEncoding)
	}
	if d.NumChans == 0 || d.SampleRate == 0 {
		return nil, errors.New("wav header: zero channels or sample rate")
	}
	return d, nil
}

// decodeWAV streams the source in fixed-size chunks and keeps only the frames
// inside rng, so memory is bounded by the clip rather than the file.
func decodeWAV(data []byte, rng catalog.Range) (PCM, error) {
	d, err := openWAV(data)
	if err != nil {
		return PCM{}, err
	}
	channels := int(d.NumChans)
	depth := int(d.BitDepth)
	out := PCM{SampleRate: int(d.SampleRate), Channels: channels}

	startFrame, stopFrame := frameWindow(rng, out.SampleRate)
	if stopFrame > startFrame {
		out.Data = make([]byte, 0, (stopFrame-startFrame)*int64(out.FrameSize()))
	}

	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: out.SampleRate},
		Data:           make([]int, wavChunkFrames*channels),
		SourceBitDepth: depth,
	}
	var frame int64
	var sample [2]byte
	for frame < stopFrame {
		n, err := d.PCMBuffer(buf)
		frames := n / channels
		for i := 0; i < frames && frame+int64(i) < stopFrame; i++ {
			if frame+int64(i) < startFrame {
				continue
			}
			for c := 0; c < channels; c++ {
				binary.LittleEndian.PutUint16(sample[:], uint16(to16(buf.Data[i*channels+c], depth)))
				out.Data = append(out.Data, sample[:]...)
			}
		}
		frame += int64(frames)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				break
			}
			return PCM{}, fmt.Errorf("wav samples: %w", err)
		}
		if n == 0 {
			break
		}
	}
	return out, nil
}

// to16 rescales one integer sample of the given bit depth to signed 16 bits.
// 8-bit WAV samples are unsigned with a midpoint of 128.
func to16(v, depth int) int16 {
	switch depth {
	case 8:
		return int16((v - 128) << 8)
	case 24:
		return int16(v >> 8)
	case 32:
		return int16(v >> 16)
	default:
		return int16(v)
	}
}

func probeWAV(data []byte) (float64, error) {
	d, err := openWAV(data)
	if err != nil {
		return 0, err
	}
	dur, err := d.Duration()
	if err != nil {
		return 0, fmt.Errorf("wav duration: %w", err)
	}
	return dur.Seconds(), nil
}
