package transcode

import (
	"bytes"
	"encoding/binary"
	"io"

	"audioserver/internal/catalog"
)

const (
	wavHeaderSize  = 44
	bytesPerSample = 2
)

// PCM holds interleaved signed 16-bit little-endian samples.
type PCM struct {
	SampleRate int
	Channels   int
	Data       []byte
}

// FrameSize returns the byte width of one interleaved frame.
func (p PCM) FrameSize() int {
	return p.Channels * bytesPerSample
}

// Frames returns the number of whole frames held.
func (p PCM) Frames() int64 {
	if p.FrameSize() == 0 {
		return 0
	}
	return int64(len(p.Data) / p.FrameSize())
}

// frameWindow maps a millisecond range to the half-open frame window it
// covers at the given sample rate.
func frameWindow(rng catalog.Range, sampleRate int) (int64, int64) {
	rate := int64(sampleRate)
	return rng.StartMs * rate / 1000, rng.StopMs * rate / 1000
}

// clampWindow bounds [start, stop) to [0, total).
func clampWindow(start, stop, total int64) (int64, int64) {
	if total >= 0 && stop > total {
		stop = total
	}
	if start < 0 {
		start = 0
	}
	if start > stop {
		start = stop
	}
	return start, stop
}

// WriteWAV writes p as a canonical PCM WAV: RIFF header, a 16-byte fmt chunk,
// and a single data chunk. No other chunks are emitted.
func WriteWAV(w io.Writer, p PCM) error {
	frameSize := p.FrameSize()
	dataLen := len(p.Data) - len(p.Data)%max(frameSize, 1)

	var hdr [wavHeaderSize]byte
	copy(hdr[0:4], "RIFF")
	binary.LittleEndian.PutUint32(hdr[4:8], uint32(36+dataLen))
	copy(hdr[8:12], "WAVE")
	copy(hdr[12:16], "fmt ")
	binary.LittleEndian.PutUint32(hdr[16:20], 16)
	binary.LittleEndian.PutUint16(hdr[20:22], 1)
	binary.LittleEndian.PutUint16(hdr[22:24], uint16(p.Channels))
	binary.LittleEndian.PutUint32(hdr[24:28], uint32(p.SampleRate))
	binary.LittleEndian.PutUint32(hdr[28:32], uint32(p.SampleRate*frameSize))
	binary.LittleEndian.PutUint16(hdr[32:34], uint16(frameSize))
	binary.LittleEndian.PutUint16(hdr[34:36], 16)
	copy(hdr[36:40], "data")
	binary.LittleEndian.PutUint32(hdr[40:44], uint32(dataLen))

	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}
	_, err := w.Write(p.Data[:dataLen])
	return err
}

// EncodeWAV returns p as WAV bytes.
func EncodeWAV(p PCM) []byte {
	var buf bytes.Buffer
	buf.Grow(wavHeaderSize + len(p.Data))
	_ = WriteWAV(&buf, p)
	return buf.Bytes()
}
