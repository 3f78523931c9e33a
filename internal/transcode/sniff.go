package transcode

import "bytes"

type sourceFormat int

const (
	formatUnknown sourceFormat = iota
	formatWAV
	formatMP3
)

func (f sourceFormat) String() string {
	switch f {
	case formatWAV:
		return "wav"
	case formatMP3:
		return "mp3"
	default:
		return "unknown"
	}
}

// sniff classifies raw bytes by their leading magic. Display names and MIME
// types are never consulted.
func sniff(data []byte) sourceFormat {
	switch {
	case len(data) >= 12 && bytes.Equal(data[0:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WAVE")):
		return formatWAV
	case len(data) >= 3 && bytes.Equal(data[0:3], []byte("ID3")):
		return formatMP3
	case len(data) >= 2 && isMPEGAudioSync(data[0], data[1]):
		return formatMP3
	default:
		return formatUnknown
	}
}

// isMPEGAudioSync reports an MPEG audio frame header: 11 sync bits set and a
// non-reserved layer. ADTS AAC shares the sync word but uses layer 0.
func isMPEGAudioSync(b0, b1 byte) bool {
	if b0 != 0xFF || b1&0xE0 != 0xE0 {
		return false
	}
	version := (b1 >> 3) & 0x03
	layer := (b1 >> 1) & 0x03
	return version != 0x01 && layer != 0x00
}
