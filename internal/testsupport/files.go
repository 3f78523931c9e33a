package testsupport

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// WAVBytes encodes seconds of a 16-bit PCM tone at the given sample rate and
// channel count. Each channel carries a different frequency so channel order
// is observable in tests.
func WAVBytes(t testing.TB, sampleRate, channels int, seconds float64) []byte {
	t.Helper()

	frames := int(math.Round(seconds * float64(sampleRate)))
	data := make([]int, frames*channels)
	for i := 0; i < frames; i++ {
		for ch := 0; ch < channels; ch++ {
			freq := 220.0 * float64(ch+1)
			v := math.Sin(2 * math.Pi * freq * float64(i) / float64(sampleRate))
			data[i*channels+ch] = int(v * 12000)
		}
	}

	path := filepath.Join(t.TempDir(), "fixture.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create wav fixture: %v", err)
	}
	enc := wav.NewEncoder(f, sampleRate, 16, channels, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		_ = f.Close()
		t.Fatalf("encode wav fixture: %v", err)
	}
	if err := enc.Close(); err != nil {
		_ = f.Close()
		t.Fatalf("finalize wav fixture: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close wav fixture: %v", err)
	}

	out, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read wav fixture: %v", err)
	}
	return out
}
