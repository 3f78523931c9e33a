package ffprobe

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestResultHelpers(t *testing.T) {
	result := Result{
		Streams: []Stream{
			{CodecType: "audio"},
			{CodecType: "audio"},
			{CodecType: "data"},
		},
		Format: Format{
			Duration: "123.45",
		},
	}
	if result.AudioStreamCount() != 2 {
		t.Fatalf("expected 2 audio streams, got %d", result.AudioStreamCount())
	}
	if result.DurationSeconds() != 123.45 {
		t.Fatalf("unexpected duration: %v", result.DurationSeconds())
	}
}

func TestDurationFallsBackToAudioStream(t *testing.T) {
	result := Result{
		Streams: []Stream{
			{CodecType: "audio", Duration: "12.5"},
			{CodecType: "audio", Duration: "14.25"},
		},
	}
	if got := result.DurationSeconds(); got != 14.25 {
		t.Fatalf("expected stream duration fallback, got %v", got)
	}
}

func TestResultHelpersHandleInvalidNumbers(t *testing.T) {
	result := Result{
		Format:  Format{Duration: "bad"},
		Streams: []Stream{{CodecType: "audio", SampleRate: "n/a"}},
	}
	if !math.IsNaN(result.DurationSeconds()) {
		t.Fatalf("expected duration NaN, got %v", result.DurationSeconds())
	}
	if rate := result.Streams[0].SampleRateHz(); rate != 0 {
		t.Fatalf("expected sample rate 0, got %d", rate)
	}
}

func TestInspectReaderWithStubBinary(t *testing.T) {
	dir := t.TempDir()
	stub := filepath.Join(dir, "ffprobe")
	script := "#!/bin/sh\ncat >/dev/null\necho '{\"streams\":[{\"codec_type\":\"audio\",\"channels\":2}],\"format\":{\"duration\":\"3.5\"}}'\n"
	if err := os.WriteFile(stub, []byte(script), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}

	result, err := InspectReader(context.Background(), stub, strings.NewReader("payload"))
	if err != nil {
		t.Fatalf("InspectReader failed: %v", err)
	}
	if result.DurationSeconds() != 3.5 || result.AudioStreamCount() != 1 {
		t.Fatalf("unexpected result: %#v", result)
	}
	stream, ok := result.AudioStream()
	if !ok || stream.Channels != 2 || stream.SampleRateHz() != 0 {
		t.Fatalf("unexpected audio stream: %#v", stream)
	}
}

func TestInspectReportsFailure(t *testing.T) {
	dir := t.TempDir()
	stub := filepath.Join(dir, "ffprobe")
	if err := os.WriteFile(stub, []byte("#!/bin/sh\necho 'Invalid data' >&2\nexit 1\n"), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	_, err := InspectReader(context.Background(), stub, strings.NewReader("payload"))
	if err == nil || !strings.Contains(err.Error(), "Invalid data") {
		t.Fatalf("expected stderr in error, got %v", err)
	}
}
