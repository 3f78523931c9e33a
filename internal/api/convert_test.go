package api

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"audioserver/internal/catalog"
	"audioserver/internal/deps"
)

func TestFromClipRendersCanonicalOffsets(t *testing.T) {
	file := catalog.SourceFile{ID: "f1", Name: "a.mp3", Duration: 120}
	clip := catalog.Clip{ID: "c1", FileID: "f1", Range: catalog.Range{StartMs: 12300, StopMs: 13300}}

	dto := FromClip(clip, &file)
	if dto.Start != "12.30" || dto.Stop != "13.30" {
		t.Fatalf("unexpected offsets %q-%q", dto.Start, dto.Stop)
	}
	if dto.Fragment != "a_12.30_13.30.wav" {
		t.Fatalf("unexpected fragment name %q", dto.Fragment)
	}
	if bare := FromClip(clip, nil); bare.Fragment != "" || bare.FileName != "" {
		t.Fatalf("expected no naming without a file, got %+v", bare)
	}
}

func TestFromClipSetKeepsOrderAndNames(t *testing.T) {
	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	set := catalog.ClipSet{ID: "s1", ClipIDs: []string{"c2", "c1"}, CreatedAt: created}
	clips := []catalog.Clip{
		{ID: "c2", FileID: "f1", Range: catalog.Range{StartMs: 0, StopMs: 500}},
		{ID: "c1", FileID: "missing", Range: catalog.Range{StartMs: 100, StopMs: 600}},
	}
	files := map[string]catalog.SourceFile{"f1": {ID: "f1", Name: "tone.wav"}}

	dto := FromClipSet(set, clips, files)
	if dto.ArchiveName != "s1.tar" {
		t.Fatalf("unexpected archive name %q", dto.ArchiveName)
	}
	if dto.CreatedAt != "2024-03-01T12:00:00.000Z" {
		t.Fatalf("unexpected timestamp %q", dto.CreatedAt)
	}
	if len(dto.Clips) != 2 || dto.Clips[0].ID != "c2" || dto.Clips[0].FileName != "tone.wav" {
		t.Fatalf("unexpected clips %+v", dto.Clips)
	}
	if dto.Clips[1].Fragment != "" {
		t.Fatalf("expected unnamed clip for unknown file, got %q", dto.Clips[1].Fragment)
	}
}

func TestEmptySetEncodesEmptyArray(t *testing.T) {
	payload, err := json.Marshal(FromClipSet(catalog.ClipSet{ID: "s"}, nil, nil))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(payload), `"clipIds":[]`) {
		t.Fatalf("expected empty clipIds array, got %s", payload)
	}
}

func TestFromDependencies(t *testing.T) {
	out := FromDependencies([]deps.Status{{Name: "FFmpeg", Available: true, Version: "ffmpeg version 7"}})
	if len(out) != 1 || !out[0].Available || out[0].Version != "ffmpeg version 7" {
		t.Fatalf("unexpected conversion %+v", out)
	}
}
