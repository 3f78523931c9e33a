package clipset_test

import (
	"archive/tar"
	"bytes"
	"context"
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"sync/atomic"
	"testing"

	"audioserver/internal/catalog"
	"audioserver/internal/clipset"
	"audioserver/internal/clipstore"
	"audioserver/internal/config"
	"audioserver/internal/logging"
	"audioserver/internal/services"
	"audioserver/internal/store"
	"audioserver/internal/testsupport"
)

type fixture struct {
	cfg   *config.Config
	store *store.Store
	svc   *clipset.Service
}

func newFixture(t *testing.T, opts ...testsupport.ConfigOption) fixture {
	t.Helper()
	cfg := testsupport.NewConfig(t, append([]testsupport.ConfigOption{testsupport.WithoutExternalTools()}, opts...)...)
	st := testsupport.MustOpenStore(t, cfg)
	svc, err := clipset.New(cfg, st, logging.NewNop())
	if err != nil {
		t.Fatalf("clipset.New: %v", err)
	}
	return fixture{cfg: cfg, store: st, svc: svc}
}

type tarEntry struct {
	name string
	data []byte
}

func readTar(t *testing.T, payload []byte) []tarEntry {
	t.Helper()
	tr := tar.NewReader(bytes.NewReader(payload))
	var entries []tarEntry
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return entries
		}
		if err != nil {
			t.Fatalf("read tar: %v", err)
		}
		data, err := io.ReadAll(tr)
		if err != nil {
			t.Fatalf("read tar entry: %v", err)
		}
		entries = append(entries, tarEntry{name: hdr.Name, data: data})
	}
}

type countingSampler struct {
	calls atomic.Int32
	clips []catalog.Clip
}

func (s *countingSampler) Sample(context.Context, int, float64) ([]catalog.Clip, error) {
	s.calls.Add(1)
	return s.clips, nil
}

func TestEndToEndArchive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	const rate = 8000
	file, err := f.svc.AddFile(ctx, "a.mp3", "audio/mpeg", bytes.NewReader(testsupport.WAVBytes(t, rate, 1, 120)))
	if err != nil {
		t.Fatalf("AddFile: %v", err)
	}
	if math.Abs(file.Duration-120) > 0.01 {
		t.Fatalf("expected 120s duration, got %v", file.Duration)
	}
	if file.MimeType != "audio/mpeg" {
		t.Fatalf("unexpected mime type %q", file.MimeType)
	}

	set, err := f.svc.RequestNewSet(ctx, 3, 1.0)
	if err != nil {
		t.Fatalf("RequestNewSet: %v", err)
	}
	if set.Len() != 3 {
		t.Fatalf("expected 3 clips, got %d", set.Len())
	}

	var first bytes.Buffer
	if err := f.svc.BuildArchive(ctx, &first, set); err != nil {
		t.Fatalf("BuildArchive: %v", err)
	}
	entries := readTar(t, first.Bytes())
	if len(entries) != 3 {
		t.Fatalf("expected 3 archive entries, got %d", len(entries))
	}
	clips, err := f.svc.SetClips(ctx, set)
	if err != nil {
		t.Fatalf("SetClips: %v", err)
	}
	namePattern := regexp.MustCompile(`^a_\d+\.\d{2}_\d+\.\d{2}\.wav$`)
	for i, entry := range entries {
		if !namePattern.MatchString(entry.name) {
			t.Fatalf("unexpected entry name %q", entry.name)
		}
		if want := catalog.FragmentName(file.Name, clips[i].Range); entry.name != want {
			t.Fatalf("entry %d: got %q want %q", i, entry.name, want)
		}
		if clips[i].Range.LengthMs() != 1000 {
			t.Fatalf("clip %d is %d ms long", i, clips[i].Range.LengthMs())
		}
		if want := 44 + rate*2; len(entry.data) != want {
			t.Fatalf("entry %d: expected %d bytes, got %d", i, want, len(entry.data))
		}
		if string(entry.data[:4]) != "RIFF" || string(entry.data[8:12]) != "WAVE" {
			t.Fatalf("entry %d is not a WAV file", i)
		}
	}

	var second bytes.Buffer
	if err := f.svc.BuildArchive(ctx, &second, set); err != nil {
		t.Fatalf("second BuildArchive: %v", err)
	}
	if !bytes.Equal(first.Bytes(), second.Bytes()) {
		t.Fatal("expected byte-identical archives")
	}
}

func TestRequestExistingSetDoesNotSample(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.svc.AddFile(ctx, "tone.wav", "", bytes.NewReader(testsupport.WAVBytes(t, 8000, 2, 10))); err != nil {
		t.Fatalf("AddFile: %v", err)
	}
	set, err := f.svc.RequestNewSet(ctx, 2, 0.5)
	if err != nil {
		t.Fatalf("RequestNewSet: %v", err)
	}

	sampler := &countingSampler{}
	other, err := clipset.New(f.cfg, f.store, logging.NewNop(), clipset.WithSampler(sampler))
	if err != nil {
		t.Fatalf("clipset.New: %v", err)
	}
	got, err := other.RequestExistingSet(ctx, set.ID)
	if err != nil {
		t.Fatalf("RequestExistingSet: %v", err)
	}
	if got.ID != set.ID || len(got.ClipIDs) != len(set.ClipIDs) {
		t.Fatalf("unexpected set %+v", got)
	}
	var buf bytes.Buffer
	if err := other.BuildArchive(ctx, &buf, got); err != nil {
		t.Fatalf("BuildArchive: %v", err)
	}
	if n := len(readTar(t, buf.Bytes())); n != 2 {
		t.Fatalf("expected 2 entries, got %d", n)
	}
	if calls := sampler.calls.Load(); calls != 0 {
		t.Fatalf("expected no sampling, got %d calls", calls)
	}

	if _, err := other.RequestExistingSet(ctx, "00000000-0000-0000-0000-000000000000"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRequestNewSetReusesPermutedMembership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	file := testsupport.AddFile(t, f.store, "long.wav", 60)
	resolver := clipstore.New(f.store, nil)

	var clips []catalog.Clip
	for _, start := range []float64{1, 10, 20} {
		clip, err := resolver.Resolve(ctx, file.ID, start, start+2)
		if err != nil {
			t.Fatalf("Resolve: %v", err)
		}
		clips = append(clips, clip)
	}

	sampler := &countingSampler{clips: clips}
	svc, err := clipset.New(f.cfg, f.store, logging.NewNop(), clipset.WithSampler(sampler))
	if err != nil {
		t.Fatalf("clipset.New: %v", err)
	}
	first, err := svc.RequestNewSet(ctx, 3, 2)
	if err != nil {
		t.Fatalf("RequestNewSet: %v", err)
	}
	sampler.clips = []catalog.Clip{clips[2], clips[0], clips[1], clips[0]}
	second, err := svc.RequestNewSet(ctx, 3, 2)
	if err != nil {
		t.Fatalf("RequestNewSet permuted: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("expected reuse of set %s, got %s", first.ID, second.ID)
	}
	for i, clip := range clips {
		if second.ClipIDs[i] != clip.ID {
			t.Fatalf("expected stored order to be preserved, got %v", second.ClipIDs)
		}
	}
	sets, err := svc.ListSets(ctx)
	if err != nil || len(sets) != 1 {
		t.Fatalf("expected exactly one stored set, got %d (err=%v)", len(sets), err)
	}
}

func TestRequestNewSetValidatesParameters(t *testing.T) {
	f := newFixture(t)
	tests := []struct {
		name   string
		count  int
		length float64
	}{
		{"zero count", 0, 1},
		{"negative count", -2, 1},
		{"count above max", f.cfg.Sampling.MaxClips + 1, 1},
		{"zero length", 3, 0},
		{"negative length", 3, -1},
		{"nan length", 3, math.NaN()},
		{"infinite length", 3, math.Inf(1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.RequestNewSet(context.Background(), tt.count, tt.length)
			if !errors.Is(err, services.ErrInvalidRange) {
				t.Fatalf("expected ErrInvalidRange, got %v", err)
			}
		})
	}
}

func TestRequestNewSetWithEmptyCorpus(t *testing.T) {
	f := newFixture(t)
	testsupport.AddFile(t, f.store, "short.wav", 0.5)

	set, err := f.svc.RequestNewSet(context.Background(), 4, 1)
	if err != nil {
		t.Fatalf("RequestNewSet: %v", err)
	}
	if set.Len() != 0 {
		t.Fatalf("expected empty set, got %d clips", set.Len())
	}
	var buf bytes.Buffer
	if err := f.svc.BuildArchive(context.Background(), &buf, set); err != nil {
		t.Fatalf("BuildArchive: %v", err)
	}
	if n := len(readTar(t, buf.Bytes())); n != 0 {
		t.Fatalf("expected empty archive, got %d entries", n)
	}
}

func TestBuildArchiveMissingSourceBytes(t *testing.T) {
	f := newFixture(t)
	testsupport.AddFile(t, f.store, "ghost.wav", 30)

	set, err := f.svc.RequestNewSet(context.Background(), 1, 1)
	if err != nil {
		t.Fatalf("RequestNewSet: %v", err)
	}
	err = f.svc.BuildArchive(context.Background(), io.Discard, set)
	if !errors.Is(err, services.ErrSourceUnavailable) {
		t.Fatalf("expected ErrSourceUnavailable, got %v", err)
	}
}

func TestBuildArchiveServesFromCache(t *testing.T) {
	f := newFixture(t, testsupport.WithArchiveCache())
	ctx := context.Background()
	if _, err := f.svc.AddFile(ctx, "tone.wav", "audio/wav", bytes.NewReader(testsupport.WAVBytes(t, 8000, 1, 5))); err != nil {
		t.Fatalf("AddFile: %v", err)
	}
	set, err := f.svc.RequestNewSet(ctx, 2, 1)
	if err != nil {
		t.Fatalf("RequestNewSet: %v", err)
	}

	var first bytes.Buffer
	if err := f.svc.BuildArchive(ctx, &first, set); err != nil {
		t.Fatalf("BuildArchive: %v", err)
	}
	if _, err := os.Stat(filepath.Join(f.cfg.Paths.ArchiveCacheDir, set.ID+".tar")); err != nil {
		t.Fatalf("expected cached archive: %v", err)
	}

	if err := os.RemoveAll(f.cfg.Paths.FilesDir); err != nil {
		t.Fatalf("remove raw files: %v", err)
	}
	var second bytes.Buffer
	if err := f.svc.BuildArchive(ctx, &second, set); err != nil {
		t.Fatalf("cached BuildArchive: %v", err)
	}
	if !bytes.Equal(first.Bytes(), second.Bytes()) {
		t.Fatal("expected cached archive to match the built one")
	}

	status, err := f.svc.Status(ctx)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !status.ArchiveCache || status.CachedArchives != 1 || status.Sets != 1 || status.Files != 1 {
		t.Fatalf("unexpected status %+v", status)
	}
}
