package clipstore

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"audioserver/internal/catalog"
	"audioserver/internal/logging"
	"audioserver/internal/services"
	"audioserver/internal/testsupport"
)

func newTestStore(t *testing.T) (*Store, catalog.SourceFile) {
	t.Helper()
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	file := testsupport.AddFile(t, st, "a.mp3", 120)
	return New(st, logging.NewNop()), file
}

func TestResolveIsIdempotent(t *testing.T) {
	s, file := newTestStore(t)
	ctx := context.Background()

	first, err := s.Resolve(ctx, file.ID, 12.34, 22.34)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	second, err := s.Resolve(ctx, file.ID, 12.34, 22.34)
	if err != nil {
		t.Fatalf("second Resolve failed: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("expected same clip, got %s and %s", first.ID, second.ID)
	}
	if first.FileID != file.ID || first.Range != (catalog.Range{StartMs: 12340, StopMs: 22340}) {
		t.Fatalf("unexpected clip: %#v", first)
	}
}

func TestResolveNormalizesToMilliseconds(t *testing.T) {
	s, file := newTestStore(t)
	ctx := context.Background()

	a, err := s.Resolve(ctx, file.ID, 1.0, 2.0)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	b, err := s.Resolve(ctx, file.ID, 1.0000001, 1.9999999)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if a.ID != b.ID {
		t.Fatalf("expected offsets within rounding to share identity, got %s and %s", a.ID, b.ID)
	}
}

func TestResolveConcurrentSameTriple(t *testing.T) {
	s, file := newTestStore(t)
	ctx := context.Background()

	const workers = 12
	ids := make([]string, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			clip, err := s.Resolve(ctx, file.ID, 5, 15)
			if err != nil {
				t.Errorf("Resolve %d: %v", i, err)
				return
			}
			ids[i] = clip.ID
		}(i)
	}
	wg.Wait()
	for _, id := range ids[1:] {
		if id != ids[0] {
			t.Fatalf("expected a single identity, got %v", ids)
		}
	}
	if s.locks.Len() != 0 {
		t.Fatalf("expected lock table to drain, have %d", s.locks.Len())
	}
}

func TestResolveRejectsInvalidRanges(t *testing.T) {
	s, file := newTestStore(t)
	ctx := context.Background()

	tests := []struct {
		name        string
		start, stop float64
	}{
		{"start equals stop", 10, 10},
		{"start after stop", 20, 10},
		{"negative start", -1, 10},
		{"stop beyond duration", 115, 120.01},
		{"nan start", math.NaN(), 10},
		{"inf stop", 0, math.Inf(1)},
		{"start slightly negative", -0.0004, 10},
		{"stop slightly past end", 110, 120.0004},
		{"start equals stop before rounding", 5.0004, 5.0004},
		{"stop rounds onto start", 5.0004, 5.0001},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Resolve(ctx, file.ID, tt.start, tt.stop)
			if !errors.Is(err, services.ErrInvalidRange) {
				t.Fatalf("expected ErrInvalidRange, got %v", err)
			}
		})
	}
}

func TestResolveAcceptsFullDuration(t *testing.T) {
	s, file := newTestStore(t)
	if _, err := s.Resolve(context.Background(), file.ID, 0, 120); err != nil {
		t.Fatalf("expected whole-file clip to resolve, got %v", err)
	}
}

func TestResolveUnknownFile(t *testing.T) {
	s, _ := newTestStore(t)
	_, err := s.Resolve(context.Background(), "missing", 0, 1)
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
