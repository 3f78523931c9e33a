package archivecache

import (
	"errors"
	"io"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
)

func TestFillThenOpen(t *testing.T) {
	cache := NewCache(filepath.Join(t.TempDir(), "archives"), nil)
	setID := uuid.NewString()

	written, err := cache.Fill(setID, func(w io.Writer) error {
		_, err := w.Write([]byte("tarbytes"))
		return err
	})
	if err != nil {
		t.Fatalf("Fill failed: %v", err)
	}
	if written != 8 {
		t.Fatalf("expected 8 bytes, got %d", written)
	}

	rc, size, ok, err := cache.Open(setID)
	if err != nil || !ok {
		t.Fatalf("Open: ok=%v err=%v", ok, err)
	}
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	if size != 8 || string(data) != "tarbytes" {
		t.Fatalf("unexpected cached archive %q (size %d)", data, size)
	}
}

func TestOpenMiss(t *testing.T) {
	cache := NewCache(t.TempDir(), nil)
	_, _, ok, err := cache.Open(uuid.NewString())
	if err != nil || ok {
		t.Fatalf("expected miss, got ok=%v err=%v", ok, err)
	}
}

func TestFailedFillLeavesNoEntry(t *testing.T) {
	cache := NewCache(t.TempDir(), nil)
	setID := uuid.NewString()
	boom := errors.New("boom")

	if _, err := cache.Fill(setID, func(w io.Writer) error {
		_, _ = w.Write([]byte("partial"))
		return boom
	}); !errors.Is(err, boom) {
		t.Fatalf("expected build error, got %v", err)
	}
	if _, _, ok, _ := cache.Open(setID); ok {
		t.Fatal("expected no cached archive after failed build")
	}
	entries, err := cache.List()
	if err != nil || len(entries) != 0 {
		t.Fatalf("expected empty listing, got %v (err=%v)", entries, err)
	}
}

func TestDisabledCacheIsNoop(t *testing.T) {
	cache := NewCache("", nil)
	if cache.Enabled() {
		t.Fatal("expected disabled cache")
	}
	if _, _, ok, err := cache.Open(uuid.NewString()); ok || err != nil {
		t.Fatalf("expected silent miss, got ok=%v err=%v", ok, err)
	}
	if _, err := cache.Fill(uuid.NewString(), func(io.Writer) error { return nil }); err == nil {
		t.Fatal("expected Fill to refuse on disabled cache")
	}
	if entries, err := cache.List(); entries != nil || err != nil {
		t.Fatalf("expected empty listing, got %v (err=%v)", entries, err)
	}
}

func TestRejectsNonUUID(t *testing.T) {
	cache := NewCache(t.TempDir(), nil)
	if _, _, _, err := cache.Open("../escape"); err == nil {
		t.Fatal("expected invalid set id error")
	}
}

func TestListAndClear(t *testing.T) {
	cache := NewCache(t.TempDir(), nil)
	for i := 0; i < 3; i++ {
		if _, err := cache.Fill(uuid.NewString(), func(w io.Writer) error {
			_, err := w.Write([]byte("x"))
			return err
		}); err != nil {
			t.Fatalf("Fill: %v", err)
		}
	}
	entries, err := cache.List()
	if err != nil || len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d (err=%v)", len(entries), err)
	}
	if err := cache.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if entries, _ := cache.List(); len(entries) != 0 {
		t.Fatalf("expected empty cache, got %d", len(entries))
	}
}
