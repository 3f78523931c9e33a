package testsupport

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"audioserver/internal/catalog"
	"audioserver/internal/config"
	"audioserver/internal/store"
)

// MustOpenStore opens a store.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}

// AddFile inserts a file record with the given name and duration and returns it.
// No raw bytes are stored.
func AddFile(t testing.TB, st *store.Store, name string, duration float64) catalog.SourceFile {
	t.Helper()

	file := catalog.SourceFile{
		ID:        uuid.NewString(),
		Name:      name,
		Duration:  duration,
		MimeType:  "audio/wav",
		CreatedAt: time.Now().UTC(),
	}
	if err := st.CreateFile(context.Background(), file); err != nil {
		t.Fatalf("store.CreateFile: %v", err)
	}
	return file
}
