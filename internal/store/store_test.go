package store_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"

	"audioserver/internal/catalog"
	"audioserver/internal/store"
	"audioserver/internal/testsupport"
)

func TestOpenCreatesSchemaAndReopens(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	file := testsupport.AddFile(t, st, "a.mp3", 120)

	fetched, err := st.GetFile(ctx, file.ID)
	if err != nil {
		t.Fatalf("GetFile failed: %v", err)
	}
	if fetched == nil || fetched.Name != "a.mp3" || fetched.Duration != 120 {
		t.Fatalf("unexpected fetched file: %#v", fetched)
	}
	if err := st.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()
	again, err := reopened.GetFile(ctx, file.ID)
	if err != nil || again == nil {
		t.Fatalf("expected file after reopen, got %#v (err=%v)", again, err)
	}
}

func TestGetMissingReturnsNil(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	if file, err := st.GetFile(ctx, "missing"); err != nil || file != nil {
		t.Fatalf("expected nil file, got %#v (err=%v)", file, err)
	}
	if clip, err := st.GetClip(ctx, "missing"); err != nil || clip != nil {
		t.Fatalf("expected nil clip, got %#v (err=%v)", clip, err)
	}
	if set, err := st.GetSet(ctx, "missing"); err != nil || set != nil {
		t.Fatalf("expected nil set, got %#v (err=%v)", set, err)
	}
}

func TestListFilesFilters(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	testsupport.AddFile(t, st, "short.wav", 5)
	testsupport.AddFile(t, st, "long.wav", 300)
	testsupport.AddFile(t, st, "short.wav", 50)

	tests := []struct {
		name   string
		filter catalog.FileFilter
		want   int
	}{
		{"all", catalog.FileFilter{}, 3},
		{"by name", catalog.FileFilter{Name: "short.wav"}, 2},
		{"by duration", catalog.FileFilter{MaxDuration: 60}, 2},
		{"both", catalog.FileFilter{Name: "short.wav", MaxDuration: 10}, 1},
		{"none", catalog.FileFilter{Name: "nope"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			files, err := st.ListFiles(ctx, tt.filter)
			if err != nil {
				t.Fatalf("ListFiles failed: %v", err)
			}
			if len(files) != tt.want {
				t.Fatalf("expected %d files, got %d", tt.want, len(files))
			}
		})
	}
}

func TestListEligibleComparesMilliseconds(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	exact := testsupport.AddFile(t, st, "exact.wav", 10)
	rounded := testsupport.AddFile(t, st, "rounded.wav", 9.9996)
	testsupport.AddFile(t, st, "short.wav", 9.99)

	files, err := st.ListEligible(ctx, 10)
	if err != nil {
		t.Fatalf("ListEligible failed: %v", err)
	}
	got := map[string]bool{}
	for _, f := range files {
		got[f.ID] = true
	}
	if len(files) != 2 || !got[exact.ID] || !got[rounded.ID] {
		t.Fatalf("unexpected eligible files: %#v", files)
	}
}

func TestInsertClipConverges(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	file := testsupport.AddFile(t, st, "a.wav", 60)
	rng := catalog.Range{StartMs: 1000, StopMs: 2000}

	first, created, err := st.InsertClip(ctx, catalog.Clip{ID: uuid.NewString(), FileID: file.ID, Range: rng})
	if err != nil || !created {
		t.Fatalf("first insert: created=%v err=%v", created, err)
	}
	second, created, err := st.InsertClip(ctx, catalog.Clip{ID: uuid.NewString(), FileID: file.ID, Range: rng})
	if err != nil {
		t.Fatalf("second insert: %v", err)
	}
	if created {
		t.Fatal("expected second insert to reuse existing clip")
	}
	if second.ID != first.ID {
		t.Fatalf("expected same clip id, got %s and %s", first.ID, second.ID)
	}
}

func TestInsertClipConcurrent(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	file := testsupport.AddFile(t, st, "a.wav", 60)
	rng := catalog.Range{StartMs: 0, StopMs: 500}

	const workers = 8
	ids := make([]string, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			clip, _, err := st.InsertClip(ctx, catalog.Clip{ID: uuid.NewString(), FileID: file.ID, Range: rng})
			if err != nil {
				t.Errorf("insert %d: %v", i, err)
				return
			}
			ids[i] = clip.ID
		}(i)
	}
	wg.Wait()
	for i := 1; i < workers; i++ {
		if ids[i] != ids[0] {
			t.Fatalf("expected converged ids, got %v", ids)
		}
	}
	stats, err := st.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Clips != 1 {
		t.Fatalf("expected one clip row, got %d", stats.Clips)
	}
}

func TestInsertClipUnknownFile(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	_, _, err := st.InsertClip(context.Background(), catalog.Clip{
		ID:     uuid.NewString(),
		FileID: "missing",
		Range:  catalog.Range{StartMs: 0, StopMs: 10},
	})
	if !errors.Is(err, store.ErrUnknownReference) {
		t.Fatalf("expected ErrUnknownReference, got %v", err)
	}
}

func TestInsertSetPreservesOrderAndDeduplicatesByKey(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	file := testsupport.AddFile(t, st, "a.wav", 60)

	var ids []string
	for i := int64(0); i < 3; i++ {
		clip, _, err := st.InsertClip(ctx, catalog.Clip{
			ID:     uuid.NewString(),
			FileID: file.ID,
			Range:  catalog.Range{StartMs: i * 1000, StopMs: i*1000 + 500},
		})
		if err != nil {
			t.Fatalf("InsertClip: %v", err)
		}
		ids = append(ids, clip.ID)
	}
	ordered := []string{ids[2], ids[0], ids[1]}

	set, created, err := st.InsertSet(ctx, catalog.ClipSet{
		ID:            uuid.NewString(),
		ClipIDs:       ordered,
		MembershipKey: catalog.MembershipKey(ordered),
	})
	if err != nil || !created {
		t.Fatalf("InsertSet: created=%v err=%v", created, err)
	}
	for i := range ordered {
		if set.ClipIDs[i] != ordered[i] {
			t.Fatalf("expected order %v, got %v", ordered, set.ClipIDs)
		}
	}

	again, created, err := st.InsertSet(ctx, catalog.ClipSet{
		ID:            uuid.NewString(),
		ClipIDs:       ids,
		MembershipKey: catalog.MembershipKey(ids),
	})
	if err != nil {
		t.Fatalf("second InsertSet: %v", err)
	}
	if created || again.ID != set.ID {
		t.Fatalf("expected existing set %s, got %s (created=%v)", set.ID, again.ID, created)
	}
	if again.ClipIDs[0] != ordered[0] {
		t.Fatalf("expected stored order retained, got %v", again.ClipIDs)
	}

	sets, err := st.ListSets(ctx)
	if err != nil {
		t.Fatalf("ListSets: %v", err)
	}
	if len(sets) != 1 || len(sets[0].ClipIDs) != 3 {
		t.Fatalf("unexpected sets: %#v", sets)
	}
}

func TestInsertEmptySet(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	set, created, err := st.InsertSet(ctx, catalog.ClipSet{
		ID:            uuid.NewString(),
		MembershipKey: catalog.MembershipKey(nil),
	})
	if err != nil || !created {
		t.Fatalf("InsertSet: created=%v err=%v", created, err)
	}
	fetched, err := st.GetSet(ctx, set.ID)
	if err != nil || fetched == nil {
		t.Fatalf("GetSet: %#v err=%v", fetched, err)
	}
	if len(fetched.ClipIDs) != 0 {
		t.Fatalf("expected no members, got %v", fetched.ClipIDs)
	}
}

func TestInsertSetUnknownClipRollsBack(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	ids := []string{"missing"}
	_, _, err := st.InsertSet(ctx, catalog.ClipSet{
		ID:            uuid.NewString(),
		ClipIDs:       ids,
		MembershipKey: catalog.MembershipKey(ids),
	})
	if !errors.Is(err, store.ErrUnknownReference) {
		t.Fatalf("expected ErrUnknownReference, got %v", err)
	}
	if set, _ := st.FindSetByMembership(ctx, catalog.MembershipKey(ids)); set != nil {
		t.Fatalf("expected rollback, found %#v", set)
	}
}

func TestGetClipsKeepsRequestedOrder(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	file := testsupport.AddFile(t, st, "a.wav", 60)

	a, _, _ := st.InsertClip(ctx, catalog.Clip{ID: uuid.NewString(), FileID: file.ID, Range: catalog.Range{StartMs: 0, StopMs: 10}})
	b, _, _ := st.InsertClip(ctx, catalog.Clip{ID: uuid.NewString(), FileID: file.ID, Range: catalog.Range{StartMs: 10, StopMs: 20}})

	clips, err := st.GetClips(ctx, []string{b.ID, a.ID})
	if err != nil {
		t.Fatalf("GetClips: %v", err)
	}
	if clips[0].ID != b.ID || clips[1].ID != a.ID {
		t.Fatalf("unexpected order: %#v", clips)
	}
	if _, err := st.GetClips(ctx, []string{a.ID, "missing"}); !errors.Is(err, store.ErrUnknownReference) {
		t.Fatalf("expected ErrUnknownReference, got %v", err)
	}
}
