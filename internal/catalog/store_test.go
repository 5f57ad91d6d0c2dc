package catalog

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestOpenMissingSnapshotStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "episodes.json")

	store, err := Open(path, nil)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if store.Len() != 0 {
		t.Fatalf("expected empty store, got %d entries", store.Len())
	}
	if len(store.ProcessedPages()) != 0 {
		t.Fatalf("expected no processed pages, got %v", store.ProcessedPages())
	}
}

func TestPersistAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "episodes.json")

	store, err := Open(path, nil)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	added, err := store.Insert(Entry{URL: "https://example.com/episodes/one", Page: 1, Title: "One"})
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if !added {
		t.Fatal("expected entry to be added")
	}
	if _, err := store.Insert(Entry{URL: "https://example.com/episodes/two", Page: 1, Title: "Two"}); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	store.MarkPageProcessed(1)

	if err := store.Persist(); err != nil {
		t.Fatalf("Persist failed: %v", err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatal("temp snapshot should not remain after Persist")
	}

	reloaded, err := Open(path, nil)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	if reloaded.Len() != 2 {
		t.Fatalf("expected 2 entries after reload, got %d", reloaded.Len())
	}
	entry, ok := reloaded.Get("https://example.com/episodes/one")
	if !ok {
		t.Fatal("expected first entry to survive reload")
	}
	if entry.Title != "One" {
		t.Fatalf("unexpected title: %q", entry.Title)
	}
	if !reloaded.PageProcessed(1) {
		t.Fatal("expected page 1 to stay in the skip-set")
	}
	if reloaded.LastUpdated().IsZero() {
		t.Fatal("expected advisory timestamp after reload")
	}
}

func TestInsertDuplicateKeyIsNoop(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "episodes.json"), nil)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	if _, err := store.Insert(Entry{URL: "https://example.com/a", Page: 1, Title: "Original"}); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	added, err := store.Insert(Entry{URL: "https://example.com/a", Page: 2, Title: "Replacement"})
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if added {
		t.Fatal("duplicate insert should report false")
	}

	entry, _ := store.Get("https://example.com/a")
	if entry.Title != "Original" || entry.Page != 1 {
		t.Fatalf("duplicate insert must not overwrite: %+v", entry)
	}
}

func TestInsertEmptyKeyRejected(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "episodes.json"), nil)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if _, err := store.Insert(Entry{URL: "   "}); err == nil {
		t.Fatal("expected error for empty key")
	}
}

func TestMergeAppliesOnlyProvidedFields(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "episodes.json"), nil)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if _, err := store.Insert(Entry{URL: "https://example.com/a", Page: 1, Title: "Kept", Date: "2024-01-05"}); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	err = store.Merge("https://example.com/a", FieldUpdate{
		AudioLink: String("https://cdn.example.com/a.mp3"),
	})
	if err != nil {
		t.Fatalf("Merge failed: %v", err)
	}

	entry, _ := store.Get("https://example.com/a")
	if entry.AudioLink != "https://cdn.example.com/a.mp3" {
		t.Fatalf("unexpected audio link: %q", entry.AudioLink)
	}
	if entry.Title != "Kept" || entry.Date != "2024-01-05" {
		t.Fatalf("merge clobbered unrelated fields: %+v", entry)
	}
}

func TestMergeUnknownKey(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "episodes.json"), nil)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	err = store.Merge("https://example.com/missing", FieldUpdate{Title: String("x")})
	if !errors.Is(err, ErrUnknownEntry) {
		t.Fatalf("expected ErrUnknownEntry, got %v", err)
	}
}

func TestOpenDeduplicatesKeepingLatest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "episodes.json")
	snap := map[string]any{
		"episodes": []map[string]any{
			{"url": "https://example.com/a", "page": 1, "title": "Stale"},
			{"url": "https://example.com/b", "page": 1, "title": "B"},
			{"url": "https://example.com/a", "page": 1, "title": "Fresh", "audio_link": "https://cdn.example.com/a.mp3"},
		},
	}
	data, err := json.Marshal(snap)
	if err != nil {
		t.Fatalf("marshal fixture: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	store, err := Open(path, nil)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if store.Len() != 2 {
		t.Fatalf("expected duplicates collapsed to 2 entries, got %d", store.Len())
	}
	entry, _ := store.Get("https://example.com/a")
	if entry.Title != "Fresh" || entry.AudioLink == "" {
		t.Fatalf("expected most recently written duplicate to win: %+v", entry)
	}
	// Position order follows first discovery.
	if store.Entries()[0].URL != "https://example.com/a" {
		t.Fatalf("expected original position to be kept, got %q first", store.Entries()[0].URL)
	}
}

func TestOpenCorruptSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "episodes.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	_, err := Open(path, nil)
	if !errors.Is(err, ErrCorruptState) {
		t.Fatalf("expected ErrCorruptState, got %v", err)
	}
}

func TestPersistIsIdempotentForEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "episodes.json")
	store, err := Open(path, nil)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if _, err := store.Insert(Entry{URL: "https://example.com/a", Page: 1}); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := store.Persist(); err != nil {
		t.Fatalf("first Persist failed: %v", err)
	}

	first, err := Open(path, nil)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	if err := first.Persist(); err != nil {
		t.Fatalf("second Persist failed: %v", err)
	}
	second, err := Open(path, nil)
	if err != nil {
		t.Fatalf("second reopen failed: %v", err)
	}

	got := second.Entries()
	want := first.Entries()
	if len(got) != len(want) {
		t.Fatalf("entry count drifted: got %d want %d", len(got), len(want))
	}
	for i := range got {
		if got[i] != want[i] {
			t.Fatalf("entry %d drifted: got %+v want %+v", i, got[i], want[i])
		}
	}
}
