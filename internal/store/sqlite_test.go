package store_test

import (
	"errors"
	"path/filepath"
	"testing"

	"karolbroda.com/linesync/internal/lyrics"
	"karolbroda.com/linesync/internal/store"
)

func openStore(t *testing.T) *store.SQLite {
	t.Helper()
	s := store.NewSQLite(filepath.Join(t.TempDir(), "data", "lyrics.db"))
	if err := s.Open(); err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSetGet(t *testing.T) {
	s := openStore(t)

	in := &lyrics.Result{
		TrackName:    "Song",
		ArtistName:   "Band",
		Instrumental: false,
		SyncedLyrics: "[00:01.00]hi",
		SyncOffsetMs: -200,
		Source:       "local",
	}
	if err := s.Set("Band", "Song", in); err != nil {
		t.Fatalf("set: %v", err)
	}

	got, err := s.Get("  band ", "SONG")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.SyncedLyrics != in.SyncedLyrics || got.SyncOffsetMs != -200 || got.Source != "local" {
		t.Errorf("unexpected %+v", got)
	}
}

func TestGetMissing(t *testing.T) {
	s := openStore(t)
	if _, err := s.Get("x", "y"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSetReplaces(t *testing.T) {
	s := openStore(t)

	_ = s.Set("Band", "Song", &lyrics.Result{PlainLyrics: "old"})
	_ = s.Set("Band", "Song", &lyrics.Result{PlainLyrics: "new", Instrumental: true})

	n, err := s.Count()
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("expected 1 row, got %d", n)
	}

	got, _ := s.Get("Band", "Song")
	if got.PlainLyrics != "new" || !got.Instrumental {
		t.Errorf("row not replaced: %+v", got)
	}
}

func TestSearchAndDelete(t *testing.T) {
	s := openStore(t)

	_ = s.Set("Radiohead", "Reckoner", &lyrics.Result{PlainLyrics: "a"})
	_ = s.Set("Portishead", "Roads", &lyrics.Result{PlainLyrics: "b"})
	_ = s.Set("Björk", "Joga", &lyrics.Result{PlainLyrics: "c"})

	recs, err := s.Search("head", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(recs))
	}

	if err := s.Delete("radiohead", "reckoner"); err != nil {
		t.Fatal(err)
	}
	recs, _ = s.Search("head", 10)
	if len(recs) != 1 || recs[0].Artist != "Portishead" {
		t.Errorf("unexpected results after delete: %+v", recs)
	}
}

func TestClear(t *testing.T) {
	s := openStore(t)

	_ = s.Set("A", "B", &lyrics.Result{PlainLyrics: "x"})
	_ = s.Set("C", "D", &lyrics.Result{PlainLyrics: "y"})

	n, err := s.Clear()
	if err != nil || n != 2 {
		t.Fatalf("Clear = %d, %v", n, err)
	}
	if count, _ := s.Count(); count != 0 {
		t.Errorf("count after clear = %d", count)
	}
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lyrics.db")

	s := store.NewSQLite(path)
	if err := s.Open(); err != nil {
		t.Fatal(err)
	}
	_ = s.Set("A", "B", &lyrics.Result{PlainLyrics: "x"})
	s.Close()

	again := store.NewSQLite(path)
	if err := again.Open(); err != nil {
		t.Fatal(err)
	}
	defer again.Close()

	if _, err := again.Get("A", "B"); err != nil {
		t.Errorf("expected row after reopen: %v", err)
	}
}

func TestClosedStoreErrors(t *testing.T) {
	s := store.NewSQLite(filepath.Join(t.TempDir(), "x.db"))
	if _, err := s.Get("a", "b"); err == nil {
		t.Error("expected error before Open")
	}
}

func TestKeysCollapseWhitespace(t *testing.T) {
	s := openStore(t)
	if err := s.Set("The  Band", "Some Song", &lyrics.Result{PlainLyrics: "la"}); err != nil {
		t.Fatalf("set: %v", err)
	}

	if _, err := s.Get(" the band ", "some   SONG"); err != nil {
		t.Fatalf("expected hit with different spacing, got %v", err)
	}
}
