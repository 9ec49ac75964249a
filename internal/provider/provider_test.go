package provider_test

import (
	"context"
	"errors"
	"testing"

	"karolbroda.com/linesync/internal/cache"
	"karolbroda.com/linesync/internal/lyrics"
	"karolbroda.com/linesync/internal/provider"
	"karolbroda.com/linesync/internal/track"
)

type fakeProvider struct {
	name   string
	result *lyrics.Result
	err    error
	calls  int
	onCall func()
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Fetch(ctx context.Context, t track.Info) (*lyrics.Result, error) {
	f.calls++
	if f.onCall != nil {
		f.onCall()
	}
	if f.err != nil {
		return nil, f.err
	}
	if f.result == nil {
		return nil, nil
	}
	copied := *f.result
	return &copied, nil
}

type failingStore struct {
	sets int
}

func (s *failingStore) Get(artist, title string) (*lyrics.Result, error) {
	return nil, errors.New("miss")
}

func (s *failingStore) Set(artist, title string, result *lyrics.Result) error {
	s.sets++
	return errors.New("disk full")
}

var song = &track.Info{Title: "Song", Artist: "Band", DurationMs: 200000}

func TestResolveFallsThrough(t *testing.T) {
	store := cache.NewMemoryCache()
	broken := &fakeProvider{name: "a", err: errors.New("boom")}
	empty := &fakeProvider{name: "b", result: &lyrics.Result{}}
	good := &fakeProvider{name: "c", result: &lyrics.Result{SyncedLyrics: "[00:01.00]x"}}
	never := &fakeProvider{name: "d", result: &lyrics.Result{PlainLyrics: "y"}}

	chain := provider.NewChain([]provider.Provider{broken, empty, good, never}, provider.WithStore(store))

	got, err := chain.Resolve(context.Background(), song)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got.Source != "c" {
		t.Errorf("expected source c, got %q", got.Source)
	}
	if never.calls != 0 {
		t.Error("providers after the first hit should not be called")
	}

	stored, err := store.Get("Band", "Song")
	if err != nil {
		t.Fatalf("expected stored result: %v", err)
	}
	if stored.Source != "c" || stored.SyncedLyrics != "[00:01.00]x" {
		t.Errorf("unexpected stored %+v", stored)
	}
}

func TestResolvePrefersStore(t *testing.T) {
	store := cache.NewMemoryCache()
	_ = store.Set("Band", "Song", &lyrics.Result{PlainLyrics: "cached", Source: "lrclib"})

	p := &fakeProvider{name: "a", result: &lyrics.Result{PlainLyrics: "fresh"}}
	chain := provider.NewChain([]provider.Provider{p}, provider.WithStore(store))

	got, err := chain.Resolve(context.Background(), song)
	if err != nil {
		t.Fatal(err)
	}
	if got.PlainLyrics != "cached" || p.calls != 0 {
		t.Errorf("expected cached result without provider call, got %+v (%d calls)", got, p.calls)
	}
}

func TestResolveSkipsStoreWhenReadsDisabled(t *testing.T) {
	store := cache.NewMemoryCache()
	_ = store.Set("Band", "Song", &lyrics.Result{PlainLyrics: "cached"})

	p := &fakeProvider{name: "a", result: &lyrics.Result{PlainLyrics: "fresh"}}
	chain := provider.NewChain([]provider.Provider{p},
		provider.WithStore(store), provider.WithCacheReads(false))

	got, err := chain.Resolve(context.Background(), song)
	if err != nil {
		t.Fatal(err)
	}
	if got.PlainLyrics != "fresh" {
		t.Errorf("expected provider result, got %+v", got)
	}

	stored, _ := store.Get("Band", "Song")
	if stored.PlainLyrics != "fresh" {
		t.Error("fresh result should still be written")
	}
}

func TestResolveExhausted(t *testing.T) {
	errA := errors.New("a down")
	chain := provider.NewChain([]provider.Provider{
		&fakeProvider{name: "a", err: errA},
		&fakeProvider{name: "b", err: provider.ErrNotFound},
	})

	_, err := chain.Resolve(context.Background(), song)
	if !errors.Is(err, provider.ErrExhausted) {
		t.Fatalf("expected ErrExhausted, got %v", err)
	}
	if !errors.Is(err, errA) || !errors.Is(err, provider.ErrNotFound) {
		t.Errorf("expected provider errors to be wrapped, got %v", err)
	}
}

func TestResolveNoProviders(t *testing.T) {
	chain := provider.NewChain(nil)
	if _, err := chain.Resolve(context.Background(), song); !errors.Is(err, provider.ErrExhausted) {
		t.Errorf("expected ErrExhausted, got %v", err)
	}
}

func TestResolveStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	first := &fakeProvider{name: "a", err: errors.New("slow"), onCall: cancel}
	second := &fakeProvider{name: "b", result: &lyrics.Result{PlainLyrics: "x"}}
	chain := provider.NewChain([]provider.Provider{first, second})

	_, err := chain.Resolve(ctx, song)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if second.calls != 0 {
		t.Error("cancelled resolve should not reach later providers")
	}
}

func TestResolveStoreWriteFailureIsNotFatal(t *testing.T) {
	store := &failingStore{}
	chain := provider.NewChain([]provider.Provider{
		&fakeProvider{name: "a", result: &lyrics.Result{PlainLyrics: "x"}},
	}, provider.WithStore(store))

	got, err := chain.Resolve(context.Background(), song)
	if err != nil {
		t.Fatalf("store failure should not surface: %v", err)
	}
	if got.PlainLyrics != "x" || store.sets != 1 {
		t.Errorf("unexpected result %+v, sets %d", got, store.sets)
	}
}

func TestResolveRejectsInvalidTrack(t *testing.T) {
	chain := provider.NewChain(nil)
	if _, err := chain.Resolve(context.Background(), &track.Info{Title: "x"}); err == nil {
		t.Error("expected error for track without artist")
	}
}

func TestSaveOffset(t *testing.T) {
	store := cache.NewMemoryCache()
	chain := provider.NewChain(nil, provider.WithStore(store))

	if err := chain.SaveOffset(song, 300); err == nil {
		t.Error("expected error when nothing is stored")
	}

	_ = store.Set("Band", "Song", &lyrics.Result{SyncedLyrics: "[00:01.00]x"})
	if err := chain.SaveOffset(song, -250); err != nil {
		t.Fatal(err)
	}

	got, _ := store.Get("Band", "Song")
	if got.SyncOffsetMs != -250 {
		t.Errorf("expected offset -250, got %d", got.SyncOffsetMs)
	}
}

func TestProvidersOrder(t *testing.T) {
	chain := provider.NewChain([]provider.Provider{
		&fakeProvider{name: "local"},
		&fakeProvider{name: "lrclib"},
	})
	names := chain.Providers()
	if len(names) != 2 || names[0] != "local" || names[1] != "lrclib" {
		t.Errorf("unexpected order %v", names)
	}
}
