package config_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"karolbroda.com/linesync/internal/config"
)

func TestStoreUpdatePersistsAndNotifies(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "linesync", "config.yaml")
	store, err := config.NewStore(path)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	updates, cancel := store.Subscribe()
	defer cancel()

	err = store.Update(func(c *config.Config) {
		c.Display.LyricsOutline = "glow"
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	select {
	case cfg := <-updates:
		if cfg.Display.LyricsOutline != "glow" {
			t.Errorf("subscriber got %q", cfg.Display.LyricsOutline)
		}
	case <-time.After(time.Second):
		t.Fatal("no notification")
	}

	if store.Get().Display.LyricsOutline != "glow" {
		t.Error("Get does not reflect the update")
	}

	reloaded, err := config.Load(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.Display.LyricsOutline != "glow" {
		t.Errorf("update was not persisted, got %q", reloaded.Display.LyricsOutline)
	}
}

func TestStoreRejectsInvalidUpdate(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	store, err := config.NewStore(path)
	if err != nil {
		t.Fatal(err)
	}

	err = store.Update(func(c *config.Config) {
		c.Lyrics.Store = "postgres"
	})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if store.Get().Lyrics.Store != "disk" {
		t.Error("invalid update leaked into the store")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("invalid update should not write the file")
	}
}

func TestStoreOverridesAreNotPersisted(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	store, err := config.NewStore(path, func(c *config.Config) {
		c.Player.MprisService = "org.mpris.MediaPlayer2.mpv"
	})
	if err != nil {
		t.Fatal(err)
	}

	if store.Get().Player.MprisService != "org.mpris.MediaPlayer2.mpv" {
		t.Error("override not applied")
	}

	if err := store.Update(func(c *config.Config) { c.Pipe.Length = 40 }); err != nil {
		t.Fatal(err)
	}

	if store.File().Player.MprisService != config.DefaultMprisService {
		t.Error("override leaked into the stored file")
	}
	if store.Get().Player.MprisService != "org.mpris.MediaPlayer2.mpv" {
		t.Error("override lost after update")
	}
}

func TestStoreGetReturnsCopy(t *testing.T) {
	clearEnv(t)

	store, err := config.NewStore("")
	if err != nil {
		t.Fatal(err)
	}

	cfg := store.Get()
	cfg.Lyrics.Providers[0] = "mutated"

	if store.Get().Lyrics.Providers[0] == "mutated" {
		t.Error("Get exposed internal state")
	}
}

func TestStoreWatchReloads(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("pipe:\n  length: 10\n"), 0644); err != nil {
		t.Fatal(err)
	}

	store, err := config.NewStore(path)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	updates, unsubscribe := store.Subscribe()
	defer unsubscribe()

	if err := store.Watch(ctx); err != nil {
		t.Fatalf("watch: %v", err)
	}

	if err := os.WriteFile(path, []byte("pipe:\n  length: 25\n"), 0644); err != nil {
		t.Fatal(err)
	}

	deadline := time.After(3 * time.Second)
	for {
		select {
		case cfg := <-updates:
			if cfg.Pipe.Length == 25 {
				return
			}
		case <-deadline:
			t.Fatalf("store did not pick up the edit, length=%d", store.Get().Pipe.Length)
		}
	}
}
