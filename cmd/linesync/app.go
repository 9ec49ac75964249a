package main

import (
	"fmt"
	"io"
	"path/filepath"

	"karolbroda.com/linesync/internal/cache"
	"karolbroda.com/linesync/internal/config"
	"karolbroda.com/linesync/internal/lyrics"
	"karolbroda.com/linesync/internal/provider"
	"karolbroda.com/linesync/internal/store"
)

// lyricsStore is what the commands need from either backing store.
type lyricsStore interface {
	provider.Store
	Delete(artist, title string) error
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// openLyricsStore opens the store selected by lyrics.store.
func openLyricsStore(cfg config.Config) (lyricsStore, io.Closer, error) {
	switch cfg.Lyrics.Store {
	case "sqlite":
		db := store.NewSQLite(sqlitePath(cfg))
		if err := db.Open(); err != nil {
			return nil, nil, err
		}
		return db, db, nil
	default:
		dc, err := cache.NewDiskCache()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open lyrics cache: %w", err)
		}
		return dc, nopCloser{}, nil
	}
}

func sqlitePath(cfg config.Config) string {
	if cfg.Lyrics.SqlitePath != "" {
		return cfg.Lyrics.SqlitePath
	}
	return filepath.Join(config.StateDir(), store.DefaultFileName)
}

// buildChain wires the configured providers in front of the lyrics store.
func buildChain(cfg config.Config) (*provider.Chain, io.Closer, error) {
	providers, err := provider.ByName(cfg.Lyrics.Providers, cfg.Lyrics)
	if err != nil {
		return nil, nil, err
	}

	ls, closer, err := openLyricsStore(cfg)
	if err != nil {
		return nil, nil, err
	}

	chain := provider.NewChain(providers,
		provider.WithStore(ls),
		provider.WithCacheReads(!cfg.Lyrics.NoCache),
	)
	return chain, closer, nil
}

func lineCount(text string) int {
	if text == "" {
		return 0
	}
	return len(lyrics.ParseSynced(text))
}
