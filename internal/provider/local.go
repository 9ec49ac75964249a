package provider

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"karolbroda.com/linesync/internal/lyrics"
	"karolbroda.com/linesync/internal/track"
)

const localName = "local"

// Local reads .lrc files from a directory. A file named
// "<Artist> - <Title>.lrc" is preferred over "<Title>.lrc"; names are
// matched case-insensitively.
type Local struct {
	dir string
}

func NewLocal(dir string) *Local {
	return &Local{dir: dir}
}

func (l *Local) Name() string {
	return localName
}

func (l *Local) Dir() string {
	return l.dir
}

func (l *Local) Fetch(ctx context.Context, t track.Info) (*lyrics.Result, error) {
	if l.dir == "" {
		return nil, ErrNotFound
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(l.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read lyrics dir: %w", err)
	}

	wanted := []string{
		strings.ToLower(sanitizeFileName(normalizeString(t.Artist) + " - " + normalizeString(t.Title) + ".lrc")),
		strings.ToLower(sanitizeFileName(normalizeString(t.Title) + ".lrc")),
	}

	byName := make(map[string]string, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		byName[strings.ToLower(e.Name())] = e.Name()
	}

	for _, name := range wanted {
		actual, ok := byName[name]
		if !ok {
			continue
		}
		data, err := os.ReadFile(filepath.Join(l.dir, actual))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", actual, err)
		}
		return resultFromFile(t, string(data)), nil
	}

	return nil, ErrNotFound
}

func resultFromFile(t track.Info, content string) *lyrics.Result {
	result := &lyrics.Result{
		TrackName:  t.Title,
		ArtistName: t.Artist,
		AlbumName:  t.Album,
		Duration:   float64(t.DurationMs) / 1000,
	}
	if lyrics.Timesynced(lyrics.ParseSynced(content)) {
		result.SyncedLyrics = content
	} else {
		result.PlainLyrics = strings.TrimSpace(content)
	}
	return result
}

// sanitizeFileName replaces characters that cannot appear in a file name.
func sanitizeFileName(name string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, name)
}
