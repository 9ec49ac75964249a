// Package store provides a SQLite-backed lyrics library.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"github.com/rs/zerolog/log"

	"karolbroda.com/linesync/internal/lyrics"
	"karolbroda.com/linesync/internal/track"
)

const (
	// CurrentSchemaVersion is the current database schema version.
	CurrentSchemaVersion = "1"

	// DefaultFileName is used under the state dir when no path is configured.
	DefaultFileName = "lyrics.db"
)

// ErrNotFound is returned by Get when no row matches.
var ErrNotFound = errors.New("lyrics not in store")

// Record is a stored row.
type Record struct {
	Artist    string
	Title     string
	Result    lyrics.Result
	UpdatedAt time.Time
}

// SQLite keeps fetched lyrics in a single table keyed by normalized artist
// and title.
type SQLite struct {
	mu   sync.RWMutex
	db   *sql.DB
	path string
}

// NewSQLite creates a store instance; call Open before use.
func NewSQLite(path string) *SQLite {
	return &SQLite{path: path}
}

func (s *SQLite) Path() string {
	return s.path
}

// Open opens the database and initializes the schema.
func (s *SQLite) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}

	db, err := sql.Open("sqlite3", s.path+"?_journal=WAL&_busy_timeout=5000")
	if err != nil {
		return fmt.Errorf("failed to open lyrics database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	s.db = db

	if err := s.initSchema(); err != nil {
		s.db.Close()
		s.db = nil
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	log.Debug().Str("path", s.path).Msg("Lyrics database opened")
	return nil
}

// Close closes the database connection.
func (s *SQLite) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		err := s.db.Close()
		s.db = nil
		return err
	}
	return nil
}

func (s *SQLite) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS lyrics (
		key_artist TEXT NOT NULL,
		key_title TEXT NOT NULL,
		artist TEXT NOT NULL,
		title TEXT NOT NULL,
		track_name TEXT NOT NULL DEFAULT '',
		artist_name TEXT NOT NULL DEFAULT '',
		album_name TEXT NOT NULL DEFAULT '',
		duration REAL NOT NULL DEFAULT 0,
		instrumental INTEGER NOT NULL DEFAULT 0,
		plain_lyrics TEXT NOT NULL DEFAULT '',
		synced_lyrics TEXT NOT NULL DEFAULT '',
		sync_offset_ms INTEGER NOT NULL DEFAULT 0,
		source TEXT NOT NULL DEFAULT '',
		updated_at INTEGER NOT NULL,
		PRIMARY KEY (key_artist, key_title)
	);

	CREATE INDEX IF NOT EXISTS idx_lyrics_updated ON lyrics(updated_at);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	var version string
	err := s.db.QueryRow(`SELECT value FROM meta WHERE key = 'schema_version'`).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		_, err = s.db.Exec(`INSERT INTO meta (key, value) VALUES ('schema_version', ?)`, CurrentSchemaVersion)
		return err
	}
	if err != nil {
		return err
	}

	if version != CurrentSchemaVersion {
		log.Info().
			Str("current", version).
			Str("target", CurrentSchemaVersion).
			Msg("Migrating lyrics schema")
		_, err = s.db.Exec(`UPDATE meta SET value = ? WHERE key = 'schema_version'`, CurrentSchemaVersion)
		return err
	}

	return nil
}

func (s *SQLite) conn() (*sql.DB, error) {
	if s.db == nil {
		return nil, errors.New("lyrics database not open")
	}
	return s.db, nil
}

// Get returns the stored lyrics for artist/title.
func (s *SQLite) Get(artist, title string) (*lyrics.Result, error) {
	rec, err := s.GetRecord(artist, title)
	if err != nil {
		return nil, err
	}
	return &rec.Result, nil
}

func (s *SQLite) GetRecord(artist, title string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	db, err := s.conn()
	if err != nil {
		return nil, err
	}

	row := db.QueryRow(`
		SELECT artist, title, track_name, artist_name, album_name, duration, instrumental,
		       plain_lyrics, synced_lyrics, sync_offset_ms, source, updated_at
		FROM lyrics WHERE key_artist = ? AND key_title = ?`,
		track.NormalizeKey(artist), track.NormalizeKey(title))

	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query lyrics: %w", err)
	}
	return rec, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*Record, error) {
	var rec Record
	var instrumental int
	var updated int64

	err := row.Scan(
		&rec.Artist, &rec.Title,
		&rec.Result.TrackName, &rec.Result.ArtistName, &rec.Result.AlbumName,
		&rec.Result.Duration, &instrumental,
		&rec.Result.PlainLyrics, &rec.Result.SyncedLyrics,
		&rec.Result.SyncOffsetMs, &rec.Result.Source, &updated,
	)
	if err != nil {
		return nil, err
	}

	rec.Result.Instrumental = instrumental != 0
	rec.UpdatedAt = time.Unix(updated, 0)
	return &rec, nil
}

// Set inserts or replaces the lyrics for artist/title.
func (s *SQLite) Set(artist, title string, result *lyrics.Result) error {
	if artist == "" || title == "" || result == nil {
		return errors.New("invalid lyrics record")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	db, err := s.conn()
	if err != nil {
		return err
	}

	instrumental := 0
	if result.Instrumental {
		instrumental = 1
	}

	_, err = db.Exec(`
		INSERT INTO lyrics (key_artist, key_title, artist, title, track_name, artist_name, album_name,
		                    duration, instrumental, plain_lyrics, synced_lyrics, sync_offset_ms, source, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(key_artist, key_title) DO UPDATE SET
			artist = excluded.artist,
			title = excluded.title,
			track_name = excluded.track_name,
			artist_name = excluded.artist_name,
			album_name = excluded.album_name,
			duration = excluded.duration,
			instrumental = excluded.instrumental,
			plain_lyrics = excluded.plain_lyrics,
			synced_lyrics = excluded.synced_lyrics,
			sync_offset_ms = excluded.sync_offset_ms,
			source = excluded.source,
			updated_at = excluded.updated_at`,
		track.NormalizeKey(artist), track.NormalizeKey(title), artist, title,
		result.TrackName, result.ArtistName, result.AlbumName,
		result.Duration, instrumental,
		result.PlainLyrics, result.SyncedLyrics, result.SyncOffsetMs, result.Source,
		time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("store lyrics: %w", err)
	}
	return nil
}

func (s *SQLite) Delete(artist, title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	db, err := s.conn()
	if err != nil {
		return err
	}

	_, err = db.Exec(`DELETE FROM lyrics WHERE key_artist = ? AND key_title = ?`,
		track.NormalizeKey(artist), track.NormalizeKey(title))
	return err
}

func (s *SQLite) Count() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	db, err := s.conn()
	if err != nil {
		return 0, err
	}

	var n int
	err = db.QueryRow(`SELECT COUNT(*) FROM lyrics`).Scan(&n)
	return n, err
}

// Clear removes every stored entry and reports how many there were.
func (s *SQLite) Clear() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	db, err := s.conn()
	if err != nil {
		return 0, err
	}

	res, err := db.Exec(`DELETE FROM lyrics`)
	if err != nil {
		return 0, fmt.Errorf("clear lyrics: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// Search matches query against artist and title, newest first.
func (s *SQLite) Search(query string, limit int) ([]*Record, error) {
	if limit <= 0 {
		limit = 20
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	db, err := s.conn()
	if err != nil {
		return nil, err
	}

	pattern := "%" + track.NormalizeKey(query) + "%"
	rows, err := db.Query(`
		SELECT artist, title, track_name, artist_name, album_name, duration, instrumental,
		       plain_lyrics, synced_lyrics, sync_offset_ms, source, updated_at
		FROM lyrics
		WHERE key_artist LIKE ? OR key_title LIKE ?
		ORDER BY updated_at DESC
		LIMIT ?`, pattern, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("search lyrics: %w", err)
	}
	defer rows.Close()

	var out []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
