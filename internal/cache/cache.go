package cache

import (
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"karolbroda.com/linesync/internal/lyrics"
	"karolbroda.com/linesync/internal/track"
)

const (
	cacheVersion    = 2
	defaultTTL      = 30 * 24 * time.Hour
	cacheDirName    = "linesync"
	lyricsCacheName = "lyrics"
)

var (
	ErrCacheMiss    = errors.New("cache miss")
	ErrCacheExpired = errors.New("cache expired")
	ErrCacheCorrupt = errors.New("cache corrupt")
)

// Entry is the on-disk record. Keys are the artist/title the player
// reported, not the names the provider answered with.
type Entry struct {
	Version      uint8
	KeyArtist    string
	KeyTitle     string
	TrackName    string
	ArtistName   string
	AlbumName    string
	Duration     float64
	Instrumental bool
	PlainLyrics  string
	SyncedLyrics string
	SyncOffsetMs int64
	Source       string
	CreatedAt    int64
	ExpiresAt    int64
}

func (e *Entry) Result() *lyrics.Result {
	return &lyrics.Result{
		TrackName:    e.TrackName,
		ArtistName:   e.ArtistName,
		AlbumName:    e.AlbumName,
		Duration:     e.Duration,
		Instrumental: e.Instrumental,
		PlainLyrics:  e.PlainLyrics,
		SyncedLyrics: e.SyncedLyrics,
		SyncOffsetMs: e.SyncOffsetMs,
		Source:       e.Source,
	}
}

// DiskCache keeps gob files on disk with an in-memory front. With an empty
// base path it degrades to memory only.
type DiskCache struct {
	basePath string
	ttl      time.Duration
	now      func() time.Time
	mu       sync.RWMutex
	memCache map[string]*Entry
}

// NewDiskCache opens the cache under $XDG_CACHE_HOME/linesync/lyrics.
func NewDiskCache() (*DiskCache, error) {
	cacheDir, err := getCacheDirectory()
	if err != nil {
		return nil, err
	}
	return NewDiskCacheAt(filepath.Join(cacheDir, lyricsCacheName))
}

// NewDiskCacheAt opens a cache rooted at dir.
func NewDiskCacheAt(dir string) (*DiskCache, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &DiskCache{
		basePath: dir,
		ttl:      defaultTTL,
		now:      time.Now,
		memCache: make(map[string]*Entry),
	}, nil
}

// NewMemoryCache never touches disk.
func NewMemoryCache() *DiskCache {
	return &DiskCache{
		ttl:      defaultTTL,
		now:      time.Now,
		memCache: make(map[string]*Entry),
	}
}

// SetClock replaces time.Now, for expiry tests.
func (c *DiskCache) SetClock(now func() time.Time) {
	c.now = now
}

func (c *DiskCache) Path() string {
	return c.basePath
}

func getCacheDirectory() (string, error) {
	// xdg cache home takes priority
	xdgCache := os.Getenv("XDG_CACHE_HOME")
	if xdgCache != "" {
		return filepath.Join(xdgCache, cacheDirName), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	return filepath.Join(homeDir, ".cache", cacheDirName), nil
}

func generateKey(artist, title string) string {
	normalized := track.NormalizeKey(artist) + "|" + track.NormalizeKey(title)
	hash := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(hash[:12])
}

func (c *DiskCache) getFilePath(key string) string {
	if c.basePath == "" {
		return ""
	}
	return filepath.Join(c.basePath, key+".bin")
}

// Get returns the cached lyrics for artist/title.
func (c *DiskCache) Get(artist, title string) (*lyrics.Result, error) {
	entry, err := c.GetEntry(artist, title)
	if err != nil {
		return nil, err
	}
	return entry.Result(), nil
}

func (c *DiskCache) GetEntry(artist, title string) (*Entry, error) {
	if artist == "" || title == "" {
		return nil, ErrCacheMiss
	}

	key := generateKey(artist, title)
	nowUnix := c.now().Unix()

	c.mu.RLock()
	entry, exists := c.memCache[key]
	c.mu.RUnlock()

	if exists {
		if entry.ExpiresAt > nowUnix {
			copied := *entry
			return &copied, nil
		}
		c.mu.Lock()
		delete(c.memCache, key)
		c.mu.Unlock()
	}

	if c.basePath == "" {
		if exists {
			return nil, ErrCacheExpired
		}
		return nil, ErrCacheMiss
	}

	filePath := c.getFilePath(key)
	entry, err := c.readFromDisk(filePath)
	if err != nil {
		return nil, err
	}

	if entry.ExpiresAt <= nowUnix {
		_ = os.Remove(filePath)
		return nil, ErrCacheExpired
	}

	c.mu.Lock()
	c.memCache[key] = entry
	c.mu.Unlock()

	copied := *entry
	return &copied, nil
}

// Set stores result under artist/title and refreshes its expiry.
func (c *DiskCache) Set(artist, title string, result *lyrics.Result) error {
	if artist == "" || title == "" || result == nil {
		return errors.New("invalid cache entry")
	}

	key := generateKey(artist, title)

	now := c.now()
	entry := &Entry{
		Version:      cacheVersion,
		KeyArtist:    artist,
		KeyTitle:     title,
		TrackName:    result.TrackName,
		ArtistName:   result.ArtistName,
		AlbumName:    result.AlbumName,
		Duration:     result.Duration,
		Instrumental: result.Instrumental,
		PlainLyrics:  result.PlainLyrics,
		SyncedLyrics: result.SyncedLyrics,
		SyncOffsetMs: result.SyncOffsetMs,
		Source:       result.Source,
		CreatedAt:    now.Unix(),
		ExpiresAt:    now.Add(c.ttl).Unix(),
	}

	c.mu.Lock()
	c.memCache[key] = entry
	c.mu.Unlock()

	if c.basePath == "" {
		return nil
	}

	return c.writeToDisk(c.getFilePath(key), entry)
}

func (c *DiskCache) readFromDisk(filePath string) (*Entry, error) {
	file, err := os.Open(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrCacheMiss
		}
		return nil, err
	}
	defer file.Close()

	var entry Entry
	decoder := gob.NewDecoder(file)
	err = decoder.Decode(&entry)
	if err != nil {
		return nil, ErrCacheCorrupt
	}

	// version mismatch means stale format
	if entry.Version != cacheVersion {
		_ = os.Remove(filePath)
		return nil, ErrCacheCorrupt
	}

	return &entry, nil
}

func (c *DiskCache) writeToDisk(filePath string, entry *Entry) error {
	// write to temp file first, then rename for atomicity
	tmpPath := filePath + ".tmp"

	file, err := os.Create(tmpPath)
	if err != nil {
		return err
	}

	encoder := gob.NewEncoder(file)
	err = encoder.Encode(entry)
	if err != nil {
		file.Close()
		_ = os.Remove(tmpPath)
		return err
	}

	err = file.Sync()
	if err != nil {
		file.Close()
		_ = os.Remove(tmpPath)
		return err
	}

	err = file.Close()
	if err != nil {
		_ = os.Remove(tmpPath)
		return err
	}

	return os.Rename(tmpPath, filePath)
}

func (c *DiskCache) Clear() error {
	c.mu.Lock()
	c.memCache = make(map[string]*Entry)
	c.mu.Unlock()

	if c.basePath == "" {
		return nil
	}

	entries, err := os.ReadDir(c.basePath)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".bin") {
			_ = os.Remove(filepath.Join(c.basePath, entry.Name()))
		}
	}

	return nil
}

// Prune removes expired and unreadable files and reports how many went.
func (c *DiskCache) Prune() (int, error) {
	if c.basePath == "" {
		return 0, nil
	}

	entries, err := os.ReadDir(c.basePath)
	if err != nil {
		return 0, err
	}

	pruned := 0
	now := c.now().Unix()

	for _, dirEntry := range entries {
		if dirEntry.IsDir() || !strings.HasSuffix(dirEntry.Name(), ".bin") {
			continue
		}

		filePath := filepath.Join(c.basePath, dirEntry.Name())
		entry, err := c.readFromDisk(filePath)
		if err != nil {
			_ = os.Remove(filePath)
			pruned++
			continue
		}

		if entry.ExpiresAt <= now {
			_ = os.Remove(filePath)
			pruned++
		}
	}

	return pruned, nil
}

func (c *DiskCache) Stats() (count int, sizeBytes int64, err error) {
	if c.basePath == "" {
		c.mu.RLock()
		defer c.mu.RUnlock()
		return len(c.memCache), 0, nil
	}

	entries, err := os.ReadDir(c.basePath)
	if err != nil {
		return 0, 0, err
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".bin") {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		count++
		sizeBytes += info.Size()
	}

	return count, sizeBytes, nil
}

func (c *DiskCache) ListAll() ([]*Entry, error) {
	if c.basePath == "" {
		c.mu.RLock()
		defer c.mu.RUnlock()
		result := make([]*Entry, 0, len(c.memCache))
		for _, entry := range c.memCache {
			copied := *entry
			result = append(result, &copied)
		}
		return result, nil
	}

	entries, err := os.ReadDir(c.basePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var result []*Entry

	for _, dirEntry := range entries {
		if dirEntry.IsDir() || !strings.HasSuffix(dirEntry.Name(), ".bin") {
			continue
		}

		filePath := filepath.Join(c.basePath, dirEntry.Name())
		entry, err := c.readFromDisk(filePath)
		if err != nil {
			continue
		}

		result = append(result, entry)
	}

	return result, nil
}

func (c *DiskCache) Delete(artist, title string) error {
	if artist == "" || title == "" {
		return errors.New("invalid artist or title")
	}

	key := generateKey(artist, title)

	c.mu.Lock()
	delete(c.memCache, key)
	c.mu.Unlock()

	if c.basePath == "" {
		return nil
	}

	filePath := c.getFilePath(key)
	err := os.Remove(filePath)
	if err != nil && !os.IsNotExist(err) {
		return err
	}

	return nil
}
