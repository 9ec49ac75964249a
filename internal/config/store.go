package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// Override adjusts the effective config without being written back, used
// for environment variables and command line flags.
type Override func(*Config)

// Store owns the persisted config. Readers get value copies; writers go
// through Update, which saves the file and notifies subscribers.
type Store struct {
	mu        sync.RWMutex
	path      string
	file      Config
	effective Config
	overrides []Override
	subs      map[int]chan Config
	nextSub   int
}

// NewStore loads path (missing is fine) and applies the environment plus
// the given overrides on top.
func NewStore(path string, overrides ...Override) (*Store, error) {
	file, err := readFile(path)
	if err != nil {
		return nil, err
	}

	s := &Store{
		path:      path,
		file:      file,
		overrides: append([]Override{ApplyEnv}, overrides...),
		subs:      make(map[int]chan Config),
	}

	effective := s.derive(file)
	if err := effective.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	s.effective = effective

	return s, nil
}

func (s *Store) Path() string {
	return s.path
}

// Get returns the effective config.
func (s *Store) Get() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.effective.Clone()
}

// File returns the config as stored on disk, without overrides.
func (s *Store) File() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.file.Clone()
}

// Update applies fn to the stored config, validates, persists and notifies.
func (s *Store) Update(fn func(*Config)) error {
	s.mu.Lock()

	next := s.file.Clone()
	fn(&next)

	effective := s.derive(next)
	if err := effective.Validate(); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("invalid config: %w", err)
	}

	if err := s.save(next); err != nil {
		s.mu.Unlock()
		return err
	}

	s.file = next
	s.effective = effective
	s.mu.Unlock()

	s.notify(effective)
	return nil
}

// Subscribe returns a channel that receives the effective config after every
// change, and a function to stop receiving. Slow subscribers miss
// intermediate values but always see the latest.
func (s *Store) Subscribe() (<-chan Config, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSub
	s.nextSub++
	ch := make(chan Config, 1)
	s.subs[id] = ch

	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if sub, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(sub)
		}
	}
}

// Reload re-reads the file, typically after an external edit.
func (s *Store) Reload() error {
	file, err := readFile(s.path)
	if err != nil {
		return err
	}

	effective := s.derive(file)
	if err := effective.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	s.mu.Lock()
	s.file = file
	s.effective = effective
	s.mu.Unlock()

	s.notify(effective)
	return nil
}

// Watch reloads the store whenever the file changes on disk, until ctx ends.
func (s *Store) Watch(ctx context.Context) error {
	if s.path == "" {
		return errors.New("config store has no file")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create config watcher: %w", err)
	}

	// editors replace the file, so watch the directory
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		watcher.Close()
		return fmt.Errorf("create config dir: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watch config dir: %w", err)
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != filepath.Clean(s.path) {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				if err := s.Reload(); err != nil {
					log.Warn().Err(err).Str("path", s.path).Msg("Ignoring config change")
					continue
				}
				log.Info().Str("path", s.path).Msg("Config reloaded")
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Warn().Err(err).Msg("Config watcher error")
			}
		}
	}()

	return nil
}

func (s *Store) derive(file Config) Config {
	out := file.Clone()
	for _, o := range s.overrides {
		o(&out)
	}
	return out
}

func (s *Store) notify(cfg Config) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, ch := range s.subs {
		// drop the stale value so the newest one always fits
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- cfg.Clone():
		default:
		}
	}
}

func (s *Store) save(cfg Config) error {
	if s.path == "" {
		return nil
	}

	data, err := cfg.Marshal()
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write config: %w", err)
	}

	return nil
}
