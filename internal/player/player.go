// Package player reads the current track and playback position from a
// media player. MPRIS (D-Bus) and MPD backends are supported.
package player

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"karolbroda.com/linesync/internal/config"
	"karolbroda.com/linesync/internal/track"
)

// SeekToleranceMs is how far a polled position may stray from the
// extrapolated one before it counts as a seek.
const SeekToleranceMs = 1500

// ErrClosed is returned by reads after Close.
var ErrClosed = errors.New("player source closed")

// Source is a live media session.
type Source interface {
	Name() string
	Start() error
	Close() error
	CurrentTrack() (*track.Info, error)
	PositionMs() (int64, error)
	Playing() bool
	Events() <-chan Event
}

type EventKind int

const (
	EventTrackChanged EventKind = iota
	EventSeeked
	EventPlaybackStateChanged
)

func (k EventKind) String() string {
	switch k {
	case EventTrackChanged:
		return "track-changed"
	case EventSeeked:
		return "seeked"
	case EventPlaybackStateChanged:
		return "playback-state-changed"
	default:
		return fmt.Sprintf("event(%d)", int(k))
	}
}

type Event struct {
	Kind       EventKind
	Track      *track.Info
	PositionMs int64
	Playing    bool
}

// State tracks the last known position so it can be extrapolated between
// polls and so jumps can be recognised as seeks.
type State struct {
	mu         sync.RWMutex
	track      *track.Info
	positionMs int64
	playing    bool
	lastUpdate time.Time
	now        func() time.Time
}

func NewState() *State {
	return &State{now: time.Now}
}

// SetClock replaces time.Now.
func (s *State) SetClock(now func() time.Time) {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
}

func (s *State) Track() *track.Info {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.track == nil {
		return nil
	}
	copied := *s.track
	return &copied
}

// SetTrack stores t and reports whether it differs from the previous track.
// A new track restarts the position at zero.
func (s *State) SetTrack(t *track.Info) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t.IsSameTrack(s.track) {
		return false
	}
	s.track = t
	s.positionMs = 0
	s.lastUpdate = s.now()
	return true
}

func (s *State) Playing() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.playing
}

// SetPlaying re-anchors the position so a pause does not keep advancing it.
func (s *State) SetPlaying(playing bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.lastUpdate.IsZero() {
		s.positionMs = s.extrapolateLocked()
		s.lastUpdate = s.now()
	}
	changed := s.playing != playing
	s.playing = playing
	return changed
}

// Interpolated is the last known position advanced by the wall time since,
// when playing.
func (s *State) Interpolated() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.extrapolateLocked()
}

func (s *State) extrapolateLocked() int64 {
	if s.lastUpdate.IsZero() || !s.playing {
		return s.positionMs
	}
	return s.positionMs + s.now().Sub(s.lastUpdate).Milliseconds()
}

// DetectSeek reports whether pos is further from the extrapolated position
// than SeekToleranceMs.
func (s *State) DetectSeek(pos int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.lastUpdate.IsZero() {
		return false
	}

	diff := pos - s.extrapolateLocked()
	if diff < 0 {
		diff = -diff
	}
	return diff > SeekToleranceMs
}

func (s *State) UpdatePosition(pos int64) {
	s.mu.Lock()
	s.positionMs = pos
	s.lastUpdate = s.now()
	s.mu.Unlock()
}

// Observe records a polled position and reports whether it was a seek.
func (s *State) Observe(pos int64) bool {
	seek := s.DetectSeek(pos)
	s.UpdatePosition(pos)
	return seek
}

// New builds the source selected by cfg.Backend. The source is not started.
func New(cfg config.PlayerConfig) (Source, error) {
	switch cfg.Backend {
	case "", "mpris":
		return NewMPRIS(cfg.MprisService)
	case "mpd":
		return NewMPD(cfg.MpdAddress, cfg.MpdPassword), nil
	default:
		return nil, fmt.Errorf("unknown player backend %q", cfg.Backend)
	}
}

func emit(ch chan Event, ev Event) {
	select {
	case ch <- ev:
	default:
	}
}
