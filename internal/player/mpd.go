package player

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fhs/gompd/v2/mpd"
	"github.com/rs/zerolog/log"

	"karolbroda.com/linesync/internal/track"
)

const watcherRetryDelay = time.Second

// MPD follows a Music Player Daemon over its TCP protocol.
type MPD struct {
	addr     string
	password string

	mu      sync.Mutex
	client  *mpd.Client
	watcher *mpd.Watcher
	closed  bool

	stopChan chan struct{}
	stopOnce sync.Once
	events   chan Event
	state    *State
}

// NewMPD returns an unconnected source. addr may carry a password in the
// MPD_HOST form "password@host:port".
func NewMPD(addr, password string) *MPD {
	if at := strings.LastIndex(addr, "@"); at >= 0 {
		if password == "" {
			password = addr[:at]
		}
		addr = addr[at+1:]
	}
	if !strings.Contains(addr, ":") {
		addr += ":6600"
	}
	return &MPD{
		addr:     addr,
		password: password,
		stopChan: make(chan struct{}),
		events:   make(chan Event, 16),
		state:    NewState(),
	}
}

func (m *MPD) Name() string {
	return "mpd@" + m.addr
}

// Start connects and begins watching the player subsystem.
func (m *MPD) Start() error {
	if err := m.ensureConnected(); err != nil {
		return err
	}

	watcher, err := mpd.NewWatcher("tcp", m.addr, m.password, "player")
	if err != nil {
		return fmt.Errorf("failed to create mpd watcher: %w", err)
	}

	m.mu.Lock()
	m.watcher = watcher
	m.mu.Unlock()

	m.refresh()
	go m.watchLoop(watcher)
	return nil
}

func (m *MPD) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	m.stopOnce.Do(func() {
		close(m.stopChan)
	})

	var errs []error
	if m.watcher != nil {
		errs = append(errs, m.watcher.Close())
		m.watcher = nil
	}
	if m.client != nil {
		errs = append(errs, m.client.Close())
		m.client = nil
	}
	return errors.Join(errs...)
}

func (m *MPD) Events() <-chan Event {
	return m.events
}

func (m *MPD) Playing() bool {
	return m.state.Playing()
}

// ensureConnected dials on first use and again after a dropped connection.
func (m *MPD) ensureConnected() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}

	if m.client != nil {
		if err := m.client.Ping(); err == nil {
			return nil
		}
		log.Warn().Str("addr", m.addr).Msg("MPD connection lost, reconnecting")
		m.client.Close()
		m.client = nil
	}

	var (
		client *mpd.Client
		err    error
	)
	if m.password != "" {
		client, err = mpd.DialAuthenticated("tcp", m.addr, m.password)
	} else {
		client, err = mpd.Dial("tcp", m.addr)
	}
	if err != nil {
		return fmt.Errorf("failed to connect to mpd at %s: %w", m.addr, err)
	}

	m.client = client
	log.Debug().Str("addr", m.addr).Msg("Connected to MPD")
	return nil
}

func (m *MPD) status() (mpd.Attrs, error) {
	if err := m.ensureConnected(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.client == nil {
		return nil, ErrClosed
	}
	return m.client.Status()
}

func (m *MPD) currentSong() (mpd.Attrs, error) {
	if err := m.ensureConnected(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.client == nil {
		return nil, ErrClosed
	}
	return m.client.CurrentSong()
}

func (m *MPD) CurrentTrack() (*track.Info, error) {
	attrs, err := m.currentSong()
	if err != nil {
		return nil, err
	}

	info := trackFromAttrs(attrs)
	if !info.IsValid() {
		return nil, fmt.Errorf("missing title or artist in current song (file=%q)", info.Path)
	}

	if m.state.SetTrack(info) {
		emit(m.events, Event{Kind: EventTrackChanged, Track: info})
	}
	return info, nil
}

func (m *MPD) PositionMs() (int64, error) {
	attrs, err := m.status()
	if err != nil {
		return 0, err
	}

	pos, playing := positionFromStatus(attrs)
	if m.state.SetPlaying(playing) {
		emit(m.events, Event{Kind: EventPlaybackStateChanged, Playing: playing})
	}
	if m.state.Observe(pos) {
		emit(m.events, Event{Kind: EventSeeked, PositionMs: pos})
	}
	return pos, nil
}

// refresh reads both track and position so their change events fire.
func (m *MPD) refresh() {
	if _, err := m.CurrentTrack(); err != nil {
		log.Debug().Err(err).Msg("MPD current song unavailable")
	}
	if _, err := m.PositionMs(); err != nil {
		log.Debug().Err(err).Msg("MPD status unavailable")
	}
}

func (m *MPD) watchLoop(w *mpd.Watcher) {
	for {
		select {
		case <-m.stopChan:
			return
		case subsystem, ok := <-w.Event:
			if !ok {
				return
			}
			if subsystem == "player" {
				m.refresh()
			}
		case err, ok := <-w.Error:
			if !ok {
				return
			}
			log.Error().Err(err).Msg("MPD watcher error")
			select {
			case <-time.After(watcherRetryDelay):
			case <-m.stopChan:
				return
			}
		}
	}
}

func trackFromAttrs(attrs mpd.Attrs) *track.Info {
	info := &track.Info{
		Title:   attrs["Title"],
		Artist:  attrs["Artist"],
		Album:   attrs["Album"],
		Path:    attrs["file"],
		TrackID: attrs["Id"],
	}
	if info.Title == "" && info.Path != "" {
		// untagged files: fall back to the file name
		base := info.Path[strings.LastIndex(info.Path, "/")+1:]
		info.Title = strings.TrimSuffix(base, extOf(base))
	}

	if secs, err := strconv.ParseFloat(attrs["duration"], 64); err == nil {
		info.DurationMs = int64(math.Round(secs * 1000))
	} else if secs, err := strconv.ParseInt(attrs["Time"], 10, 64); err == nil {
		info.DurationMs = secs * 1000
	}
	return info
}

func extOf(name string) string {
	if dot := strings.LastIndex(name, "."); dot > 0 {
		return name[dot:]
	}
	return ""
}

// positionFromStatus reads "elapsed" (fractional seconds) and falls back to
// the integer "time" field older servers send as "elapsed:total".
func positionFromStatus(attrs mpd.Attrs) (int64, bool) {
	playing := attrs["state"] == "play"

	if secs, err := strconv.ParseFloat(attrs["elapsed"], 64); err == nil {
		return int64(math.Round(secs * 1000)), playing
	}
	if t := attrs["time"]; t != "" {
		elapsed, _, _ := strings.Cut(t, ":")
		if secs, err := strconv.ParseInt(elapsed, 10, 64); err == nil {
			return secs * 1000, playing
		}
	}
	return 0, playing
}
