package ui

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog/log"

	"karolbroda.com/linesync/internal/artwork"
	"karolbroda.com/linesync/internal/config"
	"karolbroda.com/linesync/internal/player"
	"karolbroda.com/linesync/internal/provider"
	"karolbroda.com/linesync/internal/style"
	"karolbroda.com/linesync/internal/track"
)

const (
	fineOffsetStepMs   = 100
	coarseOffsetStepMs = 500
	resolveTimeout     = 30 * time.Second
)

var (
	errNoTrack       = errors.New("no track playing")
	errNoLyrics      = errors.New("no lyrics found")
	errNoSyncedLines = errors.New("lyrics have no lines")
)

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case TickMsg:
		return m.handleTick()

	case PlayerEventMsg:
		return m.handlePlayerEvent(msg.Event)

	case TrackLoadedMsg:
		if msg.Err != nil {
			log.Debug().Err(msg.Err).Msg("No current track")
			return m, nil
		}
		return m.handleTrackChange(msg.Track)

	case LyricsFetchedMsg:
		return m.handleLyricsFetched(msg)

	case ArtworkFetchedMsg:
		return m.handleArtworkFetched(msg)

	case ConfigChangedMsg:
		prev := m.cfg.Sync
		m.cfg = msg.Config
		m.resync(prev)
		m.display = style.FromConfig(msg.Config.Display)
		m.hideHeader = msg.Config.Display.HideHeader
		return m, m.listenForConfig()

	case offsetSavedMsg:
		if msg.Err != nil {
			log.Debug().Err(msg.Err).Msg("Sync offset not saved")
		}
		return m, nil
	}

	return m, nil
}

// resync rebuilds the live session when the sync settings change. An offset
// that differs from the previous global one is per-song and carries over.
func (m *Model) resync(prev config.SyncConfig) {
	s := m.session
	if s == nil || prev == m.cfg.Sync {
		return
	}

	base := m.cfg.Sync.OffsetMs
	if s.offsetMs != prev.OffsetMs {
		base = s.offsetMs
	}
	result := *s.result
	result.SyncOffsetMs = 0

	m.session = newSession(s.track, &result, base, s.positionMs, m.cfg.Sync.BiasMs)
	if m.session.synced() {
		m.anim.Jump(m.session.cursor.Index())
	}
}

func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		m.quitting = true
		m.Stop()
		return m, tea.Quit

	case "up", "k", "+", "=":
		return m.shiftOffset(fineOffsetStepMs)
	case "down", "j", "-":
		return m.shiftOffset(-fineOffsetStepMs)
	case "right", "l":
		return m.shiftOffset(coarseOffsetStepMs)
	case "left", "h":
		return m.shiftOffset(-coarseOffsetStepMs)
	case "0":
		if m.session == nil {
			return m, nil
		}
		return m.shiftOffset(-m.session.offsetMs)

	case "tab", "i":
		m.hideHeader = !m.hideHeader
		return m, nil

	case "L":
		return m.toggleLyrics()
	}

	return m, nil
}

func (m Model) shiftOffset(deltaMs int64) (tea.Model, tea.Cmd) {
	s := m.session
	if s == nil || !s.synced() {
		return m, nil
	}

	s.offsetMs += deltaMs
	if s.cursor.Update() {
		m.anim.Jump(s.cursor.Index())
	}

	return m, saveOffsetCmd(m.chain, s.track, s.offsetMs)
}

func (m Model) toggleLyrics() (tea.Model, tea.Cmd) {
	m.lyricsEnabled = !m.lyricsEnabled
	if !m.lyricsEnabled {
		m.session = nil
		m.err = nil
		m.setLoadingLyrics(false)
		return m, nil
	}

	if !m.track.IsValid() {
		return m, nil
	}
	m.setLoadingLyrics(true)
	return m, fetchLyricsCmd(m.chain, m.track)
}

func (m Model) handleTick() (tea.Model, tea.Cmd) {
	m.tickCount++

	if m.source != nil {
		// position errors skip this tick, the next one retries
		if pos, err := m.source.PositionMs(); err == nil {
			m.positionMs = pos
			if s := m.session; s != nil && s.synced() {
				s.positionMs = pos
				if s.cursor.Update() {
					m.anim.Advance(s.cursor.Index())
				}
			}
		}
	}

	m.anim.Step(transitionTicks)
	return m, m.tickCmd()
}

func (m Model) handlePlayerEvent(event player.Event) (tea.Model, tea.Cmd) {
	next := m.listenForPlayerEvents()

	switch event.Kind {
	case player.EventTrackChanged:
		model, cmd := m.handleTrackChange(event.Track)
		return model, tea.Batch(next, cmd)

	case player.EventSeeked:
		m.positionMs = event.PositionMs
		if s := m.session; s != nil && s.synced() {
			s.positionMs = event.PositionMs
			s.cursor.Update()
			m.anim.Jump(s.cursor.Index())
		}

	case player.EventPlaybackStateChanged:
		m.playing = event.Playing
	}

	return m, next
}

func (m Model) handleTrackChange(t *track.Info) (tea.Model, tea.Cmd) {
	// mpris repeats metadata on unrelated property changes
	if m.track != nil && m.track.IsSameTrack(t) && (m.session != nil || m.IsLoadingLyrics()) {
		return m, nil
	}

	m.track = t
	m.resetForNewTrack()

	if !t.IsValid() {
		m.err = errNoTrack
		return m, nil
	}

	var cmds []tea.Cmd
	if t.ArtworkURL != "" {
		m.setLoadingArtwork(true)
		cmds = append(cmds, fetchArtworkCmd(m.httpClient, t))
	}
	if m.lyricsEnabled {
		m.setLoadingLyrics(true)
		cmds = append(cmds, fetchLyricsCmd(m.chain, t))
	}
	return m, tea.Batch(cmds...)
}

func (m Model) handleLyricsFetched(msg LyricsFetchedMsg) (tea.Model, tea.Cmd) {
	// a slow lookup for a song that is no longer playing
	if !msg.Track.IsSameTrack(m.track) || !m.lyricsEnabled {
		return m, nil
	}
	m.setLoadingLyrics(false)

	if msg.Err != nil {
		m.session = nil
		if errors.Is(msg.Err, provider.ErrExhausted) {
			m.err = errNoLyrics
		} else {
			m.err = msg.Err
		}
		return m, nil
	}

	s := newSession(msg.Track, msg.Result, m.cfg.Sync.OffsetMs, m.positionMs, m.cfg.Sync.BiasMs)
	if !s.synced() && len(s.plain) == 0 && !msg.Result.Instrumental {
		m.session = nil
		m.err = errNoSyncedLines
		return m, nil
	}

	m.session = s
	m.err = nil
	if s.synced() {
		m.anim.Jump(s.cursor.Index())
	}
	return m, nil
}

func (m Model) handleArtworkFetched(msg ArtworkFetchedMsg) (tea.Model, tea.Cmd) {
	if !msg.Track.IsSameTrack(m.track) {
		return m, nil
	}
	m.setLoadingArtwork(false)

	if msg.Err != nil {
		log.Debug().Err(msg.Err).Str("track", msg.Track.String()).Msg("Artwork unavailable")
		return m, nil
	}
	m.image = msg.Image
	m.palette = msg.Palette
	return m, nil
}

func loadTrackCmd(source player.Source) tea.Cmd {
	if source == nil {
		return nil
	}
	return func() tea.Msg {
		t, err := source.CurrentTrack()
		return TrackLoadedMsg{Track: t, Err: err}
	}
}

func fetchLyricsCmd(chain *provider.Chain, t *track.Info) tea.Cmd {
	if chain == nil {
		return nil
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), resolveTimeout)
		defer cancel()

		result, err := chain.Resolve(ctx, t)
		return LyricsFetchedMsg{Track: t, Result: result, Err: err}
	}
}

func fetchArtworkCmd(client *http.Client, t *track.Info) tea.Cmd {
	return func() tea.Msg {
		img, err := artwork.Fetch(context.Background(), client, t.ArtworkURL)
		if err != nil {
			return ArtworkFetchedMsg{Track: t, Err: err}
		}
		return ArtworkFetchedMsg{Track: t, Image: img, Palette: artwork.ExtractPalette(img)}
	}
}

func saveOffsetCmd(chain *provider.Chain, t *track.Info, offsetMs int64) tea.Cmd {
	if chain == nil {
		return nil
	}
	return func() tea.Msg {
		return offsetSavedMsg{Err: chain.SaveOffset(t, offsetMs)}
	}
}

func splitPlain(text string) []string {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
