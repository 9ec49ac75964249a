// Package ui is the bubbletea lyrics screen.
package ui

import (
	"image"
	"net/http"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"karolbroda.com/linesync/internal/colors"
	"karolbroda.com/linesync/internal/config"
	"karolbroda.com/linesync/internal/cursor"
	"karolbroda.com/linesync/internal/lyrics"
	"karolbroda.com/linesync/internal/player"
	"karolbroda.com/linesync/internal/provider"
	"karolbroda.com/linesync/internal/style"
	"karolbroda.com/linesync/internal/terminal"
	"karolbroda.com/linesync/internal/track"
)

type LoadingState int

const (
	LoadingNone LoadingState = iota
	LoadingLyrics
	LoadingArtwork
	LoadingBoth
)

func (l LoadingState) IsLoadingLyrics() bool {
	return l == LoadingLyrics || l == LoadingBoth
}

func (l LoadingState) IsLoadingArtwork() bool {
	return l == LoadingArtwork || l == LoadingBoth
}

type TickMsg time.Time

type PlayerEventMsg struct {
	Event player.Event
}

type TrackLoadedMsg struct {
	Track *track.Info
	Err   error
}

type LyricsFetchedMsg struct {
	Track  *track.Info
	Result *lyrics.Result
	Err    error
}

type ArtworkFetchedMsg struct {
	Track   *track.Info
	Image   image.Image
	Palette colors.Palette
	Err     error
}

type ConfigChangedMsg struct {
	Config config.Config
}

type offsetSavedMsg struct {
	Err error
}

// session is the lyrics of one song together with the cursor walking them.
// It lives behind a pointer so the cursor's position callback sees offset
// changes made by key presses.
type session struct {
	track      *track.Info
	result     *lyrics.Result
	cursor     *cursor.Cursor
	plain      []string
	offsetMs   int64
	positionMs int64
}

func newSession(t *track.Info, result *lyrics.Result, baseOffsetMs, positionMs, biasMs int64) *session {
	s := &session{
		track:      t,
		result:     result,
		offsetMs:   baseOffsetMs,
		positionMs: positionMs,
	}
	if result.SyncOffsetMs != 0 {
		s.offsetMs = result.SyncOffsetMs
	}

	if lines := result.Lines(); lyrics.Timesynced(lines) {
		s.cursor = cursor.New(lines, s.position, cursor.WithBias(biasMs))
	} else if result.PlainLyrics != "" {
		s.plain = splitPlain(result.PlainLyrics)
	}
	return s
}

func (s *session) position() (int64, error) {
	return s.positionMs + s.offsetMs, nil
}

func (s *session) synced() bool {
	return s.cursor != nil
}

// Options wires the model to its collaborators.
type Options struct {
	Config     config.Config
	Source     player.Source
	Chain      *provider.Chain
	Caps       terminal.Capabilities
	HTTPClient *http.Client
	// Updates delivers config changes from the store, may be nil.
	Updates <-chan config.Config
}

type Model struct {
	source     player.Source
	chain      *provider.Chain
	caps       terminal.Capabilities
	httpClient *http.Client
	updates    <-chan config.Config

	cfg           config.Config
	display       style.Display
	hideHeader    bool
	lyricsEnabled bool

	track        *track.Info
	image        image.Image
	palette      colors.Palette
	session      *session
	positionMs   int64
	playing      bool
	loadingState LoadingState
	err          error
	quitting     bool
	width        int
	height       int
	tickCount    int
	anim         AnimState
}

func NewModel(opts Options) Model {
	m := Model{
		source:        opts.Source,
		chain:         opts.Chain,
		caps:          opts.Caps,
		httpClient:    opts.HTTPClient,
		updates:       opts.Updates,
		cfg:           opts.Config,
		display:       style.FromConfig(opts.Config.Display),
		hideHeader:    opts.Config.Display.HideHeader,
		lyricsEnabled: opts.Config.Lyrics.Enabled,
		palette:       colors.DefaultPalette(),
	}
	m.anim.Reset()
	return m
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.tickCmd(),
		m.listenForPlayerEvents(),
		m.listenForConfig(),
		loadTrackCmd(m.source),
	)
}

func (m Model) tickCmd() tea.Cmd {
	interval := m.cfg.Sync.PollInterval
	if interval <= 0 {
		interval = config.PollInterval
	}
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

func (m Model) listenForPlayerEvents() tea.Cmd {
	if m.source == nil {
		return nil
	}
	events := m.source.Events()
	return func() tea.Msg {
		event, ok := <-events
		if !ok {
			return nil
		}
		return PlayerEventMsg{Event: event}
	}
}

func (m Model) listenForConfig() tea.Cmd {
	if m.updates == nil {
		return nil
	}
	updates := m.updates
	return func() tea.Msg {
		cfg, ok := <-updates
		if !ok {
			return nil
		}
		return ConfigChangedMsg{Config: cfg}
	}
}

func (m *Model) setLoadingLyrics(loading bool) {
	artwork := m.loadingState.IsLoadingArtwork()
	m.loadingState = loadingFrom(loading, artwork)
}

func (m *Model) setLoadingArtwork(loading bool) {
	lyricsLoading := m.loadingState.IsLoadingLyrics()
	m.loadingState = loadingFrom(lyricsLoading, loading)
}

func loadingFrom(lyricsLoading, artworkLoading bool) LoadingState {
	switch {
	case lyricsLoading && artworkLoading:
		return LoadingBoth
	case lyricsLoading:
		return LoadingLyrics
	case artworkLoading:
		return LoadingArtwork
	default:
		return LoadingNone
	}
}

func (m *Model) resetForNewTrack() {
	m.session = nil
	m.image = nil
	m.palette = colors.DefaultPalette()
	m.positionMs = 0
	m.err = nil
	m.loadingState = LoadingNone
	m.anim.Reset()
}

// CurrentIndex is the active lyric line, -1 when there is none.
func (m Model) CurrentIndex() int {
	if m.session == nil || m.session.cursor == nil {
		return -1
	}
	return m.session.cursor.Index()
}

// OffsetMs is the sync offset of the current song.
func (m Model) OffsetMs() int64 {
	if m.session == nil {
		return 0
	}
	return m.session.offsetMs
}

func (m Model) Width() int  { return m.width }
func (m Model) Height() int { return m.height }

func (m Model) Track() *track.Info      { return m.track }
func (m Model) Position() int64         { return m.positionMs }
func (m Model) Palette() colors.Palette { return m.palette }
func (m Model) Image() image.Image      { return m.image }
func (m Model) Display() style.Display  { return m.display }
func (m Model) HideHeader() bool        { return m.hideHeader }
func (m Model) LyricsEnabled() bool     { return m.lyricsEnabled }
func (m Model) TickCount() int          { return m.tickCount }
func (m Model) Err() error              { return m.err }
func (m Model) IsQuitting() bool        { return m.quitting }
func (m Model) IsLoadingLyrics() bool   { return m.loadingState.IsLoadingLyrics() }
func (m Model) IsLoadingArtwork() bool  { return m.loadingState.IsLoadingArtwork() }
func (m Model) AnimState() *AnimState   { return &m.anim }
func (m Model) HasLyrics() bool         { return m.session != nil }

func (m Model) Lyrics() *lyrics.Result {
	if m.session == nil {
		return nil
	}
	return m.session.result
}

func (m *Model) Stop() {
	if m.source != nil {
		_ = m.source.Close()
	}
}
