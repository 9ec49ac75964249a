package player

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/godbus/dbus/v5"
	"github.com/rs/zerolog/log"

	"karolbroda.com/linesync/internal/track"
)

const (
	mprisPath        = "/org/mpris/MediaPlayer2"
	mprisPrefix      = "org.mpris.MediaPlayer2."
	mprisPlayerIface = "org.mpris.MediaPlayer2.Player"

	signalPropertiesChanged = "org.freedesktop.DBus.Properties.PropertiesChanged"
	signalSeeked            = "org.mpris.MediaPlayer2.Player.Seeked"
)

// MPRIS follows one player on the session bus.
type MPRIS struct {
	bus        *dbus.Conn
	ownsBus    bool
	service    string
	signalChan chan *dbus.Signal
	stopChan   chan struct{}
	stopOnce   sync.Once
	events     chan Event
	state      *State

	mu     sync.Mutex
	closed bool
}

// NewMPRIS connects to the session bus.
func NewMPRIS(service string) (*MPRIS, error) {
	bus, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}
	m, err := NewMPRISWithConn(bus, service)
	if err != nil {
		bus.Close()
		return nil, err
	}
	m.ownsBus = true
	return m, nil
}

// NewMPRISWithConn uses an existing bus connection, which the caller keeps
// ownership of.
func NewMPRISWithConn(bus *dbus.Conn, service string) (*MPRIS, error) {
	if bus == nil {
		return nil, errors.New("nil dbus connection")
	}
	if service == "" {
		return nil, errors.New("empty mpris service name")
	}
	return newMPRIS(bus, service), nil
}

func newMPRIS(bus *dbus.Conn, service string) *MPRIS {
	return &MPRIS{
		bus:      bus,
		service:  service,
		stopChan: make(chan struct{}),
		events:   make(chan Event, 16),
		state:    NewState(),
	}
}

func (m *MPRIS) Name() string {
	return strings.TrimPrefix(m.service, mprisPrefix)
}

func (m *MPRIS) Start() error {
	if m.isClosed() {
		return ErrClosed
	}

	m.signalChan = make(chan *dbus.Signal, 10)
	m.bus.Signal(m.signalChan)

	matchPropertiesChanged := fmt.Sprintf(
		"type='signal',sender='%s',interface='org.freedesktop.DBus.Properties',member='PropertiesChanged',path='%s'",
		m.service, mprisPath,
	)
	matchSeeked := fmt.Sprintf(
		"type='signal',sender='%s',interface='%s',member='Seeked',path='%s'",
		m.service, mprisPlayerIface, mprisPath,
	)

	if err := m.bus.BusObject().Call("org.freedesktop.DBus.AddMatch", 0, matchPropertiesChanged).Err; err != nil {
		return fmt.Errorf("failed to add properties match: %w", err)
	}
	if err := m.bus.BusObject().Call("org.freedesktop.DBus.AddMatch", 0, matchSeeked).Err; err != nil {
		return fmt.Errorf("failed to add seeked match: %w", err)
	}

	// seed playback state, the signal only arrives on change
	if prop, err := m.player().GetProperty(mprisPlayerIface + ".PlaybackStatus"); err == nil {
		if status, ok := prop.Value().(string); ok {
			m.state.SetPlaying(status == "Playing")
		}
	}

	go m.signalLoop()
	return nil
}

func (m *MPRIS) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()

	m.stopOnce.Do(func() {
		close(m.stopChan)
	})

	if m.signalChan != nil {
		m.bus.RemoveSignal(m.signalChan)
	}
	if m.ownsBus {
		return m.bus.Close()
	}
	return nil
}

func (m *MPRIS) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *MPRIS) Events() <-chan Event {
	return m.events
}

func (m *MPRIS) Playing() bool {
	return m.state.Playing()
}

func (m *MPRIS) player() dbus.BusObject {
	return m.bus.Object(m.service, mprisPath)
}

func (m *MPRIS) CurrentTrack() (*track.Info, error) {
	if m.isClosed() {
		return nil, ErrClosed
	}

	prop, err := m.player().GetProperty(mprisPlayerIface + ".Metadata")
	if err != nil {
		return nil, fmt.Errorf("failed to get metadata property: %w", err)
	}

	metadata, ok := prop.Value().(map[string]dbus.Variant)
	if !ok {
		return nil, fmt.Errorf("unexpected metadata type %T", prop.Value())
	}

	info := trackFromMetadata(metadata)
	if !info.IsValid() {
		return nil, fmt.Errorf("missing title or artist in metadata (title=%q, artist=%q)", info.Title, info.Artist)
	}

	if m.state.SetTrack(info) {
		emit(m.events, Event{Kind: EventTrackChanged, Track: info})
	}
	return info, nil
}

// PositionMs reads the Position property, reported by MPRIS in
// microseconds.
func (m *MPRIS) PositionMs() (int64, error) {
	if m.isClosed() {
		return 0, ErrClosed
	}

	prop, err := m.player().GetProperty(mprisPlayerIface + ".Position")
	if err != nil {
		return 0, fmt.Errorf("failed to get position property: %w", err)
	}

	micros, ok := prop.Value().(int64)
	if !ok {
		return 0, fmt.Errorf("unexpected position type %T", prop.Value())
	}

	pos := microsToMs(micros)
	if m.state.Observe(pos) {
		emit(m.events, Event{Kind: EventSeeked, PositionMs: pos})
	}
	return pos, nil
}

func (m *MPRIS) signalLoop() {
	for {
		select {
		case sig, ok := <-m.signalChan:
			if !ok {
				return
			}
			m.handleSignal(sig)
		case <-m.stopChan:
			return
		}
	}
}

func (m *MPRIS) handleSignal(sig *dbus.Signal) {
	if sig == nil {
		return
	}

	switch sig.Name {
	case signalPropertiesChanged:
		m.handlePropertiesChanged(sig)
	case signalSeeked:
		m.handleSeeked(sig)
	}
}

func (m *MPRIS) handlePropertiesChanged(sig *dbus.Signal) {
	if len(sig.Body) < 2 {
		return
	}

	iface, ok := sig.Body[0].(string)
	if !ok || iface != mprisPlayerIface {
		return
	}

	changed, ok := sig.Body[1].(map[string]dbus.Variant)
	if !ok {
		return
	}

	if variant, exists := changed["Metadata"]; exists {
		if metadata, ok := variant.Value().(map[string]dbus.Variant); ok {
			info := trackFromMetadata(metadata)
			if info.IsValid() && m.state.SetTrack(info) {
				log.Debug().Str("track", info.String()).Msg("Track changed")
				emit(m.events, Event{Kind: EventTrackChanged, Track: info})
			}
		}
	}

	if variant, exists := changed["PlaybackStatus"]; exists {
		if status, ok := variant.Value().(string); ok {
			playing := status == "Playing"
			if m.state.SetPlaying(playing) {
				emit(m.events, Event{Kind: EventPlaybackStateChanged, Playing: playing})
			}
		}
	}
}

func (m *MPRIS) handleSeeked(sig *dbus.Signal) {
	if len(sig.Body) < 1 {
		return
	}

	micros, ok := sig.Body[0].(int64)
	if !ok {
		return
	}

	pos := microsToMs(micros)
	m.state.UpdatePosition(pos)
	emit(m.events, Event{Kind: EventSeeked, PositionMs: pos})
}

func microsToMs(micros int64) int64 {
	if micros < 0 {
		return 0
	}
	return micros / 1000
}

func trackFromMetadata(metadata map[string]dbus.Variant) *track.Info {
	return &track.Info{
		Title:      extractString(metadata, "xesam:title"),
		Artist:     extractArtist(metadata, "xesam:artist"),
		Album:      extractString(metadata, "xesam:album"),
		ArtworkURL: extractString(metadata, "mpris:artUrl"),
		TrackID:    extractTrackID(metadata, "mpris:trackid"),
		Path:       extractString(metadata, "xesam:url"),
		DurationMs: extractDurationMs(metadata, "mpris:length"),
	}
}

func extractString(metadata map[string]dbus.Variant, key string) string {
	variant, exists := metadata[key]
	if !exists {
		return ""
	}
	text, _ := variant.Value().(string)
	return text
}

// extractTrackID accepts an object path or the plain string some players
// send instead.
func extractTrackID(metadata map[string]dbus.Variant, key string) string {
	variant, exists := metadata[key]
	if !exists {
		return ""
	}
	switch typed := variant.Value().(type) {
	case dbus.ObjectPath:
		return string(typed)
	case string:
		return typed
	default:
		return ""
	}
}

func extractArtist(metadata map[string]dbus.Variant, key string) string {
	variant, exists := metadata[key]
	if !exists {
		return ""
	}

	switch typed := variant.Value().(type) {
	case []string:
		return strings.Join(typed, ", ")
	case string:
		return typed
	default:
		return ""
	}
}

func extractDurationMs(metadata map[string]dbus.Variant, key string) int64 {
	variant, exists := metadata[key]
	if !exists {
		return 0
	}

	switch typed := variant.Value().(type) {
	case int64:
		return microsToMs(typed)
	case uint64:
		return int64(typed / 1000)
	case int32:
		return microsToMs(int64(typed))
	default:
		return 0
	}
}

// List returns the MPRIS service names currently on the session bus.
func List() ([]string, error) {
	bus, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}
	defer bus.Close()

	var names []string
	if err := bus.BusObject().Call("org.freedesktop.DBus.ListNames", 0).Store(&names); err != nil {
		return nil, fmt.Errorf("failed to list bus names: %w", err)
	}
	return filterPlayers(names), nil
}

func filterPlayers(names []string) []string {
	var out []string
	for _, name := range names {
		if strings.HasPrefix(name, mprisPrefix) {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}
