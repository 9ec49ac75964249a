package track

import (
	"fmt"
	"strings"
)

// Info describes the media item a player reports as current.
type Info struct {
	Title      string
	Artist     string
	Album      string
	DurationMs int64
	ArtworkURL string
	TrackID    string
	// Path is the file path or URI when the player exposes one (mpd does).
	Path string
}

func (t *Info) IsValid() bool {
	if t == nil {
		return false
	}
	return t.Title != "" && t.Artist != ""
}

func (t *Info) IsSameTrack(other *Info) bool {
	if t == nil || other == nil {
		return t == other
	}
	if t.TrackID != "" && other.TrackID != "" {
		return t.TrackID == other.TrackID
	}
	return t.Title == other.Title && t.Artist == other.Artist && t.Album == other.Album
}

// DurationSecs is the duration rounded down to whole seconds, the unit lyric
// services match on.
func (t *Info) DurationSecs() int64 {
	if t == nil || t.DurationMs <= 0 {
		return 0
	}
	return t.DurationMs / 1000
}

func (t *Info) String() string {
	if t == nil {
		return "<none>"
	}
	return fmt.Sprintf("%s - %s", t.Artist, t.Title)
}

// NormalizeKey is the form stores key artist and title by: lowercased with
// whitespace runs collapsed to one space.
func NormalizeKey(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
