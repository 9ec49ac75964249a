package lyrics

import "fmt"

// Line is one lyric line with its start offset in milliseconds.
type Line struct {
	StartMs int64
	Text    string
}

// Result is a lyrics payload as returned by a provider or read from a store.
type Result struct {
	TrackName    string
	ArtistName   string
	AlbumName    string
	Duration     float64
	Instrumental bool
	PlainLyrics  string
	SyncedLyrics string
	SyncOffsetMs int64
	Source       string
}

// Empty reports whether the result carries nothing worth showing.
func (r *Result) Empty() bool {
	if r == nil {
		return true
	}
	return r.PlainLyrics == "" && r.SyncedLyrics == "" && !r.Instrumental
}

// Lines parses the synced lyrics of the result, or nil when there are none.
func (r *Result) Lines() []Line {
	if r == nil || r.SyncedLyrics == "" {
		return nil
	}
	return ParseSynced(r.SyncedLyrics)
}

// Timesynced reports whether lines carry real timing information.
func Timesynced(lines []Line) bool {
	for _, line := range lines {
		if line.StartMs != 0 {
			return true
		}
	}
	return false
}

// FormatTimestamp renders ms as m:ss.xx.
func FormatTimestamp(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	minutes := ms / 60000
	rest := ms % 60000
	return fmt.Sprintf("%d:%02d.%02d", minutes, rest/1000, (rest%1000)/10)
}
