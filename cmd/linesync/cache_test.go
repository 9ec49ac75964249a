package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"karolbroda.com/linesync/internal/track"
)

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1024, "1.0 KB"},
		{1536, "1.5 KB"},
		{5 * 1024 * 1024, "5.0 MB"},
	}
	for _, tt := range tests {
		if got := formatBytes(tt.in); got != tt.want {
			t.Errorf("formatBytes(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFindSimilarSongs(t *testing.T) {
	songs := []storedSong{
		{Artist: "Daft Punk", Title: "One More Time"},
		{Artist: "Daft Punk", Title: "Around the World"},
		{Artist: "Daft Punk Tribute", Title: "One More Time (Live)"},
	}

	got := findSimilarSongs(songs, "daft punk", "one more")
	if len(got) != 1 || got[0].Title != "One More Time" {
		t.Fatalf("same artist match = %+v", got)
	}

	got = findSimilarSongs(songs, "punk", "live")
	if len(got) != 1 || got[0].Artist != "Daft Punk Tribute" {
		t.Fatalf("loose match = %+v", got)
	}

	if got := findSimilarSongs(songs, "nobody", "nothing"); len(got) != 0 {
		t.Fatalf("expected no matches, got %+v", got)
	}
}

func TestSortSongs(t *testing.T) {
	now := time.Now()
	songs := []storedSong{
		{Artist: "b", Title: "z", Cached: now.Add(-time.Hour)},
		{Artist: "A", Title: "y", Cached: now},
		{Artist: "c", Title: "X", Cached: now.Add(-2 * time.Hour)},
	}

	sortSongs(songs, "artist")
	if songs[0].Artist != "A" || songs[2].Artist != "c" {
		t.Errorf("artist order = %v", songs)
	}

	sortSongs(songs, "title")
	if songs[0].Title != "X" || songs[2].Title != "z" {
		t.Errorf("title order = %v", songs)
	}

	sortSongs(songs, "date")
	if songs[0].Artist != "A" || songs[2].Artist != "c" {
		t.Errorf("date order = %v", songs)
	}
}

func TestWriteSongTable(t *testing.T) {
	var buf bytes.Buffer
	writeSongTable(&buf, []storedSong{
		{Artist: "Artist", Title: "Song", OffsetMs: 1500, Synced: true, Cached: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
	})

	out := buf.String()
	for _, want := range []string{"ARTIST", "Song", "yes", "+1.5s", "2024-03-01"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
}

func TestConfirm(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{"n\n", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := confirm(strings.NewReader(tt.in), ""); got != tt.want {
			t.Errorf("confirm(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestPrintTrack(t *testing.T) {
	var buf bytes.Buffer
	printTrack(&buf, "mpd", &track.Info{Artist: "Artist", Title: "Song", DurationMs: 185000, Path: "a/b.flac"}, 61000)

	out := buf.String()
	for _, want := range []string{"player:   mpd", "title:    Song", "duration: 3:05", "file:     a/b.flac", "position: 1:01"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	buf.Reset()
	printTrack(&buf, "mpris", &track.Info{}, -1)
	if !strings.Contains(buf.String(), "no track currently playing") {
		t.Errorf("empty track output = %q", buf.String())
	}
}
