package track_test

import (
	"testing"

	"karolbroda.com/linesync/internal/track"
)

func TestIsSameTrack(t *testing.T) {
	tests := []struct {
		name string
		a, b *track.Info
		want bool
	}{
		{"both nil", nil, nil, true},
		{"one nil", &track.Info{Title: "a"}, nil, false},
		{"ids match", &track.Info{TrackID: "1", Title: "a"}, &track.Info{TrackID: "1", Title: "b"}, true},
		{"ids differ", &track.Info{TrackID: "1", Title: "a", Artist: "x"}, &track.Info{TrackID: "2", Title: "a", Artist: "x"}, false},
		{"names match", &track.Info{Title: "a", Artist: "x"}, &track.Info{Title: "a", Artist: "x"}, true},
		{"album differs", &track.Info{Title: "a", Artist: "x", Album: "1"}, &track.Info{Title: "a", Artist: "x", Album: "2"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.IsSameTrack(tt.b); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestDurationSecs(t *testing.T) {
	info := &track.Info{DurationMs: 215999}
	if info.DurationSecs() != 215 {
		t.Errorf("expected 215, got %d", info.DurationSecs())
	}
	var none *track.Info
	if none.DurationSecs() != 0 {
		t.Error("nil track should have zero duration")
	}
}

func TestNormalizeKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Band", "band"},
		{"  The  Band ", "the band"},
		{"Song\t(Live)", "song (live)"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := track.NormalizeKey(tt.in); got != tt.want {
			t.Errorf("NormalizeKey(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
