package lyrics_test

import (
	"testing"

	"karolbroda.com/linesync/internal/lyrics"
)

func TestParseSynced(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []lyrics.Line
	}{
		{
			name: "empty input",
			raw:  "",
			want: nil,
		},
		{
			name: "plain text has no lines",
			raw:  "just some words\nwithout timing",
			want: nil,
		},
		{
			name: "hundredths",
			raw:  "[00:01.50]first\n[00:03.25]second",
			want: []lyrics.Line{{StartMs: 1500, Text: "first"}, {StartMs: 3250, Text: "second"}},
		},
		{
			name: "whole seconds and milliseconds",
			raw:  "[01:02]a\n[01:02.345]b",
			want: []lyrics.Line{{StartMs: 62000, Text: "a"}, {StartMs: 62345, Text: "b"}},
		},
		{
			name: "hours",
			raw:  "[1:00:00.00]late",
			want: []lyrics.Line{{StartMs: 3600000, Text: "late"}},
		},
		{
			name: "metadata is ignored",
			raw:  "[ar:Someone]\n[ti:Song]\n[00:00.00]start",
			want: []lyrics.Line{{StartMs: 0, Text: "start"}},
		},
		{
			name: "empty text line is kept",
			raw:  "[00:01.00]sing\n[00:05.00]\n[00:09.00]again",
			want: []lyrics.Line{{StartMs: 1000, Text: "sing"}, {StartMs: 5000, Text: ""}, {StartMs: 9000, Text: "again"}},
		},
		{
			name: "several tags on one line",
			raw:  "[00:10.00][00:30.00]chorus\n[00:20.00]verse",
			want: []lyrics.Line{{StartMs: 10000, Text: "chorus"}, {StartMs: 20000, Text: "verse"}, {StartMs: 30000, Text: "chorus"}},
		},
		{
			name: "positive offset shows lines sooner",
			raw:  "[offset:+500]\n[00:02.00]a\n[00:00.20]b",
			want: []lyrics.Line{{StartMs: 0, Text: "b"}, {StartMs: 1500, Text: "a"}},
		},
		{
			name: "negative offset delays lines",
			raw:  "[offset:-250]\n[00:01.00]a",
			want: []lyrics.Line{{StartMs: 1250, Text: "a"}},
		},
		{
			name: "garbage tags are skipped",
			raw:  "[xx:yy]nope\n[00:01.00]yes",
			want: []lyrics.Line{{StartMs: 1000, Text: "yes"}},
		},
		{
			name: "windows line endings",
			raw:  "[00:01.00]a\r\n[00:02.00]b\r\n",
			want: []lyrics.Line{{StartMs: 1000, Text: "a"}, {StartMs: 2000, Text: "b"}},
		},
		{
			name: "duplicate timestamps keep input order",
			raw:  "[00:01.00]a\n[00:01.00]b",
			want: []lyrics.Line{{StartMs: 1000, Text: "a"}, {StartMs: 1000, Text: "b"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := lyrics.ParseSynced(tt.raw)
			if len(got) != len(tt.want) {
				t.Fatalf("expected %d lines, got %d (%v)", len(tt.want), len(got), got)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("line %d: expected %+v, got %+v", i, tt.want[i], got[i])
				}
			}
		})
	}
}

func TestResultEmpty(t *testing.T) {
	var nilResult *lyrics.Result
	if !nilResult.Empty() {
		t.Error("nil result should be empty")
	}
	if !(&lyrics.Result{TrackName: "x"}).Empty() {
		t.Error("result without lyrics should be empty")
	}
	if (&lyrics.Result{Instrumental: true}).Empty() {
		t.Error("instrumental result should not be empty")
	}
	if (&lyrics.Result{PlainLyrics: "la"}).Empty() {
		t.Error("plain lyrics result should not be empty")
	}
}

func TestTimesynced(t *testing.T) {
	if lyrics.Timesynced(nil) {
		t.Error("nil lines are not timesynced")
	}
	if lyrics.Timesynced([]lyrics.Line{{StartMs: 0, Text: "a"}, {StartMs: 0, Text: "b"}}) {
		t.Error("all-zero lines are not timesynced")
	}
	if !lyrics.Timesynced([]lyrics.Line{{StartMs: 0, Text: "a"}, {StartMs: 1200, Text: "b"}}) {
		t.Error("expected timesynced")
	}
}

func TestFormatTimestamp(t *testing.T) {
	tests := map[int64]string{
		0:      "0:00.00",
		1500:   "0:01.50",
		62345:  "1:02.34",
		-20:    "0:00.00",
		600000: "10:00.00",
	}
	for in, want := range tests {
		if got := lyrics.FormatTimestamp(in); got != want {
			t.Errorf("FormatTimestamp(%d) = %q, want %q", in, got, want)
		}
	}
}
