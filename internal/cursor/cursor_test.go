package cursor_test

import (
	"context"
	"errors"
	"math/rand"
	"sort"
	"testing"
	"time"

	"karolbroda.com/linesync/internal/cursor"
	"karolbroda.com/linesync/internal/lyrics"
)

// clock is a settable position source.
type clock struct {
	pos int64
	err error
}

func (c *clock) read() (int64, error) {
	return c.pos, c.err
}

var abc = []lyrics.Line{
	{StartMs: 0, Text: "a"},
	{StartMs: 1000, Text: "b"},
	{StartMs: 2000, Text: "c"},
}

func TestNewPlacesCursor(t *testing.T) {
	tests := []struct {
		name string
		pos  int64
		want int
		text string
	}{
		{"middle of first line", 500, 0, "a"},
		{"exactly on second line", 1000, 1, "b"},
		{"past the last line", 2500, 2, "c"},
		{"before the first line", -100, -1, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clk := &clock{pos: tt.pos}
			c := cursor.New(abc, clk.read, cursor.WithBias(0))

			if c.Index() != tt.want {
				t.Fatalf("expected index %d, got %d", tt.want, c.Index())
			}
			line, ok := c.Line()
			if tt.want < 0 {
				if ok {
					t.Errorf("expected no active line, got %+v", line)
				}
				return
			}
			if !ok || line.Text != tt.text {
				t.Errorf("expected line %q, got %+v (ok=%v)", tt.text, line, ok)
			}
		})
	}
}

func TestDefaultBias(t *testing.T) {
	clk := &clock{pos: 960}
	c := cursor.New(abc, clk.read)
	if c.Index() != 1 {
		t.Errorf("expected bias to select line 1 at 960ms, got %d", c.Index())
	}

	clk.pos = 940
	c = cursor.New(abc, clk.read)
	if c.Index() != 0 {
		t.Errorf("expected line 0 at 940ms, got %d", c.Index())
	}
}

func TestUpdateReportsChanges(t *testing.T) {
	clk := &clock{pos: 0}
	c := cursor.New(abc, clk.read, cursor.WithBias(0))

	if c.Update() {
		t.Error("update at unchanged position should report no change")
	}

	clk.pos = 1000
	if !c.Update() {
		t.Error("expected change when crossing into line 1")
	}
	if c.Index() != 1 {
		t.Errorf("expected index 1, got %d", c.Index())
	}

	for i := 0; i < 5; i++ {
		if c.Update() {
			t.Fatalf("update %d at same position reported a change", i)
		}
	}
}

func TestUpdateHandlesSeeks(t *testing.T) {
	clk := &clock{pos: 2500}
	c := cursor.New(abc, clk.read, cursor.WithBias(0))

	clk.pos = 500
	if !c.Update() || c.Index() != 0 {
		t.Fatalf("expected backward seek to land on 0, got %d", c.Index())
	}

	clk.pos = -1
	if !c.Update() || c.Index() != -1 {
		t.Fatalf("expected seek before start to clear the cursor, got %d", c.Index())
	}

	clk.pos = 1999
	if !c.Update() || c.Index() != 1 {
		t.Fatalf("expected forward seek to land on 1, got %d", c.Index())
	}
}

func TestLongSeeksUseSearch(t *testing.T) {
	lines := make([]lyrics.Line, 100)
	for i := range lines {
		lines[i] = lyrics.Line{StartMs: int64(i) * 1000, Text: "x"}
	}

	clk := &clock{pos: 0}
	c := cursor.New(lines, clk.read, cursor.WithBias(0))

	clk.pos = 73500
	c.Update()
	if c.Index() != 73 {
		t.Errorf("expected 73 after long forward seek, got %d", c.Index())
	}

	clk.pos = 12000
	c.Update()
	if c.Index() != 12 {
		t.Errorf("expected 12 after long backward seek, got %d", c.Index())
	}
}

func TestEmptyLines(t *testing.T) {
	clk := &clock{pos: 5000}
	c := cursor.New(nil, clk.read)

	if c.Index() != -1 {
		t.Fatalf("expected -1, got %d", c.Index())
	}
	for _, pos := range []int64{0, 100, 10000, -5} {
		clk.pos = pos
		if c.Update() {
			t.Errorf("empty cursor reported change at %d", pos)
		}
		if c.Index() != -1 {
			t.Errorf("empty cursor moved to %d", c.Index())
		}
	}
}

func TestDuplicateTimestampsPickLaterLine(t *testing.T) {
	lines := []lyrics.Line{{StartMs: 1000, Text: "a"}, {StartMs: 1000, Text: "b"}}
	clk := &clock{pos: 1000}
	c := cursor.New(lines, clk.read, cursor.WithBias(0))

	line, ok := c.Line()
	if !ok || line.Text != "b" {
		t.Fatalf("expected b, got %+v", line)
	}

	clk.pos = 0
	c.Update()
	clk.pos = 1000
	c.Update()
	if line, _ := c.Line(); line.Text != "b" {
		t.Errorf("expected b after walking forward, got %q", line.Text)
	}
}

func TestPositionErrorKeepsIndex(t *testing.T) {
	clk := &clock{pos: 1500}
	c := cursor.New(abc, clk.read, cursor.WithBias(0))

	clk.err = errors.New("player went away")
	clk.pos = 0
	if c.Update() {
		t.Error("failed read should not report a change")
	}
	if c.Index() != 1 {
		t.Errorf("expected index to stay at 1, got %d", c.Index())
	}
	if c.Err() == nil {
		t.Error("expected Err to report the failed read")
	}

	clk.err = nil
	c.Update()
	if c.Err() != nil {
		t.Error("expected Err to clear after a good read")
	}
	if c.Index() != 0 {
		t.Errorf("expected index 0 after recovery, got %d", c.Index())
	}
}

// reference is the definition the cursor must agree with.
func reference(lines []lyrics.Line, pos int64) int {
	idx := -1
	for i, l := range lines {
		if l.StartMs <= pos {
			idx = i
		}
	}
	return idx
}

func randomLines(rng *rand.Rand) []lyrics.Line {
	n := rng.Intn(30)
	lines := make([]lyrics.Line, n)
	for i := range lines {
		lines[i] = lyrics.Line{StartMs: int64(rng.Intn(60000)), Text: "x"}
	}
	sort.SliceStable(lines, func(i, j int) bool { return lines[i].StartMs < lines[j].StartMs })
	return lines
}

func TestMonotonicForNonDecreasingPositions(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	for round := 0; round < 200; round++ {
		lines := randomLines(rng)
		clk := &clock{pos: -500}
		c := cursor.New(lines, clk.read, cursor.WithBias(0))

		last := c.Index()
		for step := 0; step < 100; step++ {
			clk.pos += int64(rng.Intn(1500))
			c.Update()
			if c.Index() < last {
				t.Fatalf("round %d: index went back from %d to %d", round, last, c.Index())
			}
			if want := reference(lines, clk.pos); c.Index() != want {
				t.Fatalf("round %d: at %d expected %d, got %d", round, clk.pos, want, c.Index())
			}
			last = c.Index()
		}
	}
}

func TestMatchesReferenceWithSeeks(t *testing.T) {
	rng := rand.New(rand.NewSource(11))

	for round := 0; round < 200; round++ {
		lines := randomLines(rng)
		clk := &clock{pos: int64(rng.Intn(60000))}
		c := cursor.New(lines, clk.read, cursor.WithBias(0))

		for step := 0; step < 100; step++ {
			if rng.Intn(4) == 0 {
				clk.pos = int64(rng.Intn(70000)) - 5000
			} else {
				clk.pos += int64(rng.Intn(400))
			}
			before := c.Index()
			changed := c.Update()
			want := reference(lines, clk.pos)
			if c.Index() != want {
				t.Fatalf("round %d: at %d expected %d, got %d", round, clk.pos, want, c.Index())
			}
			if changed != (before != want) {
				t.Fatalf("round %d: changed=%v but index %d -> %d", round, changed, before, want)
			}
		}
	}
}

func TestRunStopsWhenSourceFails(t *testing.T) {
	clk := &clock{pos: 0}
	c := cursor.New(abc, clk.read, cursor.WithBias(0))
	clk.err = errors.New("closed")

	done := make(chan error, 1)
	go func() {
		done <- cursor.Run(context.Background(), c, time.Millisecond, nil)
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("expected silent stop, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after the source failed")
	}
}

func TestRunReportsChanges(t *testing.T) {
	positions := make(chan int64, 1)
	positions <- 0
	current := int64(0)
	read := func() (int64, error) {
		select {
		case p := <-positions:
			current = p
		default:
		}
		return current, nil
	}

	c := cursor.New(abc, read, cursor.WithBias(0))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes := make(chan int, 4)
	go func() {
		_ = cursor.Run(ctx, c, time.Millisecond, func(index int) {
			changes <- index
		})
	}()

	positions <- 2100

	select {
	case idx := <-changes:
		if idx != 2 {
			t.Errorf("expected change to 2, got %d", idx)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no change reported")
	}
}
