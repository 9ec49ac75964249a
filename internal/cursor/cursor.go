// Package cursor tracks which lyric line is active for a moving playback
// position.
//
// A Cursor is owned by a single caller and is not safe for concurrent use.
// Callers poll it with Update on a short fixed interval; the index is the
// greatest line whose start is at or before position+bias, or -1 when no
// line has started yet.
package cursor

import (
	"sort"

	"karolbroda.com/linesync/internal/lyrics"
)

// DefaultBiasMs compensates for the delay between reading the position and
// the line being drawn.
const DefaultBiasMs int64 = 50

// reseekDistance is how many lines Update will walk before falling back to a
// binary search.
const reseekDistance = 4

// PositionFunc returns the current playback position in milliseconds.
type PositionFunc func() (int64, error)

type Option func(*Cursor)

// WithBias overrides DefaultBiasMs.
func WithBias(ms int64) Option {
	return func(c *Cursor) {
		c.biasMs = ms
	}
}

type Cursor struct {
	lines    []lyrics.Line
	position PositionFunc
	biasMs   int64
	index    int
	err      error
}

// New builds a cursor and places it on the line matching the current position.
func New(lines []lyrics.Line, position PositionFunc, opts ...Option) *Cursor {
	c := &Cursor{
		lines:    lines,
		position: position,
		biasMs:   DefaultBiasMs,
		index:    -1,
	}

	for _, opt := range opts {
		opt(c)
	}

	if pos, ok := c.read(); ok {
		c.index = c.search(pos)
	}

	return c
}

// Update re-reads the position and moves the index. It reports whether the
// index changed since the previous call.
func (c *Cursor) Update() bool {
	if len(c.lines) == 0 {
		return false
	}

	pos, ok := c.read()
	if !ok {
		return false
	}

	prev := c.index
	next := c.index

	steps := 0
	for next+1 < len(c.lines) && c.lines[next+1].StartMs <= pos {
		next++
		steps++
		if steps > reseekDistance {
			next = c.search(pos)
			break
		}
	}

	steps = 0
	for next >= 0 && c.lines[next].StartMs > pos {
		next--
		steps++
		if steps > reseekDistance {
			next = c.search(pos)
			break
		}
	}

	c.index = next
	return next != prev
}

// Index is the active line, -1 when none.
func (c *Cursor) Index() int {
	return c.index
}

// Line returns the active line.
func (c *Cursor) Line() (lyrics.Line, bool) {
	if c.index < 0 || c.index >= len(c.lines) {
		return lyrics.Line{}, false
	}
	return c.lines[c.index], true
}

func (c *Cursor) Lines() []lyrics.Line {
	return c.lines
}

func (c *Cursor) Len() int {
	return len(c.lines)
}

// Err is the error of the last failed position read, nil after a good one.
func (c *Cursor) Err() error {
	return c.err
}

func (c *Cursor) read() (int64, bool) {
	if c.position == nil {
		return 0, false
	}
	pos, err := c.position()
	if err != nil {
		c.err = err
		return 0, false
	}
	c.err = nil
	return pos + c.biasMs, true
}

// search finds the greatest index with StartMs <= pos.
func (c *Cursor) search(pos int64) int {
	n := sort.Search(len(c.lines), func(i int) bool {
		return c.lines[i].StartMs > pos
	})
	return n - 1
}
