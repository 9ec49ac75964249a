package ui

import (
	"math"
)

// transitionTicks is how many poll ticks a line change takes to settle.
const transitionTicks = 8

// AnimState drives the scroll and glow when the active line changes.
type AnimState struct {
	TransitionProgress float64
	GlowIntensity      float64
	ScrollPosition     float64
	TargetScrollY      float64
	PrevScrollY        float64
}

func (a *AnimState) Reset() {
	*a = AnimState{TransitionProgress: 1}
}

// Jump moves straight to index without animating, used after seeks.
func (a *AnimState) Jump(index int) {
	a.Reset()
	a.TargetScrollY = float64(index)
	a.PrevScrollY = float64(index)
	a.ScrollPosition = float64(index)
}

// Advance starts a transition to index.
func (a *AnimState) Advance(index int) {
	a.PrevScrollY = a.ScrollPosition
	a.TargetScrollY = float64(index)
	a.TransitionProgress = 0
	a.GlowIntensity = 1
}

// Step moves the animation forward one tick.
func (a *AnimState) Step(ticks int) {
	if ticks <= 0 {
		ticks = transitionTicks
	}

	if a.TransitionProgress < 1 {
		a.TransitionProgress = math.Min(1, a.TransitionProgress+1/float64(ticks))
	}
	a.ScrollPosition = lerp(a.PrevScrollY, a.TargetScrollY, easeOutCubic(a.TransitionProgress))

	if a.GlowIntensity > 0 {
		a.GlowIntensity *= 0.85
		if a.GlowIntensity < 0.01 {
			a.GlowIntensity = 0
		}
	}
}

// Settled reports whether no transition is running.
func (a *AnimState) Settled() bool {
	return a.TransitionProgress >= 1
}

// RowShift is how many rows the lyrics still have to travel, signed in the
// direction of the last change.
func (a *AnimState) RowShift(rowsPerLine int) int {
	return int(math.Round((a.TargetScrollY - a.ScrollPosition) * float64(rowsPerLine)))
}

func easeOutCubic(t float64) float64 {
	if t >= 1 {
		return 1
	}
	if t <= 0 {
		return 0
	}
	return 1 - math.Pow(1-t, 3)
}

func lerp(a float64, b float64, t float64) float64 {
	return a + (b-a)*t
}
