package ui

import "testing"

func TestAnimAdvanceSettles(t *testing.T) {
	var a AnimState
	a.Reset()
	a.Jump(2)

	a.Advance(3)
	if a.Settled() || a.GlowIntensity != 1 {
		t.Fatalf("advance should start a transition: %+v", a)
	}
	if a.RowShift(2) != 2 {
		t.Errorf("RowShift = %d, want 2 before the first step", a.RowShift(2))
	}

	for i := 0; i < transitionTicks; i++ {
		a.Step(transitionTicks)
	}
	if !a.Settled() {
		t.Error("should settle after transitionTicks steps")
	}
	if a.ScrollPosition != 3 || a.RowShift(2) != 0 {
		t.Errorf("scroll = %v, shift = %d", a.ScrollPosition, a.RowShift(2))
	}
	if a.GlowIntensity >= 1 {
		t.Error("glow should decay")
	}
}

func TestEaseOutCubic(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{-1, 0},
		{0, 0},
		{1, 1},
		{2, 1},
		{0.5, 0.875},
	}
	for _, tt := range tests {
		if got := easeOutCubic(tt.in); got != tt.want {
			t.Errorf("easeOutCubic(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
