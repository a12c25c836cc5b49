package ui

import (
	"math"
)

// scrollTicks is how many ticks a scroll transition takes.
const scrollTicks = 6

// AnimState eases the rendered scroll offset toward the offset the
// highlight engine asked for.
type AnimState struct {
	Position float64
	Target   float64
	from     float64
	progress float64
}

// Snap jumps straight to target, used when a document first appears.
func (a *AnimState) Snap(target float64) {
	a.Position = target
	a.Target = target
	a.from = target
	a.progress = 1
}

// SetTarget starts a new transition from the current position.
func (a *AnimState) SetTarget(target float64) {
	if target == a.Target {
		return
	}
	a.from = a.Position
	a.Target = target
	a.progress = 0
}

// Update advances one tick and reports whether the position moved.
func (a *AnimState) Update() bool {
	if a.progress >= 1 {
		return false
	}
	a.progress += 1.0 / scrollTicks
	// absorb float drift so the last tick lands exactly on the target
	if a.progress > 1-1e-9 {
		a.progress = 1
	}
	previous := a.Position
	a.Position = lerp(a.from, a.Target, easeOutCubic(a.progress))
	return a.Position != previous
}

func (a *AnimState) Done() bool {
	return a.progress >= 1
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
