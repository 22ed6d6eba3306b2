package orbital

import (
	"math"
)

// disc is one node's orbital placement in screen space during relaxation.
type disc struct {
	angle  float64
	orbit  float64
	radius float64
	order  int
}

func (d disc) position(cx, cy float64) (float64, float64) {
	return cx + math.Cos(d.angle)*d.orbit, cy + math.Sin(d.angle)*d.orbit
}

// totalOverlap sums max(0, minDist-dist) over all pairs.
func totalOverlap(discs []disc, padding float64) float64 {
	total := 0.0
	for i := 0; i < len(discs); i++ {
		xi, yi := discs[i].position(0, 0)
		for j := i + 1; j < len(discs); j++ {
			xj, yj := discs[j].position(0, 0)
			minDist := discs[i].radius + discs[j].radius + padding
			if d := math.Hypot(xi-xj, yi-yj); d < minDist {
				total += minDist - d
			}
		}
	}
	return total
}

// relax nudges overlapping discs apart by angle only. A pass that would raise
// the summed overlap is rolled back and ends relaxation.
func relax(discs []disc, passes int, padding float64) float64 {
	current := totalOverlap(discs, padding)
	saved := make([]float64, len(discs))
	for pass := 0; pass < passes && current > 0; pass++ {
		for i := range discs {
			saved[i] = discs[i].angle
		}
		for i := 0; i < len(discs); i++ {
			for j := i + 1; j < len(discs); j++ {
				nudge(&discs[i], &discs[j], padding)
			}
		}
		next := totalOverlap(discs, padding)
		if next > current {
			for i := range discs {
				discs[i].angle = saved[i]
			}
			break
		}
		current = next
	}
	return current
}

// nudge pushes one overlapping pair apart along their orbits.
func nudge(a, b *disc, padding float64) {
	xa, ya := a.position(0, 0)
	xb, yb := b.position(0, 0)
	minDist := a.radius + b.radius + padding
	dist := math.Hypot(xa-xb, ya-yb)
	if dist >= minDist {
		return
	}
	orbit := (a.orbit + b.orbit) / 2
	if orbit <= 0 {
		return
	}
	shift := (minDist - dist) / orbit / 2
	diff := wrapAngle(a.angle - b.angle)
	sign := 1.0
	switch {
	case diff < 0:
		sign = -1
	case diff == 0 && a.order > b.order:
		sign = -1
	}
	a.angle += sign * shift
	b.angle -= sign * shift
}

// wrapAngle maps an angle into (-π, π].
func wrapAngle(a float64) float64 {
	a = math.Mod(a, 2*math.Pi)
	if a > math.Pi {
		a -= 2 * math.Pi
	}
	if a <= -math.Pi {
		a += 2 * math.Pi
	}
	return a
}
