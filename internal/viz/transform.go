package viz

import "math"

// Point is a 2D point in either world or screen space.
type Point struct {
	X float64
	Y float64
}

// Add returns p+q.
func (p Point) Add(q Point) Point { return Point{X: p.X + q.X, Y: p.Y + q.Y} }

// Sub returns p-q.
func (p Point) Sub(q Point) Point { return Point{X: p.X - q.X, Y: p.Y - q.Y} }

// Dist returns the euclidean distance between p and q.
func (p Point) Dist(q Point) float64 { return math.Hypot(p.X-q.X, p.Y-q.Y) }

// Transform maps world space to screen space: screen = world*Scale + Offset.
type Transform struct {
	OffsetX float64
	OffsetY float64
	Scale   float64
}

// Identity returns the unit transform.
func Identity() Transform {
	return Transform{Scale: 1}
}

// scale guards against an unset or degenerate scale.
func (t Transform) scale() float64 {
	if t.Scale <= 0 || math.IsNaN(t.Scale) || math.IsInf(t.Scale, 0) {
		return 1
	}
	return t.Scale
}

// ToScreen maps one world point to screen space.
func (t Transform) ToScreen(p Point) Point {
	s := t.scale()
	return Point{X: p.X*s + t.OffsetX, Y: p.Y*s + t.OffsetY}
}

// ToWorld maps one screen point to world space.
func (t Transform) ToWorld(p Point) Point {
	s := t.scale()
	return Point{X: (p.X - t.OffsetX) / s, Y: (p.Y - t.OffsetY) / s}
}

// Pan shifts the offset by a raw screen-space delta.
func (t Transform) Pan(dx, dy float64) Transform {
	t.OffsetX += dx
	t.OffsetY += dy
	return t
}

// ZoomAt multiplies the scale by factor, clamped to [minScale, maxScale], and
// recomputes the offset so the world point under anchor stays under anchor.
func (t Transform) ZoomAt(anchor Point, factor, minScale, maxScale float64) Transform {
	old := t.scale()
	next := old * factor
	if minScale > 0 && next < minScale {
		next = minScale
	}
	if maxScale > 0 && next > maxScale {
		next = maxScale
	}
	world := t.ToWorld(anchor)
	return Transform{
		OffsetX: anchor.X - world.X*next,
		OffsetY: anchor.Y - world.Y*next,
		Scale:   next,
	}
}
