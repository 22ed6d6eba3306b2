package viz

import "image/color"

// Surface is the drawing basis handed to a strategy at Init. Draw calls take
// world coordinates; the surface maps them through its transform and device
// metrics. Sizes passed to draw calls are world units as well.
type Surface interface {
	// Size returns the screen-space extent in virtual pixels.
	Size() (width, height float64)
	Clear(bg color.Color)
	SetTransform(t Transform)
	Transform() Transform
	FillCircle(center Point, radius float64, c color.Color, alpha float64)
	StrokeCircle(center Point, radius float64, c color.Color, alpha float64)
	FillRect(origin Point, width, height float64, c color.Color, alpha float64)
	StrokeRect(origin Point, width, height float64, c color.Color, alpha float64)
	Line(from, to Point, c color.Color, alpha float64)
	Text(at Point, text string, c color.Color)
}

// Center returns the world-space center of the surface at identity transform.
func Center(s Surface) Point {
	if s == nil {
		return Point{}
	}
	w, h := s.Size()
	return Point{X: w / 2, Y: h / 2}
}
