// Package canvas implements viz.Surface on a grid of styled terminal cells.
package canvas

import (
	"image/color"
	"math"
	"strings"

	"charm.land/lipgloss/v2"
	"github.com/hylla/orrery/internal/viz"
	"github.com/lucasb-eyer/go-colorful"
)

// Default cell metrics in virtual pixels. Terminal cells are roughly twice as tall as wide.
const (
	DefaultCellWidth  = 8
	DefaultCellHeight = 16
)

// Metrics describes how many virtual pixels one terminal cell covers.
type Metrics struct {
	CellWidth  float64
	CellHeight float64
}

// normalize applies defaults to unset metrics.
func (m Metrics) normalize() Metrics {
	if m.CellWidth <= 0 {
		m.CellWidth = DefaultCellWidth
	}
	if m.CellHeight <= 0 {
		m.CellHeight = DefaultCellHeight
	}
	return m
}

// Cell is one rasterized terminal cell.
type Cell struct {
	Rune  rune
	FG    colorful.Color
	BG    colorful.Color
	HasFG bool
}

// Canvas rasterizes world-space draw calls into terminal cells.
type Canvas struct {
	cols      int
	rows      int
	metrics   Metrics
	cells     []Cell
	transform viz.Transform
	bg        colorful.Color
}

// New constructs a canvas of cols x rows cells.
func New(cols, rows int, metrics Metrics) *Canvas {
	c := &Canvas{metrics: metrics.normalize(), transform: viz.Identity()}
	c.bg, _ = colorful.MakeColor(viz.ColorBackground)
	c.Resize(cols, rows)
	return c
}

// Resize changes the cell grid; contents are cleared.
func (c *Canvas) Resize(cols, rows int) {
	c.cols = max(cols, 0)
	c.rows = max(rows, 0)
	c.cells = make([]Cell, c.cols*c.rows)
	c.fill()
}

// Grid returns the cell grid size.
func (c *Canvas) Grid() (cols, rows int) {
	return c.cols, c.rows
}

// Metrics returns the cell metrics.
func (c *Canvas) Metrics() Metrics {
	return c.metrics
}

// Size implements viz.Surface.
func (c *Canvas) Size() (float64, float64) {
	return float64(c.cols) * c.metrics.CellWidth, float64(c.rows) * c.metrics.CellHeight
}

// ScreenPoint returns the virtual-pixel center of one terminal cell.
func (c *Canvas) ScreenPoint(col, row int) viz.Point {
	return viz.Point{
		X: (float64(col) + 0.5) * c.metrics.CellWidth,
		Y: (float64(row) + 0.5) * c.metrics.CellHeight,
	}
}

// Clear implements viz.Surface.
func (c *Canvas) Clear(bg color.Color) {
	if parsed, ok := colorful.MakeColor(bg); ok {
		c.bg = parsed
	}
	c.fill()
}

// SetTransform implements viz.Surface.
func (c *Canvas) SetTransform(t viz.Transform) {
	c.transform = t
}

// Transform implements viz.Surface.
func (c *Canvas) Transform() viz.Transform {
	return c.transform
}

// Cell returns the cell at col,row.
func (c *Canvas) Cell(col, row int) (Cell, bool) {
	if col < 0 || row < 0 || col >= c.cols || row >= c.rows {
		return Cell{}, false
	}
	return c.cells[row*c.cols+col], true
}

// FillCircle implements viz.Surface.
func (c *Canvas) FillCircle(center viz.Point, radius float64, col color.Color, alpha float64) {
	fill, ok := toColorful(col)
	if !ok || !finite(center.X, center.Y, radius) {
		return
	}
	sc, rs := c.screen(center, radius)
	painted := c.eachCell(sc, rs, func(cx, cy int, d float64) bool {
		if d > rs {
			return false
		}
		c.blendBG(cx, cy, fill, alpha)
		return true
	})
	if !painted {
		cx, cy := c.cellOf(sc)
		c.blendBG(cx, cy, fill, alpha)
	}
}

// StrokeCircle implements viz.Surface.
func (c *Canvas) StrokeCircle(center viz.Point, radius float64, col color.Color, alpha float64) {
	stroke, ok := toColorful(col)
	if !ok || !finite(center.X, center.Y, radius) {
		return
	}
	sc, rs := c.screen(center, radius)
	band := math.Max(c.metrics.CellWidth, c.metrics.CellHeight) / 2
	c.eachCell(sc, rs+band, func(cx, cy int, d float64) bool {
		if math.Abs(d-rs) > band {
			return false
		}
		c.blendBG(cx, cy, stroke, alpha)
		return true
	})
}

// FillRect implements viz.Surface.
func (c *Canvas) FillRect(origin viz.Point, width, height float64, col color.Color, alpha float64) {
	fill, ok := toColorful(col)
	if !ok || !finite(origin.X, origin.Y, width, height) {
		return
	}
	c.rect(origin, width, height, func(cx, cy int, edge bool) {
		c.blendBG(cx, cy, fill, alpha)
	})
}

// StrokeRect implements viz.Surface.
func (c *Canvas) StrokeRect(origin viz.Point, width, height float64, col color.Color, alpha float64) {
	stroke, ok := toColorful(col)
	if !ok || !finite(origin.X, origin.Y, width, height) {
		return
	}
	c.rect(origin, width, height, func(cx, cy int, edge bool) {
		if edge {
			c.blendBG(cx, cy, stroke, alpha)
		}
	})
}

// Line implements viz.Surface. Lines are drawn as dotted glyphs over the existing background.
func (c *Canvas) Line(from, to viz.Point, col color.Color, alpha float64) {
	stroke, ok := toColorful(col)
	if !ok || !finite(from.X, from.Y, to.X, to.Y) {
		return
	}
	a := c.transform.ToScreen(from)
	b := c.transform.ToScreen(to)
	step := math.Min(c.metrics.CellWidth, c.metrics.CellHeight) / 2
	n := int(math.Ceil(a.Dist(b) / step))
	if n > 4*(c.cols+c.rows) {
		n = 4 * (c.cols + c.rows)
	}
	lastX, lastY := -1, -1
	for i := 0; i <= n; i++ {
		t := 0.0
		if n > 0 {
			t = float64(i) / float64(n)
		}
		cx, cy := c.cellOf(viz.Point{X: a.X + (b.X-a.X)*t, Y: a.Y + (b.Y-a.Y)*t})
		if cx == lastX && cy == lastY {
			continue
		}
		lastX, lastY = cx, cy
		c.glyph(cx, cy, '·', stroke, alpha)
	}
}

// Text implements viz.Surface. The first rune is placed at the cell containing at.
func (c *Canvas) Text(at viz.Point, text string, col color.Color) {
	fg, ok := toColorful(col)
	if !ok || !finite(at.X, at.Y) {
		return
	}
	cx, cy := c.cellOf(c.transform.ToScreen(at))
	for _, r := range text {
		c.glyph(cx, cy, r, fg, 1)
		cx++
	}
}

// String renders the grid as styled terminal lines.
func (c *Canvas) String() string {
	var b strings.Builder
	for row := 0; row < c.rows; row++ {
		if row > 0 {
			b.WriteByte('\n')
		}
		start := 0
		for col := 1; col <= c.cols; col++ {
			if col < c.cols && sameStyle(c.cells[row*c.cols+start], c.cells[row*c.cols+col]) {
				continue
			}
			b.WriteString(c.renderRun(row, start, col))
			start = col
		}
	}
	return b.String()
}

// renderRun styles one run of cells sharing colors.
func (c *Canvas) renderRun(row, from, to int) string {
	head := c.cells[row*c.cols+from]
	runes := make([]rune, 0, to-from)
	for col := from; col < to; col++ {
		runes = append(runes, c.cells[row*c.cols+col].Rune)
	}
	style := lipgloss.NewStyle().Background(lipgloss.Color(head.BG.Hex()))
	if head.HasFG {
		style = style.Foreground(lipgloss.Color(head.FG.Hex()))
	}
	return style.Render(string(runes))
}

// Plain returns the grid runes without styling.
func (c *Canvas) Plain() string {
	var b strings.Builder
	for row := 0; row < c.rows; row++ {
		if row > 0 {
			b.WriteByte('\n')
		}
		for col := 0; col < c.cols; col++ {
			b.WriteRune(c.cells[row*c.cols+col].Rune)
		}
	}
	return b.String()
}

func (c *Canvas) fill() {
	for i := range c.cells {
		c.cells[i] = Cell{Rune: ' ', BG: c.bg}
	}
}

// screen maps a world-space center and radius into virtual pixels.
func (c *Canvas) screen(center viz.Point, radius float64) (viz.Point, float64) {
	t := c.transform
	scale := t.Scale
	if scale <= 0 {
		scale = 1
	}
	return t.ToScreen(center), math.Max(radius*scale, 0)
}

// cellOf returns the cell containing one screen point.
func (c *Canvas) cellOf(p viz.Point) (int, int) {
	return int(math.Floor(p.X / c.metrics.CellWidth)), int(math.Floor(p.Y / c.metrics.CellHeight))
}

// eachCell visits cells whose centers fall inside the square bounding a circle.
func (c *Canvas) eachCell(center viz.Point, reach float64, fn func(cx, cy int, d float64) bool) bool {
	minX, minY := c.cellOf(viz.Point{X: center.X - reach, Y: center.Y - reach})
	maxX, maxY := c.cellOf(viz.Point{X: center.X + reach, Y: center.Y + reach})
	minX, minY = max(minX, 0), max(minY, 0)
	maxX, maxY = min(maxX, c.cols-1), min(maxY, c.rows-1)
	painted := false
	for cy := minY; cy <= maxY; cy++ {
		for cx := minX; cx <= maxX; cx++ {
			if fn(cx, cy, c.ScreenPoint(cx, cy).Dist(center)) {
				painted = true
			}
		}
	}
	return painted
}

// rect visits the cells covered by one world-space rectangle.
func (c *Canvas) rect(origin viz.Point, width, height float64, fn func(cx, cy int, edge bool)) {
	a := c.transform.ToScreen(origin)
	b := c.transform.ToScreen(viz.Point{X: origin.X + width, Y: origin.Y + height})
	x0, y0 := c.cellOf(viz.Point{X: math.Min(a.X, b.X), Y: math.Min(a.Y, b.Y)})
	x1, y1 := c.cellOf(viz.Point{X: math.Max(a.X, b.X), Y: math.Max(a.Y, b.Y)})
	for cy := max(y0, 0); cy <= min(y1, c.rows-1); cy++ {
		for cx := max(x0, 0); cx <= min(x1, c.cols-1); cx++ {
			fn(cx, cy, cx == x0 || cx == x1 || cy == y0 || cy == y1)
		}
	}
}

func (c *Canvas) blendBG(cx, cy int, col colorful.Color, alpha float64) {
	if cx < 0 || cy < 0 || cx >= c.cols || cy >= c.rows {
		return
	}
	alpha = clampAlpha(alpha)
	if alpha == 0 {
		return
	}
	cell := &c.cells[cy*c.cols+cx]
	cell.BG = cell.BG.BlendRgb(col, alpha).Clamped()
}

func (c *Canvas) glyph(cx, cy int, r rune, col colorful.Color, alpha float64) {
	if cx < 0 || cy < 0 || cx >= c.cols || cy >= c.rows {
		return
	}
	alpha = clampAlpha(alpha)
	if alpha == 0 {
		return
	}
	cell := &c.cells[cy*c.cols+cx]
	cell.Rune = r
	cell.FG = cell.BG.BlendRgb(col, alpha).Clamped()
	cell.HasFG = true
}

func sameStyle(a, b Cell) bool {
	if a.BG != b.BG || a.HasFG != b.HasFG {
		return false
	}
	return !a.HasFG || a.FG == b.FG
}

func toColorful(col color.Color) (colorful.Color, bool) {
	if col == nil {
		return colorful.Color{}, false
	}
	return colorful.MakeColor(col)
}

func clampAlpha(alpha float64) float64 {
	if math.IsNaN(alpha) || alpha <= 0 {
		return 0
	}
	return math.Min(alpha, 1)
}

func finite(values ...float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
