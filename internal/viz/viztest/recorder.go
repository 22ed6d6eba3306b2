// Package viztest provides a recording surface for strategy tests.
package viztest

import (
	"image/color"

	"github.com/hylla/orrery/internal/viz"
)

// Op names one recorded draw call.
type Op string

// Op values.
const (
	OpClear        Op = "clear"
	OpFillCircle   Op = "fill_circle"
	OpStrokeCircle Op = "stroke_circle"
	OpFillRect     Op = "fill_rect"
	OpStrokeRect   Op = "stroke_rect"
	OpLine         Op = "line"
	OpText         Op = "text"
)

// Call is one recorded draw call in world coordinates.
type Call struct {
	Op     Op
	At     viz.Point
	To     viz.Point
	Radius float64
	Width  float64
	Height float64
	Text   string
	Color  color.Color
	Alpha  float64
}

// Recorder is an in-memory viz.Surface that records every draw call.
type Recorder struct {
	Width     float64
	Height    float64
	Calls     []Call
	transform viz.Transform
}

// New constructs a recorder with the given screen size.
func New(width, height float64) *Recorder {
	return &Recorder{Width: width, Height: height, transform: viz.Identity()}
}

// Size implements viz.Surface.
func (r *Recorder) Size() (float64, float64) { return r.Width, r.Height }

// Clear implements viz.Surface; it also drops earlier calls.
func (r *Recorder) Clear(bg color.Color) {
	r.Calls = append(r.Calls[:0], Call{Op: OpClear, Color: bg})
}

// SetTransform implements viz.Surface.
func (r *Recorder) SetTransform(t viz.Transform) { r.transform = t }

// Transform implements viz.Surface.
func (r *Recorder) Transform() viz.Transform { return r.transform }

// FillCircle implements viz.Surface.
func (r *Recorder) FillCircle(c viz.Point, radius float64, col color.Color, alpha float64) {
	r.Calls = append(r.Calls, Call{Op: OpFillCircle, At: c, Radius: radius, Color: col, Alpha: alpha})
}

// StrokeCircle implements viz.Surface.
func (r *Recorder) StrokeCircle(c viz.Point, radius float64, col color.Color, alpha float64) {
	r.Calls = append(r.Calls, Call{Op: OpStrokeCircle, At: c, Radius: radius, Color: col, Alpha: alpha})
}

// FillRect implements viz.Surface.
func (r *Recorder) FillRect(origin viz.Point, w, h float64, col color.Color, alpha float64) {
	r.Calls = append(r.Calls, Call{Op: OpFillRect, At: origin, Width: w, Height: h, Color: col, Alpha: alpha})
}

// StrokeRect implements viz.Surface.
func (r *Recorder) StrokeRect(origin viz.Point, w, h float64, col color.Color, alpha float64) {
	r.Calls = append(r.Calls, Call{Op: OpStrokeRect, At: origin, Width: w, Height: h, Color: col, Alpha: alpha})
}

// Line implements viz.Surface.
func (r *Recorder) Line(from, to viz.Point, col color.Color, alpha float64) {
	r.Calls = append(r.Calls, Call{Op: OpLine, At: from, To: to, Color: col, Alpha: alpha})
}

// Text implements viz.Surface.
func (r *Recorder) Text(at viz.Point, text string, col color.Color) {
	r.Calls = append(r.Calls, Call{Op: OpText, At: at, Text: text, Color: col})
}

// Count returns how many calls with op were recorded since the last Clear.
func (r *Recorder) Count(op Op) int {
	n := 0
	for _, call := range r.Calls {
		if call.Op == op {
			n++
		}
	}
	return n
}

// Texts returns every recorded text label.
func (r *Recorder) Texts() []string {
	out := make([]string, 0)
	for _, call := range r.Calls {
		if call.Op == OpText {
			out = append(out, call.Text)
		}
	}
	return out
}
