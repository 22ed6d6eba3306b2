package tui

import (
	"image/color"
	"time"

	"github.com/charmbracelet/log"
	"github.com/hylla/orrery/internal/canvas"
	"github.com/hylla/orrery/internal/interact"
)

// Option configures a Model.
type Option func(*Model)

// WithFPS sets the frame rate of the render loop.
func WithFPS(fps int) Option {
	return func(m *Model) {
		if fps > 0 {
			m.fps = fps
		}
	}
}

// WithPollInterval sets how often the source is polled.
func WithPollInterval(interval time.Duration) Option {
	return func(m *Model) {
		if interval > 0 {
			m.pollInterval = interval
		}
	}
}

// WithCellMetrics sets how many virtual pixels one terminal cell covers.
func WithCellMetrics(metrics canvas.Metrics) Option {
	return func(m *Model) {
		m.metrics = metrics
	}
}

// WithInteraction sets pan/zoom/drag tuning.
func WithInteraction(cfg interact.Config) Option {
	return func(m *Model) {
		m.interaction = cfg
	}
}

// WithBackground sets the canvas clear color.
func WithBackground(c color.Color) Option {
	return func(m *Model) {
		if c != nil {
			m.background = c
		}
	}
}

// WithLogger sets the logger shared with the shell and strategies.
func WithLogger(logger *log.Logger) Option {
	return func(m *Model) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithClock sets the wall clock strategies animate against.
func WithClock(now func() time.Time) Option {
	return func(m *Model) {
		if now != nil {
			m.now = now
		}
	}
}

// WithClipboard replaces the clipboard writer used by the copy binding.
func WithClipboard(write func(string) error) Option {
	return func(m *Model) {
		if write != nil {
			m.copyText = write
		}
	}
}
