package viz

import (
	"image/color"

	"charm.land/lipgloss/v2"
	"github.com/hylla/orrery/internal/domain"
	"github.com/lucasb-eyer/go-colorful"
)

// Shared palette. Strategies pick from these so every view encodes status the same way.
var (
	ColorBackground = lipgloss.Color("#0b0f17")
	ColorSun        = lipgloss.Color("#ffcf5c")
	ColorZone       = lipgloss.Color("#2a3140")
	ColorEdge       = lipgloss.Color("#4b5568")
	ColorLabel      = lipgloss.Color("#c9d1e0")
	ColorMuted      = lipgloss.Color("#6b7385")
	ColorSelection  = lipgloss.Color("#ffffff")
	ColorHover      = lipgloss.Color("#9fb3d9")
	ColorAlert      = lipgloss.Color("#ff5f5f")

	heatCold = colorful.Color{R: 0.20, G: 0.33, B: 0.62}
	heatWarm = colorful.Color{R: 0.96, G: 0.62, B: 0.22}
	heatHot  = colorful.Color{R: 0.98, G: 0.27, B: 0.27}
)

var projectStatusColors = map[domain.ProjectStatus]color.Color{
	domain.ProjectStatusActive:  lipgloss.Color("#5fd787"),
	domain.ProjectStatusBlocked: lipgloss.Color("#ff875f"),
	domain.ProjectStatusParked:  lipgloss.Color("#6b7385"),
}

var workOrderStatusColors = map[domain.WorkOrderStatus]color.Color{
	domain.WorkOrderBacklog:   lipgloss.Color("#5f6b85"),
	domain.WorkOrderReady:     lipgloss.Color("#5fafff"),
	domain.WorkOrderBuilding:  lipgloss.Color("#5fd787"),
	domain.WorkOrderAIReview:  lipgloss.Color("#af87ff"),
	domain.WorkOrderYouReview: lipgloss.Color("#ffd75f"),
	domain.WorkOrderDone:      lipgloss.Color("#3a4a3a"),
	domain.WorkOrderBlocked:   lipgloss.Color("#ff5f5f"),
	domain.WorkOrderParked:    lipgloss.Color("#4e4e4e"),
}

var phaseColors = map[domain.RunPhase]color.Color{
	domain.RunPhaseBuilding:  lipgloss.Color("#5fd787"),
	domain.RunPhaseTesting:   lipgloss.Color("#87d7d7"),
	domain.RunPhaseAIReview:  lipgloss.Color("#af87ff"),
	domain.RunPhaseYouReview: lipgloss.Color("#ffd75f"),
	domain.RunPhaseWaiting:   lipgloss.Color("#ff8700"),
}

// ProjectColor returns the fill color for a project, preferring its run phase.
func ProjectColor(p *domain.ProjectNode) color.Color {
	if p == nil {
		return ColorMuted
	}
	if c, ok := phaseColors[p.Phase]; ok {
		return c
	}
	if c, ok := projectStatusColors[p.Status]; ok {
		return c
	}
	return ColorMuted
}

// WorkOrderColor returns the fill color for a work order given its run phase.
func WorkOrderColor(w *domain.WorkOrderNode, phase domain.RunPhase) color.Color {
	if w == nil {
		return ColorMuted
	}
	if c, ok := phaseColors[phase]; ok {
		return c
	}
	if c, ok := workOrderStatusColors[w.Status]; ok {
		return c
	}
	return ColorMuted
}

// HeatColor maps heat in [0,1] onto a cold-to-hot ramp.
func HeatColor(heat float64) color.Color {
	heat = domain.Clamp01(heat)
	if heat < 0.5 {
		return heatCold.BlendLab(heatWarm, heat*2).Clamped()
	}
	return heatWarm.BlendLab(heatHot, (heat-0.5)*2).Clamped()
}
