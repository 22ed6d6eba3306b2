package orbital

import (
	"math"

	"github.com/hylla/orrery/internal/domain"
)

// Zone is one concentric radius band expressed as fractions of the base radius.
type Zone struct {
	Name string
	Min  float64
	Max  float64
}

// Layout is an ordered set of zones plus the outer archive ring.
type Layout struct {
	Zones   []Zone
	Archive float64
}

// MinRadius returns the innermost zone's inner bound.
func (l Layout) MinRadius() float64 {
	if len(l.Zones) == 0 {
		return 0
	}
	return l.Zones[0].Min
}

// ZoneAt returns the zone containing r, or the archive pseudo-zone beyond the last band.
func (l Layout) ZoneAt(r float64) Zone {
	for _, z := range l.Zones {
		if r >= z.Min && r < z.Max {
			return z
		}
	}
	return Zone{Name: "archive", Min: l.Archive, Max: l.Archive}
}

// TargetRadius interpolates from the archive ring (cold) to the innermost radius (hot),
// adds jitter, and clamps the result into the layout.
func (l Layout) TargetRadius(heat, jitter float64) float64 {
	heat = domain.Clamp01(heat)
	r := l.Archive + (l.MinRadius()-l.Archive)*heat + jitter
	return l.Clamp(r)
}

// Clamp bounds r to [MinRadius, Archive].
func (l Layout) Clamp(r float64) float64 {
	if math.IsNaN(r) {
		return l.Archive
	}
	return math.Min(math.Max(r, l.MinRadius()), l.Archive)
}

// Zone layouts as fractions of the base radius.
var (
	ProjectLayout = Layout{
		Zones: []Zone{
			{Name: "focus", Min: 0.08, Max: 0.20},
			{Name: "active", Min: 0.20, Max: 0.42},
			{Name: "ready", Min: 0.42, Max: 0.66},
			{Name: "idle", Min: 0.66, Max: 0.88},
		},
		Archive: 0.96,
	}
	WorkOrderLayout = Layout{
		Zones: []Zone{
			{Name: "urgent", Min: 0.10, Max: 0.32},
			{Name: "active", Min: 0.32, Max: 0.62},
			{Name: "backlog", Min: 0.62, Max: 0.88},
		},
		Archive: 0.96,
	}
)

// Heat floors and caps.
const (
	activeFloor      = 0.65
	needsHumanFloor  = 0.80
	testingFloor     = 0.70
	reviewingFloor   = 0.75
	waitingFloor     = 0.85
	parkedCap        = 0.10
	archiveActivity  = 0.2
	jitterSpan       = 0.03
	baseSpeed        = 0.18
	minAngularSpeed  = 0.05
	maxAngularSpeed  = 0.9
	focusRadius      = 0.12
	baseRadiusFactor = 0.46
)

var workOrderBaseHeat = map[domain.WorkOrderStatus]float64{
	domain.WorkOrderBacklog:   0.15,
	domain.WorkOrderReady:     0.40,
	domain.WorkOrderBuilding:  0.65,
	domain.WorkOrderAIReview:  0.55,
	domain.WorkOrderYouReview: 0.75,
	domain.WorkOrderBlocked:   0.60,
	domain.WorkOrderDone:      0.05,
	domain.WorkOrderParked:    0.05,
}

var workOrderPhaseFloor = map[domain.RunPhase]float64{
	domain.RunPhaseWaiting:   0.95,
	domain.RunPhaseYouReview: 0.85,
	domain.RunPhaseAIReview:  0.80,
	domain.RunPhaseTesting:   0.75,
	domain.RunPhaseBuilding:  0.70,
}

// ProjectHeat derives the target heat of one project.
func ProjectHeat(p domain.ProjectNode) float64 {
	heat := domain.Clamp01(p.ActivityLevel)
	if p.IsActive {
		heat = math.Max(heat, activeFloor)
	}
	if p.NeedsHuman {
		heat = math.Max(heat, needsHumanFloor)
	}
	switch p.Phase {
	case domain.RunPhaseTesting:
		heat = math.Max(heat, testingFloor)
	case domain.RunPhaseAIReview, domain.RunPhaseYouReview:
		heat = math.Max(heat, reviewingFloor)
	case domain.RunPhaseWaiting:
		heat = math.Max(heat, waitingFloor)
	}
	if p.Parked() {
		heat = math.Min(heat, parkedCap)
	}
	return domain.Clamp01(heat)
}

// ProjectArchived reports whether a project belongs on the archive ring: parked
// projects and inactive projects with little activity share the same ring.
func ProjectArchived(p domain.ProjectNode) bool {
	return p.Parked() || (!p.IsActive && p.ActivityLevel < archiveActivity)
}

// WorkOrderHeat derives the target heat of one work order given its run phase.
func WorkOrderHeat(w domain.WorkOrderNode, phase domain.RunPhase) float64 {
	heat := math.Max(workOrderBaseHeat[w.Status], domain.Clamp01(w.ActivityLevel))
	if floor, ok := workOrderPhaseFloor[phase]; ok {
		heat = math.Max(heat, floor)
	}
	return domain.Clamp01(heat)
}

// WorkOrderArchived reports whether a work order belongs on the archive ring.
func WorkOrderArchived(w domain.WorkOrderNode, phase domain.RunPhase) bool {
	if phase != domain.RunPhaseNone {
		return false
	}
	return w.Status == domain.WorkOrderDone || w.Status == domain.WorkOrderParked
}

// AngularSpeed returns the orbital speed for a node at radius r (fraction of the base radius).
func AngularSpeed(r, archive float64) float64 {
	if r <= 0 {
		return maxAngularSpeed
	}
	return math.Min(math.Max(baseSpeed*(archive/r), minAngularSpeed), maxAngularSpeed)
}

// smooth moves v toward target with exponential easing at rate per second.
func smooth(v, target, rate, dt float64) float64 {
	return v + (target-v)*(1-math.Exp(-rate*dt))
}
