// Package viz defines the contract shared by every visualization strategy:
// the drawing surface, the world-to-screen transform, node references used
// for hit-testing, deterministic seeding, and the strategy registry.
package viz

import (
	"time"

	"github.com/charmbracelet/log"
	"github.com/hylla/orrery/internal/domain"
)

// Strategy is one rendering strategy. Init is called exactly once before any
// Render; Update may be called any number of times; Render is called every
// frame and must never panic; after Destroy no further calls are valid.
type Strategy interface {
	ID() string
	Init(surface Surface, data domain.VisualizationData)
	Update(data domain.VisualizationData)
	Render()
	Destroy()
	// Nodes returns the nodes drawn by the last Render in z-order.
	Nodes() []NodeRef
}

// HoverHandler is implemented by strategies that react to hover changes.
type HoverHandler interface {
	OnNodeHover(node *NodeRef)
}

// ClickHandler is implemented by strategies that react to clicks; node is nil for empty space.
type ClickHandler interface {
	OnNodeClick(node *NodeRef)
}

// DragHandler is implemented by strategies that let nodes be dragged.
type DragHandler interface {
	OnNodeDragStart(node NodeRef, world Point)
	OnNodeDrag(node NodeRef, world Point)
	OnNodeDragEnd(node NodeRef, world Point)
}

// Options carries construction-time settings shared by all strategies.
type Options struct {
	// Now is the wall clock strategies read during Render; nil uses time.Now.
	Now    func() time.Time
	Logger *log.Logger
	// Filter and Pinned scope work-order visibility where a strategy supports it.
	Filter domain.WorkOrderFilter
	Pinned []string
}

// Clock returns the configured wall clock.
func (o Options) Clock() func() time.Time {
	if o.Now == nil {
		return time.Now
	}
	return o.Now
}

// PinnedSet returns pinned ids as a set.
func (o Options) PinnedSet() map[string]struct{} {
	out := make(map[string]struct{}, len(o.Pinned))
	for _, id := range o.Pinned {
		out[id] = struct{}{}
	}
	return out
}

// WorkOrderFilterSetter is implemented by strategies whose visible work-order set can be filtered.
type WorkOrderFilterSetter interface {
	SetWorkOrderFilter(filter domain.WorkOrderFilter, pinned []string)
}
