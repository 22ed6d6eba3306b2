package viz

import (
	"math"

	"github.com/hylla/orrery/internal/domain"
)

// NodeKind distinguishes the node types a strategy can draw.
type NodeKind int

// NodeKind values.
const (
	KindProject NodeKind = iota
	KindWorkOrder
)

// NodeRef points at one drawn node inside a strategy's current snapshot.
type NodeRef struct {
	Project   *domain.ProjectNode
	WorkOrder *domain.WorkOrderNode
}

// ProjectRef wraps one project node.
func ProjectRef(p *domain.ProjectNode) NodeRef {
	return NodeRef{Project: p}
}

// WorkOrderRef wraps one work-order node.
func WorkOrderRef(w *domain.WorkOrderNode) NodeRef {
	return NodeRef{WorkOrder: w}
}

// Valid reports whether the reference points at a node.
func (n NodeRef) Valid() bool {
	return n.Project != nil || n.WorkOrder != nil
}

// Kind returns the node kind.
func (n NodeRef) Kind() NodeKind {
	if n.WorkOrder != nil {
		return KindWorkOrder
	}
	return KindProject
}

// ID returns the node identity.
func (n NodeRef) ID() string {
	switch {
	case n.WorkOrder != nil:
		return n.WorkOrder.ID
	case n.Project != nil:
		return n.Project.ID
	default:
		return ""
	}
}

// Label returns a display label.
func (n NodeRef) Label() string {
	switch {
	case n.WorkOrder != nil:
		return n.WorkOrder.DisplayName()
	case n.Project != nil:
		return n.Project.DisplayName()
	default:
		return ""
	}
}

// Render returns the current drawn position and size.
func (n NodeRef) Render() domain.Render {
	switch {
	case n.WorkOrder != nil:
		return n.WorkOrder.Render
	case n.Project != nil:
		return n.Project.Render
	default:
		return domain.Render{}
	}
}

// Hit reports whether a world-space point lies on the drawn node. Projects use
// a circular test; work-order glyphs use an axis-aligned box.
func (n NodeRef) Hit(p Point) bool {
	r := n.Render()
	if !r.Placed || r.Radius <= 0 || math.IsNaN(r.X) || math.IsNaN(r.Y) {
		return false
	}
	if n.Kind() == KindWorkOrder {
		return math.Abs(p.X-r.X) <= r.Radius && math.Abs(p.Y-r.Y) <= r.Radius
	}
	return math.Hypot(p.X-r.X, p.Y-r.Y) <= r.Radius
}

// HitTest returns the last node in z-order containing p.
func HitTest(nodes []NodeRef, p Point) (NodeRef, bool) {
	for i := len(nodes) - 1; i >= 0; i-- {
		if nodes[i].Hit(p) {
			return nodes[i], true
		}
	}
	return NodeRef{}, false
}

// FindNode returns the node with id from nodes.
func FindNode(nodes []NodeRef, id string) (NodeRef, bool) {
	if id == "" {
		return NodeRef{}, false
	}
	for _, node := range nodes {
		if node.ID() == id {
			return node, true
		}
	}
	return NodeRef{}, false
}

// CarryProjectRender copies last-drawn render fields from prev onto the
// matching ids in next, so retained nodes stay hit-testable between an Update
// and the following Render.
func CarryProjectRender(prev, next []domain.ProjectNode) {
	last := make(map[string]domain.Render, len(prev))
	for _, p := range prev {
		if p.Render.Placed {
			last[p.ID] = p.Render
		}
	}
	for i := range next {
		if r, ok := last[next[i].ID]; ok {
			next[i].Render = r
		}
	}
}

// CarryWorkOrderRender is CarryProjectRender for work orders.
func CarryWorkOrderRender(prev, next []domain.WorkOrderNode) {
	last := make(map[string]domain.Render, len(prev))
	for _, w := range prev {
		if w.Render.Placed {
			last[w.ID] = w.Render
		}
	}
	for i := range next {
		if r, ok := last[next[i].ID]; ok {
			next[i].Render = r
		}
	}
}
