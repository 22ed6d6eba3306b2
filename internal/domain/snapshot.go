package domain

import (
	"strings"
	"time"
)

// Edge is a directed relationship between two node identities.
type Edge struct {
	Source string `json:"source" yaml:"source"`
	Target string `json:"target" yaml:"target"`
	Type   string `json:"type" yaml:"type"`
}

// EdgeTypeDependency marks a depends-on relationship.
const EdgeTypeDependency = "dependency"

// VisualizationData is the atomic snapshot handed to every strategy.
type VisualizationData struct {
	Nodes          []ProjectNode           `json:"nodes" yaml:"nodes"`
	Edges          []Edge                  `json:"edges" yaml:"edges"`
	Timestamp      time.Time               `json:"timestamp" yaml:"timestamp"`
	WorkOrderNodes []WorkOrderNode         `json:"work_order_nodes,omitempty" yaml:"work_order_nodes,omitempty"`
	RunsByProject  map[string][]RunSummary `json:"runs_by_project,omitempty" yaml:"runs_by_project,omitempty"`
}

// Normalize returns a copy with defaults applied: missing arrays become empty,
// intensities are clamped, unknown statuses are defaulted, and nodes or edges
// without identities are dropped.
func (d VisualizationData) Normalize() VisualizationData {
	out := VisualizationData{
		Nodes:          make([]ProjectNode, 0, len(d.Nodes)),
		Edges:          make([]Edge, 0, len(d.Edges)),
		Timestamp:      d.Timestamp.UTC(),
		WorkOrderNodes: make([]WorkOrderNode, 0, len(d.WorkOrderNodes)),
		RunsByProject:  make(map[string][]RunSummary, len(d.RunsByProject)),
	}
	seen := map[string]struct{}{}
	for _, node := range d.Nodes {
		node.normalize()
		if node.ID == "" {
			continue
		}
		if _, dup := seen[node.ID]; dup {
			continue
		}
		seen[node.ID] = struct{}{}
		out.Nodes = append(out.Nodes, node)
	}
	seenWO := map[string]struct{}{}
	for _, wo := range d.WorkOrderNodes {
		wo.normalize()
		if wo.ID == "" {
			continue
		}
		if _, dup := seenWO[wo.ID]; dup {
			continue
		}
		seenWO[wo.ID] = struct{}{}
		out.WorkOrderNodes = append(out.WorkOrderNodes, wo)
	}
	for _, edge := range d.Edges {
		edge.Source = strings.TrimSpace(edge.Source)
		edge.Target = strings.TrimSpace(edge.Target)
		edge.Type = strings.TrimSpace(strings.ToLower(edge.Type))
		if edge.Source == "" || edge.Target == "" || edge.Source == edge.Target {
			continue
		}
		if edge.Type == "" {
			edge.Type = "link"
		}
		out.Edges = append(out.Edges, edge)
	}
	for projectID, runs := range d.RunsByProject {
		projectID = strings.TrimSpace(projectID)
		if projectID == "" {
			continue
		}
		out.RunsByProject[projectID] = append([]RunSummary(nil), runs...)
	}
	return out
}

// Empty reports whether the snapshot has nothing to draw.
func (d VisualizationData) Empty() bool {
	return len(d.Nodes) == 0 && len(d.WorkOrderNodes) == 0
}

// RunPhases derives the transient run phase for every work order with an in-flight run.
func (d VisualizationData) RunPhases() map[string]RunPhase {
	all := make([]RunSummary, 0)
	for _, runs := range d.RunsByProject {
		all = append(all, runs...)
	}
	return PhaseFromRuns(all)
}

// WorkOrderFilter selects which work orders the orbital work-order mode shows.
type WorkOrderFilter string

// WorkOrderFilter values.
const (
	WorkOrderFilterActive WorkOrderFilter = "active"
	WorkOrderFilterAll    WorkOrderFilter = "all"
)

// ParseWorkOrderFilter normalizes one raw filter mode.
func ParseWorkOrderFilter(raw string) (WorkOrderFilter, error) {
	switch WorkOrderFilter(strings.ToLower(strings.TrimSpace(raw))) {
	case WorkOrderFilterActive, "":
		return WorkOrderFilterActive, nil
	case WorkOrderFilterAll:
		return WorkOrderFilterAll, nil
	default:
		return "", ErrInvalidFilterMode
	}
}
