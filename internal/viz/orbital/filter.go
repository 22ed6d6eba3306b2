package orbital

import (
	"sort"

	"github.com/hylla/orrery/internal/domain"
)

// archivalCap bounds archive-status work orders shown per project.
const archivalCap = 5

// FilterWorkOrders selects the visible work orders. In-progress statuses are
// always shown; in "all" mode each project also shows its most recently updated
// backlog/done/parked work orders up to a small cap. Pinned ids are always shown.
func FilterWorkOrders(nodes []domain.WorkOrderNode, filter domain.WorkOrderFilter, pinned map[string]struct{}) []domain.WorkOrderNode {
	out := make([]domain.WorkOrderNode, 0, len(nodes))
	archival := map[string][]int{}
	for i, wo := range nodes {
		_, pin := pinned[wo.ID]
		switch {
		case pin || wo.Status.InProgress():
			out = append(out, wo)
		case filter == domain.WorkOrderFilterAll && wo.Status.Archival():
			archival[wo.ProjectID] = append(archival[wo.ProjectID], i)
		}
	}
	if len(archival) == 0 {
		return out
	}
	projects := make([]string, 0, len(archival))
	for projectID := range archival {
		projects = append(projects, projectID)
	}
	sort.Strings(projects)
	for _, projectID := range projects {
		idx := archival[projectID]
		sort.SliceStable(idx, func(a, b int) bool {
			return newer(nodes[idx[a]], nodes[idx[b]])
		})
		if len(idx) > archivalCap {
			idx = idx[:archivalCap]
		}
		for _, i := range idx {
			out = append(out, nodes[i])
		}
	}
	return out
}

// newer orders by UpdatedAt descending, undated last, then id.
func newer(a, b domain.WorkOrderNode) bool {
	switch {
	case a.UpdatedAt != nil && b.UpdatedAt != nil && !a.UpdatedAt.Equal(*b.UpdatedAt):
		return a.UpdatedAt.After(*b.UpdatedAt)
	case a.UpdatedAt != nil && b.UpdatedAt == nil:
		return true
	case a.UpdatedAt == nil && b.UpdatedAt != nil:
		return false
	default:
		return a.ID < b.ID
	}
}
