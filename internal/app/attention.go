package app

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/hylla/orrery/internal/domain"
	"github.com/hylla/orrery/internal/viz/orbital"
)

// defaultAttentionLimit bounds attention results when the caller passes no limit.
const defaultAttentionLimit = 10

// AttentionItem is one project ranked by how much it needs a human right now.
type AttentionItem struct {
	ProjectID   string          `json:"project_id"`
	Name        string          `json:"name"`
	Heat        float64         `json:"heat"`
	Status      string          `json:"status"`
	Phase       domain.RunPhase `json:"phase,omitempty"`
	NeedsHuman  bool            `json:"needs_human"`
	Escalations int             `json:"escalations"`
	Blocked     int             `json:"blocked_work_orders"`
	Waiting     []string        `json:"waiting_work_orders,omitempty"`
	Reasons     []string        `json:"reasons"`
}

// RankAttention orders projects by the same heat the orbital view uses, with
// human-blocked projects first. Archived projects are left out.
func RankAttention(data domain.VisualizationData, limit int) []AttentionItem {
	if limit <= 0 {
		limit = defaultAttentionLimit
	}
	phases := data.RunPhases()
	waiting := map[string][]string{}
	for _, wo := range data.WorkOrderNodes {
		phase := phases[wo.ID]
		if phase == domain.RunPhaseWaiting || phase == domain.RunPhaseYouReview || wo.Status == domain.WorkOrderYouReview {
			waiting[wo.ProjectID] = append(waiting[wo.ProjectID], wo.ID)
		}
	}

	items := make([]AttentionItem, 0, len(data.Nodes))
	for _, p := range data.Nodes {
		if orbital.ProjectArchived(p) && !p.NeedsHuman {
			continue
		}
		item := AttentionItem{
			ProjectID:   p.ID,
			Name:        p.DisplayName(),
			Heat:        orbital.ProjectHeat(p),
			Status:      string(p.Status),
			Phase:       p.Phase,
			NeedsHuman:  p.NeedsHuman,
			Escalations: p.EscalationCount,
			Blocked:     p.WorkOrders.Blocked,
			Waiting:     slices.Sorted(slices.Values(waiting[p.ID])),
		}
		item.Reasons = attentionReasons(item)
		items = append(items, item)
	}
	slices.SortStableFunc(items, func(a, b AttentionItem) int {
		if a.NeedsHuman != b.NeedsHuman {
			if a.NeedsHuman {
				return -1
			}
			return 1
		}
		if c := cmp.Compare(b.Heat, a.Heat); c != 0 {
			return c
		}
		return cmp.Compare(a.ProjectID, b.ProjectID)
	})
	if len(items) > limit {
		items = items[:limit]
	}
	return items
}

// attentionReasons lists the human-readable triggers behind one item.
func attentionReasons(item AttentionItem) []string {
	reasons := make([]string, 0, 4)
	if item.Escalations > 0 {
		reasons = append(reasons, fmt.Sprintf("%d escalation(s)", item.Escalations))
	} else if item.NeedsHuman {
		reasons = append(reasons, "needs human")
	}
	if n := len(item.Waiting); n > 0 {
		reasons = append(reasons, fmt.Sprintf("%d work order(s) waiting on you", n))
	}
	if item.Blocked > 0 {
		reasons = append(reasons, fmt.Sprintf("%d blocked work order(s)", item.Blocked))
	}
	if item.Phase != domain.RunPhaseNone {
		reasons = append(reasons, "run "+strings.ReplaceAll(string(item.Phase), "_", " "))
	}
	if len(reasons) == 0 {
		reasons = append(reasons, "active")
	}
	return reasons
}

// Attention ranks the latest known snapshot, refreshing once if nothing is cached yet.
func (s *Service) Attention(ctx context.Context, limit int) ([]AttentionItem, Refresh, error) {
	current, err := s.current(ctx)
	if err != nil {
		return nil, Refresh{}, err
	}
	return RankAttention(current.Data, limit), current, nil
}

// Project returns one project and its work orders from the latest known snapshot,
// refreshing once if nothing is cached yet.
func (s *Service) Project(ctx context.Context, id string) (domain.ProjectNode, []domain.WorkOrderNode, Refresh, error) {
	current, err := s.current(ctx)
	if err != nil {
		return domain.ProjectNode{}, nil, Refresh{}, err
	}
	id = strings.TrimSpace(id)
	for _, p := range current.Data.Nodes {
		if p.ID != id {
			continue
		}
		workOrders := make([]domain.WorkOrderNode, 0)
		for _, wo := range current.Data.WorkOrderNodes {
			if wo.ProjectID == id {
				workOrders = append(workOrders, wo)
			}
		}
		return p, workOrders, current, nil
	}
	return domain.ProjectNode{}, nil, current, fmt.Errorf("project %q: %w", id, ErrNotFound)
}

// current serves the cached snapshot or polls the source once.
func (s *Service) current(ctx context.Context) (Refresh, error) {
	current, err := s.Cached(ctx)
	if err == nil {
		return current, nil
	}
	return s.Refresh(ctx)
}
