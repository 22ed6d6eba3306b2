package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/hylla/orrery/internal/domain"
	"github.com/hylla/orrery/internal/viz"
	"github.com/hylla/orrery/internal/viz/orbital"
)

// maxDetailWorkOrders bounds the work-order list in a project panel.
const maxDetailWorkOrders = 12

// detailMarkdown returns the detail panel markdown for the current selection.
func (m Model) detailMarkdown() string {
	node, ok := m.controller.Selected()
	if !ok {
		return "### Details\n\nClick a node or press `n` to select one."
	}
	data := m.shell.Data()
	if node.Kind() == viz.KindWorkOrder {
		phase := data.RunPhases()[node.ID()]
		return workOrderMarkdown(*node.WorkOrder, phase, m.prefs.IsPinned(node.ID()))
	}
	return projectMarkdown(*node.Project, data, m.prefs, m.now())
}

// projectMarkdown describes one project and its work orders.
func projectMarkdown(p domain.ProjectNode, data domain.VisualizationData, prefs domain.Preferences, now time.Time) string {
	heat := orbital.ProjectHeat(p)
	zone := orbital.ProjectLayout.ZoneAt(orbital.ProjectLayout.TargetRadius(heat, 0)).Name
	if orbital.ProjectArchived(p) {
		zone = "archive"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "## %s\n\n", p.DisplayName())
	fmt.Fprintf(&b, "`%s` · %s\n\n", p.ID, p.Status)
	fmt.Fprintf(&b, "- **Heat:** %.2f (%s)\n", heat, zone)
	fmt.Fprintf(&b, "- **Activity:** %.2f · **Health:** %.2f\n", p.ActivityLevel, p.Health)
	c := p.WorkOrders
	fmt.Fprintf(&b, "- **Work orders:** %d ready · %d building · %d blocked · %d done\n", c.Ready, c.Building, c.Blocked, c.Done)
	if p.NeedsHuman || p.EscalationCount > 0 {
		fmt.Fprintf(&b, "- **Needs human:** yes (%d escalations)\n", p.EscalationCount)
	}
	if p.Phase != domain.RunPhaseNone {
		fmt.Fprintf(&b, "- **Run phase:** %s\n", p.Phase)
	}
	if p.LastActivity != nil {
		fmt.Fprintf(&b, "- **Last activity:** %s ago\n", now.Sub(*p.LastActivity).Truncate(time.Second))
	}

	phases := data.RunPhases()
	listed := 0
	for _, wo := range data.WorkOrderNodes {
		if wo.ProjectID != p.ID {
			continue
		}
		if listed == 0 {
			b.WriteString("\n### Work orders\n\n")
		}
		if listed == maxDetailWorkOrders {
			b.WriteString("- …\n")
			break
		}
		fmt.Fprintf(&b, "- %s`%s` %s · %s", pinMark(prefs.IsPinned(wo.ID)), wo.ID, wo.DisplayName(), wo.Status)
		if phase := phases[wo.ID]; phase != domain.RunPhaseNone {
			fmt.Fprintf(&b, " (%s)", phase)
		}
		b.WriteString("\n")
		listed++
	}
	return b.String()
}

// workOrderMarkdown describes one work order.
func workOrderMarkdown(w domain.WorkOrderNode, phase domain.RunPhase, pinned bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## %s%s\n\n", pinMark(pinned), w.DisplayName())
	fmt.Fprintf(&b, "`%s` · %s · project `%s`\n\n", w.ID, w.Status, w.ProjectID)
	fmt.Fprintf(&b, "- **Heat:** %.2f\n", orbital.WorkOrderHeat(w, phase))
	if phase != domain.RunPhaseNone {
		fmt.Fprintf(&b, "- **Run phase:** %s\n", phase)
	}
	fmt.Fprintf(&b, "- **Priority:** %d\n", w.Priority)
	if w.Estimate != nil {
		fmt.Fprintf(&b, "- **Estimate:** %.1fh\n", *w.Estimate)
	}
	if w.Track != "" {
		fmt.Fprintf(&b, "- **Track:** %s\n", w.Track)
	}
	if w.Era != "" {
		fmt.Fprintf(&b, "- **Era:** %s\n", w.Era)
	}
	if orbital.WorkOrderArchived(w, phase) {
		b.WriteString("- archived\n")
	}
	return b.String()
}

// tooltipText returns the one-line hover description of node.
func tooltipText(node viz.NodeRef, data domain.VisualizationData) string {
	if node.Kind() == viz.KindWorkOrder {
		w := node.WorkOrder
		text := fmt.Sprintf("%s [%s]", w.DisplayName(), w.Status)
		if phase := data.RunPhases()[w.ID]; phase != domain.RunPhaseNone {
			text += " " + string(phase)
		}
		return text
	}
	p := node.Project
	text := fmt.Sprintf("%s (%s, heat %.2f)", p.DisplayName(), p.Status, orbital.ProjectHeat(*p))
	if p.NeedsHuman {
		text += " needs human"
	}
	return text
}

// pinMark prefixes pinned work orders.
func pinMark(pinned bool) string {
	if pinned {
		return "📌 "
	}
	return ""
}
