// Package catalog registers every built-in strategy.
package catalog

import (
	"github.com/hylla/orrery/internal/viz"
	"github.com/hylla/orrery/internal/viz/force"
	"github.com/hylla/orrery/internal/viz/heatmap"
	"github.com/hylla/orrery/internal/viz/orbital"
	"github.com/hylla/orrery/internal/viz/pulse"
	"github.com/hylla/orrery/internal/viz/river"
)

// DefaultID is the strategy mounted when none is configured.
const DefaultID = orbital.ProjectsID

// Default returns a registry holding all built-in strategies in display order.
func Default(orbitalCfg orbital.Config) *viz.Registry {
	reg := viz.NewRegistry()
	for _, d := range []viz.Descriptor{
		{ID: orbital.ProjectsID, Name: "Orbital", Description: "projects orbit closer the more attention they need", Factory: orbital.Factory(orbital.ModeProjects, orbitalCfg)},
		{ID: orbital.WorkOrdersID, Name: "Orbital work orders", Description: "work orders orbit by status and run phase", Factory: orbital.Factory(orbital.ModeWorkOrders, orbitalCfg)},
		{ID: force.ID, Name: "Force graph", Description: "projects, work orders, and dependencies as a force layout", Factory: force.Factory},
		{ID: pulse.ID, Name: "Activity pulse", Description: "projects on a ring, pulsing with activity", Factory: pulse.Factory},
		{ID: heatmap.ID, Name: "Heatmap", Description: "one heat-colored row per project", Factory: heatmap.Factory},
		{ID: river.ID, Name: "Timeline river", Description: "lanes along time since last activity", Factory: river.Factory},
	} {
		if err := reg.Register(d); err != nil {
			panic(err)
		}
	}
	return reg
}
