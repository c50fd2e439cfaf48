// Package view computes read-only projections of tracker state: filtered
// project lists, kanban columns, calendar grids, timeline positions and
// aggregate statistics. Every function is pure and works on values taken
// from a store snapshot.
package view

import (
	"strings"

	"github.com/rpggio/plantrack/internal/domain/project"
)

// StatusFilter selects projects by lifecycle state.
type StatusFilter string

const (
	FilterActive    StatusFilter = "active"
	FilterCompleted StatusFilter = "completed"
	FilterAll       StatusFilter = "all"
)

// Matches reports whether p passes the status filter. Projects without a
// status count as active.
func (f StatusFilter) Matches(p project.Project) bool {
	switch f {
	case FilterAll, "":
		return true
	case FilterCompleted:
		return p.EffectiveStatus() == project.StatusCompleted
	default:
		return p.EffectiveStatus() == project.StatusActive
	}
}

// FilterProjects returns the projects passing the status filter whose name or
// org contains query, ignoring case. An empty query keeps every project that
// passes the filter. Order is preserved.
func FilterProjects(projects []project.Project, filter StatusFilter, query string) []project.Project {
	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]project.Project, 0, len(projects))
	for _, p := range projects {
		if !filter.Matches(p) {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(p.Name), q) && !strings.Contains(strings.ToLower(p.Org), q) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// OpenProjects returns the projects that are not completed.
func OpenProjects(projects []project.Project) []project.Project {
	return FilterProjects(projects, FilterActive, "")
}
