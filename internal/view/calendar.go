package view

import (
	"time"

	"github.com/rpggio/plantrack/internal/domain/project"
)

// GridCells is the fixed size of a month grid: six full weeks.
const GridCells = 42

// HolidayLookup resolves a YYYY-MM-DD date to a holiday description.
type HolidayLookup interface {
	Lookup(date string) (string, bool)
}

// Cell is one day of a month grid.
type Cell struct {
	Date        string `json:"date"`
	Day         int    `json:"day"`
	InMonth     bool   `json:"in_month"`
	Today       bool   `json:"today"`
	Holiday     bool   `json:"holiday"`
	HolidayName string `json:"holiday_name,omitempty"`
}

// CalendarGrid returns the 42 cells for year/month. Rows start on Sunday;
// leading cells are the trailing days of the previous month and trailing
// cells start at day 1 of the next month. holidays may be nil.
func CalendarGrid(year int, month time.Month, today time.Time, holidays HolidayLookup) []Cell {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	start := first.AddDate(0, 0, -int(first.Weekday()))
	todayKey := dateKey(today)

	cells := make([]Cell, GridCells)
	for i := range cells {
		d := start.AddDate(0, 0, i)
		key := d.Format(project.DateLayout)
		c := Cell{
			Date:    key,
			Day:     d.Day(),
			InMonth: d.Month() == first.Month(),
			Today:   key == todayKey,
		}
		if holidays != nil {
			if name, ok := holidays.Lookup(key); ok {
				c.Holiday = true
				c.HolidayName = name
			}
		}
		cells[i] = c
	}
	return cells
}

// Task is an activity placed on the calendar with its owning project.
type Task struct {
	ProjectID   project.ID       `json:"project_id"`
	ProjectName string           `json:"project_name"`
	Activity    project.Activity `json:"activity"`
}

// TaskMap groups the activities of all non-completed projects by exact date
// string. Dates without activities are absent.
func TaskMap(projects []project.Project) map[string][]Task {
	out := make(map[string][]Task)
	for _, p := range projects {
		if p.IsCompleted() {
			continue
		}
		for _, a := range p.Activities {
			out[a.Date] = append(out[a.Date], Task{ProjectID: p.ID, ProjectName: p.Name, Activity: a})
		}
	}
	return out
}

func dateKey(t time.Time) string {
	return t.Format(project.DateLayout)
}

// parseDate reads a YYYY-MM-DD date as midnight UTC.
func parseDate(s string) (time.Time, bool) {
	t, err := time.Parse(project.DateLayout, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// midnight drops the clock part of t, keeping its calendar date.
func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
