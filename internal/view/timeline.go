package view

import (
	"math"
	"time"

	"github.com/rpggio/plantrack/internal/domain/project"
)

const (
	yearSpanDays   = 365
	highWindowDays = 7
)

// YearPosition maps date onto a 0-100 percentage along the reference year,
// measured in whole days from January 1 over a fixed 365-day span. Dates
// outside the year clamp to the ends; unparseable dates return 0.
func YearPosition(date string, referenceYear int) float64 {
	d, ok := parseDate(date)
	if !ok {
		return 0
	}
	start := time.Date(referenceYear, time.January, 1, 0, 0, 0, 0, time.UTC)
	days := math.Floor(d.Sub(start).Hours() / 24)
	return math.Max(0, math.Min(100, days/yearSpanDays*100))
}

// Warning classifies how close an activity is to its date.
type Warning string

const (
	WarningNone    Warning = ""
	WarningOverdue Warning = "overdue"
	WarningHigh    Warning = "high"
	WarningMedium  Warning = "medium"
)

// DeadlineWarning classifies an activity relative to today. Done activities
// never warn. Overdue means the date is before today. High means due within
// the next 7 days inclusive. Medium applies to activities at risk that fall
// after the high window but no later than the Sunday closing next week, with
// weeks running Monday to Sunday. The high window always covers the rest of
// the current week.
func DeadlineWarning(a project.Activity, today time.Time) Warning {
	if a.Status == project.ActivityDone {
		return WarningNone
	}
	due, ok := parseDate(a.Date)
	if !ok {
		return WarningNone
	}
	today = midnight(today)
	switch {
	case due.Before(today):
		return WarningOverdue
	case !due.After(today.AddDate(0, 0, highWindowDays)):
		return WarningHigh
	case a.Status == project.ActivityRisk && !due.After(endOfNextWeek(today)):
		return WarningMedium
	}
	return WarningNone
}

func endOfNextWeek(today time.Time) time.Time {
	sinceMonday := (int(today.Weekday()) + 6) % 7
	monday := today.AddDate(0, 0, -sinceMonday)
	return monday.AddDate(0, 0, 13)
}

// Marker is an activity positioned on the annual timeline.
type Marker struct {
	ActivityID project.ID             `json:"activity_id"`
	Name       string                 `json:"name"`
	Date       string                 `json:"date"`
	Status     project.ActivityStatus `json:"status"`
	Type       project.ActivityType   `json:"type"`
	Position   float64                `json:"position"`
	Warning    Warning                `json:"warning,omitempty"`
}

// TimelineRow is one project lane of the annual timeline.
type TimelineRow struct {
	ProjectID project.ID `json:"project_id"`
	Name      string     `json:"name"`
	Org       string     `json:"org"`
	Progress  int        `json:"progress"`
	RiskLabel RiskLabel  `json:"risk_label"`
	Markers   []Marker   `json:"markers"`
}

// Timeline lays out the given projects on the reference year.
func Timeline(projects []project.Project, referenceYear int, today time.Time) []TimelineRow {
	rows := make([]TimelineRow, 0, len(projects))
	for _, p := range projects {
		row := TimelineRow{
			ProjectID: p.ID,
			Name:      p.Name,
			Org:       p.Org,
			Progress:  Progress(p.Activities),
			RiskLabel: ActivityRiskLabel(p.Activities),
			Markers:   make([]Marker, 0, len(p.Activities)),
		}
		for _, a := range p.Activities {
			row.Markers = append(row.Markers, Marker{
				ActivityID: a.ID,
				Name:       a.Name,
				Date:       a.Date,
				Status:     a.Status,
				Type:       a.Type,
				Position:   YearPosition(a.Date, referenceYear),
				Warning:    DeadlineWarning(a, today),
			})
		}
		rows = append(rows, row)
	}
	return rows
}
