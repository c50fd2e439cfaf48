package view

import (
	"math"
	"slices"
	"time"

	"github.com/rpggio/plantrack/internal/domain/project"
)

// Progress returns the rounded percentage of done activities, 0 when empty.
func Progress(activities []project.Activity) int {
	if len(activities) == 0 {
		return 0
	}
	done := 0
	for _, a := range activities {
		if a.Status == project.ActivityDone {
			done++
		}
	}
	return int(math.Round(float64(done) / float64(len(activities)) * 100))
}

// RiskScore returns the weighted sum of registered risks.
func RiskScore(risks []project.Risk) int {
	score := 0
	for _, r := range risks {
		score += r.Level.Weight()
	}
	return score
}

// RiskLabel summarises the activity health of a project.
type RiskLabel string

const (
	LabelHigh RiskLabel = "HIGH"
	LabelMed  RiskLabel = "MED"
	LabelLow  RiskLabel = "LOW"
)

// ActivityRiskLabel is HIGH when any activity is blocked, MED when any is at
// risk, LOW otherwise.
func ActivityRiskLabel(activities []project.Activity) RiskLabel {
	label := LabelLow
	for _, a := range activities {
		switch a.Status {
		case project.ActivityBlocked:
			return LabelHigh
		case project.ActivityRisk:
			label = LabelMed
		}
	}
	return label
}

// SortedByDate returns a date-ordered copy of activities. Ties keep list order.
func SortedByDate(activities []project.Activity) []project.Activity {
	out := slices.Clone(activities)
	if out == nil {
		out = []project.Activity{}
	}
	project.SortByDate(out)
	return out
}

// ActivitiesInMonth returns the activities dated in month (any year), sorted
// by date.
func ActivitiesInMonth(activities []project.Activity, month time.Month) []project.Activity {
	out := []project.Activity{}
	for _, a := range activities {
		if d, ok := parseDate(a.Date); ok && d.Month() == month {
			out = append(out, a)
		}
	}
	project.SortByDate(out)
	return out
}

// Counts tallies activities by status and type.
type Counts struct {
	Total     int `json:"total"`
	Pending   int `json:"pending"`
	OnTrack   int `json:"ontrack"`
	Risk      int `json:"risk"`
	Blocked   int `json:"blocked"`
	Done      int `json:"done"`
	Deadlines int `json:"deadlines"`
	Tasks     int `json:"tasks"`
}

func countActivities(activities []project.Activity) Counts {
	c := Counts{Total: len(activities)}
	for _, a := range activities {
		switch a.Status {
		case project.ActivityPending:
			c.Pending++
		case project.ActivityOnTrack:
			c.OnTrack++
		case project.ActivityRisk:
			c.Risk++
		case project.ActivityBlocked:
			c.Blocked++
		case project.ActivityDone:
			c.Done++
		}
		switch a.Type {
		case project.TypeDeadline:
			c.Deadlines++
		case project.TypeActivity:
			c.Tasks++
		}
	}
	return c
}

// MonthSummary tallies the activities of one calendar month.
type MonthSummary struct {
	Month time.Month `json:"month"`
	Counts
}

// MonthlySummary returns a summary for each month that has activities, in
// calendar order.
func MonthlySummary(activities []project.Activity) []MonthSummary {
	out := []MonthSummary{}
	for m := time.January; m <= time.December; m++ {
		acts := ActivitiesInMonth(activities, m)
		if len(acts) == 0 {
			continue
		}
		out = append(out, MonthSummary{Month: m, Counts: countActivities(acts)})
	}
	return out
}

// Milestone is a deadline activity with its distance from today in days.
// Negative values are days past.
type Milestone struct {
	Activity    project.Activity `json:"activity"`
	DaysFromNow int              `json:"days_from_now"`
}

// Milestones returns the deadline activities sorted by date.
func Milestones(activities []project.Activity, today time.Time) []Milestone {
	today = midnight(today)
	out := []Milestone{}
	for _, a := range SortedByDate(activities) {
		if a.Type != project.TypeDeadline {
			continue
		}
		m := Milestone{Activity: a}
		if d, ok := parseDate(a.Date); ok {
			m.DaysFromNow = int(math.Round(d.Sub(today).Hours() / 24))
		}
		out = append(out, m)
	}
	return out
}

// SortedRisks returns risks ordered high, med, low. Equal levels keep list
// order and unknown levels go last.
func SortedRisks(risks []project.Risk) []project.Risk {
	out := slices.Clone(risks)
	if out == nil {
		out = []project.Risk{}
	}
	slices.SortStableFunc(out, func(a, b project.Risk) int {
		return b.Level.Weight() - a.Level.Weight()
	})
	return out
}

// ProjectStats aggregates everything a dashboard or report shows about one
// project.
type ProjectStats struct {
	ProjectID  project.ID     `json:"project_id"`
	Name       string         `json:"name"`
	Org        string         `json:"org"`
	Status     project.Status `json:"status"`
	Counts     Counts         `json:"counts"`
	Progress   int            `json:"progress"`
	RiskLabel  RiskLabel      `json:"risk_label"`
	RiskScore  int            `json:"risk_score"`
	HighRisks  int            `json:"high_risks"`
	MedRisks   int            `json:"med_risks"`
	LowRisks   int            `json:"low_risks"`
	Months     []MonthSummary `json:"months"`
	Milestones []Milestone    `json:"milestones"`
}

// Stats computes the aggregate view of p as of today.
func Stats(p project.Project, today time.Time) ProjectStats {
	s := ProjectStats{
		ProjectID:  p.ID,
		Name:       p.Name,
		Org:        p.Org,
		Status:     p.EffectiveStatus(),
		Counts:     countActivities(p.Activities),
		Progress:   Progress(p.Activities),
		RiskLabel:  ActivityRiskLabel(p.Activities),
		RiskScore:  RiskScore(p.Risks),
		Months:     MonthlySummary(p.Activities),
		Milestones: Milestones(p.Activities, today),
	}
	for _, r := range p.Risks {
		switch r.Level {
		case project.RiskHigh:
			s.HighRisks++
		case project.RiskMed:
			s.MedRisks++
		case project.RiskLow:
			s.LowRisks++
		}
	}
	return s
}

// StatusText returns a display label for an activity status.
func StatusText(s project.ActivityStatus) string {
	switch s {
	case project.ActivityOnTrack:
		return "On track"
	case project.ActivityRisk:
		return "At risk"
	case project.ActivityBlocked:
		return "Blocked"
	case project.ActivityDone:
		return "Done"
	default:
		return "Pending"
	}
}
