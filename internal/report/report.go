// Package report renders a project snapshot as a multi-sheet xlsx workbook.
package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rpggio/plantrack/internal/domain/project"
	"github.com/rpggio/plantrack/internal/view"
	"github.com/xuri/excelize/v2"
)

// Sheet names, in workbook order.
const (
	SheetDashboard  = "Dashboard"
	SheetDetails    = "Activity Details"
	SheetMilestones = "Milestones"
	SheetRisks      = "Risks"
	SheetContacts   = "Contacts"
	SheetMonthly    = "Monthly Summary"
)

// FileName returns the conventional report name for p on a given day.
func FileName(p project.Project, at time.Time) string {
	name := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, strings.TrimSpace(p.Name))
	if name == "" {
		name = "project"
	}
	return fmt.Sprintf("%s_report_%s.xlsx", name, at.Format("20060102"))
}

// Write renders p as of generatedAt and writes the workbook to w. p is read
// only.
func Write(w io.Writer, p project.Project, generatedAt time.Time) error {
	f, err := Build(p, generatedAt)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// Build renders p into a new workbook. The caller must close it.
func Build(p project.Project, generatedAt time.Time) (*excelize.File, error) {
	p = p.Clone()
	stats := view.Stats(p, generatedAt)

	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", SheetDashboard); err != nil {
		f.Close()
		return nil, err
	}
	steps := []struct {
		sheet string
		rows  [][]any
	}{
		{SheetDashboard, dashboardRows(p, stats, generatedAt)},
		{SheetDetails, detailRows(p)},
		{SheetMilestones, milestoneRows(stats)},
		{SheetRisks, riskRows(p)},
		{SheetContacts, contactRows(p)},
		{SheetMonthly, monthlyRows(stats)},
	}
	for i, step := range steps {
		if i > 0 {
			if _, err := f.NewSheet(step.sheet); err != nil {
				f.Close()
				return nil, fmt.Errorf("create sheet %s: %w", step.sheet, err)
			}
		}
		if err := writeRows(f, step.sheet, step.rows); err != nil {
			f.Close()
			return nil, err
		}
	}
	f.SetActiveSheet(0)
	return f, nil
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

func statusLabel(s project.Status) string {
	if s == project.StatusCompleted {
		return "Completed"
	}
	return "Active"
}

func dashboardRows(p project.Project, s view.ProjectStats, at time.Time) [][]any {
	return [][]any{
		{"Project", p.Name},
		{"Organization", p.Org},
		{"Status", statusLabel(s.Status)},
		{"Generated", at.Format("2006-01-02 15:04")},
		{},
		{"Metric", "Value"},
		{"Total activities", s.Counts.Total},
		{"Deadlines", s.Counts.Deadlines},
		{"Tasks", s.Counts.Tasks},
		{"Done", s.Counts.Done},
		{"On track", s.Counts.OnTrack},
		{"At risk", s.Counts.Risk},
		{"Blocked", s.Counts.Blocked},
		{"Pending", s.Counts.Pending},
		{"Progress", fmt.Sprintf("%d%%", s.Progress)},
		{"Health", string(s.RiskLabel)},
		{"High risks", s.HighRisks},
		{"Medium risks", s.MedRisks},
		{"Low risks", s.LowRisks},
		{"Risk score", s.RiskScore},
	}
}

func typeLabel(t project.ActivityType) string {
	if t == project.TypeDeadline {
		return "Milestone"
	}
	return "Task"
}

func detailRows(p project.Project) [][]any {
	rows := [][]any{{"#", "Date", "Type", "Name", "Owner", "Status", "Note"}}
	for i, a := range view.SortedByDate(p.Activities) {
		rows = append(rows, []any{i + 1, a.Date, typeLabel(a.Type), a.Name, a.Owner, view.StatusText(a.Status), a.Note})
	}
	return rows
}

func milestoneRows(s view.ProjectStats) [][]any {
	rows := [][]any{{"Date", "Milestone", "Owner", "Status", "Days from now"}}
	for _, m := range s.Milestones {
		rows = append(rows, []any{m.Activity.Date, m.Activity.Name, m.Activity.Owner, view.StatusText(m.Activity.Status), m.DaysFromNow})
	}
	return rows
}

func riskRows(p project.Project) [][]any {
	rows := [][]any{{"Level", "Description", "Mitigation"}}
	risks := view.SortedRisks(p.Risks)
	if len(risks) == 0 {
		return append(rows, []any{"-", "No risks registered", "-"})
	}
	for _, r := range risks {
		rows = append(rows, []any{strings.ToUpper(string(r.Level)), r.Desc, r.Action})
	}
	return rows
}

func contactRows(p project.Project) [][]any {
	rows := [][]any{{"Name", "Role / contact"}}
	for _, c := range p.Contacts {
		rows = append(rows, []any{c.Name, c.Info})
	}
	return rows
}

func monthlyRows(s view.ProjectStats) [][]any {
	rows := [][]any{{"Month", "Total", "Deadlines", "Tasks", "Done", "At risk", "Blocked", "Progress"}}
	for _, m := range s.Months {
		progress := 0
		if m.Total > 0 {
			progress = m.Done * 100 / m.Total
		}
		rows = append(rows, []any{m.Month.String(), m.Total, m.Deadlines, m.Tasks, m.Done, m.Risk, m.Blocked, fmt.Sprintf("%d%%", progress)})
	}
	return rows
}
