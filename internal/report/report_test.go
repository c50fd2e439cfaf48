package report_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/rpggio/plantrack/internal/domain/project"
	"github.com/rpggio/plantrack/internal/report"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleProject() project.Project {
	return project.Project{
		ID:   "p1",
		Name: "Billing revamp",
		Org:  "Acme",
		Contacts: []project.Contact{
			{Name: "PM", Info: "Dana"},
		},
		Risks: []project.Risk{
			{Level: project.RiskLow, Desc: "minor", Action: "watch"},
			{Level: project.RiskHigh, Desc: "vendor", Action: "escalate"},
		},
		Activities: []project.Activity{
			{ID: "a2", Date: "2026-03-01", Name: "Launch", Status: project.ActivityPending, Type: project.TypeDeadline},
			{ID: "a1", Date: "2026-01-10", Name: "Kick-off", Status: project.ActivityDone, Type: project.TypeDeadline},
			{ID: "a3", Date: "2026-01-20", Name: "Design", Status: project.ActivityBlocked, Type: project.TypeActivity},
		},
	}
}

func TestBuildSheets(t *testing.T) {
	at := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	f, err := report.Build(sampleProject(), at)
	require.NoError(t, err)
	defer f.Close()

	require.Equal(t, []string{
		report.SheetDashboard, report.SheetDetails, report.SheetMilestones,
		report.SheetRisks, report.SheetContacts, report.SheetMonthly,
	}, f.GetSheetList())

	name, err := f.GetCellValue(report.SheetDashboard, "B1")
	require.NoError(t, err)
	require.Equal(t, "Billing revamp", name)

	details, err := f.GetRows(report.SheetDetails)
	require.NoError(t, err)
	require.Len(t, details, 4)
	require.Equal(t, "Kick-off", details[1][3])
	require.Equal(t, "Design", details[2][3])
	require.Equal(t, "Launch", details[3][3])

	milestones, err := f.GetRows(report.SheetMilestones)
	require.NoError(t, err)
	require.Len(t, milestones, 3)
	require.Equal(t, "9", milestones[1][4])
	require.Equal(t, "59", milestones[2][4])

	risks, err := f.GetRows(report.SheetRisks)
	require.NoError(t, err)
	require.Equal(t, "HIGH", risks[1][0])
	require.Equal(t, "LOW", risks[2][0])

	monthly, err := f.GetRows(report.SheetMonthly)
	require.NoError(t, err)
	require.Len(t, monthly, 3)
	require.Equal(t, "January", monthly[1][0])
	require.Equal(t, "March", monthly[2][0])
}

func TestBuildEmptyRisksPlaceholder(t *testing.T) {
	p := sampleProject()
	p.Risks = nil
	f, err := report.Build(p, time.Now())
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(report.SheetRisks)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, "No risks registered", rows[1][1])
}

func TestWriteDoesNotMutateSnapshot(t *testing.T) {
	p := sampleProject()
	before := p.Clone()

	var buf bytes.Buffer
	require.NoError(t, report.Write(&buf, p, time.Now()))
	require.Equal(t, before, p)

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()
	require.Len(t, f.GetSheetList(), 6)
}

func TestFileName(t *testing.T) {
	at := time.Date(2026, 5, 7, 0, 0, 0, 0, time.UTC)
	require.Equal(t, "Billing revamp_report_20260507.xlsx", report.FileName(project.Project{Name: "Billing revamp"}, at))
	require.Equal(t, "a_b_report_20260507.xlsx", report.FileName(project.Project{Name: "a/b"}, at))
	require.Equal(t, "project_report_20260507.xlsx", report.FileName(project.Project{}, at))
}
