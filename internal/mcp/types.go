package mcp

import (
	"time"

	"github.com/rpggio/plantrack/internal/domain/changelog"
	"github.com/rpggio/plantrack/internal/domain/project"
	"github.com/rpggio/plantrack/internal/view"
)

type NoParams struct{}

type ListProjectsParams struct {
	Filter string `json:"filter,omitempty" jsonschema:"active, completed or all (default active)"`
	Query  string `json:"query,omitempty" jsonschema:"case-insensitive match on name or organization"`
}

type ProjectIDParams struct {
	ProjectID string `json:"project_id" jsonschema:"project id"`
}

type TemplateIDParams struct {
	TemplateID string `json:"template_id" jsonschema:"template id"`
}

type CreateProjectParams struct {
	TemplateID string `json:"template_id,omitempty" jsonschema:"template to copy; omit for a blank project"`
}

type UpdateDetailsParams struct {
	ID   string  `json:"id" jsonschema:"project or template id"`
	Name *string `json:"name,omitempty"`
	Org  *string `json:"org,omitempty"`
}

type UpdateActivityParams struct {
	ProjectID  string  `json:"project_id"`
	ActivityID string  `json:"activity_id"`
	Date       *string `json:"date,omitempty" jsonschema:"YYYY-MM-DD"`
	Name       *string `json:"name,omitempty"`
	Status     *string `json:"status,omitempty" jsonschema:"pending, ontrack, risk, blocked or done"`
	Owner      *string `json:"owner,omitempty"`
	Type       *string `json:"type,omitempty" jsonschema:"deadline or activity"`
	Note       *string `json:"note,omitempty"`
}

type UpdateTemplateActivityParams struct {
	TemplateID string  `json:"template_id"`
	ActivityID string  `json:"activity_id"`
	Date       *string `json:"date,omitempty" jsonschema:"YYYY-MM-DD"`
	Name       *string `json:"name,omitempty"`
	Status     *string `json:"status,omitempty" jsonschema:"pending, ontrack, risk, blocked or done"`
	Owner      *string `json:"owner,omitempty"`
	Type       *string `json:"type,omitempty" jsonschema:"deadline or activity"`
	Note       *string `json:"note,omitempty"`
}

func activityPatch(date, name, status, owner, typ, note *string) project.ActivityPatch {
	p := project.ActivityPatch{Date: date, Name: name, Owner: owner, Note: note}
	if status != nil {
		s := project.ActivityStatus(*status)
		p.Status = &s
	}
	if typ != nil {
		t := project.ActivityType(*typ)
		p.Type = &t
	}
	return p
}

type IndexParams struct {
	ProjectID string `json:"project_id"`
	Index     int    `json:"index" jsonschema:"zero-based position in the list"`
}

type TemplateIndexParams struct {
	TemplateID string `json:"template_id"`
	Index      int    `json:"index" jsonschema:"zero-based position in the activity list"`
}

type MoveActivityParams struct {
	ProjectID string `json:"project_id"`
	From      int    `json:"from"`
	To        int    `json:"to"`
}

type DragActivityParams struct {
	ProjectID  string `json:"project_id"`
	ActivityID string `json:"activity_id"`
	To         int    `json:"to" jsonschema:"target position; clamped to the list"`
}

type KanbanDropParams struct {
	ProjectID  string `json:"project_id"`
	ActivityID string `json:"activity_id"`
	Bucket     string `json:"bucket" jsonschema:"pending, ontrack, risk or done"`
}

type UpdateContactParams struct {
	ProjectID string  `json:"project_id"`
	Index     int     `json:"index"`
	Name      *string `json:"name,omitempty"`
	Info      *string `json:"info,omitempty"`
}

type UpdateRiskParams struct {
	ProjectID string  `json:"project_id"`
	Index     int     `json:"index"`
	Level     *string `json:"level,omitempty" jsonschema:"high, med or low"`
	Desc      *string `json:"desc,omitempty"`
	Action    *string `json:"action,omitempty"`
}

type CalendarParams struct {
	Year  int `json:"year,omitempty" jsonschema:"defaults to the current year"`
	Month int `json:"month,omitempty" jsonschema:"1-12; defaults to the current month"`
}

type ExportBackupParams struct {
	Archive bool `json:"archive,omitempty" jsonschema:"store the backup in the configured archive instead of returning it"`
}

type ImportBackupParams struct {
	Document string `json:"document,omitempty" jsonschema:"backup JSON text"`
	Name     string `json:"name,omitempty" jsonschema:"archived backup to restore"`
}

type RecentChangesParams struct {
	ProjectID string `json:"project_id,omitempty"`
	Kind      string `json:"kind,omitempty"`
	Limit     int    `json:"limit,omitempty"`
	Offset    int    `json:"offset,omitempty"`
}

type ProjectSummaryResponse struct {
	ID         project.ID     `json:"id"`
	Name       string         `json:"name"`
	Org        string         `json:"org"`
	Status     project.Status `json:"status"`
	Progress   int            `json:"progress"`
	RiskLabel  view.RiskLabel `json:"risk_label"`
	Activities int            `json:"activities"`
}

type ProjectResponse struct {
	Project project.Project   `json:"project"`
	Stats   view.ProjectStats `json:"stats"`
}

type TemplateSummaryResponse struct {
	ID         project.ID `json:"id"`
	Name       string     `json:"name"`
	Org        string     `json:"org"`
	Activities int        `json:"activities"`
}

type DeleteResponse struct {
	Deleted bool `json:"deleted"`
	CanUndo bool `json:"can_undo"`
}

type IndexResponse struct {
	Index int `json:"index"`
}

type StatusResponse struct {
	Status string `json:"status"`
}

type UndoResponse struct {
	Restored bool               `json:"restored"`
	Kind     string             `json:"kind,omitempty"`
	TargetID project.ID         `json:"target_id,omitempty"`
	ParentID project.ID         `json:"parent_id,omitempty"`
	Index    int                `json:"index,omitempty"`
	Activity *project.Activity `json:"activity,omitempty"`
}

type CalendarResponse struct {
	Year  int                    `json:"year"`
	Month int                    `json:"month"`
	Cells []view.Cell            `json:"cells"`
	Tasks map[string][]view.Task `json:"tasks"`
}

type ExportBackupResponse struct {
	Name     string `json:"name"`
	Document string `json:"document,omitempty"`
}

type ImportBackupResponse struct {
	Projects          int  `json:"projects"`
	TemplatesReplaced bool `json:"templates_replaced"`
}

type ChangeEntryResponse struct {
	Timestamp  time.Time      `json:"timestamp"`
	Kind       changelog.Kind `json:"kind"`
	ProjectID  string         `json:"project_id,omitempty"`
	TemplateID string         `json:"template_id,omitempty"`
	TargetID   string         `json:"target_id,omitempty"`
	Summary    string         `json:"summary"`
	Version    uint64         `json:"version"`
}
