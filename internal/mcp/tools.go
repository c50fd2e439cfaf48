package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rpggio/plantrack/internal/domain/changelog"
	"github.com/rpggio/plantrack/internal/domain/project"
	"github.com/rpggio/plantrack/internal/view"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

var errNotConfigured = errors.New("not configured on this server")

type tools struct {
	svc     Services
	refYear int
	now     func() time.Time
	logger  *slog.Logger
}

// addTool registers a typed tool whose output is returned as JSON text.
// Domain errors become tool results flagged IsError so the caller can
// recover.
func addTool[In any](server *sdkmcp.Server, name, description string, fn func(context.Context, In) (any, error)) {
	sdkmcp.AddTool(server, &sdkmcp.Tool{Name: name, Description: description},
		func(ctx context.Context, _ *sdkmcp.CallToolRequest, in In) (*sdkmcp.CallToolResult, any, error) {
			out, err := fn(ctx, in)
			if err != nil {
				return errorResult(err), nil, nil
			}
			data, err := json.Marshal(out)
			if err != nil {
				return nil, nil, fmt.Errorf("encode %s result: %w", name, err)
			}
			return &sdkmcp.CallToolResult{Content: []sdkmcp.Content{&sdkmcp.TextContent{Text: string(data)}}}, nil, nil
		})
}

func errorResult(err error) *sdkmcp.CallToolResult {
	apiErr := MapError(err)
	if apiErr == nil {
		apiErr = &APIError{Code: "INTERNAL", Message: err.Error()}
	}
	data, _ := json.Marshal(apiErr)
	return &sdkmcp.CallToolResult{
		IsError: true,
		Content: []sdkmcp.Content{&sdkmcp.TextContent{Text: string(data)}},
	}
}

func registerTools(server *sdkmcp.Server, t *tools) {
	// Projects
	addTool(server, "list_projects", "List projects filtered by status and a name/organization query", t.listProjects)
	addTool(server, "get_project", "Get a project with its computed statistics", t.getProject)
	addTool(server, "create_project", "Create a project, blank or copied from a template; it is placed first", t.createProject)
	addTool(server, "update_project", "Rename a project or change its organization", t.updateProject)
	addTool(server, "toggle_project_status", "Flip a project between active and completed", t.toggleProjectStatus)
	addTool(server, "delete_project", "Delete a project; undo restores it", t.deleteProject)
	addTool(server, "save_as_template", "Copy a project's structure into a new template", t.saveAsTemplate)

	// Templates
	addTool(server, "list_templates", "List templates", t.listTemplates)
	addTool(server, "create_template", "Create a blank template", t.createTemplate)
	addTool(server, "update_template", "Rename a template or change its organization", t.updateTemplate)
	addTool(server, "delete_template", "Delete a template; undo restores it", t.deleteTemplate)
	addTool(server, "add_template_activity", "Append a milestone to a template", t.addTemplateActivity)
	addTool(server, "update_template_activity", "Edit a template activity", t.updateTemplateActivity)
	addTool(server, "delete_template_activity", "Remove a template activity by position", t.deleteTemplateActivity)

	// Activities
	addTool(server, "add_activity", "Append a pending activity dated today in the reference year", t.addActivity)
	addTool(server, "update_activity", "Edit an activity's date, name, status, owner, type or note", t.updateActivity)
	addTool(server, "delete_activity", "Remove an activity by position; undo restores it", t.deleteActivity)
	addTool(server, "move_activity", "Move an activity between two positions", t.moveActivity)
	addTool(server, "drag_activity", "Move an activity, by id, to a target position", t.dragActivity)
	addTool(server, "sort_activities", "Sort a project's activities by date", t.sortActivities)
	addTool(server, "kanban_drop", "Drop an activity on a kanban bucket, setting its status", t.kanbanDrop)

	// Contacts and risks
	addTool(server, "add_contact", "Append an empty contact", t.addContact)
	addTool(server, "update_contact", "Edit a contact by position", t.updateContact)
	addTool(server, "remove_contact", "Remove a contact by position", t.removeContact)
	addTool(server, "add_risk", "Append a medium risk", t.addRisk)
	addTool(server, "update_risk", "Edit a risk by position", t.updateRisk)
	addTool(server, "remove_risk", "Remove a risk by position", t.removeRisk)

	addTool(server, "undo", "Restore the most recent deletion", t.undo)

	// Views
	addTool(server, "get_kanban", "Get a project's activities grouped into kanban columns", t.getKanban)
	addTool(server, "get_calendar", "Get a six-week month grid with holidays and the activities of open projects", t.getCalendar)
	addTool(server, "get_timeline", "Get open projects laid out on the reference year with deadline warnings", t.getTimeline)
	addTool(server, "get_project_stats", "Get progress, risk and monthly statistics for a project", t.getProjectStats)

	// Backup and history
	addTool(server, "export_backup", "Export all projects and templates as a backup document", t.exportBackup)
	addTool(server, "import_backup", "Replace all data from a backup document or archived backup", t.importBackup)
	addTool(server, "recent_changes", "List recent changes, newest first", t.recentChanges)
}

func (t *tools) findProject(id string) (project.Project, error) {
	for _, p := range t.svc.Projects.Snapshot().Projects {
		if string(p.ID) == id {
			return p, nil
		}
	}
	return project.Project{}, project.ErrProjectNotFound
}

func (t *tools) deleteResponse(deleted bool) DeleteResponse {
	return DeleteResponse{Deleted: deleted, CanUndo: t.svc.Projects.CanUndo()}
}

func (t *tools) listProjects(_ context.Context, in ListProjectsParams) (any, error) {
	filter := view.StatusFilter(in.Filter)
	if filter == "" {
		filter = view.FilterActive
	}
	projects := view.FilterProjects(t.svc.Projects.Snapshot().Projects, filter, in.Query)
	resp := make([]ProjectSummaryResponse, 0, len(projects))
	for _, p := range projects {
		resp = append(resp, ProjectSummaryResponse{
			ID:         p.ID,
			Name:       p.Name,
			Org:        p.Org,
			Status:     p.EffectiveStatus(),
			Progress:   view.Progress(p.Activities),
			RiskLabel:  view.ActivityRiskLabel(p.Activities),
			Activities: len(p.Activities),
		})
	}
	return resp, nil
}

func (t *tools) getProject(_ context.Context, in ProjectIDParams) (any, error) {
	p, err := t.findProject(in.ProjectID)
	if err != nil {
		return nil, err
	}
	return ProjectResponse{Project: p, Stats: view.Stats(p, t.now())}, nil
}

func (t *tools) createProject(ctx context.Context, in CreateProjectParams) (any, error) {
	return t.svc.Projects.Create(ctx, project.CreateRequest{TemplateID: project.ID(in.TemplateID)})
}

func (t *tools) updateProject(ctx context.Context, in UpdateDetailsParams) (any, error) {
	return t.svc.Projects.UpdateProject(ctx, project.ID(in.ID), project.DetailsPatch{Name: in.Name, Org: in.Org})
}

func (t *tools) toggleProjectStatus(ctx context.Context, in ProjectIDParams) (any, error) {
	status, err := t.svc.Projects.ToggleStatus(ctx, project.ID(in.ProjectID))
	if err != nil {
		return nil, err
	}
	return StatusResponse{Status: string(status)}, nil
}

func (t *tools) deleteProject(ctx context.Context, in ProjectIDParams) (any, error) {
	deleted, err := t.svc.Projects.DeleteProject(ctx, project.ID(in.ProjectID))
	if err != nil {
		return nil, err
	}
	return t.deleteResponse(deleted), nil
}

func (t *tools) saveAsTemplate(ctx context.Context, in ProjectIDParams) (any, error) {
	return t.svc.Projects.SaveAsTemplate(ctx, project.ID(in.ProjectID))
}

func (t *tools) listTemplates(_ context.Context, _ NoParams) (any, error) {
	templates := t.svc.Projects.Snapshot().Templates
	resp := make([]TemplateSummaryResponse, 0, len(templates))
	for _, tpl := range templates {
		resp = append(resp, TemplateSummaryResponse{ID: tpl.ID, Name: tpl.Name, Org: tpl.Org, Activities: len(tpl.Activities)})
	}
	return resp, nil
}

func (t *tools) createTemplate(ctx context.Context, _ NoParams) (any, error) {
	return t.svc.Projects.CreateTemplate(ctx)
}

func (t *tools) updateTemplate(ctx context.Context, in UpdateDetailsParams) (any, error) {
	return t.svc.Projects.UpdateTemplate(ctx, project.ID(in.ID), project.DetailsPatch{Name: in.Name, Org: in.Org})
}

func (t *tools) deleteTemplate(ctx context.Context, in TemplateIDParams) (any, error) {
	deleted, err := t.svc.Projects.DeleteTemplate(ctx, project.ID(in.TemplateID))
	if err != nil {
		return nil, err
	}
	return t.deleteResponse(deleted), nil
}

func (t *tools) addTemplateActivity(ctx context.Context, in TemplateIDParams) (any, error) {
	return t.svc.Projects.AddTemplateActivity(ctx, project.ID(in.TemplateID))
}

func (t *tools) updateTemplateActivity(ctx context.Context, in UpdateTemplateActivityParams) (any, error) {
	patch := activityPatch(in.Date, in.Name, in.Status, in.Owner, in.Type, in.Note)
	return t.svc.Projects.UpdateTemplateActivity(ctx, project.ID(in.TemplateID), project.ID(in.ActivityID), patch)
}

func (t *tools) deleteTemplateActivity(ctx context.Context, in TemplateIndexParams) (any, error) {
	deleted, err := t.svc.Projects.DeleteTemplateActivity(ctx, project.ID(in.TemplateID), in.Index)
	if err != nil {
		return nil, err
	}
	return t.deleteResponse(deleted), nil
}

func (t *tools) addActivity(ctx context.Context, in ProjectIDParams) (any, error) {
	return t.svc.Projects.AddActivity(ctx, project.ID(in.ProjectID))
}

func (t *tools) updateActivity(ctx context.Context, in UpdateActivityParams) (any, error) {
	patch := activityPatch(in.Date, in.Name, in.Status, in.Owner, in.Type, in.Note)
	return t.svc.Projects.UpdateActivity(ctx, project.ID(in.ProjectID), project.ID(in.ActivityID), patch)
}

func (t *tools) deleteActivity(ctx context.Context, in IndexParams) (any, error) {
	deleted, err := t.svc.Projects.DeleteActivity(ctx, project.ID(in.ProjectID), in.Index)
	if err != nil {
		return nil, err
	}
	return t.deleteResponse(deleted), nil
}

func (t *tools) activities(projectID string) (any, error) {
	p, err := t.findProject(projectID)
	if err != nil {
		return nil, err
	}
	return p.Activities, nil
}

func (t *tools) moveActivity(ctx context.Context, in MoveActivityParams) (any, error) {
	if err := t.svc.Projects.MoveActivity(ctx, project.ID(in.ProjectID), in.From, in.To); err != nil {
		return nil, err
	}
	return t.activities(in.ProjectID)
}

func (t *tools) dragActivity(ctx context.Context, in DragActivityParams) (any, error) {
	if err := t.svc.Projects.DragActivity(ctx, project.ID(in.ProjectID), project.ID(in.ActivityID), in.To); err != nil {
		return nil, err
	}
	return t.activities(in.ProjectID)
}

func (t *tools) sortActivities(ctx context.Context, in ProjectIDParams) (any, error) {
	if err := t.svc.Projects.SortActivities(ctx, project.ID(in.ProjectID)); err != nil {
		return nil, err
	}
	return t.activities(in.ProjectID)
}

func (t *tools) kanbanDrop(ctx context.Context, in KanbanDropParams) (any, error) {
	bucket, err := project.ParseBucket(in.Bucket)
	if err != nil {
		return nil, err
	}
	status, err := t.svc.Projects.DropOnBucket(ctx, project.ID(in.ProjectID), project.ID(in.ActivityID), bucket)
	if err != nil {
		return nil, err
	}
	return StatusResponse{Status: string(status)}, nil
}

func (t *tools) addContact(ctx context.Context, in ProjectIDParams) (any, error) {
	idx, err := t.svc.Projects.AddContact(ctx, project.ID(in.ProjectID))
	if err != nil {
		return nil, err
	}
	return IndexResponse{Index: idx}, nil
}

func (t *tools) updateContact(ctx context.Context, in UpdateContactParams) (any, error) {
	return t.svc.Projects.UpdateContact(ctx, project.ID(in.ProjectID), in.Index, project.ContactPatch{Name: in.Name, Info: in.Info})
}

func (t *tools) removeContact(ctx context.Context, in IndexParams) (any, error) {
	removed, err := t.svc.Projects.RemoveContact(ctx, project.ID(in.ProjectID), in.Index)
	if err != nil {
		return nil, err
	}
	return DeleteResponse{Deleted: removed, CanUndo: t.svc.Projects.CanUndo()}, nil
}

func (t *tools) addRisk(ctx context.Context, in ProjectIDParams) (any, error) {
	idx, err := t.svc.Projects.AddRisk(ctx, project.ID(in.ProjectID))
	if err != nil {
		return nil, err
	}
	return IndexResponse{Index: idx}, nil
}

func (t *tools) updateRisk(ctx context.Context, in UpdateRiskParams) (any, error) {
	patch := project.RiskPatch{Desc: in.Desc, Action: in.Action}
	if in.Level != nil {
		level := project.RiskLevel(*in.Level)
		patch.Level = &level
	}
	return t.svc.Projects.UpdateRisk(ctx, project.ID(in.ProjectID), in.Index, patch)
}

func (t *tools) removeRisk(ctx context.Context, in IndexParams) (any, error) {
	removed, err := t.svc.Projects.RemoveRisk(ctx, project.ID(in.ProjectID), in.Index)
	if err != nil {
		return nil, err
	}
	return DeleteResponse{Deleted: removed, CanUndo: t.svc.Projects.CanUndo()}, nil
}

func (t *tools) undo(ctx context.Context, _ NoParams) (any, error) {
	d, restored, err := t.svc.Projects.Undo(ctx)
	if err != nil {
		return nil, err
	}
	if !restored {
		return UndoResponse{}, nil
	}
	resp := UndoResponse{
		Restored: true,
		Kind:     string(d.Kind),
		TargetID: d.TargetID(),
		ParentID: d.ParentID,
		Index:    d.Index,
	}
	if d.Kind == project.DeletedActivity {
		a := d.Activity
		resp.Activity = &a
	}
	return resp, nil
}

func (t *tools) getKanban(_ context.Context, in ProjectIDParams) (any, error) {
	p, err := t.findProject(in.ProjectID)
	if err != nil {
		return nil, err
	}
	return view.Kanban(p.Activities), nil
}

func (t *tools) getCalendar(_ context.Context, in CalendarParams) (any, error) {
	now := t.now()
	year, month := in.Year, time.Month(in.Month)
	if year == 0 {
		year = now.Year()
	}
	if month == 0 {
		month = now.Month()
	}
	if month < time.January || month > time.December {
		return nil, fmt.Errorf("month %d: %w", in.Month, project.ErrInvalidInput)
	}

	cells := view.CalendarGrid(year, month, now, t.svc.Holidays)
	all := view.TaskMap(t.svc.Projects.Snapshot().Projects)
	tasks := make(map[string][]view.Task)
	for _, c := range cells {
		if ts, ok := all[c.Date]; ok {
			tasks[c.Date] = ts
		}
	}
	return CalendarResponse{Year: year, Month: int(month), Cells: cells, Tasks: tasks}, nil
}

func (t *tools) getTimeline(_ context.Context, _ NoParams) (any, error) {
	open := view.OpenProjects(t.svc.Projects.Snapshot().Projects)
	return view.Timeline(open, t.refYear, t.now()), nil
}

func (t *tools) getProjectStats(_ context.Context, in ProjectIDParams) (any, error) {
	p, err := t.findProject(in.ProjectID)
	if err != nil {
		return nil, err
	}
	return view.Stats(p, t.now()), nil
}

func (t *tools) exportBackup(ctx context.Context, in ExportBackupParams) (any, error) {
	if t.svc.Backups == nil {
		return nil, fmt.Errorf("backups: %w", errNotConfigured)
	}
	if in.Archive {
		name, err := t.svc.Backups.Export(ctx)
		if err != nil {
			return nil, err
		}
		return ExportBackupResponse{Name: name}, nil
	}
	data, err := t.svc.Backups.Document()
	if err != nil {
		return nil, err
	}
	return ExportBackupResponse{Document: string(data)}, nil
}

func (t *tools) importBackup(ctx context.Context, in ImportBackupParams) (any, error) {
	if t.svc.Backups == nil {
		return nil, fmt.Errorf("backups: %w", errNotConfigured)
	}
	var (
		err  error
		resp ImportBackupResponse
	)
	switch {
	case in.Document != "":
		doc, e := t.svc.Backups.Import(ctx, []byte(in.Document))
		resp, err = ImportBackupResponse{Projects: len(doc.Projects), TemplatesReplaced: doc.Templates != nil}, e
	case in.Name != "":
		doc, e := t.svc.Backups.Restore(ctx, in.Name)
		resp, err = ImportBackupResponse{Projects: len(doc.Projects), TemplatesReplaced: doc.Templates != nil}, e
	default:
		return nil, fmt.Errorf("document or name required: %w", project.ErrInvalidInput)
	}
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (t *tools) recentChanges(ctx context.Context, in RecentChangesParams) (any, error) {
	if t.svc.Changes == nil {
		return nil, fmt.Errorf("change log: %w", errNotConfigured)
	}
	opts := changelog.ListOptions{Limit: in.Limit, Offset: in.Offset}
	if in.ProjectID != "" {
		opts.ProjectID = &in.ProjectID
	}
	if in.Kind != "" {
		kind := changelog.Kind(in.Kind)
		opts.Kind = &kind
	}
	entries, err := t.svc.Changes.Recent(ctx, opts)
	if err != nil {
		return nil, err
	}
	resp := make([]ChangeEntryResponse, 0, len(entries))
	for _, e := range entries {
		resp = append(resp, ChangeEntryResponse{
			Timestamp:  e.CreatedAt,
			Kind:       e.Kind,
			ProjectID:  stringValue(e.ProjectID),
			TemplateID: stringValue(e.TemplateID),
			TargetID:   stringValue(e.TargetID),
			Summary:    e.Summary,
			Version:    e.Version,
		})
	}
	return resp, nil
}

func stringValue(val *string) string {
	if val == nil {
		return ""
	}
	return *val
}
