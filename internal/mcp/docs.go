package mcp

import (
	"context"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

const serverInstructions = `plantrack tracks projects as dated activities with status, contacts and risks.

Core concepts:
- Project: name, organization, status (active or completed), activities, contacts, risks.
- Activity: a dated milestone (type deadline) or task (type activity) with status pending, ontrack, risk, blocked or done.
- Template: a reusable project skeleton. New projects copy a template with fresh activity ids and pending status.
- Undo: only the most recent deletion of a project, template or activity can be restored.

Workflow:
1) Orient: list_projects, then get_project or get_project_stats for one project.
2) Edit: add_activity / update_activity, kanban_drop to change status by bucket, drag_activity or move_activity to reorder.
3) Deletions: delete_* tools report can_undo; call undo before the next deletion if it was a mistake.
4) Views: get_kanban, get_calendar (month grid with holidays), get_timeline (reference year with deadline warnings).
5) Safety: export_backup before import_backup; an import replaces everything and clears undo.

Docs:
- plantrack://docs/index
- plantrack://docs/statuses
`

type docResource struct {
	URI         string
	Name        string
	Title       string
	Description string
	Content     string
}

var docResources = []docResource{
	{
		URI:         "plantrack://docs/index",
		Name:        "docs_index",
		Title:       "plantrack docs index",
		Description: "Entry point: data model, tool groups and what each view computes.",
		Content: `# plantrack

## Tool groups

- Projects: list_projects, get_project, create_project, update_project, toggle_project_status, delete_project, save_as_template
- Templates: list_templates, create_template, update_template, delete_template, add_template_activity, update_template_activity, delete_template_activity
- Activities: add_activity, update_activity, delete_activity, move_activity, drag_activity, sort_activities, kanban_drop
- Contacts and risks: add_contact, update_contact, remove_contact, add_risk, update_risk, remove_risk
- Views: get_kanban, get_calendar, get_timeline, get_project_stats
- Data: undo, export_backup, import_backup, recent_changes

## Identifiers and positions

Projects, templates and activities are addressed by id. Contacts and risks
have no id and are addressed by their zero-based index. Deleting an
activity also uses its index in the current list.

## Dates

Dates are YYYY-MM-DD strings. Unparseable dates are kept but place nothing
on the calendar or timeline.
`,
	},
	{
		URI:         "plantrack://docs/statuses",
		Name:        "docs_statuses",
		Title:       "Statuses, buckets and warnings",
		Description: "How activity status maps to kanban buckets, risk labels and deadline warnings.",
		Content: `# Statuses

| status  | kanban bucket | notes |
|---------|---------------|-------|
| pending | pending       | default for new activities |
| ontrack | ontrack       | |
| risk    | risk          | shares a bucket with blocked |
| blocked | risk          | dropping on the risk bucket sets risk |
| done    | done          | counts toward progress |

## Project health

- Progress: rounded share of done activities.
- Risk label: HIGH if any activity is blocked, MED if any is at risk, else LOW.
- Risk score: high risks weigh 3, med 2, low 1.

## Deadline warnings

Activities that are not done warn as:

- overdue: dated before today
- high: due within the next seven days
- medium: at risk and due by the Sunday ending next week (weeks run Monday to Sunday)
`,
	},
}

func registerDocResources(server *sdkmcp.Server) {
	for _, doc := range docResources {
		server.AddResource(&sdkmcp.Resource{
			URI:         doc.URI,
			Name:        doc.Name,
			Title:       doc.Title,
			Description: doc.Description,
			MIMEType:    "text/markdown",
			Size:        int64(len(doc.Content)),
		}, func(_ context.Context, req *sdkmcp.ReadResourceRequest) (*sdkmcp.ReadResourceResult, error) {
			uri := doc.URI
			if req != nil && req.Params != nil && req.Params.URI != "" {
				uri = req.Params.URI
			}
			return &sdkmcp.ReadResourceResult{
				Contents: []*sdkmcp.ResourceContents{{
					URI:      uri,
					MIMEType: "text/markdown",
					Text:     doc.Content,
				}},
			}, nil
		})
	}
}
