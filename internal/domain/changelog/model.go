package changelog

import "time"

// Kind names the mutation an entry records.
type Kind string

const (
	KindProjectCreated       Kind = "project_created"
	KindProjectUpdated       Kind = "project_updated"
	KindProjectStatusToggled Kind = "project_status_toggled"
	KindProjectDeleted       Kind = "project_deleted"
	KindTemplateCreated      Kind = "template_created"
	KindTemplateUpdated      Kind = "template_updated"
	KindTemplateDeleted      Kind = "template_deleted"
	KindActivityAdded        Kind = "activity_added"
	KindActivityUpdated      Kind = "activity_updated"
	KindActivityDeleted      Kind = "activity_deleted"
	KindActivityMoved        Kind = "activity_moved"
	KindActivitiesSorted     Kind = "activities_sorted"
	KindActivityDropped      Kind = "activity_dropped"
	KindContactChanged       Kind = "contact_changed"
	KindRiskChanged          Kind = "risk_changed"
	KindUndoApplied          Kind = "undo_applied"
	KindStoreImported        Kind = "store_imported"
)

// Entry is one applied mutation in the change log.
type Entry struct {
	ID         int64     `json:"id"`
	Kind       Kind      `json:"kind"`
	ProjectID  *string   `json:"project_id,omitempty"`
	TemplateID *string   `json:"template_id,omitempty"`
	TargetID   *string   `json:"target_id,omitempty"`
	Summary    string    `json:"summary"`
	Version    uint64    `json:"version"`
	CreatedAt  time.Time `json:"created_at"`
}
