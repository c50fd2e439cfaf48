package project

// DeletionKind names what a held deletion removed.
type DeletionKind string

const (
	DeletedProject  DeletionKind = "project"
	DeletedTemplate DeletionKind = "template"
	DeletedActivity DeletionKind = "activity"
)

// Deletion captures enough state to put a removed record back where it was.
type Deletion struct {
	Kind     DeletionKind
	Index    int
	ParentID ID // owning project for activity deletions
	Project  Project
	Template Template
	Activity Activity
}

// TargetID returns the id of the removed record.
func (d Deletion) TargetID() ID {
	switch d.Kind {
	case DeletedProject:
		return d.Project.ID
	case DeletedTemplate:
		return d.Template.ID
	default:
		return d.Activity.ID
	}
}

// UndoBuffer holds at most one pending deletion. Capturing a new deletion
// discards whatever was held.
type UndoBuffer struct {
	held *Deletion
}

// Capture stores d, replacing any held deletion.
func (b *UndoBuffer) Capture(d Deletion) {
	b.held = &d
}

// Pending reports whether a deletion can be undone.
func (b *UndoBuffer) Pending() bool {
	return b.held != nil
}

// Take consumes the held deletion.
func (b *UndoBuffer) Take() (Deletion, bool) {
	if b.held == nil {
		return Deletion{}, false
	}
	d := *b.held
	b.held = nil
	return d, true
}

// restore re-inserts d into the working copy. It reports false when the
// owning collection no longer accepts the record, e.g. the parent project of
// an activity was deleted or the id was reused in the meantime.
func restore(tx *Tx, d Deletion) bool {
	switch d.Kind {
	case DeletedProject:
		return tx.InsertProject(d.Index, d.Project) == nil
	case DeletedTemplate:
		return tx.InsertTemplate(d.Index, d.Template) == nil
	case DeletedActivity:
		if tx.ProjectIndex(d.ParentID) < 0 {
			return false
		}
		p, err := tx.EditProject(d.ParentID)
		if err != nil || p.ActivityIndex(d.Activity.ID) >= 0 {
			return false
		}
		p.Activities = insertAt(p.Activities, clampIndex(d.Index, len(p.Activities)), d.Activity)
		return true
	}
	return false
}
