package project

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rpggio/plantrack/internal/domain/changelog"
	"github.com/rpggio/plantrack/internal/observability"
)

var errUndoRejected = errors.New("undo target no longer accepts the record")

// Service applies mutation operations to a Store, persisting after each one
// and keeping the single-slot undo buffer.
type Service struct {
	mu      sync.Mutex
	store   *Store
	repo    Repository
	changes ChangeRecorder
	undo    UndoBuffer
	logger  *slog.Logger
	now     func() time.Time
	newID   func() ID
	refYear int
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source used for default dates.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator overrides id generation.
func WithIDGenerator(fn func() ID) Option {
	return func(s *Service) { s.newID = fn }
}

// WithReferenceYear sets the year new activities are dated in.
func WithReferenceYear(year int) Option {
	return func(s *Service) { s.refYear = year }
}

// WithChangeRecorder forwards committed mutations to r.
func WithChangeRecorder(r ChangeRecorder) Option {
	return func(s *Service) { s.changes = r }
}

// NewService creates a new project service. repo may be nil, in which case
// nothing is persisted.
func NewService(store *Store, repo Repository, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Service{
		store:   store,
		repo:    repo,
		logger:  logger,
		now:     time.Now,
		newID:   func() ID { return ID(uuid.NewString()) },
		refYear: DefaultReferenceYear,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// LoadStore reads both collections through repo and builds a Store.
func LoadStore(ctx context.Context, repo Repository) (*Store, error) {
	projects, err := repo.LoadProjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading projects: %w", err)
	}
	templates, err := repo.LoadTemplates(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading templates: %w", err)
	}
	for i := range projects {
		projects[i] = normalizeProject(projects[i])
	}
	for i := range templates {
		templates[i] = normalizeTemplate(templates[i])
	}
	store, err := NewStore(projects, templates)
	if err != nil {
		return nil, fmt.Errorf("building store: %w", err)
	}
	observability.SetProjectCount(len(projects))
	return store, nil
}

// Store returns the underlying entity store.
func (s *Service) Store() *Store {
	return s.store
}

// Snapshot returns a deep copy of the current state.
func (s *Service) Snapshot() Snapshot {
	return s.store.Snapshot()
}

// CreateRequest describes project creation. An empty TemplateID creates a
// blank project.
type CreateRequest struct {
	TemplateID ID
}

// Create stamps a new project from a template (or blank) and puts it first.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Project, error) {
	var created Project
	entry := &changelog.Entry{Kind: changelog.KindProjectCreated}
	err := s.mutate(ctx, "create_project", entry, func(tx *Tx) error {
		p := Project{
			ID:         s.newID(),
			Name:       defaultProjectName,
			Status:     StatusActive,
			Contacts:   []Contact{},
			Risks:      []Risk{},
			Activities: []Activity{},
		}
		if req.TemplateID != "" {
			idx := tx.TemplateIndex(req.TemplateID)
			if idx < 0 {
				return ErrTemplateNotFound
			}
			tpl := tx.Templates()[idx].Clone()
			p.Name = tpl.Name + copySuffix
			p.Org = tpl.Org
			p.Contacts = tpl.Contacts
			p.Risks = tpl.Risks
			p.Activities = s.restamp(tpl.Activities, false)
		}
		if err := tx.InsertProject(0, p); err != nil {
			return err
		}
		created = p
		entry.ProjectID = idRef(p.ID)
		entry.TemplateID = optionalRef(req.TemplateID)
		entry.Summary = fmt.Sprintf("created project %q", p.Name)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// SaveAsTemplate copies a project's structure into a new template placed
// first in the template list. Progress and notes are reset.
func (s *Service) SaveAsTemplate(ctx context.Context, projectID ID) (*Template, error) {
	var created Template
	entry := &changelog.Entry{Kind: changelog.KindTemplateCreated, ProjectID: idRef(projectID)}
	err := s.mutate(ctx, "save_as_template", entry, func(tx *Tx) error {
		idx := tx.ProjectIndex(projectID)
		if idx < 0 {
			return ErrProjectNotFound
		}
		p := tx.Projects()[idx].Clone()
		t := Template{
			ID:         s.newID(),
			Name:       templatePrefix + p.Name,
			Org:        p.Org,
			Contacts:   p.Contacts,
			Risks:      p.Risks,
			Activities: s.restamp(p.Activities, true),
		}
		if err := tx.InsertTemplate(0, t); err != nil {
			return err
		}
		created = t
		entry.TemplateID = idRef(t.ID)
		entry.Summary = fmt.Sprintf("saved project %s as template %q", projectID, t.Name)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// restamp copies activities with fresh ids and pending status.
func (s *Service) restamp(in []Activity, clearNotes bool) []Activity {
	out := make([]Activity, len(in))
	for i, a := range in {
		a.ID = s.newID()
		a.Status = ActivityPending
		if clearNotes {
			a.Note = ""
		}
		out[i] = a
	}
	return out
}

// CreateTemplate adds a blank template at the front of the template list.
func (s *Service) CreateTemplate(ctx context.Context) (*Template, error) {
	var created Template
	entry := &changelog.Entry{Kind: changelog.KindTemplateCreated}
	err := s.mutate(ctx, "create_template", entry, func(tx *Tx) error {
		t := Template{
			ID:         s.newID(),
			Name:       defaultTemplateName,
			Contacts:   []Contact{},
			Risks:      []Risk{},
			Activities: []Activity{},
		}
		if err := tx.InsertTemplate(0, t); err != nil {
			return err
		}
		created = t
		entry.TemplateID = idRef(t.ID)
		entry.Summary = "created blank template"
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// DetailsPatch updates the name and organisation of a project or template.
// Nil fields are left unchanged.
type DetailsPatch struct {
	Name *string
	Org  *string
}

// UpdateProject applies a details patch to a project.
func (s *Service) UpdateProject(ctx context.Context, id ID, patch DetailsPatch) (*Project, error) {
	var updated Project
	entry := &changelog.Entry{Kind: changelog.KindProjectUpdated, ProjectID: idRef(id)}
	err := s.mutate(ctx, "update_project", entry, func(tx *Tx) error {
		p, err := tx.EditProject(id)
		if err != nil {
			return err
		}
		if patch.Name != nil {
			p.Name = *patch.Name
		}
		if patch.Org != nil {
			p.Org = *patch.Org
		}
		updated = p.Clone()
		entry.Summary = fmt.Sprintf("updated project %q", p.Name)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// UpdateTemplate applies a details patch to a template.
func (s *Service) UpdateTemplate(ctx context.Context, id ID, patch DetailsPatch) (*Template, error) {
	var updated Template
	entry := &changelog.Entry{Kind: changelog.KindTemplateUpdated, TemplateID: idRef(id)}
	err := s.mutate(ctx, "update_template", entry, func(tx *Tx) error {
		t, err := tx.EditTemplate(id)
		if err != nil {
			return err
		}
		if patch.Name != nil {
			t.Name = *patch.Name
		}
		if patch.Org != nil {
			t.Org = *patch.Org
		}
		updated = t.Clone()
		entry.Summary = fmt.Sprintf("updated template %q", t.Name)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// ToggleStatus flips a project between active and completed. Activities are
// left untouched.
func (s *Service) ToggleStatus(ctx context.Context, id ID) (Status, error) {
	var next Status
	entry := &changelog.Entry{Kind: changelog.KindProjectStatusToggled, ProjectID: idRef(id)}
	err := s.mutate(ctx, "toggle_project_status", entry, func(tx *Tx) error {
		idx := tx.ProjectIndex(id)
		if idx < 0 {
			return ErrProjectNotFound
		}
		p := tx.Projects()[idx].Clone()
		if p.IsCompleted() {
			p.Status = StatusActive
		} else {
			p.Status = StatusCompleted
		}
		next = p.Status
		entry.Summary = fmt.Sprintf("project %q is now %s", p.Name, next)
		return tx.ReplaceProject(idx, p)
	})
	if err != nil {
		return "", err
	}
	return next, nil
}

// DeleteProject removes a project and holds it for undo. Deleting an absent
// project is a no-op reporting false.
func (s *Service) DeleteProject(ctx context.Context, id ID) (bool, error) {
	var deleted bool
	entry := &changelog.Entry{Kind: changelog.KindProjectDeleted, ProjectID: idRef(id)}
	err := s.mutate(ctx, "delete_project", entry, func(tx *Tx) error {
		idx, removed, ok := tx.RemoveProject(id)
		if !ok {
			return nil
		}
		s.undo.Capture(Deletion{Kind: DeletedProject, Index: idx, Project: removed})
		deleted = true
		entry.Summary = fmt.Sprintf("deleted project %q", removed.Name)
		return nil
	})
	return deleted, err
}

// DeleteTemplate removes a template and holds it for undo.
func (s *Service) DeleteTemplate(ctx context.Context, id ID) (bool, error) {
	var deleted bool
	entry := &changelog.Entry{Kind: changelog.KindTemplateDeleted, TemplateID: idRef(id)}
	err := s.mutate(ctx, "delete_template", entry, func(tx *Tx) error {
		idx, removed, ok := tx.RemoveTemplate(id)
		if !ok {
			return nil
		}
		s.undo.Capture(Deletion{Kind: DeletedTemplate, Index: idx, Template: removed})
		deleted = true
		entry.Summary = fmt.Sprintf("deleted template %q", removed.Name)
		return nil
	})
	return deleted, err
}

// AddActivity appends a pending activity dated today in the reference year.
func (s *Service) AddActivity(ctx context.Context, projectID ID) (*Activity, error) {
	now := s.now()
	a := Activity{
		ID:     s.newID(),
		Date:   time.Date(s.refYear, now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).Format(DateLayout),
		Status: ActivityPending,
		Type:   TypeActivity,
	}
	entry := &changelog.Entry{Kind: changelog.KindActivityAdded, ProjectID: idRef(projectID), TargetID: idRef(a.ID)}
	err := s.mutate(ctx, "add_activity", entry, func(tx *Tx) error {
		p, err := tx.EditProject(projectID)
		if err != nil {
			return err
		}
		p.Activities = append(p.Activities, a)
		entry.Summary = fmt.Sprintf("added activity to %q", p.Name)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// AddTemplateActivity appends a milestone placeholder to a template.
func (s *Service) AddTemplateActivity(ctx context.Context, templateID ID) (*Activity, error) {
	a := Activity{
		ID:     s.newID(),
		Date:   fmt.Sprintf("%04d-01-01", s.refYear),
		Name:   defaultMilestoneName,
		Status: ActivityPending,
		Type:   TypeActivity,
	}
	entry := &changelog.Entry{Kind: changelog.KindActivityAdded, TemplateID: idRef(templateID), TargetID: idRef(a.ID)}
	err := s.mutate(ctx, "add_template_activity", entry, func(tx *Tx) error {
		t, err := tx.EditTemplate(templateID)
		if err != nil {
			return err
		}
		t.Activities = append(t.Activities, a)
		entry.Summary = fmt.Sprintf("added activity to template %q", t.Name)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// ActivityPatch updates activity fields. Nil fields are left unchanged.
// Blank values are accepted.
type ActivityPatch struct {
	Date   *string
	Name   *string
	Status *ActivityStatus
	Owner  *string
	Type   *ActivityType
	Note   *string
}

func (patch ActivityPatch) validate() error {
	if patch.Status != nil && !patch.Status.Valid() {
		return fmt.Errorf("status %q: %w", *patch.Status, ErrInvalidInput)
	}
	if patch.Type != nil && *patch.Type != TypeActivity && *patch.Type != TypeDeadline {
		return fmt.Errorf("type %q: %w", *patch.Type, ErrInvalidInput)
	}
	return nil
}

func (patch ActivityPatch) apply(a *Activity) {
	if patch.Date != nil {
		a.Date = strings.TrimSpace(*patch.Date)
	}
	if patch.Name != nil {
		a.Name = *patch.Name
	}
	if patch.Status != nil {
		a.Status = *patch.Status
	}
	if patch.Owner != nil {
		a.Owner = *patch.Owner
	}
	if patch.Type != nil {
		a.Type = *patch.Type
	}
	if patch.Note != nil {
		a.Note = *patch.Note
	}
}

// UpdateActivity patches one activity of a project.
func (s *Service) UpdateActivity(ctx context.Context, projectID, activityID ID, patch ActivityPatch) (*Activity, error) {
	if err := patch.validate(); err != nil {
		return nil, err
	}
	var updated Activity
	entry := &changelog.Entry{Kind: changelog.KindActivityUpdated, ProjectID: idRef(projectID), TargetID: idRef(activityID)}
	err := s.mutate(ctx, "update_activity", entry, func(tx *Tx) error {
		p, err := tx.EditProject(projectID)
		if err != nil {
			return err
		}
		idx := p.ActivityIndex(activityID)
		if idx < 0 {
			return ErrActivityNotFound
		}
		patch.apply(&p.Activities[idx])
		updated = p.Activities[idx]
		entry.Summary = fmt.Sprintf("updated activity %q", updated.Name)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// UpdateTemplateActivity patches one activity of a template.
func (s *Service) UpdateTemplateActivity(ctx context.Context, templateID, activityID ID, patch ActivityPatch) (*Activity, error) {
	if err := patch.validate(); err != nil {
		return nil, err
	}
	var updated Activity
	entry := &changelog.Entry{Kind: changelog.KindActivityUpdated, TemplateID: idRef(templateID), TargetID: idRef(activityID)}
	err := s.mutate(ctx, "update_template_activity", entry, func(tx *Tx) error {
		t, err := tx.EditTemplate(templateID)
		if err != nil {
			return err
		}
		idx := t.ActivityIndex(activityID)
		if idx < 0 {
			return ErrActivityNotFound
		}
		patch.apply(&t.Activities[idx])
		updated = t.Activities[idx]
		entry.Summary = fmt.Sprintf("updated template activity %q", updated.Name)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteActivity removes the activity at index and holds it for undo. An
// index outside the list is a no-op reporting false.
func (s *Service) DeleteActivity(ctx context.Context, projectID ID, index int) (bool, error) {
	var deleted bool
	entry := &changelog.Entry{Kind: changelog.KindActivityDeleted, ProjectID: idRef(projectID)}
	err := s.mutate(ctx, "delete_activity", entry, func(tx *Tx) error {
		idx := tx.ProjectIndex(projectID)
		if idx < 0 {
			return ErrProjectNotFound
		}
		if index < 0 || index >= len(tx.Projects()[idx].Activities) {
			return nil
		}
		p, err := tx.EditProject(projectID)
		if err != nil {
			return err
		}
		removed := p.Activities[index]
		p.Activities = removeAt(p.Activities, index)
		s.undo.Capture(Deletion{Kind: DeletedActivity, Index: index, ParentID: projectID, Activity: removed})
		deleted = true
		entry.TargetID = idRef(removed.ID)
		entry.Summary = fmt.Sprintf("deleted activity %q", removed.Name)
		return nil
	})
	return deleted, err
}

// DeleteTemplateActivity removes the template activity at index. Template
// activity removal is not held for undo.
func (s *Service) DeleteTemplateActivity(ctx context.Context, templateID ID, index int) (bool, error) {
	var deleted bool
	entry := &changelog.Entry{Kind: changelog.KindActivityDeleted, TemplateID: idRef(templateID)}
	err := s.mutate(ctx, "delete_template_activity", entry, func(tx *Tx) error {
		idx := tx.TemplateIndex(templateID)
		if idx < 0 {
			return ErrTemplateNotFound
		}
		if index < 0 || index >= len(tx.Templates()[idx].Activities) {
			return nil
		}
		t, err := tx.EditTemplate(templateID)
		if err != nil {
			return err
		}
		entry.TargetID = idRef(t.Activities[index].ID)
		t.Activities = removeAt(t.Activities, index)
		deleted = true
		entry.Summary = fmt.Sprintf("removed activity from template %q", t.Name)
		return nil
	})
	return deleted, err
}

// MoveActivity splices the activity at from out and back in at to in one
// step. The moved activity keeps its id and fields.
func (s *Service) MoveActivity(ctx context.Context, projectID ID, from, to int) error {
	entry := &changelog.Entry{Kind: changelog.KindActivityMoved, ProjectID: idRef(projectID)}
	return s.mutate(ctx, "move_activity", entry, func(tx *Tx) error {
		idx := tx.ProjectIndex(projectID)
		if idx < 0 {
			return ErrProjectNotFound
		}
		n := len(tx.Projects()[idx].Activities)
		if from < 0 || from >= n || to < 0 || to >= n {
			return ErrIndexOutOfRange
		}
		if from == to {
			return nil
		}
		p, err := tx.EditProject(projectID)
		if err != nil {
			return err
		}
		p.Activities = moveItem(p.Activities, from, to)
		entry.TargetID = idRef(p.Activities[to].ID)
		entry.Summary = fmt.Sprintf("moved activity from %d to %d", from, to)
		return nil
	})
}

// DragActivity moves the activity identified by id to position to. Drag
// gestures address the item by id so that a stream of position updates never
// acts on a stale index.
func (s *Service) DragActivity(ctx context.Context, projectID, activityID ID, to int) error {
	entry := &changelog.Entry{Kind: changelog.KindActivityMoved, ProjectID: idRef(projectID), TargetID: idRef(activityID)}
	return s.mutate(ctx, "drag_activity", entry, func(tx *Tx) error {
		idx := tx.ProjectIndex(projectID)
		if idx < 0 {
			return ErrProjectNotFound
		}
		from := tx.Projects()[idx].ActivityIndex(activityID)
		if from < 0 {
			return ErrActivityNotFound
		}
		to = clampIndex(to, len(tx.Projects()[idx].Activities)-1)
		if from == to {
			return nil
		}
		p, err := tx.EditProject(projectID)
		if err != nil {
			return err
		}
		p.Activities = moveItem(p.Activities, from, to)
		entry.Summary = fmt.Sprintf("dragged activity to %d", to)
		return nil
	})
}

func moveItem[T any](list []T, from, to int) []T {
	item := list[from]
	list = removeAt(list, from)
	return insertAt(list, to, item)
}

// DropOnBucket sets an activity's status from the kanban column it was
// dropped on.
func (s *Service) DropOnBucket(ctx context.Context, projectID, activityID ID, bucket Bucket) (ActivityStatus, error) {
	if _, err := ParseBucket(string(bucket)); err != nil {
		return "", err
	}
	var status ActivityStatus
	entry := &changelog.Entry{Kind: changelog.KindActivityDropped, ProjectID: idRef(projectID), TargetID: idRef(activityID)}
	err := s.mutate(ctx, "kanban_drop", entry, func(tx *Tx) error {
		p, err := tx.EditProject(projectID)
		if err != nil {
			return err
		}
		idx := p.ActivityIndex(activityID)
		if idx < 0 {
			return ErrActivityNotFound
		}
		a := &p.Activities[idx]
		a.Status = DropStatus(bucket, a.Status)
		status = a.Status
		entry.Summary = fmt.Sprintf("dropped %q on %s", a.Name, bucket)
		return nil
	})
	if err != nil {
		return "", err
	}
	return status, nil
}

// SortActivities stably orders a project's activities by date.
func (s *Service) SortActivities(ctx context.Context, projectID ID) error {
	entry := &changelog.Entry{Kind: changelog.KindActivitiesSorted, ProjectID: idRef(projectID)}
	return s.mutate(ctx, "sort_activities", entry, func(tx *Tx) error {
		p, err := tx.EditProject(projectID)
		if err != nil {
			return err
		}
		SortByDate(p.Activities)
		entry.Summary = fmt.Sprintf("sorted activities of %q", p.Name)
		return nil
	})
}

// SortByDate orders activities ascending by date, keeping the prior relative
// order of activities on the same date.
func SortByDate(activities []Activity) {
	slices.SortStableFunc(activities, func(a, b Activity) int {
		return strings.Compare(a.Date, b.Date)
	})
}

// AddContact appends a blank contact.
func (s *Service) AddContact(ctx context.Context, projectID ID) (int, error) {
	var index int
	entry := &changelog.Entry{Kind: changelog.KindContactChanged, ProjectID: idRef(projectID), Summary: "added contact"}
	err := s.mutate(ctx, "add_contact", entry, func(tx *Tx) error {
		p, err := tx.EditProject(projectID)
		if err != nil {
			return err
		}
		p.Contacts = append(p.Contacts, Contact{})
		index = len(p.Contacts) - 1
		return nil
	})
	return index, err
}

// ContactPatch updates a contact. Nil fields are left unchanged.
type ContactPatch struct {
	Name *string
	Info *string
}

// UpdateContact patches the contact at index.
func (s *Service) UpdateContact(ctx context.Context, projectID ID, index int, patch ContactPatch) (*Contact, error) {
	var updated Contact
	entry := &changelog.Entry{Kind: changelog.KindContactChanged, ProjectID: idRef(projectID), Summary: "updated contact"}
	err := s.mutate(ctx, "update_contact", entry, func(tx *Tx) error {
		p, err := tx.EditProject(projectID)
		if err != nil {
			return err
		}
		if index < 0 || index >= len(p.Contacts) {
			return ErrIndexOutOfRange
		}
		c := &p.Contacts[index]
		if patch.Name != nil {
			c.Name = *patch.Name
		}
		if patch.Info != nil {
			c.Info = *patch.Info
		}
		updated = *c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// RemoveContact deletes the contact at index. Out of range is a no-op.
func (s *Service) RemoveContact(ctx context.Context, projectID ID, index int) (bool, error) {
	var removed bool
	entry := &changelog.Entry{Kind: changelog.KindContactChanged, ProjectID: idRef(projectID), Summary: "removed contact"}
	err := s.mutate(ctx, "remove_contact", entry, func(tx *Tx) error {
		idx := tx.ProjectIndex(projectID)
		if idx < 0 {
			return ErrProjectNotFound
		}
		if index < 0 || index >= len(tx.Projects()[idx].Contacts) {
			return nil
		}
		p, err := tx.EditProject(projectID)
		if err != nil {
			return err
		}
		p.Contacts = removeAt(p.Contacts, index)
		removed = true
		return nil
	})
	return removed, err
}

// AddRisk appends a medium risk with blank text.
func (s *Service) AddRisk(ctx context.Context, projectID ID) (int, error) {
	var index int
	entry := &changelog.Entry{Kind: changelog.KindRiskChanged, ProjectID: idRef(projectID), Summary: "added risk"}
	err := s.mutate(ctx, "add_risk", entry, func(tx *Tx) error {
		p, err := tx.EditProject(projectID)
		if err != nil {
			return err
		}
		p.Risks = append(p.Risks, Risk{Level: RiskMed})
		index = len(p.Risks) - 1
		return nil
	})
	return index, err
}

// RiskPatch updates a risk. Nil fields are left unchanged.
type RiskPatch struct {
	Level  *RiskLevel
	Desc   *string
	Action *string
}

// UpdateRisk patches the risk at index.
func (s *Service) UpdateRisk(ctx context.Context, projectID ID, index int, patch RiskPatch) (*Risk, error) {
	if patch.Level != nil && patch.Level.Weight() == 0 {
		return nil, fmt.Errorf("risk level %q: %w", *patch.Level, ErrInvalidInput)
	}
	var updated Risk
	entry := &changelog.Entry{Kind: changelog.KindRiskChanged, ProjectID: idRef(projectID), Summary: "updated risk"}
	err := s.mutate(ctx, "update_risk", entry, func(tx *Tx) error {
		p, err := tx.EditProject(projectID)
		if err != nil {
			return err
		}
		if index < 0 || index >= len(p.Risks) {
			return ErrIndexOutOfRange
		}
		r := &p.Risks[index]
		if patch.Level != nil {
			r.Level = *patch.Level
		}
		if patch.Desc != nil {
			r.Desc = *patch.Desc
		}
		if patch.Action != nil {
			r.Action = *patch.Action
		}
		updated = *r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// RemoveRisk deletes the risk at index. Out of range is a no-op.
func (s *Service) RemoveRisk(ctx context.Context, projectID ID, index int) (bool, error) {
	var removed bool
	entry := &changelog.Entry{Kind: changelog.KindRiskChanged, ProjectID: idRef(projectID), Summary: "removed risk"}
	err := s.mutate(ctx, "remove_risk", entry, func(tx *Tx) error {
		idx := tx.ProjectIndex(projectID)
		if idx < 0 {
			return ErrProjectNotFound
		}
		if index < 0 || index >= len(tx.Projects()[idx].Risks) {
			return nil
		}
		p, err := tx.EditProject(projectID)
		if err != nil {
			return err
		}
		p.Risks = removeAt(p.Risks, index)
		removed = true
		return nil
	})
	return removed, err
}

// CanUndo reports whether a deletion is held.
func (s *Service) CanUndo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.undo.Pending()
}

// Undo re-inserts the held deletion at its original position. It reports
// false without error when nothing is held or the owning collection is gone;
// either way the buffer ends up empty.
func (s *Service) Undo(ctx context.Context) (Deletion, bool, error) {
	var (
		restored Deletion
		applied  bool
	)
	entry := &changelog.Entry{Kind: changelog.KindUndoApplied}
	err := s.mutate(ctx, "undo", entry, func(tx *Tx) error {
		d, ok := s.undo.Take()
		if !ok {
			return nil
		}
		if !restore(tx, d) {
			s.logger.Debug("undo target gone", "kind", d.Kind, "id", d.TargetID())
			return errUndoRejected
		}
		restored = d
		applied = true
		entry.TargetID = idRef(d.TargetID())
		switch d.Kind {
		case DeletedProject:
			entry.ProjectID = idRef(d.Project.ID)
		case DeletedTemplate:
			entry.TemplateID = idRef(d.Template.ID)
		case DeletedActivity:
			entry.ProjectID = idRef(d.ParentID)
		}
		entry.Summary = fmt.Sprintf("restored %s %s", d.Kind, d.TargetID())
		return nil
	})
	observability.RecordUndo(applied)
	if errors.Is(err, errUndoRejected) {
		return Deletion{}, false, nil
	}
	if err != nil {
		return Deletion{}, false, err
	}
	return restored, applied, nil
}

// Import replaces the store wholesale. A nil templates slice keeps the
// current templates. On any error the store is left untouched. The undo
// buffer is cleared since its captured positions refer to the old state.
func (s *Service) Import(ctx context.Context, projects []Project, templates []Template) error {
	projects = slices.Clone(projects)
	for i := range projects {
		projects[i] = normalizeProject(projects[i])
	}
	if templates != nil {
		templates = slices.Clone(templates)
		for i := range templates {
			templates[i] = normalizeTemplate(templates[i])
		}
	}
	entry := &changelog.Entry{Kind: changelog.KindStoreImported}
	return s.mutate(ctx, "import", entry, func(tx *Tx) error {
		if err := tx.ReplaceAll(projects, templates); err != nil {
			return err
		}
		s.undo = UndoBuffer{}
		entry.Summary = fmt.Sprintf("imported %d projects", len(projects))
		return nil
	})
}

// Flush saves any dirty collection through the repository.
func (s *Service) Flush(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flush(ctx)
}

func (s *Service) flush(ctx context.Context) error {
	dirty := s.store.Dirty()
	if dirty == 0 {
		return nil
	}
	if s.repo == nil {
		s.store.MarkClean(dirty)
		return nil
	}
	snap := s.store.Snapshot()
	if dirty.Has(CollectionProjects) {
		err := s.repo.SaveProjects(ctx, snap.Projects)
		observability.RecordSave("projects", err)
		if err != nil {
			return fmt.Errorf("saving projects: %w", err)
		}
		s.store.MarkClean(CollectionProjects)
		observability.SetProjectCount(len(snap.Projects))
	}
	if dirty.Has(CollectionTemplates) {
		err := s.repo.SaveTemplates(ctx, snap.Templates)
		observability.RecordSave("templates", err)
		if err != nil {
			return fmt.Errorf("saving templates: %w", err)
		}
		s.store.MarkClean(CollectionTemplates)
	}
	return nil
}

// mutate runs one mutation as a single step: apply to the store, persist,
// then record the change. Persistence and changelog failures are logged; the
// store keeps the change and stays dirty until the next successful flush.
func (s *Service) mutate(ctx context.Context, op string, entry *changelog.Entry, fn func(tx *Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	change, err := s.store.Update(fn)
	observability.RecordMutation(op, err)
	if err != nil {
		return err
	}
	if change.Collections == 0 {
		return nil
	}
	if err := s.flush(ctx); err != nil {
		s.logger.Error("persist after mutation failed", "op", op, "error", err)
	}
	if s.changes != nil && entry != nil {
		entry.Version = change.Version
		if err := s.changes.Record(ctx, entry); err != nil {
			s.logger.Warn("record change failed", "op", op, "error", err)
		}
	}
	return nil
}

func normalizeProject(p Project) Project {
	if p.Contacts == nil {
		p.Contacts = []Contact{}
	}
	if p.Risks == nil {
		p.Risks = []Risk{}
	}
	if p.Activities == nil {
		p.Activities = []Activity{}
	}
	return p
}

func normalizeTemplate(t Template) Template {
	if t.Contacts == nil {
		t.Contacts = []Contact{}
	}
	if t.Risks == nil {
		t.Risks = []Risk{}
	}
	if t.Activities == nil {
		t.Activities = []Activity{}
	}
	return t
}

func idRef(id ID) *string {
	s := string(id)
	return &s
}

func optionalRef(id ID) *string {
	if id == "" {
		return nil
	}
	return idRef(id)
}
