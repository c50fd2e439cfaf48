package project

import (
	"fmt"
	"sync"
)

// Collection flags which top-level list a change touched.
type Collection uint8

const (
	CollectionProjects Collection = 1 << iota
	CollectionTemplates
)

// Has reports whether c includes all bits of other.
func (c Collection) Has(other Collection) bool {
	return c&other == other
}

// Change describes one committed store mutation.
type Change struct {
	Version     uint64
	Collections Collection
}

// Snapshot is an immutable deep copy of the store at a version.
type Snapshot struct {
	Version   uint64
	Projects  []Project
	Templates []Template
}

// Store owns the canonical project and template collections. Every mutation
// runs inside Update against a private working copy that replaces the
// canonical state only when the callback succeeds, so readers never observe
// a partially applied change.
type Store struct {
	mu        sync.RWMutex
	projects  []Project
	templates []Template
	version   uint64
	dirty     Collection
}

// NewStore builds a store from loaded collections. It fails when ids are not
// unique within their collection.
func NewStore(projects []Project, templates []Template) (*Store, error) {
	projects = CloneProjects(projects)
	templates = CloneTemplates(templates)
	if err := checkProjectIDs(projects); err != nil {
		return nil, err
	}
	if err := checkTemplateIDs(templates); err != nil {
		return nil, err
	}
	return &Store{
		projects:  projects,
		templates: templates,
	}, nil
}

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		Version:   s.version,
		Projects:  CloneProjects(s.projects),
		Templates: CloneTemplates(s.templates),
	}
}

// Project returns a copy of the project with the given id.
func (s *Store) Project(id ID) (Project, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.projects {
		if s.projects[i].ID == id {
			return s.projects[i].Clone(), true
		}
	}
	return Project{}, false
}

// Template returns a copy of the template with the given id.
func (s *Store) Template(id ID) (Template, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.templates {
		if s.templates[i].ID == id {
			return s.templates[i].Clone(), true
		}
	}
	return Template{}, false
}

// Version returns the number of committed mutations.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Dirty reports which collections changed since the last MarkClean.
func (s *Store) Dirty() Collection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dirty
}

// MarkClean clears the dirty bits in c.
func (s *Store) MarkClean(c Collection) {
	s.mu.Lock()
	s.dirty &^= c
	s.mu.Unlock()
}

// Update runs fn against a working copy of the collections. When fn returns
// nil and touched something, the copy becomes the canonical state, the
// version is bumped and the change is returned.
func (s *Store) Update(fn func(tx *Tx) error) (Change, error) {
	s.mu.Lock()
	tx := &Tx{projects: s.projects, templates: s.templates}
	if err := fn(tx); err != nil {
		s.mu.Unlock()
		return Change{}, err
	}
	if tx.touched == 0 {
		s.mu.Unlock()
		return Change{Version: s.version}, nil
	}
	s.projects = tx.projects
	s.templates = tx.templates
	s.version++
	s.dirty |= tx.touched
	change := Change{Version: s.version, Collections: tx.touched}
	s.mu.Unlock()
	return change, nil
}

// Tx exposes the low-level primitives over a working copy of the store.
// Collections are copied lazily on first write.
type Tx struct {
	projects  []Project
	templates []Template
	touched   Collection
}

// Projects returns the current project list. Callers must not modify it;
// use the mutation primitives instead.
func (tx *Tx) Projects() []Project {
	return tx.projects
}

// Templates returns the current template list for reading.
func (tx *Tx) Templates() []Template {
	return tx.templates
}

func (tx *Tx) writeProjects() {
	if !tx.touched.Has(CollectionProjects) {
		tx.projects = CloneProjects(tx.projects)
		tx.touched |= CollectionProjects
	}
}

func (tx *Tx) writeTemplates() {
	if !tx.touched.Has(CollectionTemplates) {
		tx.templates = CloneTemplates(tx.templates)
		tx.touched |= CollectionTemplates
	}
}

// ProjectIndex returns the position of the project, or -1.
func (tx *Tx) ProjectIndex(id ID) int {
	for i := range tx.projects {
		if tx.projects[i].ID == id {
			return i
		}
	}
	return -1
}

// TemplateIndex returns the position of the template, or -1.
func (tx *Tx) TemplateIndex(id ID) int {
	for i := range tx.templates {
		if tx.templates[i].ID == id {
			return i
		}
	}
	return -1
}

// EditProject returns a mutable pointer to the project in the working copy.
func (tx *Tx) EditProject(id ID) (*Project, error) {
	idx := tx.ProjectIndex(id)
	if idx < 0 {
		return nil, ErrProjectNotFound
	}
	tx.writeProjects()
	return &tx.projects[idx], nil
}

// EditTemplate returns a mutable pointer to the template in the working copy.
func (tx *Tx) EditTemplate(id ID) (*Template, error) {
	idx := tx.TemplateIndex(id)
	if idx < 0 {
		return nil, ErrTemplateNotFound
	}
	tx.writeTemplates()
	return &tx.templates[idx], nil
}

// InsertProject places p at idx, clamped to the list bounds.
func (tx *Tx) InsertProject(idx int, p Project) error {
	if tx.ProjectIndex(p.ID) >= 0 {
		return fmt.Errorf("project %s: %w", p.ID, ErrDuplicateID)
	}
	if err := checkActivityIDs(p.Activities); err != nil {
		return err
	}
	tx.writeProjects()
	tx.projects = insertAt(tx.projects, clampIndex(idx, len(tx.projects)), p.Clone())
	return nil
}

// InsertTemplate places t at idx, clamped to the list bounds.
func (tx *Tx) InsertTemplate(idx int, t Template) error {
	if tx.TemplateIndex(t.ID) >= 0 {
		return fmt.Errorf("template %s: %w", t.ID, ErrDuplicateID)
	}
	if err := checkActivityIDs(t.Activities); err != nil {
		return err
	}
	tx.writeTemplates()
	tx.templates = insertAt(tx.templates, clampIndex(idx, len(tx.templates)), t.Clone())
	return nil
}

// RemoveProject deletes the project by id. Removing an absent id is a no-op
// and reports ok=false.
func (tx *Tx) RemoveProject(id ID) (idx int, removed Project, ok bool) {
	idx = tx.ProjectIndex(id)
	if idx < 0 {
		return -1, Project{}, false
	}
	tx.writeProjects()
	removed = tx.projects[idx]
	tx.projects = removeAt(tx.projects, idx)
	return idx, removed, true
}

// RemoveTemplate deletes the template by id. Removing an absent id is a no-op.
func (tx *Tx) RemoveTemplate(id ID) (idx int, removed Template, ok bool) {
	idx = tx.TemplateIndex(id)
	if idx < 0 {
		return -1, Template{}, false
	}
	tx.writeTemplates()
	removed = tx.templates[idx]
	tx.templates = removeAt(tx.templates, idx)
	return idx, removed, true
}

// ReplaceProject swaps the project at idx. The replacement keeps id uniqueness.
func (tx *Tx) ReplaceProject(idx int, p Project) error {
	if idx < 0 || idx >= len(tx.projects) {
		return ErrIndexOutOfRange
	}
	if other := tx.ProjectIndex(p.ID); other >= 0 && other != idx {
		return fmt.Errorf("project %s: %w", p.ID, ErrDuplicateID)
	}
	if err := checkActivityIDs(p.Activities); err != nil {
		return err
	}
	tx.writeProjects()
	tx.projects[idx] = p.Clone()
	return nil
}

// ReplaceAll swaps both collections wholesale. A nil templates slice keeps
// the current templates.
func (tx *Tx) ReplaceAll(projects []Project, templates []Template) error {
	if err := checkProjectIDs(projects); err != nil {
		return err
	}
	if templates != nil {
		if err := checkTemplateIDs(templates); err != nil {
			return err
		}
	}
	tx.projects = CloneProjects(projects)
	tx.touched |= CollectionProjects
	if templates != nil {
		tx.templates = CloneTemplates(templates)
		tx.touched |= CollectionTemplates
	}
	return nil
}

func checkProjectIDs(projects []Project) error {
	seen := make(map[ID]struct{}, len(projects))
	for i := range projects {
		if _, dup := seen[projects[i].ID]; dup {
			return fmt.Errorf("project %s: %w", projects[i].ID, ErrDuplicateID)
		}
		seen[projects[i].ID] = struct{}{}
		if err := checkActivityIDs(projects[i].Activities); err != nil {
			return err
		}
	}
	return nil
}

func checkTemplateIDs(templates []Template) error {
	seen := make(map[ID]struct{}, len(templates))
	for i := range templates {
		if _, dup := seen[templates[i].ID]; dup {
			return fmt.Errorf("template %s: %w", templates[i].ID, ErrDuplicateID)
		}
		seen[templates[i].ID] = struct{}{}
		if err := checkActivityIDs(templates[i].Activities); err != nil {
			return err
		}
	}
	return nil
}

func checkActivityIDs(activities []Activity) error {
	seen := make(map[ID]struct{}, len(activities))
	for i := range activities {
		if _, dup := seen[activities[i].ID]; dup {
			return fmt.Errorf("activity %s: %w", activities[i].ID, ErrDuplicateID)
		}
		seen[activities[i].ID] = struct{}{}
	}
	return nil
}

func clampIndex(idx, n int) int {
	if idx < 0 {
		return 0
	}
	if idx > n {
		return n
	}
	return idx
}

func insertAt[T any](list []T, idx int, v T) []T {
	list = append(list, v)
	copy(list[idx+1:], list[idx:])
	list[idx] = v
	return list
}

func removeAt[T any](list []T, idx int) []T {
	return append(list[:idx], list[idx+1:]...)
}
