package project

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// DateLayout is the calendar date format used for activity dates.
const DateLayout = "2006-01-02"

// ID identifies a project, template or activity. Older backups stored
// numeric ids, so ID also accepts a JSON number and keeps its literal text.
type ID string

// UnmarshalJSON accepts either a JSON string or a JSON number.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	*id = ID(n.String())
	return nil
}

// Status is the lifecycle state of a project. The zero value means active.
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
)

// ActivityStatus tracks progress of a single activity.
type ActivityStatus string

const (
	ActivityPending ActivityStatus = "pending"
	ActivityOnTrack ActivityStatus = "ontrack"
	ActivityRisk    ActivityStatus = "risk"
	ActivityBlocked ActivityStatus = "blocked"
	ActivityDone    ActivityStatus = "done"
)

// Valid reports whether s is a known activity status.
func (s ActivityStatus) Valid() bool {
	switch s {
	case ActivityPending, ActivityOnTrack, ActivityRisk, ActivityBlocked, ActivityDone:
		return true
	}
	return false
}

// ActivityType distinguishes plain tasks from milestones.
type ActivityType string

const (
	TypeActivity ActivityType = "activity"
	TypeDeadline ActivityType = "deadline"
)

// RiskLevel grades a registered risk.
type RiskLevel string

const (
	RiskHigh RiskLevel = "high"
	RiskMed  RiskLevel = "med"
	RiskLow  RiskLevel = "low"
)

// Weight returns the scoring weight of the level. Unknown levels weigh nothing.
func (l RiskLevel) Weight() int {
	switch l {
	case RiskHigh:
		return 3
	case RiskMed:
		return 2
	case RiskLow:
		return 1
	}
	return 0
}

// Activity is a dated milestone or task belonging to a project or template.
type Activity struct {
	ID     ID             `json:"id"`
	Date   string         `json:"date"`
	Name   string         `json:"name"`
	Status ActivityStatus `json:"status"`
	Owner  string         `json:"owner"`
	Type   ActivityType   `json:"type"`
	Note   string         `json:"note"`
}

// Contact is a stakeholder entry.
type Contact struct {
	Name string `json:"name"`
	Info string `json:"info"`
}

// Risk is a registered project risk with its mitigation.
type Risk struct {
	Level  RiskLevel `json:"level"`
	Desc   string    `json:"desc"`
	Action string    `json:"action"`
}

// Project is a tracked project with its activities, risks and contacts.
type Project struct {
	ID         ID         `json:"id"`
	Name       string     `json:"name"`
	Org        string     `json:"org"`
	Status     Status     `json:"status,omitempty"`
	Contacts   []Contact  `json:"contacts"`
	Risks      []Risk     `json:"risks"`
	Activities []Activity `json:"activities"`
}

// IsCompleted reports whether the project is archived. Projects without a
// status are active.
func (p *Project) IsCompleted() bool {
	return p.Status == StatusCompleted
}

// EffectiveStatus returns the status with the legacy empty value resolved.
func (p *Project) EffectiveStatus() Status {
	if p.Status == "" {
		return StatusActive
	}
	return p.Status
}

// ActivityIndex returns the position of the activity with the given id, or -1.
func (p *Project) ActivityIndex(id ID) int {
	for i := range p.Activities {
		if p.Activities[i].ID == id {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy sharing no slices with p.
func (p Project) Clone() Project {
	p.Contacts = cloneSlice(p.Contacts)
	p.Risks = cloneSlice(p.Risks)
	p.Activities = cloneSlice(p.Activities)
	return p
}

// Template is a reusable blueprint used to stamp out new projects.
type Template struct {
	ID         ID         `json:"id"`
	Name       string     `json:"name"`
	Org        string     `json:"org"`
	Contacts   []Contact  `json:"contacts"`
	Risks      []Risk     `json:"risks"`
	Activities []Activity `json:"activities"`
}

// ActivityIndex returns the position of the activity with the given id, or -1.
func (t *Template) ActivityIndex(id ID) int {
	for i := range t.Activities {
		if t.Activities[i].ID == id {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy sharing no slices with t.
func (t Template) Clone() Template {
	t.Contacts = cloneSlice(t.Contacts)
	t.Risks = cloneSlice(t.Risks)
	t.Activities = cloneSlice(t.Activities)
	return t
}

// cloneSlice copies a slice of value types, never returning nil so the
// JSON form is always an array.
func cloneSlice[T any](in []T) []T {
	out := make([]T, len(in))
	copy(out, in)
	return out
}

// CloneProjects deep-copies a project list.
func CloneProjects(in []Project) []Project {
	out := make([]Project, len(in))
	for i := range in {
		out[i] = in[i].Clone()
	}
	return out
}

// CloneTemplates deep-copies a template list.
func CloneTemplates(in []Template) []Template {
	out := make([]Template, len(in))
	for i := range in {
		out[i] = in[i].Clone()
	}
	return out
}
