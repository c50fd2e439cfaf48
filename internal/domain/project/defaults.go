package project

const (
	// DefaultReferenceYear anchors the annual timeline and new activity dates.
	DefaultReferenceYear = 2026

	defaultProjectName     = "New Project"
	defaultTemplateName    = "New Template"
	defaultMilestoneName   = "New milestone"
	copySuffix             = " (Copy)"
	templatePrefix         = "[Template] "
	defaultTemplateID   ID = "tpl_2026_std"
)

// DefaultTemplate returns the template seeded into an empty template list.
func DefaultTemplate() Template {
	return Template{
		ID:   defaultTemplateID,
		Name: "2026 Software Project Standard Template",
		Org:  "Template Client",
		Contacts: []Contact{
			{Name: "PM", Info: "Project manager"},
			{Name: "PG", Info: "Developer"},
		},
		Risks: []Risk{
			{Level: RiskHigh, Desc: "Frequent requirement changes", Action: "Set up a change management process"},
			{Level: RiskMed, Desc: "Accumulating technical debt", Action: "Reserve weekly refactoring time"},
		},
		Activities: []Activity{
			{ID: "1", Date: "2026-01-10", Name: "Project kick-off", Status: ActivityPending, Owner: "PM", Type: TypeDeadline},
			{ID: "2", Date: "2026-03-31", Name: "Requirements specification sign-off", Status: ActivityPending, Owner: "SA", Type: TypeDeadline},
			{ID: "3", Date: "2026-06-30", Name: "Mid-term report", Status: ActivityPending, Owner: "PM", Type: TypeDeadline},
			{ID: "4", Date: "2026-09-15", Name: "UAT testing", Status: ActivityPending, Owner: "QA", Type: TypeActivity},
			{ID: "5", Date: "2026-12-20", Name: "Final acceptance", Status: ActivityPending, Owner: "PM", Type: TypeDeadline},
		},
	}
}
