package changelog

// ListOptions provides filtering options for listing change entries.
type ListOptions struct {
	ProjectID  *string
	TemplateID *string
	Kind       *Kind
	Limit      int
	Offset     int
}
