package project

import (
	"context"

	"github.com/rpggio/plantrack/internal/domain/changelog"
)

// Repository is the persistence gateway for the two collections.
type Repository interface {
	LoadProjects(ctx context.Context) ([]Project, error)
	LoadTemplates(ctx context.Context) ([]Template, error)
	SaveProjects(ctx context.Context, projects []Project) error
	SaveTemplates(ctx context.Context, templates []Template) error
}

// ChangeRecorder receives an entry for every committed mutation.
type ChangeRecorder interface {
	Record(ctx context.Context, entry *changelog.Entry) error
}
