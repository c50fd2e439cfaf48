// Package persist stores the project and template collections as JSON blobs
// in a key/value store.
package persist

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/rpggio/plantrack/internal/domain/project"
	"github.com/rpggio/plantrack/internal/repository"
)

const (
	ProjectsKey  = "pm-projects-v2"
	TemplatesKey = "pm-templates-v1"
)

// Gateway implements project.Repository over a KV store.
type Gateway struct {
	kv     repository.KVStore
	logger *slog.Logger
}

// NewGateway creates a gateway over kv.
func NewGateway(kv repository.KVStore, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Gateway{kv: kv, logger: logger}
}

// LoadProjects returns the saved projects, or an empty list when nothing was
// saved.
func (g *Gateway) LoadProjects(ctx context.Context) ([]project.Project, error) {
	var projects []project.Project
	found, err := g.load(ctx, ProjectsKey, &projects)
	if err != nil {
		return nil, err
	}
	if !found || projects == nil {
		return []project.Project{}, nil
	}
	return projects, nil
}

// LoadTemplates returns the saved templates. When nothing was saved the
// default template is seeded; a saved empty list stays empty.
func (g *Gateway) LoadTemplates(ctx context.Context) ([]project.Template, error) {
	var templates []project.Template
	found, err := g.load(ctx, TemplatesKey, &templates)
	if err != nil {
		return nil, err
	}
	if !found || templates == nil {
		g.logger.Debug("seeding default template")
		return []project.Template{project.DefaultTemplate()}, nil
	}
	return templates, nil
}

// SaveProjects stores the full project list.
func (g *Gateway) SaveProjects(ctx context.Context, projects []project.Project) error {
	if projects == nil {
		projects = []project.Project{}
	}
	return g.save(ctx, ProjectsKey, projects)
}

// SaveTemplates stores the full template list.
func (g *Gateway) SaveTemplates(ctx context.Context, templates []project.Template) error {
	if templates == nil {
		templates = []project.Template{}
	}
	return g.save(ctx, TemplatesKey, templates)
}

func (g *Gateway) load(ctx context.Context, key string, dst any) (bool, error) {
	data, err := g.kv.Get(ctx, key)
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read %s: %w", key, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func (g *Gateway) save(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := g.kv.Put(ctx, key, data); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	g.logger.Debug("saved collection", "key", key, "bytes", len(data))
	return nil
}
