package mcp

import (
	"context"
	"log/slog"
	"time"

	"github.com/rpggio/plantrack/internal/auth"
	"github.com/rpggio/plantrack/internal/backup"
	"github.com/rpggio/plantrack/internal/domain/changelog"
	"github.com/rpggio/plantrack/internal/domain/project"
	"github.com/rpggio/plantrack/internal/view"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// ProjectService defines the tracker operations needed by MCP.
type ProjectService interface {
	Snapshot() project.Snapshot
	Create(ctx context.Context, req project.CreateRequest) (*project.Project, error)
	SaveAsTemplate(ctx context.Context, projectID project.ID) (*project.Template, error)
	CreateTemplate(ctx context.Context) (*project.Template, error)
	UpdateProject(ctx context.Context, id project.ID, patch project.DetailsPatch) (*project.Project, error)
	UpdateTemplate(ctx context.Context, id project.ID, patch project.DetailsPatch) (*project.Template, error)
	ToggleStatus(ctx context.Context, id project.ID) (project.Status, error)
	DeleteProject(ctx context.Context, id project.ID) (bool, error)
	DeleteTemplate(ctx context.Context, id project.ID) (bool, error)
	AddActivity(ctx context.Context, projectID project.ID) (*project.Activity, error)
	AddTemplateActivity(ctx context.Context, templateID project.ID) (*project.Activity, error)
	UpdateActivity(ctx context.Context, projectID, activityID project.ID, patch project.ActivityPatch) (*project.Activity, error)
	UpdateTemplateActivity(ctx context.Context, templateID, activityID project.ID, patch project.ActivityPatch) (*project.Activity, error)
	DeleteActivity(ctx context.Context, projectID project.ID, index int) (bool, error)
	DeleteTemplateActivity(ctx context.Context, templateID project.ID, index int) (bool, error)
	MoveActivity(ctx context.Context, projectID project.ID, from, to int) error
	DragActivity(ctx context.Context, projectID, activityID project.ID, to int) error
	DropOnBucket(ctx context.Context, projectID, activityID project.ID, bucket project.Bucket) (project.ActivityStatus, error)
	SortActivities(ctx context.Context, projectID project.ID) error
	AddContact(ctx context.Context, projectID project.ID) (int, error)
	UpdateContact(ctx context.Context, projectID project.ID, index int, patch project.ContactPatch) (*project.Contact, error)
	RemoveContact(ctx context.Context, projectID project.ID, index int) (bool, error)
	AddRisk(ctx context.Context, projectID project.ID) (int, error)
	UpdateRisk(ctx context.Context, projectID project.ID, index int, patch project.RiskPatch) (*project.Risk, error)
	RemoveRisk(ctx context.Context, projectID project.ID, index int) (bool, error)
	CanUndo() bool
	Undo(ctx context.Context) (project.Deletion, bool, error)
}

// BackupService defines backup operations needed by MCP.
type BackupService interface {
	Document() ([]byte, error)
	Export(ctx context.Context) (string, error)
	Import(ctx context.Context, data []byte) (backup.Decoded, error)
	Restore(ctx context.Context, name string) (backup.Decoded, error)
}

// ChangeService defines change log queries needed by MCP.
type ChangeService interface {
	Recent(ctx context.Context, opts changelog.ListOptions) ([]changelog.Entry, error)
}

// Services contains all domain services needed by MCP. Backups, Changes and
// Holidays are optional.
type Services struct {
	Projects ProjectService
	Backups  BackupService
	Changes  ChangeService
	Holidays view.HolidayLookup
}

// Config contains server configuration.
type Config struct {
	Services      Services
	Auth          auth.Config
	AuthEnabled   bool
	TransportMode string // "stdio" or "http"
	ReferenceYear int
	Now           func() time.Time
	Logger        *slog.Logger
}

// NewServer creates and configures an MCP server with all tools and middleware.
func NewServer(cfg Config) *sdkmcp.Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.ReferenceYear == 0 {
		cfg.ReferenceYear = project.DefaultReferenceYear
	}

	server := sdkmcp.NewServer(&sdkmcp.Implementation{
		Name:    "plantrack",
		Version: "0.1.0",
	}, &sdkmcp.ServerOptions{
		Instructions: serverInstructions,
		Logger:       cfg.Logger,
	})

	registerDocResources(server)

	// Stdio mode is local only; HTTP mode checks bearer tokens when enabled.
	if cfg.TransportMode != "stdio" && cfg.AuthEnabled {
		server.AddReceivingMiddleware(authMiddleware(cfg.Auth))
	} else {
		server.AddReceivingMiddleware(noAuthMiddleware("local"))
	}
	server.AddReceivingMiddleware(trafficMiddleware(cfg.Logger, "inbound"))
	server.AddSendingMiddleware(trafficMiddleware(cfg.Logger, "outbound"))

	registerTools(server, &tools{
		svc:     cfg.Services,
		refYear: cfg.ReferenceYear,
		now:     cfg.Now,
		logger:  cfg.Logger,
	})

	return server
}
