package backup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rpggio/plantrack/internal/domain/project"
)

// Tracker is the part of the project service backups need.
type Tracker interface {
	Snapshot() project.Snapshot
	Import(ctx context.Context, projects []project.Project, templates []project.Template) error
}

// Service exports and restores whole-store backups.
type Service struct {
	tracker Tracker
	archive Archive
	logger  *slog.Logger
	now     func() time.Time
}

// NewService creates a backup service. archive may be nil, in which case
// only in-memory export and import are available.
func NewService(tracker Tracker, archive Archive, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{tracker: tracker, archive: archive, logger: logger, now: time.Now}
}

// Document returns the encoded backup of the current state.
func (s *Service) Document() ([]byte, error) {
	snap := s.tracker.Snapshot()
	return Encode(snap.Projects, snap.Templates)
}

// Export writes the current state to the archive and returns the name used.
func (s *Service) Export(ctx context.Context) (string, error) {
	if s.archive == nil {
		return "", errors.New("no backup archive configured")
	}
	data, err := s.Document()
	if err != nil {
		return "", err
	}
	name := FileName(s.now())
	if err := s.archive.Put(ctx, name, data); err != nil {
		return "", fmt.Errorf("store backup: %w", err)
	}
	s.logger.Info("backup exported", "name", name, "bytes", len(data))
	return name, nil
}

// Import replaces the store with the content of data. Malformed input,
// including duplicate ids, leaves the store untouched and returns an error
// wrapping ErrMalformed.
func (s *Service) Import(ctx context.Context, data []byte) (Decoded, error) {
	doc, err := Decode(data)
	if err != nil {
		s.logger.Warn("backup rejected", "error", err)
		return Decoded{}, err
	}
	if err := s.tracker.Import(ctx, doc.Projects, doc.Templates); err != nil {
		if errors.Is(err, project.ErrDuplicateID) {
			err = fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		s.logger.Warn("backup rejected", "error", err)
		return Decoded{}, err
	}
	s.logger.Info("backup imported", "projects", len(doc.Projects), "templates_replaced", doc.Templates != nil)
	return doc, nil
}

// Restore imports a named backup from the archive.
func (s *Service) Restore(ctx context.Context, name string) (Decoded, error) {
	if s.archive == nil {
		return Decoded{}, errors.New("no backup archive configured")
	}
	data, err := s.archive.Get(ctx, name)
	if err != nil {
		return Decoded{}, err
	}
	return s.Import(ctx, data)
}

// List returns the names of archived backups.
func (s *Service) List(ctx context.Context) ([]string, error) {
	if s.archive == nil {
		return []string{}, nil
	}
	return s.archive.List(ctx)
}
