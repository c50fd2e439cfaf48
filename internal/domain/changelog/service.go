package changelog

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Service records store changes. Delivery to an external feed happens
// elsewhere, from the logged rows.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

// NewService creates a new changelog service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{repo: repo, logger: logger}
}

// Record logs an entry with the current timestamp if missing.
func (s *Service) Record(ctx context.Context, entry *Entry) error {
	if entry == nil || entry.Kind == "" {
		return ErrInvalidInput
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	if err := s.repo.Log(ctx, entry); err != nil {
		return fmt.Errorf("logging change: %w", err)
	}
	s.logger.Debug("change recorded", "kind", entry.Kind, "id", entry.ID, "version", entry.Version)
	return nil
}

// Recent lists change entries with filtering, newest first.
func (s *Service) Recent(ctx context.Context, opts ListOptions) ([]Entry, error) {
	entries, err := s.repo.List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("listing changes: %w", err)
	}
	if entries == nil {
		entries = []Entry{}
	}
	return entries, nil
}
