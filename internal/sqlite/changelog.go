package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rpggio/plantrack/internal/domain/changelog"
)

// ChangeRepository implements repository.ChangeRepository for SQLite
type ChangeRepository struct {
	db *DB
}

// NewChangeRepository creates a new ChangeRepository
func NewChangeRepository(db *DB) *ChangeRepository {
	return &ChangeRepository{db: db}
}

// Log inserts a new change entry
func (r *ChangeRepository) Log(ctx context.Context, entry *changelog.Entry) error {
	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	query := `
		INSERT INTO change_log (
			kind, project_id, template_id, target_id,
			summary, version, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		entry.Kind,
		entry.ProjectID,
		entry.TemplateID,
		entry.TargetID,
		entry.Summary,
		int64(entry.Version),
		createdAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to log change: %w", err)
	}

	id, err := result.LastInsertId()
	if err == nil {
		entry.ID = id
	}
	entry.CreatedAt = createdAt

	return nil
}

// List returns change entries matching the given filters, newest first
func (r *ChangeRepository) List(ctx context.Context, opts changelog.ListOptions) ([]changelog.Entry, error) {
	query := `
		SELECT
			id, kind, project_id, template_id, target_id,
			summary, version, created_at
		FROM change_log
	`

	args := []any{}
	conditions := []string{}

	if opts.ProjectID != nil {
		conditions = append(conditions, "project_id = ?")
		args = append(args, *opts.ProjectID)
	}
	if opts.TemplateID != nil {
		conditions = append(conditions, "template_id = ?")
		args = append(args, *opts.TemplateID)
	}
	if opts.Kind != nil {
		conditions = append(conditions, "kind = ?")
		args = append(args, *opts.Kind)
	}

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	query += " ORDER BY id DESC"

	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
		if opts.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, opts.Offset)
		}
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list changes: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

// Since returns up to limit entries with an id above afterID, oldest first.
func (r *ChangeRepository) Since(ctx context.Context, afterID int64, limit int) ([]changelog.Entry, error) {
	query := `
		SELECT
			id, kind, project_id, template_id, target_id,
			summary, version, created_at
		FROM change_log
		WHERE id > ?
		ORDER BY id ASC
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, query, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list changes since %d: %w", afterID, err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

func scanEntries(rows *sql.Rows) ([]changelog.Entry, error) {
	entries := []changelog.Entry{}
	for rows.Next() {
		var entry changelog.Entry
		var projectID, templateID, targetID sql.NullString
		var version int64
		if err := rows.Scan(
			&entry.ID,
			&entry.Kind,
			&projectID,
			&templateID,
			&targetID,
			&entry.Summary,
			&version,
			&entry.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan change entry: %w", err)
		}
		entry.ProjectID = nullString(projectID)
		entry.TemplateID = nullString(templateID)
		entry.TargetID = nullString(targetID)
		entry.Version = uint64(version)
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating change rows: %w", err)
	}

	return entries, nil
}

func nullString(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	return &s.String
}
