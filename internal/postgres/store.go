// Package postgres keeps the collection blobs and the change log in Postgres
// for deployments that share one database across server instances.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rpggio/plantrack/internal/domain/changelog"
	"github.com/rpggio/plantrack/internal/repository"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
)

const (
	defaultDriver = "pgx"
	defaultDSN    = "postgres://localhost/plantrack?sslmode=disable"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// Store implements repository.KVStore and repository.ChangeRepository.
type Store struct {
	db *sql.DB
}

var (
	_ repository.KVStore          = (*Store)(nil)
	_ repository.ChangeRepository = (*Store)(nil)
)

// Open connects to dsn (falling back to a local default) and ensures the
// tables exist.
func Open(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	openMu.Lock()
	db, err := sqlOpen(defaultDriver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := ensureTables(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close releases the connection pool.
func (s *Store) Close() error { return s.db.Close() }

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

func ensureTables(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS state (
			bucket TEXT PRIMARY KEY,
			payload BYTEA NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS change_log (
			id BIGSERIAL PRIMARY KEY,
			kind TEXT NOT NULL,
			project_id TEXT,
			template_id TEXT,
			target_id TEXT,
			summary TEXT NOT NULL,
			version BIGINT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_change_project ON change_log(project_id)`,
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure tables: %w", err)
		}
	}
	return nil
}

// Get returns the payload stored under key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM state WHERE bucket = $1`, key).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", key, err)
	}
	return payload, nil
}

// Put upserts the payload under key.
func (s *Store) Put(ctx context.Context, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO state (bucket, payload, updated_at) VALUES ($1, $2, now())
		ON CONFLICT (bucket) DO UPDATE SET payload = EXCLUDED.payload, updated_at = EXCLUDED.updated_at`, key, value)
	if err != nil {
		return fmt.Errorf("upsert %s: %w", key, err)
	}
	return nil
}

// Delete removes key if present.
func (s *Store) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM state WHERE bucket = $1`, key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// Log appends a change entry.
func (s *Store) Log(ctx context.Context, entry *changelog.Entry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	err := s.db.QueryRowContext(ctx, `INSERT INTO change_log
		(kind, project_id, template_id, target_id, summary, version, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		string(entry.Kind), entry.ProjectID, entry.TemplateID, entry.TargetID,
		entry.Summary, int64(entry.Version), entry.CreatedAt.UTC(),
	).Scan(&entry.ID)
	if err != nil {
		return fmt.Errorf("insert change: %w", err)
	}
	return nil
}

// List returns change entries newest first.
func (s *Store) List(ctx context.Context, opts changelog.ListOptions) ([]changelog.Entry, error) {
	query := `SELECT id, kind, project_id, template_id, target_id, summary, version, created_at FROM change_log`
	var (
		conditions []string
		args       []any
	)
	add := func(column string, v any) {
		args = append(args, v)
		conditions = append(conditions, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if opts.ProjectID != nil {
		add("project_id", *opts.ProjectID)
	}
	if opts.TemplateID != nil {
		add("template_id", *opts.TemplateID)
	}
	if opts.Kind != nil {
		add("kind", string(*opts.Kind))
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY id DESC"
	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if opts.Offset > 0 {
		args = append(args, opts.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select changes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanEntries(rows)
}

// Since returns up to limit entries with an id above afterID, oldest first.
func (s *Store) Since(ctx context.Context, afterID int64, limit int) ([]changelog.Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, kind, project_id, template_id, target_id, summary, version, created_at
FROM change_log WHERE id > $1 ORDER BY id ASC LIMIT $2`, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("select changes since %d: %w", afterID, err)
	}
	defer func() { _ = rows.Close() }()
	return scanEntries(rows)
}

func scanEntries(rows *sql.Rows) ([]changelog.Entry, error) {
	entries := []changelog.Entry{}
	for rows.Next() {
		var (
			e                         changelog.Entry
			kind                      string
			project, template, target sql.NullString
			version                   int64
		)
		if err := rows.Scan(&e.ID, &kind, &project, &template, &target, &e.Summary, &version, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan change: %w", err)
		}
		e.Kind = changelog.Kind(kind)
		e.ProjectID = nullable(project)
		e.TemplateID = nullable(template)
		e.TargetID = nullable(target)
		e.Version = uint64(version)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate changes: %w", err)
	}
	return entries, nil
}

func nullable(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	return &s.String
}

// OverrideSQLOpen swaps the sql.Open implementation (testing helper) and
// returns a restore function.
func OverrideSQLOpen(fn func(driverName, dataSourceName string) (*sql.DB, error)) func() {
	openMu.Lock()
	defer openMu.Unlock()
	prev := sqlOpen
	sqlOpen = fn
	return func() {
		openMu.Lock()
		defer openMu.Unlock()
		sqlOpen = prev
	}
}
