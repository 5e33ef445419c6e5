package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"sitebuilder-backend/pkg/logger"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// PostgresIndex stores project summaries in a single table.
type PostgresIndex struct {
	db *sql.DB

	schemaOnce sync.Once
	schemaErr  error
}

func NewPostgresIndex(dsn string) (*PostgresIndex, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, fmt.Errorf("%w: postgres dsn is required", ErrStorageInit)
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageInit, err)
	}
	return &PostgresIndex{db: db}, nil
}

func (p *PostgresIndex) Init(ctx context.Context) error {
	if err := p.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageInit, err)
	}
	if err := p.ensureSchema(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageInit, err)
	}
	logger.Info("Postgres project index initialized")
	return nil
}

func (p *PostgresIndex) ensureSchema(ctx context.Context) error {
	p.schemaOnce.Do(func() {
		_, p.schemaErr = p.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS projects (
  project_id TEXT PRIMARY KEY,
  name TEXT NOT NULL DEFAULT '',
  description TEXT NOT NULL DEFAULT '',
  file_count INTEGER NOT NULL DEFAULT 0,
  preview_url TEXT NOT NULL DEFAULT '',
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_projects_updated_at ON projects (updated_at DESC);
`)
	})
	return p.schemaErr
}

func (p *PostgresIndex) Close() error {
	return p.db.Close()
}

func (p *PostgresIndex) Upsert(ctx context.Context, summary ProjectSummary) error {
	if err := validateProjectID(summary.ID); err != nil {
		return err
	}
	if err := p.ensureSchema(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrFileOperation, err)
	}
	if summary.Name == "" {
		summary.Name = summary.ID
	}
	now := time.Now().UTC()
	_, err := p.db.ExecContext(ctx, `
INSERT INTO projects (project_id, name, description, file_count, preview_url, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $6)
ON CONFLICT (project_id)
DO UPDATE SET name=EXCLUDED.name,
  description=EXCLUDED.description,
  file_count=EXCLUDED.file_count,
  preview_url=EXCLUDED.preview_url,
  updated_at=EXCLUDED.updated_at`,
		summary.ID, summary.Name, summary.Description, summary.FileCount, summary.PreviewURL, now)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrFileOperation, err)
	}
	return nil
}

func (p *PostgresIndex) Touch(ctx context.Context, projectID string) error {
	if err := validateProjectID(projectID); err != nil {
		return err
	}
	if err := p.ensureSchema(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrFileOperation, err)
	}
	now := time.Now().UTC()
	_, err := p.db.ExecContext(ctx, `
INSERT INTO projects (project_id, name, created_at, updated_at)
VALUES ($1, $1, $2, $2)
ON CONFLICT (project_id)
DO UPDATE SET updated_at=EXCLUDED.updated_at`, projectID, now)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrFileOperation, err)
	}
	return nil
}

const summaryColumns = `project_id, name, description, file_count, preview_url, created_at, updated_at`

func (p *PostgresIndex) Get(ctx context.Context, projectID string) (ProjectSummary, error) {
	if err := p.ensureSchema(ctx); err != nil {
		return ProjectSummary{}, fmt.Errorf("%w: %v", ErrFileOperation, err)
	}
	row := p.db.QueryRowContext(ctx, `SELECT `+summaryColumns+` FROM projects WHERE project_id = $1`, projectID)
	summary, err := scanSummary(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ProjectSummary{}, ErrProjectNotFound
	}
	if err != nil {
		return ProjectSummary{}, fmt.Errorf("%w: %v", ErrFileOperation, err)
	}
	return summary, nil
}

func (p *PostgresIndex) List(ctx context.Context) ([]ProjectSummary, error) {
	if err := p.ensureSchema(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFileOperation, err)
	}
	rows, err := p.db.QueryContext(ctx, `SELECT `+summaryColumns+` FROM projects ORDER BY updated_at DESC, project_id`)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFileOperation, err)
	}
	defer rows.Close()

	out := make([]ProjectSummary, 0, 16)
	for rows.Next() {
		summary, err := scanSummary(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrFileOperation, err)
		}
		out = append(out, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFileOperation, err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSummary(row rowScanner) (ProjectSummary, error) {
	var s ProjectSummary
	err := row.Scan(&s.ID, &s.Name, &s.Description, &s.FileCount, &s.PreviewURL, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}
