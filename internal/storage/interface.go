package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"sitebuilder-backend/internal/config"
	"sitebuilder-backend/internal/project"
)

// Storage persists project files under <projectId>/<path>.
type Storage interface {
	// 项目文件
	CreateProject(ctx context.Context, projectID string, files *project.Files) error
	WriteFile(ctx context.Context, projectID, filePath, content string) error
	ReadFile(ctx context.Context, projectID, filePath string) ([]byte, error)
	LoadProject(ctx context.Context, projectID string) (*project.Files, error)

	// 存储管理
	Init(ctx context.Context) error
	Close() error
}

type ProjectSummary struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	FileCount   int       `json:"fileCount"`
	PreviewURL  string    `json:"previewUrl,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// ProjectIndex keeps one summary row per persisted project.
type ProjectIndex interface {
	// Upsert stores the summary. An existing row keeps its CreatedAt.
	Upsert(ctx context.Context, summary ProjectSummary) error
	// Touch bumps UpdatedAt, creating a minimal row for unknown ids.
	Touch(ctx context.Context, projectID string) error
	Get(ctx context.Context, projectID string) (ProjectSummary, error)
	// List returns summaries, most recently updated first.
	List(ctx context.Context) ([]ProjectSummary, error)

	Init(ctx context.Context) error
	Close() error
}

func New(cfg config.StorageConfig) (Storage, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Type)) {
	case "", "disk":
		return NewDiskStorage(cfg.DataDir), nil
	case "memory":
		return NewMemoryStorage(), nil
	case "s3":
		return NewS3Storage(cfg.S3)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedType, cfg.Type)
	}
}

func NewIndex(cfg config.IndexConfig) (ProjectIndex, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Type)) {
	case "", "memory":
		return NewMemoryIndex(), nil
	case "postgres":
		return NewPostgresIndex(cfg.DSN)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedType, cfg.Type)
	}
}

func validateProjectID(projectID string) error {
	if !project.ValidID(projectID) {
		return fmt.Errorf("%w: %q", ErrInvalidProjectID, projectID)
	}
	return nil
}

// cleanFilePath validates both parts of a storage key and returns the
// normalised file path.
func cleanFilePath(projectID, filePath string) (string, error) {
	if err := validateProjectID(projectID); err != nil {
		return "", err
	}
	cleaned := project.CleanPath(filePath)
	if cleaned == "" {
		return "", fmt.Errorf("%w: %q", ErrPathOutsideRoot, filePath)
	}
	return cleaned, nil
}
