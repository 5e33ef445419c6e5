package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"sitebuilder-backend/internal/autosave"
	"sitebuilder-backend/internal/generation"
	"sitebuilder-backend/internal/preview"
	"sitebuilder-backend/internal/project"
	"sitebuilder-backend/internal/storage"
	"sitebuilder-backend/pkg/logger"
)

var ErrNoFiles = errors.New("project has no files")

// Generator produces a project from a request.
type Generator interface {
	GenerateProject(ctx context.Context, req generation.Request) (*generation.Project, error)
}

type GeneratedProject struct {
	*generation.Project
	ProjectID  string
	PreviewURL string
	// PersistErr is set when the project could not be stored; the files are
	// still usable.
	PersistErr error
}

// ProjectService owns persisted projects: storage, the summary index and
// on-demand previews.
type ProjectService struct {
	store    storage.Storage
	index    storage.ProjectIndex
	gen      Generator
	renderer preview.Renderer
	notifier autosave.Notifier
	baseURL  string
}

func NewProjectService(store storage.Storage, index storage.ProjectIndex, gen Generator, renderer preview.Renderer, notifier autosave.Notifier, publicBaseURL string) *ProjectService {
	if index == nil {
		index = storage.NewMemoryIndex()
	}
	return &ProjectService{
		store:    store,
		index:    index,
		gen:      gen,
		renderer: renderer,
		notifier: notifier,
		baseURL:  strings.TrimRight(publicBaseURL, "/"),
	}
}

func (s *ProjectService) PreviewURL(projectID string) string {
	return fmt.Sprintf("%s/user-projects/%s/index.html", s.baseURL, projectID)
}

// CreateProject writes every file of a project and records it in the index.
func (s *ProjectService) CreateProject(ctx context.Context, projectID, name, description string, files *project.Files) (string, error) {
	if files.Len() == 0 {
		return "", ErrNoFiles
	}
	if err := s.store.CreateProject(ctx, projectID, files); err != nil {
		return "", err
	}

	previewURL := s.PreviewURL(projectID)
	err := s.index.Upsert(ctx, storage.ProjectSummary{
		ID:          projectID,
		Name:        name,
		Description: description,
		FileCount:   files.Len(),
		PreviewURL:  previewURL,
	})
	if err != nil {
		logger.WithProject(projectID, "").Warnf("project index update failed: %v", err)
	}
	return previewURL, nil
}

// SaveFile persists one file. It is the auto-save target and does not
// broadcast; the persister does that after success.
func (s *ProjectService) SaveFile(ctx context.Context, projectID, filePath, content string) error {
	if err := s.store.WriteFile(ctx, projectID, filePath, content); err != nil {
		return err
	}
	if err := s.index.Touch(ctx, projectID); err != nil {
		logger.WithProject(projectID, filePath).Warnf("project index touch failed: %v", err)
	}
	return nil
}

// SaveAndNotify persists one file and tells preview subscribers about it.
func (s *ProjectService) SaveAndNotify(ctx context.Context, projectID, filePath, content string) error {
	if err := s.SaveFile(ctx, projectID, filePath, content); err != nil {
		return err
	}
	if s.notifier != nil {
		s.notifier.Notify(projectID, project.CleanPath(filePath))
	}
	return nil
}

func (s *ProjectService) LoadProject(ctx context.Context, projectID string) (*project.Files, error) {
	return s.store.LoadProject(ctx, projectID)
}

func (s *ProjectService) ReadFile(ctx context.Context, projectID, filePath string) ([]byte, error) {
	return s.store.ReadFile(ctx, projectID, filePath)
}

func (s *ProjectService) ListProjects(ctx context.Context) ([]storage.ProjectSummary, error) {
	return s.index.List(ctx)
}

// Render reconstructs a preview for an in-memory file map.
func (s *ProjectService) Render(files *project.Files) string {
	return s.renderer.Render(files)
}

// RenderProject reconstructs the preview of a persisted project.
func (s *ProjectService) RenderProject(ctx context.Context, projectID string) (string, error) {
	files, err := s.store.LoadProject(ctx, projectID)
	if err != nil {
		return "", err
	}
	return s.renderer.Render(files), nil
}

// GenerateProject asks the model for a project and stores it under a fresh id.
// A storage failure is reported in PersistErr, not as an error.
func (s *ProjectService) GenerateProject(ctx context.Context, req generation.Request) (*GeneratedProject, error) {
	if s.gen == nil {
		return nil, generation.ErrNoBackend
	}
	proj, err := s.gen.GenerateProject(ctx, req)
	if err != nil {
		return nil, err
	}

	out := &GeneratedProject{Project: proj, ProjectID: project.NewID()}
	previewURL, err := s.CreateProject(ctx, out.ProjectID, proj.Name, proj.Description, proj.Files)
	if err != nil {
		logger.WithProject(out.ProjectID, "").Errorf("failed to persist generated project: %v", err)
		out.PersistErr = err
		return out, nil
	}
	out.PreviewURL = previewURL
	logger.WithProject(out.ProjectID, "").Infof("generated project %q with %d files", proj.Name, proj.Files.Len())
	return out, nil
}
