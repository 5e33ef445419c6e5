package storage

import (
	"context"
	"sync"

	"sitebuilder-backend/internal/project"
)

type MemoryStorage struct {
	projects map[string]*project.Files
	mu       sync.RWMutex
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		projects: make(map[string]*project.Files),
	}
}

func (m *MemoryStorage) Init(ctx context.Context) error {
	return nil
}

func (m *MemoryStorage) Close() error {
	return nil
}

func (m *MemoryStorage) CreateProject(ctx context.Context, projectID string, files *project.Files) error {
	if err := validateProjectID(projectID); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.projects[projectID]
	if !ok {
		stored = project.NewFiles()
		m.projects[projectID] = stored
	}
	var err error
	files.Each(func(f project.ProjectFile) {
		if err != nil {
			return
		}
		cleaned, cerr := cleanFilePath(projectID, f.Path)
		if cerr != nil {
			err = cerr
			return
		}
		stored.Put(project.ProjectFile{Path: cleaned, Content: f.Content, Type: project.TypeForPath(cleaned)})
	})
	return err
}

func (m *MemoryStorage) WriteFile(ctx context.Context, projectID, filePath, content string) error {
	cleaned, err := cleanFilePath(projectID, filePath)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.projects[projectID]
	if !ok {
		stored = project.NewFiles()
		m.projects[projectID] = stored
	}
	stored.Put(project.ProjectFile{Path: cleaned, Content: content, Type: project.TypeForPath(cleaned)})
	return nil
}

func (m *MemoryStorage) ReadFile(ctx context.Context, projectID, filePath string) ([]byte, error) {
	cleaned, err := cleanFilePath(projectID, filePath)
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	stored, ok := m.projects[projectID]
	if !ok {
		return nil, ErrProjectNotFound
	}
	f, ok := stored.Get(cleaned)
	if !ok {
		return nil, ErrFileNotFound
	}
	return []byte(f.Content), nil
}

func (m *MemoryStorage) LoadProject(ctx context.Context, projectID string) (*project.Files, error) {
	if err := validateProjectID(projectID); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	stored, ok := m.projects[projectID]
	if !ok {
		return nil, ErrProjectNotFound
	}
	return stored.Clone(), nil
}
