package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"sitebuilder-backend/internal/project"
	"sitebuilder-backend/pkg/logger"
)

// TempSuffix marks in-progress atomic writes. It is unlikely to collide with
// a real project file name.
const TempSuffix = ".~sbtmp"

// DiskStorage keeps each project in its own directory under dataDir.
type DiskStorage struct {
	dataDir string
	mu      sync.Mutex
}

func NewDiskStorage(dataDir string) *DiskStorage {
	return &DiskStorage{dataDir: dataDir}
}

func (d *DiskStorage) Init(ctx context.Context) error {
	if err := os.MkdirAll(d.dataDir, 0755); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageInit, err)
	}
	abs, err := filepath.Abs(d.dataDir)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorageInit, err)
	}
	d.dataDir = abs

	logger.Infof("Disk storage initialized at %s", d.dataDir)
	return nil
}

func (d *DiskStorage) Close() error {
	return nil
}

// Root is the directory holding all projects.
func (d *DiskStorage) Root() string {
	return d.dataDir
}

// ProjectDir returns the directory of one project.
func (d *DiskStorage) ProjectDir(projectID string) (string, error) {
	if err := validateProjectID(projectID); err != nil {
		return "", err
	}
	return filepath.Join(d.dataDir, projectID), nil
}

// ResolvePath maps a project-relative path to a filesystem path inside the
// project directory without touching the filesystem.
func (d *DiskStorage) ResolvePath(projectID, filePath string) (string, error) {
	cleaned, err := cleanFilePath(projectID, filePath)
	if err != nil {
		return "", err
	}
	root := filepath.Join(d.dataDir, projectID)
	full := filepath.Join(root, filepath.FromSlash(cleaned))

	rel, err := filepath.Rel(root, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q", ErrPathOutsideRoot, filePath)
	}
	return full, nil
}

func (d *DiskStorage) CreateProject(ctx context.Context, projectID string, files *project.Files) error {
	if err := validateProjectID(projectID); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Join(d.dataDir, projectID), 0755); err != nil {
		return fmt.Errorf("%w: %v", ErrFileOperation, err)
	}

	var firstErr error
	files.Each(func(f project.ProjectFile) {
		if firstErr != nil {
			return
		}
		if err := ctx.Err(); err != nil {
			firstErr = err
			return
		}
		firstErr = d.WriteFile(ctx, projectID, f.Path, f.Content)
	})
	if firstErr != nil {
		return firstErr
	}

	logger.WithProject(projectID, "").Infof("Project created with %d files", files.Len())
	return nil
}

func (d *DiskStorage) WriteFile(ctx context.Context, projectID, filePath, content string) error {
	full, err := d.ResolvePath(projectID, filePath)
	if err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return fmt.Errorf("%w: %v", ErrFileOperation, err)
	}
	// 先写临时文件再重命名，避免读到半截内容
	tempPath := full + TempSuffix
	if err := os.WriteFile(tempPath, []byte(content), 0644); err != nil {
		return fmt.Errorf("%w: %v", ErrFileOperation, err)
	}
	if err := os.Rename(tempPath, full); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("%w: %v", ErrFileOperation, err)
	}
	return nil
}

func (d *DiskStorage) ReadFile(ctx context.Context, projectID, filePath string) ([]byte, error) {
	full, err := d.ResolvePath(projectID, filePath)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(full)
	if err == nil {
		return data, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		if _, statErr := os.Stat(filepath.Join(d.dataDir, projectID)); errors.Is(statErr, fs.ErrNotExist) {
			return nil, ErrProjectNotFound
		}
		return nil, ErrFileNotFound
	}
	var pathErr *fs.PathError
	if errors.As(err, &pathErr) {
		if info, statErr := os.Stat(full); statErr == nil && info.IsDir() {
			return nil, ErrFileNotFound
		}
	}
	return nil, fmt.Errorf("%w: %v", ErrFileOperation, err)
}

func (d *DiskStorage) LoadProject(ctx context.Context, projectID string) (*project.Files, error) {
	root, err := d.ProjectDir(projectID)
	if err != nil {
		return nil, err
	}
	if info, err := os.Stat(root); err != nil || !info.IsDir() {
		return nil, ErrProjectNotFound
	}

	files := project.NewFiles()
	err = filepath.WalkDir(root, func(p string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() || strings.HasSuffix(entry.Name(), TempSuffix) {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		files.Put(project.ProjectFile{Path: rel, Content: string(data), Type: project.TypeForPath(rel)})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFileOperation, err)
	}
	return files, nil
}
