package project

import (
	"errors"
	"sync"
)

var ErrInvalidPath = errors.New("invalid file path")

// FileStore holds the files of the project open in one editor session.
// It does no I/O.
type FileStore struct {
	mu    sync.RWMutex
	files *Files
}

func NewFileStore() *FileStore {
	return &FileStore{files: NewFiles()}
}

func (s *FileStore) Get(p string) (ProjectFile, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.files.Get(p)
}

// Set replaces a file's content. An existing file keeps its type; a new one
// gets a type inferred from its extension.
func (s *FileStore) Set(p, content string) (ProjectFile, error) {
	p = CleanPath(p)
	if p == "" {
		return ProjectFile{}, ErrInvalidPath
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	file, ok := s.files.Get(p)
	if !ok {
		file = ProjectFile{Path: p, Type: TypeForPath(p)}
	}
	file.Content = content
	s.files.Put(file)
	return file, nil
}

// ReplaceAll swaps in a whole new project.
func (s *FileStore) ReplaceAll(files *Files) {
	next := files.Clone()
	s.mu.Lock()
	s.files = next
	s.mu.Unlock()
}

// Snapshot returns a copy that later edits do not affect.
func (s *FileStore) Snapshot() *Files {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.files.Clone()
}

func (s *FileStore) SortedPaths() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.files.SortedPaths()
}

func (s *FileStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.files.Len()
}
