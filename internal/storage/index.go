package storage

import (
	"context"
	"sort"
	"sync"
	"time"
)

type MemoryIndex struct {
	mu   sync.RWMutex
	byID map[string]ProjectSummary
	now  func() time.Time
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{
		byID: make(map[string]ProjectSummary),
		now:  time.Now,
	}
}

func (m *MemoryIndex) Init(ctx context.Context) error {
	return nil
}

func (m *MemoryIndex) Close() error {
	return nil
}

func (m *MemoryIndex) Upsert(ctx context.Context, summary ProjectSummary) error {
	if err := validateProjectID(summary.ID); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if existing, ok := m.byID[summary.ID]; ok {
		summary.CreatedAt = existing.CreatedAt
	} else if summary.CreatedAt.IsZero() {
		summary.CreatedAt = now
	}
	summary.UpdatedAt = now
	if summary.Name == "" {
		summary.Name = summary.ID
	}
	m.byID[summary.ID] = summary
	return nil
}

func (m *MemoryIndex) Touch(ctx context.Context, projectID string) error {
	if err := validateProjectID(projectID); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	summary, ok := m.byID[projectID]
	if !ok {
		summary = ProjectSummary{ID: projectID, Name: projectID, CreatedAt: now}
	}
	summary.UpdatedAt = now
	m.byID[projectID] = summary
	return nil
}

func (m *MemoryIndex) Get(ctx context.Context, projectID string) (ProjectSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	summary, ok := m.byID[projectID]
	if !ok {
		return ProjectSummary{}, ErrProjectNotFound
	}
	return summary, nil
}

func (m *MemoryIndex) List(ctx context.Context) ([]ProjectSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]ProjectSummary, 0, len(m.byID))
	for _, summary := range m.byID {
		out = append(out, summary)
	}
	sortSummaries(out)
	return out, nil
}

func sortSummaries(s []ProjectSummary) {
	sort.Slice(s, func(i, j int) bool {
		if s[i].UpdatedAt.Equal(s[j].UpdatedAt) {
			return s[i].ID < s[j].ID
		}
		return s[i].UpdatedAt.After(s[j].UpdatedAt)
	})
}
