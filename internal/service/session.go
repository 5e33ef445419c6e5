package service

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"sitebuilder-backend/internal/autosave"
	"sitebuilder-backend/internal/model"
	"sitebuilder-backend/internal/preview"
	"sitebuilder-backend/internal/project"
)

// Session is one open editor: the project being edited, its pending saves,
// its preview and the chat log.
type Session struct {
	ID        string
	Title     string
	CreatedAt time.Time

	files     *project.FileStore
	persister *autosave.Persister
	regen     *preview.Regenerator

	// switchMu makes a project switch atomic with respect to edits: an edit
	// lands either in the old project (and is cancelled) or in the new one.
	switchMu sync.Mutex

	mu          sync.RWMutex
	updatedAt   time.Time
	projectID   string
	projectName string
	previewURL  string
	messages    []model.ChatMessage
	generating  bool
	previewDoc  string
	previewSeq  uint64
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.updatedAt = now
	s.mu.Unlock()
}

func (s *Session) ProjectID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.projectID
}

func (s *Session) UpdatedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.updatedAt
}

func (s *Session) appendMessage(kind, content string) model.ChatMessage {
	msg := model.ChatMessage{
		ID:        uuid.New().String(),
		Type:      kind,
		Content:   content,
		Timestamp: time.Now(),
	}
	s.mu.Lock()
	s.messages = append(s.messages, msg)
	s.mu.Unlock()
	return msg
}

func (s *Session) Messages() []model.ChatMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.ChatMessage, len(s.messages))
	copy(out, s.messages)
	return out
}

func (s *Session) setPreview(projectID, doc string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	// 已切换项目的旧渲染结果直接丢弃
	if projectID != s.projectID {
		return
	}
	s.previewDoc = doc
	s.previewSeq++
}

func (s *Session) schedulePreview() {
	s.regen.Schedule(s.ProjectID(), s.files.Snapshot)
}

// stopTimers cancels every pending save and preview of the session.
func (s *Session) stopTimers() (saves, previews int) {
	return s.persister.CancelAll(), s.regen.CancelAll()
}

func (s *Session) response() model.SessionResponse {
	files := s.files.Snapshot()

	s.mu.RLock()
	defer s.mu.RUnlock()

	states := s.persister.States(s.projectID)
	paths := make([]string, 0, len(states))
	for p := range states {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	fileStates := make([]model.FileState, 0, len(paths))
	for _, p := range paths {
		st := states[p]
		fileStates = append(fileStates, model.FileState{Path: p, State: string(st.State), Error: st.Error})
	}

	messages := make([]model.ChatMessage, len(s.messages))
	copy(messages, s.messages)

	return model.SessionResponse{
		SessionID:   s.ID,
		Title:       s.Title,
		ProjectID:   s.projectID,
		ProjectName: s.projectName,
		PreviewURL:  s.previewURL,
		Files:       files,
		FileStates:  fileStates,
		Messages:    messages,
		Generating:  s.generating,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.updatedAt,
	}
}
