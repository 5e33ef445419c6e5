package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"sitebuilder-backend/internal/autosave"
	"sitebuilder-backend/internal/config"
	"sitebuilder-backend/internal/generation"
	"sitebuilder-backend/internal/model"
	"sitebuilder-backend/internal/preview"
	"sitebuilder-backend/internal/project"
	"sitebuilder-backend/pkg/logger"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionBusy     = errors.New("a generation is already running for this session")
)

type SessionOptions struct {
	SaveDelay       time.Duration
	SaveTimeout     time.Duration
	PreviewDelay    time.Duration
	TTL             time.Duration
	CleanupInterval time.Duration
}

func SessionOptionsFromConfig(cfg *config.Config) SessionOptions {
	return SessionOptions{
		SaveDelay:       cfg.AutoSave.SaveDelay,
		SaveTimeout:     cfg.AutoSave.SaveTimeout,
		PreviewDelay:    cfg.AutoSave.PreviewDelay,
		TTL:             cfg.Session.TTL,
		CleanupInterval: cfg.Session.CleanupInterval,
	}
}

// SessionService is the registry of open editor sessions.
type SessionService struct {
	projects *ProjectService
	renderer preview.Renderer
	notifier autosave.Notifier
	opts     SessionOptions
	now      func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session

	stopOnce sync.Once
	stopChan chan struct{}
}

func NewSessionService(projects *ProjectService, renderer preview.Renderer, notifier autosave.Notifier, opts SessionOptions) *SessionService {
	if opts.TTL <= 0 {
		opts.TTL = 2 * time.Hour
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = 10 * time.Minute
	}
	return &SessionService{
		projects: projects,
		renderer: renderer,
		notifier: notifier,
		opts:     opts,
		now:      time.Now,
		sessions: make(map[string]*Session),
		stopChan: make(chan struct{}),
	}
}

// Start runs the idle-session cleanup loop until Stop is called.
func (s *SessionService) Start() {
	go s.cleanupExpiredSessions()
}

// Stop ends the cleanup loop and closes every session.
func (s *SessionService) Stop() {
	s.stopOnce.Do(func() { close(s.stopChan) })

	s.mu.Lock()
	sessions := s.sessions
	s.sessions = make(map[string]*Session)
	s.mu.Unlock()

	for _, sess := range sessions {
		sess.stopTimers()
	}
}

func (s *SessionService) CreateSession(title string) *Session {
	now := s.now()
	if title == "" {
		title = "New project " + now.Format("2006-01-02 15:04")
	}

	sess := &Session{
		ID:        uuid.New().String(),
		Title:     title,
		CreatedAt: now,
		updatedAt: now,
		projectID: project.NewID(),
		files:     project.NewFileStore(),
	}
	sess.persister = autosave.NewPersister(s.projects, s.notifier, autosave.Options{
		Delay:       s.opts.SaveDelay,
		SaveTimeout: s.opts.SaveTimeout,
	})
	sess.regen = preview.NewRegenerator(s.renderer, s.opts.PreviewDelay, sess.setPreview)

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()

	logger.Infof("Session %s created for project %s", sess.ID, sess.projectID)
	return sess
}

func (s *SessionService) GetSession(sessionID string) (*Session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	sess.touch(s.now())
	return sess, nil
}

func (s *SessionService) Describe(sessionID string) (model.SessionResponse, error) {
	sess, err := s.GetSession(sessionID)
	if err != nil {
		return model.SessionResponse{}, err
	}
	return sess.response(), nil
}

// CloseSession drops the session; pending saves and previews are cancelled.
func (s *SessionService) CloseSession(sessionID string) error {
	s.mu.Lock()
	sess, ok := s.sessions[sessionID]
	delete(s.sessions, sessionID)
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}

	saves, previews := sess.stopTimers()
	logger.Infof("Session %s closed, cancelled %d saves and %d previews", sessionID, saves, previews)
	return nil
}

// SendMessage treats the message as a project description and replaces the
// session's project with the generated one. On failure the files are left
// untouched and an error message is appended to the chat log.
func (s *SessionService) SendMessage(ctx context.Context, sessionID, text string) (model.SendMessageResponse, error) {
	sess, err := s.GetSession(sessionID)
	if err != nil {
		return model.SendMessageResponse{}, err
	}

	sess.mu.Lock()
	if sess.generating {
		sess.mu.Unlock()
		return model.SendMessageResponse{}, ErrSessionBusy
	}
	sess.generating = true
	sess.mu.Unlock()
	defer func() {
		sess.mu.Lock()
		sess.generating = false
		sess.mu.Unlock()
	}()

	added := []model.ChatMessage{sess.appendMessage(model.MessageUser, text)}

	result, genErr := s.projects.GenerateProject(ctx, generation.RequestFromText(text))
	if genErr != nil {
		content := "Generation failed: " + genErr.Error()
		if hint := generation.HintFor(genErr); hint != "" {
			content += "\n" + hint
		}
		added = append(added, sess.appendMessage(model.MessageError, content))
		return model.SendMessageResponse{Messages: added, ProjectID: sess.ProjectID()}, genErr
	}

	// 切换项目前取消旧项目的所有定时器
	sess.switchMu.Lock()
	sess.stopTimers()
	sess.files.ReplaceAll(result.Files)

	sess.mu.Lock()
	sess.projectID = result.ProjectID
	sess.projectName = result.Name
	sess.previewURL = result.PreviewURL
	sess.previewDoc = ""
	sess.mu.Unlock()
	sess.schedulePreview()
	sess.switchMu.Unlock()

	summary := fmt.Sprintf("Generated %q with %d files.", result.Name, result.Files.Len())
	if result.Description != "" {
		summary += " " + result.Description
	}
	added = append(added, sess.appendMessage(model.MessageAssistant, summary))
	if result.PersistErr != nil {
		added = append(added, sess.appendMessage(model.MessageSystem,
			"The project could not be saved to the server and is only available in this session: "+result.PersistErr.Error()))
	}

	return model.SendMessageResponse{
		Messages:   added,
		ProjectID:  result.ProjectID,
		Files:      sess.files.Snapshot(),
		PreviewURL: result.PreviewURL,
	}, nil
}

// UpdateFile applies an edit locally and schedules its save and a preview
// refresh.
func (s *SessionService) UpdateFile(sessionID, filePath, content string) (project.ProjectFile, *autosave.Ticket, error) {
	sess, err := s.GetSession(sessionID)
	if err != nil {
		return project.ProjectFile{}, nil, err
	}

	sess.switchMu.Lock()
	defer sess.switchMu.Unlock()

	file, err := sess.files.Set(filePath, content)
	if err != nil {
		return project.ProjectFile{}, nil, err
	}
	ticket := sess.persister.NotifyEdit(sess.ProjectID(), file.Path, content)
	sess.schedulePreview()
	return file, ticket, nil
}

func (s *SessionService) RetrySave(sessionID, filePath string) (*autosave.Ticket, error) {
	sess, err := s.GetSession(sessionID)
	if err != nil {
		return nil, err
	}

	sess.switchMu.Lock()
	defer sess.switchMu.Unlock()
	return sess.persister.Retry(sess.ProjectID(), project.CleanPath(filePath))
}

func (s *SessionService) FileState(sessionID, filePath string) (autosave.FileStatus, error) {
	sess, err := s.GetSession(sessionID)
	if err != nil {
		return autosave.FileStatus{}, err
	}
	st, ok := sess.persister.State(sess.ProjectID(), project.CleanPath(filePath))
	if !ok {
		return autosave.FileStatus{State: autosave.StateSaved}, nil
	}
	return st, nil
}

// Preview returns the latest debounced render, rendering synchronously when
// none exists yet.
func (s *SessionService) Preview(sessionID string) (string, error) {
	sess, err := s.GetSession(sessionID)
	if err != nil {
		return "", err
	}

	sess.mu.RLock()
	doc := sess.previewDoc
	sess.mu.RUnlock()
	if doc != "" {
		return doc, nil
	}

	doc = s.renderer.Render(sess.files.Snapshot())
	sess.setPreview(sess.ProjectID(), doc)
	return doc, nil
}

func (s *SessionService) Tree(sessionID string) ([]*project.TreeNode, error) {
	sess, err := s.GetSession(sessionID)
	if err != nil {
		return nil, err
	}
	return project.BuildTree(sess.files.SortedPaths()), nil
}

func (s *SessionService) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *SessionService) cleanupExpiredSessions() {
	ticker := time.NewTicker(s.opts.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.removeExpired()
		case <-s.stopChan:
			return
		}
	}
}

func (s *SessionService) removeExpired() int {
	cutoff := s.now().Add(-s.opts.TTL)

	s.mu.Lock()
	var expired []*Session
	for id, sess := range s.sessions {
		if sess.UpdatedAt().Before(cutoff) {
			expired = append(expired, sess)
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()

	for _, sess := range expired {
		sess.stopTimers()
		logger.Infof("Cleaned up expired session: %s", sess.ID)
	}
	return len(expired)
}
