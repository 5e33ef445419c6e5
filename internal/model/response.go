package model

import (
	"time"

	"sitebuilder-backend/internal/project"
)

type GenerateProjectResponse struct {
	Name         string         `json:"name"`
	Description  string         `json:"description"`
	Files        *project.Files `json:"files"`
	ProjectID    string         `json:"projectId,omitempty"`
	PreviewURL   string         `json:"previewUrl,omitempty"`
	FilesCreated int            `json:"filesCreated"`
}

type SaveFileResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

type CreateProjectResponse struct {
	Success    bool   `json:"success"`
	ProjectID  string `json:"projectId,omitempty"`
	PreviewURL string `json:"previewUrl,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Hint  string `json:"hint,omitempty"`
}

// 聊天消息类型
const (
	MessageUser      = "user"
	MessageAssistant = "assistant"
	MessageSystem    = "system"
	MessageError     = "error"
)

type ChatMessage struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

type FileState struct {
	Path  string `json:"path"`
	State string `json:"state"`
	Error string `json:"error,omitempty"`
}

type SessionResponse struct {
	SessionID   string         `json:"sessionId"`
	Title       string         `json:"title"`
	ProjectID   string         `json:"projectId"`
	ProjectName string         `json:"projectName,omitempty"`
	PreviewURL  string         `json:"previewUrl,omitempty"`
	Files       *project.Files `json:"files"`
	FileStates  []FileState    `json:"fileStates"`
	Messages    []ChatMessage  `json:"messages"`
	Generating  bool           `json:"generating"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

type SendMessageResponse struct {
	Messages   []ChatMessage  `json:"messages"`
	ProjectID  string         `json:"projectId"`
	Files      *project.Files `json:"files,omitempty"`
	PreviewURL string         `json:"previewUrl,omitempty"`
}

type UpdateFileResponse struct {
	Path  string `json:"path"`
	Type  string `json:"type"`
	State string `json:"state"`
}
