package model

import "sitebuilder-backend/internal/project"

type GenerateProjectRequest struct {
	Description string   `json:"description" binding:"required"`
	ProjectType string   `json:"projectType"`
	Framework   string   `json:"framework"`
	Styling     string   `json:"styling"`
	Features    []string `json:"features"`
}

type SaveFileRequest struct {
	ProjectID string `json:"projectId" binding:"required"`
	FilePath  string `json:"filePath" binding:"required"`
	Content   string `json:"content"`
}

type CreateProjectRequest struct {
	ProjectID   string         `json:"projectId" binding:"required"`
	Files       *project.Files `json:"files" binding:"required"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
}

// 无状态预览请求
type PreviewRequest struct {
	Files *project.Files `json:"files" binding:"required"`
}

type CreateSessionRequest struct {
	Title string `json:"title"`
}

type SendMessageRequest struct {
	Message string `json:"message" binding:"required"`
}

type UpdateFileRequest struct {
	Path    string `json:"path" binding:"required"`
	Content string `json:"content"`
}

type RetrySaveRequest struct {
	Path string `json:"path" binding:"required"`
}
