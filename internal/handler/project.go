package handler

import (
	"errors"
	"mime"
	"net/http"
	"path"
	"strings"

	"github.com/gin-gonic/gin"

	"sitebuilder-backend/internal/generation"
	"sitebuilder-backend/internal/model"
	"sitebuilder-backend/internal/service"
	"sitebuilder-backend/internal/storage"
	"sitebuilder-backend/pkg/logger"
)

type ProjectHandler struct {
	projectService *service.ProjectService
}

func NewProjectHandler(projectService *service.ProjectService) *ProjectHandler {
	return &ProjectHandler{
		projectService: projectService,
	}
}

func (h *ProjectHandler) GenerateProject(c *gin.Context) {
	var req model.GenerateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	result, err := h.projectService.GenerateProject(c.Request.Context(), generation.Request{
		Description: req.Description,
		ProjectType: req.ProjectType,
		Framework:   req.Framework,
		Styling:     req.Styling,
		Features:    req.Features,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	resp := model.GenerateProjectResponse{
		Name:         result.Name,
		Description:  result.Description,
		Files:        result.Files,
		FilesCreated: result.Files.Len(),
	}
	// 持久化失败时不返回项目 ID，文件仍然可用
	if result.PersistErr == nil {
		resp.ProjectID = result.ProjectID
		resp.PreviewURL = result.PreviewURL
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ProjectHandler) SaveFile(c *gin.Context) {
	var req model.SaveFileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	if err := h.projectService.SaveAndNotify(c.Request.Context(), req.ProjectID, req.FilePath, req.Content); err != nil {
		logger.WithProject(req.ProjectID, req.FilePath).Warnf("save file failed: %v", err)
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.SaveFileResponse{
		Success: true,
		Message: "File saved successfully",
	})
}

func (h *ProjectHandler) CreateProject(c *gin.Context) {
	var req model.CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	previewURL, err := h.projectService.CreateProject(c.Request.Context(), req.ProjectID, req.Name, req.Description, req.Files)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.CreateProjectResponse{
		Success:    true,
		ProjectID:  req.ProjectID,
		PreviewURL: previewURL,
	})
}

func (h *ProjectHandler) ListProjects(c *gin.Context) {
	projects, err := h.projectService.ListProjects(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	if projects == nil {
		projects = []storage.ProjectSummary{}
	}
	c.JSON(http.StatusOK, gin.H{"projects": projects})
}

func (h *ProjectHandler) GetProjectFiles(c *gin.Context) {
	projectID := c.Param("projectId")
	files, err := h.projectService.LoadProject(c.Request.Context(), projectID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"projectId": projectID,
		"files":     files,
	})
}

func (h *ProjectHandler) GetProjectPreview(c *gin.Context) {
	doc, err := h.projectService.RenderProject(c.Request.Context(), c.Param("projectId"))
	if err != nil {
		respondError(c, err)
		return
	}
	writeHTML(c, doc)
}

// Preview renders a file map posted by the client without storing anything.
func (h *ProjectHandler) Preview(c *gin.Context) {
	var req model.PreviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	writeHTML(c, h.projectService.Render(req.Files))
}

// ServeProjectFile serves a persisted project as a static site. Paths without
// an extension that do not exist fall back to index.html.
func (h *ProjectHandler) ServeProjectFile(c *gin.Context) {
	projectID := c.Param("projectId")
	filePath := c.Param("filepath")
	if filePath == "" || strings.HasSuffix(filePath, "/") {
		filePath += "index.html"
	}

	ctx := c.Request.Context()
	data, err := h.projectService.ReadFile(ctx, projectID, filePath)
	if errors.Is(err, storage.ErrFileNotFound) && path.Ext(filePath) == "" {
		filePath = "index.html"
		data, err = h.projectService.ReadFile(ctx, projectID, filePath)
	}
	if err != nil {
		respondError(c, err)
		return
	}

	contentType := mime.TypeByExtension(path.Ext(filePath))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	noCache(c)
	c.Data(http.StatusOK, contentType, data)
}

func writeHTML(c *gin.Context, doc string) {
	noCache(c)
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(doc))
}

func noCache(c *gin.Context) {
	c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
	c.Header("Pragma", "no-cache")
	c.Header("Expires", "0")
}
