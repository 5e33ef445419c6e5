package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"sitebuilder-backend/internal/autosave"
	"sitebuilder-backend/internal/model"
	"sitebuilder-backend/internal/service"
)

type SessionHandler struct {
	sessionService *service.SessionService
}

func NewSessionHandler(sessionService *service.SessionService) *SessionHandler {
	return &SessionHandler{
		sessionService: sessionService,
	}
}

func (h *SessionHandler) CreateSession(c *gin.Context) {
	var req model.CreateSessionRequest
	// 请求体可以为空
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
	}

	sess := h.sessionService.CreateSession(req.Title)
	resp, err := h.sessionService.Describe(sess.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *SessionHandler) GetSession(c *gin.Context) {
	resp, err := h.sessionService.Describe(c.Param("sessionId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *SessionHandler) DeleteSession(c *gin.Context) {
	if err := h.sessionService.CloseSession(c.Param("sessionId")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Session deleted successfully"})
}

// SendMessage generates a new project from the message. A failed generation
// still returns the chat messages it produced alongside the error.
func (h *SessionHandler) SendMessage(c *gin.Context) {
	var req model.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	resp, err := h.sessionService.SendMessage(c.Request.Context(), c.Param("sessionId"), req.Message)
	if err != nil {
		status := statusFor(err)
		if resp.Messages == nil {
			respondError(c, err)
			return
		}
		c.JSON(status, gin.H{
			"error":     err.Error(),
			"messages":  resp.Messages,
			"projectId": resp.ProjectID,
		})
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *SessionHandler) UpdateFile(c *gin.Context) {
	var req model.UpdateFileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	sessionID := c.Param("sessionId")
	file, _, err := h.sessionService.UpdateFile(sessionID, req.Path, req.Content)
	if err != nil {
		respondError(c, err)
		return
	}

	state := autosave.StateUnsaved
	if st, err := h.sessionService.FileState(sessionID, file.Path); err == nil {
		state = st.State
	}
	c.JSON(http.StatusAccepted, model.UpdateFileResponse{
		Path:  file.Path,
		Type:  file.Type,
		State: string(state),
	})
}

// RetrySave re-attempts the last failed save of a file and waits for it.
func (h *SessionHandler) RetrySave(c *gin.Context) {
	var req model.RetrySaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	ticket, err := h.sessionService.RetrySave(c.Param("sessionId"), req.Path)
	if err != nil {
		respondError(c, err)
		return
	}

	result, err := ticket.Wait(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusRequestTimeout, gin.H{"error": err.Error()})
		return
	}

	body := gin.H{"path": req.Path, "state": string(result.Outcome)}
	if result.Err != nil {
		body["error"] = result.Err.Error()
	}
	status := http.StatusOK
	if result.Outcome == autosave.OutcomeError {
		status = http.StatusBadGateway
	}
	c.JSON(status, body)
}

func (h *SessionHandler) GetPreview(c *gin.Context) {
	doc, err := h.sessionService.Preview(c.Param("sessionId"))
	if err != nil {
		respondError(c, err)
		return
	}
	writeHTML(c, doc)
}

func (h *SessionHandler) GetTree(c *gin.Context) {
	tree, err := h.sessionService.Tree(c.Param("sessionId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tree": tree})
}
