package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"sitebuilder-backend/internal/autosave"
	"sitebuilder-backend/internal/generation"
	"sitebuilder-backend/internal/model"
	"sitebuilder-backend/internal/project"
	"sitebuilder-backend/internal/service"
	"sitebuilder-backend/internal/storage"
	"sitebuilder-backend/pkg/logger"
)

func statusFor(err error) int {
	switch {
	case errors.Is(err, generation.ErrInvalidRequest),
		errors.Is(err, storage.ErrPathOutsideRoot),
		errors.Is(err, storage.ErrInvalidProjectID),
		errors.Is(err, project.ErrInvalidPath),
		errors.Is(err, service.ErrNoFiles):
		return http.StatusBadRequest
	case errors.Is(err, storage.ErrProjectNotFound),
		errors.Is(err, storage.ErrFileNotFound),
		errors.Is(err, service.ErrSessionNotFound),
		errors.Is(err, autosave.ErrNothingToRetry):
		return http.StatusNotFound
	case errors.Is(err, service.ErrSessionBusy):
		return http.StatusConflict
	case errors.Is(err, generation.ErrMalformedResponse),
		errors.Is(err, generation.ErrEmptyProject):
		return http.StatusUnprocessableEntity
	case errors.Is(err, generation.ErrGenerationBackend):
		return http.StatusBadGateway
	case errors.Is(err, generation.ErrNoBackend):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.Errorf("%s %s failed: %v", c.Request.Method, c.FullPath(), err)
	}
	c.JSON(status, model.ErrorResponse{
		Error: err.Error(),
		Hint:  generation.HintFor(err),
	})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}
