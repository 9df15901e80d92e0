package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lernio/lernio-backend/internal/middleware"
	"github.com/lernio/lernio-backend/internal/response"
	"github.com/lernio/lernio-backend/internal/service"
)

// ProgressHandler handles learner progress endpoints.
type ProgressHandler struct {
	progressService *service.ProgressService
}

// NewProgressHandler creates a new ProgressHandler.
func NewProgressHandler(progressService *service.ProgressService) *ProgressHandler {
	return &ProgressHandler{progressService: progressService}
}

// Me godoc
// GET /api/v1/progress
// Returns the caller's rolling progress counters.
func (h *ProgressHandler) Me(c *gin.Context) {
	claims := middleware.GetClaims(c)
	progress, err := h.progressService.GetForUser(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{
		"progress":      progress,
		"average_score": progress.AverageScore(),
	})
}
