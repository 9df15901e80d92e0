package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lernio/lernio-backend/internal/middleware"
	"github.com/lernio/lernio-backend/internal/response"
	"github.com/lernio/lernio-backend/internal/service"
)

// ReviewHandler handles the human review backlog for staff.
type ReviewHandler struct {
	reviewService *service.ReviewService
}

// NewReviewHandler creates a new ReviewHandler.
func NewReviewHandler(reviewService *service.ReviewService) *ReviewHandler {
	return &ReviewHandler{reviewService: reviewService}
}

// ListPending godoc
// GET /api/v1/reviews
// Lists unresolved review tasks, oldest first.
func (h *ReviewHandler) ListPending(c *gin.Context) {
	page, perPage := pagination(c)
	tasks, total, err := h.reviewService.ListPending(c.Request.Context(), page, perPage)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.SuccessWithPagination(c, http.StatusOK, gin.H{"tasks": tasks},
		paginationMeta(page, perPage, total))
}

// Resolve godoc
// POST /api/v1/reviews/:id/resolve
func (h *ReviewHandler) Resolve(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	claims := middleware.GetClaims(c)
	if err := h.reviewService.Resolve(c.Request.Context(), id, claims.UserID); err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{})
}
