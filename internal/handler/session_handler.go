package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/lernio/lernio-backend/internal/middleware"
	"github.com/lernio/lernio-backend/internal/model"
	"github.com/lernio/lernio-backend/internal/response"
	"github.com/lernio/lernio-backend/internal/service"
	"github.com/lernio/lernio-backend/internal/validator"
)

// SessionHandler handles assessment session endpoints.
type SessionHandler struct {
	sessionService *service.SessionService
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(sessionService *service.SessionService) *SessionHandler {
	return &SessionHandler{sessionService: sessionService}
}

// Start godoc
// POST /api/v1/sessions
// Starts a new attempt, or returns the caller's open session for the
// same assessment.
func (h *SessionHandler) Start(c *gin.Context) {
	var req model.CreateSessionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	assessmentID, err := uuid.Parse(req.AssessmentID)
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	claims := middleware.GetClaims(c)
	session, questions, err := h.sessionService.StartSession(c.Request.Context(), claims.UserID, assessmentID, req.Device)
	if err != nil {
		failFromService(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{
		"session":           session,
		"questions":         questions,
		"remaining_seconds": int(session.RemainingTime(time.Now()) / time.Second),
	})
}

// Get godoc
// GET /api/v1/sessions/:id
// Returns the session after the lazy timeout check has run.
func (h *SessionHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	claims := middleware.GetClaims(c)
	session, err := h.sessionService.GetSession(c.Request.Context(), id,
		claims.UserID, claims.Role != model.RoleLearner)
	if err != nil {
		failFromService(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"session":           session,
		"remaining_seconds": int(session.RemainingTime(time.Now()) / time.Second),
	})
}

// SubmitAnswer godoc
// POST /api/v1/sessions/:id/answers
// Scores one answer and returns it along with the next open question.
func (h *SessionHandler) SubmitAnswer(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req model.SubmitAnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	claims := middleware.GetClaims(c)
	answer, next, err := h.sessionService.SubmitAnswer(c.Request.Context(), id, claims.UserID, req)
	if err != nil {
		failFromService(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"answer":        answer,
		"next_question": next,
	})
}

// Pause godoc
// POST /api/v1/sessions/:id/pause
func (h *SessionHandler) Pause(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	claims := middleware.GetClaims(c)
	session, err := h.sessionService.PauseSession(c.Request.Context(), id, claims.UserID)
	if err != nil {
		failFromService(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"session": session})
}

// Resume godoc
// POST /api/v1/sessions/:id/resume
func (h *SessionHandler) Resume(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	claims := middleware.GetClaims(c)
	session, err := h.sessionService.ResumeSession(c.Request.Context(), id, claims.UserID)
	if err != nil {
		failFromService(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{
		"session":           session,
		"remaining_seconds": int(session.RemainingTime(time.Now()) / time.Second),
	})
}

// Complete godoc
// POST /api/v1/sessions/:id/complete
// Finalizes the attempt and returns the aggregated result.
func (h *SessionHandler) Complete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req model.CompleteSessionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	claims := middleware.GetClaims(c)
	session, err := h.sessionService.CompleteSession(c.Request.Context(), id, claims.UserID, req)
	if err != nil {
		failFromService(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{
		"session": session,
		"result":  session.Result,
	})
}

// Abandon godoc
// POST /api/v1/sessions/:id/abandon
func (h *SessionHandler) Abandon(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	claims := middleware.GetClaims(c)
	session, err := h.sessionService.AbandonSession(c.Request.Context(), id, claims.UserID)
	if err != nil {
		failFromService(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"session": session})
}

// ListForAssessment godoc
// GET /api/v1/authoring/assessments/:id/sessions
// Lists attempts against an assessment for its author.
func (h *SessionHandler) ListForAssessment(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	claims := middleware.GetClaims(c)
	page, perPage := pagination(c)
	sessions, total, err := h.sessionService.ListAssessmentSessions(c.Request.Context(), id,
		claims.UserID, claims.Role == model.RoleAdmin, page, perPage)
	if err != nil {
		failFromService(c, err)
		return
	}
	response.SuccessWithPagination(c, http.StatusOK, gin.H{"sessions": sessions},
		paginationMeta(page, perPage, total))
}

// History godoc
// GET /api/v1/sessions
// Lists the caller's attempt history.
func (h *SessionHandler) History(c *gin.Context) {
	claims := middleware.GetClaims(c)
	page, perPage := pagination(c)
	sessions, total, err := h.sessionService.ListUserSessions(c.Request.Context(), claims.UserID, page, perPage)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.SuccessWithPagination(c, http.StatusOK, gin.H{"sessions": sessions},
		paginationMeta(page, perPage, total))
}
