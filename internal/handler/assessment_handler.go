package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/lernio/lernio-backend/internal/middleware"
	"github.com/lernio/lernio-backend/internal/model"
	"github.com/lernio/lernio-backend/internal/response"
	"github.com/lernio/lernio-backend/internal/service"
	"github.com/lernio/lernio-backend/internal/validator"
)

// AssessmentHandler handles assessment authoring and catalog endpoints.
type AssessmentHandler struct {
	assessmentService *service.AssessmentService
	generationService *service.GenerationService
}

// NewAssessmentHandler creates a new AssessmentHandler.
func NewAssessmentHandler(assessmentService *service.AssessmentService, generationService *service.GenerationService) *AssessmentHandler {
	return &AssessmentHandler{
		assessmentService: assessmentService,
		generationService: generationService,
	}
}

// ListCatalog godoc
// GET /api/v1/assessments
// Lists published assessments for learners.
func (h *AssessmentHandler) ListCatalog(c *gin.Context) {
	page, perPage := pagination(c)
	items, total, err := h.assessmentService.ListPublished(c.Request.Context(), page, perPage)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.SuccessWithPagination(c, http.StatusOK, gin.H{"assessments": items},
		paginationMeta(page, perPage, total))
}

// Get godoc
// GET /api/v1/assessments/:id
func (h *AssessmentHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	assessment, err := h.assessmentService.Get(c.Request.Context(), id)
	if err != nil {
		failFromService(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{
		"assessment":    assessment,
		"average_score": assessment.AverageScore(),
	})
}

// GetQuestions godoc
// GET /api/v1/assessments/:id/questions
// Returns the answer-stripped question set of a published assessment.
func (h *AssessmentHandler) GetQuestions(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	questions, err := h.assessmentService.LearnerQuestions(c.Request.Context(), id)
	if err != nil {
		failFromService(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"questions": questions})
}

// ListMine godoc
// GET /api/v1/authoring/assessments
// Lists the caller's assessments (all of them for admins).
func (h *AssessmentHandler) ListMine(c *gin.Context) {
	claims := middleware.GetClaims(c)
	page, perPage := pagination(c)
	items, total, err := h.assessmentService.ListForAuthor(c.Request.Context(),
		claims.UserID, claims.Role == model.RoleAdmin, page, perPage)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.SuccessWithPagination(c, http.StatusOK, gin.H{"assessments": items},
		paginationMeta(page, perPage, total))
}

// Create godoc
// POST /api/v1/authoring/assessments
func (h *AssessmentHandler) Create(c *gin.Context) {
	var req model.CreateAssessmentRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	claims := middleware.GetClaims(c)
	assessment, err := h.assessmentService.Create(c.Request.Context(), claims.UserID, req)
	if err != nil {
		failFromService(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"assessment": assessment})
}

// Update godoc
// PUT /api/v1/authoring/assessments/:id
func (h *AssessmentHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req model.UpdateAssessmentRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	claims := middleware.GetClaims(c)
	assessment, err := h.assessmentService.Update(c.Request.Context(), id,
		claims.UserID, claims.Role == model.RoleAdmin, req)
	if err != nil {
		failFromService(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"assessment": assessment})
}

// Publish godoc
// POST /api/v1/authoring/assessments/:id/publish
func (h *AssessmentHandler) Publish(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	claims := middleware.GetClaims(c)
	assessment, err := h.assessmentService.Publish(c.Request.Context(), id,
		claims.UserID, claims.Role == model.RoleAdmin)
	if err != nil {
		failFromService(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"assessment": assessment})
}

// Archive godoc
// POST /api/v1/authoring/assessments/:id/archive
func (h *AssessmentHandler) Archive(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	claims := middleware.GetClaims(c)
	assessment, err := h.assessmentService.Archive(c.Request.Context(), id,
		claims.UserID, claims.Role == model.RoleAdmin)
	if err != nil {
		failFromService(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"assessment": assessment})
}

// ListQuestions godoc
// GET /api/v1/authoring/assessments/:id/questions
// Returns the answer-bearing question set for the owning author.
func (h *AssessmentHandler) ListQuestions(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	claims := middleware.GetClaims(c)
	questions, err := h.assessmentService.ListQuestions(c.Request.Context(), id,
		claims.UserID, claims.Role == model.RoleAdmin)
	if err != nil {
		failFromService(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"questions": questions})
}

// ReplaceQuestions godoc
// PUT /api/v1/authoring/assessments/:id/questions
// Replaces the full question set of a draft assessment.
func (h *AssessmentHandler) ReplaceQuestions(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req model.ReplaceQuestionsRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	claims := middleware.GetClaims(c)
	questions, err := h.assessmentService.ReplaceQuestions(c.Request.Context(), id,
		claims.UserID, claims.Role == model.RoleAdmin, req)
	if err != nil {
		failFromService(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"questions": questions})
}

// GenerateQuestions godoc
// POST /api/v1/authoring/assessments/:id/generate
// Generates a question set from the assessment's topic via the AI model.
func (h *AssessmentHandler) GenerateQuestions(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	count, _ := strconv.Atoi(c.DefaultQuery("count", "10"))

	claims := middleware.GetClaims(c)
	questions, err := h.generationService.GenerateQuestions(c.Request.Context(), id,
		claims.UserID, claims.Role == model.RoleAdmin, count)
	if err != nil {
		failFromService(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"questions": questions})
}
