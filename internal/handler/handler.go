package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/lernio/lernio-backend/internal/llm"
	"github.com/lernio/lernio-backend/internal/response"
	"github.com/lernio/lernio-backend/internal/service"
)

// failFromService maps service-layer errors onto the API error envelope.
func failFromService(c *gin.Context, err error) {
	var notEligible *service.NotEligibleError
	switch {
	case errors.As(err, &notEligible):
		response.FailWithFields(c, http.StatusForbidden, response.ErrNotEligible,
			map[string]string{"reasons": notEligible.Error()})
	case errors.Is(err, service.ErrNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	case errors.Is(err, service.ErrForbidden):
		response.Fail(c, http.StatusForbidden, response.ErrForbidden)
	case errors.Is(err, service.ErrInvalidState):
		response.Fail(c, http.StatusConflict, response.ErrInvalidState)
	case errors.Is(err, service.ErrSessionTimeout):
		response.Fail(c, http.StatusConflict, response.ErrSessionTimeout)
	case errors.Is(err, service.ErrConflict):
		response.Fail(c, http.StatusConflict, response.ErrConflict)
	case errors.Is(err, service.ErrNotPublished):
		response.Fail(c, http.StatusConflict, response.ErrAssessmentNotPublished)
	case errors.Is(err, service.ErrNoQuestions):
		response.Fail(c, http.StatusConflict, response.ErrNoQuestions)
	case errors.Is(err, service.ErrUnknownQuestion):
		response.Fail(c, http.StatusBadRequest, response.ErrUnknownQuestion)
	case errors.Is(err, llm.ErrUpstreamUnavailable):
		response.Fail(c, http.StatusServiceUnavailable, response.ErrUpstreamUnavailable)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}

// pathID parses a UUID path parameter, failing the request when invalid.
func pathID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return uuid.Nil, false
	}
	return id, true
}

// pagination reads ?page and ?per_page with guard rails.
func pagination(c *gin.Context) (page, perPage int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ = strconv.Atoi(c.DefaultQuery("per_page", "20"))
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}
	return page, perPage
}

// paginationMeta builds the response pagination block.
func paginationMeta(page, perPage int, total int64) *response.Pagination {
	totalPages := int(total) / perPage
	if int(total)%perPage != 0 {
		totalPages++
	}
	return &response.Pagination{
		Page:       page,
		PerPage:    perPage,
		TotalItems: int(total),
		TotalPages: totalPages,
	}
}
