package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lernio/lernio-backend/internal/middleware"
	"github.com/lernio/lernio-backend/internal/response"
	"github.com/lernio/lernio-backend/internal/service"
)

// CertificateHandler handles certificate endpoints.
type CertificateHandler struct {
	certificateService *service.CertificateService
}

// NewCertificateHandler creates a new CertificateHandler.
func NewCertificateHandler(certificateService *service.CertificateService) *CertificateHandler {
	return &CertificateHandler{certificateService: certificateService}
}

// ListMine godoc
// GET /api/v1/certificates
// Lists the caller's earned certificates.
func (h *CertificateHandler) ListMine(c *gin.Context) {
	claims := middleware.GetClaims(c)
	certs, err := h.certificateService.ListForUser(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"certificates": certs})
}

// Verify godoc
// GET /api/v1/certificates/verify/:serial
// Public lookup of a certificate by its serial.
func (h *CertificateHandler) Verify(c *gin.Context) {
	serial := c.Param("serial")
	cert, err := h.certificateService.Verify(c.Request.Context(), serial)
	if err != nil {
		failFromService(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"certificate": cert})
}
