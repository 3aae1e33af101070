package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/noc-portal-api/internal/service"
	appErrors "github.com/noah-isme/noc-portal-api/pkg/errors"
	"github.com/noah-isme/noc-portal-api/pkg/response"
)

// CertificateHandler serves the rendered NOC document and its PDF artifact.
type CertificateHandler struct {
	certificates *service.CertificateService
}

// NewCertificateHandler constructs a CertificateHandler.
func NewCertificateHandler(certificates *service.CertificateService) *CertificateHandler {
	return &CertificateHandler{certificates: certificates}
}

// Text godoc
// @Summary Render the certificate document for an approved request
// @Tags Certificates
// @Produce json
// @Param id path int true "Request ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /noc-requests/{id}/certificate [get]
func (h *CertificateHandler) Text(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	id, ok := requestIDParam(c)
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "noc request not found"))
		return
	}

	document, request, err := h.certificates.Text(c.Request.Context(), claims, id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, gin.H{
		"request_id": request.ID,
		"document":   document,
	}, nil)
}

// RequestDownload godoc
// @Summary Queue PDF generation and return a signed download token
// @Tags Certificates
// @Produce json
// @Param id path int true "Request ID"
// @Success 202 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /noc-requests/{id}/certificate/download [post]
func (h *CertificateHandler) RequestDownload(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	id, ok := requestIDParam(c)
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "noc request not found"))
		return
	}

	artifact, err := h.certificates.RequestArtifact(c.Request.Context(), claims, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, artifact, nil)
}

// Download godoc
// @Summary Download a generated certificate PDF
// @Tags Certificates
// @Produce application/pdf
// @Param token query string true "Signed download token"
// @Success 200 {file} binary
// @Failure 401 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /certificates/download [get]
func (h *CertificateHandler) Download(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "download token required"))
		return
	}

	file, filename, err := h.certificates.Download(token)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close() //nolint:errcheck

	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Header("Content-Type", "application/pdf")
	c.File(file.Name())
}
