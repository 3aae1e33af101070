package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/noc-portal-api/internal/models"
	"github.com/noah-isme/noc-portal-api/internal/service"
	appErrors "github.com/noah-isme/noc-portal-api/pkg/errors"
	"github.com/noah-isme/noc-portal-api/pkg/response"
)

type nocRequestService interface {
	Create(ctx context.Context, requester *models.JWTClaims, req service.CreateNocRequest) (*models.NocRequest, error)
	List(ctx context.Context, caller *models.JWTClaims, query service.ListNocQuery) ([]models.NocRequest, error)
	Get(ctx context.Context, caller *models.JWTClaims, id int64) (*models.NocRequest, error)
	SetStatus(ctx context.Context, id int64, req service.UpdateNocStatusRequest) (*models.NocRequest, error)
	Summary(ctx context.Context, caller *models.JWTClaims) (*models.NocSummary, error)
}

// NocHandler exposes the request workflow endpoints.
type NocHandler struct {
	requests nocRequestService
}

// NewNocHandler constructs a NocHandler.
func NewNocHandler(requests nocRequestService) *NocHandler {
	return &NocHandler{requests: requests}
}

// Create godoc
// @Summary Submit a NOC request
// @Tags NOC Requests
// @Accept json
// @Produce json
// @Param payload body service.CreateNocRequest true "Internship details"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /noc-requests [post]
func (h *NocHandler) Create(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.CreateNocRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	request, err := h.requests.Create(c.Request.Context(), claims, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, request)
}

// List godoc
// @Summary List NOC requests in the caller's scope
// @Tags NOC Requests
// @Produce json
// @Param status query string false "Filter by status"
// @Param q query string false "Search student, company or role"
// @Param sort query string false "Order by created_at (default) or updated_at"
// @Success 200 {object} response.Envelope
// @Router /noc-requests [get]
func (h *NocHandler) List(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	query := service.ListNocQuery{
		Status: strings.TrimSpace(c.Query("status")),
		Search: c.Query("q"),
		Sort:   c.Query("sort"),
	}

	requests, err := h.requests.List(c.Request.Context(), claims, query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, requests, nil)
}

// Get godoc
// @Summary Get one NOC request
// @Tags NOC Requests
// @Produce json
// @Param id path int true "Request ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /noc-requests/{id} [get]
func (h *NocHandler) Get(c *gin.Context) {
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

	request, err := h.requests.Get(c.Request.Context(), claims, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}

// UpdateStatus godoc
// @Summary Approve or reject a pending NOC request
// @Tags NOC Requests
// @Accept json
// @Produce json
// @Param id path int true "Request ID"
// @Param payload body service.UpdateNocStatusRequest true "Decision"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /noc-requests/{id} [patch]
func (h *NocHandler) UpdateStatus(c *gin.Context) {
	id, ok := requestIDParam(c)
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "noc request not found"))
		return
	}

	var req service.UpdateNocStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	request, err := h.requests.SetStatus(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}

// Summary godoc
// @Summary Dashboard summary for the caller's scope
// @Tags NOC Requests
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /dashboard/summary [get]
func (h *NocHandler) Summary(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	summary, err := h.requests.Summary(c.Request.Context(), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}
