package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/noc-portal-api/internal/service"
	"github.com/noah-isme/noc-portal-api/pkg/response"
)

// DirectoryHandler exposes the reviewer directory.
type DirectoryHandler struct {
	directory *service.DirectoryService
}

// NewDirectoryHandler constructs a DirectoryHandler.
func NewDirectoryHandler(directory *service.DirectoryService) *DirectoryHandler {
	return &DirectoryHandler{directory: directory}
}

// ListFaculty godoc
// @Summary List active faculty reviewers
// @Tags Directory
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /faculty [get]
func (h *DirectoryHandler) ListFaculty(c *gin.Context) {
	faculty, err := h.directory.ListFaculty(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, faculty, nil)
}
