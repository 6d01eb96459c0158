package handler

import (
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campuskit/registrar-api/internal/service"
	appErrors "github.com/campuskit/registrar-api/pkg/errors"
	"github.com/campuskit/registrar-api/pkg/response"
)

// ExportRequest selects the transcript export format.
type ExportRequest struct {
	Format string `json:"format" validate:"required,oneof=csv pdf"`
}

// TranscriptHandler exposes transcript export endpoints.
type TranscriptHandler struct {
	transcripts *service.TranscriptService
}

// NewTranscriptHandler constructs TranscriptHandler.
func NewTranscriptHandler(transcripts *service.TranscriptService) *TranscriptHandler {
	return &TranscriptHandler{transcripts: transcripts}
}

// RequestExport godoc
// @Summary Queue an asynchronous transcript export
// @Tags Transcripts
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param payload body ExportRequest true "Export payload"
// @Success 202 {object} response.Envelope
// @Router /students/{id}/transcript/export [post]
func (h *TranscriptHandler) RequestExport(c *gin.Context) {
	var req ExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload"))
		return
	}
	record, err := h.transcripts.RequestExport(c.Request.Context(), c.Param("id"), req.Format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, record, nil)
}

// ExportStatus godoc
// @Summary Get the status of a transcript export
// @Tags Transcripts
// @Produce json
// @Param exportId path string true "Export ID"
// @Success 200 {object} response.Envelope
// @Router /transcripts/exports/{exportId} [get]
func (h *TranscriptHandler) ExportStatus(c *gin.Context) {
	record, err := h.transcripts.ExportStatus(c.Request.Context(), c.Param("exportId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// Download godoc
// @Summary Download a finished export via its signed token
// @Tags Transcripts
// @Produce octet-stream
// @Param token path string true "Signed download token"
// @Success 200 {file} binary
// @Router /transcripts/downloads/{token} [get]
func (h *TranscriptHandler) Download(c *gin.Context) {
	file, name, err := h.transcripts.Download(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close()

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Header("Content-Type", "application/octet-stream")
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, file); err != nil {
		_ = c.Error(err)
	}
}
