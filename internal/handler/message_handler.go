package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/convohub/convohub-api/internal/dto"
	"github.com/convohub/convohub-api/internal/models"
	appErrors "github.com/convohub/convohub-api/pkg/errors"
	"github.com/convohub/convohub-api/pkg/export"
	"github.com/convohub/convohub-api/pkg/response"
)

type messageService interface {
	List(ctx context.Context, conversationID string, actor *models.JWTClaims, limit, offset int) ([]models.Message, error)
	Send(ctx context.Context, conversationID string, req dto.SendMessageRequest, actor *models.JWTClaims) (*dto.SendMessageResponse, error)
	Transcript(ctx context.Context, conversationID string, actor *models.JWTClaims) (*export.Transcript, error)
}

// MessageHandler manages message HTTP endpoints.
type MessageHandler struct {
	service messageService
}

// NewMessageHandler constructs the handler.
func NewMessageHandler(service messageService) *MessageHandler {
	return &MessageHandler{service: service}
}

// List returns the conversation's messages oldest first.
func (h *MessageHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "200"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	items, err := h.service.List(c.Request.Context(), c.Param("id"), claimsFromContext(c), limit, offset)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.NewMessageResponses(items), nil)
}

// Send submits a user turn and returns the assistant reply, or the
// provider error alongside the stored user turn.
func (h *MessageHandler) Send(c *gin.Context) {
	var req dto.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}

	result, err := h.service.Send(c.Request.Context(), c.Param("id"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, result, nil)
}

// Export downloads the conversation transcript as CSV or PDF.
func (h *MessageHandler) Export(c *gin.Context) {
	format := c.DefaultQuery("format", "csv")
	if format != "csv" && format != "pdf" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf"))
		return
	}

	transcript, err := h.service.Transcript(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	var (
		data        []byte
		contentType string
	)
	switch format {
	case "csv":
		data, err = export.NewCSVExporter().Render(*transcript)
		contentType = "text/csv"
	case "pdf":
		data, err = export.NewPDFExporter().Render(*transcript)
		contentType = "application/pdf"
	}
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render transcript"))
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "transcript."+format))
	c.Data(http.StatusOK, contentType, data)
}
