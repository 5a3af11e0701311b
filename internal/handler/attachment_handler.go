package handler

import (
	"bytes"
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/convohub/convohub-api/internal/dto"
	"github.com/convohub/convohub-api/internal/models"
	appErrors "github.com/convohub/convohub-api/pkg/errors"
	"github.com/convohub/convohub-api/pkg/response"
	"github.com/convohub/convohub-api/pkg/storage"
)

type attachmentService interface {
	Initiate(ctx context.Context, conversationID string, req dto.InitiateAttachmentRequest, actor *models.JWTClaims) (*dto.InitiateAttachmentResponse, error)
	UploadContent(ctx context.Context, conversationID, attachmentID string, content io.ReadSeeker, size int64, actor *models.JWTClaims) (*models.Attachment, error)
	List(ctx context.Context, conversationID string, actor *models.JWTClaims, includeDeleted bool) ([]dto.AttachmentResponse, error)
	DownloadURL(ctx context.Context, conversationID, attachmentID, disposition string, actor *models.JWTClaims) (string, error)
	Delete(ctx context.Context, conversationID, attachmentID string, permanent bool, actor *models.JWTClaims) error
	BatchActivity(ctx context.Context, conversationID string, req dto.BatchActivityRequest, actor *models.JWTClaims) (dto.BatchActivityResponse, error)
}

// AttachmentHandler manages attachment HTTP endpoints.
type AttachmentHandler struct {
	service attachmentService
}

// NewAttachmentHandler constructs the handler.
func NewAttachmentHandler(service attachmentService) *AttachmentHandler {
	return &AttachmentHandler{service: service}
}

// Initiate declares an upcoming upload and returns the PENDING row.
func (h *AttachmentHandler) Initiate(c *gin.Context) {
	var req dto.InitiateAttachmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}

	result, err := h.service.Initiate(c.Request.Context(), c.Param("id"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, result, nil)
}

// Upload receives the multipart content for a PENDING attachment.
func (h *AttachmentHandler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "file is required"))
		return
	}

	src, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open file"))
		return
	}
	defer src.Close()

	reader, ok := src.(io.ReadSeeker)
	if !ok {
		buf, readErr := io.ReadAll(src)
		if readErr != nil {
			response.Error(c, appErrors.Wrap(readErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to buffer file"))
			return
		}
		reader = bytes.NewReader(buf)
	}

	attachment, err := h.service.UploadContent(c.Request.Context(),
		c.Param("id"), c.Param("attachmentId"), reader, fileHeader.Size, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.NewAttachmentResponse(attachment), nil)
}

// List returns the conversation's attachments newest first.
func (h *AttachmentHandler) List(c *gin.Context) {
	includeDeleted := c.Query("include_deleted") == "true"

	items, err := h.service.List(c.Request.Context(), c.Param("id"), claimsFromContext(c), includeDeleted)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// Download redirects to a time-limited URL for the stored content.
// ?disposition=inline serves the file for in-browser rendering.
func (h *AttachmentHandler) Download(c *gin.Context) {
	disposition := c.DefaultQuery("disposition", storage.DispositionAttachment)
	if disposition != storage.DispositionInline && disposition != storage.DispositionAttachment {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "disposition must be inline or attachment"))
		return
	}

	url, err := h.service.DownloadURL(c.Request.Context(), c.Param("id"), c.Param("attachmentId"), disposition, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Redirect(http.StatusTemporaryRedirect, url)
}

// Delete soft-deletes an attachment; ?permanent=true purges the row
// and its stored bytes.
func (h *AttachmentHandler) Delete(c *gin.Context) {
	permanent := c.Query("permanent") == "true"

	if err := h.service.Delete(c.Request.Context(), c.Param("id"), c.Param("attachmentId"), permanent, claimsFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// BatchActivity toggles AI-context inclusion for several attachments.
func (h *AttachmentHandler) BatchActivity(c *gin.Context) {
	var req dto.BatchActivityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}

	result, err := h.service.BatchActivity(c.Request.Context(), c.Param("id"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
