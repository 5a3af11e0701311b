package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/convohub/convohub-api/internal/dto"
	"github.com/convohub/convohub-api/internal/models"
	appErrors "github.com/convohub/convohub-api/pkg/errors"
	"github.com/convohub/convohub-api/pkg/response"
)

type conversationService interface {
	Create(ctx context.Context, req dto.CreateConversationRequest, actor *models.JWTClaims) (*models.Conversation, error)
	GetOwned(ctx context.Context, id string, actor *models.JWTClaims) (*models.Conversation, error)
	List(ctx context.Context, actor *models.JWTClaims, limit, offset int) ([]models.Conversation, error)
	Update(ctx context.Context, id string, req dto.UpdateConversationRequest, actor *models.JWTClaims) (*models.Conversation, error)
	Delete(ctx context.Context, id string, actor *models.JWTClaims) error
}

// ConversationHandler manages conversation HTTP endpoints.
type ConversationHandler struct {
	service conversationService
}

// NewConversationHandler constructs the handler.
func NewConversationHandler(service conversationService) *ConversationHandler {
	return &ConversationHandler{service: service}
}

// Create opens a new conversation.
func (h *ConversationHandler) Create(c *gin.Context) {
	var req dto.CreateConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}

	conv, err := h.service.Create(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, dto.NewConversationResponse(conv), nil)
}

// List returns the caller's conversations.
func (h *ConversationHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	items, err := h.service.List(c.Request.Context(), claimsFromContext(c), limit, offset)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.NewConversationResponses(items), nil)
}

// Get returns one conversation.
func (h *ConversationHandler) Get(c *gin.Context) {
	conv, err := h.service.GetOwned(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.NewConversationResponse(conv), nil)
}

// Update mutates title, model choice or instructions.
func (h *ConversationHandler) Update(c *gin.Context) {
	var req dto.UpdateConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}

	conv, err := h.service.Update(c.Request.Context(), c.Param("id"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.NewConversationResponse(conv), nil)
}

// Delete soft-deletes a conversation.
func (h *ConversationHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id"), claimsFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
