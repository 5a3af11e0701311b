package dto

import "github.com/convohub/convohub-api/internal/models"

// CreateConversationRequest opens a new conversation.
type CreateConversationRequest struct {
	Title             string `json:"title" binding:"required,max=200"`
	ModelChoice       string `json:"model_choice" binding:"omitempty,oneof=gpt-4.1 gpt-4.1-nano gemini-2.0-flash-exp"`
	ModelInstructions string `json:"model_instructions" binding:"omitempty,max=4000"`
}

// UpdateConversationRequest mutates title, model or instructions.
type UpdateConversationRequest struct {
	Title             *string `json:"title" binding:"omitempty,max=200"`
	ModelChoice       *string `json:"model_choice" binding:"omitempty,oneof=gpt-4.1 gpt-4.1-nano gemini-2.0-flash-exp"`
	ModelInstructions *string `json:"model_instructions" binding:"omitempty,max=4000"`
}

// ConversationResponse is the public view of a conversation.
type ConversationResponse struct {
	ID                string `json:"id"`
	Title             string `json:"title"`
	ModelChoice       string `json:"model_choice"`
	ModelInstructions string `json:"model_instructions,omitempty"`
	CreatedAt         string `json:"created_at"`
	UpdatedAt         string `json:"updated_at"`
}

// NewConversationResponse maps a model onto the response shape.
func NewConversationResponse(c *models.Conversation) ConversationResponse {
	return ConversationResponse{
		ID:                c.ID,
		Title:             c.Title,
		ModelChoice:       c.ModelChoice,
		ModelInstructions: c.ModelInstructions,
		CreatedAt:         c.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		UpdatedAt:         c.UpdatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
}

// NewConversationResponses maps a slice of models.
func NewConversationResponses(items []models.Conversation) []ConversationResponse {
	out := make([]ConversationResponse, 0, len(items))
	for i := range items {
		out = append(out, NewConversationResponse(&items[i]))
	}
	return out
}
