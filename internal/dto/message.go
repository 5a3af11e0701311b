package dto

import "github.com/convohub/convohub-api/internal/models"

// SendMessageRequest submits a user turn for completion. When
// ActiveAttachmentIDs is set it overrides the stored activity toggles
// for this one request; unknown or non-uploaded ids are skipped.
type SendMessageRequest struct {
	Content             string   `json:"content" binding:"required"`
	ActiveAttachmentIDs []string `json:"active_attachment_ids,omitempty"`
}

// MessageResponse is the public view of a message row.
type MessageResponse struct {
	ID             string `json:"id"`
	ConversationID string `json:"conversation_id"`
	Role           string `json:"role"`
	Content        string `json:"content"`
	CreatedAt      string `json:"created_at"`
}

// NewMessageResponse maps a model onto the response shape.
func NewMessageResponse(m *models.Message) MessageResponse {
	return MessageResponse{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		Role:           m.Role,
		Content:        m.Content,
		CreatedAt:      m.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
}

// NewMessageResponses maps a slice of models.
func NewMessageResponses(items []models.Message) []MessageResponse {
	out := make([]MessageResponse, 0, len(items))
	for i := range items {
		out = append(out, NewMessageResponse(&items[i]))
	}
	return out
}

// SendMessageResponse pairs the persisted user turn with the assistant
// reply. AIError is set when the provider call failed but the user
// message was still stored.
type SendMessageResponse struct {
	UserMessage      MessageResponse  `json:"user_message"`
	AssistantMessage *MessageResponse `json:"assistant_message,omitempty"`
	AIError          *string          `json:"ai_error,omitempty"`
}
