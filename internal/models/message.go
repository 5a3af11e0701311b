package models

import "time"

// Message roles.
const (
	MessageRoleUser      = "user"
	MessageRoleAssistant = "assistant"
)

// Message is a single turn in a conversation. Assistant rows store the
// provider reply; on provider failure the error text is stored instead
// so the user turn is never lost.
type Message struct {
	ID             string    `db:"id" json:"id"`
	ConversationID string    `db:"conversation_id" json:"conversation_id"`
	Role           string    `db:"role" json:"role"`
	Content        string    `db:"content" json:"content"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// MessageFilter narrows message listings within a conversation.
type MessageFilter struct {
	ConversationID string
	Limit          int
	Offset         int
}
