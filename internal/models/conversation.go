package models

import "time"

// Conversation is a user-owned chat thread. ModelChoice selects the AI
// provider route; ModelInstructions become the system prompt.
type Conversation struct {
	ID                string     `db:"id" json:"id"`
	UserID            string     `db:"user_id" json:"user_id"`
	Title             string     `db:"title" json:"title"`
	ModelChoice       string     `db:"model_choice" json:"model_choice"`
	ModelInstructions string     `db:"model_instructions" json:"model_instructions,omitempty"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at" json:"updated_at"`
	DeletedAt         *time.Time `db:"deleted_at" json:"-"`
}

// ConversationFilter narrows conversation listings.
type ConversationFilter struct {
	UserID string
	Limit  int
	Offset int
}
