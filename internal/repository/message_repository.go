package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/convohub/convohub-api/internal/models"
)

// MessageRepository handles message persistence.
type MessageRepository struct {
	db *sqlx.DB
}

// NewMessageRepository constructs the repository.
func NewMessageRepository(db *sqlx.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// Create inserts a message row.
func (r *MessageRepository) Create(ctx context.Context, m *models.Message) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}

	const query = `INSERT INTO messages (id, conversation_id, role, content, created_at)
	VALUES (:id, :conversation_id, :role, :content, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, m); err != nil {
		return fmt.Errorf("create message: %w", err)
	}
	return nil
}

// ListByConversation returns messages oldest first.
func (r *MessageRepository) ListByConversation(ctx context.Context, filter models.MessageFilter) ([]models.Message, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 200
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	const query = `SELECT id, conversation_id, role, content, created_at FROM messages
	WHERE conversation_id = $1 ORDER BY created_at ASC LIMIT $2 OFFSET $3`

	var records []models.Message
	if err := r.db.SelectContext(ctx, &records, query, filter.ConversationID, limit, offset); err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return records, nil
}

// ListRecent returns the latest limit messages in chronological order.
func (r *MessageRepository) ListRecent(ctx context.Context, conversationID string, limit int) ([]models.Message, error) {
	if limit <= 0 {
		limit = 20
	}

	const query = `SELECT id, conversation_id, role, content, created_at FROM (
		SELECT id, conversation_id, role, content, created_at FROM messages
		WHERE conversation_id = $1 ORDER BY created_at DESC LIMIT $2
	) recent ORDER BY created_at ASC`

	var records []models.Message
	if err := r.db.SelectContext(ctx, &records, query, conversationID, limit); err != nil {
		return nil, fmt.Errorf("list recent messages: %w", err)
	}
	return records, nil
}
