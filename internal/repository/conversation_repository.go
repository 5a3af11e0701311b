package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/convohub/convohub-api/internal/models"
)

const conversationColumns = `id, user_id, title, model_choice, model_instructions, created_at, updated_at, deleted_at`

// ConversationRepository handles conversation persistence.
type ConversationRepository struct {
	db *sqlx.DB
}

// NewConversationRepository constructs the repository.
func NewConversationRepository(db *sqlx.DB) *ConversationRepository {
	return &ConversationRepository{db: db}
}

// Create inserts a conversation row.
func (r *ConversationRepository) Create(ctx context.Context, c *models.Conversation) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now

	const query = `INSERT INTO conversations
	(id, user_id, title, model_choice, model_instructions, created_at, updated_at, deleted_at)
	VALUES (:id, :user_id, :title, :model_choice, :model_instructions, :created_at, :updated_at, :deleted_at)`
	if _, err := r.db.NamedExecContext(ctx, query, c); err != nil {
		return fmt.Errorf("create conversation: %w", err)
	}
	return nil
}

// GetByID retrieves one conversation row.
func (r *ConversationRepository) GetByID(ctx context.Context, id string) (*models.Conversation, error) {
	query := `SELECT ` + conversationColumns + ` FROM conversations WHERE id = $1 AND deleted_at IS NULL`
	var c models.Conversation
	if err := r.db.GetContext(ctx, &c, query, id); err != nil {
		return nil, err
	}
	return &c, nil
}

// ListByUser returns the user's conversations newest first.
func (r *ConversationRepository) ListByUser(ctx context.Context, filter models.ConversationFilter) ([]models.Conversation, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := `SELECT ` + conversationColumns + ` FROM conversations
	WHERE user_id = $1 AND deleted_at IS NULL
	ORDER BY updated_at DESC LIMIT $2 OFFSET $3`

	var records []models.Conversation
	if err := r.db.SelectContext(ctx, &records, query, filter.UserID, limit, offset); err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	return records, nil
}

// Update persists title, model choice and instructions.
func (r *ConversationRepository) Update(ctx context.Context, c *models.Conversation) error {
	c.UpdatedAt = time.Now().UTC()

	const query = `UPDATE conversations SET
	title = :title, model_choice = :model_choice, model_instructions = :model_instructions, updated_at = :updated_at
	WHERE id = :id AND deleted_at IS NULL`
	res, err := r.db.NamedExecContext(ctx, query, c)
	if err != nil {
		return fmt.Errorf("update conversation: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check conversation update rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Touch bumps updated_at so listings order by recent activity.
func (r *ConversationRepository) Touch(ctx context.Context, id string) error {
	const query = `UPDATE conversations SET updated_at = $2 WHERE id = $1 AND deleted_at IS NULL`
	if _, err := r.db.ExecContext(ctx, query, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("touch conversation: %w", err)
	}
	return nil
}

// SoftDelete marks a conversation as deleted.
func (r *ConversationRepository) SoftDelete(ctx context.Context, id string, deletedAt time.Time) error {
	const query = `UPDATE conversations SET deleted_at = $2 WHERE id = $1 AND deleted_at IS NULL`
	res, err := r.db.ExecContext(ctx, query, id, deletedAt)
	if err != nil {
		return fmt.Errorf("soft delete conversation: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check conversation delete rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
