package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/convohub/convohub-api/internal/models"
)

const attachmentColumns = `seq, id, conversation_id, user_id, filename, original_filename,
       content_type, detected_content_type, attachment_type, size_bytes, content_hash,
       storage_path, storage_backend, status, activity, virus_scanned, extra_metadata,
       error_message, created_at, updated_at, deleted_at`

// AttachmentRepository handles attachment metadata persistence.
type AttachmentRepository struct {
	db *sqlx.DB
}

// NewAttachmentRepository constructs the repository.
func NewAttachmentRepository(db *sqlx.DB) *AttachmentRepository {
	return &AttachmentRepository{db: db}
}

// Create inserts a new attachment row, typically in PENDING state.
func (r *AttachmentRepository) Create(ctx context.Context, a *models.Attachment) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now

	// seq is the DB-assigned internal key; it never travels through the app.
	const query = `INSERT INTO attachments
	(id, conversation_id, user_id, filename, original_filename, content_type, detected_content_type, attachment_type, size_bytes, content_hash, storage_path, storage_backend, status, activity, virus_scanned, extra_metadata, error_message, created_at, updated_at, deleted_at)
	VALUES (:id, :conversation_id, :user_id, :filename, :original_filename, :content_type, :detected_content_type, :attachment_type, :size_bytes, :content_hash, :storage_path, :storage_backend, :status, :activity, :virus_scanned, :extra_metadata, :error_message, :created_at, :updated_at, :deleted_at)`
	if _, err := r.db.NamedExecContext(ctx, query, a); err != nil {
		return fmt.Errorf("create attachment: %w", err)
	}
	return nil
}

// GetByID retrieves one attachment row.
func (r *AttachmentRepository) GetByID(ctx context.Context, id string) (*models.Attachment, error) {
	query := `SELECT ` + attachmentColumns + ` FROM attachments WHERE id = $1`
	var a models.Attachment
	if err := r.db.GetContext(ctx, &a, query, id); err != nil {
		return nil, err
	}
	return &a, nil
}

// Update persists mutable attachment fields after a state change.
func (r *AttachmentRepository) Update(ctx context.Context, a *models.Attachment) error {
	a.UpdatedAt = time.Now().UTC()

	const query = `UPDATE attachments SET
	filename = :filename, content_type = :content_type, detected_content_type = :detected_content_type,
	attachment_type = :attachment_type, size_bytes = :size_bytes, content_hash = :content_hash,
	storage_path = :storage_path, status = :status, activity = :activity,
	virus_scanned = :virus_scanned, extra_metadata = :extra_metadata, error_message = :error_message,
	updated_at = :updated_at, deleted_at = :deleted_at
	WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, a)
	if err != nil {
		return fmt.Errorf("update attachment: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check attachment update rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// List returns attachments applying filters, excluding deleted rows by default.
func (r *AttachmentRepository) List(ctx context.Context, filter models.AttachmentFilter) ([]models.Attachment, error) {
	builder := strings.Builder{}
	builder.WriteString(`SELECT ` + attachmentColumns + ` FROM attachments`)
	args := make([]interface{}, 0, 4)
	conditions := make([]string, 0, 4)

	if !filter.IncludeDeleted {
		conditions = append(conditions, "deleted_at IS NULL", fmt.Sprintf("status != '%s'", models.AttachmentStatusDeleted))
	}
	if filter.ConversationID != "" {
		args = append(args, filter.ConversationID)
		conditions = append(conditions, fmt.Sprintf("conversation_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.Activity != "" {
		args = append(args, filter.Activity)
		conditions = append(conditions, fmt.Sprintf("activity = $%d", len(args)))
	}

	if len(conditions) > 0 {
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(conditions, " AND "))
	}
	builder.WriteString(" ORDER BY created_at DESC")

	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 100
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	builder.WriteString(fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset))

	var records []models.Attachment
	if err := r.db.SelectContext(ctx, &records, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list attachments: %w", err)
	}
	return records, nil
}

// FindByHash returns the UPLOADED attachment in the conversation
// carrying the given content hash, or nil when there is none. Only
// UPLOADED rows participate in dedup; FAILED and DELETED rows never
// block a re-upload of the same content.
func (r *AttachmentRepository) FindByHash(ctx context.Context, conversationID, contentHash string) (*models.Attachment, error) {
	query := `SELECT ` + attachmentColumns + ` FROM attachments
	WHERE conversation_id = $1 AND content_hash = $2 AND status = $3 AND deleted_at IS NULL
	LIMIT 1`
	var a models.Attachment
	err := r.db.GetContext(ctx, &a, query, conversationID, contentHash, models.AttachmentStatusUploaded)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("find attachment by hash: %w", err)
	}
	return &a, nil
}

// CountActive counts non-deleted attachments in a conversation.
func (r *AttachmentRepository) CountActive(ctx context.Context, conversationID string) (int, error) {
	const query = `SELECT COUNT(*) FROM attachments
	WHERE conversation_id = $1 AND deleted_at IS NULL AND status != $2`
	var count int
	if err := r.db.GetContext(ctx, &count, query, conversationID, models.AttachmentStatusDeleted); err != nil {
		return 0, fmt.Errorf("count attachments: %w", err)
	}
	return count, nil
}

// Delete removes an attachment row outright. Used when a PENDING
// placeholder loses a dedup race; soft deletion goes through Update.
func (r *AttachmentRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM attachments WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete attachment: %w", err)
	}
	return nil
}

// UpdateActivityBatch applies activity changes to the given attachments
// within one conversation. Returns the number of rows updated.
func (r *AttachmentRepository) UpdateActivityBatch(ctx context.Context, conversationID string, changes []models.AttachmentActivityChange) (int, error) {
	if len(changes) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin activity batch: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	// Only UPLOADED rows are eligible; anything else is silently skipped.
	const query = `UPDATE attachments SET activity = $1, updated_at = $2
	WHERE id = $3 AND conversation_id = $4 AND status = $5 AND deleted_at IS NULL`

	now := time.Now().UTC()
	updated := 0
	for _, change := range changes {
		res, err := tx.ExecContext(ctx, query, change.Activity, now, change.AttachmentID, conversationID, models.AttachmentStatusUploaded)
		if err != nil {
			return 0, fmt.Errorf("update attachment activity: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("check activity update rows: %w", err)
		}
		updated += int(affected)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit activity batch: %w", err)
	}
	return updated, nil
}

// MarkScanned flips the virus-scanned flag once the async scan clears
// the object. Only UPLOADED rows are eligible.
func (r *AttachmentRepository) MarkScanned(ctx context.Context, id string) error {
	const query = `UPDATE attachments SET virus_scanned = TRUE, updated_at = $1
	WHERE id = $2 AND status = $3`
	if _, err := r.db.ExecContext(ctx, query, time.Now().UTC(), id, models.AttachmentStatusUploaded); err != nil {
		return fmt.Errorf("mark attachment scanned: %w", err)
	}
	return nil
}

// MarkStalePendingFailed flags PENDING rows older than cutoff as FAILED.
// Returns the ids of the rows it transitioned.
func (r *AttachmentRepository) MarkStalePendingFailed(ctx context.Context, cutoff time.Time) ([]string, error) {
	const query = `UPDATE attachments
	SET status = $1, error_message = 'upload never completed', updated_at = $2
	WHERE status = $3 AND created_at < $4 AND deleted_at IS NULL
	RETURNING id`

	var ids []string
	err := r.db.SelectContext(ctx, &ids, query,
		models.AttachmentStatusFailed, time.Now().UTC(), models.AttachmentStatusPending, cutoff)
	if err != nil {
		return nil, fmt.Errorf("sweep stale pending attachments: %w", err)
	}
	return ids, nil
}
