package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Attachment lifecycle statuses.
const (
	AttachmentStatusPending  = "PENDING"
	AttachmentStatusUploaded = "UPLOADED"
	AttachmentStatusFailed   = "FAILED"
	AttachmentStatusDeleted  = "DELETED"
)

// Attachment classification by content type.
const (
	AttachmentTypeImage    = "IMAGE"
	AttachmentTypeDocument = "DOCUMENT"
	AttachmentTypeOther    = "OTHER"
)

// Attachment activity states controlling inclusion in AI context.
const (
	AttachmentActivityActive   = "ACTIVE"
	AttachmentActivityInactive = "INACTIVE"
)

// PendingContentHash is the placeholder hash carried by rows created at
// initiate time, before any content has been received.
const PendingContentHash = "pending"

// Metadata is a free-form JSON document stored alongside the row, e.g.
// intrinsic image dimensions.
type Metadata map[string]interface{}

// Value implements driver.Valuer for jsonb columns.
func (m Metadata) Value() (driver.Value, error) {
	if len(m) == 0 {
		return nil, nil
	}
	return json.Marshal(m)
}

// Scan implements sql.Scanner for jsonb columns.
func (m *Metadata) Scan(src interface{}) error {
	if src == nil {
		*m = nil
		return nil
	}
	var data []byte
	switch v := src.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("metadata: cannot scan %T", src)
	}
	return json.Unmarshal(data, m)
}

// Attachment is a file attached to a conversation. Rows are created in
// PENDING at initiate time and move to UPLOADED once content lands in
// the storage backend. Seq is the internal numeric key; only ID, the
// public UUID, ever leaves the API.
type Attachment struct {
	Seq                 int64      `db:"seq" json:"-"`
	ID                  string     `db:"id" json:"id"`
	ConversationID      string     `db:"conversation_id" json:"conversation_id"`
	UserID              string     `db:"user_id" json:"user_id"`
	Filename            string     `db:"filename" json:"filename"`
	OriginalFilename    string     `db:"original_filename" json:"original_filename"`
	ContentType         string     `db:"content_type" json:"content_type"`
	DetectedContentType *string    `db:"detected_content_type" json:"detected_content_type,omitempty"`
	AttachmentType      string     `db:"attachment_type" json:"attachment_type"`
	SizeBytes           int64      `db:"size_bytes" json:"size_bytes"`
	ContentHash         string     `db:"content_hash" json:"-"`
	StoragePath         string     `db:"storage_path" json:"-"`
	StorageBackend      string     `db:"storage_backend" json:"-"`
	Status              string     `db:"status" json:"status"`
	Activity            string     `db:"activity" json:"activity"`
	VirusScanned        bool       `db:"virus_scanned" json:"virus_scanned"`
	ExtraMetadata       Metadata   `db:"extra_metadata" json:"extra_metadata,omitempty"`
	ErrorMessage        *string    `db:"error_message" json:"error_message,omitempty"`
	CreatedAt           time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time  `db:"updated_at" json:"updated_at"`
	DeletedAt           *time.Time `db:"deleted_at" json:"-"`
}

// IsImage reports whether the attachment classified as an image.
func (a *Attachment) IsImage() bool { return a.AttachmentType == AttachmentTypeImage }

// IsDocument reports whether the attachment classified as a document.
func (a *Attachment) IsDocument() bool { return a.AttachmentType == AttachmentTypeDocument }

// EffectiveContentType returns the sniffed type once content has been
// received; the declared type stands in until then.
func (a *Attachment) EffectiveContentType() string {
	if a.DetectedContentType != nil && *a.DetectedContentType != "" {
		return *a.DetectedContentType
	}
	return a.ContentType
}

// AttachmentFilter narrows attachment listings within a conversation.
type AttachmentFilter struct {
	ConversationID string
	Status         string
	Activity       string
	IncludeDeleted bool
	Limit          int
	Offset         int
}

// AttachmentActivityChange pairs an attachment id with its new activity
// state for batch updates.
type AttachmentActivityChange struct {
	AttachmentID string `json:"attachment_id"`
	Activity     string `json:"activity"`
}
