package dto

import "github.com/convohub/convohub-api/internal/models"

// InitiateAttachmentRequest declares an upcoming upload.
type InitiateAttachmentRequest struct {
	Filename    string `json:"filename" binding:"required" validate:"required"`
	ContentType string `json:"content_type" binding:"required" validate:"required"`
	SizeBytes   int64  `json:"size_bytes" binding:"required,gt=0" validate:"required,gt=0"`
}

// Upload methods returned by initiate.
const (
	UploadMethodAPI    = "api"
	UploadMethodDirect = "direct"
)

// AttachmentResponse is the public view of an attachment row.
type AttachmentResponse struct {
	ID                  string          `json:"id"`
	ConversationID      string          `json:"conversation_id"`
	Filename            string          `json:"filename"`
	OriginalFilename    string          `json:"original_filename"`
	ContentType         string          `json:"content_type"`
	DetectedContentType *string         `json:"detected_content_type,omitempty"`
	AttachmentType      string          `json:"attachment_type"`
	SizeBytes           int64           `json:"size_bytes"`
	Status              string          `json:"status"`
	Activity            string          `json:"activity"`
	VirusScanned        bool            `json:"virus_scanned"`
	ExtraMetadata       models.Metadata `json:"extra_metadata,omitempty"`
	ErrorMessage        *string         `json:"error_message,omitempty"`
	DownloadURL         *string         `json:"download_url,omitempty"`
	ThumbnailURL        *string         `json:"thumbnail_url,omitempty"`
	CreatedAt           string          `json:"created_at"`
}

// InitiateAttachmentResponse pairs the PENDING row with upload
// instructions. UploadURL is set only for the direct method.
type InitiateAttachmentResponse struct {
	Attachment   AttachmentResponse `json:"attachment"`
	UploadMethod string             `json:"upload_method"`
	UploadURL    *string            `json:"upload_url,omitempty"`
	ExpiresAt    *string            `json:"expires_at,omitempty"`
}

// NewAttachmentResponse maps a model onto the response shape.
func NewAttachmentResponse(a *models.Attachment) AttachmentResponse {
	return AttachmentResponse{
		ID:                  a.ID,
		ConversationID:      a.ConversationID,
		Filename:            a.Filename,
		OriginalFilename:    a.OriginalFilename,
		ContentType:         a.ContentType,
		DetectedContentType: a.DetectedContentType,
		AttachmentType:      a.AttachmentType,
		SizeBytes:           a.SizeBytes,
		Status:              a.Status,
		Activity:            a.Activity,
		VirusScanned:        a.VirusScanned,
		ExtraMetadata:       a.ExtraMetadata,
		ErrorMessage:        a.ErrorMessage,
		CreatedAt:           a.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
}

// BatchActivityRequest toggles AI-context inclusion for several
// attachments at once.
type BatchActivityRequest struct {
	Changes []ActivityChange `json:"changes" binding:"required,min=1,dive" validate:"required,min=1,dive"`
}

// ActivityChange is one activity toggle within a batch.
type ActivityChange struct {
	AttachmentID string `json:"attachment_id" binding:"required" validate:"required"`
	Activity     string `json:"activity" binding:"required,oneof=ACTIVE INACTIVE" validate:"required,oneof=ACTIVE INACTIVE"`
}

// BatchActivityResponse reports how many rows each batch touched.
type BatchActivityResponse struct {
	Requested int `json:"requested"`
	Updated   int `json:"updated"`
}

// DownloadURLResponse carries a presigned or tokenised download link.
type DownloadURLResponse struct {
	URL string `json:"url"`
}
