package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/convohub/convohub-api/internal/dto"
	"github.com/convohub/convohub-api/internal/files"
	"github.com/convohub/convohub-api/internal/models"
	appErrors "github.com/convohub/convohub-api/pkg/errors"
	"github.com/convohub/convohub-api/pkg/jobs"
	"github.com/convohub/convohub-api/pkg/storage"
)

type attachmentStore interface {
	Create(ctx context.Context, a *models.Attachment) error
	GetByID(ctx context.Context, id string) (*models.Attachment, error)
	Update(ctx context.Context, a *models.Attachment) error
	List(ctx context.Context, filter models.AttachmentFilter) ([]models.Attachment, error)
	FindByHash(ctx context.Context, conversationID, contentHash string) (*models.Attachment, error)
	CountActive(ctx context.Context, conversationID string) (int, error)
	Delete(ctx context.Context, id string) error
	UpdateActivityBatch(ctx context.Context, conversationID string, changes []models.AttachmentActivityChange) (int, error)
	MarkScanned(ctx context.Context, id string) error
	MarkStalePendingFailed(ctx context.Context, cutoff time.Time) ([]string, error)
}

type conversationResolver interface {
	GetOwned(ctx context.Context, id string, actor *models.JWTClaims) (*models.Conversation, error)
}

// AttachmentServiceConfig holds validation parameters and toggles.
// BackendName tags each row with the object store holding its bytes.
type AttachmentServiceConfig struct {
	MaxFileSize         int64
	MaxPerConversation  int
	AllowedContentTypes []string
	PresignTTL          time.Duration
	EnableVirusScan     bool
	BackendName         string
}

// AttachmentService manages the attachment lifecycle: initiate, content
// upload, listing, activity toggles and deletion.
type AttachmentService struct {
	repo          attachmentStore
	conversations conversationResolver
	backend       storage.Backend
	scanQueue     *jobs.Queue
	metrics       *MetricsService
	validator     *validator.Validate
	logger        *zap.Logger
	cfg           AttachmentServiceConfig
	allowedTypes  map[string]struct{}
	now           func() time.Time
}

// NewAttachmentService constructs the service with defaults.
func NewAttachmentService(repo attachmentStore, conversations conversationResolver, backend storage.Backend, scanQueue *jobs.Queue, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, cfg AttachmentServiceConfig) *AttachmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New(validator.WithRequiredStructEnabled())
	}
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = 25 * 1024 * 1024
	}
	if cfg.MaxPerConversation <= 0 {
		cfg.MaxPerConversation = 20
	}
	if cfg.PresignTTL <= 0 {
		cfg.PresignTTL = time.Hour
	}

	allowed := make(map[string]struct{}, len(cfg.AllowedContentTypes))
	for _, ct := range cfg.AllowedContentTypes {
		allowed[strings.ToLower(ct)] = struct{}{}
	}

	return &AttachmentService{
		repo:          repo,
		conversations: conversations,
		backend:       backend,
		scanQueue:     scanQueue,
		metrics:       metrics,
		validator:     validate,
		logger:        logger,
		cfg:           cfg,
		allowedTypes:  allowed,
		now:           time.Now,
	}
}

// Initiate creates a PENDING attachment row for a declared upload and
// tells the client how to deliver the bytes: a presigned direct-upload
// URL when the backend supports it, the API endpoint otherwise.
func (s *AttachmentService) Initiate(ctx context.Context, conversationID string, req dto.InitiateAttachmentRequest, actor *models.JWTClaims) (*dto.InitiateAttachmentResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}

	conv, err := s.conversations.GetOwned(ctx, conversationID, actor)
	if err != nil {
		return nil, err
	}

	if req.SizeBytes > s.cfg.MaxFileSize {
		return nil, appErrors.Clone(appErrors.ErrPayloadTooLarge,
			fmt.Sprintf("file exceeds %d bytes limit", s.cfg.MaxFileSize))
	}
	declaredType := strings.ToLower(strings.TrimSpace(req.ContentType))
	if _, ok := s.allowedTypes[declaredType]; !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "content type not allowed: "+declaredType)
	}

	count, err := s.repo.CountActive(ctx, conv.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count attachments")
	}
	if count >= s.cfg.MaxPerConversation {
		return nil, appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("conversation already has %d attachments", count))
	}

	filename := files.SanitizeFilename(req.Filename)
	now := s.now().UTC()

	attachment := &models.Attachment{
		ConversationID:   conv.ID,
		UserID:           actor.UserID,
		Filename:         filename,
		OriginalFilename: req.Filename,
		ContentType:      declaredType,
		AttachmentType:   files.Classify(declaredType, filename),
		SizeBytes:        req.SizeBytes,
		ContentHash:      models.PendingContentHash,
		StoragePath:      files.StoragePath(actor.UserID, conv.ID, filename, models.PendingContentHash, now),
		StorageBackend:   s.cfg.BackendName,
		Status:           models.AttachmentStatusPending,
		Activity:         models.AttachmentActivityActive,
	}
	if err := s.repo.Create(ctx, attachment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create attachment")
	}

	resp := &dto.InitiateAttachmentResponse{
		Attachment:   dto.NewAttachmentResponse(attachment),
		UploadMethod: dto.UploadMethodAPI,
	}
	// A presign failure degrades to the API upload path rather than
	// failing the initiate.
	if uploader, ok := s.backend.(storage.PresignedUploader); ok {
		url, presignErr := uploader.PresignedUploadURL(ctx, attachment.StoragePath, s.cfg.PresignTTL)
		if presignErr != nil {
			s.logger.Warn("presigned upload unavailable, falling back to api upload",
				zap.String("attachment_id", attachment.ID), zap.Error(presignErr))
		} else {
			expires := now.Add(s.cfg.PresignTTL).Format(time.RFC3339)
			resp.UploadMethod = dto.UploadMethodDirect
			resp.UploadURL = &url
			resp.ExpiresAt = &expires
		}
	}

	s.metrics.RecordUpload("initiated")
	return resp, nil
}

// UploadContent receives the declared bytes for a PENDING attachment,
// deduplicates by content hash within the conversation, sniffs the real
// content type and stores the object.
func (s *AttachmentService) UploadContent(ctx context.Context, conversationID, attachmentID string, content io.ReadSeeker, size int64, actor *models.JWTClaims) (*models.Attachment, error) {
	attachment, err := s.getOwned(ctx, conversationID, attachmentID, actor)
	if err != nil {
		return nil, err
	}
	if attachment.Status != models.AttachmentStatusPending {
		return nil, appErrors.Clone(appErrors.ErrConflict,
			"attachment is not awaiting content, status: "+attachment.Status)
	}

	if size != attachment.SizeBytes {
		return nil, appErrors.Clone(appErrors.ErrPayloadMismatch,
			fmt.Sprintf("declared %d bytes, received %d", attachment.SizeBytes, size))
	}
	if size > s.cfg.MaxFileSize {
		return nil, appErrors.Clone(appErrors.ErrPayloadTooLarge,
			fmt.Sprintf("file exceeds %d bytes limit", s.cfg.MaxFileSize))
	}

	hash, err := files.ContentHash(content)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash content")
	}

	// Identical content already in this conversation: the placeholder
	// row is dropped and the duplicate named in the error.
	existing, err := s.repo.FindByHash(ctx, attachment.ConversationID, hash)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check for duplicates")
	}
	if existing != nil && existing.ID != attachment.ID {
		if err := s.repo.Delete(ctx, attachment.ID); err != nil {
			s.logger.Warn("failed to drop pending duplicate", zap.String("attachment_id", attachment.ID), zap.Error(err))
		}
		s.metrics.RecordUpload("duplicate")
		return nil, appErrors.Clone(appErrors.ErrConflict,
			"identical content already attached as "+existing.Filename)
	}

	// The declared type stays on the row for audit; the sniffed type is
	// recorded alongside it and wins for classification and extraction.
	detected, err := files.DetectContentType(content)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to detect content type")
	}
	attachment.DetectedContentType = &detected
	if detected != attachment.ContentType {
		s.logger.Info("detected content type overrides declared",
			zap.String("attachment_id", attachment.ID),
			zap.String("declared", attachment.ContentType),
			zap.String("detected", detected),
		)
		attachment.AttachmentType = files.Classify(detected, attachment.Filename)
	}

	if attachment.IsImage() {
		attachment.ExtraMetadata = s.imageMetadata(content, attachment.ID)
	}

	attachment.ContentHash = hash
	attachment.StoragePath = files.StoragePath(attachment.UserID, attachment.ConversationID, attachment.Filename, hash, s.now())

	if _, err := content.Seek(0, io.SeekStart); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to rewind content")
	}
	if _, err := s.backend.Store(ctx, content, size, attachment.StoragePath, attachment.EffectiveContentType()); err != nil {
		// The hash is only authoritative once the bytes land; a FAILED
		// row keeps the sentinel so it never collides with a retry.
		attachment.Status = models.AttachmentStatusFailed
		attachment.ContentHash = models.PendingContentHash
		msg := "storage write failed"
		attachment.ErrorMessage = &msg
		if updateErr := s.repo.Update(ctx, attachment); updateErr != nil {
			s.logger.Error("failed to mark attachment failed", zap.String("attachment_id", attachment.ID), zap.Error(updateErr))
		}
		s.metrics.RecordUpload("failed")
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to store attachment content")
	}

	attachment.Status = models.AttachmentStatusUploaded
	attachment.VirusScanned = false
	attachment.ErrorMessage = nil
	if err := s.repo.Update(ctx, attachment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to finalise attachment")
	}

	s.metrics.RecordUpload("uploaded")
	s.enqueueScan(attachment)
	return attachment, nil
}

// List returns the conversation's attachments newest first, excluding
// DELETED rows unless asked for. UPLOADED rows carry a fresh download
// URL when the backend can presign one.
func (s *AttachmentService) List(ctx context.Context, conversationID string, actor *models.JWTClaims, includeDeleted bool) ([]dto.AttachmentResponse, error) {
	conv, err := s.conversations.GetOwned(ctx, conversationID, actor)
	if err != nil {
		return nil, err
	}

	items, err := s.repo.List(ctx, models.AttachmentFilter{ConversationID: conv.ID, IncludeDeleted: includeDeleted})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list attachments")
	}

	provider, _ := s.backend.(storage.PresignedURLProvider)
	out := make([]dto.AttachmentResponse, 0, len(items))
	for i := range items {
		resp := dto.NewAttachmentResponse(&items[i])
		if provider != nil && items[i].Status == models.AttachmentStatusUploaded {
			if url, presignErr := provider.PresignedURL(ctx, items[i].StoragePath, s.cfg.PresignTTL, storage.DispositionAttachment); presignErr == nil {
				resp.DownloadURL = &url
				if items[i].IsImage() {
					// No thumbnail pipeline yet; the full image stands in.
					resp.ThumbnailURL = &url
				}
			} else {
				s.logger.Warn("failed to presign download for listing",
					zap.String("attachment_id", items[i].ID), zap.Error(presignErr))
			}
		}
		out = append(out, resp)
	}
	return out, nil
}

// DownloadURL hands out a time-limited URL for an UPLOADED attachment.
// The disposition controls whether the browser renders or downloads.
func (s *AttachmentService) DownloadURL(ctx context.Context, conversationID, attachmentID, disposition string, actor *models.JWTClaims) (string, error) {
	attachment, err := s.getOwned(ctx, conversationID, attachmentID, actor)
	if err != nil {
		return "", err
	}
	if attachment.Status != models.AttachmentStatusUploaded {
		return "", appErrors.Clone(appErrors.ErrConflict, "attachment has no downloadable content")
	}

	provider, ok := s.backend.(storage.PresignedURLProvider)
	if !ok {
		return "", appErrors.Clone(appErrors.ErrInternal, "storage backend cannot presign downloads")
	}
	url, err := provider.PresignedURL(ctx, attachment.StoragePath, s.cfg.PresignTTL, disposition)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to presign download")
	}
	return url, nil
}

// Delete soft-deletes the row, keeping the stored bytes for audit. A
// permanent delete also removes the object and drops the row outright.
func (s *AttachmentService) Delete(ctx context.Context, conversationID, attachmentID string, permanent bool, actor *models.JWTClaims) error {
	attachment, err := s.getOwnedAny(ctx, conversationID, attachmentID, actor)
	if err != nil {
		return err
	}
	if attachment.Status == models.AttachmentStatusDeleted && !permanent {
		return appErrors.ErrNotFound
	}

	if permanent {
		// Metadata is the source of truth; a failed object removal only
		// leaves an orphan in storage, so it is logged rather than surfaced.
		if attachment.Status == models.AttachmentStatusUploaded || attachment.Status == models.AttachmentStatusDeleted {
			if _, err := s.backend.Delete(ctx, attachment.StoragePath); err != nil {
				s.logger.Warn("failed to remove stored object",
					zap.String("attachment_id", attachment.ID),
					zap.String("path", attachment.StoragePath),
					zap.Error(err),
				)
			}
		}
		if err := s.repo.Delete(ctx, attachment.ID); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to purge attachment")
		}
		s.metrics.RecordUpload("purged")
		return nil
	}

	now := s.now().UTC()
	attachment.Status = models.AttachmentStatusDeleted
	attachment.DeletedAt = &now
	if err := s.repo.Update(ctx, attachment); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete attachment")
	}

	s.metrics.RecordUpload("deleted")
	return nil
}

// BatchActivity toggles AI-context inclusion for several attachments.
func (s *AttachmentService) BatchActivity(ctx context.Context, conversationID string, req dto.BatchActivityRequest, actor *models.JWTClaims) (dto.BatchActivityResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.BatchActivityResponse{}, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}

	conv, err := s.conversations.GetOwned(ctx, conversationID, actor)
	if err != nil {
		return dto.BatchActivityResponse{}, err
	}

	changes := make([]models.AttachmentActivityChange, 0, len(req.Changes))
	for _, change := range req.Changes {
		changes = append(changes, models.AttachmentActivityChange{
			AttachmentID: change.AttachmentID,
			Activity:     change.Activity,
		})
	}

	updated, err := s.repo.UpdateActivityBatch(ctx, conv.ID, changes)
	if err != nil {
		return dto.BatchActivityResponse{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update activity")
	}
	return dto.BatchActivityResponse{Requested: len(changes), Updated: updated}, nil
}

// ActiveUploaded returns attachments eligible for AI context: UPLOADED
// and ACTIVE.
func (s *AttachmentService) ActiveUploaded(ctx context.Context, conversationID string) ([]models.Attachment, error) {
	return s.repo.List(ctx, models.AttachmentFilter{
		ConversationID: conversationID,
		Status:         models.AttachmentStatusUploaded,
		Activity:       models.AttachmentActivityActive,
	})
}

// UploadedByIDs resolves an explicit id selection to UPLOADED rows in
// the conversation. Unknown ids and rows in other states are skipped,
// not errors.
func (s *AttachmentService) UploadedByIDs(ctx context.Context, conversationID string, ids []string) ([]models.Attachment, error) {
	items, err := s.repo.List(ctx, models.AttachmentFilter{
		ConversationID: conversationID,
		Status:         models.AttachmentStatusUploaded,
	})
	if err != nil {
		return nil, err
	}

	wanted := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		wanted[id] = struct{}{}
	}

	selected := items[:0]
	for _, a := range items {
		if _, ok := wanted[a.ID]; ok {
			selected = append(selected, a)
		}
	}
	return selected, nil
}

// OpenContent streams the stored bytes of an attachment.
func (s *AttachmentService) OpenContent(ctx context.Context, a *models.Attachment) (io.ReadCloser, error) {
	rc, err := s.backend.Retrieve(ctx, a.StoragePath)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "attachment content missing from storage")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to read attachment content")
	}
	return rc, nil
}

// SweepStalePending fails PENDING rows older than ttl. Runs on a timer
// from the gateway process.
func (s *AttachmentService) SweepStalePending(ctx context.Context, ttl time.Duration) (int, error) {
	cutoff := s.now().UTC().Add(-ttl)
	ids, err := s.repo.MarkStalePendingFailed(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if len(ids) > 0 {
		s.logger.Info("swept stale pending attachments", zap.Int("count", len(ids)), zap.Strings("ids", ids))
	}
	return len(ids), nil
}

func (s *AttachmentService) getOwned(ctx context.Context, conversationID, attachmentID string, actor *models.JWTClaims) (*models.Attachment, error) {
	attachment, err := s.getOwnedAny(ctx, conversationID, attachmentID, actor)
	if err != nil {
		return nil, err
	}
	if attachment.DeletedAt != nil {
		return nil, appErrors.ErrNotFound
	}
	return attachment, nil
}

// getOwnedAny resolves ownership without hiding soft-deleted rows, so
// that a permanent delete can still reach them.
func (s *AttachmentService) getOwnedAny(ctx context.Context, conversationID, attachmentID string, actor *models.JWTClaims) (*models.Attachment, error) {
	if _, err := s.conversations.GetOwned(ctx, conversationID, actor); err != nil {
		return nil, err
	}

	attachment, err := s.repo.GetByID(ctx, attachmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attachment")
	}
	if attachment.ConversationID != conversationID || attachment.UserID != actor.UserID {
		return nil, appErrors.ErrNotFound
	}
	return attachment, nil
}

// enqueueScan hands the stored object to the scan queue when scanning
// is enabled. The scan itself is a hook point; today it verifies the
// object landed and flips the scanned flag.
func (s *AttachmentService) enqueueScan(a *models.Attachment) {
	if !s.cfg.EnableVirusScan || s.scanQueue == nil {
		return
	}

	id, path := a.ID, a.StoragePath
	s.scanQueue.Enqueue(func(ctx context.Context) error {
		exists, err := s.backend.Exists(ctx, path)
		if err != nil {
			return fmt.Errorf("scan check %s: %w", id, err)
		}
		if !exists {
			return fmt.Errorf("scan check %s: object missing", id)
		}
		if err := s.repo.MarkScanned(ctx, id); err != nil {
			return fmt.Errorf("record scan %s: %w", id, err)
		}
		s.logger.Debug("attachment scan complete", zap.String("attachment_id", id))
		return nil
	})
}

// imageMetadata records intrinsic image dimensions. Decode failures are
// logged and leave the metadata empty; they never fail the upload.
func (s *AttachmentService) imageMetadata(content io.ReadSeeker, attachmentID string) models.Metadata {
	if _, err := content.Seek(0, io.SeekStart); err != nil {
		return nil
	}
	cfg, format, err := image.DecodeConfig(content)
	if err != nil {
		s.logger.Warn("image metadata extraction failed",
			zap.String("attachment_id", attachmentID), zap.Error(err))
		return nil
	}
	return models.Metadata{"width": cfg.Width, "height": cfg.Height, "format": format}
}
