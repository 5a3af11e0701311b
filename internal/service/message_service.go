package service

import (
	"context"
	"io"

	"go.uber.org/zap"

	"github.com/convohub/convohub-api/internal/chat"
	"github.com/convohub/convohub-api/internal/dto"
	"github.com/convohub/convohub-api/internal/models"
	appErrors "github.com/convohub/convohub-api/pkg/errors"
	"github.com/convohub/convohub-api/pkg/export"
)

type messageStore interface {
	Create(ctx context.Context, m *models.Message) error
	ListByConversation(ctx context.Context, filter models.MessageFilter) ([]models.Message, error)
	ListRecent(ctx context.Context, conversationID string, limit int) ([]models.Message, error)
}

type attachmentContentLoader interface {
	ActiveUploaded(ctx context.Context, conversationID string) ([]models.Attachment, error)
	UploadedByIDs(ctx context.Context, conversationID string, ids []string) ([]models.Attachment, error)
	OpenContent(ctx context.Context, a *models.Attachment) (io.ReadCloser, error)
}

type conversationToucher interface {
	conversationResolver
	Touch(ctx context.Context, id string)
}

type textExtractor interface {
	Text(contentType, filename string, data []byte) string
}

// MessageService persists turns and drives AI completion with the
// conversation's active attachments in context.
type MessageService struct {
	repo          messageStore
	conversations conversationToucher
	attachments   attachmentContentLoader
	extractor     textExtractor
	assembler     *chat.Assembler
	provider      chat.Provider
	metrics       *MetricsService
	logger        *zap.Logger
}

// NewMessageService constructs the service.
func NewMessageService(repo messageStore, conversations conversationToucher, attachments attachmentContentLoader, extractor textExtractor, assembler *chat.Assembler, provider chat.Provider, metrics *MetricsService, logger *zap.Logger) *MessageService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if assembler == nil {
		assembler = chat.NewAssembler(nil, 0)
	}
	return &MessageService{
		repo:          repo,
		conversations: conversations,
		attachments:   attachments,
		extractor:     extractor,
		assembler:     assembler,
		provider:      provider,
		metrics:       metrics,
		logger:        logger,
	}
}

// List returns the conversation's messages oldest first.
func (s *MessageService) List(ctx context.Context, conversationID string, actor *models.JWTClaims, limit, offset int) ([]models.Message, error) {
	conv, err := s.conversations.GetOwned(ctx, conversationID, actor)
	if err != nil {
		return nil, err
	}

	items, err := s.repo.ListByConversation(ctx, models.MessageFilter{
		ConversationID: conv.ID,
		Limit:          limit,
		Offset:         offset,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list messages")
	}
	return items, nil
}

// Transcript builds an export-ready view of the conversation, capped
// at the repository's maximum page size.
func (s *MessageService) Transcript(ctx context.Context, conversationID string, actor *models.JWTClaims) (*export.Transcript, error) {
	conv, err := s.conversations.GetOwned(ctx, conversationID, actor)
	if err != nil {
		return nil, err
	}

	items, err := s.repo.ListByConversation(ctx, models.MessageFilter{
		ConversationID: conv.ID,
		Limit:          500,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list messages")
	}

	t := &export.Transcript{
		Title:   conv.Title,
		Model:   conv.ModelChoice,
		Entries: make([]export.Entry, 0, len(items)),
	}
	for _, m := range items {
		t.Entries = append(t.Entries, export.Entry{
			Role:    m.Role,
			SentAt:  m.CreatedAt,
			Content: m.Content,
		})
	}
	return t, nil
}

// Send persists the user turn, assembles context from history and
// active attachments, and requests a completion. The user message is
// committed before the provider call so a provider failure never loses
// it; the failure is reported back in the response instead.
func (s *MessageService) Send(ctx context.Context, conversationID string, req dto.SendMessageRequest, actor *models.JWTClaims) (*dto.SendMessageResponse, error) {
	conv, err := s.conversations.GetOwned(ctx, conversationID, actor)
	if err != nil {
		return nil, err
	}

	userMsg := &models.Message{
		ConversationID: conv.ID,
		Role:           models.MessageRoleUser,
		Content:        req.Content,
	}
	if err := s.repo.Create(ctx, userMsg); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store message")
	}
	s.conversations.Touch(ctx, conv.ID)

	userResp := dto.NewMessageResponse(userMsg)

	reply, err := s.complete(ctx, conv, userMsg, req.ActiveAttachmentIDs)
	if err != nil {
		s.metrics.RecordAIRequest(conv.ModelChoice, "error")
		s.logger.Warn("completion failed",
			zap.String("conversation_id", conv.ID),
			zap.String("model", conv.ModelChoice),
			zap.Error(err),
		)
		msg := appErrors.FromError(err).Message
		return &dto.SendMessageResponse{UserMessage: userResp, AIError: &msg}, nil
	}
	s.metrics.RecordAIRequest(conv.ModelChoice, "ok")

	assistantMsg := &models.Message{
		ConversationID: conv.ID,
		Role:           models.MessageRoleAssistant,
		Content:        reply,
	}
	if err := s.repo.Create(ctx, assistantMsg); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store assistant message")
	}

	assistantResp := dto.NewMessageResponse(assistantMsg)
	return &dto.SendMessageResponse{UserMessage: userResp, AssistantMessage: &assistantResp}, nil
}

func (s *MessageService) complete(ctx context.Context, conv *models.Conversation, userMsg *models.Message, attachmentIDs []string) (string, error) {
	images, docs, err := s.loadAttachmentContext(ctx, conv.ID, attachmentIDs)
	if err != nil {
		return "", err
	}

	docs = s.assembler.FitDocuments(docs)

	historyLimit := s.assembler.HistoryLimit(len(docs) > 0)
	// One extra row covers the just-persisted user turn, which is
	// excluded from history because it rides in the request itself.
	recent, err := s.repo.ListRecent(ctx, conv.ID, historyLimit+1)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load history")
	}

	history := make([]chat.Turn, 0, len(recent))
	for _, m := range recent {
		if m.ID == userMsg.ID {
			continue
		}
		history = append(history, chat.Turn{Role: m.Role, Content: m.Content})
	}
	history = chat.TailTurns(history, historyLimit)

	model := conv.ModelChoice
	if model == "" {
		model = chat.DefaultModel
	}

	return s.provider.Complete(ctx, &chat.Request{
		Model:              model,
		SystemInstructions: conv.ModelInstructions,
		History:            history,
		UserMessage:        userMsg.Content,
		Images:             images,
		Documents:          docs,
	})
}

// loadAttachmentContext reads the selected uploaded attachments and
// splits them into images and documents. An explicit id list overrides
// the stored activity toggles for this request. Unreadable or OTHER
// attachments are skipped with a log line rather than failing the
// whole message.
func (s *MessageService) loadAttachmentContext(ctx context.Context, conversationID string, ids []string) (images, docs []chat.AttachmentContent, err error) {
	var attachments []models.Attachment
	if len(ids) > 0 {
		attachments, err = s.attachments.UploadedByIDs(ctx, conversationID, ids)
	} else {
		attachments, err = s.attachments.ActiveUploaded(ctx, conversationID)
	}
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attachments")
	}

	for i := range attachments {
		a := &attachments[i]
		if a.AttachmentType == models.AttachmentTypeOther {
			continue
		}

		data, readErr := s.readContent(ctx, a)
		if readErr != nil {
			s.logger.Warn("skipping unreadable attachment",
				zap.String("attachment_id", a.ID),
				zap.Error(readErr),
			)
			continue
		}

		content := chat.AttachmentContent{
			ID:          a.ID,
			Filename:    a.Filename,
			ContentType: a.EffectiveContentType(),
			Data:        data,
		}
		switch a.AttachmentType {
		case models.AttachmentTypeImage:
			images = append(images, content)
		case models.AttachmentTypeDocument:
			content.Text = s.extractor.Text(a.EffectiveContentType(), a.Filename, data)
			docs = append(docs, content)
		}
	}
	return images, docs, nil
}

func (s *MessageService) readContent(ctx context.Context, a *models.Attachment) ([]byte, error) {
	rc, err := s.attachments.OpenContent(ctx, a)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
