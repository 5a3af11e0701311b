package service

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/convohub/convohub-api/internal/chat"
	"github.com/convohub/convohub-api/internal/dto"
	"github.com/convohub/convohub-api/internal/models"
	appErrors "github.com/convohub/convohub-api/pkg/errors"
)

type stubMessageStore struct {
	created []*models.Message
	recent  []models.Message
}

func (s *stubMessageStore) Create(ctx context.Context, m *models.Message) error {
	if m.ID == "" {
		m.ID = "m" + string(rune('0'+len(s.created)))
	}
	copied := *m
	s.created = append(s.created, &copied)
	return nil
}

func (s *stubMessageStore) ListByConversation(ctx context.Context, filter models.MessageFilter) ([]models.Message, error) {
	return s.recent, nil
}

func (s *stubMessageStore) ListRecent(ctx context.Context, conversationID string, limit int) ([]models.Message, error) {
	if len(s.recent) > limit {
		return s.recent[len(s.recent)-limit:], nil
	}
	return s.recent, nil
}

type stubConversationToucher struct {
	stubConversationResolver
	touched []string
}

func (s *stubConversationToucher) Touch(ctx context.Context, id string) {
	s.touched = append(s.touched, id)
}

type stubContentLoader struct {
	attachments []models.Attachment
	content     map[string][]byte
}

func (s *stubContentLoader) ActiveUploaded(ctx context.Context, conversationID string) ([]models.Attachment, error) {
	return s.attachments, nil
}

func (s *stubContentLoader) UploadedByIDs(ctx context.Context, conversationID string, ids []string) ([]models.Attachment, error) {
	var out []models.Attachment
	for _, a := range s.attachments {
		for _, id := range ids {
			if a.ID == id {
				out = append(out, a)
				break
			}
		}
	}
	return out, nil
}

func (s *stubContentLoader) OpenContent(ctx context.Context, a *models.Attachment) (io.ReadCloser, error) {
	data, ok := s.content[a.ID]
	if !ok {
		return nil, appErrors.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

type stubExtractor struct{}

func (stubExtractor) Text(contentType, filename string, data []byte) string {
	return "extracted:" + filename
}

type capturingProvider struct {
	req   *chat.Request
	reply string
	err   error
}

func (p *capturingProvider) Complete(ctx context.Context, req *chat.Request) (string, error) {
	p.req = req
	if p.err != nil {
		return "", p.err
	}
	return p.reply, nil
}

func newTestMessageService(t *testing.T, loader *stubContentLoader, provider *capturingProvider) (*MessageService, *stubMessageStore, *stubConversationToucher) {
	t.Helper()

	store := &stubMessageStore{}
	conversations := &stubConversationToucher{
		stubConversationResolver: stubConversationResolver{conversations: map[string]*models.Conversation{
			"c1": {ID: "c1", UserID: "u1", ModelChoice: chat.ModelGPT41, ModelInstructions: "be brief"},
		}},
	}
	if loader == nil {
		loader = &stubContentLoader{content: map[string][]byte{}}
	}

	svc := NewMessageService(store, conversations, loader, stubExtractor{}, chat.NewAssembler(nil, 8000), provider, nil, nil)
	return svc, store, conversations
}

func TestSendPersistsBothTurns(t *testing.T) {
	provider := &capturingProvider{reply: "assistant reply"}
	svc, store, conversations := newTestMessageService(t, nil, provider)

	resp, err := svc.Send(context.Background(), "c1", dto.SendMessageRequest{Content: "hello"}, testActor())
	require.NoError(t, err)

	require.Len(t, store.created, 2)
	assert.Equal(t, models.MessageRoleUser, store.created[0].Role)
	assert.Equal(t, models.MessageRoleAssistant, store.created[1].Role)
	assert.Equal(t, "assistant reply", store.created[1].Content)

	require.NotNil(t, resp.AssistantMessage)
	assert.Nil(t, resp.AIError)
	assert.Equal(t, []string{"c1"}, conversations.touched)

	require.NotNil(t, provider.req)
	assert.Equal(t, chat.ModelGPT41, provider.req.Model)
	assert.Equal(t, "be brief", provider.req.SystemInstructions)
	assert.Equal(t, "hello", provider.req.UserMessage)
}

func TestSendKeepsUserMessageOnProviderFailure(t *testing.T) {
	provider := &capturingProvider{err: appErrors.Clone(appErrors.ErrProvider, "model unavailable")}
	svc, store, _ := newTestMessageService(t, nil, provider)

	resp, err := svc.Send(context.Background(), "c1", dto.SendMessageRequest{Content: "hello"}, testActor())
	require.NoError(t, err)

	// Only the user turn was stored.
	require.Len(t, store.created, 1)
	assert.Equal(t, models.MessageRoleUser, store.created[0].Role)

	assert.Nil(t, resp.AssistantMessage)
	require.NotNil(t, resp.AIError)
	assert.Equal(t, "model unavailable", *resp.AIError)
}

func TestSendAttachesActiveContext(t *testing.T) {
	loader := &stubContentLoader{
		attachments: []models.Attachment{
			{ID: "img1", Filename: "pic.png", ContentType: "image/png", AttachmentType: models.AttachmentTypeImage},
			{ID: "doc1", Filename: "report.pdf", ContentType: "application/pdf", AttachmentType: models.AttachmentTypeDocument},
			{ID: "other1", Filename: "blob.bin", ContentType: "application/zip", AttachmentType: models.AttachmentTypeOther},
		},
		content: map[string][]byte{
			"img1": {1, 2, 3},
			"doc1": []byte("pdf bytes"),
		},
	}
	provider := &capturingProvider{reply: "ok"}
	svc, _, _ := newTestMessageService(t, loader, provider)

	_, err := svc.Send(context.Background(), "c1", dto.SendMessageRequest{Content: "describe"}, testActor())
	require.NoError(t, err)

	require.NotNil(t, provider.req)
	require.Len(t, provider.req.Images, 1)
	assert.Equal(t, []byte{1, 2, 3}, provider.req.Images[0].Data)

	require.Len(t, provider.req.Documents, 1)
	assert.Equal(t, "extracted:report.pdf", provider.req.Documents[0].Text)
	assert.Equal(t, []byte("pdf bytes"), provider.req.Documents[0].Data)
}

func TestSendExplicitIDsOverrideActivity(t *testing.T) {
	loader := &stubContentLoader{
		attachments: []models.Attachment{
			{ID: "doc1", Filename: "one.pdf", ContentType: "application/pdf", AttachmentType: models.AttachmentTypeDocument},
			{ID: "doc2", Filename: "two.pdf", ContentType: "application/pdf", AttachmentType: models.AttachmentTypeDocument},
		},
		content: map[string][]byte{
			"doc1": []byte("one"),
			"doc2": []byte("two"),
		},
	}
	provider := &capturingProvider{reply: "ok"}
	svc, _, _ := newTestMessageService(t, loader, provider)

	_, err := svc.Send(context.Background(), "c1", dto.SendMessageRequest{
		Content:             "summarise",
		ActiveAttachmentIDs: []string{"doc2", "nope"},
	}, testActor())
	require.NoError(t, err)

	require.Len(t, provider.req.Documents, 1)
	assert.Equal(t, "extracted:two.pdf", provider.req.Documents[0].Text)
}

func TestSendSkipsUnreadableAttachments(t *testing.T) {
	loader := &stubContentLoader{
		attachments: []models.Attachment{
			{ID: "gone", Filename: "gone.pdf", ContentType: "application/pdf", AttachmentType: models.AttachmentTypeDocument},
		},
		content: map[string][]byte{},
	}
	provider := &capturingProvider{reply: "ok"}
	svc, _, _ := newTestMessageService(t, loader, provider)

	resp, err := svc.Send(context.Background(), "c1", dto.SendMessageRequest{Content: "hi"}, testActor())
	require.NoError(t, err)
	require.NotNil(t, resp.AssistantMessage)
	assert.Empty(t, provider.req.Documents)
}

func TestSendExcludesCurrentTurnFromHistory(t *testing.T) {
	provider := &capturingProvider{reply: "ok"}
	svc, store, _ := newTestMessageService(t, nil, provider)

	store.recent = []models.Message{
		{ID: "h1", Role: models.MessageRoleUser, Content: "earlier"},
		{ID: "h2", Role: models.MessageRoleAssistant, Content: "earlier reply"},
	}

	_, err := svc.Send(context.Background(), "c1", dto.SendMessageRequest{Content: "now"}, testActor())
	require.NoError(t, err)

	require.Len(t, provider.req.History, 2)
	assert.Equal(t, "earlier", provider.req.History[0].Content)
}
