package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/convohub/convohub-api/internal/dto"
	"github.com/convohub/convohub-api/internal/middleware"
	"github.com/convohub/convohub-api/internal/models"
	"github.com/convohub/convohub-api/pkg/export"
)

type stubMessageService struct {
	sent *dto.SendMessageRequest
	err  error
}

func (s *stubMessageService) List(ctx context.Context, conversationID string, actor *models.JWTClaims, limit, offset int) ([]models.Message, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []models.Message{{ID: "m1", ConversationID: conversationID, Role: models.MessageRoleUser, Content: "hi"}}, nil
}

func (s *stubMessageService) Send(ctx context.Context, conversationID string, req dto.SendMessageRequest, actor *models.JWTClaims) (*dto.SendMessageResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.sent = &req
	return &dto.SendMessageResponse{
		UserMessage: dto.MessageResponse{ID: "m1", Role: models.MessageRoleUser, Content: req.Content},
	}, nil
}

func (s *stubMessageService) Transcript(ctx context.Context, conversationID string, actor *models.JWTClaims) (*export.Transcript, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &export.Transcript{
		Title: "Planning",
		Model: "gpt-4.1",
		Entries: []export.Entry{
			{Role: models.MessageRoleUser, SentAt: time.Now(), Content: "hi"},
		},
	}, nil
}

func newMessageRouter(svc *stubMessageService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "u1"})
	})

	h := NewMessageHandler(svc)
	r.GET("/conversations/:id/messages", h.List)
	r.POST("/conversations/:id/messages", h.Send)
	r.GET("/conversations/:id/export", h.Export)
	return r
}

func TestMessageSendEndpoint(t *testing.T) {
	svc := &stubMessageService{}
	r := newMessageRouter(svc)

	body, _ := json.Marshal(dto.SendMessageRequest{Content: "hello there"})
	req := httptest.NewRequest(http.MethodPost, "/conversations/c1/messages", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	require.NotNil(t, svc.sent)
	assert.Equal(t, "hello there", svc.sent.Content)
}

func TestMessageSendRejectsEmptyBody(t *testing.T) {
	svc := &stubMessageService{}
	r := newMessageRouter(svc)

	req := httptest.NewRequest(http.MethodPost, "/conversations/c1/messages", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Nil(t, svc.sent)
}

func TestMessageExportCSV(t *testing.T) {
	svc := &stubMessageService{}
	r := newMessageRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/conversations/c1/export?format=csv", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "transcript.csv")
	assert.Contains(t, w.Body.String(), "role,sent_at,content")
}

func TestMessageExportRejectsUnknownFormat(t *testing.T) {
	svc := &stubMessageService{}
	r := newMessageRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/conversations/c1/export?format=xml", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
