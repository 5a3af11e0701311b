package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/convohub/convohub-api/internal/chat"
	"github.com/convohub/convohub-api/internal/dto"
	"github.com/convohub/convohub-api/internal/models"
	appErrors "github.com/convohub/convohub-api/pkg/errors"
)

type stubConversationStore struct {
	items map[string]*models.Conversation
}

func newStubConversationStore() *stubConversationStore {
	return &stubConversationStore{items: map[string]*models.Conversation{}}
}

func (s *stubConversationStore) Create(ctx context.Context, c *models.Conversation) error {
	if c.ID == "" {
		c.ID = "conv-" + c.Title
	}
	copied := *c
	s.items[c.ID] = &copied
	return nil
}

func (s *stubConversationStore) GetByID(ctx context.Context, id string) (*models.Conversation, error) {
	c, ok := s.items[id]
	if !ok || c.DeletedAt != nil {
		return nil, sql.ErrNoRows
	}
	copied := *c
	return &copied, nil
}

func (s *stubConversationStore) ListByUser(ctx context.Context, filter models.ConversationFilter) ([]models.Conversation, error) {
	var out []models.Conversation
	for _, c := range s.items {
		if c.UserID == filter.UserID && c.DeletedAt == nil {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (s *stubConversationStore) Update(ctx context.Context, c *models.Conversation) error {
	if _, ok := s.items[c.ID]; !ok {
		return sql.ErrNoRows
	}
	copied := *c
	s.items[c.ID] = &copied
	return nil
}

func (s *stubConversationStore) Touch(ctx context.Context, id string) error { return nil }

func (s *stubConversationStore) SoftDelete(ctx context.Context, id string, deletedAt time.Time) error {
	c, ok := s.items[id]
	if !ok || c.DeletedAt != nil {
		return sql.ErrNoRows
	}
	c.DeletedAt = &deletedAt
	return nil
}

func TestConversationCreateDefaultsModel(t *testing.T) {
	store := newStubConversationStore()
	svc := NewConversationService(store, nil, nil, nil)

	conv, err := svc.Create(context.Background(), dto.CreateConversationRequest{Title: "chat"}, testActor())
	require.NoError(t, err)

	assert.Equal(t, chat.DefaultModel, conv.ModelChoice)
	assert.Equal(t, "u1", conv.UserID)
}

func TestConversationGetOwnedHidesForeignRows(t *testing.T) {
	store := newStubConversationStore()
	svc := NewConversationService(store, nil, nil, nil)

	conv, err := svc.Create(context.Background(), dto.CreateConversationRequest{Title: "mine"}, testActor())
	require.NoError(t, err)

	_, err = svc.GetOwned(context.Background(), conv.ID, &models.JWTClaims{UserID: "intruder"})
	require.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestConversationUpdate(t *testing.T) {
	store := newStubConversationStore()
	svc := NewConversationService(store, nil, nil, nil)

	conv, err := svc.Create(context.Background(), dto.CreateConversationRequest{Title: "old"}, testActor())
	require.NoError(t, err)

	newTitle := "new"
	newModel := chat.ModelGeminiFlash
	updated, err := svc.Update(context.Background(), conv.ID, dto.UpdateConversationRequest{
		Title: &newTitle, ModelChoice: &newModel,
	}, testActor())
	require.NoError(t, err)

	assert.Equal(t, "new", updated.Title)
	assert.Equal(t, chat.ModelGeminiFlash, updated.ModelChoice)
}

func TestConversationDeleteHidesFromListing(t *testing.T) {
	store := newStubConversationStore()
	svc := NewConversationService(store, nil, nil, nil)

	conv, err := svc.Create(context.Background(), dto.CreateConversationRequest{Title: "gone"}, testActor())
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), conv.ID, testActor()))

	_, err = svc.GetOwned(context.Background(), conv.ID, testActor())
	require.True(t, appErrors.Is(err, appErrors.ErrNotFound))

	items, err := svc.List(context.Background(), testActor(), 10, 0)
	require.NoError(t, err)
	assert.Empty(t, items)
}
