package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/convohub/convohub-api/internal/chat"
	"github.com/convohub/convohub-api/internal/dto"
	"github.com/convohub/convohub-api/internal/models"
	appErrors "github.com/convohub/convohub-api/pkg/errors"
)

const conversationCacheTTL = 5 * time.Minute

type conversationStore interface {
	Create(ctx context.Context, c *models.Conversation) error
	GetByID(ctx context.Context, id string) (*models.Conversation, error)
	ListByUser(ctx context.Context, filter models.ConversationFilter) ([]models.Conversation, error)
	Update(ctx context.Context, c *models.Conversation) error
	Touch(ctx context.Context, id string) error
	SoftDelete(ctx context.Context, id string, deletedAt time.Time) error
}

// ConversationService manages conversation CRUD with a read-through
// cache in front of lookups, which run on every attachment and message
// request for the ownership check.
type ConversationService struct {
	repo    conversationStore
	cache   redis.Cmdable
	metrics *MetricsService
	logger  *zap.Logger
}

// NewConversationService constructs the service. cache may be nil.
func NewConversationService(repo conversationStore, cache redis.Cmdable, metrics *MetricsService, logger *zap.Logger) *ConversationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConversationService{repo: repo, cache: cache, metrics: metrics, logger: logger}
}

// Create opens a conversation for the actor.
func (s *ConversationService) Create(ctx context.Context, req dto.CreateConversationRequest, actor *models.JWTClaims) (*models.Conversation, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}

	model := req.ModelChoice
	if model == "" {
		model = chat.DefaultModel
	}

	conv := &models.Conversation{
		UserID:            actor.UserID,
		Title:             req.Title,
		ModelChoice:       model,
		ModelInstructions: req.ModelInstructions,
	}
	if err := s.repo.Create(ctx, conv); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create conversation")
	}
	return conv, nil
}

// GetOwned loads a conversation and enforces ownership. Misses on
// foreign conversations surface as not-found rather than forbidden so
// ids cannot be enumerated.
func (s *ConversationService) GetOwned(ctx context.Context, id string, actor *models.JWTClaims) (*models.Conversation, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}

	conv, err := s.getCached(ctx, id)
	if err != nil {
		return nil, err
	}
	if conv.UserID != actor.UserID {
		return nil, appErrors.ErrNotFound
	}
	return conv, nil
}

// List returns the actor's conversations.
func (s *ConversationService) List(ctx context.Context, actor *models.JWTClaims, limit, offset int) ([]models.Conversation, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}

	items, err := s.repo.ListByUser(ctx, models.ConversationFilter{
		UserID: actor.UserID,
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list conversations")
	}
	return items, nil
}

// Update mutates title, model choice or instructions.
func (s *ConversationService) Update(ctx context.Context, id string, req dto.UpdateConversationRequest, actor *models.JWTClaims) (*models.Conversation, error) {
	conv, err := s.GetOwned(ctx, id, actor)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		conv.Title = *req.Title
	}
	if req.ModelChoice != nil {
		conv.ModelChoice = *req.ModelChoice
	}
	if req.ModelInstructions != nil {
		conv.ModelInstructions = *req.ModelInstructions
	}

	if err := s.repo.Update(ctx, conv); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update conversation")
	}

	s.invalidate(ctx, id)
	return conv, nil
}

// Touch bumps recency and refreshes the cache entry.
func (s *ConversationService) Touch(ctx context.Context, id string) {
	if err := s.repo.Touch(ctx, id); err != nil {
		s.logger.Warn("failed to touch conversation", zap.String("conversation_id", id), zap.Error(err))
	}
	s.invalidate(ctx, id)
}

// Delete soft-deletes the conversation.
func (s *ConversationService) Delete(ctx context.Context, id string, actor *models.JWTClaims) error {
	if _, err := s.GetOwned(ctx, id, actor); err != nil {
		return err
	}

	if err := s.repo.SoftDelete(ctx, id, time.Now().UTC()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.ErrNotFound
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete conversation")
	}

	s.invalidate(ctx, id)
	return nil
}

func conversationCacheKey(id string) string {
	return fmt.Sprintf("conversation:%s", id)
}

func (s *ConversationService) getCached(ctx context.Context, id string) (*models.Conversation, error) {
	if s.cache != nil {
		start := time.Now()
		raw, err := s.cache.Get(ctx, conversationCacheKey(id)).Result()
		if err == nil {
			var conv models.Conversation
			if jsonErr := json.Unmarshal([]byte(raw), &conv); jsonErr == nil {
				s.metrics.RecordCacheOperation(true, time.Since(start))
				return &conv, nil
			}
		}
		s.metrics.RecordCacheOperation(false, time.Since(start))
	}

	conv, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load conversation")
	}

	if s.cache != nil {
		if data, err := json.Marshal(conv); err == nil {
			start := time.Now()
			if err := s.cache.Set(ctx, conversationCacheKey(id), data, conversationCacheTTL).Err(); err != nil {
				s.logger.Debug("conversation cache write failed", zap.Error(err))
			}
			s.metrics.ObserveCacheWrite(time.Since(start))
		}
	}
	return conv, nil
}

func (s *ConversationService) invalidate(ctx context.Context, id string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, conversationCacheKey(id)).Err(); err != nil {
		s.logger.Debug("conversation cache invalidation failed", zap.Error(err))
	}
}
