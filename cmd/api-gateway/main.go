package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/convohub/convohub-api/internal/auth"
	"github.com/convohub/convohub-api/internal/chat"
	"github.com/convohub/convohub-api/internal/extract"
	"github.com/convohub/convohub-api/internal/handler"
	"github.com/convohub/convohub-api/internal/middleware"
	"github.com/convohub/convohub-api/internal/repository"
	"github.com/convohub/convohub-api/internal/service"
	"github.com/convohub/convohub-api/pkg/cache"
	"github.com/convohub/convohub-api/pkg/config"
	"github.com/convohub/convohub-api/pkg/database"
	"github.com/convohub/convohub-api/pkg/jobs"
	"github.com/convohub/convohub-api/pkg/logger"
	corsmiddleware "github.com/convohub/convohub-api/pkg/middleware/cors"
	reqidmiddleware "github.com/convohub/convohub-api/pkg/middleware/requestid"
	"github.com/convohub/convohub-api/pkg/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := context.Background()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		// The conversation cache is an optimisation; the gateway runs
		// without it.
		logr.Warn("redis unavailable, running without cache", zap.Error(err))
		redisClient = nil
	} else {
		defer redisClient.Close()
	}

	backend, signer, err := buildStorageBackend(ctx, cfg)
	if err != nil {
		logr.Fatal("failed to init storage backend", zap.Error(err))
	}

	metricsSvc := service.NewMetricsService()

	scanQueue := jobs.NewQueue("attachment-scan", 128, 2, logr)
	scanQueue.Start()
	defer scanQueue.Stop()

	attachmentRepo := repository.NewAttachmentRepository(db)
	conversationRepo := repository.NewConversationRepository(db)
	messageRepo := repository.NewMessageRepository(db)

	var redisCmdable redis.Cmdable
	if redisClient != nil {
		redisCmdable = redisClient
	}
	conversationSvc := service.NewConversationService(conversationRepo, redisCmdable, metricsSvc, logr)

	validate := validator.New(validator.WithRequiredStructEnabled())
	attachmentSvc := service.NewAttachmentService(attachmentRepo, conversationSvc, backend, scanQueue, metricsSvc, validate, logr, service.AttachmentServiceConfig{
		MaxFileSize:         cfg.Uploads.MaxFileSize,
		MaxPerConversation:  cfg.Uploads.MaxPerConversation,
		AllowedContentTypes: cfg.Uploads.AllowedContentTypes,
		PresignTTL:          cfg.Storage.PresignTTL,
		EnableVirusScan:     cfg.Uploads.EnableVirusScan,
		BackendName:         cfg.Storage.Backend,
	})

	provider, closeProviders, err := buildProviders(ctx, cfg, logr)
	if err != nil {
		logr.Fatal("failed to init ai providers", zap.Error(err))
	}
	defer closeProviders()

	assembler := chat.NewAssembler(chat.NewTokenizer(), cfg.AI.DocTokenBudget)
	extractor := extract.NewExtractor(logr)
	messageSvc := service.NewMessageService(messageRepo, conversationSvc, attachmentSvc, extractor, assembler, provider, metricsSvc, logr)

	verifier := auth.NewVerifier(cfg.JWT.Secret)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	conversationHandler := handler.NewConversationHandler(conversationSvc)
	attachmentHandler := handler.NewAttachmentHandler(attachmentSvc)
	messageHandler := handler.NewMessageHandler(messageSvc)

	api := r.Group(cfg.APIPrefix)

	// Token-authorised downloads for the local backend; no JWT.
	if signer != nil {
		api.GET("/files", handler.NewFilesHandler(backend, signer).Download)
	}

	protected := api.Group("")
	protected.Use(middleware.JWT(verifier))
	{
		protected.POST("/conversations", conversationHandler.Create)
		protected.GET("/conversations", conversationHandler.List)
		protected.GET("/conversations/:id", conversationHandler.Get)
		protected.PATCH("/conversations/:id", conversationHandler.Update)
		protected.DELETE("/conversations/:id", conversationHandler.Delete)

		protected.POST("/conversations/:id/attachments", attachmentHandler.Initiate)
		protected.GET("/conversations/:id/attachments", attachmentHandler.List)
		protected.POST("/conversations/:id/attachments/:attachmentId/content", attachmentHandler.Upload)
		protected.GET("/conversations/:id/attachments/:attachmentId/download", attachmentHandler.Download)
		protected.DELETE("/conversations/:id/attachments/:attachmentId", attachmentHandler.Delete)
		protected.PATCH("/conversations/:id/attachments/activity", attachmentHandler.BatchActivity)

		protected.GET("/conversations/:id/messages", messageHandler.List)
		protected.POST("/conversations/:id/messages", messageHandler.Send)
		protected.GET("/conversations/:id/export", messageHandler.Export)
	}

	sweepCtx, stopSweeper := context.WithCancel(ctx)
	defer stopSweeper()
	go runPendingSweeper(sweepCtx, attachmentSvc, cfg.Uploads.PendingSweepEvery, cfg.Uploads.PendingTTL, logr)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env, "storage", cfg.Storage.Backend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("shutdown incomplete", zap.Error(err))
	}
}

// buildStorageBackend selects the object store. The signer is non-nil
// only for the local backend, which serves downloads itself.
func buildStorageBackend(ctx context.Context, cfg *config.Config) (storage.Backend, *storage.SignedURLSigner, error) {
	switch cfg.Storage.Backend {
	case config.StorageBackendMinio:
		backend, err := storage.NewMinioBackend(ctx, cfg.Storage)
		return backend, nil, err
	case config.StorageBackendLocal:
		signer := storage.NewSignedURLSigner(cfg.Storage.SignedURLSecret)
		backend, err := storage.NewLocalBackend(cfg.Storage.LocalDir, cfg.BaseURL, signer)
		return backend, signer, err
	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

// buildProviders wires the model router. Providers without credentials
// are left unconfigured; requests routed to them fail with a provider
// error instead of blocking startup.
func buildProviders(ctx context.Context, cfg *config.Config, logr *zap.Logger) (chat.Provider, func(), error) {
	var (
		openai  chat.Provider
		gemini  chat.Provider
		cleanup = func() {}
	)

	if cfg.AI.AzureOpenAIEndpoint != "" && cfg.AI.AzureOpenAIKey != "" {
		openai = chat.NewAzureOpenAIClient(chat.AzureOpenAIConfig{
			Endpoint:   cfg.AI.AzureOpenAIEndpoint,
			APIKey:     cfg.AI.AzureOpenAIKey,
			APIVersion: cfg.AI.AzureOpenAIAPIVersion,
			Timeout:    cfg.AI.RequestTimeout,
		}, logr)
	} else {
		logr.Warn("azure openai not configured")
	}

	if cfg.AI.GeminiAPIKey != "" {
		client, err := chat.NewGeminiClient(ctx, chat.GeminiConfig{
			APIKey:    cfg.AI.GeminiAPIKey,
			PollEvery: cfg.AI.FilePollEvery,
			PollMax:   cfg.AI.FilePollMax,
		}, logr)
		if err != nil {
			return nil, cleanup, err
		}
		gemini = client
		cleanup = func() { _ = client.Close() }
	} else {
		logr.Warn("gemini not configured")
	}

	return chat.NewRouter(openai, gemini), cleanup, nil
}

func runPendingSweeper(ctx context.Context, svc *service.AttachmentService, every, ttl time.Duration, logr *zap.Logger) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := svc.SweepStalePending(ctx, ttl); err != nil {
				logr.Warn("pending sweep failed", zap.Error(err))
			}
		}
	}
}
