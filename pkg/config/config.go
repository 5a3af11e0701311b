package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Storage backend identifiers.
const (
	StorageBackendMinio = "minio"
	StorageBackendLocal = "local"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string
	BaseURL   string

	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	CORS     CORSConfig
	Log      LogConfig
	Storage  StorageConfig
	Uploads  UploadsConfig
	AI       AIConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// StorageConfig selects and parameterises the object storage backend.
type StorageConfig struct {
	Backend         string
	LocalDir        string
	SignedURLSecret string
	PresignTTL      time.Duration

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool
}

// UploadsConfig governs attachment validation and lifecycle housekeeping.
type UploadsConfig struct {
	MaxFileSize         int64
	MaxPerConversation  int
	AllowedContentTypes []string
	EnableVirusScan     bool
	PendingSweepEvery   time.Duration
	PendingTTL          time.Duration
}

// AIConfig holds provider credentials and context-assembly tuning.
type AIConfig struct {
	AzureOpenAIEndpoint   string
	AzureOpenAIKey        string
	AzureOpenAIAPIVersion string
	GeminiAPIKey          string

	DocTokenBudget int
	RequestTimeout time.Duration
	FilePollEvery  time.Duration
	FilePollMax    time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")
	cfg.BaseURL = v.GetString("BASE_URL")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{Secret: v.GetString("JWT_SECRET")}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Storage = StorageConfig{
		Backend:         strings.ToLower(v.GetString("STORAGE_BACKEND")),
		LocalDir:        v.GetString("LOCAL_STORAGE_DIR"),
		SignedURLSecret: v.GetString("FILES_SIGNED_URL_SECRET"),
		PresignTTL:      parseDuration(v.GetString("PRESIGN_TTL"), time.Hour),
		MinioEndpoint:   v.GetString("MINIO_ENDPOINT"),
		MinioAccessKey:  v.GetString("MINIO_ACCESS_KEY"),
		MinioSecretKey:  v.GetString("MINIO_SECRET_KEY"),
		MinioBucket:     v.GetString("MINIO_BUCKET"),
		MinioUseSSL:     v.GetBool("MINIO_USE_SSL"),
	}

	maxFileSize := v.GetInt64("UPLOAD_MAX_FILE_SIZE")
	if maxFileSize <= 0 {
		maxFileSize = 25 * 1024 * 1024
	}
	cfg.Uploads = UploadsConfig{
		MaxFileSize:         maxFileSize,
		MaxPerConversation:  v.GetInt("UPLOAD_MAX_PER_CONVERSATION"),
		AllowedContentTypes: splitAndTrim(v.GetString("UPLOAD_ALLOWED_TYPES")),
		EnableVirusScan:     v.GetBool("ENABLE_VIRUS_SCAN"),
		PendingSweepEvery:   parseDuration(v.GetString("PENDING_SWEEP_INTERVAL"), 10*time.Minute),
		PendingTTL:          parseDuration(v.GetString("PENDING_TTL"), time.Hour),
	}

	cfg.AI = AIConfig{
		AzureOpenAIEndpoint:   v.GetString("AZURE_OPENAI_ENDPOINT"),
		AzureOpenAIKey:        v.GetString("AZURE_OPENAI_API_KEY"),
		AzureOpenAIAPIVersion: v.GetString("AZURE_OPENAI_API_VERSION"),
		GeminiAPIKey:          v.GetString("GEMINI_API_KEY"),
		DocTokenBudget:        v.GetInt("AI_DOC_TOKEN_BUDGET"),
		RequestTimeout:        parseDuration(v.GetString("AI_REQUEST_TIMEOUT"), 90*time.Second),
		FilePollEvery:         parseDuration(v.GetString("AI_FILE_POLL_INTERVAL"), 2*time.Second),
		FilePollMax:           parseDuration(v.GetString("AI_FILE_POLL_TIMEOUT"), time.Minute),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validate rejects configurations that cannot boot. Missing object-storage
// credentials are fatal rather than degrading to a broken runtime.
func (c *Config) validate() error {
	switch c.Storage.Backend {
	case StorageBackendMinio:
		if c.Storage.MinioEndpoint == "" || c.Storage.MinioAccessKey == "" || c.Storage.MinioSecretKey == "" {
			return fmt.Errorf("storage backend %q requires MINIO_ENDPOINT, MINIO_ACCESS_KEY and MINIO_SECRET_KEY", c.Storage.Backend)
		}
		if c.Storage.MinioBucket == "" {
			return fmt.Errorf("storage backend %q requires MINIO_BUCKET", c.Storage.Backend)
		}
	case StorageBackendLocal:
		if c.Storage.SignedURLSecret == "" {
			return fmt.Errorf("storage backend %q requires FILES_SIGNED_URL_SECRET", c.Storage.Backend)
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")
	v.SetDefault("BASE_URL", "http://localhost:8080")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "convohub")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("STORAGE_BACKEND", StorageBackendLocal)
	v.SetDefault("LOCAL_STORAGE_DIR", "./uploads")
	v.SetDefault("FILES_SIGNED_URL_SECRET", "dev_files_secret")
	v.SetDefault("PRESIGN_TTL", "1h")
	v.SetDefault("MINIO_USE_SSL", false)
	v.SetDefault("MINIO_BUCKET", "convohub-attachments")

	v.SetDefault("UPLOAD_MAX_FILE_SIZE", 25*1024*1024)
	v.SetDefault("UPLOAD_MAX_PER_CONVERSATION", 20)
	v.SetDefault("UPLOAD_ALLOWED_TYPES", strings.Join(defaultAllowedContentTypes, ","))
	v.SetDefault("ENABLE_VIRUS_SCAN", false)
	v.SetDefault("PENDING_SWEEP_INTERVAL", "10m")
	v.SetDefault("PENDING_TTL", "1h")

	v.SetDefault("AZURE_OPENAI_API_VERSION", "2025-01-01-preview")
	v.SetDefault("AI_DOC_TOKEN_BUDGET", 8000)
	v.SetDefault("AI_REQUEST_TIMEOUT", "90s")
	v.SetDefault("AI_FILE_POLL_INTERVAL", "2s")
	v.SetDefault("AI_FILE_POLL_TIMEOUT", "1m")
}

var defaultAllowedContentTypes = []string{
	"image/jpeg",
	"image/png",
	"image/gif",
	"image/webp",
	"application/pdf",
	"application/msword",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"application/vnd.ms-excel",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	"application/json",
	"text/plain",
	"text/csv",
	"text/markdown",
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
