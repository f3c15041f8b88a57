// Package config loads service configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// JWTConfig provides JWT validation settings for middleware.
type JWTConfig interface {
	GetJWTAccessSecret() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetShutdownTimeout() time.Duration
}

// SchedulerConfig provides Redis and asynq settings.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
	IsSchedulerEnabled() bool
}

// StorageConfig provides settings for MinIO storage of import files.
type StorageConfig interface {
	GetMinIOEndpoint() string
	GetMinIOAccessKey() string
	GetMinIOSecretKey() string
	GetMinIOUseSSL() bool
	GetMinIOBucketImports() string
	IsMinIOEnabled() bool
}

// LeadEngineConfig provides tuning for classification and batch import.
type LeadEngineConfig interface {
	GetAttemptCeiling() int
	GetImportWorkers() int
	GetMaxImportFileSize() int64
}

// WebhookConfig provides settings for inbound lead webhooks.
type WebhookConfig interface {
	GetWebhookSecret() string
	GetWebhookRatePerMinute() int
	GetWebhookDedupeTTL() time.Duration
}

// Config holds all configuration values.
type Config struct {
	Env                  string
	HTTPAddr             string
	ShutdownTimeout      time.Duration
	DatabaseURL          string
	JWTAccessSecret      string
	CORSAllowAll         bool
	CORSOrigins          []string
	RedisURL             string
	RedisTLSInsecure     bool
	AsynqQueueName       string
	AsynqConcurrency     int
	MinIOEndpoint        string
	MinIOAccessKey       string
	MinIOSecretKey       string
	MinIOUseSSL          bool
	MinIOBucketImports   string
	AttemptCeiling       int
	ImportWorkers        int
	MaxImportFileSize    int64
	WebhookSecret        string
	WebhookRatePerMinute int
	WebhookDedupeTTL     time.Duration
}

func (c *Config) GetDatabaseURL() string     { return c.DatabaseURL }
func (c *Config) GetJWTAccessSecret() string { return c.JWTAccessSecret }

func (c *Config) GetHTTPAddr() string               { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool             { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string          { return c.CORSOrigins }
func (c *Config) GetShutdownTimeout() time.Duration { return c.ShutdownTimeout }

func (c *Config) GetRedisURL() string       { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int  { return c.AsynqConcurrency }
func (c *Config) IsSchedulerEnabled() bool  { return c.RedisURL != "" }

func (c *Config) GetMinIOEndpoint() string      { return c.MinIOEndpoint }
func (c *Config) GetMinIOAccessKey() string     { return c.MinIOAccessKey }
func (c *Config) GetMinIOSecretKey() string     { return c.MinIOSecretKey }
func (c *Config) GetMinIOUseSSL() bool          { return c.MinIOUseSSL }
func (c *Config) GetMinIOBucketImports() string { return c.MinIOBucketImports }
func (c *Config) IsMinIOEnabled() bool          { return c.MinIOEndpoint != "" }

func (c *Config) GetAttemptCeiling() int      { return c.AttemptCeiling }
func (c *Config) GetImportWorkers() int       { return c.ImportWorkers }
func (c *Config) GetMaxImportFileSize() int64 { return c.MaxImportFileSize }

func (c *Config) GetWebhookSecret() string           { return c.WebhookSecret }
func (c *Config) GetWebhookRatePerMinute() int       { return c.WebhookRatePerMinute }
func (c *Config) GetWebhookDedupeTTL() time.Duration { return c.WebhookDedupeTTL }

// Load reads configuration from the environment, after loading a .env file
// when one is present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:5173"))

	cfg := &Config{
		Env:                  getEnv("APP_ENV", "development"),
		HTTPAddr:             getEnv("HTTP_ADDR", ":8080"),
		ShutdownTimeout:      mustDuration(getEnv("SHUTDOWN_TIMEOUT", "15s")),
		DatabaseURL:          getEnv("DATABASE_URL", ""),
		JWTAccessSecret:      getEnv("JWT_ACCESS_SECRET", ""),
		CORSAllowAll:         containsWildcard(corsOrigins),
		CORSOrigins:          corsOrigins,
		RedisURL:             getEnv("REDIS_URL", ""),
		RedisTLSInsecure:     strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:       getEnv("ASYNQ_QUEUE_NAME", "crm"),
		AsynqConcurrency:     mustInt(getEnv("ASYNQ_CONCURRENCY", "10")),
		MinIOEndpoint:        getEnv("MINIO_ENDPOINT", ""),
		MinIOAccessKey:       getEnv("MINIO_ACCESS_KEY", ""),
		MinIOSecretKey:       getEnv("MINIO_SECRET_KEY", ""),
		MinIOUseSSL:          strings.EqualFold(getEnv("MINIO_USE_SSL", "false"), "true"),
		MinIOBucketImports:   getEnv("MINIO_BUCKET_IMPORTS", "lead-imports"),
		AttemptCeiling:       mustInt(getEnv("LEAD_ATTEMPT_CEILING", "5")),
		ImportWorkers:        mustInt(getEnv("IMPORT_WORKERS", "4")),
		MaxImportFileSize:    mustInt64(getEnv("MAX_IMPORT_FILE_SIZE", "20971520")),
		WebhookSecret:        getEnv("WEBHOOK_SECRET", ""),
		WebhookRatePerMinute: mustInt(getEnv("WEBHOOK_RATE_PER_MINUTE", "120")),
		WebhookDedupeTTL:     mustDuration(getEnv("WEBHOOK_DEDUPE_TTL", "24h")),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTAccessSecret == "" {
		return nil, fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	if cfg.AttemptCeiling <= 0 {
		return nil, fmt.Errorf("LEAD_ATTEMPT_CEILING must be positive")
	}
	if cfg.ImportWorkers <= 0 {
		cfg.ImportWorkers = 1
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

func mustInt(value string) int {
	result, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return result
}

func mustInt64(value string) int64 {
	result, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0
	}
	return result
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}

func containsWildcard(values []string) bool {
	for _, value := range values {
		if value == "*" {
			return true
		}
	}
	return false
}
