// Package config provides configuration loading from environment variables.
package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/sethvargo/go-envconfig"
)

// Metadata backends.
const (
	MetadataBackendMemory   = "memory"
	MetadataBackendDynamoDB = "dynamodb"
)

// Static errors for configuration validation.
var (
	// ErrInvalidConfig is returned when a loaded configuration fails validation.
	ErrInvalidConfig = errors.New("config: invalid configuration")
	// ErrSameDirectories is returned when raw and processed directories coincide.
	ErrSameDirectories = errors.New("config: LOCAL_RAW_DIR and LOCAL_PROCESSED_DIR must differ")
	// ErrSQSQueueURLRequired is returned when the worker starts without SQS_QUEUE_URL.
	ErrSQSQueueURLRequired = errors.New("config: SQS_QUEUE_URL is required")
)

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	Port int `env:"PORT, default=8080" json:"port" validate:"min=1,max=65535"`

	// Bucket settings
	RawBucket       string `env:"RAW_VIDEO_BUCKET, default=raw-videos" json:"raw_bucket" validate:"required"`
	ProcessedBucket string `env:"PROCESSED_VIDEO_BUCKET, default=processed-videos" json:"processed_bucket" validate:"required"`

	// Local working directories
	RawDir       string `env:"LOCAL_RAW_DIR, default=./raw-videos" json:"raw_dir" validate:"required"`
	ProcessedDir string `env:"LOCAL_PROCESSED_DIR, default=./processed-videos" json:"processed_dir" validate:"required"`

	// Processing settings
	ProcessedPrefix string `env:"PROCESSED_PREFIX, default=processed-" json:"processed_prefix"`
	TargetHeight    int    `env:"TARGET_HEIGHT, default=1080" json:"target_height" validate:"min=1,max=8640"`
	FFmpegPath      string `env:"FFMPEG_PATH, default=ffmpeg" json:"ffmpeg_path"`
	FFprobePath     string `env:"FFPROBE_PATH, default=ffprobe" json:"ffprobe_path"`

	// S3 settings
	S3Region           string `env:"S3_REGION, default=us-east-1" json:"s3_region" validate:"required"`
	S3Endpoint         string `env:"S3_ENDPOINT" json:"s3_endpoint,omitempty" validate:"omitempty,url"`
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID" json:"-"`     // Masked in JSON
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY" json:"-"` // Masked in JSON

	// Metadata settings
	MetadataBackend string `env:"METADATA_BACKEND, default=memory" json:"metadata_backend" validate:"oneof=memory dynamodb"`
	DynamoDBTable   string `env:"DYNAMODB_TABLE, default=videos" json:"dynamodb_table" validate:"required_if=MetadataBackend dynamodb"`

	// Queue settings
	SQSQueueURL string `env:"SQS_QUEUE_URL" json:"sqs_queue_url,omitempty" validate:"omitempty,url"`

	// Logging settings
	LogFormat string `env:"LOG_FORMAT, default=text" json:"log_format"` // "json" or "text"
	LogLevel  string `env:"LOG_LEVEL, default=info" json:"log_level"`   // "debug", "info", "warn", "error"
}

// DynamoDBEnabled returns true if video metadata is kept in DynamoDB.
func (c *Config) DynamoDBEnabled() bool {
	return strings.ToLower(c.MetadataBackend) == MetadataBackendDynamoDB
}

// Load reads configuration from environment variables using go-envconfig
// and validates the result.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := envconfig.Process(context.Background(), cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks field constraints and cross-field rules.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if filepath.Clean(c.RawDir) == filepath.Clean(c.ProcessedDir) {
		return ErrSameDirectories
	}
	return nil
}

// RequireQueue reports ErrSQSQueueURLRequired when no queue is configured.
func (c *Config) RequireQueue() error {
	if c.SQSQueueURL == "" {
		return ErrSQSQueueURLRequired
	}
	return nil
}

// NewLogger creates a structured logger based on the configuration.
// When LogFormat is "json", it outputs JSON logs suitable for production.
// Otherwise, it outputs human-readable text logs.
func (c *Config) NewLogger() *slog.Logger {
	level := parseLogLevel(c.LogLevel)

	var handler slog.Handler
	if strings.ToLower(c.LogFormat) == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	}

	return slog.New(handler)
}

// String returns a string representation of the config with sensitive values masked.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Port: %d, RawBucket: %s, ProcessedBucket: %s, RawDir: %s, ProcessedDir: %s, TargetHeight: %d, S3Region: %s, S3Endpoint: %s, MetadataBackend: %s, LogFormat: %s, LogLevel: %s}",
		c.Port,
		c.RawBucket,
		c.ProcessedBucket,
		c.RawDir,
		c.ProcessedDir,
		c.TargetHeight,
		c.S3Region,
		c.S3Endpoint,
		c.MetadataBackend,
		c.LogFormat,
		c.LogLevel,
	)
}

// parseLogLevel converts a string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
