// Package bootstrap provides dependency initialization for the video
// processing service binaries.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/maauso/video-processing-service/internal/config"
	"github.com/maauso/video-processing-service/internal/media"
	"github.com/maauso/video-processing-service/internal/queue"
	"github.com/maauso/video-processing-service/internal/storage"
	"github.com/maauso/video-processing-service/internal/video"
)

// Dependencies holds all initialized dependencies shared by the binaries.
type Dependencies struct {
	AWS          aws.Config
	Local        *storage.LocalStorage
	Objects      *storage.S3Storage
	Transcoder   *media.FFmpegTranscoder
	Repository   video.Repository
	VideoService *video.Service
}

// NewDependencies creates and initializes all dependencies for the application.
// Working directories are not created here; call VideoService.SetupDirectories.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	s3Cfg := storage.S3Config{
		Region:          cfg.S3Region,
		Endpoint:        cfg.S3Endpoint,
		AccessKeyID:     cfg.AWSAccessKeyID,
		SecretAccessKey: cfg.AWSSecretAccessKey,
	}
	awsCfg, err := storage.LoadAWSConfig(ctx, s3Cfg)
	if err != nil {
		return nil, err
	}

	objects, err := storage.NewS3Storage(ctx, s3Cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("create S3 storage: %w", err)
	}
	logger.Info("S3 storage configured",
		slog.String("raw_bucket", cfg.RawBucket),
		slog.String("processed_bucket", cfg.ProcessedBucket),
		slog.String("region", cfg.S3Region),
	)

	repo, err := initRepository(cfg, awsCfg, logger)
	if err != nil {
		return nil, err
	}

	local := storage.NewLocalStorage(cfg.RawDir, cfg.ProcessedDir, logger)
	transcoder := media.NewFFmpegTranscoder(cfg.FFmpegPath,
		media.WithFFprobePath(cfg.FFprobePath),
		media.WithTargetHeight(cfg.TargetHeight),
	)

	svc := video.NewService(local, objects, transcoder, repo, logger,
		video.WithBuckets(cfg.RawBucket, cfg.ProcessedBucket),
		video.WithProcessedPrefix(cfg.ProcessedPrefix),
	)

	return &Dependencies{
		AWS:          awsCfg,
		Local:        local,
		Objects:      objects,
		Transcoder:   transcoder,
		Repository:   repo,
		VideoService: svc,
	}, nil
}

// NewQueueConsumer creates an SQS consumer feeding the video service.
func (d *Dependencies) NewQueueConsumer(cfg *config.Config, logger *slog.Logger) (*queue.Consumer, error) {
	if err := cfg.RequireQueue(); err != nil {
		return nil, err
	}
	client := sqs.NewFromConfig(d.AWS)
	return queue.NewConsumer(client, cfg.SQSQueueURL, d.VideoService, logger), nil
}

// initRepository creates the metadata backend selected by configuration.
func initRepository(cfg *config.Config, awsCfg aws.Config, logger *slog.Logger) (video.Repository, error) {
	if cfg.DynamoDBEnabled() {
		repo, err := video.NewDynamoDBRepository(dynamodb.NewFromConfig(awsCfg), cfg.DynamoDBTable)
		if err != nil {
			return nil, fmt.Errorf("create DynamoDB repository: %w", err)
		}
		logger.Info("DynamoDB metadata configured",
			slog.String("table", cfg.DynamoDBTable),
		)
		return repo, nil
	}

	logger.Info("in-memory metadata configured")
	return video.NewMemoryRepository(), nil
}
