package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// Compile-time check that S3Storage implements ObjectStore.
var _ ObjectStore = (*S3Storage)(nil)

// S3API is the subset of *s3.Client used by S3Storage.
// Tests substitute a fake implementation.
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	PutObjectAcl(ctx context.Context, params *s3.PutObjectAclInput, optFns ...func(*s3.Options)) (*s3.PutObjectAclOutput, error)
}

// S3Config holds the configuration for S3 storage.
type S3Config struct {
	Region          string
	Endpoint        string // Optional: for custom S3-compatible endpoints
	AccessKeyID     string // Optional: AWS access key ID
	SecretAccessKey string // Optional: AWS secret access key
}

// S3Storage implements ObjectStore on top of the AWS S3 API.
type S3Storage struct {
	client S3API
	logger *slog.Logger
}

// NewS3Storage creates an S3Storage backed by a real S3 client.
func NewS3Storage(ctx context.Context, cfg S3Config, logger *slog.Logger) (*S3Storage, error) {
	awsCfg, err := LoadAWSConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var clientOpts []func(*s3.Options)
	if cfg.Endpoint != "" {
		clientOpts = append(clientOpts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	}

	return NewS3StorageWithClient(s3.NewFromConfig(awsCfg, clientOpts...), logger), nil
}

// NewS3StorageWithClient creates an S3Storage around an existing client.
func NewS3StorageWithClient(client S3API, logger *slog.Logger) *S3Storage {
	if logger == nil {
		logger = slog.Default()
	}
	return &S3Storage{client: client, logger: logger}
}

// LoadAWSConfig resolves the shared AWS configuration, using static
// credentials when both keys are provided.
func LoadAWSConfig(ctx context.Context, cfg S3Config) (aws.Config, error) {
	var configOpts []func(*config.LoadOptions) error
	configOpts = append(configOpts, config.WithRegion(cfg.Region))

	// Use static credentials if provided
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		configOpts = append(configOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, configOpts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("load AWS config: %w", err)
	}
	return awsCfg, nil
}

// Download fetches bucket/key into dst. The body is written to a temporary
// file next to dst and renamed into place once fully received.
func (s *S3Storage) Download(ctx context.Context, bucket, key, dst string) error {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return fmt.Errorf("%w: %w: s3://%s/%s", ErrTransfer, ErrObjectNotFound, bucket, key)
		}
		return fmt.Errorf("%w: get s3://%s/%s: %w", ErrTransfer, bucket, key, err)
	}
	defer func() { _ = out.Body.Close() }()

	tmp, err := os.CreateTemp(filepath.Dir(dst), "."+filepath.Base(dst)+".part-*")
	if err != nil {
		return fmt.Errorf("%w: create temp file: %w", ErrTransfer, err)
	}
	tmpName := tmp.Name()

	if _, err := io.Copy(tmp, out.Body); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("%w: read s3://%s/%s: %w", ErrTransfer, bucket, key, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("%w: close temp file: %w", ErrTransfer, err)
	}
	if err := os.Rename(tmpName, dst); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("%w: move into place: %w", ErrTransfer, err)
	}

	s.logger.Info("object downloaded",
		slog.String("source", fmt.Sprintf("s3://%s/%s", bucket, key)),
		slog.String("destination", dst),
	)
	return nil
}

// Upload writes src to bucket/key. A missing src fails before any request
// is sent.
func (s *S3Storage) Upload(ctx context.Context, src, bucket, key string) error {
	f, err := os.Open(src) // #nosec G304 - src is built from a validated name
	if err != nil {
		return fmt.Errorf("%w: open %s: %w", ErrTransfer, src, err)
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("%w: stat %s: %w", ErrTransfer, src, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %s is a directory", ErrTransfer, src)
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          f,
		ContentLength: aws.Int64(info.Size()),
		ContentType:   aws.String(contentType(key)),
	})
	if err != nil {
		return fmt.Errorf("%w: put s3://%s/%s: %w", ErrTransfer, bucket, key, err)
	}

	s.logger.Info("object uploaded",
		slog.String("source", src),
		slog.String("destination", fmt.Sprintf("s3://%s/%s", bucket, key)),
		slog.Int64("bytes", info.Size()),
	)
	return nil
}

// MakePublic sets the public-read canned ACL on bucket/key.
func (s *S3Storage) MakePublic(ctx context.Context, bucket, key string) error {
	_, err := s.client.PutObjectAcl(ctx, &s3.PutObjectAclInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		ACL:    types.ObjectCannedACLPublicRead,
	})
	if err != nil {
		return fmt.Errorf("%w: s3://%s/%s: %w", ErrVisibility, bucket, key, err)
	}

	s.logger.Debug("object made public",
		slog.String("object", fmt.Sprintf("s3://%s/%s", bucket, key)),
	)
	return nil
}

// isNotFound reports whether err is S3's missing key or bucket response.
func isNotFound(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound", "NoSuchBucket":
			return true
		}
	}
	return false
}

// videoContentTypes covers containers missing from Go's builtin mime table.
var videoContentTypes = map[string]string{
	".mp4":  "video/mp4",
	".m4v":  "video/x-m4v",
	".mov":  "video/quicktime",
	".webm": "video/webm",
	".mkv":  "video/x-matroska",
}

func contentType(key string) string {
	ext := strings.ToLower(filepath.Ext(key))
	if ct, ok := videoContentTypes[ext]; ok {
		return ct
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
