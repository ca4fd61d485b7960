package video

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/maauso/video-processing-service/internal/media"
	"github.com/maauso/video-processing-service/internal/storage"
)

// Default bucket names and output prefix.
const (
	DefaultRawBucket       = "raw-videos"
	DefaultProcessedBucket = "processed-videos"
	DefaultProcessedPrefix = "processed-"
)

// Service exposes every pipeline stage as an independent call and composes
// them in Process.
//
// Stages do not coordinate with each other: two concurrent calls for the
// same file name may race on the local files. Process serializes per video
// through the repository claim and a file lock.
type Service struct {
	local      *storage.LocalStorage
	objects    storage.ObjectStore
	transcoder media.Transcoder
	repo       Repository
	locker     *Locker
	logger     *slog.Logger

	rawBucket       string
	processedBucket string
	processedPrefix string
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithBuckets sets the raw and processed bucket names.
func WithBuckets(raw, processed string) ServiceOption {
	return func(s *Service) {
		if raw != "" {
			s.rawBucket = raw
		}
		if processed != "" {
			s.processedBucket = processed
		}
	}
}

// WithProcessedPrefix sets the prefix Process adds to output names.
// An empty prefix keeps the raw name for the processed object.
func WithProcessedPrefix(prefix string) ServiceOption {
	return func(s *Service) {
		s.processedPrefix = prefix
	}
}

// WithLocker replaces the default lock directory (the raw directory).
func WithLocker(l *Locker) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.locker = l
		}
	}
}

// NewService creates a new Service.
func NewService(
	local *storage.LocalStorage,
	objects storage.ObjectStore,
	transcoder media.Transcoder,
	repo Repository,
	logger *slog.Logger,
	opts ...ServiceOption,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		local:           local,
		objects:         objects,
		transcoder:      transcoder,
		repo:            repo,
		locker:          NewLocker(local.RawDir()),
		logger:          logger,
		rawBucket:       DefaultRawBucket,
		processedBucket: DefaultProcessedBucket,
		processedPrefix: DefaultProcessedPrefix,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetupDirectories creates the raw and processed working directories.
// Call it once before any other operation; repeated calls are harmless.
func (s *Service) SetupDirectories() error {
	return s.local.SetupDirectories()
}

// DownloadRawVideo fetches name from the raw bucket into the raw directory.
func (s *Service) DownloadRawVideo(ctx context.Context, name string) error {
	if err := storage.ValidateName(name); err != nil {
		return err
	}
	if err := s.objects.Download(ctx, s.rawBucket, name, s.local.RawPath(name)); err != nil {
		s.logger.Error("download failed",
			slog.String("file", name),
			slog.String("bucket", s.rawBucket),
			slog.String("error", err.Error()),
		)
		return err
	}
	return nil
}

// ConvertVideo transcodes rawName from the raw directory into processedName
// in the processed directory.
func (s *Service) ConvertVideo(ctx context.Context, rawName, processedName string) error {
	if err := storage.ValidateName(rawName); err != nil {
		return err
	}
	if err := storage.ValidateName(processedName); err != nil {
		return err
	}

	src := s.local.RawPath(rawName)
	dst := s.local.ProcessedPath(processedName)
	start := time.Now()

	if err := s.transcoder.Transcode(ctx, src, dst); err != nil {
		s.logger.Error("transcode failed",
			slog.String("source", src),
			slog.String("destination", dst),
			slog.String("error", err.Error()),
		)
		return err
	}

	attrs := []any{
		slog.String("source", src),
		slog.String("destination", dst),
		slog.Duration("duration", time.Since(start)),
	}
	if p, ok := s.transcoder.(media.Prober); ok {
		w, h, err := p.ProbeDimensions(ctx, dst)
		if err != nil {
			s.logger.Debug("probe output failed", slog.String("error", err.Error()))
		} else {
			attrs = append(attrs, slog.Int("width", w), slog.Int("height", h))
		}
	}
	s.logger.Info("transcode finished", attrs...)
	return nil
}

// UploadProcessedVideo uploads name from the processed directory to the
// processed bucket and makes it publicly readable. If the visibility change
// fails the object stays uploaded but private.
func (s *Service) UploadProcessedVideo(ctx context.Context, name string) error {
	if err := storage.ValidateName(name); err != nil {
		return err
	}

	src := s.local.ProcessedPath(name)
	if err := s.objects.Upload(ctx, src, s.processedBucket, name); err != nil {
		s.logger.Error("upload failed",
			slog.String("source", src),
			slog.String("bucket", s.processedBucket),
			slog.String("error", err.Error()),
		)
		return err
	}
	if err := s.objects.MakePublic(ctx, s.processedBucket, name); err != nil {
		s.logger.Error("make public failed",
			slog.String("bucket", s.processedBucket),
			slog.String("key", name),
			slog.String("error", err.Error()),
		)
		return err
	}

	s.logger.Info("processed video published",
		slog.String("source", src),
		slog.String("destination", fmt.Sprintf("s3://%s/%s", s.processedBucket, name)),
	)
	return nil
}

// DeleteRawVideo removes name from the raw directory if present.
func (s *Service) DeleteRawVideo(ctx context.Context, name string) error {
	return s.local.DeleteRawVideo(ctx, name)
}

// DeleteProcessedVideo removes name from the processed directory if present.
func (s *Service) DeleteProcessedVideo(ctx context.Context, name string) error {
	return s.local.DeleteProcessedVideo(ctx, name)
}

// ProcessedName returns the output name Process uses for rawName.
func (s *Service) ProcessedName(rawName string) string {
	return s.processedPrefix + rawName
}

// Process runs the whole pipeline for rawName: claim, download, transcode,
// upload, then delete both local copies. Local copies are removed on failure
// as well. The returned Video reflects the final recorded state; it is nil
// only when the video could not be claimed.
func (s *Service) Process(ctx context.Context, rawName string) (*Video, error) {
	if err := storage.ValidateName(rawName); err != nil {
		return nil, err
	}
	v, err := New(rawName)
	if err != nil {
		return nil, err
	}

	logger := s.logger.With(slog.String("video_id", v.ID), slog.String("file", rawName))

	if err := s.repo.Claim(ctx, v); err != nil {
		if errors.Is(err, ErrVideoAlreadyExists) {
			logger.Warn("video already processing or processed")
		}
		return nil, err
	}
	logger.Info("processing video")

	// Record keeping and cleanup must finish even if ctx was cancelled mid-stage.
	bg := context.WithoutCancel(ctx)

	unlock, err := s.locker.TryLock(v.ID)
	if err != nil {
		s.fail(bg, logger, v, err)
		return v, err
	}
	defer func() {
		if err := unlock(); err != nil {
			logger.Warn("failed to release video lock", slog.String("error", err.Error()))
		}
	}()

	processedName := s.ProcessedName(rawName)
	stageErr := s.runStages(ctx, rawName, processedName)
	s.cleanup(bg, logger, rawName, processedName)

	if stageErr != nil {
		s.fail(bg, logger, v, stageErr)
		return v, stageErr
	}

	if err := v.MarkProcessed(processedName); err != nil {
		return v, err
	}
	if err := s.repo.Save(bg, v); err != nil {
		return v, fmt.Errorf("save video: %w", err)
	}

	logger.Info("video processed", slog.String("processed_file", processedName))
	return v, nil
}

// GetVideo returns the recorded state of a video.
func (s *Service) GetVideo(ctx context.Context, id string) (*Video, error) {
	return s.repo.FindByID(ctx, id)
}

// ListVideos returns every recorded video.
func (s *Service) ListVideos(ctx context.Context) ([]*Video, error) {
	return s.repo.List(ctx)
}

func (s *Service) runStages(ctx context.Context, rawName, processedName string) error {
	if err := s.DownloadRawVideo(ctx, rawName); err != nil {
		return fmt.Errorf("download: %w", err)
	}
	if err := s.ConvertVideo(ctx, rawName, processedName); err != nil {
		return fmt.Errorf("convert: %w", err)
	}
	if err := s.UploadProcessedVideo(ctx, processedName); err != nil {
		return fmt.Errorf("upload: %w", err)
	}
	return nil
}

func (s *Service) cleanup(ctx context.Context, logger *slog.Logger, rawName, processedName string) {
	if err := s.DeleteRawVideo(ctx, rawName); err != nil {
		logger.Warn("failed to delete raw video", slog.String("error", err.Error()))
	}
	if err := s.DeleteProcessedVideo(ctx, processedName); err != nil {
		logger.Warn("failed to delete processed video", slog.String("error", err.Error()))
	}
}

func (s *Service) fail(ctx context.Context, logger *slog.Logger, v *Video, cause error) {
	if err := v.MarkFailed(cause.Error()); err != nil {
		logger.Error("failed to mark video failed", slog.String("error", err.Error()))
		return
	}
	if err := s.repo.Save(ctx, v); err != nil {
		logger.Error("failed to save failed video", slog.String("error", err.Error()))
	}
	logger.Error("video processing failed", slog.String("error", cause.Error()))
}
