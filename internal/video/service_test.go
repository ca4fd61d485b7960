package video

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/maauso/video-processing-service/internal/media"
	"github.com/maauso/video-processing-service/internal/storage"
)

type mockObjectStore struct {
	mock.Mock
}

func (m *mockObjectStore) Download(ctx context.Context, bucket, key, dst string) error {
	return m.Called(ctx, bucket, key, dst).Error(0)
}

func (m *mockObjectStore) Upload(ctx context.Context, src, bucket, key string) error {
	return m.Called(ctx, src, bucket, key).Error(0)
}

func (m *mockObjectStore) MakePublic(ctx context.Context, bucket, key string) error {
	return m.Called(ctx, bucket, key).Error(0)
}

type mockTranscoder struct {
	mock.Mock
}

func (m *mockTranscoder) Transcode(ctx context.Context, src, dst string) error {
	return m.Called(ctx, src, dst).Error(0)
}

type serviceFixture struct {
	svc        *Service
	local      *storage.LocalStorage
	objects    *mockObjectStore
	transcoder *mockTranscoder
	repo       *MemoryRepository
}

func newServiceFixture(t *testing.T, opts ...ServiceOption) *serviceFixture {
	t.Helper()
	base := t.TempDir()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	local := storage.NewLocalStorage(filepath.Join(base, "raw"), filepath.Join(base, "processed"), logger)

	f := &serviceFixture{
		local:      local,
		objects:    &mockObjectStore{},
		transcoder: &mockTranscoder{},
		repo:       NewMemoryRepository(),
	}
	f.svc = NewService(local, f.objects, f.transcoder, f.repo, logger, opts...)
	require.NoError(t, f.svc.SetupDirectories())
	return f
}

// writeFile returns a mock Run func that creates the file at argument index idx.
func writeFile(idx int, content string) func(mock.Arguments) {
	return func(args mock.Arguments) {
		_ = os.WriteFile(args.String(idx), []byte(content), 0o600)
	}
}

// visibleFiles lists dir, ignoring lock files.
func visibleFiles(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		if !strings.HasPrefix(e.Name(), ".") {
			names = append(names, e.Name())
		}
	}
	return names
}

func TestNewService_Defaults(t *testing.T) {
	local := storage.NewLocalStorage("raw", "processed", nil)
	svc := NewService(local, &mockObjectStore{}, &mockTranscoder{}, NewMemoryRepository(), nil)

	assert.Equal(t, DefaultRawBucket, svc.rawBucket)
	assert.Equal(t, DefaultProcessedBucket, svc.processedBucket)
	assert.Equal(t, "processed-a.mp4", svc.ProcessedName("a.mp4"))
	assert.NotNil(t, svc.logger)
	assert.NotNil(t, svc.locker)
}

func TestNewService_Options(t *testing.T) {
	local := storage.NewLocalStorage("raw", "processed", nil)
	svc := NewService(local, &mockObjectStore{}, &mockTranscoder{}, NewMemoryRepository(), nil,
		WithBuckets("in", "out"),
		WithProcessedPrefix(""),
	)

	assert.Equal(t, "in", svc.rawBucket)
	assert.Equal(t, "out", svc.processedBucket)
	assert.Equal(t, "a.mp4", svc.ProcessedName("a.mp4"))

	// Empty bucket names keep the defaults.
	svc = NewService(local, &mockObjectStore{}, &mockTranscoder{}, NewMemoryRepository(), nil, WithBuckets("", ""))
	assert.Equal(t, DefaultRawBucket, svc.rawBucket)
	assert.Equal(t, DefaultProcessedBucket, svc.processedBucket)
}

func TestService_DownloadRawVideo(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	f.objects.On("Download", ctx, DefaultRawBucket, "a.mp4", f.local.RawPath("a.mp4")).Return(nil).Once()

	require.NoError(t, f.svc.DownloadRawVideo(ctx, "a.mp4"))
	f.objects.AssertExpectations(t)
}

func TestService_DownloadRawVideo_InvalidName(t *testing.T) {
	f := newServiceFixture(t)

	err := f.svc.DownloadRawVideo(context.Background(), "../etc/passwd")
	assert.ErrorIs(t, err, storage.ErrInvalidName)
	f.objects.AssertNotCalled(t, "Download", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestService_ConvertVideo(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	f.transcoder.On("Transcode", ctx, f.local.RawPath("a.mp4"), f.local.ProcessedPath("out.mp4")).Return(nil).Once()

	require.NoError(t, f.svc.ConvertVideo(ctx, "a.mp4", "out.mp4"))
	f.transcoder.AssertExpectations(t)
}

type probingTranscoder struct {
	mockTranscoder
}

func (m *probingTranscoder) ProbeDimensions(ctx context.Context, path string) (int, int, error) {
	args := m.Called(ctx, path)
	return args.Int(0), args.Int(1), args.Error(2)
}

func TestService_ConvertVideo_ProbesOutput(t *testing.T) {
	base := t.TempDir()
	var logs strings.Builder
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	local := storage.NewLocalStorage(filepath.Join(base, "raw"), filepath.Join(base, "processed"), logger)
	tr := &probingTranscoder{}
	svc := NewService(local, &mockObjectStore{}, tr, NewMemoryRepository(), logger)
	ctx := context.Background()
	dst := local.ProcessedPath("out.mp4")

	tr.On("Transcode", ctx, local.RawPath("a.mp4"), dst).Return(nil).Once()
	tr.On("ProbeDimensions", ctx, dst).Return(1920, 1080, nil).Once()

	require.NoError(t, svc.ConvertVideo(ctx, "a.mp4", "out.mp4"))
	assert.Contains(t, logs.String(), "height=1080")
	tr.AssertExpectations(t)
}

func TestService_ConvertVideo_Failure(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	tErr := &media.TranscodeError{Message: "Invalid data found when processing input", Err: errors.New("exit status 1")}

	f.transcoder.On("Transcode", ctx, mock.Anything, mock.Anything).Return(tErr).Once()

	err := f.svc.ConvertVideo(ctx, "a.mp4", "out.mp4")
	assert.ErrorIs(t, err, media.ErrTranscode)
}

func TestService_UploadProcessedVideo(t *testing.T) {
	f := newServiceFixture(t, WithBuckets("in", "out"))
	ctx := context.Background()

	f.objects.On("Upload", ctx, f.local.ProcessedPath("p.mp4"), "out", "p.mp4").Return(nil).Once()
	f.objects.On("MakePublic", ctx, "out", "p.mp4").Return(nil).Once()

	require.NoError(t, f.svc.UploadProcessedVideo(ctx, "p.mp4"))
	f.objects.AssertExpectations(t)
}

func TestService_UploadProcessedVideo_UploadFails(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	f.objects.On("Upload", ctx, mock.Anything, mock.Anything, mock.Anything).Return(storage.ErrTransfer).Once()

	err := f.svc.UploadProcessedVideo(ctx, "p.mp4")
	assert.ErrorIs(t, err, storage.ErrTransfer)
	f.objects.AssertNotCalled(t, "MakePublic", mock.Anything, mock.Anything, mock.Anything)
}

func TestService_UploadProcessedVideo_MakePublicFails(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	f.objects.On("Upload", ctx, mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()
	f.objects.On("MakePublic", ctx, mock.Anything, mock.Anything).Return(storage.ErrVisibility).Once()

	err := f.svc.UploadProcessedVideo(ctx, "p.mp4")
	assert.ErrorIs(t, err, storage.ErrVisibility)
}

func TestService_DeleteVideos(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	require.NoError(t, os.WriteFile(f.local.RawPath("a.mp4"), []byte("raw"), 0o600))
	require.NoError(t, os.WriteFile(f.local.ProcessedPath("a.mp4"), []byte("out"), 0o600))

	require.NoError(t, f.svc.DeleteRawVideo(ctx, "a.mp4"))
	require.NoError(t, f.svc.DeleteProcessedVideo(ctx, "a.mp4"))
	assert.Empty(t, visibleFiles(t, f.local.RawDir()))
	assert.Empty(t, visibleFiles(t, f.local.ProcessedDir()))

	// Missing files are not an error.
	assert.NoError(t, f.svc.DeleteRawVideo(ctx, "a.mp4"))
	assert.NoError(t, f.svc.DeleteProcessedVideo(ctx, "a.mp4"))
}

func TestService_Process_Success(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	rawPath := f.local.RawPath("u1-100.mp4")
	outPath := f.local.ProcessedPath("processed-u1-100.mp4")

	f.objects.On("Download", ctx, DefaultRawBucket, "u1-100.mp4", rawPath).
		Run(writeFile(3, "raw")).Return(nil).Once()
	f.transcoder.On("Transcode", ctx, rawPath, outPath).
		Run(writeFile(2, "processed")).Return(nil).Once()
	f.objects.On("Upload", ctx, outPath, DefaultProcessedBucket, "processed-u1-100.mp4").Return(nil).Once()
	f.objects.On("MakePublic", ctx, DefaultProcessedBucket, "processed-u1-100.mp4").Return(nil).Once()

	v, err := f.svc.Process(ctx, "u1-100.mp4")
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Equal(t, StatusProcessed, v.Status)
	assert.Equal(t, "processed-u1-100.mp4", v.ProcessedFileName)
	assert.Equal(t, "u1", v.UID)

	stored, err := f.svc.GetVideo(ctx, "u1-100")
	require.NoError(t, err)
	assert.Equal(t, StatusProcessed, stored.Status)

	assert.Empty(t, visibleFiles(t, f.local.RawDir()))
	assert.Empty(t, visibleFiles(t, f.local.ProcessedDir()))
	f.objects.AssertExpectations(t)
	f.transcoder.AssertExpectations(t)
}

func TestService_Process_TranscodeFailureCleansUp(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	f.objects.On("Download", ctx, mock.Anything, mock.Anything, mock.Anything).
		Run(writeFile(3, "raw")).Return(nil).Once()
	f.transcoder.On("Transcode", ctx, mock.Anything, mock.Anything).
		Run(writeFile(2, "partial")).
		Return(&media.TranscodeError{Message: "moov atom not found", Err: errors.New("exit status 1")}).Once()

	v, err := f.svc.Process(ctx, "u1-100.mp4")
	require.Error(t, err)
	assert.ErrorIs(t, err, media.ErrTranscode)
	require.NotNil(t, v)
	assert.Equal(t, StatusFailed, v.Status)
	assert.Contains(t, v.Error, "moov atom not found")

	stored, err := f.repo.FindByID(ctx, "u1-100")
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, stored.Status)

	assert.Empty(t, visibleFiles(t, f.local.RawDir()))
	assert.Empty(t, visibleFiles(t, f.local.ProcessedDir()))
	f.objects.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestService_Process_DownloadNotFound(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	f.objects.On("Download", ctx, mock.Anything, mock.Anything, mock.Anything).
		Return(errors.Join(storage.ErrTransfer, storage.ErrObjectNotFound)).Once()

	v, err := f.svc.Process(ctx, "u1-100.mp4")
	assert.ErrorIs(t, err, storage.ErrObjectNotFound)
	require.NotNil(t, v)
	assert.Equal(t, StatusFailed, v.Status)
	f.transcoder.AssertNotCalled(t, "Transcode", mock.Anything, mock.Anything, mock.Anything)
}

func TestService_Process_AlreadyClaimed(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	existing, _ := New("u1-100.mp4")
	require.NoError(t, f.repo.Claim(ctx, existing))

	v, err := f.svc.Process(ctx, "u1-100.mov")
	assert.ErrorIs(t, err, ErrVideoAlreadyExists)
	assert.Nil(t, v)
	f.objects.AssertNotCalled(t, "Download", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestService_Process_Locked(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	unlock, err := NewLocker(f.local.RawDir()).TryLock("u1-100")
	require.NoError(t, err)
	defer func() { _ = unlock() }()

	v, err := f.svc.Process(ctx, "u1-100.mp4")
	assert.ErrorIs(t, err, ErrVideoLocked)
	require.NotNil(t, v)
	assert.Equal(t, StatusFailed, v.Status)
	f.objects.AssertNotCalled(t, "Download", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestService_Process_InvalidName(t *testing.T) {
	f := newServiceFixture(t)

	for _, name := range []string{"", "a/b.mp4", ".."} {
		v, err := f.svc.Process(context.Background(), name)
		assert.ErrorIs(t, err, storage.ErrInvalidName, name)
		assert.Nil(t, v)
	}

	videos, err := f.svc.ListVideos(context.Background())
	require.NoError(t, err)
	assert.Empty(t, videos)
}

func TestService_Process_CancelledContextStillRecordsFailure(t *testing.T) {
	f := newServiceFixture(t)
	ctx, cancel := context.WithCancel(context.Background())

	f.objects.On("Download", ctx, mock.Anything, mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { cancel() }).
		Return(context.Canceled).Once()

	_, err := f.svc.Process(ctx, "u1-100.mp4")
	assert.ErrorIs(t, err, context.Canceled)

	stored, err := f.repo.FindByID(context.Background(), "u1-100")
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, stored.Status)
}

func TestService_GetVideo_NotFound(t *testing.T) {
	f := newServiceFixture(t)

	_, err := f.svc.GetVideo(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrVideoNotFound)
}
