package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
)

// dirPerm is the mode used for working directories.
const dirPerm = 0750

// LocalStorage manages the two local working directories: one holding raw
// downloads and one holding transcoded output.
type LocalStorage struct {
	rawDir       string
	processedDir string
	logger       *slog.Logger
}

// NewLocalStorage creates a new LocalStorage instance.
// Directories are not touched until SetupDirectories or EnsureDir is called.
func NewLocalStorage(rawDir, processedDir string, logger *slog.Logger) *LocalStorage {
	if logger == nil {
		logger = slog.Default()
	}
	return &LocalStorage{
		rawDir:       rawDir,
		processedDir: processedDir,
		logger:       logger,
	}
}

// RawDir returns the raw working directory.
func (s *LocalStorage) RawDir() string {
	return s.rawDir
}

// ProcessedDir returns the processed working directory.
func (s *LocalStorage) ProcessedDir() string {
	return s.processedDir
}

// RawPath returns the local path of a raw video.
func (s *LocalStorage) RawPath(name string) string {
	return filepath.Join(s.rawDir, name)
}

// ProcessedPath returns the local path of a processed video.
func (s *LocalStorage) ProcessedPath(name string) string {
	return filepath.Join(s.processedDir, name)
}

// EnsureDir creates path and any missing parents. It is a no-op when the
// directory already exists and logs only when something was created.
func (s *LocalStorage) EnsureDir(path string) error {
	info, err := os.Stat(path)
	if err == nil {
		if !info.IsDir() {
			return fmt.Errorf("%w: %s exists and is not a directory", ErrCreateDirectory, path)
		}
		return nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: stat %s: %w", ErrCreateDirectory, path, err)
	}

	if err := os.MkdirAll(path, dirPerm); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrCreateDirectory, path, err)
	}

	s.logger.Info("directory created", slog.String("path", path))
	return nil
}

// SetupDirectories ensures both working directories exist.
// It must run before any other operation and is safe to call repeatedly.
func (s *LocalStorage) SetupDirectories() error {
	if err := s.EnsureDir(s.rawDir); err != nil {
		return err
	}
	return s.EnsureDir(s.processedDir)
}

// DeleteFile removes the file at path. A missing file is not an error.
func (s *LocalStorage) DeleteFile(ctx context.Context, path string) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("context cancelled: %w", ctx.Err())
	default:
	}

	if err := os.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.logger.Debug("file not found, skipping delete", slog.String("path", path))
			return nil
		}
		s.logger.Error("failed to delete file",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("%w: %s: %w", ErrDelete, path, err)
	}

	s.logger.Info("file deleted", slog.String("path", path))
	return nil
}

// DeleteRawVideo removes name from the raw working directory.
func (s *LocalStorage) DeleteRawVideo(ctx context.Context, name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	return s.DeleteFile(ctx, s.RawPath(name))
}

// DeleteProcessedVideo removes name from the processed working directory.
func (s *LocalStorage) DeleteProcessedVideo(ctx context.Context, name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	return s.DeleteFile(ctx, s.ProcessedPath(name))
}
