// Package storage moves video files between object storage and local disk.
// It provides the local working directories (raw and processed), idempotent
// file deletion, and an S3 backed object store for download, upload and
// visibility changes.
package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Static errors for storage operations. Callers match them with errors.Is.
var (
	// ErrCreateDirectory is returned when a working directory cannot be created.
	ErrCreateDirectory = errors.New("create directory failed")
	// ErrDelete is returned when an existing local file cannot be removed.
	ErrDelete = errors.New("delete file failed")
	// ErrTransfer is returned when a download or upload fails.
	ErrTransfer = errors.New("storage transfer failed")
	// ErrObjectNotFound is returned when the requested object does not exist.
	ErrObjectNotFound = errors.New("object not found")
	// ErrVisibility is returned when an uploaded object cannot be made public.
	ErrVisibility = errors.New("visibility change failed")
	// ErrInvalidName is returned when a video file name is not a plain file name.
	ErrInvalidName = errors.New("invalid video file name")
)

// ObjectStore defines the object storage operations the pipeline consumes.
type ObjectStore interface {
	// Download fetches bucket/key and writes it to dst, overwriting dst.
	// No file is left at dst when the download fails.
	Download(ctx context.Context, bucket, key, dst string) error

	// Upload writes the local file src to bucket/key, overwriting any
	// existing object.
	Upload(ctx context.Context, src, bucket, key string) error

	// MakePublic grants public read access to bucket/key.
	MakePublic(ctx context.Context, bucket, key string) error
}

// ValidateName checks that name can be used both as a local file name inside
// a working directory and as an object key.
func ValidateName(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return fmt.Errorf("%w: empty", ErrInvalidName)
	case name == "." || name == "..":
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	case strings.ContainsAny(name, `/\`) || filepath.Base(name) != name:
		return fmt.Errorf("%w: %q contains a path separator", ErrInvalidName, name)
	case strings.ContainsRune(name, 0):
		return fmt.Errorf("%w: %q contains a NUL byte", ErrInvalidName, name)
	}
	return nil
}
