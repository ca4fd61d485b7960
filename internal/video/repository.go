package video

import (
	"context"
	"errors"
)

var (
	// ErrVideoNotFound is returned when a video cannot be found by ID.
	ErrVideoNotFound = errors.New("video not found")
	// ErrVideoAlreadyExists is returned by Claim when the ID is already tracked.
	ErrVideoAlreadyExists = errors.New("video already processing or processed")
)

// Repository defines the interface for video metadata persistence.
type Repository interface {
	// Claim stores v only if no video with the same ID exists.
	// Returns ErrVideoAlreadyExists otherwise. Claim is atomic, so two
	// callers racing on the same ID see exactly one success.
	Claim(ctx context.Context, v *Video) error

	// Save creates or replaces a video.
	Save(ctx context.Context, v *Video) error

	// FindByID retrieves a video by its ID.
	// Returns ErrVideoNotFound if the video does not exist.
	FindByID(ctx context.Context, id string) (*Video, error)

	// List returns all videos.
	List(ctx context.Context) ([]*Video, error)
}
