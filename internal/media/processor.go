// Package media wraps the external ffmpeg tooling used to rescale videos.
package media

import "context"

// Transcoder defines the interface for converting a local video file.
type Transcoder interface {
	// Transcode reads src and writes the rescaled video to dst, overwriting dst.
	// It returns only once the external process has exited, so dst is fully
	// written on success. On failure dst may hold partial output.
	Transcode(ctx context.Context, src, dst string) error
}

// Prober reads stream metadata from a local video file.
type Prober interface {
	// ProbeDimensions returns the width and height of the first video stream.
	ProbeDimensions(ctx context.Context, path string) (width, height int, err error)
}
