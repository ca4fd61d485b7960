package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// DefaultTargetHeight is the output height used when none is configured.
const DefaultTargetHeight = 1080

// waitDelay bounds how long Run waits for ffmpeg's pipes after the process
// is killed by context cancellation.
const waitDelay = 5 * time.Second

// Static errors for media operations.
var (
	// ErrTranscode matches every *TranscodeError via errors.Is.
	ErrTranscode = errors.New("transcode failed")
	// ErrInvalidHeight is returned when the target height is not positive.
	ErrInvalidHeight = errors.New("invalid target height: must be positive")
	// ErrFFprobeExecution is returned when ffprobe command fails.
	ErrFFprobeExecution = errors.New("ffprobe execution failed")
)

// Compile-time checks that FFmpegTranscoder implements Transcoder and Prober.
var (
	_ Transcoder = (*FFmpegTranscoder)(nil)
	_ Prober     = (*FFmpegTranscoder)(nil)
)

// FFmpegTranscoder implements Transcoder using the ffmpeg CLI.
type FFmpegTranscoder struct {
	ffmpegPath   string
	ffprobePath  string
	targetHeight int
}

// Option configures an FFmpegTranscoder.
type Option func(*FFmpegTranscoder)

// WithFFprobePath overrides the ffprobe binary. Defaults to "ffprobe".
func WithFFprobePath(path string) Option {
	return func(t *FFmpegTranscoder) {
		if path != "" {
			t.ffprobePath = path
		}
	}
}

// WithTargetHeight sets the output height in lines.
func WithTargetHeight(height int) Option {
	return func(t *FFmpegTranscoder) {
		t.targetHeight = height
	}
}

// NewFFmpegTranscoder creates a new FFmpegTranscoder.
// If ffmpegPath is empty, it defaults to "ffmpeg" (found via PATH).
func NewFFmpegTranscoder(ffmpegPath string, opts ...Option) *FFmpegTranscoder {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	t := &FFmpegTranscoder{
		ffmpegPath:   ffmpegPath,
		ffprobePath:  "ffprobe",
		targetHeight: DefaultTargetHeight,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// TargetHeight returns the configured output height.
func (t *FFmpegTranscoder) TargetHeight() int {
	return t.targetHeight
}

// Transcode rescales src to the target height and writes dst.
// The width is chosen by ffmpeg to keep the aspect ratio, rounded to an even
// number so that yuv420 encoders accept it.
func (t *FFmpegTranscoder) Transcode(ctx context.Context, src, dst string) error {
	if t.targetHeight <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidHeight, t.targetHeight)
	}

	args := []string{
		"-y", // Overwrite output file without asking
		"-hide_banner",
		"-loglevel", "error", // Keep stderr focused on errors
		"-i", src, // Input file
		"-vf", ScaleFilter(t.targetHeight), // Rescale
		dst, // Output file
	}

	return t.runFFmpeg(ctx, args)
}

// ScaleFilter returns the ffmpeg filter that rescales to height lines with an
// automatic width.
func ScaleFilter(height int) string {
	return fmt.Sprintf("scale=-2:%d", height)
}

// runFFmpeg executes ffmpeg with the given arguments and returns a
// *TranscodeError holding stderr if the command fails.
func (t *FFmpegTranscoder) runFFmpeg(ctx context.Context, args []string) error {
	// #nosec G204 - ffmpegPath is set by the application, not user input
	cmd := exec.CommandContext(ctx, t.ffmpegPath, args...)
	cmd.WaitDelay = waitDelay

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	// Run always waits for the process, releasing its handle on every path.
	err := cmd.Run()
	if err != nil {
		// Check if context was cancelled
		if ctx.Err() != nil {
			return fmt.Errorf("ffmpeg cancelled: %w", ctx.Err())
		}
		return &TranscodeError{
			Message: summarize(stderr.String(), err),
			Args:    args,
			Stderr:  stderr.String(),
			Err:     err,
		}
	}

	return nil
}

// TranscodeError represents a failed ffmpeg run.
type TranscodeError struct {
	// Message is a short, non-empty description of the failure.
	Message string
	Args    []string
	Stderr  string
	Err     error
}

func (e *TranscodeError) Error() string {
	return fmt.Sprintf("ffmpeg error: %s (%v)\nargs: %v\nstderr: %s", e.Message, e.Err, e.Args, e.Stderr)
}

func (e *TranscodeError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrTranscode) true for any *TranscodeError.
func (e *TranscodeError) Is(target error) bool {
	return target == ErrTranscode
}

// summarize picks the last non-empty stderr line, falling back to err.
func summarize(stderr string, err error) string {
	lines := strings.Split(strings.TrimSpace(stderr), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	if err != nil && err.Error() != "" {
		return err.Error()
	}
	return "ffmpeg exited with an unknown error"
}

// ProbeDimensions returns the width and height of the first video stream.
func (t *FFmpegTranscoder) ProbeDimensions(ctx context.Context, path string) (int, int, error) {
	// #nosec G204 - ffprobePath is set by the application, not user input
	cmd := exec.CommandContext(ctx, t.ffprobePath,
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height",
		"-of", "csv=s=x:p=0",
		path,
	)
	cmd.WaitDelay = waitDelay

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		if ctx.Err() != nil {
			return 0, 0, fmt.Errorf("ffprobe cancelled: %w", ctx.Err())
		}
		return 0, 0, fmt.Errorf("%w: %w, stderr: %s", ErrFFprobeExecution, err, stderr.String())
	}

	var w, h int
	if _, err := fmt.Sscanf(strings.TrimSpace(stdout.String()), "%dx%d", &w, &h); err != nil {
		return 0, 0, fmt.Errorf("parse dimensions %q: %w", stdout.String(), err)
	}

	return w, h, nil
}
