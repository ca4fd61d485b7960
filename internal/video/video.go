// Package video tracks raw uploads through the processing pipeline.
// It holds the Video record with its status machine, repositories for
// persisting those records, a per-video file lock, and the Service that
// composes download, transcode, upload and cleanup.
package video

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
)

// Status represents the processing state of a Video.
type Status string

const (
	// StatusProcessing indicates the video was claimed and is in the pipeline.
	StatusProcessing Status = "processing"
	// StatusProcessed indicates the processed file is public in the processed bucket.
	StatusProcessed Status = "processed"
	// StatusFailed indicates a pipeline stage failed.
	StatusFailed Status = "failed"
)

// Static errors for video records.
var (
	// ErrInvalidTransition is returned when an invalid status transition is attempted.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrInvalidVideoID is returned when no ID can be derived from a file name.
	ErrInvalidVideoID = errors.New("cannot derive video ID from file name")
)

// validTransitions defines which status transitions are allowed.
var validTransitions = map[Status][]Status{
	StatusProcessing: {StatusProcessed, StatusFailed},
	StatusProcessed:  {},
	StatusFailed:     {},
}

// Video is the metadata record of one uploaded video.
type Video struct {
	// ID is the file name up to its first dot.
	ID string `json:"id" dynamodbav:"id"`
	// UID identifies the uploader: the ID up to its first dash.
	UID string `json:"uid" dynamodbav:"uid"`
	// FileName is the raw object key.
	FileName string `json:"fileName" dynamodbav:"fileName"`
	// ProcessedFileName is the processed object key, set once uploaded.
	ProcessedFileName string `json:"processedFileName,omitempty" dynamodbav:"processedFileName,omitempty"`
	// Status is the current processing state.
	Status Status `json:"status" dynamodbav:"status"`
	// Error holds the failure message when Status is failed.
	Error     string    `json:"error,omitempty" dynamodbav:"error,omitempty"`
	CreatedAt time.Time `json:"createdAt" dynamodbav:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" dynamodbav:"updatedAt"`
}

// New creates a Video in processing status for a raw file name.
func New(fileName string) (*Video, error) {
	id, uid, err := ParseFileName(fileName)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	return &Video{
		ID:        id,
		UID:       uid,
		FileName:  fileName,
		Status:    StatusProcessing,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// ParseFileName derives the video ID and uploader UID from a raw file name
// such as "<uid>-<timestamp>.mp4".
func ParseFileName(fileName string) (id, uid string, err error) {
	id, _, _ = strings.Cut(fileName, ".")
	if id == "" {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidVideoID, fileName)
	}
	uid, _, _ = strings.Cut(id, "-")
	return id, uid, nil
}

// TransitionTo changes the status if the transition is allowed.
func (v *Video) TransitionTo(status Status) error {
	if !slices.Contains(validTransitions[v.Status], status) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, v.Status, status)
	}
	v.Status = status
	v.UpdatedAt = time.Now().UTC()
	return nil
}

// MarkProcessed records the processed object key and completes the video.
func (v *Video) MarkProcessed(processedFileName string) error {
	if err := v.TransitionTo(StatusProcessed); err != nil {
		return err
	}
	v.ProcessedFileName = processedFileName
	return nil
}

// MarkFailed records errMsg and fails the video.
func (v *Video) MarkFailed(errMsg string) error {
	if err := v.TransitionTo(StatusFailed); err != nil {
		return err
	}
	v.Error = errMsg
	return nil
}

// IsTerminal returns true if no further transitions are possible.
func (v *Video) IsTerminal() bool {
	return len(validTransitions[v.Status]) == 0
}

// Clone returns a copy safe to hand out of a repository.
func (v *Video) Clone() *Video {
	c := *v
	return &c
}
