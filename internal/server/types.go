// Package server provides the HTTP server for the video processing service.
// It includes handlers, middleware, routes, and DTOs separated from domain types.
package server

import (
	"time"

	"github.com/maauso/video-processing-service/internal/video"
)

// VideoResponse is the HTTP representation of a video record.
type VideoResponse struct {
	// ID is the video identifier derived from the raw file name.
	ID string `json:"id"`
	// UID identifies the uploader.
	UID string `json:"uid"`
	// FileName is the raw object key.
	FileName string `json:"fileName"`
	// ProcessedFileName is the processed object key, once published.
	ProcessedFileName string `json:"processedFileName,omitempty"`
	// Status is the current processing status.
	Status string `json:"status"`
	// Error contains the failure message if processing failed.
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ListVideosResponse is the HTTP response for listing videos.
type ListVideosResponse struct {
	Videos []VideoResponse `json:"videos"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	// Error is the human-readable error message.
	Error string `json:"error"`
	// Code is the error code for programmatic handling.
	Code string `json:"code"`
}

// HealthResponse is the HTTP response for the health check endpoint.
type HealthResponse struct {
	// Status is the health status of the service.
	Status string `json:"status"`
}

func toVideoResponse(v *video.Video) VideoResponse {
	return VideoResponse{
		ID:                v.ID,
		UID:               v.UID,
		FileName:          v.FileName,
		ProcessedFileName: v.ProcessedFileName,
		Status:            string(v.Status),
		Error:             v.Error,
		CreatedAt:         v.CreatedAt,
		UpdatedAt:         v.UpdatedAt,
	}
}
