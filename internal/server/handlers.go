package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/maauso/video-processing-service/internal/event"
	"github.com/maauso/video-processing-service/internal/storage"
	"github.com/maauso/video-processing-service/internal/video"
)

// maxBodyBytes caps push request bodies.
const maxBodyBytes = 1 << 20

// VideoService is the subset of *video.Service used by the handlers.
type VideoService interface {
	Process(ctx context.Context, rawName string) (*video.Video, error)
	GetVideo(ctx context.Context, id string) (*video.Video, error)
	ListVideos(ctx context.Context) ([]*video.Video, error)
}

// Handlers contains the HTTP handlers for the API.
type Handlers struct {
	service VideoService
	logger  *slog.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(service VideoService, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{
		service: service,
		logger:  logger,
	}
}

// Health handles GET /health requests.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// ProcessVideo handles POST /process-video requests. The body is a Pub/Sub
// push envelope; the video is processed before the response is written so
// the push subscription retries on failure.
func (h *Handlers) ProcessVideo(w http.ResponseWriter, r *http.Request) {
	payload, err := event.ParsePush(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		h.logger.Warn("invalid push message",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, err.Error(), "INVALID_MESSAGE")
		return
	}

	v, err := h.service.Process(r.Context(), payload.Name)
	if err != nil {
		switch {
		case errors.Is(err, video.ErrVideoAlreadyExists):
			writeError(w, http.StatusBadRequest, "video already processing or processed", "VIDEO_ALREADY_PROCESSED")
		case errors.Is(err, storage.ErrInvalidName), errors.Is(err, video.ErrInvalidVideoID):
			writeError(w, http.StatusBadRequest, err.Error(), "INVALID_VIDEO_NAME")
		default:
			h.logger.Error("video processing failed",
				slog.String("file", payload.Name),
				slog.String("error", err.Error()),
			)
			writeError(w, http.StatusInternalServerError, "processing failed", "PROCESSING_FAILED")
		}
		return
	}

	writeJSON(w, http.StatusOK, toVideoResponse(v))
}

// GetVideo handles GET /videos/{id} requests.
func (h *Handlers) GetVideo(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "video ID is required", "MISSING_VIDEO_ID")
		return
	}

	v, err := h.service.GetVideo(r.Context(), id)
	if err != nil {
		if errors.Is(err, video.ErrVideoNotFound) {
			writeError(w, http.StatusNotFound, "video not found", "VIDEO_NOT_FOUND")
			return
		}
		h.logger.Error("failed to get video",
			slog.String("video_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get video", "VIDEO_FETCH_FAILED")
		return
	}

	writeJSON(w, http.StatusOK, toVideoResponse(v))
}

// ListVideos handles GET /videos requests.
func (h *Handlers) ListVideos(w http.ResponseWriter, r *http.Request) {
	videos, err := h.service.ListVideos(r.Context())
	if err != nil {
		h.logger.Error("failed to list videos",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list videos", "VIDEO_LIST_FAILED")
		return
	}

	resp := ListVideosResponse{Videos: make([]VideoResponse, 0, len(videos))}
	for _, v := range videos {
		resp.Videos = append(resp.Videos, toVideoResponse(v))
	}
	writeJSON(w, http.StatusOK, resp)
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
	}
}

// writeError writes an error response in the standard format.
func writeError(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}
