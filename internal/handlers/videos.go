package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vidtube/backend/internal/authz"
	"github.com/vidtube/backend/internal/logging"
	"github.com/vidtube/backend/internal/middleware"
	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/repositories"
	"github.com/vidtube/backend/internal/storage"
	"github.com/vidtube/backend/internal/uploads"
)

// VideoHandler implements the video publishing and catalogue endpoints.
type VideoHandler struct {
	Videos    repositories.VideoRepository
	Saga      *uploads.Saga
	UploadDir string
	NowFunc   func() time.Time
}

// Publish handles POST /api/v1/videos. The video file and thumbnail are both
// required; the catalogue row is written only after both blobs are stored,
// and the blobs are rolled back in reverse order if that write fails.
func (h VideoHandler) Publish(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)
	userID := middleware.PrincipalFromContext(ctx)

	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		logger.Warn("invalid publish form", "error", err)
		respondError(ctx, w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	title := strings.TrimSpace(r.FormValue("title"))
	description := strings.TrimSpace(r.FormValue("description"))
	if title == "" {
		respondError(ctx, w, http.StatusBadRequest, "title is required")
		return
	}

	duration := 0.0
	if raw := strings.TrimSpace(r.FormValue("duration")); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil || parsed < 0 {
			respondError(ctx, w, http.StatusBadRequest, "duration must be a non-negative number")
			return
		}
		duration = parsed
	}

	videoFile, _, err := stageUpload(r, h.UploadDir, "videoFile", true)
	if err != nil {
		respondFailure(ctx, w, err, "unable to stage video upload")
		return
	}
	thumbnail, _, err := stageUpload(r, h.UploadDir, "thumbnail", true)
	if err != nil {
		defer videoFile.Remove()
		respondFailure(ctx, w, err, "unable to stage thumbnail upload")
		return
	}

	videoID := uuid.NewString()
	assets := []uploads.Asset{
		{Field: "videoFile", Key: videoFile.ObjectKey("videos/" + videoID), Staged: videoFile},
		{Field: "thumbnail", Key: thumbnail.ObjectKey("thumbnails/" + videoID), Staged: thumbnail},
	}

	now := h.now()
	var video models.Video
	err = h.Saga.Run(ctx, assets, func(ctx context.Context, blobs map[string]storage.Blob) error {
		video = models.Video{
			ID:           videoID,
			Owners:       []string{userID},
			Title:        title,
			Description:  description,
			VideoFile:    blobs["videoFile"].URL,
			VideoKey:     blobs["videoFile"].Key,
			Thumbnail:    blobs["thumbnail"].URL,
			ThumbnailKey: blobs["thumbnail"].Key,
			Duration:     duration,
			IsPublished:  true,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		return h.Videos.Create(ctx, video)
	})
	if err != nil {
		respondFailure(ctx, w, err, "failed to publish video")
		return
	}

	respondJSON(ctx, w, http.StatusCreated, video, "video published")
}

// Get handles GET /api/v1/videos/{videoId}. Each successful fetch counts as
// a view.
func (h VideoHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	video, err := h.Videos.FindByID(ctx, r.PathValue("videoId"))
	if err != nil {
		respondFailure(ctx, w, err, "unable to load video")
		return
	}

	if err := h.Videos.IncrementViews(ctx, video.ID); err != nil {
		logging.FromContext(ctx).Error("increment views", "videoId", video.ID, "error", err)
	} else {
		video.Views++
	}

	respondJSON(ctx, w, http.StatusOK, video, "video")
}

// List handles GET /api/v1/videos with query, userId, sortBy, sortType,
// page and limit query parameters.
func (h VideoHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	filter := repositories.VideoFilter{
		Query:   strings.TrimSpace(q.Get("query")),
		OwnerID: strings.TrimSpace(q.Get("userId")),
		SortBy:  strings.TrimSpace(q.Get("sortBy")),
		SortAsc: strings.EqualFold(q.Get("sortType"), "asc"),
		Page:    parsePositiveInt(q.Get("page"), 1),
		Limit:   parsePositiveInt(q.Get("limit"), 10),
	}

	videos, total, err := h.Videos.List(ctx, filter)
	if err != nil {
		respondFailure(ctx, w, err, "unable to list videos")
		return
	}

	respondJSON(ctx, w, http.StatusOK, listResponse[models.Video]{
		Items: videos,
		Total: total,
		Page:  filter.Page,
		Limit: filter.Limit,
	}, "videos")
}

// Update handles PATCH /api/v1/videos/{videoId} for title and description.
func (h VideoHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	video, err := h.ownedVideo(ctx, r)
	if err != nil {
		respondFailure(ctx, w, err, "unable to load video")
		return
	}

	var req updateVideoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid video update payload", "error", err)
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}

	title := strings.TrimSpace(req.Title)
	description := strings.TrimSpace(req.Description)
	if title == "" && description == "" {
		respondError(ctx, w, http.StatusBadRequest, "title or description is required")
		return
	}
	if title != "" {
		video.Title = title
	}
	if description != "" {
		video.Description = description
	}

	video.UpdatedAt = h.now()
	if err := h.Videos.Update(ctx, video); err != nil {
		respondFailure(ctx, w, err, "failed to update video")
		return
	}

	respondJSON(ctx, w, http.StatusOK, video, "video updated")
}

// UpdateThumbnail handles PATCH /api/v1/videos/{videoId}/thumbnail. The old
// thumbnail blob survives until the catalogue row points at the new one.
func (h VideoHandler) UpdateThumbnail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		logger.Warn("invalid thumbnail form", "error", err)
		respondError(ctx, w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	video, err := h.ownedVideo(ctx, r)
	if err != nil {
		respondFailure(ctx, w, err, "unable to load video")
		return
	}

	staged, _, err := stageUpload(r, h.UploadDir, "thumbnail", true)
	if err != nil {
		respondFailure(ctx, w, err, "unable to stage thumbnail upload")
		return
	}

	asset := uploads.Asset{Field: "thumbnail", Key: staged.ObjectKey("thumbnails/" + video.ID), Staged: staged}
	oldKey := video.ThumbnailKey

	err = h.Saga.Replace(ctx, asset, oldKey, func(ctx context.Context, blob storage.Blob) error {
		video.Thumbnail = blob.URL
		video.ThumbnailKey = blob.Key
		video.UpdatedAt = h.now()
		return h.Videos.Update(ctx, video)
	})
	if err != nil {
		respondFailure(ctx, w, err, "failed to update thumbnail")
		return
	}

	respondJSON(ctx, w, http.StatusOK, video, "thumbnail updated")
}

// Delete handles DELETE /api/v1/videos/{videoId}. The catalogue row goes
// first; blob deletion is best effort once nothing references the blobs.
func (h VideoHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	video, err := h.ownedVideo(ctx, r)
	if err != nil {
		respondFailure(ctx, w, err, "unable to load video")
		return
	}

	if err := h.Videos.Delete(ctx, video.ID); err != nil {
		respondFailure(ctx, w, err, "failed to delete video")
		return
	}

	h.Saga.Discard(video.VideoKey, video.ThumbnailKey)
	respondJSON(ctx, w, http.StatusOK, nil, "video deleted")
}

// TogglePublish handles PATCH /api/v1/videos/{videoId}/publish.
func (h VideoHandler) TogglePublish(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	video, err := h.ownedVideo(ctx, r)
	if err != nil {
		respondFailure(ctx, w, err, "unable to load video")
		return
	}

	video.IsPublished = !video.IsPublished
	video.UpdatedAt = h.now()
	if err := h.Videos.Update(ctx, video); err != nil {
		respondFailure(ctx, w, err, "failed to update video")
		return
	}

	respondJSON(ctx, w, http.StatusOK, video, "publish state toggled")
}

// ownedVideo loads the addressed video and checks ownership. Lookup failure
// surfaces before the ownership decision so missing videos stay 404.
func (h VideoHandler) ownedVideo(ctx context.Context, r *http.Request) (models.Video, error) {
	video, err := h.Videos.FindByID(ctx, r.PathValue("videoId"))
	if err != nil {
		return models.Video{}, err
	}
	if err := authz.Authorize(middleware.PrincipalFromContext(ctx), video.Owners...); err != nil {
		return models.Video{}, err
	}
	return video, nil
}

func (h VideoHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now().UTC()
}

func parsePositiveInt(raw string, fallback int) int {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || value < 1 {
		return fallback
	}
	return value
}

type updateVideoRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type listResponse[T any] struct {
	Items []T   `json:"items"`
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
}
