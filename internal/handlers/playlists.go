package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vidtube/backend/internal/authz"
	"github.com/vidtube/backend/internal/logging"
	"github.com/vidtube/backend/internal/middleware"
	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/repositories"
)

// PlaylistHandler implements the playlist curation endpoints.
type PlaylistHandler struct {
	Playlists repositories.PlaylistRepository
	Videos    repositories.VideoRepository
	Users     repositories.UserRepository
	NowFunc   func() time.Time
}

// Create handles POST /api/v1/playlists.
func (h PlaylistHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	var req playlistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid playlist payload", "error", err)
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		respondError(ctx, w, http.StatusBadRequest, "name is required")
		return
	}

	now := h.now()
	playlist := models.Playlist{
		ID:          uuid.NewString(),
		Owners:      []string{middleware.PrincipalFromContext(ctx)},
		Name:        name,
		Description: strings.TrimSpace(req.Description),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := h.Playlists.Create(ctx, playlist); err != nil {
		respondFailure(ctx, w, err, "failed to create playlist")
		return
	}

	respondJSON(ctx, w, http.StatusCreated, playlist, "playlist created")
}

// Get handles GET /api/v1/playlists/{playlistId}.
func (h PlaylistHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	playlist, err := h.Playlists.FindByID(ctx, r.PathValue("playlistId"))
	if err != nil {
		respondFailure(ctx, w, err, "unable to load playlist")
		return
	}

	respondJSON(ctx, w, http.StatusOK, playlist, "playlist")
}

// ListByUser handles GET /api/v1/playlists/user/{userId}.
func (h PlaylistHandler) ListByUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	owner, err := h.Users.FindByID(ctx, r.PathValue("userId"))
	if err != nil {
		respondFailure(ctx, w, err, "unable to load user")
		return
	}

	playlists, err := h.Playlists.ListByOwner(ctx, owner.ID)
	if err != nil {
		respondFailure(ctx, w, err, "unable to list playlists")
		return
	}

	respondJSON(ctx, w, http.StatusOK, playlists, "playlists")
}

// Update handles PATCH /api/v1/playlists/{playlistId}.
func (h PlaylistHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	playlist, err := h.ownedPlaylist(ctx, r)
	if err != nil {
		respondFailure(ctx, w, err, "unable to load playlist")
		return
	}

	var req playlistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid playlist payload", "error", err)
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}

	name := strings.TrimSpace(req.Name)
	description := strings.TrimSpace(req.Description)
	if name == "" && description == "" {
		respondError(ctx, w, http.StatusBadRequest, "name or description is required")
		return
	}
	if name != "" {
		playlist.Name = name
	}
	if description != "" {
		playlist.Description = description
	}

	playlist.UpdatedAt = h.now()
	if err := h.Playlists.Update(ctx, playlist); err != nil {
		respondFailure(ctx, w, err, "failed to update playlist")
		return
	}

	respondJSON(ctx, w, http.StatusOK, playlist, "playlist updated")
}

// Delete handles DELETE /api/v1/playlists/{playlistId}.
func (h PlaylistHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	playlist, err := h.ownedPlaylist(ctx, r)
	if err != nil {
		respondFailure(ctx, w, err, "unable to load playlist")
		return
	}

	if err := h.Playlists.Delete(ctx, playlist.ID); err != nil {
		respondFailure(ctx, w, err, "failed to delete playlist")
		return
	}

	respondJSON(ctx, w, http.StatusOK, nil, "playlist deleted")
}

// AddVideo handles POST /api/v1/playlists/{playlistId}/videos/{videoId}.
// Both the playlist and the video must exist before membership changes.
func (h PlaylistHandler) AddVideo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	playlist, err := h.ownedPlaylist(ctx, r)
	if err != nil {
		respondFailure(ctx, w, err, "unable to load playlist")
		return
	}

	video, err := h.Videos.FindByID(ctx, r.PathValue("videoId"))
	if err != nil {
		respondFailure(ctx, w, err, "unable to load video")
		return
	}

	if err := h.Playlists.AddVideo(ctx, playlist.ID, video.ID); err != nil {
		respondFailure(ctx, w, err, "failed to add video to playlist")
		return
	}

	respondJSON(ctx, w, http.StatusOK, nil, "video added to playlist")
}

// RemoveVideo handles DELETE /api/v1/playlists/{playlistId}/videos/{videoId}.
func (h PlaylistHandler) RemoveVideo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	playlist, err := h.ownedPlaylist(ctx, r)
	if err != nil {
		respondFailure(ctx, w, err, "unable to load playlist")
		return
	}

	if err := h.Playlists.RemoveVideo(ctx, playlist.ID, r.PathValue("videoId")); err != nil {
		respondFailure(ctx, w, err, "failed to remove video from playlist")
		return
	}

	respondJSON(ctx, w, http.StatusOK, nil, "video removed from playlist")
}

func (h PlaylistHandler) ownedPlaylist(ctx context.Context, r *http.Request) (models.Playlist, error) {
	playlist, err := h.Playlists.FindByID(ctx, r.PathValue("playlistId"))
	if err != nil {
		return models.Playlist{}, err
	}
	if err := authz.Authorize(middleware.PrincipalFromContext(ctx), playlist.Owners...); err != nil {
		return models.Playlist{}, err
	}
	return playlist, nil
}

func (h PlaylistHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now().UTC()
}

type playlistRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}
