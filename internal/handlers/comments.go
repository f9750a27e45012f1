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

// CommentHandler implements comment endpoints scoped to a video.
type CommentHandler struct {
	Comments repositories.CommentRepository
	Videos   repositories.VideoRepository
	NowFunc  func() time.Time
}

// Create handles POST /api/v1/videos/{videoId}/comments.
func (h CommentHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	video, err := h.Videos.FindByID(ctx, r.PathValue("videoId"))
	if err != nil {
		respondFailure(ctx, w, err, "unable to load video")
		return
	}

	var req commentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid comment payload", "error", err)
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}

	content := strings.TrimSpace(req.Content)
	if content == "" {
		respondError(ctx, w, http.StatusBadRequest, "content is required")
		return
	}

	now := h.now()
	comment := models.Comment{
		ID:        uuid.NewString(),
		VideoID:   video.ID,
		OwnerID:   middleware.PrincipalFromContext(ctx),
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := h.Comments.Create(ctx, comment); err != nil {
		respondFailure(ctx, w, err, "failed to create comment")
		return
	}

	respondJSON(ctx, w, http.StatusCreated, comment, "comment created")
}

// List handles GET /api/v1/videos/{videoId}/comments.
func (h CommentHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	video, err := h.Videos.FindByID(ctx, r.PathValue("videoId"))
	if err != nil {
		respondFailure(ctx, w, err, "unable to load video")
		return
	}

	q := r.URL.Query()
	page := parsePositiveInt(q.Get("page"), 1)
	limit := parsePositiveInt(q.Get("limit"), 10)

	comments, total, err := h.Comments.ListByVideo(ctx, video.ID, page, limit)
	if err != nil {
		respondFailure(ctx, w, err, "unable to list comments")
		return
	}

	respondJSON(ctx, w, http.StatusOK, listResponse[models.Comment]{
		Items: comments,
		Total: total,
		Page:  page,
		Limit: limit,
	}, "comments")
}

// Update handles PATCH /api/v1/comments/{commentId}.
func (h CommentHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	comment, err := h.ownedComment(ctx, r)
	if err != nil {
		respondFailure(ctx, w, err, "unable to load comment")
		return
	}

	var req commentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid comment payload", "error", err)
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}

	content := strings.TrimSpace(req.Content)
	if content == "" {
		respondError(ctx, w, http.StatusBadRequest, "content is required")
		return
	}

	comment.Content = content
	comment.UpdatedAt = h.now()
	if err := h.Comments.Update(ctx, comment); err != nil {
		respondFailure(ctx, w, err, "failed to update comment")
		return
	}

	respondJSON(ctx, w, http.StatusOK, comment, "comment updated")
}

// Delete handles DELETE /api/v1/comments/{commentId}.
func (h CommentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	comment, err := h.ownedComment(ctx, r)
	if err != nil {
		respondFailure(ctx, w, err, "unable to load comment")
		return
	}

	if err := h.Comments.Delete(ctx, comment.ID); err != nil {
		respondFailure(ctx, w, err, "failed to delete comment")
		return
	}

	respondJSON(ctx, w, http.StatusOK, nil, "comment deleted")
}

// ownedComment loads the addressed comment and checks authorship. A missing
// comment surfaces before the ownership decision.
func (h CommentHandler) ownedComment(ctx context.Context, r *http.Request) (models.Comment, error) {
	comment, err := h.Comments.FindByID(ctx, r.PathValue("commentId"))
	if err != nil {
		return models.Comment{}, err
	}
	if err := authz.Authorize(middleware.PrincipalFromContext(ctx), comment.OwnerID); err != nil {
		return models.Comment{}, err
	}
	return comment, nil
}

func (h CommentHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now().UTC()
}

type commentRequest struct {
	Content string `json:"content"`
}
