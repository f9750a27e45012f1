package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/vidtube/backend/internal/middleware"
	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/repositories"
)

// LikeHandler implements like toggles for videos, comments and tweets.
type LikeHandler struct {
	Likes    repositories.LikeRepository
	Videos   repositories.VideoRepository
	Comments repositories.CommentRepository
	Tweets   repositories.TweetRepository
	NowFunc  func() time.Time
}

// ToggleVideo handles POST /api/v1/likes/videos/{videoId}.
func (h LikeHandler) ToggleVideo(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, models.LikeTargetVideo, "videoId", func(ctx context.Context, id string) error {
		_, err := h.Videos.FindByID(ctx, id)
		return err
	})
}

// ToggleComment handles POST /api/v1/likes/comments/{commentId}.
func (h LikeHandler) ToggleComment(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, models.LikeTargetComment, "commentId", func(ctx context.Context, id string) error {
		_, err := h.Comments.FindByID(ctx, id)
		return err
	})
}

// ToggleTweet handles POST /api/v1/likes/tweets/{tweetId}.
func (h LikeHandler) ToggleTweet(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, models.LikeTargetTweet, "tweetId", func(ctx context.Context, id string) error {
		_, err := h.Tweets.FindByID(ctx, id)
		return err
	})
}

// ListVideos handles GET /api/v1/likes/videos, listing the videos the
// authenticated user has liked.
func (h LikeHandler) ListVideos(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.PrincipalFromContext(ctx)
	q := r.URL.Query()

	page := parsePositiveInt(q.Get("page"), 1)
	limit := parsePositiveInt(q.Get("limit"), 10)

	videos, total, err := h.Likes.ListVideosForUser(ctx, userID, page, limit)
	if err != nil {
		respondFailure(ctx, w, err, "unable to list liked videos")
		return
	}

	respondJSON(ctx, w, http.StatusOK, listResponse[models.Video]{
		Items: videos,
		Total: total,
		Page:  page,
		Limit: limit,
	}, "liked videos")
}

// toggle flips the like state for one target. The target must exist before
// anything is written.
func (h LikeHandler) toggle(w http.ResponseWriter, r *http.Request, targetType, param string,
	exists func(ctx context.Context, id string) error) {
	ctx := r.Context()
	userID := middleware.PrincipalFromContext(ctx)
	targetID := r.PathValue(param)

	if err := exists(ctx, targetID); err != nil {
		respondFailure(ctx, w, err, "unable to load like target")
		return
	}

	liked := false
	_, err := h.Likes.Find(ctx, userID, targetType, targetID)
	switch {
	case err == nil:
		if err := h.Likes.DeleteByTarget(ctx, userID, targetType, targetID); err != nil {
			respondFailure(ctx, w, err, "failed to remove like")
			return
		}
	case errors.Is(err, repositories.ErrNotFound):
		like := models.Like{
			ID:         uuid.NewString(),
			UserID:     userID,
			TargetType: targetType,
			TargetID:   targetID,
			CreatedAt:  h.now(),
		}
		if err := h.Likes.Create(ctx, like); err != nil && !errors.Is(err, repositories.ErrConflict) {
			respondFailure(ctx, w, err, "failed to record like")
			return
		}
		liked = true
	default:
		respondFailure(ctx, w, err, "unable to check like state")
		return
	}

	count, err := h.Likes.CountForTarget(ctx, targetType, targetID)
	if err != nil {
		respondFailure(ctx, w, err, "unable to count likes")
		return
	}

	respondJSON(ctx, w, http.StatusOK, likeResponse{Liked: liked, Count: count}, "like toggled")
}

func (h LikeHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now().UTC()
}

type likeResponse struct {
	Liked bool  `json:"liked"`
	Count int64 `json:"count"`
}
