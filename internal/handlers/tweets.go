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

// TweetHandler implements the short text post endpoints.
type TweetHandler struct {
	Tweets  repositories.TweetRepository
	Users   repositories.UserRepository
	NowFunc func() time.Time
}

// Create handles POST /api/v1/tweets.
func (h TweetHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	var req tweetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid tweet payload", "error", err)
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}

	content := strings.TrimSpace(req.Content)
	if content == "" {
		respondError(ctx, w, http.StatusBadRequest, "content is required")
		return
	}

	now := h.now()
	tweet := models.Tweet{
		ID:        uuid.NewString(),
		Owners:    []string{middleware.PrincipalFromContext(ctx)},
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := h.Tweets.Create(ctx, tweet); err != nil {
		respondFailure(ctx, w, err, "failed to create tweet")
		return
	}

	respondJSON(ctx, w, http.StatusCreated, tweet, "tweet created")
}

// ListByUser handles GET /api/v1/tweets/user/{userId}.
func (h TweetHandler) ListByUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	owner, err := h.Users.FindByID(ctx, r.PathValue("userId"))
	if err != nil {
		respondFailure(ctx, w, err, "unable to load user")
		return
	}

	tweets, err := h.Tweets.ListByOwner(ctx, owner.ID)
	if err != nil {
		respondFailure(ctx, w, err, "unable to list tweets")
		return
	}

	respondJSON(ctx, w, http.StatusOK, tweets, "tweets")
}

// Update handles PATCH /api/v1/tweets/{tweetId}.
func (h TweetHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	tweet, err := h.ownedTweet(ctx, r)
	if err != nil {
		respondFailure(ctx, w, err, "unable to load tweet")
		return
	}

	var req tweetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid tweet payload", "error", err)
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}

	content := strings.TrimSpace(req.Content)
	if content == "" {
		respondError(ctx, w, http.StatusBadRequest, "content is required")
		return
	}

	tweet.Content = content
	tweet.UpdatedAt = h.now()
	if err := h.Tweets.Update(ctx, tweet); err != nil {
		respondFailure(ctx, w, err, "failed to update tweet")
		return
	}

	respondJSON(ctx, w, http.StatusOK, tweet, "tweet updated")
}

// Delete handles DELETE /api/v1/tweets/{tweetId}.
func (h TweetHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	tweet, err := h.ownedTweet(ctx, r)
	if err != nil {
		respondFailure(ctx, w, err, "unable to load tweet")
		return
	}

	if err := h.Tweets.Delete(ctx, tweet.ID); err != nil {
		respondFailure(ctx, w, err, "failed to delete tweet")
		return
	}

	respondJSON(ctx, w, http.StatusOK, nil, "tweet deleted")
}

func (h TweetHandler) ownedTweet(ctx context.Context, r *http.Request) (models.Tweet, error) {
	tweet, err := h.Tweets.FindByID(ctx, r.PathValue("tweetId"))
	if err != nil {
		return models.Tweet{}, err
	}
	if err := authz.Authorize(middleware.PrincipalFromContext(ctx), tweet.Owners...); err != nil {
		return models.Tweet{}, err
	}
	return tweet, nil
}

func (h TweetHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now().UTC()
}

type tweetRequest struct {
	Content string `json:"content"`
}
