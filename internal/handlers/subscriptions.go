package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/vidtube/backend/internal/middleware"
	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/repositories"
)

// SubscriptionHandler implements channel subscription endpoints.
type SubscriptionHandler struct {
	Subscriptions repositories.SubscriptionRepository
	Users         repositories.UserRepository
	NowFunc       func() time.Time
}

// Toggle handles POST /api/v1/subscriptions/{channelId}. Subscribing to a
// missing channel is 404; subscribing to yourself is rejected.
func (h SubscriptionHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	subscriberID := middleware.PrincipalFromContext(ctx)

	channel, err := h.Users.FindByID(ctx, r.PathValue("channelId"))
	if err != nil {
		respondFailure(ctx, w, err, "unable to load channel")
		return
	}
	if channel.ID == subscriberID {
		respondError(ctx, w, http.StatusBadRequest, "cannot subscribe to your own channel")
		return
	}

	subscribed := false
	_, err = h.Subscriptions.Find(ctx, subscriberID, channel.ID)
	switch {
	case err == nil:
		if err := h.Subscriptions.Delete(ctx, subscriberID, channel.ID); err != nil {
			respondFailure(ctx, w, err, "failed to unsubscribe")
			return
		}
	case errors.Is(err, repositories.ErrNotFound):
		sub := models.Subscription{
			ID:           uuid.NewString(),
			SubscriberID: subscriberID,
			ChannelID:    channel.ID,
			CreatedAt:    h.now(),
		}
		if err := h.Subscriptions.Create(ctx, sub); err != nil && !errors.Is(err, repositories.ErrConflict) {
			respondFailure(ctx, w, err, "failed to subscribe")
			return
		}
		subscribed = true
	default:
		respondFailure(ctx, w, err, "unable to check subscription state")
		return
	}

	count, err := h.Subscriptions.CountSubscribers(ctx, channel.ID)
	if err != nil {
		respondFailure(ctx, w, err, "unable to count subscribers")
		return
	}

	respondJSON(ctx, w, http.StatusOK, subscriptionResponse{Subscribed: subscribed, SubscriberCount: count}, "subscription toggled")
}

// ListSubscribers handles GET /api/v1/subscriptions/{channelId}/subscribers.
func (h SubscriptionHandler) ListSubscribers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	channel, err := h.Users.FindByID(ctx, r.PathValue("channelId"))
	if err != nil {
		respondFailure(ctx, w, err, "unable to load channel")
		return
	}

	subscribers, err := h.Subscriptions.ListSubscribers(ctx, channel.ID)
	if err != nil {
		respondFailure(ctx, w, err, "unable to list subscribers")
		return
	}

	respondJSON(ctx, w, http.StatusOK, subscribers, "subscribers")
}

// ListSubscribed handles GET /api/v1/subscriptions/me.
func (h SubscriptionHandler) ListSubscribed(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	channels, err := h.Subscriptions.ListSubscribedChannels(ctx, middleware.PrincipalFromContext(ctx))
	if err != nil {
		respondFailure(ctx, w, err, "unable to list subscribed channels")
		return
	}

	respondJSON(ctx, w, http.StatusOK, channels, "subscribed channels")
}

func (h SubscriptionHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now().UTC()
}

type subscriptionResponse struct {
	Subscribed      bool  `json:"subscribed"`
	SubscriberCount int64 `json:"subscriberCount"`
}
