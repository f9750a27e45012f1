// Package channels assembles the public view of a channel: the user record
// plus subscription totals and whether the viewer already subscribes.
package channels

import (
	"context"
	"errors"

	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/repositories"
)

// ErrChannelNotFound indicates no channel exists for the requested username.
var ErrChannelNotFound = errors.New("channel not found")

// ProfileProvider resolves channel profiles by username.
type ProfileProvider interface {
	Profile(ctx context.Context, username, viewerID string) (models.ChannelProfile, error)
}

// Service builds channel profiles from the user and subscription repositories.
type Service struct {
	users repositories.UserRepository
	subs  repositories.SubscriptionRepository
}

// NewService constructs a channel profile service.
func NewService(users repositories.UserRepository, subs repositories.SubscriptionRepository) *Service {
	return &Service{users: users, subs: subs}
}

// Profile returns the channel profile for username as seen by viewerID.
// viewerID may be empty for anonymous viewers.
func (s *Service) Profile(ctx context.Context, username, viewerID string) (models.ChannelProfile, error) {
	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return models.ChannelProfile{}, ErrChannelNotFound
		}
		return models.ChannelProfile{}, err
	}

	subscribers, err := s.subs.CountSubscribers(ctx, user.ID)
	if err != nil {
		return models.ChannelProfile{}, err
	}

	subscribed, err := s.subs.CountSubscribedTo(ctx, user.ID)
	if err != nil {
		return models.ChannelProfile{}, err
	}

	profile := models.ChannelProfile{
		User:            user,
		SubscriberCount: subscribers,
		SubscribedCount: subscribed,
	}

	if viewerID != "" && viewerID != user.ID {
		_, err := s.subs.Find(ctx, viewerID, user.ID)
		switch {
		case err == nil:
			profile.IsSubscribed = true
		case errors.Is(err, repositories.ErrNotFound):
		default:
			return models.ChannelProfile{}, err
		}
	}

	return profile, nil
}
