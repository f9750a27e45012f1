package app

import (
	"time"

	"github.com/vidtube/backend/internal/auth"
	"github.com/vidtube/backend/internal/channels"
	"github.com/vidtube/backend/internal/config"
	"github.com/vidtube/backend/internal/db"
	"github.com/vidtube/backend/internal/handlers"
	"github.com/vidtube/backend/internal/middleware"
	"github.com/vidtube/backend/internal/repositories"
	"github.com/vidtube/backend/internal/uploads"
)

// buildDependencies wires together concrete implementations used by the HTTP handlers.
func buildDependencies(pool db.Pool, cfg config.Config, saga *uploads.Saga) handlers.Dependencies {
	users := repositories.NewPostgresUserRepository(pool)
	subscriptions := repositories.NewPostgresSubscriptionRepository(pool)
	credentials := repositories.NewPostgresCredentialStore(pool)

	profiles := channels.NewCachingProvider(channels.NewService(users, subscriptions), cfg.ProfileCacheTTL)

	return handlers.Dependencies{
		Users:         users,
		Videos:        repositories.NewPostgresVideoRepository(pool),
		Comments:      repositories.NewPostgresCommentRepository(pool),
		Tweets:        repositories.NewPostgresTweetRepository(pool),
		Playlists:     repositories.NewPostgresPlaylistRepository(pool),
		Likes:         repositories.NewPostgresLikeRepository(pool),
		Subscriptions: subscriptions,

		Sessions: auth.NewManager(cfg.TokenSecret, cfg.AccessTTL, cfg.RefreshTTL, credentials),
		Profiles: profiles,
		Saga:     saga,

		LoginLimiter:  middleware.NewIPRateLimiter(10, time.Minute, 5, 10*time.Minute),
		UploadDir:     cfg.UploadDir,
		SecureCookies: cfg.Production(),
	}
}
