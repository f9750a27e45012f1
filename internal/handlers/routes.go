package handlers

import (
	"net/http"
	"time"

	"github.com/vidtube/backend/internal/channels"
	"github.com/vidtube/backend/internal/middleware"
	"github.com/vidtube/backend/internal/repositories"
	"github.com/vidtube/backend/internal/uploads"
)

// Dependencies aggregates collaborators required by HTTP handlers.
type Dependencies struct {
	Users         repositories.UserRepository
	Videos        repositories.VideoRepository
	Comments      repositories.CommentRepository
	Tweets        repositories.TweetRepository
	Playlists     repositories.PlaylistRepository
	Likes         repositories.LikeRepository
	Subscriptions repositories.SubscriptionRepository

	Sessions SessionManager
	Profiles channels.ProfileProvider
	Saga     *uploads.Saga

	LoginLimiter  RateLimiter
	UploadDir     string
	SecureCookies bool
	NowFunc       func() time.Time
}

// RegisterRoutes wires HTTP handlers into the provided ServeMux. Routes that
// mutate or read private state sit behind the auth middleware; rotation and
// login intentionally do not.
func RegisterRoutes(mux *http.ServeMux, deps Dependencies) {
	requireAuth := middleware.RequireAuth(deps.Sessions)
	optionalAuth := middleware.OptionalAuth(deps.Sessions)

	health := HealthHandler{}
	auth := AuthHandler{
		Users:         deps.Users,
		Sessions:      deps.Sessions,
		LoginLimiter:  deps.LoginLimiter,
		Saga:          deps.Saga,
		UploadDir:     deps.UploadDir,
		SecureCookies: deps.SecureCookies,
		NowFunc:       deps.NowFunc,
	}
	users := UserHandler{
		Users:     deps.Users,
		Profiles:  deps.Profiles,
		Saga:      deps.Saga,
		UploadDir: deps.UploadDir,
		NowFunc:   deps.NowFunc,
	}
	videos := VideoHandler{Videos: deps.Videos, Saga: deps.Saga, UploadDir: deps.UploadDir, NowFunc: deps.NowFunc}
	comments := CommentHandler{Comments: deps.Comments, Videos: deps.Videos, NowFunc: deps.NowFunc}
	tweets := TweetHandler{Tweets: deps.Tweets, Users: deps.Users, NowFunc: deps.NowFunc}
	playlists := PlaylistHandler{Playlists: deps.Playlists, Videos: deps.Videos, Users: deps.Users, NowFunc: deps.NowFunc}
	likes := LikeHandler{Likes: deps.Likes, Videos: deps.Videos, Comments: deps.Comments, Tweets: deps.Tweets, NowFunc: deps.NowFunc}
	subs := SubscriptionHandler{Subscriptions: deps.Subscriptions, Users: deps.Users, NowFunc: deps.NowFunc}

	mux.HandleFunc("GET /healthz", health.Handle)

	mux.HandleFunc("POST /api/v1/users/register", auth.Register)
	mux.HandleFunc("POST /api/v1/users/login", auth.Login)
	mux.HandleFunc("POST /api/v1/users/refresh-token", auth.Refresh)
	mux.Handle("POST /api/v1/users/logout", requireAuth(http.HandlerFunc(auth.Logout)))
	mux.Handle("POST /api/v1/users/change-password", requireAuth(http.HandlerFunc(auth.ChangePassword)))
	mux.Handle("GET /api/v1/users/me", requireAuth(http.HandlerFunc(auth.Me)))
	mux.Handle("PATCH /api/v1/users/me", requireAuth(http.HandlerFunc(users.UpdateAccount)))
	mux.Handle("PATCH /api/v1/users/me/avatar", requireAuth(http.HandlerFunc(users.UpdateAvatar)))
	mux.Handle("PATCH /api/v1/users/me/cover", requireAuth(http.HandlerFunc(users.UpdateCover)))
	mux.Handle("GET /api/v1/channels/{username}", optionalAuth(http.HandlerFunc(users.ChannelProfile)))

	mux.Handle("POST /api/v1/videos", requireAuth(http.HandlerFunc(videos.Publish)))
	mux.HandleFunc("GET /api/v1/videos", videos.List)
	mux.HandleFunc("GET /api/v1/videos/{videoId}", videos.Get)
	mux.Handle("PATCH /api/v1/videos/{videoId}", requireAuth(http.HandlerFunc(videos.Update)))
	mux.Handle("PATCH /api/v1/videos/{videoId}/thumbnail", requireAuth(http.HandlerFunc(videos.UpdateThumbnail)))
	mux.Handle("PATCH /api/v1/videos/{videoId}/publish", requireAuth(http.HandlerFunc(videos.TogglePublish)))
	mux.Handle("DELETE /api/v1/videos/{videoId}", requireAuth(http.HandlerFunc(videos.Delete)))

	mux.Handle("POST /api/v1/videos/{videoId}/comments", requireAuth(http.HandlerFunc(comments.Create)))
	mux.HandleFunc("GET /api/v1/videos/{videoId}/comments", comments.List)
	mux.Handle("PATCH /api/v1/comments/{commentId}", requireAuth(http.HandlerFunc(comments.Update)))
	mux.Handle("DELETE /api/v1/comments/{commentId}", requireAuth(http.HandlerFunc(comments.Delete)))

	mux.Handle("POST /api/v1/tweets", requireAuth(http.HandlerFunc(tweets.Create)))
	mux.HandleFunc("GET /api/v1/tweets/user/{userId}", tweets.ListByUser)
	mux.Handle("PATCH /api/v1/tweets/{tweetId}", requireAuth(http.HandlerFunc(tweets.Update)))
	mux.Handle("DELETE /api/v1/tweets/{tweetId}", requireAuth(http.HandlerFunc(tweets.Delete)))

	mux.Handle("POST /api/v1/playlists", requireAuth(http.HandlerFunc(playlists.Create)))
	mux.HandleFunc("GET /api/v1/playlists/{playlistId}", playlists.Get)
	mux.HandleFunc("GET /api/v1/playlists/user/{userId}", playlists.ListByUser)
	mux.Handle("PATCH /api/v1/playlists/{playlistId}", requireAuth(http.HandlerFunc(playlists.Update)))
	mux.Handle("DELETE /api/v1/playlists/{playlistId}", requireAuth(http.HandlerFunc(playlists.Delete)))
	mux.Handle("POST /api/v1/playlists/{playlistId}/videos/{videoId}", requireAuth(http.HandlerFunc(playlists.AddVideo)))
	mux.Handle("DELETE /api/v1/playlists/{playlistId}/videos/{videoId}", requireAuth(http.HandlerFunc(playlists.RemoveVideo)))

	mux.Handle("GET /api/v1/likes/videos", requireAuth(http.HandlerFunc(likes.ListVideos)))
	mux.Handle("POST /api/v1/likes/videos/{videoId}", requireAuth(http.HandlerFunc(likes.ToggleVideo)))
	mux.Handle("POST /api/v1/likes/comments/{commentId}", requireAuth(http.HandlerFunc(likes.ToggleComment)))
	mux.Handle("POST /api/v1/likes/tweets/{tweetId}", requireAuth(http.HandlerFunc(likes.ToggleTweet)))

	mux.Handle("POST /api/v1/subscriptions/{channelId}", requireAuth(http.HandlerFunc(subs.Toggle)))
	mux.HandleFunc("GET /api/v1/subscriptions/{channelId}/subscribers", subs.ListSubscribers)
	mux.Handle("GET /api/v1/subscriptions/me", requireAuth(http.HandlerFunc(subs.ListSubscribed)))
}
