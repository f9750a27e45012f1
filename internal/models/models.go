package models

import "time"

// User represents a channel account within the VidTube platform.
type User struct {
	ID            string    `json:"id"`
	Username      string    `json:"username"`
	Email         string    `json:"email"`
	FullName      string    `json:"fullName"`
	Password      string    `json:"-"`
	Avatar        string    `json:"avatar"`
	AvatarKey     string    `json:"-"`
	CoverImage    string    `json:"coverImage,omitempty"`
	CoverImageKey string    `json:"-"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Video stores a published video along with its remote asset references.
type Video struct {
	ID           string    `json:"id"`
	Owners       []string  `json:"owners"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	VideoFile    string    `json:"videoFile"`
	VideoKey     string    `json:"-"`
	Thumbnail    string    `json:"thumbnail"`
	ThumbnailKey string    `json:"-"`
	Duration     float64   `json:"duration"`
	Views        int64     `json:"views"`
	IsPublished  bool      `json:"isPublished"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Comment is a remark left on a video by a single author.
type Comment struct {
	ID        string    `json:"id"`
	VideoID   string    `json:"videoId"`
	OwnerID   string    `json:"ownerId"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Tweet is a short text post attached to a channel.
type Tweet struct {
	ID        string    `json:"id"`
	Owners    []string  `json:"owners"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Playlist groups videos curated by its owners.
type Playlist struct {
	ID          string    `json:"id"`
	Owners      []string  `json:"owners"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	VideoIDs    []string  `json:"videoIds"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Like targets exactly one of a video, comment, or tweet.
const (
	LikeTargetVideo   = "video"
	LikeTargetComment = "comment"
	LikeTargetTweet   = "tweet"
)

// Like records that a user liked a target entity.
type Like struct {
	ID         string    `json:"id"`
	UserID     string    `json:"userId"`
	TargetType string    `json:"targetType"`
	TargetID   string    `json:"targetId"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Subscription is the edge between a subscriber and a channel.
type Subscription struct {
	ID           string    `json:"id"`
	SubscriberID string    `json:"subscriberId"`
	ChannelID    string    `json:"channelId"`
	CreatedAt    time.Time `json:"createdAt"`
}

// ChannelProfile is the public view of a channel with subscription totals.
type ChannelProfile struct {
	User            User  `json:"user"`
	SubscriberCount int64 `json:"subscriberCount"`
	SubscribedCount int64 `json:"subscribedCount"`
	IsSubscribed    bool  `json:"isSubscribed"`
}

// SessionTokens groups the bearer credentials issued to authenticated users.
type SessionTokens struct {
	AccessToken      string    `json:"accessToken"`
	AccessExpiresAt  time.Time `json:"accessExpiresAt"`
	RefreshToken     string    `json:"refreshToken"`
	RefreshExpiresAt time.Time `json:"refreshExpiresAt"`
}
