package handlers

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/repositories"
	"github.com/vidtube/backend/internal/storage"
)

type fakeUserRepo struct {
	mu        sync.Mutex
	users     map[string]models.User
	createErr error
	updateErr error
	updateCnt int
	createCnt int
}

func newFakeUserRepo(users ...models.User) *fakeUserRepo {
	repo := &fakeUserRepo{users: make(map[string]models.User)}
	for _, u := range users {
		repo.users[u.ID] = u
	}
	return repo
}

func (r *fakeUserRepo) Create(ctx context.Context, user models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.createCnt++
	if r.createErr != nil {
		return r.createErr
	}
	for _, existing := range r.users {
		if existing.Email == user.Email || existing.Username == user.Username {
			return repositories.ErrConflict
		}
	}
	r.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) FindByID(ctx context.Context, id string) (models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if user, ok := r.users[id]; ok {
		return user, nil
	}
	return models.User{}, repositories.ErrNotFound
}

func (r *fakeUserRepo) FindByEmail(ctx context.Context, email string) (models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.Email == email {
			return user, nil
		}
	}
	return models.User{}, repositories.ErrNotFound
}

func (r *fakeUserRepo) FindByUsername(ctx context.Context, username string) (models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.Username == username {
			return user, nil
		}
	}
	return models.User{}, repositories.ErrNotFound
}

func (r *fakeUserRepo) Update(ctx context.Context, user models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updateCnt++
	if r.updateErr != nil {
		return r.updateErr
	}
	if _, ok := r.users[user.ID]; !ok {
		return repositories.ErrNotFound
	}
	r.users[user.ID] = user
	return nil
}

type fakeVideoRepo struct {
	mu        sync.Mutex
	videos    map[string]models.Video
	createErr error
	deleted   []string
}

func newFakeVideoRepo(videos ...models.Video) *fakeVideoRepo {
	repo := &fakeVideoRepo{videos: make(map[string]models.Video)}
	for _, v := range videos {
		repo.videos[v.ID] = v
	}
	return repo
}

func (r *fakeVideoRepo) Create(ctx context.Context, video models.Video) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	r.videos[video.ID] = video
	return nil
}

func (r *fakeVideoRepo) FindByID(ctx context.Context, id string) (models.Video, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if video, ok := r.videos[id]; ok {
		return video, nil
	}
	return models.Video{}, repositories.ErrNotFound
}

func (r *fakeVideoRepo) List(ctx context.Context, filter repositories.VideoFilter) ([]models.Video, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Video, 0, len(r.videos))
	for _, video := range r.videos {
		out = append(out, video)
	}
	return out, int64(len(out)), nil
}

func (r *fakeVideoRepo) Update(ctx context.Context, video models.Video) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.videos[video.ID]; !ok {
		return repositories.ErrNotFound
	}
	r.videos[video.ID] = video
	return nil
}

func (r *fakeVideoRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.videos[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(r.videos, id)
	r.deleted = append(r.deleted, id)
	return nil
}

func (r *fakeVideoRepo) IncrementViews(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	video, ok := r.videos[id]
	if !ok {
		return repositories.ErrNotFound
	}
	video.Views++
	r.videos[id] = video
	return nil
}

type fakeCommentRepo struct {
	mu       sync.Mutex
	comments map[string]models.Comment
}

func newFakeCommentRepo(comments ...models.Comment) *fakeCommentRepo {
	repo := &fakeCommentRepo{comments: make(map[string]models.Comment)}
	for _, c := range comments {
		repo.comments[c.ID] = c
	}
	return repo
}

func (r *fakeCommentRepo) Create(ctx context.Context, comment models.Comment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.comments[comment.ID] = comment
	return nil
}

func (r *fakeCommentRepo) FindByID(ctx context.Context, id string) (models.Comment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if comment, ok := r.comments[id]; ok {
		return comment, nil
	}
	return models.Comment{}, repositories.ErrNotFound
}

func (r *fakeCommentRepo) ListByVideo(ctx context.Context, videoID string, page, limit int) ([]models.Comment, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Comment
	for _, comment := range r.comments {
		if comment.VideoID == videoID {
			out = append(out, comment)
		}
	}
	return out, int64(len(out)), nil
}

func (r *fakeCommentRepo) Update(ctx context.Context, comment models.Comment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.comments[comment.ID]; !ok {
		return repositories.ErrNotFound
	}
	r.comments[comment.ID] = comment
	return nil
}

func (r *fakeCommentRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.comments[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(r.comments, id)
	return nil
}

// fakeSessions hands out deterministic token pairs and records lifecycle calls.
type fakeSessions struct {
	mu          sync.Mutex
	issued      []string
	invalidated []string
	rotated     []string
	rotateErr   error
	principals  map[string]string // access token -> user id
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{principals: make(map[string]string)}
}

func (s *fakeSessions) Issue(ctx context.Context, userID string) (models.SessionTokens, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.issued = append(s.issued, userID)
	access := fmt.Sprintf("access-%s-%d", userID, len(s.issued))
	s.principals[access] = userID
	return models.SessionTokens{
		AccessToken:  access,
		RefreshToken: fmt.Sprintf("refresh-%s-%d", userID, len(s.issued)),
	}, nil
}

func (s *fakeSessions) ValidateAccess(token string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if userID, ok := s.principals[token]; ok {
		return userID, nil
	}
	return "", fmt.Errorf("unknown access token %q", token)
}

func (s *fakeSessions) Rotate(ctx context.Context, refreshToken string) (models.SessionTokens, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rotateErr != nil {
		return models.SessionTokens{}, s.rotateErr
	}
	s.rotated = append(s.rotated, refreshToken)
	return models.SessionTokens{
		AccessToken:  "rotated-access",
		RefreshToken: "rotated-refresh",
	}, nil
}

func (s *fakeSessions) Invalidate(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invalidated = append(s.invalidated, userID)
	return nil
}

// fakeBlobStore stands in for the object store behind the upload saga.
type fakeBlobStore struct {
	mu      sync.Mutex
	uploads []string
	deletes []string
	failKey string
}

func (s *fakeBlobStore) UploadFile(ctx context.Context, key, path string) (storage.Blob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failKey != "" && key == s.failKey {
		return storage.Blob{}, fmt.Errorf("%w: upload %s", storage.ErrUpstream, key)
	}
	s.uploads = append(s.uploads, key)
	return storage.Blob{Key: key, URL: "https://cdn.test/" + key}, nil
}

func (s *fakeBlobStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deletes = append(s.deletes, key)
	return nil
}

func (s *fakeBlobStore) snapshot() (uploads, deletes []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.uploads...), append([]string(nil), s.deletes...)
}

type fakeTweetRepo struct {
	mu     sync.Mutex
	tweets map[string]models.Tweet
}

func newFakeTweetRepo(tweets ...models.Tweet) *fakeTweetRepo {
	repo := &fakeTweetRepo{tweets: make(map[string]models.Tweet)}
	for _, tweet := range tweets {
		repo.tweets[tweet.ID] = tweet
	}
	return repo
}

func (r *fakeTweetRepo) Create(ctx context.Context, tweet models.Tweet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tweets[tweet.ID] = tweet
	return nil
}

func (r *fakeTweetRepo) FindByID(ctx context.Context, id string) (models.Tweet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if tweet, ok := r.tweets[id]; ok {
		return tweet, nil
	}
	return models.Tweet{}, repositories.ErrNotFound
}

func (r *fakeTweetRepo) ListByOwner(ctx context.Context, ownerID string) ([]models.Tweet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Tweet
	for _, tweet := range r.tweets {
		for _, owner := range tweet.Owners {
			if owner == ownerID {
				out = append(out, tweet)
				break
			}
		}
	}
	return out, nil
}

func (r *fakeTweetRepo) Update(ctx context.Context, tweet models.Tweet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tweets[tweet.ID]; !ok {
		return repositories.ErrNotFound
	}
	r.tweets[tweet.ID] = tweet
	return nil
}

func (r *fakeTweetRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tweets[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(r.tweets, id)
	return nil
}

type fakePlaylistRepo struct {
	mu        sync.Mutex
	playlists map[string]models.Playlist
}

func newFakePlaylistRepo(playlists ...models.Playlist) *fakePlaylistRepo {
	repo := &fakePlaylistRepo{playlists: make(map[string]models.Playlist)}
	for _, playlist := range playlists {
		repo.playlists[playlist.ID] = playlist
	}
	return repo
}

func (r *fakePlaylistRepo) Create(ctx context.Context, playlist models.Playlist) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.playlists[playlist.ID] = playlist
	return nil
}

func (r *fakePlaylistRepo) FindByID(ctx context.Context, id string) (models.Playlist, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if playlist, ok := r.playlists[id]; ok {
		return playlist, nil
	}
	return models.Playlist{}, repositories.ErrNotFound
}

func (r *fakePlaylistRepo) ListByOwner(ctx context.Context, ownerID string) ([]models.Playlist, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Playlist
	for _, playlist := range r.playlists {
		for _, owner := range playlist.Owners {
			if owner == ownerID {
				out = append(out, playlist)
				break
			}
		}
	}
	return out, nil
}

func (r *fakePlaylistRepo) Update(ctx context.Context, playlist models.Playlist) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.playlists[playlist.ID]; !ok {
		return repositories.ErrNotFound
	}
	r.playlists[playlist.ID] = playlist
	return nil
}

func (r *fakePlaylistRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.playlists[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(r.playlists, id)
	return nil
}

func (r *fakePlaylistRepo) AddVideo(ctx context.Context, playlistID, videoID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	playlist, ok := r.playlists[playlistID]
	if !ok {
		return repositories.ErrNotFound
	}
	for _, id := range playlist.VideoIDs {
		if id == videoID {
			return repositories.ErrConflict
		}
	}
	playlist.VideoIDs = append(playlist.VideoIDs, videoID)
	r.playlists[playlistID] = playlist
	return nil
}

func (r *fakePlaylistRepo) RemoveVideo(ctx context.Context, playlistID, videoID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	playlist, ok := r.playlists[playlistID]
	if !ok {
		return repositories.ErrNotFound
	}
	for i, id := range playlist.VideoIDs {
		if id == videoID {
			playlist.VideoIDs = append(playlist.VideoIDs[:i], playlist.VideoIDs[i+1:]...)
			r.playlists[playlistID] = playlist
			return nil
		}
	}
	return repositories.ErrNotFound
}

type fakeLikeRepo struct {
	mu     sync.Mutex
	likes  map[string]models.Like // keyed user|type|target
	videos *fakeVideoRepo         // resolves liked video targets for listings
}

func newFakeLikeRepo() *fakeLikeRepo {
	return &fakeLikeRepo{likes: make(map[string]models.Like)}
}

func likeKey(userID, targetType, targetID string) string {
	return userID + "|" + targetType + "|" + targetID
}

func (r *fakeLikeRepo) Find(ctx context.Context, userID, targetType, targetID string) (models.Like, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if like, ok := r.likes[likeKey(userID, targetType, targetID)]; ok {
		return like, nil
	}
	return models.Like{}, repositories.ErrNotFound
}

func (r *fakeLikeRepo) Create(ctx context.Context, like models.Like) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := likeKey(like.UserID, like.TargetType, like.TargetID)
	if _, ok := r.likes[key]; ok {
		return repositories.ErrConflict
	}
	r.likes[key] = like
	return nil
}

func (r *fakeLikeRepo) DeleteByTarget(ctx context.Context, userID, targetType, targetID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := likeKey(userID, targetType, targetID)
	if _, ok := r.likes[key]; !ok {
		return repositories.ErrNotFound
	}
	delete(r.likes, key)
	return nil
}

func (r *fakeLikeRepo) CountForTarget(ctx context.Context, targetType, targetID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, like := range r.likes {
		if like.TargetType == targetType && like.TargetID == targetID {
			count++
		}
	}
	return count, nil
}

func (r *fakeLikeRepo) ListVideosForUser(ctx context.Context, userID string, page, limit int) ([]models.Video, int64, error) {
	r.mu.Lock()
	var matched []models.Like
	for _, like := range r.likes {
		if like.UserID == userID && like.TargetType == models.LikeTargetVideo {
			matched = append(matched, like)
		}
	}
	r.mu.Unlock()

	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })

	var videos []models.Video
	for _, like := range matched {
		if r.videos == nil {
			continue
		}
		if video, err := r.videos.FindByID(ctx, like.TargetID); err == nil {
			videos = append(videos, video)
		}
	}
	return videos, int64(len(videos)), nil
}

type fakeSubscriptionRepo struct {
	mu   sync.Mutex
	subs map[string]models.Subscription // keyed subscriber|channel
}

func newFakeSubscriptionRepo() *fakeSubscriptionRepo {
	return &fakeSubscriptionRepo{subs: make(map[string]models.Subscription)}
}

func (r *fakeSubscriptionRepo) Find(ctx context.Context, subscriberID, channelID string) (models.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if sub, ok := r.subs[subscriberID+"|"+channelID]; ok {
		return sub, nil
	}
	return models.Subscription{}, repositories.ErrNotFound
}

func (r *fakeSubscriptionRepo) Create(ctx context.Context, sub models.Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := sub.SubscriberID + "|" + sub.ChannelID
	if _, ok := r.subs[key]; ok {
		return repositories.ErrConflict
	}
	r.subs[key] = sub
	return nil
}

func (r *fakeSubscriptionRepo) Delete(ctx context.Context, subscriberID, channelID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := subscriberID + "|" + channelID
	if _, ok := r.subs[key]; !ok {
		return repositories.ErrNotFound
	}
	delete(r.subs, key)
	return nil
}

func (r *fakeSubscriptionRepo) CountSubscribers(ctx context.Context, channelID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, sub := range r.subs {
		if sub.ChannelID == channelID {
			count++
		}
	}
	return count, nil
}

func (r *fakeSubscriptionRepo) CountSubscribedTo(ctx context.Context, subscriberID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, sub := range r.subs {
		if sub.SubscriberID == subscriberID {
			count++
		}
	}
	return count, nil
}

func (r *fakeSubscriptionRepo) ListSubscribers(ctx context.Context, channelID string) ([]models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.User
	for _, sub := range r.subs {
		if sub.ChannelID == channelID {
			out = append(out, models.User{ID: sub.SubscriberID})
		}
	}
	return out, nil
}

func (r *fakeSubscriptionRepo) ListSubscribedChannels(ctx context.Context, subscriberID string) ([]models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.User
	for _, sub := range r.subs {
		if sub.SubscriberID == subscriberID {
			out = append(out, models.User{ID: sub.ChannelID})
		}
	}
	return out, nil
}
