package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/vidtube/backend/internal/channels"
	"github.com/vidtube/backend/internal/logging"
	"github.com/vidtube/backend/internal/middleware"
	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/repositories"
	"github.com/vidtube/backend/internal/storage"
	"github.com/vidtube/backend/internal/uploads"
)

// UserHandler implements account maintenance and channel profile endpoints.
type UserHandler struct {
	Users     repositories.UserRepository
	Profiles  channels.ProfileProvider
	Saga      *uploads.Saga
	UploadDir string
	NowFunc   func() time.Time
}

// UpdateAccount handles PATCH /api/v1/users/me. Only fullName and email can
// change here; images have dedicated endpoints.
func (h UserHandler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	var req updateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid account update payload", "error", err)
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}

	fullName := strings.TrimSpace(req.FullName)
	email := strings.TrimSpace(strings.ToLower(req.Email))
	if fullName == "" && email == "" {
		respondError(ctx, w, http.StatusBadRequest, "fullName or email is required")
		return
	}
	if email != "" {
		if _, err := mail.ParseAddress(email); err != nil {
			respondError(ctx, w, http.StatusBadRequest, "invalid email address")
			return
		}
	}

	user, err := h.Users.FindByID(ctx, middleware.PrincipalFromContext(ctx))
	if err != nil {
		respondFailure(ctx, w, err, "unable to load account")
		return
	}

	if email != "" && email != user.Email {
		if _, err := h.Users.FindByEmail(ctx, email); err == nil {
			respondError(ctx, w, http.StatusConflict, "email already in use")
			return
		} else if !errors.Is(err, repositories.ErrNotFound) {
			respondFailure(ctx, w, err, "unable to verify email")
			return
		}
		user.Email = email
	}
	if fullName != "" {
		user.FullName = fullName
	}

	user.UpdatedAt = h.now()
	if err := h.Users.Update(ctx, user); err != nil {
		respondFailure(ctx, w, err, "failed to update account")
		return
	}

	respondJSON(ctx, w, http.StatusOK, user, "account updated")
}

// UpdateAvatar handles PATCH /api/v1/users/me/avatar. The previous avatar
// blob is deleted only once the account row points at the new one.
func (h UserHandler) UpdateAvatar(w http.ResponseWriter, r *http.Request) {
	h.replaceImage(w, r, "avatar", "avatars",
		func(u *models.User) (string, *string, *string) { return u.AvatarKey, &u.Avatar, &u.AvatarKey })
}

// UpdateCover handles PATCH /api/v1/users/me/cover.
func (h UserHandler) UpdateCover(w http.ResponseWriter, r *http.Request) {
	h.replaceImage(w, r, "coverImage", "covers",
		func(u *models.User) (string, *string, *string) { return u.CoverImageKey, &u.CoverImage, &u.CoverImageKey })
}

func (h UserHandler) replaceImage(w http.ResponseWriter, r *http.Request, field, prefix string,
	slots func(*models.User) (oldKey string, url *string, key *string)) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		logger.Warn("invalid image update form", "error", err, "field", field)
		respondError(ctx, w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	user, err := h.Users.FindByID(ctx, middleware.PrincipalFromContext(ctx))
	if err != nil {
		respondFailure(ctx, w, err, "unable to load account")
		return
	}

	staged, _, err := stageUpload(r, h.UploadDir, field, true)
	if err != nil {
		respondFailure(ctx, w, err, "unable to stage image upload")
		return
	}

	oldKey, urlSlot, keySlot := slots(&user)
	asset := uploads.Asset{Field: field, Key: staged.ObjectKey(prefix + "/" + user.ID), Staged: staged}

	err = h.Saga.Replace(ctx, asset, oldKey, func(ctx context.Context, blob storage.Blob) error {
		*urlSlot = blob.URL
		*keySlot = blob.Key
		user.UpdatedAt = h.now()
		return h.Users.Update(ctx, user)
	})
	if err != nil {
		respondFailure(ctx, w, err, "failed to update image")
		return
	}

	respondJSON(ctx, w, http.StatusOK, user, "image updated")
}

// ChannelProfile handles GET /api/v1/channels/{username}. The viewer id is
// empty for anonymous requests.
func (h UserHandler) ChannelProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	username := strings.TrimSpace(strings.ToLower(r.PathValue("username")))
	if username == "" {
		respondError(ctx, w, http.StatusBadRequest, "username is required")
		return
	}

	profile, err := h.Profiles.Profile(ctx, username, middleware.PrincipalFromContext(ctx))
	if err != nil {
		respondFailure(ctx, w, err, "unable to load channel profile")
		return
	}

	respondJSON(ctx, w, http.StatusOK, profile, "channel profile")
}

func (h UserHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now().UTC()
}

type updateAccountRequest struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
}
