package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/vidtube/backend/internal/logging"
	"github.com/vidtube/backend/internal/middleware"
	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/repositories"
	"github.com/vidtube/backend/internal/storage"
	"github.com/vidtube/backend/internal/uploads"
)

const maxMultipartMemory = 32 << 20

// AuthHandler implements account registration and session endpoints.
type AuthHandler struct {
	Users         repositories.UserRepository
	Sessions      SessionManager
	LoginLimiter  RateLimiter
	Saga          *uploads.Saga
	UploadDir     string
	SecureCookies bool
	NowFunc       func() time.Time
}

// Register handles POST /api/v1/users/register. The avatar is required and
// the cover image optional; both are uploaded before the account row is
// written, and rolled back if that write fails.
func (h AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if !allowRequest(h.LoginLimiter, r, "register") {
		respondError(ctx, w, http.StatusTooManyRequests, "too many requests")
		return
	}

	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		logger.Warn("invalid registration form", "error", err)
		respondError(ctx, w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	fullName := strings.TrimSpace(r.FormValue("fullName"))
	email := strings.TrimSpace(strings.ToLower(r.FormValue("email")))
	username := strings.TrimSpace(strings.ToLower(r.FormValue("username")))
	password := r.FormValue("password")

	if fullName == "" || email == "" || username == "" || password == "" {
		respondError(ctx, w, http.StatusBadRequest, "fullName, email, username and password are required")
		return
	}
	if _, err := mail.ParseAddress(email); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "invalid email address")
		return
	}
	if len(password) < 8 {
		respondError(ctx, w, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}

	if err := h.checkAvailable(ctx, email, username); err != nil {
		respondFailure(ctx, w, err, "unable to verify existing accounts")
		return
	}

	// Validate everything before touching the blob store so a doomed request
	// never uploads anything.
	avatar, _, err := stageUpload(r, h.UploadDir, "avatar", true)
	if err != nil {
		respondFailure(ctx, w, err, "unable to stage avatar upload")
		return
	}
	cover, hasCover, err := stageUpload(r, h.UploadDir, "coverImage", false)
	if err != nil {
		defer avatar.Remove()
		respondFailure(ctx, w, err, "unable to stage cover upload")
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		logger.Error("failed to hash password", "error", err)
		defer avatar.Remove()
		if hasCover {
			defer cover.Remove()
		}
		respondError(ctx, w, http.StatusInternalServerError, "failed to secure password")
		return
	}

	userID := uuid.NewString()
	assets := []uploads.Asset{{Field: "avatar", Key: avatar.ObjectKey("avatars/" + userID), Staged: avatar}}
	if hasCover {
		assets = append(assets, uploads.Asset{Field: "coverImage", Key: cover.ObjectKey("covers/" + userID), Staged: cover})
	}

	now := h.now()
	var user models.User
	err = h.Saga.Run(ctx, assets, func(ctx context.Context, blobs map[string]storage.Blob) error {
		user = models.User{
			ID:        userID,
			Username:  username,
			Email:     email,
			FullName:  fullName,
			Password:  string(hashed),
			CreatedAt: now,
			UpdatedAt: now,
		}
		user.Avatar = blobs["avatar"].URL
		user.AvatarKey = blobs["avatar"].Key
		if blob, ok := blobs["coverImage"]; ok {
			user.CoverImage = blob.URL
			user.CoverImageKey = blob.Key
		}
		return h.Users.Create(ctx, user)
	})
	if err != nil {
		respondFailure(ctx, w, err, "failed to create account")
		return
	}

	tokens, err := h.Sessions.Issue(ctx, user.ID)
	if err != nil {
		logger.Error("failed to issue session", "error", err, "userId", user.ID)
		respondError(ctx, w, http.StatusInternalServerError, "failed to create session")
		return
	}

	setSessionCookies(w, tokens, h.SecureCookies)
	respondJSON(ctx, w, http.StatusCreated, authResponse{User: &user, Tokens: tokens}, "account created")
}

// Login handles POST /api/v1/users/login. Accounts can be addressed by email
// or username.
func (h AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if !allowRequest(h.LoginLimiter, r, "login") {
		respondError(ctx, w, http.StatusTooManyRequests, "too many requests")
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid login payload", "error", err)
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	req.Username = strings.TrimSpace(strings.ToLower(req.Username))
	if (req.Email == "" && req.Username == "") || req.Password == "" {
		respondError(ctx, w, http.StatusBadRequest, "email or username and password are required")
		return
	}

	var (
		user models.User
		err  error
	)
	if req.Email != "" {
		user, err = h.Users.FindByEmail(ctx, req.Email)
	} else {
		user, err = h.Users.FindByUsername(ctx, req.Username)
	}
	if err != nil {
		logger.Warn("login user lookup failed", "error", err)
		respondError(ctx, w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		logger.Warn("login password mismatch", "userId", user.ID)
		respondError(ctx, w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	tokens, err := h.Sessions.Issue(ctx, user.ID)
	if err != nil {
		logger.Error("failed to issue session", "error", err, "userId", user.ID)
		respondError(ctx, w, http.StatusInternalServerError, "failed to create session")
		return
	}

	setSessionCookies(w, tokens, h.SecureCookies)
	respondJSON(ctx, w, http.StatusOK, authResponse{User: &user, Tokens: tokens}, "logged in")
}

// Logout handles POST /api/v1/users/logout. It clears the stored refresh
// token so the current pair can never be rotated again.
func (h AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.PrincipalFromContext(ctx)

	if err := h.Sessions.Invalidate(ctx, userID); err != nil {
		respondFailure(ctx, w, err, "failed to end session")
		return
	}

	clearSessionCookies(w, h.SecureCookies)
	respondJSON(ctx, w, http.StatusOK, nil, "logged out")
}

// Refresh handles POST /api/v1/users/refresh-token. The refresh token is read
// from the cookie when present, otherwise from the request body.
func (h AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	token := ""
	if cookie, err := r.Cookie(refreshCookieName); err == nil {
		token = cookie.Value
	}
	if token == "" {
		var req refreshRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err == nil {
			token = strings.TrimSpace(req.RefreshToken)
		}
	}
	if token == "" {
		respondError(ctx, w, http.StatusUnauthorized, "refresh token is required")
		return
	}

	tokens, err := h.Sessions.Rotate(ctx, token)
	if err != nil {
		clearSessionCookies(w, h.SecureCookies)
		respondFailure(ctx, w, err, "unable to refresh session")
		return
	}

	setSessionCookies(w, tokens, h.SecureCookies)
	respondJSON(ctx, w, http.StatusOK, authResponse{Tokens: tokens}, "session refreshed")
}

// ChangePassword handles POST /api/v1/users/change-password.
func (h AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)
	userID := middleware.PrincipalFromContext(ctx)

	var req changePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid change password payload", "error", err)
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.OldPassword == "" || req.NewPassword == "" {
		respondError(ctx, w, http.StatusBadRequest, "oldPassword and newPassword are required")
		return
	}
	if len(req.NewPassword) < 8 {
		respondError(ctx, w, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}

	user, err := h.Users.FindByID(ctx, userID)
	if err != nil {
		respondFailure(ctx, w, err, "unable to load account")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.OldPassword)); err != nil {
		respondError(ctx, w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		logger.Error("failed to hash password", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to secure password")
		return
	}

	user.Password = string(hashed)
	user.UpdatedAt = h.now()
	if err := h.Users.Update(ctx, user); err != nil {
		respondFailure(ctx, w, err, "failed to update password")
		return
	}

	respondJSON(ctx, w, http.StatusOK, nil, "password changed")
}

// Me handles GET /api/v1/users/me.
func (h AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, err := h.Users.FindByID(ctx, middleware.PrincipalFromContext(ctx))
	if err != nil {
		respondFailure(ctx, w, err, "unable to load account")
		return
	}

	respondJSON(ctx, w, http.StatusOK, user, "current user")
}

func (h AuthHandler) checkAvailable(ctx context.Context, email, username string) error {
	if _, err := h.Users.FindByEmail(ctx, email); err == nil {
		return repositories.ErrConflict
	} else if !errors.Is(err, repositories.ErrNotFound) {
		return err
	}
	if _, err := h.Users.FindByUsername(ctx, username); err == nil {
		return repositories.ErrConflict
	} else if !errors.Is(err, repositories.ErrNotFound) {
		return err
	}
	return nil
}

func (h AuthHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now().UTC()
}

type loginRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

type authResponse struct {
	User   *models.User         `json:"user,omitempty"`
	Tokens models.SessionTokens `json:"tokens"`
}
