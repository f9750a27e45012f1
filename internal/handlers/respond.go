package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/vidtube/backend/internal/auth"
	"github.com/vidtube/backend/internal/authz"
	"github.com/vidtube/backend/internal/channels"
	"github.com/vidtube/backend/internal/logging"
	"github.com/vidtube/backend/internal/repositories"
	"github.com/vidtube/backend/internal/storage"
	"github.com/vidtube/backend/internal/uploads"
)

// apiResponse is the uniform envelope every endpoint answers with.
type apiResponse struct {
	StatusCode int    `json:"statusCode"`
	Data       any    `json:"data,omitempty"`
	Message    string `json:"message"`
}

func respondJSON(ctx context.Context, w http.ResponseWriter, status int, data any, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	payload := apiResponse{StatusCode: status, Data: data, Message: message}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logging.FromContext(ctx).Error("encode response body", "status", status, "error", err)
		return
	}

	logger := logging.FromContext(ctx)
	switch {
	case status >= http.StatusInternalServerError:
		logger.Error("request failed", "status", status, "message", message)
	case status >= http.StatusBadRequest:
		logger.Warn("request returned client error", "status", status, "message", message)
	}
}

func respondError(ctx context.Context, w http.ResponseWriter, status int, message string) {
	respondJSON(ctx, w, status, nil, message)
}

// respondFailure translates domain errors into the HTTP error taxonomy.
// Missing resources and ownership denials map to distinct statuses; they are
// never conflated.
func respondFailure(ctx context.Context, w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, repositories.ErrNotFound), errors.Is(err, channels.ErrChannelNotFound):
		respondError(ctx, w, http.StatusNotFound, "resource not found")
	case errors.Is(err, authz.ErrForbidden):
		respondError(ctx, w, http.StatusForbidden, "you do not own this resource")
	case errors.Is(err, repositories.ErrConflict):
		respondError(ctx, w, http.StatusConflict, "resource already exists")
	case errors.Is(err, uploads.ErrFileMissing):
		respondError(ctx, w, http.StatusBadRequest, "required file is missing")
	case errors.Is(err, auth.ErrRefreshTokenInvalid),
		errors.Is(err, auth.ErrTokenExpired),
		errors.Is(err, auth.ErrTokenInvalid),
		errors.Is(err, auth.ErrPrincipalNotFound):
		respondError(ctx, w, http.StatusUnauthorized, "authentication failed")
	case errors.Is(err, storage.ErrUpstream):
		respondError(ctx, w, http.StatusBadGateway, "storage unavailable")
	default:
		logging.FromContext(ctx).Error(fallback, "error", err)
		respondError(ctx, w, http.StatusInternalServerError, fallback)
	}
}
