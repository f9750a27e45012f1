package handlers

import (
	"context"

	"github.com/vidtube/backend/internal/models"
)

// SessionManager owns the access/refresh token lifecycle for users.
type SessionManager interface {
	Issue(ctx context.Context, userID string) (models.SessionTokens, error)
	ValidateAccess(token string) (string, error)
	Rotate(ctx context.Context, refreshToken string) (models.SessionTokens, error)
	Invalidate(ctx context.Context, userID string) error
}
