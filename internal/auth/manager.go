package auth

import (
	"context"
	"errors"
	"time"

	"github.com/vidtube/backend/internal/models"
)

var (
	// ErrPrincipalNotFound indicates the user the token refers to does not exist.
	ErrPrincipalNotFound = errors.New("principal not found")
	// ErrTokenExpired indicates an access token that is past its expiry.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenInvalid indicates a token whose signature or shape is wrong.
	ErrTokenInvalid = errors.New("token invalid")
	// ErrRefreshTokenInvalid indicates a refresh token that is expired, forged,
	// or no longer the current one stored for its principal.
	ErrRefreshTokenInvalid = errors.New("refresh token invalid")
)

// CredentialStore persists the single current refresh token per principal.
//
// Replace must compare-and-swap: overwrite the stored value only when it still
// equals current, so two concurrent rotations of the same token cannot both win.
type CredentialStore interface {
	GetRefreshToken(ctx context.Context, userID string) (string, error)
	SetRefreshToken(ctx context.Context, userID, token string) error
	ReplaceRefreshToken(ctx context.Context, userID, current, next string) error
	ClearRefreshToken(ctx context.Context, userID string) error
}

// Manager manages the lifecycle of issued session tokens backed by a credential store.
type Manager struct {
	signer     tokenSigner
	accessTTL  time.Duration
	refreshTTL time.Duration

	creds CredentialStore

	// NowFunc overrides the time source in tests.
	NowFunc func() time.Time
}

// NewManager constructs a Manager that signs tokens with the provided secret.
func NewManager(secret string, accessTTL, refreshTTL time.Duration, creds CredentialStore) *Manager {
	if creds == nil {
		panic("auth: credential store must not be nil")
	}
	return &Manager{
		signer:     tokenSigner{secret: []byte(secret)},
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		creds:      creds,
	}
}

// Issue mints a fresh access/refresh pair for the user and stores the refresh
// token value, superseding whatever value was stored before.
func (m *Manager) Issue(ctx context.Context, userID string) (models.SessionTokens, error) {
	if userID == "" {
		return models.SessionTokens{}, ErrPrincipalNotFound
	}

	tokens, err := m.mint(userID)
	if err != nil {
		return models.SessionTokens{}, err
	}

	if err := m.creds.SetRefreshToken(ctx, userID, tokens.RefreshToken); err != nil {
		return models.SessionTokens{}, err
	}

	return tokens, nil
}

// ValidateAccess verifies signature and expiry of an access token and returns
// the principal id it asserts. The credential store is never consulted.
func (m *Manager) ValidateAccess(token string) (string, error) {
	return m.signer.parse(token, kindAccess)
}

// Rotate exchanges a refresh token for a new pair. The presented token must
// verify and must still be the stored value for its principal; a token
// superseded by a later rotation or cleared by logout is rejected with no
// write performed.
func (m *Manager) Rotate(ctx context.Context, refreshToken string) (models.SessionTokens, error) {
	userID, err := m.signer.parse(refreshToken, kindRefresh)
	if err != nil {
		return models.SessionTokens{}, ErrRefreshTokenInvalid
	}

	tokens, err := m.mint(userID)
	if err != nil {
		return models.SessionTokens{}, err
	}

	err = m.creds.ReplaceRefreshToken(ctx, userID, refreshToken, tokens.RefreshToken)
	switch {
	case errors.Is(err, ErrRefreshTokenInvalid), errors.Is(err, ErrPrincipalNotFound):
		return models.SessionTokens{}, ErrRefreshTokenInvalid
	case err != nil:
		return models.SessionTokens{}, err
	}

	return tokens, nil
}

// Invalidate clears the stored refresh token so subsequent rotations fail
// until the user logs in again.
func (m *Manager) Invalidate(ctx context.Context, userID string) error {
	return m.creds.ClearRefreshToken(ctx, userID)
}

func (m *Manager) mint(userID string) (models.SessionTokens, error) {
	now := m.now()

	accessToken, accessExpiry, err := m.signer.sign(userID, kindAccess, now, m.accessTTL)
	if err != nil {
		return models.SessionTokens{}, err
	}

	refreshToken, refreshExpiry, err := m.signer.sign(userID, kindRefresh, now, m.refreshTTL)
	if err != nil {
		return models.SessionTokens{}, err
	}

	return models.SessionTokens{
		AccessToken:      accessToken,
		AccessExpiresAt:  accessExpiry,
		RefreshToken:     refreshToken,
		RefreshExpiresAt: refreshExpiry,
	}, nil
}

func (m *Manager) now() time.Time {
	if m.NowFunc != nil {
		return m.NowFunc()
	}
	return time.Now().UTC()
}
