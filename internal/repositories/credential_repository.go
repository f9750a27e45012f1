package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/vidtube/backend/internal/auth"
	"github.com/vidtube/backend/internal/db"
)

// PostgresCredentialStore persists each user's current refresh token to
// PostgreSQL. The empty string means the user is logged out.
type PostgresCredentialStore struct {
	pool db.Pool
}

// NewPostgresCredentialStore constructs a credential store backed by PostgreSQL.
func NewPostgresCredentialStore(pool db.Pool) *PostgresCredentialStore {
	return &PostgresCredentialStore{pool: pool}
}

// GetRefreshToken loads the refresh token currently stored for the user.
func (s *PostgresCredentialStore) GetRefreshToken(ctx context.Context, userID string) (string, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return "", fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var token string
	err = conn.QueryRow(ctx, `
        SELECT refresh_token FROM users WHERE id = $1
    `, userID).Scan(&token)
	if err != nil {
		if err == pgx.ErrNoRows {
			return "", auth.ErrPrincipalNotFound
		}
		return "", fmt.Errorf("select refresh token: %w", err)
	}

	return token, nil
}

// SetRefreshToken overwrites the stored refresh token unconditionally.
func (s *PostgresCredentialStore) SetRefreshToken(ctx context.Context, userID, token string) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE users SET refresh_token = $2 WHERE id = $1
    `, userID, token)
	if err != nil {
		return fmt.Errorf("set refresh token: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return auth.ErrPrincipalNotFound
	}

	return nil
}

// ReplaceRefreshToken swaps the stored token only when it still equals
// current. The single guarded UPDATE is the per-principal serialization
// point: of two concurrent rotations presenting the same token, exactly one
// matches the stored row.
func (s *PostgresCredentialStore) ReplaceRefreshToken(ctx context.Context, userID, current, next string) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE users
        SET refresh_token = $3
        WHERE id = $1 AND refresh_token = $2 AND refresh_token <> ''
    `, userID, current, next)
	if err != nil {
		return fmt.Errorf("replace refresh token: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return auth.ErrRefreshTokenInvalid
	}

	return nil
}

// ClearRefreshToken logs the user out by clearing the stored value.
func (s *PostgresCredentialStore) ClearRefreshToken(ctx context.Context, userID string) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE users SET refresh_token = '' WHERE id = $1
    `, userID)
	if err != nil {
		return fmt.Errorf("clear refresh token: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return auth.ErrPrincipalNotFound
	}

	return nil
}

var _ auth.CredentialStore = (*PostgresCredentialStore)(nil)
