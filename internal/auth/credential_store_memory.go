package auth

import (
	"context"
	"sync"
)

// NewInMemoryCredentialStore returns a CredentialStore backed by an in-memory map.
func NewInMemoryCredentialStore() *InMemoryCredentialStore {
	return &InMemoryCredentialStore{tokens: make(map[string]string)}
}

// InMemoryCredentialStore implements CredentialStore for tests and local development.
type InMemoryCredentialStore struct {
	mu     sync.Mutex
	tokens map[string]string
}

// Register adds a principal with no current refresh token.
func (s *InMemoryCredentialStore) Register(userID string) {
	s.mu.Lock()
	if _, ok := s.tokens[userID]; !ok {
		s.tokens[userID] = ""
	}
	s.mu.Unlock()
}

// GetRefreshToken returns the stored refresh token, or "" when logged out.
func (s *InMemoryCredentialStore) GetRefreshToken(_ context.Context, userID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	token, ok := s.tokens[userID]
	if !ok {
		return "", ErrPrincipalNotFound
	}
	return token, nil
}

// SetRefreshToken overwrites the stored refresh token unconditionally.
func (s *InMemoryCredentialStore) SetRefreshToken(_ context.Context, userID, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tokens[userID]; !ok {
		return ErrPrincipalNotFound
	}
	s.tokens[userID] = token
	return nil
}

// ReplaceRefreshToken swaps the stored token only when it still equals current.
func (s *InMemoryCredentialStore) ReplaceRefreshToken(_ context.Context, userID, current, next string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.tokens[userID]
	if !ok {
		return ErrPrincipalNotFound
	}
	if stored == "" || stored != current {
		return ErrRefreshTokenInvalid
	}
	s.tokens[userID] = next
	return nil
}

// ClearRefreshToken removes the stored refresh token, logging the principal out.
func (s *InMemoryCredentialStore) ClearRefreshToken(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tokens[userID]; !ok {
		return ErrPrincipalNotFound
	}
	s.tokens[userID] = ""
	return nil
}
