package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func newTestManager(accessTTL, refreshTTL time.Duration) (*Manager, *InMemoryCredentialStore) {
	store := NewInMemoryCredentialStore()
	store.Register("user-1")
	return NewManager("test-secret", accessTTL, refreshTTL, store), store
}

func TestManagerIssueAndValidate(t *testing.T) {
	manager, _ := newTestManager(time.Minute, time.Hour)

	tokens, err := manager.Issue(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if tokens.AccessToken == "" || tokens.RefreshToken == "" {
		t.Fatalf("expected non-empty tokens: %+v", tokens)
	}

	userID, err := manager.ValidateAccess(tokens.AccessToken)
	if err != nil {
		t.Fatalf("validate access: %v", err)
	}
	if userID != "user-1" {
		t.Fatalf("expected user-1 got %q", userID)
	}

	// A refresh token must never pass access validation.
	if _, err := manager.ValidateAccess(tokens.RefreshToken); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid got %v", err)
	}
}

func TestManagerIssueUnknownPrincipal(t *testing.T) {
	manager, _ := newTestManager(time.Minute, time.Hour)

	if _, err := manager.Issue(context.Background(), "ghost"); !errors.Is(err, ErrPrincipalNotFound) {
		t.Fatalf("expected ErrPrincipalNotFound got %v", err)
	}
	if _, err := manager.Issue(context.Background(), ""); !errors.Is(err, ErrPrincipalNotFound) {
		t.Fatalf("expected ErrPrincipalNotFound for empty id got %v", err)
	}
}

func TestManagerValidateAccessExpired(t *testing.T) {
	manager, _ := newTestManager(time.Minute, time.Hour)
	manager.NowFunc = func() time.Time { return time.Now().UTC().Add(-2 * time.Minute) }

	tokens, err := manager.Issue(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if _, err := manager.ValidateAccess(tokens.AccessToken); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired got %v", err)
	}
}

func TestManagerRotateInvalidatesOldToken(t *testing.T) {
	manager, _ := newTestManager(time.Minute, time.Hour)

	tokens, err := manager.Issue(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	rotated, err := manager.Rotate(context.Background(), tokens.RefreshToken)
	if err != nil {
		t.Fatalf("rotate: %v", err)
	}
	if rotated.RefreshToken == tokens.RefreshToken {
		t.Fatal("expected a new refresh token")
	}

	// Replaying the superseded token must fail.
	if _, err := manager.Rotate(context.Background(), tokens.RefreshToken); !errors.Is(err, ErrRefreshTokenInvalid) {
		t.Fatalf("expected ErrRefreshTokenInvalid got %v", err)
	}

	// The rotated token stays valid.
	if _, err := manager.Rotate(context.Background(), rotated.RefreshToken); err != nil {
		t.Fatalf("rotate with current token: %v", err)
	}
}

func TestManagerRotateFailures(t *testing.T) {
	manager, store := newTestManager(time.Minute, time.Hour)

	if _, err := manager.Rotate(context.Background(), ""); !errors.Is(err, ErrRefreshTokenInvalid) {
		t.Fatalf("expected ErrRefreshTokenInvalid for empty token got %v", err)
	}
	if _, err := manager.Rotate(context.Background(), "not-a-jwt"); !errors.Is(err, ErrRefreshTokenInvalid) {
		t.Fatalf("expected ErrRefreshTokenInvalid for garbage got %v", err)
	}

	tokens, err := manager.Issue(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	// An access token presented as a refresh token is rejected.
	if _, err := manager.Rotate(context.Background(), tokens.AccessToken); !errors.Is(err, ErrRefreshTokenInvalid) {
		t.Fatalf("expected ErrRefreshTokenInvalid for access token got %v", err)
	}

	// A failed rotation performs no write.
	stored, err := store.GetRefreshToken(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("get refresh token: %v", err)
	}
	if stored != tokens.RefreshToken {
		t.Fatal("stored refresh token changed after failed rotation")
	}
}

func TestManagerRotateExpiredRefreshToken(t *testing.T) {
	manager, _ := newTestManager(time.Minute, time.Hour)
	manager.NowFunc = func() time.Time { return time.Now().UTC().Add(-2 * time.Hour) }

	tokens, err := manager.Issue(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	manager.NowFunc = nil
	if _, err := manager.Rotate(context.Background(), tokens.RefreshToken); !errors.Is(err, ErrRefreshTokenInvalid) {
		t.Fatalf("expected ErrRefreshTokenInvalid for expired token got %v", err)
	}
}

func TestManagerInvalidate(t *testing.T) {
	manager, _ := newTestManager(time.Minute, time.Hour)

	tokens, err := manager.Issue(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if err := manager.Invalidate(context.Background(), "user-1"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}

	if _, err := manager.Rotate(context.Background(), tokens.RefreshToken); !errors.Is(err, ErrRefreshTokenInvalid) {
		t.Fatalf("expected ErrRefreshTokenInvalid after logout got %v", err)
	}

	// Issue works again after logout, as on a fresh login.
	if _, err := manager.Issue(context.Background(), "user-1"); err != nil {
		t.Fatalf("issue after invalidate: %v", err)
	}
}

func TestManagerConcurrentRotate(t *testing.T) {
	manager, _ := newTestManager(time.Minute, time.Hour)

	tokens, err := manager.Issue(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	const racers = 8
	var wg sync.WaitGroup
	results := make(chan error, racers)

	wg.Add(racers)
	for i := 0; i < racers; i++ {
		go func() {
			defer wg.Done()
			_, err := manager.Rotate(context.Background(), tokens.RefreshToken)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var won, lost int
	for err := range results {
		switch {
		case err == nil:
			won++
		case errors.Is(err, ErrRefreshTokenInvalid):
			lost++
		default:
			t.Fatalf("unexpected rotation error: %v", err)
		}
	}

	if won != 1 {
		t.Fatalf("expected exactly one winning rotation, got %d (lost %d)", won, lost)
	}
	if lost != racers-1 {
		t.Fatalf("expected %d losing rotations, got %d", racers-1, lost)
	}
}
