package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/vidtube/backend/internal/logging"
)

type principalKey struct{}

// AccessValidator verifies an access token and returns the principal it asserts.
type AccessValidator interface {
	ValidateAccess(token string) (string, error)
}

// WithPrincipal stores the authenticated principal id on the context.
func WithPrincipal(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, principalKey{}, userID)
}

// PrincipalFromContext returns the authenticated principal id, or "" when the
// request was not authenticated.
func PrincipalFromContext(ctx context.Context) string {
	if userID, ok := ctx.Value(principalKey{}).(string); ok {
		return userID
	}
	return ""
}

// RequireAuth validates the request's access token and attaches the resolved
// principal to the context before invoking next. Requests without a valid
// token are rejected and never reach the handler.
func RequireAuth(validator AccessValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				unauthorized(w, "authentication required")
				return
			}

			userID, err := validator.ValidateAccess(token)
			if err != nil {
				logging.FromContext(r.Context()).Warn("access token rejected", "error", err)
				unauthorized(w, "invalid or expired access token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), userID)))
		})
	}
}

// OptionalAuth attaches the principal when a valid access token accompanies
// the request but lets anonymous requests through untouched.
func OptionalAuth(validator AccessValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token := bearerToken(r); token != "" {
				if userID, err := validator.ValidateAccess(token); err == nil {
					r = r.WithContext(WithPrincipal(r.Context(), userID))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// bearerToken extracts the access token from the Authorization header,
// falling back to the accessToken cookie set at login.
func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header != "" {
		if token, ok := strings.CutPrefix(header, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
		return ""
	}

	if cookie, err := r.Cookie("accessToken"); err == nil {
		return cookie.Value
	}
	return ""
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"statusCode": http.StatusUnauthorized,
		"message":    message,
	})
}
