package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	kindAccess  = "access"
	kindRefresh = "refresh"
)

// claims carries the principal identity plus a type marker so an access token
// can never be replayed as a refresh token or vice versa.
type claims struct {
	jwt.RegisteredClaims
	TokenType string `json:"typ"`
}

// tokenSigner mints and verifies HMAC-signed bearer tokens.
type tokenSigner struct {
	secret []byte
}

func (s tokenSigner) sign(userID, kind string, issuedAt time.Time, ttl time.Duration) (string, time.Time, error) {
	expiresAt := issuedAt.Add(ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		RegisteredClaims: jwt.RegisteredClaims{
			// The jti keeps two tokens minted within the same second distinct,
			// which rotation equality checks depend on.
			ID:        uuid.NewString(),
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		TokenType: kind,
	})

	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// parse verifies signature and expiry only; it never consults any store.
func (s tokenSigner) parse(tokenString, kind string) (string, error) {
	parsed := &claims{}
	token, err := jwt.ParseWithClaims(tokenString, parsed, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrTokenExpired
		}
		return "", ErrTokenInvalid
	}
	if !token.Valid || parsed.TokenType != kind || parsed.Subject == "" {
		return "", ErrTokenInvalid
	}
	return parsed.Subject, nil
}
