// Package auth consumes the backend-issued access token and caches an
// operator PIN for offline unlock. The terminal never verifies token
// signatures; the backend signed the token and the terminal only needs
// the identity claims inside it.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMalformedToken = errors.New("malformed access token")
	ErrTokenExpired   = errors.New("access token expired")
)

// Identity is the operator identity carried by a backend access token.
type Identity struct {
	ID        string
	Username  string
	Role      string
	ExpiresAt time.Time
}

func (id Identity) Expired() bool {
	if id.ExpiresAt.IsZero() {
		return false
	}
	return time.Now().After(id.ExpiresAt)
}

type accessClaims struct {
	jwt.RegisteredClaims
	Username string `json:"username"`
	Role     string `json:"role"`
}

// ParseAccessToken extracts the operator identity from a backend JWT
// without verifying the signature. An expired token still yields the
// identity alongside ErrTokenExpired so callers can offer an offline
// unlock path.
func ParseAccessToken(token string) (*Identity, error) {
	var claims accessClaims
	_, _, err := jwt.NewParser().ParseUnverified(token, &claims)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrMalformedToken)
	}

	id := &Identity{
		ID:       claims.Subject,
		Username: claims.Username,
		Role:     claims.Role,
	}
	if claims.ExpiresAt != nil {
		id.ExpiresAt = claims.ExpiresAt.Time
	}
	if id.Expired() {
		return id, ErrTokenExpired
	}
	return id, nil
}
