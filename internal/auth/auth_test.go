package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signToken(t *testing.T, subject string, expiresAt time.Time) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub":      subject,
		"username": "cajero1",
		"role":     "cashier",
	}
	if !expiresAt.IsZero() {
		claims["exp"] = expiresAt.Unix()
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return signed
}

func TestParseAccessToken(t *testing.T) {
	token := signToken(t, "op-1", time.Now().Add(time.Hour))
	id, err := ParseAccessToken(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if id.ID != "op-1" || id.Username != "cajero1" || id.Role != "cashier" {
		t.Fatalf("identity = %+v", id)
	}
	if id.Expired() {
		t.Fatal("identity should not be expired")
	}
}

func TestParseAccessTokenExpired(t *testing.T) {
	token := signToken(t, "op-1", time.Now().Add(-time.Minute))
	id, err := ParseAccessToken(token)
	if !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("err = %v, want ErrTokenExpired", err)
	}
	// The identity is still returned so an offline unlock can use it.
	if id == nil || id.ID != "op-1" {
		t.Fatalf("identity = %+v, want op-1", id)
	}
}

func TestParseAccessTokenMalformed(t *testing.T) {
	for _, token := range []string{"", "not-a-token", "a.b"} {
		if _, err := ParseAccessToken(token); !errors.Is(err, ErrMalformedToken) {
			t.Fatalf("token %q: err = %v, want ErrMalformedToken", token, err)
		}
	}
}

func TestParseAccessTokenMissingSubject(t *testing.T) {
	token := signToken(t, "", time.Now().Add(time.Hour))
	if _, err := ParseAccessToken(token); !errors.Is(err, ErrMalformedToken) {
		t.Fatalf("err = %v, want ErrMalformedToken", err)
	}
}

func TestPINCache(t *testing.T) {
	cache := NewPINCache(time.Hour)

	if err := cache.Verify("op-1", "1234"); !errors.Is(err, ErrPINNotEnrolled) {
		t.Fatalf("verify before enroll: %v, want ErrPINNotEnrolled", err)
	}

	if err := cache.Enroll("op-1", "1234"); err != nil {
		t.Fatalf("enroll: %v", err)
	}
	if err := cache.Verify("op-1", "1234"); err != nil {
		t.Fatalf("verify: %v", err)
	}
	if err := cache.Verify("op-1", "9999"); !errors.Is(err, ErrPINMismatch) {
		t.Fatalf("wrong pin: %v, want ErrPINMismatch", err)
	}

	cache.Clear("op-1")
	if err := cache.Verify("op-1", "1234"); !errors.Is(err, ErrPINNotEnrolled) {
		t.Fatalf("verify after clear: %v, want ErrPINNotEnrolled", err)
	}
}

func TestPINCacheExpiry(t *testing.T) {
	cache := NewPINCache(-time.Second)
	if err := cache.Enroll("op-1", "1234"); err != nil {
		t.Fatalf("enroll: %v", err)
	}
	if err := cache.Verify("op-1", "1234"); !errors.Is(err, ErrPINExpired) {
		t.Fatalf("verify expired: %v, want ErrPINExpired", err)
	}
}
