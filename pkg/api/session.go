package api

import (
	"errors"

	"github.com/golang-jwt/jwt/v4"
)

var errUnexpectedSigning = errors.New("unexpected token signing method")

// SessionValidator answers the single question the core asks about
// authentication: is this request's session valid. Write operations that
// require a session are silently inert without one.
type SessionValidator interface {
	ValidateSession(token string) bool
}

// JWTValidator validates HMAC-signed session tokens.
type JWTValidator struct {
	secret []byte
}

// NewJWTValidator builds a validator for tokens signed with the shared
// secret.
func NewJWTValidator(secret string) *JWTValidator {
	return &JWTValidator{secret: []byte(secret)}
}

func (v *JWTValidator) ValidateSession(token string) bool {
	if token == "" {
		return false
	}

	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errUnexpectedSigning
		}

		return v.secret, nil
	})

	return err == nil && parsed.Valid
}

// denySessions is the default validator: no session is ever valid.
type denySessions struct{}

func (denySessions) ValidateSession(string) bool { return false }

// allowSessions accepts any session; used by tests.
type allowSessions struct{}

func (allowSessions) ValidateSession(string) bool { return true }
