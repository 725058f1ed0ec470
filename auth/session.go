// Package auth manages the hosted-sync session: a thin client for a
// GoTrue-shaped auth service and a Keeper that holds the current session,
// refreshes it in the background, and mirrors it locally for remember-me.
package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// User identifies the signed-in account.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
}

// Session is the token pair returned by the auth service.
type Session struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type,omitempty"`
	ExpiresIn    int    `json:"expires_in,omitempty"`
	ExpiresAt    int64  `json:"expires_at,omitempty"`
	RefreshToken string `json:"refresh_token"`
	User         User   `json:"user"`
}

// Expiry returns when the access token expires. When the payload lacks
// expires_at it falls back to the JWT exp claim (read without verification;
// the service is the authority, this is only for scheduling refreshes).
// Returns the zero time when neither is available.
func (s *Session) Expiry() time.Time {
	if s.ExpiresAt > 0 {
		return time.Unix(s.ExpiresAt, 0)
	}

	tok, _, err := jwt.NewParser().ParseUnverified(s.AccessToken, &jwt.RegisteredClaims{})
	if err != nil {
		return time.Time{}
	}
	claims, ok := tok.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.ExpiresAt == nil {
		return time.Time{}
	}
	return claims.ExpiresAt.Time
}

// Expired reports whether the access token is expired or will be within the
// given skew window. Sessions with no known expiry never report expired.
func (s *Session) Expired(skew time.Duration) bool {
	exp := s.Expiry()
	if exp.IsZero() {
		return false
	}
	return !time.Now().Add(skew).Before(exp)
}
