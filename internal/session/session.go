// Package session owns the authenticated portal session: the raw
// Cognito tokens plus the decoded ID-token claims, persisted together
// and cleared together.
package session

import (
	"github.com/egepakten/cognito-student-registry/internal/roles"
	"github.com/egepakten/cognito-student-registry/internal/token"
)

// Tokens holds the three raw token strings returned by Cognito.
type Tokens struct {
	AccessToken  string `json:"accessToken"`
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
}

// Session is an authenticated user's state. It exists only between a
// successful Save and a Clear (or lazy expiry on Load).
type Session struct {
	ID     string
	Tokens Tokens
	Claims token.Claims
}

// Email returns the account email from the decoded claims.
func (s *Session) Email() string {
	return s.Claims.Email()
}

// Sub returns the stable Cognito user identifier.
func (s *Session) Sub() string {
	return s.Claims.Sub()
}

// Role derives the portal role from group claims. Recomputed on every
// call so a refreshed token is never shadowed by a stale value.
func (s *Session) Role() roles.Role {
	return roles.Resolve(s.Claims.Groups())
}
