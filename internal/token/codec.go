// Package token decodes Cognito JWT payloads into a claims map.
//
// Decoding is deliberately unverified: tokens reach this process over
// the provider's own response channel (direct HTTPS call or hosted-UI
// redirect), so the payload is only mined for display and
// authorization claims. Callers must check expiry themselves via
// Claims.Expired.
package token

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// ErrMalformedToken indicates the raw token could not be decoded.
var ErrMalformedToken = errors.New("malformed token")

// Claims is the decoded payload of an identity token.
type Claims struct {
	jwt.MapClaims
}

// Decode extracts the claims map from the payload segment of a JWT.
// It performs no signature or expiry verification.
func Decode(raw string) (Claims, error) {
	segments := strings.Split(raw, ".")
	if len(segments) < 2 {
		return Claims{}, fmt.Errorf("%w: expected at least 2 segments, got %d", ErrMalformedToken, len(segments))
	}

	payload, err := jwt.NewParser().DecodeSegment(normalizeSegment(segments[1]))
	if err != nil {
		return Claims{}, fmt.Errorf("%w: payload segment: %v", ErrMalformedToken, err)
	}

	var claims jwt.MapClaims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return Claims{}, fmt.Errorf("%w: payload is not a JSON object: %v", ErrMalformedToken, err)
	}
	return Claims{MapClaims: claims}, nil
}

// normalizeSegment maps a segment emitted in the standard base64
// alphabet, padded or not, onto the raw URL-safe form the parser
// expects. URL-safe input passes through untouched.
func normalizeSegment(seg string) string {
	seg = strings.TrimRight(seg, "=")
	seg = strings.ReplaceAll(seg, "+", "-")
	return strings.ReplaceAll(seg, "/", "_")
}

// Sub returns the stable user identifier claim.
func (c Claims) Sub() string {
	sub, _ := c.GetSubject()
	return sub
}

// Email returns the email claim.
func (c Claims) Email() string {
	return c.stringClaim("email")
}

// EmailVerified reports whether the provider marked the email verified.
func (c Claims) EmailVerified() bool {
	switch v := c.MapClaims["email_verified"].(type) {
	case bool:
		return v
	case string:
		return v == "true"
	}
	return false
}

// Name returns the display-name claim, falling back to the email.
func (c Claims) Name() string {
	if name := c.stringClaim("name"); name != "" {
		return name
	}
	return c.Email()
}

// Groups returns the Cognito group memberships, in token order.
func (c Claims) Groups() []string {
	raw, ok := c.MapClaims["cognito:groups"].([]any)
	if !ok {
		return nil
	}
	groups := make([]string, 0, len(raw))
	for _, g := range raw {
		if s, ok := g.(string); ok {
			groups = append(groups, s)
		}
	}
	return groups
}

// TokenUse returns the token_use claim ("id" or "access").
func (c Claims) TokenUse() string {
	return c.stringClaim("token_use")
}

// Expired reports whether the exp claim has passed relative to nowMillis.
// A token without an exp claim is treated as expired.
func (c Claims) Expired(nowMillis int64) bool {
	exp, err := c.GetExpirationTime()
	if err != nil || exp == nil {
		return true
	}
	return exp.UnixMilli() <= nowMillis
}

func (c Claims) stringClaim(name string) string {
	s, _ := c.MapClaims[name].(string)
	return s
}
