package auth

import (
	"fmt"
	"net/url"
	"strings"
)

// HostedUI builds the provider-hosted login, signup, and logout URLs
// for the redirect-based flow.
type HostedUI struct {
	Domain            string
	ClientID          string
	Scopes            []string
	RedirectSignInURI string
	SignOutURI        string
}

// TokenEndpoint returns the hosted-UI OAuth2 token endpoint.
func (h HostedUI) TokenEndpoint() string {
	return fmt.Sprintf("https://%s/oauth2/token", h.Domain)
}

// LoginURL returns the hosted login page with the code-grant params.
func (h HostedUI) LoginURL() string {
	return h.entryURL("login")
}

// SignupURL returns the hosted signup page with the code-grant params.
func (h HostedUI) SignupURL() string {
	return h.entryURL("signup")
}

// LogoutURL returns the hosted logout URL, which also ends the
// provider's own cookie session.
func (h HostedUI) LogoutURL() string {
	params := url.Values{}
	params.Set("client_id", h.ClientID)
	params.Set("logout_uri", h.SignOutURI)
	return fmt.Sprintf("https://%s/logout?%s", h.Domain, params.Encode())
}

func (h HostedUI) entryURL(page string) string {
	params := url.Values{}
	params.Set("client_id", h.ClientID)
	params.Set("response_type", "code")
	params.Set("scope", strings.Join(h.Scopes, " "))
	params.Set("redirect_uri", h.RedirectSignInURI)
	return fmt.Sprintf("https://%s/%s?%s", h.Domain, page, params.Encode())
}
