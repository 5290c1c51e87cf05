package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/egepakten/cognito-student-registry/internal/session"
)

// TokenExchangeError reports a failed authorization-code exchange.
// Description carries the provider's error_description when the
// response included one; otherwise callers fall back to StatusCode.
type TokenExchangeError struct {
	StatusCode  int
	Description string
}

func (e *TokenExchangeError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("token exchange failed: %s", e.Description)
	}
	return fmt.Sprintf("token exchange failed with status %d", e.StatusCode)
}

// Exchanger performs the OAuth2 authorization-code grant against the
// hosted-UI token endpoint. Codes are single-use on the provider
// side; the calling handler must not invoke Exchange twice for the
// same code.
type Exchanger struct {
	httpClient    *http.Client
	tokenEndpoint string
	clientID      string
	redirectURI   string
}

// NewExchanger constructs an Exchanger. A nil httpClient falls back
// to http.DefaultClient, relying on the transport's default timeout
// behavior.
func NewExchanger(httpClient *http.Client, tokenEndpoint, clientID, redirectURI string) *Exchanger {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Exchanger{
		httpClient:    httpClient,
		tokenEndpoint: tokenEndpoint,
		clientID:      clientID,
		redirectURI:   redirectURI,
	}
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	IDToken      string `json:"id_token"`
	RefreshToken string `json:"refresh_token"`
}

type tokenErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// Exchange posts the authorization code to the token endpoint and
// returns the resulting token triple.
func (e *Exchanger) Exchange(ctx context.Context, code string) (session.Tokens, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("client_id", e.clientID)
	form.Set("code", code)
	form.Set("redirect_uri", e.redirectURI)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.tokenEndpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return session.Tokens{}, fmt.Errorf("token exchange: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	res, err := e.httpClient.Do(req)
	if err != nil {
		return session.Tokens{}, fmt.Errorf("token exchange: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return session.Tokens{}, fmt.Errorf("token exchange: read response: %w", err)
	}

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		var provider tokenErrorResponse
		_ = json.Unmarshal(body, &provider)
		return session.Tokens{}, &TokenExchangeError{
			StatusCode:  res.StatusCode,
			Description: provider.ErrorDescription,
		}
	}

	var tokens tokenResponse
	if err := json.Unmarshal(body, &tokens); err != nil {
		return session.Tokens{}, fmt.Errorf("token exchange: decode response: %w", err)
	}
	return session.Tokens{
		AccessToken:  tokens.AccessToken,
		IDToken:      tokens.IDToken,
		RefreshToken: tokens.RefreshToken,
	}, nil
}
