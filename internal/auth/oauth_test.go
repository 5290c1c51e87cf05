package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/egepakten/cognito-student-registry/internal/session"
	_ "github.com/egepakten/cognito-student-registry/testing"
)

func TestExchangeSendsAuthorizationCodeForm(t *testing.T) {
	var gotForm map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotForm = map[string]string{
			"grant_type":   r.PostForm.Get("grant_type"),
			"client_id":    r.PostForm.Get("client_id"),
			"code":         r.PostForm.Get("code"),
			"redirect_uri": r.PostForm.Get("redirect_uri"),
		}
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"a","id_token":"i","refresh_token":"r"}`))
	}))
	defer srv.Close()

	ex := NewExchanger(srv.Client(), srv.URL, "client-1", "https://portal.wiseuni.edu/callback")
	tokens, err := ex.Exchange(context.Background(), "auth-code")
	require.NoError(t, err)

	assert.Equal(t, session.Tokens{AccessToken: "a", IDToken: "i", RefreshToken: "r"}, tokens)
	assert.Equal(t, map[string]string{
		"grant_type":   "authorization_code",
		"client_id":    "client-1",
		"code":         "auth-code",
		"redirect_uri": "https://portal.wiseuni.edu/callback",
	}, gotForm)
}

func TestExchangeSurfacesErrorDescription(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"invalid_grant","error_description":"authorization code expired"}`))
	}))
	defer srv.Close()

	ex := NewExchanger(srv.Client(), srv.URL, "client-1", "https://portal.wiseuni.edu/callback")
	_, err := ex.Exchange(context.Background(), "stale-code")

	var exchangeErr *TokenExchangeError
	require.ErrorAs(t, err, &exchangeErr)
	assert.Equal(t, http.StatusBadRequest, exchangeErr.StatusCode)
	assert.Equal(t, "authorization code expired", exchangeErr.Description)
	assert.Contains(t, exchangeErr.Error(), "authorization code expired")
}

func TestExchangeFallsBackToStatusWhenBodyOpaque(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream melted"))
	}))
	defer srv.Close()

	ex := NewExchanger(srv.Client(), srv.URL, "client-1", "https://portal.wiseuni.edu/callback")
	_, err := ex.Exchange(context.Background(), "auth-code")

	var exchangeErr *TokenExchangeError
	require.ErrorAs(t, err, &exchangeErr)
	assert.Equal(t, http.StatusBadGateway, exchangeErr.StatusCode)
	assert.Empty(t, exchangeErr.Description)
	assert.Contains(t, exchangeErr.Error(), "502")
}

func TestExchangeRejectsUnreachableEndpoint(t *testing.T) {
	ex := NewExchanger(nil, "http://127.0.0.1:1/oauth2/token", "client-1", "https://portal.wiseuni.edu/callback")
	_, err := ex.Exchange(context.Background(), "auth-code")
	require.Error(t, err)
}
