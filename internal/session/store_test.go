package session_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/egepakten/cognito-student-registry/internal/roles"
	"github.com/egepakten/cognito-student-registry/internal/session"
	_ "github.com/egepakten/cognito-student-registry/testing"
)

func newStore(t *testing.T, opts ...session.StoreOption) *session.Store {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return session.NewStore(client, time.Hour, opts...)
}

func idToken(t *testing.T, claims map[string]any) string {
	t.Helper()
	payload, err := json.Marshal(claims)
	require.NoError(t, err)
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"RS256"}`))
	return header + "." + base64.RawURLEncoding.EncodeToString(payload) + ".sig"
}

func validTokens(t *testing.T, claims map[string]any) session.Tokens {
	t.Helper()
	return session.Tokens{
		AccessToken:  "access-token",
		IDToken:      idToken(t, claims),
		RefreshToken: "refresh-token",
	}
}

func TestSaveThenLoad(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	tokens := validTokens(t, map[string]any{
		"sub":            "user-1",
		"email":          "jane@wiseuni.edu",
		"cognito:groups": []string{"students"},
		"exp":            float64(time.Now().Add(time.Hour).Unix()),
	})

	saved, err := store.Save(ctx, "sid-1", tokens)
	require.NoError(t, err)
	assert.Equal(t, "jane@wiseuni.edu", saved.Email())

	loaded, err := store.Load(ctx, "sid-1")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "jane@wiseuni.edu", loaded.Email())
	assert.Equal(t, "user-1", loaded.Sub())
	assert.Equal(t, roles.RoleStudent, loaded.Role())
	assert.Equal(t, tokens, loaded.Tokens)
}

func TestSaveRejectsUndecodableIDToken(t *testing.T) {
	store := newStore(t)

	_, err := store.Save(context.Background(), "sid-1", session.Tokens{IDToken: "garbage"})
	assert.ErrorIs(t, err, session.ErrInvalidToken)
}

func TestLoadAbsentSession(t *testing.T) {
	store := newStore(t)

	sess, err := store.Load(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, sess)
}

func TestLoadExpiredSessionClearsState(t *testing.T) {
	now := time.Now()
	store := newStore(t, session.WithNow(func() time.Time { return now }))
	ctx := context.Background()

	_, err := store.Save(ctx, "sid-1", validTokens(t, map[string]any{
		"sub": "user-1",
		"exp": float64(now.Add(-time.Minute).Unix()),
	}))
	require.NoError(t, err)

	sess, err := store.Load(ctx, "sid-1")
	require.NoError(t, err)
	assert.Nil(t, sess)

	// A second load must not resurrect anything.
	sess, err = store.Load(ctx, "sid-1")
	require.NoError(t, err)
	assert.Nil(t, sess)
}

func TestClearThenLoad(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	_, err := store.Save(ctx, "sid-1", validTokens(t, map[string]any{
		"sub": "user-1",
		"exp": float64(time.Now().Add(time.Hour).Unix()),
	}))
	require.NoError(t, err)

	require.NoError(t, store.Clear(ctx, "sid-1"))
	require.NoError(t, store.Clear(ctx, "sid-1"))

	sess, err := store.Load(ctx, "sid-1")
	require.NoError(t, err)
	assert.Nil(t, sess)
}
