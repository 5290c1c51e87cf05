package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/egepakten/cognito-student-registry/internal/token"
)

// ErrInvalidToken indicates Save was handed tokens whose ID token
// could not be decoded.
var ErrInvalidToken = errors.New("invalid session token")

const (
	keyPrefix   = "registry:session:"
	fieldTokens = "tokens"
	fieldClaims = "claims"
)

// Store persists sessions in Redis. Each session occupies one hash
// with two fields, tokens and claims, written and deleted as a unit.
type Store struct {
	client *redis.Client
	ttl    time.Duration
	now    func() time.Time
}

// StoreOption adjusts a Store.
type StoreOption func(*Store)

// WithNow sets the clock used for expiry checks (for tests).
func WithNow(now func() time.Time) StoreOption {
	return func(s *Store) {
		s.now = now
	}
}

// NewStore constructs a Store backed by the given Redis client.
func NewStore(client *redis.Client, ttl time.Duration, opts ...StoreOption) *Store {
	s := &Store{client: client, ttl: ttl, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TTL returns the lifetime applied to stored sessions, so cookie
// expiry can track the store's.
func (s *Store) TTL() time.Duration {
	return s.ttl
}

// Save decodes the ID token, persists tokens and claims under id, and
// returns the resulting session. This is the only transition from
// unauthenticated to authenticated.
func (s *Store) Save(ctx context.Context, id string, tokens Tokens) (*Session, error) {
	claims, err := token.Decode(tokens.IDToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	tokensJSON, err := json.Marshal(tokens)
	if err != nil {
		return nil, fmt.Errorf("session: marshal tokens: %w", err)
	}
	claimsJSON, err := json.Marshal(claims.MapClaims)
	if err != nil {
		return nil, fmt.Errorf("session: marshal claims: %w", err)
	}

	key := keyPrefix + id
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key, fieldTokens, tokensJSON, fieldClaims, claimsJSON)
	pipe.Expire(ctx, key, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("session: persist: %w", err)
	}

	return &Session{ID: id, Tokens: tokens, Claims: claims}, nil
}

// Load returns the session stored under id, or nil when no valid
// session exists. Unparsable or expired state is cleared before
// returning nil; expiry is only ever detected here, there is no
// background sweep.
func (s *Store) Load(ctx context.Context, id string) (*Session, error) {
	if id == "" {
		return nil, nil
	}

	fields, err := s.client.HGetAll(ctx, keyPrefix+id).Result()
	if err != nil {
		return nil, fmt.Errorf("session: load: %w", err)
	}
	if len(fields) == 0 {
		return nil, nil
	}

	var tokens Tokens
	if err := json.Unmarshal([]byte(fields[fieldTokens]), &tokens); err != nil {
		return nil, s.Clear(ctx, id)
	}
	var claims token.Claims
	if err := json.Unmarshal([]byte(fields[fieldClaims]), &claims.MapClaims); err != nil {
		return nil, s.Clear(ctx, id)
	}

	if claims.Expired(s.now().UnixMilli()) {
		return nil, s.Clear(ctx, id)
	}

	return &Session{ID: id, Tokens: tokens, Claims: claims}, nil
}

// Clear removes all persisted state for id. Clearing an absent
// session is a no-op.
func (s *Store) Clear(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, keyPrefix+id).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("session: clear: %w", err)
	}
	return nil
}
