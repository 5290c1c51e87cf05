package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/egepakten/cognito-student-registry/internal/federation"
	"github.com/egepakten/cognito-student-registry/internal/session"
	"github.com/egepakten/cognito-student-registry/internal/shared"
)

// CredentialSource exchanges a session's ID token for scoped AWS
// credentials.
type CredentialSource interface {
	ScopedCredentials(ctx context.Context, idToken string) (*federation.Identity, error)
}

// Service runs bucket operations on behalf of a session, federating
// fresh credentials for every call.
type Service struct {
	source   CredentialSource
	uploader *Uploader
}

// NewService constructs a Service.
func NewService(source CredentialSource, uploader *Uploader) *Service {
	return &Service{source: source, uploader: uploader}
}

func (s *Service) federate(ctx context.Context, sess *session.Session) (*federation.Identity, error) {
	if sess == nil || sess.Tokens.IDToken == "" {
		return nil, fmt.Errorf("federate: %w", shared.ErrNotAuthenticated)
	}
	return s.source.ScopedCredentials(ctx, sess.Tokens.IDToken)
}

// Upload stores a homework file under the caller's prefix and returns
// the object key.
func (s *Service) Upload(ctx context.Context, sess *session.Session, fileName, contentType string, body io.Reader) (string, error) {
	identity, err := s.federate(ctx, sess)
	if err != nil {
		return "", err
	}
	return s.uploader.Upload(ctx, identity.Credentials, sess.Role(), identity.ID, fileName, contentType, body)
}

// ListMine returns the caller's stored files.
func (s *Service) ListMine(ctx context.Context, sess *session.Session) ([]Object, error) {
	identity, err := s.federate(ctx, sess)
	if err != nil {
		return nil, err
	}
	return s.uploader.ListMine(ctx, identity.Credentials, sess.Role(), identity.ID)
}
