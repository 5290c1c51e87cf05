// Package federation trades a user-pool ID token for short-lived AWS
// credentials scoped by the identity pool's role mapping.
package federation

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentity"
)

// ErrFederation marks failures of the credential exchange. Callers
// treat these as authorization failures, not transport ones.
var ErrFederation = errors.New("credential federation failed")

// Identity is the result of a completed exchange: the stable identity
// ID and the temporary credential triple minted for it.
type Identity struct {
	ID          string
	Credentials aws.Credentials
}

// IdentityAPI is the slice of the Cognito identity client the bridge
// depends on.
type IdentityAPI interface {
	GetId(ctx context.Context, in *cognitoidentity.GetIdInput, optFns ...func(*cognitoidentity.Options)) (*cognitoidentity.GetIdOutput, error)
	GetCredentialsForIdentity(ctx context.Context, in *cognitoidentity.GetCredentialsForIdentityInput, optFns ...func(*cognitoidentity.Options)) (*cognitoidentity.GetCredentialsForIdentityOutput, error)
}

// Bridge performs the two-call exchange against an identity pool. It
// holds no state and caches nothing; every call hits the pool so a
// revoked or expired token fails immediately.
type Bridge struct {
	api            IdentityAPI
	identityPoolID string
	loginsKey      string
}

// NewBridge constructs a Bridge for the given identity pool. The
// logins key binds the exchange to the user pool the ID tokens come
// from.
func NewBridge(api IdentityAPI, region, userPoolID, identityPoolID string) *Bridge {
	return &Bridge{
		api:            api,
		identityPoolID: identityPoolID,
		loginsKey:      fmt.Sprintf("cognito-idp.%s.amazonaws.com/%s", region, userPoolID),
	}
}

// ScopedCredentials resolves the identity ID for the token and mints
// temporary credentials for it. Both provider calls are
// side-effect-free beyond lazy identity creation, so a failed
// exchange leaves nothing to clean up.
func (b *Bridge) ScopedCredentials(ctx context.Context, idToken string) (*Identity, error) {
	logins := map[string]string{b.loginsKey: idToken}

	idOut, err := b.api.GetId(ctx, &cognitoidentity.GetIdInput{
		IdentityPoolId: aws.String(b.identityPoolID),
		Logins:         logins,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: resolve identity: %v", ErrFederation, err)
	}
	if idOut.IdentityId == nil {
		return nil, fmt.Errorf("%w: identity pool returned no identity ID", ErrFederation)
	}

	credOut, err := b.api.GetCredentialsForIdentity(ctx, &cognitoidentity.GetCredentialsForIdentityInput{
		IdentityId: idOut.IdentityId,
		Logins:     logins,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: mint credentials: %v", ErrFederation, err)
	}
	creds := credOut.Credentials
	if creds == nil || creds.AccessKeyId == nil || creds.SecretKey == nil {
		return nil, fmt.Errorf("%w: identity pool returned no credentials", ErrFederation)
	}

	identity := &Identity{
		ID: aws.ToString(idOut.IdentityId),
		Credentials: aws.Credentials{
			AccessKeyID:     aws.ToString(creds.AccessKeyId),
			SecretAccessKey: aws.ToString(creds.SecretKey),
			SessionToken:    aws.ToString(creds.SessionToken),
			CanExpire:       creds.Expiration != nil,
		},
	}
	if creds.Expiration != nil {
		identity.Credentials.Expires = *creds.Expiration
	}
	return identity, nil
}
