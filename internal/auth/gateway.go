// Package auth wraps the Cognito user pool: credential signup and
// login, email verification, password lifecycle, and the hosted-UI
// authorization-code exchange.
package auth

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"

	"github.com/egepakten/cognito-student-registry/internal/session"
	"github.com/egepakten/cognito-student-registry/internal/shared"
)

// CognitoAPI is the slice of the Cognito identity provider client the
// gateway depends on.
type CognitoAPI interface {
	SignUp(ctx context.Context, in *cognitoidentityprovider.SignUpInput, optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.SignUpOutput, error)
	ConfirmSignUp(ctx context.Context, in *cognitoidentityprovider.ConfirmSignUpInput, optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.ConfirmSignUpOutput, error)
	ResendConfirmationCode(ctx context.Context, in *cognitoidentityprovider.ResendConfirmationCodeInput, optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.ResendConfirmationCodeOutput, error)
	InitiateAuth(ctx context.Context, in *cognitoidentityprovider.InitiateAuthInput, optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.InitiateAuthOutput, error)
	ForgotPassword(ctx context.Context, in *cognitoidentityprovider.ForgotPasswordInput, optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.ForgotPasswordOutput, error)
	ConfirmForgotPassword(ctx context.Context, in *cognitoidentityprovider.ConfirmForgotPasswordInput, optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.ConfirmForgotPasswordOutput, error)
	ChangePassword(ctx context.Context, in *cognitoidentityprovider.ChangePasswordInput, optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.ChangePasswordOutput, error)
	GlobalSignOut(ctx context.Context, in *cognitoidentityprovider.GlobalSignOutInput, optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.GlobalSignOutOutput, error)
}

// Gateway issues single round trips against the user pool. Operations
// never retry; provider failures surface as translated *Error values.
type Gateway struct {
	api      CognitoAPI
	clientID string
}

// NewGateway constructs a Gateway for the given app client.
func NewGateway(api CognitoAPI, clientID string) *Gateway {
	return &Gateway{api: api, clientID: clientID}
}

// SignUp registers a new account with email and name attributes. The
// account stays unconfirmed until VerifyEmail succeeds.
func (g *Gateway) SignUp(ctx context.Context, email, password, name string) error {
	_, err := g.api.SignUp(ctx, &cognitoidentityprovider.SignUpInput{
		ClientId: aws.String(g.clientID),
		Username: aws.String(email),
		Password: aws.String(password),
		UserAttributes: []types.AttributeType{
			{Name: aws.String("email"), Value: aws.String(email)},
			{Name: aws.String("name"), Value: aws.String(name)},
		},
	})
	return translate(err)
}

// VerifyEmail confirms a registration with the emailed code.
func (g *Gateway) VerifyEmail(ctx context.Context, email, code string) error {
	_, err := g.api.ConfirmSignUp(ctx, &cognitoidentityprovider.ConfirmSignUpInput{
		ClientId:         aws.String(g.clientID),
		Username:         aws.String(email),
		ConfirmationCode: aws.String(code),
	})
	return translate(err)
}

// ResendVerificationCode requests a fresh confirmation code.
func (g *Gateway) ResendVerificationCode(ctx context.Context, email string) error {
	_, err := g.api.ResendConfirmationCode(ctx, &cognitoidentityprovider.ResendConfirmationCodeInput{
		ClientId: aws.String(g.clientID),
		Username: aws.String(email),
	})
	return translate(err)
}

// Login exchanges credentials for the three raw token strings. It
// needs no existing session.
func (g *Gateway) Login(ctx context.Context, email, password string) (session.Tokens, error) {
	out, err := g.api.InitiateAuth(ctx, &cognitoidentityprovider.InitiateAuthInput{
		ClientId: aws.String(g.clientID),
		AuthFlow: types.AuthFlowTypeUserPasswordAuth,
		AuthParameters: map[string]string{
			"USERNAME": email,
			"PASSWORD": password,
		},
	})
	if err != nil {
		return session.Tokens{}, translate(err)
	}
	result := out.AuthenticationResult
	if result == nil {
		return session.Tokens{}, &Error{
			Category: CategoryUnknown,
			Message:  "authentication produced no tokens (unhandled challenge)",
		}
	}
	return session.Tokens{
		AccessToken:  aws.ToString(result.AccessToken),
		IDToken:      aws.ToString(result.IdToken),
		RefreshToken: aws.ToString(result.RefreshToken),
	}, nil
}

// ForgotPassword starts the reset flow by sending a code to the
// account email.
func (g *Gateway) ForgotPassword(ctx context.Context, email string) error {
	_, err := g.api.ForgotPassword(ctx, &cognitoidentityprovider.ForgotPasswordInput{
		ClientId: aws.String(g.clientID),
		Username: aws.String(email),
	})
	return translate(err)
}

// ConfirmPasswordReset completes the reset flow with the emailed code.
func (g *Gateway) ConfirmPasswordReset(ctx context.Context, email, code, newPassword string) error {
	_, err := g.api.ConfirmForgotPassword(ctx, &cognitoidentityprovider.ConfirmForgotPasswordInput{
		ClientId:         aws.String(g.clientID),
		Username:         aws.String(email),
		ConfirmationCode: aws.String(code),
		Password:         aws.String(newPassword),
	})
	return translate(err)
}

// ChangePassword rotates the password of a logged-in account. The
// access token comes from the caller's loaded session; without one
// the operation fails with shared.ErrNotAuthenticated.
func (g *Gateway) ChangePassword(ctx context.Context, sess *session.Session, oldPassword, newPassword string) error {
	if sess == nil || sess.Tokens.AccessToken == "" {
		return fmt.Errorf("change password: %w", shared.ErrNotAuthenticated)
	}
	_, err := g.api.ChangePassword(ctx, &cognitoidentityprovider.ChangePasswordInput{
		AccessToken:      aws.String(sess.Tokens.AccessToken),
		PreviousPassword: aws.String(oldPassword),
		ProposedPassword: aws.String(newPassword),
	})
	return translate(err)
}

// Logout revokes the session's tokens pool-wide. A missing session is
// not an error; logout is idempotent from the caller's point of view.
func (g *Gateway) Logout(ctx context.Context, sess *session.Session) error {
	if sess == nil || sess.Tokens.AccessToken == "" {
		return nil
	}
	_, err := g.api.GlobalSignOut(ctx, &cognitoidentityprovider.GlobalSignOutInput{
		AccessToken: aws.String(sess.Tokens.AccessToken),
	})
	return translate(err)
}
