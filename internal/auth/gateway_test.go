package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/egepakten/cognito-student-registry/internal/session"
	"github.com/egepakten/cognito-student-registry/internal/shared"
	_ "github.com/egepakten/cognito-student-registry/testing"
)

// fakeCognito implements CognitoAPI with injectable failures.
type fakeCognito struct {
	err error

	signUpInput       *cognitoidentityprovider.SignUpInput
	initiateAuthInput *cognitoidentityprovider.InitiateAuthInput
	changeInput       *cognitoidentityprovider.ChangePasswordInput
	signOutInput      *cognitoidentityprovider.GlobalSignOutInput

	authResult *types.AuthenticationResultType
}

func (f *fakeCognito) SignUp(ctx context.Context, in *cognitoidentityprovider.SignUpInput, _ ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.SignUpOutput, error) {
	f.signUpInput = in
	if f.err != nil {
		return nil, f.err
	}
	return &cognitoidentityprovider.SignUpOutput{}, nil
}

func (f *fakeCognito) ConfirmSignUp(ctx context.Context, in *cognitoidentityprovider.ConfirmSignUpInput, _ ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.ConfirmSignUpOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &cognitoidentityprovider.ConfirmSignUpOutput{}, nil
}

func (f *fakeCognito) ResendConfirmationCode(ctx context.Context, in *cognitoidentityprovider.ResendConfirmationCodeInput, _ ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.ResendConfirmationCodeOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &cognitoidentityprovider.ResendConfirmationCodeOutput{}, nil
}

func (f *fakeCognito) InitiateAuth(ctx context.Context, in *cognitoidentityprovider.InitiateAuthInput, _ ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.InitiateAuthOutput, error) {
	f.initiateAuthInput = in
	if f.err != nil {
		return nil, f.err
	}
	return &cognitoidentityprovider.InitiateAuthOutput{AuthenticationResult: f.authResult}, nil
}

func (f *fakeCognito) ForgotPassword(ctx context.Context, in *cognitoidentityprovider.ForgotPasswordInput, _ ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.ForgotPasswordOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &cognitoidentityprovider.ForgotPasswordOutput{}, nil
}

func (f *fakeCognito) ConfirmForgotPassword(ctx context.Context, in *cognitoidentityprovider.ConfirmForgotPasswordInput, _ ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.ConfirmForgotPasswordOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &cognitoidentityprovider.ConfirmForgotPasswordOutput{}, nil
}

func (f *fakeCognito) ChangePassword(ctx context.Context, in *cognitoidentityprovider.ChangePasswordInput, _ ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.ChangePasswordOutput, error) {
	f.changeInput = in
	if f.err != nil {
		return nil, f.err
	}
	return &cognitoidentityprovider.ChangePasswordOutput{}, nil
}

func (f *fakeCognito) GlobalSignOut(ctx context.Context, in *cognitoidentityprovider.GlobalSignOutInput, _ ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.GlobalSignOutOutput, error) {
	f.signOutInput = in
	if f.err != nil {
		return nil, f.err
	}
	return &cognitoidentityprovider.GlobalSignOutOutput{}, nil
}

func providerError(code, message string) error {
	return &smithy.GenericAPIError{Code: code, Message: message}
}

func TestLoginReturnsTokenTriple(t *testing.T) {
	fake := &fakeCognito{authResult: &types.AuthenticationResultType{
		AccessToken:  aws.String("access-token"),
		IdToken:      aws.String("id-token"),
		RefreshToken: aws.String("refresh-token"),
	}}
	gateway := NewGateway(fake, "client-1")

	tokens, err := gateway.Login(context.Background(), "jane@wiseuni.edu", "hunter22!")
	require.NoError(t, err)
	assert.Equal(t, session.Tokens{
		AccessToken:  "access-token",
		IDToken:      "id-token",
		RefreshToken: "refresh-token",
	}, tokens)

	require.NotNil(t, fake.initiateAuthInput)
	assert.Equal(t, types.AuthFlowTypeUserPasswordAuth, fake.initiateAuthInput.AuthFlow)
	assert.Equal(t, "jane@wiseuni.edu", fake.initiateAuthInput.AuthParameters["USERNAME"])
}

func TestSignUpSendsAttributes(t *testing.T) {
	fake := &fakeCognito{}
	gateway := NewGateway(fake, "client-1")

	require.NoError(t, gateway.SignUp(context.Background(), "jane@wiseuni.edu", "hunter22!", "Jane Doe"))

	require.NotNil(t, fake.signUpInput)
	assert.Equal(t, "client-1", aws.ToString(fake.signUpInput.ClientId))
	assert.Len(t, fake.signUpInput.UserAttributes, 2)
}

func TestErrorTranslation(t *testing.T) {
	tests := []struct {
		code string
		want Category
	}{
		{"UsernameExistsException", CategoryDuplicateAccount},
		{"NotAuthorizedException", CategoryInvalidCredentials},
		{"UserNotConfirmedException", CategoryUnverifiedAccount},
		{"UserNotFoundException", CategoryAccountNotFound},
		{"CodeMismatchException", CategoryInvalidOrExpiredCode},
		{"ExpiredCodeException", CategoryInvalidOrExpiredCode},
		{"InvalidPasswordException", CategoryWeakPassword},
		{"LimitExceededException", CategoryRateLimited},
		{"TooManyRequestsException", CategoryRateLimited},
		{"SomethingNewException", CategoryUnknown},
	}

	for _, tc := range tests {
		t.Run(tc.code, func(t *testing.T) {
			fake := &fakeCognito{err: providerError(tc.code, "provider message")}
			gateway := NewGateway(fake, "client-1")

			_, err := gateway.Login(context.Background(), "jane@wiseuni.edu", "pw")
			require.Error(t, err)
			assert.Equal(t, tc.want, CategoryOf(err))

			var authErr *Error
			require.ErrorAs(t, err, &authErr)
			assert.Equal(t, tc.code, authErr.Code)
			assert.Equal(t, "provider message", authErr.Message)
		})
	}
}

func TestNonProviderErrorMapsToUnknown(t *testing.T) {
	fake := &fakeCognito{err: errors.New("connection reset")}
	gateway := NewGateway(fake, "client-1")

	err := gateway.ForgotPassword(context.Background(), "jane@wiseuni.edu")
	require.Error(t, err)
	assert.Equal(t, CategoryUnknown, CategoryOf(err))
}

func TestChangePasswordRequiresSession(t *testing.T) {
	gateway := NewGateway(&fakeCognito{}, "client-1")

	err := gateway.ChangePassword(context.Background(), nil, "old", "new")
	assert.ErrorIs(t, err, shared.ErrNotAuthenticated)

	err = gateway.ChangePassword(context.Background(), &session.Session{}, "old", "new")
	assert.ErrorIs(t, err, shared.ErrNotAuthenticated)
}

func TestChangePasswordUsesSessionAccessToken(t *testing.T) {
	fake := &fakeCognito{}
	gateway := NewGateway(fake, "client-1")

	sess := &session.Session{Tokens: session.Tokens{AccessToken: "access-token"}}
	require.NoError(t, gateway.ChangePassword(context.Background(), sess, "old", "new"))
	require.NotNil(t, fake.changeInput)
	assert.Equal(t, "access-token", aws.ToString(fake.changeInput.AccessToken))
}

func TestLogoutWithoutSessionIsNoop(t *testing.T) {
	fake := &fakeCognito{}
	gateway := NewGateway(fake, "client-1")

	require.NoError(t, gateway.Logout(context.Background(), nil))
	assert.Nil(t, fake.signOutInput)
}
