package auth

import (
	"errors"
	"fmt"

	"github.com/aws/smithy-go"
)

// Category is a stable, caller-facing classification of identity
// provider failures. Provider-specific error shapes never cross the
// gateway boundary; handlers branch on categories only.
type Category string

const (
	CategoryDuplicateAccount     Category = "duplicate_account"
	CategoryInvalidCredentials   Category = "invalid_credentials"
	CategoryUnverifiedAccount    Category = "unverified_account"
	CategoryAccountNotFound      Category = "account_not_found"
	CategoryInvalidOrExpiredCode Category = "invalid_or_expired_code"
	CategoryWeakPassword         Category = "weak_password"
	CategoryRateLimited          Category = "rate_limited"
	CategoryUnknown              Category = "unknown"
)

// Error is a translated identity provider failure. Message carries
// the raw provider text for direct display; Category is what callers
// should branch on.
type Error struct {
	Category Category
	Code     string
	Message  string
	cause    error
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("auth: %s (%s): %s", e.Category, e.Code, e.Message)
	}
	return fmt.Sprintf("auth: %s: %s", e.Category, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// CategoryOf extracts the category from a translated error, falling
// back to CategoryUnknown for anything else.
func CategoryOf(err error) Category {
	var authErr *Error
	if errors.As(err, &authErr) {
		return authErr.Category
	}
	return CategoryUnknown
}

// translate maps Cognito API error codes onto the stable taxonomy.
func translate(err error) error {
	if err == nil {
		return nil
	}

	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return &Error{Category: CategoryUnknown, Message: err.Error(), cause: err}
	}

	code := apiErr.ErrorCode()
	category := CategoryUnknown
	switch code {
	case "UsernameExistsException":
		category = CategoryDuplicateAccount
	case "NotAuthorizedException":
		category = CategoryInvalidCredentials
	case "UserNotConfirmedException":
		category = CategoryUnverifiedAccount
	case "UserNotFoundException":
		category = CategoryAccountNotFound
	case "CodeMismatchException", "ExpiredCodeException":
		category = CategoryInvalidOrExpiredCode
	case "InvalidPasswordException":
		category = CategoryWeakPassword
	case "LimitExceededException", "TooManyRequestsException":
		category = CategoryRateLimited
	}

	return &Error{
		Category: category,
		Code:     code,
		Message:  apiErr.ErrorMessage(),
		cause:    err,
	}
}
