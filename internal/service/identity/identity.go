package identity

import (
	"context"
	"errors"
	"fmt"
)

// 身份服务返回的错误码，与前端展示的本地化键保持一致。
const (
	CodeNetworkRequestFailed = "auth/network-request-failed"
	CodeEmailAlreadyInUse    = "auth/email-already-in-use"
	CodeInvalidEmail         = "auth/invalid-email"
	CodeWrongPassword        = "auth/wrong-password"
	CodeUserNotFound         = "auth/user-not-found"
	CodeWeakPassword         = "auth/weak-password"
	CodeInvalidCredential    = "auth/invalid-credential"
	CodeTooManyRequests      = "auth/too-many-requests"
	CodeUserDisabled         = "auth/user-disabled"
	CodeInternalError        = "auth/internal-error"
)

// User is the signed-in account as seen by the rest of the service.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Token string `json:"-"`
}

// Provider abstracts the external account service.
type Provider interface {
	Register(ctx context.Context, email, password string) (User, error)
	SignIn(ctx context.Context, email, password string) (User, error)
	SignOut(ctx context.Context, token string) error
}

// TokenVerifier is implemented by providers that can check their own session tokens.
type TokenVerifier interface {
	VerifyToken(token string) (string, error)
}

// Error carries the provider classification of a failed call.
type Error struct {
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return e.Code
}

func (e *Error) Unwrap() error { return e.Err }

// NewError builds a classified provider error.
func NewError(code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Err: cause}
}

// CodeOf extracts the provider code from err, or "" when err is not classified.
func CodeOf(err error) string {
	var idErr *Error
	if errors.As(err, &idErr) {
		return idErr.Code
	}
	return ""
}

// IsNetworkError reports whether err is the transient network classification.
func IsNetworkError(err error) bool {
	return CodeOf(err) == CodeNetworkRequestFailed
}
