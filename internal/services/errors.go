// Package services defines the business logic for accounts, prompt
// enhancement, conversations, and chat turns. This file centralizes common
// service-level error values so that they can be consistently returned by
// service methods and checked by callers.
//
// These errors are intended for internal use by the service layer and
// translation into user-facing messages or HTTP status codes should be
// performed at the handler/controller layer.
package services

import (
	"errors"
	"strings"
)

var (
	// ErrUserExists indicates the username or email is already registered.
	ErrUserExists = errors.New("username or email already registered")

	// ErrInvalidCredentials is returned on login when the account is unknown
	// or the password does not match. The two cases are deliberately not
	// distinguishable by callers.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrConversationNotFound indicates that the requested conversation does
	// not exist or is not accessible to the current user.
	ErrConversationNotFound = errors.New("conversation not found")

	// ErrPromptNotFound indicates that the requested saved prompt does not
	// exist or is not accessible to the current user.
	ErrPromptNotFound = errors.New("prompt not found")

	// ErrMessageNotFound indicates that the requested message does not exist.
	ErrMessageNotFound = errors.New("message not found")

	// ErrSessionNotFound indicates an unknown or expired chat session.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionForbidden indicates the chat session belongs to another user.
	ErrSessionForbidden = errors.New("session owned by another user")

	// ErrEmptyPrompt is returned when a request contains an empty prompt or
	// message body.
	ErrEmptyPrompt = errors.New("prompt is empty")

	// ErrTooLong is returned when a prompt or message exceeds the maximum
	// configured length limit.
	ErrTooLong = errors.New("prompt too long")

	// ErrUpstream indicates the external text-generation provider failed.
	// Chat turns never surface this error to users; the enhancement flow does.
	ErrUpstream = errors.New("upstream generation failed")
)

// PasswordPolicyError carries every policy violation found in a candidate
// password so registration can report them all at once.
type PasswordPolicyError struct {
	Problems []string
}

// Error implements the error interface.
func (e *PasswordPolicyError) Error() string {
	return "password policy: " + strings.Join(e.Problems, "; ")
}
