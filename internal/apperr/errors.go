// Package apperr defines the error classes shared by services and handlers.
package apperr

import "errors"

var (
	// ErrNotFound means the user, room, session or recording does not exist
	// or is not visible to the caller.
	ErrNotFound = errors.New("not_found")
	// ErrForbidden means the caller lacks the role for the action.
	ErrForbidden = errors.New("forbidden")
	// ErrConflict means the write would violate a uniqueness rule.
	ErrConflict = errors.New("conflict")
	// ErrInvalid means the request failed validation.
	ErrInvalid = errors.New("invalid_request")
)
