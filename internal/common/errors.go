// Package common defines sentinel errors and small helpers shared by the
// server and client layers. Callers should use errors.Is / errors.As to match
// these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors.
	ErrorInternal = errors.New("internal error")
)

// UniqueViolationError is returned by repositories when a create collides
// with a unique constraint. Field names the colliding column ("email",
// "username") or is empty when the backend cannot tell.
type UniqueViolationError struct {
	Field string
	Err   error
}

func (e *UniqueViolationError) Error() string {
	if e.Field == "" {
		return "unique constraint violation"
	}
	return "unique constraint violation on " + e.Field
}

// Unwrap makes errors.Is(err, ErrorAlreadyExists) hold for every violation.
func (e *UniqueViolationError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrorAlreadyExists}
	}
	return []error{ErrorAlreadyExists, e.Err}
}
