package models

import (
	"log/slog"
	"time"
)

// Account is a persisted user record. PasswordHash is an encoded argon2id
// hash, never the password itself.
type Account struct {
	ID           string
	Email        string
	Username     string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewAccount is what the service hands to persistence on create; the store
// assigns the id and timestamps.
type NewAccount struct {
	Username     string
	Email        string
	PasswordHash string
}

// RegistrationInput is the caller-supplied registration payload.
type RegistrationInput struct {
	Username string
	Email    string
	Password string
}

// LogValue keeps the plaintext password out of structured logs.
func (in RegistrationInput) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("username", in.Username),
		slog.String("email", in.Email),
	)
}

// FieldError reports why an operation failed on a specific input field.
type FieldError struct {
	Field   string
	Message string
}

func (e FieldError) Error() string {
	return e.Field + ": " + e.Message
}

// AccountResult carries either an Account or a non-empty list of errors.
type AccountResult struct {
	Account *Account
	Errors  []FieldError
}

// OK reports whether the result holds an account.
func (r *AccountResult) OK() bool {
	return r != nil && len(r.Errors) == 0 && r.Account != nil
}

// DeleteResult carries either Deleted == true or a non-empty list of errors.
type DeleteResult struct {
	Deleted bool
	Errors  []FieldError
}
