// Package validation checks registration payloads before anything is hashed
// or stored.
package validation

import (
	"strings"
	"unicode/utf8"

	"github.com/dmitrijs2005/miretia/internal/server/models"
)

const (
	MsgUsernameTooShort = "Username must be at least 3 characters."
	MsgUsernameHasAt    = `Username cannot include "@".`
	MsgEmailFormat      = "Incorrect Email format."
	MsgPasswordTooShort = "Password must contain more than two characters."
)

// minLength is the shortest accepted username and password, in code points.
const minLength = 3

// ValidateRegister returns nil when in is acceptable. Otherwise it returns a
// single FieldError for the first rule violated, in this order: username
// length, "@" in username, "@" missing from email, password length.
func ValidateRegister(in models.RegistrationInput) []models.FieldError {
	switch {
	case utf8.RuneCountInString(in.Username) < minLength:
		return fieldError("username", MsgUsernameTooShort)
	case strings.Contains(in.Username, "@"):
		return fieldError("username", MsgUsernameHasAt)
	case !strings.Contains(in.Email, "@"):
		return fieldError("email", MsgEmailFormat)
	case utf8.RuneCountInString(in.Password) < minLength:
		return fieldError("password", MsgPasswordTooShort)
	}
	return nil
}

func fieldError(field, msg string) []models.FieldError {
	return []models.FieldError{{Field: field, Message: msg}}
}
