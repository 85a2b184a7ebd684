// Package validation holds input checks shared by signup and profile updates.
package validation

import (
	"regexp"
	"strings"
	"unicode"

	"quill/internal/models"
)

var (
	usernameRe = regexp.MustCompile(`^[a-zA-Z0-9_]{3,30}$`)
	emailRe    = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
)

// Username checks the signup username rules.
func Username(username string) error {
	if !usernameRe.MatchString(username) {
		return models.NewValidationError("Username must be 3-30 characters of letters, digits or underscore")
	}
	return nil
}

// Email checks basic address shape and the column size limit.
func Email(email string) error {
	if len(email) > 50 || !emailRe.MatchString(strings.TrimSpace(email)) {
		return models.NewValidationError("Invalid email address")
	}
	return nil
}

// Password requires at least 8 characters with one letter and one digit.
func Password(password string) error {
	if len(password) < 8 {
		return models.NewValidationError("Password must be at least 8 characters")
	}
	var hasLetter, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasLetter || !hasDigit {
		return models.NewValidationError("Password must contain a letter and a digit")
	}
	return nil
}
