// Package validation holds input rules shared by handlers and services.
package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	MinUsernameLength = 3
	MaxUsernameLength = 50
	MinPasswordLength = 8
	MaxPasswordLength = 128
	MaxDisplayName    = 100
	MaxBio            = 500
	MaxContentLength  = 10000
)

var usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9](?:[a-zA-Z0-9._-]*[a-zA-Z0-9])?$`)

// ValidateUsername enforces length and an alphanumeric first and last character.
// A username needs at least one letter so it never reads as a numeric user id.
func ValidateUsername(username string) error {
	n := utf8.RuneCountInString(username)
	if n < MinUsernameLength || n > MaxUsernameLength {
		return fmt.Errorf("username must be between %d and %d characters", MinUsernameLength, MaxUsernameLength)
	}
	if !usernameRegex.MatchString(username) {
		return fmt.Errorf("username may only contain letters, digits, '.', '_' and '-', and must start and end with a letter or digit")
	}
	if strings.IndexFunc(username, unicode.IsLetter) < 0 {
		return fmt.Errorf("username must contain at least one letter")
	}
	return nil
}

// ValidatePassword requires at least one letter and one digit.
func ValidatePassword(password string) error {
	n := utf8.RuneCountInString(password)
	if n < MinPasswordLength {
		return fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	}
	if n > MaxPasswordLength {
		return fmt.Errorf("password must be at most %d characters", MaxPasswordLength)
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
		return fmt.Errorf("password must contain at least one letter and one digit")
	}
	return nil
}

func ValidateDisplayName(name string) error {
	if utf8.RuneCountInString(name) > MaxDisplayName {
		return fmt.Errorf("display name must be at most %d characters", MaxDisplayName)
	}
	return nil
}

func ValidateBio(bio string) error {
	if utf8.RuneCountInString(bio) > MaxBio {
		return fmt.Errorf("bio must be at most %d characters", MaxBio)
	}
	return nil
}

// NormalizeContent trims content and checks it is non-empty and within
// MaxContentLength characters. field names the input in error messages.
func NormalizeContent(field, content string) (string, error) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return "", fmt.Errorf("%s is required", field)
	}
	if utf8.RuneCountInString(trimmed) > MaxContentLength {
		return "", fmt.Errorf("%s too long (max %d characters)", field, MaxContentLength)
	}
	return trimmed, nil
}
