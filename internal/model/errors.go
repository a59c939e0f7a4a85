package model

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrInvalid is wrapped by every ValidationError so callers can test with errors.Is.
var ErrInvalid = errors.New("invalid record")

// ValidationError reports a single field that failed validation.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field %s: %s", e.Field, e.Message)
}

// Unwrap lets errors.Is(err, ErrInvalid) match.
func (e *ValidationError) Unwrap() error {
	return ErrInvalid
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

func required(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return invalid(field, "is required")
	}
	return nil
}

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// ValidSlug reports whether s is a lowercase, hyphen-separated URL segment.
func ValidSlug(s string) bool {
	return slugPattern.MatchString(s)
}

// optionalSlug accepts an empty slug (derived later from the title).
func optionalSlug(field, value string) error {
	if value != "" && !ValidSlug(value) {
		return invalid(field, "must contain only lowercase letters, digits and single hyphens")
	}
	return nil
}

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidEmail reports whether s looks like an email address.
func ValidEmail(s string) bool {
	return emailPattern.MatchString(strings.TrimSpace(s))
}

// NormalizeEmail lowercases and trims an address. Subscriber uniqueness is
// checked on the normalized form.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
