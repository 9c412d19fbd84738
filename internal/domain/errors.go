package domain

import (
	"errors"
	"fmt"
)

// ValidationError provides detailed validation error information
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s - %s", e.Field, e.Message)
}

// NewValidationError creates a new validation error
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

var (
	// Feed configuration errors
	ErrFeedNotFound = errors.New("feed not found")
	ErrInvalidFeed  = errors.New("invalid feed")
	ErrFeedExists   = errors.New("feed already exists")

	// Cycle-level errors: they abort the whole invocation
	ErrFetchFailed = errors.New("unable to fetch feed")
	ErrEmptyFeed   = errors.New("empty feed content")
	ErrParseFailed = errors.New("invalid feed XML")

	// Content store errors
	ErrContentNotFound   = errors.New("content item not found")
	ErrAssetNotFound     = errors.New("asset not found")
	ErrDuplicateIdentity = errors.New("content item with this identity already exists")
	ErrInvalidContent    = errors.New("invalid content item")

	// Auth errors
	ErrInvalidToken = errors.New("invalid token")
	ErrUnauthorized = errors.New("unauthorized")

	// Validation errors
	ErrValidationFailed = errors.New("validation failed")
	ErrInvalidInput     = errors.New("invalid input")

	// General errors
	ErrInternal = errors.New("internal server error")
	ErrNotFound = errors.New("resource not found")
)

// IsCycleError reports whether err aborts a whole import or update cycle
func IsCycleError(err error) bool {
	return errors.Is(err, ErrFetchFailed) || errors.Is(err, ErrEmptyFeed) || errors.Is(err, ErrParseFailed)
}
