package domain

import "errors"

var (
	// ErrAccountNotFound is returned when an account is not found
	ErrAccountNotFound = errors.New("account not found")

	// ErrVerificationNotFound is returned when a verification key is unknown
	ErrVerificationNotFound = errors.New("verification not found")

	// ErrDatabaseQuery is returned when a database query fails
	ErrDatabaseQuery = errors.New("database query failed")

	// ErrInternal is returned when there is an internal server error
	ErrInternal = errors.New("internal server error")
)

// ValidationError is a business rule violation carrying a human-readable
// message. The web layer surfaces it as a single form-level error, never
// as an unexpected failure.
type ValidationError struct {
	Message string
}

// Error returns the error message
func (e *ValidationError) Error() string {
	return e.Message
}

// NewValidationError creates a new validation error
func NewValidationError(message string) error {
	return &ValidationError{Message: message}
}

// IsValidationError checks if the error is a validation error
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
