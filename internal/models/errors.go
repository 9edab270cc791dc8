// Package models defines the core data types for stockgrid
package models

// InputError marks a request-validation failure that should surface as a 400
// rather than a 500.
type InputError struct {
	Message string
}

func (e *InputError) Error() string {
	return e.Message
}

// NewInputError creates an InputError with the given message.
func NewInputError(message string) *InputError {
	return &InputError{Message: message}
}

// IsInputError reports whether err is an InputError.
func IsInputError(err error) bool {
	_, ok := err.(*InputError)
	return ok
}
