package ordering

import "errors"

var (
	// ErrNotFound is returned when a referenced order, restaurant or product does not exist.
	ErrNotFound = errors.New("not found")
	// ErrForbidden is returned when the actor lacks the role or ownership for an action.
	ErrForbidden = errors.New("forbidden")
	// ErrConflict is returned when the order is not in the status an action requires.
	ErrConflict = errors.New("conflict")
)

// ValidationError is a rejection of a proposed order.
// Message is meant to be shown to the client verbatim.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func reject(message string) *ValidationError {
	return &ValidationError{Message: message}
}

// IsValidation reports whether err is a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
