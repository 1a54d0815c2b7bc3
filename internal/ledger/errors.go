package ledger

import (
	"errors"
	"fmt"
)

// Sentinel errors for business-rule violations. The request boundary maps
// these to status codes; nothing here knows about HTTP.
var (
	// ErrNotFound is returned when the referenced item does not exist.
	ErrNotFound = errors.New("item not found")

	// ErrInsufficientStock is returned when a take exceeds the item's
	// current quantity.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrInsufficientBalance is returned when a non-forced return exceeds
	// the user's net outstanding quantity.
	ErrInsufficientBalance = errors.New("user has not taken that quantity")
)

// ValidationError reports a missing or malformed request field.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func validationf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
