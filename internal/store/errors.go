package store

import (
	"errors"
	"fmt"
)

// ErrNotFound signals a missing product or order. Handlers map it to 404.
var ErrNotFound = errors.New("record not found")

// ErrConflict signals transaction contention beyond the retry budget.
// The whole operation is safe to retry from the caller.
var ErrConflict = errors.New("conflicting concurrent update")

// ValidationError carries a user-actionable message about malformed input.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Msg
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Msg)
}

func invalid(field, msg string) error {
	return &ValidationError{Field: field, Msg: msg}
}

// IsValidation reports whether err is a validation failure.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
