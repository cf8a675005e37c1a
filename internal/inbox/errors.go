package inbox

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrBackendUnavailable wraps any I/O failure of the store or transport.
	ErrBackendUnavailable = errors.New("backend unavailable")
	// ErrNotFound is returned when a referenced user is absent.
	ErrNotFound = errors.New("not found")
)

// ValidationError reports input that violates an entity invariant.
// MessageIDs lists every rejected message, if the input was a message set.
type ValidationError struct {
	Reason     string
	MessageIDs []int
}

func (e *ValidationError) Error() string {
	if len(e.MessageIDs) == 0 {
		return "validation: " + e.Reason
	}
	ids := make([]string, 0, len(e.MessageIDs))
	for _, id := range e.MessageIDs {
		ids = append(ids, fmt.Sprint(id))
	}
	return fmt.Sprintf("validation: %s (messages %s)", e.Reason, strings.Join(ids, ","))
}

// IsValidation reports whether err is or wraps a *ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// Unavailable wraps err as ErrBackendUnavailable with an operation prefix.
func Unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrBackendUnavailable, err)
}
