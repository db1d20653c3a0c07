package kanban

import (
	"errors"
	"strings"
)

var (
	// ErrNotFound is returned when a board required by an operation does not exist.
	ErrNotFound = errors.New("not found")
	// ErrUnavailable wraps transient store faults (throttling, capacity, timeouts).
	// Retrying later may succeed.
	ErrUnavailable = errors.New("store unavailable")
	// ErrStore wraps every other store fault.
	ErrStore = errors.New("store fault")
)

// ValidationError names the required fields a request left empty.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "Missing " + strings.Join(e.Fields, ", ")
}

// IsValidation reports whether err is a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
