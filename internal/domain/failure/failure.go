package failure

import "errors"

var (
	// ErrValidation is returned for malformed input, e.g. an empty required field.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound is returned when an identifier does not match any record.
	ErrNotFound = errors.New("not found")
	// ErrPrimaryContactProtected is returned when removing the primary contact
	// while other contacts still exist.
	ErrPrimaryContactProtected = errors.New("primary contact cannot be removed while other contacts exist")
	// ErrSessionNotListening is returned when a detection arrives while monitoring is stopped.
	ErrSessionNotListening = errors.New("monitoring session is not listening")
)
