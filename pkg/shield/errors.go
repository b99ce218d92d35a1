package shield

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidSettings is the sentinel wrapped by every *ConfigError.
	ErrInvalidSettings = errors.New("invalid shield settings")

	// ErrInvalidQuery is returned when a caller query lacks a kind or target.
	ErrInvalidQuery = errors.New("invalid query")

	// ErrNetworkDisallowed is returned when the mode gate reports offline.
	// Callers branch on it with errors.Is rather than on message text.
	ErrNetworkDisallowed = errors.New("network operations disallowed in offline mode")

	// ErrExecutionCanceled is returned when a plan execution stops early.
	ErrExecutionCanceled = errors.New("plan execution canceled")
)

// ConfigError reports a settings field that violates its bounds.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %s %s", ErrInvalidSettings, e.Field, e.Reason)
}

func (e *ConfigError) Unwrap() error {
	return ErrInvalidSettings
}
