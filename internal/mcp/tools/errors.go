package tools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/usestring/privacyshield/pkg/shield"
)

// Error codes for MCP tool responses.
const (
	ErrCodeInvalidInput      = "INVALID_INPUT"
	ErrCodeInvalidSettings   = "INVALID_SETTINGS"
	ErrCodeNetworkDisallowed = "NETWORK_DISALLOWED"
	ErrCodeCanceled          = "CANCELED"
	ErrCodeInternal          = "INTERNAL"
)

// CodedError is an error with an associated error code.
type CodedError struct {
	Code    string
	Message string
	Cause   error
}

func (e *CodedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *CodedError) Unwrap() error {
	return e.Cause
}

// WrapShieldError converts an error from the shield package to a coded error.
func WrapShieldError(err error) error {
	if err == nil {
		return nil
	}

	var coded *CodedError
	if errors.As(err, &coded) {
		return coded
	}

	var cfgErr *shield.ConfigError
	switch {
	case errors.As(err, &cfgErr):
		coded = &CodedError{
			Code:    ErrCodeInvalidSettings,
			Message: fmt.Sprintf("%s %s", cfgErr.Field, cfgErr.Reason),
			Cause:   err,
		}
	case errors.Is(err, shield.ErrInvalidSettings):
		coded = &CodedError{Code: ErrCodeInvalidSettings, Message: "settings rejected", Cause: err}
	case errors.Is(err, shield.ErrInvalidQuery):
		coded = &CodedError{Code: ErrCodeInvalidInput, Message: "query rejected", Cause: err}
	case errors.Is(err, shield.ErrNetworkDisallowed):
		coded = &CodedError{Code: ErrCodeNetworkDisallowed, Message: "shield is offline", Cause: err}
	case errors.Is(err, shield.ErrExecutionCanceled), errors.Is(err, context.Canceled):
		coded = &CodedError{Code: ErrCodeCanceled, Message: "execution canceled", Cause: err}
	default:
		coded = &CodedError{Code: ErrCodeInternal, Message: err.Error(), Cause: err}
	}

	slog.Warn("shield tool error",
		slog.String("code", coded.Code),
		slog.String("message", coded.Message),
	)
	return coded
}

// ErrInvalidInput creates an invalid input error.
func ErrInvalidInput(message string) error {
	return &CodedError{
		Code:    ErrCodeInvalidInput,
		Message: message,
	}
}
