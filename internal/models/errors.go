package models

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyInput is returned when a user turn carries no text
	ErrEmptyInput = errors.New("empty user input")
	// ErrEmptyOrder is returned when a confirmation is requested for an empty cart
	ErrEmptyOrder = errors.New("order has no items")
	// ErrLineNotFound is returned when a cart edit names an unknown line
	ErrLineNotFound = errors.New("cart line not found")
	// ErrTurnInProgress is returned when a session is already running a turn
	ErrTurnInProgress = errors.New("turn already in progress")
	// ErrSessionNotFound is returned for unknown or expired sessions
	ErrSessionNotFound = errors.New("session not found")
	// ErrInvalidToken is returned when a session token is missing, forged or expired
	ErrInvalidToken = errors.New("invalid session token")
)

// ValidationError reports a malformed tool invocation
type ValidationError struct {
	Tool   string
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid %s invocation: %s", e.Tool, e.Reason)
	}
	return fmt.Sprintf("invalid %s invocation: %s %s", e.Tool, e.Field, e.Reason)
}

// TransportError wraps a failure talking to the language model
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("model transport: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err is a ValidationError
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsTransport reports whether err is a TransportError
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
