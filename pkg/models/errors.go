package models

import (
	"errors"
	"fmt"
)

// ErrorKind classifies pipeline failures at the point they occur. Kinds are
// produced at the throw site, never inferred from message text downstream.
type ErrorKind string

const (
	// ErrKindSensor - angle channel unavailable; recovered by reconnect
	ErrKindSensor ErrorKind = "sensor"
	// ErrKindAuthorization - consent denied, expired, or balance insufficient
	ErrKindAuthorization ErrorKind = "authorization"
	// ErrKindQuote - routing API unusable and fallback synthesis failed
	ErrKindQuote ErrorKind = "quote"
	// ErrKindInvalidTransaction - transaction descriptor with empty/zero destination
	ErrKindInvalidTransaction ErrorKind = "invalid_transaction"

	// Execution sub-kinds, classified by the wallet boundary
	ErrKindUserRejected      ErrorKind = "user_rejected"
	ErrKindInsufficientFunds ErrorKind = "insufficient_funds"
	ErrKindWrongNetwork      ErrorKind = "wrong_network"
	ErrKindNonceConflict     ErrorKind = "nonce_conflict"
	ErrKindExecution         ErrorKind = "execution"
)

// Message returns the user-facing description for an error kind.
func (k ErrorKind) Message() string {
	switch k {
	case ErrKindSensor:
		return "Angle sensor disconnected"
	case ErrKindAuthorization:
		return "Swap authorization missing or expired"
	case ErrKindQuote:
		return "Could not obtain a usable swap quote"
	case ErrKindInvalidTransaction:
		return "Swap transaction has no valid destination"
	case ErrKindUserRejected:
		return "Transaction rejected in wallet"
	case ErrKindInsufficientFunds:
		return "Insufficient balance for swap and gas"
	case ErrKindWrongNetwork:
		return "Wallet is on the wrong network"
	case ErrKindNonceConflict:
		return "Transaction nonce conflict"
	default:
		return "Swap execution failed"
	}
}

// PipelineError is a classified error flowing through the swap pipeline
type PipelineError struct {
	Kind ErrorKind
	Msg  string
	Err  error
}

func (e *PipelineError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// NewPipelineError creates a classified error wrapping cause (cause may be nil).
func NewPipelineError(kind ErrorKind, msg string, cause error) *PipelineError {
	return &PipelineError{Kind: kind, Msg: msg, Err: cause}
}

// KindOf extracts the classification of err, or ErrKindExecution when err
// carries none.
func KindOf(err error) ErrorKind {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ErrKindExecution
}
