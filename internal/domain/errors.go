package domain

import "github.com/pkg/errors"

// Command errors returned by the engine. All of them are recoverable: a
// failed command leaves account and position state untouched.
var (
	ErrInvalidAmount         = errors.New("invalid amount")
	ErrInsufficientFunds     = errors.New("insufficient funds")
	ErrUnknownInstrument     = errors.New("unknown instrument")
	ErrInvalidQuantity       = errors.New("invalid quantity")
	ErrInvalidLeverage       = errors.New("invalid leverage")
	ErrPositionNotFound      = errors.New("position not found")
	ErrPositionAlreadyClosed = errors.New("position already closed")
	ErrAccountNotFound       = errors.New("account not found")
)

// ErrInvariantViolation marks conditions that validation upstream should have
// made impossible (non-positive price or quantity reaching the position book).
// It indicates a logic defect, not bad user input.
var ErrInvariantViolation = errors.New("invariant violation")
