package ledger

import "errors"

var (
	ErrMalformedMessage = errors.New("ledger: malformed message")
	ErrMessageTooLarge  = errors.New("ledger: message exceeds maximum size")
	ErrIDMismatch       = errors.New("ledger: message id mismatch")
	ErrInvalidID        = errors.New("ledger: invalid message id")
)
