package node

import "errors"

var (
	ErrNotFound    = errors.New("node: not found")
	ErrInvalidID   = errors.New("node: invalid message id")
	ErrIDMismatch  = errors.New("node: message id mismatch")
	ErrRejected    = errors.New("node: message rejected")
	ErrUnavailable = errors.New("node: unavailable")
)

func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
