package transport

import (
	"errors"
	"fmt"
)

var (
	ErrClientOperationFailure      = errors.New("transport: client operation failed")
	ErrHashNotFound                = errors.New("transport: no message ids for link")
	ErrTransactionContentsNotFound = errors.New("transport: message contents not found")
	ErrUnexpectedPayloadType       = errors.New("transport: unexpected payload type")
	ErrMalformedPayload            = errors.New("transport: malformed indexation payload")
	ErrPayloadTooLarge             = errors.New("transport: payload too large")
	ErrMessageNotUnique            = errors.New("transport: message not unique")
	ErrMessageLinkNotFound         = errors.New("transport: message link not found")
	ErrTransportNotAvailable       = errors.New("transport: transport not available")
)

// clientFailure maps any node-layer failure onto ErrClientOperationFailure.
// The cause stays reachable through errors.Is/As.
func clientFailure(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %s: %w", ErrClientOperationFailure, op, err)
}
