package grpcnode

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"xdao.co/streams-tangle/ledger"
	"xdao.co/streams-tangle/node"
)

// mapRPC turns a gRPC status into the node package's sentinel errors.
func mapRPC(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}

	switch st.Code() {
	case codes.NotFound:
		return node.ErrNotFound
	case codes.InvalidArgument:
		return fmt.Errorf("%w: %s", node.ErrInvalidID, st.Message())
	case codes.DataLoss:
		return node.ErrIDMismatch
	case codes.FailedPrecondition:
		return fmt.Errorf("%w: %s", node.ErrRejected, st.Message())
	case codes.Unavailable:
		return fmt.Errorf("%w: %s", node.ErrUnavailable, st.Message())
	case codes.Canceled:
		return fmt.Errorf("%w: %s", context.Canceled, st.Message())
	case codes.DeadlineExceeded:
		return fmt.Errorf("%w: %s", context.DeadlineExceeded, st.Message())
	default:
		return err
	}
}

// mapErr is the server-side inverse of mapRPC. Ledger id errors raised by
// backends that verify stored bytes map like their node counterparts.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, node.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, node.ErrInvalidID), errors.Is(err, ledger.ErrInvalidID):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, node.ErrIDMismatch), errors.Is(err, ledger.ErrIDMismatch):
		return status.Error(codes.DataLoss, err.Error())
	case errors.Is(err, node.ErrRejected):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, node.ErrUnavailable):
		return status.Error(codes.Unavailable, err.Error())
	default:
		if st, ok := status.FromError(err); ok {
			return st.Err()
		}
		return status.Error(codes.Internal, err.Error())
	}
}
