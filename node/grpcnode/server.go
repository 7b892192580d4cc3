package grpcnode

import (
	"context"

	"github.com/fxamacker/cbor/v2"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"xdao.co/streams-tangle/cidutil"
	"xdao.co/streams-tangle/ledger"
	"xdao.co/streams-tangle/node"
)

// Server exposes a node.Node over the Node gRPC service.
type Server struct {
	UnimplementedNodeServer
	Node node.Node
}

func (s *Server) Info(ctx context.Context, _ *emptypb.Empty) (*wrapperspb.BytesValue, error) {
	if s == nil || s.Node == nil {
		return nil, status.Error(codes.Unavailable, "missing node")
	}
	info, err := s.Node.Info(ctx)
	if err != nil {
		return nil, mapErr(err)
	}
	b, err := cbor.Marshal(info)
	if err != nil {
		return nil, status.Error(codes.Internal, "encode info failed")
	}
	return wrapperspb.Bytes(b), nil
}

func (s *Server) Tips(ctx context.Context, _ *emptypb.Empty) (*wrapperspb.BytesValue, error) {
	if s == nil || s.Node == nil {
		return nil, status.Error(codes.Unavailable, "missing node")
	}
	tips, err := s.Node.Tips(ctx)
	if err != nil {
		return nil, mapErr(err)
	}
	b, err := encodeIDs(tips[:])
	if err != nil {
		return nil, status.Error(codes.Internal, "encode tips failed")
	}
	return wrapperspb.Bytes(b), nil
}

func (s *Server) Submit(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.StringValue, error) {
	if s == nil || s.Node == nil {
		return nil, status.Error(codes.Unavailable, "missing node")
	}
	msg, err := ledger.Decode(in.GetValue())
	if err != nil {
		return nil, status.Error(codes.FailedPrecondition, err.Error())
	}
	id, err := s.Node.Submit(ctx, msg)
	if err != nil {
		return nil, mapErr(err)
	}
	return wrapperspb.String(id.String()), nil
}

func (s *Server) Lookup(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	if s == nil || s.Node == nil {
		return nil, status.Error(codes.Unavailable, "missing node")
	}
	if len(in.GetValue()) == 0 {
		return nil, status.Error(codes.InvalidArgument, "empty index")
	}
	ids, err := s.Node.Lookup(ctx, in.GetValue())
	if err != nil {
		return nil, mapErr(err)
	}
	b, err := encodeIDs(ids)
	if err != nil {
		return nil, status.Error(codes.Internal, "encode ids failed")
	}
	return wrapperspb.Bytes(b), nil
}

func (s *Server) Fetch(ctx context.Context, in *wrapperspb.StringValue) (*wrapperspb.BytesValue, error) {
	if s == nil || s.Node == nil {
		return nil, status.Error(codes.Unavailable, "missing node")
	}
	id, err := cidutil.Parse(in.GetValue())
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, node.ErrInvalidID.Error())
	}
	msg, err := s.Node.Fetch(ctx, id)
	if err != nil {
		return nil, mapErr(err)
	}
	b, err := ledger.Encode(msg)
	if err != nil {
		return nil, status.Error(codes.Internal, "encode message failed")
	}
	// Enforce the id contract on the server side too.
	got, err := cidutil.MessageCID(b)
	if err != nil {
		return nil, status.Error(codes.Internal, "cid computation failed")
	}
	if !got.Equals(id) {
		return nil, status.Error(codes.DataLoss, node.ErrIDMismatch.Error())
	}
	return wrapperspb.Bytes(b), nil
}
