package grpcnode

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/ipfs/go-cid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"xdao.co/streams-tangle/cidutil"
	"xdao.co/streams-tangle/ledger"
	"xdao.co/streams-tangle/node"
)

// Client implements node.Node over the Node gRPC service.
type Client struct {
	cc     *grpc.ClientConn
	client NodeClient

	// Timeout applies per RPC when non-zero and the caller's context has no deadline.
	Timeout time.Duration
}

var _ node.Node = (*Client)(nil)

type DialOptions struct {
	// Timeout applies to the initial dial when non-zero.
	Timeout time.Duration

	// MaxMsgBytes sets both send/recv max sizes when non-zero.
	MaxMsgBytes int
}

func Dial(target string, opts DialOptions) (*Client, error) {
	dialOpts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}
	if opts.MaxMsgBytes > 0 {
		dialOpts = append(dialOpts,
			grpc.WithDefaultCallOptions(
				grpc.MaxCallRecvMsgSize(opts.MaxMsgBytes),
				grpc.MaxCallSendMsgSize(opts.MaxMsgBytes),
			),
		)
	}

	ctx := context.Background()
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	cc, err := grpc.DialContext(ctx, target, dialOpts...)
	if err != nil {
		return nil, err
	}
	return NewClient(cc), nil
}

// NewClient wraps an established connection.
func NewClient(cc *grpc.ClientConn) *Client {
	return &Client{cc: cc, client: NewNodeClient(cc)}
}

func (c *Client) Close() error {
	if c == nil || c.cc == nil {
		return nil
	}
	return c.cc.Close()
}

func (c *Client) Info(ctx context.Context) (node.Info, error) {
	ctx, cancel := c.ctx(ctx)
	defer cancel()

	reply, err := c.client.Info(ctx, &emptypb.Empty{})
	if err != nil {
		return node.Info{}, mapRPC(err)
	}
	var info node.Info
	if err := cbor.Unmarshal(reply.GetValue(), &info); err != nil {
		return node.Info{}, fmt.Errorf("grpcnode: decode info: %w", err)
	}
	return info, nil
}

func (c *Client) Tips(ctx context.Context) (ledger.Tips, error) {
	ctx, cancel := c.ctx(ctx)
	defer cancel()

	reply, err := c.client.Tips(ctx, &emptypb.Empty{})
	if err != nil {
		return ledger.Tips{}, mapRPC(err)
	}
	ids, err := decodeIDs(reply.GetValue())
	if err != nil {
		return ledger.Tips{}, err
	}
	if len(ids) != 2 {
		return ledger.Tips{}, fmt.Errorf("grpcnode: want 2 tips, got %d", len(ids))
	}
	return ledger.Tips{ids[0], ids[1]}, nil
}

func (c *Client) Submit(ctx context.Context, msg *ledger.Message) (cid.Cid, error) {
	b, err := ledger.Encode(msg)
	if err != nil {
		return cid.Undef, err
	}
	ctx, cancel := c.ctx(ctx)
	defer cancel()

	reply, err := c.client.Submit(ctx, wrapperspb.Bytes(b))
	if err != nil {
		return cid.Undef, mapRPC(err)
	}
	id, err := cid.Decode(reply.GetValue())
	if err != nil || cidutil.Check(id) != nil {
		return cid.Undef, node.ErrInvalidID
	}
	return id, nil
}

func (c *Client) Lookup(ctx context.Context, index []byte) ([]cid.Cid, error) {
	ctx, cancel := c.ctx(ctx)
	defer cancel()

	reply, err := c.client.Lookup(ctx, wrapperspb.Bytes(index))
	if err != nil {
		return nil, mapRPC(err)
	}
	return decodeIDs(reply.GetValue())
}

func (c *Client) Fetch(ctx context.Context, id cid.Cid) (*ledger.Message, error) {
	if cidutil.Check(id) != nil {
		return nil, node.ErrInvalidID
	}
	ctx, cancel := c.ctx(ctx)
	defer cancel()

	reply, err := c.client.Fetch(ctx, wrapperspb.String(id.String()))
	if err != nil {
		return nil, mapRPC(err)
	}
	msg, err := ledger.Verify(id, reply.GetValue())
	if err != nil {
		if errors.Is(err, ledger.ErrIDMismatch) {
			return nil, node.ErrIDMismatch
		}
		return nil, err
	}
	return msg, nil
}

func (c *Client) ctx(parent context.Context) (context.Context, context.CancelFunc) {
	if _, ok := parent.Deadline(); ok || c.Timeout <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, c.Timeout)
}
