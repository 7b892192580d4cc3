package transport

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"xdao.co/streams-tangle/node"
	"xdao.co/streams-tangle/node/registry"

	// Default node backends.
	_ "xdao.co/streams-tangle/node/grpcnode"
	_ "xdao.co/streams-tangle/node/httpnode"
	_ "xdao.co/streams-tangle/node/memnode"
)

// DefaultNodeURL is the node New connects to.
const DefaultNodeURL = "http://localhost:14265"

// Client is a transport bound to an ordered pool of ledger nodes.
//
// Options are read once per call: an operation already running keeps the
// options it started with. Client is safe for concurrent use.
type Client struct {
	mu        sync.RWMutex
	pool      *node.Pool
	closers   []func() error
	send      SendOptions
	recv      RecvOptions
	networkID uint64
	log       *zap.Logger
}

type Option func(*Client)

// WithLogger sets the logger; the default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

func WithRecvOptions(o RecvOptions) Option {
	return func(c *Client) { c.recv = o }
}

// WithNetworkID stamps outgoing messages with id. Zero is accepted by nodes
// that do not enforce a network.
func WithNetworkID(id uint64) Option {
	return func(c *Client) { c.networkID = id }
}

// WithSubmitPolicy replaces the pool's submit policy. Members added so far
// are kept.
func WithSubmitPolicy(p node.SubmitPolicy) Option {
	return func(c *Client) {
		c.pool = node.NewPool(p, c.pool.Members()...)
	}
}

// New connects to DefaultNodeURL with default send options.
func New(opts ...Option) (*Client, error) {
	return NewFromURL(DefaultNodeURL, opts...)
}

// NewFromURL connects to the node at rawURL through the backend registered
// for its scheme. No request is made until the first operation.
func NewFromURL(rawURL string, opts ...Option) (*Client, error) {
	n, closeFn, err := registry.Open(rawURL, registry.UsageClient)
	if err != nil {
		return nil, clientFailure("open node", err)
	}
	c := NewWithNode(node.Named{Name: rawURL, Node: n}, DefaultSendOptions(), opts...)
	if closeFn != nil {
		c.closers = append(c.closers, closeFn)
	}
	return c, nil
}

// NewWithNode wraps an existing connection. A *node.Pool is used as is.
func NewWithNode(n node.Named, send SendOptions, opts ...Option) *Client {
	c := &Client{
		send: send,
		recv: DefaultRecvOptions(),
		log:  zap.NewNop(),
	}
	if p, ok := n.Node.(*node.Pool); ok {
		c.pool = p
	} else {
		c.pool = node.NewPool(node.SubmitFirst, n)
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// AddNode appends the node at rawURL to the fallback order. The node must
// answer an info request and report itself healthy.
func (c *Client) AddNode(ctx context.Context, rawURL string) error {
	n, closeFn, err := registry.Open(rawURL, registry.UsageClient)
	if err != nil {
		return clientFailure("add node", err)
	}
	info, err := n.Info(ctx)
	if err == nil && !info.Healthy {
		err = fmt.Errorf("%w: %s reports unhealthy", node.ErrUnavailable, rawURL)
	}
	if err != nil {
		if closeFn != nil {
			_ = closeFn()
		}
		return clientFailure("add node", err)
	}

	c.mu.Lock()
	if c.networkID != 0 && info.NetworkID != 0 && info.NetworkID != c.networkID {
		c.log.Warn("node network differs from client",
			zap.String("url", rawURL),
			zap.Uint64("node_network", info.NetworkID),
			zap.Uint64("client_network", c.networkID))
	}
	if closeFn != nil {
		c.closers = append(c.closers, closeFn)
	}
	c.mu.Unlock()

	c.pool.Add(node.Named{Name: rawURL, Node: n})
	c.log.Info("node added", zap.String("url", rawURL), zap.String("version", info.Version))
	return nil
}

// Node returns the pool backing c.
func (c *Client) Node() *node.Pool { return c.pool }

func (c *Client) SendOptions() SendOptions {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.send
}

func (c *Client) SetSendOptions(o SendOptions) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.send = o
}

func (c *Client) RecvOptions() RecvOptions {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.recv
}

func (c *Client) SetRecvOptions(o RecvOptions) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.recv = o
}

// Close releases every connection the client opened itself.
func (c *Client) Close() error {
	c.mu.Lock()
	closers := c.closers
	c.closers = nil
	c.mu.Unlock()

	var errs []error
	for _, fn := range closers {
		if err := fn(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (c *Client) SendMessage(ctx context.Context, msg *BinaryMessage) error {
	_, err := block(ctx, c.sendOp(msg))
	return err
}

func (c *Client) RecvMessages(ctx context.Context, link Link) ([]*BinaryMessage, error) {
	return block(ctx, c.recvMessagesOp(link))
}

func (c *Client) RecvMessage(ctx context.Context, link Link) (*BinaryMessage, error) {
	return block(ctx, c.recvMessageOp(link))
}

func (c *Client) SendMessageAsync(ctx context.Context, msg *BinaryMessage) *Future[struct{}] {
	return spawn(ctx, c.sendOp(msg), nil)
}

func (c *Client) RecvMessagesAsync(ctx context.Context, link Link) *Future[[]*BinaryMessage] {
	return spawn(ctx, c.recvMessagesOp(link), nil)
}

func (c *Client) RecvMessageAsync(ctx context.Context, link Link) *Future[*BinaryMessage] {
	return spawn(ctx, c.recvMessageOp(link), nil)
}

func (c *Client) sendOp(msg *BinaryMessage) op[struct{}] {
	c.mu.RLock()
	opts, networkID, log := c.send, c.networkID, c.log
	c.mu.RUnlock()
	return func(ctx context.Context) (struct{}, error) {
		_, err := sendMessage(ctx, c.pool, networkID, opts, msg, log)
		return struct{}{}, err
	}
}

func (c *Client) recvMessagesOp(link Link) op[[]*BinaryMessage] {
	c.mu.RLock()
	opts, log := c.recv, c.log
	c.mu.RUnlock()
	return func(ctx context.Context) ([]*BinaryMessage, error) {
		return recvMessages(ctx, c.pool, opts, link, log)
	}
}

func (c *Client) recvMessageOp(link Link) op[*BinaryMessage] {
	c.mu.RLock()
	opts, log := c.recv, c.log
	c.mu.RUnlock()
	return func(ctx context.Context) (*BinaryMessage, error) {
		return recvMessage(ctx, c.pool, opts, link, log)
	}
}
