package transport

import "context"

// Transport is the blocking calling convention.
type Transport interface {
	SendMessage(ctx context.Context, msg *BinaryMessage) error
	// RecvMessages returns every message stored under link. A link with no
	// messages yields an empty slice and no error.
	RecvMessages(ctx context.Context, link Link) ([]*BinaryMessage, error)
	// RecvMessage returns the single message stored under link.
	RecvMessage(ctx context.Context, link Link) (*BinaryMessage, error)
}

// AsyncTransport is the non-blocking calling convention. Results and errors
// match Transport.
type AsyncTransport interface {
	SendMessageAsync(ctx context.Context, msg *BinaryMessage) *Future[struct{}]
	RecvMessagesAsync(ctx context.Context, link Link) *Future[[]*BinaryMessage]
	RecvMessageAsync(ctx context.Context, link Link) *Future[*BinaryMessage]
}

// Tunable exposes per-transport send and receive options.
type Tunable interface {
	SendOptions() SendOptions
	SetSendOptions(SendOptions)
	RecvOptions() RecvOptions
	SetRecvOptions(RecvOptions)
}

var (
	_ Transport      = (*Client)(nil)
	_ AsyncTransport = (*Client)(nil)
	_ Tunable        = (*Client)(nil)
	_ Transport      = (*Shared)(nil)
	_ AsyncTransport = (*Shared)(nil)
)
