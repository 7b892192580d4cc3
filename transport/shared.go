package transport

import (
	"context"
	"sync/atomic"
)

// Shared lets several owners use one Client without ever waiting for each
// other. Each call tries to take the client; if another call holds it the
// call fails at once with ErrTransportNotAvailable. Asynchronous calls hold
// the client until their future completes.
type Shared struct {
	c    *Client
	busy atomic.Bool
}

func NewShared(c *Client) *Shared { return &Shared{c: c} }

func (s *Shared) tryAcquire() bool { return s.busy.CompareAndSwap(false, true) }
func (s *Shared) release()         { s.busy.Store(false) }

// Do runs fn with exclusive access to the client, for configuration changes.
func (s *Shared) Do(fn func(*Client) error) error {
	if !s.tryAcquire() {
		return ErrTransportNotAvailable
	}
	defer s.release()
	return fn(s.c)
}

func (s *Shared) SendMessage(ctx context.Context, msg *BinaryMessage) error {
	if !s.tryAcquire() {
		return ErrTransportNotAvailable
	}
	defer s.release()
	return s.c.SendMessage(ctx, msg)
}

func (s *Shared) RecvMessages(ctx context.Context, link Link) ([]*BinaryMessage, error) {
	if !s.tryAcquire() {
		return nil, ErrTransportNotAvailable
	}
	defer s.release()
	return s.c.RecvMessages(ctx, link)
}

func (s *Shared) RecvMessage(ctx context.Context, link Link) (*BinaryMessage, error) {
	if !s.tryAcquire() {
		return nil, ErrTransportNotAvailable
	}
	defer s.release()
	return s.c.RecvMessage(ctx, link)
}

func (s *Shared) SendMessageAsync(ctx context.Context, msg *BinaryMessage) *Future[struct{}] {
	if !s.tryAcquire() {
		return failed[struct{}](ErrTransportNotAvailable)
	}
	return spawn(ctx, s.c.sendOp(msg), s.release)
}

func (s *Shared) RecvMessagesAsync(ctx context.Context, link Link) *Future[[]*BinaryMessage] {
	if !s.tryAcquire() {
		return failed[[]*BinaryMessage](ErrTransportNotAvailable)
	}
	return spawn(ctx, s.c.recvMessagesOp(link), s.release)
}

func (s *Shared) RecvMessageAsync(ctx context.Context, link Link) *Future[*BinaryMessage] {
	if !s.tryAcquire() {
		return failed[*BinaryMessage](ErrTransportNotAvailable)
	}
	return spawn(ctx, s.c.recvMessageOp(link), s.release)
}
