package transport

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"xdao.co/streams-tangle/ledger"
	"xdao.co/streams-tangle/node/memnode"
)

func TestShared_ContentionFailsFast(t *testing.T) {
	ctx := context.Background()
	mem := memnode.New(memnode.Options{})
	entered := make(chan struct{})
	unblock := make(chan struct{})
	var calls atomic.Int32
	stub := &stubNode{Node: mem, tips: func(ctx context.Context) (ledger.Tips, error) {
		if calls.Add(1) == 1 {
			close(entered)
			<-unblock
		}
		return mem.Tips(ctx)
	}}
	s := NewShared(newTestClient(t, stub))
	link := NewLink([]byte("app"), []byte("shared"))

	pending := s.SendMessageAsync(ctx, &BinaryMessage{Link: link, Body: []byte("held")})
	<-entered

	require.ErrorIs(t, s.SendMessage(ctx, &BinaryMessage{Link: link, Body: []byte("x")}), ErrTransportNotAvailable)
	_, err := s.RecvMessages(ctx, link)
	require.ErrorIs(t, err, ErrTransportNotAvailable)
	_, err = s.RecvMessage(ctx, link)
	require.ErrorIs(t, err, ErrTransportNotAvailable)

	f := s.RecvMessagesAsync(ctx, link)
	require.True(t, f.Ready())
	_, err = f.Await(ctx)
	require.ErrorIs(t, err, ErrTransportNotAvailable)
	require.ErrorIs(t, s.Do(func(*Client) error { return nil }), ErrTransportNotAvailable)

	close(unblock)
	_, err = pending.Await(ctx)
	require.NoError(t, err)

	got, err := s.RecvMessage(ctx, link)
	require.NoError(t, err)
	require.Equal(t, []byte("held"), got.Body)
}

func TestShared_DoConfigures(t *testing.T) {
	s := NewShared(newTestClient(t, memnode.New(memnode.Options{})))
	require.NoError(t, s.Do(func(c *Client) error {
		c.SetRecvOptions(RecvOptions{Concurrency: 2})
		return nil
	}))
	require.NoError(t, s.Do(func(c *Client) error {
		require.Equal(t, 2, c.RecvOptions().Concurrency)
		return nil
	}))
}

func TestFuture_AwaitHonoursContext(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	f := spawn(context.Background(), func(context.Context) (int, error) {
		<-block
		return 1, nil
	}, nil)
	require.False(t, f.Ready())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := f.Await(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestFuture_CompletedIgnoresContext(t *testing.T) {
	f := spawn(context.Background(), func(context.Context) (int, error) { return 7, nil }, nil)
	<-f.Done()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	v, err := f.Await(ctx)
	require.NoError(t, err)
	require.Equal(t, 7, v)
}
