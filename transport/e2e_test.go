package transport

import (
	"context"
	"net"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"

	"xdao.co/streams-tangle/node"
	"xdao.co/streams-tangle/node/grpcnode"
	"xdao.co/streams-tangle/node/httpnode"
	"xdao.co/streams-tangle/node/memnode"
)

func grpcNode(t *testing.T, backing node.Node) node.Node {
	t.Helper()
	lis := bufconn.Listen(1024 * 1024)
	srv := grpc.NewServer()
	grpcnode.RegisterNodeServer(srv, &grpcnode.Server{Node: backing})
	go func() {
		_ = srv.Serve(lis)
	}()
	t.Cleanup(srv.Stop)

	cc, err := grpc.DialContext(context.Background(), "bufnet",
		grpc.WithContextDialer(func(context.Context, string) (net.Conn, error) { return lis.Dial() }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	client := grpcnode.NewClient(cc)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func httpNode(t *testing.T, backing node.Node) node.Node {
	t.Helper()
	srv := httptest.NewServer(httpnode.NewHandler(backing, nil))
	t.Cleanup(srv.Close)
	client, err := httpnode.New(srv.URL, httpnode.Options{HTTPClient: srv.Client()})
	require.NoError(t, err)
	return client
}

func TestEndToEnd_Backends(t *testing.T) {
	backends := map[string]func(*testing.T, node.Node) node.Node{
		"grpc": grpcNode,
		"http": httpNode,
	}
	for name, wrap := range backends {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			mem := memnode.New(memnode.Options{MinWeightMagnitude: 4})
			send := DefaultSendOptions()
			send.MinWeightMagnitude = 4
			c := NewWithNode(node.Named{Name: name, Node: wrap(t, mem)}, send)
			link := NewLink([]byte{0xaa, 0xbb}, []byte{0x01, 0x02})

			require.NoError(t, c.SendMessage(ctx, &BinaryMessage{Link: link, Body: []byte{0, 1, 2, 255}}))
			got, err := c.RecvMessage(ctx, link)
			require.NoError(t, err)
			require.Equal(t, []byte{0, 1, 2, 255}, got.Body)

			msgs, err := c.RecvMessages(ctx, NewLink([]byte{0xaa, 0xbb}, []byte{0x09}))
			require.NoError(t, err)
			require.Empty(t, msgs)
		})
	}
}

func TestNewFromURL_Mem(t *testing.T) {
	ctx := context.Background()
	c, err := NewFromURL("mem://transport-e2e", WithNetworkID(0))
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, c.Close()) })
	c.SetSendOptions(fastSend())

	link := NewLink([]byte("app"), []byte("url"))
	require.NoError(t, c.SendMessage(ctx, &BinaryMessage{Link: link, Body: []byte("via registry")}))

	// A second client on the same named ledger sees the message.
	other, err := NewFromURL("mem://transport-e2e")
	require.NoError(t, err)
	got, err := other.RecvMessage(ctx, link)
	require.NoError(t, err)
	require.Equal(t, []byte("via registry"), got.Body)
}

func TestNewFromURL_Invalid(t *testing.T) {
	_, err := NewFromURL("nope://x")
	require.ErrorIs(t, err, ErrClientOperationFailure)
}

func TestClient_AddNodeFallback(t *testing.T) {
	ctx := context.Background()
	c, err := NewFromURL("mem://add-node-primary")
	require.NoError(t, err)
	c.SetSendOptions(fastSend())

	secondary := memnode.Shared(memnode.Options{Name: "add-node-secondary"})
	link := NewLink([]byte("app"), []byte("fallback"))
	writer := NewWithNode(node.Named{Name: "secondary", Node: secondary}, fastSend())
	require.NoError(t, writer.SendMessage(ctx, &BinaryMessage{Link: link, Body: []byte("from secondary")}))

	msgs, err := c.RecvMessages(ctx, link)
	require.NoError(t, err)
	require.Empty(t, msgs)

	require.NoError(t, c.AddNode(ctx, "mem://add-node-secondary"))
	require.Equal(t, []string{"mem://add-node-primary", "mem://add-node-secondary"}, c.Node().Names())

	got, err := c.RecvMessage(ctx, link)
	require.NoError(t, err)
	require.Equal(t, []byte("from secondary"), got.Body)
}

func TestClient_AddNodeUnreachable(t *testing.T) {
	srv := httptest.NewServer(nil)
	url := srv.URL
	srv.Close()

	c := newTestClient(t, memnode.New(memnode.Options{}))
	err := c.AddNode(context.Background(), url)
	require.ErrorIs(t, err, ErrClientOperationFailure)
	require.ErrorIs(t, err, node.ErrUnavailable)
	require.Equal(t, 1, c.Node().Len())

	require.ErrorIs(t, c.AddNode(context.Background(), "::bad"), ErrClientOperationFailure)
}

func TestClient_SubmitPolicyAll(t *testing.T) {
	ctx := context.Background()
	a := memnode.New(memnode.Options{Name: "a"})
	b := memnode.New(memnode.Options{Name: "b"})
	pool := node.NewPool(node.SubmitFirst, node.Named{Name: "a", Node: a}, node.Named{Name: "b", Node: b})
	c := NewWithNode(node.Named{Name: "pool", Node: pool}, fastSend(), WithSubmitPolicy(node.SubmitAll))

	require.NoError(t, c.SendMessage(ctx, &BinaryMessage{Link: NewLink([]byte("a"), []byte("b")), Body: []byte("both")}))
	require.Equal(t, 1, a.Len())
	require.Equal(t, 1, b.Len())
}
