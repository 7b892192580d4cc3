package grpcnode

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/ipfs/go-cid"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"

	"xdao.co/streams-tangle/cidutil"
	"xdao.co/streams-tangle/ledger"
	"xdao.co/streams-tangle/node"
	"xdao.co/streams-tangle/node/memnode"
	"xdao.co/streams-tangle/node/nodetest"
)

func serve(t *testing.T, n node.Node) *Client {
	t.Helper()
	lis := bufconn.Listen(1024 * 1024)
	srv := grpc.NewServer()
	RegisterNodeServer(srv, &Server{Node: n})
	go func() {
		_ = srv.Serve(lis)
	}()
	t.Cleanup(srv.Stop)

	dialer := func(ctx context.Context, s string) (net.Conn, error) { return lis.Dial() }
	cc, err := grpc.DialContext(
		context.Background(),
		"bufnet",
		grpc.WithContextDialer(dialer),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	client := NewClient(cc)
	client.Timeout = 2 * time.Second
	t.Cleanup(func() { _ = client.Close() })
	return client
}

// corruptNode fails every fetch the way a backend that re-hashes stored
// bytes does.
type corruptNode struct{ node.Node }

func (corruptNode) Fetch(context.Context, cid.Cid) (*ledger.Message, error) {
	return nil, ledger.ErrIDMismatch
}

func TestGRPCNodeConformance(t *testing.T) {
	nodetest.RunNodeConformance(t, func(t *testing.T) node.Node {
		return serve(t, memnode.New(memnode.Options{Name: t.Name()}))
	})
}

func TestGRPCNode_InfoRoundTrip(t *testing.T) {
	client := serve(t, memnode.New(memnode.Options{Name: "rpc", NetworkID: 42, MinWeightMagnitude: 3, RemotePoW: true}))
	info, err := client.Info(context.Background())
	require.NoError(t, err)
	require.Equal(t, "rpc", info.Name)
	require.Equal(t, uint64(42), info.NetworkID)
	require.Equal(t, uint8(3), info.MinWeightMagnitude)
	require.True(t, info.RemotePoW)
}

func TestGRPCNode_NotFoundMapsToSentinel(t *testing.T) {
	client := serve(t, memnode.New(memnode.Options{}))
	id, err := cidutil.MessageCID([]byte("absent"))
	require.NoError(t, err)
	_, err = client.Fetch(context.Background(), id)
	require.True(t, node.IsNotFound(err), "got %v", err)
}

func TestGRPCNode_LedgerIDMismatchIsDataLoss(t *testing.T) {
	client := serve(t, corruptNode{Node: memnode.New(memnode.Options{})})
	id, err := cidutil.MessageCID([]byte("stored"))
	require.NoError(t, err)
	_, err = client.Fetch(context.Background(), id)
	require.ErrorIs(t, err, node.ErrIDMismatch)
}

func TestGRPCNode_NilBackendUnavailable(t *testing.T) {
	client := serve(t, nil)
	_, err := client.Info(context.Background())
	require.ErrorIs(t, err, node.ErrUnavailable)
}

func TestGRPCNode_CancelledContext(t *testing.T) {
	client := serve(t, memnode.New(memnode.Options{}))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := client.Tips(ctx)
	require.ErrorIs(t, err, context.Canceled)
}
