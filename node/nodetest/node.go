// Package nodetest holds a conformance suite every node backend must pass.
package nodetest

import (
	"context"
	"testing"

	"github.com/ipfs/go-cid"
	"github.com/stretchr/testify/require"

	"xdao.co/streams-tangle/cidutil"
	"xdao.co/streams-tangle/ledger"
	"xdao.co/streams-tangle/node"
)

// NewNode constructs a fresh, empty node for a test. The node MUST be
// isolated from other tests, require no proof of work and accept any
// network id.
type NewNode func(t *testing.T) node.Node

// Indexed builds an indexation message attached to tips.
func Indexed(tips ledger.Tips, index, data string) *ledger.Message {
	return &ledger.Message{
		Parents: tips,
		Payload: &ledger.Indexation{Index: []byte(index), Data: []byte(data)},
	}
}

func RunNodeConformance(t *testing.T, newNode NewNode) {
	t.Helper()
	ctx := context.Background()

	t.Run("InfoHealthy", func(t *testing.T) {
		n := newNode(t)
		info, err := n.Info(ctx)
		require.NoError(t, err)
		require.True(t, info.Healthy, "Info reports unhealthy: %+v", info)
	})

	t.Run("SubmitFetchRoundTrip", func(t *testing.T) {
		n := newNode(t)
		msg := Indexed(mustTips(t, n), "idx", "hello, ledger")

		id, err := n.Submit(ctx, msg)
		require.NoError(t, err)
		require.NoError(t, cidutil.Check(id), "Submit returned non-message id %s", id)

		got, err := n.Fetch(ctx, id)
		require.NoError(t, err)
		gotID, err := ledger.ID(got)
		require.NoError(t, err)
		require.True(t, gotID.Equals(id), "Fetch returned message %s, want %s", gotID, id)
		require.Equal(t, []byte("idx"), got.Index())
	})

	t.Run("SubmitIdempotent", func(t *testing.T) {
		n := newNode(t)
		msg := Indexed(mustTips(t, n), "same", "same bytes")

		id1, err := n.Submit(ctx, msg)
		require.NoError(t, err)
		id2, err := n.Submit(ctx, msg)
		require.NoError(t, err)
		require.True(t, id1.Equals(id2), "Submit not idempotent: %s vs %s", id1, id2)

		ids, err := n.Lookup(ctx, []byte("same"))
		require.NoError(t, err)
		require.Len(t, ids, 1)
	})

	t.Run("LookupByIndex", func(t *testing.T) {
		n := newNode(t)
		want := map[cid.Cid]bool{}
		for _, data := range []string{"a", "b", "c"} {
			id, err := n.Submit(ctx, Indexed(mustTips(t, n), "multi", data))
			require.NoError(t, err, data)
			want[id] = true
		}
		_, err := n.Submit(ctx, Indexed(mustTips(t, n), "other", "x"))
		require.NoError(t, err)

		ids, err := n.Lookup(ctx, []byte("multi"))
		require.NoError(t, err)
		require.Len(t, ids, len(want))
		for _, id := range ids {
			require.True(t, want[id], "Lookup returned unexpected id %s", id)
		}
	})

	t.Run("LookupMissingIsEmpty", func(t *testing.T) {
		n := newNode(t)
		ids, err := n.Lookup(ctx, []byte("nothing here"))
		require.NoError(t, err)
		require.Empty(t, ids)
	})

	t.Run("FetchNotFound", func(t *testing.T) {
		n := newNode(t)
		id, err := cidutil.MessageCID([]byte("never submitted"))
		require.NoError(t, err)
		_, err = n.Fetch(ctx, id)
		require.True(t, node.IsNotFound(err), "got err=%v want ErrNotFound", err)
	})

	t.Run("FetchRejectsForeignID", func(t *testing.T) {
		n := newNode(t)
		sum := make([]byte, 34)
		sum[0], sum[1] = 0x12, 0x20 // sha2-256, 32 bytes
		foreign := cid.NewCidV1(cid.Raw, sum)
		_, err := n.Fetch(ctx, foreign)
		require.Error(t, err, "non-message id")
	})

	t.Run("TipsAdvance", func(t *testing.T) {
		n := newNode(t)
		id, err := n.Submit(ctx, Indexed(mustTips(t, n), "tips", "advance"))
		require.NoError(t, err)
		after := mustTips(t, n)
		require.True(t, after[0].Equals(id) || after[1].Equals(id),
			"Tips %v do not include newly attached %s", after, id)
	})

	t.Run("RejectUnknownParents", func(t *testing.T) {
		n := newNode(t)
		stray, err := cidutil.MessageCID([]byte("stray"))
		require.NoError(t, err)
		_, err = n.Submit(ctx, Indexed(ledger.Tips{stray, stray}, "stray", "x"))
		require.Error(t, err, "unknown parents")
	})
}

func mustTips(t *testing.T, n node.Node) ledger.Tips {
	t.Helper()
	tips, err := n.Tips(context.Background())
	require.NoError(t, err)
	require.True(t, tips.Defined(), "Tips returned undefined parents: %v", tips)
	return tips
}
