package transport

import (
	"context"

	"github.com/ipfs/go-cid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"xdao.co/streams-tangle/cidutil"
	"xdao.co/streams-tangle/ledger"
	"xdao.co/streams-tangle/ledger/pow"
	"xdao.co/streams-tangle/node"
)

// Submit mines (when opts.LocalPoW is set) and submits msgs to n concurrently,
// at most opts.Concurrency at a time. Mining sets each message's Nonce; the
// concurrency budget is shared between submissions and their mining workers.
//
// ids[i] belongs to msgs[i]. The first failure cancels the rest of the batch
// and is returned; messages already accepted by the node stay on the ledger.
func Submit(ctx context.Context, n node.Node, opts SendOptions, msgs []*ledger.Message) ([]cid.Cid, error) {
	ids := make([]cid.Cid, len(msgs))
	inflight, workers := powBudget(opts.Concurrency, len(msgs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(inflight)
	for i, m := range msgs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if opts.LocalPoW {
				if err := pow.Apply(gctx, m, opts.MinWeightMagnitude, workers); err != nil {
					return clientFailure("pow", err)
				}
			}
			id, err := n.Submit(gctx, m)
			if err != nil {
				return clientFailure("submit", err)
			}
			ids[i] = id
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return ids, nil
}

// powBudget splits concurrency between parallel submissions of n messages and
// the mining workers of each, so that inflight*workers <= concurrency.
func powBudget(concurrency, n int) (inflight, workers int) {
	c := limit(concurrency)
	inflight = min(c, max(n, 1))
	return inflight, limit(c / inflight)
}

// sendMessage is the send pipeline: encode, resolve tips, build, submit.
func sendMessage(ctx context.Context, n node.Node, networkID uint64, opts SendOptions, msg *BinaryMessage, log *zap.Logger) (cid.Cid, error) {
	key := IndexKey(msg.Link)
	payload, err := EncodePayload(msg.Body, key)
	if err != nil {
		return cid.Undef, err
	}
	tips, err := ResolveTips(ctx, n)
	if err != nil {
		return cid.Undef, err
	}
	ids, err := Submit(ctx, n, opts, []*ledger.Message{BuildMessage(networkID, tips, payload)})
	if err != nil {
		return cid.Undef, err
	}
	log.Debug("message sent",
		zap.Stringer("link", msg.Link),
		zap.String("index", key),
		zap.String("id", cidutil.Hex(ids[0])),
		zap.Int("body_bytes", len(msg.Body)))
	return ids[0], nil
}
