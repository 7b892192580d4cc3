package transport

import (
	"context"
	"errors"
	"fmt"

	"github.com/ipfs/go-cid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"xdao.co/streams-tangle/ledger"
	"xdao.co/streams-tangle/node"
)

// Fetch retrieves the messages for ids from n concurrently, at most
// opts.Concurrency at a time. Ids the node does not know are skipped. The
// result keeps the relative order of ids. It fails with
// ErrTransactionContentsNotFound when none of the ids could be fetched.
func Fetch(ctx context.Context, n node.Node, opts RecvOptions, ids []cid.Cid) ([]*ledger.Message, error) {
	if len(ids) == 0 {
		return nil, ErrTransactionContentsNotFound
	}
	slots := make([]*ledger.Message, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit(opts.Concurrency))
	for i, id := range ids {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			m, err := n.Fetch(gctx, id)
			if node.IsNotFound(err) {
				return nil
			}
			if err != nil {
				return clientFailure("fetch", err)
			}
			slots[i] = m
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	out := slots[:0]
	for _, m := range slots {
		if m != nil {
			out = append(out, m)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: 0 of %d ids", ErrTransactionContentsNotFound, len(ids))
	}
	return out, nil
}

// lookup resolves link to ledger message ids. No match is ErrHashNotFound.
func lookup(ctx context.Context, n node.Node, link Link) ([]cid.Cid, error) {
	ids, err := n.Lookup(ctx, []byte(IndexKey(link)))
	if err != nil {
		return nil, clientFailure("lookup", err)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrHashNotFound, link)
	}
	return ids, nil
}

// getMessages is the strict receive pipeline: lookup, fetch, decode. A message
// that does not decode fails the whole batch.
func getMessages(ctx context.Context, n node.Node, opts RecvOptions, link Link) ([]*BinaryMessage, error) {
	ids, err := lookup(ctx, n, link)
	if err != nil {
		return nil, err
	}
	msgs, err := Fetch(ctx, n, opts, ids)
	if err != nil {
		return nil, err
	}
	out := make([]*BinaryMessage, 0, len(msgs))
	for _, m := range msgs {
		bm, err := DecodeMessage(m, link)
		if err != nil {
			return nil, err
		}
		out = append(out, bm)
	}
	return out, nil
}

// recvMessages treats a link with no ledger entries as an empty result.
// Every other failure propagates.
func recvMessages(ctx context.Context, n node.Node, opts RecvOptions, link Link, log *zap.Logger) ([]*BinaryMessage, error) {
	msgs, err := getMessages(ctx, n, opts, link)
	if errors.Is(err, ErrHashNotFound) {
		log.Debug("no messages for link", zap.Stringer("link", link))
		return []*BinaryMessage{}, nil
	}
	if err != nil {
		return nil, err
	}
	log.Debug("messages received", zap.Stringer("link", link), zap.Int("count", len(msgs)))
	return msgs, nil
}

func recvMessage(ctx context.Context, n node.Node, opts RecvOptions, link Link, log *zap.Logger) (*BinaryMessage, error) {
	msgs, err := recvMessages(ctx, n, opts, link, log)
	if err != nil {
		return nil, err
	}
	switch len(msgs) {
	case 0:
		return nil, fmt.Errorf("%w: %s", ErrMessageLinkNotFound, link)
	case 1:
		return msgs[0], nil
	default:
		return nil, fmt.Errorf("%w: %d messages for %s", ErrMessageNotUnique, len(msgs), link)
	}
}
