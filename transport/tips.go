package transport

import (
	"context"
	"errors"

	"xdao.co/streams-tangle/ledger"
	"xdao.co/streams-tangle/node"
)

var errUndefinedTips = errors.New("node returned undefined tips")

// ResolveTips asks n for two parents to attach a new message to. The result
// is advisory; it may already be stale when the message is submitted.
func ResolveTips(ctx context.Context, n node.Node) (ledger.Tips, error) {
	tips, err := n.Tips(ctx)
	if err != nil {
		return ledger.Tips{}, clientFailure("tips", err)
	}
	if !tips.Defined() {
		return ledger.Tips{}, clientFailure("tips", errUndefinedTips)
	}
	return tips, nil
}
