package node

import (
	"context"

	"github.com/ipfs/go-cid"

	"xdao.co/streams-tangle/ledger"
)

// Node is a connection to one ledger node (or a pool acting as one).
//
// Contract:
// - Submit returns the id the node assigned to the attached message.
// - Lookup returns every message id whose indexation index equals index;
//   no match is an empty slice, not an error.
// - Fetch MUST return ErrNotFound when the id is unknown to the node.
// - Implementations MUST be safe for concurrent use.
type Node interface {
	Info(ctx context.Context) (Info, error)
	Tips(ctx context.Context) (ledger.Tips, error)
	Submit(ctx context.Context, msg *ledger.Message) (cid.Cid, error)
	Lookup(ctx context.Context, index []byte) ([]cid.Cid, error)
	Fetch(ctx context.Context, id cid.Cid) (*ledger.Message, error)
}

// Info describes a node's state as reported by the node itself.
type Info struct {
	Name      string `json:"name" cbor:"1,keyasint"`
	Version   string `json:"version" cbor:"2,keyasint"`
	NetworkID uint64 `json:"networkId" cbor:"3,keyasint"`
	Healthy   bool   `json:"isHealthy" cbor:"4,keyasint"`

	// MinWeightMagnitude is the proof of work the node requires of submitted messages.
	MinWeightMagnitude uint8 `json:"minPowScore" cbor:"5,keyasint"`
	// RemotePoW reports whether the node mines messages submitted without work.
	RemotePoW bool `json:"remotePow" cbor:"6,keyasint"`
}
