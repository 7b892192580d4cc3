package grpcnode

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/ipfs/go-cid"
)

func encodeIDs(ids []cid.Cid) ([]byte, error) {
	raw := make([][]byte, 0, len(ids))
	for _, id := range ids {
		raw = append(raw, id.Bytes())
	}
	return cbor.Marshal(raw)
}

func decodeIDs(b []byte) ([]cid.Cid, error) {
	var raw [][]byte
	if err := cbor.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("grpcnode: decode ids: %w", err)
	}
	ids := make([]cid.Cid, 0, len(raw))
	for _, r := range raw {
		id, err := cid.Cast(r)
		if err != nil {
			return nil, fmt.Errorf("grpcnode: decode ids: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
