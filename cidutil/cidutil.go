package cidutil

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
	_ "github.com/multiformats/go-multihash/register/blake2"
)

// HashCode is the multihash function used for ledger message ids (blake2b-256).
const HashCode = multihash.BLAKE2B_MIN + 31

// DigestSize is the byte length of a message id digest.
const DigestSize = 32

var ErrNotMessageID = errors.New("cidutil: not a ledger message id")

// MessageCID returns a CIDv1 using the dag-cbor multicodec and a blake2b-256
// multihash of data.
func MessageCID(data []byte) (cid.Cid, error) {
	sum, err := multihash.Sum(data, HashCode, -1)
	if err != nil {
		return cid.Undef, err
	}
	return cid.NewCidV1(cid.DagCBOR, sum), nil
}

// FromDigest wraps a raw 32-byte blake2b digest (as reported by REST nodes)
// into a message CID.
func FromDigest(digest []byte) (cid.Cid, error) {
	if len(digest) != DigestSize {
		return cid.Undef, fmt.Errorf("%w: digest length %d", ErrNotMessageID, len(digest))
	}
	mh, err := multihash.Encode(digest, HashCode)
	if err != nil {
		return cid.Undef, err
	}
	return cid.NewCidV1(cid.DagCBOR, mh), nil
}

// FromHex parses a hex digest into a message CID.
func FromHex(s string) (cid.Cid, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return cid.Undef, fmt.Errorf("%w: %v", ErrNotMessageID, err)
	}
	return FromDigest(b)
}

// Digest returns the raw blake2b digest carried by a message CID.
func Digest(id cid.Cid) ([]byte, error) {
	if err := Check(id); err != nil {
		return nil, err
	}
	dec, err := multihash.Decode(id.Hash())
	if err != nil {
		return nil, err
	}
	return dec.Digest, nil
}

// Hex returns the hex digest of id, or "" if id is not a message id.
func Hex(id cid.Cid) string {
	d, err := Digest(id)
	if err != nil {
		return ""
	}
	return hex.EncodeToString(d)
}

// Check reports whether id is a defined dag-cbor/blake2b-256 CID.
func Check(id cid.Cid) error {
	if !id.Defined() {
		return ErrNotMessageID
	}
	p := id.Prefix()
	if p.Codec != cid.DagCBOR || p.MhType != HashCode || p.MhLength != DigestSize {
		return fmt.Errorf("%w: %s", ErrNotMessageID, id)
	}
	return nil
}

// Parse decodes either a CID string or a 64-char hex digest.
func Parse(s string) (cid.Cid, error) {
	if len(s) == 2*DigestSize {
		if id, err := FromHex(s); err == nil {
			return id, nil
		}
	}
	id, err := cid.Decode(s)
	if err != nil {
		return cid.Undef, fmt.Errorf("%w: %v", ErrNotMessageID, err)
	}
	if err := Check(id); err != nil {
		return cid.Undef, err
	}
	return id, nil
}
