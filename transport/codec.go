package transport

import (
	"bytes"
	"encoding/hex"
	"fmt"

	"xdao.co/streams-tangle/ledger"
)

// MaxBodySize is the largest body EncodePayload accepts under key. Bodies are
// hex encoded, so each byte costs two payload bytes. A key longer than the
// payload limit admits no body at all, not even an empty one.
func MaxBodySize(key string) int {
	n := (ledger.MaxPayloadBytes - len(key)) / 2
	if n < 0 {
		return 0
	}
	return n
}

// EncodePayload wraps body in an indexation payload tagged with key. The data
// field carries the lowercase hex encoding of body.
func EncodePayload(body []byte, key string) (*ledger.Indexation, error) {
	if key == "" {
		return nil, fmt.Errorf("%w: empty index key", ErrMalformedPayload)
	}
	if n := len(key) + hex.EncodedLen(len(body)); n > ledger.MaxPayloadBytes {
		return nil, fmt.Errorf("%w: %d index and %d body bytes, limit %d body bytes",
			ErrPayloadTooLarge, len(key), len(body), MaxBodySize(key))
	}
	return &ledger.Indexation{
		Index: []byte(key),
		Data:  []byte(hex.EncodeToString(body)),
	}, nil
}

// BuildMessage attaches p to tips. The nonce is left zero for proof of work.
func BuildMessage(networkID uint64, tips ledger.Tips, p ledger.Payload) *ledger.Message {
	return &ledger.Message{NetworkID: networkID, Parents: tips, Payload: p}
}

// DecodeMessage unwraps the body of a message received for link. Only
// indexation payloads tagged with IndexKey(link) are accepted.
func DecodeMessage(m *ledger.Message, link Link) (*BinaryMessage, error) {
	if m == nil {
		return nil, fmt.Errorf("%w: none", ErrUnexpectedPayloadType)
	}
	p, ok := m.Payload.(*ledger.Indexation)
	if !ok {
		kind := "none"
		if m.Payload != nil {
			kind = m.Payload.Kind().String()
		}
		return nil, fmt.Errorf("%w: %s", ErrUnexpectedPayloadType, kind)
	}
	if !bytes.Equal(p.Index, []byte(IndexKey(link))) {
		return nil, fmt.Errorf("%w: index %q does not match link %s", ErrMalformedPayload, p.Index, link)
	}
	body := make([]byte, hex.DecodedLen(len(p.Data)))
	n, err := hex.Decode(body, p.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	return &BinaryMessage{Link: link, Body: body[:n], Timestamp: UnknownTimestamp}, nil
}
