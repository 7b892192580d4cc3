package transport

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"
)

// Link addresses a logical message slot: an application instance plus a
// message id. It is independent of ledger message ids and immutable once built.
type Link struct {
	appInst []byte
	msgID   []byte
}

// NewLink copies its arguments.
func NewLink(appInst, msgID []byte) Link {
	return Link{appInst: bytes.Clone(appInst), msgID: bytes.Clone(msgID)}
}

// ParseLink parses the "<appinst-hex>:<msgid-hex>" form produced by String.
// At least one part must be non-empty.
func ParseLink(s string) (Link, error) {
	a, m, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return Link{}, fmt.Errorf("transport: link %q: want <appinst-hex>:<msgid-hex>", s)
	}
	appInst, err := hex.DecodeString(a)
	if err != nil {
		return Link{}, fmt.Errorf("transport: link appinst: %w", err)
	}
	msgID, err := hex.DecodeString(m)
	if err != nil {
		return Link{}, fmt.Errorf("transport: link msgid: %w", err)
	}
	l := Link{appInst: appInst, msgID: msgID}
	if l.IsZero() {
		return Link{}, fmt.Errorf("transport: link %q is empty", s)
	}
	return l, nil
}

func (l Link) AppInst() []byte { return bytes.Clone(l.appInst) }
func (l Link) MsgID() []byte   { return bytes.Clone(l.msgID) }

func (l Link) IsZero() bool { return len(l.appInst) == 0 && len(l.msgID) == 0 }

// Equal is byte-wise equality of both parts.
func (l Link) Equal(o Link) bool {
	return bytes.Equal(l.appInst, o.appInst) && bytes.Equal(l.msgID, o.msgID)
}

// Key returns a byte-wise map key; distinct links always yield distinct keys.
func (l Link) Key() string {
	b := binary.AppendUvarint(make([]byte, 0, binary.MaxVarintLen64+len(l.appInst)+len(l.msgID)), uint64(len(l.appInst)))
	b = append(b, l.appInst...)
	b = append(b, l.msgID...)
	return string(b)
}

func (l Link) String() string {
	return hex.EncodeToString(l.appInst) + ":" + hex.EncodeToString(l.msgID)
}

// IndexKey is the ledger index a link's messages are tagged with:
// hex(appinst ++ msgid). It depends on nothing but the link.
func IndexKey(l Link) string {
	b := make([]byte, 0, len(l.appInst)+len(l.msgID))
	b = append(b, l.appInst...)
	b = append(b, l.msgID...)
	return hex.EncodeToString(b)
}
