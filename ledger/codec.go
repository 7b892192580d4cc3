package ledger

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/ipfs/go-cid"

	"xdao.co/streams-tangle/cidutil"
)

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error

	// Ids are hashes of the encoding, so it must be canonical.
	encMode, err = cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
	}.EncMode()
	if err != nil {
		panic(fmt.Sprintf("ledger: cbor encoder mode: %v", err))
	}

	decMode, err = cbor.DecOptions{
		DupMapKey:         cbor.DupMapKeyEnforcedAPF,
		IndefLength:       cbor.IndefLengthForbidden,
		MaxArrayElements:  16,
		ExtraReturnErrors: cbor.ExtraDecErrorUnknownField,
	}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("ledger: cbor decoder mode: %v", err))
	}
}

type wireMessage struct {
	NetworkID uint64       `cbor:"1,keyasint"`
	Parents   [][]byte     `cbor:"2,keyasint"`
	Payload   *wirePayload `cbor:"3,keyasint,omitempty"`
	Nonce     uint64       `cbor:"4,keyasint"`
}

type wirePayload struct {
	Type  uint32 `cbor:"1,keyasint"`
	Index []byte `cbor:"2,keyasint,omitempty"`
	Data  []byte `cbor:"3,keyasint,omitempty"`
}

// Encode returns the canonical encoding of m.
func Encode(m *Message) ([]byte, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	w := wireMessage{
		NetworkID: m.NetworkID,
		Parents:   [][]byte{m.Parents[0].Bytes(), m.Parents[1].Bytes()},
		Nonce:     m.Nonce,
	}
	switch p := m.Payload.(type) {
	case *Indexation:
		w.Payload = &wirePayload{Type: uint32(KindIndexation), Index: p.Index, Data: p.Data}
	case *Opaque:
		w.Payload = &wirePayload{Type: uint32(p.Type), Data: p.Bytes}
	}
	b, err := encMode.Marshal(w)
	if err != nil {
		return nil, err
	}
	if len(b) > MaxMessageBytes {
		return nil, ErrMessageTooLarge
	}
	return b, nil
}

// Decode parses a canonical message encoding.
func Decode(b []byte) (*Message, error) {
	if len(b) > MaxMessageBytes {
		return nil, ErrMessageTooLarge
	}
	var w wireMessage
	if err := decMode.Unmarshal(b, &w); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	if len(w.Parents) != 2 {
		return nil, fmt.Errorf("%w: want 2 parents, got %d", ErrMalformedMessage, len(w.Parents))
	}
	m := &Message{NetworkID: w.NetworkID, Nonce: w.Nonce}
	for i, raw := range w.Parents {
		id, err := cid.Cast(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: parent %d: %v", ErrMalformedMessage, i, err)
		}
		m.Parents[i] = id
	}
	if w.Payload != nil {
		kind := PayloadKind(w.Payload.Type)
		if kind == KindIndexation {
			m.Payload = &Indexation{Index: w.Payload.Index, Data: w.Payload.Data}
		} else {
			m.Payload = &Opaque{Type: kind, Bytes: w.Payload.Data}
		}
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// ID computes the content id of m.
func ID(m *Message) (cid.Cid, error) {
	b, err := Encode(m)
	if err != nil {
		return cid.Undef, err
	}
	return cidutil.MessageCID(b)
}

// Verify decodes b and checks that it hashes to id.
func Verify(id cid.Cid, b []byte) (*Message, error) {
	if err := cidutil.Check(id); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidID, err)
	}
	got, err := cidutil.MessageCID(b)
	if err != nil {
		return nil, err
	}
	if !got.Equals(id) {
		return nil, ErrIDMismatch
	}
	return Decode(b)
}

// Essence is the encoding of m with a zero nonce; proof of work commits to it.
func Essence(m *Message) ([]byte, error) {
	cp := *m
	cp.Nonce = 0
	return Encode(&cp)
}
