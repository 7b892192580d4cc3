package ledger

import (
	"fmt"

	"github.com/ipfs/go-cid"
)

const (
	// MaxMessageBytes is the largest encoded message a node accepts.
	MaxMessageBytes = 32 * 1024

	// HeaderAllowance bounds the encoding overhead of everything except the
	// payload's index and data fields.
	HeaderAllowance = 256

	// MaxPayloadBytes bounds len(Index)+len(Data) of a single payload.
	MaxPayloadBytes = MaxMessageBytes - HeaderAllowance
)

// PayloadKind is the ledger's payload type tag.
type PayloadKind uint32

const (
	KindTransaction PayloadKind = 0
	KindMilestone   PayloadKind = 1
	KindIndexation  PayloadKind = 2
)

func (k PayloadKind) String() string {
	switch k {
	case KindTransaction:
		return "transaction"
	case KindMilestone:
		return "milestone"
	case KindIndexation:
		return "indexation"
	default:
		return fmt.Sprintf("kind(%d)", uint32(k))
	}
}

// Payload is the typed body of a ledger message.
type Payload interface {
	Kind() PayloadKind
}

// Indexation tags arbitrary data with a searchable index.
type Indexation struct {
	Index []byte
	Data  []byte
}

func (*Indexation) Kind() PayloadKind { return KindIndexation }

// Opaque carries a payload kind this package does not interpret.
type Opaque struct {
	Type  PayloadKind
	Bytes []byte
}

func (o *Opaque) Kind() PayloadKind { return o.Type }

// Tips holds the two parent references of a message.
type Tips [2]cid.Cid

// Defined reports whether both parents are set.
func (t Tips) Defined() bool { return t[0].Defined() && t[1].Defined() }

// Message is a ledger-native message. Its id is derived from Encode(m) and is
// therefore not stored in the struct.
type Message struct {
	NetworkID uint64
	Parents   Tips
	Payload   Payload
	Nonce     uint64
}

// Validate checks structural constraints without encoding.
func (m *Message) Validate() error {
	if m == nil {
		return fmt.Errorf("%w: nil message", ErrMalformedMessage)
	}
	if !m.Parents.Defined() {
		return fmt.Errorf("%w: parents must be defined", ErrMalformedMessage)
	}
	switch p := m.Payload.(type) {
	case nil:
	case *Indexation:
		if len(p.Index) == 0 {
			return fmt.Errorf("%w: empty index", ErrMalformedMessage)
		}
		if len(p.Index)+len(p.Data) > MaxPayloadBytes {
			return ErrMessageTooLarge
		}
	case *Opaque:
		if p.Type == KindIndexation {
			return fmt.Errorf("%w: opaque payload tagged as indexation", ErrMalformedMessage)
		}
		if len(p.Bytes) > MaxPayloadBytes {
			return ErrMessageTooLarge
		}
	default:
		return fmt.Errorf("%w: unsupported payload %T", ErrMalformedMessage, p)
	}
	return nil
}

// Index returns the indexation index of m, or nil.
func (m *Message) Index() []byte {
	if p, ok := m.Payload.(*Indexation); ok {
		return p.Index
	}
	return nil
}
