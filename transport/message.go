package transport

// UnknownTimestamp is the Timestamp of received messages; the ledger does not
// expose when a message was attached.
const UnknownTimestamp uint64 = 0

// BinaryMessage is a serialized protocol message bound to its link. The
// transport never mutates messages it is given.
type BinaryMessage struct {
	Link      Link
	Body      []byte
	Timestamp uint64
}
