// Package ledger defines the ledger-native message model used by node
// connections: messages with two parent references, typed payloads, a
// deterministic CBOR wire encoding and content-derived message ids.
//
// A message id is a CIDv1 (dag-cbor, blake2b-256) over the message's canonical
// encoding, so any party holding the bytes can recompute and verify it.
// REST nodes report the bare 32-byte digest; cidutil converts between forms.
package ledger
