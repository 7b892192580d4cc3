// Package transport carries opaque protocol messages over a tangle ledger.
//
// A message is addressed by a Link (application instance + message id). The
// link is hex encoded into an index key, the body is wrapped in an indexation
// payload attached to two current tips, and submitted to a node. Receiving
// looks the index key up, fetches every matching message concurrently and
// unwraps the bodies.
//
// # Calling conventions
//
// Every operation is written once as a context-driven pipeline. Client runs it
// on the calling goroutine (Transport) or on its own goroutine, returning a
// Future (AsyncTransport). Shared lets several owners use one Client where
// blocking must never happen: each call try-acquires the client and fails
// with ErrTransportNotAvailable when another call holds it.
//
// # Known gaps
//
// The ledger does not report attachment time, so received messages carry
// UnknownTimestamp. Tips are advisory: they may be superseded between
// resolution and submission.
package transport
