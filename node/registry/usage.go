package registry

// Usage restricts which programs should accept a given backend.
//
// Backends are linked at build time: a backend registers itself via init()
// and is enabled by importing its package (often as a blank import).
type Usage uint8

const (
	// UsageClient marks backends usable as transport node connections.
	UsageClient Usage = 1 << iota
	// UsageDaemon marks backends a node daemon can serve from.
	UsageDaemon
)

func (u Usage) allows(want Usage) bool { return u&want != 0 }
