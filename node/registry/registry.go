package registry

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
	"sync"

	"github.com/spf13/pflag"

	"xdao.co/streams-tangle/node"
)

// Backend is a build-time plugin that opens node connections for one or more
// URL schemes.
//
// Backends typically register themselves in init():
//
//	registry.MustRegister(registry.Backend{ ... })
//
// The binary must import the backend package for registration to occur.
type Backend struct {
	Name        string
	Description string
	Schemes     []string
	Usage       Usage

	// RegisterFlags adds backend-specific flags to fs. Optional.
	// It must be safe to call exactly once per process.
	RegisterFlags func(fs *pflag.FlagSet)

	// Open connects to the node addressed by u using values parsed into flags
	// registered by RegisterFlags. It returns an optional close function.
	Open func(u *url.URL) (node.Node, func() error, error)
}

var (
	mu       sync.RWMutex
	backends = map[string]Backend{}
	schemes  = map[string]string{}
)

// Register registers a backend.
func Register(b Backend) error {
	if b.Name == "" {
		return fmt.Errorf("registry: backend name is required")
	}
	if len(b.Schemes) == 0 {
		return fmt.Errorf("registry: backend %q has no schemes", b.Name)
	}
	if b.Open == nil {
		return fmt.Errorf("registry: backend %q missing Open", b.Name)
	}
	if b.Usage == 0 {
		return fmt.Errorf("registry: backend %q missing Usage", b.Name)
	}

	mu.Lock()
	defer mu.Unlock()
	if _, exists := backends[b.Name]; exists {
		return fmt.Errorf("registry: backend %q already registered", b.Name)
	}
	for _, s := range b.Schemes {
		if owner, taken := schemes[strings.ToLower(s)]; taken {
			return fmt.Errorf("registry: scheme %q already served by %q", s, owner)
		}
	}
	backends[b.Name] = b
	for _, s := range b.Schemes {
		schemes[strings.ToLower(s)] = b.Name
	}
	return nil
}

// MustRegister is like Register but panics on error.
func MustRegister(b Backend) {
	if err := Register(b); err != nil {
		panic(err)
	}
}

// List returns backends matching usage, sorted by name.
func List(usage Usage) []Backend {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]Backend, 0, len(backends))
	for _, b := range backends {
		if b.Usage.allows(usage) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// RegisterFlags registers flags for all backends matching usage.
func RegisterFlags(fs *pflag.FlagSet, usage Usage) {
	for _, b := range List(usage) {
		if b.RegisterFlags != nil {
			b.RegisterFlags(fs)
		}
	}
}

// Open connects to rawURL using the backend registered for its scheme.
func Open(rawURL string, usage Usage) (node.Node, func() error, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, nil, fmt.Errorf("registry: invalid node url %q: %w", rawURL, err)
	}
	if u.Scheme == "" {
		return nil, nil, fmt.Errorf("registry: node url %q has no scheme", rawURL)
	}

	mu.RLock()
	name, ok := schemes[strings.ToLower(u.Scheme)]
	b := backends[name]
	mu.RUnlock()
	if !ok {
		return nil, nil, fmt.Errorf("registry: no backend for scheme %q", u.Scheme)
	}
	if !b.Usage.allows(usage) {
		return nil, nil, fmt.Errorf("registry: backend %q not supported here", b.Name)
	}
	return b.Open(u)
}
