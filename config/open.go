package config

import (
	"fmt"

	"go.uber.org/zap"

	"xdao.co/streams-tangle/node"
	"xdao.co/streams-tangle/node/registry"
	"xdao.co/streams-tangle/transport"
)

// Open connects to every configured node, in order, and pools them under the
// configured submit policy. Callers still need to link the backends they use;
// importing transport links the default ones.
//
// If preferred is non-empty the node with that id or url is moved first, so
// it takes submissions under the "first" policy.
func (c Config) Open(usage registry.Usage, preferred string) (*node.Pool, func() error, error) {
	if err := c.Validate(); err != nil {
		return nil, nil, err
	}

	ordered := append([]NodeConfig(nil), c.Nodes...)
	if preferred != "" {
		idx := -1
		for i := range ordered {
			if ordered[i].ID == preferred || ordered[i].URL == preferred {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil, nil, fmt.Errorf("config: preferred node %q not found in config", preferred)
		}
		if idx != 0 {
			n := ordered[idx]
			copy(ordered[1:idx+1], ordered[0:idx])
			ordered[0] = n
		}
	}

	named := make([]node.Named, 0, len(ordered))
	closers := make([]func() error, 0, len(ordered))
	closeAll := func() error {
		var firstErr error
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		return firstErr
	}
	for _, nc := range ordered {
		n, closeFn, err := registry.Open(nc.URL, usage)
		if err != nil {
			_ = closeAll()
			return nil, nil, fmt.Errorf("config: node %q: %w", nc.name(), err)
		}
		named = append(named, node.Named{Name: nc.name(), Node: n})
		if closeFn != nil {
			closers = append(closers, closeFn)
		}
	}
	return node.NewPool(node.SubmitPolicy(c.SubmitPolicy), named...), closeAll, nil
}

// Client opens the configured nodes and wraps them in a transport client
// using the configured send, receive and network settings.
func (c Config) Client(log *zap.Logger, opts ...transport.Option) (*transport.Client, func() error, error) {
	pool, closeFn, err := c.Open(registry.UsageClient, "")
	if err != nil {
		return nil, nil, err
	}
	base := []transport.Option{
		transport.WithLogger(log),
		transport.WithRecvOptions(c.Recv),
		transport.WithNetworkID(c.NetworkID),
	}
	client := transport.NewWithNode(node.Named{Name: "config", Node: pool}, c.Send, append(base, opts...)...)
	return client, closeFn, nil
}
