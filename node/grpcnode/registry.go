package grpcnode

import (
	"fmt"
	"net/url"
	"time"

	"github.com/spf13/pflag"

	"xdao.co/streams-tangle/node"
	"xdao.co/streams-tangle/node/registry"
)

var (
	flagDialTimeout = 5 * time.Second
	flagTimeout     time.Duration
	flagMaxMsgBytes int
)

func init() {
	registry.MustRegister(registry.Backend{
		Name:        "grpc",
		Description: "gRPC node client (grpc://host:port, e.g. tangle-noded)",
		Schemes:     []string{"grpc"},
		Usage:       registry.UsageClient,
		RegisterFlags: func(fs *pflag.FlagSet) {
			fs.DurationVar(&flagDialTimeout, "grpc-dial-timeout", flagDialTimeout, "Dial timeout (for grpc:// nodes)")
			fs.DurationVar(&flagTimeout, "grpc-timeout", flagTimeout, "Per-RPC timeout (for grpc:// nodes)")
			fs.IntVar(&flagMaxMsgBytes, "grpc-max-msg-bytes", flagMaxMsgBytes, "Max gRPC message size in bytes (send+recv); 0 uses grpc defaults")
		},
		Open: func(u *url.URL) (node.Node, func() error, error) {
			if u.Host == "" {
				return nil, nil, fmt.Errorf("grpcnode: missing host in %q", u.String())
			}
			client, err := Dial(u.Host, DialOptions{Timeout: flagDialTimeout, MaxMsgBytes: flagMaxMsgBytes})
			if err != nil {
				return nil, nil, err
			}
			client.Timeout = flagTimeout
			return client, client.Close, nil
		},
	})
}
