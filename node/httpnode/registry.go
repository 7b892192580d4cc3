package httpnode

import (
	"net/url"
	"time"

	"github.com/spf13/pflag"

	"xdao.co/streams-tangle/node"
	"xdao.co/streams-tangle/node/registry"
)

var flagTimeout = 30 * time.Second

func init() {
	registry.MustRegister(registry.Backend{
		Name:        "http",
		Description: "REST node client (http://host:port, https://host:port)",
		Schemes:     []string{"http", "https"},
		Usage:       registry.UsageClient,
		RegisterFlags: func(fs *pflag.FlagSet) {
			fs.DurationVar(&flagTimeout, "http-timeout", flagTimeout, "Per-request timeout (for http:// and https:// nodes)")
		},
		Open: func(u *url.URL) (node.Node, func() error, error) {
			c, err := New(u.String(), Options{Timeout: flagTimeout})
			if err != nil {
				return nil, nil, err
			}
			return c, nil, nil
		},
	})
}
