package memnode

import (
	"fmt"
	"net/url"
	"strconv"
	"sync"

	"github.com/spf13/pflag"

	"xdao.co/streams-tangle/node"
	"xdao.co/streams-tangle/node/registry"
)

var (
	flagMWM       uint8
	flagRemotePoW = true

	sharedMu sync.Mutex
	ledgers  = map[string]*Ledger{}
)

func init() {
	registry.MustRegister(registry.Backend{
		Name:        "mem",
		Description: "In-process ledger (mem://<name>?network=<id>&mwm=<n>&remote-pow=<bool>)",
		Schemes:     []string{"mem"},
		Usage:       registry.UsageClient | registry.UsageDaemon,
		RegisterFlags: func(fs *pflag.FlagSet) {
			fs.Uint8Var(&flagMWM, "mem-mwm", flagMWM, "Default minimum weight magnitude (for mem:// nodes)")
			fs.BoolVar(&flagRemotePoW, "mem-remote-pow", flagRemotePoW, "Mine under-weight messages (for mem:// nodes)")
		},
		Open: func(u *url.URL) (node.Node, func() error, error) {
			opts, err := optionsFromURL(u)
			if err != nil {
				return nil, nil, err
			}
			return Shared(opts), nil, nil
		},
	})

	registry.MustRegister(registry.Backend{
		Name:        "file",
		Description: "Ledger persisted in a directory (file:///path?network=<id>&mwm=<n>&remote-pow=<bool>)",
		Schemes:     []string{"file"},
		Usage:       registry.UsageClient | registry.UsageDaemon,
		Open: func(u *url.URL) (node.Node, func() error, error) {
			opts, err := optionsFromURL(u)
			if err != nil {
				return nil, nil, err
			}
			if u.Path == "" {
				return nil, nil, fmt.Errorf("memnode: missing directory in %q", u.String())
			}
			opts.Name = "file:" + u.Path
			opts.Dir = u.Path
			l, err := shared(opts, Open)
			if err != nil {
				return nil, nil, err
			}
			return l, nil, nil
		},
	})
}

// Shared returns the process-wide ledger named opts.Name, creating it on first
// use. Later calls ignore the remaining options.
func Shared(opts Options) *Ledger {
	l, _ := shared(opts, func(o Options) (*Ledger, error) { return New(o), nil })
	return l
}

func shared(opts Options, open func(Options) (*Ledger, error)) (*Ledger, error) {
	if opts.Name == "" {
		opts.Name = "memnode"
	}
	sharedMu.Lock()
	defer sharedMu.Unlock()
	if l, ok := ledgers[opts.Name]; ok {
		return l, nil
	}
	l, err := open(opts)
	if err != nil {
		return nil, err
	}
	ledgers[opts.Name] = l
	return l, nil
}

func optionsFromURL(u *url.URL) (Options, error) {
	opts := Options{
		Name:               u.Host,
		MinWeightMagnitude: flagMWM,
		RemotePoW:          flagRemotePoW,
	}
	if opts.Name == "" {
		opts.Name = u.Opaque
	}
	if opts.Name == "" {
		opts.Name = "default"
	}
	q := u.Query()
	if v := q.Get("network"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return Options{}, fmt.Errorf("memnode: invalid network %q", v)
		}
		opts.NetworkID = n
	}
	if v := q.Get("mwm"); v != "" {
		n, err := strconv.ParseUint(v, 10, 8)
		if err != nil {
			return Options{}, fmt.Errorf("memnode: invalid mwm %q", v)
		}
		opts.MinWeightMagnitude = uint8(n)
	}
	if v := q.Get("remote-pow"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Options{}, fmt.Errorf("memnode: invalid remote-pow %q", v)
		}
		opts.RemotePoW = b
	}
	return opts, nil
}
