package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"xdao.co/streams-tangle/config"
	"xdao.co/streams-tangle/node"
	"xdao.co/streams-tangle/node/registry"
	"xdao.co/streams-tangle/observability"
	"xdao.co/streams-tangle/transport"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, in io.Reader, out, errOut io.Writer) int {
	root := newRootCmd(in, out)
	root.SetArgs(args)
	root.SetOut(out)
	root.SetErr(errOut)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(errOut, "Error:", err)
		return 1
	}
	return 0
}

// app holds state shared by subcommands once flags are parsed.
type app struct {
	in  io.Reader
	out io.Writer

	cfgFile      string
	nodes        []string
	submitPolicy string
	networkID    uint64
	mwm          uint8
	localPoW     bool
	depth        uint8
	concurrency  int
	logLevel     string

	log     *zap.Logger
	client  *transport.Client
	closeFn func() error
}

func newRootCmd(in io.Reader, out io.Writer) *cobra.Command {
	a := &app{in: in, out: out}
	root := &cobra.Command{
		Use:   "tanglectl",
		Short: "Send and receive protocol messages over a tangle ledger",
		Long: `tanglectl addresses messages by link (<appinst-hex>:<msgid-hex>).
Bodies are sent as indexation payloads to the configured nodes and read back
by the link's index key.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a.log != nil {
				_ = a.log.Sync()
			}
			if a.closeFn != nil {
				return a.closeFn()
			}
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "config file (.yaml or .toml)")
	pf.StringSliceVar(&a.nodes, "node", nil, "node URL; repeat for fallback order (overrides config)")
	pf.StringVar(&a.submitPolicy, "submit-policy", "", "submit policy: first or all")
	pf.Uint64Var(&a.networkID, "network", 0, "network id stamped on sent messages")
	pf.Uint8Var(&a.mwm, "mwm", 0, "minimum weight magnitude for local proof of work")
	pf.BoolVar(&a.localPoW, "local-pow", true, "mine proof of work locally")
	pf.Uint8Var(&a.depth, "depth", 0, "tip selection depth hint")
	pf.IntVar(&a.concurrency, "concurrency", 0, "parallel submissions and fetches (0 keeps config)")
	pf.StringVar(&a.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	registry.RegisterFlags(pf, registry.UsageClient)

	root.AddCommand(
		a.sendCmd(),
		a.recvCmd(),
		a.recvOneCmd(),
		a.tipsCmd(),
		a.infoCmd(),
		backendsCmd(),
	)
	return root
}

// setup resolves config and flags into a client. Commands annotated with
// "offline" skip it.
func (a *app) setup(cmd *cobra.Command, args []string) error {
	if cmd.Annotations["offline"] == "true" {
		return nil
	}

	cfg := config.Default()
	cfg.Log.Level = "warn"
	if a.cfgFile != "" {
		var err error
		if cfg, err = config.Load(a.cfgFile); err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
	}

	flags := cmd.Flags()
	if len(a.nodes) > 0 {
		cfg.Nodes = cfg.Nodes[:0]
		for _, u := range a.nodes {
			cfg.Nodes = append(cfg.Nodes, config.NodeConfig{URL: u})
		}
	}
	if a.submitPolicy != "" {
		cfg.SubmitPolicy = a.submitPolicy
	}
	if flags.Changed("network") {
		cfg.NetworkID = a.networkID
	}
	if flags.Changed("mwm") {
		cfg.Send.MinWeightMagnitude = a.mwm
	}
	if flags.Changed("local-pow") {
		cfg.Send.LocalPoW = a.localPoW
	}
	if flags.Changed("depth") {
		cfg.Send.Depth = a.depth
	}
	if a.concurrency > 0 {
		cfg.Send.Concurrency = a.concurrency
		cfg.Recv.Concurrency = a.concurrency
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log, err := observability.SetupLogger(cfg.Log)
	if err != nil {
		return err
	}
	a.log = log

	client, closeFn, err := cfg.Client(log)
	if err != nil {
		return err
	}
	a.client, a.closeFn = client, closeFn
	if node.SubmitPolicy(cfg.SubmitPolicy) == node.SubmitAll {
		log.Debug("submitting to all nodes", zap.Strings("nodes", client.Node().Names()))
	}
	return nil
}
