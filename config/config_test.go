package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"xdao.co/streams-tangle/node"
	"xdao.co/streams-tangle/node/registry"
	"xdao.co/streams-tangle/transport"
)

func write(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestLoad_YAML(t *testing.T) {
	p := write(t, "transport.yaml", `
nodes:
  - url: mem://cfg-yaml-a
  - url: mem://cfg-yaml-b
    id: backup
submit_policy: all
network_id: 3
send:
  min_weight_magnitude: 4
  local_pow: false
recv:
  concurrency: 2
log:
  level: debug
  format: json
`)
	cfg, err := Load(p)
	require.NoError(t, err)
	require.Len(t, cfg.Nodes, 2)
	require.Equal(t, "backup", cfg.Nodes[1].ID)
	require.Equal(t, "all", cfg.SubmitPolicy)
	require.Equal(t, uint64(3), cfg.NetworkID)
	require.Equal(t, uint8(4), cfg.Send.MinWeightMagnitude)
	require.False(t, cfg.Send.LocalPoW)
	// Keys absent from the file keep their defaults.
	require.Equal(t, uint8(3), cfg.Send.Depth)
	require.Equal(t, transport.DefaultSendOptions().Concurrency, cfg.Send.Concurrency)
	require.Equal(t, 2, cfg.Recv.Concurrency)
	require.Equal(t, "debug", cfg.Log.Level)
	require.Equal(t, []string{"stderr"}, cfg.Log.Outputs)
}

func TestLoad_TOML(t *testing.T) {
	p := write(t, "transport.toml", `
submit_policy = "first"

[[nodes]]
url = "mem://cfg-toml"

[send]
min_weight_magnitude = 9

[log]
outputs = ["stdout"]
`)
	cfg, err := Load(p)
	require.NoError(t, err)
	require.Equal(t, []NodeConfig{{URL: "mem://cfg-toml"}}, cfg.Nodes)
	require.Equal(t, uint8(9), cfg.Send.MinWeightMagnitude)
	require.True(t, cfg.Send.LocalPoW)
	require.Equal(t, []string{"stdout"}, cfg.Log.Outputs)
}

func TestLoad_RejectsUnknownKeys(t *testing.T) {
	_, err := Load(write(t, "bad.yaml", "nodes: [{url: mem://x}]\nbogus: 1\n"))
	require.Error(t, err)
	_, err = Load(write(t, "bad.toml", "bogus = 1\n[[nodes]]\nurl = \"mem://x\"\n"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"no nodes":     func(c *Config) { c.Nodes = nil },
		"empty url":    func(c *Config) { c.Nodes = []NodeConfig{{URL: " "}} },
		"duplicate id": func(c *Config) { c.Nodes = []NodeConfig{{URL: "mem://a", ID: "x"}, {URL: "mem://b", ID: "x"}} },
		"policy":       func(c *Config) { c.SubmitPolicy = "some" },
		"mwm":          func(c *Config) { c.Send.MinWeightMagnitude = 200 },
		"concurrency":  func(c *Config) { c.Recv.Concurrency = -1 },
		"log level":    func(c *Config) { c.Log.Level = "loud" },
		"log format":   func(c *Config) { c.Log.Format = "xml" },
	}
	require.NoError(t, Default().Validate())
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(&cfg)
			require.Error(t, cfg.Validate())
		})
	}
}

func TestOpen_PreferredAndPolicy(t *testing.T) {
	cfg := Default()
	cfg.Nodes = []NodeConfig{{URL: "mem://cfg-open-a"}, {URL: "mem://cfg-open-b", ID: "b"}}
	cfg.SubmitPolicy = "all"

	pool, closeFn, err := cfg.Open(registry.UsageClient, "b")
	require.NoError(t, err)
	defer closeFn()
	require.Equal(t, []string{"b", "mem://cfg-open-a"}, pool.Names())
	require.Equal(t, node.SubmitAll, pool.Policy())

	_, _, err = cfg.Open(registry.UsageClient, "missing")
	require.Error(t, err)

	cfg.Nodes = append(cfg.Nodes, NodeConfig{URL: "nope://x"})
	_, _, err = cfg.Open(registry.UsageClient, "")
	require.Error(t, err)
}

func TestClient_RoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Nodes = []NodeConfig{{URL: "mem://cfg-client"}}
	cfg.Send.LocalPoW = false

	c, closeFn, err := cfg.Client(zap.NewNop())
	require.NoError(t, err)
	defer closeFn()

	ctx := context.Background()
	link := transport.NewLink([]byte("cfg"), []byte("1"))
	require.NoError(t, c.SendMessage(ctx, &transport.BinaryMessage{Link: link, Body: []byte("configured")}))
	got, err := c.RecvMessage(ctx, link)
	require.NoError(t, err)
	require.Equal(t, []byte("configured"), got.Body)
}
