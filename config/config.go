// Package config loads transport and node daemon settings from YAML or TOML.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"xdao.co/streams-tangle/ledger/pow"
	"xdao.co/streams-tangle/node"
	"xdao.co/streams-tangle/transport"
)

// Config describes the nodes a transport connects to and how it uses them.
//
// SubmitPolicy values:
// - "first" (default): submit to the first node; reads fall back in order
// - "all": submit to every node and require equal message ids
//
// Example:
//
//	nodes:
//	  - url: http://localhost:14265
//	  - url: grpc://backup:7420
//	    id: backup
//	submit_policy: first
//	send:
//	  min_weight_magnitude: 14
//	  local_pow: true
//	log:
//	  level: debug
type Config struct {
	Nodes        []NodeConfig          `yaml:"nodes" toml:"nodes"`
	SubmitPolicy string                `yaml:"submit_policy,omitempty" toml:"submit_policy"`
	NetworkID    uint64                `yaml:"network_id,omitempty" toml:"network_id"`
	Send         transport.SendOptions `yaml:"send" toml:"send"`
	Recv         transport.RecvOptions `yaml:"recv" toml:"recv"`
	Log          LogConfig             `yaml:"log" toml:"log"`
}

type NodeConfig struct {
	// URL selects the node backend by scheme (http, https, grpc, mem).
	URL string `yaml:"url" toml:"url"`
	// ID is an optional stable alias; the URL is used when empty.
	ID string `yaml:"id,omitempty" toml:"id"`
}

func (n NodeConfig) name() string {
	if n.ID != "" {
		return n.ID
	}
	return n.URL
}

// LogConfig controls logger construction; see observability.SetupLogger.
type LogConfig struct {
	Level       string         `yaml:"level" toml:"level"`
	Format      string         `yaml:"format" toml:"format"`
	Outputs     []string       `yaml:"outputs" toml:"outputs"`
	Development bool           `yaml:"development" toml:"development"`
	Rotation    RotationConfig `yaml:"rotation" toml:"rotation"`
}

// RotationConfig applies to file outputs.
type RotationConfig struct {
	Enable     bool   `yaml:"enable" toml:"enable"`
	Filename   string `yaml:"filename" toml:"filename"`
	MaxSizeMB  int    `yaml:"max_size_mb" toml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups" toml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days" toml:"max_age_days"`
	Compress   bool   `yaml:"compress" toml:"compress"`
}

// Default returns a config for a single local REST node.
func Default() Config {
	return Config{
		Nodes:        []NodeConfig{{URL: transport.DefaultNodeURL}},
		SubmitPolicy: string(node.SubmitFirst),
		Send:         transport.DefaultSendOptions(),
		Recv:         transport.DefaultRecvOptions(),
		Log: LogConfig{
			Level:   "info",
			Format:  "console",
			Outputs: []string{"stderr"},
		},
	}
}

// Load reads path over Default. Files ending in .toml are TOML; anything
// else is YAML. Unknown keys are rejected.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, errors.New("config: empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	// Present lists replace defaults instead of merging into them.
	cfg.Nodes = nil
	cfg.Log.Outputs = nil

	if strings.EqualFold(filepath.Ext(path), ".toml") {
		md, err := toml.Decode(string(b), &cfg)
		if err != nil {
			return cfg, fmt.Errorf("config: %s: %w", path, err)
		}
		if undec := md.Undecoded(); len(undec) > 0 {
			return cfg, fmt.Errorf("config: %s: unknown key %q", path, undec[0].String())
		}
	} else {
		dec := yaml.NewDecoder(bytes.NewReader(b))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil {
			return cfg, fmt.Errorf("config: %s: %w", path, err)
		}
	}

	if len(cfg.Log.Outputs) == 0 {
		cfg.Log.Outputs = []string{"stderr"}
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if len(c.Nodes) == 0 {
		return errors.New("config: at least one node is required")
	}
	seen := make(map[string]struct{}, len(c.Nodes))
	for _, n := range c.Nodes {
		if strings.TrimSpace(n.URL) == "" {
			return errors.New("config: node url is required")
		}
		if _, ok := seen[n.name()]; ok {
			return fmt.Errorf("config: duplicate node id %q", n.name())
		}
		seen[n.name()] = struct{}{}
	}
	switch node.SubmitPolicy(c.SubmitPolicy) {
	case "", node.SubmitFirst, node.SubmitAll:
	default:
		return fmt.Errorf("config: invalid submit_policy %q", c.SubmitPolicy)
	}
	if c.Send.MinWeightMagnitude > pow.MaxWeightMagnitude {
		return fmt.Errorf("config: send.min_weight_magnitude %d exceeds %d", c.Send.MinWeightMagnitude, pow.MaxWeightMagnitude)
	}
	if c.Send.Concurrency < 0 || c.Recv.Concurrency < 0 {
		return errors.New("config: concurrency must not be negative")
	}
	switch strings.ToLower(c.Log.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("config: invalid log level %q", c.Log.Level)
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "console", "json":
	default:
		return fmt.Errorf("config: invalid log format %q", c.Log.Format)
	}
	return nil
}
