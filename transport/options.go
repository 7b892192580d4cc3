package transport

import "runtime"

// SendOptions tune message submission.
type SendOptions struct {
	// Depth is the tip-selection depth hint. Node backends in this module
	// select tips themselves and ignore it; it is carried for node APIs that
	// take it.
	Depth uint8 `yaml:"depth" toml:"depth"`
	// MinWeightMagnitude is the proof-of-work difficulty for local mining.
	MinWeightMagnitude uint8 `yaml:"min_weight_magnitude" toml:"min_weight_magnitude"`
	// LocalPoW mines nonces in-process. When false the node is expected to
	// do it.
	LocalPoW bool `yaml:"local_pow" toml:"local_pow"`
	// Concurrency bounds the goroutines of a send: parallel submissions times
	// the mining workers of each never exceed it.
	Concurrency int `yaml:"concurrency" toml:"concurrency"`
}

// RecvOptions tune message retrieval.
type RecvOptions struct {
	// Concurrency bounds parallel fetches.
	Concurrency int `yaml:"concurrency" toml:"concurrency"`
}

func DefaultSendOptions() SendOptions {
	return SendOptions{
		Depth:              3,
		MinWeightMagnitude: 14,
		LocalPoW:           true,
		Concurrency:        defaultConcurrency(),
	}
}

func DefaultRecvOptions() RecvOptions {
	return RecvOptions{Concurrency: defaultConcurrency()}
}

func defaultConcurrency() int {
	if n := runtime.NumCPU(); n > 0 {
		return n
	}
	return 1
}

func limit(n int) int {
	if n < 1 {
		return 1
	}
	return n
}
