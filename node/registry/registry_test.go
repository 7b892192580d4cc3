package registry

import (
	"net/url"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	"xdao.co/streams-tangle/node"
)

func TestRegister_Validation(t *testing.T) {
	open := func(*url.URL) (node.Node, func() error, error) { return nil, nil, nil }
	cases := []Backend{
		{Schemes: []string{"x"}, Usage: UsageClient, Open: open},
		{Name: "noschemes", Usage: UsageClient, Open: open},
		{Name: "noopen", Schemes: []string{"y"}, Usage: UsageClient},
		{Name: "nousage", Schemes: []string{"z"}, Open: open},
	}
	for _, b := range cases {
		require.Error(t, Register(b), "%+v", b)
	}
}

func TestRegisterAndOpen(t *testing.T) {
	var opened *url.URL
	var flagSet bool
	MustRegister(Backend{
		Name:    "regtest",
		Schemes: []string{"RegTest"},
		Usage:   UsageDaemon,
		RegisterFlags: func(fs *pflag.FlagSet) {
			fs.BoolVar(&flagSet, "regtest-flag", false, "test flag")
		},
		Open: func(u *url.URL) (node.Node, func() error, error) {
			opened = u
			return nil, nil, nil
		},
	})

	err := Register(Backend{Name: "regtest2", Schemes: []string{"regtest"}, Usage: UsageDaemon,
		Open: func(*url.URL) (node.Node, func() error, error) { return nil, nil, nil }})
	require.Error(t, err, "duplicate scheme should be rejected")

	_, _, err = Open("regtest://host/path", UsageDaemon)
	require.NoError(t, err)
	require.NotNil(t, opened)
	require.Equal(t, "host", opened.Host)

	_, _, err = Open("regtest://host", UsageClient)
	require.ErrorContains(t, err, "not supported")

	fs := pflag.NewFlagSet("t", pflag.ContinueOnError)
	RegisterFlags(fs, UsageDaemon)
	require.NoError(t, fs.Parse([]string{"--regtest-flag"}))
	require.True(t, flagSet, "backend flag not registered")

	var names []string
	for _, b := range List(UsageDaemon) {
		names = append(names, b.Name)
	}
	require.Contains(t, names, "regtest")
}

func TestOpen_Errors(t *testing.T) {
	for _, raw := range []string{"no-scheme", "unknown://x", "%zz"} {
		_, _, err := Open(raw, UsageClient)
		require.Error(t, err, raw)
	}
}
