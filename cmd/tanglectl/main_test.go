package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func runCLI(t *testing.T, stdin string, args ...string) (string, string, int) {
	t.Helper()
	var out, errOut bytes.Buffer
	code := run(args, strings.NewReader(stdin), &out, &errOut)
	return out.String(), errOut.String(), code
}

func TestSendRecvOne(t *testing.T) {
	node := []string{"--node", "mem://cli-send-recv", "--local-pow=false"}

	_, errOut, code := runCLI(t, "", append(node, "send", "--link", "aa:01", "--body-hex", "0102ff")...)
	require.Zero(t, code, "send: %s", errOut)

	out, errOut, code := runCLI(t, "", append(node, "recv-one", "--link", "aa:01")...)
	require.Zero(t, code, "recv-one: %s", errOut)
	require.Equal(t, "0102ff", strings.TrimSpace(out))
}

func TestSendFromStdinAndRecv(t *testing.T) {
	node := []string{"--node", "mem://cli-stdin", "--local-pow=false"}
	for _, body := range []string{"one", "two"} {
		_, errOut, code := runCLI(t, body, append(node, "send", "--link", "bb:02")...)
		require.Zero(t, code, "send: %s", errOut)
	}

	out, errOut, code := runCLI(t, "", append(node, "recv", "--link", "bb:02")...)
	require.Zero(t, code, "recv: %s", errOut)
	require.Equal(t, []string{"6f6e65", "74776f"}, strings.Fields(out))

	_, errOut, code = runCLI(t, "", append(node, "recv-one", "--link", "bb:02")...)
	require.NotZero(t, code)
	require.Contains(t, errOut, "not unique")
}

func TestRecvEmptyLink(t *testing.T) {
	out, errOut, code := runCLI(t, "", "--node", "mem://cli-empty", "recv", "--link", "cc:03")
	require.Zero(t, code, "recv: %s", errOut)
	require.Empty(t, out)
}

func TestTipsAndInfo(t *testing.T) {
	out, errOut, code := runCLI(t, "", "--node", "mem://cli-info", "tips")
	require.Zero(t, code, "tips: %s", errOut)
	require.Len(t, strings.Fields(out), 2)

	out, errOut, code = runCLI(t, "", "--node", "mem://cli-info", "info")
	require.Zero(t, code, "info: %s", errOut)
	require.Contains(t, out, `"isHealthy": true`)
}

func TestBackends(t *testing.T) {
	out, _, code := runCLI(t, "", "backends")
	require.Zero(t, code)
	for _, name := range []string{"grpc", "http", "mem", "file"} {
		require.Contains(t, out, name)
	}
}

func TestBadLink(t *testing.T) {
	for _, link := range []string{"nocolon", ":"} {
		_, errOut, code := runCLI(t, "", "--node", "mem://cli-bad", "recv", "--link", link)
		require.NotZero(t, code, link)
		require.Contains(t, errOut, "link")
	}
}
