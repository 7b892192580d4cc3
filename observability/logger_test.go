package observability

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"xdao.co/streams-tangle/config"
)

func TestSetupLogger_FileJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "transport.log")
	log, err := SetupLogger(config.LogConfig{Level: "debug", Format: "json", Outputs: []string{path}})
	require.NoError(t, err)
	defer zap.ReplaceGlobals(zap.NewNop())

	log.Debug("hello", zap.String("k", "v"))
	require.NoError(t, log.Sync())

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	require.True(t, strings.Contains(string(b), `"msg":"hello"`), string(b))
	require.True(t, strings.Contains(string(b), `"k":"v"`), string(b))
}

func TestSetupLogger_Rotation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rotated.log")
	log, err := SetupLogger(config.LogConfig{
		Outputs:  []string{"ignored.log"},
		Rotation: config.RotationConfig{Enable: true, Filename: path},
	})
	require.NoError(t, err)
	defer zap.ReplaceGlobals(zap.NewNop())

	log.Info("rotating")
	_ = log.Sync()
	_, err = os.Stat(path)
	require.NoError(t, err)
}

func TestParseLevel(t *testing.T) {
	require.Equal(t, zapcore.DebugLevel, parseLevel("DEBUG"))
	require.Equal(t, zapcore.WarnLevel, parseLevel("warning"))
	require.Equal(t, zapcore.ErrorLevel, parseLevel("error"))
	require.Equal(t, zapcore.InfoLevel, parseLevel(""))
}
