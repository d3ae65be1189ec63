package logflags

import (
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLogToFile(t *testing.T) {
	var f Flags
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	f.SetFlags(fs)
	path := filepath.Join(t.TempDir(), "thetasketch.log")
	require.NoError(t, fs.Parse([]string{"-log.level", "info", "-log.path", path}))
	logger, err := f.Open()
	require.NoError(t, err)
	logger.Debug("dropped")
	logger.Info("kept", zap.Int("n", 1))
	require.NoError(t, logger.Sync())
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(b), `"msg":"kept"`)
	require.NotContains(t, string(b), "dropped")
}

func TestBadFlags(t *testing.T) {
	var f Flags
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	f.SetFlags(fs)
	require.Error(t, fs.Parse([]string{"-log.level", "loud"}))
	require.NoError(t, fs.Parse([]string{"-log.filesize", "0"}))
	_, err := f.Open()
	require.Error(t, err)
}
