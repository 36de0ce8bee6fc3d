package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(wd) })
}

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())
	cfg, _, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "8778", cfg.Server.Port)
	assert.Equal(t, "8777", cfg.Proxy.Port)
	assert.Equal(t, "X-Clipwatch-Tab", cfg.Proxy.TabHeader)
	assert.Equal(t, int64(1<<20), cfg.Proxy.MaxBodyBytes)
	assert.Equal(t, uint(3), cfg.Notify.Retries)
	assert.Equal(t, time.Second, cfg.Notify.RetryDelay)
	assert.Equal(t, 250*time.Millisecond, cfg.Matching.RegexTimeout)
	assert.True(t, cfg.Clipboard.EnableHelper)
	assert.True(t, cfg.Clipboard.EnableSystem)
	assert.True(t, cfg.Clipboard.EnablePageRelay)
	assert.Equal(t, "clipwatch.db", filepath.Base(cfg.Database.Path))
}

func TestLoadFileAndEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	path := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
proxy:
  port: "9999"
  max_body_bytes: 2048
notify:
  retry_delay: 250ms
clipboard:
  enable_system: false
`), 0600))
	t.Setenv("CLIPWATCH_SERVER_PORT", "7000")

	cfg, msg, err := Load(path)
	require.NoError(t, err)
	assert.Contains(t, msg, "custom.yaml")
	assert.Equal(t, "9999", cfg.Proxy.Port)
	assert.Equal(t, int64(2048), cfg.Proxy.MaxBodyBytes)
	assert.Equal(t, 250*time.Millisecond, cfg.Notify.RetryDelay)
	assert.False(t, cfg.Clipboard.EnableSystem)
	assert.Equal(t, "7000", cfg.Server.Port)
}

func TestLoadReadsDotEnv(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("CLIPWATCH_DISPATCH_WORKERS=3\n"), 0600))
	t.Cleanup(func() { os.Unsetenv("CLIPWATCH_DISPATCH_WORKERS") })

	cfg, _, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Dispatch.Workers)
}

func TestExpandTilde(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "x", "y.db"), ExpandTilde("~/x/y.db"))
	assert.Equal(t, "/abs/path", ExpandTilde("/abs/path"))
}
