package model

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "github.com", cfg.GitHub.Host)
	assert.Equal(t, 30, cfg.Notify.PollIntervalSec)
	assert.Equal(t, []string{"mention", "review_requested", "author"}, cfg.Notify.ImportantReasons)
	assert.Equal(t, "sqlite", cfg.Server.DatabaseDriver)
	assert.Equal(t, 30, cfg.Server.HeartbeatSec)
}

func TestLoadConfig_ReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
notify:
  poll_interval_sec: 90
  important_reasons: [mention, assign]
server:
  addr: ":9999"
  webhook_secret: shh
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 90, cfg.Notify.PollIntervalSec)
	assert.Equal(t, []string{"mention", "assign"}, cfg.Notify.ImportantReasons)
	assert.Equal(t, ":9999", cfg.Server.Addr)
	assert.Equal(t, "shh", cfg.Server.WebhookSecret)
	// untouched sections keep their defaults
	assert.Equal(t, "github.com", cfg.GitHub.Host)
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	t.Setenv("GHNOTIFY_NOTIFY_POLL_INTERVAL_SEC", "45")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 45, cfg.Notify.PollIntervalSec)
}

func TestLoadConfig_PageSize(t *testing.T) {
	dir := t.TempDir()

	cfg, err := LoadConfig(filepath.Join(dir, "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 50, cfg.GitHub.PageSize)

	t.Setenv("GHNOTIFY_GITHUB_PAGE_SIZE", "20")
	cfg, err = LoadConfig(filepath.Join(dir, "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 20, cfg.GitHub.PageSize)

	t.Setenv("GHNOTIFY_GITHUB_PAGE_SIZE", "500")
	cfg, err = LoadConfig(filepath.Join(dir, "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 50, cfg.GitHub.PageSize, "GitHub caps notification pages at 50")
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := defaultAppConfig()
	cfg.Notify.PollIntervalSec = 120
	cfg.Server.RedisAddr = "localhost:6379"
	require.NoError(t, SaveConfig(path, cfg))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 120, loaded.Notify.PollIntervalSec)
	assert.Equal(t, "localhost:6379", loaded.Server.RedisAddr)
}
