package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileGivesDefaults(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, ":3000", c.Server.Addr)
	assert.Equal(t, 2*time.Minute, c.Poll.Interval)
	assert.Equal(t, 50, c.GitLab.PerPage)
	assert.Equal(t, 4, c.GitLab.Concurrency)
	assert.Equal(t, filepath.Join("data", "settings.json"), c.Settings.Path)
	assert.Equal(t, uint64(0), c.Notify.MaxRetries)
	assert.Empty(t, c.Cache.Path)
	assert.Equal(t, "info", c.Log.Level)
}

func TestLoad_FromYAMLAndEnvOverride(t *testing.T) {
	tmp := t.TempDir()
	cfgFile := filepath.Join(tmp, "config.yaml")

	yaml := `
server:
  addr: 127.0.0.1:8080

gitlab:
  timeout: 5s
  per_page: 20

poll:
  interval: 30s
  notify_changes: true

notify:
  max_retries: 3

cache:
  path: /tmp/cache.json
`
	require.NoError(t, os.WriteFile(cfgFile, []byte(yaml), 0o644))

	t.Setenv("INTERVAL", "1m")
	t.Setenv("SETTINGS_FILE", "/srv/settings.json")
	t.Setenv("WEBHOOK_SECRET", "s3cret")

	c, err := Load(cfgFile)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:8080", c.Server.Addr)
	assert.Equal(t, 5*time.Second, c.GitLab.Timeout)
	assert.Equal(t, 20, c.GitLab.PerPage)
	assert.Equal(t, time.Minute, c.Poll.Interval)
	assert.True(t, c.Poll.NotifyChanges)
	assert.Equal(t, uint64(3), c.Notify.MaxRetries)
	assert.Equal(t, "/tmp/cache.json", c.Cache.Path)
	assert.Equal(t, "/srv/settings.json", c.Settings.Path)
	assert.Equal(t, "s3cret", c.Webhook.Secret)
}

func TestLoad_MalformedYAML(t *testing.T) {
	cfgFile := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(cfgFile, []byte("server: [\n"), 0o644))

	_, err := Load(cfgFile)
	assert.Error(t, err)
}

func TestSave_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	c := Default()
	c.Poll.Interval = 45 * time.Second
	c.Webhook.Secret = "abc"
	require.NoError(t, Save(path, c))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, c, got)
}
