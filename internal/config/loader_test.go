package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestHome points HOME at a temp dir and returns the managerd config dir.
func setupTestHome(t *testing.T) string {
	t.Helper()

	home := t.TempDir()
	t.Setenv("HOME", home)

	dir := filepath.Join(home, ".config", "managerd")
	require.NoError(t, os.MkdirAll(dir, 0700))
	return dir
}

func writeConfig(t *testing.T, dir, content string, perm os.FileMode) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), perm))
	require.NoError(t, os.Chmod(path, perm))
	return path
}

func TestLoadWithFile_ValidYAML(t *testing.T) {
	dir := setupTestHome(t)

	path := writeConfig(t, dir, `server:
  http_port: 8088
  http_host: 0.0.0.0

provider:
  name: ollama
  base_url: http://localhost:11434
  model: llama3.1

storage:
  backend: memory

deadline:
  interval: 30s
  timezone: UTC

telegram:
  bot_token: "123:abc"
`, 0600)

	cfg, err := LoadWithFile(path)
	require.NoError(t, err)

	assert.Equal(t, 8088, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, ProviderOllama, cfg.Provider.Name)
	assert.Equal(t, "llama3.1", cfg.Provider.Model)
	assert.Equal(t, StorageMemory, cfg.Storage.Backend)
	assert.Equal(t, 30*time.Second, cfg.Deadline.Interval)
	assert.Equal(t, "UTC", cfg.Deadline.Timezone)
	assert.Equal(t, "123:abc", cfg.Telegram.BotToken.Value())

	// Defaults fill the rest.
	assert.Equal(t, 24*time.Hour, cfg.Deadline.Window)
	assert.Equal(t, "Nikto forever", cfg.Auth.Passphrase.Value())
}

func TestLoadWithFile_MissingFileUsesDefaults(t *testing.T) {
	dir := setupTestHome(t)

	cfg, err := LoadWithFile(filepath.Join(dir, "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 9191, cfg.Server.Port)
	assert.Equal(t, StorageFile, cfg.Storage.Backend)
	assert.Equal(t, filepath.Join(dir, "state"), cfg.Storage.Path)
}

func TestLoadWithFile_EnvOverridesYAML(t *testing.T) {
	dir := setupTestHome(t)
	path := writeConfig(t, dir, "server:\n  http_port: 8088\n", 0600)

	t.Setenv("MANAGERD_SERVER_HTTP_PORT", "9999")
	t.Setenv("MANAGERD_PROVIDER_API_KEY", "sk-test")
	t.Setenv("MANAGERD_NOTIFY_TTL", "2s")
	t.Setenv("MANAGERD_ASSISTANT_AGENCY_NAME", "Acme")

	cfg, err := LoadWithFile(path)
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, "sk-test", cfg.Provider.APIKey.Value())
	assert.Equal(t, 2*time.Second, cfg.Notify.TTL)
	assert.Equal(t, "Acme", cfg.Assistant.AgencyName)
}

func TestLoadWithFile_RejectsInsecurePermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("permission model differs on windows")
	}
	dir := setupTestHome(t)
	path := writeConfig(t, dir, "server:\n  http_port: 8088\n", 0644)

	_, err := LoadWithFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insecure config file permissions")
}

func TestLoadWithFile_RejectsPathOutsideAllowedDirs(t *testing.T) {
	setupTestHome(t)
	other := filepath.Join(t.TempDir(), "config.yaml")

	_, err := LoadWithFile(other)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config path validation failed")
}

func TestLoadWithFile_InvalidValues(t *testing.T) {
	dir := setupTestHome(t)
	path := writeConfig(t, dir, "storage:\n  backend: redis\n", 0600)

	_, err := LoadWithFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown storage backend")
}

func TestEnvKey(t *testing.T) {
	tests := map[string]string{
		"MANAGERD_SERVER_HTTP_PORT":   "server.http_port",
		"MANAGERD_TELEGRAM_BOT_TOKEN": "telegram.bot_token",
		"MANAGERD_DEADLINE_INTERVAL":  "deadline.interval",
		"MANAGERD_DEBUG":              "debug",
	}
	for in, want := range tests {
		assert.Equal(t, want, envKey(in), in)
	}
}

func TestEnsureConfigDir(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	require.NoError(t, EnsureConfigDir())

	info, err := os.Stat(filepath.Join(home, ".config", "managerd"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
