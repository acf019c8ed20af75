package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfigFile(t, `
bot:
  token: "123:abc"
  name: "bridge_bot"
channel:
  id: -1001
  name: "@my_channel"
rum:
  seed_url: "rum://seed?x=1"
database:
  host: "127.0.0.1"
  port: 3306
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.True(t, cfg.Bot.ReplyPostURL)
	assert.Equal(t, float64(-3), cfg.Rum.DelayHours)
	assert.True(t, cfg.Rum.ToTelegram)
	assert.True(t, cfg.Rum.AutoRegister)
	assert.Equal(t, 1, cfg.Rum.PollIntervalSecs)
	assert.Equal(t, 20, cfg.Rum.PageSize)
	assert.Equal(t, "INFO", cfg.Logger.Level)
	assert.Equal(t, "utf8mb4", cfg.Database.Charset)
}

func TestLoadDerivesChannelURL(t *testing.T) {
	path := writeConfigFile(t, `
channel:
  name: "@my_channel"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://t.me/my_channel", cfg.Channel.URL)
}

func TestLoadKeepsExplicitChannelURL(t *testing.T) {
	path := writeConfigFile(t, `
channel:
  name: "@my_channel"
  url: "https://t.me/s/my_channel"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://t.me/s/my_channel", cfg.Channel.URL)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfigFile(t, `
rum:
  delay_hours: 2.5
  to_telegram: false
  auto_register: false
  post_auth_type: "whitelist"
  whitelist_pubkeys:
    - "key-a"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2.5, cfg.Rum.DelayHours)
	assert.False(t, cfg.Rum.ToTelegram)
	assert.False(t, cfg.Rum.AutoRegister)
	assert.Equal(t, "whitelist", cfg.Rum.PostAuthType)
	assert.Equal(t, []string{"key-a"}, cfg.Rum.WhitelistPubkeys)
}

func TestLoadMissingPath(t *testing.T) {
	_, err := Load("")
	assert.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
