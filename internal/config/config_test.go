package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadWritesDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg, resolved, err := Load(nil, path)
	require.NoError(t, err)
	require.Equal(t, path, resolved)
	require.FileExists(t, path)

	require.Equal(t, Default().Addr, cfg.Addr)
	require.Equal(t, 50, cfg.HistoryLimit)
	require.Equal(t, "/bot", cfg.Bot.Trigger)
	require.Equal(t, 10*time.Second, cfg.Bot.MaxTypingDelay)
	require.NoError(t, cfg.Validate())
}

func TestLoadPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte("addr: \":9000\"\nhistory_limit: 20\nbot:\n  name: Oracle\n  trigger: /ask\n")
	require.NoError(t, os.WriteFile(path, data, 0o600))

	t.Setenv("RELAYCHAT_HISTORY_LIMIT", "5")
	t.Setenv("RELAYCHAT_BOT_ENDPOINT", "http://responder:9999/bot")

	cfg, _, err := Load(nil, path)
	require.NoError(t, err)

	require.Equal(t, ":9000", cfg.Addr, "file overrides default")
	require.Equal(t, 5, cfg.HistoryLimit, "env overrides file")
	require.Equal(t, "Oracle", cfg.Bot.Name)
	require.Equal(t, "/ask", cfg.Bot.Trigger)
	require.Equal(t, "http://responder:9999/bot", cfg.Bot.Endpoint)
	require.Equal(t, Default().Bot.FallbackText, cfg.Bot.FallbackText)

	cfg.UpdateFrom(Config{Addr: ":7000"})
	require.Equal(t, ":7000", cfg.Addr, "overrides win")
	require.Equal(t, 5, cfg.HistoryLimit)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	bad := Default()
	bad.Bot.Trigger = "/ bot"
	require.Error(t, bad.Validate())

	bad = Default()
	bad.SendBuffer = 0
	require.Error(t, bad.Validate())

	bad = Default()
	bad.Bot.Endpoint = "not a url"
	require.Error(t, bad.Validate())

	bad = Default()
	bad.LogLevel = "verbose"
	require.Error(t, bad.Validate())

	noBot := Default()
	noBot.Bot.Endpoint = ""
	require.NoError(t, noBot.Validate())
}
