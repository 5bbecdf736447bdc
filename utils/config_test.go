package utils

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsWorkOutOfTheBox(t *testing.T) {
	cfg := defaults()
	assert.Equal(t, "http://localhost:8084", cfg.Server.BaseURL)
	assert.Equal(t, 30, cfg.Cache.FreshSeconds)
	assert.Equal(t, 300, cfg.Cache.StaleSeconds)
	assert.Equal(t, "grid", cfg.UI.View)
	assert.Equal(t, "https://www.gutenberg.org", cfg.Sources.BaseURL)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestExpandPath(t *testing.T) {
	home, err := filepath.Abs(ExpandPath("~"))
	require.NoError(t, err)
	assert.NotEqual(t, "~", home)

	assert.Equal(t, "/tmp/x", ExpandPath("/tmp/x"))
	assert.Equal(t, "relative", ExpandPath("relative"))
}

func TestSaveConfigRoundTrip(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	AppConfig = defaults()
	AppConfig.UI.Sort = "abc"
	AppConfig.UI.View = "list"
	require.NoError(t, SaveConfig())

	AppConfig = Config{}
	require.NoError(t, LoadConfig())
	assert.Equal(t, "abc", AppConfig.UI.Sort)
	assert.Equal(t, "list", AppConfig.UI.View)
	assert.Equal(t, "http://localhost:8084", AppConfig.Server.BaseURL)
}

func TestEnvOverridesConfig(t *testing.T) {
	t.Setenv("INKDROP_SERVER_URL", "http://books.local:9000")
	t.Setenv("INKDROP_CACHE_FRESH", "60")

	require.NoError(t, LoadConfig())
	assert.Equal(t, "http://books.local:9000", AppConfig.Server.BaseURL)
	assert.Equal(t, 60, AppConfig.Cache.FreshSeconds)
}
