package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetConfigDefaults(t *testing.T) {
	conf, err := GetConfig()
	require.NoError(t, err)

	assert.Equal(t, "info", conf.AppConfig.LogLevel)
	assert.False(t, conf.AppConfig.Debug)

	assert.Equal(t, EnginePlaywright, conf.BrowserConfig.Engine)
	assert.True(t, conf.BrowserConfig.Headless)
	assert.Equal(t, "chromium", conf.BrowserConfig.Channel)
	assert.Equal(t, 30000, conf.BrowserConfig.Timeout)

	assert.Equal(t, ".", conf.VerifyConfig.ExtensionDir)
	assert.Equal(t, "popup", conf.VerifyConfig.Suite)
	assert.Equal(t, "verification", conf.VerifyConfig.ScreenshotDir)
	assert.Equal(t, 500, conf.VerifyConfig.WatchDebounce)
}

func TestGetConfigOverrides(t *testing.T) {
	t.Setenv("BROWSER_ENGINE", "chromedp")
	t.Setenv("BROWSER_HEADLESS", "false")
	t.Setenv("VERIFY_SUITE", "logging-panel")
	t.Setenv("VERIFY_EXTENSION_DIR", "/opt/ext")
	t.Setenv("LOG_LEVEL", "debug")

	conf, err := GetConfig()
	require.NoError(t, err)

	assert.Equal(t, EngineChromedp, conf.BrowserConfig.Engine)
	assert.False(t, conf.BrowserConfig.Headless)
	assert.Equal(t, "logging-panel", conf.VerifyConfig.Suite)
	assert.Equal(t, "/opt/ext", conf.VerifyConfig.ExtensionDir)
	assert.Equal(t, "debug", conf.AppConfig.LogLevel)
}

func TestGetConfigRejectsUnknownEngine(t *testing.T) {
	t.Setenv("BROWSER_ENGINE", "selenium")

	_, err := GetConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "selenium")
}
