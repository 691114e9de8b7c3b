package config

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	AppConfig     *AppConfig
	BrowserConfig *BrowserConfig
	VerifyConfig  *VerifyConfig
}

type AppConfig struct {
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	Debug    bool   `envconfig:"DEBUG" default:"false"`
}

type BrowserConfig struct {
	Engine      string `envconfig:"BROWSER_ENGINE" default:"playwright"`
	Headless    bool   `envconfig:"BROWSER_HEADLESS" default:"true"`
	Channel     string `envconfig:"BROWSER_CHANNEL" default:"chromium"`
	SlowMo      int    `envconfig:"BROWSER_SLOW_MO" default:"0"`
	Timeout     int    `envconfig:"BROWSER_TIMEOUT" default:"30000"`
	UserDataDir string `envconfig:"BROWSER_USER_DATA_DIR" default:""`
}

type VerifyConfig struct {
	ExtensionDir  string `envconfig:"VERIFY_EXTENSION_DIR" default:"."`
	Suite         string `envconfig:"VERIFY_SUITE" default:"popup"`
	ScreenshotDir string `envconfig:"VERIFY_SCREENSHOT_DIR" default:"verification"`
	WatchDebounce int    `envconfig:"VERIFY_WATCH_DEBOUNCE_MS" default:"500"`
}

const (
	EnginePlaywright = "playwright"
	EngineChromedp   = "chromedp"
)

func GetConfig() (*Config, error) {
	_ = godotenv.Load()

	var conf Config

	if err := envconfig.Process("", &conf); err != nil {
		return nil, fmt.Errorf("read config from env vars: %w", err)
	}

	if conf.BrowserConfig.Engine != EnginePlaywright && conf.BrowserConfig.Engine != EngineChromedp {
		return nil, fmt.Errorf("unknown browser engine %q", conf.BrowserConfig.Engine)
	}

	return &conf, nil
}
