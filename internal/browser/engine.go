package browser

import (
	"extension-verifier/internal/config"
	"extension-verifier/internal/ports"

	"go.uber.org/zap"
)

// NewSession picks the engine configured via BROWSER_ENGINE. Config
// validation already rejected unknown engines.
func NewSession(cfg *config.Config, logger *zap.Logger) ports.BrowserSession {
	if cfg.BrowserConfig.Engine == config.EngineChromedp {
		return NewChromedpSession(ChromedpParams{
			Config: cfg,
			Logger: logger,
		})
	}

	return NewPlaywrightSession(PlaywrightParams{
		Config: cfg,
		Logger: logger,
	})
}
