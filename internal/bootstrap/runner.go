package bootstrap

import (
	"context"

	"extension-verifier/internal/config"
	"extension-verifier/internal/entity"
	"extension-verifier/internal/ports"
	"extension-verifier/internal/suite"
	"extension-verifier/pkg/logg"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

func runVerification(lc fx.Lifecycle, shutdowner fx.Shutdowner, cfg *config.Config, runner ports.SuiteRunner, session ports.BrowserSession, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			s, err := suite.Resolve(cfg.VerifyConfig.Suite, cfg.VerifyConfig.ExtensionDir)
			if err != nil {
				logger.Error("Failed to resolve suite", zap.Error(err))

				return err
			}

			logger.Info("Launching browser...",
				zap.String(logg.Engine, cfg.BrowserConfig.Engine),
				zap.String(logg.Suite, s.Name))

			if err := session.Launch(ctx, s.Target.ExtensionDir()); err != nil {
				logger.Error("Failed to launch browser", zap.Error(err))

				return err
			}

			logger.Info("Browser launched successfully")

			go func() {
				run, err := runner.Execute(context.Background(), s)

				code := 0
				switch {
				case err != nil:
					logger.Error("Verification aborted", zap.Error(err))
					code = 1
				case run.Status != entity.RunStatusCompleted:
					logger.Warn("Verification failed",
						zap.String(logg.Suite, run.Suite),
						zap.Int("failed_checks", len(run.FailedChecks())),
						zap.Int("total_checks", len(run.Results)))
					code = 1
				default:
					logger.Info("Verification passed",
						zap.String(logg.Suite, run.Suite),
						zap.Int("checks", len(run.Results)),
						zap.String(logg.Path, run.Screenshot))
				}

				if err := shutdowner.Shutdown(fx.ExitCode(code)); err != nil {
					logger.Error("Shutdown failed", zap.Error(err))
				}
			}()

			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("Shutting down...")

			if session.IsReady() {
				if err := session.Close(ctx); err != nil {
					logger.Error("Failed to close browser", zap.Error(err))
				}
			}

			return nil
		},
	})
}
