package bootstrap

import (
	"context"
	"time"

	"extension-verifier/internal/config"
	"extension-verifier/internal/entity"
	"extension-verifier/internal/ports"
	"extension-verifier/internal/suite"
	"extension-verifier/internal/verify"
	"extension-verifier/pkg/logg"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

func runWatch(lc fx.Lifecycle, shutdowner fx.Shutdowner, cfg *config.Config, runner ports.SuiteRunner, session ports.BrowserSession, logger *zap.Logger) {
	var cancel context.CancelFunc

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			s, err := suite.Resolve(cfg.VerifyConfig.Suite, cfg.VerifyConfig.ExtensionDir)
			if err != nil {
				logger.Error("Failed to resolve suite", zap.Error(err))

				return err
			}

			var watchCtx context.Context
			watchCtx, cancel = context.WithCancel(context.Background())

			// Each iteration takes a fresh browser: the extension must be
			// reloaded from disk to pick up the change that triggered it.
			iterate := func(ctx context.Context) error {
				if err := session.Launch(ctx, s.Target.ExtensionDir()); err != nil {
					return err
				}
				defer func() {
					if err := session.Close(ctx); err != nil {
						logger.Error("Failed to close browser", zap.Error(err))
					}
				}()

				run, err := runner.Execute(ctx, s)
				if err != nil {
					return err
				}

				if run.Status == entity.RunStatusCompleted {
					logger.Info("Verification passed",
						zap.String(logg.Suite, run.Suite),
						zap.Int("checks", len(run.Results)))
				} else {
					logger.Warn("Verification failed",
						zap.String(logg.Suite, run.Suite),
						zap.Int("failed_checks", len(run.FailedChecks())),
						zap.Int("total_checks", len(run.Results)))
				}

				return nil
			}

			go func() {
				if err := iterate(watchCtx); err != nil {
					logger.Error("Initial run failed", zap.Error(err))
				}

				debounce := time.Duration(cfg.VerifyConfig.WatchDebounce) * time.Millisecond

				// Screenshots land under the watch root on each run; if the
				// watcher reacted to them, every run would trigger the next.
				watcher := verify.NewWatcher(logger, debounce, cfg.VerifyConfig.ScreenshotDir)

				if err := watcher.Watch(watchCtx, s.Target.Path, iterate); err != nil {
					logger.Error("Watch loop failed", zap.Error(err))
					_ = shutdowner.Shutdown(fx.ExitCode(1))

					return
				}

				_ = shutdowner.Shutdown()
			}()

			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("Shutting down...")

			if cancel != nil {
				cancel()
			}

			if session.IsReady() {
				if err := session.Close(ctx); err != nil {
					logger.Error("Failed to close browser", zap.Error(err))
				}
			}

			return nil
		},
	})
}
