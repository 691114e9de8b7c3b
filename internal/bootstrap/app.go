package bootstrap

import (
	"time"

	"extension-verifier/internal/browser"
	"extension-verifier/internal/config"
	"extension-verifier/internal/ports"
	"extension-verifier/internal/verify"

	"go.uber.org/fx"
)

func baseModule() fx.Option {
	return fx.Options(
		fx.Provide(
			config.GetConfig,
			newLogger,

			browser.NewSession,

			verify.NewRunner,
			func(r *verify.Runner) ports.SuiteRunner { return r },
		),

		// Registers the global tracer provider the sessions and runner pick
		// up through otel.Tracer.
		fx.Invoke(newTraceProvider),
	)
}

// NewApp wires a single verification run: launch browser, execute the
// configured suite, shut down with the run's exit code.
func NewApp() *fx.App {
	return fx.New(
		baseModule(),

		fx.Invoke(
			runVerification,
		),

		fx.StartTimeout(10*time.Second),
	)
}

// NewWatchApp wires watch mode: the suite re-runs whenever the target
// changes, until interrupted.
func NewWatchApp() *fx.App {
	return fx.New(
		baseModule(),

		fx.Invoke(
			runWatch,
		),

		fx.StartTimeout(10*time.Second),
	)
}
