package browser

import (
	"context"
	"fmt"
	"os"
	"strings"

	"extension-verifier/internal/config"
	"extension-verifier/pkg/apperr"
	"extension-verifier/pkg/logg"
	"extension-verifier/pkg/tracing"

	"github.com/playwright-community/playwright-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	playwrightSessionName = "PlaywrightSession"
	playwrightTracer      = "browser.playwright"

	serviceWorkerTimeout = 15000
)

// PlaywrightSession drives Chromium through playwright. When an extension
// directory is configured the browser runs as a persistent context with the
// unpacked extension loaded, which is the only way Chromium exposes the
// extension's service worker.
type PlaywrightSession struct {
	config         *config.Config
	logger         *zap.Logger
	tracer         trace.Tracer
	playwright     *playwright.Playwright
	browser        playwright.Browser
	browserContext playwright.BrowserContext
	page           playwright.Page
	userDataDir    string
	ownsDataDir    bool
	ready          bool
}

type PlaywrightParams struct {
	fx.In

	Config *config.Config
	Logger *zap.Logger
}

func NewPlaywrightSession(params PlaywrightParams) *PlaywrightSession {
	return &PlaywrightSession{
		config: params.Config,
		logger: params.Logger.With(zap.String(logg.Layer, playwrightSessionName)),
		tracer: otel.Tracer(playwrightTracer),
		ready:  false,
	}
}

func (s *PlaywrightSession) Launch(ctx context.Context, extensionDir string) (err error) {
	const op = "Launch"
	logger := s.logger.With(zap.String(logg.Operation, op))

	ctx, step := tracing.StartSpan(ctx, s.tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	logger.Info("Launching browser...")
	step.AddEvent("installing playwright")

	err = playwright.Install()
	if err != nil {
		return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "playwright_install_failed",
			apperr.MetaStage:  apperr.StageBrowser,
		})
	}

	step.AddEvent("starting playwright")

	pw, err := playwright.Run()
	if err != nil {
		return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "playwright_start_failed",
			apperr.MetaStage:  apperr.StageBrowser,
		})
	}
	s.playwright = pw

	if extensionDir != "" {
		return s.launchPersistent(ctx, extensionDir)
	}

	return s.launchNew(ctx)
}

func (s *PlaywrightSession) launchPersistent(ctx context.Context, extensionDir string) (err error) {
	const op = "launchPersistent"
	logger := s.logger.With(zap.String(logg.Operation, op))

	ctx, step := tracing.StartSpan(ctx, s.tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	logger.Info("Launching persistent context with extension", zap.String(logg.Path, extensionDir))

	userDataDir := s.config.BrowserConfig.UserDataDir
	if userDataDir == "" {
		userDataDir, err = os.MkdirTemp("", "extverify-profile-*")
		if err != nil {
			return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
				apperr.MetaReason: "tempdir_failed",
				apperr.MetaStage:  apperr.StageBrowser,
			})
		}
		s.ownsDataDir = true
	} else if err := os.MkdirAll(userDataDir, 0755); err != nil {
		return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "mkdir_failed",
			apperr.MetaStage:  apperr.StageBrowser,
		})
	}
	s.userDataDir = userDataDir

	options := playwright.BrowserTypeLaunchPersistentContextOptions{
		Headless: playwright.Bool(s.config.BrowserConfig.Headless),
		SlowMo:   playwright.Float(float64(s.config.BrowserConfig.SlowMo)),
		Channel:  playwright.String(s.config.BrowserConfig.Channel),
		Args: []string{
			fmt.Sprintf("--disable-extensions-except=%s", extensionDir),
			fmt.Sprintf("--load-extension=%s", extensionDir),
		},
	}

	browserContext, err := s.playwright.Chromium.LaunchPersistentContext(userDataDir, options)
	if err != nil {
		return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "launch_persistent_failed",
			apperr.MetaStage:  apperr.StageBrowser,
		})
	}

	s.browserContext = browserContext

	pages := browserContext.Pages()

	if len(pages) > 0 {
		s.page = pages[0]
		logger.Info("Using existing page")
	} else {
		page, err := browserContext.NewPage()
		if err != nil {
			return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
				apperr.MetaReason: "new_page_failed",
				apperr.MetaStage:  apperr.StageBrowser,
			})
		}
		s.page = page
		logger.Info("Created new page")
	}

	s.ready = true
	logger.Info("Browser launched successfully")

	return nil
}

func (s *PlaywrightSession) launchNew(ctx context.Context) (err error) {
	const op = "launchNew"
	logger := s.logger.With(zap.String(logg.Operation, op))

	ctx, step := tracing.StartSpan(ctx, s.tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	logger.Info("Launching browser without extension")

	browserOptions := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(s.config.BrowserConfig.Headless),
		SlowMo:   playwright.Float(float64(s.config.BrowserConfig.SlowMo)),
		Channel:  playwright.String(s.config.BrowserConfig.Channel),
	}

	browser, err := s.playwright.Chromium.Launch(browserOptions)
	if err != nil {
		return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "browser_launch_failed",
			apperr.MetaStage:  apperr.StageBrowser,
		})
	}
	s.browser = browser

	browserContext, err := browser.NewContext()
	if err != nil {
		return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "context_create_failed",
			apperr.MetaStage:  apperr.StageBrowser,
		})
	}

	s.browserContext = browserContext

	page, err := browserContext.NewPage()
	if err != nil {
		return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "page_create_failed",
			apperr.MetaStage:  apperr.StageBrowser,
		})
	}
	s.page = page

	s.ready = true
	logger.Info("Browser launched successfully")

	return nil
}

func (s *PlaywrightSession) Close(ctx context.Context) (err error) {
	const op = "Close"
	logger := s.logger.With(zap.String(logg.Operation, op))

	ctx, step := tracing.StartSpan(ctx, s.tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	logger.Info("Closing browser session...")

	if s.browserContext != nil {
		if err := s.browserContext.Close(); err != nil {
			logger.Warn("Failed to close context", zap.Error(err))
		}
	}

	if s.browser != nil {
		if err := s.browser.Close(); err != nil {
			logger.Warn("Failed to close browser", zap.Error(err))
		}
	}

	if s.playwright != nil {
		if err := s.playwright.Stop(); err != nil {
			return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
				apperr.MetaReason: "playwright_stop_failed",
			})
		}
	}

	if s.ownsDataDir && s.userDataDir != "" {
		if err := os.RemoveAll(s.userDataDir); err != nil {
			logger.Warn("Failed to remove temp profile", zap.Error(err))
		}
	}

	s.ready = false
	logger.Info("Browser closed")

	return nil
}

// ExtensionID resolves the loaded extension's ID from its background service
// worker URL. Under manifest v3 the worker may not be up yet when the
// context opens, so fall back to waiting for the serviceworker event.
func (s *PlaywrightSession) ExtensionID(ctx context.Context) (id string, err error) {
	const op = "ExtensionID"
	logger := s.logger.With(zap.String(logg.Operation, op))

	ctx, step := tracing.StartSpan(ctx, s.tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	if !s.ready {
		return "", apperr.WrapErrorWithReason(op, apperr.CodeBrowserNotReady, "browser_not_ready")
	}

	var worker playwright.Worker

	workers := s.browserContext.ServiceWorkers()
	if len(workers) > 0 {
		worker = workers[0]
	} else {
		step.AddEvent("waiting for serviceworker event")

		ev, err := s.browserContext.WaitForEvent("serviceworker", playwright.BrowserContextWaitForEventOptions{
			Timeout: playwright.Float(serviceWorkerTimeout),
		})
		if err != nil {
			return "", apperr.Wrap(op, apperr.CodeTimeout, err, map[string]any{
				apperr.MetaReason: "serviceworker_wait_timeout",
				apperr.MetaStage:  apperr.StageBrowser,
			})
		}

		w, ok := ev.(playwright.Worker)
		if !ok {
			return "", apperr.WrapErrorWithReason(op, apperr.CodeInternal, "unexpected_event_payload")
		}
		worker = w
	}

	parts := strings.Split(worker.URL(), "/")
	if len(parts) < 3 || parts[2] == "" {
		return "", apperr.Wrap(op, apperr.CodeInternal, fmt.Errorf("malformed service worker url: %s", worker.URL()), map[string]any{
			apperr.MetaReason: "malformed_worker_url",
			apperr.MetaStage:  apperr.StageBrowser,
		})
	}

	id = parts[2]
	logger.Info("Resolved extension ID", zap.String("extension_id", id))

	return id, nil
}

func (s *PlaywrightSession) Navigate(ctx context.Context, url string) (err error) {
	const op = "Navigate"
	logger := s.logger.With(zap.String(logg.Operation, op), zap.String(logg.URL, url))

	ctx, step := tracing.StartSpan(ctx, s.tracer, logger, op, attribute.String("url", url))
	defer func() {
		step.End(err)
	}()

	if !s.ready {
		return apperr.WrapErrorWithReason(op, apperr.CodeBrowserNotReady, "browser_not_ready")
	}

	step.AddEvent("navigating to URL")

	_, err = s.page.Goto(url, playwright.PageGotoOptions{
		Timeout:   playwright.Float(float64(s.config.BrowserConfig.Timeout)),
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
	})

	if err != nil {
		return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "goto_failed",
			apperr.MetaStage:  apperr.StageNavigation,
			apperr.MetaURL:    url,
		})
	}

	step.AddEvent("navigation completed")

	return nil
}

func (s *PlaywrightSession) WaitForSelector(ctx context.Context, selector string, timeout int) (err error) {
	const op = "WaitForSelector"
	logger := s.logger.With(zap.String(logg.Operation, op), zap.String(logg.Selector, selector))

	ctx, step := tracing.StartSpan(ctx, s.tracer, logger, op, attribute.String("selector", selector))
	defer func() {
		step.End(err)
	}()

	if !s.ready {
		return apperr.WrapErrorWithReason(op, apperr.CodeBrowserNotReady, "browser_not_ready")
	}

	_, err = s.page.WaitForSelector(selector, playwright.PageWaitForSelectorOptions{
		Timeout: playwright.Float(float64(timeout)),
	})

	if err != nil {
		return apperr.Wrap(op, apperr.CodeTimeout, err, map[string]any{
			apperr.MetaReason:   "wait_selector_timeout",
			apperr.MetaSelector: selector,
		})
	}

	return nil
}

func (s *PlaywrightSession) ElementText(ctx context.Context, selector string) (text string, err error) {
	const op = "ElementText"
	logger := s.logger.With(zap.String(logg.Operation, op), zap.String(logg.Selector, selector))

	ctx, step := tracing.StartSpan(ctx, s.tracer, logger, op, attribute.String("selector", selector))
	defer func() {
		step.End(err)
	}()

	if !s.ready {
		return "", apperr.WrapErrorWithReason(op, apperr.CodeBrowserNotReady, "browser_not_ready")
	}

	element, err := s.page.QuerySelector(selector)
	if err != nil {
		return "", apperr.Wrap(op, apperr.CodeNotFound, err, map[string]any{
			apperr.MetaReason:   "element_not_found",
			apperr.MetaSelector: selector,
		})
	}

	if element == nil {
		return "", apperr.NotFoundError(op, fmt.Errorf("element not found: %s", selector))
	}

	text, err = element.TextContent()
	if err != nil {
		return "", apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "text_content_failed",
		})
	}

	return text, nil
}

func (s *PlaywrightSession) IsVisible(ctx context.Context, selector string) (visible bool, err error) {
	const op = "IsVisible"
	logger := s.logger.With(zap.String(logg.Operation, op), zap.String(logg.Selector, selector))

	ctx, step := tracing.StartSpan(ctx, s.tracer, logger, op, attribute.String("selector", selector))
	defer func() {
		step.End(err)
	}()

	if !s.ready {
		return false, apperr.WrapErrorWithReason(op, apperr.CodeBrowserNotReady, "browser_not_ready")
	}

	visible, err = s.page.IsVisible(selector)
	if err != nil {
		return false, apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason:   "visibility_check_failed",
			apperr.MetaSelector: selector,
		})
	}

	return visible, nil
}

func (s *PlaywrightSession) Screenshot(ctx context.Context, path string) (err error) {
	const op = "Screenshot"
	logger := s.logger.With(zap.String(logg.Operation, op), zap.String(logg.Path, path))

	ctx, step := tracing.StartSpan(ctx, s.tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	if !s.ready {
		return apperr.WrapErrorWithReason(op, apperr.CodeBrowserNotReady, "browser_not_ready")
	}

	_, err = s.page.Screenshot(playwright.PageScreenshotOptions{
		Path: playwright.String(path),
		Type: playwright.ScreenshotTypePng,
	})

	if err != nil {
		return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "screenshot_failed",
			apperr.MetaStage:  apperr.StageScreenshot,
		})
	}

	logger.Info("Screenshot saved")

	return nil
}

func (s *PlaywrightSession) IsReady() bool {
	return s.ready
}
