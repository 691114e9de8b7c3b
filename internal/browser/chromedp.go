package browser

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"extension-verifier/internal/config"
	"extension-verifier/pkg/apperr"
	"extension-verifier/pkg/logg"
	"extension-verifier/pkg/tracing"

	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	chromedpSessionName = "ChromedpSession"
	chromedpTracer      = "browser.chromedp"

	targetPollInterval = 250 * time.Millisecond
)

// ChromedpSession drives Chromium over the DevTools protocol. It implements
// the same session port as the playwright engine; extension discovery goes
// through the target list instead of a serviceworker event.
type ChromedpSession struct {
	config      *config.Config
	logger      *zap.Logger
	tracer      trace.Tracer
	allocCancel context.CancelFunc
	ctxCancel   context.CancelFunc
	browserCtx  context.Context
	userDataDir string
	ownsDataDir bool
	ready       bool
}

type ChromedpParams struct {
	fx.In

	Config *config.Config
	Logger *zap.Logger
}

func NewChromedpSession(params ChromedpParams) *ChromedpSession {
	return &ChromedpSession{
		config: params.Config,
		logger: params.Logger.With(zap.String(logg.Layer, chromedpSessionName)),
		tracer: otel.Tracer(chromedpTracer),
		ready:  false,
	}
}

func (s *ChromedpSession) Launch(ctx context.Context, extensionDir string) (err error) {
	const op = "Launch"
	logger := s.logger.With(zap.String(logg.Operation, op))

	ctx, step := tracing.StartSpan(ctx, s.tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	logger.Info("Launching browser...")

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

	// Not DefaultExecAllocatorOptions: that set carries --disable-extensions,
	// which would defeat --load-extension.
	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.UserDataDir(userDataDir),
		chromedp.Flag("disable-dev-shm-usage", true),
	}

	if s.config.BrowserConfig.Headless {
		// Extensions only load under the new headless mode.
		opts = append(opts, chromedp.Flag("headless", "new"))
	}

	if extensionDir != "" {
		logger.Info("Loading unpacked extension", zap.String(logg.Path, extensionDir))
		opts = append(opts,
			chromedp.Flag("disable-extensions-except", extensionDir),
			chromedp.Flag("load-extension", extensionDir),
		)
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	s.allocCancel = allocCancel

	browserCtx, ctxCancel := chromedp.NewContext(allocCtx,
		chromedp.WithErrorf(func(format string, args ...interface{}) {
			logger.Warn(fmt.Sprintf(format, args...))
		}),
	)
	s.ctxCancel = ctxCancel
	s.browserCtx = browserCtx

	step.AddEvent("starting chrome process")

	// An empty Run starts the browser process.
	if err = chromedp.Run(browserCtx); err != nil {
		return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "chrome_start_failed",
			apperr.MetaStage:  apperr.StageBrowser,
		})
	}

	s.ready = true
	logger.Info("Browser launched successfully")

	return nil
}

func (s *ChromedpSession) Close(ctx context.Context) (err error) {
	const op = "Close"
	logger := s.logger.With(zap.String(logg.Operation, op))

	ctx, step := tracing.StartSpan(ctx, s.tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	logger.Info("Closing browser session...")

	if s.browserCtx != nil {
		if err := chromedp.Cancel(s.browserCtx); err != nil {
			logger.Warn("Failed to cancel browser context", zap.Error(err))
		}
	}

	if s.ctxCancel != nil {
		s.ctxCancel()
	}

	if s.allocCancel != nil {
		s.allocCancel()
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

// ExtensionID polls the browser's target list until the extension's
// background service worker shows up and takes the ID from its URL host.
func (s *ChromedpSession) ExtensionID(ctx context.Context) (id string, err error) {
	const op = "ExtensionID"
	logger := s.logger.With(zap.String(logg.Operation, op))

	ctx, step := tracing.StartSpan(ctx, s.tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	if !s.ready {
		return "", apperr.WrapErrorWithReason(op, apperr.CodeBrowserNotReady, "browser_not_ready")
	}

	deadline := time.Now().Add(serviceWorkerTimeout * time.Millisecond)

	for {
		infos, err := chromedp.Targets(s.browserCtx)
		if err != nil {
			return "", apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
				apperr.MetaReason: "target_list_failed",
				apperr.MetaStage:  apperr.StageBrowser,
			})
		}

		if id := extensionIDFromTargets(infos); id != "" {
			logger.Info("Resolved extension ID", zap.String("extension_id", id))

			return id, nil
		}

		if time.Now().After(deadline) {
			return "", apperr.Wrap(op, apperr.CodeTimeout, fmt.Errorf("no extension target after %dms", serviceWorkerTimeout), map[string]any{
				apperr.MetaReason: "serviceworker_wait_timeout",
				apperr.MetaStage:  apperr.StageBrowser,
			})
		}

		select {
		case <-ctx.Done():
			return "", apperr.Wrap(op, apperr.CodeCancelled, ctx.Err(), map[string]any{
				apperr.MetaReason: "context_cancelled",
			})
		case <-time.After(targetPollInterval):
		}
	}
}

func extensionIDFromTargets(infos []*target.Info) string {
	for _, info := range infos {
		if !strings.HasPrefix(info.URL, "chrome-extension://") {
			continue
		}

		rest := strings.TrimPrefix(info.URL, "chrome-extension://")
		if i := strings.IndexByte(rest, '/'); i > 0 {
			return rest[:i]
		}
		if rest != "" {
			return rest
		}
	}

	return ""
}

func (s *ChromedpSession) Navigate(ctx context.Context, url string) (err error) {
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

	tctx, cancel := s.withTimeout(s.config.BrowserConfig.Timeout)
	defer cancel()

	if err = chromedp.Run(tctx, chromedp.Navigate(url)); err != nil {
		return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "navigate_failed",
			apperr.MetaStage:  apperr.StageNavigation,
			apperr.MetaURL:    url,
		})
	}

	step.AddEvent("navigation completed")

	return nil
}

func (s *ChromedpSession) WaitForSelector(ctx context.Context, selector string, timeout int) (err error) {
	const op = "WaitForSelector"
	logger := s.logger.With(zap.String(logg.Operation, op), zap.String(logg.Selector, selector))

	ctx, step := tracing.StartSpan(ctx, s.tracer, logger, op, attribute.String("selector", selector))
	defer func() {
		step.End(err)
	}()

	if !s.ready {
		return apperr.WrapErrorWithReason(op, apperr.CodeBrowserNotReady, "browser_not_ready")
	}

	tctx, cancel := s.withTimeout(timeout)
	defer cancel()

	if err = chromedp.Run(tctx, chromedp.WaitReady(selector, chromedp.ByQuery)); err != nil {
		return apperr.Wrap(op, apperr.CodeTimeout, err, map[string]any{
			apperr.MetaReason:   "wait_selector_timeout",
			apperr.MetaSelector: selector,
		})
	}

	return nil
}

func (s *ChromedpSession) ElementText(ctx context.Context, selector string) (text string, err error) {
	const op = "ElementText"
	logger := s.logger.With(zap.String(logg.Operation, op), zap.String(logg.Selector, selector))

	ctx, step := tracing.StartSpan(ctx, s.tracer, logger, op, attribute.String("selector", selector))
	defer func() {
		step.End(err)
	}()

	if !s.ready {
		return "", apperr.WrapErrorWithReason(op, apperr.CodeBrowserNotReady, "browser_not_ready")
	}

	tctx, cancel := s.withTimeout(s.config.BrowserConfig.Timeout)
	defer cancel()

	if err = chromedp.Run(tctx, chromedp.Text(selector, &text, chromedp.ByQuery)); err != nil {
		return "", apperr.Wrap(op, apperr.CodeNotFound, err, map[string]any{
			apperr.MetaReason:   "element_text_failed",
			apperr.MetaSelector: selector,
		})
	}

	return text, nil
}

func (s *ChromedpSession) IsVisible(ctx context.Context, selector string) (visible bool, err error) {
	const op = "IsVisible"
	logger := s.logger.With(zap.String(logg.Operation, op), zap.String(logg.Selector, selector))

	ctx, step := tracing.StartSpan(ctx, s.tracer, logger, op, attribute.String("selector", selector))
	defer func() {
		step.End(err)
	}()

	if !s.ready {
		return false, apperr.WrapErrorWithReason(op, apperr.CodeBrowserNotReady, "browser_not_ready")
	}

	script := visibilityScript(selector)

	tctx, cancel := s.withTimeout(s.config.BrowserConfig.Timeout)
	defer cancel()

	if err = chromedp.Run(tctx, chromedp.Evaluate(script, &visible)); err != nil {
		return false, apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason:   "visibility_check_failed",
			apperr.MetaSelector: selector,
		})
	}

	return visible, nil
}

func (s *ChromedpSession) Screenshot(ctx context.Context, path string) (err error) {
	const op = "Screenshot"
	logger := s.logger.With(zap.String(logg.Operation, op), zap.String(logg.Path, path))

	ctx, step := tracing.StartSpan(ctx, s.tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	if !s.ready {
		return apperr.WrapErrorWithReason(op, apperr.CodeBrowserNotReady, "browser_not_ready")
	}

	var buf []byte

	tctx, cancel := s.withTimeout(s.config.BrowserConfig.Timeout)
	defer cancel()

	if err = chromedp.Run(tctx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "screenshot_failed",
			apperr.MetaStage:  apperr.StageScreenshot,
		})
	}

	if err = os.WriteFile(path, buf, 0644); err != nil {
		return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "screenshot_write_failed",
			apperr.MetaStage:  apperr.StageScreenshot,
			apperr.MetaPath:   path,
		})
	}

	logger.Info("Screenshot saved")

	return nil
}

func (s *ChromedpSession) IsReady() bool {
	return s.ready
}

func (s *ChromedpSession) withTimeout(ms int) (context.Context, context.CancelFunc) {
	return context.WithTimeout(s.browserCtx, time.Duration(ms)*time.Millisecond)
}

// visibilityScript embeds the selector as a quoted string literal so
// quotes and backslashes inside it cannot break out of the script.
func visibilityScript(selector string) string {
	return fmt.Sprintf(`(() => {
		const el = document.querySelector(%s);
		if (!el) return false;
		const rect = el.getBoundingClientRect();
		const style = window.getComputedStyle(el);
		return rect.width > 0 &&
			rect.height > 0 &&
			style.display !== 'none' &&
			style.visibility !== 'hidden' &&
			parseFloat(style.opacity) > 0;
	})()`, strconv.Quote(selector))
}
