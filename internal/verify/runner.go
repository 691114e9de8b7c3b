package verify

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"extension-verifier/internal/config"
	"extension-verifier/internal/entity"
	"extension-verifier/internal/ports"
	"extension-verifier/pkg/apperr"
	"extension-verifier/pkg/logg"
	"extension-verifier/pkg/tracing"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	runnerServiceName = "SuiteRunner"
	runnerTracer      = "verify.runner"
)

// Runner executes a suite's checks against a live browser session, strictly
// in declaration order. Engine failures abort the run; a failed assertion is
// recorded and the remaining checks still execute, since each check is an
// independent read of the page.
type Runner struct {
	config  *config.Config
	logger  *zap.Logger
	tracer  trace.Tracer
	browser ports.BrowserSession
}

type RunnerParams struct {
	fx.In

	Config  *config.Config
	Logger  *zap.Logger
	Browser ports.BrowserSession
}

func NewRunner(params RunnerParams) *Runner {
	return &Runner{
		config:  params.Config,
		logger:  params.Logger.With(zap.String(logg.Layer, runnerServiceName)),
		tracer:  otel.Tracer(runnerTracer),
		browser: params.Browser,
	}
}

func (r *Runner) Execute(ctx context.Context, s entity.Suite) (run *entity.Run, err error) {
	const op = "Execute"
	logger := r.logger.With(zap.String(logg.Operation, op), zap.String(logg.Suite, s.Name))

	ctx, step := tracing.StartSpan(ctx, r.tracer, logger, op, attribute.String("suite", s.Name))
	defer func() {
		step.End(err)
	}()

	run = &entity.Run{
		ID:        uuid.New(),
		Suite:     s.Name,
		Status:    entity.RunStatusInProgress,
		StartedAt: time.Now(),
	}

	logger = logger.With(zap.String(logg.RunID, run.ID.String()))
	logger.Info("Starting verification run")

	if !r.browser.IsReady() {
		err = apperr.WrapErrorWithReason(op, apperr.CodeBrowserNotReady, "browser_not_ready")
		return r.fail(run, err), err
	}

	url, err := r.resolveTarget(ctx, s.Target)
	if err != nil {
		return r.fail(run, err), err
	}

	step.AddEvent("navigating to target")

	if err = r.browser.Navigate(ctx, url); err != nil {
		return r.fail(run, err), err
	}

	for _, check := range s.Checks {
		result, checkErr := r.runCheck(ctx, check)
		run.Results = append(run.Results, result)

		if checkErr != nil {
			err = checkErr
			return r.fail(run, err), err
		}

		if result.Passed {
			logger.Info("Check passed", zap.String(logg.Check, check.Name))
		} else {
			logger.Warn("Check failed",
				zap.String(logg.Check, check.Name),
				zap.String("got", result.Got),
				zap.String("want", check.Want))
		}
	}

	step.AddEvent("capturing screenshot")

	shot, err := r.screenshot(ctx, s.Name)
	if err != nil {
		return r.fail(run, err), err
	}
	run.Screenshot = shot

	now := time.Now()
	run.FinishedAt = &now

	if run.Passed() {
		run.Status = entity.RunStatusCompleted
		logger.Info("Verification run completed", zap.Int("checks", len(run.Results)))
	} else {
		run.Status = entity.RunStatusFailed
		run.Error = fmt.Sprintf("%d of %d checks failed", len(run.FailedChecks()), len(run.Results))
		logger.Warn("Verification run failed", zap.String("error", run.Error))
	}

	return run, nil
}

func (r *Runner) resolveTarget(ctx context.Context, target entity.Target) (url string, err error) {
	const op = "resolveTarget"
	logger := r.logger.With(zap.String(logg.Operation, op))

	ctx, step := tracing.StartSpan(ctx, r.tracer, logger, op, attribute.String("kind", string(target.Kind)))
	defer func() {
		step.End(err)
	}()

	switch target.Kind {
	case entity.TargetExtensionPopup:
		id, err := r.browser.ExtensionID(ctx)
		if err != nil {
			return "", err
		}

		return fmt.Sprintf("chrome-extension://%s/%s", id, target.Page), nil

	case entity.TargetLocalFile:
		abs, err := filepath.Abs(target.Path)
		if err != nil {
			return "", apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
				apperr.MetaReason: "abs_path_failed",
				apperr.MetaPath:   target.Path,
			})
		}

		if _, err := os.Stat(abs); err != nil {
			return "", apperr.Wrap(op, apperr.CodeNotFound, err, map[string]any{
				apperr.MetaReason: "target_file_missing",
				apperr.MetaStage:  apperr.StagePreparation,
				apperr.MetaPath:   abs,
			})
		}

		return "file://" + abs, nil
	}

	return "", apperr.InvalidReqError(op, "target.kind", fmt.Errorf("unknown target kind %q", target.Kind))
}

// runCheck evaluates one check. The returned error is reserved for engine
// failures that must abort the run; an assertion mismatch comes back as a
// result with Passed=false and a nil error.
func (r *Runner) runCheck(ctx context.Context, check entity.Check) (result entity.CheckResult, err error) {
	const op = "runCheck"
	logger := r.logger.With(zap.String(logg.Operation, op), zap.String(logg.Check, check.Name))

	ctx, step := tracing.StartSpan(ctx, r.tracer, logger, op,
		attribute.String("check", check.Name),
		attribute.String("selector", check.Selector),
		attribute.String("assert", string(check.Assert)))
	defer func() {
		step.End(err)
	}()

	started := time.Now()
	result = entity.CheckResult{Check: check}

	defer func() {
		result.Elapsed = time.Since(started)
	}()

	if waitErr := r.browser.WaitForSelector(ctx, check.Selector, check.TimeoutMS); waitErr != nil {
		if apperr.CodeOf(waitErr) == apperr.CodeTimeout {
			result.Error = waitErr.Error()

			return result, nil
		}

		return result, waitErr
	}

	switch check.Assert {
	case entity.AssertPresent:
		result.Passed = true

	case entity.AssertVisible:
		visible, visErr := r.browser.IsVisible(ctx, check.Selector)
		if visErr != nil {
			return result, visErr
		}

		result.Passed = visible
		if !visible {
			result.Error = fmt.Sprintf("element %s is not visible", check.Selector)
		}

	case entity.AssertTextEquals:
		text, textErr := r.browser.ElementText(ctx, check.Selector)
		if textErr != nil {
			return result, textErr
		}

		result.Got = strings.TrimSpace(text)
		result.Passed = result.Got == check.Want
		if !result.Passed {
			result.Error = fmt.Sprintf("expected %q, got %q", check.Want, result.Got)
		}

	default:
		return result, apperr.InvalidReqError(op, "assert", fmt.Errorf("unknown assertion kind %q", check.Assert))
	}

	return result, nil
}

func (r *Runner) screenshot(ctx context.Context, suiteName string) (path string, err error) {
	const op = "screenshot"

	dir := r.config.VerifyConfig.ScreenshotDir
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "screenshot_dir_failed",
			apperr.MetaStage:  apperr.StageScreenshot,
			apperr.MetaPath:   dir,
		})
	}

	path = filepath.Join(dir, suiteName+".png")

	if err := r.browser.Screenshot(ctx, path); err != nil {
		return "", err
	}

	return path, nil
}

func (r *Runner) fail(run *entity.Run, err error) *entity.Run {
	now := time.Now()
	run.FinishedAt = &now
	run.Status = entity.RunStatusFailed
	run.Error = err.Error()

	return run
}
