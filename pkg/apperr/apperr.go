package apperr

import (
	"errors"
	"fmt"
)

const (
	MetaReason   = "reason"
	MetaStage    = "stage"
	MetaField    = "field"
	MetaRunID    = "run_id"
	MetaSuite    = "suite"
	MetaCheck    = "check"
	MetaSelector = "selector"
	MetaURL      = "url"
	MetaPath     = "path"

	StagePreparation = "preparation"
	StageBrowser     = "browser"
	StageNavigation  = "navigation"
	StageAssertion   = "assertion"
	StageScreenshot  = "screenshot"
	StageSuite       = "suite"
	StageWatch       = "watch"

	CodeInternal        = "internal"
	CodeInvalidArgument = "invalid_argument"
	CodeNotFound        = "not_found"
	CodeTimeout         = "timeout"
	CodeBrowserNotReady = "browser_not_ready"
	CodeCheckFailed     = "check_failed"
	CodeCancelled       = "cancelled"
)

type Error struct {
	Op       string
	Code     string
	Err      error
	Metadata map[string]any
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}

	return e.Op
}

func (e *Error) Unwrap() error {
	return e.Err
}

func Wrap(op, code string, err error, metadata map[string]any) error {
	if metadata == nil {
		metadata = make(map[string]any)
	}

	return &Error{
		Op:       op,
		Code:     code,
		Err:      err,
		Metadata: metadata,
	}
}

func WrapWithReason(op, code string, err error, reason string) error {
	return Wrap(op, code, err, map[string]any{
		MetaReason: reason,
	})
}

func WrapErrorWithReason(op, code, reason string) error {
	return Wrap(op, code, errors.New(reason), map[string]any{
		MetaReason: reason,
	})
}

func InvalidReqError(op, field string, err error) error {
	return Wrap(op, CodeInvalidArgument, err, map[string]any{
		MetaField:  field,
		MetaReason: "invalid_request",
	})
}

func NotFoundError(op string, err error) error {
	return Wrap(op, CodeNotFound, err, map[string]any{
		MetaReason: "not_found",
	})
}

// CodeOf returns the code of the outermost *Error in err's chain, or
// CodeInternal when err carries no code.
func CodeOf(err error) string {
	for e := err; e != nil; {
		appErr, ok := e.(*Error)
		if ok {
			return appErr.Code
		}

		u, ok := e.(interface{ Unwrap() error })
		if !ok {
			break
		}
		e = u.Unwrap()
	}

	return CodeInternal
}
