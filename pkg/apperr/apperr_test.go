package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapCarriesMetadata(t *testing.T) {
	base := fmt.Errorf("boom")

	err := Wrap("Navigate", CodeTimeout, base, map[string]any{
		MetaReason: "goto_failed",
		MetaURL:    "chrome-extension://abc/popup.html",
	})

	var appErr *Error
	require.True(t, errors.As(err, &appErr))

	assert.Equal(t, "Navigate", appErr.Op)
	assert.Equal(t, CodeTimeout, appErr.Code)
	assert.Equal(t, "goto_failed", appErr.Metadata[MetaReason])
	assert.ErrorIs(t, err, base)
	assert.Equal(t, "Navigate: boom", err.Error())
}

func TestWrapNilMetadata(t *testing.T) {
	err := Wrap("Close", CodeInternal, fmt.Errorf("x"), nil)

	var appErr *Error
	require.True(t, errors.As(err, &appErr))
	assert.NotNil(t, appErr.Metadata)
}

func TestCodeOf(t *testing.T) {
	inner := WrapErrorWithReason("WaitForSelector", CodeTimeout, "wait_selector_timeout")
	outer := fmt.Errorf("run aborted: %w", inner)

	assert.Equal(t, CodeTimeout, CodeOf(outer))
	assert.Equal(t, CodeInternal, CodeOf(fmt.Errorf("plain")))
	assert.Equal(t, CodeInternal, CodeOf(nil))
}

func TestWrapErrorWithReasonKeepsReasonLiteral(t *testing.T) {
	// Reasons are opaque strings; % signs (selectors, URL-encoded paths)
	// must survive untouched.
	err := WrapErrorWithReason("Navigate", CodeInternal, "bad path %2Fpopup.html %s")

	var appErr *Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "bad path %2Fpopup.html %s", appErr.Err.Error())
	assert.Equal(t, "bad path %2Fpopup.html %s", appErr.Metadata[MetaReason])
}

func TestErrorWithoutCause(t *testing.T) {
	err := &Error{Op: "Launch", Code: CodeBrowserNotReady}
	assert.Equal(t, "Launch", err.Error())
	assert.Nil(t, errors.Unwrap(err))
}

func TestInvalidReqError(t *testing.T) {
	err := InvalidReqError("suite.Validate", "checks[0].selector", fmt.Errorf("selector is empty"))

	var appErr *Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, CodeInvalidArgument, appErr.Code)
	assert.Equal(t, "checks[0].selector", appErr.Metadata[MetaField])
}
