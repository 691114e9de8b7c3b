package static

import (
	"path/filepath"
	"strings"
	"testing"

	"extension-verifier/internal/entity"
	"extension-verifier/internal/suite"
	"extension-verifier/pkg/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInspectPopupSuite(t *testing.T) {
	s, ok := suite.Builtin(suite.SuitePopup, "")
	require.True(t, ok)

	report, err := Inspect(filepath.Join("testdata", "popup.html"), s)
	require.NoError(t, err)

	require.Len(t, report.Findings, 3)
	assert.Empty(t, report.Missing())

	heading := report.Findings[0]
	assert.Equal(t, "h2", heading.Check.Selector)
	assert.True(t, heading.Matched)
	assert.Equal(t, "Click Recorder", heading.Text)

	button := report.Findings[1]
	assert.Equal(t, 1, button.Matches)
}

func TestInspectLoggingPanelSuite(t *testing.T) {
	s, ok := suite.Builtin(suite.SuiteLoggingPanel, "")
	require.True(t, ok)

	report, err := Inspect(filepath.Join("testdata", "popup.html"), s)
	require.NoError(t, err)

	assert.Empty(t, report.Missing())
	assert.Equal(t, "Records every click with full event details.", report.Findings[1].Text)
}

func TestInspectReportsMissingSelectors(t *testing.T) {
	s := entity.Suite{
		Name:   "missing",
		Target: entity.Target{Kind: entity.TargetLocalFile, Path: "popup.html"},
		Checks: []entity.Check{
			{Name: "present", Selector: "#startBtn", Assert: entity.AssertPresent},
			{Name: "absent", Selector: "#pauseBtn", Assert: entity.AssertPresent},
		},
	}

	report, err := Inspect(filepath.Join("testdata", "popup.html"), s)
	require.NoError(t, err)

	missing := report.Missing()
	require.Len(t, missing, 1)
	assert.Equal(t, "#pauseBtn", missing[0].Check.Selector)
	assert.Equal(t, 0, missing[0].Matches)
}

func TestInspectReaderCountsMatches(t *testing.T) {
	html := `<html><body><li class="item">a</li><li class="item">b</li></body></html>`

	s := entity.Suite{
		Checks: []entity.Check{
			{Name: "items", Selector: "li.item", Assert: entity.AssertPresent},
		},
	}

	findings, err := InspectReader(strings.NewReader(html), s)
	require.NoError(t, err)

	require.Len(t, findings, 1)
	assert.Equal(t, 2, findings[0].Matches)
	assert.Equal(t, "a", findings[0].Text, "text comes from the first match")
}

func TestInspectMissingFile(t *testing.T) {
	s, _ := suite.Builtin(suite.SuitePopup, "")

	_, err := Inspect(filepath.Join(t.TempDir(), "nope.html"), s)
	require.Error(t, err)
	assert.Equal(t, apperr.CodeNotFound, apperr.CodeOf(err))
}
