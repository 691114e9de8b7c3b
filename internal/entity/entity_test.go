package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRunPassed(t *testing.T) {
	run := &Run{
		Results: []CheckResult{
			{Check: Check{Name: "a"}, Passed: true},
			{Check: Check{Name: "b"}, Passed: true},
		},
	}
	assert.True(t, run.Passed())

	run.Results[1].Passed = false
	assert.False(t, run.Passed())
}

func TestRunPassedNoResults(t *testing.T) {
	run := &Run{}
	assert.False(t, run.Passed(), "a run that never checked anything did not pass")
}

func TestRunFailedChecks(t *testing.T) {
	run := &Run{
		Results: []CheckResult{
			{Check: Check{Name: "a"}, Passed: true},
			{Check: Check{Name: "b"}, Passed: false, Error: "expected x"},
			{Check: Check{Name: "c"}, Passed: false, Error: "not visible"},
		},
	}

	failed := run.FailedChecks()
	assert.Len(t, failed, 2)
	assert.Equal(t, "b", failed[0].Check.Name)
	assert.Equal(t, "c", failed[1].Check.Name)
}

func TestTargetExtensionDir(t *testing.T) {
	popup := Target{Kind: TargetExtensionPopup, Path: "/ext", Page: "popup.html"}
	assert.Equal(t, "/ext", popup.ExtensionDir())

	local := Target{Kind: TargetLocalFile, Path: "popup.html"}
	assert.Empty(t, local.ExtensionDir())
}
