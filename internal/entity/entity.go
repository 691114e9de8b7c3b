package entity

import (
	"time"

	"github.com/google/uuid"
)

type Run struct {
	ID         uuid.UUID
	Suite      string
	Status     RunStatus
	StartedAt  time.Time
	FinishedAt *time.Time
	Screenshot string
	Results    []CheckResult
	Error      string
}

type RunStatus string

const (
	RunStatusPending    RunStatus = "pending"
	RunStatusInProgress RunStatus = "in_progress"
	RunStatusCompleted  RunStatus = "completed"
	RunStatusFailed     RunStatus = "failed"
)

// Passed reports whether every check in the run passed. A run that never
// produced results (aborted before the first check) did not pass.
func (r *Run) Passed() bool {
	if len(r.Results) == 0 {
		return false
	}

	for _, res := range r.Results {
		if !res.Passed {
			return false
		}
	}

	return true
}

func (r *Run) FailedChecks() []CheckResult {
	var failed []CheckResult

	for _, res := range r.Results {
		if !res.Passed {
			failed = append(failed, res)
		}
	}

	return failed
}

type Suite struct {
	Name   string  `yaml:"name"`
	Target Target  `yaml:"target"`
	Checks []Check `yaml:"checks"`
}

type Target struct {
	Kind TargetKind `yaml:"kind"`
	// Path is the extension directory for extension-popup targets, or the
	// HTML file for local-file targets. Relative paths resolve against the
	// working directory, matching the original scripts.
	Path string `yaml:"path"`
	// Page is the document inside the extension, e.g. "popup.html".
	Page string `yaml:"page"`
}

// ExtensionDir returns the unpacked extension directory the browser must
// load for this target, or "" when none is needed.
func (t Target) ExtensionDir() string {
	if t.Kind == TargetExtensionPopup {
		return t.Path
	}

	return ""
}

type TargetKind string

const (
	TargetExtensionPopup TargetKind = "extension-popup"
	TargetLocalFile      TargetKind = "local-file"
)

type Check struct {
	Name      string     `yaml:"name"`
	Selector  string     `yaml:"selector"`
	Assert    AssertKind `yaml:"assert"`
	Want      string     `yaml:"want"`
	TimeoutMS int        `yaml:"timeout_ms"`
}

type AssertKind string

const (
	AssertPresent    AssertKind = "present"
	AssertVisible    AssertKind = "visible"
	AssertTextEquals AssertKind = "text-equals"
)

type CheckResult struct {
	Check   Check
	Passed  bool
	Got     string
	Error   string
	Elapsed time.Duration
}
