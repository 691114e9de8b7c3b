package suite

import "extension-verifier/internal/entity"

const (
	SuitePopup        = "popup"
	SuiteLoggingPanel = "logging-panel"
)

// Builtin returns one of the shipped suites. extensionDir overrides the
// extension path for suites that load the unpacked extension.
func Builtin(name, extensionDir string) (entity.Suite, bool) {
	switch name {
	case SuitePopup:
		s := clone(popupSuite)
		if extensionDir != "" {
			s.Target.Path = extensionDir
		}
		applyDefaults(&s)

		return s, true
	case SuiteLoggingPanel:
		s := clone(loggingPanelSuite)
		applyDefaults(&s)

		return s, true
	}

	return entity.Suite{}, false
}

// clone detaches the checks slice so callers cannot mutate the templates.
func clone(s entity.Suite) entity.Suite {
	checks := make([]entity.Check, len(s.Checks))
	copy(checks, s.Checks)
	s.Checks = checks

	return s
}

func BuiltinNames() []string {
	return []string{SuitePopup, SuiteLoggingPanel}
}

// popupSuite checks the Click Recorder popup served from the loaded
// extension: heading text, start button visibility and label.
var popupSuite = entity.Suite{
	Name: SuitePopup,
	Target: entity.Target{
		Kind: entity.TargetExtensionPopup,
		Path: ".",
		Page: "popup.html",
	},
	Checks: []entity.Check{
		{
			Name:     "heading text",
			Selector: "h2",
			Assert:   entity.AssertTextEquals,
			Want:     "Click Recorder",
		},
		{
			Name:     "start button visible",
			Selector: "#startBtn",
			Assert:   entity.AssertVisible,
		},
		{
			Name:     "start button label",
			Selector: "#startBtn",
			Assert:   entity.AssertTextEquals,
			Want:     "Start Recording",
		},
	},
}

// loggingPanelSuite checks the logging controls on a popup.html opened
// straight from disk.
var loggingPanelSuite = entity.Suite{
	Name: SuiteLoggingPanel,
	Target: entity.Target{
		Kind: entity.TargetLocalFile,
		Path: "popup.html",
	},
	Checks: []entity.Check{
		{
			Name:     "logging level dropdown",
			Selector: "#loggingLevel",
			Assert:   entity.AssertPresent,
		},
		{
			Name:     "logging description",
			Selector: "#loggingDescription",
			Assert:   entity.AssertPresent,
		},
	},
}
