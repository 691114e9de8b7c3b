package suite

import (
	"path/filepath"
	"testing"

	"extension-verifier/internal/entity"
	"extension-verifier/pkg/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltinPopup(t *testing.T) {
	s, ok := Builtin(SuitePopup, "/tmp/my-extension")
	require.True(t, ok)

	assert.Equal(t, SuitePopup, s.Name)
	assert.Equal(t, entity.TargetExtensionPopup, s.Target.Kind)
	assert.Equal(t, "/tmp/my-extension", s.Target.Path)
	assert.Equal(t, "popup.html", s.Target.Page)

	require.Len(t, s.Checks, 3)
	assert.Equal(t, "h2", s.Checks[0].Selector)
	assert.Equal(t, entity.AssertTextEquals, s.Checks[0].Assert)
	assert.Equal(t, "Click Recorder", s.Checks[0].Want)
	assert.Equal(t, "#startBtn", s.Checks[1].Selector)
	assert.Equal(t, entity.AssertVisible, s.Checks[1].Assert)
	assert.Equal(t, "Start Recording", s.Checks[2].Want)

	for _, c := range s.Checks {
		assert.Positive(t, c.TimeoutMS, "defaults applied")
	}
}

func TestBuiltinPopupDefaultDir(t *testing.T) {
	s, ok := Builtin(SuitePopup, "")
	require.True(t, ok)
	assert.Equal(t, ".", s.Target.Path)
}

func TestBuiltinLoggingPanel(t *testing.T) {
	s, ok := Builtin(SuiteLoggingPanel, "")
	require.True(t, ok)

	assert.Equal(t, entity.TargetLocalFile, s.Target.Kind)
	assert.Equal(t, "popup.html", s.Target.Path)

	require.Len(t, s.Checks, 2)
	assert.Equal(t, "#loggingLevel", s.Checks[0].Selector)
	assert.Equal(t, "#loggingDescription", s.Checks[1].Selector)
	assert.Equal(t, entity.AssertPresent, s.Checks[0].Assert)
}

func TestBuiltinUnknown(t *testing.T) {
	_, ok := Builtin("nope", "")
	assert.False(t, ok)
}

func TestBuiltinReturnsDetachedCopy(t *testing.T) {
	a, ok := Builtin(SuitePopup, "")
	require.True(t, ok)

	a.Checks[0].Want = "mutated"

	b, ok := Builtin(SuitePopup, "")
	require.True(t, ok)
	assert.Equal(t, "Click Recorder", b.Checks[0].Want)
}

func TestLoadFile(t *testing.T) {
	s, err := LoadFile(filepath.Join("testdata", "popup_suite.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "custom-popup", s.Name)
	assert.Equal(t, entity.TargetExtensionPopup, s.Target.Kind)
	assert.Equal(t, "./ext", s.Target.Path)

	require.Len(t, s.Checks, 2)
	assert.Equal(t, "Click Recorder", s.Checks[0].Want)
	assert.Equal(t, 3000, s.Checks[1].TimeoutMS)
	assert.NotEmpty(t, s.Checks[1].Name, "unnamed checks get a generated name")
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"no name": `
target: {kind: local-file, path: popup.html}
checks: [{selector: "h2", assert: present}]`,
		"no checks": `
name: empty
target: {kind: local-file, path: popup.html}
checks: []`,
		"bad target kind": `
name: bad
target: {kind: remote-url, path: popup.html}
checks: [{selector: "h2", assert: present}]`,
		"empty selector": `
name: bad
target: {kind: local-file, path: popup.html}
checks: [{selector: "", assert: present}]`,
		"unknown assert": `
name: bad
target: {kind: local-file, path: popup.html}
checks: [{selector: "h2", assert: glows}]`,
		"text-equals without want": `
name: bad
target: {kind: local-file, path: popup.html}
checks: [{selector: "h2", assert: text-equals}]`,
		"popup without page": `
name: bad
target: {kind: extension-popup, path: .}
checks: [{selector: "h2", assert: present}]`,
	}

	for name, yml := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load([]byte(yml))
			require.Error(t, err)
			assert.Equal(t, apperr.CodeInvalidArgument, apperr.CodeOf(err))
		})
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	_, err := Load([]byte("name: [unclosed"))
	require.Error(t, err)
}

func TestResolveBuiltin(t *testing.T) {
	s, err := Resolve(SuitePopup, "/ext")
	require.NoError(t, err)
	assert.Equal(t, "/ext", s.Target.Path)
}

func TestResolveYAMLPath(t *testing.T) {
	s, err := Resolve(filepath.Join("testdata", "popup_suite.yaml"), "")
	require.NoError(t, err)
	assert.Equal(t, "custom-popup", s.Name)
}

func TestResolveUnknown(t *testing.T) {
	_, err := Resolve("does-not-exist", "")
	require.Error(t, err)
	assert.Equal(t, apperr.CodeNotFound, apperr.CodeOf(err))
}

func TestBuiltinNames(t *testing.T) {
	assert.Equal(t, []string{SuitePopup, SuiteLoggingPanel}, BuiltinNames())
}
