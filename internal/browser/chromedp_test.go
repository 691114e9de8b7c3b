package browser

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVisibilityScriptQuotesSelector(t *testing.T) {
	script := visibilityScript("#startBtn")
	assert.Contains(t, script, `document.querySelector("#startBtn")`)
}

func TestVisibilityScriptEscapesQuotesAndBackslashes(t *testing.T) {
	cases := map[string]struct {
		selector string
		want     string
	}{
		"single quotes": {
			selector: `a[name='recorder']`,
			want:     `document.querySelector("a[name='recorder']")`,
		},
		"double quotes": {
			selector: `a[name="recorder"]`,
			want:     `document.querySelector("a[name=\"recorder\"]")`,
		},
		"escaped id": {
			selector: `#\31 23`,
			want:     `document.querySelector("#\\31 23")`,
		},
		"trailing backslash": {
			selector: `h2\`,
			want:     `document.querySelector("h2\\")`,
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			script := visibilityScript(tc.selector)
			assert.Contains(t, script, tc.want)

			// The literal must stay closed: everything after it belongs to
			// the script, not the selector.
			assert.True(t, strings.Contains(script, tc.want+";"),
				"selector literal should terminate before the statement end")
		})
	}
}
