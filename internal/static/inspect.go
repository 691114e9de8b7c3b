// Package static inspects a popup HTML document without launching a
// browser: it reports which of a suite's selectors match the parsed DOM.
// Useful as a pre-flight before the real run, since a missing selector in
// the static markup can never pass in the browser either.
package static

import (
	"io"
	"os"
	"strings"

	"extension-verifier/internal/entity"
	"extension-verifier/pkg/apperr"

	"github.com/PuerkitoBio/goquery"
)

type Finding struct {
	Check   entity.Check
	Matched bool
	Matches int
	Text    string
}

type Report struct {
	Path     string
	Findings []Finding
}

// Missing returns the findings whose selectors matched nothing.
func (r *Report) Missing() []Finding {
	var missing []Finding

	for _, f := range r.Findings {
		if !f.Matched {
			missing = append(missing, f)
		}
	}

	return missing
}

func Inspect(path string, s entity.Suite) (*Report, error) {
	const op = "static.Inspect"

	f, err := os.Open(path)
	if err != nil {
		return nil, apperr.Wrap(op, apperr.CodeNotFound, err, map[string]any{
			apperr.MetaReason: "html_file_unreadable",
			apperr.MetaStage:  apperr.StagePreparation,
			apperr.MetaPath:   path,
		})
	}
	defer f.Close()

	findings, err := InspectReader(f, s)
	if err != nil {
		return nil, err
	}

	return &Report{Path: path, Findings: findings}, nil
}

func InspectReader(r io.Reader, s entity.Suite) ([]Finding, error) {
	const op = "static.InspectReader"

	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, apperr.Wrap(op, apperr.CodeInvalidArgument, err, map[string]any{
			apperr.MetaReason: "html_parse_failed",
			apperr.MetaStage:  apperr.StagePreparation,
		})
	}

	findings := make([]Finding, 0, len(s.Checks))

	for _, check := range s.Checks {
		sel := doc.Find(check.Selector)

		finding := Finding{
			Check:   check,
			Matched: sel.Length() > 0,
			Matches: sel.Length(),
		}

		if finding.Matched {
			finding.Text = strings.TrimSpace(sel.First().Text())
		}

		findings = append(findings, finding)
	}

	return findings, nil
}
