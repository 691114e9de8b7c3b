// Package suite holds verification suite definitions: the built-in suites
// and a YAML loader for user-declared ones.
package suite

import (
	"fmt"
	"os"
	"strings"

	"extension-verifier/internal/entity"
	"extension-verifier/pkg/apperr"

	"gopkg.in/yaml.v3"
)

const defaultCheckTimeout = 10000

// Load parses a YAML suite definition and validates it.
func Load(data []byte) (entity.Suite, error) {
	const op = "suite.Load"

	var s entity.Suite

	if err := yaml.Unmarshal(data, &s); err != nil {
		return entity.Suite{}, apperr.Wrap(op, apperr.CodeInvalidArgument, err, map[string]any{
			apperr.MetaReason: "yaml_unmarshal_failed",
			apperr.MetaStage:  apperr.StageSuite,
		})
	}

	if err := Validate(s); err != nil {
		return entity.Suite{}, err
	}

	applyDefaults(&s)

	return s, nil
}

func LoadFile(path string) (entity.Suite, error) {
	const op = "suite.LoadFile"

	data, err := os.ReadFile(path)
	if err != nil {
		return entity.Suite{}, apperr.Wrap(op, apperr.CodeNotFound, err, map[string]any{
			apperr.MetaReason: "suite_file_unreadable",
			apperr.MetaStage:  apperr.StageSuite,
			apperr.MetaPath:   path,
		})
	}

	return Load(data)
}

// Resolve returns the suite named by ref: a built-in suite name, or a path
// to a YAML file when ref ends in .yaml/.yml.
func Resolve(ref, extensionDir string) (entity.Suite, error) {
	const op = "suite.Resolve"

	if strings.HasSuffix(ref, ".yaml") || strings.HasSuffix(ref, ".yml") {
		return LoadFile(ref)
	}

	s, ok := Builtin(ref, extensionDir)
	if !ok {
		return entity.Suite{}, apperr.Wrap(op, apperr.CodeNotFound, fmt.Errorf("unknown suite %q", ref), map[string]any{
			apperr.MetaReason: "unknown_suite",
			apperr.MetaSuite:  ref,
		})
	}

	return s, nil
}

func Validate(s entity.Suite) error {
	const op = "suite.Validate"

	if s.Name == "" {
		return apperr.InvalidReqError(op, "name", fmt.Errorf("suite name is empty"))
	}

	switch s.Target.Kind {
	case entity.TargetExtensionPopup:
		if s.Target.Path == "" {
			return apperr.InvalidReqError(op, "target.path", fmt.Errorf("extension-popup target needs an extension directory"))
		}
		if s.Target.Page == "" {
			return apperr.InvalidReqError(op, "target.page", fmt.Errorf("extension-popup target needs a page"))
		}
	case entity.TargetLocalFile:
		if s.Target.Path == "" {
			return apperr.InvalidReqError(op, "target.path", fmt.Errorf("local-file target needs a path"))
		}
	default:
		return apperr.InvalidReqError(op, "target.kind", fmt.Errorf("unknown target kind %q", s.Target.Kind))
	}

	if len(s.Checks) == 0 {
		return apperr.InvalidReqError(op, "checks", fmt.Errorf("suite has no checks"))
	}

	for i, c := range s.Checks {
		if c.Selector == "" {
			return apperr.InvalidReqError(op, fmt.Sprintf("checks[%d].selector", i), fmt.Errorf("selector is empty"))
		}

		switch c.Assert {
		case entity.AssertPresent, entity.AssertVisible:
		case entity.AssertTextEquals:
			if c.Want == "" {
				return apperr.InvalidReqError(op, fmt.Sprintf("checks[%d].want", i), fmt.Errorf("text-equals needs expected text"))
			}
		default:
			return apperr.InvalidReqError(op, fmt.Sprintf("checks[%d].assert", i), fmt.Errorf("unknown assertion kind %q", c.Assert))
		}
	}

	return nil
}

func applyDefaults(s *entity.Suite) {
	for i := range s.Checks {
		if s.Checks[i].TimeoutMS <= 0 {
			s.Checks[i].TimeoutMS = defaultCheckTimeout
		}
		if s.Checks[i].Name == "" {
			s.Checks[i].Name = fmt.Sprintf("%s %s", s.Checks[i].Assert, s.Checks[i].Selector)
		}
	}
}
