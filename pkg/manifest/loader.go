package manifest

import (
	"strings"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/arthur-debert/fuzzgen/pkg/condition"
	"github.com/arthur-debert/fuzzgen/pkg/errors"
	"github.com/arthur-debert/fuzzgen/pkg/logging"
	"github.com/arthur-debert/fuzzgen/pkg/types"
)

var log = logging.GetLogger("manifest")

// Parse loads a template manifest from template.toml bytes. It is a
// pure parse with no side effects: malformed TOML fails with
// MANIFEST_PARSE, absent required keys with MANIFEST_MISSING_FIELD, and
// an integrations.default outside integrations.supported with
// MANIFEST_UNKNOWN_INTEGRATION. Conditions are compiled here, once, so
// generation never re-parses expression strings.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, errors.Wrap(err, errors.ErrManifestParse, "malformed template.toml")
	}

	m.normalize()
	if err := m.validate(); err != nil {
		return nil, err
	}

	log.Debug().
		Str("template", m.Template.Name).
		Str("version", m.Template.Version).
		Int("fileRules", len(m.Files)).
		Int("validationCases", len(m.Validation.Commands)).
		Msg("Manifest loaded")

	return &m, nil
}

// normalize folds singular `path` keys into `paths`.
func (m *Manifest) normalize() {
	for i := range m.Files {
		rule := &m.Files[i]
		if rule.Path != "" {
			rule.Paths = append([]string{rule.Path}, rule.Paths...)
			rule.Path = ""
		}
	}
}

func (m *Manifest) validate() error {
	if m.Template.Name == "" {
		return missingField("template.name")
	}
	if m.Template.Version == "" {
		return missingField("template.version")
	}

	if m.Integrations != nil {
		if m.Integrations.Default == "" {
			return missingField("integrations.default")
		}
		if !m.Integrations.Supports(m.Integrations.Default) {
			return errors.Newf(errors.ErrUnknownIntegration,
				"integrations.default %q is not in integrations.supported %v",
				m.Integrations.Default, m.Integrations.Supported)
		}
	}

	if m.Fuzzers != nil {
		if m.Fuzzers.Default == "" {
			return missingField("fuzzers.default")
		}
		if !contains(m.Fuzzers.Supported, m.Fuzzers.Default) {
			return errors.Newf(errors.ErrInvalidInput,
				"fuzzers.default %q is not in fuzzers.supported %v",
				m.Fuzzers.Default, m.Fuzzers.Supported)
		}
	}

	for i := range m.Files {
		rule := &m.Files[i]
		if len(rule.Paths) == 0 {
			return missingField("files.paths")
		}
		if err := m.compileCondition(rule.Condition, &rule.Expr); err != nil {
			return err
		}
		for _, p := range rule.Paths {
			if err := m.checkPathVars(p); err != nil {
				return err
			}
		}
	}

	for _, dir := range m.Directories {
		if dir.Path == "" {
			return missingField("directories.path")
		}
		if err := m.checkPathVars(dir.Path); err != nil {
			return err
		}
	}

	for i := range m.Validation.Commands {
		cmd := &m.Validation.Commands[i]
		if cmd.Name == "" {
			return missingField("validation.commands.name")
		}
		if len(cmd.Steps) == 0 {
			return missingField("validation.commands.steps")
		}
		if err := m.compileCondition(cmd.Condition, &cmd.Expr); err != nil {
			return err
		}
		if err := m.checkPathVars(cmd.Dir); err != nil {
			return err
		}
		for _, p := range cmd.VerifyFiles {
			if err := m.checkPathVars(p); err != nil {
				return err
			}
		}
	}

	return nil
}

// compileCondition parses a condition string into dst and verifies that
// every variable it references is declared or built in.
func (m *Manifest) compileCondition(src string, dst *condition.Expr) error {
	if src == "" {
		return nil
	}
	expr, err := condition.Parse(src)
	if err != nil {
		return err
	}
	for _, name := range condition.Variables(expr) {
		if !m.declared(name) {
			return errors.Newf(errors.ErrUnknownVariable,
				"condition %q references undeclared variable %q", src, name)
		}
	}
	*dst = expr
	return nil
}

// checkPathVars verifies that every {{var}} marker in a path template
// names a declared or built-in variable.
func (m *Manifest) checkPathVars(path string) error {
	for _, name := range pathVars(path) {
		if !m.declared(name) {
			return errors.Newf(errors.ErrUnknownVariable,
				"path %q references undeclared variable %q", path, name)
		}
	}
	return nil
}

func (m *Manifest) declared(name string) bool {
	switch name {
	case types.VarProjectName, types.VarTargetName, types.VarIntegration,
		types.VarFuzzer, types.VarMinimal:
		return true
	}
	_, ok := m.Variables[name]
	return ok
}

// pathVars extracts {{var}} marker names from a path template.
func pathVars(path string) []string {
	var names []string
	for {
		open := strings.Index(path, "{{")
		if open < 0 {
			return names
		}
		rest := path[open+2:]
		close := strings.Index(rest, "}}")
		if close < 0 {
			return names
		}
		name := strings.TrimSpace(rest[:close])
		if isIdent(name) {
			names = append(names, name)
		}
		path = rest[close+2:]
	}
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '_' && (c < 'a' || c > 'z') && (c < 'A' || c > 'Z') && (c < '0' || c > '9') {
			return false
		}
	}
	return true
}

func missingField(field string) error {
	return errors.Newf(errors.ErrManifestMissingField,
		"manifest is missing required field %q", field)
}

func contains(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}
