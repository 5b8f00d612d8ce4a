package manifest

import (
	"path/filepath"

	"github.com/arthur-debert/fuzzgen/pkg/errors"
	"github.com/arthur-debert/fuzzgen/pkg/types"
)

// ContextOptions are the user selections for one generation request.
type ContextOptions struct {
	ProjectName string

	// TargetName defaults to the base name of ProjectName. It is the
	// name used in template file names, so nested project paths do not
	// leak path separators into identifiers.
	TargetName string

	// Integration defaults to the manifest's integrations.default.
	Integration string

	// Fuzzer defaults to the manifest's fuzzers.default.
	Fuzzer string

	Minimal bool

	// Variables are user-supplied values for manifest-declared
	// variables.
	Variables map[string]string
}

// BuildContext resolves ContextOptions against the manifest into a
// generation context: defaults are filled in, required variables must
// be present, and the selected integration must be a member of the
// supported set.
func (m *Manifest) BuildContext(opts ContextOptions) (*types.Context, error) {
	if opts.ProjectName == "" {
		return nil, errors.New(errors.ErrInvalidInput, "project name is required")
	}

	targetName := opts.TargetName
	if targetName == "" {
		targetName = filepath.Base(opts.ProjectName)
	}

	integration := opts.Integration
	if integration == "" {
		integration = m.DefaultIntegration()
	}
	if m.Integrations != nil && integration != "" && !m.Integrations.Supports(integration) {
		return nil, errors.Newf(errors.ErrUnknownIntegration,
			"integration %q is not supported by template %q (supported: %v)",
			integration, m.Template.Name, m.Integrations.Supported)
	}

	fuzzer := opts.Fuzzer
	if fuzzer == "" {
		fuzzer = m.DefaultFuzzer()
	}
	if m.Fuzzers != nil && fuzzer != "" && !contains(m.Fuzzers.Supported, fuzzer) {
		return nil, errors.Newf(errors.ErrInvalidInput,
			"fuzzer %q is not supported by template %q (supported: %v)",
			fuzzer, m.Template.Name, m.Fuzzers.Supported)
	}

	variables := make(map[string]string, len(m.Variables))
	for name, decl := range m.Variables {
		if value, ok := opts.Variables[name]; ok {
			variables[name] = value
			continue
		}
		if decl.Required {
			return nil, errors.Newf(errors.ErrInvalidInput,
				"required variable %q was not provided", name)
		}
		variables[name] = decl.Default
	}

	return &types.Context{
		ProjectName: opts.ProjectName,
		TargetName:  targetName,
		Integration: integration,
		Fuzzer:      fuzzer,
		Minimal:     opts.Minimal,
		Variables:   variables,
	}, nil
}
