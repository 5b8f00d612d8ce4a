// Package manifest defines the declarative per-template configuration
// (template.toml) and its loader. A manifest is loaded once per
// invocation and is read-only thereafter.
package manifest

import (
	"github.com/arthur-debert/fuzzgen/pkg/condition"
)

// ManifestFile is the well-known name of the manifest within a
// template's directory tree.
const ManifestFile = "template.toml"

// Manifest is the in-memory representation of one template's
// declarative configuration.
type Manifest struct {
	Template        Info                      `toml:"template"`
	Variables       map[string]Variable       `toml:"variables"`
	Fuzzers         *FuzzerSet                `toml:"fuzzers"`
	Integrations    *IntegrationSet           `toml:"integrations"`
	FileConventions Conventions               `toml:"file_conventions"`
	Files           []FileRule                `toml:"files"`
	Directories     []DirectoryRule           `toml:"directories"`
	Validation      Validation                `toml:"validation"`

	// PostGenerationMessage is a markdown template rendered once after
	// generation and shown to the user.
	PostGenerationMessage string `toml:"post_generation_message"`
}

// Info is the immutable template metadata.
type Info struct {
	Name        string `toml:"name"`
	Description string `toml:"description"`
	Version     string `toml:"version"`
}

// Variable declares one manifest variable. Variables referenced in file
// rules, conditions or content must be declared here or be one of the
// fixed built-ins (project_name, target_name, integration, fuzzer,
// minimal).
type Variable struct {
	Default     string `toml:"default"`
	Required    bool   `toml:"required"`
	Description string `toml:"description"`
}

// FuzzerSet declares the fuzz tools a template can target.
type FuzzerSet struct {
	Supported []string       `toml:"supported"`
	Default   string         `toml:"default"`
	Options   []FuzzerOption `toml:"options"`
}

// FuzzerOption describes one fuzz tool choice. Requires names the
// external binary that must be present on the host for validation cells
// using this tool to run; absent binaries turn cells into Skipped.
type FuzzerOption struct {
	Name        string `toml:"name"`
	DisplayName string `toml:"display_name"`
	Description string `toml:"description"`
	Requires    string `toml:"requires"`
}

// Option returns the FuzzerOption with the given name, or nil.
func (f *FuzzerSet) Option(name string) *FuzzerOption {
	for i := range f.Options {
		if f.Options[i].Name == name {
			return &f.Options[i]
		}
	}
	return nil
}

// IntegrationSet declares the build-system integrations a template
// supports, plus the default.
type IntegrationSet struct {
	Supported []string            `toml:"supported"`
	Default   string              `toml:"default"`
	Options   []IntegrationOption `toml:"options"`
}

// IntegrationOption carries user-facing metadata for one integration.
type IntegrationOption struct {
	Name        string `toml:"name"`
	Description string `toml:"description"`
}

// Supports reports whether name is a member of the supported set.
func (s *IntegrationSet) Supports(name string) bool {
	for _, n := range s.Supported {
		if n == name {
			return true
		}
	}
	return false
}

// Conventions are the default inclusion and templating rules applied to
// files no explicit FileRule covers.
type Conventions struct {
	// AlwaysInclude lists directory prefixes whose files are always
	// materialized, regardless of mode.
	AlwaysInclude []string `toml:"always_include"`

	// FullModeOnly lists directory prefixes materialized only in full
	// mode.
	FullModeOnly []string `toml:"full_mode_only"`

	// TemplateExtensions lists extensions whose content passes through
	// the renderer by default.
	TemplateExtensions []string `toml:"template_extensions"`

	// NoTemplateExtensions lists extensions copied byte-for-byte.
	NoTemplateExtensions []string `toml:"no_template_extensions"`

	// ExecutableExtensions lists extensions written with the executable
	// bit set.
	ExecutableExtensions []string `toml:"executable_extensions"`
}

// FileRule gates one or more template paths behind a condition and
// overrides the convention-derived templating/executable flags.
type FileRule struct {
	// Condition gates the rule; empty means always included.
	Condition string `toml:"condition"`

	// Paths is the ordered sequence of template paths the rule covers.
	Paths []string `toml:"paths"`

	// Path is the singular form kept for manifest ergonomics; the
	// loader folds it into Paths.
	Path string `toml:"path"`

	Executable bool `toml:"executable"`

	// Template overrides the extension-derived templating default when
	// set. nil means "fall back to conventions".
	Template *bool `toml:"template"`

	// Expr is the condition compiled at load time. Empty conditions
	// leave it nil.
	Expr condition.Expr `toml:"-"`
}

// DirectoryRule declares a directory obligation, used for corpus/seed
// directories that must exist but contain no templated content.
type DirectoryRule struct {
	Path        string `toml:"path"`
	CreateEmpty bool   `toml:"create_empty"`
}

// Validation holds the per-template validation matrix commands.
type Validation struct {
	Commands []ValidationCase `toml:"commands"`
}

// ValidationCase is one buildable configuration: the steps run inside a
// generated workspace and the files expected to exist afterwards.
type ValidationCase struct {
	Name      string `toml:"name"`
	Condition string `toml:"condition"`

	// Dir is the working-directory template, relative to the workspace
	// root. Empty means the workspace root itself.
	Dir string `toml:"dir"`

	// Steps is the ordered argv list to run.
	Steps [][]string `toml:"steps"`

	// VerifyFiles lists path templates that must exist after the steps
	// succeed.
	VerifyFiles []string `toml:"verify_files"`

	// Expr is the condition compiled at load time.
	Expr condition.Expr `toml:"-"`
}

// DefaultIntegration returns the manifest's default integration, or
// empty when the template declares none.
func (m *Manifest) DefaultIntegration() string {
	if m.Integrations == nil {
		return ""
	}
	return m.Integrations.Default
}

// DefaultFuzzer returns the manifest's default fuzz tool, or empty.
func (m *Manifest) DefaultFuzzer() string {
	if m.Fuzzers == nil {
		return ""
	}
	return m.Fuzzers.Default
}

// SupportedIntegrations returns the integration identifiers the
// template supports. Templates without an [integrations] block support
// exactly one implicit "standalone" integration.
func (m *Manifest) SupportedIntegrations() []string {
	if m.Integrations == nil || len(m.Integrations.Supported) == 0 {
		return []string{"standalone"}
	}
	return m.Integrations.Supported
}

// SupportedFuzzers returns the fuzz tool identifiers the template
// supports, or a single empty identifier for templates without a
// [fuzzers] block.
func (m *Manifest) SupportedFuzzers() []string {
	if m.Fuzzers == nil || len(m.Fuzzers.Supported) == 0 {
		return []string{""}
	}
	return m.Fuzzers.Supported
}
