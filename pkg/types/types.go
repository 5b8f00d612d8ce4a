// Package types holds the shared data model for template generation:
// the generation context, planned filesystem obligations, and rendered
// file payloads that flow between the resolver, renderer and pipeline.
package types

// Built-in variable names that are always bound in a generation context,
// independent of the manifest's [variables] table.
const (
	VarProjectName = "project_name"
	VarTargetName  = "target_name"
	VarIntegration = "integration"
	VarFuzzer      = "fuzzer"
	VarMinimal     = "minimal"
)

// Context is the ephemeral per-generation variable binding: resolved
// variables, the selected integration, mode and default fuzzer. It is
// constructed fresh per generation request and discarded after use.
type Context struct {
	ProjectName string
	TargetName  string
	Integration string
	Fuzzer      string
	Minimal     bool

	// Variables holds manifest-declared variables with defaults filled
	// in. Built-ins take precedence on lookup.
	Variables map[string]string
}

// Lookup resolves a variable name to its string value. Booleans are
// represented as "true"/"false" so the condition evaluator and renderer
// share one lookup path.
func (c *Context) Lookup(name string) (string, bool) {
	switch name {
	case VarProjectName:
		return c.ProjectName, true
	case VarTargetName:
		return c.TargetName, true
	case VarIntegration:
		return c.Integration, true
	case VarFuzzer:
		return c.Fuzzer, true
	case VarMinimal:
		if c.Minimal {
			return "true", true
		}
		return "false", true
	}
	v, ok := c.Variables[name]
	return v, ok
}

// Full reports whether the context selects full mode (the inverse of
// minimal mode).
func (c *Context) Full() bool {
	return !c.Minimal
}

// ModeName returns the human-readable mode name used in reports and
// workspace names.
func (c *Context) ModeName() string {
	if c.Minimal {
		return "minimal"
	}
	return "full"
}

// PlannedFile is one file obligation computed by the resolver: copy or
// render Source from the template into Dest under the destination root.
type PlannedFile struct {
	// Source is the file's path within the template tree, unrendered.
	Source string

	// Dest is the rendered destination path, relative to the
	// destination root.
	Dest string

	// Template selects content rendering; false means byte-for-byte copy.
	Template bool

	// Executable sets the executable bit on the written file.
	Executable bool

	// Rule names the file rule (or convention) that produced this
	// obligation, for conflict diagnostics.
	Rule string
}

// PlannedDir is a directory-creation obligation. Directories planned
// with create_empty must exist even when no file ever lands in them.
type PlannedDir struct {
	// Path is the rendered directory path relative to the destination root.
	Path string
}

// RenderedFile is a transient fully-rendered file ready to be written.
type RenderedFile struct {
	Dest       string
	Content    []byte
	Executable bool
}
