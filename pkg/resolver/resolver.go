// Package resolver computes the concrete set of filesystem obligations
// for one generation: which template files land where, whether their
// content is rendered or copied, and which empty directories must exist.
package resolver

import (
	"path"
	"strings"

	"github.com/arthur-debert/fuzzgen/pkg/errors"
	"github.com/arthur-debert/fuzzgen/pkg/logging"
	"github.com/arthur-debert/fuzzgen/pkg/manifest"
	"github.com/arthur-debert/fuzzgen/pkg/render"
	"github.com/arthur-debert/fuzzgen/pkg/types"
)

var log = logging.GetLogger("resolver")

// Plan is the resolved output: ordered file obligations (deduplicated
// by destination) plus directory-creation obligations.
type Plan struct {
	Files []types.PlannedFile
	Dirs  []types.PlannedDir
}

// Resolve computes the plan for the given manifest, context and
// template file listing.
//
// Files covered by an explicit FileRule are governed solely by that
// rule's condition. All other files follow the conventions:
// always_include prefixes are always in, full_mode_only prefixes are
// dropped in minimal mode, everything else is included. Rules are
// applied in manifest order and deduplication is by rendered
// destination with last rule winning; conflicting destinations are
// reported loudly since a silent override usually means two rules
// disagree about the same file.
func Resolve(m *manifest.Manifest, ctx *types.Context, files []string) (*Plan, error) {
	ruled := make(map[string]bool)
	for _, rule := range m.Files {
		for _, p := range rule.Paths {
			ruled[p] = true
		}
	}

	plan := &Plan{}
	byDest := make(map[string]int)

	add := func(f types.PlannedFile) {
		if i, ok := byDest[f.Dest]; ok {
			prev := plan.Files[i]
			log.Warn().
				Str("dest", f.Dest).
				Str("winner", f.Rule).
				Str("loser", prev.Rule).
				Msg("Conflicting destination; last rule wins")
			plan.Files[i] = f
			return
		}
		byDest[f.Dest] = len(plan.Files)
		plan.Files = append(plan.Files, f)
	}

	// Convention-governed files first, in listing order, so rules added
	// later in the manifest can supersede them.
	for _, p := range files {
		if ruled[p] {
			continue
		}
		if !includeByConvention(&m.FileConventions, p, ctx) {
			continue
		}
		dest, err := render.Render(p, ctx)
		if err != nil {
			return nil, err
		}
		add(types.PlannedFile{
			Source:     p,
			Dest:       dest,
			Template:   templateByExtension(&m.FileConventions, p),
			Executable: executableByExtension(&m.FileConventions, p),
			Rule:       "conventions",
		})
	}

	known := make(map[string]bool, len(files))
	for _, p := range files {
		known[p] = true
	}

	for i := range m.Files {
		rule := &m.Files[i]
		if rule.Expr != nil {
			ok, err := rule.Expr.Eval(ctx)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
		}
		for _, p := range rule.Paths {
			if !known[p] {
				return nil, errors.Newf(errors.ErrResolveRule,
					"file rule names %q but the template has no such file", p).
					WithDetail("condition", rule.Condition)
			}
			dest, err := render.Render(p, ctx)
			if err != nil {
				return nil, err
			}
			tmpl := templateByExtension(&m.FileConventions, p)
			if rule.Template != nil {
				tmpl = *rule.Template
			}
			add(types.PlannedFile{
				Source:     p,
				Dest:       dest,
				Template:   tmpl,
				Executable: rule.Executable || executableByExtension(&m.FileConventions, p),
				Rule:       ruleName(rule),
			})
		}
	}

	// Directory obligations are distinct from file obligations: a
	// genuinely empty corpus directory has no file whose parent would
	// create it.
	for _, dir := range m.Directories {
		if !dir.CreateEmpty {
			continue
		}
		rendered, err := render.Render(dir.Path, ctx)
		if err != nil {
			return nil, err
		}
		plan.Dirs = append(plan.Dirs, types.PlannedDir{Path: rendered})
	}

	log.Debug().
		Int("files", len(plan.Files)).
		Int("dirs", len(plan.Dirs)).
		Str("integration", ctx.Integration).
		Str("mode", ctx.ModeName()).
		Msg("Plan resolved")

	return plan, nil
}

func includeByConvention(c *manifest.Conventions, p string, ctx *types.Context) bool {
	for _, prefix := range c.AlwaysInclude {
		if hasPathPrefix(p, prefix) {
			return true
		}
	}
	if ctx.Minimal {
		for _, prefix := range c.FullModeOnly {
			if hasPathPrefix(p, prefix) {
				return false
			}
		}
	}
	return true
}

// hasPathPrefix matches whole path segments, so "src" covers
// "src/lib.c" but not "srcdir/lib.c".
func hasPathPrefix(p, prefix string) bool {
	if p == prefix {
		return true
	}
	return strings.HasPrefix(p, prefix+"/")
}

func templateByExtension(c *manifest.Conventions, p string) bool {
	ext := path.Ext(p)
	for _, e := range c.NoTemplateExtensions {
		if e == ext {
			return false
		}
	}
	// Everything not explicitly opted out is templated; the
	// template_extensions list documents the common cases.
	return true
}

func executableByExtension(c *manifest.Conventions, p string) bool {
	ext := path.Ext(p)
	for _, e := range c.ExecutableExtensions {
		if e == ext {
			return true
		}
	}
	return false
}

func ruleName(rule *manifest.FileRule) string {
	if rule.Condition != "" {
		return rule.Condition
	}
	return "files[" + strings.Join(rule.Paths, ",") + "]"
}
