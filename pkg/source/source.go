// Package source abstracts where template bytes come from: the asset
// table embedded in the binary for release use, or a live filesystem
// tree for template development. The implementation is selected once at
// process start; everything downstream sees the same interface.
package source

import (
	"sort"

	"github.com/arthur-debert/fuzzgen/pkg/manifest"
)

// Source yields template manifests and file bytes by template name.
type Source interface {
	// Templates lists the available template names, sorted.
	Templates() ([]string, error)

	// Manifest loads and validates the named template's template.toml.
	Manifest(template string) (*manifest.Manifest, error)

	// Files lists the template's file paths relative to its root,
	// sorted, excluding the manifest itself.
	Files(template string) ([]string, error)

	// ReadFile returns the bytes of one template file.
	ReadFile(template, path string) ([]byte, error)

	// Location returns the filesystem path of the template's root, or
	// "" when the source is not filesystem-backed.
	Location(template string) string
}

func sorted(names []string) []string {
	sort.Strings(names)
	return names
}
