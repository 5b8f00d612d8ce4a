package source

import (
	"os"
	"path/filepath"

	"github.com/arthur-debert/fuzzgen/pkg/errors"
	"github.com/arthur-debert/fuzzgen/pkg/manifest"
)

// Dir returns a Source reading live from a filesystem directory whose
// immediate subdirectories are templates. Used during template
// development so edits are picked up without rebuilding the binary.
func Dir(root string) Source {
	return &dirSource{root: root}
}

type dirSource struct {
	root string
}

func (s *dirSource) Templates() ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrNotFound,
			"failed to read template directory %q", s.root)
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	return sorted(names), nil
}

func (s *dirSource) Manifest(template string) (*manifest.Manifest, error) {
	data, err := os.ReadFile(filepath.Join(s.root, template, manifest.ManifestFile))
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrTemplateNotFound,
			"template %q has no %s", template, manifest.ManifestFile)
	}
	return manifest.Parse(data)
}

func (s *dirSource) Files(template string) ([]string, error) {
	templateRoot := filepath.Join(s.root, template)
	if _, err := os.Stat(templateRoot); err != nil {
		return nil, errors.Wrapf(err, errors.ErrTemplateNotFound,
			"template %q not found", template)
	}

	var files []string
	err := filepath.WalkDir(templateRoot, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(templateRoot, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if rel == manifest.ManifestFile {
			return nil
		}
		files = append(files, rel)
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrInternal,
			"failed to walk template %q", template)
	}
	return sorted(files), nil
}

func (s *dirSource) ReadFile(template, file string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(s.root, template, filepath.FromSlash(file)))
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrNotFound,
			"template %q has no file %q", template, file)
	}
	return data, nil
}

func (s *dirSource) Location(template string) string {
	return filepath.Join(s.root, template)
}
