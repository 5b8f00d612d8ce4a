package source

import (
	"embed"
	"io/fs"
	"path"

	"github.com/arthur-debert/fuzzgen/pkg/errors"
	"github.com/arthur-debert/fuzzgen/pkg/manifest"
)

// Templates are compiled into the binary so a release build has no
// runtime data dependency.
//
//go:embed all:templates
var templatesFS embed.FS

// Embedded returns the Source backed by the compiled-in asset table.
func Embedded() Source {
	return &embeddedSource{fsys: templatesFS, root: "templates"}
}

type embeddedSource struct {
	fsys embed.FS
	root string
}

func (s *embeddedSource) Templates() ([]string, error) {
	entries, err := s.fsys.ReadDir(s.root)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal, "failed to read embedded templates")
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	return sorted(names), nil
}

func (s *embeddedSource) Manifest(template string) (*manifest.Manifest, error) {
	data, err := s.fsys.ReadFile(path.Join(s.root, template, manifest.ManifestFile))
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrTemplateNotFound,
			"template %q has no %s", template, manifest.ManifestFile)
	}
	return manifest.Parse(data)
}

func (s *embeddedSource) Files(template string) ([]string, error) {
	templateRoot := path.Join(s.root, template)
	if _, err := s.fsys.ReadDir(templateRoot); err != nil {
		return nil, errors.Wrapf(err, errors.ErrTemplateNotFound,
			"template %q not found", template)
	}

	var files []string
	err := fs.WalkDir(s.fsys, templateRoot, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel := p[len(templateRoot)+1:]
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

func (s *embeddedSource) ReadFile(template, file string) ([]byte, error) {
	data, err := s.fsys.ReadFile(path.Join(s.root, template, file))
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrNotFound,
			"template %q has no file %q", template, file)
	}
	return data, nil
}

func (s *embeddedSource) Location(string) string {
	return ""
}
