// Package generate runs the end-to-end generation pipeline: resolve the
// file plan for a context, render template contents, and write the
// resulting tree to a destination root.
package generate

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/arthur-debert/fuzzgen/pkg/errors"
	"github.com/arthur-debert/fuzzgen/pkg/logging"
	"github.com/arthur-debert/fuzzgen/pkg/manifest"
	"github.com/arthur-debert/fuzzgen/pkg/render"
	"github.com/arthur-debert/fuzzgen/pkg/resolver"
	"github.com/arthur-debert/fuzzgen/pkg/source"
	"github.com/arthur-debert/fuzzgen/pkg/types"
	"github.com/arthur-debert/fuzzgen/pkg/writer"
)

var log = logging.GetLogger("generate")

// Request describes one generation run.
type Request struct {
	Source   source.Source
	Template string
	Manifest *manifest.Manifest
	Context  *types.Context
	DestRoot string
	DryRun   bool
}

// Report summarizes what a generation run produced.
type Report struct {
	Root    string
	Files   []string
	Dirs    []string
	Skipped []string

	// PostGenerationMessage is the manifest's post-generation message,
	// rendered against the run's context. Empty when the manifest
	// declares none.
	PostGenerationMessage string
}

// Run executes the generation pipeline for req. It fails fast: the
// first resolve, render, or write error aborts the run, possibly
// leaving a partial tree under DestRoot.
func Run(ctx context.Context, req Request) (*Report, error) {
	defer logging.LogDuration(time.Now(), "generate")

	m := req.Manifest
	if m == nil {
		var err error
		m, err = req.Source.Manifest(req.Template)
		if err != nil {
			return nil, err
		}
	}

	available, err := req.Source.Files(req.Template)
	if err != nil {
		return nil, err
	}

	plan, err := resolver.Resolve(m, req.Context, available)
	if err != nil {
		return nil, err
	}

	report := &Report{Root: req.DestRoot}
	var rendered []types.RenderedFile
	for _, pf := range plan.Files {
		content, err := req.Source.ReadFile(req.Template, pf.Source)
		if err != nil {
			return nil, errors.Wrapf(err, errors.ErrGenerateIo, "failed to read template file %q", pf.Source)
		}

		out, skip, err := renderContent(pf, content, req.Context)
		if err != nil {
			return nil, err
		}
		if skip {
			log.Debug().Str("source", pf.Source).Msg("Skipping file: empty after rendering")
			report.Skipped = append(report.Skipped, pf.Dest)
			continue
		}

		rendered = append(rendered, types.RenderedFile{
			Dest:       pf.Dest,
			Content:    out,
			Executable: pf.Executable,
		})
		report.Files = append(report.Files, pf.Dest)
	}
	for _, d := range plan.Dirs {
		report.Dirs = append(report.Dirs, d.Path)
	}

	w := writer.New(req.DryRun)
	if err := w.WriteTree(ctx, req.DestRoot, rendered, plan.Dirs); err != nil {
		return nil, err
	}

	if m.PostGenerationMessage != "" {
		msg, err := render.Render(m.PostGenerationMessage, req.Context)
		if err != nil {
			return nil, err
		}
		report.PostGenerationMessage = msg
	}

	log.Info().
		Str("root", req.DestRoot).
		Int("files", len(report.Files)).
		Int("dirs", len(report.Dirs)).
		Int("skipped", len(report.Skipped)).
		Msg("Generation complete")
	return report, nil
}

// renderContent produces the final bytes for one planned file. Files
// not marked as templates, and files whose content is not valid UTF-8,
// are copied verbatim so seed corpora and other binary payloads survive
// untouched. A templated file whose rendered content is blank is
// skipped entirely.
func renderContent(pf types.PlannedFile, content []byte, ctx *types.Context) ([]byte, bool, error) {
	if !pf.Template || !utf8.Valid(content) {
		return content, false, nil
	}

	out, err := render.Render(string(content), ctx)
	if err != nil {
		if fe, ok := err.(*errors.FuzzgenError); ok {
			return nil, false, fe.WithDetail("file", pf.Source)
		}
		return nil, false, err
	}
	if strings.TrimSpace(out) == "" {
		return nil, true, nil
	}
	return []byte(out), false, nil
}
