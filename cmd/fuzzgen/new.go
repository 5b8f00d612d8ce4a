package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/arthur-debert/fuzzgen/pkg/errors"
	"github.com/arthur-debert/fuzzgen/pkg/generate"
	"github.com/arthur-debert/fuzzgen/pkg/manifest"
	"github.com/arthur-debert/fuzzgen/pkg/source"
	"github.com/arthur-debert/fuzzgen/pkg/style"
)

var newFlags struct {
	language    string
	integration string
	fuzzer      string
	target      string
	minimal     bool
	vars        []string
	templateDir string
}

var newCmd = &cobra.Command{
	Use:   "new <project-dir>",
	Short: "Generate a fuzzing project",
	Long: `Generate a fuzzing project into the given directory. The directory
name becomes the project name; the fuzz target defaults to it as well.

Minimal mode (--minimal) produces only the fuzz/ scaffolding for
integrating into an existing codebase. Full mode additionally generates
a small sample library to practice on.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dest := filepath.Clean(args[0])
		projectName := filepath.Base(dest)

		if entries, err := os.ReadDir(dest); err == nil && len(entries) > 0 {
			return errors.Newf(errors.ErrInvalidInput,
				"directory %q already exists and is not empty", dest)
		}

		src := templateSource(newFlags.templateDir)
		m, err := src.Manifest(newFlags.language)
		if err != nil {
			return err
		}

		vars, err := parseVars(newFlags.vars)
		if err != nil {
			return err
		}

		ctx, err := m.BuildContext(manifest.ContextOptions{
			ProjectName: projectName,
			TargetName:  newFlags.target,
			Integration: newFlags.integration,
			Fuzzer:      newFlags.fuzzer,
			Minimal:     newFlags.minimal,
			Variables:   vars,
		})
		if err != nil {
			return err
		}

		report, err := generate.Run(cmd.Context(), generate.Request{
			Source:   src,
			Template: newFlags.language,
			Manifest: m,
			Context:  ctx,
			DestRoot: dest,
			DryRun:   dryRun,
		})
		if err != nil {
			return err
		}

		if dryRun {
			fmt.Printf("Dry run: would generate %d files under %s\n",
				len(report.Files), style.PathStyle.Render(dest))
			return nil
		}

		fmt.Printf("Generated %d files under %s\n",
			len(report.Files), style.PathStyle.Render(dest))
		if report.PostGenerationMessage != "" {
			fmt.Println()
			printMarkdown(report.PostGenerationMessage)
		}
		return nil
	},
}

func init() {
	newCmd.Flags().StringVarP(&newFlags.language, "language", "l", "c", "Template language (see 'fuzzgen list')")
	newCmd.Flags().StringVarP(&newFlags.integration, "integration", "i", "", "Build system integration (template default when omitted)")
	newCmd.Flags().StringVarP(&newFlags.fuzzer, "fuzzer", "f", "", "Fuzz tool to target (template default when omitted)")
	newCmd.Flags().StringVar(&newFlags.target, "target", "", "Fuzz target name (defaults to the project name)")
	newCmd.Flags().BoolVarP(&newFlags.minimal, "minimal", "m", false, "Generate only the fuzz/ scaffolding")
	newCmd.Flags().StringArrayVar(&newFlags.vars, "var", nil, "Set a template variable as key=value (repeatable)")
	newCmd.Flags().StringVar(&newFlags.templateDir, "template-dir", "", "Read templates from a directory instead of the built-in catalog")
}

// templateSource picks the template catalog: a live directory during
// template development, the embedded one otherwise.
func templateSource(dir string) source.Source {
	if dir != "" {
		return source.Dir(dir)
	}
	return source.Embedded()
}

func parseVars(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	vars := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, errors.Newf(errors.ErrInvalidInput,
				"invalid --var %q, expected key=value", pair)
		}
		vars[key] = value
	}
	return vars, nil
}
