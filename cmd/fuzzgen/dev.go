package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/arthur-debert/fuzzgen/pkg/config"
	"github.com/arthur-debert/fuzzgen/pkg/devmode"
	"github.com/arthur-debert/fuzzgen/pkg/errors"
	"github.com/arthur-debert/fuzzgen/pkg/watch"
)

var devFlags struct {
	language     string
	fuzzers      []string
	integrations []string
	modes        []string
	output       string
	junit        string
	report       string
	templateDir  string
	workers      int
	timeout      time.Duration
	watch        bool
}

var devCmd = &cobra.Command{
	Use:   "dev",
	Short: "Validate a template across its configuration matrix",
	Long: `Validate a template by generating every combination of fuzz tool,
build integration, and mode into isolated workspaces and running the
template's validation commands in each. Combinations whose fuzz tool is
not installed on this host are skipped.

With --watch, the matrix reruns whenever the template directory
changes; an edit during a run cancels it and starts over.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		opts := devmode.Options{
			Source:       templateSource(devFlags.templateDir),
			Template:     devFlags.language,
			Fuzzers:      devFlags.fuzzers,
			Integrations: devFlags.integrations,
			Modes:        devFlags.modes,
			Output:       devFlags.output,
			Workers:      cfg.Validation.Workers,
			StepTimeout:  cfg.Validation.StepTimeout,
			OutputLimit:  cfg.Validation.OutputLimit,
		}
		if cmd.Flags().Changed("workers") {
			opts.Workers = devFlags.workers
		}
		if cmd.Flags().Changed("timeout") {
			opts.StepTimeout = devFlags.timeout
		}

		if devFlags.watch {
			if devFlags.templateDir == "" {
				return errors.New(errors.ErrInvalidInput,
					"--watch requires --template-dir, the built-in catalog cannot change")
			}
			return watchMatrix(cmd.Context(), opts, cfg.Watch.Debounce)
		}

		report, err := runMatrix(cmd.Context(), opts)
		if err != nil {
			return err
		}
		if report.Failed() {
			return errors.New(errors.ErrVerifyFailed, "validation matrix has failing cells")
		}
		return nil
	},
}

func init() {
	devCmd.Flags().StringVarP(&devFlags.language, "language", "l", "c", "Template to validate")
	devCmd.Flags().StringSliceVarP(&devFlags.fuzzers, "fuzzer", "f", nil, "Restrict to these fuzz tools")
	devCmd.Flags().StringSliceVarP(&devFlags.integrations, "integration", "i", nil, "Restrict to these integrations")
	devCmd.Flags().StringSliceVar(&devFlags.modes, "mode", nil, "Restrict to these modes (minimal, full)")
	devCmd.Flags().StringVarP(&devFlags.output, "output", "o", "", "Keep cell workspaces under this directory")
	devCmd.Flags().StringVar(&devFlags.junit, "junit", "", "Write a JUnit XML report to this path")
	devCmd.Flags().StringVar(&devFlags.report, "report", "", "Write a YAML report to this path")
	devCmd.Flags().StringVar(&devFlags.templateDir, "template-dir", "", "Read templates from a directory instead of the built-in catalog")
	devCmd.Flags().IntVar(&devFlags.workers, "workers", 0, "Concurrent cells (0 = one per CPU)")
	devCmd.Flags().DurationVar(&devFlags.timeout, "timeout", 0, "Per-step timeout")
	devCmd.Flags().BoolVarP(&devFlags.watch, "watch", "w", false, "Rerun on template changes")
}

// runMatrix runs the matrix once, prints the report, and writes the
// requested export files.
func runMatrix(ctx context.Context, opts devmode.Options) (*devmode.MatrixReport, error) {
	report, err := devmode.Run(ctx, opts)
	if err != nil {
		return nil, err
	}
	report.Print(os.Stdout)

	if devFlags.junit != "" {
		if err := devmode.WriteJUnit(report, devFlags.junit); err != nil {
			return nil, err
		}
	}
	if devFlags.report != "" {
		if err := devmode.WriteYAML(report, devFlags.report); err != nil {
			return nil, err
		}
	}
	return report, nil
}

// watchMatrix reruns the matrix on every change to the template
// directory until interrupted.
func watchMatrix(ctx context.Context, opts devmode.Options, debounce time.Duration) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	output := termenv.NewOutput(os.Stdout)
	err := watch.Run(ctx, watch.Options{
		Dir:      devFlags.templateDir,
		Debounce: debounce,
	}, func(runCtx context.Context) error {
		if stdoutIsTerminal() {
			output.ClearScreen()
		}
		_, err := runMatrix(runCtx, opts)
		return err
	})
	if err != nil && ctx.Err() != nil {
		// Interrupted by the user, not a failure.
		return nil
	}
	return err
}
