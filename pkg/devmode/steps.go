package devmode

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/arthur-debert/fuzzgen/pkg/manifest"
	"github.com/arthur-debert/fuzzgen/pkg/render"
	"github.com/arthur-debert/fuzzgen/pkg/types"
)

// runValidationCase executes one validation case inside the workspace
// and returns a failure reason plus the captured output of the failing
// step. An empty reason means the case passed.
func runValidationCase(ctx context.Context, vc *manifest.ValidationCase, tctx *types.Context, workspace string, opts Options) (string, string) {
	workDir := workspace
	if vc.Dir != "" {
		rendered, err := render.Render(vc.Dir, tctx)
		if err != nil {
			return err.Error(), ""
		}
		workDir = filepath.Join(workspace, filepath.FromSlash(rendered))
	}

	for _, argv := range vc.Steps {
		if len(argv) == 0 {
			continue
		}
		rendered, err := renderArgv(argv, tctx)
		if err != nil {
			return err.Error(), ""
		}
		if reason, output := runStep(ctx, rendered, workDir, opts); reason != "" {
			return fmt.Sprintf("case %q: %s", vc.Name, reason), output
		}
	}

	for _, vf := range vc.VerifyFiles {
		rendered, err := render.Render(vf, tctx)
		if err != nil {
			return err.Error(), ""
		}
		if _, err := os.Stat(filepath.Join(workspace, filepath.FromSlash(rendered))); err != nil {
			return fmt.Sprintf("case %q: expected file %q is missing", vc.Name, rendered), ""
		}
	}

	return "", ""
}

// runStep runs one argv with the configured timeout. Output is combined
// and truncated to the configured limit.
func runStep(ctx context.Context, argv []string, workDir string, opts Options) (string, string) {
	stepCtx := ctx
	var cancel context.CancelFunc
	if opts.StepTimeout > 0 {
		stepCtx, cancel = context.WithTimeout(ctx, opts.StepTimeout)
		defer cancel()
	}

	start := time.Now()
	cmd := exec.CommandContext(stepCtx, argv[0], argv[1:]...)
	cmd.Dir = workDir
	cmd.Env = os.Environ()

	out, err := cmd.CombinedOutput()
	output := truncate(string(out), opts.OutputLimit)

	log.Debug().
		Strs("argv", argv).
		Str("dir", workDir).
		Dur("duration", time.Since(start)).
		Err(err).
		Msg("Validation step finished")

	if stepCtx.Err() == context.DeadlineExceeded {
		return fmt.Sprintf("step %q timed out after %s", strings.Join(argv, " "), opts.StepTimeout), output
	}
	if err != nil {
		return fmt.Sprintf("step %q failed: %v", strings.Join(argv, " "), err), output
	}
	return "", ""
}

func renderArgv(argv []string, tctx *types.Context) ([]string, error) {
	rendered := make([]string, len(argv))
	for i, arg := range argv {
		r, err := render.Render(arg, tctx)
		if err != nil {
			return nil, err
		}
		rendered[i] = r
	}
	return rendered, nil
}

func truncate(s string, limit int) string {
	if limit <= 0 || len(s) <= limit {
		return s
	}
	return s[:limit] + "\n... (output truncated)"
}
