// Package devmode validates a template across its whole configuration
// matrix. Each cell (fuzz tool x integration x mode) is generated into
// an isolated workspace, built with the manifest's validation steps,
// and checked for its expected artifacts.
package devmode

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/arthur-debert/fuzzgen/pkg/errors"
	"github.com/arthur-debert/fuzzgen/pkg/generate"
	"github.com/arthur-debert/fuzzgen/pkg/logging"
	"github.com/arthur-debert/fuzzgen/pkg/manifest"
	"github.com/arthur-debert/fuzzgen/pkg/source"
)

var log = logging.GetLogger("devmode")

// Cell is one point in the validation matrix.
type Cell struct {
	Fuzzer      string
	Integration string
	Minimal     bool
}

// Name returns the cell's stable identifier, e.g. "libfuzzer/make/full".
func (c Cell) Name() string {
	mode := "full"
	if c.Minimal {
		mode = "minimal"
	}
	fuzzer := c.Fuzzer
	if fuzzer == "" {
		fuzzer = "default"
	}
	return fmt.Sprintf("%s/%s/%s", fuzzer, c.Integration, mode)
}

// Outcome classifies a cell run.
type Outcome string

const (
	OutcomePassed  Outcome = "passed"
	OutcomeFailed  Outcome = "failed"
	OutcomeSkipped Outcome = "skipped"
)

// Result is the outcome of one cell.
type Result struct {
	Cell     Cell
	Outcome  Outcome
	Reason   string
	Duration time.Duration

	// Output holds the combined stdout/stderr of the failing step,
	// truncated to the configured limit. Empty for passing cells.
	Output string

	// Workspace is the generated project directory. Only set when the
	// run persists workspaces.
	Workspace string
}

// Options configures a matrix run.
type Options struct {
	Source   source.Source
	Template string

	// ProjectName seeds the generated workspaces. Defaults to the
	// template name with a "-dev" suffix.
	ProjectName string

	// Fuzzers, Integrations and Modes filter the matrix. Empty slices
	// mean "everything the manifest supports". Modes are "minimal" and
	// "full".
	Fuzzers      []string
	Integrations []string
	Modes        []string

	// Output persists cell workspaces under this directory instead of
	// throwaway temp directories.
	Output string

	// Workers bounds concurrent cells. 0 means one per CPU.
	Workers int

	// StepTimeout bounds each validation step.
	StepTimeout time.Duration

	// OutputLimit caps the captured bytes per cell. 0 means unlimited.
	OutputLimit int
}

// Run validates every cell of the matrix and returns the aggregated
// report. A cell failure does not abort the run; only infrastructure
// errors (bad filters, unreadable template) do.
func Run(ctx context.Context, opts Options) (*MatrixReport, error) {
	done := logging.LogOperationStart(log, "validation-matrix")
	defer done()

	m, err := opts.Source.Manifest(opts.Template)
	if err != nil {
		return nil, err
	}

	cells, err := enumerate(m, opts)
	if err != nil {
		return nil, err
	}

	if opts.ProjectName == "" {
		opts.ProjectName = opts.Template + "-dev"
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	log.Info().
		Str("template", opts.Template).
		Int("cells", len(cells)).
		Int("workers", workers).
		Msg("Starting validation matrix")

	start := time.Now()
	var mu sync.Mutex
	results := make([]Result, 0, len(cells))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, cell := range cells {
		cell := cell
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			res := runCell(gctx, m, cell, opts)
			mu.Lock()
			results = append(results, res)
			mu.Unlock()

			log.Info().
				Str("cell", cell.Name()).
				Str("outcome", string(res.Outcome)).
				Dur("duration", res.Duration).
				Msg("Cell finished")
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal, "validation matrix interrupted")
	}

	sortResults(results)
	return &MatrixReport{
		Template: opts.Template,
		Results:  results,
		Duration: time.Since(start),
	}, nil
}

// enumerate expands the supported sets into concrete cells, applying
// and checking the user's filters.
func enumerate(m *manifest.Manifest, opts Options) ([]Cell, error) {
	fuzzers, err := filterSet("fuzzer", m.SupportedFuzzers(), opts.Fuzzers)
	if err != nil {
		return nil, err
	}
	integrations, err := filterSet("integration", m.SupportedIntegrations(), opts.Integrations)
	if err != nil {
		return nil, err
	}
	modes, err := filterSet("mode", []string{"minimal", "full"}, opts.Modes)
	if err != nil {
		return nil, err
	}

	var cells []Cell
	for _, fuzzer := range fuzzers {
		for _, integration := range integrations {
			for _, mode := range modes {
				cells = append(cells, Cell{
					Fuzzer:      fuzzer,
					Integration: integration,
					Minimal:     mode == "minimal",
				})
			}
		}
	}
	return cells, nil
}

func filterSet(kind string, supported, requested []string) ([]string, error) {
	if len(requested) == 0 {
		return supported, nil
	}
	members := make(map[string]bool, len(supported))
	for _, s := range supported {
		members[s] = true
	}
	for _, r := range requested {
		if !members[r] {
			return nil, errors.Newf(errors.ErrInvalidInput,
				"unsupported %s %q, template supports %v", kind, r, supported)
		}
	}
	return requested, nil
}

// runCell generates a workspace for the cell and runs its validation
// cases. Failures are reported in the Result, never as an error.
func runCell(ctx context.Context, m *manifest.Manifest, cell Cell, opts Options) Result {
	start := time.Now()
	res := Result{Cell: cell}
	finish := func(outcome Outcome, reason, output string) Result {
		res.Outcome = outcome
		res.Reason = reason
		res.Output = output
		res.Duration = time.Since(start)
		return res
	}

	// A fuzz tool whose required binary is absent cannot be validated
	// on this host. That is a skip, not a failure.
	if m.Fuzzers != nil {
		if opt := m.Fuzzers.Option(cell.Fuzzer); opt != nil && opt.Requires != "" {
			if _, err := exec.LookPath(opt.Requires); err != nil {
				return finish(OutcomeSkipped,
					fmt.Sprintf("required binary %q not found", opt.Requires), "")
			}
		}
	}

	workspace, cleanup, err := cellWorkspace(cell, opts)
	if err != nil {
		return finish(OutcomeFailed, err.Error(), "")
	}
	defer cleanup()
	if opts.Output != "" {
		res.Workspace = workspace
	}

	tctx, err := m.BuildContext(manifest.ContextOptions{
		ProjectName: opts.ProjectName,
		Integration: cell.Integration,
		Fuzzer:      cell.Fuzzer,
		Minimal:     cell.Minimal,
	})
	if err != nil {
		return finish(OutcomeFailed, err.Error(), "")
	}

	if _, err := generate.Run(ctx, generate.Request{
		Source:   opts.Source,
		Template: opts.Template,
		Manifest: m,
		Context:  tctx,
		DestRoot: workspace,
	}); err != nil {
		return finish(OutcomeFailed, fmt.Sprintf("generation failed: %v", err), "")
	}

	for i := range m.Validation.Commands {
		vc := &m.Validation.Commands[i]
		if vc.Expr != nil {
			active, err := vc.Expr.Eval(tctx)
			if err != nil {
				return finish(OutcomeFailed, err.Error(), "")
			}
			if !active {
				continue
			}
		}
		if reason, output := runValidationCase(ctx, vc, tctx, workspace, opts); reason != "" {
			return finish(OutcomeFailed, reason, output)
		}
	}

	return finish(OutcomePassed, "", "")
}

func cellWorkspace(cell Cell, opts Options) (string, func(), error) {
	if opts.Output != "" {
		dir := filepath.Join(opts.Output, filepath.FromSlash(cell.Name()))
		if err := os.MkdirAll(filepath.Dir(dir), 0755); err != nil {
			return "", nil, err
		}
		return dir, func() {}, nil
	}
	parent, err := os.MkdirTemp("", "fuzzgen-dev-*")
	if err != nil {
		return "", nil, err
	}
	return filepath.Join(parent, opts.ProjectName), func() { _ = os.RemoveAll(parent) }, nil
}

// sortResults orders failures first, then passes, then skips, with a
// stable name order inside each group.
func sortResults(results []Result) {
	rank := map[Outcome]int{OutcomeFailed: 0, OutcomePassed: 1, OutcomeSkipped: 2}
	sort.SliceStable(results, func(i, j int) bool {
		ri, rj := rank[results[i].Outcome], rank[results[j].Outcome]
		if ri != rj {
			return ri < rj
		}
		return results[i].Cell.Name() < results[j].Cell.Name()
	})
}
