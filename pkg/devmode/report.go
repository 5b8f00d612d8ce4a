package devmode

import (
	"fmt"
	"io"
	"time"

	"github.com/pterm/pterm"

	"github.com/arthur-debert/fuzzgen/pkg/style"
)

// MatrixReport aggregates the results of one matrix run. Results are
// ordered failures first.
type MatrixReport struct {
	Template string
	Results  []Result
	Duration time.Duration
}

// Totals returns the per-outcome counts.
func (r *MatrixReport) Totals() (passed, failed, skipped int) {
	for _, res := range r.Results {
		switch res.Outcome {
		case OutcomePassed:
			passed++
		case OutcomeFailed:
			failed++
		case OutcomeSkipped:
			skipped++
		}
	}
	return
}

// SuccessRate is passed over passed+failed. Skipped cells say nothing
// about the template, so they stay out of the denominator.
func (r *MatrixReport) SuccessRate() float64 {
	passed, failed, _ := r.Totals()
	if passed+failed == 0 {
		return 0
	}
	return float64(passed) / float64(passed+failed)
}

// Failed reports whether any cell failed.
func (r *MatrixReport) Failed() bool {
	_, failed, _ := r.Totals()
	return failed > 0
}

// Print writes a human-readable report to w.
func (r *MatrixReport) Print(w io.Writer) {
	passed, failed, skipped := r.Totals()

	fmt.Fprintln(w, style.TitleStyle.Render(fmt.Sprintf("Validation matrix: %s", r.Template)))
	fmt.Fprintln(w)

	rows := pterm.TableData{{"", "Cell", "Outcome", "Duration", "Detail"}}
	for _, res := range r.Results {
		indicator := style.SkipIndicator
		switch res.Outcome {
		case OutcomePassed:
			indicator = style.PassIndicator
		case OutcomeFailed:
			indicator = style.FailIndicator
		}
		rows = append(rows, []string{
			indicator,
			res.Cell.Name(),
			style.OutcomeStyle(string(res.Outcome)).Sprint(string(res.Outcome)),
			res.Duration.Round(time.Millisecond).String(),
			res.Reason,
		})
	}
	table, err := pterm.DefaultTable.WithHasHeader().WithData(rows).Srender()
	if err == nil {
		fmt.Fprintln(w, table)
	}

	for _, res := range r.Results {
		if res.Outcome != OutcomeFailed || res.Output == "" {
			continue
		}
		fmt.Fprintln(w, style.ErrorStyle.Render(fmt.Sprintf("--- %s", res.Cell.Name())))
		fmt.Fprintln(w, res.Output)
	}

	summary := fmt.Sprintf("%d passed, %d failed, %d skipped in %s",
		passed, failed, skipped, r.Duration.Round(time.Millisecond))
	if failed > 0 {
		fmt.Fprintln(w, style.ErrorStyle.Render(summary))
	} else {
		fmt.Fprintln(w, style.SuccessStyle.Render(summary))
	}
	if passed+failed > 0 {
		fmt.Fprintln(w, style.MutedStyle.Render(
			fmt.Sprintf("success rate %.0f%%", r.SuccessRate()*100)))
	}
}
