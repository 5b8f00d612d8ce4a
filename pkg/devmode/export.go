package devmode

import (
	"fmt"
	"os"
	"time"

	"github.com/beevik/etree"
	"gopkg.in/yaml.v3"

	"github.com/arthur-debert/fuzzgen/pkg/errors"
)

// WriteJUnit writes the report as a JUnit XML testsuite so CI systems
// can track matrix health per cell.
func WriteJUnit(report *MatrixReport, path string) error {
	passed, failed, skipped := report.Totals()

	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	suite := doc.CreateElement("testsuite")
	suite.CreateAttr("name", fmt.Sprintf("fuzzgen-validation-%s", report.Template))
	suite.CreateAttr("tests", fmt.Sprintf("%d", passed+failed+skipped))
	suite.CreateAttr("failures", fmt.Sprintf("%d", failed))
	suite.CreateAttr("skipped", fmt.Sprintf("%d", skipped))
	suite.CreateAttr("time", fmt.Sprintf("%.3f", report.Duration.Seconds()))

	for _, res := range report.Results {
		tc := suite.CreateElement("testcase")
		tc.CreateAttr("classname", report.Template)
		tc.CreateAttr("name", res.Cell.Name())
		tc.CreateAttr("time", fmt.Sprintf("%.3f", res.Duration.Seconds()))

		switch res.Outcome {
		case OutcomeFailed:
			failure := tc.CreateElement("failure")
			failure.CreateAttr("message", res.Reason)
			if res.Output != "" {
				failure.SetText(res.Output)
			}
		case OutcomeSkipped:
			skip := tc.CreateElement("skipped")
			skip.CreateAttr("message", res.Reason)
		}
	}

	doc.Indent(2)
	if err := doc.WriteToFile(path); err != nil {
		return errors.Wrapf(err, errors.ErrGenerateIo, "failed to write junit report to %s", path)
	}
	return nil
}

// yamlReport is the export shape of a matrix report.
type yamlReport struct {
	Template    string       `yaml:"template"`
	Duration    string       `yaml:"duration"`
	Passed      int          `yaml:"passed"`
	Failed      int          `yaml:"failed"`
	Skipped     int          `yaml:"skipped"`
	SuccessRate float64      `yaml:"success_rate"`
	Cells       []yamlResult `yaml:"cells"`
}

type yamlResult struct {
	Cell      string `yaml:"cell"`
	Outcome   string `yaml:"outcome"`
	Duration  string `yaml:"duration"`
	Reason    string `yaml:"reason,omitempty"`
	Workspace string `yaml:"workspace,omitempty"`
}

// WriteYAML writes the report as YAML.
func WriteYAML(report *MatrixReport, path string) error {
	passed, failed, skipped := report.Totals()
	out := yamlReport{
		Template:    report.Template,
		Duration:    report.Duration.Round(time.Millisecond).String(),
		Passed:      passed,
		Failed:      failed,
		Skipped:     skipped,
		SuccessRate: report.SuccessRate(),
	}
	for _, res := range report.Results {
		out.Cells = append(out.Cells, yamlResult{
			Cell:      res.Cell.Name(),
			Outcome:   string(res.Outcome),
			Duration:  res.Duration.Round(time.Millisecond).String(),
			Reason:    res.Reason,
			Workspace: res.Workspace,
		})
	}

	data, err := yaml.Marshal(&out)
	if err != nil {
		return errors.Wrap(err, errors.ErrInternal, "failed to marshal report")
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.Wrapf(err, errors.ErrGenerateIo, "failed to write report to %s", path)
	}
	return nil
}
