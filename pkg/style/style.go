// Package style centralizes terminal styling for validation reports and
// CLI output.
package style

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/pterm/pterm"
)

// Colors use AdaptiveColor so output stays readable on light and dark
// terminals.
var (
	SuccessColor = lipgloss.AdaptiveColor{
		Light: "#28A745",
		Dark:  "#4CDD76",
	}

	ErrorColor = lipgloss.AdaptiveColor{
		Light: "#DC3545",
		Dark:  "#FF6B7D",
	}

	WarningColor = lipgloss.AdaptiveColor{
		Light: "#FFC107",
		Dark:  "#FFD54F",
	}

	HeadingColor = lipgloss.AdaptiveColor{
		Light: "#212529",
		Dark:  "#F8F9FA",
	}

	MutedColor = lipgloss.AdaptiveColor{
		Light: "#6C757D",
		Dark:  "#ADB5BD",
	}

	PathColor = lipgloss.AdaptiveColor{
		Light: "#007ACC",
		Dark:  "#3D9EFF",
	}
)

var (
	TitleStyle = lipgloss.NewStyle().
			Foreground(HeadingColor).
			Bold(true)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(SuccessColor).
			Bold(true)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ErrorColor).
			Bold(true)

	WarningStyle = lipgloss.NewStyle().
			Foreground(WarningColor).
			Bold(true)

	MutedStyle = lipgloss.NewStyle().
			Foreground(MutedColor)

	PathStyle = lipgloss.NewStyle().
			Foreground(PathColor).
			Italic(true)
)

// Cell outcome indicators used in matrix reports.
var (
	PassIndicator = SuccessStyle.Render("✓")
	FailIndicator = ErrorStyle.Render("✗")
	SkipIndicator = MutedStyle.Render("○")
)

// OutcomeStyle returns the pterm style for a validation outcome string
// ("passed", "failed", "skipped").
func OutcomeStyle(outcome string) *pterm.Style {
	switch outcome {
	case "passed":
		return pterm.NewStyle(pterm.FgGreen, pterm.Bold)
	case "failed":
		return pterm.NewStyle(pterm.FgRed, pterm.Bold)
	case "skipped":
		return pterm.NewStyle(pterm.FgGray)
	default:
		return pterm.NewStyle(pterm.FgDefault)
	}
}

func Indent(s string, level int) string {
	return lipgloss.NewStyle().PaddingLeft(level * 2).Render(s)
}

func Bold(s string) string {
	return lipgloss.NewStyle().Bold(true).Render(s)
}
