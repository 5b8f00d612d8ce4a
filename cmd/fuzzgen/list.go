package main

import (
	"fmt"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/arthur-debert/fuzzgen/pkg/style"
)

var listFlags struct {
	templateDir string
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List available templates",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		src := templateSource(listFlags.templateDir)
		names, err := src.Templates()
		if err != nil {
			return err
		}

		rows := pterm.TableData{{"Template", "Version", "Integrations", "Fuzzers", "Description"}}
		for _, name := range names {
			m, err := src.Manifest(name)
			if err != nil {
				return err
			}
			rows = append(rows, []string{
				style.Bold(name),
				m.Template.Version,
				strings.Join(m.SupportedIntegrations(), ", "),
				strings.Join(m.SupportedFuzzers(), ", "),
				m.Template.Description,
			})
		}

		table, err := pterm.DefaultTable.WithHasHeader().WithData(rows).Srender()
		if err != nil {
			return err
		}
		fmt.Println(table)
		return nil
	},
}

func init() {
	listCmd.Flags().StringVar(&listFlags.templateDir, "template-dir", "", "Read templates from a directory instead of the built-in catalog")
}
