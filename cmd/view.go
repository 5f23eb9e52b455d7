package cmd

import (
	"github.com/spf13/cobra"

	"gooze.dev/pkg/ninjaturtles/internal/domain"
	m "gooze.dev/pkg/ninjaturtles/internal/model"
)

// viewCmd represents the view command.
var viewCmd = newViewCmd()

func newViewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "view [report]",
		Short: "View a mutation report",
		Long:  "View a previously written mutation report, by default the one configured as run output.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			report := m.Path(defaultReportFile)
			if len(args) == 1 {
				report = m.Path(args[0])
			}

			return workflow.View(cmd.Context(), domain.ViewArgs{Report: report})
		},
	}

	return cmd
}

func init() {
	rootCmd.AddCommand(viewCmd)
}
