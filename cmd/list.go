package cmd

import (
	"github.com/spf13/cobra"

	"gooze.dev/pkg/ninjaturtles/internal/domain"
)

var listTargets targetFlags

// listCmd represents the list command.
var listCmd = newListCmd()

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list <test-assembly>",
		Short: "List target methods and mutant counts",
		Long:  listLongDescription,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return workflow.Estimate(cmd.Context(), domain.EstimateArgs{
				TargetArgs: listTargets.args(cmd.Flags(), args[0]),
			})
		},
	}

	listTargets = targetFlags{}
	configureTargetFlags(cmd, &listTargets)

	return cmd
}

func init() {
	rootCmd.AddCommand(listCmd)
}
