package cmd

import (
	"github.com/spf13/cobra"

	"gooze.dev/pkg/ninjaturtles/internal/domain"
	m "gooze.dev/pkg/ninjaturtles/internal/model"
)

var mergeOutputFlag string

// mergeCmd represents the merge command.
var mergeCmd = newMergeCmd()

func newMergeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "merge <report>...",
		Short: "Merge reports into one",
		Long: `Merge reports from separate or concurrent runs into --output, creating it
when absent. Entries already present win over later ones.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			inputs := make([]m.Path, 0, len(args))
			for _, arg := range args {
				inputs = append(inputs, m.Path(arg))
			}

			return workflow.Merge(cmd.Context(), domain.MergeArgs{
				Output: m.Path(mergeOutputFlag),
				Inputs: inputs,
			})
		},
	}

	cmd.Flags().StringVarP(&mergeOutputFlag, outputFlagName, "o", defaultReportFile, "merged report file (.xml or .yaml)")

	return cmd
}

func init() {
	rootCmd.AddCommand(mergeCmd)
}
