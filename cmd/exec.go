package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"gooze.dev/pkg/ninjaturtles/internal/adapter"
	"gooze.dev/pkg/ninjaturtles/internal/vm"
)

const (
	execDirFlagName        = "dir"
	execAssemblyFlagName   = "assembly"
	execTestsFlagName      = "tests"
	execStepBudgetFlagName = "step-budget"
)

var execDirFlag string
var execAssemblyFlag string
var execTestsFlag string
var execStepBudgetFlag int

// execCmd is the child side of the process test runner.
var execCmd = newExecCmd()

func newExecCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:    "exec",
		Short:  "Run the tests of an assembly with the built-in test host",
		Hidden: true,
		Args:   cobra.NoArgs,
		// The child runs inside a sandbox and must not log there.
		PersistentPreRun: func(_ *cobra.Command, _ []string) {},
		SilenceErrors:    true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			budget := execStepBudgetFlag
			if !cmd.Flags().Changed(execStepBudgetFlagName) {
				budget = viper.GetInt(stepBudgetKey)
			}

			host := vm.NewHost(osFs, budget)

			results, err := host.RunTests(cmd.Context(), execDirFlag, execAssemblyFlag, splitList(execTestsFlag))
			if err != nil {
				cmd.PrintErrln(err)

				return &exitCodeError{code: adapter.ExitFailed}
			}

			outcome, output := adapter.SummarizeResults(results)
			fmt.Fprint(cmd.OutOrStdout(), output)

			if code := outcome.ExitCode(); code != adapter.ExitPassed {
				return &exitCodeError{code: code}
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&execDirFlag, execDirFlagName, ".", "directory holding the assemblies")
	cmd.Flags().StringVar(&execAssemblyFlag, execAssemblyFlagName, "", "test assembly file name")
	cmd.Flags().StringVar(&execTestsFlag, execTestsFlagName, "", "comma separated test identifiers (default: every test)")
	cmd.Flags().IntVar(&execStepBudgetFlag, execStepBudgetFlagName, 0, "instruction budget per test")

	cobra.CheckErr(cmd.MarkFlagRequired(execAssemblyFlagName))

	return cmd
}

func init() {
	rootCmd.AddCommand(execCmd)
}
