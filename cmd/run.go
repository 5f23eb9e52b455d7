package cmd

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"gooze.dev/pkg/ninjaturtles/internal/domain"
	"gooze.dev/pkg/ninjaturtles/internal/domain/turtles"
	m "gooze.dev/pkg/ninjaturtles/internal/model"
)

// targetFlags select the methods to mutate.
type targetFlags struct {
	class          string
	method         string
	params         []string
	turtles        []string
	permutationCap int
}

// args builds the target arguments. The permutation cap comes from the
// config unless the flag was set, since run and list share the key.
func (f *targetFlags) args(flags *pflag.FlagSet, testAssembly string) domain.TargetArgs {
	permutationCap := viper.GetInt(permutationCapKey)
	if flags.Changed(permutationCapFlagName) {
		permutationCap = f.permutationCap
	}

	return domain.TargetArgs{
		TestAssembly:   m.Path(testAssembly),
		Class:          f.class,
		Method:         f.method,
		Params:         f.params,
		Turtles:        f.turtles,
		PermutationCap: permutationCap,
	}
}

func configureTargetFlags(cmd *cobra.Command, f *targetFlags) {
	cmd.Flags().StringVarP(&f.class, classFlagName, "c", "", "full name of the type to mutate (default: every type)")
	cmd.Flags().StringVarP(&f.method, methodFlagName, "m", "", "name of the method to mutate (default: every method)")
	cmd.Flags().StringSliceVar(&f.params, paramsFlagName, nil, "parameter types selecting one overload, e.g. int32,int32")
	cmd.Flags().StringArrayVarP(&f.turtles, turtleFlagName, "t", nil, turtleHelp+strings.Join(turtles.Names(), ", "))

	cmd.Flags().IntVar(&f.permutationCap, permutationCapFlagName, turtles.DefaultPermutationCap,
		"largest group of same-typed slots the permutation turtle swaps")
}

var runTargets targetFlags
var runMergeFlag bool
var runInProcessFlag bool

// runCmd represents the run command.
var runCmd = newRunCmd()

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <test-assembly>",
		Short: "Run mutation testing",
		Long:  runLongDescription,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			expectations, err := loadExpectations()
			if err != nil {
				return &domain.ConfigurationError{Err: err}
			}

			runner := viper.GetString(runnerConfigKey)
			if runInProcessFlag {
				runner = domain.RunnerInProcess
			}

			return workflow.Run(cmd.Context(), domain.RunArgs{
				TargetArgs:      runTargets.args(cmd.Flags(), args[0]),
				Output:          m.Path(viper.GetString(outputConfigKey)),
				Merge:           runMergeFlag,
				Parallel:        viper.GetInt(runParallelConfigKey),
				MutationTimeout: viper.GetDuration(mutationTimeoutKey),
				Invariants:      viper.GetInt(invariantsConfigKey),
				Expectations:    expectations,
				Runner:          runner,
				MetricsFile:     m.Path(viper.GetString(metricsFileConfigKey)),
				SpillDir:        viper.GetString(spillDirConfigKey),
			})
		},
	}

	configureRunFlags(cmd)

	return cmd
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func configureRunFlags(cmd *cobra.Command) {
	runTargets = targetFlags{}
	configureTargetFlags(cmd, &runTargets)

	cmd.Flags().StringP(outputFlagName, "o", defaultReportFile, "report file (.xml or .yaml)")
	bindFlagToConfig(cmd.Flags().Lookup(outputFlagName), outputConfigKey)

	cmd.Flags().IntP(runParallelFlagName, "p", defaultRunParallel, "number of methods tested in parallel")
	bindFlagToConfig(cmd.Flags().Lookup(runParallelFlagName), runParallelConfigKey)

	cmd.Flags().Duration(mutationTimeoutFlagName, defaultMutationTimeout, "time limit for the tests of one mutant")
	bindFlagToConfig(cmd.Flags().Lookup(mutationTimeoutFlagName), mutationTimeoutKey)

	cmd.Flags().Int(invariantsFlagName, defaultInvariants, "expected number of surviving mutants per method and turtle")
	bindFlagToConfig(cmd.Flags().Lookup(invariantsFlagName), invariantsConfigKey)

	cmd.Flags().String(metricsFileFlagName, "", "write run metrics in the Prometheus text format")
	bindFlagToConfig(cmd.Flags().Lookup(metricsFileFlagName), metricsFileConfigKey)

	cmd.Flags().BoolVar(&runMergeFlag, mergeFlagName, false, "merge results into an existing report instead of replacing it")
	cmd.Flags().BoolVar(&runInProcessFlag, inProcessFlagName, false, "run tests with the built-in interpreter instead of a child process")
}
