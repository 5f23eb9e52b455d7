// Package cmd provides the root command and CLI setup for ninjaturtles.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"gooze.dev/pkg/ninjaturtles/internal/adapter"
	"gooze.dev/pkg/ninjaturtles/internal/controller"
	"gooze.dev/pkg/ninjaturtles/internal/domain"
)

var osFs afero.Fs
var fsAdapter adapter.SandboxFSAdapter
var assemblyLoader adapter.AssemblyLoader
var testAttribution adapter.TestAttributionAdapter
var reportStore adapter.ReportStore
var testRunners map[string]adapter.TestRunnerAdapter
var orchestrator domain.Orchestrator
var workflow domain.Workflow
var ui controller.UI

var verboseFlag bool
var logFileFlag string

func init() {
	configureRootFlags(rootCmd)

	// Initialize shared dependencies.
	osFs = afero.NewOsFs()
	ui = controller.NewUI(rootCmd, controller.IsTTY(os.Stdout))
	fsAdapter = adapter.NewSandboxFSAdapter(osFs, viper.GetString(sandboxDirKey))

	loader, err := adapter.NewAssemblyLoader(osFs, viper.GetInt(assemblyCacheConfigKey))
	cobra.CheckErr(err)

	assemblyLoader = loader
	testAttribution = adapter.NewTestAttributionAdapter()
	reportStore = adapter.NewReportStore(osFs)
	testRunners = map[string]adapter.TestRunnerAdapter{
		domain.RunnerProcess:   adapter.NewProcessTestRunner(runnerConfig()),
		domain.RunnerInProcess: adapter.NewInProcessTestRunner(osFs, viper.GetInt(stepBudgetKey)),
	}
	orchestrator = domain.NewOrchestrator(fsAdapter, assemblyLoader)
	workflow = domain.NewWorkflow(
		fsAdapter,
		assemblyLoader,
		testAttribution,
		reportStore,
		ui,
		orchestrator,
		testRunners,
		nil,
	)
}

const rootLongDescription = `ninjaturtles is a mutation testing engine for assemblies of the built-in
stack bytecode. It alters one instruction at a time ("turtles"), runs the
tests attributed to the mutated method against each mutant in an isolated
sandbox, and reports which mutants survived.

A test assembly references the assemblies under test; they are resolved
from the directory that holds it.`

const runLongDescription = `Run mutation testing for the methods of the assemblies referenced by a
test assembly. Restrict the targets with --class, --method and --params.

The command fails when any method/turtle combination has more or fewer
survivors than expected, or when no mutation was run.`

const listLongDescription = `List the methods a run would mutate and the number of mutants each
turtle produces for them, without running any test.`

const turtleHelp = `turtle to run (repeatable). Available: `

// rootCmd represents the base command when called without any subcommands.
var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	return &cobra.Command{
		Use:          "ninjaturtles",
		Short:        "Mutation testing for stack bytecode assemblies",
		Long:         rootLongDescription,
		SilenceUsage: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			configureLogger(logFileFlag, verboseFlag)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
}

func configureRootFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().BoolVarP(&verboseFlag, verboseFlagName, "v", defaultLogVerbose, "log at debug level")
	bindFlagToConfig(cmd.PersistentFlags().Lookup(verboseFlagName), logVerboseKey)

	cmd.PersistentFlags().StringVar(&logFileFlag, logFileFlagName, defaultLogFilename, "log file path")
	bindFlagToConfig(cmd.PersistentFlags().Lookup(logFileFlagName), logFilenameKey)
}

// bindFlagToConfig wires a Cobra flag to a Viper key so config/env values feed the flag.
func bindFlagToConfig(flag *pflag.Flag, key string) {
	if flag == nil {
		cobra.CheckErr(fmt.Errorf("flag for config key %q not found", key))
		return
	}

	cobra.CheckErr(viper.BindPFlag(key, flag))
}

// Exit codes of the CLI.
const (
	exitOK            = 0
	exitFailure       = 1
	exitConfiguration = 2
)

// exitCodeError carries a process exit code without an error message.
type exitCodeError struct {
	code int
}

func (e *exitCodeError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

func exitCode(err error) int {
	var codeErr *exitCodeError

	switch {
	case err == nil:
		return exitOK
	case errors.As(err, &codeErr):
		return codeErr.code
	case domain.IsConfigurationError(err):
		return exitConfiguration
	default:
		return exitFailure
	}
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)

	stop()

	if code := exitCode(err); code != exitOK {
		os.Exit(code)
	}
}

// splitList splits a comma separated flag value, dropping empty items.
func splitList(value string) []string {
	var items []string

	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}

	return items
}
