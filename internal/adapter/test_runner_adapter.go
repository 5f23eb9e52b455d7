package adapter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/spf13/afero"

	m "gooze.dev/pkg/ninjaturtles/internal/model"
	"gooze.dev/pkg/ninjaturtles/internal/vm"
)

// RunOutcome classifies one test-runner invocation.
type RunOutcome int

const (
	// RunPassed means every selected test passed.
	RunPassed RunOutcome = iota
	// RunFailed means at least one selected test failed.
	RunFailed
	// RunNoTests means the runner executed nothing.
	RunNoTests
	// RunTimedOut means the run did not finish in time.
	RunTimedOut
)

func (o RunOutcome) String() string {
	switch o {
	case RunPassed:
		return "passed"
	case RunFailed:
		return "failed"
	case RunNoTests:
		return "no tests"
	case RunTimedOut:
		return "timed out"
	default:
		return fmt.Sprintf("RunOutcome(%d)", int(o))
	}
}

// Exit codes of the built-in test host.
const (
	ExitPassed  = 0
	ExitFailed  = 1
	ExitNoTests = 2
)

// ExitCode maps an outcome onto the built-in test host's exit codes.
func (o RunOutcome) ExitCode() int {
	switch o {
	case RunPassed:
		return ExitPassed
	case RunNoTests:
		return ExitNoTests
	default:
		return ExitFailed
	}
}

// TestRunnerAdapter abstracts test execution operations for mutation testing.
type TestRunnerAdapter interface {
	// Run executes the tests identified by tests from assemblyFile inside dir
	// and returns the classified outcome with the runner's output. An error
	// means the runner could not be launched or the run was cancelled.
	Run(ctx context.Context, dir m.Path, assemblyFile string, tests []string) (RunOutcome, string, error)
}

// Command template placeholders.
const (
	PlaceholderSelf     = "{self}"
	PlaceholderDir      = "{dir}"
	PlaceholderAssembly = "{assembly}"
	PlaceholderTests    = "{tests}"
)

// DefaultRunnerCommand runs the built-in test host through this executable.
var DefaultRunnerCommand = []string{
	PlaceholderSelf, "exec",
	"--dir", PlaceholderDir,
	"--assembly", PlaceholderAssembly,
	"--tests", PlaceholderTests,
}

// ProcessRunnerConfig describes how to launch an external test runner.
type ProcessRunnerConfig struct {
	// Command is the argument template. Placeholders are substituted in
	// every argument.
	Command []string
	// Runtime is prepended to the command, e.g. a managed-runtime launcher.
	Runtime []string
	// NoTestsExitCode is the exit code signalling that no test ran.
	NoTestsExitCode int
}

// ProcessTestRunner runs tests in a child process built from a template.
type ProcessTestRunner struct {
	config ProcessRunnerConfig
	self   string
}

// NewProcessTestRunner constructs a ProcessTestRunner. An empty command falls
// back to DefaultRunnerCommand and a zero no-tests code to ExitNoTests.
func NewProcessTestRunner(config ProcessRunnerConfig) *ProcessTestRunner {
	if len(config.Command) == 0 {
		config.Command = DefaultRunnerCommand
	}

	if config.NoTestsExitCode == 0 {
		config.NoTestsExitCode = ExitNoTests
	}

	self, err := os.Executable()
	if err != nil {
		self = os.Args[0]
	}

	return &ProcessTestRunner{config: config, self: self}
}

// Command expands the template for one invocation.
func (r *ProcessTestRunner) Command(dir m.Path, assemblyFile string, tests []string) []string {
	replacer := strings.NewReplacer(
		PlaceholderSelf, r.self,
		PlaceholderDir, string(dir),
		PlaceholderAssembly, assemblyFile,
		PlaceholderTests, strings.Join(tests, ","),
	)

	args := make([]string, 0, len(r.config.Runtime)+len(r.config.Command))
	args = append(args, r.config.Runtime...)

	for _, arg := range r.config.Command {
		args = append(args, replacer.Replace(arg))
	}

	return args
}

// Run implements TestRunnerAdapter.
func (r *ProcessTestRunner) Run(ctx context.Context, dir m.Path, assemblyFile string, tests []string) (RunOutcome, string, error) {
	args := r.Command(dir, assemblyFile, tests)

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Dir = string(dir)
	cmd.WaitDelay = time.Second

	var output bytes.Buffer

	cmd.Stdout = &output
	cmd.Stderr = &output

	err := cmd.Run()

	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return RunTimedOut, output.String(), nil
	case ctx.Err() != nil:
		return RunFailed, output.String(), ctx.Err()
	case err == nil:
		return RunPassed, output.String(), nil
	}

	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return RunFailed, output.String(), fmt.Errorf("failed to launch test runner %s: %w", args[0], err)
	}

	if exitErr.ExitCode() == r.config.NoTestsExitCode {
		return RunNoTests, output.String(), nil
	}

	return RunFailed, output.String(), nil
}

// InProcessTestRunner runs tests with the built-in interpreter, without
// spawning a process.
type InProcessTestRunner struct {
	host *vm.Host
}

// NewInProcessTestRunner creates a runner reading sandboxes from fs.
func NewInProcessTestRunner(fs afero.Fs, stepBudget int) *InProcessTestRunner {
	return &InProcessTestRunner{host: vm.NewHost(fs, stepBudget)}
}

// Run implements TestRunnerAdapter.
func (r *InProcessTestRunner) Run(ctx context.Context, dir m.Path, assemblyFile string, tests []string) (RunOutcome, string, error) {
	results, err := r.host.RunTests(ctx, string(dir), assemblyFile, tests)

	switch {
	case err == nil:
	case errors.Is(err, context.DeadlineExceeded):
		outcome, output := SummarizeResults(results)
		if outcome == RunFailed {
			return outcome, output, nil
		}

		return RunTimedOut, output, nil
	default:
		return RunFailed, "", err
	}

	outcome, output := SummarizeResults(results)

	return outcome, output, nil
}

// SummarizeResults classifies test host results and renders one line per test.
// A regular failure takes precedence over an exhausted step budget.
func SummarizeResults(results []vm.TestResult) (RunOutcome, string) {
	if len(results) == 0 {
		return RunNoTests, "no tests matched\n"
	}

	var (
		sb        strings.Builder
		failed    bool
		exhausted bool
	)

	for _, r := range results {
		switch {
		case r.Passed:
			fmt.Fprintf(&sb, "PASS %s (%d steps, %s)\n", r.ID, r.Steps, r.Duration.Round(time.Microsecond))
		case r.Exhausted:
			exhausted = true

			fmt.Fprintf(&sb, "HANG %s: %s\n", r.ID, r.Message)
		default:
			failed = true

			fmt.Fprintf(&sb, "FAIL %s: %s\n", r.ID, r.Message)
		}
	}

	switch {
	case failed:
		return RunFailed, sb.String()
	case exhausted:
		return RunTimedOut, sb.String()
	default:
		return RunPassed, sb.String()
	}
}
