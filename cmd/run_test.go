package cmd

import (
	"bytes"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"gooze.dev/pkg/ninjaturtles/internal/domain"
	domainmocks "gooze.dev/pkg/ninjaturtles/internal/domain/mocks"
	"gooze.dev/pkg/ninjaturtles/internal/domain/turtles"
	m "gooze.dev/pkg/ninjaturtles/internal/model"
)

func withMockWorkflow(t *testing.T) *domainmocks.MockWorkflow {
	t.Helper()

	mockWorkflow := domainmocks.NewMockWorkflow(t)

	originalWorkflow := workflow
	workflow = mockWorkflow

	t.Cleanup(func() { workflow = originalWorkflow })

	return mockWorkflow
}

func TestRunCmd_Defaults(t *testing.T) {
	mockWorkflow := withMockWorkflow(t)

	cmd := newRootCmd()
	cmd.AddCommand(newRunCmd())
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})

	mockWorkflow.On("Run", mock.Anything, mock.MatchedBy(func(args domain.RunArgs) bool {
		return args.TestAssembly == m.Path("tests/Calc.Tests.asm.yaml") &&
			args.Output == m.Path(defaultReportFile) &&
			args.Parallel == defaultRunParallel &&
			args.MutationTimeout == defaultMutationTimeout &&
			args.Invariants == 0 &&
			args.Runner == domain.RunnerProcess &&
			args.PermutationCap == turtles.DefaultPermutationCap &&
			!args.Merge &&
			len(args.Turtles) == 0 &&
			len(args.Expectations) == 0
	})).Return(nil)

	cmd.SetArgs([]string{"run", "tests/Calc.Tests.asm.yaml"})
	err := cmd.Execute()
	require.NoError(t, err)
}

func TestRunCmd_Flags(t *testing.T) {
	mockWorkflow := withMockWorkflow(t)

	cmd := newRootCmd()
	cmd.AddCommand(newRunCmd())
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})

	mockWorkflow.On("Run", mock.Anything, mock.MatchedBy(func(args domain.RunArgs) bool {
		return args.Class == "Calc.Calculator" &&
			args.Method == "Add" &&
			slices.Equal(args.Params, []string{"int32", "int32"}) &&
			slices.Equal(args.Turtles, []string{"arithmetic", "boundary"}) &&
			args.Parallel == 4 &&
			args.MutationTimeout == 30*time.Second &&
			args.Invariants == 1 &&
			args.Output == m.Path("out/report.yaml") &&
			args.MetricsFile == m.Path("out/metrics.prom") &&
			args.Runner == domain.RunnerInProcess &&
			args.PermutationCap == 2 &&
			args.Merge
	})).Return(nil)

	cmd.SetArgs([]string{
		"run",
		"-c", "Calc.Calculator",
		"-m", "Add",
		"--params", "int32,int32",
		"-t", "arithmetic",
		"-t", "boundary",
		"-p", "4",
		"--mutation-timeout", "30s",
		"--invariants", "1",
		"-o", "out/report.yaml",
		"--metrics-file", "out/metrics.prom",
		"--in-process",
		"--permutation-cap", "2",
		"--merge",
		"Calc.Tests.asm.yaml",
	})
	err := cmd.Execute()
	require.NoError(t, err)
}

func TestRunCmd_RequiresTestAssembly(t *testing.T) {
	withMockWorkflow(t)

	cmd := newRootCmd()
	cmd.AddCommand(newRunCmd())
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})

	cmd.SetArgs([]string{"run"})
	err := cmd.Execute()
	require.Error(t, err)
}

func TestRunCmd_PropagatesFailure(t *testing.T) {
	mockWorkflow := withMockWorkflow(t)

	cmd := newRootCmd()
	cmd.AddCommand(newRunCmd())
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})

	failure := &domain.MutationTestFailure{Results: []m.MethodResult{
		{Target: "Calc.Calculator::Max", Turtle: "boundary", Verdict: m.VerdictFailed, Mutants: 1, Survived: 1},
	}}
	mockWorkflow.On("Run", mock.Anything, mock.Anything).Return(failure)

	cmd.SetArgs([]string{"run", "Calc.Tests.asm.yaml"})
	err := cmd.Execute()
	require.ErrorIs(t, err, failure)
	require.Equal(t, exitFailure, exitCode(err))
}

func TestListCmd_EstimatesTargets(t *testing.T) {
	mockWorkflow := withMockWorkflow(t)

	cmd := newRootCmd()
	cmd.AddCommand(newListCmd())
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})

	mockWorkflow.On("Estimate", mock.Anything, mock.MatchedBy(func(args domain.EstimateArgs) bool {
		return args.TestAssembly == m.Path("Calc.Tests.asm.yaml") &&
			args.Class == "Calc.Calculator" &&
			slices.Equal(args.Turtles, []string{"permutation"}) &&
			args.PermutationCap == turtles.DefaultPermutationCap
	})).Return(nil)

	cmd.SetArgs([]string{"list", "--class", "Calc.Calculator", "--turtle", "permutation", "Calc.Tests.asm.yaml"})
	err := cmd.Execute()
	require.NoError(t, err)
}
