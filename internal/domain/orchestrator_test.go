package domain_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"gooze.dev/pkg/ninjaturtles/internal/adapter"
	adaptermocks "gooze.dev/pkg/ninjaturtles/internal/adapter/mocks"
	"gooze.dev/pkg/ninjaturtles/internal/domain"
	"gooze.dev/pkg/ninjaturtles/internal/domain/turtles"
	"gooze.dev/pkg/ninjaturtles/internal/fixtures"
	m "gooze.dev/pkg/ninjaturtles/internal/model"
)

const (
	workDir     = "/work/calc"
	sandboxRoot = "/sandboxes"
	addsNumbers = "Calc.Tests.CalculatorTests.AddsNumbers"
)

type orchestratorFixture struct {
	fs        afero.Fs
	fsAdapter adapter.SandboxFSAdapter
	loader    adapter.AssemblyLoader
	runner    *adaptermocks.MockTestRunnerAdapter
	report    *m.Report

	mu       sync.Mutex
	outcomes []m.MutantOutcome
}

func newOrchestratorFixture(t *testing.T) *orchestratorFixture {
	t.Helper()

	fs := afero.NewMemMapFs()
	require.NoError(t, fixtures.WriteCalc(fs, workDir))

	loader, err := adapter.NewAssemblyLoader(fs, 8)
	require.NoError(t, err)

	return &orchestratorFixture{
		fs:        fs,
		fsAdapter: adapter.NewSandboxFSAdapter(fs, sandboxRoot),
		loader:    loader,
		runner:    adaptermocks.NewMockTestRunnerAdapter(t),
		report:    m.NewReport(),
	}
}

func (f *orchestratorFixture) job(t *testing.T, method string, tests []string) domain.MethodJob {
	t.Helper()

	asm, err := f.loader.Load(context.Background(), m.Path(workDir+"/"+fixtures.CalcAssembly))
	require.NoError(t, err)

	methods := asm.FindMethods("Calc.Calculator", method, nil)
	require.Len(t, methods, 1)

	return domain.MethodJob{
		Target: m.Target{
			Assembly: asm.Name,
			Type:     "Calc.Calculator",
			Method:   method,
			Params:   methods[0].ParamTypes(),
		},
		Base:             asm,
		Method:           methods[0],
		BaseDir:          workDir,
		AssemblyFile:     fixtures.CalcAssembly,
		TestAssemblyFile: fixtures.CalcTests,
		Tests:            tests,
		Timeout:          time.Minute,
		Runner:           f.runner,
		Report:           f.report,
		OnOutcome: func(o m.MutantOutcome) {
			f.mu.Lock()
			defer f.mu.Unlock()

			f.outcomes = append(f.outcomes, o)
		},
	}
}

func (f *orchestratorFixture) orchestrator() domain.Orchestrator {
	return domain.NewOrchestrator(f.fsAdapter, f.loader)
}

func inSandbox(dir m.Path) bool {
	return strings.HasPrefix(string(dir), sandboxRoot+"/")
}

func TestOrchestrator_StatusMapping(t *testing.T) {
	tests := []struct {
		name        string
		outcome     adapter.RunOutcome
		runErr      error
		wantStatus  m.TestStatus
		wantVerdict m.Verdict
		wantKilled  int
		wantInFile  int
	}{
		{name: "failing tests kill", outcome: adapter.RunFailed, wantStatus: m.Killed, wantVerdict: m.VerdictPassed, wantKilled: 4, wantInFile: 4},
		{name: "passing tests survive", outcome: adapter.RunPassed, wantStatus: m.Survived, wantVerdict: m.VerdictFailed, wantInFile: 4},
		{name: "hang is a timeout", outcome: adapter.RunTimedOut, wantStatus: m.Timeout, wantVerdict: m.VerdictPassed, wantKilled: 4, wantInFile: 4},
		{name: "no matching tests", outcome: adapter.RunNoTests, wantStatus: m.Inapplicable, wantVerdict: m.VerdictNoTests},
		{name: "runner error", outcome: adapter.RunFailed, runErr: errors.New("exec: not found"), wantStatus: m.Error, wantVerdict: m.VerdictError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newOrchestratorFixture(t)
			f.runner.EXPECT().
				Run(mock.Anything, mock.MatchedBy(inSandbox), fixtures.CalcTests, []string{addsNumbers}).
				Return(tt.outcome, "output", tt.runErr).
				Times(4)

			result, err := f.orchestrator().TestMethod(context.Background(), f.job(t, "Add", []string{addsNumbers}), turtles.ArithmeticTurtle{})
			require.NoError(t, err)

			assert.Equal(t, "Calc.Calculator::Add(int32,int32)", result.Target)
			assert.Equal(t, "arithmetic", result.Turtle)
			assert.Equal(t, 4, result.Mutants)
			assert.Equal(t, tt.wantVerdict, result.Verdict)

			require.Len(t, f.outcomes, 4)

			for _, o := range f.outcomes {
				assert.Equal(t, tt.wantStatus, o.Status)
				assert.Equal(t, "src/Calculator.cs", o.Document)
				assert.Equal(t, 11, o.Line)
				assert.Equal(t, 3, o.OriginalOffset)
			}

			summary := f.report.Summary()
			assert.Equal(t, tt.wantInFile, summary.Mutants)
			assert.Equal(t, tt.wantKilled, summary.Killed)
			assert.Equal(t, 3, summary.Locations, "every visible point of Add is registered")
		})
	}
}

func TestOrchestrator_SurvivorsCarryDiff(t *testing.T) {
	f := newOrchestratorFixture(t)
	f.runner.EXPECT().Run(mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(adapter.RunPassed, "", nil).Times(4)

	_, err := f.orchestrator().TestMethod(context.Background(), f.job(t, "Add", []string{addsNumbers}), turtles.ArithmeticTurtle{})
	require.NoError(t, err)

	require.Len(t, f.outcomes, 4)

	for _, o := range f.outcomes {
		assert.Contains(t, o.Diff, "+++ Calc.Calculator::Add (mutant)")
		assert.Contains(t, o.Diff, "add")
	}
}

func TestOrchestrator_ExpectedSurvivorsPass(t *testing.T) {
	f := newOrchestratorFixture(t)
	f.runner.EXPECT().Run(mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(adapter.RunPassed, "", nil).Times(4)

	job := f.job(t, "Add", []string{addsNumbers})
	job.Expected = 4

	result, err := f.orchestrator().TestMethod(context.Background(), job, turtles.ArithmeticTurtle{})
	require.NoError(t, err)
	assert.Equal(t, m.VerdictPassed, result.Verdict)
	assert.Equal(t, 4, result.Survived)
}

func TestOrchestrator_NoTestsSkipsSandboxes(t *testing.T) {
	f := newOrchestratorFixture(t)

	result, err := f.orchestrator().TestMethod(context.Background(), f.job(t, "Add", nil), turtles.ArithmeticTurtle{})
	require.NoError(t, err)

	assert.Equal(t, m.VerdictNoTests, result.Verdict)
	assert.Equal(t, 4, result.Inapplicable)
	require.Len(t, f.outcomes, 4)

	for _, o := range f.outcomes {
		assert.Equal(t, m.Inapplicable, o.Status)
		assert.Equal(t, "no valid tests found to run", o.Output)
	}

	exists, err := afero.DirExists(f.fs, sandboxRoot)
	require.NoError(t, err)
	assert.False(t, exists, "no sandbox is created without tests")

	assert.Zero(t, f.report.Summary().Mutants)
	f.runner.AssertNotCalled(t, "Run", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestOrchestrator_NoMutants(t *testing.T) {
	f := newOrchestratorFixture(t)

	result, err := f.orchestrator().TestMethod(context.Background(), f.job(t, "Add", []string{addsNumbers}), turtles.BranchTurtle{})
	require.NoError(t, err)
	assert.Equal(t, m.VerdictNoMutants, result.Verdict)
	assert.False(t, result.Verdict.Failed())
	assert.Empty(t, f.outcomes)
}

func TestOrchestrator_RunsWithPerMutantDeadline(t *testing.T) {
	f := newOrchestratorFixture(t)

	hasDeadline := mock.MatchedBy(func(ctx context.Context) bool {
		_, ok := ctx.Deadline()
		return ok
	})
	f.runner.EXPECT().Run(hasDeadline, mock.Anything, mock.Anything, mock.Anything).Return(adapter.RunFailed, "", nil).Times(4)

	_, err := f.orchestrator().TestMethod(context.Background(), f.job(t, "Add", []string{addsNumbers}), turtles.ArithmeticTurtle{})
	require.NoError(t, err)
}

func TestOrchestrator_CancellationStopsRun(t *testing.T) {
	f := newOrchestratorFixture(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f.runner.EXPECT().
		Run(mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Run(func(_ mock.Arguments) { cancel() }).
		Return(adapter.RunFailed, "", nil).
		Once()

	_, err := f.orchestrator().TestMethod(ctx, f.job(t, "Add", []string{addsNumbers}), turtles.ArithmeticTurtle{})
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, f.outcomes, "an interrupted mutant is not recorded")

	entries, err := afero.ReadDir(f.fs, sandboxRoot)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
