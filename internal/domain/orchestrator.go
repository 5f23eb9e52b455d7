package domain

import (
	"context"
	"log/slog"
	"time"

	"github.com/pmezard/go-difflib/difflib"

	"gooze.dev/pkg/ninjaturtles/internal/adapter"
	"gooze.dev/pkg/ninjaturtles/internal/domain/turtles"
	"gooze.dev/pkg/ninjaturtles/internal/il"
	m "gooze.dev/pkg/ninjaturtles/internal/model"
)

const noValidTests = "no valid tests found to run"

// MethodJob is everything needed to mutation-test one method.
type MethodJob struct {
	Target m.Target
	// Base is the assembly under test, Method one of its methods.
	Base   *il.Assembly
	Method *il.Method
	// BaseDir holds the test assembly and everything it references.
	BaseDir          m.Path
	AssemblyFile     string
	TestAssemblyFile string
	// Tests are the attributed test identifiers.
	Tests    []string
	Expected int
	Timeout  time.Duration
	Runner   adapter.TestRunnerAdapter
	// Report and OnOutcome are optional sinks.
	Report    *m.Report
	OnOutcome func(m.MutantOutcome)
}

// Orchestrator runs the mutants one turtle yields for a method against the
// attributed tests, one sandbox per mutant, and judges the combination.
type Orchestrator interface {
	TestMethod(ctx context.Context, job MethodJob, turtle turtles.Turtle) (m.MethodResult, error)
}

type orchestrator struct {
	fsAdapter adapter.SandboxFSAdapter
	loader    adapter.AssemblyLoader
}

// NewOrchestrator constructs an Orchestrator backed by the provided
// filesystem and assembly loader adapters.
func NewOrchestrator(fsAdapter adapter.SandboxFSAdapter, loader adapter.AssemblyLoader) Orchestrator {
	return &orchestrator{
		fsAdapter: fsAdapter,
		loader:    loader,
	}
}

// TestMethod tests mutants strictly one after another. It only returns an
// error when ctx is cancelled; per-mutant faults become Error outcomes.
func (to *orchestrator) TestMethod(ctx context.Context, job MethodJob, turtle turtles.Turtle) (m.MethodResult, error) {
	start := time.Now()
	result := m.MethodResult{
		Target:   job.Target.FullName(),
		Turtle:   turtle.Name(),
		Tests:    job.Tests,
		Expected: job.Expected,
	}

	if job.Report != nil {
		job.Report.RegisterMethod(job.Method)
	}

	mutants := turtle.Mutate(job.Method)

	if len(job.Tests) == 0 {
		for mutant := range mutants {
			to.record(job, &result, mutant, m.Inapplicable, noValidTests, 0)
		}

		result.Duration = time.Since(start)
		result.Judge()

		return result, ctx.Err()
	}

	src := mutantSource{
		Base:         job.Base,
		Method:       job.Method,
		BaseDir:      job.BaseDir,
		AssemblyFile: job.AssemblyFile,
	}

	for sm := range sandboxedMutants(ctx, to.fsAdapter, to.loader, src, mutants) {
		mutantStart := time.Now()
		status, output := to.runMutant(ctx, job, sm)

		if ctx.Err() != nil {
			break
		}

		to.record(job, &result, sm.Mutant, status, output, time.Since(mutantStart))
	}

	result.Duration = time.Since(start)

	if err := ctx.Err(); err != nil {
		return result, err
	}

	result.Judge()

	return result, nil
}

func (to *orchestrator) runMutant(ctx context.Context, job MethodJob, sm sandboxedMutant) (m.TestStatus, string) {
	if sm.Err != nil {
		return m.Error, sm.Err.Error()
	}

	runCtx := ctx

	if job.Timeout > 0 {
		var cancel context.CancelFunc

		runCtx, cancel = context.WithTimeout(ctx, job.Timeout)
		defer cancel()
	}

	outcome, output, err := job.Runner.Run(runCtx, sm.Dir, job.TestAssemblyFile, job.Tests)
	if err != nil {
		slog.Error("Failed to run tests", "target", job.Target.FullName(), "mutant", sm.Description, "error", err)
		return m.Error, err.Error()
	}

	return statusForOutcome(outcome), output
}

func statusForOutcome(outcome adapter.RunOutcome) m.TestStatus {
	switch outcome {
	case adapter.RunPassed:
		return m.Survived
	case adapter.RunFailed:
		return m.Killed
	case adapter.RunTimedOut:
		return m.Timeout
	case adapter.RunNoTests:
		return m.Inapplicable
	default:
		return m.Error
	}
}

func (to *orchestrator) record(job MethodJob, result *m.MethodResult, mutant turtles.Mutant, status m.TestStatus, output string, duration time.Duration) {
	result.Add(status)

	outcome := m.MutantOutcome{
		Target:         result.Target,
		Turtle:         mutant.Turtle,
		Description:    mutant.Description,
		Status:         status,
		OriginalOffset: mutant.Original.OriginalOffset,
		Duration:       duration,
		Output:         output,
	}

	if mutant.Point != nil {
		outcome.Document = mutant.Point.Document
		outcome.Line = mutant.Point.StartLine

		if job.Report != nil && status.Scored() {
			job.Report.RecordResult(mutant.Point.Document, m.LocationOf(mutant.Point), mutant.Description, status.Detected())
		}
	}

	if status == m.Survived {
		outcome.Diff = mutantDiff(job.Method, mutant.Method)
	}

	slog.Debug("mutant tested", "target", result.Target, "mutant", mutant.Description, "status", status, "duration", duration)

	if job.OnOutcome != nil {
		job.OnOutcome(outcome)
	}
}

// mutantDiff renders a unified diff between the expanded listing of base and
// the listing of its mutant.
func mutantDiff(base, mutant *il.Method) string {
	expanded := base
	if base.Body != nil {
		expanded = base.WithBody(base.Body.Expand())
	}

	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(il.Disassemble(expanded)),
		B:        difflib.SplitLines(il.Disassemble(mutant)),
		FromFile: base.FullName(),
		ToFile:   base.FullName() + " (mutant)",
		Context:  1,
	}

	text, err := difflib.GetUnifiedDiffString(diff)
	if err != nil {
		slog.Debug("failed to diff mutant", "method", base.FullName(), "error", err)
		return ""
	}

	return text
}
