// Package domain implements the ninjaturtles mutation testing workflow: target
// resolution, per-mutant sandboxes, test orchestration and reporting.
package domain

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"gooze.dev/pkg/ninjaturtles/internal/adapter"
	"gooze.dev/pkg/ninjaturtles/internal/controller"
	"gooze.dev/pkg/ninjaturtles/internal/domain/turtles"
	"gooze.dev/pkg/ninjaturtles/internal/il"
	m "gooze.dev/pkg/ninjaturtles/internal/model"
	pkg "gooze.dev/pkg/ninjaturtles/pkg"
)

// Runner names.
const (
	RunnerProcess   = "process"
	RunnerInProcess = "in-process"
)

// TargetArgs selects the methods to mutate.
type TargetArgs struct {
	// TestAssembly is the path of the test assembly. The assemblies under test
	// are its references, resolved next to it.
	TestAssembly m.Path `validate:"required"`
	// Class restricts targets to one type; empty means every type.
	Class string
	// Method restricts targets to one method name.
	Method string
	// Params restricts overloads by parameter types; nil matches all.
	Params []string
	// Turtles restricts the catalog by name; empty means every turtle.
	Turtles        []string `validate:"dive,required"`
	PermutationCap int      `validate:"min=0"`
}

// EstimateArgs contains the arguments for listing planned mutants.
type EstimateArgs struct {
	TargetArgs
}

// Expectation declares how many mutants may survive for matching targets.
type Expectation struct {
	Type      string `mapstructure:"type" yaml:"type" validate:"required"`
	Method    string `mapstructure:"method" yaml:"method,omitempty"`
	Turtle    string `mapstructure:"turtle" yaml:"turtle,omitempty"`
	Survivors int    `mapstructure:"survivors" yaml:"survivors" validate:"min=0"`
}

func (e Expectation) matches(method *il.Method, turtle string) bool {
	return e.Type == method.DeclaringType &&
		(e.Method == "" || e.Method == method.Name) &&
		(e.Turtle == "" || e.Turtle == turtle)
}

// RunArgs contains the arguments for running mutation tests.
type RunArgs struct {
	TargetArgs

	Output          m.Path        `validate:"required"`
	Merge           bool
	Parallel        int           `validate:"min=1"`
	MutationTimeout time.Duration `validate:"gt=0"`
	// Invariants is the default number of expected survivors.
	Invariants   int           `validate:"min=0"`
	Expectations []Expectation `validate:"dive"`
	Runner       string        `validate:"required"`
	MetricsFile  m.Path
	SpillDir     string
}

// MergeArgs contains the arguments for merging report files.
type MergeArgs struct {
	Output m.Path   `validate:"required"`
	Inputs []m.Path `validate:"min=1,dive,required"`
}

// ViewArgs contains the arguments for displaying a report.
type ViewArgs struct {
	Report m.Path `validate:"required"`
}

// Workflow defines the mutation testing use cases exposed to the CLI.
type Workflow interface {
	Run(ctx context.Context, args RunArgs) error
	Estimate(ctx context.Context, args EstimateArgs) error
	Merge(ctx context.Context, args MergeArgs) error
	View(ctx context.Context, args ViewArgs) error
}

// MetricsFactory creates the metrics sink of one run.
type MetricsFactory func() adapter.MetricsAdapter

type workflow struct {
	adapter.SandboxFSAdapter
	adapter.AssemblyLoader
	adapter.TestAttributionAdapter
	adapter.ReportStore
	controller.UI
	Orchestrator

	runners    map[string]adapter.TestRunnerAdapter
	newMetrics MetricsFactory
	validate   *validator.Validate
}

// NewWorkflow creates a new Workflow instance with the provided dependencies.
func NewWorkflow(
	fsAdapter adapter.SandboxFSAdapter,
	loader adapter.AssemblyLoader,
	attribution adapter.TestAttributionAdapter,
	reportStore adapter.ReportStore,
	ui controller.UI,
	orchestrator Orchestrator,
	runners map[string]adapter.TestRunnerAdapter,
	newMetrics MetricsFactory,
) Workflow {
	if newMetrics == nil {
		newMetrics = func() adapter.MetricsAdapter { return adapter.NewPrometheusMetrics() }
	}

	return &workflow{
		SandboxFSAdapter:       fsAdapter,
		AssemblyLoader:         loader,
		TestAttributionAdapter: attribution,
		ReportStore:            reportStore,
		UI:                     ui,
		Orchestrator:           orchestrator,
		runners:                runners,
		newMetrics:             newMetrics,
		validate:               validator.New(validator.WithRequiredStructEnabled()),
	}
}

// methodTarget is one method of an assembly under test.
type methodTarget struct {
	target m.Target
	asm    *il.Assembly
	file   string
	method *il.Method
}

// plan is a validated selection of targets and turtles.
type plan struct {
	baseDir  m.Path
	testFile string
	tests    *il.Assembly
	targets  []methodTarget
	turtles  []turtles.Turtle
}

func (w *workflow) Run(ctx context.Context, args RunArgs) error {
	if err := w.check(args); err != nil {
		return err
	}

	runner, ok := w.runners[args.Runner]
	if !ok {
		return configErrorf("unknown test runner %q", args.Runner)
	}

	p, err := w.plan(ctx, args.TargetArgs)
	if err != nil {
		return err
	}

	if len(p.targets) == 0 {
		return ErrNoMutationsRun
	}

	runID := uuid.NewString()
	logger := slog.With("run", runID)
	logger.Info("Starting mutation run", "tests", args.TestAssembly, "methods", len(p.targets), "turtles", len(p.turtles), "runner", args.Runner)

	spill, err := pkg.NewFileSpill[m.MutantOutcome](args.SpillDir)
	if err != nil {
		return fmt.Errorf("create outcome spill: %w", err)
	}
	defer spill.Close()

	if err := w.Start(ctx, controller.WithTestMode()); err != nil {
		logger.Error("Failed to start workflow UI", "error", err)
		return err
	}

	w.DisplayRunInfo(ctx, m.RunInfo{
		ID:           runID,
		TestAssembly: string(args.TestAssembly),
		Methods:      len(p.targets),
		Turtles:      turtleNames(p.turtles),
		Parallel:     args.Parallel,
	})

	report := m.NewReport()
	metrics := w.newMetrics()

	results, err := w.testTargets(ctx, args, p, runner, report, metrics, spill)
	if err != nil {
		w.Close(ctx)
		logger.Error("Mutation run aborted", "error", err)

		return fmt.Errorf("run mutation tests: %w", err)
	}

	w.attachSourceLines(report, p.baseDir)

	if err := w.saveReport(ctx, args, report); err != nil {
		w.Close(ctx)
		logger.Error("Failed to save report", "path", args.Output, "error", err)

		return fmt.Errorf("save report: %w", err)
	}

	score, err := mutationScoreFromOutcomes(spill)
	if err != nil {
		w.Close(ctx)
		return fmt.Errorf("compute mutation score: %w", err)
	}

	metrics.RecordScore(score)

	if args.MetricsFile != "" {
		if err := metrics.Flush(args.MetricsFile); err != nil {
			logger.Warn("Failed to write metrics", "path", args.MetricsFile, "error", err)
		}
	}

	w.DisplayMutationScore(ctx, report.Summary(), score)
	w.Wait(ctx)
	w.Close(ctx)

	logger.Info("Mutation run finished", "score", score, "combinations", len(results))

	return verdictError(results)
}

func (w *workflow) testTargets(
	ctx context.Context,
	args RunArgs,
	p plan,
	runner adapter.TestRunnerAdapter,
	report *m.Report,
	metrics adapter.MetricsAdapter,
	spill pkg.FileSpill[m.MutantOutcome],
) ([]m.MethodResult, error) {
	var (
		results   []m.MethodResult
		resultsMu sync.Mutex
	)

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(args.Parallel)

	onOutcome := func(outcome m.MutantOutcome) {
		if err := spill.Append(outcome); err != nil {
			slog.Error("Failed to spill outcome", "mutant", outcome.Description, "error", err)
		}

		metrics.RecordMutant(outcome.Turtle, outcome.Status, outcome.Duration)
		w.DisplayMutantOutcome(ctx, outcome)
	}

	for i, target := range p.targets {
		workerID := i%args.Parallel + 1

		group.Go(func() error {
			tests := w.TestsFor(p.tests, target.method.DeclaringType, target.method.Name)

			for _, turtle := range p.turtles {
				w.DisplayStartingMethod(groupCtx, target.target.FullName(), turtle.Name(), workerID)

				result, err := w.TestMethod(groupCtx, MethodJob{
					Target:           target.target,
					Base:             target.asm,
					Method:           target.method,
					BaseDir:          p.baseDir,
					AssemblyFile:     target.file,
					TestAssemblyFile: p.testFile,
					Tests:            tests,
					Expected:         expectedSurvivors(args, target.method, turtle.Name()),
					Timeout:          args.MutationTimeout,
					Runner:           runner,
					Report:           report,
					OnOutcome:        onOutcome,
				}, turtle)
				if err != nil {
					return err
				}

				metrics.RecordMethod(turtle.Name(), !result.Verdict.Failed())
				w.DisplayMethodResult(groupCtx, result)

				resultsMu.Lock()
				results = append(results, result)
				resultsMu.Unlock()
			}

			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}

	slices.SortFunc(results, func(a, b m.MethodResult) int {
		return cmp.Or(strings.Compare(a.Target, b.Target), strings.Compare(a.Turtle, b.Turtle))
	})

	return results, nil
}

func expectedSurvivors(args RunArgs, method *il.Method, turtle string) int {
	for _, e := range args.Expectations {
		if e.matches(method, turtle) {
			return e.Survivors
		}
	}

	return args.Invariants
}

func verdictError(results []m.MethodResult) error {
	if len(results) == 0 {
		return ErrNoMutationsRun
	}

	var failed []m.MethodResult

	for _, r := range results {
		if r.Verdict.Failed() {
			failed = append(failed, r)
		}
	}

	if len(failed) > 0 {
		return &MutationTestFailure{Results: failed}
	}

	return nil
}

func (w *workflow) saveReport(ctx context.Context, args RunArgs, report *m.Report) error {
	if args.Merge {
		return w.ReportStore.Merge(ctx, args.Output, report)
	}

	return w.Write(ctx, args.Output, report)
}

// attachSourceLines reads the source documents the report mentions, relative
// to baseDir when they are not found as given. Missing sources are skipped.
func (w *workflow) attachSourceLines(report *m.Report, baseDir m.Path) {
	for _, file := range report.Snapshot().Files {
		candidates := []m.Path{m.Path(file.URL)}
		if !filepath.IsAbs(file.URL) {
			candidates = append(candidates, w.JoinPath(string(baseDir), file.URL))
		}

		for _, path := range candidates {
			data, err := w.ReadFile(path)
			if err != nil {
				continue
			}

			report.SetSourceLines(file.URL, strings.Split(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n"))

			break
		}
	}
}

func (w *workflow) Estimate(ctx context.Context, args EstimateArgs) error {
	if err := w.check(args); err != nil {
		return err
	}

	if err := w.Start(ctx, controller.WithEstimateMode()); err != nil {
		slog.Error("Failed to start workflow UI", "error", err)
		return err
	}

	estimates, err := w.estimate(ctx, args)
	if displayErr := w.DisplayEstimation(ctx, estimates, err); displayErr != nil {
		w.Close(ctx)
		slog.Error("Failed to display estimation", "error", displayErr)

		return fmt.Errorf("display: %w", displayErr)
	}

	w.Wait(ctx)
	w.Close(ctx)

	return nil
}

func (w *workflow) estimate(ctx context.Context, args EstimateArgs) ([]m.Estimate, error) {
	p, err := w.plan(ctx, args.TargetArgs)
	if err != nil {
		return nil, err
	}

	var estimates []m.Estimate

	for _, target := range p.targets {
		tests := w.TestsFor(p.tests, target.method.DeclaringType, target.method.Name)

		for _, turtle := range p.turtles {
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			estimates = append(estimates, m.Estimate{
				Target:  target.target.FullName(),
				Turtle:  turtle.Name(),
				Mutants: turtles.Count(turtle.Mutate(target.method)),
				Tests:   len(tests),
			})
		}
	}

	return estimates, nil
}

func (w *workflow) Merge(ctx context.Context, args MergeArgs) error {
	if err := w.check(args); err != nil {
		return err
	}

	merged := m.NewReport()

	for _, input := range args.Inputs {
		report, err := w.Read(ctx, input)
		if err != nil {
			slog.Error("Failed to read report", "path", input, "error", err)
			return fmt.Errorf("read report %s: %w", input, err)
		}

		merged.MergeFrom(report)
	}

	if err := w.ReportStore.Merge(ctx, args.Output, merged); err != nil {
		slog.Error("Failed to merge reports", "path", args.Output, "error", err)
		return fmt.Errorf("merge into %s: %w", args.Output, err)
	}

	if err := w.Start(ctx, controller.WithViewMode()); err != nil {
		return err
	}

	summary := merged.Summary()
	w.DisplayMutationScore(ctx, summary, summary.Score())
	w.Close(ctx)

	return nil
}

func (w *workflow) View(ctx context.Context, args ViewArgs) error {
	if err := w.check(args); err != nil {
		return err
	}

	report, err := w.Read(ctx, args.Report)
	if err != nil {
		slog.Error("Failed to read report", "path", args.Report, "error", err)
		return fmt.Errorf("read report %s: %w", args.Report, err)
	}

	if err := w.Start(ctx, controller.WithViewMode()); err != nil {
		return err
	}

	if err := w.DisplayReport(ctx, report.Snapshot()); err != nil {
		w.Close(ctx)
		return fmt.Errorf("display: %w", err)
	}

	w.Wait(ctx)
	w.Close(ctx)

	return nil
}

func (w *workflow) check(args any) error {
	if err := w.validate.Struct(args); err != nil {
		return &ConfigurationError{Err: err}
	}

	return nil
}

// plan loads the test assembly and resolves targets and turtles.
func (w *workflow) plan(ctx context.Context, args TargetArgs) (plan, error) {
	selected, err := selectTurtles(args)
	if err != nil {
		return plan{}, err
	}

	if _, err := w.FileInfo(args.TestAssembly); err != nil {
		return plan{}, &ConfigurationError{Err: fmt.Errorf("%w: %s", ErrTestAssemblyNotFound, args.TestAssembly)}
	}

	tests, err := w.Load(ctx, args.TestAssembly)
	if err != nil {
		return plan{}, &ConfigurationError{Err: err}
	}

	p := plan{
		baseDir:  m.Path(filepath.Dir(string(args.TestAssembly))),
		testFile: filepath.Base(string(args.TestAssembly)),
		tests:    tests,
		turtles:  selected,
	}

	p.targets, err = w.resolveTargets(ctx, p.baseDir, tests, args)
	if err != nil {
		return plan{}, err
	}

	return p, nil
}

func selectTurtles(args TargetArgs) ([]turtles.Turtle, error) {
	registry := turtles.NewRegistry(turtles.Config{PermutationCap: args.PermutationCap})
	if len(args.Turtles) == 0 {
		return registry.All(), nil
	}

	selected := make([]turtles.Turtle, 0, len(args.Turtles))

	for _, name := range args.Turtles {
		turtle, ok := registry.Lookup(name)
		if !ok {
			return nil, &ConfigurationError{Err: fmt.Errorf("%w: %q (available: %s)", ErrUnknownTurtle, name, strings.Join(registry.Names(), ", "))}
		}

		selected = append(selected, turtle)
	}

	return selected, nil
}

// resolveTargets walks the references of the test assembly and collects
// the methods matching the filters.
func (w *workflow) resolveTargets(ctx context.Context, baseDir m.Path, tests *il.Assembly, args TargetArgs) ([]methodTarget, error) {
	var (
		targets   []methodTarget
		typeFound bool
	)

	for _, ref := range tests.References {
		file := ref + il.AssemblyExt

		asm, err := w.Load(ctx, w.JoinPath(string(baseDir), file))
		if err != nil {
			return nil, &ConfigurationError{Err: fmt.Errorf("load assembly under test %s: %w", ref, err)}
		}

		for _, t := range asm.Types {
			if args.Class != "" && t.Name != args.Class {
				continue
			}

			typeFound = true

			for _, method := range asm.FindMethods(t.Name, args.Method, args.Params) {
				if method.Body == nil {
					continue
				}

				targets = append(targets, methodTarget{
					target: m.Target{
						Assembly: asm.Name,
						Type:     method.DeclaringType,
						Method:   method.Name,
						Params:   method.ParamTypes(),
					},
					asm:    asm,
					file:   file,
					method: method,
				})
			}
		}
	}

	if args.Class != "" && !typeFound {
		return nil, &ConfigurationError{Err: fmt.Errorf("%w: %s", ErrTypeNotFound, args.Class)}
	}

	if args.Method != "" && len(targets) == 0 {
		return nil, &ConfigurationError{Err: fmt.Errorf("%w: %s::%s(%s)", ErrMethodNotFound, cmp.Or(args.Class, "*"), args.Method, strings.Join(args.Params, ","))}
	}

	return targets, nil
}

func turtleNames(selected []turtles.Turtle) []string {
	names := make([]string, len(selected))
	for i, t := range selected {
		names[i] = t.Name()
	}

	return names
}

// IsConfigurationError reports whether err was caused by invalid inputs.
func IsConfigurationError(err error) bool {
	var configErr *ConfigurationError
	return errors.As(err, &configErr)
}
