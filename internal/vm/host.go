package vm

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"time"

	"github.com/spf13/afero"

	"gooze.dev/pkg/ninjaturtles/internal/il"
)

// TestResult is the outcome of one test method.
type TestResult struct {
	ID      string
	Passed  bool
	Message string
	// Exhausted is set when the test ran out of its step budget.
	Exhausted bool
	Steps     int
	Duration  time.Duration
}

// Host discovers and runs the tests of an assembly inside a directory.
// Referenced assemblies are loaded from the same directory.
type Host struct {
	fs     afero.Fs
	budget int
}

// NewHost creates a host reading assemblies from fs.
func NewHost(fs afero.Fs, budget int) *Host {
	if budget == 0 {
		budget = DefaultStepBudget
	}

	return &Host{fs: fs, budget: budget}
}

// RunTests runs the tests of assemblyFile in dir whose identifiers are listed
// in ids, or every test when ids is empty. Each test gets a fresh machine.
// A nil slice with no error means no test matched.
func (h *Host) RunTests(ctx context.Context, dir, assemblyFile string, ids []string) ([]TestResult, error) {
	tests, err := h.Load(dir, assemblyFile)
	if err != nil {
		return nil, err
	}

	loaded, err := h.loadReferences(dir, tests)
	if err != nil {
		return nil, err
	}

	var results []TestResult

	for _, method := range DiscoverTests(tests) {
		if len(ids) > 0 && !slices.Contains(ids, method.TestID()) {
			continue
		}

		result, err := h.runTest(ctx, loaded, method)
		if err != nil {
			return results, err
		}

		results = append(results, result)
	}

	return results, nil
}

// Load reads and decodes one assembly file.
func (h *Host) Load(dir, file string) (*il.Assembly, error) {
	data, err := afero.ReadFile(h.fs, filepath.Join(dir, file))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", file, err)
	}

	asm, err := il.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", file, err)
	}

	return asm, nil
}

func (h *Host) loadReferences(dir string, root *il.Assembly) ([]*il.Assembly, error) {
	loaded := []*il.Assembly{root}
	seen := map[string]bool{root.Name: true}
	queue := slices.Clone(root.References)

	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]

		if seen[name] {
			continue
		}

		seen[name] = true

		asm, err := h.Load(dir, name+il.AssemblyExt)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve reference %s: %w", name, err)
		}

		loaded = append(loaded, asm)
		queue = append(queue, asm.References...)
	}

	return loaded, nil
}

func (h *Host) runTest(ctx context.Context, assemblies []*il.Assembly, method *il.Method) (TestResult, error) {
	start := time.Now()
	machine := New(h.budget, assemblies...)
	result := TestResult{ID: method.TestID()}

	err := h.invokeTest(ctx, machine, method)
	result.Steps = machine.Steps()
	result.Duration = time.Since(start)

	var exception *Exception

	switch {
	case err == nil:
		result.Passed = true
	case errors.Is(err, ErrStepBudget):
		result.Message = err.Error()
		result.Exhausted = true
	case errors.As(err, &exception):
		result.Message = err.Error()
	default:
		return result, err
	}

	return result, nil
}

func (h *Host) invokeTest(ctx context.Context, machine *Machine, method *il.Method) error {
	if method.Static {
		_, err := machine.Invoke(ctx, method)
		return err
	}

	fixture, err := machine.Construct(ctx, method.DeclaringType)
	if err != nil {
		return err
	}

	_, err = machine.Invoke(ctx, method, fixture)

	return err
}

// DiscoverTests lists the methods marked as tests, in declaration order.
func DiscoverTests(asm *il.Assembly) []*il.Method {
	var tests []*il.Method

	for _, m := range asm.Methods() {
		if m.Body != nil && m.HasAttribute(il.TestAttribute) && len(m.Parameters) == 0 {
			tests = append(tests, m)
		}
	}

	return tests
}
