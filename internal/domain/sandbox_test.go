package domain

import (
	"context"
	"errors"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gooze.dev/pkg/ninjaturtles/internal/adapter"
	"gooze.dev/pkg/ninjaturtles/internal/domain/turtles"
	"gooze.dev/pkg/ninjaturtles/internal/fixtures"
	"gooze.dev/pkg/ninjaturtles/internal/il"
	m "gooze.dev/pkg/ninjaturtles/internal/model"
)

const (
	calcDir     = "/work/calc"
	sandboxRoot = "/sandboxes"
)

type failingCopyFS struct {
	adapter.SandboxFSAdapter
}

func (failingCopyFS) CopyDir(_, _ m.Path) error {
	return errors.New("disk full")
}

func calcWorkspace(t *testing.T) (afero.Fs, adapter.SandboxFSAdapter, adapter.AssemblyLoader, mutantSource) {
	t.Helper()

	fs := afero.NewMemMapFs()
	require.NoError(t, fixtures.WriteCalc(fs, calcDir))

	loader, err := adapter.NewAssemblyLoader(fs, 8)
	require.NoError(t, err)

	asm, err := loader.Load(context.Background(), m.Path(calcDir+"/"+fixtures.CalcAssembly))
	require.NoError(t, err)

	methods := asm.FindMethods("Calc.Calculator", "Add", nil)
	require.Len(t, methods, 1)

	return fs, adapter.NewSandboxFSAdapter(fs, sandboxRoot), loader, mutantSource{
		Base:         asm,
		Method:       methods[0],
		BaseDir:      calcDir,
		AssemblyFile: fixtures.CalcAssembly,
	}
}

func sandboxCount(t *testing.T, fs afero.Fs) int {
	t.Helper()

	entries, err := afero.ReadDir(fs, sandboxRoot)
	if errors.Is(err, afero.ErrFileNotFound) {
		return 0
	}

	require.NoError(t, err)

	return len(entries)
}

func TestSandboxedMutants_SavesMutantAndDisposes(t *testing.T) {
	ctx := context.Background()
	fs, fsAdapter, loader, src := calcWorkspace(t)

	var dirs []m.Path

	for sm := range sandboxedMutants(ctx, fsAdapter, loader, src, turtles.ArithmeticTurtle{}.Mutate(src.Method)) {
		require.NoError(t, sm.Err)
		require.Equal(t, 1, sandboxCount(t, fs))

		saved, err := loader.Load(ctx, fsAdapter.JoinPath(string(sm.Dir), fixtures.CalcAssembly))
		require.NoError(t, err)

		methods := saved.FindMethods("Calc.Calculator", "Add", nil)
		require.Len(t, methods, 1)
		assert.Equal(t, sm.Method.Body.At(sm.Index).OpCode, methods[0].Body.At(sm.Index).OpCode)

		exists, err := afero.Exists(fs, string(fsAdapter.JoinPath(string(sm.Dir), fixtures.CalcTests)))
		require.NoError(t, err)
		assert.True(t, exists, "sandbox holds the test assembly")

		dirs = append(dirs, sm.Dir)
	}

	require.Len(t, dirs, 4)
	assert.Equal(t, 0, sandboxCount(t, fs))

	base, err := afero.ReadFile(fs, calcDir+"/"+fixtures.CalcAssembly)
	require.NoError(t, err)

	original, err := fixtures.Read(fixtures.CalcAssembly)
	require.NoError(t, err)
	assert.Equal(t, original, base, "base directory is never written")
}

func TestSandboxedMutants_DisposesOnBreak(t *testing.T) {
	fs, fsAdapter, loader, src := calcWorkspace(t)

	seen := 0

	for range sandboxedMutants(context.Background(), fsAdapter, loader, src, turtles.ArithmeticTurtle{}.Mutate(src.Method)) {
		seen++

		break
	}

	assert.Equal(t, 1, seen)
	assert.Equal(t, 0, sandboxCount(t, fs))
}

func TestSandboxedMutants_DisposesOnPanic(t *testing.T) {
	fs, fsAdapter, loader, src := calcWorkspace(t)

	require.Panics(t, func() {
		for range sandboxedMutants(context.Background(), fsAdapter, loader, src, turtles.ArithmeticTurtle{}.Mutate(src.Method)) {
			panic("runner crashed")
		}
	})

	assert.Equal(t, 0, sandboxCount(t, fs))
}

func TestSandboxedMutants_StopsOnCancellation(t *testing.T) {
	_, fsAdapter, loader, src := calcWorkspace(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	seen := 0

	for range sandboxedMutants(ctx, fsAdapter, loader, src, turtles.ArithmeticTurtle{}.Mutate(src.Method)) {
		seen++

		cancel()
	}

	assert.Equal(t, 1, seen)
}

func TestSandboxedMutants_CopyFailureYieldsError(t *testing.T) {
	fs, fsAdapter, loader, src := calcWorkspace(t)

	var errs []error

	for sm := range sandboxedMutants(context.Background(), failingCopyFS{fsAdapter}, loader, src, turtles.ArithmeticTurtle{}.Mutate(src.Method)) {
		errs = append(errs, sm.Err)
		assert.Empty(t, sm.Dir)
	}

	require.Len(t, errs, 4)

	for _, err := range errs {
		require.ErrorContains(t, err, "disk full")
	}

	assert.Equal(t, 0, sandboxCount(t, fs), "half-built sandboxes are removed")
}

func TestSandboxedMutants_NoMutants(t *testing.T) {
	fs, fsAdapter, loader, src := calcWorkspace(t)

	for range sandboxedMutants(context.Background(), fsAdapter, loader, src, turtles.BranchTurtle{}.Mutate(src.Method)) {
		t.Fatal("branch turtle yields nothing for Add")
	}

	assert.Equal(t, 0, sandboxCount(t, fs))
	assert.Equal(t, il.Add, src.Method.Body.At(3).OpCode)
}
