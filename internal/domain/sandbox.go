package domain

import (
	"context"
	"fmt"
	"iter"
	"log/slog"

	"gooze.dev/pkg/ninjaturtles/internal/adapter"
	"gooze.dev/pkg/ninjaturtles/internal/domain/turtles"
	"gooze.dev/pkg/ninjaturtles/internal/il"
	m "gooze.dev/pkg/ninjaturtles/internal/model"
)

const sandboxPattern = "ninjaturtles-*"

// sandbox is a disposable copy of the directory holding the test assembly.
type sandbox struct {
	fs  adapter.SandboxFSAdapter
	dir m.Path
}

// materialize copies baseDir into a fresh temporary directory.
func materialize(fs adapter.SandboxFSAdapter, baseDir m.Path) (*sandbox, error) {
	dir, err := fs.CreateTempDir(sandboxPattern)
	if err != nil {
		slog.Error("Failed to create sandbox", "error", err)
		return nil, fmt.Errorf("failed to create sandbox: %w", err)
	}

	sb := &sandbox{fs: fs, dir: dir}

	if err := fs.CopyDir(baseDir, dir); err != nil {
		slog.Error("Failed to copy into sandbox", "from", baseDir, "sandbox", dir, "error", err)
		sb.dispose()

		return nil, fmt.Errorf("failed to copy %s into sandbox: %w", baseDir, err)
	}

	return sb, nil
}

// saveAssembly writes asm over file inside the sandbox.
func (s *sandbox) saveAssembly(ctx context.Context, loader adapter.AssemblyLoader, file string, asm *il.Assembly) error {
	path := s.fs.JoinPath(string(s.dir), file)

	if err := loader.Save(ctx, path, asm); err != nil {
		slog.Error("Failed to save mutant assembly", "path", path, "error", err)
		return fmt.Errorf("failed to save mutant: %w", err)
	}

	return nil
}

// dispose removes the sandbox. A failure leaves a stale directory behind and
// is only logged.
func (s *sandbox) dispose() {
	if err := s.fs.RemoveAll(s.dir); err != nil {
		slog.Error("Failed to remove sandbox", "sandbox", s.dir, "error", err)
	}
}

// sandboxedMutant is a mutant whose assembly is saved in a live sandbox. The
// sandbox is only valid inside the consumer's loop body.
type sandboxedMutant struct {
	turtles.Mutant

	Dir m.Path
	Err error
}

// mutantSource describes where the assembly under test lives.
type mutantSource struct {
	Base         *il.Assembly
	Method       *il.Method
	BaseDir      m.Path
	AssemblyFile string
}

// sandboxedMutants materializes one sandbox per mutant. Each sandbox is
// disposed when the consumer's loop body returns, including on break, panic
// and cancellation. Setup failures are yielded with Err set.
func sandboxedMutants(
	ctx context.Context,
	fs adapter.SandboxFSAdapter,
	loader adapter.AssemblyLoader,
	src mutantSource,
	mutants iter.Seq[turtles.Mutant],
) iter.Seq[sandboxedMutant] {
	return func(yield func(sandboxedMutant) bool) {
		for mutant := range mutants {
			if ctx.Err() != nil {
				return
			}

			if !yieldSandboxed(ctx, fs, loader, src, mutant, yield) {
				return
			}
		}
	}
}

func yieldSandboxed(
	ctx context.Context,
	fs adapter.SandboxFSAdapter,
	loader adapter.AssemblyLoader,
	src mutantSource,
	mutant turtles.Mutant,
	yield func(sandboxedMutant) bool,
) bool {
	sb, err := materialize(fs, src.BaseDir)
	if err != nil {
		return yield(sandboxedMutant{Mutant: mutant, Err: err})
	}
	defer sb.dispose()

	mutated := src.Base.Replace(src.Method, mutant.Method)
	if err := sb.saveAssembly(ctx, loader, src.AssemblyFile, mutated); err != nil {
		return yield(sandboxedMutant{Mutant: mutant, Dir: sb.dir, Err: err})
	}

	return yield(sandboxedMutant{Mutant: mutant, Dir: sb.dir})
}
