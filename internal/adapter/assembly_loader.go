package adapter

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/spf13/afero"

	"gooze.dev/pkg/ninjaturtles/internal/il"
	m "gooze.dev/pkg/ninjaturtles/internal/model"
)

// DefaultAssemblyCacheSize is the number of decoded assemblies kept in memory.
const DefaultAssemblyCacheSize = 64

// AssemblyLoader reads assemblies and their debug symbols, and writes mutated
// assemblies back.
type AssemblyLoader interface {
	// Load decodes the assembly at path with its symbols attached. The result
	// may be shared with other callers and must not be modified.
	Load(ctx context.Context, path m.Path) (*il.Assembly, error)

	// LoadSymbols reads the symbol sidecar of the assembly at path. A missing
	// or unreadable sidecar yields an empty table.
	LoadSymbols(ctx context.Context, path m.Path) (*il.SymbolTable, error)

	// Save encodes asm to path and writes its symbols next to it.
	Save(ctx context.Context, path m.Path, asm *il.Assembly) error
}

// CachedAssemblyLoader implements AssemblyLoader over an afero filesystem.
// Decoded assemblies are cached by the hash of their file contents, so a file
// rewritten in place is decoded again.
type CachedAssemblyLoader struct {
	fs    afero.Fs
	cache *lru.Cache[[sha256.Size]byte, *il.Assembly]
}

// NewAssemblyLoader creates a loader reading from fs.
func NewAssemblyLoader(fs afero.Fs, cacheSize int) (*CachedAssemblyLoader, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultAssemblyCacheSize
	}

	cache, err := lru.New[[sha256.Size]byte, *il.Assembly](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create assembly cache: %w", err)
	}

	return &CachedAssemblyLoader{fs: fs, cache: cache}, nil
}

// SymbolsPath returns the sidecar path of an assembly file.
func SymbolsPath(path m.Path) m.Path {
	return m.Path(strings.TrimSuffix(string(path), il.AssemblyExt) + il.SymbolsExt)
}

// Load implements AssemblyLoader.
func (l *CachedAssemblyLoader) Load(ctx context.Context, path m.Path) (*il.Assembly, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := afero.ReadFile(l.fs, string(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read assembly %s: %w", path, err)
	}

	symbols, symErr := afero.ReadFile(l.fs, string(SymbolsPath(path)))
	if symErr != nil {
		symbols = nil
	}

	h := sha256.New()
	h.Write(data)
	h.Write([]byte{0})
	h.Write(symbols)

	var key [sha256.Size]byte
	copy(key[:], h.Sum(nil))

	if asm, ok := l.cache.Get(key); ok {
		return asm, nil
	}

	asm, err := il.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode assembly %s: %w", path, err)
	}

	if table := l.decodeSymbols(path, symbols, symErr); table.Len() > 0 {
		attached := il.AttachSymbols(asm, table)
		slog.Debug("attached sequence points", "assembly", asm.Name, "points", attached)
	}

	l.cache.Add(key, asm)

	return asm, nil
}

// LoadSymbols implements AssemblyLoader.
func (l *CachedAssemblyLoader) LoadSymbols(ctx context.Context, path m.Path) (*il.SymbolTable, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := afero.ReadFile(l.fs, string(SymbolsPath(path)))

	return l.decodeSymbols(path, data, err), nil
}

func (l *CachedAssemblyLoader) decodeSymbols(path m.Path, data []byte, readErr error) *il.SymbolTable {
	if readErr != nil {
		if errors.Is(readErr, os.ErrNotExist) {
			slog.Warn("no debug symbols found, mutants will not be mapped to source", "assembly", path)
		} else {
			slog.Warn("failed to read debug symbols", "assembly", path, "error", readErr)
		}

		return il.NewSymbolTable()
	}

	table, err := il.DecodeSymbols(data)
	if err != nil {
		slog.Warn("ignoring debug symbols", "assembly", path, "error", err)
		return il.NewSymbolTable()
	}

	return table
}

// Save implements AssemblyLoader.
func (l *CachedAssemblyLoader) Save(ctx context.Context, path m.Path, asm *il.Assembly) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := il.Encode(asm)
	if err != nil {
		return fmt.Errorf("failed to encode assembly %s: %w", asm.Name, err)
	}

	if err := l.fs.MkdirAll(filepath.Dir(string(path)), 0o750); err != nil {
		return err
	}

	if err := afero.WriteFile(l.fs, string(path), data, 0o644); err != nil {
		return fmt.Errorf("failed to write assembly %s: %w", path, err)
	}

	if !hasSequencePoints(asm) {
		return nil
	}

	symbols, err := il.EncodeSymbols(asm)
	if err != nil {
		return fmt.Errorf("failed to encode symbols of %s: %w", asm.Name, err)
	}

	if err := afero.WriteFile(l.fs, string(SymbolsPath(path)), symbols, 0o644); err != nil {
		return fmt.Errorf("failed to write symbols %s: %w", SymbolsPath(path), err)
	}

	return nil
}

func hasSequencePoints(asm *il.Assembly) bool {
	for _, method := range asm.Methods() {
		if method.Body == nil {
			continue
		}

		for _, in := range method.Body.Instructions {
			if in.SequencePoint != nil {
				return true
			}
		}
	}

	return false
}
