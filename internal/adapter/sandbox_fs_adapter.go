// Package adapter contains the infrastructure adapters the ninjaturtles domain
// layer depends on: filesystem, assembly loading, test attribution, test
// execution, report persistence and metrics.
package adapter

import (
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	m "gooze.dev/pkg/ninjaturtles/internal/model"
)

// SandboxFSAdapter abstracts the filesystem operations used to materialize
// mutant sandboxes. It hides direct `os` access so the workflow logic can be
// tested against an in-memory filesystem.
//
//nolint:interfacebloat // A richer interface keeps workflow logic decoupled from os/fs.
type SandboxFSAdapter interface {
	// Fs exposes the underlying filesystem for components that read through it.
	Fs() afero.Fs

	// ReadFile loads a file and returns its contents.
	ReadFile(path m.Path) ([]byte, error)

	// HashFile returns the SHA-256 fingerprint of the file at path.
	HashFile(path m.Path) (string, error)

	// FileInfo returns metadata for a path.
	FileInfo(path m.Path) (os.FileInfo, error)

	// CreateTempDir creates a uniquely named temporary directory.
	CreateTempDir(pattern string) (m.Path, error)

	// RemoveAll removes a directory and all its contents.
	RemoveAll(path m.Path) error

	// CopyDir recursively copies a directory tree.
	CopyDir(src, dst m.Path) error

	// WriteFile writes content to a file with the given permissions.
	WriteFile(path m.Path, content []byte, perm os.FileMode) error

	// JoinPath joins path elements into a single path.
	JoinPath(elem ...string) m.Path
}

// LocalSandboxFSAdapter implements SandboxFSAdapter on top of an afero
// filesystem, the OS filesystem by default.
type LocalSandboxFSAdapter struct {
	fs      afero.Fs
	tempDir string
}

// NewLocalSandboxFSAdapter constructs an adapter over the OS filesystem.
// Temporary directories are created under tempDir, or the system default
// when it is empty.
func NewLocalSandboxFSAdapter(tempDir string) *LocalSandboxFSAdapter {
	return NewSandboxFSAdapter(afero.NewOsFs(), tempDir)
}

// NewSandboxFSAdapter constructs an adapter over fs.
func NewSandboxFSAdapter(fs afero.Fs, tempDir string) *LocalSandboxFSAdapter {
	return &LocalSandboxFSAdapter{fs: fs, tempDir: tempDir}
}

// Fs returns the underlying filesystem.
func (a *LocalSandboxFSAdapter) Fs() afero.Fs {
	return a.fs
}

// ReadFile loads file contents.
func (a *LocalSandboxFSAdapter) ReadFile(path m.Path) ([]byte, error) {
	return afero.ReadFile(a.fs, string(path))
}

// HashFile returns the SHA-256 hash of the file at the provided path.
func (a *LocalSandboxFSAdapter) HashFile(path m.Path) (string, error) {
	f, err := a.fs.Open(string(path))
	if err != nil {
		return "", err
	}

	defer func() {
		_ = f.Close()
	}()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}

	return fmt.Sprintf("%x", h.Sum(nil)), nil
}

// FileInfo returns metadata for the given path.
func (a *LocalSandboxFSAdapter) FileInfo(path m.Path) (os.FileInfo, error) {
	return a.fs.Stat(string(path))
}

// CreateTempDir creates a temporary directory for one mutant.
func (a *LocalSandboxFSAdapter) CreateTempDir(pattern string) (m.Path, error) {
	if a.tempDir != "" {
		if err := a.fs.MkdirAll(a.tempDir, 0o750); err != nil {
			return "", err
		}
	}

	tmpDir, err := afero.TempDir(a.fs, a.tempDir, pattern)
	if err != nil {
		return "", err
	}

	return m.Path(tmpDir), nil
}

// RemoveAll removes a directory and all its contents.
func (a *LocalSandboxFSAdapter) RemoveAll(path m.Path) error {
	return a.fs.RemoveAll(string(path))
}

// CopyDir recursively copies a directory tree.
func (a *LocalSandboxFSAdapter) CopyDir(src, dst m.Path) error {
	return afero.Walk(a.fs, string(src), func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		relPath, err := filepath.Rel(string(src), path)
		if err != nil {
			return err
		}

		// Skip directories that never hold runtime dependencies
		if info.IsDir() {
			baseName := filepath.Base(path)
			if baseName == ".git" || baseName == "node_modules" {
				return filepath.SkipDir
			}
		}

		targetPath := filepath.Join(string(dst), relPath)

		if info.IsDir() {
			return a.fs.MkdirAll(targetPath, info.Mode().Perm()|0o700)
		}

		return a.copyFile(path, targetPath, info.Mode())
	})
}

// copyFile copies a single file.
func (a *LocalSandboxFSAdapter) copyFile(src, dst string, mode os.FileMode) error {
	sourceFile, err := a.fs.Open(src)
	if err != nil {
		return err
	}

	defer func() { _ = sourceFile.Close() }()

	if err := a.fs.MkdirAll(filepath.Dir(dst), 0o750); err != nil {
		return err
	}

	destFile, err := a.fs.Create(dst)
	if err != nil {
		return err
	}

	defer func() { _ = destFile.Close() }()

	if _, err := io.Copy(destFile, sourceFile); err != nil {
		return err
	}

	return a.fs.Chmod(dst, mode)
}

// WriteFile writes content to a file with the given permissions.
func (a *LocalSandboxFSAdapter) WriteFile(path m.Path, content []byte, perm os.FileMode) error {
	if err := a.fs.MkdirAll(filepath.Dir(string(path)), 0o750); err != nil {
		return err
	}

	return afero.WriteFile(a.fs, string(path), content, perm)
}

// JoinPath joins path elements into a single path.
func (a *LocalSandboxFSAdapter) JoinPath(elem ...string) m.Path {
	return m.Path(filepath.Join(elem...))
}
