package adapter

import (
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	m "gooze.dev/pkg/ninjaturtles/internal/model"
)

func memAdapter(t *testing.T) (*LocalSandboxFSAdapter, afero.Fs) {
	t.Helper()

	fs := afero.NewMemMapFs()

	return NewSandboxFSAdapter(fs, "/tmp/sandboxes"), fs
}

func TestLocalSandboxFSAdapter_CreateTempDir(t *testing.T) {
	adapter, fs := memAdapter(t)

	first, err := adapter.CreateTempDir("ninjaturtles-")
	require.NoError(t, err)

	second, err := adapter.CreateTempDir("ninjaturtles-")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.True(t, strings.HasPrefix(filepath.Base(string(first)), "ninjaturtles-"))
	assert.Equal(t, "/tmp/sandboxes", filepath.Dir(string(first)))

	exists, err := afero.DirExists(fs, string(first))
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestLocalSandboxFSAdapter_CopyDir(t *testing.T) {
	adapter, fs := memAdapter(t)

	require.NoError(t, afero.WriteFile(fs, "/src/Calc.asm.yaml", []byte("assembly: Calc\n"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/src/data/input.txt", []byte("42"), 0o600))
	require.NoError(t, afero.WriteFile(fs, "/src/.git/HEAD", []byte("ref"), 0o644))

	require.NoError(t, adapter.CopyDir("/src", "/dst"))

	data, err := afero.ReadFile(fs, "/dst/Calc.asm.yaml")
	require.NoError(t, err)
	assert.Equal(t, "assembly: Calc\n", string(data))

	info, err := fs.Stat("/dst/data/input.txt")
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	_, err = fs.Stat("/dst/.git/HEAD")
	assert.True(t, os.IsNotExist(err))
}

func TestLocalSandboxFSAdapter_CopyDir_MissingSource(t *testing.T) {
	adapter, _ := memAdapter(t)

	require.Error(t, adapter.CopyDir("/missing", "/dst"))
}

func TestLocalSandboxFSAdapter_WriteReadRemove(t *testing.T) {
	adapter, _ := memAdapter(t)

	path := adapter.JoinPath("/work", "nested", "file.txt")
	require.NoError(t, adapter.WriteFile(path, []byte("hello"), 0o644))

	data, err := adapter.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	info, err := adapter.FileInfo(path)
	require.NoError(t, err)
	assert.Equal(t, int64(5), info.Size())

	require.NoError(t, adapter.RemoveAll("/work"))

	_, err = adapter.FileInfo(path)
	assert.True(t, os.IsNotExist(err))
}

func TestLocalSandboxFSAdapter_HashFile(t *testing.T) {
	adapter, fs := memAdapter(t)

	require.NoError(t, afero.WriteFile(fs, "/a.txt", []byte("content"), 0o644))

	hash, err := adapter.HashFile(m.Path("/a.txt"))
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("%x", sha256.Sum256([]byte("content"))), hash)

	_, err = adapter.HashFile("/missing.txt")
	require.Error(t, err)
}

func TestLocalSandboxFSAdapter_OnDisk(t *testing.T) {
	root := t.TempDir()
	adapter := NewLocalSandboxFSAdapter(filepath.Join(root, "tmp"))

	src := filepath.Join(root, "src")
	require.NoError(t, os.MkdirAll(src, 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(src, "a.txt"), []byte("a"), 0o644))

	dir, err := adapter.CreateTempDir("ninjaturtles-")
	require.NoError(t, err)

	require.NoError(t, adapter.CopyDir(m.Path(src), dir))

	data, err := os.ReadFile(filepath.Join(string(dir), "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "a", string(data))

	require.NoError(t, adapter.RemoveAll(dir))

	_, err = os.Stat(string(dir))
	assert.True(t, os.IsNotExist(err))
}
