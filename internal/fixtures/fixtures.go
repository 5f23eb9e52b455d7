// Package fixtures embeds the sample assemblies package tests run against.
package fixtures

import (
	"embed"
	"io/fs"
	"path"
	"path/filepath"

	"github.com/spf13/afero"
)

// Assembly file names in the calc fixture.
const (
	CalcAssembly     = "Calc.asm.yaml"
	CalcSymbols      = "Calc.sym.yaml"
	CalcTests        = "Calc.Tests.asm.yaml"
	CalcUntestedTest = "Calc.Untested.asm.yaml"
)

//go:embed calc
var calc embed.FS

// Read returns the bytes of one calc fixture file.
func Read(name string) ([]byte, error) {
	return calc.ReadFile(path.Join("calc", name))
}

// WriteCalc copies the calc fixture into dir on fsys.
func WriteCalc(fsys afero.Fs, dir string) error {
	if err := fsys.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	return fs.WalkDir(calc, "calc", func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}

		data, err := calc.ReadFile(p)
		if err != nil {
			return err
		}

		return afero.WriteFile(fsys, filepath.Join(dir, d.Name()), data, 0o644)
	})
}
