package cmd

import (
	"bytes"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gooze.dev/pkg/ninjaturtles/internal/adapter"
	"gooze.dev/pkg/ninjaturtles/internal/fixtures"
)

func TestExecCmd(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, fixtures.WriteCalc(afero.NewOsFs(), dir))

	tests := []struct {
		name     string
		assembly string
		tests    string
		wantCode int
		contains string
	}{
		{"runs every test", fixtures.CalcTests, "", adapter.ExitPassed, "PASS Calc.Tests.CalculatorTests.AddsNumbers"},
		{"runs selected tests", fixtures.CalcTests, "Calc.Tests.CalculatorTests.AddsNumbers", adapter.ExitPassed, "PASS"},
		{"no matching test", fixtures.CalcTests, "Calc.Tests.CalculatorTests.Missing", adapter.ExitNoTests, "no tests matched"},
		{"missing assembly", "Missing.asm.yaml", "", adapter.ExitFailed, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := newRootCmd()
			cmd.AddCommand(newExecCmd())

			out := &bytes.Buffer{}
			cmd.SetOut(out)
			cmd.SetErr(&bytes.Buffer{})

			cmd.SetArgs([]string{"exec", "--dir", dir, "--assembly", tt.assembly, "--tests", tt.tests})
			err := cmd.Execute()

			assert.Equal(t, tt.wantCode, exitCode(err))
			assert.Contains(t, out.String(), tt.contains)
		})
	}
}

func TestExecCmd_RequiresAssembly(t *testing.T) {
	cmd := newRootCmd()
	cmd.AddCommand(newExecCmd())
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})

	cmd.SetArgs([]string{"exec", "--dir", t.TempDir()})
	require.Error(t, cmd.Execute())
}
