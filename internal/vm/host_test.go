package vm

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gooze.dev/pkg/ninjaturtles/internal/fixtures"
	"gooze.dev/pkg/ninjaturtles/internal/il"
)

const sandbox = "/sandbox"

func calcHost(t *testing.T) (*Host, afero.Fs) {
	t.Helper()

	fs := afero.NewMemMapFs()
	require.NoError(t, fixtures.WriteCalc(fs, sandbox))

	return NewHost(fs, 0), fs
}

func TestHost_RunTests(t *testing.T) {
	host, _ := calcHost(t)

	results, err := host.RunTests(context.Background(), sandbox, fixtures.CalcTests, nil)
	require.NoError(t, err)
	require.Len(t, results, 6)

	for _, r := range results {
		assert.True(t, r.Passed, "%s: %s", r.ID, r.Message)
		assert.Positive(t, r.Steps)
	}
}

func TestHost_RunTests_FiltersByID(t *testing.T) {
	host, _ := calcHost(t)

	results, err := host.RunTests(context.Background(), sandbox, fixtures.CalcTests, []string{
		"Calc.Tests.CalculatorTests.AddsNumbers",
		"Calc.Tests.CounterTests.IncrementsByStep",
	})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "Calc.Tests.CalculatorTests.AddsNumbers", results[0].ID)

	results, err = host.RunTests(context.Background(), sandbox, fixtures.CalcTests, []string{"Calc.Tests.Nothing"})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestHost_RunTests_DetectsMutant(t *testing.T) {
	host, fs := calcHost(t)

	asm, err := host.Load(sandbox, fixtures.CalcAssembly)
	require.NoError(t, err)

	add := asm.FindMethods("Calc.Calculator", "Add", nil)[0]
	patched, err := add.Body.Expand().Apply(il.NewPatch(il.Replace(3, il.Mul, il.NoOperand())))
	require.NoError(t, err)

	data, err := il.Encode(asm.Replace(add, add.WithBody(patched)))
	require.NoError(t, err)
	require.NoError(t, afero.WriteFile(fs, sandbox+"/"+fixtures.CalcAssembly, data, 0o644))

	results, err := host.RunTests(context.Background(), sandbox, fixtures.CalcTests, []string{"Calc.Tests.CalculatorTests.AddsNumbers"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.False(t, results[0].Passed)
	assert.Contains(t, results[0].Message, "expected 7 but was 12")
}

func TestHost_RunTests_MissingReference(t *testing.T) {
	host, fs := calcHost(t)
	require.NoError(t, fs.Remove(sandbox+"/"+fixtures.CalcAssembly))

	_, err := host.RunTests(context.Background(), sandbox, fixtures.CalcTests, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to resolve reference Calc")
}

func TestDiscoverTests(t *testing.T) {
	host, _ := calcHost(t)

	asm, err := host.Load(sandbox, fixtures.CalcTests)
	require.NoError(t, err)

	var ids []string
	for _, m := range DiscoverTests(asm) {
		ids = append(ids, m.TestID())
	}

	assert.Equal(t, []string{
		"Calc.Tests.CalculatorTests.AddsNumbers",
		"Calc.Tests.CalculatorTests.PicksDifference",
		"Calc.Tests.CalculatorTests.MaxReturnsLarger",
		"Calc.Tests.CalculatorTests.SumsRange",
		"Calc.Tests.CalculatorTests.GuardedDoubles",
		"Calc.Tests.CounterTests.IncrementsByStep",
	}, ids)
}

func TestHost_RunTests_StepBudget(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fixtures.WriteCalc(fs, sandbox))

	host := NewHost(fs, 500)

	asm, err := host.Load(sandbox, fixtures.CalcAssembly)
	require.NoError(t, err)

	sumTo := asm.FindMethods("Calc.Calculator", "SumTo", nil)[0]
	body := sumTo.Body.Expand()

	loop := -1
	for i, in := range body.Instructions {
		if in.OpCode == il.Ble {
			loop = i
		}
	}
	require.GreaterOrEqual(t, loop, 0)

	patched, err := body.Apply(il.NewPatch(il.Replace(loop, il.Br, body.At(loop).Operand)))
	require.NoError(t, err)

	data, err := il.Encode(asm.Replace(sumTo, sumTo.WithBody(patched)))
	require.NoError(t, err)
	require.NoError(t, afero.WriteFile(fs, sandbox+"/"+fixtures.CalcAssembly, data, 0o644))

	results, err := host.RunTests(context.Background(), sandbox, fixtures.CalcTests, []string{"Calc.Tests.CalculatorTests.SumsRange"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.False(t, results[0].Passed)
	assert.True(t, results[0].Exhausted)
}
