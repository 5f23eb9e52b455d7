package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	m "gooze.dev/pkg/ninjaturtles/internal/model"
)

func TestConfigurationError(t *testing.T) {
	err := fmt.Errorf("plan: %w", &ConfigurationError{Err: fmt.Errorf("%w: Calc.Abacus", ErrTypeNotFound)})

	assert.True(t, IsConfigurationError(err))
	require.ErrorIs(t, err, ErrTypeNotFound)
	assert.Equal(t, "plan: configuration error: type not found: Calc.Abacus", err.Error())

	assert.True(t, IsConfigurationError(configErrorf("unknown test runner %q", "nunit")))
	assert.False(t, IsConfigurationError(errors.New("boom")))
}

func TestMutationTestFailure_Error(t *testing.T) {
	err := &MutationTestFailure{Results: []m.MethodResult{
		{Target: "Calc.Calculator::Add(int32,int32)", Turtle: "arithmetic", Verdict: m.VerdictNoTests, Mutants: 4},
		{Target: "Calc.Calculator::Max(int32,int32)", Turtle: "boundary", Verdict: m.VerdictFailed, Mutants: 1, Survived: 1},
		{Target: "Calc.Calculator::Pick(int32)", Turtle: "branch", Verdict: m.VerdictError, Mutants: 2, Errors: 2},
	}}

	assert.Equal(t,
		"mutation testing failed for 3 combination(s): "+
			"Calc.Calculator::Add(int32,int32) [arithmetic]: no valid tests found to run; "+
			"Calc.Calculator::Max(int32,int32) [boundary]: 1 of 1 mutants survived, expected 0; "+
			"Calc.Calculator::Pick(int32) [branch]: no mutant could be tested",
		err.Error())
}

func TestVerdictError(t *testing.T) {
	tests := []struct {
		name    string
		results []m.MethodResult
		check   func(t *testing.T, err error)
	}{
		{
			name:  "no combinations",
			check: func(t *testing.T, err error) { require.ErrorIs(t, err, ErrNoMutationsRun) },
		},
		{
			name:    "only passes and empty turtles",
			results: []m.MethodResult{{Verdict: m.VerdictPassed}, {Verdict: m.VerdictNoMutants}},
			check:   func(t *testing.T, err error) { require.NoError(t, err) },
		},
		{
			name:    "failures are collected",
			results: []m.MethodResult{{Verdict: m.VerdictPassed}, {Verdict: m.VerdictFailed}, {Verdict: m.VerdictNoTests}, {Verdict: m.VerdictError}},
			check: func(t *testing.T, err error) {
				var failure *MutationTestFailure
				require.ErrorAs(t, err, &failure)
				assert.Len(t, failure.Results, 3)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, verdictError(tt.results))
		})
	}
}
