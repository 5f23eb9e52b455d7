package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	m "gooze.dev/pkg/ninjaturtles/internal/model"
	pkg "gooze.dev/pkg/ninjaturtles/pkg"
)

type errSpill[T any] struct {
	err error
}

func (e errSpill[T]) Len() uint64                                    { return 0 }
func (e errSpill[T]) Path() string                                   { return "" }
func (e errSpill[T]) Append(_ T) error                               { return nil }
func (e errSpill[T]) AppendBatch(_ []T) error                        { return nil }
func (e errSpill[T]) Get(_ uint64) (T, error)                        { var zero T; return zero, errors.New("not implemented") }
func (e errSpill[T]) Range(_ func(index uint64, item T) error) error { return e.err }
func (e errSpill[T]) Close() error                                   { return nil }

func spillOf(t *testing.T, statuses ...m.TestStatus) pkg.FileSpill[m.MutantOutcome] {
	t.Helper()

	spill, err := pkg.NewFileSpill[m.MutantOutcome](t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = spill.Close() })

	for i, status := range statuses {
		require.NoError(t, spill.Append(m.MutantOutcome{
			Target:         "Calc.Calculator::Add(int32,int32)",
			Turtle:         "arithmetic",
			Status:         status,
			OriginalOffset: i,
		}))
	}

	return spill
}

func TestMutationScoreFromOutcomes(t *testing.T) {
	tests := []struct {
		name     string
		statuses []m.TestStatus
		want     float64
	}{
		{
			name:     "mixed",
			statuses: []m.TestStatus{m.Killed, m.Survived, m.Inapplicable, m.Error, m.Killed},
			want:     200.0 / 3,
		},
		{name: "empty is 100", want: 100},
		{name: "only unscored is 100", statuses: []m.TestStatus{m.Inapplicable, m.Error}, want: 100},
		{name: "all survived is 0", statuses: []m.TestStatus{m.Survived, m.Survived}, want: 0},
		{
			name:     "timeouts count as detected",
			statuses: []m.TestStatus{m.Timeout, m.Survived, m.Killed, m.Survived},
			want:     50,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, err := mutationScoreFromOutcomes(spillOf(t, tt.statuses...))
			require.NoError(t, err)
			require.InDelta(t, tt.want, score, 1e-9)
		})
	}
}

func TestMutationScoreFromOutcomes_RangeErrorPropagates(t *testing.T) {
	wantErr := errors.New("range failed")

	_, err := mutationScoreFromOutcomes(errSpill[m.MutantOutcome]{err: wantErr})
	require.Error(t, err)
	require.ErrorIs(t, err, wantErr)
}
