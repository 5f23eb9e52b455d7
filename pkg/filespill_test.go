package pkg

import (
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"gooze.dev/pkg/ninjaturtles/internal/model"
)

func TestFileSpill(t *testing.T) {
	t.Run("NewFileSpill uses the given directory", func(t *testing.T) {
		dir := t.TempDir()

		spill, err := NewFileSpill[int](dir)
		require.NoError(t, err)
		defer spill.Close()

		require.Contains(t, spill.Path(), dir)
	})

	t.Run("NewFileSpill defaults the directory", func(t *testing.T) {
		spill, err := NewFileSpill[int]("")
		require.NoError(t, err)
		defer spill.Close()

		require.Contains(t, spill.Path(), DefaultSpillDir)
	})

	t.Run("Append and Get", func(t *testing.T) {
		spill, err := NewFileSpill[string](t.TempDir())
		require.NoError(t, err)
		defer spill.Close()

		require.NoError(t, spill.Append("first"))
		require.NoError(t, spill.Append("second"))

		val, err := spill.Get(1)
		require.NoError(t, err)
		require.Equal(t, "second", val)

		val, err = spill.Get(3)
		require.Error(t, err)
		require.Equal(t, "", val)
	})

	t.Run("AppendBatch and Len", func(t *testing.T) {
		spill, err := NewFileSpill[int](t.TempDir())
		require.NoError(t, err)
		defer spill.Close()

		require.Equal(t, uint64(0), spill.Len())
		require.NoError(t, spill.AppendBatch([]int{1, 2, 3}))
		require.Equal(t, uint64(3), spill.Len())
	})

	t.Run("Range visits outcomes in order", func(t *testing.T) {
		spill, err := NewFileSpill[model.MutantOutcome](t.TempDir())
		require.NoError(t, err)
		defer spill.Close()

		outcomes := []model.MutantOutcome{
			{Turtle: "arithmetic", Description: "IL_0003: add => sub", Status: model.Killed, Duration: time.Millisecond},
			{Turtle: "arithmetic", Description: "IL_0003: add => mul", Status: model.Survived, Line: 11},
			{Turtle: "branch", Description: "IL_0002: bgt => ble", Status: model.Timeout},
		}
		require.NoError(t, spill.AppendBatch(outcomes))

		var got []model.MutantOutcome

		err = spill.Range(func(_ uint64, item model.MutantOutcome) error {
			got = append(got, item)
			return nil
		})
		require.NoError(t, err)
		require.Equal(t, outcomes, got)
	})

	t.Run("Range stops on callback error", func(t *testing.T) {
		spill, err := NewFileSpill[int](t.TempDir())
		require.NoError(t, err)
		defer spill.Close()

		require.NoError(t, spill.AppendBatch([]int{1, 2, 3}))

		stop := errors.New("stop")
		visited := 0

		err = spill.Range(func(_ uint64, _ int) error {
			visited++
			return stop
		})
		require.ErrorIs(t, err, stop)
		require.Equal(t, 1, visited)
	})

	t.Run("Close removes the file and rejects appends", func(t *testing.T) {
		spill, err := NewFileSpill[int](t.TempDir())
		require.NoError(t, err)

		require.NoError(t, spill.Append(1))
		require.NoError(t, spill.Close())
		require.NoError(t, spill.Close())

		_, err = os.Stat(spill.Path())
		require.True(t, os.IsNotExist(err))
		require.Error(t, spill.Append(2))
	})

	t.Run("concurrent appends", func(t *testing.T) {
		spill, err := NewFileSpill[int](t.TempDir())
		require.NoError(t, err)
		defer spill.Close()

		var wg sync.WaitGroup

		for i := range 10 {
			wg.Add(1)

			go func() {
				defer wg.Done()

				require.NoError(t, spill.Append(i))
			}()
		}

		wg.Wait()
		require.Equal(t, uint64(10), spill.Len())

		sum := 0
		require.NoError(t, spill.Range(func(_ uint64, item int) error {
			sum += item
			return nil
		}))
		require.Equal(t, 45, sum)
	})
}
