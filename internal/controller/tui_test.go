package controller

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	m "gooze.dev/pkg/ninjaturtles/internal/model"
)

func update(t *testing.T, rm runModel, msgs ...tea.Msg) runModel {
	t.Helper()

	for _, msg := range msgs {
		next, _ := rm.Update(msg)

		var ok bool
		rm, ok = next.(runModel)
		require.True(t, ok)
	}

	return rm
}

func TestRunModel_CountsOutcomes(t *testing.T) {
	rm := update(t, newRunModel(),
		runInfoMsg(m.RunInfo{ID: "run-1", TestAssembly: "Calc.Tests.asm.yaml", Methods: 2, Turtles: []string{"arithmetic"}, Parallel: 2}),
		startMsg{target: "Calc.Calculator::Add(int32,int32)", turtle: "arithmetic", worker: 1},
		outcomeMsg(m.MutantOutcome{Status: m.Killed}),
		outcomeMsg(m.MutantOutcome{Status: m.Timeout}),
		outcomeMsg(m.MutantOutcome{Status: m.Inapplicable}),
		outcomeMsg(m.MutantOutcome{
			Target:      "Calc.Calculator::Max(int32,int32)",
			Status:      m.Survived,
			Description: "IL_0002: bgt IL_0006 => bge IL_0006",
			Document:    "src/Calculator.cs",
			Line:        23,
		}),
		resultMsg(m.MethodResult{Target: "Calc.Calculator::Max(int32,int32)", Turtle: "boundary", Verdict: m.VerdictFailed}),
	)

	assert.Equal(t, 2, rm.killed)
	assert.Equal(t, 1, rm.survived)
	assert.Equal(t, 1, rm.skipped)
	assert.Equal(t, 1, rm.finished)
	assert.Equal(t, 2, rm.combinations())

	view := rm.View()
	assert.Contains(t, view, "run-1")
	assert.Contains(t, view, "1/2")
	assert.Contains(t, view, "worker 1: Calc.Calculator::Add(int32,int32) (arithmetic)")
	assert.Contains(t, view, "src/Calculator.cs:23 IL_0002: bgt IL_0006 => bge IL_0006")
	assert.Contains(t, view, "Calc.Calculator::Max(int32,int32) (boundary): failed")
}

func TestRunModel_KeepsLatestSurvivors(t *testing.T) {
	rm := newRunModel()

	for i := 0; i < maxSurvivorLines+3; i++ {
		rm = update(t, rm, outcomeMsg(m.MutantOutcome{Status: m.Survived, Description: strings.Repeat("x", i+1)}))
	}

	assert.Len(t, rm.survivors, maxSurvivorLines)
	assert.Equal(t, maxSurvivorLines+3, rm.survived)
}

func TestRunModel_ScoreQuits(t *testing.T) {
	rm := newRunModel()
	rm = update(t, rm, startMsg{target: "A", turtle: "b", worker: 1})

	next, cmd := rm.Update(scoreMsg{summary: m.Summary{Mutants: 4, Killed: 4}, score: 100})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())

	final := next.(runModel)
	assert.Empty(t, final.workers)
	assert.Contains(t, final.View(), "100.00%")
}

func TestTUI_PrintsShortEstimation(t *testing.T) {
	var buf bytes.Buffer

	ui := NewTUI(&buf)

	err := ui.DisplayEstimation(context.Background(), []m.Estimate{
		{Target: "Calc.Calculator::Add(int32,int32)", Turtle: "arithmetic", Mutants: 4, Tests: 1},
	}, nil)
	require.NoError(t, err)

	assert.Contains(t, buf.String(), "Planned mutants")
	assert.Contains(t, buf.String(), "Calc.Calculator::Add(int32,int32)")
}

func TestTUI_ScoreWithoutLiveView(t *testing.T) {
	var buf bytes.Buffer

	ui := NewTUI(&buf)
	require.NoError(t, ui.Start(context.Background(), WithViewMode()))

	ui.DisplayMutationScore(context.Background(), m.Summary{Mutants: 2, Killed: 1, Survived: 1}, 50)
	ui.Wait(context.Background())
	ui.Close(context.Background())

	assert.Contains(t, buf.String(), "50.00%")
}

func TestTUI_LiveRunFinishesOnScore(t *testing.T) {
	var buf bytes.Buffer

	ui := NewTUI(&buf)
	ui.input = strings.NewReader("")

	ctx := context.Background()
	require.NoError(t, ui.Start(ctx, WithTestMode()))

	ui.DisplayRunInfo(ctx, m.RunInfo{ID: "run-2", Methods: 1, Turtles: []string{"arithmetic"}, Parallel: 1})
	ui.DisplayMutantOutcome(ctx, m.MutantOutcome{Status: m.Killed})
	ui.DisplayMethodResult(ctx, m.MethodResult{Verdict: m.VerdictPassed})
	ui.DisplayMutationScore(ctx, m.Summary{Mutants: 1, Killed: 1}, 100)

	waitCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	ui.Wait(waitCtx)
	require.NoError(t, waitCtx.Err(), "live view did not stop")
	ui.Close(ctx)
}
