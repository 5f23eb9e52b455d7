// Package controller provides output adapters for displaying mutation testing results.
package controller

import (
	"context"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	m "gooze.dev/pkg/ninjaturtles/internal/model"
)

// StartMode defines the mode of operation for the UI.
type StartMode int

// Available StartMode values.
const (
	ModeEstimate StartMode = iota
	ModeTest
	ModeView
)

// StartOption is a functional option for Start method.
type StartOption func(*StartConfig)

// StartConfig holds configuration for starting the UI.
type StartConfig struct {
	mode StartMode
}

// WithEstimateMode sets the UI to estimation mode.
func WithEstimateMode() StartOption {
	return func(c *StartConfig) {
		c.mode = ModeEstimate
	}
}

// WithTestMode sets the UI to test execution mode.
func WithTestMode() StartOption {
	return func(c *StartConfig) {
		c.mode = ModeTest
	}
}

// WithViewMode sets the UI to report viewing mode.
func WithViewMode() StartOption {
	return func(c *StartConfig) {
		c.mode = ModeView
	}
}

func newStartConfig(options []StartOption) StartConfig {
	cfg := StartConfig{mode: ModeTest}
	for _, option := range options {
		option(&cfg)
	}

	return cfg
}

// UI defines the interface for displaying mutation testing progress and results.
// Implementations can use different output methods (simple text, TUI, etc).
//
//nolint:interfacebloat // One method per workflow event.
type UI interface {
	Start(ctx context.Context, options ...StartOption) error
	Close(ctx context.Context)
	Wait(ctx context.Context) // Wait for UI to finish (user closes it)
	DisplayEstimation(ctx context.Context, estimates []m.Estimate, err error) error
	DisplayRunInfo(ctx context.Context, info m.RunInfo)
	DisplayStartingMethod(ctx context.Context, target, turtle string, workerID int)
	DisplayMutantOutcome(ctx context.Context, outcome m.MutantOutcome)
	DisplayMethodResult(ctx context.Context, result m.MethodResult)
	DisplayMutationScore(ctx context.Context, summary m.Summary, score float64)
	DisplayReport(ctx context.Context, report m.ReportSnapshot) error
}

// NewUI picks the interactive TUI on a terminal and the plain text UI
// otherwise.
func NewUI(cmd *cobra.Command, tty bool) UI {
	if tty {
		return NewTUI(cmd.OutOrStdout())
	}

	return NewSimpleUI(cmd)
}

// IsTTY reports whether w is an interactive terminal.
func IsTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}

	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
