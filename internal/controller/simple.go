package controller

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	m "gooze.dev/pkg/ninjaturtles/internal/model"
)

const statusWidth = 12

// SimpleUI implements UI using cobra Command's output writer. It is safe for
// use by concurrent workers.
type SimpleUI struct {
	cmd *cobra.Command
	mu  sync.Mutex
}

// NewSimpleUI creates a new SimpleUI.
func NewSimpleUI(cmd *cobra.Command) *SimpleUI {
	return &SimpleUI{cmd: cmd}
}

// Start initializes the UI.
func (s *SimpleUI) Start(ctx context.Context, _ ...StartOption) error {
	return ctx.Err()
}

// Close finalizes the UI.
func (s *SimpleUI) Close(_ context.Context) {}

// Wait blocks until the UI is closed (no-op for SimpleUI).
func (s *SimpleUI) Wait(_ context.Context) {}

// DisplayEstimation prints the planned mutants per method and turtle.
func (s *SimpleUI) DisplayEstimation(ctx context.Context, estimates []m.Estimate, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}

	if err != nil {
		s.printf("estimation error: %v\n", err)
		return err
	}

	s.printf("\n%s", renderEstimationTable(estimates))

	return nil
}

func renderEstimationTable(estimates []m.Estimate) string {
	var tableBuffer bytes.Buffer

	table := tablewriter.NewWriter(&tableBuffer)
	table.SetHeader([]string{"Method", "Turtle", "Mutants", "Tests"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetAutoWrapText(false)
	table.SetColumnAlignment([]int{
		tablewriter.ALIGN_LEFT, tablewriter.ALIGN_LEFT, tablewriter.ALIGN_CENTER, tablewriter.ALIGN_CENTER,
	})

	methods := make(map[string]struct{})
	total := 0

	for _, e := range estimates {
		table.Append([]string{e.Target, e.Turtle, fmt.Sprintf("%d", e.Mutants), fmt.Sprintf("%d", e.Tests)})

		methods[e.Target] = struct{}{}
		total += e.Mutants
	}

	table.SetFooter([]string{fmt.Sprintf("Total Methods %d", len(methods)), "", fmt.Sprintf("%d", total), ""})
	table.Render()

	return tableBuffer.String()
}

// DisplayRunInfo shows the run settings.
func (s *SimpleUI) DisplayRunInfo(ctx context.Context, info m.RunInfo) {
	if ctx.Err() != nil {
		return
	}

	s.printf("Run %s: %d method(s) x %d turtle(s) from %s with %d worker(s)\n",
		info.ID, info.Methods, len(info.Turtles), info.TestAssembly, info.Parallel)
}

// DisplayStartingMethod shows which combination a worker picked up.
func (s *SimpleUI) DisplayStartingMethod(ctx context.Context, target, turtle string, workerID int) {
	if ctx.Err() != nil {
		return
	}

	s.printf("[worker %d] %s (%s)\n", workerID, target, turtle)
}

// DisplayMutantOutcome prints one tested mutant. Survivors are followed by
// their diff.
func (s *SimpleUI) DisplayMutantOutcome(ctx context.Context, outcome m.MutantOutcome) {
	if ctx.Err() != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.printfLocked("  %s %s\n", statusLabel(outcome.Status), outcome.Description)

	if outcome.Status != m.Survived {
		return
	}

	if outcome.Document != "" {
		s.printfLocked("  at %s:%d\n", outcome.Document, outcome.Line)
	}

	if outcome.Diff != "" {
		s.printfLocked("%s\n", outcome.Diff)
	}
}

// DisplayMethodResult prints the verdict of one method/turtle combination.
func (s *SimpleUI) DisplayMethodResult(ctx context.Context, result m.MethodResult) {
	if ctx.Err() != nil {
		return
	}

	s.printf("%s (%s): %s [%d mutants, %d killed, %d survived, %d expected, %s]\n",
		result.Target, result.Turtle, result.Verdict,
		result.Mutants, result.Killed+result.Timeouts, result.Survived, result.Expected,
		result.Duration.Round(time.Millisecond))
}

// DisplayMutationScore prints the final mutation score.
func (s *SimpleUI) DisplayMutationScore(ctx context.Context, summary m.Summary, score float64) {
	if ctx.Err() != nil {
		return
	}

	s.printf("Mutants: %d, killed: %d, survived: %d across %d location(s) in %d file(s)\n",
		summary.Mutants, summary.Killed, summary.Survived, summary.Locations, summary.Files)
	s.printf("Mutation score: %.2f%%\n", score)
}

// DisplayReport prints a stored report, one table per source file.
func (s *SimpleUI) DisplayReport(ctx context.Context, report m.ReportSnapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if len(report.Files) == 0 {
		s.printf("report is empty\n")
		return nil
	}

	for _, file := range report.Files {
		s.printf("\n%s\n%s", file.URL, renderFileTable(file))
	}

	summary := m.ReportFromSnapshot(report).Summary()
	s.printf("Mutation score: %.2f%%\n", summary.Score())

	return nil
}

func renderFileTable(file m.SourceFileSnapshot) string {
	var tableBuffer bytes.Buffer

	table := tablewriter.NewWriter(&tableBuffer)
	table.SetHeader([]string{"Line", "Source", "Killed", "Survivors"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetAutoWrapText(false)

	for _, point := range file.Points {
		killed, survivors := 0, make([]string, 0)

		for _, mutant := range point.Mutants {
			if mutant.Killed {
				killed++
			} else {
				survivors = append(survivors, mutant.Description)
			}
		}

		table.Append([]string{
			fmt.Sprintf("%d", point.Location.StartLine),
			sourceLine(file.Lines, point.Location.StartLine),
			fmt.Sprintf("%d/%d", killed, len(point.Mutants)),
			strings.Join(survivors, "\n"),
		})
	}

	table.Render()

	return tableBuffer.String()
}

// statusLabel pads and colors a status. Colors are dropped when the output
// is not a terminal.
func statusLabel(status m.TestStatus) string {
	style := mutedStyle

	switch {
	case status.Detected():
		style = killedStyle
	case status == m.Survived:
		style = survivedStyle
	case status == m.Error:
		style = warnStyle
	}

	return style.Width(statusWidth).Render(status.String())
}

func sourceLine(lines []string, line int) string {
	if line < 1 || line > len(lines) {
		return ""
	}

	return strings.TrimSpace(lines[line-1])
}

func (s *SimpleUI) printf(format string, args ...interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.printfLocked(format, args...)
}

func (s *SimpleUI) printfLocked(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(s.cmd.OutOrStdout(), format, args...)
}
