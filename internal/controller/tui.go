package controller

import (
	"context"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/term"

	m "gooze.dev/pkg/ninjaturtles/internal/model"
)

const (
	maxSurvivorLines = 8
	defaultHeight    = 40
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#20B9B4"))
	mutedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	killedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#2CD7C7"))
	survivedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#E74C3C"))
	warnStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#F4D03F"))
	scoreBox      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#16858E")).Padding(0, 1)
)

// TUI implements UI using Bubble Tea. Runs show a live progress view;
// estimations and reports are printed, or paged when taller than the terminal.
type TUI struct {
	output io.Writer
	input  io.Reader

	mu      sync.Mutex
	program *tea.Program
	done    chan struct{}
}

// NewTUI creates a new TUI.
func NewTUI(output io.Writer) *TUI {
	return &TUI{output: output}
}

// Start launches the live run view in test mode.
func (p *TUI) Start(ctx context.Context, options ...StartOption) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if newStartConfig(options).mode != ModeTest {
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	opts := []tea.ProgramOption{tea.WithOutput(p.output), tea.WithContext(ctx)}
	if p.input != nil {
		opts = append(opts, tea.WithInput(p.input))
	}

	p.program = tea.NewProgram(newRunModel(), opts...)
	p.done = make(chan struct{})

	go func(program *tea.Program, done chan struct{}) {
		defer close(done)

		_, _ = program.Run()
	}(p.program, p.done)

	return nil
}

// Close stops the live view and waits for it to restore the terminal.
func (p *TUI) Close(_ context.Context) {
	p.mu.Lock()
	program, done := p.program, p.done
	p.program = nil
	p.mu.Unlock()

	if program == nil {
		return
	}

	program.Quit()
	<-done
}

// Wait blocks until the live view has rendered its final frame.
func (p *TUI) Wait(ctx context.Context) {
	p.mu.Lock()
	done := p.done
	p.mu.Unlock()

	if done == nil {
		return
	}

	select {
	case <-done:
	case <-ctx.Done():
	}
}

func (p *TUI) send(msg tea.Msg) {
	p.mu.Lock()
	program := p.program
	p.mu.Unlock()

	if program != nil {
		program.Send(msg)
	}
}

// DisplayEstimation shows the planned mutants.
func (p *TUI) DisplayEstimation(ctx context.Context, estimates []m.Estimate, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}

	if err != nil {
		_, _ = fmt.Fprintln(p.output, survivedStyle.Render("estimation error: "+err.Error()))
		return err
	}

	return p.page(titleStyle.Render("Planned mutants") + "\n\n" + renderEstimationTable(estimates))
}

// DisplayRunInfo forwards run settings to the live view.
func (p *TUI) DisplayRunInfo(_ context.Context, info m.RunInfo) {
	p.send(runInfoMsg(info))
}

// DisplayStartingMethod forwards a worker update to the live view.
func (p *TUI) DisplayStartingMethod(_ context.Context, target, turtle string, workerID int) {
	p.send(startMsg{target: target, turtle: turtle, worker: workerID})
}

// DisplayMutantOutcome forwards one outcome to the live view.
func (p *TUI) DisplayMutantOutcome(_ context.Context, outcome m.MutantOutcome) {
	p.send(outcomeMsg(outcome))
}

// DisplayMethodResult forwards one verdict to the live view.
func (p *TUI) DisplayMethodResult(_ context.Context, result m.MethodResult) {
	p.send(resultMsg(result))
}

// DisplayMutationScore ends the live view with the final score. Without a
// live view the score is printed.
func (p *TUI) DisplayMutationScore(_ context.Context, summary m.Summary, score float64) {
	p.mu.Lock()
	live := p.program != nil
	p.mu.Unlock()

	if live {
		p.send(scoreMsg{summary: summary, score: score})
		return
	}

	_, _ = fmt.Fprintln(p.output, renderScore(summary, score))
}

// DisplayReport pages a stored report.
func (p *TUI) DisplayReport(ctx context.Context, report m.ReportSnapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var b strings.Builder

	for _, file := range report.Files {
		b.WriteString(titleStyle.Render(file.URL))
		b.WriteString("\n")
		b.WriteString(renderFileTable(file))
		b.WriteString("\n")
	}

	summary := m.ReportFromSnapshot(report).Summary()
	b.WriteString(renderScore(summary, summary.Score()))
	b.WriteString("\n")

	return p.page(b.String())
}

// page prints content, or opens a scrollable pager when it does not fit.
func (p *TUI) page(content string) error {
	height := defaultHeight

	if f, ok := p.output.(*os.File); ok {
		if _, h, err := term.GetSize(f.Fd()); err == nil {
			height = h
		}
	}

	if strings.Count(content, "\n") < height {
		_, err := fmt.Fprint(p.output, content)
		return err
	}

	opts := []tea.ProgramOption{tea.WithOutput(p.output), tea.WithAltScreen()}
	if p.input != nil {
		opts = append(opts, tea.WithInput(p.input))
	}

	_, err := tea.NewProgram(newPagerModel(content), opts...).Run()

	return err
}

type (
	runInfoMsg m.RunInfo
	outcomeMsg m.MutantOutcome
	resultMsg  m.MethodResult
	startMsg   struct {
		target string
		turtle string
		worker int
	}
	scoreMsg struct {
		summary m.Summary
		score   float64
	}
)

// runModel is the live view of a mutation run.
type runModel struct {
	info      m.RunInfo
	workers   map[int]string
	finished  int
	killed    int
	survived  int
	skipped   int
	survivors []string
	failures  []string

	progress progress.Model
	spinner  spinner.Model

	final *scoreMsg
}

func newRunModel() runModel {
	return runModel{
		workers:  make(map[int]string),
		progress: progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		spinner:  spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(titleStyle)),
	}
}

func (rm runModel) Init() tea.Cmd {
	return rm.spinner.Tick
}

func (rm runModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || msg.String() == "q" {
			return rm, tea.Quit
		}
	case tea.WindowSizeMsg:
		rm.progress.Width = max(10, min(60, msg.Width-20))
	case spinner.TickMsg:
		var cmd tea.Cmd
		rm.spinner, cmd = rm.spinner.Update(msg)

		return rm, cmd
	case runInfoMsg:
		rm.info = m.RunInfo(msg)
	case startMsg:
		rm.workers[msg.worker] = fmt.Sprintf("%s (%s)", msg.target, msg.turtle)
	case outcomeMsg:
		rm = rm.countOutcome(m.MutantOutcome(msg))
	case resultMsg:
		rm.finished++

		if msg.Verdict.Failed() {
			rm.failures = append(rm.failures, fmt.Sprintf("%s (%s): %s", msg.Target, msg.Turtle, msg.Verdict))
		}
	case scoreMsg:
		rm.final = &msg
		rm.workers = map[int]string{}

		return rm, tea.Quit
	}

	return rm, nil
}

func (rm runModel) countOutcome(o m.MutantOutcome) runModel {
	switch {
	case o.Status.Detected():
		rm.killed++
	case o.Status == m.Survived:
		rm.survived++

		line := o.Description
		if o.Document != "" {
			line = fmt.Sprintf("%s:%d %s", o.Document, o.Line, o.Description)
		}

		rm.survivors = append(rm.survivors, fmt.Sprintf("%s  %s", o.Target, line))
		if len(rm.survivors) > maxSurvivorLines {
			rm.survivors = rm.survivors[len(rm.survivors)-maxSurvivorLines:]
		}
	default:
		rm.skipped++
	}

	return rm
}

func (rm runModel) combinations() int {
	return rm.info.Methods * len(rm.info.Turtles)
}

func (rm runModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("ninjaturtles"))

	if rm.info.ID != "" {
		b.WriteString(mutedStyle.Render(fmt.Sprintf("  run %s  %s  %d worker(s)", rm.info.ID, rm.info.TestAssembly, rm.info.Parallel)))
	}

	b.WriteString("\n\n")

	percent := 0.0
	if total := rm.combinations(); total > 0 {
		percent = float64(rm.finished) / float64(total)
	}

	fmt.Fprintf(&b, "%s  %d/%d\n\n", rm.progress.ViewAs(percent), rm.finished, rm.combinations())

	workerIDs := make([]int, 0, len(rm.workers))
	for id := range rm.workers {
		workerIDs = append(workerIDs, id)
	}

	slices.Sort(workerIDs)

	for _, id := range workerIDs {
		fmt.Fprintf(&b, "%s worker %d: %s\n", rm.spinner.View(), id, rm.workers[id])
	}

	fmt.Fprintf(&b, "\n%s  %s  %s\n",
		killedStyle.Render(fmt.Sprintf("killed %d", rm.killed)),
		survivedStyle.Render(fmt.Sprintf("survived %d", rm.survived)),
		mutedStyle.Render(fmt.Sprintf("skipped %d", rm.skipped)))

	if len(rm.survivors) > 0 {
		b.WriteString("\n" + survivedStyle.Render("Survivors") + "\n")

		for _, s := range rm.survivors {
			b.WriteString("  " + s + "\n")
		}
	}

	if len(rm.failures) > 0 {
		b.WriteString("\n" + warnStyle.Render("Failed combinations") + "\n")

		for _, f := range rm.failures {
			b.WriteString("  " + f + "\n")
		}
	}

	if rm.final != nil {
		b.WriteString("\n" + renderScore(rm.final.summary, rm.final.score) + "\n")
	}

	return b.String()
}

func renderScore(summary m.Summary, score float64) string {
	style := killedStyle
	if summary.Survived > 0 {
		style = warnStyle
	}

	return scoreBox.Render(fmt.Sprintf("Mutation score %s\n%s",
		style.Render(fmt.Sprintf("%.2f%%", score)),
		mutedStyle.Render(fmt.Sprintf("%d mutants, %d killed, %d survived, %d location(s) in %d file(s)",
			summary.Mutants, summary.Killed, summary.Survived, summary.Locations, summary.Files))))
}

// pagerModel scrolls long output.
type pagerModel struct {
	content  string
	viewport viewport.Model
	ready    bool
}

func newPagerModel(content string) pagerModel {
	return pagerModel{content: content}
}

func (pm pagerModel) Init() tea.Cmd {
	return nil
}

func (pm pagerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return pm, tea.Quit
		}
	case tea.WindowSizeMsg:
		if !pm.ready {
			pm.viewport = viewport.New(msg.Width, msg.Height-1)
			pm.viewport.SetContent(pm.content)
			pm.ready = true
		} else {
			pm.viewport.Width = msg.Width
			pm.viewport.Height = msg.Height - 1
		}
	}

	var cmd tea.Cmd
	pm.viewport, cmd = pm.viewport.Update(msg)

	return pm, cmd
}

func (pm pagerModel) View() string {
	if !pm.ready {
		return "loading..."
	}

	footer := mutedStyle.Render(fmt.Sprintf("%3.f%%  ↑/↓ scroll  q quit", pm.viewport.ScrollPercent()*100))

	return pm.viewport.View() + "\n" + footer
}
