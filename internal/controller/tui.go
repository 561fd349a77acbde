package controller

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	helpStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	staleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
)

// headerLines is the vertical space taken by the title and the help line.
const headerLines = 3

// TUI implements UI for terminals. Output is buffered until Wait, which prints it
// directly when it fits on screen and opens a scrollable pager otherwise.
type TUI struct {
	output io.Writer
	mode   StartMode

	mu  sync.Mutex
	buf strings.Builder
}

// NewTUI creates a new TUI.
func NewTUI(output io.Writer) *TUI {
	return &TUI{output: output}
}

// Start records the mode used for the pager title.
func (p *TUI) Start(ctx context.Context, options ...StartOption) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	cfg := StartConfig{}
	for _, option := range options {
		option(&cfg)
	}

	p.mode = cfg.mode

	return nil
}

// Close finalizes the UI.
func (p *TUI) Close(_ context.Context) {}

// Wait shows everything displayed since Start and blocks until the user leaves the pager.
func (p *TUI) Wait(ctx context.Context) {
	p.mu.Lock()
	content := p.buf.String()
	p.buf.Reset()
	p.mu.Unlock()

	if content == "" || ctx.Err() != nil {
		return
	}

	width, height := 0, 0

	if f, ok := p.output.(*os.File); ok {
		if w, h, err := term.GetSize(int(f.Fd())); err == nil {
			width, height = w, h
		}
	}

	if height == 0 || strings.Count(content, "\n")+headerLines <= height {
		_, _ = fmt.Fprint(p.output, content)
		return
	}

	model := newPagerModel(p.mode.title(), content, width, height)

	program := tea.NewProgram(model, tea.WithOutput(p.output), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := program.Run(); err != nil {
		// The pager failed; fall back to plain output.
		_, _ = fmt.Fprint(p.output, content)
	}
}

// DisplayExtraction buffers the extraction table.
func (p *TUI) DisplayExtraction(ctx context.Context, summary ExtractionSummary) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p.write(renderExtraction(summary))

	return nil
}

// DisplayPackages buffers the package table.
func (p *TUI) DisplayPackages(ctx context.Context, rows []PackageRow) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p.write(renderPackages(rows))

	return nil
}

// DisplayCompilation buffers the compilation outcome, highlighting stale files.
func (p *TUI) DisplayCompilation(ctx context.Context, summary CompilationSummary) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	out := renderCompilation(summary)
	if summary.Check && len(summary.Stale) > 0 {
		out = staleStyle.Render(strings.TrimRight(out, "\n")) + "\n"
	}

	p.write(out)

	return nil
}

// DisplayDiff buffers one unified diff.
func (p *TUI) DisplayDiff(ctx context.Context, name string, diff string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p.write(renderDiff(name, diff))

	return nil
}

// DisplayManifest buffers the discovered manifest.
func (p *TUI) DisplayManifest(ctx context.Context, entries []string, output string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p.write(renderManifest(entries, output))

	return nil
}

// DisplayCallResult buffers a response body under the procedure name.
func (p *TUI) DisplayCallResult(ctx context.Context, procedure string, body []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p.write(titleStyle.Render(procedure) + "\n" + strings.TrimRight(string(body), "\n") + "\n")

	return nil
}

func (p *TUI) write(s string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.buf.WriteString(s)
}

// pagerModel scrolls buffered output in a viewport.
type pagerModel struct {
	title    string
	viewport viewport.Model
	quitting bool
}

func newPagerModel(title, content string, width, height int) pagerModel {
	vp := viewport.New(width, max(height-headerLines, 1))
	vp.SetContent(content)

	return pagerModel{title: title, viewport: vp}
}

func (pm pagerModel) Init() tea.Cmd {
	return nil
}

func (pm pagerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		pm.viewport.Width = msg.Width
		pm.viewport.Height = max(msg.Height-headerLines, 1)

		return pm, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			pm.quitting = true
			return pm, tea.Quit
		case "g", "home":
			pm.viewport.GotoTop()
			return pm, nil
		case "G", "end":
			pm.viewport.GotoBottom()
			return pm, nil
		}
	}

	var cmd tea.Cmd

	pm.viewport, cmd = pm.viewport.Update(msg)

	return pm, cmd
}

func (pm pagerModel) View() string {
	if pm.quitting {
		return ""
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("moodlekit - " + pm.title))
	b.WriteString("\n\n")
	b.WriteString(pm.viewport.View())
	b.WriteString("\n")
	b.WriteString(helpStyle.Render(fmt.Sprintf("%3.f%% | ↑/k: up | ↓/j: down | g: top | G: bottom | q: quit",
		pm.viewport.ScrollPercent()*100)))

	return b.String()
}
