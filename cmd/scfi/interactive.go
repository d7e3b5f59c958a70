package main

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/cfisynth/arch"
	"github.com/wippyai/cfisynth/emit"
	"github.com/wippyai/cfisynth/ginsn"
	"github.com/wippyai/cfisynth/scfi"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	funcStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	stageStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFD700"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type modelState int

const (
	stateSelectFunc modelState = iota
	stateShowListing
)

// header and footer lines around the viewport.
const chromeHeight = 4

type interactiveModel struct {
	err      error
	arch     *arch.Arch
	opts     options
	results  []*scfi.Result
	view     viewport.Model
	selected int
	state    modelState
	loaded   bool
}

type synthesizedMsg struct {
	err     error
	arch    *arch.Arch
	results []*scfi.Result
}

func newInteractiveModel(opts options) *interactiveModel {
	return &interactiveModel{
		opts:  opts,
		state: stateSelectFunc,
		view:  viewport.New(80, 20),
	}
}

func (m *interactiveModel) Init() tea.Cmd {
	return m.synthesize
}

func (m *interactiveModel) synthesize() tea.Msg {
	prog, fns, err := load(m.opts)
	if err != nil {
		return synthesizedMsg{err: err}
	}
	s, err := scfi.New(scfi.Config{Arch: prog.Arch, Workers: m.opts.workers})
	if err != nil {
		return synthesizedMsg{err: err}
	}
	results, _ := s.SynthesizeAll(context.Background(), fns)
	return synthesizedMsg{arch: prog.Arch, results: results}
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit

		case "up", "k":
			if m.state == stateSelectFunc && m.selected > 0 {
				m.selected--
				return m, nil
			}

		case "down", "j":
			if m.state == stateSelectFunc && m.selected < len(m.results)-1 {
				m.selected++
				return m, nil
			}

		case "enter":
			if m.state == stateSelectFunc && len(m.results) > 0 {
				m.view.SetContent(m.listing(m.results[m.selected]))
				m.view.GotoTop()
				m.state = stateShowListing
				return m, nil
			}

		case "esc":
			if m.state == stateShowListing {
				m.state = stateSelectFunc
				return m, nil
			}
		}

	case tea.WindowSizeMsg:
		m.view.Width = msg.Width
		m.view.Height = max(msg.Height-chromeHeight, 1)

	case synthesizedMsg:
		m.loaded = true
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.arch = msg.arch
		m.results = msg.results
		return m, nil
	}

	if m.state == stateShowListing {
		var cmd tea.Cmd
		m.view, cmd = m.view.Update(msg)
		return m, cmd
	}
	return m, nil
}

// listing renders the instructions of a result interleaved with their
// directives, followed by its warnings or error.
func (m *interactiveModel) listing(res *scfi.Result) string {
	var b strings.Builder

	if res.OK() {
		var buf bytes.Buffer
		fn := resultFunc(res)
		if err := emit.Text(&buf, m.arch, fn, emit.ModeListing); err != nil {
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", err)))
		} else {
			for _, line := range strings.Split(strings.TrimRight(buf.String(), "\n"), "\n") {
				if strings.HasPrefix(line, "\t#") {
					b.WriteString(helpStyle.Render(line))
				} else {
					b.WriteString(line)
				}
				b.WriteString("\n")
			}
		}
	} else {
		b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", res.Err)))
		b.WriteString("\n")
	}

	for _, w := range res.Warnings {
		b.WriteString(warnStyle.Render("warning: " + w.String()))
		b.WriteString("\n")
	}
	return b.String()
}

func (m *interactiveModel) View() string {
	if m.err != nil {
		return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress q to quit.", m.err))
	}
	if !m.loaded {
		return "Synthesizing..."
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("CFI Synthesizer"))
	b.WriteString(" ")
	b.WriteString(m.opts.inFile)
	b.WriteString(" ")
	b.WriteString(stageStyle.Render(m.arch.Name))
	b.WriteString("\n\n")

	switch m.state {
	case stateSelectFunc:
		if len(m.results) == 0 {
			b.WriteString("No functions.\n")
		}
		for i, res := range m.results {
			line := m.formatResult(res)
			if i == m.selected {
				b.WriteString(selectedStyle.Render("> " + res.Func))
				b.WriteString(line)
			} else {
				b.WriteString("  " + funcStyle.Render(res.Func) + line)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • enter show • q quit"))

	case stateShowListing:
		b.WriteString(m.view.View())
		b.WriteString("\n")
		b.WriteString(helpStyle.Render(fmt.Sprintf("%3.f%% • ↑/↓ scroll • esc back • q quit", m.view.ScrollPercent()*100)))
	}

	return b.String()
}

func (m *interactiveModel) formatResult(res *scfi.Result) string {
	switch {
	case !res.OK():
		return " " + errorStyle.Render("failed in "+res.FailedIn.String())
	case len(res.Warnings) > 0:
		return " " + warnStyle.Render(fmt.Sprintf("%d warning(s)", len(res.Warnings)))
	default:
		return " " + stageStyle.Render(fmt.Sprintf("%d insns with ops", len(res.Ops())))
	}
}

func resultFunc(res *scfi.Result) *ginsn.Function {
	return &ginsn.Function{Name: res.Func, CFG: res.CFG}
}

func runInteractive(opts options) error {
	p := tea.NewProgram(newInteractiveModel(opts), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
