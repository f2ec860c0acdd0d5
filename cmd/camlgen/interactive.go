package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/wippyai/camlbridge/describe"
	"github.com/wippyai/camlbridge/errors"
	"github.com/wippyai/camlbridge/runtime"
	"github.com/wippyai/camlbridge/value"
	"github.com/wippyai/camlbridge/wasmcode"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	nameStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	typeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

// entry is a described type or a callable export.
type entry struct {
	name    string
	summary string
	detail  []string
	arity   int
	export  bool
}

type modelState int

const (
	stateSelect modelState = iota
	stateInputArgs
	stateShowResult
)

type interactiveModel struct {
	err      error
	rt       *runtime.Runtime
	module   *wasmcode.Module
	opts     options
	result   string
	entries  []entry
	inputs   []textinput.Model
	selected int
	focusIdx int
	state    modelState
	loaded   bool
}

func newInteractiveModel(opts options) *interactiveModel {
	return &interactiveModel{opts: opts, state: stateSelect}
}

type loadedMsg struct {
	err     error
	rt      *runtime.Runtime
	module  *wasmcode.Module
	entries []entry
}

type callResultMsg struct {
	err    error
	result string
}

func (m *interactiveModel) Init() tea.Cmd {
	return m.load
}

func (m *interactiveModel) load() tea.Msg {
	var entries []entry
	if m.opts.witFile != "" {
		all, err := loadTypes(m.opts.witFile)
		if err != nil {
			return loadedMsg{err: err}
		}
		types, err := selectTypes(all, m.opts.names)
		if err != nil {
			return loadedMsg{err: err}
		}
		for _, t := range types {
			entries = append(entries, typeEntry(t))
		}
	}
	if m.opts.wasmFile == "" {
		return loadedMsg{entries: entries}
	}

	data, err := os.ReadFile(m.opts.wasmFile)
	if err != nil {
		return loadedMsg{err: err}
	}
	rt, err := runtime.New()
	if err != nil {
		return loadedMsg{err: err}
	}
	mod, err := wasmcode.Load(context.Background(), rt, data, nil)
	if err != nil {
		_ = rt.Close()
		return loadedMsg{err: err}
	}

	h := rt.Acquire()
	defer h.Release()
	for _, name := range mod.Exports() {
		clo, err := mod.Closure(h, name)
		if err != nil {
			wasmcode.Logger().Debug("export skipped", zap.String("export", name), zap.Error(err))
			continue
		}
		arity := h.Arity(clo)
		entries = append(entries, entry{
			name:    name,
			summary: strings.Repeat("int -> ", arity) + "int",
			arity:   arity,
			export:  true,
		})
	}
	return loadedMsg{entries: entries, rt: rt, module: mod}
}

func typeEntry(t *describe.Type) entry {
	summary := t.Kind.String()
	if t.Open {
		summary = "open " + summary
	}
	return entry{name: t.Ident, summary: summary, detail: layoutLines(t)}
}

func (m *interactiveModel) close() {
	var err error
	if m.module != nil {
		err = multierr.Append(err, m.module.Close(context.Background()))
	}
	if m.rt != nil {
		err = multierr.Append(err, m.rt.Close())
	}
	if err != nil {
		wasmcode.Logger().Debug("close failed", zap.Error(err))
	}
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.close()
			return m, tea.Quit

		case "up", "k":
			if m.state == stateSelect && m.selected > 0 {
				m.selected--
			}

		case "down", "j":
			if m.state == stateSelect && m.selected < len(m.entries)-1 {
				m.selected++
			}

		case "enter":
			switch m.state {
			case stateSelect:
				if len(m.entries) == 0 {
					break
				}
				e := m.entries[m.selected]
				if !e.export {
					m.result = strings.Join(e.detail, "\n")
					m.state = stateShowResult
					break
				}
				m.prepareInputs(e)
				m.state = stateInputArgs

			case stateInputArgs:
				return m, m.callExport

			case stateShowResult:
				m.state = stateSelect
				m.result = ""
				m.err = nil
			}

		case "tab":
			if m.state == stateInputArgs && len(m.inputs) > 1 {
				m.inputs[m.focusIdx].Blur()
				m.focusIdx = (m.focusIdx + 1) % len(m.inputs)
				m.inputs[m.focusIdx].Focus()
			}

		case "esc":
			switch m.state {
			case stateInputArgs:
				m.state = stateSelect
				m.inputs = nil
			case stateShowResult:
				m.state = stateSelect
				m.result = ""
				m.err = nil
			}
		}

	case loadedMsg:
		m.loaded = true
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.entries = msg.entries
		m.rt = msg.rt
		m.module = msg.module

	case callResultMsg:
		m.result = msg.result
		m.err = msg.err
		m.state = stateShowResult
	}

	if m.state == stateInputArgs {
		var cmds []tea.Cmd
		for i := range m.inputs {
			var cmd tea.Cmd
			m.inputs[i], cmd = m.inputs[i].Update(msg)
			cmds = append(cmds, cmd)
		}
		return m, tea.Batch(cmds...)
	}

	return m, nil
}

func (m *interactiveModel) prepareInputs(e entry) {
	m.inputs = make([]textinput.Model, e.arity)
	for i := range m.inputs {
		ti := textinput.New()
		ti.Placeholder = "int"
		ti.Prompt = argName(i) + ": "
		ti.Width = 40
		if i == 0 {
			ti.Focus()
		}
		m.inputs[i] = ti
	}
	m.focusIdx = 0
}

func argName(i int) string { return "arg" + strconv.Itoa(i) }

func (m *interactiveModel) callExport() tea.Msg {
	e := m.entries[m.selected]
	args := make([]string, len(m.inputs))
	for i, input := range m.inputs {
		args[i] = input.Value()
	}
	out, err := callExport(m.rt, m.module, e.name, args)
	return callResultMsg{result: out, err: err}
}

// callExport applies an export to integer arguments given as text.
func callExport(rt *runtime.Runtime, mod *wasmcode.Module, name string, inputs []string) (string, error) {
	if mod == nil {
		return "", fmt.Errorf("module not loaded")
	}
	args := make([]value.Raw, len(inputs))
	for i, in := range inputs {
		n, err := strconv.ParseInt(strings.TrimSpace(in), 10, 64)
		if err != nil {
			return "", fmt.Errorf("%s: %w", argName(i), err)
		}
		v, ok := value.OfIntChecked(n)
		if !ok {
			return "", fmt.Errorf("%s: %d does not fit an int", argName(i), n)
		}
		args[i] = v
	}

	h := rt.Acquire()
	defer h.Release()
	clo, err := mod.Closure(h, name)
	if err != nil {
		return "", err
	}
	if arity := h.Arity(clo); arity != len(args) {
		return "", errors.Arity(errors.PhaseCallout, name, arity, len(args))
	}
	res := h.Try(func() value.Raw { return h.Apply(clo, args...) })
	if res.IsException() {
		return "", h.DecodeException(res.Exception())
	}
	return strconv.FormatInt(res.Value().Int(), 10), nil
}

func (m *interactiveModel) View() string {
	if m.err != nil && m.state != stateShowResult {
		return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress q to quit.", m.err))
	}

	if !m.loaded {
		return "Loading..."
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("camlgen"))
	b.WriteString(" ")
	b.WriteString(strings.TrimSpace(m.opts.witFile + " " + m.opts.wasmFile))
	b.WriteString("\n\n")

	switch m.state {
	case stateSelect:
		if len(m.entries) == 0 {
			b.WriteString("Nothing to show.\n\n")
			b.WriteString(helpStyle.Render("q quit"))
			break
		}
		b.WriteString("Types and exports:\n\n")
		for i, e := range m.entries {
			line := m.formatEntry(e)
			if i == m.selected {
				b.WriteString(selectedStyle.Render("> " + line))
			} else {
				b.WriteString("  " + line)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • enter open • q quit"))

	case stateInputArgs:
		e := m.entries[m.selected]
		b.WriteString(fmt.Sprintf("Calling %s\n\n", nameStyle.Render(e.name)))
		for _, input := range m.inputs {
			b.WriteString(input.View())
			b.WriteString(" ")
			b.WriteString(typeStyle.Render("int"))
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("tab next field • enter call • esc back"))

	case stateShowResult:
		e := m.entries[m.selected]
		b.WriteString(nameStyle.Render(e.name))
		b.WriteString("\n\n")
		if m.err != nil {
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		} else {
			b.WriteString(resultStyle.Render(m.result))
		}
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter continue • q quit"))
	}

	return b.String()
}

func (m *interactiveModel) formatEntry(e entry) string {
	return nameStyle.Render(e.name) + " : " + typeStyle.Render(e.summary)
}

func runInteractive(opts options) error {
	p := tea.NewProgram(newInteractiveModel(opts), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
