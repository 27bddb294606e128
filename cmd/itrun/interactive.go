package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/wasm-interface-types/adapter"
	"github.com/wippyai/wasm-interface-types/engine"
	"github.com/wippyai/wasm-interface-types/interpreter"
	"github.com/wippyai/wasm-interface-types/itypes"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	funcStyle = lipgloss.NewStyle().
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

type modelState int

const (
	stateLoading modelState = iota
	stateInputArgs
	stateStepping
	stateDone
)

type stepperModel struct {
	ctx      context.Context
	err      error
	opts     *options
	manifest *adapter.Manifest
	adapter  *adapter.Adapter
	inst     *engine.Instance
	exec     *interpreter.Execution
	name     string
	args     []string
	values   []itypes.IValue
	inputs   []textinput.Model
	focusIdx int
	steps    int
	state    modelState
}

type loadedMsg struct {
	err      error
	manifest *adapter.Manifest
	adapter  *adapter.Adapter
	inst     *engine.Instance
}

func newStepperModel(ctx context.Context, opts *options, name string, args []string) *stepperModel {
	return &stepperModel{ctx: ctx, opts: opts, name: name, args: args}
}

func (m *stepperModel) Init() tea.Cmd {
	return m.load
}

func (m *stepperModel) load() tea.Msg {
	man, err := adapter.LoadFile(m.opts.manifest)
	if err != nil {
		return loadedMsg{err: err}
	}
	a, ok := man.Adapter(m.name)
	if !ok {
		return loadedMsg{err: fmt.Errorf("unknown adapter %q", m.name)}
	}
	inst, err := instantiate(m.ctx, m.opts, man)
	if err != nil {
		return loadedMsg{err: err}
	}
	return loadedMsg{manifest: man, adapter: a, inst: inst}
}

func (m *stepperModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			if m.state == stateInputArgs && msg.String() == "q" {
				break
			}
			if m.inst != nil {
				m.inst.Close(m.ctx)
			}
			return m, tea.Quit

		case "tab":
			if m.state == stateInputArgs && len(m.inputs) > 1 {
				m.inputs[m.focusIdx].Blur()
				m.focusIdx = (m.focusIdx + 1) % len(m.inputs)
				m.inputs[m.focusIdx].Focus()
			}

		case "enter":
			switch m.state {
			case stateInputArgs:
				args := make([]string, len(m.inputs))
				for i, in := range m.inputs {
					args[i] = in.Value()
				}
				m.start(args)
				return m, nil
			case stateStepping:
				m.step()
			}

		case " ", "n", "s":
			if m.state == stateStepping {
				m.step()
			}

		case "c":
			for m.state == stateStepping {
				m.step()
			}

		case "r":
			if m.state == stateStepping || m.state == stateDone {
				m.restart()
			}

		case "esc":
			if m.state == stateDone && m.values == nil {
				m.prepareInputs()
			}
		}

	case loadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.manifest = msg.manifest
		m.adapter = msg.adapter
		m.inst = msg.inst
		if len(m.args) == len(m.adapter.Inputs) {
			m.start(m.args)
		} else {
			m.prepareInputs()
		}
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

func (m *stepperModel) prepareInputs() {
	m.inputs = make([]textinput.Model, len(m.adapter.Inputs))
	for i, in := range m.adapter.Inputs {
		ti := textinput.New()
		ti.Placeholder = witName(m.manifest, in.Type)
		ti.Prompt = in.Name + ": "
		ti.Width = 40
		if i < len(m.args) {
			ti.SetValue(m.args[i])
		}
		if i == 0 {
			ti.Focus()
		}
		m.inputs[i] = ti
	}
	m.focusIdx = 0
	m.err = nil
	m.state = stateInputArgs
}

func (m *stepperModel) start(args []string) {
	m.args = args
	values, err := m.manifest.ParseArgs(m.adapter, args)
	if err != nil {
		m.err = err
		m.values = nil
		m.state = stateDone
		return
	}
	m.values = values
	m.restart()
}

func (m *stepperModel) restart() {
	if m.values == nil {
		m.prepareInputs()
		return
	}
	m.err = nil
	m.steps = 0
	m.exec = m.adapter.Interpreter().Start(m.ctx, m.values, m.inst)
	m.state = stateStepping
	if _, ok := m.exec.Next(); !ok {
		m.state = stateDone
	}
}

func (m *stepperModel) step() {
	done, err := m.exec.Step()
	m.steps++
	if err != nil {
		m.err = err
		m.state = stateDone
		return
	}
	if done {
		m.state = stateDone
	}
}

func (m *stepperModel) View() string {
	if m.state == stateLoading {
		if m.err != nil {
			return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress q to quit.", m.err))
		}
		return "Loading adapter..."
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Adapter Stepper"))
	b.WriteString(" ")
	b.WriteString(funcStyle.Render(signature(m.manifest, m.adapter)))
	b.WriteString("\n\n")

	if m.state == stateInputArgs {
		for i, input := range m.inputs {
			b.WriteString(input.View())
			b.WriteString(" ")
			b.WriteString(typeStyle.Render(witName(m.manifest, m.adapter.Inputs[i].Type)))
			b.WriteString("\n")
		}
		if m.err != nil {
			b.WriteString("\n")
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("tab next field • enter start • ctrl+c quit"))
		return b.String()
	}

	if m.exec != nil {
		m.writeInstructions(&b)
		b.WriteString("\n")
		m.writeStack(&b)
	}

	if m.err != nil {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	if m.state == stateDone {
		if m.values == nil {
			b.WriteString(helpStyle.Render("esc edit arguments • q quit"))
		} else {
			b.WriteString(resultStyle.Render(fmt.Sprintf("finished after %d step(s)", m.steps)))
			b.WriteString("\n")
			b.WriteString(helpStyle.Render("r restart • q quit"))
		}
	} else {
		b.WriteString(helpStyle.Render("n/space step • c continue • r restart • q quit"))
	}
	return b.String()
}

func (m *stepperModel) writeInstructions(b *strings.Builder) {
	pc := m.exec.PC()
	for i, instr := range m.adapter.Instructions {
		line := fmt.Sprintf("%3d  %s", i, instr)
		switch {
		case i == pc && m.state == stateStepping:
			b.WriteString(selectedStyle.Render("> " + line))
		case i == pc && m.exec.Err() != nil:
			b.WriteString(errorStyle.Render("! " + line))
		default:
			b.WriteString("  " + line)
		}
		b.WriteString("\n")
	}
}

func (m *stepperModel) writeStack(b *strings.Builder) {
	stack := m.exec.Stack()
	b.WriteString(fmt.Sprintf("Stack (%d):\n", len(stack)))
	for i := len(stack) - 1; i >= 0; i-- {
		v := stack[i]
		b.WriteString("  ")
		b.WriteString(resultStyle.Render(v.String()))
		b.WriteString(" ")
		b.WriteString(typeStyle.Render(v.TypeOf().String()))
		b.WriteString("\n")
	}
}

func runInteractive(ctx context.Context, opts *options, name string, args []string) error {
	p := tea.NewProgram(newStepperModel(ctx, opts, name, args), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
