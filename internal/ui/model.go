package ui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

//nolint:gochecknoglobals
var (
	// titleStyle defines the style for a panel's title.
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	// borderStyle defines the style for a panel's borders.
	borderStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#7D56F4"))

	// promptStyle defines the style for the command prompt line.
	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7D56F4")).
			Bold(true)

	// helpStyle defines the style for the help panel's text.
	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262")).
			Padding(0, 1)
)

// TeaModel is the principal [tea.Model] for the command-line user interface.
type TeaModel struct {
	width  int
	height int

	cancel context.CancelFunc

	uiHandler *Handler
	shell     *Shell

	fullWidthWithBorders int

	outputViewport viewport.Model
	logsViewport   viewport.Model
	input          textinput.Model

	output []string
	logs   []string

	ready bool
}

// NewTeaModel returns an initial new [TeaModel].
//
//nolint:mnd
func NewTeaModel(uiHandler *Handler, shell *Shell, cancel context.CancelFunc) TeaModel {
	input := textinput.New()
	input.Prompt = "pfs> "
	input.PromptStyle = promptStyle
	input.Focus()

	return TeaModel{
		uiHandler:      uiHandler,
		shell:          shell,
		outputViewport: viewport.New(80, 16),
		logsViewport:   viewport.New(80, 6),
		input:          input,
		output:         make([]string, 0, 100),
		logs:           make([]string, 0, 100),
		cancel:         cancel,
		ready:          false,
	}
}

// Init initializes the model within a [tea.Program].
func (m TeaModel) Init() tea.Cmd {
	return tea.Batch(
		tea.EnterAltScreen,
		textinput.Blink,
	)
}

// Update is the principal message handling method of the model.
// It sets the internal state of the model, for later rendering.
//
//nolint:funlen,ireturn
func (m TeaModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.cancel()

			return m, tea.Quit
		case "esc":
			return m, tea.Quit
		case "enter":
			line := m.input.Value()
			m.input.Reset()

			if strings.TrimSpace(line) == "exit" {
				return m, tea.Quit
			}

			m.appendOutput(promptStyle.Render("pfs> ") + line)
			if out := m.shell.Run(line); out != "" {
				m.appendOutput(out)
			}

			return m, nil
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		m.fullWidthWithBorders = m.width - 2 //nolint:mnd

		// Logs take about a quarter of the height; the output pane gets
		// the rest, minus the titles, borders and the input line.
		logsHeight := m.height / 4
		outputHeight := m.height - logsHeight - 7 //nolint:mnd

		m.outputViewport.Width = m.fullWidthWithBorders
		m.outputViewport.Height = outputHeight
		m.logsViewport.Width = m.fullWidthWithBorders
		m.logsViewport.Height = logsHeight
		m.input.Width = m.fullWidthWithBorders

		m.refreshOutput()
		m.refreshLogs()

		if !m.ready {
			m.ready = true
			m.uiHandler.Ready.Store(true)
		}

	case logMsg:
		if len(m.logs) >= 100 { //nolint:mnd
			m.logs = m.logs[1:]
		}
		m.logs = append(m.logs, string(msg))
		m.refreshLogs()
	}

	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)

	m.outputViewport, cmd = m.outputViewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m *TeaModel) appendOutput(text string) {
	if len(m.output) >= 100 { //nolint:mnd
		m.output = m.output[1:]
	}
	m.output = append(m.output, text)
	m.refreshOutput()
}

func (m *TeaModel) refreshOutput() {
	content := lipgloss.NewStyle().
		Width(m.outputViewport.Width).
		Render(strings.Join(m.output, "\n"))

	m.outputViewport.SetContent(content)
	m.outputViewport.GotoBottom()
}

func (m *TeaModel) refreshLogs() {
	if len(m.logs) == 0 {
		return
	}

	content := lipgloss.NewStyle().
		Width(m.logsViewport.Width).
		Render(strings.TrimSuffix(strings.Join(m.logs, ""), "\n"))

	m.logsViewport.SetContent(content)
	m.logsViewport.GotoBottom()
}

// View is the principal rendering function of the model.
func (m TeaModel) View() string {
	if !m.ready {
		return "Loading the shell..."
	}

	var s strings.Builder

	outputSection := borderStyle.
		Width(m.fullWidthWithBorders).
		Render(
			lipgloss.JoinVertical(
				lipgloss.Left,
				titleStyle.Width(m.fullWidthWithBorders).Render("Filesystem Shell"),
				lipgloss.NewStyle().Width(m.fullWidthWithBorders).Render(m.outputViewport.View()),
				m.input.View(),
			),
		)

	logsSection := borderStyle.
		Width(m.fullWidthWithBorders).
		Render(
			lipgloss.JoinVertical(
				lipgloss.Left,
				titleStyle.Width(m.fullWidthWithBorders).Render("Logs"),
				lipgloss.NewStyle().Width(m.fullWidthWithBorders).Render(m.logsViewport.View()),
			),
		)

	helpSection := helpStyle.
		Width(m.fullWidthWithBorders).
		Render("enter: run command • esc: quit shell • ctrl+c: quit program")

	s.WriteString(lipgloss.JoinVertical(
		lipgloss.Left,
		outputSection,
		logsSection,
		helpSection,
	))

	return s.String()
}
