package statusbar

import (
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/joacominatel/minaweb/internal/tui/keys"
	"github.com/joacominatel/minaweb/internal/tui/theme"
)

// Model is the status bar component.
type Model struct {
	width     int
	connected bool
	connName  string
	location  string
	message   string
	loading   bool
	spinner   spinner.Model
	help      help.Model
}

// New creates a new status bar model.
func New() Model {
	s := spinner.New()
	s.Spinner = spinner.MiniDot
	s.Style = lipgloss.NewStyle().Foreground(theme.ColorPrimary)

	h := help.New()
	h.ShortSeparator = " │ "

	return Model{
		spinner: s,
		help:    h,
	}
}

// SetWidth updates the component width.
func (m *Model) SetWidth(w int) {
	m.width = w
	m.help.Width = w / 2
}

// SetConnected updates the connection status display.
func (m *Model) SetConnected(connected bool, name string) {
	m.connected = connected
	m.connName = name
}

// SetLocation shows the open schema or table next to the connection.
func (m *Model) SetLocation(loc string) {
	m.location = loc
}

// SetMessage sets a temporary status message.
func (m *Model) SetMessage(msg string) {
	m.message = msg
}

// Message returns the current status message.
func (m Model) Message() string {
	return m.message
}

// SetLoading starts or stops the spinner. The returned command drives it.
func (m *Model) SetLoading(l bool) tea.Cmd {
	wasLoading := m.loading
	m.loading = l
	if l && !wasLoading {
		return m.spinner.Tick
	}
	return nil
}

// Loading reports whether the spinner is running.
func (m Model) Loading() bool {
	return m.loading
}

// Init returns the initial command (none).
func (m Model) Init() tea.Cmd {
	return nil
}

// Update advances the spinner while loading.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if _, ok := msg.(spinner.TickMsg); ok && m.loading {
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View renders the status bar.
func (m Model) View() string {
	style := theme.StyleStatusBar.Width(m.width)

	var left string
	if m.connected {
		left = lipgloss.NewStyle().
			Foreground(theme.ColorSuccess).
			Render("●") + " " + m.connName
	} else {
		left = lipgloss.NewStyle().
			Foreground(theme.ColorError).
			Render("●") + " disconnected"
	}
	if m.location != "" {
		left += theme.StyleMuted.Render(" / " + m.location)
	}
	if m.loading {
		left = m.spinner.View() + " " + left
	}

	right := m.help.ShortHelpView(keys.Default.ShortHelp())
	if m.message != "" {
		right = m.message
	}

	padding := max(1, m.width-lipgloss.Width(left)-lipgloss.Width(right)-4)
	return style.Render(left + strings.Repeat(" ", padding) + right)
}
