package results

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/joacominatel/minaweb/internal/database"
	"github.com/joacominatel/minaweb/internal/tui/keys"
	"github.com/joacominatel/minaweb/internal/tui/theme"
)

const maxColWidth = 40

// Model is the table rows component.
type Model struct {
	set       *database.RowSet
	err       error
	width     int
	height    int
	focused   bool
	loading   bool
	cursorY   int
	cursorX   int
	colWidths []int
}

// New creates a new results model.
func New() Model {
	return Model{}
}

// SetSize updates the component dimensions.
func (m *Model) SetSize(w, h int) {
	m.width = w
	m.height = h
}

// SetFocused sets the focus state.
func (m *Model) SetFocused(f bool) {
	m.focused = f
}

// Focused returns whether the results pane has focus.
func (m Model) Focused() bool {
	return m.focused
}

// SetLoading sets the loading state.
func (m *Model) SetLoading(l bool) {
	m.loading = l
}

// SetRows sets the scanned table to display.
func (m *Model) SetRows(set *database.RowSet) {
	m.set = set
	m.err = nil
	m.cursorY = 0
	m.cursorX = 0
	m.loading = false
	m.calculateColumnWidths()
}

// SetError sets an error to display.
func (m *Model) SetError(err error) {
	m.err = err
	m.set = nil
	m.cursorY = 0
	m.cursorX = 0
	m.loading = false
}

// RowSet returns the displayed rows, or nil.
func (m Model) RowSet() *database.RowSet {
	return m.set
}

// Cursor returns the selected row and column.
func (m Model) Cursor() (row, col int) {
	return m.cursorY, m.cursorX
}

func (m *Model) calculateColumnWidths() {
	if m.set == nil || len(m.set.Columns) == 0 {
		m.colWidths = nil
		return
	}

	m.colWidths = make([]int, len(m.set.Columns))

	// Display width, not byte length
	for i, col := range m.set.Columns {
		m.colWidths[i] = lipgloss.Width(col)
	}
	for _, row := range m.set.Rows {
		for i, v := range row.Values {
			w := lipgloss.Width(v.String())
			if i < len(m.colWidths) && w > m.colWidths[i] {
				m.colWidths[i] = w
			}
		}
	}
	for i := range m.colWidths {
		m.colWidths[i] = min(max(m.colWidths[i], 1), maxColWidth)
	}
}

func (m Model) rowCount() int {
	if m.set == nil {
		return 0
	}
	return len(m.set.Rows)
}

// Init returns the initial command (none).
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages for the results pane.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if !m.focused {
		return m, nil
	}

	km, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	page := max(1, m.height/2)
	switch {
	case key.Matches(km, keys.Default.Up):
		m.cursorY = max(0, m.cursorY-1)
	case key.Matches(km, keys.Default.Down):
		m.cursorY = min(max(0, m.rowCount()-1), m.cursorY+1)
	case key.Matches(km, keys.Default.PageUp):
		m.cursorY = max(0, m.cursorY-page)
	case key.Matches(km, keys.Default.PageDown):
		m.cursorY = min(max(0, m.rowCount()-1), m.cursorY+page)
	case key.Matches(km, keys.Default.Left):
		m.cursorX = max(0, m.cursorX-1)
	case key.Matches(km, keys.Default.Right):
		m.cursorX = min(max(0, len(m.colWidths)-1), m.cursorX+1)
	case key.Matches(km, keys.Default.CopyCell):
		return m, m.copyCellCmd()
	case key.Matches(km, keys.Default.CopyRow):
		return m, m.copyRowJSONCmd()
	case key.Matches(km, keys.Default.CopyCSV):
		return m, m.copyRowCSVCmd()
	case key.Matches(km, keys.Default.Export):
		return m, m.exportCSVCmd()
	}

	return m, nil
}

// View renders the results pane.
func (m Model) View() string {
	if m.loading {
		return theme.StyleTitle.Render("Rows") + "\n" + theme.StyleMuted.Render("  Scanning table...")
	}

	if m.err != nil {
		return theme.StyleTitle.Render("Rows") + "\n" +
			theme.StyleError.Render("  Error: "+m.err.Error())
	}

	if m.set == nil {
		return theme.StyleTitle.Render("Rows") + "\n" +
			theme.StyleMuted.Render("  Open a table to see its rows")
	}

	stats := fmt.Sprintf("%d row(s) | %s", len(m.set.Rows), m.set.Duration.Round(1000).String())
	header := theme.StyleTitle.Render(m.set.Schema+"."+m.set.Table) + "  " + theme.StyleMuted.Render(stats)

	if len(m.set.Rows) == 0 {
		return header + "\n" + theme.StyleMuted.Render("  no data")
	}

	first, last := m.visibleColumns()

	var b strings.Builder
	b.WriteString(header)
	b.WriteString("\n")
	b.WriteString(m.renderHeader(first, last))
	b.WriteString("\n")
	b.WriteString(m.renderSeparator(first, last))
	b.WriteString("\n")

	visibleRows := max(1, m.height-4)
	offset := 0
	if m.cursorY >= visibleRows {
		offset = m.cursorY - visibleRows + 1
	}
	for i := offset; i < len(m.set.Rows) && i < offset+visibleRows; i++ {
		b.WriteString(m.renderRow(i, first, last))
		if i < offset+visibleRows-1 && i < len(m.set.Rows)-1 {
			b.WriteString("\n")
		}
	}

	return b.String()
}

// visibleColumns picks the column window that contains the cursor and fits
// the pane width.
func (m Model) visibleColumns() (first, last int) {
	if len(m.colWidths) == 0 {
		return 0, 0
	}
	avail := m.width - 2
	if avail <= 0 {
		return 0, len(m.colWidths)
	}

	first = m.cursorX
	used := m.colWidths[first]
	last = first + 1
	for last < len(m.colWidths) && used+3+m.colWidths[last] <= avail {
		used += 3 + m.colWidths[last]
		last++
	}
	// Fill leftwards when the window ends at the last column.
	for first > 0 && used+3+m.colWidths[first-1] <= avail {
		first--
		used += 3 + m.colWidths[first]
	}
	return first, last
}

func (m Model) renderHeader(first, last int) string {
	parts := make([]string, 0, last-first)
	for i := first; i < last; i++ {
		parts = append(parts, theme.StyleHeader.Render(pad(m.set.Columns[i], m.colWidths[i])))
	}
	return "  " + strings.Join(parts, " │ ")
}

func (m Model) renderRow(r, first, last int) string {
	row := m.set.Rows[r]
	parts := make([]string, 0, last-first)
	for i := first; i < last; i++ {
		var v database.Value
		if i < len(row.Values) {
			v = row.Values[i]
		}
		cell := pad(v.String(), m.colWidths[i])
		switch {
		case r == m.cursorY && i == m.cursorX && m.focused:
			cell = theme.StyleSelected.Reverse(true).Render(cell)
		case r == m.cursorY:
			cell = theme.StyleSelected.Render(cell)
		case v.Kind != database.KindText:
			cell = theme.StyleNull.Render(cell)
		}
		parts = append(parts, cell)
	}
	return "  " + strings.Join(parts, " │ ")
}

func (m Model) renderSeparator(first, last int) string {
	parts := make([]string, 0, last-first)
	for i := first; i < last; i++ {
		parts = append(parts, strings.Repeat("─", m.colWidths[i]))
	}
	return "  " + lipgloss.NewStyle().Foreground(theme.ColorBorder).Render(strings.Join(parts, "─┼─"))
}

// pad truncates or pads s to exactly width display cells.
func pad(s string, width int) string {
	if lipgloss.Width(s) > width {
		runes := []rune(s)
		for len(runes) > 0 && lipgloss.Width(string(runes)) >= width {
			runes = runes[:len(runes)-1]
		}
		s = string(runes) + "…"
	}
	if gap := width - lipgloss.Width(s); gap > 0 {
		s += strings.Repeat(" ", gap)
	}
	return s
}
