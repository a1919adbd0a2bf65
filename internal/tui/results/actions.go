package results

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/joacominatel/minaweb/internal/database"
)

// StatusNotifyMsg carries the outcome of a copy or export to the status bar.
type StatusNotifyMsg struct {
	Message string
}

func (m Model) currentRow() (database.Row, bool) {
	if m.set == nil || m.cursorY < 0 || m.cursorY >= len(m.set.Rows) {
		return database.Row{}, false
	}
	return m.set.Rows[m.cursorY], true
}

func notify(msg string) tea.Cmd {
	return func() tea.Msg {
		return StatusNotifyMsg{Message: msg}
	}
}

// --- Copy ---

func (m Model) copyCellCmd() tea.Cmd {
	row, ok := m.currentRow()
	if !ok || m.cursorX >= len(row.Values) {
		return notify("Nothing to copy")
	}
	val := row.Values[m.cursorX].String()
	return func() tea.Msg {
		if err := clipboard.WriteAll(val); err != nil {
			return StatusNotifyMsg{Message: "Copy failed: " + err.Error()}
		}
		return StatusNotifyMsg{Message: "Copied: " + truncateStatus(val, 40)}
	}
}

func (m Model) copyRowJSONCmd() tea.Cmd {
	row, ok := m.currentRow()
	if !ok {
		return notify("No row to copy")
	}
	return func() tea.Msg {
		doc, err := rowToJSON(row)
		if err != nil {
			return StatusNotifyMsg{Message: "Copy failed: " + err.Error()}
		}
		if err := clipboard.WriteAll(doc); err != nil {
			return StatusNotifyMsg{Message: "Copy failed: " + err.Error()}
		}
		return StatusNotifyMsg{Message: "Copied row as JSON"}
	}
}

func (m Model) copyRowCSVCmd() tea.Cmd {
	row, ok := m.currentRow()
	if !ok {
		return notify("No row to copy")
	}
	return func() tea.Msg {
		var b strings.Builder
		w := csv.NewWriter(&b)
		_ = w.Write(row.Columns)
		_ = w.Write(row.Strings())
		w.Flush()
		if err := clipboard.WriteAll(b.String()); err != nil {
			return StatusNotifyMsg{Message: "Copy failed: " + err.Error()}
		}
		return StatusNotifyMsg{Message: "Copied row as CSV"}
	}
}

// --- Export ---

func (m Model) exportCSVCmd() tea.Cmd {
	set := m.set
	if set == nil {
		return notify("Nothing to export")
	}
	return func() tea.Msg {
		ts := time.Now().Format("20060102_150405")
		filename := fmt.Sprintf("%s_%s_%s.csv", set.Schema, set.Table, ts)
		n, err := writeCSV(filename, set)
		if err != nil {
			return StatusNotifyMsg{Message: "Export failed: " + err.Error()}
		}
		return StatusNotifyMsg{Message: fmt.Sprintf("Exported %d rows to %s", n, filename)}
	}
}

func writeCSV(filename string, set *database.RowSet) (int, error) {
	f, err := os.Create(filename)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	_ = w.Write(set.Columns)
	for _, row := range set.Rows {
		_ = w.Write(row.Strings())
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return 0, err
	}
	return len(set.Rows), f.Close()
}

// --- Helpers ---

// rowToJSON keeps column order, unlike marshaling a map. NULL becomes null.
func rowToJSON(row database.Row) (string, error) {
	var b strings.Builder
	b.WriteString("{")
	for i, col := range row.Columns {
		if i > 0 {
			b.WriteString(", ")
		}
		if err := writeJSONString(&b, col); err != nil {
			return "", err
		}
		b.WriteString(": ")
		if i >= len(row.Values) || row.Values[i].Kind == database.KindNull {
			b.WriteString("null")
			continue
		}
		if err := writeJSONString(&b, row.Values[i].String()); err != nil {
			return "", err
		}
	}
	b.WriteString("}")
	return b.String(), nil
}

// writeJSONString quotes s without escaping <, > and &.
func writeJSONString(b *strings.Builder, s string) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return err
	}
	b.Write(bytes.TrimSuffix(buf.Bytes(), []byte("\n")))
	return nil
}

func truncateStatus(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
