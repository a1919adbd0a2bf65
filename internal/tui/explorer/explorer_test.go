package explorer

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joacominatel/minaweb/internal/database"
)

func press(t *testing.T, m Model, k tea.KeyType) (Model, tea.Msg) {
	t.Helper()
	m, cmd := m.Update(tea.KeyMsg{Type: k})
	if cmd == nil {
		return m, nil
	}
	return m, cmd()
}

func loaded(t *testing.T) Model {
	t.Helper()
	m := New()
	m.SetFocused(true)
	m.SetSize(40, 20)
	m.SetSchemas("shop", []string{"audit", "public"})
	return m
}

func TestSetSchemas(t *testing.T) {
	m := loaded(t)
	require.Len(t, m.items, 3)

	_, _, ok := m.Selected()
	assert.False(t, ok, "cursor starts on the database node")

	view := m.View()
	assert.Contains(t, view, "shop")
	assert.Contains(t, view, "audit")
	assert.Contains(t, view, "public")
}

func TestOpenSchema_RequestsTablesOnce(t *testing.T) {
	m := loaded(t)
	m, _ = press(t, m, tea.KeyDown)
	m, _ = press(t, m, tea.KeyDown)

	schema, table, ok := m.Selected()
	require.True(t, ok)
	assert.Equal(t, "public", schema)
	assert.Empty(t, table)

	m, msg := press(t, m, tea.KeyEnter)
	assert.Equal(t, RequestTablesMsg{Schema: "public"}, msg)

	m.SetTables("public", []database.TableSummary{
		{Name: "orders", ApproxRows: 12},
		{Name: "users", ApproxRows: -1},
	})
	assert.Len(t, m.items, 5)
	assert.Contains(t, m.View(), "12")

	// Collapse and expand again: tables are already loaded.
	m, msg = press(t, m, tea.KeyEnter)
	assert.Nil(t, msg)
	assert.Len(t, m.items, 3)
	m, msg = press(t, m, tea.KeyEnter)
	assert.Nil(t, msg)
	assert.Len(t, m.items, 5)
}

func TestOpenTable(t *testing.T) {
	m := loaded(t)
	m.SetTables("audit", []database.TableSummary{{Name: "log", ApproxRows: 3}})
	m, _ = press(t, m, tea.KeyDown)
	m, _ = press(t, m, tea.KeyDown)

	schema, table, ok := m.Selected()
	require.True(t, ok)
	assert.Equal(t, "audit", schema)
	assert.Equal(t, "log", table)

	_, msg := press(t, m, tea.KeyEnter)
	assert.Equal(t, OpenTableMsg{Schema: "audit", Table: "log"}, msg)
}

func TestLeft_JumpsToParent(t *testing.T) {
	m := loaded(t)
	m.SetTables("audit", []database.TableSummary{{Name: "log", ApproxRows: 3}})
	m, _ = press(t, m, tea.KeyDown)
	m, _ = press(t, m, tea.KeyDown)

	m, _ = press(t, m, tea.KeyLeft)
	schema, table, _ := m.Selected()
	assert.Equal(t, "audit", schema)
	assert.Empty(t, table)

	m, _ = press(t, m, tea.KeyLeft)
	assert.Len(t, m.items, 3, "second left collapses the schema")
}

func TestRefresh(t *testing.T) {
	m := loaded(t)
	m.SetTables("audit", nil)
	m, _ = press(t, m, tea.KeyDown)

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})
	require.NotNil(t, cmd)
	assert.Equal(t, RequestTablesMsg{Schema: "audit"}, cmd())
	assert.False(t, m.schemaNode("audit").Loaded)
}

func TestUnfocusedIgnoresKeys(t *testing.T) {
	m := loaded(t)
	m.SetFocused(false)
	m, _ = press(t, m, tea.KeyDown)
	assert.Equal(t, 0, m.cursor)
}

func TestSetTables_UnknownSchema(t *testing.T) {
	m := loaded(t)
	m.SetTables("missing", []database.TableSummary{{Name: "x"}})
	assert.Len(t, m.items, 3)
}
