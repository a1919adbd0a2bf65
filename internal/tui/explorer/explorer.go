package explorer

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/joacominatel/minaweb/internal/database"
	"github.com/joacominatel/minaweb/internal/tui/keys"
	"github.com/joacominatel/minaweb/internal/tui/theme"
)

// NodeKind identifies the type of a tree node.
type NodeKind int

const (
	NodeDatabase NodeKind = iota
	NodeSchema
	NodeTable
)

// TreeNode represents a single node in the schema tree.
type TreeNode struct {
	Kind     NodeKind
	Name     string
	Children []*TreeNode
	Expanded bool
	Loaded   bool // whether children have been fetched

	Schema   string // parent schema name (tables only)
	RowCount int64  // approximate, -1 when unknown
}

// RequestTablesMsg asks for the tables of a schema.
type RequestTablesMsg struct {
	Schema string
}

// OpenTableMsg asks for the rows of a table.
type OpenTableMsg struct {
	Schema string
	Table  string
}

// flatItem is a visible item in the flattened tree view.
type flatItem struct {
	node  *TreeNode
	depth int
}

// Model is the explorer (schema tree) component.
type Model struct {
	tree    *TreeNode
	items   []flatItem
	cursor  int
	width   int
	height  int
	focused bool
	loading bool
}

// New creates a new explorer model.
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

// Focused returns whether the explorer has focus.
func (m Model) Focused() bool {
	return m.focused
}

// SetLoading sets the loading state.
func (m *Model) SetLoading(l bool) {
	m.loading = l
}

// SetSchemas replaces the tree with the database's schemas. Tables are
// fetched when a schema is first expanded.
func (m *Model) SetSchemas(db string, schemas []string) {
	root := &TreeNode{
		Kind:     NodeDatabase,
		Name:     db,
		Expanded: true,
		Loaded:   true,
	}
	for _, s := range schemas {
		root.Children = append(root.Children, &TreeNode{
			Kind: NodeSchema,
			Name: s,
		})
	}

	m.tree = root
	m.flatten()
	m.loading = false
}

// SetTables fills a schema node with its tables.
func (m *Model) SetTables(schema string, tables []database.TableSummary) {
	node := m.schemaNode(schema)
	if node == nil {
		return
	}
	node.Children = nil
	for _, t := range tables {
		node.Children = append(node.Children, &TreeNode{
			Kind:     NodeTable,
			Name:     t.Name,
			Schema:   schema,
			Loaded:   true,
			RowCount: t.ApproxRows,
		})
	}
	node.Loaded = true
	node.Expanded = true
	m.flatten()
}

func (m *Model) schemaNode(schema string) *TreeNode {
	if m.tree == nil {
		return nil
	}
	for _, s := range m.tree.Children {
		if s.Name == schema {
			return s
		}
	}
	return nil
}

// Selected returns the schema and table under the cursor. table is empty
// when the cursor is on a schema.
func (m Model) Selected() (schema, table string, ok bool) {
	if m.cursor < 0 || m.cursor >= len(m.items) {
		return "", "", false
	}
	node := m.items[m.cursor].node
	switch node.Kind {
	case NodeSchema:
		return node.Name, "", true
	case NodeTable:
		return node.Schema, node.Name, true
	}
	return "", "", false
}

// flatten rebuilds the flat item list from the tree.
func (m *Model) flatten() {
	m.items = nil
	if m.tree != nil {
		m.flattenNode(m.tree, 0)
	}
	if m.cursor >= len(m.items) {
		m.cursor = max(0, len(m.items)-1)
	}
}

func (m *Model) flattenNode(node *TreeNode, depth int) {
	m.items = append(m.items, flatItem{node: node, depth: depth})
	if node.Expanded {
		for _, child := range node.Children {
			m.flattenNode(child, depth+1)
		}
	}
}

// Init returns the initial command (none).
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages for the explorer.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if !m.focused {
		return m, nil
	}

	km, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch {
	case key.Matches(km, keys.Default.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(km, keys.Default.Down):
		if m.cursor < len(m.items)-1 {
			m.cursor++
		}
	case key.Matches(km, keys.Default.Open), key.Matches(km, keys.Default.Right):
		return m, m.open()
	case key.Matches(km, keys.Default.Left):
		m.collapse()
	case key.Matches(km, keys.Default.Refresh):
		return m, m.refresh()
	}

	return m, nil
}

func (m *Model) open() tea.Cmd {
	if m.cursor < 0 || m.cursor >= len(m.items) {
		return nil
	}
	node := m.items[m.cursor].node

	switch node.Kind {
	case NodeTable:
		schema, table := node.Schema, node.Name
		return func() tea.Msg {
			return OpenTableMsg{Schema: schema, Table: table}
		}
	case NodeSchema:
		if node.Expanded {
			node.Expanded = false
			m.flatten()
			return nil
		}
		node.Expanded = true
		m.flatten()
		if !node.Loaded {
			schema := node.Name
			return func() tea.Msg {
				return RequestTablesMsg{Schema: schema}
			}
		}
	case NodeDatabase:
		node.Expanded = !node.Expanded
		m.flatten()
	}
	return nil
}

func (m *Model) collapse() {
	if m.cursor < 0 || m.cursor >= len(m.items) {
		return
	}
	item := m.items[m.cursor]

	if item.node.Expanded {
		item.node.Expanded = false
		m.flatten()
		return
	}
	// Jump to the parent when the node is already closed.
	for i := m.cursor - 1; i >= 0; i-- {
		if m.items[i].depth < item.depth {
			m.cursor = i
			return
		}
	}
}

func (m *Model) refresh() tea.Cmd {
	schema, _, ok := m.Selected()
	if !ok {
		return nil
	}
	if node := m.schemaNode(schema); node != nil {
		node.Loaded = false
	}
	return func() tea.Msg {
		return RequestTablesMsg{Schema: schema}
	}
}

// View renders the explorer.
func (m Model) View() string {
	title := theme.StyleTitle.Render("Schemas")

	if m.loading {
		return title + "\n" + theme.StyleMuted.Render("  Loading...")
	}

	if m.tree == nil {
		return title + "\n" + theme.StyleMuted.Render("  No connection")
	}

	var b strings.Builder
	b.WriteString(title)
	b.WriteString("\n")

	visibleHeight := max(1, m.height-2)

	// Scroll offset to keep cursor visible
	scrollOffset := 0
	if m.cursor >= visibleHeight {
		scrollOffset = m.cursor - visibleHeight + 1
	}

	for i := scrollOffset; i < len(m.items) && i < scrollOffset+visibleHeight; i++ {
		b.WriteString(m.renderNode(m.items[i], i == m.cursor))
		if i < scrollOffset+visibleHeight-1 {
			b.WriteString("\n")
		}
	}

	return b.String()
}

func (m Model) renderNode(item flatItem, selected bool) string {
	node := item.node
	indent := strings.Repeat("  ", item.depth)

	icon := "  "
	if node.Kind != NodeTable {
		icon = "▶ "
		if node.Expanded {
			icon = "▼ "
		}
	}

	line := indent + icon + node.Name
	if m.width > 0 && lipgloss.Width(line) > m.width-2 {
		line = truncate(line, m.width-4) + ".."
	}

	if selected {
		line = theme.StyleSelected.Render(line)
	}
	if node.Kind == NodeTable && node.RowCount >= 0 {
		line += " " + theme.StyleMuted.Render(strconv.FormatInt(node.RowCount, 10))
	}
	return line
}

func truncate(s string, width int) string {
	runes := []rune(s)
	for len(runes) > 0 && lipgloss.Width(string(runes)) > width {
		runes = runes[:len(runes)-1]
	}
	return string(runes)
}
