package commands

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joacominatel/minaweb/internal/app"
	"github.com/joacominatel/minaweb/internal/config"
	"github.com/joacominatel/minaweb/internal/database"
)

type sliceRows struct {
	cols []string
	rows [][]database.Value
	pos  int
	err  error
}

func (s *sliceRows) Columns() []string { return s.cols }

func (s *sliceRows) Next() bool {
	if s.pos >= len(s.rows) {
		return false
	}
	s.pos++
	return true
}

func (s *sliceRows) Row() database.Row {
	return database.Row{Columns: s.cols, Values: s.rows[s.pos-1]}
}

func (s *sliceRows) Err() error { return s.err }
func (s *sliceRows) Close()     {}

func TestUsePretty(t *testing.T) {
	var buf bytes.Buffer

	pretty, err := usePretty(&buf, "auto")
	require.NoError(t, err)
	assert.False(t, pretty, "a buffer is not a terminal")

	pretty, err = usePretty(&buf, "table")
	require.NoError(t, err)
	assert.True(t, pretty)

	pretty, err = usePretty(&buf, "tsv")
	require.NoError(t, err)
	assert.False(t, pretty)

	_, err = usePretty(&buf, "xml")
	assert.Error(t, err)
}

func TestWriteTSVLine_Escapes(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeTSVLine(&buf, []string{"a\tb", "line\nbreak", `back\slash`, ""}))
	assert.Equal(t, "a\\tb\tline\\nbreak\tback\\\\slash\t\n", buf.String())
}

func TestWriteSheet(t *testing.T) {
	tables := []database.TableSummary{
		{Name: "Game", ApproxRows: 2},
		{Name: "Empty", ApproxRows: -1},
	}

	var tsv bytes.Buffer
	require.NoError(t, writeSheet(&tsv, tableSheet(tables), false))
	assert.Equal(t, "#\tname\trows\n0\tGame\t2\n1\tEmpty\t\n", tsv.String())

	var pretty bytes.Buffer
	require.NoError(t, writeSheet(&pretty, schemaSheet([]string{"main", "audit"}), true))
	out := pretty.String()
	assert.Contains(t, out, "┌")
	assert.Contains(t, out, "main")
	assert.Contains(t, out, "audit")
}

func TestTreeSheet(t *testing.T) {
	tree := &app.SchemaTree{
		Database: "db",
		Schemas: []app.SchemaNode{
			{Name: "public", Tables: []string{"a", "b"}},
			{Name: "empty"},
		},
	}
	s := treeSheet(tree)
	assert.Equal(t, [][]string{{"public", "a"}, {"public", "b"}, {"empty", ""}}, s.rows)
}

func TestWriteRows(t *testing.T) {
	newRows := func() *sliceRows {
		return &sliceRows{
			cols: []string{"id", "name"},
			rows: [][]database.Value{
				{database.Text("1"), database.Text("a")},
				{database.Text("2"), database.Null()},
			},
		}
	}

	var tsv bytes.Buffer
	require.NoError(t, writeRows(&tsv, newRows(), false))
	assert.Equal(t, "#\tid\tname\n0\t1\ta\n1\t2\tNULL\n", tsv.String())

	var pretty bytes.Buffer
	require.NoError(t, writeRows(&pretty, newRows(), true))
	assert.Contains(t, pretty.String(), "NULL")
	assert.Contains(t, pretty.String(), "(2 rows)")

	var empty bytes.Buffer
	require.NoError(t, writeRows(&empty, &sliceRows{cols: []string{"id"}}, true))
	assert.Equal(t, "no data\n", empty.String())
}

func TestWriteRows_IterationError(t *testing.T) {
	boom := errors.New("connection reset")
	rows := &sliceRows{cols: []string{"id"}, err: boom}

	var buf bytes.Buffer
	assert.ErrorIs(t, writeRows(&buf, rows, false), boom)
	assert.ErrorIs(t, writeRows(&buf, rows, true), boom)
}

func TestListConnections(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, listConnections(&buf, &config.Config{}))
	assert.Equal(t, "No saved connections\n", buf.String())

	cfg := &config.Config{
		Connections: []config.Connection{
			{Name: "local", Driver: "sqlite", Database: "/tmp/app.db"},
			{Name: "prod", Driver: "postgres", Host: "db", Port: 5432, Database: "shop", Username: "app", Keyring: true},
		},
		Preferences: config.Preferences{DefaultConnection: "prod"},
	}
	buf.Reset()
	require.NoError(t, listConnections(&buf, cfg))
	out := buf.String()
	assert.Contains(t, out, "/tmp/app.db")
	assert.Contains(t, out, "app@db:5432/shop")
	assert.Equal(t, 1, strings.Count(out, "*"))
}

func TestNewVersionCommand(t *testing.T) {
	cmd := NewVersionCommand("1.2.3")
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{})

	require.NoError(t, cmd.Execute())
	assert.Equal(t, "minaweb v1.2.3\n", buf.String())
	assert.Equal(t, "version", cmd.Use)
}
