package commands

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/joacominatel/minaweb/internal/app"
	"github.com/joacominatel/minaweb/internal/database"
)

// NewDumpCommand creates the dump command.
func NewDumpCommand() *cobra.Command {
	var format string
	var all bool

	cmd := &cobra.Command{
		Use:   "dump [schema [table]]",
		Short: "Print schemas, tables or rows to the terminal",
		Long: `Print the same listings the web pages show.

  dump                 lists the schemas
  dump <schema>        lists the tables of a schema with their row estimates
  dump <schema> <tbl>  prints every row of a table

Output is a boxed table on a terminal and tab-separated values otherwise.
Use --format to override: auto, table, tsv`,
		Example: `  # List the tables of the public schema
  minaweb dump public

  # Export a table as TSV
  minaweb dump public users --format tsv > users.tsv`,
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDump(cmd, args, format, all)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "auto", "output format (auto|table|tsv)")
	cmd.Flags().BoolVar(&all, "all", false, "with no arguments, list every schema with its tables")

	_ = cmd.RegisterFlagCompletionFunc("format", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"auto", "table", "tsv"}, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func runDump(cmd *cobra.Command, args []string, format string, all bool) error {
	w := cmd.OutOrStdout()
	pretty, err := usePretty(w, format)
	if err != nil {
		return err
	}

	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	svc := cmdCtx.Service
	ctx := cmd.Context()

	switch len(args) {
	case 0:
		if all {
			tree, err := svc.LoadSchemaTree(ctx)
			if err != nil {
				return err
			}
			return writeSheet(w, treeSheet(tree), pretty)
		}
		schemas, err := svc.ListSchemas(ctx)
		if err != nil {
			return err
		}
		return writeSheet(w, schemaSheet(schemas), pretty)
	case 1:
		tables, err := svc.TableSummaries(ctx, args[0])
		if err != nil {
			return err
		}
		return writeSheet(w, tableSheet(tables), pretty)
	default:
		it, err := svc.StreamRows(ctx, args[0], args[1])
		if err != nil {
			return err
		}
		defer it.Close()
		return writeRows(w, it, pretty)
	}
}

// usePretty resolves the output format. auto picks the boxed table only
// when w is a terminal.
func usePretty(w io.Writer, format string) (bool, error) {
	switch format {
	case "table":
		return true, nil
	case "tsv":
		return false, nil
	case "", "auto":
		f, ok := w.(*os.File)
		return ok && term.IsTerminal(int(f.Fd())), nil
	default:
		return false, fmt.Errorf("invalid format %q (want auto, table or tsv)", format)
	}
}

// sheet is a small listing with a header row.
type sheet struct {
	header []string
	rows   [][]string
}

func schemaSheet(schemas []string) sheet {
	s := sheet{header: []string{"#", "name"}}
	for i, name := range schemas {
		s.rows = append(s.rows, []string{strconv.Itoa(i), name})
	}
	return s
}

func tableSheet(tables []database.TableSummary) sheet {
	s := sheet{header: []string{"#", "name", "rows"}}
	for i, t := range tables {
		count := ""
		if t.ApproxRows >= 0 {
			count = strconv.FormatInt(t.ApproxRows, 10)
		}
		s.rows = append(s.rows, []string{strconv.Itoa(i), t.Name, count})
	}
	return s
}

func treeSheet(tree *app.SchemaTree) sheet {
	s := sheet{header: []string{"schema", "table"}}
	for _, schema := range tree.Schemas {
		if len(schema.Tables) == 0 {
			s.rows = append(s.rows, []string{schema.Name, ""})
			continue
		}
		for _, t := range schema.Tables {
			s.rows = append(s.rows, []string{schema.Name, t})
		}
	}
	return s
}

func writeSheet(w io.Writer, s sheet, pretty bool) error {
	if pretty {
		t := newPrettyTable(w, s.header)
		for _, row := range s.rows {
			t.AppendRow(toTableRow(row))
		}
		t.Render()
		return nil
	}

	if err := writeTSVLine(w, s.header); err != nil {
		return err
	}
	for _, row := range s.rows {
		if err := writeTSVLine(w, row); err != nil {
			return err
		}
	}
	return nil
}

// writeRows prints a table scan with a leading 0-based row index. TSV output
// streams; the boxed table buffers until the scan ends.
func writeRows(w io.Writer, it database.RowIterator, pretty bool) error {
	header := append([]string{"#"}, it.Columns()...)

	if pretty {
		t := newPrettyTable(w, header)
		n := 0
		for it.Next() {
			t.AppendRow(toTableRow(indexed(n, it.Row())))
			n++
		}
		if err := it.Err(); err != nil {
			return err
		}
		if n == 0 {
			_, _ = fmt.Fprintln(w, "no data")
			return nil
		}
		t.Render()
		_, _ = fmt.Fprintf(w, "(%d rows)\n", n)
		return nil
	}

	if err := writeTSVLine(w, header); err != nil {
		return err
	}
	for n := 0; it.Next(); n++ {
		if err := writeTSVLine(w, indexed(n, it.Row())); err != nil {
			return err
		}
	}
	return it.Err()
}

func indexed(n int, row database.Row) []string {
	return append([]string{strconv.Itoa(n)}, row.Strings()...)
}

func newPrettyTable(w io.Writer, header []string) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(toTableRow(header))
	return t
}

func toTableRow(cells []string) table.Row {
	row := make(table.Row, len(cells))
	for i, c := range cells {
		row[i] = c
	}
	return row
}

var tsvEscaper = strings.NewReplacer(`\`, `\\`, "\t", `\t`, "\n", `\n`, "\r", `\r`)

func writeTSVLine(w io.Writer, cells []string) error {
	escaped := make([]string, len(cells))
	for i, c := range cells {
		escaped[i] = tsvEscaper.Replace(c)
	}
	_, err := io.WriteString(w, strings.Join(escaped, "\t")+"\n")
	return err
}
