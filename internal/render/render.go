// Package render turns catalog listings and table scans into HTML table
// fragments and wraps them in the page shell.
package render

import (
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/joacominatel/minaweb/internal/app"
	"github.com/joacominatel/minaweb/internal/database"
)

// ContentType is the media type of every rendered page.
const ContentType = "text/html; charset=utf-8"

// NoData is the text of the single row shown for an empty table.
const NoData = "no data"

// NotFoundMarker is the text of the not-found page.
const NotFoundMarker = "not found"

const (
	docOpen  = "<!doctype html><meta charset=utf-8><table>"
	docClose = "</table>"
)

var escaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#39;",
)

// Escape makes s safe for HTML body and quoted attribute positions.
func Escape(s string) string {
	return escaper.Replace(s)
}

// Document wraps a table fragment in the page shell.
func Document(fragment string) string {
	return docOpen + fragment + docClose
}

// SchemaList renders the root level: one linked row per schema.
func SchemaList(schemas []string) string {
	var b strings.Builder
	b.WriteString("<caption>schemas</caption><tr><th>#</th><th>name</th></tr>")
	for i, schema := range schemas {
		b.WriteString("<tr><td>")
		b.WriteString(strconv.Itoa(i))
		b.WriteString("</td><td>")
		link(&b, schema, href(schema))
		b.WriteString("</td></tr>")
	}
	return b.String()
}

// TableList renders one schema's tables with their approximate row counts.
// Unknown counts render as an empty cell.
func TableList(schema string, tables []database.TableSummary) string {
	var b strings.Builder
	b.WriteString("<caption>tables</caption><tr><th>#</th><th>name</th><th>count</th></tr>")
	for i, t := range tables {
		b.WriteString("<tr><td>")
		b.WriteString(strconv.Itoa(i))
		b.WriteString("</td><td>")
		link(&b, t.Name, href(schema, t.Name))
		b.WriteString("</td><td>")
		if t.ApproxRows >= 0 {
			b.WriteString(strconv.FormatInt(t.ApproxRows, 10))
		}
		b.WriteString("</td></tr>")
	}
	return b.String()
}

// Rows drains it into a fragment: the caption, a header row taken from the
// first row's columns, then one row per record. A row whose shape differs
// from the header fails with *app.ErrRender. The caller closes it.
func Rows(table string, it database.RowIterator) (string, error) {
	var b strings.Builder
	b.WriteString("<caption>")
	b.WriteString(Escape(table))
	b.WriteString("</caption>")

	var header []string
	n := 0
	for it.Next() {
		row := it.Row()
		if n == 0 {
			header = row.Columns
			cells(&b, "th", header)
		}
		if err := checkShape(n, header, row); err != nil {
			return "", err
		}
		cells(&b, "td", row.Strings())
		n++
	}
	if err := it.Err(); err != nil {
		return "", err
	}

	if n == 0 {
		b.WriteString("<tr><td>" + NoData + "</td></tr>")
	}
	return b.String(), nil
}

// NotFound renders the fixed marker for unsupported paths.
func NotFound() string {
	return "<caption>" + NotFoundMarker + "</caption><tr><td>" + NotFoundMarker + "</td></tr>"
}

// Message renders a short error message under a caption.
func Message(caption, msg string) string {
	return "<caption>" + Escape(caption) + "</caption><tr><td>" + Escape(msg) + "</td></tr>"
}

func checkShape(n int, header []string, row database.Row) error {
	if len(row.Values) != len(header) {
		return &app.ErrRender{Row: n, Want: len(header), Got: len(row.Values)}
	}
	if !slices.Equal(row.Columns, header) {
		return &app.ErrRender{
			Row:    n,
			Want:   len(header),
			Got:    len(row.Values),
			Reason: fmt.Sprintf("row %d columns differ from header", n),
		}
	}
	return nil
}

func cells(b *strings.Builder, tag string, values []string) {
	b.WriteString("<tr>")
	for _, v := range values {
		b.WriteString("<" + tag + ">")
		b.WriteString(Escape(v))
		b.WriteString("</" + tag + ">")
	}
	b.WriteString("</tr>")
}

func link(b *strings.Builder, text, target string) {
	b.WriteString(`<a href="`)
	b.WriteString(Escape(target))
	b.WriteString(`">`)
	b.WriteString(Escape(text))
	b.WriteString("</a>")
}

// href joins catalog names into a path, escaping each one as a segment.
func href(names ...string) string {
	var b strings.Builder
	for _, name := range names {
		b.WriteByte('/')
		b.WriteString(url.PathEscape(name))
	}
	return b.String()
}
