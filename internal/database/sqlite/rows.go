package sqlite

import (
	"database/sql"
	"strconv"
	"time"

	"github.com/joacominatel/minaweb/internal/database"
)

type rowIterator struct {
	rows    *sql.Rows
	release func()

	columns []string
	types   []string
	scratch []any
	ptrs    []any

	current database.Row
	err     error
	done    bool
}

// newRowIterator wraps rows. declared overrides the driver's column type
// names when the select list hides them.
func newRowIterator(rows *sql.Rows, release func(), declared []string) (*rowIterator, error) {
	cts, err := rows.ColumnTypes()
	if err != nil {
		_ = rows.Close()
		release()
		return nil, err
	}

	it := &rowIterator{
		rows:    rows,
		release: release,
		columns: make([]string, len(cts)),
		types:   make([]string, len(cts)),
		scratch: make([]any, len(cts)),
		ptrs:    make([]any, len(cts)),
	}
	for i, ct := range cts {
		it.columns[i] = ct.Name()
		it.types[i] = ct.DatabaseTypeName()
		if i < len(declared) {
			it.types[i] = declared[i]
		}
		it.ptrs[i] = &it.scratch[i]
	}
	return it, nil
}

func (it *rowIterator) Columns() []string {
	return it.columns
}

func (it *rowIterator) Next() bool {
	if it.done {
		return false
	}
	if !it.rows.Next() {
		it.finish()
		return false
	}
	if err := it.rows.Scan(it.ptrs...); err != nil {
		it.err = err
		it.finish()
		return false
	}

	values := make([]database.Value, len(it.scratch))
	for i, v := range it.scratch {
		values[i] = formatValue(it.types[i], v)
		it.scratch[i] = nil
	}
	it.current = database.Row{Columns: it.columns, Values: values}
	return true
}

func (it *rowIterator) Row() database.Row {
	return it.current
}

func (it *rowIterator) Err() error {
	return it.err
}

func (it *rowIterator) Close() {
	if !it.done {
		it.finish()
	}
}

func (it *rowIterator) finish() {
	it.done = true
	if err := it.rows.Err(); err != nil && it.err == nil {
		it.err = err
	}
	_ = it.rows.Close()
	if it.release != nil {
		it.release()
		it.release = nil
	}
}

// formatValue renders a scanned SQLite value. Blobs and anything the driver
// hands back without a text form become <type-name> placeholders.
func formatValue(typeName string, v any) database.Value {
	switch v := v.(type) {
	case nil:
		return database.Null()
	case string:
		return database.Text(v)
	case int64:
		return database.Text(strconv.FormatInt(v, 10))
	case float64:
		return database.Text(strconv.FormatFloat(v, 'g', -1, 64))
	case bool:
		return database.Text(strconv.FormatBool(v))
	case time.Time:
		return database.Text(v.Format(time.RFC3339Nano))
	default:
		// []byte and driver-specific types
		return database.Unrepresented(blobTypeName(typeName))
	}
}

func blobTypeName(typeName string) string {
	if typeName == "" {
		return "BLOB"
	}
	return typeName
}
