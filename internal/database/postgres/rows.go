package postgres

import (
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/joacominatel/minaweb/internal/database"
)

// rowIterator adapts pgx.Rows to database.RowIterator. Column names and type
// names are captured once; every row shares the same Columns slice. The type
// map belongs to this scan alone since pgtype.Map is not safe for concurrent
// use.
type rowIterator struct {
	rows    pgx.Rows
	release func()
	typeMap *pgtype.Map

	fields  []pgconn.FieldDescription
	columns []string
	types   []string

	current database.Row
	err     error
	done    bool
}

func newRowIterator(rows pgx.Rows, release func()) *rowIterator {
	it := &rowIterator{
		rows:    rows,
		release: release,
		typeMap: pgtype.NewMap(),
	}
	it.capture()
	return it
}

func (it *rowIterator) capture() {
	fields := it.rows.FieldDescriptions()
	if len(fields) == 0 {
		return
	}
	it.fields = fields
	it.columns = make([]string, len(fields))
	it.types = make([]string, len(fields))
	for i, f := range fields {
		it.columns[i] = f.Name
		it.types[i] = typeName(it.typeMap, f.DataTypeOID)
	}
}

// Columns returns the column names of the scan.
func (it *rowIterator) Columns() []string {
	return it.columns
}

// Next advances to the next row.
func (it *rowIterator) Next() bool {
	if it.done {
		return false
	}
	if !it.rows.Next() {
		it.finish()
		return false
	}
	if it.columns == nil {
		it.capture()
	}

	raws := it.rows.RawValues()
	values := make([]database.Value, len(it.fields))
	for i, f := range it.fields {
		var raw []byte
		if i < len(raws) {
			raw = raws[i]
		}
		values[i] = decodeValue(f, it.types[i], raw)
	}
	it.current = database.Row{Columns: it.columns, Values: values}
	return true
}

// Row returns the current row.
func (it *rowIterator) Row() database.Row {
	return it.current
}

// Err returns the error that stopped iteration, if any.
func (it *rowIterator) Err() error {
	return it.err
}

// Close abandons the scan and returns the connection to the pool.
func (it *rowIterator) Close() {
	if !it.done {
		it.finish()
	}
}

func (it *rowIterator) finish() {
	it.done = true
	it.rows.Close()
	if err := it.rows.Err(); err != nil {
		it.err = classify(err)
	}
	if it.release != nil {
		it.release()
		it.release = nil
	}
}

// decodeValue renders one raw column value. Scans request text results, so
// the server's own text form is passed through untouched. It never fails:
// bytea and anything not sent as text become a <type-name> placeholder.
func decodeValue(f pgconn.FieldDescription, typeName string, raw []byte) database.Value {
	if raw == nil {
		return database.Null()
	}
	if f.DataTypeOID == pgtype.ByteaOID || f.Format != pgtype.TextFormatCode {
		return database.Unrepresented(typeName)
	}
	return database.Text(string(raw))
}

func typeName(m *pgtype.Map, oid uint32) string {
	if t, ok := m.TypeForOID(oid); ok {
		return t.Name
	}
	return fmt.Sprintf("oid:%d", oid)
}
