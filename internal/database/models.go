package database

import "time"

// NullText is how a SQL NULL is rendered.
const NullText = "NULL"

// Kind tags the three shapes a rendered cell can take.
type Kind uint8

const (
	KindNull Kind = iota
	KindText
	KindUnrepresented
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindText:
		return "text"
	case KindUnrepresented:
		return "unrepresented"
	default:
		return "unknown"
	}
}

// Value is a single rendered cell.
// TypeName is only meaningful for KindUnrepresented.
type Value struct {
	Kind     Kind
	Text     string
	TypeName string
}

// Null returns a NULL cell.
func Null() Value {
	return Value{Kind: KindNull}
}

// Text returns a cell holding the driver's text form of a value.
func Text(s string) Value {
	return Value{Kind: KindText, Text: s}
}

// Unrepresented returns a placeholder cell for a value of the named type
// that has no text form.
func Unrepresented(typeName string) Value {
	return Value{Kind: KindUnrepresented, TypeName: typeName}
}

// String renders the value: NULL, the text itself, or <type-name>.
func (v Value) String() string {
	switch v.Kind {
	case KindNull:
		return NullText
	case KindUnrepresented:
		return "<" + v.TypeName + ">"
	default:
		return v.Text
	}
}

// Row is one record of a table scan. Columns is shared by every row of the
// same scan and must not be modified.
type Row struct {
	Columns []string
	Values  []Value
}

// Get returns the value of the named column.
func (r Row) Get(column string) (Value, bool) {
	for i, c := range r.Columns {
		if c == column && i < len(r.Values) {
			return r.Values[i], true
		}
	}
	return Value{}, false
}

// Strings renders every value in column order.
func (r Row) Strings() []string {
	out := make([]string, len(r.Values))
	for i, v := range r.Values {
		out[i] = v.String()
	}
	return out
}

// RowIterator streams the rows of a single scan. It is forward-only and not
// restartable. Close must be called when the caller stops early; it is safe
// to call more than once.
type RowIterator interface {
	// Columns returns the column names of the result set, captured once.
	Columns() []string

	// Next advances to the next row. It returns false at the end of the
	// result set or on error; check Err afterwards.
	Next() bool

	// Row returns the current row.
	Row() Row

	// Err returns the error, if any, that stopped iteration.
	Err() error

	// Close abandons the scan and releases its connection.
	Close()
}

// RowSet holds a fully collected scan for callers that need random access.
type RowSet struct {
	Schema   string
	Table    string
	Columns  []string
	Rows     []Row
	Duration time.Duration
}

// Collect drains it into a RowSet and closes it.
func Collect(it RowIterator) (*RowSet, error) {
	defer it.Close()

	start := time.Now()
	set := &RowSet{Columns: it.Columns()}
	for it.Next() {
		set.Rows = append(set.Rows, it.Row())
	}
	if err := it.Err(); err != nil {
		return nil, err
	}
	set.Duration = time.Since(start)
	return set, nil
}

// TableSummary describes one table of a schema listing.
type TableSummary struct {
	Name string
	// ApproxRows is the catalog's row estimate, or -1 when unknown.
	ApproxRows int64
}
