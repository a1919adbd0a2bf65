package postgres

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// fakeRows is an in-memory pgx.Rows. Scan reads from values; RawValues reads
// from raws.
type fakeRows struct {
	fields []pgconn.FieldDescription
	values [][]any
	raws   [][][]byte
	err    error
	errAt  int

	pos    int
	closed bool
}

func (r *fakeRows) Close() { r.closed = true }

func (r *fakeRows) Err() error {
	if r.err != nil && r.pos > r.errAt {
		return r.err
	}
	return nil
}

func (r *fakeRows) CommandTag() pgconn.CommandTag { return pgconn.NewCommandTag("SELECT") }

func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return r.fields }

func (r *fakeRows) Next() bool {
	if r.closed {
		return false
	}
	if r.err != nil && r.pos >= r.errAt {
		r.pos++
		return false
	}
	n := len(r.values)
	if len(r.raws) > n {
		n = len(r.raws)
	}
	if r.pos >= n {
		return false
	}
	r.pos++
	return true
}

func (r *fakeRows) Scan(dest ...any) error {
	row := r.values[r.pos-1]
	if len(dest) != len(row) {
		return fmt.Errorf("scan: want %d destinations, got %d", len(row), len(dest))
	}
	for i, d := range dest {
		switch d := d.(type) {
		case *string:
			*d = row[i].(string)
		case *int64:
			*d = row[i].(int64)
		default:
			return fmt.Errorf("scan: unsupported destination %T", d)
		}
	}
	return nil
}

func (r *fakeRows) Values() ([]any, error) { return r.values[r.pos-1], nil }

func (r *fakeRows) RawValues() [][]byte { return r.raws[r.pos-1] }

func (r *fakeRows) Conn() *pgx.Conn { return nil }

// fakeConn answers every query with the next queued result.
type fakeConn struct {
	mu      sync.Mutex
	results []fakeResult
	queries []string
	args    [][]any
}

type fakeResult struct {
	rows *fakeRows
	err  error
}

func (c *fakeConn) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.queries = append(c.queries, sql)
	c.args = append(c.args, args)
	if len(c.results) == 0 {
		return nil, errors.New("fakeConn: unexpected query")
	}
	res := c.results[0]
	c.results = c.results[1:]
	if res.err != nil {
		return nil, res.err
	}
	return res.rows, nil
}

// fakeAcquirer counts outstanding connections.
type fakeAcquirer struct {
	mu       sync.Mutex
	conn     *fakeConn
	err      error
	acquired int
	released int
}

func (a *fakeAcquirer) acquire(context.Context) (querier, func(), error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.err != nil {
		return nil, nil, a.err
	}
	a.acquired++
	return a.conn, func() {
		a.mu.Lock()
		a.released++
		a.mu.Unlock()
	}, nil
}

func (a *fakeAcquirer) outstanding() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.acquired - a.released
}

func newTestDriver(results ...fakeResult) (*Driver, *fakeAcquirer) {
	acq := &fakeAcquirer{conn: &fakeConn{results: results}}
	d := New(Options{})
	d.conns = acq
	return d, acq
}
