// Package sqlite implements catalog introspection for SQLite files. Attached
// databases play the role of schemas.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/joacominatel/minaweb/internal/database"

	_ "modernc.org/sqlite"
)

// Options tune the connection pool. Zero values fall back to defaults.
type Options struct {
	MaxConns       int
	AcquireTimeout time.Duration
}

const (
	defaultMaxConns       = 5
	defaultAcquireTimeout = 5 * time.Second
)

// Driver implements the database.Driver interface for SQLite.
type Driver struct {
	opts   Options
	db     *sql.DB
	dbName string
}

// New creates a new SQLite driver.
func New(opts Options) *Driver {
	if opts.MaxConns <= 0 {
		opts.MaxConns = defaultMaxConns
	}
	if opts.AcquireTimeout <= 0 {
		opts.AcquireTimeout = defaultAcquireTimeout
	}
	return &Driver{opts: opts}
}

// IsDSN reports whether dsn addresses a SQLite database.
func IsDSN(dsn string) bool {
	return strings.HasPrefix(dsn, "sqlite:") || strings.HasPrefix(dsn, "file:")
}

// DataSource converts a sqlite:// or file: URL into a read-only data source
// for the modernc driver.
func DataSource(dsn string) string {
	var path string
	switch {
	case strings.HasPrefix(dsn, "sqlite://"):
		path = strings.TrimPrefix(dsn, "sqlite://")
	case strings.HasPrefix(dsn, "sqlite:"):
		path = strings.TrimPrefix(dsn, "sqlite:")
	case strings.HasPrefix(dsn, "file:"):
		path = strings.TrimPrefix(dsn, "file:")
	default:
		path = dsn
	}

	if strings.Contains(path, "mode=") {
		return "file:" + path
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return "file:" + path + sep + "mode=ro"
}

// Connect opens the database file read-only.
func (d *Driver) Connect(ctx context.Context, dsn string) error {
	src := DataSource(dsn)

	db, err := sql.Open("sqlite", src)
	if err != nil {
		return fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(d.opts.MaxConns)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return database.Unavailable(fmt.Errorf("ping: %w", err))
	}

	d.db = db
	d.dbName = databaseName(src)
	return nil
}

func databaseName(src string) string {
	path := strings.TrimPrefix(src, "file:")
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}

// Close closes the connection pool.
func (d *Driver) Close() error {
	if d.db != nil {
		return d.db.Close()
	}
	return nil
}

// Ping checks if the database is reachable.
func (d *Driver) Ping(ctx context.Context) error {
	if d.db == nil {
		return database.Unavailable(errors.New("not connected"))
	}
	if err := d.db.PingContext(ctx); err != nil {
		return database.Unavailable(err)
	}
	return nil
}

// query takes a dedicated connection, bounded by the acquire timeout, and
// runs query on it. release must be called after rows are closed.
func (d *Driver) query(ctx context.Context, query string, args ...any) (*sql.Rows, func(), error) {
	if d.db == nil {
		return nil, nil, database.Unavailable(errors.New("not connected"))
	}

	acquireCtx, cancel := context.WithTimeout(ctx, d.opts.AcquireTimeout)
	conn, err := d.db.Conn(acquireCtx)
	cancel()
	if err != nil {
		return nil, nil, database.Unavailable(fmt.Errorf("acquire connection: %w", err))
	}
	release := func() { _ = conn.Close() }

	rows, err := conn.QueryContext(ctx, query, args...)
	if err != nil {
		release()
		return nil, nil, err
	}
	return rows, release, nil
}

func (d *Driver) listNames(ctx context.Context, what, query string, args ...any) ([]string, error) {
	rows, release, err := d.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", what, err)
	}
	defer release()
	defer func() { _ = rows.Close() }()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan %s: %w", what, err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list %s: %w", what, err)
	}
	return names, nil
}

// ListSchemas returns the attached databases, excluding the temp database.
func (d *Driver) ListSchemas(ctx context.Context) ([]string, error) {
	return d.listNames(ctx, "schemas", queryListSchemas)
}

// ListTables returns the ordinary tables of an attached database.
func (d *Driver) ListTables(ctx context.Context, schema string) ([]string, error) {
	return d.listNames(ctx, "tables", queryListTables, schema)
}

// TableRowCounts counts the rows of every table in schema. SQLite keeps no
// cheap estimate, so this is exact and costs one scan per table.
func (d *Driver) TableRowCounts(ctx context.Context, schema string) (map[string]int64, error) {
	tables, err := d.ListTables(ctx, schema)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(tables))
	for _, table := range tables {
		rows, release, err := d.query(ctx, "SELECT COUNT(*) FROM "+quote(schema, table))
		if err != nil {
			return nil, fmt.Errorf("row count %s: %w", table, err)
		}
		var n int64
		if rows.Next() {
			err = rows.Scan(&n)
		}
		if err == nil {
			err = rows.Err()
		}
		_ = rows.Close()
		release()
		if err != nil {
			return nil, fmt.Errorf("row count %s: %w", table, err)
		}
		counts[table] = n
	}
	return counts, nil
}

// StreamRows starts an unfiltered scan of schema.table.
func (d *Driver) StreamRows(ctx context.Context, schema, table string) (database.RowIterator, error) {
	from := " FROM " + quote(schema, table)
	rows, release, err := d.query(ctx, "SELECT *"+from)
	if err != nil {
		return nil, fmt.Errorf("scan %s.%s: %w", schema, table, err)
	}

	cts, err := rows.ColumnTypes()
	if err != nil {
		_ = rows.Close()
		release()
		return nil, fmt.Errorf("scan %s.%s: %w", schema, table, err)
	}

	// The modernc driver parses DATE, DATETIME and TIMESTAMP columns into
	// time.Time. Selecting +"col" drops the declared type so the value comes
	// back as stored.
	if list, ok := storedSelectList(cts); ok {
		_ = rows.Close()
		release()
		rows, release, err = d.query(ctx, "SELECT "+list+from)
		if err != nil {
			return nil, fmt.Errorf("scan %s.%s: %w", schema, table, err)
		}
	}

	it, err := newRowIterator(rows, release, declaredTypes(cts))
	if err != nil {
		return nil, fmt.Errorf("scan %s.%s: %w", schema, table, err)
	}
	return it, nil
}

func isTimeType(typeName string) bool {
	switch strings.ToUpper(typeName) {
	case "DATE", "DATETIME", "TIMESTAMP":
		return true
	}
	return false
}

// storedSelectList builds a select list that wraps time-typed columns in a
// unary plus, a no-op on the value. ok is false when no column needs it.
func storedSelectList(cts []*sql.ColumnType) (string, bool) {
	var (
		parts = make([]string, len(cts))
		found bool
	)
	for i, ct := range cts {
		name := quote(ct.Name())
		if isTimeType(ct.DatabaseTypeName()) {
			parts[i] = "+" + name + " AS " + name
			found = true
			continue
		}
		parts[i] = name
	}
	return strings.Join(parts, ", "), found
}

func declaredTypes(cts []*sql.ColumnType) []string {
	types := make([]string, len(cts))
	for i, ct := range cts {
		types[i] = ct.DatabaseTypeName()
	}
	return types
}

// DatabaseName returns the file name of the main database.
func (d *Driver) DatabaseName() string {
	return d.dbName
}

// quote applies SQL identifier quoting, which SQLite shares with PostgreSQL.
func quote(parts ...string) string {
	return pgx.Identifier(parts).Sanitize()
}
