package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joacominatel/minaweb/internal/database"
)

// Options tune the connection pool. Zero values fall back to defaults.
type Options struct {
	MaxConns       int32
	MinConns       int32
	AcquireTimeout time.Duration
}

const (
	defaultMaxConns       = 5
	defaultMinConns       = 1
	defaultAcquireTimeout = 5 * time.Second
)

// querier is satisfied by *pgxpool.Conn.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// acquirer hands out a pooled connection and the func that returns it.
type acquirer interface {
	acquire(ctx context.Context) (querier, func(), error)
}

type poolAcquirer struct {
	pool *pgxpool.Pool
}

func (a poolAcquirer) acquire(ctx context.Context) (querier, func(), error) {
	conn, err := a.pool.Acquire(ctx)
	if err != nil {
		return nil, nil, err
	}
	return conn, conn.Release, nil
}

// Driver implements the database.Driver interface for PostgreSQL.
type Driver struct {
	opts   Options
	pool   *pgxpool.Pool
	conns  acquirer
	dbName string
}

// New creates a new PostgreSQL driver.
func New(opts Options) *Driver {
	if opts.MaxConns <= 0 {
		opts.MaxConns = defaultMaxConns
	}
	if opts.MinConns < 0 || opts.MinConns > opts.MaxConns {
		opts.MinConns = defaultMinConns
	}
	if opts.AcquireTimeout <= 0 {
		opts.AcquireTimeout = defaultAcquireTimeout
	}
	return &Driver{opts: opts}
}

// Connect establishes a connection pool to PostgreSQL.
func (d *Driver) Connect(ctx context.Context, dsn string) error {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return fmt.Errorf("parse dsn: %w", err)
	}

	cfg.MaxConns = d.opts.MaxConns
	cfg.MinConns = d.opts.MinConns

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return database.Unavailable(fmt.Errorf("connect: %w", err))
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return database.Unavailable(fmt.Errorf("ping: %w", err))
	}

	d.pool = pool
	d.conns = poolAcquirer{pool: pool}
	d.dbName = cfg.ConnConfig.Database
	return nil
}

// Close closes the connection pool.
func (d *Driver) Close() error {
	if d.pool != nil {
		d.pool.Close()
	}
	return nil
}

// Ping checks if the connection is alive.
func (d *Driver) Ping(ctx context.Context) error {
	if d.pool == nil {
		return database.Unavailable(errors.New("not connected"))
	}
	if err := d.pool.Ping(ctx); err != nil {
		return database.Unavailable(err)
	}
	return nil
}

// query acquires a connection, bounded by the acquire timeout, and runs sql
// on it. The returned release func must be called once rows are closed.
func (d *Driver) query(ctx context.Context, sql string, args ...any) (pgx.Rows, func(), error) {
	if d.conns == nil {
		return nil, nil, database.Unavailable(errors.New("not connected"))
	}

	acquireCtx, cancel := context.WithTimeout(ctx, d.opts.AcquireTimeout)
	conn, release, err := d.conns.acquire(acquireCtx)
	cancel()
	if err != nil {
		return nil, nil, database.Unavailable(fmt.Errorf("acquire connection: %w", err))
	}

	rows, err := conn.Query(ctx, sql, args...)
	if err != nil {
		release()
		return nil, nil, classify(err)
	}
	return rows, release, nil
}

// classify tags errors caused by a broken connection so callers can tell
// them apart from rejected statements.
func classify(err error) error {
	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) || pgconn.SafeToRetry(err) {
		return database.Unavailable(err)
	}
	return err
}

// listNames runs a single-column text query and collects the results.
func (d *Driver) listNames(ctx context.Context, what, sql string, args ...any) ([]string, error) {
	rows, release, err := d.query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", what, err)
	}
	defer release()
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan %s: %w", what, err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list %s: %w", what, classify(err))
	}
	return names, nil
}

// ListSchemas returns all user-created schemas.
func (d *Driver) ListSchemas(ctx context.Context) ([]string, error) {
	return d.listNames(ctx, "schemas", queryListSchemas)
}

// ListTables returns all base table names in a schema.
func (d *Driver) ListTables(ctx context.Context, schema string) ([]string, error) {
	return d.listNames(ctx, "tables", queryListTables, schema)
}

// TableRowCounts returns approximate row counts using pg_class statistics.
func (d *Driver) TableRowCounts(ctx context.Context, schema string) (map[string]int64, error) {
	rows, release, err := d.query(ctx, queryTableRowCounts, schema)
	if err != nil {
		return nil, fmt.Errorf("row counts: %w", err)
	}
	defer release()
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var (
			name  string
			count int64
		)
		if err := rows.Scan(&name, &count); err != nil {
			return nil, fmt.Errorf("scan row count: %w", err)
		}
		// reltuples is -1 for tables that were never analyzed
		if count < 0 {
			continue
		}
		counts[name] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row counts: %w", classify(err))
	}
	return counts, nil
}

// textResults asks the server to send every column in its text form.
var textResults = pgx.QueryResultFormats{pgx.TextFormatCode}

// StreamRows starts an unfiltered scan of schema.table.
func (d *Driver) StreamRows(ctx context.Context, schema, table string) (database.RowIterator, error) {
	sql := "SELECT * FROM " + pgx.Identifier{schema, table}.Sanitize()

	rows, release, err := d.query(ctx, sql, textResults)
	if err != nil {
		return nil, fmt.Errorf("scan %s.%s: %w", schema, table, err)
	}
	return newRowIterator(rows, release), nil
}

// DatabaseName returns the name of the connected database.
func (d *Driver) DatabaseName() string {
	return d.dbName
}
