package database

import (
	"context"
	"errors"
	"fmt"
)

// ErrUnavailable marks failures to obtain a working connection, as opposed
// to a statement the database rejected.
var ErrUnavailable = errors.New("database unavailable")

// Unavailable tags err as a connectivity failure.
func Unavailable(err error) error {
	if err == nil || errors.Is(err, ErrUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrUnavailable, err)
}

// Driver defines the interface for catalog introspection.
// All implementations must be safe for concurrent use once connected.
type Driver interface {
	// Connect establishes a connection pool to the database.
	Connect(ctx context.Context, dsn string) error

	// Close closes the connection pool.
	Close() error

	// Ping checks if the connection is alive.
	Ping(ctx context.Context) error

	// ListSchemas returns all user schemas, sorted by name.
	ListSchemas(ctx context.Context) ([]string, error)

	// ListTables returns the base tables of a schema, sorted by name.
	ListTables(ctx context.Context, schema string) ([]string, error)

	// TableRowCounts returns approximate row counts keyed by table name.
	// Tables without statistics may be missing from the map.
	TableRowCounts(ctx context.Context, schema string) (map[string]int64, error)

	// StreamRows starts a full scan of schema.table.
	StreamRows(ctx context.Context, schema, table string) (RowIterator, error)

	// DatabaseName returns the name of the connected database.
	DatabaseName() string
}
