package app

import (
	"time"

	"github.com/joacominatel/minaweb/internal/database"
	"github.com/joacominatel/minaweb/internal/database/postgres"
	"github.com/joacominatel/minaweb/internal/database/sqlite"
)

// PoolOptions size the connection pool. They are fixed at startup.
type PoolOptions struct {
	MaxConns       int32
	MinConns       int32
	AcquireTimeout time.Duration
}

// NewDriver picks the catalog backend for a connection string:
// sqlite: and file: URLs open SQLite files, anything else goes to PostgreSQL.
func NewDriver(dsn string, opts PoolOptions) database.Driver {
	if sqlite.IsDSN(dsn) {
		return sqlite.New(sqlite.Options{
			MaxConns:       int(opts.MaxConns),
			AcquireTimeout: opts.AcquireTimeout,
		})
	}
	return postgres.New(postgres.Options{
		MaxConns:       opts.MaxConns,
		MinConns:       opts.MinConns,
		AcquireTimeout: opts.AcquireTimeout,
	})
}
