package app

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strconv"
	"time"

	"github.com/joacominatel/minaweb/internal/database"
)

// SchemaTree represents the loaded schema hierarchy for the explorer.
type SchemaTree struct {
	Database string
	Schemas  []SchemaNode
}

// SchemaNode holds a schema name and its tables.
type SchemaNode struct {
	Name   string
	Tables []string
}

// Options configure a Service.
type Options struct {
	// QueryTimeout bounds every catalog operation and scan. Zero disables it.
	QueryTimeout time.Duration
	Logger       *slog.Logger
}

// Service is the catalog API shared by the HTTP router, the dump command and
// the terminal browser. It validates identifiers against the catalog and
// converts driver failures into ErrConnection or ErrQuery.
// A connected Service is safe for concurrent use.
type Service struct {
	driver  database.Driver
	timeout time.Duration
	logger  *slog.Logger
}

// NewService creates a new application service.
func NewService(driver database.Driver, opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{
		driver:  driver,
		timeout: opts.QueryTimeout,
		logger:  logger,
	}
}

// Connect establishes a database connection.
func (s *Service) Connect(ctx context.Context, dsn string) error {
	if err := s.driver.Connect(ctx, dsn); err != nil {
		return &ErrConnection{Cause: err}
	}
	s.logger.Debug("connected", slog.String("database", s.driver.DatabaseName()))
	return nil
}

// Disconnect closes the database connection.
func (s *Service) Disconnect() error {
	return s.driver.Close()
}

// Ping checks that the database is reachable.
func (s *Service) Ping(ctx context.Context) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := s.driver.Ping(ctx); err != nil {
		return &ErrConnection{Cause: err}
	}
	return nil
}

// DatabaseName returns the current database name.
func (s *Service) DatabaseName() string {
	return s.driver.DatabaseName()
}

// ListSchemas returns the user schemas of the database.
func (s *Service) ListSchemas(ctx context.Context) ([]string, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	schemas, err := s.driver.ListSchemas(ctx)
	if err != nil {
		return nil, wrap("list schemas", err)
	}
	return schemas, nil
}

// ListTables returns the base tables of a schema that exists in the catalog.
func (s *Service) ListTables(ctx context.Context, schema string) ([]string, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := s.requireSchema(ctx, schema); err != nil {
		return nil, err
	}
	tables, err := s.driver.ListTables(ctx, schema)
	if err != nil {
		return nil, wrap("list tables", err)
	}
	return tables, nil
}

// TableSummaries lists the tables of a schema with approximate row counts.
func (s *Service) TableSummaries(ctx context.Context, schema string) ([]database.TableSummary, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := s.requireSchema(ctx, schema); err != nil {
		return nil, err
	}
	tables, err := s.driver.ListTables(ctx, schema)
	if err != nil {
		return nil, wrap("list tables", err)
	}
	counts, err := s.driver.TableRowCounts(ctx, schema)
	if err != nil {
		return nil, wrap("row counts", err)
	}

	summaries := make([]database.TableSummary, len(tables))
	for i, name := range tables {
		n, ok := counts[name]
		if !ok {
			n = -1
		}
		summaries[i] = database.TableSummary{Name: name, ApproxRows: n}
	}
	return summaries, nil
}

// StreamRows validates schema and table against the catalog and starts a
// full scan. The caller must Close the iterator.
func (s *Service) StreamRows(ctx context.Context, schema, table string) (database.RowIterator, error) {
	ctx, cancel := s.withTimeout(ctx)

	if err := s.requireTable(ctx, schema, table); err != nil {
		cancel()
		return nil, err
	}

	op := "scan " + schema + "." + table
	it, err := s.driver.StreamRows(ctx, schema, table)
	if err != nil {
		cancel()
		return nil, wrap(op, err)
	}
	return &scan{RowIterator: it, op: op, cancel: cancel}, nil
}

// LoadRows collects a full scan into memory.
func (s *Service) LoadRows(ctx context.Context, schema, table string) (*database.RowSet, error) {
	it, err := s.StreamRows(ctx, schema, table)
	if err != nil {
		return nil, err
	}
	set, err := database.Collect(it)
	if err != nil {
		return nil, err
	}
	set.Schema = schema
	set.Table = table
	return set, nil
}

// LoadSchemaTree fetches schemas and their tables for the connected database.
func (s *Service) LoadSchemaTree(ctx context.Context) (*SchemaTree, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	schemas, err := s.driver.ListSchemas(ctx)
	if err != nil {
		return nil, wrap("list schemas", err)
	}

	tree := &SchemaTree{
		Database: s.driver.DatabaseName(),
	}

	for _, schema := range schemas {
		tables, err := s.driver.ListTables(ctx, schema)
		if err != nil {
			return nil, wrap("list tables", err)
		}
		tree.Schemas = append(tree.Schemas, SchemaNode{
			Name:   schema,
			Tables: tables,
		})
	}

	return tree, nil
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

// requireSchema checks schema against the catalog's own listing.
func (s *Service) requireSchema(ctx context.Context, schema string) error {
	schemas, err := s.driver.ListSchemas(ctx)
	if err != nil {
		return wrap("list schemas", err)
	}
	if !slices.Contains(schemas, schema) {
		s.logger.Debug("unknown schema", slog.String("schema", schema))
		return &ErrQuery{Op: "schema " + strconv.Quote(schema), Cause: ErrUnknownRelation}
	}
	return nil
}

// requireTable checks both names against the catalog before they are used
// as identifiers.
func (s *Service) requireTable(ctx context.Context, schema, table string) error {
	if err := s.requireSchema(ctx, schema); err != nil {
		return err
	}
	tables, err := s.driver.ListTables(ctx, schema)
	if err != nil {
		return wrap("list tables", err)
	}
	if !slices.Contains(tables, table) {
		s.logger.Debug("unknown table", slog.String("schema", schema), slog.String("table", table))
		return &ErrQuery{Op: "table " + strconv.Quote(schema+"."+table), Cause: ErrUnknownRelation}
	}
	return nil
}

// wrap classifies a driver error.
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var (
		connErr  *ErrConnection
		queryErr *ErrQuery
	)
	if errors.As(err, &connErr) || errors.As(err, &queryErr) {
		return err
	}
	if errors.Is(err, database.ErrUnavailable) {
		return &ErrConnection{Cause: err}
	}
	return &ErrQuery{Op: op, Cause: err}
}

// scan ties a driver iterator to the operation's timeout and classifies its
// iteration error.
type scan struct {
	database.RowIterator
	op     string
	cancel context.CancelFunc
}

func (s *scan) Err() error {
	return wrap(s.op, s.RowIterator.Err())
}

func (s *scan) Close() {
	s.RowIterator.Close()
	s.cancel()
}
