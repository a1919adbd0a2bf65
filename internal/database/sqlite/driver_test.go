package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/joacominatel/minaweb/internal/database"
)

// newTestDB creates a small SQLite file and returns its path.
func newTestDB(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "games.db")
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	_, err = db.Exec(`
		CREATE TABLE "Game" (id INTEGER PRIMARY KEY, name TEXT, cover BLOB);
		INSERT INTO "Game" (id, name, cover) VALUES (1, NULL, NULL);
		INSERT INTO "Game" (id, name, cover) VALUES (2, 'O''Brien & Co <x>', x'DEAD');
		CREATE TABLE empty (x TEXT);
		CREATE VIEW game_names AS SELECT name FROM "Game";
	`)
	require.NoError(t, err)
	return path
}

func connect(t *testing.T, path string) *Driver {
	t.Helper()

	d := New(Options{})
	require.NoError(t, d.Connect(context.Background(), "sqlite://"+path))
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func TestDataSource(t *testing.T) {
	tests := []struct {
		dsn  string
		want string
	}{
		{"sqlite:///var/lib/app.db", "file:/var/lib/app.db?mode=ro"},
		{"sqlite://app.db", "file:app.db?mode=ro"},
		{"sqlite:app.db", "file:app.db?mode=ro"},
		{"file:app.db?cache=shared", "file:app.db?cache=shared&mode=ro"},
		{"file:app.db?mode=rw", "file:app.db?mode=rw"},
	}

	for _, tt := range tests {
		t.Run(tt.dsn, func(t *testing.T) {
			assert.Equal(t, tt.want, DataSource(tt.dsn))
		})
	}
}

func TestIsDSN(t *testing.T) {
	assert.True(t, IsDSN("sqlite:///tmp/x.db"))
	assert.True(t, IsDSN("file:x.db"))
	assert.False(t, IsDSN("postgresql://localhost/db"))
	assert.False(t, IsDSN("postgres://localhost/db"))
}

func TestDriver_Catalog(t *testing.T) {
	d := connect(t, newTestDB(t))
	ctx := context.Background()

	assert.Equal(t, "games", d.DatabaseName())
	require.NoError(t, d.Ping(ctx))

	schemas, err := d.ListSchemas(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"main"}, schemas)

	tables, err := d.ListTables(ctx, "main")
	require.NoError(t, err)
	assert.Equal(t, []string{"Game", "empty"}, tables, "views and internal tables are excluded")

	again, err := d.ListTables(ctx, "main")
	require.NoError(t, err)
	assert.Equal(t, tables, again)

	none, err := d.ListTables(ctx, "nope")
	require.NoError(t, err)
	assert.Empty(t, none)

	counts, err := d.TableRowCounts(ctx, "main")
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"Game": 2, "empty": 0}, counts)
}

func TestDriver_StreamRows(t *testing.T) {
	d := connect(t, newTestDB(t))

	it, err := d.StreamRows(context.Background(), "main", "Game")
	require.NoError(t, err)
	defer it.Close()

	assert.Equal(t, []string{"id", "name", "cover"}, it.Columns())

	var got [][]string
	for it.Next() {
		row := it.Row()
		assert.Equal(t, it.Columns(), row.Columns)
		got = append(got, row.Strings())
	}
	require.NoError(t, it.Err())

	assert.Equal(t, [][]string{
		{"1", "NULL", "NULL"},
		{"2", "O'Brien & Co <x>", "<BLOB>"},
	}, got)
}

func TestDriver_StreamRows_Empty(t *testing.T) {
	d := connect(t, newTestDB(t))

	it, err := d.StreamRows(context.Background(), "main", "empty")
	require.NoError(t, err)
	defer it.Close()

	assert.Equal(t, []string{"x"}, it.Columns())
	assert.False(t, it.Next())
	assert.NoError(t, it.Err())
}

func TestDriver_StreamRows_MissingTable(t *testing.T) {
	d := connect(t, newTestDB(t))

	_, err := d.StreamRows(context.Background(), "main", "Gone")
	require.Error(t, err)
	assert.NotErrorIs(t, err, database.ErrUnavailable)
}

func TestDriver_StreamRows_EarlyCloseFreesConnection(t *testing.T) {
	d := New(Options{MaxConns: 1})
	require.NoError(t, d.Connect(context.Background(), "sqlite://"+newTestDB(t)))
	defer func() { _ = d.Close() }()

	it, err := d.StreamRows(context.Background(), "main", "Game")
	require.NoError(t, err)
	require.True(t, it.Next())
	it.Close()

	// With a single connection, this only succeeds if Close released it.
	tables, err := d.ListTables(context.Background(), "main")
	require.NoError(t, err)
	assert.Len(t, tables, 2)
}

func TestDriver_Connect_MissingFile(t *testing.T) {
	d := New(Options{})
	err := d.Connect(context.Background(), "sqlite://"+filepath.Join(t.TempDir(), "missing.db"))
	require.Error(t, err)
	assert.ErrorIs(t, err, database.ErrUnavailable)
}

func TestDriver_QueryErrors(t *testing.T) {
	tests := []struct {
		name        string
		setupMock   func(mock sqlmock.Sqlmock)
		call        func(d *Driver) error
		unavailable bool
	}{
		{
			name: "schema listing rejected",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(queryListSchemas).WillReturnError(errors.New("no such table: pragma_database_list"))
			},
			call: func(d *Driver) error {
				_, err := d.ListSchemas(context.Background())
				return err
			},
		},
		{
			name: "scan rejected",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT * FROM "main"."Game"`).WillReturnError(errors.New("no such table: main.Game"))
			},
			call: func(d *Driver) error {
				_, err := d.StreamRows(context.Background(), "main", "Game")
				return err
			},
		},
		{
			name: "row error mid scan",
			setupMock: func(mock sqlmock.Sqlmock) {
				rows := mock.NewRowsWithColumnDefinition(
					sqlmock.NewColumn("id").OfType("INTEGER", int64(0)),
				).AddRow(int64(1)).AddRow(int64(2)).RowError(1, errors.New("disk I/O error"))
				mock.ExpectQuery(`SELECT * FROM "main"."Game"`).WillReturnRows(rows)
			},
			call: func(d *Driver) error {
				it, err := d.StreamRows(context.Background(), "main", "Game")
				if err != nil {
					return err
				}
				defer it.Close()
				for it.Next() {
				}
				return it.Err()
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
			require.NoError(t, err)
			defer func() { _ = db.Close() }()

			tt.setupMock(mock)

			d := New(Options{})
			d.db = db

			err = tt.call(d)
			require.Error(t, err)
			if tt.unavailable {
				assert.ErrorIs(t, err, database.ErrUnavailable)
			} else {
				assert.NotErrorIs(t, err, database.ErrUnavailable)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestDriver_ClosedPoolIsUnavailable(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	mock.ExpectClose()
	require.NoError(t, db.Close())

	d := New(Options{})
	d.db = db

	_, err = d.ListSchemas(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, database.ErrUnavailable)
}

func TestDriver_StreamRows_ColumnTypes(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	rows := mock.NewRowsWithColumnDefinition(
		sqlmock.NewColumn("id").OfType("INTEGER", int64(0)),
		sqlmock.NewColumn("score").OfType("REAL", float64(0)),
		sqlmock.NewColumn("thumb").OfType("", []byte(nil)),
	).AddRow(int64(7), 2.5, []byte{0x01})
	mock.ExpectQuery(`SELECT * FROM "main"."scores"`).WillReturnRows(rows)

	d := New(Options{})
	d.db = db

	it, err := d.StreamRows(context.Background(), "main", "scores")
	require.NoError(t, err)
	defer it.Close()

	require.True(t, it.Next())
	assert.Equal(t, []string{"7", "2.5", "<BLOB>"}, it.Row().Strings())
	assert.False(t, it.Next())
	assert.NoError(t, it.Err())
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		name     string
		typeName string
		value    any
		want     string
	}{
		{"nil", "TEXT", nil, "NULL"},
		{"string", "TEXT", "hi", "hi"},
		{"integer", "INTEGER", int64(-3), "-3"},
		{"real", "REAL", 0.1, "0.1"},
		{"bool", "BOOLEAN", true, "true"},
		{"blob with declared type", "BLOB", []byte{0}, "<BLOB>"},
		{"custom declared type", "GEOMETRY", []byte{0}, "<GEOMETRY>"},
		{"unknown go type", "JSONB", struct{}{}, "<JSONB>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, formatValue(tt.typeName, tt.value).String())
		})
	}
}

func TestDriver_StreamRows_TimeColumnsAsStored(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.db")
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	_, err = db.Exec(`
		CREATE TABLE events (id INTEGER, day DATE, at DATETIME, stamp TIMESTAMP);
		INSERT INTO events VALUES (1, '2024-01-02', '2024-01-02 10:11:12.5', 1704153600);
		INSERT INTO events VALUES (2, x'01', NULL, 'soon');
	`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	d := connect(t, path)
	it, err := d.StreamRows(context.Background(), "main", "events")
	require.NoError(t, err)
	defer it.Close()

	assert.Equal(t, []string{"id", "day", "at", "stamp"}, it.Columns())

	var got [][]string
	for it.Next() {
		got = append(got, it.Row().Strings())
	}
	require.NoError(t, it.Err())

	assert.Equal(t, [][]string{
		{"1", "2024-01-02", "2024-01-02 10:11:12.5", "1704153600"},
		{"2", "<DATE>", "NULL", "soon"},
	}, got)
}

func TestDriver_StreamRows_TimeColumnsRequery(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	declared := mock.NewRowsWithColumnDefinition(
		sqlmock.NewColumn("id").OfType("INTEGER", int64(0)),
		sqlmock.NewColumn("born").OfType("DATE", ""),
	)
	mock.ExpectQuery(`SELECT * FROM "main"."people"`).WillReturnRows(declared)

	stored := mock.NewRowsWithColumnDefinition(
		sqlmock.NewColumn("id").OfType("INTEGER", int64(0)),
		sqlmock.NewColumn("born").OfType("", ""),
	).AddRow(int64(1), "1815-12-10")
	mock.ExpectQuery(`SELECT "id", +"born" AS "born" FROM "main"."people"`).WillReturnRows(stored)

	d := New(Options{})
	d.db = db

	it, err := d.StreamRows(context.Background(), "main", "people")
	require.NoError(t, err)
	defer it.Close()

	require.True(t, it.Next())
	assert.Equal(t, []string{"1", "1815-12-10"}, it.Row().Strings())
	assert.False(t, it.Next())
	assert.NoError(t, it.Err())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDriver_StreamRows_Parallel(t *testing.T) {
	d := connect(t, newTestDB(t))

	want := [][]string{
		{"1", "NULL", "NULL"},
		{"2", "O'Brien & Co <x>", "<BLOB>"},
	}

	var g errgroup.Group
	for range 16 {
		g.Go(func() error {
			it, err := d.StreamRows(context.Background(), "main", "Game")
			if err != nil {
				return err
			}
			defer it.Close()

			var got [][]string
			for it.Next() {
				got = append(got, it.Row().Strings())
			}
			if err := it.Err(); err != nil {
				return err
			}
			if !assert.Equal(t, want, got) {
				return errors.New("unexpected rows")
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
}
