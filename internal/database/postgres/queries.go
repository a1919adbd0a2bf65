package postgres

// SQL queries for PostgreSQL metadata introspection.
const (
	queryListSchemas = `
		SELECT nspname::text
		FROM pg_namespace
		WHERE nspname NOT LIKE 'pg\_%'
		  AND nspname <> 'information_schema'
		ORDER BY nspname`

	queryListTables = `
		SELECT table_name::text
		FROM information_schema.tables
		WHERE table_schema = $1
		  AND table_type = 'BASE TABLE'
		ORDER BY table_name`

	queryTableRowCounts = `
		SELECT c.relname::text, c.reltuples::bigint
		FROM pg_class c
		JOIN pg_namespace n ON n.oid = c.relnamespace
		WHERE n.nspname = $1
		  AND c.relkind IN ('r', 'p')`
)
