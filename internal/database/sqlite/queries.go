package sqlite

const (
	queryListSchemas = `
		SELECT name
		FROM pragma_database_list
		WHERE name <> 'temp'
		ORDER BY name`

	queryListTables = `
		SELECT name
		FROM pragma_table_list
		WHERE schema = ?
		  AND type = 'table'
		  AND name NOT LIKE 'sqlite\_%' ESCAPE '\'
		ORDER BY name`
)
