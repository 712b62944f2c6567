package notetaker

import _ "embed"

//go:embed schema/postgres.sql
var PostgresSchema []byte

//go:embed schema/sqlite.sql
var SQLiteSchema []byte
