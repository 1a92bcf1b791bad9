// Package sqlstore implements task.TaskStore on top of database/sql, for
// PostgreSQL (pgx) and SQLite (modernc.org/sqlite). The schema is embedded
// and applied with goose when the store is opened.
package sqlstore
