//go:build !sqlite_column_metadata

package sqlite

import "github.com/mattn/go-sqlite3"

// Without SQLITE_ENABLE_COLUMN_METADATA the source table is unknown and
// callers fall back to matching columns by name.
func columnTableName(*sqlite3.SQLiteStmt, int) string {
	return ""
}
