//go:build sqlite_column_metadata

package sqlite

import "github.com/mattn/go-sqlite3"

func columnTableName(st *sqlite3.SQLiteStmt, i int) string {
	return st.ColumnTableName(i)
}
