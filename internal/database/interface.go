package database

// Engine is the contract every storage backend implements. The dispatcher
// only talks to these interfaces and never imports a driver package
// directly.
type Engine interface {
	// Open connects to the database at path. For server engines path is a
	// DSN or database name; for SQLite it is a file.
	Open(path string) (Conn, error)
}

// Conn is one open connection. A Conn is used by a single session at a
// time and is not safe for concurrent use.
type Conn interface {
	// Prepare compiles query into a statement positioned before its first row.
	Prepare(query string) (Stmt, error)

	// Exec runs one or more statements to completion, discarding any rows.
	Exec(query string) error

	// Close releases the connection. Statements must be finalized first.
	Close() error
}

// Stmt is a prepared statement and its cursor.
type Stmt interface {
	// Step advances to the next row. It returns false once the result set
	// is exhausted.
	Step() (bool, error)

	// Reset rewinds the statement so the next Step returns the first row.
	Reset() error

	// Finalize releases the statement. The Stmt must not be used afterwards.
	Finalize() error

	// ColumnCount is the number of result columns.
	ColumnCount() int

	// ColumnName is the result column label, after any AS renaming.
	ColumnName(i int) string

	// ColumnTableName is the name of the table the column was read from,
	// or "" when the engine cannot tell.
	ColumnTableName(i int) string

	// ColumnOriginName is the name of the column in its table.
	ColumnOriginName(i int) string

	// ColumnInt returns the current row's value in column i as an integer.
	ColumnInt(i int) int64

	// ColumnBytes returns the current row's value in column i as text.
	// It returns nil for NULL.
	ColumnBytes(i int) []byte
}
