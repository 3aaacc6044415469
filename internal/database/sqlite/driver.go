// Package sqlite implements database.Engine on the raw mattn/go-sqlite3
// driver API, bypassing database/sql so statements keep a real
// step/reset/finalize life cycle.
package sqlite

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"io"

	"github.com/mattn/go-sqlite3"

	"github.com/koustreak/DatAct/internal/database"
	"github.com/koustreak/DatAct/internal/errs"
)

// Engine opens SQLite database files.
// It is safe for concurrent use; the connections it returns are not.
type Engine struct {
	drv *sqlite3.SQLiteDriver
}

var _ database.Engine = (*Engine)(nil)

// New returns an Engine. cfg.ConnectTimeout becomes the busy timeout of
// every connection; cfg may be nil.
func New(cfg *database.Config) *Engine {
	var busy int64
	if cfg != nil {
		busy = cfg.ConnectTimeout.Milliseconds()
	}
	return &Engine{drv: &sqlite3.SQLiteDriver{
		ConnectHook: func(c *sqlite3.SQLiteConn) error {
			if busy <= 0 {
				return nil
			}
			_, err := c.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", busy), nil)
			return err
		},
	}}
}

// Open implements database.Engine. path is a file name or a "file:" URI.
func (e *Engine) Open(path string) (database.Conn, error) {
	if path == "" {
		return nil, errs.New(errs.ErrKindInvalidInput, "empty database path")
	}
	dc, err := e.drv.Open(path)
	if err != nil {
		return nil, mapError(err, fmt.Sprintf("failed to open %s", path))
	}
	c, ok := dc.(*sqlite3.SQLiteConn)
	if !ok {
		_ = dc.Close()
		return nil, errs.Newf(errs.ErrKindConnectionFailed, "unexpected connection type %T", dc)
	}
	return &conn{c: c, path: path}, nil
}

type conn struct {
	c    *sqlite3.SQLiteConn
	path string
}

func (c *conn) Prepare(query string) (database.Stmt, error) {
	ds, err := c.c.Prepare(query)
	if err != nil {
		return nil, mapError(err, "prepare failed")
	}
	st, ok := ds.(*sqlite3.SQLiteStmt)
	if !ok {
		_ = ds.Close()
		return nil, errs.Newf(errs.ErrKindQueryFailed, "unexpected statement type %T", ds)
	}
	s := &stmt{st: st}
	// open the cursor now so column metadata is available before the first step
	if err := s.query(); err != nil {
		_ = st.Close()
		return nil, err
	}
	return s, nil
}

func (c *conn) Exec(query string) error {
	if _, err := c.c.Exec(query, nil); err != nil {
		return mapError(err, "exec failed")
	}
	return nil
}

func (c *conn) Close() error {
	if err := c.c.Close(); err != nil {
		return mapError(err, fmt.Sprintf("failed to close %s", c.path))
	}
	return nil
}

type stmt struct {
	st   *sqlite3.SQLiteStmt
	rows *sqlite3.SQLiteRows
	cols []string
	vals []driver.Value
	row  bool // vals holds a row
	done bool
}

func (s *stmt) query() error {
	dr, err := s.st.Query(nil)
	if err != nil {
		return mapError(err, "query failed")
	}
	rows, ok := dr.(*sqlite3.SQLiteRows)
	if !ok {
		_ = dr.Close()
		return errs.Newf(errs.ErrKindQueryFailed, "unexpected rows type %T", dr)
	}
	s.rows = rows
	s.cols = rows.Columns()
	s.vals = make([]driver.Value, len(s.cols))
	s.row, s.done = false, false
	return nil
}

func (s *stmt) Step() (bool, error) {
	// sqlite restarts a statement stepped past SQLITE_DONE
	if s.done {
		return false, nil
	}
	err := s.rows.Next(s.vals)
	if errors.Is(err, io.EOF) {
		s.row, s.done = false, true
		return false, nil
	}
	if err != nil {
		s.row = false
		return false, mapError(err, "step failed")
	}
	s.row = true
	return true, nil
}

func (s *stmt) Reset() error {
	if err := s.rows.Close(); err != nil {
		return mapError(err, "reset failed")
	}
	return s.query()
}

func (s *stmt) Finalize() error {
	var err error
	if s.rows != nil {
		err = s.rows.Close()
	}
	if cerr := s.st.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return mapError(err, "finalize failed")
	}
	return nil
}

func (s *stmt) ColumnCount() int { return len(s.cols) }

func (s *stmt) ColumnName(i int) string { return s.cols[i] }

func (s *stmt) ColumnTableName(i int) string { return columnTableName(s.st, i) }

// ColumnOriginName returns the result label; go-sqlite3 does not expose
// sqlite3_column_origin_name. Generated statements never rename columns.
func (s *stmt) ColumnOriginName(i int) string { return s.cols[i] }

func (s *stmt) ColumnInt(i int) int64 {
	if !s.row {
		return 0
	}
	return database.Integer(s.vals[i])
}

func (s *stmt) ColumnBytes(i int) []byte {
	if !s.row {
		return nil
	}
	return database.Text(s.vals[i])
}
