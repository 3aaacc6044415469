// Package sqldb implements database.Engine over any database/sql driver.
// Each Open pins one connection from a shared *sql.DB pool, so a session
// keeps its statements on a single server connection.
package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/koustreak/DatAct/internal/database"
	"github.com/koustreak/DatAct/internal/errs"
)

// DSNFunc builds a driver DSN for the database named by Open's path.
type DSNFunc func(path string) (string, error)

// ErrorMapper translates native driver errors into *errs.Error.
type ErrorMapper func(err error, msg string) error

// Engine implements database.Engine.
// It is safe for concurrent use; the connections it returns are not.
type Engine struct {
	driverName string
	cfg        *database.Config
	dsn        DSNFunc
	mapErr     ErrorMapper

	mu    sync.Mutex
	pools map[string]*sql.DB // keyed by DSN
}

var _ database.Engine = (*Engine)(nil)

// Option configures an Engine.
type Option func(*Engine)

// WithDSN sets how Open's path becomes a DSN. The default uses path as is.
func WithDSN(fn DSNFunc) Option {
	return func(e *Engine) { e.dsn = fn }
}

// WithErrorMapper sets the driver error translation.
func WithErrorMapper(fn ErrorMapper) Option {
	return func(e *Engine) { e.mapErr = fn }
}

// New returns an Engine for the registered database/sql driver driverName.
func New(driverName string, cfg *database.Config, opts ...Option) *Engine {
	if cfg == nil {
		cfg = database.DefaultConfig(database.Driver(driverName), "")
	}
	e := &Engine{
		driverName: driverName,
		cfg:        cfg,
		dsn:        func(path string) (string, error) { return path, nil },
		mapErr:     MapError,
		pools:      make(map[string]*sql.DB),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Open implements database.Engine.
func (e *Engine) Open(path string) (database.Conn, error) {
	dsn, err := e.dsn(path)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "invalid DSN", err)
	}

	db, err := e.pool(dsn)
	if err != nil {
		return nil, err
	}

	ctx, cancel := e.connectContext()
	defer cancel()

	c, err := db.Conn(ctx)
	if err != nil {
		return nil, e.mapErr(err, fmt.Sprintf("failed to connect to %s", path))
	}
	if err := c.PingContext(ctx); err != nil {
		_ = c.Close()
		return nil, e.mapErr(err, "ping failed")
	}
	return &conn{c: c, engine: e}, nil
}

// Close closes every pool the engine opened.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	var errList []error
	for dsn, db := range e.pools {
		if err := db.Close(); err != nil {
			errList = append(errList, err)
		}
		delete(e.pools, dsn)
	}
	return errors.Join(errList...)
}

func (e *Engine) connectContext() (context.Context, context.CancelFunc) {
	if e.cfg.ConnectTimeout > 0 {
		return context.WithTimeout(context.Background(), e.cfg.ConnectTimeout)
	}
	return context.WithCancel(context.Background())
}

func (e *Engine) queryContext() (context.Context, context.CancelFunc) {
	if e.cfg.QueryTimeout > 0 {
		return context.WithTimeout(context.Background(), e.cfg.QueryTimeout)
	}
	return context.WithCancel(context.Background())
}

type conn struct {
	c      *sql.Conn
	engine *Engine
}

// Prepare runs the statement immediately; Step then walks the result set.
func (c *conn) Prepare(query string) (database.Stmt, error) {
	st, err := c.c.PrepareContext(context.Background(), query)
	if err != nil {
		return nil, c.engine.mapErr(err, "prepare failed")
	}
	s := &stmt{st: st, mapErr: c.engine.mapErr}
	if err := s.query(); err != nil {
		_ = st.Close()
		return nil, err
	}
	return s, nil
}

func (c *conn) Exec(query string) error {
	ctx, cancel := c.engine.queryContext()
	defer cancel()

	if _, err := c.c.ExecContext(ctx, query); err != nil {
		return c.engine.mapErr(err, "exec failed")
	}
	return nil
}

func (c *conn) Close() error {
	if err := c.c.Close(); err != nil {
		return c.engine.mapErr(err, "close failed")
	}
	return nil
}

type stmt struct {
	st     *sql.Stmt
	rows   *sql.Rows
	mapErr ErrorMapper
	cols   []string
	vals   []any
	ptrs   []any
	row    bool
	done   bool
}

func (s *stmt) query() error {
	rows, err := s.st.QueryContext(context.Background())
	if err != nil {
		return s.mapErr(err, "query failed")
	}
	cols, err := rows.Columns()
	if err != nil {
		_ = rows.Close()
		return s.mapErr(err, "failed to read column names")
	}

	s.rows, s.cols = rows, cols
	s.vals = make([]any, len(cols))
	s.ptrs = make([]any, len(cols))
	for i := range s.vals {
		s.ptrs[i] = &s.vals[i]
	}
	s.row, s.done = false, false
	return nil
}

func (s *stmt) Step() (bool, error) {
	if s.done {
		return false, nil
	}
	if !s.rows.Next() {
		s.row, s.done = false, true
		if err := s.rows.Err(); err != nil {
			return false, s.mapErr(err, "step failed")
		}
		return false, nil
	}
	if err := s.rows.Scan(s.ptrs...); err != nil {
		s.row = false
		return false, s.mapErr(err, "failed to scan row")
	}
	s.row = true
	return true, nil
}

func (s *stmt) Reset() error {
	if err := s.rows.Close(); err != nil {
		return s.mapErr(err, "reset failed")
	}
	return s.query()
}

func (s *stmt) Finalize() error {
	err := s.rows.Close()
	if cerr := s.st.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return s.mapErr(err, "finalize failed")
	}
	return nil
}

func (s *stmt) ColumnCount() int              { return len(s.cols) }
func (s *stmt) ColumnName(i int) string       { return s.cols[i] }
func (s *stmt) ColumnTableName(int) string    { return "" }
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
