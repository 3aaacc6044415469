// Package postgres implements database.Engine on pgx. Each Open acquires
// one connection from a pgxpool shared per database, and result columns
// are attributed to their source tables through the system catalogs.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/koustreak/DatAct/internal/database"
)

// Engine opens PostgreSQL databases on the server described by
// Config.DSN. It is safe for concurrent use; its connections are not.
type Engine struct {
	cfg *database.Config

	mu    sync.Mutex
	pools map[string]*pgxpool.Pool // keyed by database name
}

var _ database.Engine = (*Engine)(nil)

// New returns an Engine. No connection is made until Open.
func New(cfg *database.Config) *Engine {
	if cfg == nil {
		cfg = database.DefaultConfig(database.DriverPostgres, "")
	}
	return &Engine{cfg: cfg, pools: make(map[string]*pgxpool.Pool)}
}

// Open implements database.Engine. path names the database; an empty
// path keeps the database named in the DSN.
func (e *Engine) Open(path string) (database.Conn, error) {
	ctx, cancel := e.connectContext()
	defer cancel()

	pool, err := e.pool(ctx, path)
	if err != nil {
		return nil, err
	}

	c, err := pool.Acquire(ctx)
	if err != nil {
		return nil, mapError(err, fmt.Sprintf("failed to connect to %s", path))
	}
	if err := c.Ping(ctx); err != nil {
		c.Release()
		return nil, mapError(err, "ping failed")
	}
	return &conn{c: c, origins: make(map[origin]columnOrigin)}, nil
}

// Close drains every pool the engine opened.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for name, p := range e.pools {
		p.Close()
		delete(e.pools, name)
	}
}

func (e *Engine) connectContext() (context.Context, context.CancelFunc) {
	if e.cfg.ConnectTimeout > 0 {
		return context.WithTimeout(context.Background(), e.cfg.ConnectTimeout)
	}
	return context.WithCancel(context.Background())
}

type origin struct {
	table  uint32
	column uint16
}

type columnOrigin struct {
	table  string
	column string
}

type conn struct {
	c       *pgxpool.Conn
	origins map[origin]columnOrigin
}

// Prepare describes query, resolves the source of every result column,
// then runs it; Step walks the result set.
func (c *conn) Prepare(query string) (database.Stmt, error) {
	ctx := context.Background()

	sd, err := c.c.Conn().PgConn().Prepare(ctx, "", query, nil)
	if err != nil {
		return nil, mapError(err, "prepare failed")
	}

	cols := make([]column, len(sd.Fields))
	for i, f := range sd.Fields {
		cols[i] = column{name: f.Name, origin: f.Name}
		if f.TableOID == 0 {
			continue
		}
		o, err := c.resolve(ctx, origin{table: f.TableOID, column: f.TableAttributeNumber})
		if err != nil {
			return nil, err
		}
		cols[i].table, cols[i].origin = o.table, o.column
	}

	s := &stmt{conn: c, sql: query, cols: cols}
	if err := s.query(); err != nil {
		return nil, err
	}
	return s, nil
}

// resolve looks up a table OID and attribute number in the catalogs.
func (c *conn) resolve(ctx context.Context, o origin) (columnOrigin, error) {
	if co, ok := c.origins[o]; ok {
		return co, nil
	}
	const q = `
		SELECT c.relname, a.attname
		FROM pg_catalog.pg_class c
		JOIN pg_catalog.pg_attribute a ON a.attrelid = c.oid
		WHERE c.oid = $1 AND a.attnum = $2`

	var co columnOrigin
	err := c.c.QueryRow(ctx, q, o.table, int16(o.column)).Scan(&co.table, &co.column)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return co, mapError(err, "failed to resolve column origin")
	}
	c.origins[o] = co
	return co, nil
}

func (c *conn) Exec(query string) error {
	if _, err := c.c.Exec(context.Background(), query); err != nil {
		return mapError(err, "exec failed")
	}
	return nil
}

func (c *conn) Close() error {
	c.c.Release()
	return nil
}

type column struct {
	name   string
	table  string
	origin string
}

type stmt struct {
	conn *conn
	sql  string
	cols []column
	rows pgx.Rows
	vals []any
	done bool
}

func (s *stmt) query() error {
	rows, err := s.conn.c.Query(context.Background(), s.sql)
	if err != nil {
		return mapError(err, "query failed")
	}
	s.rows, s.vals, s.done = rows, nil, false
	return nil
}

func (s *stmt) Step() (bool, error) {
	if s.done {
		return false, nil
	}
	if !s.rows.Next() {
		s.vals, s.done = nil, true
		if err := s.rows.Err(); err != nil {
			return false, mapError(err, "step failed")
		}
		return false, nil
	}
	vals, err := s.rows.Values()
	if err != nil {
		s.vals = nil
		return false, mapError(err, "failed to decode row")
	}
	s.vals = vals
	return true, nil
}

func (s *stmt) Reset() error {
	s.rows.Close()
	return s.query()
}

func (s *stmt) Finalize() error {
	s.rows.Close()
	if err := s.rows.Err(); err != nil && !errors.Is(err, context.Canceled) {
		return mapError(err, "finalize failed")
	}
	return nil
}

func (s *stmt) ColumnCount() int              { return len(s.cols) }
func (s *stmt) ColumnName(i int) string       { return s.cols[i].name }
func (s *stmt) ColumnTableName(i int) string  { return s.cols[i].table }
func (s *stmt) ColumnOriginName(i int) string { return s.cols[i].origin }

func (s *stmt) value(i int) any {
	if i >= len(s.vals) {
		return nil
	}
	return s.vals[i]
}

func (s *stmt) ColumnInt(i int) int64    { return database.Integer(s.value(i)) }
func (s *stmt) ColumnBytes(i int) []byte { return database.Text(s.value(i)) }
