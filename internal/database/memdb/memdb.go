// Package memdb is a scripted in-memory database.Engine. Result sets are
// registered per SQL text ahead of time, and every call the engine
// receives is recorded so callers can assert on the exact traffic.
package memdb

import (
	"fmt"
	"sync"

	"github.com/koustreak/DatAct/internal/database"
	"github.com/koustreak/DatAct/internal/errs"
)

// Column describes one result column.
type Column struct {
	Name   string // label after AS renaming
	Table  string // source table, "" when unknown
	Origin string // source column, defaults to Name
}

// Result is a canned result set.
type Result struct {
	Columns []Column
	Rows    [][]any
}

// Engine implements database.Engine.
type Engine struct {
	mu       sync.Mutex
	results  map[string]*Result
	fails    map[string]error
	openErr  error
	closeErr error
	calls    []string
	live     int // prepared but not finalized
	conns    int // open connections
}

var _ database.Engine = (*Engine)(nil)

// New returns an empty engine.
func New() *Engine {
	return &Engine{
		results: make(map[string]*Result),
		fails:   make(map[string]error),
	}
}

// AddResult registers the result set returned when query is prepared.
func (e *Engine) AddResult(query string, r Result) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i := range r.Columns {
		if r.Columns[i].Origin == "" {
			r.Columns[i].Origin = r.Columns[i].Name
		}
	}
	e.results[query] = &r
}

// FailOn makes Prepare and Exec of query return err.
func (e *Engine) FailOn(query string, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.fails[query] = err
}

// FailOpen makes every Open return err.
func (e *Engine) FailOpen(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.openErr = err
}

// FailClose makes every Close of an open connection return err. The
// connection stays open.
func (e *Engine) FailClose(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closeErr = err
}

// Calls returns the recorded calls, e.g. "open shop.db" or "prepare SELECT 1;".
func (e *Engine) Calls() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.calls...)
}

// Executed returns the SQL text of every Prepare and Exec, in order.
func (e *Engine) Executed() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []string
	for _, c := range e.calls {
		for _, p := range []string{"prepare ", "exec "} {
			if len(c) > len(p) && c[:len(p)] == p {
				out = append(out, c[len(p):])
			}
		}
	}
	return out
}

// LiveStatements is the number of statements prepared and not finalized.
func (e *Engine) LiveStatements() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.live
}

// OpenConns is the number of connections opened and not closed.
func (e *Engine) OpenConns() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.conns
}

func (e *Engine) record(format string, args ...any) {
	e.calls = append(e.calls, fmt.Sprintf(format, args...))
}

// Open implements database.Engine.
func (e *Engine) Open(path string) (database.Conn, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.record("open %s", path)
	if e.openErr != nil {
		return nil, e.openErr
	}
	e.conns++
	return &conn{engine: e, path: path}, nil
}

type conn struct {
	engine *Engine
	path   string
	live   int
	closed bool
}

func (c *conn) Prepare(query string) (database.Stmt, error) {
	e := c.engine
	e.mu.Lock()
	defer e.mu.Unlock()
	e.record("prepare %s", query)

	if c.closed {
		return nil, errs.New(errs.ErrKindConnectionFailed, "connection closed")
	}
	if err := e.fails[query]; err != nil {
		return nil, err
	}
	r, ok := e.results[query]
	if !ok {
		return nil, errs.Newf(errs.ErrKindQueryFailed, "no result registered for %q", query)
	}
	c.live++
	e.live++
	return &stmt{conn: c, result: r, pos: -1}, nil
}

func (c *conn) Exec(query string) error {
	e := c.engine
	e.mu.Lock()
	defer e.mu.Unlock()
	e.record("exec %s", query)

	if c.closed {
		return errs.New(errs.ErrKindConnectionFailed, "connection closed")
	}
	return e.fails[query]
}

func (c *conn) Close() error {
	e := c.engine
	e.mu.Lock()
	defer e.mu.Unlock()
	e.record("close %s", c.path)

	if c.closed {
		return nil
	}
	if c.live > 0 {
		return errs.Newf(errs.ErrKindQueryFailed, "unable to close %s: %d unfinalized statements", c.path, c.live)
	}
	if e.closeErr != nil {
		return e.closeErr
	}
	c.closed = true
	e.conns--
	return nil
}

type stmt struct {
	conn      *conn
	result    *Result
	pos       int
	finalized bool
}

func (s *stmt) lock() func() {
	s.conn.engine.mu.Lock()
	return s.conn.engine.mu.Unlock
}

func (s *stmt) Step() (bool, error) {
	defer s.lock()()
	s.conn.engine.record("step")
	if s.finalized {
		return false, errs.New(errs.ErrKindQueryFailed, "step on finalized statement")
	}
	if s.pos < len(s.result.Rows) {
		s.pos++
	}
	return s.pos < len(s.result.Rows), nil
}

func (s *stmt) Reset() error {
	defer s.lock()()
	s.conn.engine.record("reset")
	if s.finalized {
		return errs.New(errs.ErrKindQueryFailed, "reset on finalized statement")
	}
	s.pos = -1
	return nil
}

func (s *stmt) Finalize() error {
	defer s.lock()()
	s.conn.engine.record("finalize")
	if s.finalized {
		return nil
	}
	s.finalized = true
	s.conn.live--
	s.conn.engine.live--
	return nil
}

func (s *stmt) ColumnCount() int { return len(s.result.Columns) }

func (s *stmt) ColumnName(i int) string       { return s.result.Columns[i].Name }
func (s *stmt) ColumnTableName(i int) string  { return s.result.Columns[i].Table }
func (s *stmt) ColumnOriginName(i int) string { return s.result.Columns[i].Origin }

func (s *stmt) value(i int) any {
	if s.pos < 0 || s.pos >= len(s.result.Rows) || i >= len(s.result.Rows[s.pos]) {
		return nil
	}
	return s.result.Rows[s.pos][i]
}

func (s *stmt) ColumnInt(i int) int64    { return database.Integer(s.value(i)) }
func (s *stmt) ColumnBytes(i int) []byte { return database.Text(s.value(i)) }
