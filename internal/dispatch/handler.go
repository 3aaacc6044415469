// Package dispatch executes action codes against open databases. A Handler
// owns the handle pool, generates statements from schema descriptors,
// drives the engine's prepare/step/reset/finalize life cycle, and unpacks
// rows into the descriptors' data slots.
//
// A Handler is not safe for concurrent use.
package dispatch

import (
	"github.com/koustreak/DatAct/internal/action"
	"github.com/koustreak/DatAct/internal/database"
	"github.com/koustreak/DatAct/internal/errs"
	"github.com/koustreak/DatAct/internal/logger"
	"github.com/koustreak/DatAct/internal/pool"
	"github.com/koustreak/DatAct/internal/schema"
	"github.com/koustreak/DatAct/internal/sqlgen"
)

// Handler performs actions on behalf of one caller.
type Handler struct {
	engine   database.Engine
	gen      *sqlgen.Generator
	sessions *pool.Pool[*session]
	log      *logger.Logger

	dialect  sqlgen.Dialect
	capacity int
	poolCap  int
}

// Option configures a Handler.
type Option func(*Handler)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *logger.Logger) Option {
	return func(h *Handler) { h.log = l }
}

// WithDialect sets literal quoting for generated statements.
func WithDialect(d sqlgen.Dialect) Option {
	return func(h *Handler) { h.dialect = d }
}

// WithScriptCapacity bounds the length of generated statements.
func WithScriptCapacity(n int) Option {
	return func(h *Handler) { h.capacity = n }
}

// WithPoolCapacity bounds the number of databases open at once.
func WithPoolCapacity(n int) Option {
	return func(h *Handler) { h.poolCap = n }
}

// New returns a Handler that opens databases through engine.
func New(engine database.Engine, opts ...Option) *Handler {
	h := &Handler{
		engine:   engine,
		log:      logger.Nop(),
		dialect:  sqlgen.DialectDefault,
		capacity: sqlgen.DefaultCapacity,
		poolCap:  pool.DefaultCapacity,
	}
	for _, opt := range opts {
		opt(h)
	}
	h.gen = sqlgen.New(sqlgen.WithCapacity(h.capacity), sqlgen.WithDialect(h.dialect))
	h.sessions = pool.New[*session](h.poolCap)
	return h
}

// Perform runs code against db.
//
// For Read, Write, Update and Delete, text is an ad-hoc key template that
// overrides the canned key selected by code. For Prepare, Exec and Init it
// is the script to run; an empty Init script creates every table of db.
//
// The phases of a combined code run in order: open, then one statement
// command, then reset and step when no statement command was given, then
// finalize, then close. The first failure aborts the rest.
//
// A duplicate open is reported as an errs DuplicateOpen error after the
// remaining phases succeed; Status maps it to StatusOK. Running out of rows
// is an errs NoData error.
func (h *Handler) Perform(code action.Code, db *schema.Database, text string) error {
	log := h.log.With().Stringer("action", code).Str("db", db.Path).Logger()
	log.Debug("perform", logger.Fields{"sql": text})

	err := h.perform(code, db, text)
	switch {
	case err == nil, errs.IsNoData(err):
	case errs.IsDuplicateOpen(err):
		log.Warn("database already open, reusing connection")
	default:
		log.Error("action failed", err)
	}
	return err
}

func (h *Handler) perform(code action.Code, db *schema.Database, text string) error {
	if code.Command() == 0 {
		return errs.Newf(errs.ErrKindInvalidInput, "unknown action %s", code)
	}

	var dup error
	if code.Has(action.Open) {
		if err := h.open(db); err != nil {
			if !errs.IsDuplicateOpen(err) {
				return err
			}
			dup = err
		}
	}

	rest := code.Command() &^ (action.Open | action.Close)
	if rest != 0 {
		s, err := h.session(db)
		if err != nil {
			return err
		}
		if err := h.run(s, code, db, text); err != nil {
			return err
		}
	}

	if code.Has(action.Close) {
		if err := h.close(db); err != nil {
			return err
		}
	}
	return dup
}

// run executes the statement phases of code on an open session.
func (h *Handler) run(s *session, code action.Code, db *schema.Database, text string) error {
	stepping := code.Has(action.Step) || code.Has(action.Count)

	switch {
	case code.Has(action.Read):
		sql, err := h.gen.Generate(code, db, text)
		if err != nil {
			return err
		}
		if err := h.prepare(s, sql); err != nil {
			return err
		}
		s.source = db.FirstSelected()
		if stepping {
			if err := h.step(s, db, code.Has(action.Count)); err != nil {
				return err
			}
		}

	case code.Has(action.Update), code.Has(action.Write), code.Has(action.Delete):
		sql, err := h.gen.Generate(code, db, text)
		if err != nil {
			return err
		}
		if err := h.exec(s, sql); err != nil {
			return err
		}

	case code.Has(action.Prepare):
		if text == "" {
			return errs.New(errs.ErrKindInvalidInput, "prepare needs a script")
		}
		if err := h.prepare(s, text); err != nil {
			return err
		}
		if stepping {
			if err := h.step(s, db, code.Has(action.Count)); err != nil {
				return err
			}
		}

	case code.Has(action.Exec):
		if text == "" {
			return errs.New(errs.ErrKindInvalidInput, "exec needs a script")
		}
		if err := h.exec(s, text); err != nil {
			return err
		}

	case code.Has(action.Init):
		if text == "" {
			script, err := h.gen.CreateTables(db)
			if err != nil {
				return err
			}
			text = script
		}
		if err := h.exec(s, text); err != nil {
			return err
		}

	default:
		if code.Has(action.Reset) {
			if err := h.reset(s); err != nil {
				return err
			}
		}
		if stepping {
			if err := h.step(s, db, code.Has(action.Count)); err != nil {
				return err
			}
		}
	}

	if code.Has(action.Finalize) {
		if err := s.finalize(); err != nil {
			return err
		}
	}
	return nil
}

// State reports the statement state of db's session. A database that is
// not open is Idle.
func (h *Handler) State(db *schema.Database) State {
	hd, ok := h.sessions.Lookup(db.Path)
	if !ok {
		return StateIdle
	}
	s, _ := h.sessions.Get(hd)
	return s.state
}

// IsOpen reports whether db holds a pool slot.
func (h *Handler) IsOpen(db *schema.Database) bool {
	_, ok := h.sessions.Lookup(db.Path)
	return ok
}

// OpenCount is the number of open databases.
func (h *Handler) OpenCount() int { return h.sessions.Len() }

// Stmt returns the live statement of db's session, or nil. Callers may
// read column metadata from it but must not step or finalize it.
func (h *Handler) Stmt(db *schema.Database) database.Stmt {
	hd, ok := h.sessions.Lookup(db.Path)
	if !ok {
		return nil
	}
	s, _ := h.sessions.Get(hd)
	return s.stmt
}

// Query runs script on the open database db and returns every row keyed
// by result label, bypassing the data slots. Any live statement is
// finalized first and the query's own statement is finalized before
// returning.
func (h *Handler) Query(db *schema.Database, script string) ([]map[string]any, error) {
	if script == "" {
		return nil, errs.New(errs.ErrKindInvalidInput, "query needs a script")
	}
	s, err := h.session(db)
	if err != nil {
		return nil, err
	}
	h.log.Debug("query", logger.Fields{"db": db.Path, "sql": script})

	if err := h.prepare(s, script); err != nil {
		return nil, err
	}
	rows, err := database.ScanRows(s.stmt)
	if ferr := s.finalize(); err == nil {
		err = ferr
	}
	if err != nil {
		h.log.Error("query failed", err, logger.Fields{"db": db.Path})
		return nil, err
	}
	return rows, nil
}

// CloseAll closes every open database and returns the first error.
func (h *Handler) CloseAll() error {
	var paths []string
	h.sessions.Each(func(_ pool.Handle, path string, _ *session) {
		paths = append(paths, path)
	})

	var first error
	for _, p := range paths {
		if err := h.closePath(p); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (h *Handler) session(db *schema.Database) (*session, error) {
	hd, ok := h.sessions.Lookup(db.Path)
	if !ok {
		return nil, errs.Newf(errs.ErrKindInvalidInput, "database %s is not open", db.Path)
	}
	s, _ := h.sessions.Get(hd)
	return s, nil
}
