package dispatch

import (
	"github.com/koustreak/DatAct/internal/errs"
	"github.com/koustreak/DatAct/internal/schema"
)

func (h *Handler) open(db *schema.Database) error {
	if db.Path == "" {
		return errs.Newf(errs.ErrKindInvalidInput, "database %q has no path", db.Name)
	}

	hd, err := h.sessions.Acquire(db.Path)
	if err != nil {
		return err
	}

	conn, err := h.engine.Open(db.Path)
	if err != nil {
		h.sessions.Release(hd)
		return err
	}
	h.sessions.Set(hd, &session{path: db.Path, conn: conn})
	return nil
}

// close finalizes, closes the connection and frees the slot. Closing a
// database that is not open is a no-op.
func (h *Handler) close(db *schema.Database) error {
	return h.closePath(db.Path)
}

func (h *Handler) closePath(path string) error {
	hd, ok := h.sessions.Lookup(path)
	if !ok {
		return nil
	}
	s, _ := h.sessions.Get(hd)

	if err := s.finalize(); err != nil {
		return err
	}
	// the slot is freed even when the engine fails to close, so the path
	// can be opened again
	err := s.conn.Close()
	h.sessions.Release(hd)
	return err
}

// prepare replaces the session's statement with a new one.
func (h *Handler) prepare(s *session, sql string) error {
	if err := s.finalize(); err != nil {
		return err
	}
	st, err := s.conn.Prepare(sql)
	if err != nil {
		return err
	}
	s.stmt, s.state = st, StatePrepared
	return nil
}

// exec runs sql to completion after releasing any live statement.
func (h *Handler) exec(s *session, sql string) error {
	if err := s.finalize(); err != nil {
		return err
	}
	return s.conn.Exec(sql)
}

func (h *Handler) step(s *session, db *schema.Database, count bool) error {
	switch s.state {
	case StateIdle:
		return errs.New(errs.ErrKindInvalidInput, "step without a prepared statement")
	case StateDone:
		// an exhausted statement stays exhausted until reset
		return errs.New(errs.ErrKindNoData, "no more rows")
	}

	ok, err := s.stmt.Step()
	if err != nil {
		return err
	}
	if !ok {
		s.state = StateDone
		return errs.New(errs.ErrKindNoData, "no more rows")
	}
	s.state = StateRow
	return unpack(s.stmt, db, s.source, count)
}

func (h *Handler) reset(s *session) error {
	if s.stmt == nil {
		return errs.New(errs.ErrKindInvalidInput, "reset without a prepared statement")
	}
	if err := s.stmt.Reset(); err != nil {
		return err
	}
	s.state = StatePrepared
	return nil
}
