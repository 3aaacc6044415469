package dispatch

import (
	"github.com/koustreak/DatAct/internal/database"
	"github.com/koustreak/DatAct/internal/schema"
)

// State is where a session's statement is in its life cycle. Prepare
// moves Idle to Prepared, step moves to Row or, once rows run out, to Done,
// reset returns a live statement to Prepared, and finalize returns to Idle
// from anywhere.
type State int

const (
	StateIdle     State = iota // no live statement
	StatePrepared              // prepared or reset, not stepped
	StateRow                   // positioned on a row
	StateDone                  // stepped past the last row
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePrepared:
		return "prepared"
	case StateRow:
		return "row"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// session is the value a pool slot owns for one open database.
type session struct {
	path  string
	conn  database.Conn
	stmt  database.Stmt
	state State

	// source is the table a generated Read selects from; nil for scripts.
	source *schema.Table
}

// finalize releases the live statement, if any. It is idempotent.
func (s *session) finalize() error {
	s.source = nil
	if s.stmt == nil {
		s.state = StateIdle
		return nil
	}
	st := s.stmt
	s.stmt, s.state = nil, StateIdle
	return st.Finalize()
}
