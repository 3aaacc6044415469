package server

import (
	"encoding/json"
	"net/http"

	"github.com/koustreak/DatAct/internal/action"
	"github.com/koustreak/DatAct/internal/database"
	"github.com/koustreak/DatAct/internal/dispatch"
	"github.com/koustreak/DatAct/internal/errs"
	"github.com/koustreak/DatAct/internal/schema"
)

// Request is the body of /v1/sql and /v1/actions.
type Request struct {
	Action string `json:"action"`
	schema.Selection
	// SQL is the ad-hoc key for canned statements, or the script for
	// prepare, exec and init.
	SQL string `json:"sql,omitempty"`
}

// Response is the body of every /v1 reply.
type Response struct {
	Status  int               `json:"status"`
	State   string            `json:"state,omitempty"`
	SQL     string            `json:"sql,omitempty"`
	Row     map[string]string `json:"row,omitempty"`
	Columns []string          `json:"columns,omitempty"`
	Error   string            `json:"error,omitempty"`
}

// Health is the body of /healthz.
type Health struct {
	Status string `json:"status"`
	Open   int    `json:"open"`
	Path   string `json:"path"`
	InUse  bool   `json:"in_use"`
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, Health{
		Status: "ok",
		Open:   s.handler.OpenCount(),
		Path:   s.db.Path,
		InUse:  s.handler.IsOpen(s.db),
	})
}

func (s *Server) generate(w http.ResponseWriter, r *http.Request) {
	req, code, err := decode(w, r)
	if err != nil {
		s.fail(w, err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Apply(req.Selection); err != nil {
		s.fail(w, err)
		return
	}
	sql, err := s.gen.Generate(code, s.db, req.SQL)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Response{SQL: sql})
}

func (s *Server) perform(w http.ResponseWriter, r *http.Request) {
	req, code, err := decode(w, r)
	if err != nil {
		s.fail(w, err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// An empty selection keeps the slots and bitmaps of the last request,
	// so a bare "step" continues the previous read.
	t := s.db.FirstSelected()
	if req.Table != "" || len(req.Fields) > 0 || len(req.Values) > 0 {
		if t, err = s.db.Apply(req.Selection); err != nil {
			s.fail(w, err)
			return
		}
	}

	err = s.handler.Perform(code, s.db, req.SQL)
	resp := Response{
		Status: dispatch.Status(err),
		State:  s.handler.State(s.db).String(),
	}
	if err != nil && !errs.IsDuplicateOpen(err) && !errs.IsNoData(err) {
		resp.Error = err.Error()
		writeJSON(w, httpStatus(err), resp)
		return
	}
	if err == nil && t != nil && (code.Has(action.Step) || code.Has(action.Count)) {
		resp.Row = t.Row()
	}
	if st := s.handler.Stmt(s.db); st != nil {
		resp.Columns = database.Columns(st)
	}
	writeJSON(w, http.StatusOK, resp)
}

func decode(w http.ResponseWriter, r *http.Request) (*Request, action.Code, error) {
	var req Request
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return nil, 0, errs.Wrap(errs.ErrKindInvalidInput, "invalid request body", err)
	}
	code, err := action.Parse(req.Action)
	if err != nil {
		return nil, 0, errs.Wrap(errs.ErrKindInvalidInput, "invalid action", err)
	}
	if code.Command() == 0 {
		return nil, 0, errs.Newf(errs.ErrKindInvalidInput, "action %q has no command", req.Action)
	}
	return &req, code, nil
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	writeJSON(w, httpStatus(err), Response{Status: dispatch.Status(err), Error: err.Error()})
}

func httpStatus(err error) int {
	switch errs.KindOf(err) {
	case errs.ErrKindInvalidInput, errs.ErrKindNotFound, errs.ErrKindBufferOverflow:
		return http.StatusBadRequest
	case errs.ErrKindPoolExhausted:
		return http.StatusServiceUnavailable
	case errs.ErrKindTimeout:
		return http.StatusGatewayTimeout
	case errs.ErrKindConnectionFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
