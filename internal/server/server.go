// Package server exposes a dispatch.Handler over HTTP.
//
// Routes:
//
//	GET  /healthz      liveness
//	POST /v1/sql       generate a statement without running it
//	POST /v1/actions   perform an action and return the unpacked row
//
// Requests are serialized: the handler and the descriptor slots it fills
// belong to one caller at a time.
package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/koustreak/DatAct/internal/dispatch"
	"github.com/koustreak/DatAct/internal/logger"
	"github.com/koustreak/DatAct/internal/schema"
	"github.com/koustreak/DatAct/internal/sqlgen"
)

// Server serves one descriptor database through one Handler.
type Server struct {
	handler *dispatch.Handler
	gen     *sqlgen.Generator
	db      *schema.Database
	log     *logger.Logger

	mu sync.Mutex
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *logger.Logger) Option {
	return func(s *Server) { s.log = l }
}

// WithGenerator sets the generator behind /v1/sql. It should match the
// handler's dialect and capacity.
func WithGenerator(g *sqlgen.Generator) Option {
	return func(s *Server) { s.gen = g }
}

// New returns a Server performing actions on db through h.
func New(h *dispatch.Handler, db *schema.Database, opts ...Option) *Server {
	s := &Server{handler: h, db: db, gen: sqlgen.New(), log: logger.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Routes returns the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.healthz)
	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.AllowContentType("application/json"))
		r.Post("/sql", s.generate)
		r.Post("/actions", s.perform)
	})
	return r
}

// ListenAndServe serves on addr until ctx is done, then shuts down,
// closing every database the handler holds open.
func (s *Server) ListenAndServe(ctx context.Context, addr string, readTimeout, writeTimeout time.Duration) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.Routes(),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}

	done := make(chan error, 1)
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		done <- srv.Shutdown(shutdownCtx)
	}()

	s.log.Info("listening", logger.Fields{"addr": addr})
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	if err := <-done; err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handler.CloseAll()
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Debug("request", logger.Fields{
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     ww.Status(),
			"bytes":      ww.BytesWritten(),
			"duration":   time.Since(start).String(),
			"request_id": middleware.GetReqID(r.Context()),
		})
	})
}
