// Package server exposes connection testing, table listing and document
// generation over HTTP, next to the static web UI.
package server

import (
	"cmp"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"dbmarkdown/internal/db"
	"dbmarkdown/internal/docgen"
	"dbmarkdown/internal/errs"
	"dbmarkdown/internal/introspect"
	"dbmarkdown/internal/logger"
	"dbmarkdown/pkg/config"
)

// Options configures a Server.
type Options struct {
	Generator docgen.Generator
	Timeout   time.Duration    // connect timeout, db.DefaultTimeout when zero
	WebDir    string           // static files served at /, none when empty
	Active    *config.DBConfig // connection to start with
}

// Server holds the active connection record. Every request reconnects with
// it, so no pool outlives a request.
type Server struct {
	activeMu sync.RWMutex
	active   *config.DBConfig

	timeout   time.Duration
	assembler *docgen.Assembler
	router    chi.Router
}

// New builds the server and its routes.
func New(opts Options) *Server {
	s := &Server{
		timeout: cmp.Or(opts.Timeout, db.DefaultTimeout),
	}
	if opts.Generator != nil {
		s.assembler = docgen.NewAssembler(opts.Generator)
	}
	if opts.Active != nil && opts.Active.Type != "" {
		s.setActive(*opts.Active)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Route("/api", func(r chi.Router) {
		r.Get("/connection", s.handleGetConnection)
		r.Post("/connect", s.handleConnect)
		r.Get("/tables", s.handleTables)
		r.Post("/generate", s.handleGenerate)
	})
	if opts.WebDir != "" {
		r.Handle("/*", http.FileServer(http.Dir(opts.WebDir)))
	}
	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// setActive sets the active database connection
func (s *Server) setActive(spec config.DBConfig) {
	s.activeMu.Lock()
	defer s.activeMu.Unlock()
	s.active = &spec
}

// getActive returns the active database connection
func (s *Server) getActive() (config.DBConfig, bool) {
	s.activeMu.RLock()
	defer s.activeMu.RUnlock()
	if s.active == nil {
		return config.DBConfig{}, false
	}
	return *s.active, true
}

type tablesResponse struct {
	OK     bool               `json:"ok"`
	Tables []introspect.Table `json:"tables"`
}

type generateRequest struct {
	Tables []string `json:"tables"`
}

type generateResponse struct {
	OK       bool   `json:"ok"`
	Markdown string `json:"markdown"`
}

type errorResponse struct {
	OK    bool   `json:"ok"`
	Kind  string `json:"kind"`
	Error string `json:"error"`
}

// handleGetConnection returns the active connection without its password.
func (s *Server) handleGetConnection(w http.ResponseWriter, r *http.Request) {
	spec, ok := s.getActive()
	spec.Password = ""
	writeJSON(w, http.StatusOK, struct {
		OK     bool            `json:"ok"`
		Config config.DBConfig `json:"config"`
	}{OK: ok, Config: spec})
}

// handleConnect tests the posted connection and returns its tables on success.
func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	var spec config.DBConfig
	if err := json.NewDecoder(r.Body).Decode(&spec); err != nil {
		writeError(w, errs.Wrap(errs.KindInvalidInput, "invalid json", err))
		return
	}
	if err := spec.Validate(); err != nil {
		writeError(w, errs.Wrap(errs.KindInvalidInput, "invalid connection parameters", err))
		return
	}

	tables, err := db.Introspect(r.Context(), spec, s.timeout)
	if err != nil {
		writeError(w, err)
		return
	}
	s.setActive(spec)
	logger.Info("connected to %s database, %d tables", spec.Type, len(tables))

	writeJSON(w, http.StatusOK, tablesResponse{OK: true, Tables: tables})
}

// handleTables lists the tables of the active connection.
func (s *Server) handleTables(w http.ResponseWriter, r *http.Request) {
	tables, err := s.activeTables(r)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tablesResponse{OK: true, Tables: tables})
}

// handleGenerate documents the named tables of the active connection.
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if s.assembler == nil {
		writeError(w, errs.New(errs.KindGeneration, "generation is not configured; set an API key"))
		return
	}
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errs.Wrap(errs.KindInvalidInput, "invalid json", err))
		return
	}

	tables, err := s.activeTables(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if unknown := introspect.SelectByName(tables, req.Tables); len(unknown) > 0 {
		writeError(w, errs.Newf(errs.KindInvalidInput, "unknown tables: %s", strings.Join(unknown, ", ")))
		return
	}

	log := logger.With("request", middleware.GetReqID(r.Context()))
	log.Info("generating documentation for %d tables", len(introspect.Selected(tables)))
	doc, err := s.assembler.Generate(r.Context(), tables, docgen.ProgressFunc(func(msg string, step, total int) {
		log.Info("[%d/%d] %s", step, total, msg)
	}))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, generateResponse{OK: true, Markdown: doc})
}

func (s *Server) activeTables(r *http.Request) ([]introspect.Table, error) {
	spec, ok := s.getActive()
	if !ok {
		return nil, errs.New(errs.KindInvalidInput, "no active connection; POST /api/connect to create one")
	}
	return db.Introspect(r.Context(), spec, s.timeout)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("write response: %v", err)
	}
}

// statusFor maps an error kind to the HTTP status reported for it.
func statusFor(kind errs.Kind) int {
	switch kind {
	case errs.KindInvalidInput, errs.KindNoSelection:
		return http.StatusBadRequest
	case errs.KindConnection, errs.KindGeneration:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	kind := errs.KindOf(err)
	status := statusFor(kind)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed: %v", err)
	}
	msg := err.Error()
	var e *errs.Error
	if errors.As(err, &e) && e.Message != "" && kind == errs.KindConnection {
		// driver errors can echo the DSN, password included
		msg = e.Message
	}
	writeJSON(w, status, errorResponse{Kind: kind.String(), Error: msg})
}
