// Package web provides the HTTP status and control surfaces of the blinker daemon.
//
// The same handler set is served on two listeners: a read-only TCP listener
// for the status page, and a writable listener on a local Unix socket where
// the interval can be changed.
package web

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/sweeney/gpio-blinker/internal/interval"
	"github.com/sweeney/gpio-blinker/internal/status"
)

// maxBody bounds the size of an interval write.
const maxBody = 64

// Interval is the get/set surface served at /interval.
type Interval interface {
	Get() string
	Set(text string) error
}

// Server serves the status page and interval endpoint over HTTP.
type Server struct {
	httpServer *http.Server
	tracker    *status.Tracker
	interval   Interval
	writable   bool
}

// Option configures a Server.
type Option func(*Server)

// WithInterval serves iv at /interval. Writes are only accepted when
// writable is true.
func WithInterval(iv Interval, writable bool) Option {
	return func(s *Server) {
		s.interval = iv
		s.writable = writable
	}
}

// New creates a Server that reads state from the given tracker.
func New(addr string, tracker *status.Tracker, opts ...Option) *Server {
	s := &Server{tracker: tracker}
	for _, opt := range opts {
		opt(s)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/index.html", s.handleIndex)
	mux.HandleFunc("/index.json", s.handleJSON)
	mux.HandleFunc("/interval", s.handleInterval)

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: mux,
	}
	return s
}

// Handler returns the root handler. Useful for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// ListenAndServe starts listening. It blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on the given listener.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" && r.URL.Path != "/index.html" {
		http.NotFound(w, r)
		return
	}
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	renderHTML(w, snap)
}

func (s *Server) handleJSON(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	w.Write(status.FormatJSON(snap))
}

func (s *Server) handleInterval(w http.ResponseWriter, r *http.Request) {
	if s.interval == nil {
		http.NotFound(w, r)
		return
	}

	switch r.Method {
	case http.MethodGet, http.MethodHead:
		writeText(w, http.StatusOK, s.interval.Get())

	case http.MethodPut, http.MethodPost:
		if !s.writable {
			w.Header().Set("Allow", "GET, HEAD")
			writeText(w, http.StatusMethodNotAllowed, "interval is read-only on this listener")
			return
		}

		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBody))
		if err != nil {
			writeText(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("body exceeds %d bytes", maxBody))
			return
		}

		if err := s.interval.Set(string(body)); err != nil {
			writeText(w, statusForError(err), err.Error())
			return
		}
		writeText(w, http.StatusOK, s.interval.Get())

	default:
		w.Header().Set("Allow", "GET, HEAD, PUT, POST")
		writeText(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, interval.ErrInvalidFormat):
		return http.StatusBadRequest
	case errors.Is(err, interval.ErrOutOfRange):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func writeText(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(code)
	io.WriteString(w, strings.TrimRight(msg, "\n")+"\n")
}
