// Package web provides the local status and configuration pages.
package web

import (
	"context"
	"log"
	"net/http"

	"github.com/toblum/McGarager/internal/config"
	"github.com/toblum/McGarager/internal/logic"
	"github.com/toblum/McGarager/internal/status"
)

// Server serves the status and configuration pages over HTTP.
type Server struct {
	httpServer *http.Server
	tracker    *status.Tracker
	store      *config.Store
	telemetry  status.Telemetry
	door       DoorReader
}

// DoorReader samples the endstop sensors. The controller implements it and
// records the reading in the tracker.
type DoorReader interface {
	Refresh() (logic.DoorState, error)
}

// New creates a Server that reads state from the given tracker and edits
// settings in store. When door is non-nil every page render reads the
// sensors first, so the page never shows a stale door state.
func New(addr string, tracker *status.Tracker, store *config.Store, telemetry status.Telemetry, door DoorReader) *Server {
	s := &Server{tracker: tracker, store: store, telemetry: telemetry, door: door}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/index.html", s.handleIndex)
	mux.HandleFunc("/index.json", s.handleJSON)
	mux.Handle("/config", s.requireAdmin(http.HandlerFunc(s.handleConfig)))

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: mux,
	}
	return s
}

// Handler returns the server's request router.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// ListenAndServe starts listening. It blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
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
	snap := s.snapshot()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	renderIndex(w, snap, s.store.Get())
}

func (s *Server) handleJSON(w http.ResponseWriter, r *http.Request) {
	snap := s.snapshot()
	w.Header().Set("Content-Type", "application/json")
	w.Write(status.FormatJSON(snap))
}

func (s *Server) snapshot() status.Snapshot {
	if s.door != nil {
		if _, err := s.door.Refresh(); err != nil {
			log.Printf("web: gpio read error: %v", err)
		}
	}
	snap := s.tracker.Snapshot()
	if s.telemetry != nil {
		snap.Host = s.telemetry.Sample()
	}
	return snap
}

// requireAdmin enforces HTTP basic auth against the stored admin password.
func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || !s.store.Authenticate(user, pass) {
			if ok {
				log.Printf("web: rejected credentials for %q from %s", user, r.RemoteAddr)
			}
			w.Header().Set("WWW-Authenticate", `Basic realm="`+s.store.Get().ThingName+`"`)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
