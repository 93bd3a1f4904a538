// Package web serves a read-only JSON status API over the history store and
// the event database, plus a Server-Sent Events stream of solve progress.
package web

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/lucasnoah/proofmill/internal/db"
	"github.com/lucasnoah/proofmill/internal/history"
)

// Server is the read-only status API server.
type Server struct {
	store *history.Store
	db    *db.DB
	port  int
}

// NewServer creates a Server over the given store and event database.
func NewServer(store *history.Store, database *db.DB, port int) *Server {
	return &Server{store: store, db: database, port: port}
}

// Handler returns the route table. Split out from Run for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /api/solves", s.handleListSolves)
	mux.HandleFunc("GET /api/solves/{id}", s.handleGetSolve)
	mux.HandleFunc("GET /api/solves/{id}/final", s.handleGetFinal)
	mux.HandleFunc("GET /api/solves/{id}/events", s.handleEventStream)
	mux.HandleFunc("GET /api/analytics", s.handleAnalytics)
	return mux
}

// Run starts the server and blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Printf("status server listening on :%d", s.port)
		errc <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errc:
		return err
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
