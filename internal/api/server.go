// Package api serves finished session notes and the discovered-paper log
// over a small read-only HTTP surface.
package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"litscout/internal/config"
	"litscout/internal/store"

	"go.uber.org/zap"
)

type Server struct {
	cfg      config.Config
	sessions *store.SessionStore
	log      *zap.Logger
}

func NewServer(cfg config.Config, sessions *store.SessionStore, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{cfg: cfg, sessions: sessions, log: log}
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/api/sessions", s.handleSessions)
	mux.HandleFunc("/api/sessions/", s.handleSessionScoped)
	mux.HandleFunc("/api/papers", s.handlePapers)
	return withCORS(mux)
}

func (s *Server) ListenAndServe() error {
	s.log.Info("api listening", zap.String("addr", s.cfg.APIAddr))
	return http.ListenAndServe(s.cfg.APIAddr, s.Routes())
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	ids, err := s.sessions.ListSessions()
	if err != nil {
		s.log.Error("list sessions failed", zap.Error(err))
		writeErr(w, http.StatusInternalServerError, "could not list sessions")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": ids})
}

func (s *Server) handleSessionScoped(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	sessionID := strings.TrimPrefix(r.URL.Path, "/api/sessions/")
	if sessionID == "" || strings.Contains(sessionID, "/") {
		writeErr(w, http.StatusNotFound, "not found")
		return
	}
	note, err := s.sessions.LoadNote(sessionID)
	if err != nil {
		writeErr(w, http.StatusNotFound, "not found")
		return
	}
	writeJSON(w, http.StatusOK, note)
}

func (s *Server) handlePapers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	papers, err := s.sessions.ReadPaperLog()
	if err != nil {
		s.log.Error("read paper log failed", zap.Error(err))
		writeErr(w, http.StatusInternalServerError, "could not read paper log")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"papers": papers})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]any{"error": msg})
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Allow-Methods", "GET,OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
