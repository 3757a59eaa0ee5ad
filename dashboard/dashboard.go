package dashboard

/*
Local operator dashboard. Serves the bot state as JSON plus the rendered price charts,
and exposes the one mutating action automation cannot take on its own: resetting a
paused conversation back to negotiating.
*/

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"marketbot/config"
	"marketbot/store"
)

// Server exposes bot state over a local HTTP listener.
type Server struct {
	store *store.Store
}

// New builds a dashboard server over the given store.
func New(st *store.Store) *Server {
	return &Server{store: st}
}

// Router assembles the API routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	r.Get("/api/stats", s.handleStats)
	r.Get("/api/conversations", s.handleConversations)
	r.Get("/api/conversations/{id}", s.handleConversation)
	r.Post("/api/conversations/{id}/reset", s.handleReset)
	r.Get("/api/listings", s.handleListings)

	//Rendered asking-price trend charts
	r.Handle("/charts/*", http.StripPrefix("/charts/", http.FileServer(http.Dir(config.ChartDir))))

	return r
}

// ListenAndServe runs the dashboard until the listener fails.
func (s *Server) ListenAndServe(addr string) error {
	log.Info().Str("addr", addr).Msg("Dashboard listening")
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.Router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return srv.ListenAndServe()
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.ComputeStats())
}

func (s *Server) handleConversations(w http.ResponseWriter, r *http.Request) {
	convs := s.store.Conversations()
	if phase := r.URL.Query().Get("phase"); phase != "" {
		filtered := convs[:0]
		for _, c := range convs {
			if string(c.Phase) == phase {
				filtered = append(filtered, c)
			}
		}
		convs = filtered
	}
	writeJSON(w, http.StatusOK, convs)
}

func (s *Server) handleConversation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	c, ok := s.store.GetConversation(id)
	if !ok {
		writeError(w, http.StatusNotFound, "conversation not found")
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// handleReset is the operator action that resumes a paused conversation.
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.store.ResetConversation(id); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	c, _ := s.store.GetConversation(id)
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleListings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.Listings())
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Dashboard response write failed")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Debug().Str("method", r.Method).Str("path", r.URL.Path).
			Dur("elapsed", time.Since(start)).Msg("Dashboard request")
	})
}
