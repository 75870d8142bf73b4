// Package api exposes the admin and inspection HTTP surface: stored sessions
// and reservations, registered collaborators, collaborator latency summaries
// and the administrative kill-switch.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/evroam/roaminghub/core/collaborator"
	"github.com/evroam/roaminghub/core/dispatch"
	"github.com/evroam/roaminghub/core/reservation"
	"github.com/evroam/roaminghub/core/session"
	"github.com/evroam/roaminghub/infra/logger"
	"github.com/evroam/roaminghub/infra/metrics"
)

// Server wires the HTTP handlers to the hub's components.
type Server struct {
	Dispatcher   *dispatch.Dispatcher
	Registry     *collaborator.Registry
	Sessions     session.Store
	Reservations reservation.Store
	Latency      *metrics.LatencyTracker
	Log          logger.Logger
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Get("/v1/sessions", s.ListSessions)
	r.Get("/v1/sessions/{sessionId}", s.GetSession)
	r.Get("/v1/reservations", s.ListReservations)
	r.Get("/v1/reservations/{reservationId}", s.GetReservation)
	r.Get("/v1/reservations/{reservationId}/history", s.GetReservationHistory)
	r.Get("/v1/collaborators", s.ListCollaborators)
	r.Get("/v1/stats/latency", s.LatencyStats)
	r.Get("/v1/admin/status", s.GetAdminStatus)
	r.Put("/v1/admin/status", s.SetAdminStatus)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	return r
}

// Run serves the API until the context is canceled.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Routes()}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.Log.Errorf("api shutdown: %v", err)
		}
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// ListSessions returns all stored sessions.
func (s *Server) ListSessions(w http.ResponseWriter, r *http.Request) {
	items, err := s.Sessions.List(r.Context())
	if err != nil {
		http.Error(w, "store error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

// GetSession returns one session by id.
func (s *Server) GetSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionId")
	sess, err := s.Sessions.Get(r.Context(), id)
	if errors.Is(err, session.ErrNotFound) {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "store error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// ListReservations returns the latest version of every reservation.
func (s *Server) ListReservations(w http.ResponseWriter, r *http.Request) {
	items, err := s.Reservations.List(r.Context())
	if err != nil {
		http.Error(w, "store error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

// GetReservation returns the latest version of one reservation.
func (s *Server) GetReservation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "reservationId")
	res, err := s.Reservations.GetLatest(r.Context(), id)
	if errors.Is(err, reservation.ErrNotFound) {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "store error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// GetReservationHistory returns every stored version of one reservation.
func (s *Server) GetReservationHistory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "reservationId")
	versions, err := s.Reservations.History(r.Context(), id)
	if errors.Is(err, reservation.ErrNotFound) {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "store error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": versions})
}

type collaboratorInfo struct {
	ID   string `json:"id"`
	Role string `json:"role"`
}

// ListCollaborators returns the registered collaborators grouped by role.
func (s *Server) ListCollaborators(w http.ResponseWriter, r *http.Request) {
	grouped := map[string][]collaboratorInfo{}
	add := func(cs []collaborator.Collaborator) {
		for _, c := range cs {
			role := c.Role().String()
			grouped[role] = append(grouped[role], collaboratorInfo{ID: c.ID(), Role: role})
		}
	}
	add(s.Registry.Operators())
	add(s.Registry.RoamingProviders(collaborator.RoleCSORoaming))
	add(s.Registry.RoamingProviders(collaborator.RoleEMPRoaming))
	add(s.Registry.DirectProviders())
	writeJSON(w, http.StatusOK, grouped)
}

// LatencyStats returns per-collaborator delegated-call latency summaries.
func (s *Server) LatencyStats(w http.ResponseWriter, r *http.Request) {
	if s.Latency == nil {
		writeJSON(w, http.StatusOK, map[string]any{"items": []metrics.LatencySummary{}})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": s.Latency.Summaries()})
}

type adminStatus struct {
	Operational bool `json:"operational"`
}

// GetAdminStatus reports the kill-switch state.
func (s *Server) GetAdminStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, adminStatus{Operational: s.Dispatcher.Operational()})
}

// SetAdminStatus flips the kill-switch state.
func (s *Server) SetAdminStatus(w http.ResponseWriter, r *http.Request) {
	var req adminStatus
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	s.Dispatcher.SetOperational(req.Operational)
	s.Log.Warnf("admin status set to operational=%t", req.Operational)
	writeJSON(w, http.StatusOK, adminStatus{Operational: s.Dispatcher.Operational()})
}
