// Package server exposes the fleet snapshot over HTTP.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/crewpulse/crewpulse/internal/metrics"
	"github.com/crewpulse/crewpulse/internal/presence"
	"github.com/crewpulse/crewpulse/internal/snapshot"
)

// SnapshotSource supplies the latest published snapshot. The snapshot
// cycle implements it; tests use stubs.
type SnapshotSource interface {
	Current() *snapshot.Snapshot
}

// Server is the read-side HTTP endpoint. It never blocks on a snapshot
// cycle tick: requests serve whatever snapshot was published last.
type Server struct {
	source SnapshotSource
	logger *slog.Logger
	srv    *http.Server
}

// New creates a server for the given address and snapshot source.
func New(addr string, source SnapshotSource, logger *slog.Logger) *Server {
	s := &Server{
		source: source,
		logger: logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/fleet", s.recovered(s.handleFleet))
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})
	mux.Handle("GET /metrics", promhttp.Handler())

	s.srv = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Start begins serving. Blocks until the listener fails or Shutdown is
// called.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.srv.Addr)
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// AgentView is one agent row in the fleet response.
type AgentView struct {
	ID           string              `json:"id"`
	Name         string              `json:"name"`
	Role         string              `json:"role"`
	Coordinator  bool                `json:"coordinator"`
	State        presence.State      `json:"state"`
	Reason       string              `json:"reason"`
	Color        string              `json:"color"`
	Pulse        bool                `json:"pulse"`
	LastActivity *time.Time          `json:"last_activity,omitempty"`
	Tasks        *presence.TaskStats `json:"tasks"`
}

// FleetResponse is the full read endpoint payload.
type FleetResponse struct {
	Agents    []AgentView        `json:"agents"`
	Totals    presence.TaskStats `json:"totals"`
	GatewayUp bool               `json:"gateway_up"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// handleFleet serves the latest snapshot. Agents arrive already sorted
// for display (coordinator first, then severity).
func (s *Server) handleFleet(w http.ResponseWriter, r *http.Request) {
	snap := s.source.Current()
	if snap == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "no snapshot yet"})
		return
	}

	resp := FleetResponse{
		Agents:    make([]AgentView, 0, len(snap.Agents)),
		Totals:    snap.Totals(),
		GatewayUp: snap.GatewayUp,
		UpdatedAt: snap.ComputedAt,
	}
	for _, a := range snap.Agents {
		resp.Agents = append(resp.Agents, AgentView{
			ID:           a.Agent.ID,
			Name:         a.Agent.Name,
			Role:         a.Agent.Role,
			Coordinator:  a.Agent.Coordinator,
			State:        a.State,
			Reason:       a.Reason,
			Color:        a.State.ColorClass(),
			Pulse:        a.State.Pulse(),
			LastActivity: a.LastActivity,
			Tasks:        a.Tasks,
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

// recovered wraps a handler so an unexpected panic answers with a generic
// failure instead of crashing the server or leaking internals.
func (s *Server) recovered(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				metrics.EndpointErrors.Inc()
				s.logger.Error("endpoint failure", "path", r.URL.Path, "panic", rec)
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
			}
		}()
		h(w, r)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
