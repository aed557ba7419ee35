// Package api is the read-only HTTP surface named in spec.md SS6:
// GET /api/games, GET /api/leaderboard, GET /api/stream and GET /metrics.
// Routing and response helpers follow the teacher's api/server.go.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lightcycle-mcp/arena/internal/coordinator"
	"github.com/lightcycle-mcp/arena/internal/scoring"
)

// Server is the read-only REST/SSE front door onto a Coordinator. Unlike
// the teacher's Server, nothing here mutates game state: that only ever
// happens through the MCP gateway's tools, per spec.md SS4.8 ("the HTTP
// surface is observational, not a second control plane").
type Server struct {
	coord  *coordinator.Coordinator
	hub    *Hub
	router *mux.Router
}

// NewServer builds the API server and wires its routes. hub may be nil,
// in which case GET /api/stream answers 503.
func NewServer(coord *coordinator.Coordinator, hub *Hub) *Server {
	s := &Server{
		coord:  coord,
		hub:    hub,
		router: mux.NewRouter(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/games", s.handleGames).Methods("GET")
	api.HandleFunc("/leaderboard", s.handleLeaderboard).Methods("GET")
	api.HandleFunc("/stream", s.handleStream).Methods("GET")

	s.router.HandleFunc("/healthz", s.handleHealth).Methods("GET")
	s.router.Handle("/metrics", promhttp.HandlerFor(s.coord.Metrics().Registry(), promhttp.HandlerOpts{}))
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// handleGames answers GET /api/games with the currently active games plus
// the bounded recently-finished history, the GameSnapshot shape from
// spec.md SS6.
func (s *Server) handleGames(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"active":   s.coord.ActiveSnapshots(),
		"finished": s.coord.FinishedSnapshots(),
	})
}

// handleLeaderboard answers GET /api/leaderboard with a bare, ordered
// array of every tracked player's standing, most points first, per
// spec.md SS6.
func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	entries := s.coord.Leaderboard().Snapshot()
	rows := make([]coordinator.LeaderboardRow, len(entries))
	for i, e := range entries {
		rows[i] = toRow(e)
	}
	respondJSON(w, http.StatusOK, rows)
}

func toRow(e scoring.Entry) coordinator.LeaderboardRow {
	return coordinator.LeaderboardRow{
		Name: e.Name, Wins: e.Wins, TotalPoints: e.TotalPoints,
		GamesPlayed: e.GamesPlayed, HighestLevel: e.HighestLevel,
	}
}

// handleStream answers GET /api/stream: a standing SSE connection
// broadcasting game_update/game_started/game_finished events. Grounded on
// the teacher's handleWebSocket, with the WebSocket upgrade itself
// replaced by the Hub's text/event-stream response (see DESIGN.md for why
// gorilla/websocket was dropped in favor of SSE here).
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		respondError(w, http.StatusServiceUnavailable, "event stream is not enabled on this server")
		return
	}
	s.hub.ServeHTTP(w, r)
}

// handleHealth is a liveness probe, grounded on the teacher's own
// (unused-by-router, but present) handleHealth.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}
