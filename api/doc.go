// Package api provides the read-only HTTP surface for the Light-Cycle
// Arena, per spec.md SS6.
//
// Endpoints:
//
//	GET /api/games       - active games plus recently finished history
//	GET /api/leaderboard - every tracked player's standing
//	GET /api/stream      - server-sent events: game_started, game_update,
//	                       game_finished
//	GET /metrics         - Prometheus exposition of the coordinator's
//	                       counters and gauges
//	GET /healthz         - liveness probe
//
// Every route here is observational. Agents change game state exclusively
// through the MCP tool gateway in transport/mcp; this package never calls
// into the coordinator's Join/Steer path.
package api
