package coordinator

import (
	"github.com/prometheus/client_golang/prometheus"
)

// metrics bundles the coordinator's prometheus instruments on a private
// registry (rather than the global default) so multiple Coordinators can
// coexist in the same process, e.g. across tests, without a duplicate
// registration panic. Grounded on qwezertino-pixi_node_game's use of
// client_golang counters for tick/event accounting in its game world.
type metrics struct {
	registry       *prometheus.Registry
	activeGames    prometheus.Gauge
	activePlayers  prometheus.Gauge
	playersJoined  prometheus.Counter
	ticksProcessed prometheus.Counter
	gamesFinished  prometheus.Counter
	collisions     *prometheus.CounterVec
}

func newMetrics() *metrics {
	reg := prometheus.NewRegistry()
	m := &metrics{
		registry: reg,
		activeGames: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "lightcycle_active_games",
			Help: "Number of games currently in the Waiting or Running state.",
		}),
		activePlayers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "lightcycle_active_players",
			Help: "Number of players currently seated in an active game.",
		}),
		playersJoined: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lightcycle_players_joined_total",
			Help: "Total number of successful join_game calls.",
		}),
		ticksProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lightcycle_ticks_processed_total",
			Help: "Total number of engine ticks processed across all games.",
		}),
		gamesFinished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lightcycle_games_finished_total",
			Help: "Total number of games that reached the Finished state with a scored outcome.",
		}),
		collisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lightcycle_collisions_total",
			Help: "Total player deaths, partitioned by collision cause.",
		}, []string{"cause"}),
	}
	reg.MustRegister(m.activeGames, m.activePlayers, m.playersJoined, m.ticksProcessed, m.gamesFinished, m.collisions)
	return m
}

// Registry exposes the private prometheus registry for the HTTP API to
// mount with promhttp.HandlerFor.
func (m *metrics) Registry() *prometheus.Registry {
	return m.registry
}
