// Package coordinator is the concurrency core named in spec.md SS4.4: it
// owns every active game, admits agents into lobbies, drives ticks on a
// timer, and suspends/wakes agent calls in lockstep with the tick
// boundary that consumed their intent.
package coordinator

import (
	"context"
	"log/slog"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/lightcycle-mcp/arena/internal/engine"
	"github.com/lightcycle-mcp/arena/internal/grid"
	"github.com/lightcycle-mcp/arena/internal/persistence"
	"github.com/lightcycle-mcp/arena/internal/scoring"
	"github.com/lightcycle-mcp/arena/internal/world"
)

// Publisher receives a best-effort notification every time a game's
// world changes. Implementations (the SSE hub, in production) must never
// block the caller; the coordinator treats this as fire-and-forget.
type Publisher interface {
	Publish(eventType string, snapshot world.World)
}

type noopPublisher struct{}

func (noopPublisher) Publish(string, world.World) {}

type sessionRef struct {
	game  *game
	index int
}

// Coordinator is the top-level, server-wide concurrency owner.
type Coordinator struct {
	cfg         Config
	logger      *slog.Logger
	leaderboard *scoring.Leaderboard
	store       *persistence.Store
	publisher   Publisher
	metrics     *metrics

	mu       sync.RWMutex
	games    map[string]*game   // all active (Waiting or Running) games
	lobbies  map[int]*game      // courseID -> the open Waiting lobby for it
	sessions map[string]sessionRef
	finished []world.World // bounded, oldest first
}

// New constructs a Coordinator. pub may be nil, in which case updates are
// simply not published anywhere (useful for tests and for `play`-only
// processes that never run a server).
func New(cfg Config, lb *scoring.Leaderboard, store *persistence.Store, pub Publisher, logger *slog.Logger) *Coordinator {
	if pub == nil {
		pub = noopPublisher{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	c := &Coordinator{
		cfg:         cfg,
		logger:      logger,
		leaderboard: lb,
		store:       store,
		publisher:   pub,
		metrics:     newMetrics(),
		games:       make(map[string]*game),
		lobbies:     make(map[int]*game),
		sessions:    make(map[string]sessionRef),
	}
	if store != nil {
		if snap, err := store.Load(); err != nil {
			logger.Warn("coordinator: failed to load persisted state", "error", err)
		} else {
			lb.LoadSnapshot(snap.Leaderboard)
			c.finished = snap.Finished
		}
	}
	return c
}

// Metrics exposes the coordinator's prometheus registry for the HTTP API
// to mount at /metrics.
func (c *Coordinator) Metrics() *metrics {
	return c.metrics
}

// Leaderboard exposes the coordinator's leaderboard for the HTTP API's
// GET /api/leaderboard.
func (c *Coordinator) Leaderboard() *scoring.Leaderboard {
	return c.leaderboard
}

// Join admits name into an open lobby at its earned course level,
// creating one if necessary, per spec.md SS4.4.
func (c *Coordinator) Join(name string) (JoinResult, error) {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > 32 {
		return JoinResult{}, newError(KindInternal, "player name must be 1-32 characters")
	}

	level := c.leaderboard.NextCourseFor(name, grid.MaxLevel())
	course := grid.ByLevel(level)

	c.mu.Lock()
	g, ok := c.lobbies[course.ID]
	if !ok {
		var err error
		g, err = newGame(c, course.ID, rand.Int63())
		if err != nil {
			c.mu.Unlock()
			return JoinResult{}, newError(KindInternal, "failed to create game: %v", err)
		}
		c.games[g.id] = g
		c.lobbies[course.ID] = g
		c.metrics.activeGames.Inc()
		go c.runLobby(g)
	}
	c.mu.Unlock()

	idx, token, joinErr := g.join(name)
	if joinErr != nil {
		return JoinResult{}, joinErr
	}

	c.mu.Lock()
	c.sessions[token] = sessionRef{game: g, index: idx}
	if g.playerCount() >= c.cfg.MaxPlayers {
		delete(c.lobbies, course.ID)
	}
	c.mu.Unlock()

	if g.playerCount() >= c.cfg.MaxPlayers {
		g.start()
	}

	c.metrics.playersJoined.Inc()
	c.metrics.activePlayers.Inc()
	return JoinResult{
		GameID:       g.id,
		PlayerIndex:  idx,
		SessionToken: token,
		CourseName:   course.Name,
		CourseLevel:  course.Level,
	}, nil
}

// runLobby polls a Waiting game until it starts (>=2 players after
// lobby_wait, or immediately at max_players) or is cancelled (still solo
// after solo_timeout), per spec.md S2/SS4.4.
func (c *Coordinator) runLobby(g *game) {
	const pollInterval = 500 * time.Millisecond
	createdAt := time.Now()
	lobbyDeadline := createdAt.Add(c.cfg.LobbyWait)
	soloDeadline := createdAt.Add(c.cfg.SoloTimeout)

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-g.stop:
			return
		case now := <-ticker.C:
			n := g.playerCount()
			if n >= c.cfg.MaxPlayers {
				c.removeLobby(g)
				g.start()
				return
			}
			if n >= 2 && now.After(lobbyDeadline) {
				c.removeLobby(g)
				g.start()
				return
			}
			if n < 2 && now.After(soloDeadline) {
				c.removeLobby(g)
				g.cancelSolo()
				return
			}
		}
	}
}

func (c *Coordinator) removeLobby(g *game) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lobbies[g.courseID] == g {
		delete(c.lobbies, g.courseID)
	}
}

// Steer submits a relative turn for the session's player and blocks
// until the tick that consumes it commits, per spec.md SS4.4/SS5.
func (c *Coordinator) Steer(ctx context.Context, token string, direction string) (StepResult, error) {
	turn, ok := world.ParseTurn(direction)
	if !ok {
		return StepResult{}, newError(KindInvalidDirection, "unrecognized direction %q", direction)
	}

	ref, found := c.lookupSession(token)
	if !found {
		return StepResult{}, newError(KindNoActiveSession, "no active session for this connection")
	}
	g := ref.game

	if !g.awaitStart(c.cfg.LobbyWait + c.cfg.CallTimeout) {
		return StepResult{}, newError(KindGameNotStarted, "game has not started")
	}
	if g.startErr != nil {
		return StepResult{}, g.startErr
	}

	g.mu.RLock()
	status := g.world.Status
	alive := ref.index < len(g.world.Players) && g.world.Players[ref.index].Alive
	view := g.world.View(ref.index, world.DefaultViewRadius)
	tick := g.world.Tick
	g.mu.RUnlock()

	if status == world.Finished || !alive {
		outcome := OutcomeCrashed
		if status == world.Finished && g.world.Winner != nil && *g.world.Winner == ref.index {
			outcome = OutcomeWon
		}
		result := StepResult{View: view, Outcome: outcome, Tick: tick, Status: status, Winner: g.world.Winner}
		return result, newError(KindPlayerDead, "player is no longer in play")
	}

	waiter := NewWaiter()
	g.turnsMu.Lock()
	g.pendingTurns[ref.index] = turn
	g.turnsMu.Unlock()
	g.waitersMu.Lock()
	g.waiters[ref.index] = waiter
	g.waitersMu.Unlock()

	result, ok := waiter.Wait(ctx, c.cfg.CallTimeout)
	if !ok {
		g.mu.RLock()
		view := g.world.View(ref.index, world.DefaultViewRadius)
		g.mu.RUnlock()
		return StepResult{View: view, Outcome: OutcomeWaiting}, newError(KindTimeout, "steer call timed out")
	}
	return result, nil
}

// Look returns the caller's current view without waiting for a tick.
func (c *Coordinator) Look(token string) (world.ViewFrame, error) {
	ref, found := c.lookupSession(token)
	if !found {
		return world.ViewFrame{}, newError(KindNoActiveSession, "no active session for this connection")
	}
	g := ref.game
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.world.View(ref.index, world.DefaultViewRadius), nil
}

// Status answers game_status, per spec.md SS4.4: a per-session view plus
// server-wide activity if a session is present, or just the server-wide
// state otherwise.
func (c *Coordinator) Status(token string) (StatusReport, error) {
	report := StatusReport{}

	if token != "" {
		ref, found := c.lookupSession(token)
		if !found {
			return StatusReport{}, newError(KindNoActiveSession, "no active session for this connection")
		}
		g := ref.game
		g.mu.RLock()
		view := g.world.View(ref.index, world.DefaultViewRadius)
		tick := g.world.Tick
		status := g.world.Status
		winner := g.world.Winner
		g.mu.RUnlock()
		report.PlayerView = &StepResult{View: view, Tick: tick, Status: status, Winner: winner}
	}

	c.mu.RLock()
	for _, g := range c.games {
		report.ActiveGames = append(report.ActiveGames, g.snapshot())
	}
	report.RecentFinished = len(c.finished)
	c.mu.RUnlock()

	rows := c.leaderboard.Top(10)
	report.LeaderboardTop = make([]LeaderboardRow, len(rows))
	for i, e := range rows {
		report.LeaderboardTop[i] = LeaderboardRow{
			Name: e.Name, Wins: e.Wins, TotalPoints: e.TotalPoints,
			GamesPlayed: e.GamesPlayed, HighestLevel: e.HighestLevel,
		}
	}
	return report, nil
}

// ActiveSnapshots returns a deep copy of every currently active game, for
// the HTTP API's GET /api/games.
func (c *Coordinator) ActiveSnapshots() []world.World {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]world.World, 0, len(c.games))
	for _, g := range c.games {
		out = append(out, g.snapshot())
	}
	return out
}

// FinishedSnapshots returns the bounded, most-recent-last finished-game
// history, for GET /api/games.
func (c *Coordinator) FinishedSnapshots() []world.World {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]world.World, len(c.finished))
	copy(out, c.finished)
	return out
}

func (c *Coordinator) lookupSession(token string) (sessionRef, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ref, ok := c.sessions[token]
	return ref, ok
}

// runTicks is the per-game tick-driver goroutine: the single owner of
// g.world for its entire lifetime.
func (c *Coordinator) runTicks(g *game) {
	ticker := time.NewTicker(c.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-g.stop:
			return
		case <-ticker.C:
			finished := c.tick(g)
			if finished {
				c.onGameFinished(g)
				return
			}
		}
	}
}

// tick advances g by exactly one engine step and wakes every player
// whose steer call is pending on this tick.
func (c *Coordinator) tick(g *game) (finished bool) {
	g.turnsMu.Lock()
	turns := g.pendingTurns
	g.pendingTurns = make(map[int]world.Turn)
	g.turnsMu.Unlock()

	g.mu.Lock()
	w := g.world

	headings := make(map[int]world.Direction, len(w.Players))
	for i, p := range w.Players {
		if !p.Alive {
			continue
		}
		if t, ok := turns[i]; ok {
			w.Players[i].DefaultStreak = 0
			headings[i] = t.Resolve(p.Direction)
		} else {
			w.Players[i].DefaultStreak++
			headings[i] = p.Direction
			if w.Players[i].DefaultStreak >= c.cfg.InactivityTicks {
				w.Players[i].Alive = false
			}
		}
	}

	next, report := engine.Step(w, headings)
	if report.Finished {
		now := time.Now()
		next.FinishedAt = &now
	}
	g.world = next
	g.mu.Unlock()

	c.metrics.ticksProcessed.Inc()
	for _, cause := range report.Deaths {
		c.metrics.collisions.WithLabelValues(cause.String()).Inc()
	}

	g.waitersMu.Lock()
	pending := g.waiters
	g.waiters = make(map[int]*Waiter)
	g.waitersMu.Unlock()

	for idx, waiter := range pending {
		result := StepResult{
			Tick:   next.Tick,
			Status: next.Status,
			Winner: next.Winner,
		}
		if idx < len(next.Players) {
			result.View = next.View(idx, world.DefaultViewRadius)
			result.Cause = report.Deaths[idx]
			switch {
			case next.Winner != nil && *next.Winner == idx:
				result.Outcome = OutcomeWon
			case !next.Players[idx].Alive:
				result.Outcome = OutcomeCrashed
			default:
				result.Outcome = OutcomeAlive
			}
		}
		waiter.Fulfill(result)
	}

	c.publisher.Publish("game_update", next)
	return report.Finished
}

func (c *Coordinator) onGameFinished(g *game) {
	snapshot := g.snapshot()

	c.mu.Lock()
	delete(c.games, g.id)
	c.metrics.activeGames.Dec()
	c.metrics.activePlayers.Sub(float64(len(snapshot.Players)))
	c.finished = append(c.finished, snapshot)
	if len(c.finished) > c.cfg.RetainFinished {
		c.finished = c.finished[len(c.finished)-c.cfg.RetainFinished:]
	}
	finishedCopy := make([]world.World, len(c.finished))
	copy(finishedCopy, c.finished)
	c.mu.Unlock()

	if !g.noScore {
		results := scoring.Award(snapshot)
		c.leaderboard.Apply(results, snapshot.CourseLevel)
		c.metrics.gamesFinished.Inc()
	}

	if c.store != nil {
		if err := c.store.SaveAfterGame(c.leaderboard.Snapshot(), finishedCopy); err != nil {
			c.logger.Warn("coordinator: failed to persist after game", "game_id", g.id, "error", err)
		}
	}

	c.publisher.Publish("game_finished", snapshot)
	g.close()
}
