package coordinator

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lightcycle-mcp/arena/internal/grid"
	"github.com/lightcycle-mcp/arena/internal/world"
)

// game is one active or recently-finished match. Every access to its
// world field goes through mu: join, start and cancelSolo write it under
// the write lock for lobby and lifecycle changes, the tick-driver
// goroutine (runTicks) writes it under the write lock for each tick, and
// every other reader takes the read lock, per spec.md SS5 / SS9.
type game struct {
	id        string
	courseID  int
	courseLvl int
	seed      int64

	coord *Coordinator

	mu    sync.RWMutex
	world world.World

	// turnsMu guards pendingTurns, the one piece of per-game state a
	// caller's own goroutine (steer) writes between ticks. It is
	// deliberately separate from mu/world so a steer call never has to
	// touch the world lock to register an intent.
	turnsMu      sync.Mutex
	pendingTurns map[int]world.Turn

	waitersMu sync.Mutex
	waiters   map[int]*Waiter

	names map[string]int // lowercase name -> player index, within this game

	started  chan struct{}
	startErr error // set if the game never started (solo cancellation)

	stop     chan struct{}
	stopOnce sync.Once

	noScore bool // true for a solo-cancelled game: no leaderboard update
}

func newGame(coord *Coordinator, courseID int, seed int64) (*game, error) {
	tmpl, err := grid.Generate(courseID, seed)
	if err != nil {
		return nil, err
	}
	w := tmpl.World
	w.CreatedAt = time.Now()
	w.Status = world.Waiting

	return &game{
		id:           uuid.NewString(),
		courseID:     courseID,
		courseLvl:    w.CourseLevel,
		seed:         seed,
		coord:        coord,
		world:        w,
		pendingTurns: make(map[int]world.Turn),
		waiters:      make(map[int]*Waiter),
		names:        make(map[string]int),
		started:      make(chan struct{}),
		stop:         make(chan struct{}),
	}, nil
}

// spawnPoints returns the course template's spawn list, recomputed
// lazily from the same (courseID, seed) pair rather than stored, since
// Generate is a pure function and the game already carries both inputs.
func (g *game) spawnPoints() []grid.SpawnPoint {
	tmpl, err := grid.Generate(g.courseID, g.seed)
	if err != nil {
		return nil
	}
	return tmpl.SpawnPoints
}

// join admits name into the lobby, returning the new player's index and
// a fresh session token. Lobby selection is done by the caller
// (Coordinator.Join) beforehand, and the Coordinator's own lock is not
// held during this call; join only protects this game's own name/player
// table.
func (g *game) join(name string) (index int, token string, err *Error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	key := strings.ToLower(name)
	if _, taken := g.names[key]; taken {
		return 0, "", newError(KindNameTaken, "name %q is already in this game", name)
	}
	if len(g.world.Players) >= g.coord.cfg.MaxPlayers {
		return 0, "", newError(KindGameFull, "game %s has reached its player limit", g.id)
	}

	spawns := g.spawnPoints()
	idx := len(g.world.Players)
	if idx >= len(spawns) {
		return 0, "", newError(KindGameFull, "game %s has no remaining spawn point for a new player", g.id)
	}
	sp := spawns[idx]
	tok := uuid.NewString()
	g.world.Players = append(g.world.Players, world.Player{
		Index:        idx,
		Name:         name,
		X:            sp.X,
		Y:            sp.Y,
		Direction:    sp.Direction,
		Alive:        true,
		SessionToken: tok,
	})
	g.names[key] = idx
	return idx, tok, nil
}

// playerCount reports the current roster size under a read lock.
func (g *game) playerCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.world.Players)
}

// snapshot returns a deep, independent copy of the current world, safe
// to read or serialize after the lock is released.
func (g *game) snapshot() world.World {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.world.Clone()
}

// start transitions the game from Waiting to Running and launches its
// tick-driver goroutine. Calls made once the game has left Waiting are
// no-ops, so Join and runLobby may both call it.
func (g *game) start() {
	g.mu.Lock()
	if g.world.Status != world.Waiting {
		g.mu.Unlock()
		return
	}
	now := time.Now()
	g.world.Status = world.Running
	g.world.StartedAt = &now
	snapshot := g.world.Clone()
	g.mu.Unlock()

	g.coord.publisher.Publish("game_started", snapshot)

	close(g.started)
	go g.coord.runTicks(g)
}

// cancelSolo finishes the game without ever having run a tick, per
// spec.md S2: a lobby that never reaches two players within solo_timeout
// is cancelled with no winner and no leaderboard change.
func (g *game) cancelSolo() {
	g.mu.Lock()
	now := time.Now()
	g.world.Status = world.Finished
	g.world.FinishedAt = &now
	g.noScore = true
	g.mu.Unlock()

	g.startErr = newError(KindGameNotStarted, "game %s was cancelled: not enough players joined", g.id)
	close(g.started)
	g.coord.onGameFinished(g)
}

// awaitStart blocks until the game leaves Waiting or timeout elapses.
func (g *game) awaitStart(timeout time.Duration) bool {
	select {
	case <-g.started:
		return true
	case <-time.After(timeout):
		return false
	}
}

func (g *game) close() {
	g.stopOnce.Do(func() { close(g.stop) })
}
