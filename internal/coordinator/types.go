package coordinator

import (
	"time"

	"github.com/lightcycle-mcp/arena/internal/engine"
	"github.com/lightcycle-mcp/arena/internal/world"
)

// Config bundles the coordinator's tunable timing and capacity knobs,
// each defaulted per spec.md.
type Config struct {
	MaxPlayers      int
	LobbyWait       time.Duration
	SoloTimeout     time.Duration
	TickInterval    time.Duration
	CallTimeout     time.Duration
	InactivityTicks int
	RetainFinished  int
}

// DefaultConfig returns the spec's defaults: 8 max players, 500ms ticks,
// a 10s per-call timeout, 60s solo-game cancellation, 20-tick inactivity
// tolerance and a 200-game finished-history retention.
func DefaultConfig() Config {
	return Config{
		MaxPlayers:      8,
		LobbyWait:       10 * time.Second,
		SoloTimeout:     60 * time.Second,
		TickInterval:    500 * time.Millisecond,
		CallTimeout:     10 * time.Second,
		InactivityTicks: 20,
		RetainFinished:  200,
	}
}

// Outcome is the per-call result line a steer response carries, per
// spec.md SS6 ("alive", "crashed", "won", "waiting").
type Outcome string

const (
	OutcomeAlive   Outcome = "alive"
	OutcomeCrashed Outcome = "crashed"
	OutcomeWon     Outcome = "won"
	OutcomeWaiting Outcome = "waiting"
)

// StepResult is what a fulfilled Waiter delivers: the calling player's
// fresh view plus enough state to render the outcome line.
type StepResult struct {
	View    world.ViewFrame
	Outcome Outcome
	Tick    int
	Status  world.Status
	Winner  *int
	Cause   engine.Cause
}

// JoinResult is what a successful join returns to the gateway.
type JoinResult struct {
	GameID       string
	PlayerIndex  int
	SessionToken string
	CourseName   string
	CourseLevel  int
}

// StatusReport answers game_status. PlayerView is nil when no session
// was supplied, per spec.md SS4.4.
type StatusReport struct {
	PlayerView     *StepResult
	ActiveGames    []world.World
	RecentFinished int
	LeaderboardTop []LeaderboardRow
}

// LeaderboardRow is one ranked entry handed to the gateway/API.
type LeaderboardRow struct {
	Name         string `json:"name"`
	Wins         int    `json:"wins"`
	TotalPoints  int    `json:"total_points"`
	GamesPlayed  int    `json:"games_played"`
	HighestLevel int    `json:"highest_level"`
}
