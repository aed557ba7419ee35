package mcp

import (
	"strings"
	"testing"

	"github.com/lightcycle-mcp/arena/internal/coordinator"
	"github.com/lightcycle-mcp/arena/internal/world"
)

// S6 (view framing): a player near a corner sees walls on the clipped
// sides and '@' at the center.
func TestRenderViewShowsWallsAtClippedBorderAndSelfAtCenter(t *testing.T) {
	w := world.World{Width: 30, Height: 30, Grid: make([][]int, 30)}
	for y := range w.Grid {
		w.Grid[y] = make([]int, 30)
	}
	w.Players = []world.Player{{Index: 0, Name: "alice", X: 2, Y: 2, Direction: world.Up, Alive: true}}

	view := w.View(0, world.DefaultViewRadius)
	text := RenderView(view)

	lines := strings.Split(text, "\n")
	// First non-header line should be entirely '#', since radius=7 and
	// the player is only 2 cells from the top-left corner.
	gridLines := lines[1:]
	if strings.Trim(gridLines[0], "# ") != "" {
		t.Fatalf("expected the clipped top row to be entirely walls, got %q", gridLines[0])
	}
	center := world.DefaultViewRadius
	if !strings.Contains(gridLines[center], "@") {
		t.Fatalf("expected the center row to contain the viewer's own head, got %q", gridLines[center])
	}
}

func TestRenderViewMarksDeadSelfAsX(t *testing.T) {
	w := world.World{Width: 10, Height: 10, Grid: make([][]int, 10)}
	for y := range w.Grid {
		w.Grid[y] = make([]int, 10)
	}
	w.Players = []world.Player{{Index: 0, Name: "alice", X: 5, Y: 5, Direction: world.Up, Alive: false}}

	view := w.View(0, world.DefaultViewRadius)
	if !strings.Contains(RenderView(view), "x") {
		t.Fatalf("expected a dead viewer to render as 'x'")
	}
}

func TestRenderViewShowsOtherPlayersAsStableDigits(t *testing.T) {
	w := world.World{Width: 10, Height: 10, Grid: make([][]int, 10)}
	for y := range w.Grid {
		w.Grid[y] = make([]int, 10)
	}
	w.Players = []world.Player{
		{Index: 0, Name: "alice", X: 5, Y: 5, Direction: world.Up, Alive: true},
		{Index: 1, Name: "bob", X: 6, Y: 5, Direction: world.Up, Alive: true},
	}

	view := w.View(0, world.DefaultViewRadius)
	if !strings.Contains(RenderView(view), "1") {
		t.Fatalf("expected the other player to render as digit 1")
	}
}

func TestRenderStepOmitsCauseWhenNone(t *testing.T) {
	r := coordinator.StepResult{
		Outcome: coordinator.OutcomeCrashed,
		Tick:    12,
		Status:  world.Running,
	}
	r.Cause = 0 // CauseNone: engine.Cause(0) should print "none" and be omitted
	text := RenderStep(r)
	if strings.Contains(text, "cause=") {
		t.Fatalf("expected no cause= field for CauseNone, got %q", text)
	}
}

func TestRenderStatusListsLeaderboardAndActiveGames(t *testing.T) {
	r := coordinator.StatusReport{
		ActiveGames:    []world.World{{CourseName: "Open Circuit", CourseLevel: 1, Tick: 4, Players: []world.Player{{Alive: true}}}},
		RecentFinished: 2,
		LeaderboardTop: []coordinator.LeaderboardRow{{Name: "alice", Wins: 3, TotalPoints: 900, GamesPlayed: 5, HighestLevel: 2}},
	}
	text := RenderStatus(r)
	if !strings.Contains(text, "alice") || !strings.Contains(text, "Open Circuit") {
		t.Fatalf("expected the summary to mention the active game and leaderboard entry, got %q", text)
	}
}
