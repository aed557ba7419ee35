package engine

import (
	"testing"

	"github.com/lightcycle-mcp/arena/internal/world"
)

func blankWorld(w, h int) world.World {
	grid := make([][]int, h)
	for y := range grid {
		grid[y] = make([]int, w)
		for x := range grid[y] {
			if x == 0 || y == 0 || x == w-1 || y == h-1 {
				grid[y][x] = world.Wall
			}
		}
	}
	return world.World{Width: w, Height: h, Grid: grid, Status: world.Running}
}

func addPlayer(w *world.World, x, y int, dir world.Direction) int {
	idx := len(w.Players)
	w.Players = append(w.Players, world.Player{
		Index: idx, Name: "p", X: x, Y: y, Direction: dir, Alive: true,
	})
	return idx
}

func TestStepStraightMoveAndDistance(t *testing.T) {
	w := blankWorld(10, 10)
	addPlayer(&w, 5, 5, world.Right)

	next, report := Step(w, map[int]world.Direction{0: world.Right})

	if len(report.Deaths) != 0 {
		t.Fatalf("expected no deaths, got %v", report.Deaths)
	}
	if next.Players[0].X != 6 || next.Players[0].Y != 5 {
		t.Fatalf("expected player at (6,5), got (%d,%d)", next.Players[0].X, next.Players[0].Y)
	}
	if next.Players[0].Distance != 1 {
		t.Fatalf("expected distance 1, got %d", next.Players[0].Distance)
	}
	if next.Tick != 1 {
		t.Fatalf("expected tick 1, got %d", next.Tick)
	}
	if cell := next.Cell(5, 5); cell != world.TrailCell(0) {
		t.Fatalf("expected trail left behind at (5,5), got %d", cell)
	}
}

func TestStepDeterministic(t *testing.T) {
	w := blankWorld(10, 10)
	addPlayer(&w, 5, 5, world.Right)
	addPlayer(&w, 2, 2, world.Down)
	intents := map[int]world.Direction{0: world.Right, 1: world.Down}

	a, _ := Step(w, intents)
	b, _ := Step(w, intents)

	if a.Tick != b.Tick || a.Players[0] != b.Players[0] || a.Players[1] != b.Players[1] {
		t.Fatalf("Step is not deterministic: %+v vs %+v", a, b)
	}
}

func TestStepReverseRequestIgnored(t *testing.T) {
	w := blankWorld(10, 10)
	addPlayer(&w, 5, 5, world.Right)

	next, _ := Step(w, map[int]world.Direction{0: world.Left})

	if next.Players[0].Direction != world.Right {
		t.Fatalf("expected reversal request to be ignored, heading now %v", next.Players[0].Direction)
	}
	if next.Players[0].X != 6 {
		t.Fatalf("expected player to keep moving Right to x=6, got x=%d", next.Players[0].X)
	}
}

func TestStepWallCollision(t *testing.T) {
	w := blankWorld(10, 10)
	addPlayer(&w, 8, 5, world.Right)

	next, report := Step(w, nil)

	if next.Players[0].Alive {
		t.Fatalf("expected player to die hitting the border wall")
	}
	if report.Deaths[0] != CauseWall {
		t.Fatalf("expected CauseWall, got %v", report.Deaths[0])
	}
	if !report.Finished {
		t.Fatalf("expected solo death to finish the game")
	}
	if report.Winner != nil {
		t.Fatalf("expected no winner for a solo game, got %v", *report.Winner)
	}
}

// S1 Two-player head-on: A at (5,15,East), B at (24,15,West) in a 30x30
// course, both steering straight every tick. Both should collide at
// tick 10 via a swap into each other's path and die together.
func TestStepHeadOnSwapScenario(t *testing.T) {
	w := blankWorld(30, 30)
	a := addPlayer(&w, 5, 15, world.Right)
	b := addPlayer(&w, 24, 15, world.Left)

	cur := w
	var lastReport Report
	for i := 0; i < 10; i++ {
		cur, lastReport = Step(cur, map[int]world.Direction{a: world.Right, b: world.Left})
	}

	if cur.Players[a].Alive || cur.Players[b].Alive {
		t.Fatalf("expected both players dead by tick 10, got a.alive=%v b.alive=%v", cur.Players[a].Alive, cur.Players[b].Alive)
	}
	if lastReport.Deaths[a] == CauseNone || lastReport.Deaths[b] == CauseNone {
		t.Fatalf("expected both deaths recorded on the final tick, got %v", lastReport.Deaths)
	}
	if cur.Status != world.Finished || cur.Winner != nil {
		t.Fatalf("expected Finished with no winner, got status=%v winner=%v", cur.Status, cur.Winner)
	}
}

// S4 Trail collision: A moves straight then turns to avoid a cell that B
// later enters; B dies entering A's trail while A survives.
func TestStepTrailCollisionScenario(t *testing.T) {
	w := blankWorld(20, 20)
	a := addPlayer(&w, 10, 10, world.Right)
	b := addPlayer(&w, 11, 12, world.Up)

	// Tick 1: A -> (11,10); B -> (11,11).
	w, _ = Step(w, map[int]world.Direction{a: world.Right, b: world.Up})
	if w.Players[a].X != 11 || w.Players[a].Y != 10 {
		t.Fatalf("expected A at (11,10), got (%d,%d)", w.Players[a].X, w.Players[a].Y)
	}

	// Tick 2: A turns to face North, moving to (11,9), leaving a trail at
	// (11,10). B moves straight up into (11,10) and should die there.
	w, report := Step(w, map[int]world.Direction{a: world.Up, b: world.Up})

	if !w.Players[a].Alive {
		t.Fatalf("expected A to survive")
	}
	if w.Players[b].Alive {
		t.Fatalf("expected B to die entering A's trail")
	}
	if report.Deaths[b] != CauseTrail {
		t.Fatalf("expected CauseTrail for B, got %v", report.Deaths[b])
	}
}

func TestStepHeadOnSameCellTie(t *testing.T) {
	w := blankWorld(20, 20)
	a := addPlayer(&w, 8, 10, world.Right)
	b := addPlayer(&w, 10, 10, world.Left)

	next, report := Step(w, map[int]world.Direction{a: world.Right, b: world.Left})

	if next.Players[a].Alive || next.Players[b].Alive {
		t.Fatalf("expected both players to die targeting the same cell")
	}
	if report.Deaths[a] != CauseHeadOn || report.Deaths[b] != CauseHeadOn {
		t.Fatalf("expected CauseHeadOn for both, got %v", report.Deaths)
	}
}

func TestStepNonRunningWorldIsNoop(t *testing.T) {
	w := blankWorld(10, 10)
	addPlayer(&w, 5, 5, world.Right)
	w.Status = world.Waiting

	next, report := Step(w, map[int]world.Direction{0: world.Right})

	if next.Tick != 0 {
		t.Fatalf("expected no tick advance on a non-Running world, got tick=%d", next.Tick)
	}
	if len(report.Deaths) != 0 {
		t.Fatalf("expected no deaths on a non-Running world")
	}
}

func TestStepDoesNotMutateInput(t *testing.T) {
	w := blankWorld(10, 10)
	addPlayer(&w, 5, 5, world.Right)
	snapshotX := w.Players[0].X

	Step(w, map[int]world.Direction{0: world.Right})

	if w.Players[0].X != snapshotX {
		t.Fatalf("Step must not mutate its input world, x changed to %d", w.Players[0].X)
	}
	if w.Cell(5, 5) != world.Empty {
		t.Fatalf("Step must not mutate the input world's grid")
	}
}
