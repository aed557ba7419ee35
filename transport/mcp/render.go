package mcp

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/lightcycle-mcp/arena/internal/coordinator"
	"github.com/lightcycle-mcp/arena/internal/world"
)

// RenderView renders a ViewFrame as the header line + glyph grid
// described in spec.md SS4.6.
func RenderView(v world.ViewFrame) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Your light-cycle '%s' is at (%d, %d) heading %s.\n", v.PlayerName, v.CenterX, v.CenterY, v.Heading)
	b.WriteString(renderGrid(v))
	return b.String()
}

func renderGrid(v world.ViewFrame) string {
	size := len(v.Cells)
	center := v.Radius

	otherAt := make(map[[2]int]int, len(v.Others))
	for _, o := range v.Others {
		otherAt[[2]int{o.Row, o.Col}] = o.Digit
	}

	var b strings.Builder
	for row := 0; row < size; row++ {
		glyphs := make([]string, size)
		for col := 0; col < size; col++ {
			glyphs[col] = glyph(v, row, col, center, otherAt)
		}
		b.WriteString(strings.Join(glyphs, " "))
		if row != size-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func glyph(v world.ViewFrame, row, col, center int, otherAt map[[2]int]int) string {
	if row == center && col == center {
		if v.SelfAlive {
			return "@"
		}
		return "x"
	}
	if digit, ok := otherAt[[2]int{row, col}]; ok && digit <= 9 {
		return strconv.Itoa(digit)
	}

	cell := v.Cells[row][col]
	switch cell {
	case -1, world.Wall:
		return "#"
	case world.Obstruction:
		return "X"
	case world.Empty:
		return "."
	default:
		if _, isTrail := world.TrailOwner(cell); isTrail {
			return "|"
		}
		return "."
	}
}

// RenderStep renders a steer response: the post-tick view followed by
// the outcome line, per spec.md SS6 ("text blob: post-tick view +
// outcome line").
func RenderStep(r coordinator.StepResult) string {
	var b strings.Builder
	if r.View.Radius > 0 || len(r.View.Cells) > 0 {
		b.WriteString(RenderView(r.View))
		b.WriteByte('\n')
	}
	outcome := r.Outcome
	if outcome == "" {
		outcome = coordinator.OutcomeAlive
	}
	fmt.Fprintf(&b, "tick=%d status=%s outcome=%s", r.Tick, r.Status, outcome)
	if r.Winner != nil {
		fmt.Fprintf(&b, " winner=%d", *r.Winner)
	}
	if r.Cause.String() != "none" {
		fmt.Fprintf(&b, " cause=%s", r.Cause)
	}
	return b.String()
}

// RenderStatus renders game_status's structured report as a compact
// text summary: the caller's own view (if any), then active-game and
// leaderboard summaries.
func RenderStatus(r coordinator.StatusReport) string {
	var b strings.Builder
	if r.PlayerView != nil {
		fmt.Fprintf(&b, "Your game: tick=%d status=%s", r.PlayerView.Tick, r.PlayerView.Status)
		if r.PlayerView.Winner != nil {
			fmt.Fprintf(&b, " winner=%d", *r.PlayerView.Winner)
		}
		b.WriteByte('\n')
	}

	fmt.Fprintf(&b, "Active games: %d\n", len(r.ActiveGames))
	for _, g := range r.ActiveGames {
		fmt.Fprintf(&b, "  - %s: %s, tick %d, %d/%d alive, course %s (level %d)\n",
			shortID(g), g.Status, g.Tick, g.AliveCount(), len(g.Players), g.CourseName, g.CourseLevel)
	}

	fmt.Fprintf(&b, "Recently finished games: %d\n", r.RecentFinished)

	b.WriteString("Leaderboard:\n")
	for i, row := range r.LeaderboardTop {
		fmt.Fprintf(&b, "  %d. %s — wins=%d points=%d games=%d level=%d\n",
			i+1, row.Name, row.Wins, row.TotalPoints, row.GamesPlayed, row.HighestLevel)
	}
	return strings.TrimRight(b.String(), "\n")
}

func shortID(w world.World) string {
	if w.CourseName == "" {
		return "game"
	}
	return fmt.Sprintf("%s@tick%d", w.CourseName, w.Tick)
}
