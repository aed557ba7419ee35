// Command analyze prints quick, human-readable heuristics about the
// courses in the arena's built-in catalog: dimensions, obstruction
// density, spawn count, and reachability of the open floor from each
// spawn point.
package main

import (
	"fmt"

	"github.com/lightcycle-mcp/arena/internal/grid"
	"github.com/lightcycle-mcp/arena/internal/world"
)

func main() {
	for _, course := range grid.Catalog {
		fmt.Printf("\n=== Analyzing %s (level %d) ===\n", course.Name, course.ID)
		analyzeCourse(course)
	}
}

func analyzeCourse(course grid.Course) {
	tmpl, err := grid.Generate(course.ID, 1)
	if err != nil {
		fmt.Printf("Error generating course: %v\n", err)
		return
	}
	w := tmpl.World

	fmt.Printf("Dimensions: %d x %d\n", w.Width, w.Height)
	fmt.Printf("Max Players: %d\n", course.MaxPlayers)
	fmt.Printf("Spawn Points: %d\n", len(tmpl.SpawnPoints))

	open, obstructed := countCells(w)
	fmt.Printf("Open Cells: %d, Obstructed/Wall Cells: %d (%.1f%% open)\n",
		open, obstructed, 100*float64(open)/float64(open+obstructed))

	reachable := reachableFromSpawns(w, tmpl.SpawnPoints)
	pct := 100 * float64(reachable) / float64(open)
	if pct < 90 {
		fmt.Printf("WARNING: only %.1f%% of open floor is reachable from a spawn point\n", pct)
	} else {
		fmt.Printf("%.1f%% of open floor is reachable from at least one spawn point\n", pct)
	}

	if len(tmpl.SpawnPoints) < course.MaxPlayers {
		fmt.Printf("WARNING: only %d spawn points for a %d-player max course\n", len(tmpl.SpawnPoints), course.MaxPlayers)
	}
}

func countCells(w world.World) (open, obstructed int) {
	for y := 0; y < w.Height; y++ {
		for x := 0; x < w.Width; x++ {
			if w.Cell(x, y) == world.Empty {
				open++
			} else {
				obstructed++
			}
		}
	}
	return open, obstructed
}

// reachableFromSpawns flood-fills the open floor starting from every
// spawn point and reports how many distinct empty cells were reached, the
// same reachability check the teacher's config analyzer ran against
// chargers, generalized from Manhattan-distance-vs-battery to a BFS over
// open cells (a light-cycle has no battery budget, so what matters is
// whether the floor is connected at all, not whether it is in range).
func reachableFromSpawns(w world.World, spawns []grid.SpawnPoint) int {
	visited := make(map[[2]int]bool)
	var queue [][2]int
	for _, sp := range spawns {
		if w.Cell(sp.X, sp.Y) == world.Empty && !visited[[2]int{sp.X, sp.Y}] {
			visited[[2]int{sp.X, sp.Y}] = true
			queue = append(queue, [2]int{sp.X, sp.Y})
		}
	}

	deltas := [][2]int{{0, -1}, {0, 1}, {-1, 0}, {1, 0}}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, d := range deltas {
			nx, ny := cur[0]+d[0], cur[1]+d[1]
			if !w.InBounds(nx, ny) || w.Cell(nx, ny) != world.Empty {
				continue
			}
			key := [2]int{nx, ny}
			if !visited[key] {
				visited[key] = true
				queue = append(queue, key)
			}
		}
	}
	return len(visited)
}
