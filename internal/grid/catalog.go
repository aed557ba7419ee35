// Package grid holds the static course catalog: the five light-cycle
// courses, their dimensions and obstruction policy, and the deterministic
// generator that turns a (course ID, seed) pair into a fresh World
// template plus a set of spawn points.
package grid

import (
	"fmt"
	"math/rand"

	"github.com/lightcycle-mcp/arena/internal/world"
)

// MinSpawnDistance is the minimum Chebyshev separation required between
// any two spawn points, per spec.md SS4.1.
const MinSpawnDistance = 5

// Course describes one of the five named, leveled courses.
type Course struct {
	ID         int
	Name       string
	Level      int
	Width      int
	Height     int
	MaxPlayers int
	pattern    patternFunc
}

// patternFunc carves obstructions into an otherwise-empty, walled grid.
// It must be a pure function of (rng, width, height): given the same seed
// it must produce the same layout every time.
type patternFunc func(rng *rand.Rand, w, h int) [][]int

// Catalog lists the five courses in ascending difficulty/level order.
var Catalog = []Course{
	{ID: 1, Name: "Open Circuit", Level: 1, Width: 30, Height: 30, MaxPlayers: 8, pattern: borderOnly},
	{ID: 2, Name: "Corridor Run", Level: 2, Width: 34, Height: 34, MaxPlayers: 8, pattern: corridors},
	{ID: 3, Name: "Maze Works", Level: 3, Width: 38, Height: 38, MaxPlayers: 8, pattern: maze},
	{ID: 4, Name: "Gauntlet Grid", Level: 4, Width: 42, Height: 42, MaxPlayers: 8, pattern: gauntletGrid},
	{ID: 5, Name: "Chaos Field", Level: 5, Width: 46, Height: 46, MaxPlayers: 8, pattern: chaosField},
}

// ByID returns the course with the given ID (1..5).
func ByID(id int) (Course, error) {
	for _, c := range Catalog {
		if c.ID == id {
			return c, nil
		}
	}
	return Course{}, fmt.Errorf("grid: no course with id %d", id)
}

// ByLevel returns the course at the given progression level, clamped to
// the catalog's range so callers never have to special-case overflow.
func ByLevel(level int) Course {
	if level < 1 {
		level = 1
	}
	if level > len(Catalog) {
		level = len(Catalog)
	}
	return Catalog[level-1]
}

// MaxLevel is the highest course level a player can be promoted to.
func MaxLevel() int {
	return len(Catalog)
}

// Template is a freshly generated, player-free World plus the ordered
// spawn points a Coordinator hands out to joining players in turn.
type Template struct {
	World       world.World
	SpawnPoints []SpawnPoint
}

// SpawnPoint is a candidate starting position and heading, guaranteed to
// sit on an empty cell and face away from the nearest wall.
type SpawnPoint struct {
	X, Y      int
	Direction world.Direction
}

// Generate builds the deterministic World template and spawn point list
// for (courseID, seed). Two calls with identical arguments always produce
// an identical Template; all of a course's randomness is confined to this
// one call, never to the tick engine.
func Generate(courseID int, seed int64) (Template, error) {
	course, err := ByID(courseID)
	if err != nil {
		return Template{}, err
	}
	rng := rand.New(rand.NewSource(seed))

	grid := make([][]int, course.Height)
	for y := range grid {
		grid[y] = make([]int, course.Width)
	}
	for y := 0; y < course.Height; y++ {
		for x := 0; x < course.Width; x++ {
			if x == 0 || y == 0 || x == course.Width-1 || y == course.Height-1 {
				grid[y][x] = world.Wall
			}
		}
	}

	obstructed := course.pattern(rng, course.Width, course.Height)
	for y := 0; y < course.Height; y++ {
		for x := 0; x < course.Width; x++ {
			if obstructed[y][x] == world.Obstruction {
				grid[y][x] = world.Obstruction
			}
		}
	}

	spawns := spawnPoints(rng, grid, course.Width, course.Height, course.MaxPlayers)

	w := world.World{
		Width:       course.Width,
		Height:      course.Height,
		Grid:        grid,
		CourseID:    course.ID,
		CourseName:  course.Name,
		CourseLevel: course.Level,
	}
	return Template{World: w, SpawnPoints: spawns}, nil
}

// spawnPoints picks up to maxPlayers candidates from the interior
// perimeter (one cell in from the border), each facing inward, taking
// them in a seeded-random order and rejecting any candidate that lands on
// an obstruction or falls within MinSpawnDistance of a point already
// accepted. The accepted points are not spaced evenly around the
// perimeter; they are only guaranteed to be MinSpawnDistance apart.
func spawnPoints(rng *rand.Rand, grid [][]int, w, h, maxPlayers int) []SpawnPoint {
	type candidate struct {
		x, y int
		dir  world.Direction
	}
	var ring []candidate
	for x := 1; x < w-1; x++ {
		ring = append(ring, candidate{x, 1, world.Down})
		ring = append(ring, candidate{x, h - 2, world.Up})
	}
	for y := 1; y < h-1; y++ {
		ring = append(ring, candidate{1, y, world.Right})
		ring = append(ring, candidate{w - 2, y, world.Left})
	}
	// Deterministic shuffle so spawn order doesn't simply favor the top
	// edge, while staying a pure function of the seeded rng.
	rng.Shuffle(len(ring), func(i, j int) { ring[i], ring[j] = ring[j], ring[i] })

	var out []SpawnPoint
	for _, c := range ring {
		if len(out) >= maxPlayers {
			break
		}
		if grid[c.y][c.x] != world.Empty {
			continue
		}
		tooClose := false
		for _, accepted := range out {
			if chebyshev(c.x, c.y, accepted.X, accepted.Y) < MinSpawnDistance {
				tooClose = true
				break
			}
		}
		if tooClose {
			continue
		}
		out = append(out, SpawnPoint{X: c.x, Y: c.y, Direction: c.dir})
	}
	return out
}

func chebyshev(x1, y1, x2, y2 int) int {
	dx := x1 - x2
	if dx < 0 {
		dx = -dx
	}
	dy := y1 - y2
	if dy < 0 {
		dy = -dy
	}
	if dx > dy {
		return dx
	}
	return dy
}

func emptyPattern(w, h int) [][]int {
	g := make([][]int, h)
	for y := range g {
		g[y] = make([]int, w)
	}
	return g
}

// borderOnly (course 1) carves no interior obstructions at all — the
// border wall laid down by Generate is the only hazard.
func borderOnly(rng *rand.Rand, w, h int) [][]int {
	return emptyPattern(w, h)
}

// corridors (course 2) lays down evenly spaced horizontal dividing walls
// with a randomized two-cell gap in each, forming parallel lanes.
func corridors(rng *rand.Rand, w, h int) [][]int {
	g := emptyPattern(w, h)
	for y := 4; y < h-4; y += 4 {
		gap := 2 + rng.Intn(w-4)
		for x := 2; x < w-2; x++ {
			if x == gap || x == gap+1 {
				continue
			}
			g[y][x] = world.Obstruction
		}
	}
	return g
}

// maze (course 3) stamps a 2x2 obstruction block on every coarse cell,
// then runs a recursive backtracker over the coarse grid, opening one
// cell per visited coarse cell plus the cell joining it to the previous
// one; whatever is never opened stays obstructed.
func maze(rng *rand.Rand, w, h int) [][]int {
	g := emptyPattern(w, h)

	cellW, cellH := (w-2)/2, (h-2)/2
	if cellW < 1 || cellH < 1 {
		return g
	}
	visited := make([][]bool, cellH)
	for i := range visited {
		visited[i] = make([]bool, cellW)
	}
	// Start every interior coarse cell blocked; the backtracker opens a
	// passage as it visits, leaving everything unreached still solid.
	for cy := 0; cy < cellH; cy++ {
		for cx := 0; cx < cellW; cx++ {
			stampBlock(g, 1+cx*2, 1+cy*2, w, h)
		}
	}

	type pt struct{ x, y int }
	var stack []pt
	start := pt{rng.Intn(cellW), rng.Intn(cellH)}
	visited[start.y][start.x] = true
	carve(g, 1+start.x*2, 1+start.y*2, w, h)
	stack = append(stack, start)

	dirs := []pt{{0, -1}, {0, 1}, {-1, 0}, {1, 0}}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		order := rng.Perm(len(dirs))
		advanced := false
		for _, idx := range order {
			d := dirs[idx]
			nx, ny := cur.x+d.x, cur.y+d.y
			if nx < 0 || nx >= cellW || ny < 0 || ny >= cellH || visited[ny][nx] {
				continue
			}
			visited[ny][nx] = true
			// Open the wall cell between cur and the neighbor, plus the
			// neighbor cell itself.
			mx, my := 1+cur.x*2+d.x, 1+cur.y*2+d.y
			carve(g, mx, my, w, h)
			carve(g, 1+nx*2, 1+ny*2, w, h)
			stack = append(stack, pt{nx, ny})
			advanced = true
			break
		}
		if !advanced {
			stack = stack[:len(stack)-1]
		}
	}
	return g
}

func stampBlock(g [][]int, x, y, w, h int) {
	for dy := 0; dy < 2; dy++ {
		for dx := 0; dx < 2; dx++ {
			xx, yy := x+dx, y+dy
			if xx > 0 && xx < w-1 && yy > 0 && yy < h-1 {
				g[yy][xx] = world.Obstruction
			}
		}
	}
}

func carve(g [][]int, x, y, w, h int) {
	if x > 0 && x < w-1 && y > 0 && y < h-1 {
		g[y][x] = world.Empty
	}
}

// gauntletGrid (course 4) stamps a regular grid of obstruction pillars
// with gaps, denser than corridors but still navigable in straight runs.
func gauntletGrid(rng *rand.Rand, w, h int) [][]int {
	g := emptyPattern(w, h)
	for y := 3; y < h-3; y += 3 {
		for x := 3; x < w-3; x += 3 {
			if rng.Intn(4) == 0 {
				continue // leave a gap so the grid isn't fully regular
			}
			g[y][x] = world.Obstruction
			if x+1 < w-1 {
				g[y][x+1] = world.Obstruction
			}
		}
	}
	return g
}

// chaosField (course 5) scatters single and double obstruction blocks
// throughout the interior, one block per 12 interior cells (blocks may
// overlap).
func chaosField(rng *rand.Rand, w, h int) [][]int {
	g := emptyPattern(w, h)
	area := (w - 2) * (h - 2)
	blocks := area / 12
	for i := 0; i < blocks; i++ {
		x := 1 + rng.Intn(w-2)
		y := 1 + rng.Intn(h-2)
		g[y][x] = world.Obstruction
		if rng.Intn(2) == 0 && x+1 < w-1 {
			g[y][x+1] = world.Obstruction
		}
	}
	return g
}
