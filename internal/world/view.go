package world

// DefaultViewRadius produces the 15x15 view spec.md SS4.2/SS4.6 calls for.
const DefaultViewRadius = 7

// ViewFrame is the (2r+1)x(2r+1) window centered on a player, clipped at
// grid borders. Rows are top-to-bottom, each row left-to-right, matching
// Grid's row-major layout.
type ViewFrame struct {
	PlayerIndex int         `json:"player_index"`
	PlayerName  string      `json:"player_name"`
	Radius      int         `json:"radius"`
	CenterX     int         `json:"center_x"`
	CenterY     int         `json:"center_y"`
	Heading     string      `json:"heading"`
	Cells       [][]int     `json:"cells"`
	Others      []OtherHead `json:"others"`
	SelfAlive   bool        `json:"self_alive"`
}

// OtherHead is another player's head position within a ViewFrame, with
// the stable per-view display digit the look renderer assigns it (1..9,
// in ascending player-index order, excluding the viewer) per spec.md
// SS4.6 / SS9 ("a per-view relabeling... stable in some stable order").
type OtherHead struct {
	Digit int `json:"digit"`
	Row   int `json:"row"`
	Col   int `json:"col"`
}

// outOfBounds is the sentinel cell value used for the clipped border of a
// ViewFrame; it never appears in a World's own Grid.
const outOfBounds = -1

// View builds the ViewFrame centered on playerIndex with the given
// radius. Out-of-bounds cells are rendered with the outOfBounds sentinel
// so the gateway's look renderer can draw them as walls.
func (w World) View(playerIndex int, radius int) ViewFrame {
	p := w.Players[playerIndex]
	size := 2*radius + 1
	cells := make([][]int, size)
	for row := 0; row < size; row++ {
		cells[row] = make([]int, size)
		y := p.Y - radius + row
		for col := 0; col < size; col++ {
			x := p.X - radius + col
			if w.InBounds(x, y) {
				cells[row][col] = w.Cell(x, y)
			} else {
				cells[row][col] = outOfBounds
			}
		}
	}
	digit := 0
	var others []OtherHead
	for i, other := range w.Players {
		if i == playerIndex {
			continue
		}
		digit++
		row := other.Y - (p.Y - radius)
		col := other.X - (p.X - radius)
		if row < 0 || row >= size || col < 0 || col >= size {
			continue
		}
		others = append(others, OtherHead{Digit: digit, Row: row, Col: col})
	}

	return ViewFrame{
		PlayerIndex: playerIndex,
		PlayerName:  p.Name,
		Radius:      radius,
		CenterX:     p.X,
		CenterY:     p.Y,
		Heading:     p.Direction.String(),
		Cells:       cells,
		Others:      others,
		SelfAlive:   p.Alive,
	}
}
