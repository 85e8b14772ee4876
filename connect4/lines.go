package connect4

// Cell addresses one board slot.
type Cell struct {
	Column int `json:"column"`
	Row    int `json:"row"`
}

// Line is four collinear cells owned by the same player.
type Line struct {
	Player int     `json:"player"`
	Cells  [4]Cell `json:"cells"`
}

// direction is a step between consecutive cells of a line.
type direction struct{ dc, dr int }

// Scan order matters: the first line found is the one reported.
var directions = [...]direction{
	{0, 1},  // vertical
	{1, 0},  // horizontal
	{1, 1},  // diagonal up
	{1, -1}, // diagonal down
}

// WinningLine returns the first four-in-a-row found, scanning vertical lines
// by column then row, horizontal lines by row then column, then the up and
// down diagonals.
func (s *State) WinningLine() (Line, bool) {
	for _, d := range directions {
		if line, ok := s.scan(d); ok {
			return line, true
		}
	}
	return Line{}, false
}

func (s *State) scan(d direction) (Line, bool) {
	// Horizontal lines iterate rows in the outer loop.
	if d.dr == 0 {
		for r := range Rows {
			for c := range Columns {
				if line, ok := s.lineAt(c, r, d); ok {
					return line, true
				}
			}
		}
		return Line{}, false
	}
	for c := range Columns {
		for r := range Rows {
			if line, ok := s.lineAt(c, r, d); ok {
				return line, true
			}
		}
	}
	return Line{}, false
}

func (s *State) lineAt(c, r int, d direction) (Line, bool) {
	endC, endR := c+3*d.dc, r+3*d.dr
	if endC < 0 || endC >= Columns || endR < 0 || endR >= Rows {
		return Line{}, false
	}
	owner, ok := s.Board[c][r].Owner()
	if !ok {
		return Line{}, false
	}
	line := Line{Player: owner}
	for i := range 4 {
		cc, rr := c+i*d.dc, r+i*d.dr
		if s.Board[cc][rr] != s.Board[c][r] {
			return Line{}, false
		}
		line.Cells[i] = Cell{Column: cc, Row: rr}
	}
	return line, true
}
