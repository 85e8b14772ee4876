package connect4

import (
	"encoding/json"
	"errors"
	rand "math/rand/v2"
	"testing"

	"github.com/saolsen/gameplay/game"
)

func mustNewGame(t *testing.T) *State {
	t.Helper()
	s, err := NewGame(2)
	if err != nil {
		t.Fatalf("NewGame: %v", err)
	}
	return s
}

func TestNewGameRequiresTwoPlayers(t *testing.T) {
	t.Parallel()

	for _, n := range []int{0, 1, 3} {
		if _, err := NewGame(n); !errors.Is(err, game.ErrArgs) {
			t.Errorf("NewGame(%d) err = %v, want args error", n, err)
		}
	}

	s := mustNewGame(t)
	if s.ActivePlayer != 0 {
		t.Errorf("active player = %d, want 0", s.ActivePlayer)
	}
	if st := s.CheckStatus(); st.Over || !st.IsActive(0) {
		t.Errorf("new game status = %v", st)
	}
}

func TestCheckAction(t *testing.T) {
	t.Parallel()

	full := mustNewGame(t)
	for i := range Rows {
		if _, err := full.ApplyAction(i%2, Action{Column: 0}); err != nil {
			t.Fatalf("fill column: %v", err)
		}
	}

	tests := []struct {
		name   string
		state  *State
		player int
		column int
		want   error
	}{
		{"valid", mustNewGame(t), 0, 3, nil},
		{"out of turn", mustNewGame(t), 1, 3, game.ErrPlayer},
		{"negative column", mustNewGame(t), 0, -1, game.ErrAction},
		{"column too large", mustNewGame(t), 0, Columns, game.ErrAction},
		{"full column", full, 0, 0, game.ErrAction},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			before := *tc.state
			err := tc.state.CheckAction(tc.player, Action{Column: tc.column})
			again := tc.state.CheckAction(tc.player, Action{Column: tc.column})

			if tc.want == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
			} else if !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want kind %v", err, tc.want)
			}
			if (err == nil) != (again == nil) || (err != nil && err.Error() != again.Error()) {
				t.Errorf("CheckAction not idempotent: %v then %v", err, again)
			}
			if *tc.state != before {
				t.Error("CheckAction mutated the state")
			}
		})
	}
}

func TestApplyActionRejectsWithSameError(t *testing.T) {
	t.Parallel()

	s := mustNewGame(t)
	checkErr := s.CheckAction(1, Action{Column: 2})
	_, applyErr := s.ApplyAction(1, Action{Column: 2})
	if checkErr == nil || applyErr == nil || checkErr.Error() != applyErr.Error() {
		t.Errorf("check err %v, apply err %v", checkErr, applyErr)
	}
}

func TestGravity(t *testing.T) {
	t.Parallel()

	s := mustNewGame(t)
	if _, err := s.ApplyAction(0, Action{Column: 2}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.ApplyAction(1, Action{Column: 2}); err != nil {
		t.Fatal(err)
	}
	if s.Board[2][0] != Player0 || s.Board[2][1] != Player1 || s.Board[2][2] != Empty {
		t.Errorf("unexpected column: %v", s.Board[2])
	}
}

func TestVerticalWinScenario(t *testing.T) {
	t.Parallel()

	s := mustNewGame(t)
	moves := []Action{{3}, {4}, {3}, {4}, {3}, {4}, {3}}
	var status game.Status
	for i, m := range moves {
		var err error
		status, err = s.ApplyAction(i%2, m)
		if err != nil {
			t.Fatalf("move %d: %v", i, err)
		}
		if i < len(moves)-1 && status.Over {
			t.Fatalf("game over early at move %d: %v", i, status)
		}
	}

	if !status.Over || status.Result.Kind != game.Winner || status.Result.Players[0] != 0 {
		t.Fatalf("status = %v, want player 0 winner", status)
	}
	line, ok := s.WinningLine()
	if !ok || line.Cells[0] != (Cell{Column: 3, Row: 0}) || line.Cells[3] != (Cell{Column: 3, Row: 3}) {
		t.Errorf("winning line = %+v", line)
	}

	// The eighth move never happens: the game is over.
	if _, err := s.ApplyAction(1, Action{Column: 4}); !errors.Is(err, game.ErrState) {
		t.Errorf("move after game over err = %v, want state error", err)
	}
}

func TestLineOrientations(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		cells []Cell
	}{
		{"horizontal", []Cell{{1, 0}, {2, 0}, {3, 0}, {4, 0}}},
		{"diagonal up", []Cell{{0, 0}, {1, 1}, {2, 2}, {3, 3}}},
		{"diagonal down", []Cell{{3, 5}, {4, 4}, {5, 3}, {6, 2}}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := &State{}
			for _, c := range tc.cells {
				s.Board[c.Column][c.Row] = Player1
			}
			st := s.CheckStatus()
			if !st.Over || st.Result.Players[0] != 1 {
				t.Fatalf("status = %v, want player 1 winner", st)
			}
			line, _ := s.WinningLine()
			for i, c := range tc.cells {
				if line.Cells[i] != c {
					t.Errorf("cell %d = %v, want %v", i, line.Cells[i], c)
				}
			}
		})
	}
}

func TestDraw(t *testing.T) {
	t.Parallel()

	// Pairs of rows alternate owners; the middle column is inverted.
	s := &State{}
	for c := range Columns {
		for r := range Rows {
			owner := (r / 2) % 2
			if c == 3 {
				owner = 1 - owner
			}
			s.Board[c][r] = SlotFor(owner)
		}
	}
	if _, ok := s.WinningLine(); ok {
		t.Fatal("fixture unexpectedly contains a line")
	}
	if st := s.CheckStatus(); !st.Over || st.Result.Kind != game.Draw {
		t.Errorf("status = %v, want draw", st)
	}
}

// hasLine brute-forces the win condition independently of the scanner.
func hasLine(b Board) bool {
	for c := range Columns {
		for r := range Rows {
			if b[c][r] == Empty {
				continue
			}
			for _, d := range [][2]int{{0, 1}, {1, 0}, {1, 1}, {1, -1}} {
				n := 1
				for i := 1; i < 4; i++ {
					cc, rr := c+i*d[0], r+i*d[1]
					if cc < 0 || cc >= Columns || rr < 0 || rr >= Rows || b[cc][rr] != b[c][r] {
						break
					}
					n++
				}
				if n == 4 {
					return true
				}
			}
		}
	}
	return false
}

func TestRandomGames(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewPCG(1, 2))
	for g := 0; g < 200; g++ {
		s := mustNewGame(t)
		moves := 0
		for {
			status := s.CheckStatus()
			if status.Over {
				if status.Result.Kind == game.Winner && !hasLine(s.Board) {
					t.Fatalf("game %d: win reported without a line", g)
				}
				if status.Result.Kind == game.Draw && (hasLine(s.Board) || moves != Columns*Rows) {
					t.Fatalf("game %d: bad draw after %d moves", g, moves)
				}
				break
			}
			if hasLine(s.Board) {
				t.Fatalf("game %d: line on board but game not over", g)
			}

			mover := s.ActivePlayer
			if mover != moves%2 {
				t.Fatalf("game %d: active player %d after %d moves", g, mover, moves)
			}
			valid := s.ValidActions()
			for c := range Columns {
				a := Action{Column: c}
				want := s.Board[c][Rows-1] == Empty
				if got := s.CheckAction(mover, a) == nil; got != want {
					t.Fatalf("game %d: CheckAction(col %d) = %v, want %v", g, c, got, want)
				}
				if s.CheckAction(1-mover, a) == nil {
					t.Fatalf("game %d: accepted out of turn move", g)
				}
			}

			if _, err := s.ApplyAction(mover, valid[rng.IntN(len(valid))]); err != nil {
				t.Fatalf("game %d: %v", g, err)
			}
			moves++

			markers := 0
			for c := range Columns {
				for r := range Rows {
					if s.Board[c][r] != Empty {
						markers++
					}
				}
			}
			if markers != moves {
				t.Fatalf("game %d: %d markers after %d moves", g, markers, moves)
			}
		}
	}
}

func TestJSON(t *testing.T) {
	t.Parallel()

	s := mustNewGame(t)
	if _, err := s.ApplyAction(0, Action{Column: 6}); err != nil {
		t.Fatal(err)
	}

	data, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	kind, err := game.PeekKind(data)
	if err != nil || kind != game.Connect4 {
		t.Fatalf("kind = %q, err = %v", kind, err)
	}

	var back State
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back != *s {
		t.Errorf("decoded state differs: %+v", back)
	}

	floating := `{"game":"connect4","active_player":0,"board":[[null,0,null,null,null,null],[],[],[],[],[],[]]}`
	if err := json.Unmarshal([]byte(floating), &back); !errors.Is(err, game.ErrState) {
		t.Errorf("floating marker err = %v, want state error", err)
	}

	var a Action
	if err := json.Unmarshal([]byte(`{"game":"connect4","column":4}`), &a); err != nil || a.Column != 4 {
		t.Errorf("action = %+v, err = %v", a, err)
	}
}
