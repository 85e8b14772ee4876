// Package connect4 implements the Connect4 rule engine: a 7x6 board, two
// players, first to connect four markers in a line wins.
package connect4

import (
	"encoding/json"
	"fmt"

	"github.com/saolsen/gameplay/game"
)

const (
	Columns = 7
	Rows    = 6
	Players = 2
)

// Slot is the content of one board cell.
type Slot uint8

const (
	Empty Slot = iota
	Player0
	Player1
)

// SlotFor returns the marker placed by player.
func SlotFor(player int) Slot {
	if player == 0 {
		return Player0
	}
	return Player1
}

// Owner returns the player owning the slot, if any.
func (s Slot) Owner() (int, bool) {
	switch s {
	case Player0:
		return 0, true
	case Player1:
		return 1, true
	default:
		return 0, false
	}
}

// MarshalJSON encodes an empty slot as null and an owned slot as its owner.
func (s Slot) MarshalJSON() ([]byte, error) {
	if p, ok := s.Owner(); ok {
		return json.Marshal(p)
	}
	return []byte("null"), nil
}

// UnmarshalJSON decodes null, 0 or 1.
func (s *Slot) UnmarshalJSON(data []byte) error {
	var p *int
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	switch {
	case p == nil:
		*s = Empty
	case *p == 0:
		*s = Player0
	case *p == 1:
		*s = Player1
	default:
		return fmt.Errorf("connect4: invalid slot owner %d", *p)
	}
	return nil
}

// Board is indexed [column][row]; row 0 is the bottom.
type Board [Columns][Rows]Slot

// State is a Connect4 game in progress or finished.
type State struct {
	ActivePlayer int   `json:"active_player"`
	Board        Board `json:"board"`
}

// Action drops a marker into a column.
type Action struct {
	Column int `json:"column"`
}

// NewGame creates an empty board with player 0 to move.
func NewGame(players int) (*State, error) {
	if players != Players {
		return nil, game.Errorf(game.KindArgs, "connect4 needs exactly %d players, got %d", Players, players)
	}
	return &State{}, nil
}

// CheckAction reports whether player may drop into the action's column.
// It never mutates the state.
func (s *State) CheckAction(player int, action Action) error {
	if s.CheckStatus().Over {
		return game.Errorf(game.KindState, "game is over")
	}
	if player != s.ActivePlayer {
		return game.Errorf(game.KindPlayer, "not player %d's turn", player)
	}
	if action.Column < 0 || action.Column >= Columns {
		return game.Errorf(game.KindAction, "column %d out of range [0,%d)", action.Column, Columns)
	}
	if s.Board[action.Column][Rows-1] != Empty {
		return game.Errorf(game.KindAction, "column %d is full", action.Column)
	}
	return nil
}

// ApplyAction validates and plays the move, then returns the new status.
func (s *State) ApplyAction(player int, action Action) (game.Status, error) {
	if err := s.CheckAction(player, action); err != nil {
		return game.Status{}, err
	}

	col := &s.Board[action.Column]
	row := 0
	for row < Rows && col[row] != Empty {
		row++
	}
	if row == Rows {
		panic(fmt.Sprintf("connect4: column %d full after CheckAction passed", action.Column))
	}
	col[row] = SlotFor(player)
	s.ActivePlayer = 1 - s.ActivePlayer

	return s.CheckStatus(), nil
}

// CheckStatus reports a win for the first line of four found, in-progress if
// any column has room, and a draw otherwise.
func (s *State) CheckStatus() game.Status {
	if line, ok := s.WinningLine(); ok {
		return game.Won(line.Player)
	}
	for c := range Columns {
		if s.Board[c][Rows-1] == Empty {
			return game.InProgress(s.ActivePlayer)
		}
	}
	return game.Drawn()
}

// View returns a copy of the state; Connect4 has no hidden information.
func (s *State) View(player int) *State {
	v := *s
	return &v
}

// ValidActions lists the columns that still have room.
func (s *State) ValidActions() []Action {
	var actions []Action
	for c := range Columns {
		if s.Board[c][Rows-1] == Empty {
			actions = append(actions, Action{Column: c})
		}
	}
	return actions
}

// Validate checks a decoded state: a legal active player, known slot values,
// and no floating markers.
func (s *State) Validate() error {
	if s.ActivePlayer != 0 && s.ActivePlayer != 1 {
		return game.Errorf(game.KindState, "invalid active player %d", s.ActivePlayer)
	}
	for c := range Columns {
		gap := false
		for r := range Rows {
			switch slot := s.Board[c][r]; {
			case slot > Player1:
				return game.Errorf(game.KindState, "invalid slot at column %d row %d", c, r)
			case slot == Empty:
				gap = true
			case gap:
				return game.Errorf(game.KindState, "floating marker at column %d row %d", c, r)
			}
		}
	}
	return nil
}

type stateJSON State

// MarshalJSON encodes the state tagged with "game": "connect4".
func (s State) MarshalJSON() ([]byte, error) {
	return game.MarshalTagged(game.Connect4, stateJSON(s))
}

// UnmarshalJSON decodes and validates a tagged state.
func (s *State) UnmarshalJSON(data []byte) error {
	var v stateJSON
	if err := game.UnmarshalTagged(game.Connect4, data, &v); err != nil {
		return err
	}
	st := State(v)
	if err := st.Validate(); err != nil {
		return err
	}
	*s = st
	return nil
}

type actionJSON Action

// MarshalJSON encodes the action tagged with "game": "connect4".
func (a Action) MarshalJSON() ([]byte, error) {
	return game.MarshalTagged(game.Connect4, actionJSON(a))
}

// UnmarshalJSON decodes a tagged action.
func (a *Action) UnmarshalJSON(data []byte) error {
	var v actionJSON
	if err := game.UnmarshalTagged(game.Connect4, data, &v); err != nil {
		return err
	}
	*a = Action(v)
	return nil
}
