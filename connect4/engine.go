package connect4

import "github.com/saolsen/gameplay/game"

// Engine exposes the package functions as a game.Engine.
type Engine struct{}

var _ game.Engine[*State, Action, *State] = Engine{}

func (Engine) Kind() game.Kind { return game.Connect4 }

func (Engine) NewGame(players int) (*State, error) { return NewGame(players) }

func (Engine) CheckStatus(s *State) game.Status { return s.CheckStatus() }

func (Engine) CheckAction(s *State, player int, a Action) error {
	return s.CheckAction(player, a)
}

func (Engine) ApplyAction(s *State, player int, a Action) (game.Status, error) {
	return s.ApplyAction(player, a)
}

func (Engine) View(s *State, player int) *State { return s.View(player) }
