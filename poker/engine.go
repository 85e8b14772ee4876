package poker

import "github.com/saolsen/gameplay/game"

// Engine exposes the package functions as a game.Engine. Options apply to
// every game it creates.
type Engine struct {
	Options []Option
}

var _ game.Engine[*State, Action, *View] = Engine{}

func (Engine) Kind() game.Kind { return game.Poker }

func (e Engine) NewGame(players int) (*State, error) { return NewGame(players, e.Options...) }

func (Engine) CheckStatus(s *State) game.Status { return s.CheckStatus() }

func (Engine) CheckAction(s *State, player int, a Action) error {
	return s.CheckAction(player, a)
}

func (Engine) ApplyAction(s *State, player int, a Action) (game.Status, error) {
	return s.ApplyAction(player, a)
}

func (Engine) View(s *State, player int) *View { return s.View(player) }
