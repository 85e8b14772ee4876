package poker

import "github.com/saolsen/gameplay/game"

type stateJSON State

// MarshalJSON encodes the state tagged with "game": "poker".
func (s State) MarshalJSON() ([]byte, error) {
	return game.MarshalTagged(game.Poker, stateJSON(s))
}

// UnmarshalJSON decodes and validates a tagged state.
func (s *State) UnmarshalJSON(data []byte) error {
	var v stateJSON
	if err := game.UnmarshalTagged(game.Poker, data, &v); err != nil {
		return err
	}
	st := State(v)
	if err := st.Validate(); err != nil {
		return err
	}
	*s = st
	return nil
}

// Validate checks the shape of a decoded state so that the engine can index
// it safely.
func (s *State) Validate() error {
	n := len(s.PlayerChips)
	if n < 2 || n > MaxPlayers {
		return game.Errorf(game.KindState, "invalid player count %d", n)
	}
	for i, c := range s.PlayerChips {
		if c < 0 {
			return game.Errorf(game.KindState, "player %d has negative chips", i)
		}
	}
	if s.Round < 0 || s.Round >= len(s.Rounds) {
		return game.Errorf(game.KindState, "round %d out of range", s.Round)
	}
	for i, r := range s.Rounds {
		if len(r.PlayerStatus) != n || len(r.PlayerBets) != n || len(r.PlayerCards) != n || len(r.Acted) != n {
			return game.Errorf(game.KindState, "round %d has per-player fields of the wrong length", i)
		}
		if r.Dealer < 0 || r.Dealer >= n || r.CurrentPlayer < 0 || r.CurrentPlayer >= n {
			return game.Errorf(game.KindState, "round %d has an invalid seat", i)
		}
		if r.Stage > Showdown || len(r.TableCards) > 5 {
			return game.Errorf(game.KindState, "round %d has an invalid stage", i)
		}
		if r.Payouts != nil && len(r.Payouts) != n {
			return game.Errorf(game.KindState, "round %d has payouts of the wrong length", i)
		}
		for p, st := range r.PlayerStatus {
			if st > Out {
				return game.Errorf(game.KindState, "round %d player %d has an invalid status", i, p)
			}
			if st != Out && len(r.PlayerCards[p]) != 2 {
				return game.Errorf(game.KindState, "round %d player %d does not hold two cards", i, p)
			}
		}
	}
	r := s.Current()
	if r.Stage != Showdown && r.PlayerStatus[r.CurrentPlayer] != Playing {
		return game.Errorf(game.KindState, "player %d to act is %s", r.CurrentPlayer, r.PlayerStatus[r.CurrentPlayer])
	}
	if need := 5 - len(r.TableCards); r.Stage != Showdown && len(r.Deck) < need {
		return game.Errorf(game.KindState, "deck too small to finish the board")
	}
	return nil
}

type actionJSON Action

// MarshalJSON encodes the action tagged with "game": "poker".
func (a Action) MarshalJSON() ([]byte, error) {
	return game.MarshalTagged(game.Poker, actionJSON(a))
}

// UnmarshalJSON decodes a tagged action.
func (a *Action) UnmarshalJSON(data []byte) error {
	var v actionJSON
	if err := game.UnmarshalTagged(game.Poker, data, &v); err != nil {
		return err
	}
	*a = Action(v)
	return nil
}
