package poker

import (
	"fmt"

	"github.com/saolsen/gameplay/game"
)

// ActionKind is a betting action.
type ActionKind uint8

const (
	Fold ActionKind = iota
	Check
	Bet
	Call
	Raise
)

var actionKindNames = [...]string{"fold", "check", "bet", "call", "raise"}

func (k ActionKind) String() string {
	if int(k) >= len(actionKindNames) {
		return "unknown"
	}
	return actionKindNames[k]
}

// MarshalText encodes the action name.
func (k ActionKind) MarshalText() ([]byte, error) {
	if int(k) >= len(actionKindNames) {
		return nil, fmt.Errorf("invalid action kind %d", k)
	}
	return []byte(k.String()), nil
}

// UnmarshalText decodes an action name.
func (k *ActionKind) UnmarshalText(text []byte) error {
	for i, name := range actionKindNames {
		if name == string(text) {
			*k = ActionKind(i)
			return nil
		}
	}
	return fmt.Errorf("unknown poker action %q", text)
}

// Action is a betting decision. Amount is used by bet and raise only: the
// bet size, or the increase over the current stage bet.
type Action struct {
	Kind   ActionKind `json:"kind"`
	Amount int        `json:"amount,omitempty"`
}

func (a Action) String() string {
	if a.Kind == Bet || a.Kind == Raise {
		return fmt.Sprintf("%s %d", a.Kind, a.Amount)
	}
	return a.Kind.String()
}

// CheckAction reports whether player may take action now. It never mutates
// the state.
func (s *State) CheckAction(player int, action Action) error {
	if s.CheckStatus().Over {
		return game.Errorf(game.KindState, "game is over")
	}
	r := s.Current()
	if player < 0 || player >= len(s.PlayerChips) {
		return game.Errorf(game.KindPlayer, "no player %d", player)
	}
	if player != r.CurrentPlayer {
		return game.Errorf(game.KindPlayer, "not player %d's turn", player)
	}
	if r.PlayerStatus[player] != Playing {
		return game.Errorf(game.KindState, "player %d to act is %s", player, r.PlayerStatus[player])
	}

	chips := s.PlayerChips[player]
	owed := r.Bet - r.PlayerBets[player]

	switch action.Kind {
	case Fold:
		return nil
	case Check:
		if owed != 0 {
			return game.Errorf(game.KindAction, "cannot check, must call %d", owed)
		}
	case Bet:
		if r.Bet != 0 {
			return game.Errorf(game.KindAction, "cannot bet, stage bet is already %d", r.Bet)
		}
		if action.Amount <= 0 {
			return game.Errorf(game.KindAction, "bet amount must be positive, got %d", action.Amount)
		}
		if action.Amount > chips {
			return game.Errorf(game.KindAction, "bet %d exceeds stack %d", action.Amount, chips)
		}
	case Call:
		if r.Bet == 0 {
			return game.Errorf(game.KindAction, "nothing to call")
		}
	case Raise:
		if r.Bet == 0 {
			return game.Errorf(game.KindAction, "nothing to raise, bet instead")
		}
		if action.Amount <= 0 {
			return game.Errorf(game.KindAction, "raise amount must be positive, got %d", action.Amount)
		}
		if owed+action.Amount > chips {
			return game.Errorf(game.KindAction, "call %d plus raise %d exceeds stack %d", owed, action.Amount, chips)
		}
	default:
		return game.Errorf(game.KindAction, "unknown action %d", action.Kind)
	}
	return nil
}

// ApplyAction validates and applies the action, resolving the stage, the
// round and the match as far as they are decided, and returns the new status.
func (s *State) ApplyAction(player int, action Action) (game.Status, error) {
	if err := s.CheckAction(player, action); err != nil {
		return game.Status{}, err
	}
	r := s.Current()

	switch action.Kind {
	case Fold:
		r.PlayerStatus[player] = Folded
	case Check:
	case Bet:
		s.commit(player, action.Amount)
		r.Bet = action.Amount
	case Call:
		s.commit(player, min(s.PlayerChips[player], r.Bet-r.PlayerBets[player]))
	case Raise:
		s.commit(player, r.Bet-r.PlayerBets[player]+action.Amount)
		r.Bet += action.Amount
	}
	r.Acted[player] = true

	s.advance(player)
	return s.CheckStatus(), nil
}

// commit moves chips from player's stack to their stage bet.
func (s *State) commit(player, amount int) {
	r := s.Current()
	s.PlayerChips[player] -= amount
	r.PlayerBets[player] += amount
	if s.PlayerChips[player] == 0 {
		r.PlayerStatus[player] = AllIn
	}
}

// ActionOption describes one legal action kind and its amount range.
type ActionOption struct {
	Kind ActionKind `json:"kind"`
	Min  int        `json:"min,omitempty"`
	Max  int        `json:"max,omitempty"`
}

// ValidActions lists what player may do now; empty when it is not their turn.
func (s *State) ValidActions(player int) []ActionOption {
	if s.CheckStatus().Over {
		return nil
	}
	r := s.Current()
	if player != r.CurrentPlayer || r.PlayerStatus[player] != Playing {
		return nil
	}
	return actionOptions(s.PlayerChips[player], r.Bet, r.PlayerBets[player])
}

func actionOptions(chips, bet, committed int) []ActionOption {
	owed := bet - committed
	options := []ActionOption{{Kind: Fold}}
	if owed == 0 {
		options = append(options, ActionOption{Kind: Check})
	}
	if bet == 0 {
		return append(options, ActionOption{Kind: Bet, Min: 1, Max: chips})
	}
	options = append(options, ActionOption{Kind: Call, Min: min(owed, chips), Max: min(owed, chips)})
	if chips-owed >= 1 {
		options = append(options, ActionOption{Kind: Raise, Min: 1, Max: chips - owed})
	}
	return options
}
