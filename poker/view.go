package poker

import (
	"slices"

	"github.com/saolsen/gameplay/game"
)

// RoundView is a round as seen by one player: no deck, and only their own
// hole cards.
type RoundView struct {
	Stage         Stage          `json:"stage"`
	TableCards    []Card         `json:"table_cards"`
	Bet           int            `json:"bet"`
	Pot           int            `json:"pot"`
	Dealer        int            `json:"dealer"`
	CurrentPlayer int            `json:"current_player"`
	PlayerStatus  []PlayerStatus `json:"player_status"`
	PlayerBets    []int          `json:"player_bets"`
	MyCards       []Card         `json:"my_cards"`
	Winners       []int          `json:"winners,omitempty"`
	Payouts       []int          `json:"payouts,omitempty"`
}

// View is the match as seen by one player.
type View struct {
	Player      int         `json:"player"`
	PlayerChips []int       `json:"player_chips"`
	Blinds      Blinds      `json:"blinds"`
	Round       int         `json:"round"`
	Rounds      []RoundView `json:"rounds"`
}

// View redacts every deck and other players' hole cards. The seed is
// withheld too, since it determines every deck.
func (s *State) View(player int) *View {
	v := &View{
		Player:      player,
		PlayerChips: slices.Clone(s.PlayerChips),
		Blinds:      s.Blinds,
		Round:       s.Round,
		Rounds:      make([]RoundView, len(s.Rounds)),
	}
	for i, r := range s.Rounds {
		rv := RoundView{
			Stage:         r.Stage,
			TableCards:    slices.Clone(r.TableCards),
			Bet:           r.Bet,
			Pot:           r.Pot,
			Dealer:        r.Dealer,
			CurrentPlayer: r.CurrentPlayer,
			PlayerStatus:  slices.Clone(r.PlayerStatus),
			PlayerBets:    slices.Clone(r.PlayerBets),
			MyCards:       []Card{},
			Winners:       slices.Clone(r.Winners),
			Payouts:       slices.Clone(r.Payouts),
		}
		if player >= 0 && player < len(r.PlayerCards) {
			rv.MyCards = slices.Clone(r.PlayerCards[player])
		}
		v.Rounds[i] = rv
	}
	return v
}

// Current returns the round in play.
func (v *View) Current() *RoundView {
	return &v.Rounds[v.Round]
}

// ValidActions lists what the viewing player may do, mirroring
// State.ValidActions from public information only.
func (v *View) ValidActions() []ActionOption {
	r := v.Current()
	if r.Stage == Showdown || r.CurrentPlayer != v.Player || v.Player < 0 || v.Player >= len(r.PlayerStatus) || r.PlayerStatus[v.Player] != Playing {
		return nil
	}
	return actionOptions(v.PlayerChips[v.Player], r.Bet, r.PlayerBets[v.Player])
}

type viewJSON View

// MarshalJSON encodes the view tagged with "game": "poker".
func (v View) MarshalJSON() ([]byte, error) {
	return game.MarshalTagged(game.Poker, viewJSON(v))
}

// UnmarshalJSON decodes a tagged view.
func (v *View) UnmarshalJSON(data []byte) error {
	var out viewJSON
	if err := game.UnmarshalTagged(game.Poker, data, &out); err != nil {
		return err
	}
	*v = View(out)
	return v.Validate()
}

// Validate checks that a decoded view is internally consistent, so that
// Current and ValidActions are safe to call. Player is a seat, or -1 for
// the public view.
func (v *View) Validate() error {
	n := len(v.PlayerChips)
	if n < 2 || n > MaxPlayers {
		return game.Errorf(game.KindState, "invalid player count %d", n)
	}
	if v.Player < -1 || v.Player >= n {
		return game.Errorf(game.KindState, "invalid player %d", v.Player)
	}
	for i, c := range v.PlayerChips {
		if c < 0 {
			return game.Errorf(game.KindState, "player %d has negative chips", i)
		}
	}
	if v.Round < 0 || v.Round >= len(v.Rounds) {
		return game.Errorf(game.KindState, "round %d out of range", v.Round)
	}
	for i, r := range v.Rounds {
		if len(r.PlayerStatus) != n || len(r.PlayerBets) != n {
			return game.Errorf(game.KindState, "round %d has per-player fields of the wrong length", i)
		}
		if r.Dealer < 0 || r.Dealer >= n || r.CurrentPlayer < 0 || r.CurrentPlayer >= n {
			return game.Errorf(game.KindState, "round %d has an invalid seat", i)
		}
		if r.Stage > Showdown || len(r.TableCards) > 5 {
			return game.Errorf(game.KindState, "round %d has an invalid stage", i)
		}
		if len(r.MyCards) != 0 && len(r.MyCards) != 2 {
			return game.Errorf(game.KindState, "round %d shows %d hole cards", i, len(r.MyCards))
		}
		if r.Payouts != nil && len(r.Payouts) != n {
			return game.Errorf(game.KindState, "round %d has payouts of the wrong length", i)
		}
		for _, w := range r.Winners {
			if w < 0 || w >= n {
				return game.Errorf(game.KindState, "round %d has an invalid winner %d", i, w)
			}
		}
		for p, st := range r.PlayerStatus {
			if st > Out {
				return game.Errorf(game.KindState, "round %d player %d has an invalid status", i, p)
			}
		}
	}
	return nil
}
