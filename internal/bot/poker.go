package bot

import (
	rand "math/rand/v2"
	"slices"

	"github.com/saolsen/gameplay/poker"
)

func findOption(opts []poker.ActionOption, kind poker.ActionKind) (poker.ActionOption, bool) {
	for _, o := range opts {
		if o.Kind == kind {
			return o, true
		}
	}
	return poker.ActionOption{}, false
}

// prefer returns the first of kinds that is legal. Bets and raises are sized
// at their minimum.
func prefer(opts []poker.ActionOption, kinds ...poker.ActionKind) poker.Action {
	for _, k := range kinds {
		if o, ok := findOption(opts, k); ok {
			a := poker.Action{Kind: k}
			if k == poker.Bet || k == poker.Raise {
				a.Amount = o.Min
			}
			return a
		}
	}
	return poker.Action{Kind: poker.Fold}
}

// sized returns a bet or raise of amount clamped to the legal range, falling
// back to check or call when neither is legal.
func sized(opts []poker.ActionOption, amount int) poker.Action {
	for _, k := range []poker.ActionKind{poker.Bet, poker.Raise} {
		if o, ok := findOption(opts, k); ok {
			return poker.Action{Kind: k, Amount: max(o.Min, min(o.Max, amount))}
		}
	}
	return prefer(opts, poker.Check, poker.Call)
}

func (r *RandBot) playPoker(v *poker.View) (poker.Action, string) {
	opts := v.ValidActions()
	if len(opts) == 0 {
		return poker.Action{Kind: poker.Fold}, "not my turn"
	}
	o := opts[r.rng.IntN(len(opts))]
	a := poker.Action{Kind: o.Kind}
	if o.Kind == poker.Bet || o.Kind == poker.Raise {
		a.Amount = o.Min + r.rng.IntN(o.Max-o.Min+1)
	}
	return a, "random action"
}

// CallBot checks or calls every street, folding only to a river bet larger
// than the pot.
type CallBot struct{}

func (CallBot) playPoker(v *poker.View) (poker.Action, string) {
	opts := v.ValidActions()
	r := v.Current()
	owed := r.Bet - r.PlayerBets[v.Player]
	if r.Stage == poker.River && owed > r.Pot {
		return poker.Action{Kind: poker.Fold}, "folding river to a large bet"
	}
	return prefer(opts, poker.Check, poker.Call), "calling station"
}

// FoldBot checks when it can and folds otherwise.
type FoldBot struct{}

func (FoldBot) playPoker(v *poker.View) (poker.Action, string) {
	return prefer(v.ValidActions(), poker.Check, poker.Fold), "folding"
}

// ChartBot plays a preflop chart and bets made hands after the flop.
type ChartBot struct{}

func (ChartBot) playPoker(v *poker.View) (poker.Action, string) {
	opts := v.ValidActions()
	r := v.Current()
	chips := v.PlayerChips[v.Player]
	owed := r.Bet - r.PlayerBets[v.Player]
	big := max(v.Blinds.Big, 1)

	if r.Stage == poker.Preflop {
		switch cat := poker.CategorizeHole(r.MyCards); cat {
		case poker.CategoryPremium:
			if chips <= 20*big {
				return sized(opts, chips), "pushing a premium hand short-stacked"
			}
			return sized(opts, 3*big), "raising a premium hand"
		case poker.CategoryStrong:
			if owed > 10*big {
				return prefer(opts, poker.Call), "calling a large bet with a strong hand"
			}
			return sized(opts, 2*big), "raising a strong hand"
		case poker.CategoryMedium:
			if owed > 4*big {
				return prefer(opts, poker.Check, poker.Fold), "folding a medium hand to a raise"
			}
			return prefer(opts, poker.Check, poker.Call), "limping a medium hand"
		default:
			return prefer(opts, poker.Check, poker.Fold), "folding " + string(cat)
		}
	}

	hand, err := poker.BestHand(slices.Concat(r.MyCards, r.TableCards))
	if err != nil {
		return prefer(opts, poker.Check, poker.Fold), "cannot read the board"
	}
	switch {
	case hand.Category >= poker.TwoPair:
		return sized(opts, max(r.Pot, big)), "betting " + hand.Category.String()
	case hand.Category == poker.OnePair && owed <= r.Pot:
		return prefer(opts, poker.Check, poker.Call), "calling with a pair"
	default:
		return prefer(opts, poker.Check, poker.Fold), "giving up with " + hand.Category.String()
	}
}

// ManiacBot bets and raises most of the time and shoves often.
type ManiacBot struct {
	rng *rand.Rand
}

func (m *ManiacBot) playPoker(v *poker.View) (poker.Action, string) {
	opts := v.ValidActions()
	chips := v.PlayerChips[v.Player]
	big := max(v.Blinds.Big, 1)
	roll := m.rng.Float64()

	if _, canCheck := findOption(opts, poker.Check); canCheck {
		if roll >= 0.85 {
			return poker.Action{Kind: poker.Check}, "maniac checking"
		}
		if chips <= 20*big || m.rng.Float64() < 0.3 {
			return sized(opts, chips), "maniac shove"
		}
		return sized(opts, chips*3/4), "maniac big bet"
	}

	switch {
	case roll < 0.4:
		return sized(opts, chips), "maniac shove over a bet"
	case roll < 0.8:
		return prefer(opts, poker.Call), "maniac call"
	default:
		return poker.Action{Kind: poker.Fold}, "maniac fold"
	}
}
