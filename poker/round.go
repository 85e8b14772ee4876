package poker

import (
	"fmt"
	"slices"
)

// advance moves play on after player acted. The stage ends when nobody can
// act, when everyone has checked around, or when every playing player has
// matched a nonzero stage bet. A lone playing player with nothing to call
// has nobody left to bet against.
func (s *State) advance(player int) {
	r := s.Current()
	next, ok := r.playerAfter(player)
	switch {
	case !ok:
		s.endStage()
	case r.countStatus(Playing) == 1 && r.allMatched():
		s.endStage()
	case r.Bet == 0 && r.allActed():
		s.endStage()
	case r.Bet > 0 && r.allMatched():
		s.endStage()
	default:
		r.CurrentPlayer = next
	}
}

func (r *Round) allActed() bool {
	for i, st := range r.PlayerStatus {
		if st == Playing && !r.Acted[i] {
			return false
		}
	}
	return true
}

func (r *Round) allMatched() bool {
	for i, st := range r.PlayerStatus {
		if st == Playing && r.PlayerBets[i] != r.Bet {
			return false
		}
	}
	return true
}

// endStage collects bets into the pot and moves to the next stage. With at
// most one player left able to act, the board is dealt out and the round goes
// straight to showdown.
func (s *State) endStage() {
	r := s.Current()
	for i, b := range r.PlayerBets {
		r.Pot += b
		r.PlayerBets[i] = 0
	}
	r.Bet = 0
	clear(r.Acted)

	if r.countStatus(Playing) <= 1 {
		r.TableCards = append(r.TableCards, deal(&r.Deck, 5-len(r.TableCards))...)
		r.Stage = Showdown
		s.showdown()
		return
	}

	switch r.Stage {
	case Preflop:
		r.TableCards = append(r.TableCards, deal(&r.Deck, 3)...)
	case Flop, Turn:
		r.TableCards = append(r.TableCards, deal(&r.Deck, 1)...)
	case River:
		r.Stage = Showdown
		s.showdown()
		return
	}
	r.Stage++
	r.CurrentPlayer, _ = r.playerAfter(r.Dealer)
}

// showdown pays the pot to the best hand among players still in, then either
// ends the match or deals the next round.
func (s *State) showdown() {
	r := s.Current()

	var contenders []int
	for i, st := range r.PlayerStatus {
		if st == Playing || st == AllIn {
			contenders = append(contenders, i)
		}
	}

	winners := contenders
	if len(contenders) > 1 {
		winners = nil
		var best Hand
		for _, p := range contenders {
			cards := append(slices.Clone(r.PlayerCards[p]), r.TableCards...)
			h, err := BestHand(cards)
			if err != nil {
				panic(fmt.Sprintf("poker: evaluating player %d: %v", p, err))
			}
			switch c := CompareHands(h, best); {
			case winners == nil || c > 0:
				best, winners = h, []int{p}
			case c == 0:
				winners = append(winners, p)
			}
		}
	}
	s.payout(winners)

	var remaining []int
	for i, chips := range s.PlayerChips {
		if chips > 0 {
			remaining = append(remaining, i)
		}
	}
	if len(remaining) == 1 {
		return
	}

	dealer := r.Dealer
	for i := 1; i <= len(s.PlayerChips); i++ {
		q := (r.Dealer + i) % len(s.PlayerChips)
		if s.PlayerChips[q] > 0 {
			dealer = q
			break
		}
	}
	s.startRound(dealer)
}

// payout splits the pot evenly among winners. Odd chips go one at a time to
// winners in seat order starting after the dealer.
func (s *State) payout(winners []int) {
	r := s.Current()
	n := len(s.PlayerChips)

	ordered := slices.Clone(winners)
	slices.SortFunc(ordered, func(a, b int) int {
		return (a-r.Dealer-1+n)%n - (b-r.Dealer-1+n)%n
	})

	share, rem := r.Pot/len(ordered), r.Pot%len(ordered)
	r.Payouts = make([]int, n)
	for i, p := range ordered {
		won := share
		if i < rem {
			won++
		}
		r.Payouts[p] = won
		s.PlayerChips[p] += won
	}
	r.Winners = slices.Sorted(slices.Values(winners))
	r.Pot = 0
}
