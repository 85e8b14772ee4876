package poker

import (
	"fmt"
	"slices"
	"strings"
)

// Category enumerates hand categories from weakest to strongest.
type Category uint8

const (
	HighCard Category = iota
	OnePair
	TwoPair
	ThreeOfAKind
	Straight
	Flush
	FullHouse
	FourOfAKind
	StraightFlush
)

func (c Category) String() string {
	switch c {
	case HighCard:
		return "High Card"
	case OnePair:
		return "Pair"
	case TwoPair:
		return "Two Pair"
	case ThreeOfAKind:
		return "Three of a Kind"
	case Straight:
		return "Straight"
	case Flush:
		return "Flush"
	case FullHouse:
		return "Full House"
	case FourOfAKind:
		return "Four of a Kind"
	case StraightFlush:
		return "Straight Flush"
	default:
		return "Unknown"
	}
}

// Hand is a classified five-card hand. Ranks holds the tie-break ranks in
// the order that decides ties within the category:
//
//	HighCard, Flush      five ranks, high to low
//	OnePair              pair, then three kickers
//	TwoPair              high pair, low pair, kicker
//	ThreeOfAKind         trips, then two kickers
//	Straight, StraightFlush  the top card (Five for the wheel)
//	FullHouse            trips, pair
//	FourOfAKind          quads, kicker
type Hand struct {
	Category Category `json:"category"`
	Ranks    []Rank   `json:"ranks"`
	Cards    [5]Card  `json:"cards"`
}

func (h Hand) String() string {
	parts := make([]string, len(h.Ranks))
	for i, r := range h.Ranks {
		parts[i] = r.String()
	}
	return fmt.Sprintf("%s (%s)", h.Category, strings.Join(parts, " "))
}

// Evaluate classifies five distinct cards.
func Evaluate(cards [5]Card) Hand {
	sorted := cards
	slices.SortFunc(sorted[:], func(a, b Card) int { return int(b.Rank) - int(a.Rank) })

	// Group ranks by multiplicity, largest group first, then highest rank.
	type group struct {
		rank  Rank
		count int
	}
	var groups []group
	for _, c := range sorted {
		if n := len(groups); n > 0 && groups[n-1].rank == c.Rank {
			groups[n-1].count++
			continue
		}
		groups = append(groups, group{rank: c.Rank, count: 1})
	}
	slices.SortStableFunc(groups, func(a, b group) int { return b.count - a.count })

	ranks := make([]Rank, len(groups))
	for i, g := range groups {
		ranks[i] = g.rank
	}
	h := Hand{Ranks: ranks, Cards: sorted}

	switch len(groups) {
	case 5:
		flush := true
		for _, c := range sorted[1:] {
			if c.Suit != sorted[0].Suit {
				flush = false
				break
			}
		}
		high, straight := straightHigh(ranks)
		switch {
		case straight && flush:
			h.Category, h.Ranks = StraightFlush, []Rank{high}
		case flush:
			h.Category = Flush
		case straight:
			h.Category, h.Ranks = Straight, []Rank{high}
		default:
			h.Category = HighCard
		}
	case 4:
		h.Category = OnePair
	case 3:
		if groups[0].count == 3 {
			h.Category = ThreeOfAKind
		} else {
			h.Category = TwoPair
		}
	case 2:
		if groups[0].count == 4 {
			h.Category = FourOfAKind
		} else {
			h.Category = FullHouse
		}
	default:
		panic(fmt.Sprintf("poker: five cards of one rank: %v", cards))
	}
	return h
}

// straightHigh reports whether five distinct descending ranks form a
// straight, and its top card. A-5-4-3-2 is a five-high straight.
func straightHigh(ranks []Rank) (Rank, bool) {
	if ranks[0]-ranks[4] == 4 {
		return ranks[0], true
	}
	if ranks[0] == Ace && ranks[1] == Five && ranks[4] == Two {
		return Five, true
	}
	return 0, false
}

// HandRank maps a hand to a tuple that orders hands: the category first,
// then the tie-break ranks.
func HandRank(h Hand) []int {
	tuple := make([]int, 0, len(h.Ranks)+1)
	tuple = append(tuple, int(h.Category))
	for _, r := range h.Ranks {
		tuple = append(tuple, int(r))
	}
	return tuple
}

// CompareHands returns 1 if a beats b, -1 if b beats a and 0 on a tie.
func CompareHands(a, b Hand) int {
	return slices.Compare(HandRank(a), HandRank(b))
}

// BestHand returns the strongest five-card hand among all five-card subsets
// of 5 to 7 distinct cards. Among equal hands the first found is returned.
func BestHand(cards []Card) (Hand, error) {
	if len(cards) < 5 || len(cards) > 7 {
		return Hand{}, fmt.Errorf("best hand needs 5 to 7 cards, got %d", len(cards))
	}
	seen := make(map[Card]bool, len(cards))
	for _, c := range cards {
		if !c.Valid() {
			return Hand{}, fmt.Errorf("invalid card %v", c)
		}
		if seen[c] {
			return Hand{}, fmt.Errorf("duplicate card %s", c)
		}
		seen[c] = true
	}

	var best Hand
	found := false
	n := len(cards)
	var combo [5]Card
	for a := 0; a < n-4; a++ {
		for b := a + 1; b < n-3; b++ {
			for c := b + 1; c < n-2; c++ {
				for d := c + 1; d < n-1; d++ {
					for e := d + 1; e < n; e++ {
						combo = [5]Card{cards[a], cards[b], cards[c], cards[d], cards[e]}
						h := Evaluate(combo)
						if !found || CompareHands(h, best) > 0 {
							best, found = h, true
						}
					}
				}
			}
		}
	}
	return best, nil
}
