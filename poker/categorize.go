package poker

// HoleCategory is a coarse preflop strength bucket for two hole cards.
type HoleCategory string

const (
	CategoryPremium HoleCategory = "premium"
	CategoryStrong  HoleCategory = "strong"
	CategoryMedium  HoleCategory = "medium"
	CategoryWeak    HoleCategory = "weak"
	CategoryTrash   HoleCategory = "trash"
	CategoryUnknown HoleCategory = "unknown"
)

// CategorizeHole buckets hole cards: premium (JJ+, AK), strong (TT, AQ, AJ),
// medium (77-99, suited broadway), weak (22-66, suited connectors) and trash.
func CategorizeHole(cards []Card) HoleCategory {
	if len(cards) != 2 || !cards[0].Valid() || !cards[1].Valid() || cards[0] == cards[1] {
		return CategoryUnknown
	}
	small, big := cards[0].Rank, cards[1].Rank
	if small > big {
		small, big = big, small
	}
	suited := cards[0].Suit == cards[1].Suit
	pair := small == big

	switch {
	case pair && small >= Jack, small == King && big == Ace:
		return CategoryPremium
	case pair && small == Ten, big == Ace && (small == Queen || small == Jack):
		return CategoryStrong
	case pair && small >= Seven, suited && small >= Ten:
		return CategoryMedium
	case pair, suited && big-small <= 2:
		return CategoryWeak
	default:
		return CategoryTrash
	}
}

// Rank orders categories from trash (0) to premium (4); unknown is -1.
func (c HoleCategory) Rank() int {
	switch c {
	case CategoryPremium:
		return 4
	case CategoryStrong:
		return 3
	case CategoryMedium:
		return 2
	case CategoryWeak:
		return 1
	case CategoryTrash:
		return 0
	default:
		return -1
	}
}
