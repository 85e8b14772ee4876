package poker

import rand "math/rand/v2"

// DeckSize is the number of cards in a standard deck.
const DeckSize = 52

// NewDeck returns all 52 cards in suit-major order.
func NewDeck() []Card {
	cards := make([]Card, 0, DeckSize)
	for suit := Clubs; suit <= Spades; suit++ {
		for rank := Two; rank <= Ace; rank++ {
			cards = append(cards, NewCard(rank, suit))
		}
	}
	return cards
}

// Shuffle shuffles cards in place using Fisher-Yates.
func Shuffle(cards []Card, rng *rand.Rand) {
	for i := len(cards) - 1; i > 0; i-- {
		j := rng.IntN(i + 1)
		cards[i], cards[j] = cards[j], cards[i]
	}
}

// NewShuffledDeck returns a full deck shuffled with rng.
func NewShuffledDeck(rng *rand.Rand) []Card {
	cards := NewDeck()
	Shuffle(cards, rng)
	return cards
}

// deal removes n cards from the top of deck. It panics if the deck runs out,
// which the player limit makes impossible.
func deal(deck *[]Card, n int) []Card {
	if n > len(*deck) {
		panic("poker: deck exhausted")
	}
	cards := make([]Card, n)
	copy(cards, (*deck)[:n])
	*deck = (*deck)[n:]
	return cards
}
