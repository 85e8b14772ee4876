package poker

import (
	"encoding/json"
	"math"
	"slices"
	"testing"

	"github.com/saolsen/gameplay/internal/randutil"
)

func TestParseCard(t *testing.T) {
	t.Parallel()
	tests := []struct {
		input   string
		want    Card
		wantErr bool
	}{
		{input: "As", want: NewCard(Ace, Spades)},
		{input: "2h", want: NewCard(Two, Hearts)},
		{input: "Kd", want: NewCard(King, Diamonds)},
		{input: "Tc", want: NewCard(Ten, Clubs)},
		{input: "td", want: NewCard(Ten, Diamonds)},
		{input: "10h", want: NewCard(Ten, Hearts)},
		{input: "A♣", want: NewCard(Ace, Clubs)},
		{input: "9♦", want: NewCard(Nine, Diamonds)},
		{input: " qS ", want: NewCard(Queen, Spades)},
		{input: "Xs", wantErr: true},
		{input: "Ax", wantErr: true},
		{input: "", wantErr: true},
		{input: "A", wantErr: true},
		{input: "Asd", wantErr: true},
		{input: "1s", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			t.Parallel()
			card, err := ParseCard(tc.input)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("ParseCard(%q) = %v, want error", tc.input, card)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseCard(%q): %v", tc.input, err)
			}
			if card != tc.want {
				t.Errorf("ParseCard(%q) = %v, want %v", tc.input, card, tc.want)
			}
		})
	}
}

func TestAll52Cards(t *testing.T) {
	t.Parallel()
	deck := NewDeck()
	if len(deck) != DeckSize {
		t.Fatalf("NewDeck() has %d cards, want %d", len(deck), DeckSize)
	}
	seen := make(map[string]bool)
	for _, card := range deck {
		if !card.Valid() {
			t.Errorf("invalid card in deck: %+v", card)
		}
		str := card.String()
		if seen[str] {
			t.Errorf("duplicate card %s", str)
		}
		seen[str] = true

		parsed, err := ParseCard(str)
		if err != nil || parsed != card {
			t.Errorf("round trip of %s gave %v, %v", str, parsed, err)
		}
		pretty, err := ParseCard(card.Pretty())
		if err != nil || pretty != card {
			t.Errorf("round trip of %s gave %v, %v", card.Pretty(), pretty, err)
		}
	}
}

func TestShuffleIsPermutation(t *testing.T) {
	t.Parallel()
	deck := NewShuffledDeck(randutil.New(7))
	seen := make(map[Card]bool)
	for _, c := range deck {
		seen[c] = true
	}
	if len(deck) != DeckSize || len(seen) != DeckSize {
		t.Fatalf("shuffled deck has %d cards, %d distinct", len(deck), len(seen))
	}

	again := NewShuffledDeck(randutil.New(7))
	for i := range deck {
		if deck[i] != again[i] {
			t.Fatalf("same seed produced different decks at %d: %s vs %s", i, deck[i], again[i])
		}
	}
}

// Every card should land in every position equally often. Each shuffle uses
// its own stream, as every round does.
func TestShuffleIsUniform(t *testing.T) {
	t.Parallel()
	const trials = 50_000
	cards := MustParseCards("As Kd Qh Jc Ts")
	n := len(cards)
	index := make(map[Card]int, n)
	for i, c := range cards {
		index[c] = i
	}

	counts := make([][]int, n)
	for i := range counts {
		counts[i] = make([]int, n)
	}
	for trial := range trials {
		deck := slices.Clone(cards)
		Shuffle(deck, randutil.Stream(42, uint64(trial)))
		for pos, c := range deck {
			counts[index[c]][pos]++
		}
	}

	expected := float64(trials) / float64(n)
	// Five standard deviations of a single cell's count.
	tolerance := 5 * math.Sqrt(expected*(1-1/float64(n)))
	chi2 := 0.0
	for card, row := range counts {
		for pos, got := range row {
			diff := float64(got) - expected
			if math.Abs(diff) > tolerance {
				t.Errorf("%s landed at position %d %d times, want %.0f ± %.0f", cards[card], pos, got, expected, tolerance)
			}
			chi2 += diff * diff / expected
		}
	}
	// 16 degrees of freedom; 45 is far beyond the 0.999 quantile (39.3).
	if chi2 > 45 {
		t.Errorf("chi-square %.1f suggests a biased shuffle", chi2)
	}
}

func TestDealPanicsWhenExhausted(t *testing.T) {
	t.Parallel()
	deck := MustParseCards("As Kd")
	got := deal(&deck, 2)
	if FormatCards(got) != "As Kd" || len(deck) != 0 {
		t.Fatalf("deal = %s, remaining %d", FormatCards(got), len(deck))
	}
	defer func() {
		if recover() == nil {
			t.Error("deal from an empty deck should panic")
		}
	}()
	deal(&deck, 1)
}

func TestCardJSON(t *testing.T) {
	t.Parallel()
	cards := MustParseCards("As, 10h, 2c")
	data, err := json.Marshal(cards)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `["As","Th","2c"]` {
		t.Errorf("Marshal = %s", data)
	}

	var back []Card
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}
	if FormatCards(back) != "As Th 2c" {
		t.Errorf("Unmarshal = %s", FormatCards(back))
	}

	if _, err := json.Marshal(Card{}); err == nil {
		t.Error("marshalling the zero card should fail")
	}
	if err := json.Unmarshal([]byte(`"Zz"`), new(Card)); err == nil {
		t.Error("unmarshalling a bad card should fail")
	}
}
