package poker

import (
	"fmt"
	rand "math/rand/v2"

	"github.com/saolsen/gameplay/game"
	"github.com/saolsen/gameplay/internal/randutil"
)

const (
	// DefaultStartingChips is every player's initial stack.
	DefaultStartingChips = 100
	// MaxPlayers keeps two hole cards per player plus the board within one deck.
	MaxPlayers = (DeckSize - 5) / 2
)

// Stage is one betting phase of a round.
type Stage uint8

const (
	Preflop Stage = iota
	Flop
	Turn
	River
	Showdown
)

var stageNames = [...]string{"preflop", "flop", "turn", "river", "showdown"}

func (s Stage) String() string {
	if int(s) >= len(stageNames) {
		return "unknown"
	}
	return stageNames[s]
}

// MarshalText encodes the stage name.
func (s Stage) MarshalText() ([]byte, error) {
	if int(s) >= len(stageNames) {
		return nil, fmt.Errorf("invalid stage %d", s)
	}
	return []byte(s.String()), nil
}

// UnmarshalText decodes a stage name.
func (s *Stage) UnmarshalText(text []byte) error {
	for i, name := range stageNames {
		if name == string(text) {
			*s = Stage(i)
			return nil
		}
	}
	return fmt.Errorf("unknown stage %q", text)
}

// PlayerStatus is a player's standing within one round.
type PlayerStatus uint8

const (
	Playing PlayerStatus = iota
	AllIn
	Folded
	Out
)

var playerStatusNames = [...]string{"playing", "all-in", "folded", "out"}

func (p PlayerStatus) String() string {
	if int(p) >= len(playerStatusNames) {
		return "unknown"
	}
	return playerStatusNames[p]
}

// MarshalText encodes the status name.
func (p PlayerStatus) MarshalText() ([]byte, error) {
	if int(p) >= len(playerStatusNames) {
		return nil, fmt.Errorf("invalid player status %d", p)
	}
	return []byte(p.String()), nil
}

// UnmarshalText decodes a status name.
func (p *PlayerStatus) UnmarshalText(text []byte) error {
	for i, name := range playerStatusNames {
		if name == string(text) {
			*p = PlayerStatus(i)
			return nil
		}
	}
	return fmt.Errorf("unknown player status %q", text)
}

// Blinds are recorded for the match. They are not posted: every stage opens
// with a check, bet or fold.
type Blinds struct {
	Small int `json:"small"`
	Big   int `json:"big"`
}

// Round is one deal-to-showdown cycle. A round's deck is private to it.
type Round struct {
	Stage         Stage          `json:"stage"`
	Deck          []Card         `json:"deck"`
	TableCards    []Card         `json:"table_cards"`
	Bet           int            `json:"bet"`
	Pot           int            `json:"pot"`
	Dealer        int            `json:"dealer"`
	CurrentPlayer int            `json:"current_player"`
	PlayerStatus  []PlayerStatus `json:"player_status"`
	PlayerBets    []int          `json:"player_bets"`
	PlayerCards   [][]Card       `json:"player_cards"`
	// Acted marks players who have acted in the current stage.
	Acted []bool `json:"acted"`
	// Winners and Payouts are set when the pot is paid out; the pot is then zero.
	Winners []int `json:"winners,omitempty"`
	Payouts []int `json:"payouts,omitempty"`
}

// State is a poker match: rounds are appended until one player holds every chip.
type State struct {
	PlayerChips []int   `json:"player_chips"`
	Blinds      Blinds  `json:"blinds"`
	Round       int     `json:"round"`
	Rounds      []Round `json:"rounds"`
	// Seed derives each round's shuffle so that a match replays exactly.
	Seed uint64 `json:"seed,string"`
}

type options struct {
	seed          uint64
	seeded        bool
	startingChips int
	blinds        Blinds
}

// Option configures NewGame.
type Option func(*options)

// WithRand draws the match seed from rng.
func WithRand(rng *rand.Rand) Option {
	return func(o *options) {
		o.seed, o.seeded = rng.Uint64(), true
	}
}

// WithSeed fixes the match seed.
func WithSeed(seed uint64) Option {
	return func(o *options) {
		o.seed, o.seeded = seed, true
	}
}

// WithStartingChips sets every player's initial stack.
func WithStartingChips(chips int) Option {
	return func(o *options) {
		o.startingChips = chips
	}
}

// WithBlinds records the match blinds.
func WithBlinds(small, big int) Option {
	return func(o *options) {
		o.blinds = Blinds{Small: small, Big: big}
	}
}

// NewGame shuffles a deck, deals two hole cards to each player and gives each
// the starting stack. Player 0 deals; the player after the dealer acts first.
func NewGame(players int, opts ...Option) (*State, error) {
	o := options{startingChips: DefaultStartingChips, blinds: Blinds{Small: 1, Big: 2}}
	for _, opt := range opts {
		opt(&o)
	}
	if !o.seeded {
		o.seed = randutil.Seed()
	}

	if players < 2 {
		return nil, game.Errorf(game.KindArgs, "poker needs at least 2 players, got %d", players)
	}
	if players > MaxPlayers {
		return nil, game.Errorf(game.KindArgs, "poker allows at most %d players, got %d", MaxPlayers, players)
	}
	if o.startingChips <= 0 {
		return nil, game.Errorf(game.KindArgs, "starting chips must be positive, got %d", o.startingChips)
	}
	if o.blinds.Small < 0 || o.blinds.Big < o.blinds.Small {
		return nil, game.Errorf(game.KindArgs, "invalid blinds %d/%d", o.blinds.Small, o.blinds.Big)
	}

	s := &State{
		PlayerChips: make([]int, players),
		Blinds:      o.blinds,
		Seed:        o.seed,
	}
	for i := range s.PlayerChips {
		s.PlayerChips[i] = o.startingChips
	}
	s.startRound(0)
	return s, nil
}

// startRound appends a round dealt by dealer and makes it current. Players
// without chips sit out.
func (s *State) startRound(dealer int) {
	n := len(s.PlayerChips)
	deck := NewShuffledDeck(randutil.Stream(s.Seed, uint64(len(s.Rounds))))
	r := Round{
		Stage:        Preflop,
		Deck:         deck,
		TableCards:   []Card{},
		Dealer:       dealer,
		PlayerStatus: make([]PlayerStatus, n),
		PlayerBets:   make([]int, n),
		PlayerCards:  make([][]Card, n),
		Acted:        make([]bool, n),
	}
	for i := range n {
		if s.PlayerChips[i] == 0 {
			r.PlayerStatus[i] = Out
			r.PlayerCards[i] = []Card{}
			continue
		}
		r.PlayerCards[i] = deal(&r.Deck, 2)
	}
	next, ok := r.playerAfter(dealer)
	if !ok {
		panic("poker: round started without players")
	}
	r.CurrentPlayer = next

	s.Rounds = append(s.Rounds, r)
	s.Round = len(s.Rounds) - 1
}

// Current returns the round in play.
func (s *State) Current() *Round {
	return &s.Rounds[s.Round]
}

// CheckStatus reports the player to act, or the winner once a single player
// holds every chip.
func (s *State) CheckStatus() game.Status {
	r := s.Current()
	if r.Stage != Showdown {
		return game.InProgress(r.CurrentPlayer)
	}
	var remaining []int
	for i, chips := range s.PlayerChips {
		if chips > 0 {
			remaining = append(remaining, i)
		}
	}
	if len(remaining) == 1 {
		return game.Won(remaining[0])
	}
	return game.Failed(fmt.Sprintf("round %d ended at showdown with %d players holding chips", s.Round, len(remaining)))
}

// TotalChips sums stacks, the current pot and uncollected bets. It is
// constant over a match.
func (s *State) TotalChips() int {
	total := 0
	for _, c := range s.PlayerChips {
		total += c
	}
	r := s.Current()
	total += r.Pot
	for _, b := range r.PlayerBets {
		total += b
	}
	return total
}

// playerAfter walks seats cyclically from p+1 (wrapping back to p itself) and
// returns the first one still playing.
func (r *Round) playerAfter(p int) (int, bool) {
	n := len(r.PlayerStatus)
	for i := 1; i <= n; i++ {
		q := (p + i) % n
		if r.PlayerStatus[q] == Playing {
			return q, true
		}
	}
	return 0, false
}

func (r *Round) countStatus(statuses ...PlayerStatus) int {
	count := 0
	for _, st := range r.PlayerStatus {
		for _, want := range statuses {
			if st == want {
				count++
				break
			}
		}
	}
	return count
}
