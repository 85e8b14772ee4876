package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/saolsen/gameplay/game"
	"github.com/saolsen/gameplay/games"
	"github.com/saolsen/gameplay/internal/bot"
	"github.com/saolsen/gameplay/internal/match"
	"github.com/saolsen/gameplay/internal/randutil"
	"github.com/saolsen/gameplay/internal/store"
	"github.com/saolsen/gameplay/poker"
)

// PlayCmd plays one match in the terminal.
type PlayCmd struct {
	Game    string        `short:"g" enum:"connect4,poker" default:"connect4" help:"Game to play (${enum})"`
	Player  []string      `short:"p" help:"Seat: human, bot:<name> or an agent URL with #name; repeat once per seat"`
	Seed    *uint64       `help:"Deterministic seed for bots and the poker deck (optional)"`
	Timeout time.Duration `default:"5s" help:"Turn timeout for agents; humans are untimed"`
	Chips   int           `default:"100" help:"Poker starting chips"`
}

func (c *PlayCmd) Run(g *Globals) error {
	logger := g.Logger(log.WarnLevel)
	kind := game.Kind(c.Game)

	sources := c.Player
	if len(sources) == 0 {
		sources = defaultSeats(kind, true)
	}
	if err := checkSeats(kind, sources, true); err != nil {
		return err
	}
	names := seatNames(sources)

	seed := randutil.Seed()
	if c.Seed != nil {
		seed = *c.Seed
	}
	resolver := &match.Resolver{Bots: bot.NewService(randutil.New(int64(seed)), logger), Logger: logger}
	participants, err := resolveSeats(resolver, sources, names)
	if err != nil {
		return err
	}

	cfg := match.DefaultConfig()
	cfg.TurnTimeout = c.Timeout
	cfg.Games = map[game.Kind]games.Game{
		game.Poker: games.Poker(poker.WithSeed(seed), poker.WithStartingChips(c.Chips)),
	}
	coord := match.New(store.NewMemory(), quartz.NewReal(), logger, cfg, nil)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Humans see the game in their prompt; otherwise narrate it.
	stopNarrating := func() {}
	if !slices.Contains(sources, humanSeat) {
		stopNarrating = narrate(coord.Bus(), names)
	}
	m, err := coord.Play(ctx, kind, participants)
	stopNarrating()
	if err != nil {
		return err
	}
	board, err := renderState(m, names)
	if err != nil {
		return err
	}
	fmt.Println(board)
	fmt.Printf("%s after %d turns\n", describe(m.Status, names), m.Turns)
	return nil
}

// narrate prints every turn until the returned stop func is called. Stop
// waits for buffered turns to be printed.
func narrate(bus *match.Bus, names []string) (stop func()) {
	events, cancel := bus.Subscribe("")
	done := make(chan struct{})
	go func() {
		defer close(done)
		for e := range events {
			if e.Type == match.EventTurn && e.Player != nil {
				fmt.Printf("%4d  %-16s %s\n", e.Turn, names[*e.Player], e.Action)
			}
		}
	}()
	return func() {
		cancel()
		<-done
	}
}
