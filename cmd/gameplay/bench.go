package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/saolsen/gameplay/game"
	"github.com/saolsen/gameplay/internal/bot"
	"github.com/saolsen/gameplay/internal/match"
	"github.com/saolsen/gameplay/internal/randutil"
	"github.com/saolsen/gameplay/internal/store"
	"github.com/saolsen/gameplay/internal/tui"
)

// BenchCmd plays many matches between the same seats and tallies results.
type BenchCmd struct {
	Game        string        `short:"g" enum:"connect4,poker" default:"connect4" help:"Game to play (${enum})"`
	Player      []string      `short:"p" help:"Seat: bot:<name> or an agent URL with #name; repeat once per seat"`
	Matches     int           `short:"n" default:"100" help:"Number of matches"`
	Concurrency int           `short:"j" default:"8" help:"Matches played at once"`
	Seed        *uint64       `help:"Deterministic seed for the bots (optional)"`
	Timeout     time.Duration `default:"5s" help:"Turn timeout for agents"`
	MaxTurns    int           `default:"2000" help:"Turns after which a match is errored"`
}

func (c *BenchCmd) Run(g *Globals) error {
	logger := g.Logger(log.WarnLevel)
	kind := game.Kind(c.Game)
	if c.Matches < 1 {
		return fmt.Errorf("--matches must be positive")
	}

	sources := c.Player
	if len(sources) == 0 {
		sources = defaultSeats(kind, false)
	}
	if err := checkSeats(kind, sources, false); err != nil {
		return err
	}
	names := seatNames(sources)

	seed := randutil.Seed()
	if c.Seed != nil {
		seed = *c.Seed
	}

	// Remote agents are shared by every match; bots get a fresh instance
	// with their own random stream per match.
	resolver := &match.Resolver{Logger: logger}
	remote := make([]match.Participant, len(sources))
	for i, src := range sources {
		if strings.HasPrefix(src, match.BotPrefix) {
			continue
		}
		p, err := resolver.Resolve(store.Player{Name: names[i], Agent: src})
		if err != nil {
			return fmt.Errorf("seat %d: %w", i, err)
		}
		remote[i] = p
	}
	seatFor := func(n int) []match.Participant {
		ps := make([]match.Participant, len(sources))
		for i, src := range sources {
			name, ok := strings.CutPrefix(src, match.BotPrefix)
			if !ok {
				ps[i] = remote[i]
				continue
			}
			// checkSeats has vetted the name.
			b, _ := bot.New(name, randutil.Stream(seed, uint64(n*len(sources)+i)), logger)
			ps[i] = match.Participant{Name: names[i], Source: src, Agent: b}
		}
		return ps
	}

	cfg := match.Config{TurnTimeout: c.Timeout, MaxTurns: c.MaxTurns}
	coord := match.New(store.NewMemory(), quartz.NewReal(), logger, cfg, nil)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	res, err := coord.RunBatch(ctx, kind, c.Matches, c.Concurrency, seatFor)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	fmt.Println(resultTable(res, names))
	fmt.Printf("%d matches in %s (%.1f/s), %d drawn, %d errored\n",
		len(res.Matches), elapsed.Round(time.Millisecond), float64(len(res.Matches))/elapsed.Seconds(), res.Draws, res.Errored)
	return nil
}

func resultTable(res *match.BatchResult, names []string) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(tui.InfoStyle).
		Headers("Seat", "Wins", "Win %")
	for i, name := range names {
		wins := 0
		if i < len(res.Wins) {
			wins = res.Wins[i]
		}
		pct := 100 * float64(wins) / float64(len(res.Matches))
		t.Row(name, strconv.Itoa(wins), fmt.Sprintf("%.1f", pct))
	}
	return t.Render()
}
