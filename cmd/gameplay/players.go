package main

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/saolsen/gameplay/connect4"
	"github.com/saolsen/gameplay/game"
	"github.com/saolsen/gameplay/internal/bot"
	"github.com/saolsen/gameplay/internal/match"
	"github.com/saolsen/gameplay/internal/store"
	"github.com/saolsen/gameplay/internal/tui"
	"github.com/saolsen/gameplay/poker"
)

const humanSeat = "human"

func defaultSeats(kind game.Kind, human bool) []string {
	first := "bot:greedy"
	second := "bot:random"
	if kind == game.Poker {
		first, second = "bot:chart", "bot:call"
	}
	if human {
		first = humanSeat
	}
	return []string{first, second}
}

// seatNames labels each seat by its agent: "human", the bot name, or the
// agent named in a URL fragment.
func seatNames(sources []string) []string {
	names := make([]string, len(sources))
	for i, src := range sources {
		name := src
		if n, ok := strings.CutPrefix(src, match.BotPrefix); ok {
			name = n
		} else if u, err := url.Parse(src); err == nil && u.Host != "" {
			name = u.Host
			if u.Fragment != "" {
				name = u.Fragment
			}
		}
		names[i] = fmt.Sprintf("%s (%d)", name, i)
	}
	return names
}

// checkSeats rejects seats that cannot play kind before any match starts.
func checkSeats(kind game.Kind, sources []string, allowHuman bool) error {
	for i, src := range sources {
		switch {
		case src == humanSeat:
			if !allowHuman {
				return fmt.Errorf("seat %d: humans cannot play here", i)
			}
		case strings.HasPrefix(src, match.BotPrefix):
			name := strings.TrimPrefix(src, match.BotPrefix)
			if !bot.Supports(name, kind) {
				return fmt.Errorf("seat %d: bot %q does not play %s (bots: %s)", i, name, kind, strings.Join(bot.Names(), ", "))
			}
		case strings.HasPrefix(src, "http://"), strings.HasPrefix(src, "https://"):
		default:
			return fmt.Errorf("seat %d: %q is not human, bot:<name> or an agent URL", i, src)
		}
	}
	return nil
}

// resolveSeats builds participants, seating humans at the terminal.
func resolveSeats(resolver *match.Resolver, sources, names []string) ([]match.Participant, error) {
	out := make([]match.Participant, len(sources))
	for i, src := range sources {
		if src == humanSeat {
			out[i] = match.Participant{Name: names[i], Source: humanSeat, Agent: tui.NewHuman(names[i], names), Untimed: true}
			continue
		}
		p, err := resolver.Resolve(store.Player{Name: names[i], Agent: src})
		if err != nil {
			return nil, fmt.Errorf("seat %d: %w", i, err)
		}
		out[i] = p
	}
	return out, nil
}

// describe summarizes how a match ended.
func describe(status game.Status, names []string) string {
	r := status.Result
	switch {
	case !status.Over || r == nil:
		return "match in progress"
	case r.Kind == game.Winner:
		winners := make([]string, len(r.Players))
		for i, p := range r.Players {
			winners[i] = names[p]
		}
		return strings.Join(winners, " and ") + " won"
	case r.Kind == game.Draw:
		return "draw"
	default:
		return "match errored: " + r.Reason
	}
}

// renderState draws the final board or table of a match.
func renderState(m *store.Match, names []string) (string, error) {
	switch m.Game {
	case game.Connect4:
		var s connect4.State
		if err := json.Unmarshal(m.State, &s); err != nil {
			return "", err
		}
		return tui.RenderConnect4(&s), nil
	case game.Poker:
		var s poker.State
		if err := json.Unmarshal(m.State, &s); err != nil {
			return "", err
		}
		return tui.RenderPoker(s.View(-1), names), nil
	default:
		return "", fmt.Errorf("cannot render %q", m.Game)
	}
}
