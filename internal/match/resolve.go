package match

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/saolsen/gameplay/internal/agent"
	"github.com/saolsen/gameplay/internal/bot"
	"github.com/saolsen/gameplay/internal/store"
)

// BotPrefix marks a built-in bot in a player's agent source.
const BotPrefix = "bot:"

// Resolver turns recorded players back into participants. An agent source
// is either "bot:<name>" for a built-in bot, or the URL of an agent service
// whose fragment names the agent there: "https://host/agent#greedy".
type Resolver struct {
	Bots   *bot.Service
	Logger *log.Logger
}

// Resolve returns the participant for p.
func (r *Resolver) Resolve(p store.Player) (Participant, error) {
	switch {
	case strings.HasPrefix(p.Agent, BotPrefix):
		name := strings.TrimPrefix(p.Agent, BotPrefix)
		b, ok := r.Bots.Bot(name)
		if !ok {
			return Participant{}, fmt.Errorf("%w %q", bot.ErrUnknownBot, name)
		}
		return Participant{Name: p.Name, Source: p.Agent, Agent: b}, nil

	case strings.HasPrefix(p.Agent, "http://"), strings.HasPrefix(p.Agent, "https://"):
		u, err := url.Parse(p.Agent)
		if err != nil {
			return Participant{}, fmt.Errorf("invalid agent url %q: %w", p.Agent, err)
		}
		name := u.Fragment
		u.Fragment = ""
		client := agent.NewClient(u.String(), r.Logger)
		return Participant{Name: p.Name, Source: p.Agent, Agent: client.Agent(name)}, nil

	default:
		return Participant{}, fmt.Errorf("cannot resolve agent %q for %s", p.Agent, p.Name)
	}
}

// ResolveAll resolves every player in order.
func (r *Resolver) ResolveAll(players []store.Player) ([]Participant, error) {
	out := make([]Participant, len(players))
	for i, p := range players {
		var err error
		if out[i], err = r.Resolve(p); err != nil {
			return nil, fmt.Errorf("player %d: %w", i, err)
		}
	}
	return out, nil
}
