// Package bot provides built-in agents for both games. Each bot is stateless
// between turns except for a small memo it round-trips through agent_data.
package bot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	rand "math/rand/v2"
	"slices"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/saolsen/gameplay/connect4"
	"github.com/saolsen/gameplay/game"
	"github.com/saolsen/gameplay/internal/agent"
	"github.com/saolsen/gameplay/poker"
)

// ErrUnknownBot is returned for names with no registered bot.
var ErrUnknownBot = errors.New("unknown bot")

type connect4Strategy interface {
	playConnect4(s *connect4.State) (connect4.Action, string)
}

type pokerStrategy interface {
	playPoker(v *poker.View) (poker.Action, string)
}

type factory struct {
	connect4 func(rng *rand.Rand) connect4Strategy
	poker    func(rng *rand.Rand) pokerStrategy
}

var registry = map[string]factory{
	"random": {
		connect4: func(rng *rand.Rand) connect4Strategy { return &RandBot{rng: rng} },
		poker:    func(rng *rand.Rand) pokerStrategy { return &RandBot{rng: rng} },
	},
	"greedy": {connect4: func(rng *rand.Rand) connect4Strategy { return &GreedyBot{rng: rng} }},
	"call":   {poker: func(*rand.Rand) pokerStrategy { return CallBot{} }},
	"fold":   {poker: func(*rand.Rand) pokerStrategy { return FoldBot{} }},
	"chart":  {poker: func(*rand.Rand) pokerStrategy { return ChartBot{} }},
	"maniac": {poker: func(rng *rand.Rand) pokerStrategy { return &ManiacBot{rng: rng} }},
}

// Names lists the built-in bots.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Supports reports whether the named bot plays kind.
func Supports(name string, kind game.Kind) bool {
	f, ok := registry[name]
	if !ok {
		return false
	}
	switch kind {
	case game.Connect4:
		return f.connect4 != nil
	case game.Poker:
		return f.poker != nil
	default:
		return false
	}
}

// memo is what a bot keeps in agent_data between turns.
type memo struct {
	Decisions int    `json:"decisions"`
	Reason    string `json:"reason,omitempty"`
}

// Bot is a built-in agent. It is safe for concurrent use.
type Bot struct {
	name   string
	logger *log.Logger

	mu       sync.Mutex
	connect4 connect4Strategy
	poker    pokerStrategy
}

// New creates the named bot drawing randomness from rng.
func New(name string, rng *rand.Rand, logger *log.Logger) (*Bot, error) {
	f, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownBot, name)
	}
	b := &Bot{name: name, logger: logger.WithPrefix("bot").With("bot", name)}
	if f.connect4 != nil {
		b.connect4 = f.connect4(rng)
	}
	if f.poker != nil {
		b.poker = f.poker(rng)
	}
	return b, nil
}

// Name returns the bot's registered name.
func (b *Bot) Name() string { return b.name }

// Decide implements agent.Agent.
func (b *Bot) Decide(ctx context.Context, req agent.Request) (agent.Response, error) {
	if err := ctx.Err(); err != nil {
		return agent.Response{}, err
	}
	var m memo
	if len(req.AgentData) > 0 {
		if err := json.Unmarshal(req.AgentData, &m); err != nil {
			return agent.Response{}, fmt.Errorf("decode agent_data: %w", err)
		}
	}

	var (
		action any
		reason string
	)
	b.mu.Lock()
	defer b.mu.Unlock()
	switch req.Game {
	case game.Connect4:
		if b.connect4 == nil {
			return agent.Response{}, fmt.Errorf("bot %s does not play %s", b.name, req.Game)
		}
		var s connect4.State
		if err := json.Unmarshal(req.State, &s); err != nil {
			return agent.Response{}, fmt.Errorf("decode state: %w", err)
		}
		action, reason = b.connect4.playConnect4(&s)
	case game.Poker:
		if b.poker == nil {
			return agent.Response{}, fmt.Errorf("bot %s does not play %s", b.name, req.Game)
		}
		var v poker.View
		if err := json.Unmarshal(req.State, &v); err != nil {
			return agent.Response{}, fmt.Errorf("decode state: %w", err)
		}
		if v.Player < 0 {
			return agent.Response{}, game.Errorf(game.KindState, "view of player %d is not a seat", v.Player)
		}
		action, reason = b.poker.playPoker(&v)
	default:
		return agent.Response{}, fmt.Errorf("unknown game %q", req.Game)
	}

	m.Decisions++
	m.Reason = reason
	b.logger.Debug("Bot decision", "game", req.Game, "action", action, "reason", reason, "decisions", m.Decisions)
	return agent.Respond(action, m)
}

// Service hosts bots by name, as the agent endpoint does.
type Service struct {
	bots map[string]*Bot
}

// NewService creates one instance of every built-in bot.
func NewService(rng *rand.Rand, logger *log.Logger) *Service {
	s := &Service{bots: make(map[string]*Bot, len(registry))}
	for _, name := range Names() {
		b, err := New(name, rand.New(rand.NewPCG(rng.Uint64(), rng.Uint64())), logger)
		if err != nil {
			panic(err)
		}
		s.bots[name] = b
	}
	return s
}

// Names lists the hosted bots.
func (s *Service) Names() []string { return Names() }

// Bot returns the named bot.
func (s *Service) Bot(name string) (*Bot, bool) {
	b, ok := s.bots[name]
	return b, ok
}

// Decide routes req to the bot named by req.AgentName.
func (s *Service) Decide(ctx context.Context, req agent.Request) (agent.Response, error) {
	b, ok := s.bots[req.AgentName]
	if !ok {
		return agent.Response{}, fmt.Errorf("%w %q", ErrUnknownBot, req.AgentName)
	}
	return b.Decide(ctx, req)
}
