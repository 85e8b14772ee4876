// Package match plays matches between agents: it asks each agent for its
// action in turn, applies the action through the game engine and records
// every turn in a store.
package match

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/saolsen/gameplay/game"
	"github.com/saolsen/gameplay/games"
	"github.com/saolsen/gameplay/internal/agent"
	"github.com/saolsen/gameplay/internal/matchid"
	"github.com/saolsen/gameplay/internal/store"
)

var (
	// ErrTimeout is the failure recorded when an agent misses its deadline.
	ErrTimeout = errors.New("agent timed out")
	// ErrBusy is returned when a match is already being run.
	ErrBusy = errors.New("match: already running")
	// ErrUnknownGame is returned for game kinds with no engine.
	ErrUnknownGame = errors.New("match: unknown game")
)

// Participant is a seat in a match and the agent that plays it.
type Participant struct {
	Name string
	// Source describes the agent for the match record, as in store.Player.
	Source string
	Agent  agent.Agent
	// Untimed participants, such as humans, have no turn deadline.
	Untimed bool
}

// Config tunes a Coordinator.
type Config struct {
	// TurnTimeout bounds each agent decision. Zero disables it.
	TurnTimeout time.Duration
	// MaxTurns ends a match as errored once it reaches this many turns.
	// Zero means no limit.
	MaxTurns int
	// Games overrides the engine for a kind, as when the server configures
	// poker stacks. Kinds not present use games.Lookup.
	Games map[game.Kind]games.Game
}

// DefaultConfig is used by the CLI and server unless configured otherwise.
func DefaultConfig() Config {
	return Config{TurnTimeout: 5 * time.Second, MaxTurns: 10_000}
}

// Coordinator runs matches. It is safe for concurrent use; each match has at
// most one runner at a time.
type Coordinator struct {
	store   store.Store
	clock   quartz.Clock
	logger  *log.Logger
	cfg     Config
	locks   *Locks
	bus     *Bus
	metrics *Metrics
}

// New returns a coordinator writing to st. Metrics may be nil.
func New(st store.Store, clock quartz.Clock, logger *log.Logger, cfg Config, metrics *Metrics) *Coordinator {
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	return &Coordinator{
		store:   st,
		clock:   clock,
		logger:  logger.WithPrefix("match"),
		cfg:     cfg,
		locks:   NewLocks(),
		bus:     NewBus(),
		metrics: metrics,
	}
}

// Bus returns the bus events are published on.
func (c *Coordinator) Bus() *Bus { return c.bus }

// Store returns the store matches are recorded in.
func (c *Coordinator) Store() store.Store { return c.store }

// Running reports whether match id is being played.
func (c *Coordinator) Running(id string) bool { return c.locks.Held(id) }

// Game returns the engine used for kind.
func (c *Coordinator) Game(kind game.Kind) (games.Game, error) {
	if g, ok := c.cfg.Games[kind]; ok {
		return g, nil
	}
	if g, ok := games.Lookup(kind); ok {
		return g, nil
	}
	return nil, fmt.Errorf("%w %q", ErrUnknownGame, kind)
}

// PublicState is what spectators may see of state: the view of no player
// while the match is in progress, and everything once it is over.
func PublicState(g games.Game, state json.RawMessage, status game.Status) (json.RawMessage, error) {
	if status.Over {
		return state, nil
	}
	return g.View(state, -1)
}

// Start creates a match between participants and records its initial
// state. It does not ask any agent for an action.
func (c *Coordinator) Start(ctx context.Context, kind game.Kind, participants []Participant) (*store.Match, error) {
	g, err := c.Game(kind)
	if err != nil {
		return nil, err
	}
	state, err := g.NewGame(len(participants))
	if err != nil {
		return nil, err
	}
	status, err := g.CheckStatus(state)
	if err != nil {
		return nil, err
	}

	now := c.clock.Now().UTC()
	m := &store.Match{
		ID:        matchid.New(),
		Game:      kind,
		Players:   make([]store.Player, len(participants)),
		State:     state,
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}
	for i, p := range participants {
		name := p.Name
		if name == "" {
			name = fmt.Sprintf("player %d", i)
		}
		m.Players[i] = store.Player{Name: name, Agent: p.Source}
	}
	if err := c.store.CreateMatch(ctx, m); err != nil {
		return nil, fmt.Errorf("create match: %w", err)
	}

	c.metrics.MatchesStarted.WithLabelValues(string(kind)).Inc()
	c.logger.Info("Match created", "match", m.ID, "game", kind, "players", len(participants))
	c.publish(g, m, EventStart, nil, nil)
	return m, nil
}

// Play starts a match and runs it to the end.
func (c *Coordinator) Play(ctx context.Context, kind game.Kind, participants []Participant) (*store.Match, error) {
	m, err := c.Start(ctx, kind, participants)
	if err != nil {
		return nil, err
	}
	return c.Run(ctx, m.ID, participants)
}

// Run plays match id from its latest recorded state until it is over.
// Agent data is restored from each player's last turn, so a run that was
// interrupted can be resumed. If ctx is cancelled Run returns its error and
// leaves the match in progress.
func (c *Coordinator) Run(ctx context.Context, id string, participants []Participant) (*store.Match, error) {
	if !c.locks.TryLock(id) {
		return nil, ErrBusy
	}
	defer c.locks.Unlock(id)
	c.metrics.Running.Inc()
	defer c.metrics.Running.Dec()

	m, err := c.store.GetMatch(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(participants) != len(m.Players) {
		return nil, fmt.Errorf("match %s has %d players, got %d participants", id, len(m.Players), len(participants))
	}
	g, err := c.Game(m.Game)
	if err != nil {
		return nil, err
	}

	agentData := make([]json.RawMessage, len(participants))
	if m.Turns > 0 {
		turns, err := c.store.ListTurns(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("load turns: %w", err)
		}
		for _, t := range turns {
			agentData[t.Player] = t.AgentData
		}
	}

	logger := c.logger.With("match", id, "game", m.Game)
	logger.Debug("Running match", "turns", m.Turns)

	for !m.Status.Over {
		if c.cfg.MaxTurns > 0 && m.Turns >= c.cfg.MaxTurns {
			return c.fail(ctx, g, m, fmt.Sprintf("turn limit of %d reached", c.cfg.MaxTurns), "")
		}
		if len(m.Status.Active) == 0 {
			return c.fail(ctx, g, m, "no player to act", "")
		}
		player := m.Status.Active[0]
		p := participants[player]

		view, err := g.View(m.State, player)
		if err != nil {
			return nil, fmt.Errorf("view for player %d: %w", player, err)
		}
		req := agent.Request{Game: m.Game, State: view, AgentData: agentData[player]}

		started := c.clock.Now()
		resp, err := c.decide(ctx, p, req)
		c.metrics.DecisionSeconds.WithLabelValues(string(m.Game)).Observe(c.clock.Now().Sub(started).Seconds())
		if err != nil {
			if ctx.Err() != nil {
				logger.Info("Match interrupted", "turns", m.Turns)
				return m, ctx.Err()
			}
			reason := "error"
			if errors.Is(err, ErrTimeout) {
				reason = "timeout"
			}
			return c.fail(ctx, g, m, fmt.Sprintf("player %d (%s): %v", player, m.Players[player].Name, err), reason)
		}

		if err := g.CheckAction(m.State, player, resp.Action); err != nil {
			return c.fail(ctx, g, m, fmt.Sprintf("player %d (%s) illegal action: %v", player, m.Players[player].Name, err), "illegal")
		}
		next, status, err := g.ApplyAction(m.State, player, resp.Action)
		if err != nil {
			return c.fail(ctx, g, m, fmt.Sprintf("apply action: %v", err), "illegal")
		}

		turn := store.Turn{
			Number:    m.Turns + 1,
			Player:    player,
			Action:    resp.Action,
			State:     next,
			Status:    status,
			AgentData: resp.AgentData,
			CreatedAt: c.clock.Now().UTC(),
		}
		if err := c.store.AppendTurn(ctx, id, turn); err != nil {
			return nil, fmt.Errorf("append turn %d: %w", turn.Number, err)
		}
		m.State, m.Status, m.Turns, m.UpdatedAt = next, status, turn.Number, turn.CreatedAt
		agentData[player] = resp.AgentData

		c.metrics.Turns.WithLabelValues(string(m.Game)).Inc()
		logger.Debug("Turn applied", "turn", turn.Number, "player", player, "action", string(resp.Action))
		c.publish(g, m, EventTurn, &player, resp.Action)
	}

	c.finished(g, m)
	return m, nil
}

// decide asks p for an action, giving up after the turn timeout.
func (c *Coordinator) decide(ctx context.Context, p Participant, req agent.Request) (agent.Response, error) {
	if p.Untimed || c.cfg.TurnTimeout <= 0 {
		return p.Agent.Decide(ctx, req)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	timedOut := make(chan struct{})
	timer := c.clock.AfterFunc(c.cfg.TurnTimeout, func() {
		close(timedOut)
		cancel()
	})
	defer timer.Stop()

	type result struct {
		resp agent.Response
		err  error
	}
	done := make(chan result, 1)
	go func() {
		resp, err := p.Agent.Decide(ctx, req)
		done <- result{resp, err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			select {
			case <-timedOut:
				return agent.Response{}, ErrTimeout
			default:
			}
		}
		return r.resp, r.err
	case <-timedOut:
		return agent.Response{}, ErrTimeout
	}
}

// fail ends m as errored with reason.
func (c *Coordinator) fail(ctx context.Context, g games.Game, m *store.Match, reason, failure string) (*store.Match, error) {
	status := game.Failed(reason)
	now := c.clock.Now().UTC()
	if err := c.store.FinishMatch(ctx, m.ID, status, now); err != nil {
		return nil, fmt.Errorf("finish match: %w", err)
	}
	m.Status, m.UpdatedAt = status, now
	if failure != "" {
		c.metrics.AgentFailures.WithLabelValues(string(m.Game), failure).Inc()
	}
	c.logger.Warn("Match errored", "match", m.ID, "reason", reason)
	c.finished(g, m)
	return m, nil
}

func (c *Coordinator) finished(g games.Game, m *store.Match) {
	result := "over"
	if m.Status.Result != nil {
		result = m.Status.Result.Kind.String()
	}
	c.metrics.MatchesFinished.WithLabelValues(string(m.Game), result).Inc()
	c.logger.Info("Match finished", "match", m.ID, "game", m.Game, "turns", m.Turns, "status", m.Status)
	c.publish(g, m, EventEnd, nil, nil)
}

func (c *Coordinator) publish(g games.Game, m *store.Match, typ EventType, player *int, action json.RawMessage) {
	state, err := PublicState(g, m.State, m.Status)
	if err != nil {
		c.logger.Error("Failed to build public state", "match", m.ID, "error", err)
		return
	}
	e := Event{
		Type:   typ,
		Match:  m.ID,
		Game:   m.Game,
		Turn:   m.Turns,
		Player: player,
		Action: action,
		State:  state,
		Status: m.Status,
		Time:   m.UpdatedAt,
	}
	if dropped := c.bus.Publish(e); dropped > 0 {
		c.logger.Warn("Slow subscribers missed an event", "match", m.ID, "dropped", dropped)
	}
}
