package match

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	rand "math/rand/v2"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saolsen/gameplay/game"
	"github.com/saolsen/gameplay/games"
	"github.com/saolsen/gameplay/internal/agent"
	"github.com/saolsen/gameplay/internal/bot"
	"github.com/saolsen/gameplay/internal/store"
	"github.com/saolsen/gameplay/poker"
)

const turnTimeout = 2 * time.Second

func testLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.ErrorLevel})
}

type fixture struct {
	coord   *Coordinator
	store   *store.Memory
	clock   *quartz.Mock
	bots    *bot.Service
	metrics *Metrics
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()
	f := &fixture{
		store:   store.NewMemory(),
		clock:   quartz.NewMock(t),
		bots:    bot.NewService(rand.New(rand.NewPCG(1, 2)), testLogger()),
		metrics: NewMetrics(prometheus.NewRegistry()),
	}
	f.coord = New(f.store, f.clock, testLogger(), cfg, f.metrics)
	return f
}

func (f *fixture) bot(t *testing.T, name string) Participant {
	t.Helper()
	b, ok := f.bots.Bot(name)
	require.True(t, ok, "bot %s", name)
	return Participant{Name: name, Source: BotPrefix + name, Agent: b}
}

// replay re-applies every recorded turn from a fresh game and returns the
// final state.
func replay(t *testing.T, g games.Game, initial json.RawMessage, turns []store.Turn) json.RawMessage {
	t.Helper()
	state := initial
	for _, turn := range turns {
		next, status, err := g.ApplyAction(state, turn.Player, turn.Action)
		require.NoError(t, err, "turn %d", turn.Number)
		assert.Equal(t, turn.Status, status)
		assert.JSONEq(t, string(turn.State), string(next))
		state = next
	}
	return state
}

func TestPlayConnect4(t *testing.T) {
	t.Parallel()
	f := newFixture(t, Config{TurnTimeout: turnTimeout})
	ctx := context.Background()

	start, err := f.coord.Start(ctx, game.Connect4, []Participant{f.bot(t, "greedy"), f.bot(t, "random")})
	require.NoError(t, err)
	assert.Equal(t, []store.Player{{Name: "greedy", Agent: "bot:greedy"}, {Name: "random", Agent: "bot:random"}}, start.Players)
	assert.Equal(t, game.InProgress(0), start.Status)

	m, err := f.coord.Run(ctx, start.ID, []Participant{f.bot(t, "greedy"), f.bot(t, "random")})
	require.NoError(t, err)
	require.True(t, m.Status.Over)
	assert.NotEqual(t, game.Errored, m.Status.Result.Kind)

	stored, err := f.store.GetMatch(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, m.Turns, stored.Turns)
	assert.Equal(t, m.Status, stored.Status)

	turns, err := f.store.ListTurns(ctx, m.ID)
	require.NoError(t, err)
	require.Len(t, turns, m.Turns)
	for i, turn := range turns {
		assert.Equal(t, i%2, turn.Player, "connect4 alternates")
		assert.NotEmpty(t, turn.AgentData)
	}
	final := replay(t, games.MustLookup(game.Connect4), start.State, turns)
	assert.JSONEq(t, string(stored.State), string(final))

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.MatchesStarted.WithLabelValues("connect4")))
	assert.Equal(t, float64(m.Turns), testutil.ToFloat64(f.metrics.Turns.WithLabelValues("connect4")))
	assert.Equal(t, 0.0, testutil.ToFloat64(f.metrics.Running))
}

func TestPlayPoker(t *testing.T) {
	t.Parallel()
	f := newFixture(t, Config{
		TurnTimeout: turnTimeout,
		MaxTurns:    5000,
		Games:       map[game.Kind]games.Game{game.Poker: games.Poker(poker.WithSeed(4), poker.WithStartingChips(40))},
	})
	ctx := context.Background()

	seats := []Participant{f.bot(t, "maniac"), f.bot(t, "chart"), f.bot(t, "call")}
	m, err := f.coord.Play(ctx, game.Poker, seats)
	require.NoError(t, err)
	require.True(t, m.Status.Over)

	turns, err := f.store.ListTurns(ctx, m.ID)
	require.NoError(t, err)
	require.Len(t, turns, m.Turns)

	initial, err := games.Poker(poker.WithSeed(4), poker.WithStartingChips(40)).NewGame(3)
	require.NoError(t, err)
	replay(t, f.coord.cfg.Games[game.Poker], initial, turns)
}

func TestUnknownGameAndBadPlayerCount(t *testing.T) {
	t.Parallel()
	f := newFixture(t, DefaultConfig())
	ctx := context.Background()

	_, err := f.coord.Start(ctx, "chess", []Participant{f.bot(t, "random"), f.bot(t, "random")})
	assert.ErrorIs(t, err, ErrUnknownGame)

	_, err = f.coord.Start(ctx, game.Connect4, []Participant{f.bot(t, "random")})
	assert.ErrorIs(t, err, game.ErrArgs)

	m, err := f.coord.Start(ctx, game.Connect4, []Participant{f.bot(t, "random"), f.bot(t, "random")})
	require.NoError(t, err)
	_, err = f.coord.Run(ctx, m.ID, []Participant{f.bot(t, "random")})
	assert.Error(t, err)

	_, err = f.coord.Run(ctx, "0000000000000000000000000z", nil)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestTurnTimeout(t *testing.T) {
	t.Parallel()
	f := newFixture(t, Config{TurnTimeout: turnTimeout})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	called := make(chan struct{})
	var once sync.Once
	stuck := Participant{Name: "stuck", Agent: agent.Func(func(ctx context.Context, _ agent.Request) (agent.Response, error) {
		once.Do(func() { close(called) })
		<-ctx.Done()
		return agent.Response{}, ctx.Err()
	})}

	type result struct {
		m   *store.Match
		err error
	}
	done := make(chan result, 1)
	go func() {
		m, err := f.coord.Play(ctx, game.Connect4, []Participant{stuck, f.bot(t, "random")})
		done <- result{m, err}
	}()

	select {
	case <-called:
	case <-ctx.Done():
		t.Fatal("agent was never asked")
	}
	// The deadline is armed before the agent is asked.
	f.clock.Advance(turnTimeout).MustWait(ctx)

	var r result
	select {
	case r = <-done:
	case <-ctx.Done():
		t.Fatal("match did not finish after timeout")
	}
	require.NoError(t, r.err)
	require.NotNil(t, r.m.Status.Result)
	assert.Equal(t, game.Errored, r.m.Status.Result.Kind)
	assert.Contains(t, r.m.Status.Result.Reason, "stuck")
	assert.Contains(t, r.m.Status.Result.Reason, ErrTimeout.Error())
	assert.Equal(t, 0, r.m.Turns)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.AgentFailures.WithLabelValues("connect4", "timeout")))

	stored, err := f.store.GetMatch(ctx, r.m.ID)
	require.NoError(t, err)
	assert.Equal(t, r.m.Status, stored.Status)
}

func TestUntimedParticipantIgnoresDeadline(t *testing.T) {
	t.Parallel()
	f := newFixture(t, Config{TurnTimeout: turnTimeout})

	greedy := f.bot(t, "greedy")
	human := Participant{Name: "human", Source: "human", Untimed: true, Agent: greedy.Agent}
	m, err := f.coord.Play(context.Background(), game.Connect4, []Participant{human, f.bot(t, "random")})
	require.NoError(t, err)
	assert.True(t, m.Status.Over)
	assert.Equal(t, "human", m.Players[0].Agent)
}

func TestAgentFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		agent  agent.Func
		reason string
		metric string
	}{
		{
			name: "error",
			agent: func(context.Context, agent.Request) (agent.Response, error) {
				return agent.Response{}, errors.New("connection refused")
			},
			reason: "connection refused",
			metric: "error",
		},
		{
			name: "illegal action",
			agent: func(context.Context, agent.Request) (agent.Response, error) {
				return agent.Respond(map[string]any{"game": "connect4", "column": 9}, nil)
			},
			reason: "illegal action",
			metric: "illegal",
		},
		{
			name: "wrong game",
			agent: func(context.Context, agent.Request) (agent.Response, error) {
				return agent.Respond(poker.Action{Kind: poker.Fold}, nil)
			},
			reason: "illegal action",
			metric: "illegal",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t, Config{TurnTimeout: turnTimeout})
			bad := Participant{Name: "bad", Agent: tt.agent}

			m, err := f.coord.Play(context.Background(), game.Connect4, []Participant{bad, f.bot(t, "random")})
			require.NoError(t, err)
			require.NotNil(t, m.Status.Result)
			assert.Equal(t, game.Errored, m.Status.Result.Kind)
			assert.Contains(t, m.Status.Result.Reason, tt.reason)
			assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.AgentFailures.WithLabelValues("connect4", tt.metric)))
			assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.MatchesFinished.WithLabelValues("connect4", "errored")))
		})
	}
}

func TestMaxTurns(t *testing.T) {
	t.Parallel()
	f := newFixture(t, Config{MaxTurns: 10})

	// Two folding bots check every street and never finish a match.
	m, err := f.coord.Play(context.Background(), game.Poker, []Participant{f.bot(t, "fold"), f.bot(t, "fold")})
	require.NoError(t, err)
	require.NotNil(t, m.Status.Result)
	assert.Equal(t, game.Errored, m.Status.Result.Kind)
	assert.Contains(t, m.Status.Result.Reason, "turn limit")
	assert.Equal(t, 10, m.Turns)
}

// recorder wraps an agent and keeps the agent data of each request.
type recorder struct {
	mu   sync.Mutex
	next agent.Agent
	seen []json.RawMessage
	hook func(n int) error
}

func (r *recorder) Decide(ctx context.Context, req agent.Request) (agent.Response, error) {
	r.mu.Lock()
	r.seen = append(r.seen, req.AgentData)
	n := len(r.seen)
	r.mu.Unlock()
	if r.hook != nil {
		if err := r.hook(n); err != nil {
			return agent.Response{}, err
		}
	}
	return r.next.Decide(ctx, req)
}

func TestRunResumes(t *testing.T) {
	t.Parallel()
	f := newFixture(t, Config{TurnTimeout: turnTimeout})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	greedy := f.bot(t, "greedy")
	first := &recorder{next: greedy.Agent, hook: func(n int) error {
		if n == 3 {
			cancel()
			return context.Canceled
		}
		return nil
	}}
	seats := []Participant{{Name: "p0", Agent: first}, f.bot(t, "random")}

	m, err := f.coord.Play(ctx, game.Connect4, seats)
	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, m.Status.Over)
	assert.Equal(t, 4, m.Turns)
	assert.False(t, f.coord.Running(m.ID))

	turns, err := f.store.ListTurns(context.Background(), m.ID)
	require.NoError(t, err)
	lastP0 := turns[2].AgentData

	second := &recorder{next: greedy.Agent}
	seats[0].Agent = second
	m, err = f.coord.Run(context.Background(), m.ID, seats)
	require.NoError(t, err)
	assert.True(t, m.Status.Over)
	require.NotEmpty(t, second.seen)
	assert.JSONEq(t, string(lastP0), string(second.seen[0]))
}

func TestRunBusy(t *testing.T) {
	t.Parallel()
	f := newFixture(t, DefaultConfig())
	ctx := context.Background()
	seats := []Participant{f.bot(t, "random"), f.bot(t, "random")}

	m, err := f.coord.Start(ctx, game.Connect4, seats)
	require.NoError(t, err)
	require.True(t, f.coord.locks.TryLock(m.ID))
	_, err = f.coord.Run(ctx, m.ID, seats)
	assert.ErrorIs(t, err, ErrBusy)
	f.coord.locks.Unlock(m.ID)

	_, err = f.coord.Run(ctx, m.ID, seats)
	assert.NoError(t, err)
}

func TestEvents(t *testing.T) {
	t.Parallel()
	f := newFixture(t, Config{TurnTimeout: turnTimeout})

	events, cancel := f.coord.Bus().Subscribe("")
	defer cancel()

	m, err := f.coord.Play(context.Background(), game.Connect4, []Participant{f.bot(t, "greedy"), f.bot(t, "greedy")})
	require.NoError(t, err)

	var got []Event
	for len(got) < m.Turns+2 {
		select {
		case e := <-events:
			got = append(got, e)
		case <-time.After(5 * time.Second):
			t.Fatalf("got %d events, want %d", len(got), m.Turns+2)
		}
	}
	assert.Equal(t, EventStart, got[0].Type)
	for i, e := range got[1 : len(got)-1] {
		assert.Equal(t, EventTurn, e.Type)
		assert.Equal(t, i+1, e.Turn)
		require.NotNil(t, e.Player)
		assert.NotEmpty(t, e.Action)
	}
	end := got[len(got)-1]
	assert.Equal(t, EventEnd, end.Type)
	assert.Equal(t, m.Status, end.Status)
	assert.Equal(t, m.ID, end.Match)
}

func TestPublicStateHidesCards(t *testing.T) {
	t.Parallel()
	g := games.Poker(poker.WithSeed(1))
	state, err := g.NewGame(2)
	require.NoError(t, err)

	status, err := g.CheckStatus(state)
	require.NoError(t, err)
	public, err := PublicState(g, state, status)
	require.NoError(t, err)

	var v poker.View
	require.NoError(t, json.Unmarshal(public, &v))
	assert.Empty(t, v.Current().MyCards)
	assert.NotContains(t, string(public), `"deck"`)
	assert.NotContains(t, string(public), `"seed"`)

	full, err := PublicState(g, state, game.Failed("done"))
	require.NoError(t, err)
	assert.Equal(t, string(state), string(full))
}

func TestRunBatch(t *testing.T) {
	t.Parallel()
	f := newFixture(t, Config{TurnTimeout: turnTimeout})

	res, err := f.coord.RunBatch(context.Background(), game.Connect4, 12, 4, func(int) []Participant {
		return []Participant{f.bot(t, "greedy"), f.bot(t, "random")}
	})
	require.NoError(t, err)
	require.Len(t, res.Matches, 12)
	assert.Equal(t, 12, res.Wins[0]+res.Wins[1]+res.Draws)
	assert.Zero(t, res.Errored)

	all, err := f.store.ListMatches(context.Background(), store.ListOptions{})
	require.NoError(t, err)
	assert.Len(t, all, 12)
}

func TestResolver(t *testing.T) {
	t.Parallel()

	names := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req agent.Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		names <- req.AgentName
		_ = json.NewEncoder(w).Encode(agent.Response{Action: json.RawMessage(`{"game":"connect4","column":0}`)})
	}))
	defer srv.Close()

	res := &Resolver{Bots: bot.NewService(rand.New(rand.NewPCG(3, 3)), testLogger()), Logger: testLogger()}

	ps, err := res.ResolveAll([]store.Player{
		{Name: "a", Agent: "bot:greedy"},
		{Name: "b", Agent: srv.URL + "/agent#random"},
	})
	require.NoError(t, err)
	assert.Equal(t, "bot:greedy", ps[0].Source)

	resp, err := ps[1].Agent.Decide(context.Background(), agent.Request{Game: game.Connect4})
	require.NoError(t, err)
	assert.Equal(t, "random", <-names)
	assert.JSONEq(t, `{"game":"connect4","column":0}`, string(resp.Action))

	for _, p := range []store.Player{{Agent: "bot:nobody"}, {Agent: "human"}, {Agent: ""}} {
		_, err := res.Resolve(p)
		assert.Error(t, err, p.Agent)
	}
}
