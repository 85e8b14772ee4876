package bot

import (
	"context"
	"encoding/json"
	"io"
	rand "math/rand/v2"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saolsen/gameplay/connect4"
	"github.com/saolsen/gameplay/game"
	"github.com/saolsen/gameplay/games"
	"github.com/saolsen/gameplay/internal/agent"
	"github.com/saolsen/gameplay/poker"
)

func testLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.ErrorLevel})
}

func testRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed))
}

// board builds a connect4 state from column stacks of owners, bottom first.
func board(active int, columns map[int][]int) *connect4.State {
	s := &connect4.State{ActivePlayer: active}
	for c, owners := range columns {
		for r, p := range owners {
			s.Board[c][r] = connect4.SlotFor(p)
		}
	}
	return s
}

func TestGreedyBot(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		state *connect4.State
		want  int
	}{
		{
			name:  "takes a vertical win",
			state: board(0, map[int][]int{2: {0, 0, 0}, 4: {1, 1}, 5: {1}}),
			want:  2,
		},
		{
			name:  "blocks a horizontal threat",
			state: board(0, map[int][]int{0: {1}, 1: {1}, 2: {1}, 5: {0}, 6: {0, 0}}),
			want:  3,
		},
		{
			name:  "prefers winning over blocking",
			state: board(1, map[int][]int{0: {0, 0, 0}, 3: {0}, 6: {1, 1, 1}}),
			want:  6,
		},
		{
			name:  "opens in the center",
			state: board(0, nil),
			want:  3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			g := &GreedyBot{rng: testRand(1)}
			got, reason := g.playConnect4(tt.state)
			assert.Equal(t, tt.want, got.Column, reason)
		})
	}
}

func TestGreedyBotAvoidsGivingAWin(t *testing.T) {
	t.Parallel()

	// Player 1 holds row 1 in columns 2, 4 and 5. Dropping into column 3
	// fills row 0 under the gap and hands them the game.
	s := board(0, map[int][]int{
		0: {0, 0},
		2: {1, 1},
		4: {0, 1},
		5: {0, 1},
	})
	require.NoError(t, s.Validate())

	g := &GreedyBot{rng: testRand(7)}
	for range 20 {
		got, _ := g.playConnect4(s)
		assert.NotEqual(t, 3, got.Column)
	}
}

func TestChartBotPreflop(t *testing.T) {
	t.Parallel()

	s, err := poker.NewGame(2, poker.WithSeed(3), poker.WithStartingChips(100), poker.WithBlinds(1, 2))
	require.NoError(t, err)
	r := s.Current()

	play := func(hole string) poker.Action {
		r.PlayerCards[r.CurrentPlayer] = poker.MustParseCards(hole)
		a, _ := ChartBot{}.playPoker(s.View(r.CurrentPlayer))
		require.NoError(t, s.CheckAction(r.CurrentPlayer, a))
		return a
	}

	assert.Equal(t, poker.Bet, play("As Ah").Kind)
	assert.Equal(t, poker.Bet, play("Ts Td").Kind)
	assert.Equal(t, poker.Check, play("8s 8d").Kind)
	assert.Equal(t, poker.Check, play("7c 2d").Kind)
}

func TestFoldBotNeverBets(t *testing.T) {
	t.Parallel()

	s, err := poker.NewGame(2, poker.WithSeed(1))
	require.NoError(t, err)
	p := s.Current().CurrentPlayer

	a, _ := FoldBot{}.playPoker(s.View(p))
	assert.Equal(t, poker.Action{Kind: poker.Check}, a)

	_, err = s.ApplyAction(p, poker.Action{Kind: poker.Bet, Amount: 10})
	require.NoError(t, err)
	p = s.Current().CurrentPlayer
	a, _ = FoldBot{}.playPoker(s.View(p))
	assert.Equal(t, poker.Action{Kind: poker.Fold}, a)
}

func TestCallBot(t *testing.T) {
	t.Parallel()

	s, err := poker.NewGame(2, poker.WithSeed(1))
	require.NoError(t, err)
	p := s.Current().CurrentPlayer
	_, err = s.ApplyAction(p, poker.Action{Kind: poker.Bet, Amount: 10})
	require.NoError(t, err)

	p = s.Current().CurrentPlayer
	a, _ := CallBot{}.playPoker(s.View(p))
	assert.Equal(t, poker.Action{Kind: poker.Call}, a)
}

// TestBotsPlayLegally drives every bot through the type-erased engines and
// requires every action it returns to be legal.
func TestBotsPlayLegally(t *testing.T) {
	t.Parallel()

	for _, kind := range games.Kinds() {
		for _, name := range Names() {
			if !Supports(name, kind) {
				continue
			}
			t.Run(string(kind)+"/"+name, func(t *testing.T) {
				t.Parallel()

				g := games.MustLookup(kind)
				if kind == game.Poker {
					g = games.Poker(poker.WithSeed(9), poker.WithStartingChips(50))
				}
				b, err := New(name, testRand(11), testLogger())
				require.NoError(t, err)

				state, err := g.NewGame(2)
				require.NoError(t, err)
				status, err := g.CheckStatus(state)
				require.NoError(t, err)

				var data json.RawMessage
				for turn := 0; !status.Over && turn < 500; turn++ {
					player := status.Active[0]
					view, err := g.View(state, player)
					require.NoError(t, err)

					resp, err := b.Decide(context.Background(), agent.Request{
						Game:      kind,
						AgentName: name,
						State:     view,
						AgentData: data,
					})
					require.NoError(t, err)
					require.NoError(t, g.CheckAction(state, player, resp.Action), "turn %d: %s", turn, resp.Action)

					state, status, err = g.ApplyAction(state, player, resp.Action)
					require.NoError(t, err)
					data = resp.AgentData
				}

				var m memo
				require.NoError(t, json.Unmarshal(data, &m))
				assert.Positive(t, m.Decisions)
				assert.NotEmpty(t, m.Reason)
			})
		}
	}
}

func TestDecideCountsThroughAgentData(t *testing.T) {
	t.Parallel()

	b, err := New("random", testRand(2), testLogger())
	require.NoError(t, err)

	g := games.MustLookup(game.Connect4)
	state, err := g.NewGame(2)
	require.NoError(t, err)

	req := agent.Request{Game: game.Connect4, State: state, AgentData: json.RawMessage(`{"decisions":41}`)}
	resp, err := b.Decide(context.Background(), req)
	require.NoError(t, err)

	var m memo
	require.NoError(t, json.Unmarshal(resp.AgentData, &m))
	assert.Equal(t, 42, m.Decisions)
	assert.Equal(t, "random column", m.Reason)
}

func TestDecideErrors(t *testing.T) {
	t.Parallel()

	c4, err := games.MustLookup(game.Connect4).NewGame(2)
	require.NoError(t, err)

	tests := []struct {
		name string
		bot  string
		req  agent.Request
	}{
		{"wrong game for bot", "greedy", agent.Request{Game: game.Poker, State: c4}},
		{"unknown game", "random", agent.Request{Game: "chess", State: c4}},
		{"mismatched state", "random", agent.Request{Game: game.Poker, State: c4}},
		{"bad agent data", "random", agent.Request{Game: game.Connect4, State: c4, AgentData: json.RawMessage(`[1]`)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			b, err := New(tt.bot, testRand(1), testLogger())
			require.NoError(t, err)
			_, err = b.Decide(context.Background(), tt.req)
			assert.Error(t, err)
		})
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	b, err := New("random", testRand(1), testLogger())
	require.NoError(t, err)
	_, err = b.Decide(ctx, agent.Request{Game: game.Connect4, State: c4})
	assert.ErrorIs(t, err, context.Canceled)

	_, err = New("nobody", testRand(1), testLogger())
	assert.Error(t, err)
}

func TestDecideRejectsMalformedPokerViews(t *testing.T) {
	t.Parallel()

	s, err := poker.NewGame(2, poker.WithSeed(3))
	require.NoError(t, err)
	view := func(edit func(v *poker.View)) json.RawMessage {
		v := s.View(s.Current().CurrentPlayer)
		edit(v)
		data, err := json.Marshal(v)
		require.NoError(t, err)
		return data
	}

	tests := []struct {
		name  string
		state json.RawMessage
	}{
		{"round past the end", json.RawMessage(`{"game":"poker","player":0,"player_chips":[100,100],"round":3,"rounds":[]}`)},
		{"player beyond the table", view(func(v *poker.View) { v.Player = 5 })},
		{"current player beyond the table", view(func(v *poker.View) { v.Current().CurrentPlayer = 2 })},
		{"short per-player bets", view(func(v *poker.View) { v.Current().PlayerBets = []int{0} })},
		{"three hole cards", view(func(v *poker.View) {
			v.Current().MyCards = append(v.Current().MyCards, poker.NewCard(poker.Two, poker.Clubs))
		})},
		{"public view", view(func(v *poker.View) { v.Player = -1 })},
	}
	for _, name := range []string{"random", "call", "fold", "chart", "maniac"} {
		for _, tt := range tests {
			t.Run(name+"/"+tt.name, func(t *testing.T) {
				t.Parallel()
				b, err := New(name, testRand(1), testLogger())
				require.NoError(t, err)
				_, err = b.Decide(context.Background(), agent.Request{Game: game.Poker, AgentName: name, State: tt.state})
				assert.ErrorIs(t, err, game.ErrState)
			})
		}
	}
}

func TestService(t *testing.T) {
	t.Parallel()

	svc := NewService(testRand(5), testLogger())
	assert.Equal(t, Names(), svc.Names())
	assert.Equal(t, []string{"call", "chart", "fold", "greedy", "maniac", "random"}, svc.Names())

	b, ok := svc.Bot("greedy")
	require.True(t, ok)
	assert.Equal(t, "greedy", b.Name())

	state, err := games.MustLookup(game.Connect4).NewGame(2)
	require.NoError(t, err)

	resp, err := svc.Decide(context.Background(), agent.Request{Game: game.Connect4, AgentName: "greedy", State: state})
	require.NoError(t, err)
	assert.JSONEq(t, `{"game":"connect4","column":3}`, string(resp.Action))

	_, err = svc.Decide(context.Background(), agent.Request{Game: game.Connect4, AgentName: "nobody", State: state})
	assert.Error(t, err)

	assert.True(t, Supports("chart", game.Poker))
	assert.False(t, Supports("chart", game.Connect4))
	assert.False(t, Supports("nobody", game.Poker))
}
