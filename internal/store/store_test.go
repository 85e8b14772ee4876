package store

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saolsen/gameplay/game"
	"github.com/saolsen/gameplay/internal/matchid"
)

var epoch = time.Date(2026, 3, 14, 15, 9, 26, 535000000, time.UTC)

func newMatch(kind game.Kind, created time.Time) *Match {
	return &Match{
		ID:   matchid.New(),
		Game: kind,
		Players: []Player{
			{Name: "alice", Agent: "bot:random"},
			{Name: "bob", Agent: "http://localhost:8000/agent"},
		},
		State:     json.RawMessage(`{"game":"connect4","active_player":0}`),
		Status:    game.InProgress(0),
		CreatedAt: created,
		UpdatedAt: created,
	}
}

func newTurn(n, player int, status game.Status) Turn {
	return Turn{
		Number:    n,
		Player:    player,
		Action:    json.RawMessage(`{"game":"connect4","column":3}`),
		State:     json.RawMessage(`{"game":"connect4","active_player":1}`),
		Status:    status,
		AgentData: json.RawMessage(`{"decisions":1}`),
		CreatedAt: epoch.Add(time.Duration(n) * time.Second),
	}
}

// testStore runs the behaviour every backend must share.
func testStore(t *testing.T, open func(t *testing.T) Store) {
	ctx := context.Background()

	t.Run("create and get", func(t *testing.T) {
		s := open(t)
		m := newMatch(game.Connect4, epoch)
		require.NoError(t, s.CreateMatch(ctx, m))
		assert.ErrorIs(t, s.CreateMatch(ctx, m), ErrConflict)

		got, err := s.GetMatch(ctx, m.ID)
		require.NoError(t, err)
		assert.Equal(t, m.ID, got.ID)
		assert.Equal(t, m.Game, got.Game)
		assert.Equal(t, m.Players, got.Players)
		assert.JSONEq(t, string(m.State), string(got.State))
		assert.Equal(t, m.Status, got.Status)
		assert.Equal(t, 0, got.Turns)
		assert.True(t, m.CreatedAt.Equal(got.CreatedAt), "created_at %v", got.CreatedAt)

		_, err = s.GetMatch(ctx, matchid.New())
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = s.GetMatch(ctx, "../../etc")
		assert.ErrorIs(t, err, ErrNotFound)

		turns, err := s.ListTurns(ctx, m.ID)
		require.NoError(t, err)
		assert.Empty(t, turns)
	})

	t.Run("append turns", func(t *testing.T) {
		s := open(t)
		m := newMatch(game.Connect4, epoch)
		require.NoError(t, s.CreateMatch(ctx, m))

		assert.ErrorIs(t, s.AppendTurn(ctx, m.ID, newTurn(2, 0, game.InProgress(1))), ErrConflict)
		assert.ErrorIs(t, s.AppendTurn(ctx, matchid.New(), newTurn(1, 0, game.InProgress(1))), ErrNotFound)

		require.NoError(t, s.AppendTurn(ctx, m.ID, newTurn(1, 0, game.InProgress(1))))
		assert.ErrorIs(t, s.AppendTurn(ctx, m.ID, newTurn(1, 0, game.InProgress(1))), ErrConflict)
		require.NoError(t, s.AppendTurn(ctx, m.ID, newTurn(2, 1, game.Won(1))))

		got, err := s.GetMatch(ctx, m.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, got.Turns)
		assert.Equal(t, game.Won(1), got.Status)
		assert.True(t, epoch.Add(2*time.Second).Equal(got.UpdatedAt))

		// Over is absorbing.
		assert.ErrorIs(t, s.AppendTurn(ctx, m.ID, newTurn(3, 0, game.InProgress(1))), ErrConflict)
		assert.ErrorIs(t, s.FinishMatch(ctx, m.ID, game.Failed("late"), epoch), ErrConflict)

		turns, err := s.ListTurns(ctx, m.ID)
		require.NoError(t, err)
		require.Len(t, turns, 2)
		for i, turn := range turns {
			assert.Equal(t, i+1, turn.Number)
			assert.Equal(t, i, turn.Player)
			assert.JSONEq(t, `{"game":"connect4","column":3}`, string(turn.Action))
			assert.JSONEq(t, `{"decisions":1}`, string(turn.AgentData))
		}
		assert.Equal(t, game.Won(1), turns[1].Status)

		_, err = s.ListTurns(ctx, matchid.New())
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("finish", func(t *testing.T) {
		s := open(t)
		m := newMatch(game.Poker, epoch)
		require.NoError(t, s.CreateMatch(ctx, m))
		require.NoError(t, s.FinishMatch(ctx, m.ID, game.Failed("agent timed out"), epoch.Add(time.Minute)))

		got, err := s.GetMatch(ctx, m.ID)
		require.NoError(t, err)
		assert.Equal(t, game.Failed("agent timed out"), got.Status)
		assert.Equal(t, 0, got.Turns)
		assert.ErrorIs(t, s.FinishMatch(ctx, matchid.New(), game.Drawn(), epoch), ErrNotFound)
	})

	t.Run("list", func(t *testing.T) {
		s := open(t)
		var c4, all []string
		for i := range 5 {
			kind := game.Connect4
			if i%2 == 1 {
				kind = game.Poker
			}
			m := newMatch(kind, epoch.Add(time.Duration(i)*time.Second))
			require.NoError(t, s.CreateMatch(ctx, m))
			all = append([]string{m.ID}, all...)
			if kind == game.Connect4 {
				c4 = append([]string{m.ID}, c4...)
			}
		}

		ids := func(ms []Match) []string {
			out := make([]string, len(ms))
			for i, m := range ms {
				out[i] = m.ID
			}
			return out
		}

		ms, err := s.ListMatches(ctx, ListOptions{})
		require.NoError(t, err)
		assert.Equal(t, all, ids(ms))

		ms, err = s.ListMatches(ctx, ListOptions{Game: game.Connect4})
		require.NoError(t, err)
		assert.Equal(t, c4, ids(ms))

		ms, err = s.ListMatches(ctx, ListOptions{Limit: 2})
		require.NoError(t, err)
		assert.Equal(t, all[:2], ids(ms))
	})

	t.Run("concurrent appends", func(t *testing.T) {
		s := open(t)
		m := newMatch(game.Connect4, epoch)
		require.NoError(t, s.CreateMatch(ctx, m))

		const writers = 8
		var (
			wg   sync.WaitGroup
			mu   sync.Mutex
			won  int
			lost int
		)
		for range writers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				err := s.AppendTurn(ctx, m.ID, newTurn(1, 0, game.InProgress(1)))
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					won++
				case errors.Is(err, ErrConflict):
					lost++
				default:
					t.Errorf("AppendTurn: %v", err)
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, 1, won)
		assert.Equal(t, writers-1, lost)

		turns, err := s.ListTurns(ctx, m.ID)
		require.NoError(t, err)
		assert.Len(t, turns, 1)
	})
}

func TestMemory(t *testing.T) {
	testStore(t, func(t *testing.T) Store { return NewMemory() })
}

func TestMemoryCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	m := newMatch(game.Connect4, epoch)
	require.NoError(t, s.CreateMatch(ctx, m))

	m.Players[0].Name = "mallory"
	m.State[0] = '['
	got, err := s.GetMatch(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Players[0].Name)
	assert.JSONEq(t, `{"game":"connect4","active_player":0}`, string(got.State))
}

func TestFile(t *testing.T) {
	testStore(t, func(t *testing.T) Store {
		s, err := NewFile(t.TempDir())
		require.NoError(t, err)
		return s
	})
}

func TestFileReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := NewFile(dir)
	require.NoError(t, err)
	m := newMatch(game.Connect4, epoch)
	require.NoError(t, s.CreateMatch(ctx, m))
	require.NoError(t, s.AppendTurn(ctx, m.ID, newTurn(1, 0, game.InProgress(1))))

	reopened, err := NewFile(dir)
	require.NoError(t, err)
	got, err := reopened.GetMatch(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Turns)

	// A stray turn file past the snapshot's count is ignored.
	require.NoError(t, os.WriteFile(turnFile(filepath.Join(dir, m.ID), 2), []byte(`{}`), 0o644))
	turns, err := reopened.ListTurns(ctx, m.ID)
	require.NoError(t, err)
	assert.Len(t, turns, 1)
}

func TestRedis(t *testing.T) {
	url := os.Getenv("GAMEPLAY_TEST_REDIS_URL")
	if url == "" {
		t.Skip("GAMEPLAY_TEST_REDIS_URL not set")
	}
	testStore(t, func(t *testing.T) Store {
		s, err := NewRedis(context.Background(), url, "gameplay-test:"+matchid.New()+":")
		require.NoError(t, err)
		t.Cleanup(func() { s.Close() })
		return s
	})
}

func TestPostgres(t *testing.T) {
	url := os.Getenv("GAMEPLAY_TEST_POSTGRES_URL")
	if url == "" {
		t.Skip("GAMEPLAY_TEST_POSTGRES_URL not set")
	}
	testStore(t, func(t *testing.T) Store {
		ctx := context.Background()
		s, err := NewPostgres(ctx, url)
		require.NoError(t, err)
		_, err = s.db.Exec(ctx, `TRUNCATE matches CASCADE`)
		require.NoError(t, err)
		t.Cleanup(func() { s.Close() })
		return s
	})
}
