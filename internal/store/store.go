// Package store persists matches and their turn logs.
//
// A match is created once with its initial state, then grows one turn at a
// time. Each turn records the action taken and the state it produced, so the
// log replays the match exactly. Once a match's status is over no further
// turns are accepted.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"slices"
	"time"

	"github.com/saolsen/gameplay/game"
)

var (
	// ErrNotFound is returned for unknown match ids.
	ErrNotFound = errors.New("store: match not found")
	// ErrConflict is returned when a write races another writer or does not
	// follow the match's current state: a duplicate id, a turn number out of
	// sequence, or a write to a finished match.
	ErrConflict = errors.New("store: conflict")
)

// Player is one seat in a match. Agent names who plays it: "bot:<name>",
// "human", or the URL of an agent service.
type Player struct {
	Name  string `json:"name"`
	Agent string `json:"agent"`
}

// Match is the latest snapshot of a match.
type Match struct {
	ID        string          `json:"id"`
	Game      game.Kind       `json:"game"`
	Players   []Player        `json:"players"`
	State     json.RawMessage `json:"state"`
	Status    game.Status     `json:"status"`
	Turns     int             `json:"turns"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Turn is one applied action. Numbers start at 1.
type Turn struct {
	Number    int             `json:"number"`
	Player    int             `json:"player"`
	Action    json.RawMessage `json:"action"`
	State     json.RawMessage `json:"state"`
	Status    game.Status     `json:"status"`
	AgentData json.RawMessage `json:"agent_data,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// ListOptions filters ListMatches. A zero Limit returns every match.
type ListOptions struct {
	Game  game.Kind
	Limit int
}

// Store is implemented by every backend. Matches are listed newest first.
type Store interface {
	CreateMatch(ctx context.Context, m *Match) error
	// AppendTurn records t and moves the match to t's state and status.
	// t.Number must be one more than the match's turn count.
	AppendTurn(ctx context.Context, id string, t Turn) error
	// FinishMatch ends a match without a turn, as when an agent fails.
	FinishMatch(ctx context.Context, id string, status game.Status, at time.Time) error
	GetMatch(ctx context.Context, id string) (*Match, error)
	ListTurns(ctx context.Context, id string) ([]Turn, error)
	ListMatches(ctx context.Context, opts ListOptions) ([]Match, error)
	Close() error
}

// checkTurn validates t against the match it extends.
func checkTurn(m *Match, t Turn) error {
	if m.Status.Over {
		return ErrConflict
	}
	if t.Number != m.Turns+1 {
		return ErrConflict
	}
	return nil
}

func applyTurn(m *Match, t Turn) {
	m.State = bytes.Clone(t.State)
	m.Status = cloneStatus(t.Status)
	m.Turns = t.Number
	m.UpdatedAt = t.CreatedAt
}

func cloneStatus(s game.Status) game.Status {
	out := game.Status{Over: s.Over, Active: slices.Clone(s.Active)}
	if s.Result != nil {
		r := *s.Result
		r.Players = slices.Clone(r.Players)
		out.Result = &r
	}
	return out
}

func cloneMatch(m *Match) *Match {
	out := *m
	out.Players = slices.Clone(m.Players)
	out.State = bytes.Clone(m.State)
	out.Status = cloneStatus(m.Status)
	return &out
}

func cloneTurn(t Turn) Turn {
	t.Action = bytes.Clone(t.Action)
	t.State = bytes.Clone(t.State)
	t.AgentData = bytes.Clone(t.AgentData)
	t.Status = cloneStatus(t.Status)
	return t
}

// newestFirst sorts matches by descending id. Match ids sort by creation time.
func newestFirst(ms []Match) {
	slices.SortFunc(ms, func(a, b Match) int {
		switch {
		case a.ID > b.ID:
			return -1
		case a.ID < b.ID:
			return 1
		default:
			return 0
		}
	})
}

func filterMatches(ms []Match, opts ListOptions) []Match {
	out := ms[:0]
	for _, m := range ms {
		if opts.Game == "" || m.Game == opts.Game {
			out = append(out, m)
		}
	}
	newestFirst(out)
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out
}
