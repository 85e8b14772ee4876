package game

import (
	"fmt"
	"slices"
)

// ResultKind is the outcome of a finished game.
type ResultKind int

const (
	Winner ResultKind = iota
	Draw
	Errored
)

func (k ResultKind) String() string {
	return [...]string{"winner", "draw", "errored"}[k]
}

// MarshalText encodes the kind as its name.
func (k ResultKind) MarshalText() ([]byte, error) {
	if k < Winner || k > Errored {
		return nil, fmt.Errorf("invalid result kind %d", int(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText decodes a result kind name.
func (k *ResultKind) UnmarshalText(text []byte) error {
	switch string(text) {
	case "winner":
		*k = Winner
	case "draw":
		*k = Draw
	case "errored":
		*k = Errored
	default:
		return fmt.Errorf("unknown result kind %q", text)
	}
	return nil
}

// Result describes how a game ended.
type Result struct {
	Kind    ResultKind `json:"kind"`
	Players []int      `json:"players,omitempty"` // winners
	Reason  string     `json:"reason,omitempty"`  // errored only
}

// Status is either in progress with a set of players to act, or over with a
// result. Over is absorbing.
type Status struct {
	Over   bool    `json:"over"`
	Active []int   `json:"active,omitempty"`
	Result *Result `json:"result,omitempty"`
}

// InProgress returns a status waiting on the given players.
func InProgress(active ...int) Status {
	return Status{Active: active}
}

// Won returns a finished status with the given winners.
func Won(players ...int) Status {
	return Status{Over: true, Result: &Result{Kind: Winner, Players: players}}
}

// Drawn returns a finished status with no winner.
func Drawn() Status {
	return Status{Over: true, Result: &Result{Kind: Draw}}
}

// Failed returns a finished status recording why the game could not continue.
func Failed(reason string) Status {
	return Status{Over: true, Result: &Result{Kind: Errored, Reason: reason}}
}

// IsActive reports whether player may act now.
func (s Status) IsActive(player int) bool {
	return !s.Over && slices.Contains(s.Active, player)
}

func (s Status) String() string {
	if !s.Over {
		return fmt.Sprintf("in progress (to act: %v)", s.Active)
	}
	if s.Result == nil {
		return "over"
	}
	switch s.Result.Kind {
	case Winner:
		return fmt.Sprintf("over (winner: %v)", s.Result.Players)
	case Draw:
		return "over (draw)"
	default:
		return fmt.Sprintf("over (errored: %s)", s.Result.Reason)
	}
}
