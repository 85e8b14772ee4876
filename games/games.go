// Package games is the closed set of game kinds, exposed through a
// type-erased engine that works on tagged JSON. It is the boundary between
// untrusted payloads and the typed engines: anything that fails to decode is
// reported as a state or action error.
package games

import (
	"bytes"
	"encoding/json"
	"errors"
	"slices"

	"github.com/saolsen/gameplay/connect4"
	"github.com/saolsen/gameplay/game"
	"github.com/saolsen/gameplay/poker"
)

// Game is a game.Engine whose states, actions and views are JSON.
type Game interface {
	Kind() game.Kind
	NewGame(players int) (json.RawMessage, error)
	CheckStatus(state json.RawMessage) (game.Status, error)
	CheckAction(state json.RawMessage, player int, action json.RawMessage) error
	// ApplyAction returns the next state. The input is never modified.
	ApplyAction(state json.RawMessage, player int, action json.RawMessage) (json.RawMessage, game.Status, error)
	View(state json.RawMessage, player int) (json.RawMessage, error)
}

// Adapt erases the types of e. S must decode from the JSON it encodes to, as
// the tagged state types in this module do.
func Adapt[S, A, V any](e game.Engine[S, A, V]) Game {
	return adapter[S, A, V]{engine: e}
}

type adapter[S, A, V any] struct {
	engine game.Engine[S, A, V]
}

func (a adapter[S, A, V]) Kind() game.Kind { return a.engine.Kind() }

func (a adapter[S, A, V]) NewGame(players int) (json.RawMessage, error) {
	s, err := a.engine.NewGame(players)
	if err != nil {
		return nil, err
	}
	return encode(s)
}

func (a adapter[S, A, V]) CheckStatus(state json.RawMessage) (game.Status, error) {
	s, err := a.state(state)
	if err != nil {
		return game.Status{}, err
	}
	return a.engine.CheckStatus(s), nil
}

func (a adapter[S, A, V]) CheckAction(state json.RawMessage, player int, action json.RawMessage) error {
	s, err := a.state(state)
	if err != nil {
		return err
	}
	act, err := a.action(action)
	if err != nil {
		return err
	}
	return a.engine.CheckAction(s, player, act)
}

func (a adapter[S, A, V]) ApplyAction(state json.RawMessage, player int, action json.RawMessage) (json.RawMessage, game.Status, error) {
	s, err := a.state(state)
	if err != nil {
		return nil, game.Status{}, err
	}
	act, err := a.action(action)
	if err != nil {
		return nil, game.Status{}, err
	}
	status, err := a.engine.ApplyAction(s, player, act)
	if err != nil {
		return nil, game.Status{}, err
	}
	next, err := encode(s)
	if err != nil {
		return nil, game.Status{}, err
	}
	return next, status, nil
}

func (a adapter[S, A, V]) View(state json.RawMessage, player int) (json.RawMessage, error) {
	s, err := a.state(state)
	if err != nil {
		return nil, err
	}
	return encode(a.engine.View(s, player))
}

func (a adapter[S, A, V]) state(data json.RawMessage) (S, error) {
	var s S
	if err := decode(data, &s, game.KindState); err != nil {
		return s, err
	}
	return s, nil
}

func (a adapter[S, A, V]) action(data json.RawMessage) (A, error) {
	var act A
	if err := decode(data, &act, game.KindAction); err != nil {
		return act, err
	}
	return act, nil
}

func decode(data []byte, v any, kind game.ErrorKind) error {
	if trimmed := bytes.TrimSpace(data); len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return game.Errorf(kind, "missing %s", kind)
	}
	if err := json.Unmarshal(data, v); err != nil {
		var gerr *game.Error
		if errors.As(err, &gerr) {
			return gerr
		}
		return game.Errorf(kind, "decode %s: %v", kind, err)
	}
	return nil
}

func encode(v any) (json.RawMessage, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, game.Errorf(game.KindState, "encode: %v", err)
	}
	return data, nil
}

var registry = map[game.Kind]Game{
	game.Connect4: Adapt[*connect4.State, connect4.Action, *connect4.State](connect4.Engine{}),
	game.Poker:    Poker(),
}

// Lookup returns the game for kind with default options.
func Lookup(kind game.Kind) (Game, bool) {
	g, ok := registry[kind]
	return g, ok
}

// MustLookup is Lookup for kinds known at compile time.
func MustLookup(kind game.Kind) Game {
	g, ok := Lookup(kind)
	if !ok {
		panic("games: unknown kind " + string(kind))
	}
	return g
}

// Kinds lists every registered kind in sorted order.
func Kinds() []game.Kind {
	kinds := make([]game.Kind, 0, len(registry))
	for k := range registry {
		kinds = append(kinds, k)
	}
	slices.Sort(kinds)
	return kinds
}

// Poker returns the poker game with options applied to every new match.
func Poker(opts ...poker.Option) Game {
	return Adapt[*poker.State, poker.Action, *poker.View](poker.Engine{Options: opts})
}
