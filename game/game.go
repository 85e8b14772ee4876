package game

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Kind discriminates game payloads on the wire.
type Kind string

const (
	Connect4 Kind = "connect4"
	Poker    Kind = "poker"
)

// Engine is the capability set every game provides. S is the game's state
// type (a pointer, mutated in place by ApplyAction), A its action type and V
// its per-player view.
type Engine[S, A, V any] interface {
	Kind() Kind
	NewGame(players int) (S, error)
	CheckStatus(state S) Status
	CheckAction(state S, player int, action A) error
	ApplyAction(state S, player int, action A) (Status, error)
	View(state S, player int) V
}

type tag struct {
	Game Kind `json:"game"`
}

// MarshalTagged encodes v, which must marshal to a JSON object, with a
// leading "game" field set to kind. Callers pass an alias type so that their
// own MarshalJSON is not re-entered.
func MarshalTagged(kind Kind, v any) ([]byte, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	body = bytes.TrimSpace(body)
	if len(body) < 2 || body[0] != '{' {
		return nil, fmt.Errorf("game: %s payload is not a JSON object", kind)
	}
	name, err := json.Marshal(string(kind))
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.Grow(len(body) + len(name) + 10)
	buf.WriteString(`{"game":`)
	buf.Write(name)
	if inner := bytes.TrimSpace(body[1 : len(body)-1]); len(inner) > 0 {
		buf.WriteByte(',')
		buf.Write(inner)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalTagged checks that data carries the expected "game" field and
// decodes the rest into v.
func UnmarshalTagged(kind Kind, data []byte, v any) error {
	got, err := PeekKind(data)
	if err != nil {
		return err
	}
	if got != kind {
		return fmt.Errorf("game: expected %q payload, got %q", kind, got)
	}
	return json.Unmarshal(data, v)
}

// PeekKind returns the "game" discriminant of a tagged payload.
func PeekKind(data []byte) (Kind, error) {
	var t tag
	if err := json.Unmarshal(data, &t); err != nil {
		return "", fmt.Errorf("game: decode tag: %w", err)
	}
	if t.Game == "" {
		return "", fmt.Errorf("game: payload has no game field")
	}
	return t.Game, nil
}
