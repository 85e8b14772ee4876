// Package agent defines how a match asks a player for its next action, and
// the HTTP protocol spoken with remote agent services.
//
// A request carries the player's view of the game as tagged JSON plus any
// agent_data the agent returned on its previous turn; the response carries a
// tagged action and optional agent_data to persist for the next turn.
package agent

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/saolsen/gameplay/game"
)

// Request is the body POSTed to an agent service.
type Request struct {
	Game      game.Kind       `json:"game"`
	AgentName string          `json:"agentname"`
	State     json.RawMessage `json:"state"`
	AgentData json.RawMessage `json:"agent_data,omitempty"`
}

// Response is an agent's decision.
type Response struct {
	Action    json.RawMessage `json:"action"`
	AgentData json.RawMessage `json:"agent_data,omitempty"`
}

// ErrNoAction is returned when an agent responds without an action.
var ErrNoAction = errors.New("agent: response has no action")

// Agent decides the next action for one player.
type Agent interface {
	Decide(ctx context.Context, req Request) (Response, error)
}

// Func adapts a function to the Agent interface.
type Func func(ctx context.Context, req Request) (Response, error)

func (f Func) Decide(ctx context.Context, req Request) (Response, error) {
	return f(ctx, req)
}

// Respond encodes action and data into a Response.
func Respond(action any, data any) (Response, error) {
	a, err := json.Marshal(action)
	if err != nil {
		return Response{}, err
	}
	resp := Response{Action: a}
	if data != nil {
		if resp.AgentData, err = json.Marshal(data); err != nil {
			return Response{}, err
		}
	}
	return resp, nil
}
