// Package game defines the abstraction shared by every game engine in this
// module.
//
// An engine is a set of pure functions over an explicit state value:
//
//	state, err := connect4.NewGame(2)
//	if err := state.CheckAction(0, connect4.Action{Column: 3}); err != nil {
//	    // err is a *game.Error; errors.Is(err, game.ErrAction) etc.
//	}
//	status, err := state.ApplyAction(0, connect4.Action{Column: 3})
//	view := state.View(1)
//
// Engines hold no state between calls. The caller owns the state value and
// must serialize ApplyAction calls for a given match.
//
// States, actions and views marshal to JSON objects tagged with a "game"
// field naming their Kind, so they can cross the agent protocol opaquely.
package game
