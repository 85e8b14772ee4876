package bot

import (
	"fmt"
	rand "math/rand/v2"

	"github.com/saolsen/gameplay/connect4"
	"github.com/saolsen/gameplay/game"
)

// RandBot plays a uniformly random legal action.
type RandBot struct {
	rng *rand.Rand
}

func (r *RandBot) playConnect4(s *connect4.State) (connect4.Action, string) {
	actions := s.ValidActions()
	if len(actions) == 0 {
		return connect4.Action{}, "no legal moves"
	}
	return actions[r.rng.IntN(len(actions))], "random column"
}

// GreedyBot wins when it can, blocks when it must, avoids handing the
// opponent a win on top of its own marker, and otherwise prefers the center.
type GreedyBot struct {
	rng *rand.Rand
}

func (g *GreedyBot) playConnect4(s *connect4.State) (connect4.Action, string) {
	me := s.ActivePlayer
	opp := 1 - me
	actions := s.ValidActions()
	if len(actions) == 0 {
		return connect4.Action{}, "no legal moves"
	}

	for _, a := range actions {
		if wins(s, me, a) {
			return a, fmt.Sprintf("winning in column %d", a.Column)
		}
	}
	for _, a := range actions {
		if wins(s, opp, a) {
			return a, fmt.Sprintf("blocking column %d", a.Column)
		}
	}

	var safe []connect4.Action
	for _, a := range actions {
		next := *s
		if _, err := next.ApplyAction(me, a); err != nil {
			continue
		}
		if next.CheckStatus().Over || !wins(&next, opp, a) {
			safe = append(safe, a)
		}
	}
	if len(safe) == 0 {
		safe = actions
	}

	best := safe[:0:0]
	bestDist := connect4.Columns
	for _, a := range safe {
		d := a.Column - connect4.Columns/2
		if d < 0 {
			d = -d
		}
		switch {
		case d < bestDist:
			best, bestDist = []connect4.Action{a}, d
		case d == bestDist:
			best = append(best, a)
		}
	}
	return best[g.rng.IntN(len(best))], "central column"
}

// wins reports whether player dropping into a's column wins immediately,
// whoever is actually to move.
func wins(s *connect4.State, player int, a connect4.Action) bool {
	next := *s
	next.ActivePlayer = player
	status, err := next.ApplyAction(player, a)
	return err == nil && status.Over && status.Result.Kind == game.Winner
}
