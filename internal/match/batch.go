package match

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/saolsen/gameplay/game"
	"github.com/saolsen/gameplay/internal/store"
)

// BatchResult tallies a batch of matches. Wins counts the matches each seat
// won outright or shared.
type BatchResult struct {
	Matches []*store.Match
	Wins    []int
	Draws   int
	Errored int
}

// RunBatch plays n matches of kind with at most limit running at once.
// Participants are built per match by seat, so stateful agents are not
// shared between concurrent matches unless seat chooses to. It stops at the
// first store error.
func (c *Coordinator) RunBatch(ctx context.Context, kind game.Kind, n, limit int, seat func(match int) []Participant) (*BatchResult, error) {
	matches := make([]*store.Match, n)

	g, ctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i := range n {
		g.Go(func() error {
			m, err := c.Play(ctx, kind, seat(i))
			if err != nil {
				return err
			}
			matches[i] = m
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := &BatchResult{Matches: matches}
	for _, m := range matches {
		if res.Wins == nil {
			res.Wins = make([]int, len(m.Players))
		}
		switch r := m.Status.Result; {
		case r == nil:
		case r.Kind == game.Winner:
			for _, p := range r.Players {
				res.Wins[p]++
			}
		case r.Kind == game.Draw:
			res.Draws++
		default:
			res.Errored++
		}
	}
	return res, nil
}
